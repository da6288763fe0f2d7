package poller

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/samvad-hq/samvad-link-scrapper/pkg/httpclient"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/publishers"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte         { return s.body }
func (s stubHTTPResponse) StatusCode() int      { return s.statusCode }
func (s stubHTTPResponse) Header(string) string { return "" }

// stubHTTPClient returns a single response.
type stubHTTPClient struct {
	resp httpclient.Response
	err  error
}

func (s stubHTTPClient) Get(_ context.Context, _ string, _ map[string]string) (httpclient.Response, error) {
	return s.resp, s.err
}

func TestParseMetaPrefersOGTags(t *testing.T) {
	html := []byte(`
<html>
  <head>
    <title>Fallback</title>
    <meta property="og:title" content="golang/go">
    <meta property="og:description" content="The Go programming language">
  </head>
</html>`)

	meta, err := parseMeta(html)
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Title != "golang/go" || meta.Description != "The Go programming language" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestParseMetaFallsBackToTitleTag(t *testing.T) {
	meta, err := parseMeta([]byte(`<html><head><title> Question </title><meta name="description" content="desc"></head></html>`))
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Title != "Question" || meta.Description != "desc" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestScraperEnrichesAndLimitsBody(t *testing.T) {
	body := bytes.Repeat([]byte("a"), maxHTMLBodyBytes+10)
	scraper := NewScraper(stubHTTPClient{resp: stubHTTPResponse{body: body, statusCode: 200}})

	evt, err := scraper.Enrich(context.Background(), publishers.Event{Link: "https://github.com/a/b"})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if evt.Title != "" {
		t.Fatalf("expected empty title because body had no metadata")
	}
}

func TestScraperKeepsEventOnFailure(t *testing.T) {
	scraper := NewScraper(stubHTTPClient{err: errors.New("dial tcp")})
	in := publishers.Event{Link: "https://github.com/a/b", Summary: "s"}

	out, err := scraper.Enrich(context.Background(), in)
	if err == nil {
		t.Fatalf("expected error")
	}
	if out.Summary != "s" || out.Link != in.Link {
		t.Fatalf("event modified on failure: %+v", out)
	}

	_, err = NewScraper(stubHTTPClient{resp: stubHTTPResponse{statusCode: 503}}).Enrich(context.Background(), in)
	if err == nil {
		t.Fatalf("expected status error")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", " ", "foo", "bar"); got != "foo" {
		t.Fatalf("firstNonEmpty returned %q", got)
	}
}
