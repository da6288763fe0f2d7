package poller

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-link-scrapper/pkg/httpclient"
	"github.com/samvad-hq/samvad-link-scrapper/pkg/publishers"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// Scraper fetches the tracked page and copies its title and description onto events.
type Scraper struct {
	client httpclient.Client
}

// NewScraper constructs a scraper with the provided HTTP client.
func NewScraper(client httpclient.Client) *Scraper {
	return &Scraper{client: client}
}

// Enrich returns evt with Title/Description filled from the page at evt.Link.
// On failure the original event is returned alongside the error.
func (s *Scraper) Enrich(ctx context.Context, evt publishers.Event) (publishers.Event, error) {
	if s == nil || s.client == nil {
		return evt, nil
	}

	resp, err := s.client.Get(ctx, evt.Link, map[string]string{"Accept": "text/html"})
	if err != nil {
		return evt, fmt.Errorf("http fetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return evt, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return evt, err
	}
	if meta.Title != "" {
		evt.Title = meta.Title
	}
	if meta.Description != "" {
		evt.Description = meta.Description
	}
	return evt, nil
}

type pageMeta struct {
	Title       string
	Description string
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
