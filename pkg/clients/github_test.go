package clients

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-link-scrapper/pkg/httpclient"
)

// recordingHTTPClient counts calls and fails the test if used unexpectedly.
type recordingHTTPClient struct {
	calls int
}

func (r *recordingHTTPClient) Get(context.Context, string, map[string]string) (httpclient.Response, error) {
	r.calls++
	return nil, errors.New("unexpected call")
}

func TestGitHubTranslate(t *testing.T) {
	g := NewGitHubStrategy(nil, GitHubOptions{BaseURL: "https://api.example.com/"})

	valid := map[string]string{
		"https://github.com/golang/go":                   "https://api.example.com/repos/golang/go/events?per_page=30",
		"https://www.github.com/Golang/Go/":              "https://api.example.com/repos/golang/go/events?per_page=30",
		"https://github.com/uber-go/zap.git":             "https://api.example.com/repos/uber-go/zap/events?per_page=30",
		"https://github.com/etcd-io/bbolt/pulls?q=open":  "https://api.example.com/repos/etcd-io/bbolt/events?per_page=30",
		"http://github.com/spf13/viper/tree/master/docs": "https://api.example.com/repos/spf13/viper/events?per_page=30",
	}
	for link, want := range valid {
		got, err := g.Translate(link)
		if err != nil {
			t.Errorf("Translate(%q): %v", link, err)
			continue
		}
		if got != want {
			t.Errorf("Translate(%q) = %q want %q", link, got, want)
		}
	}

	invalid := []string{
		"not-a-url",
		"https://github.com/",
		"https://github.com/only-owner",
		"https://gitlab.com/a/b",
		"ftp://github.com/a/b",
		"https://github.com/-bad/repo",
		"https://github.com/owner/..",
	}
	for _, link := range invalid {
		if _, err := g.Translate(link); !errors.Is(err, ErrInvalidLinkFormat) {
			t.Errorf("Translate(%q) expected ErrInvalidLinkFormat, got %v", link, err)
		}
	}
}

func TestGitHubClientRejectsMalformedLinkBeforeFetch(t *testing.T) {
	httpClient := &recordingHTTPClient{}
	client := NewGitHubClient(httpClient, GitHubOptions{}, newCountingStore(), nil)

	_, err := client.Poll(context.Background(), "not-a-url")
	if !errors.Is(err, ErrInvalidLinkFormat) {
		t.Fatalf("expected ErrInvalidLinkFormat, got %v", err)
	}
	if httpClient.calls != 0 {
		t.Fatalf("network called %d times for malformed link", httpClient.calls)
	}
}

func TestGitHubFetchSendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/golang/go/events" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Accept = %q", got)
		}
		_, _ = w.Write([]byte(`[
			{"id":"200","type":"PushEvent","actor":{"login":"gopher"},"created_at":"2024-05-01T10:00:00Z"},
			{"id":"199","type":"IssuesEvent","actor":{"login":"other"},"created_at":"2024-04-30T10:00:00Z"}
		]`))
	}))
	defer srv.Close()

	g := NewGitHubStrategy(httpclient.NewRestyClient(2*time.Second, "test"), GitHubOptions{BaseURL: srv.URL, Token: "tkn"})
	uri, err := g.Translate("https://github.com/golang/go")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	snapshot, err := g.Fetch(context.Background(), uri)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snapshot.Repository != "golang/go" || len(snapshot.Events) != 2 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
	if fp := g.Fingerprint(snapshot); fp != "event:200" {
		t.Fatalf("Fingerprint = %q", fp)
	}
	if summary := g.Summarize(snapshot); !strings.HasPrefix(summary, "PushEvent by gopher") {
		t.Fatalf("Summarize = %q", summary)
	}
}

func TestGitHubFetchErrorCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/a/missing/events":
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		case "/repos/a/garbled/events":
			_, _ = w.Write([]byte(`{"not":"a list"`))
		case "/repos/a/null/events":
			_, _ = w.Write([]byte(`null`))
		case "/repos/a/quiet/events":
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	g := NewGitHubStrategy(httpclient.NewRestyClient(2*time.Second, ""), GitHubOptions{BaseURL: srv.URL})

	_, err := g.Fetch(context.Background(), srv.URL+"/repos/a/missing/events")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound || !errors.Is(err, ErrProvider) {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}

	_, err = g.Fetch(context.Background(), srv.URL+"/repos/a/garbled/events")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}

	_, err = g.Fetch(context.Background(), srv.URL+"/repos/a/null/events")
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode for null body, got %v", err)
	}

	quiet, err := g.Fetch(context.Background(), srv.URL+"/repos/a/quiet/events")
	if err != nil {
		t.Fatalf("Fetch empty feed: %v", err)
	}
	if fp := g.Fingerprint(quiet); fp != EmptyFingerprint {
		t.Fatalf("empty feed fingerprint = %q", fp)
	}

	store := newCountingStore()
	if _, _, err := store.Save("https://github.com/a/null", "event:F1"); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	client := NewGitHubClient(httpclient.NewRestyClient(2*time.Second, ""), GitHubOptions{BaseURL: srv.URL}, store, nil)
	if _, err := client.Poll(context.Background(), "https://github.com/a/null"); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected poll to fail with ErrDecode, got %v", err)
	}
	if fp, _, _ := store.Get("https://github.com/a/null"); fp != "event:F1" {
		t.Fatalf("stored fingerprint overwritten: %q", fp)
	}

	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := closed.URL
	closed.Close()
	_, err = g.Fetch(context.Background(), closedURL+"/repos/a/b/events")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestGitHubFingerprintDistinguishesNewestEvents(t *testing.T) {
	g := NewGitHubStrategy(nil, GitHubOptions{})
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s1 := GitHubSnapshot{Events: []GitHubEvent{{ID: "10", CreatedAt: at}}}
	s2 := GitHubSnapshot{Events: []GitHubEvent{{ID: "11", CreatedAt: at.Add(time.Minute)}, {ID: "10", CreatedAt: at}}}
	if g.Fingerprint(s1) == g.Fingerprint(s2) {
		t.Fatalf("expected different fingerprints for different newest events")
	}

	// Ordering of the feed must not matter.
	s3 := GitHubSnapshot{Events: []GitHubEvent{{ID: "10", CreatedAt: at}, {ID: "11", CreatedAt: at.Add(time.Minute)}}}
	if g.Fingerprint(s2) != g.Fingerprint(s3) {
		t.Fatalf("expected equal fingerprints regardless of order")
	}

	tie := GitHubSnapshot{Events: []GitHubEvent{{ID: "9", CreatedAt: at}, {ID: "10", CreatedAt: at}}}
	if fp := g.Fingerprint(tie); fp != "event:10" {
		t.Fatalf("tie Fingerprint = %q", fp)
	}

	if fp := g.Fingerprint(GitHubSnapshot{}); fp != EmptyFingerprint {
		t.Fatalf("empty Fingerprint = %q", fp)
	}
}
