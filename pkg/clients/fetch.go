package clients

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/samvad-hq/samvad-link-scrapper/pkg/httpclient"
)

// HTTPClient aliases the shared httpclient.Client interface for clarity within clients.
type HTTPClient = httpclient.Client

// getJSON performs one GET against a provider API and decodes the body into out.
// Transport failures map to ErrNetwork, non-2xx answers to *StatusError and
// unparsable bodies to ErrDecode. It never retries.
func getJSON(ctx context.Context, client HTTPClient, uri string, headers map[string]string, out any) error {
	resp, err := client.Get(ctx, uri, headers)
	if err != nil {
		return fmt.Errorf("%w: get %s: %w", ErrNetwork, uri, err)
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return &StatusError{URI: uri, StatusCode: code, Body: responseSnippet(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, uri, err)
	}
	return nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
