package publishers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"

	"github.com/samvad-hq/samvad-link-scrapper/pkg/httpclient"
)

type httpPublisher struct {
	id           string
	method       string
	url          string
	headers      map[string]string
	client       *resty.Client
	typ          string
	maxAttempts  int
	retryInitial time.Duration
	log          Logger
}

// permanentError marks a delivery failure that retrying cannot fix.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	client := httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second)

	maxAttempts := cfg.HTTP.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = httpDefaultMaxAttempts
	}
	retryMs := cfg.HTTP.RetryMs
	if retryMs <= 0 {
		retryMs = httpDefaultRetryMs
	}
	method := cfg.HTTP.Method
	if method == "" {
		method = httpDefaultMethod
	}

	return &httpPublisher{
		id:           cfg.ID,
		typ:          TypeHTTP,
		method:       method,
		url:          cfg.HTTP.URL,
		headers:      cfg.HTTP.Headers,
		client:       client,
		maxAttempts:  maxAttempts,
		retryInitial: time.Duration(retryMs) * time.Millisecond,
		log:          ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }

// Publish delivers the event, retrying transport failures, 429 and 5xx
// answers with exponential backoff up to maxAttempts.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = h.retryInitial
	bo.Reset()

	for attempt := 1; ; attempt++ {
		err := h.send(ctx, evt)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) || attempt >= h.maxAttempts {
			return err
		}

		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		h.log.WarnObj("http publisher retrying", "publisher_http_retry", map[string]any{
			"publisher_id": h.id,
			"attempt":      attempt,
			"wait_ms":      wait.Milliseconds(),
			"error":        err.Error(),
		})

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("http publish cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

func (h *httpPublisher) send(ctx context.Context, evt Event) error {
	payload, err := evt.Encode()
	if err != nil {
		return &permanentError{err: fmt.Errorf("marshal event: %w", err)}
	}

	req := h.client.R().
		SetContext(ctx).
		SetBody(payload)

	if len(h.headers) > 0 {
		req.SetHeaders(h.headers)
	}

	req.SetHeader("Content-Type", "application/json")

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		err := fmt.Errorf("http response status %d: %s", resp.StatusCode(), readBodySnippet(resp.Body()))
		if resp.StatusCode() < http.StatusInternalServerError && resp.StatusCode() != http.StatusTooManyRequests {
			return &permanentError{err: err}
		}
		return err
	}
	return nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
