package clients

import (
	"errors"
	"fmt"
)

// Failure categories of a poll cycle. None of them is fatal to the process;
// each aborts only the cycle for the link it happened on.
var (
	ErrInvalidLinkFormat   = errors.New("invalid link format")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrNetwork             = errors.New("network error")
	ErrProvider            = errors.New("provider error")
	ErrDecode              = errors.New("decode error")
	ErrStorage             = errors.New("storage error")
)

// StatusError reports a non-2xx answer from a provider API.
type StatusError struct {
	URI        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d for %s: %s", e.StatusCode, e.URI, e.Body)
}

// Unwrap lets errors.Is(err, ErrProvider) match.
func (e *StatusError) Unwrap() error { return ErrProvider }

// Kind names the failure category of err for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidLinkFormat):
		return "invalid_link"
	case errors.Is(err, ErrUnsupportedProvider):
		return "unsupported_provider"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "unknown"
	}
}

func invalidLink(link, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrInvalidLinkFormat, link, reason)
}
