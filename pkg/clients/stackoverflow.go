package clients

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	StackOverflowProviderName  = "stackoverflow"
	defaultStackOverflowAPIURL = "https://api.stackexchange.com/2.3"
	stackOverflowSite          = "stackoverflow"
	stackOverflowLowQuota      = 25
)

// StackOverflowHosts are the link hosts owned by the StackOverflow provider.
var StackOverflowHosts = []string{"stackoverflow.com", "www.stackoverflow.com"}

// StackOverflowOptions configures the StackExchange answers strategy.
type StackOverflowOptions struct {
	BaseURL string
	Key     string
}

// StackOverflowAnswer is one answer of a question.
type StackOverflowAnswer struct {
	AnswerID         int64 `json:"answer_id"`
	QuestionID       int64 `json:"question_id"`
	Score            int   `json:"score"`
	IsAccepted       bool  `json:"is_accepted"`
	LastActivityDate int64 `json:"last_activity_date"`
	CreationDate     int64 `json:"creation_date"`
	Owner            struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
}

// StackOverflowSnapshot is the decoded answer list of a question.
type StackOverflowSnapshot struct {
	Items []StackOverflowAnswer `json:"items"`
	// QuotaRemaining is the daily request quota left; nil when the API omits it.
	QuotaRemaining *int `json:"quota_remaining"`
}

// StackOverflowStrategy tracks question answers through the StackExchange API.
type StackOverflowStrategy struct {
	client  HTTPClient
	baseURL string
	key     string
	log     Logger
}

// NewStackOverflowStrategy builds the StackOverflow strategy.
func NewStackOverflowStrategy(client HTTPClient, opts StackOverflowOptions) *StackOverflowStrategy {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultStackOverflowAPIURL
	}
	return &StackOverflowStrategy{
		client:  client,
		baseURL: baseURL,
		key:     strings.TrimSpace(opts.Key),
		log:     noopLogger{},
	}
}

// NewStackOverflowClient wires the StackOverflow strategy into a change detector.
func NewStackOverflowClient(client HTTPClient, opts StackOverflowOptions, store StateStore, log Logger) *Client[StackOverflowSnapshot] {
	strategy := NewStackOverflowStrategy(client, opts)
	strategy.log = ensureLogger(log)
	return NewClient[StackOverflowSnapshot](strategy, store, log)
}

func (s *StackOverflowStrategy) Name() string { return StackOverflowProviderName }

// Translate maps https://stackoverflow.com/questions/{id}[/slug] (or /q/{id}) to the answers endpoint.
func (s *StackOverflowStrategy) Translate(link string) (string, error) {
	host, segments, err := pathSegments(link)
	if err != nil {
		return "", err
	}
	if host != "stackoverflow.com" {
		return "", invalidLink(link, "not a stackoverflow.com link")
	}
	// /q/{id} is the short form produced by the site's share button.
	if len(segments) < 2 || (segments[0] != "questions" && segments[0] != "q") {
		return "", invalidLink(link, "expected /questions/{id} or /q/{id}")
	}
	id, err := strconv.ParseUint(segments[1], 10, 64)
	if err != nil || id == 0 {
		return "", invalidLink(link, "question id must be a positive number")
	}

	q := url.Values{}
	q.Set("order", "desc")
	q.Set("sort", "activity")
	q.Set("site", stackOverflowSite)
	if s.key != "" {
		q.Set("key", s.key)
	}
	return fmt.Sprintf("%s/questions/%d/answers?%s", s.baseURL, id, q.Encode()), nil
}

// Fetch downloads the answer list.
func (s *StackOverflowStrategy) Fetch(ctx context.Context, uri string) (StackOverflowSnapshot, error) {
	var snapshot StackOverflowSnapshot
	if err := getJSON(ctx, s.client, uri, map[string]string{"Accept": "application/json"}, &snapshot); err != nil {
		return StackOverflowSnapshot{}, err
	}
	if snapshot.Items == nil {
		return StackOverflowSnapshot{}, fmt.Errorf("%w: %s: response has no items array", ErrDecode, uri)
	}
	if q := snapshot.QuotaRemaining; q != nil && *q <= stackOverflowLowQuota {
		s.log.WarnObj("stackexchange quota running low", "stackexchange_quota", map[string]any{
			"quota_remaining": *q,
			"uri":             uri,
		})
	}
	return snapshot, nil
}

// Fingerprint identifies the most recently active answer and its activity time.
func (s *StackOverflowStrategy) Fingerprint(snapshot StackOverflowSnapshot) string {
	newest, ok := snapshot.newest()
	if !ok {
		return EmptyFingerprint
	}
	return fmt.Sprintf("answer:%d@%d", newest.AnswerID, newest.LastActivityDate)
}

func (s *StackOverflowStrategy) Summarize(snapshot StackOverflowSnapshot) string {
	newest, ok := snapshot.newest()
	if !ok {
		return "no answers yet"
	}
	author := newest.Owner.DisplayName
	if author == "" {
		author = "unknown"
	}
	activity := time.Unix(newest.LastActivityDate, 0).UTC().Format(time.RFC3339)
	summary := fmt.Sprintf("answer %d by %s (score %d) active at %s", newest.AnswerID, author, newest.Score, activity)
	if newest.IsAccepted {
		summary += ", accepted"
	}
	return summary
}

// newest picks the answer with the latest activity; ties go to the higher id.
func (s StackOverflowSnapshot) newest() (StackOverflowAnswer, bool) {
	if len(s.Items) == 0 {
		return StackOverflowAnswer{}, false
	}
	best := s.Items[0]
	for _, a := range s.Items[1:] {
		if a.LastActivityDate > best.LastActivityDate ||
			(a.LastActivityDate == best.LastActivityDate && a.AnswerID > best.AnswerID) {
			best = a
		}
	}
	return best, true
}
