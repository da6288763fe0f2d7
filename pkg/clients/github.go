package clients

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	GitHubProviderName    = "github"
	defaultGitHubAPIURL   = "https://api.github.com"
	defaultGitHubPageSize = 30
	githubAPIVersion      = "2022-11-28"
)

var (
	githubOwnerPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,38})$`)
	githubRepoPattern  = regexp.MustCompile(`^[a-z0-9._-]{1,100}$`)
)

// GitHubHosts are the link hosts owned by the GitHub provider.
var GitHubHosts = []string{"github.com", "www.github.com"}

// GitHubOptions configures the GitHub repository-events strategy.
type GitHubOptions struct {
	BaseURL string
	Token   string
	PerPage int
}

// GitHubEvent is one entry of the repository events feed.
type GitHubEvent struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Actor struct {
		Login string `json:"login"`
	} `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// GitHubSnapshot is the decoded events feed of a repository.
type GitHubSnapshot struct {
	Repository string
	Events     []GitHubEvent
}

// GitHubStrategy tracks repository events.
type GitHubStrategy struct {
	client  HTTPClient
	baseURL string
	token   string
	perPage int
}

// NewGitHubStrategy builds the GitHub strategy.
func NewGitHubStrategy(client HTTPClient, opts GitHubOptions) *GitHubStrategy {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultGitHubAPIURL
	}
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = defaultGitHubPageSize
	}
	return &GitHubStrategy{
		client:  client,
		baseURL: baseURL,
		token:   strings.TrimSpace(opts.Token),
		perPage: perPage,
	}
}

// NewGitHubClient wires the GitHub strategy into a change detector.
func NewGitHubClient(client HTTPClient, opts GitHubOptions, store StateStore, log Logger) *Client[GitHubSnapshot] {
	return NewClient[GitHubSnapshot](NewGitHubStrategy(client, opts), store, log)
}

func (g *GitHubStrategy) Name() string { return GitHubProviderName }

// Translate maps https://github.com/{owner}/{repo}[/...] to the repository events endpoint.
func (g *GitHubStrategy) Translate(link string) (string, error) {
	owner, repo, err := parseGitHubRepo(link)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/repos/%s/%s/events?per_page=%d", g.baseURL, owner, repo, g.perPage), nil
}

func parseGitHubRepo(link string) (string, string, error) {
	host, segments, err := pathSegments(link)
	if err != nil {
		return "", "", err
	}
	if host != "github.com" {
		return "", "", invalidLink(link, "not a github.com link")
	}
	if len(segments) < 2 {
		return "", "", invalidLink(link, "expected /{owner}/{repo}")
	}

	owner := strings.ToLower(segments[0])
	repo := strings.TrimSuffix(strings.ToLower(segments[1]), ".git")
	if !githubOwnerPattern.MatchString(owner) {
		return "", "", invalidLink(link, "malformed repository owner")
	}
	if !githubRepoPattern.MatchString(repo) || repo == "." || repo == ".." {
		return "", "", invalidLink(link, "malformed repository name")
	}
	return owner, repo, nil
}

// Fetch downloads the events feed.
func (g *GitHubStrategy) Fetch(ctx context.Context, uri string) (GitHubSnapshot, error) {
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": githubAPIVersion,
	}
	if g.token != "" {
		headers["Authorization"] = "Bearer " + g.token
	}

	var events []GitHubEvent
	if err := getJSON(ctx, g.client, uri, headers, &events); err != nil {
		return GitHubSnapshot{}, err
	}
	// An empty feed arrives as [] and decodes to a non-nil slice; null does not.
	if events == nil {
		return GitHubSnapshot{}, fmt.Errorf("%w: %s: response is not an events array", ErrDecode, uri)
	}
	return GitHubSnapshot{Repository: repositoryFromURI(uri), Events: events}, nil
}

// Fingerprint is the id of the newest event, or EmptyFingerprint.
func (g *GitHubStrategy) Fingerprint(snapshot GitHubSnapshot) string {
	newest, ok := snapshot.newest()
	if !ok {
		return EmptyFingerprint
	}
	return "event:" + newest.ID
}

func (g *GitHubStrategy) Summarize(snapshot GitHubSnapshot) string {
	newest, ok := snapshot.newest()
	if !ok {
		return "no repository events"
	}
	actor := newest.Actor.Login
	if actor == "" {
		actor = "unknown"
	}
	return fmt.Sprintf("%s by %s at %s", newest.Type, actor, newest.CreatedAt.UTC().Format(time.RFC3339))
}

// newest picks the latest event by creation time; ties go to the higher id.
func (s GitHubSnapshot) newest() (GitHubEvent, bool) {
	if len(s.Events) == 0 {
		return GitHubEvent{}, false
	}
	best := s.Events[0]
	for _, e := range s.Events[1:] {
		if e.CreatedAt.After(best.CreatedAt) ||
			(e.CreatedAt.Equal(best.CreatedAt) && numericIDGreater(e.ID, best.ID)) {
			best = e
		}
	}
	return best, true
}

// numericIDGreater compares decimal id strings without parsing them.
func numericIDGreater(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

func repositoryFromURI(uri string) string {
	_, rest, ok := strings.Cut(uri, "/repos/")
	if !ok {
		return ""
	}
	repo, _, _ := strings.Cut(rest, "/events")
	return repo
}
