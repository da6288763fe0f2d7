package clients

import (
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-link-scrapper/pkg/httpclient"
)

// Options holds everything DefaultRegistry needs to build the known providers.
type Options struct {
	HTTP          HTTPClient
	Store         StateStore
	Log           Logger
	GitHub        GitHubOptions
	StackOverflow StackOverflowOptions
}

// DefaultHTTPClient returns the resty-backed client used by provider fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(15*time.Second, "") }

// DefaultRegistry wires up the known providers: GitHub and StackOverflow.
func DefaultRegistry(opts Options) (*Registry, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("state store must not be nil")
	}
	client := opts.HTTP
	if client == nil {
		client = DefaultHTTPClient()
	}

	return NewRegistry(
		Provider{Hosts: GitHubHosts, Client: NewGitHubClient(client, opts.GitHub, opts.Store, opts.Log)},
		Provider{Hosts: StackOverflowHosts, Client: NewStackOverflowClient(client, opts.StackOverflow, opts.Store, opts.Log)},
	)
}
