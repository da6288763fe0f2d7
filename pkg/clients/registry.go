package clients

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/samvad-hq/samvad-link-scrapper/internal/domain"
)

// Provider binds a Poller to the hosts it owns.
type Provider struct {
	Hosts  []string
	Client Poller
}

// Registry dispatches links to the Poller owning their host. Providers are
// checked in registration order; host sets must be disjoint.
type Registry struct {
	providers []Provider
}

// NewRegistry validates that no host is claimed twice.
func NewRegistry(providers ...Provider) (*Registry, error) {
	seen := make(map[string]string)
	reg := &Registry{providers: make([]Provider, 0, len(providers))}

	for _, p := range providers {
		if p.Client == nil {
			return nil, fmt.Errorf("provider with hosts %v has no client", p.Hosts)
		}
		if len(p.Hosts) == 0 {
			return nil, fmt.Errorf("provider %q has no hosts", p.Client.Provider())
		}
		hosts := make([]string, 0, len(p.Hosts))
		for _, h := range p.Hosts {
			h = strings.ToLower(strings.TrimSpace(h))
			if h == "" {
				continue
			}
			if owner, dup := seen[h]; dup {
				return nil, fmt.Errorf("host %q claimed by both %q and %q", h, owner, p.Client.Provider())
			}
			seen[h] = p.Client.Provider()
			hosts = append(hosts, h)
		}
		reg.providers = append(reg.providers, Provider{Hosts: hosts, Client: p.Client})
	}
	return reg, nil
}

// Resolve returns the Poller for link, or ErrUnsupportedProvider.
func (r *Registry) Resolve(link string) (Poller, error) {
	if r == nil {
		return nil, fmt.Errorf("provider registry is nil")
	}

	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q has no recognizable host", ErrUnsupportedProvider, link)
	}
	host := strings.ToLower(u.Hostname())

	for _, p := range r.providers {
		for _, h := range p.Hosts {
			if host == h {
				return p.Client, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no provider registered for host %q", ErrUnsupportedProvider, host)
}

// Poll is the single entry point a scheduler calls per link per cycle.
func (r *Registry) Poll(ctx context.Context, link string) (domain.ChangeEvent, error) {
	if normalized, err := NormalizeLink(link); err == nil {
		link = normalized
	}
	client, err := r.Resolve(link)
	if err != nil {
		return domain.ChangeEvent{}, err
	}
	return client.Poll(ctx, link)
}

// Providers lists registered provider names in resolution order.
func (r *Registry) Providers() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Client.Provider())
	}
	return out
}
