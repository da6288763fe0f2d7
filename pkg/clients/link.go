package clients

import (
	"net/url"
	"strings"
)

// NormalizeLink turns a subscriber-supplied URL into the canonical tracked
// form: https scheme, lowercase, no "www." prefix, no default port, no query,
// fragment, trailing slash or ".git" suffix.
func NormalizeLink(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", invalidLink(raw, "empty link")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", invalidLink(raw, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", invalidLink(raw, "scheme must be http or https")
	}
	if u.Hostname() == "" {
		return "", invalidLink(raw, "missing host")
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && port != "443" && port != "80" {
		host += ":" + port
	}

	u.Scheme = "https"
	u.Host = host
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(strings.TrimSuffix(strings.TrimRight(u.Path, "/"), ".git"), "/")
	u.RawPath = ""
	return u.String(), nil
}

// pathSegments parses link and returns its lowercase host and non-empty path segments.
func pathSegments(link string) (string, []string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", nil, invalidLink(link, err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, invalidLink(link, "scheme must be http or https")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return "", nil, invalidLink(link, "missing host")
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return host, segments, nil
}
