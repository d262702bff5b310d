package crawl

import (
	"net"
	"net/url"
	"strings"

	"github.com/fwojciec/sitecrawl"
)

// Normalize returns the canonical form of an absolute http(s) URL used for
// deduplication. Scheme and host are lowercased, default ports dropped, and
// both fragment and query string removed. An empty path becomes "/".
func Normalize(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", sitecrawl.Errorf(sitecrawl.EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return "", sitecrawl.Errorf(sitecrawl.EINVALID, "URL %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHost(u.Scheme, u.Host)
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = ""
	u.ForceQuery = false
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String(), nil
}

// InScope reports whether rawURL may be crawled for a site rooted at
// baseURL: it must use http or https, share the base host, and not end in
// an ignored extension. Unparseable URLs are out of scope.
func InScope(rawURL, baseURL string, ignored []string) bool {
	scope, err := NewScope(baseURL, ignored)
	if err != nil {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return scope.contains(u)
}

// Scope is the crawl boundary of a single site.
type Scope struct {
	host    string
	ignored sitecrawl.ExtensionSet
}

// NewScope returns the scope of the site rooted at baseURL.
func NewScope(baseURL string, ignored []string) (*Scope, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "invalid base URL %q", baseURL)
	}
	return &Scope{
		host:    canonicalHost(strings.ToLower(u.Scheme), u.Host),
		ignored: sitecrawl.NewExtensionSet(ignored...),
	}, nil
}

// Admit normalizes rawURL and reports whether it lies within the scope.
func (s *Scope) Admit(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || !s.contains(u) {
		return "", false
	}
	normalized, err := Normalize(rawURL)
	if err != nil {
		return "", false
	}
	return normalized, true
}

func (s *Scope) contains(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	if canonicalHost(scheme, u.Host) != s.host {
		return false
	}
	return !s.ignored.MatchPath(u.Path)
}

// canonicalHost lowercases host and strips the scheme's default port.
// Ports are otherwise kept so distinct services on one host stay distinct.
func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}
