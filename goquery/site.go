package goquery

import (
	"context"
	"net/url"
	"strings"

	"github.com/fwojciec/sitecrawl"
)

var _ sitecrawl.Site = (*GenericSite)(nil)

// GenericSite is a site crawled without content cleanup. Link policy comes
// from the config's path prefixes, query substrings and URL patterns.
type GenericSite struct {
	cfg      sitecrawl.SiteConfig
	filter   *sitecrawl.URLFilter
	sitemaps sitecrawl.SitemapService
}

// NewGenericSite returns a GenericSite for cfg. The sitemap service is only
// used when cfg.Sitemap is set and may be nil otherwise.
func NewGenericSite(cfg sitecrawl.SiteConfig, sitemaps sitecrawl.SitemapService) (*GenericSite, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := sitecrawl.NewURLFilter(cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	return &GenericSite{cfg: cfg, filter: filter, sitemaps: sitemaps}, nil
}

func (s *GenericSite) ID() string { return s.cfg.ID }

func (s *GenericSite) Name() string {
	if s.cfg.Name == "" {
		return s.cfg.ID
	}
	return s.cfg.Name
}

func (s *GenericSite) BaseURL() string { return s.cfg.BaseURL }

// Config returns the site's configuration.
func (s *GenericSite) Config() sitecrawl.SiteConfig { return s.cfg }

// SeedURLs resolves the configured seed paths against the base URL and,
// when enabled, appends the sitemap URLs the link policy accepts. A
// sitemap failure returns the seed paths alongside the error.
func (s *GenericSite) SeedURLs(ctx context.Context) ([]string, error) {
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "invalid base URL: %v", err)
	}

	var seeds []string
	for _, p := range s.cfg.SeedPaths {
		if u := resolveURL(base, p); u != nil {
			seeds = append(seeds, u.String())
		}
	}

	if !s.cfg.Sitemap || s.sitemaps == nil {
		return seeds, nil
	}

	urls, err := s.sitemaps.DiscoverURLs(ctx, s.cfg.BaseURL, s.filter)
	if err != nil {
		return seeds, err
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || !s.FollowLink(u) {
			continue
		}
		seeds = append(seeds, raw)
	}
	return seeds, nil
}

// CleanContent leaves the extraction as is.
func (s *GenericSite) CleanContent(_ *sitecrawl.Extraction, _ string) error {
	return nil
}

// FollowLink rejects links matching an excluded path prefix or query
// substring, then applies the include and exclude patterns.
func (s *GenericSite) FollowLink(u *url.URL) bool {
	for _, prefix := range s.cfg.ExcludePathPrefixes {
		if strings.HasPrefix(u.Path, prefix) {
			return false
		}
	}
	for _, q := range s.cfg.ExcludeQuery {
		if strings.Contains(u.RawQuery, q) {
			return false
		}
	}
	return s.filter.Match(u.String())
}

// NewSite returns the strategy selected by cfg.Kind.
func NewSite(cfg sitecrawl.SiteConfig, sitemaps sitecrawl.SitemapService) (sitecrawl.Site, error) {
	switch cfg.Kind {
	case sitecrawl.SiteKindMediaWiki:
		return NewMediaWikiSite(cfg, sitemaps)
	case sitecrawl.SiteKindArticle:
		return NewArticleSite(cfg, sitemaps)
	default:
		return NewGenericSite(cfg, sitemaps)
	}
}
