package sitecrawl

import (
	"context"
	"net/url"
	"time"
)

// Site is the crawl strategy for one website. It supplies the seed URLs,
// site-specific content cleanup and an extra link policy on top of the
// engine's scope rules.
type Site interface {
	// ID returns the short identifier used on the command line.
	ID() string

	// Name returns a human readable name.
	Name() string

	// BaseURL returns the site's home URL. Its host defines crawl scope.
	BaseURL() string

	// SeedURLs returns the URLs the crawl starts from in addition to the
	// base URL. On error the returned URLs, if any, are still usable.
	SeedURLs(ctx context.Context) ([]string, error)

	// CleanContent applies site-specific cleanup to an extraction of html.
	CleanContent(ext *Extraction, html string) error

	// FollowLink reports whether a discovered link should be crawled.
	// The URL still carries its query string.
	FollowLink(u *url.URL) bool
}

// SiteRegistry holds the configured site strategies.
type SiteRegistry interface {
	// Get returns the site with the given ID, or nil if none is registered.
	Get(id string) Site

	// List returns all registered sites ordered by ID.
	List() []Site
}

// SiteKind selects the strategy used for a site.
type SiteKind string

const (
	// SiteKindGeneric crawls any site without content cleanup.
	SiteKindGeneric SiteKind = "generic"

	// SiteKindMediaWiki crawls a MediaWiki directory of articles.
	SiteKindMediaWiki SiteKind = "mediawiki"

	// SiteKindArticle crawls a publisher site from its category listings.
	SiteKindArticle SiteKind = "article"
)

// Renderer selects the fetcher used for a site.
type Renderer string

const (
	RendererBrowser Renderer = "browser"
	RendererHTTP    Renderer = "http"

	// RendererAuto probes the base URL with both fetchers and keeps the
	// static one unless rendering adds significant content.
	RendererAuto Renderer = "auto"
)

// SiteConfig describes a site to crawl.
type SiteConfig struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	BaseURL  string   `yaml:"baseUrl"`
	Kind     SiteKind `yaml:"kind"`
	Renderer Renderer `yaml:"renderer"`

	// SeedPaths are resolved against BaseURL and crawled after it.
	SeedPaths []string `yaml:"seedPaths"`

	// Sitemap adds the site's sitemap URLs to the seeds.
	Sitemap bool `yaml:"sitemap"`

	// ExcludePathPrefixes rejects links whose path starts with any prefix.
	ExcludePathPrefixes []string `yaml:"excludePathPrefixes"`

	// ExcludeQuery rejects links whose raw query contains any substring.
	ExcludeQuery []string `yaml:"excludeQuery"`

	// Include and Exclude are URL regular expressions.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// FileExtensions and IgnoredExtensions override the defaults when set.
	FileExtensions    []string `yaml:"fileExtensions"`
	IgnoredExtensions []string `yaml:"ignoredExtensions"`
}

// Validate returns an error if the site config contains invalid fields.
func (c *SiteConfig) Validate() error {
	if c.ID == "" {
		return Errorf(EINVALID, "site ID required")
	}
	if c.BaseURL == "" {
		return Errorf(EINVALID, "site %q base URL required", c.ID)
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Errorf(EINVALID, "site %q base URL must be an absolute http(s) URL", c.ID)
	}
	switch c.Kind {
	case "", SiteKindGeneric, SiteKindMediaWiki, SiteKindArticle:
	default:
		return Errorf(EINVALID, "site %q has unknown kind %q", c.ID, c.Kind)
	}
	switch c.Renderer {
	case "", RendererBrowser, RendererHTTP, RendererAuto:
	default:
		return Errorf(EINVALID, "site %q has unknown renderer %q", c.ID, c.Renderer)
	}
	return nil
}

// FileExtensionSet returns the configured file extensions or the defaults.
func (c *SiteConfig) FileExtensionSet() ExtensionSet {
	if len(c.FileExtensions) > 0 {
		return NewExtensionSet(c.FileExtensions...)
	}
	return NewExtensionSet(DefaultFileExtensions...)
}

// IgnoredExtensionList returns the configured ignored extensions or the defaults.
func (c *SiteConfig) IgnoredExtensionList() []string {
	if len(c.IgnoredExtensions) > 0 {
		return c.IgnoredExtensions
	}
	return DefaultIgnoredExtensions
}

// SiteRecord is the stored bookkeeping for a crawled site.
type SiteRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	HomeURL     string     `json:"homeUrl"`
	LastCrawlAt *time.Time `json:"lastCrawlAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SiteService represents a service for managing site records.
type SiteService interface {
	// UpsertSite creates the record or updates name, home URL and, when
	// set, the last crawl time.
	UpsertSite(ctx context.Context, site *SiteRecord) error

	// FindSiteByID retrieves a site record by ID.
	// Returns ENOTFOUND if the site does not exist.
	FindSiteByID(ctx context.Context, id string) (*SiteRecord, error)

	// FindSites retrieves all site records ordered by ID.
	FindSites(ctx context.Context) ([]*SiteRecord, error)
}
