package goquery

import (
	"sort"

	"github.com/fwojciec/sitecrawl"
)

var _ sitecrawl.SiteRegistry = (*Registry)(nil)

// Registry holds site strategies keyed by site ID.
type Registry struct {
	sites map[string]sitecrawl.Site
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sites: make(map[string]sitecrawl.Site)}
}

// NewRegistryFromConfigs builds a strategy for every config. Duplicate IDs
// return ECONFLICT.
func NewRegistryFromConfigs(cfgs []sitecrawl.SiteConfig, sitemaps sitecrawl.SitemapService) (*Registry, error) {
	r := NewRegistry()
	for _, cfg := range cfgs {
		if r.Get(cfg.ID) != nil {
			return nil, sitecrawl.Errorf(sitecrawl.ECONFLICT, "duplicate site ID %q", cfg.ID)
		}
		site, err := NewSite(cfg, sitemaps)
		if err != nil {
			return nil, err
		}
		r.Register(site)
	}
	return r, nil
}

// Get returns the site with the given ID.
// Returns nil if no site is registered under the ID.
func (r *Registry) Get(id string) sitecrawl.Site {
	return r.sites[id]
}

// Register adds a site. A site already registered under the same ID is replaced.
func (r *Registry) Register(site sitecrawl.Site) {
	r.sites[site.ID()] = site
}

// List returns all registered sites ordered by ID.
func (r *Registry) List() []sitecrawl.Site {
	sites := make([]sitecrawl.Site, 0, len(r.sites))
	for _, s := range r.sites {
		sites = append(sites, s)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i].ID() < sites[j].ID() })
	return sites
}
