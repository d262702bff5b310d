package mock

import (
	"context"
	"net/url"

	"github.com/fwojciec/sitecrawl"
)

var _ sitecrawl.Site = (*Site)(nil)

// Site is a mock implementation of sitecrawl.Site.
type Site struct {
	IDFn           func() string
	NameFn         func() string
	BaseURLFn      func() string
	SeedURLsFn     func(ctx context.Context) ([]string, error)
	CleanContentFn func(ext *sitecrawl.Extraction, html string) error
	FollowLinkFn   func(u *url.URL) bool
}

func (s *Site) ID() string {
	return s.IDFn()
}

func (s *Site) Name() string {
	return s.NameFn()
}

func (s *Site) BaseURL() string {
	return s.BaseURLFn()
}

func (s *Site) SeedURLs(ctx context.Context) ([]string, error) {
	return s.SeedURLsFn(ctx)
}

func (s *Site) CleanContent(ext *sitecrawl.Extraction, html string) error {
	return s.CleanContentFn(ext, html)
}

func (s *Site) FollowLink(u *url.URL) bool {
	return s.FollowLinkFn(u)
}

var _ sitecrawl.SiteRegistry = (*SiteRegistry)(nil)

// SiteRegistry is a mock implementation of sitecrawl.SiteRegistry.
type SiteRegistry struct {
	GetFn  func(id string) sitecrawl.Site
	ListFn func() []sitecrawl.Site
}

func (r *SiteRegistry) Get(id string) sitecrawl.Site {
	return r.GetFn(id)
}

func (r *SiteRegistry) List() []sitecrawl.Site {
	return r.ListFn()
}

var _ sitecrawl.SiteService = (*SiteService)(nil)

// SiteService is a mock implementation of sitecrawl.SiteService.
type SiteService struct {
	UpsertSiteFn   func(ctx context.Context, site *sitecrawl.SiteRecord) error
	FindSiteByIDFn func(ctx context.Context, id string) (*sitecrawl.SiteRecord, error)
	FindSitesFn    func(ctx context.Context) ([]*sitecrawl.SiteRecord, error)
}

func (s *SiteService) UpsertSite(ctx context.Context, site *sitecrawl.SiteRecord) error {
	return s.UpsertSiteFn(ctx, site)
}

func (s *SiteService) FindSiteByID(ctx context.Context, id string) (*sitecrawl.SiteRecord, error) {
	return s.FindSiteByIDFn(ctx, id)
}

func (s *SiteService) FindSites(ctx context.Context) ([]*sitecrawl.SiteRecord, error) {
	return s.FindSitesFn(ctx)
}
