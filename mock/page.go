package mock

import (
	"context"
	"time"

	"github.com/fwojciec/sitecrawl"
)

var _ sitecrawl.PageService = (*PageService)(nil)

// PageService is a mock implementation of sitecrawl.PageService.
type PageService struct {
	FindPageByURLFn     func(ctx context.Context, url string) (*sitecrawl.Page, error)
	FindPagesFn         func(ctx context.Context, filter sitecrawl.PageFilter) ([]*sitecrawl.Page, error)
	SavePageFn          func(ctx context.Context, page *sitecrawl.Page) error
	TouchPageFn         func(ctx context.Context, id string, seenAt time.Time) error
	MarkPageProcessedFn func(ctx context.Context, id string) error
	ReplaceHeadingsFn   func(ctx context.Context, pageID string, headings []*sitecrawl.Heading) error
	ReplaceLinksFn      func(ctx context.Context, pageID string, links []*sitecrawl.Link) error
	ReplaceFilesFn      func(ctx context.Context, pageID string, files []*sitecrawl.File) error
	FindHeadingsFn      func(ctx context.Context, pageID string) ([]*sitecrawl.Heading, error)
	FindLinksFn         func(ctx context.Context, pageID string) ([]*sitecrawl.Link, error)
	FindFilesFn         func(ctx context.Context, pageID string) ([]*sitecrawl.File, error)
}

func (s *PageService) FindPageByURL(ctx context.Context, url string) (*sitecrawl.Page, error) {
	return s.FindPageByURLFn(ctx, url)
}

func (s *PageService) FindPages(ctx context.Context, filter sitecrawl.PageFilter) ([]*sitecrawl.Page, error) {
	return s.FindPagesFn(ctx, filter)
}

func (s *PageService) SavePage(ctx context.Context, page *sitecrawl.Page) error {
	return s.SavePageFn(ctx, page)
}

func (s *PageService) TouchPage(ctx context.Context, id string, seenAt time.Time) error {
	return s.TouchPageFn(ctx, id, seenAt)
}

func (s *PageService) MarkPageProcessed(ctx context.Context, id string) error {
	return s.MarkPageProcessedFn(ctx, id)
}

func (s *PageService) ReplaceHeadings(ctx context.Context, pageID string, headings []*sitecrawl.Heading) error {
	return s.ReplaceHeadingsFn(ctx, pageID, headings)
}

func (s *PageService) ReplaceLinks(ctx context.Context, pageID string, links []*sitecrawl.Link) error {
	return s.ReplaceLinksFn(ctx, pageID, links)
}

func (s *PageService) ReplaceFiles(ctx context.Context, pageID string, files []*sitecrawl.File) error {
	return s.ReplaceFilesFn(ctx, pageID, files)
}

func (s *PageService) FindHeadings(ctx context.Context, pageID string) ([]*sitecrawl.Heading, error) {
	return s.FindHeadingsFn(ctx, pageID)
}

func (s *PageService) FindLinks(ctx context.Context, pageID string) ([]*sitecrawl.Link, error) {
	return s.FindLinksFn(ctx, pageID)
}

func (s *PageService) FindFiles(ctx context.Context, pageID string) ([]*sitecrawl.File, error) {
	return s.FindFilesFn(ctx, pageID)
}
