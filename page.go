package sitecrawl

import (
	"context"
	"time"
)

// Page represents a crawled URL and its extracted content.
// A page is identified by its normalized URL.
type Page struct {
	ID         string   `json:"id"`
	SiteID     string   `json:"siteId"`
	URL        string   `json:"url"`
	StatusCode int      `json:"statusCode"`
	HTML       string   `json:"html"`
	Text       string   `json:"text"`
	Title      string   `json:"title"`
	Meta       PageMeta `json:"meta"`

	// Checksum is computed over the full raw HTML. Empty for pages whose
	// fetch failed.
	Checksum string `json:"checksum"`

	// Error describes why the page could not be fetched or extracted.
	// Empty when the page was processed cleanly.
	Error string `json:"error"`

	// Processed is true once the page and all of its headings, links and
	// files have been written for the current checksum.
	Processed bool `json:"processed"`

	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// PageMeta holds site-specific metadata recovered from a page.
type PageMeta struct {
	Categories  []string `json:"categories,omitempty"`
	Authors     []string `json:"authors,omitempty"`
	PublishedAt string   `json:"publishedAt,omitempty"`
}

// Failed reports whether the page carries an error.
func (p *Page) Failed() bool {
	return p.Error != ""
}

// Validate returns an error if the page contains invalid fields.
func (p *Page) Validate() error {
	if p.SiteID == "" {
		return Errorf(EINVALID, "page site ID required")
	}
	if p.URL == "" {
		return Errorf(EINVALID, "page URL required")
	}
	return nil
}

// PageService represents the persistence gateway for crawled pages.
// Replace methods delete all existing records of their kind for the page
// and insert the new set atomically.
type PageService interface {
	// FindPageByURL retrieves a page by its normalized URL.
	// Returns ENOTFOUND if the page does not exist.
	FindPageByURL(ctx context.Context, url string) (*Page, error)

	// FindPages retrieves pages matching the filter.
	FindPages(ctx context.Context, filter PageFilter) ([]*Page, error)

	// SavePage inserts the page or updates the existing page with the same
	// URL. On return page.ID and page.CreatedAt reflect the stored row.
	SavePage(ctx context.Context, page *Page) error

	// TouchPage advances the last seen timestamp of a page.
	// Returns ENOTFOUND if the page does not exist.
	TouchPage(ctx context.Context, id string, seenAt time.Time) error

	// MarkPageProcessed flags the page's derived records as complete.
	// Returns ENOTFOUND if the page does not exist.
	MarkPageProcessed(ctx context.Context, id string) error

	// ReplaceHeadings replaces all headings of a page. Headings are given
	// in document order with Parent links set.
	ReplaceHeadings(ctx context.Context, pageID string, headings []*Heading) error

	// ReplaceLinks replaces all links of a page.
	ReplaceLinks(ctx context.Context, pageID string, links []*Link) error

	// ReplaceFiles replaces all file references of a page.
	ReplaceFiles(ctx context.Context, pageID string, files []*File) error

	// FindHeadings returns a page's headings in document order.
	FindHeadings(ctx context.Context, pageID string) ([]*Heading, error)

	// FindLinks returns a page's links in document order.
	FindLinks(ctx context.Context, pageID string) ([]*Link, error)

	// FindFiles returns a page's file references in document order.
	FindFiles(ctx context.Context, pageID string) ([]*File, error)
}

// PageFilter represents a filter for FindPages.
type PageFilter struct {
	SiteID *string `json:"siteId"`

	// Failed restricts results to pages carrying an error when true and to
	// clean pages when false.
	Failed *bool `json:"failed"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
