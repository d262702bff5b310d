package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sitecrawl"
)

// Default link exclusions for MediaWiki sites, used when the config sets none.
var (
	MediaWikiExcludePathPrefixes = []string{"/Special:", "/File:", "/Talk:", "/User:", "/Template:"}
	MediaWikiExcludeQuery        = []string{"action=edit", "action=history", "oldid=", "printable=yes"}
)

// MediaWikiSite is a MediaWiki directory of articles. Edit-section links
// are stripped from headings and the body text is limited to the article
// content.
type MediaWikiSite struct {
	*GenericSite
}

// NewMediaWikiSite returns a MediaWikiSite for cfg.
func NewMediaWikiSite(cfg sitecrawl.SiteConfig, sitemaps sitecrawl.SitemapService) (*MediaWikiSite, error) {
	if len(cfg.ExcludePathPrefixes) == 0 {
		cfg.ExcludePathPrefixes = MediaWikiExcludePathPrefixes
	}
	if len(cfg.ExcludeQuery) == 0 {
		cfg.ExcludeQuery = MediaWikiExcludeQuery
	}
	generic, err := NewGenericSite(cfg, sitemaps)
	if err != nil {
		return nil, err
	}
	return &MediaWikiSite{GenericSite: generic}, nil
}

// CleanContent replaces the title with the article heading and the text
// with the article content. Headings are re-extracted without their edit
// links and the page categories are recorded.
func (s *MediaWikiSite) CleanContent(ext *sitecrawl.Extraction, rawHTML string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return sitecrawl.Errorf(sitecrawl.EEXTRACT, "failed to parse HTML: %v", err)
	}
	doc.Find(".mw-editsection").Remove()

	if title := VisibleText(doc.Find("h1#firstHeading").First()); title != "" {
		ext.Title = title
	}
	if content := doc.Find("#mw-content-text").First(); content.Length() > 0 {
		ext.Text = VisibleText(content)
	}
	ext.Meta.Categories = texts(doc.Find(".mw-normal-catlinks li a"))

	// Headings left empty once the edit links are gone are dropped.
	ext.Headings = extractHeadings(doc.Selection)
	return nil
}
