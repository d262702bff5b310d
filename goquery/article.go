package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sitecrawl"
)

// ArticleSite is a publisher site whose pages carry one article each.
// Category listings without an article keep the generic extraction.
type ArticleSite struct {
	*GenericSite
}

// NewArticleSite returns an ArticleSite for cfg.
func NewArticleSite(cfg sitecrawl.SiteConfig, sitemaps sitecrawl.SitemapService) (*ArticleSite, error) {
	generic, err := NewGenericSite(cfg, sitemaps)
	if err != nil {
		return nil, err
	}
	return &ArticleSite{GenericSite: generic}, nil
}

// CleanContent limits the text to the article body and records its
// publication date, authors and topics.
func (s *ArticleSite) CleanContent(ext *sitecrawl.Extraction, rawHTML string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return sitecrawl.Errorf(sitecrawl.EEXTRACT, "failed to parse HTML: %v", err)
	}

	article := doc.Find("article").First()
	if article.Length() == 0 {
		return nil
	}

	if title := VisibleText(doc.Find("h1").First()); title != "" {
		ext.Title = title
	}
	ext.Meta.PublishedAt = strings.TrimSpace(doc.Find("time[datetime]").First().AttrOr("datetime", ""))
	ext.Meta.Authors = texts(doc.Find(".author-name"))
	ext.Meta.Categories = texts(doc.Find(".article-taxonomies__link"))

	// Metadata may sit in the article footer, so strip chrome last.
	article.Find("nav, footer, aside, form").Remove()
	ext.Text = VisibleText(article)
	return nil
}
