// Package goquery implements HTML content extraction and the site
// strategies using the goquery library.
package goquery

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sitecrawl"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var _ sitecrawl.Extractor = (*Extractor)(nil)

// Extractor recovers the title, heading tree, body text and references
// from page markup.
type Extractor struct {
	// FileExtensions classifies references as files. Nil means
	// sitecrawl.DefaultFileExtensions.
	FileExtensions sitecrawl.ExtensionSet
}

// NewExtractor returns an Extractor classifying the given extensions as
// files, or the defaults when none are given.
func NewExtractor(fileExtensions ...string) *Extractor {
	if len(fileExtensions) == 0 {
		fileExtensions = sitecrawl.DefaultFileExtensions
	}
	return &Extractor{FileExtensions: sitecrawl.NewExtensionSet(fileExtensions...)}
}

// Extract parses rawHTML fetched from pageURL.
func (e *Extractor) Extract(rawHTML, pageURL string) (ext *sitecrawl.Extraction, err error) {
	ext = &sitecrawl.Extraction{Checksum: Checksum(rawHTML)}

	defer func() {
		if r := recover(); r != nil {
			err = sitecrawl.Errorf(sitecrawl.EEXTRACT, "extract %s: %v", pageURL, r)
		}
	}()

	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return ext, sitecrawl.Errorf(sitecrawl.EINVALID, "invalid page URL: %q", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ext, sitecrawl.Errorf(sitecrawl.EEXTRACT, "failed to parse HTML: %v", err)
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			base = base.ResolveReference(ref)
		}
	}

	ext.Title = collapse(doc.Find("title").First().Text())
	ext.Headings = extractHeadings(doc.Selection)
	ext.Text = VisibleText(doc.Find("body"))
	ext.Links, ext.Files = e.extractReferences(doc.Selection, base)

	return ext, nil
}

func (e *Extractor) fileExtensions() sitecrawl.ExtensionSet {
	if e.FileExtensions == nil {
		return sitecrawl.NewExtensionSet(sitecrawl.DefaultFileExtensions...)
	}
	return e.FileExtensions
}

// extractHeadings collects h1-h6 elements in document order and links
// them into a tree. Headings without visible text are skipped.
func extractHeadings(sel *goquery.Selection) []*sitecrawl.Heading {
	var headings []*sitecrawl.Heading
	sel.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := VisibleText(s)
		if text == "" {
			return
		}
		raw := outerHTML(s.Get(0))
		headings = append(headings, &sitecrawl.Heading{
			Level:    headingLevel(s.Get(0)),
			Text:     text,
			HTML:     raw,
			Checksum: Checksum(raw),
			Position: len(headings),
		})
	})
	sitecrawl.BuildHeadingTree(headings)
	return headings
}

// extractReferences splits the page's anchors into links and files.
func (e *Extractor) extractReferences(sel *goquery.Selection, base *url.URL) ([]*sitecrawl.Link, []*sitecrawl.File) {
	var links []*sitecrawl.Link
	var files []*sitecrawl.File
	fileExts := e.fileExtensions()

	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || isNonHTTPLink(href) {
			return
		}

		resolved := resolveURL(base, href)
		if resolved == nil {
			return
		}

		title := VisibleText(a)
		if title == "" {
			title = strings.TrimSpace(a.AttrOr("title", ""))
		}

		if fileExts.MatchPath(resolved.Path) {
			files = append(files, &sitecrawl.File{
				URL:      resolved.String(),
				Href:     href,
				Title:    title,
				Position: len(files),
			})
			return
		}
		links = append(links, &sitecrawl.Link{
			URL:      resolved.String(),
			Href:     href,
			Title:    title,
			Position: len(links),
		})
	})

	return links, files
}

// VisibleText returns the text of the selection with script, style and
// noscript content removed and whitespace collapsed to single spaces.
func VisibleText(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := collapse(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.CommentNode:
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// Checksum returns the hex xxhash digest of s.
func Checksum(s string) string {
	return fmt.Sprintf("%x", xxhash.Sum64String(s))
}

// resolveURL resolves href against base with the fragment stripped.
// Returns nil if href cannot be parsed or is not http(s).
func resolveURL(base *url.URL, href string) *url.URL {
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	return resolved
}

// isNonHTTPLink checks if a href is a non-HTTP link that should be skipped.
func isNonHTTPLink(href string) bool {
	href = strings.ToLower(strings.TrimSpace(href))
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}

func headingLevel(n *html.Node) int {
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	default:
		return 6
	}
}

func outerHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// texts returns the distinct non-empty texts of the selection in order.
func texts(sel *goquery.Selection) []string {
	var out []string
	seen := make(map[string]bool)
	sel.Each(func(_ int, s *goquery.Selection) {
		t := VisibleText(s)
		if t == "" || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	})
	return out
}
