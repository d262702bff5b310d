package sitecrawl

// Extraction holds the structured content recovered from a page.
type Extraction struct {
	Title string

	// Headings are in document order with Parent and Children linked.
	Headings []*Heading

	// Text is the visible body text with scripts and styles removed.
	Text string

	Links []*Link
	Files []*File
	Meta  PageMeta

	// Checksum is computed over the full raw HTML.
	Checksum string
}

// Roots returns the top-level headings.
func (e *Extraction) Roots() []*Heading {
	var roots []*Heading
	for _, h := range e.Headings {
		if h.Parent == nil {
			roots = append(roots, h)
		}
	}
	return roots
}

// Extractor turns page markup into structured content.
type Extractor interface {
	// Extract parses html fetched from pageURL. Relative references are
	// resolved against pageURL. On failure the returned Extraction is
	// non-nil and holds whatever could be recovered.
	Extract(html, pageURL string) (*Extraction, error)
}
