package sitecrawl

import (
	"path"
	"strings"
)

// Link represents an outbound hyperlink found on a page.
type Link struct {
	ID       string `json:"id"`
	PageID   string `json:"pageId"`
	URL      string `json:"url"`
	Href     string `json:"href"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// File represents a hyperlink to a downloadable document.
type File struct {
	ID       string `json:"id"`
	PageID   string `json:"pageId"`
	URL      string `json:"url"`
	Href     string `json:"href"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// DefaultFileExtensions lists the path suffixes classified as files.
var DefaultFileExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".odt", ".ods", ".odp", ".rtf", ".csv",
}

// DefaultIgnoredExtensions lists the path suffixes never admitted to the
// frontier. Document suffixes are included so files are recorded but not
// crawled.
var DefaultIgnoredExtensions = append([]string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico", ".bmp",
	".css", ".js", ".json", ".xml",
	".zip", ".gz", ".tar", ".rar", ".7z",
	".mp3", ".mp4", ".avi", ".mov", ".wav", ".webm",
	".woff", ".woff2", ".ttf", ".eot", ".exe", ".dmg",
}, DefaultFileExtensions...)

// ExtensionSet is a set of lowercase path suffixes including the dot.
type ExtensionSet map[string]struct{}

// NewExtensionSet builds a set from suffixes, normalizing case and a
// missing leading dot.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

// MatchPath reports whether the extension of the URL path p is in the set.
func (s ExtensionSet) MatchPath(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	_, ok := s[ext]
	return ok
}
