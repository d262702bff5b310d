package crawl

import (
	"context"

	"github.com/fwojciec/sitecrawl"
)

// ContentDiffers compares the text extracted from statically fetched HTML
// with the text extracted from browser-rendered HTML of the same page.
// Returns true if the rendered text is more than 50% longer, or if either
// extraction fails.
func ContentDiffers(staticHTML, renderedHTML, pageURL string, extractor sitecrawl.Extractor) bool {
	staticExt, err := extractor.Extract(staticHTML, pageURL)
	if err != nil {
		return true
	}
	renderedExt, err := extractor.Extract(renderedHTML, pageURL)
	if err != nil {
		return true
	}

	staticLen := len(staticExt.Text)
	renderedLen := len(renderedExt.Text)

	if staticLen == 0 && renderedLen > 0 {
		return true
	}
	return float64(renderedLen) > float64(staticLen)*1.5
}

// ProbeFetcher fetches probeURL with both fetchers and picks the static one
// unless rendering adds significant content. A failing static fetch selects
// the browser; a failing browser fetch selects the static fetcher.
func ProbeFetcher(ctx context.Context, probeURL string, static, browser sitecrawl.Fetcher, extractor sitecrawl.Extractor) sitecrawl.Fetcher {
	staticRes, err := static.Fetch(ctx, probeURL)
	if err != nil {
		return browser
	}
	renderedRes, err := browser.Fetch(ctx, probeURL)
	if err != nil {
		return static
	}
	if ContentDiffers(staticRes.HTML, renderedRes.HTML, probeURL, extractor) {
		return browser
	}
	return static
}
