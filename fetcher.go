package sitecrawl

import "context"

// FetchResult holds a retrieved page.
type FetchResult struct {
	// URL is the address that was requested.
	URL string

	StatusCode int

	// HTML is the page markup. For browser fetchers it is the rendered DOM.
	HTML string

	// Text is the rendered visible text. Fetchers that do not render
	// leave it empty.
	Text string
}

// Fetcher retrieves pages.
// Implementations may use browser automation to handle JavaScript-rendered content.
type Fetcher interface {
	// Fetch retrieves the URL. A non-2xx response returns the result
	// together with an EFETCH error; network failures and timeouts return a
	// nil result. The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (*FetchResult, error)

	// Close releases fetcher resources.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}
