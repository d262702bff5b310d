// Package http provides static page fetching and sitemap discovery over
// plain HTTP, for sites that do not require JavaScript rendering.
package http

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/fwojciec/sitecrawl"
	"golang.org/x/net/html/charset"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 30 * time.Second

// DefaultUserAgent identifies the crawler to the sites it visits.
const DefaultUserAgent = "Mozilla/5.0 (compatible; sitecrawl/1.0; +https://github.com/fwojciec/sitecrawl)"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 20 << 20

// Ensure Fetcher implements sitecrawl.Fetcher at compile time.
var _ sitecrawl.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves page markup with HTTP GET requests. It does not
// execute JavaScript and leaves FetchResult.Text empty.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header. Empty keeps the default.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithClient replaces the HTTP client. The client's own timeout is kept.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// Fetch retrieves url. Redirects are followed and the result carries the
// final response status. A non-2xx status returns the result together
// with an EFETCH error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*sitecrawl.FetchResult, error) {
	req, err := newRequest(ctx, http.MethodGet, url, f.userAgent)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	// Setting Accept-Encoding disables the transport's transparent gzip, so
	// every advertised encoding is decoded in decodeBody.
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, sitecrawl.WrapError(err, sitecrawl.EFETCH, "GET %s", url)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return nil, sitecrawl.WrapError(err, sitecrawl.EFETCH, "read %s", url)
	}

	result := &sitecrawl.FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		HTML:       string(body),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, sitecrawl.Errorf(sitecrawl.EFETCH, "HTTP %d", resp.StatusCode)
	}
	return result, nil
}

// Close releases resources. It is a no-op for the HTTP fetcher.
func (f *Fetcher) Close() error {
	return nil
}

// decodeBody reads a response body, undoing its content encoding and
// converting it to UTF-8 from the charset declared in the Content-Type
// header or the document's meta tags. Undeclared bodies that are valid
// UTF-8 are kept as they are.
func decodeBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(r)
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	body, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	enc, name, certain := charset.DetermineEncoding(body, resp.Header.Get("Content-Type"))
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return body, nil
	}
	return enc.NewDecoder().Bytes(body)
}

func newRequest(ctx context.Context, method, url, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "invalid URL %q: %v", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}
