package rod

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Fetcher implements sitecrawl.Fetcher at compile time.
var _ sitecrawl.Fetcher = (*Fetcher)(nil)

// statusWait bounds how long Fetch waits for the document response event
// after the page has loaded.
const statusWait = time.Second

// innerTextJS reads the rendered visible text of the page.
const innerTextJS = `() => document.body ? document.body.innerText : ""`

// Fetcher retrieves rendered pages using Chrome browser automation.
// Fetcher is safe for concurrent use by multiple goroutines.
type Fetcher struct {
	manager *BrowserManager
	opts    options
	closed  atomic.Bool
}

// NewFetcher launches Chrome and returns a Fetcher. Close must be called
// when the Fetcher is no longer needed.
//
// Returns an error if Chrome/Chromium cannot be found or launched.
func NewFetcher(opts ...Option) (*Fetcher, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	manager, err := newBrowserManager(o)
	if err != nil {
		return nil, sitecrawl.WrapError(err, sitecrawl.EINTERNAL, "start browser")
	}
	return &Fetcher{manager: manager, opts: o}, nil
}

// Fetch navigates to url and returns the rendered DOM, the response status
// and the visible text. A non-2xx status returns the result together with
// an EFETCH error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*sitecrawl.FetchResult, error) {
	if f.closed.Load() {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "fetcher is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.fetchTimeout)
	defer cancel()

	page, err := f.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, sitecrawl.WrapError(err, sitecrawl.EFETCH, "open page")
	}
	defer func() {
		_ = page.Close()
		f.manager.IncrementPageCount()
	}()

	page = page.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.opts.userAgent}); err != nil {
		return nil, sitecrawl.WrapError(err, sitecrawl.EFETCH, "set user agent")
	}

	status := newStatusRecorder()
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return false
		}
		status.set(e.Response.Status)
		return true
	})
	go wait()

	if err := page.Navigate(url); err != nil {
		return nil, sitecrawl.WrapError(err, sitecrawl.EFETCH, "navigate %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, sitecrawl.WrapError(err, sitecrawl.EFETCH, "load %s", url)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, sitecrawl.WrapError(err, sitecrawl.EFETCH, "read %s", url)
	}

	result := &sitecrawl.FetchResult{
		URL:        url,
		StatusCode: status.get(statusWait),
		HTML:       html,
	}

	if obj, err := page.Eval(innerTextJS); err == nil {
		result.Text = obj.Value.Str()
	}

	if result.StatusCode != 0 && (result.StatusCode < 200 || result.StatusCode > 299) {
		return result, sitecrawl.Errorf(sitecrawl.EFETCH, "HTTP %d", result.StatusCode)
	}
	return result, nil
}

// Close releases browser resources. Close is safe to call multiple times.
func (f *Fetcher) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.manager.Close()
}

// LauncherPID returns the process ID of the browser launcher.
func (f *Fetcher) LauncherPID() int {
	return f.manager.LauncherPID()
}

// statusRecorder holds the first document response status seen on a page.
type statusRecorder struct {
	once sync.Once
	code int
	done chan struct{}
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{done: make(chan struct{})}
}

func (r *statusRecorder) set(code int) {
	r.once.Do(func() {
		r.code = code
		close(r.done)
	})
}

// get returns the recorded status, waiting up to d for it. Zero means no
// document response was observed.
func (r *statusRecorder) get(d time.Duration) int {
	select {
	case <-r.done:
		return r.code
	case <-time.After(d):
		return 0
	}
}
