// Package crawl provides the single-site crawl engine. It walks a site
// breadth-first from its seed URLs, extracts each page, and persists pages
// whose content changed since the previous crawl.
package crawl

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/fwojciec/sitecrawl"
	"golang.org/x/sync/errgroup"
)

// Frontier sizing for the Bloom prefilter.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter sizing.
	frontierExpectedURLs = 10000
	// frontierFalsePositiveRate is the acceptable false positive rate for the prefilter.
	frontierFalsePositiveRate = 0.01
)

// DefaultFetchTimeout bounds a single fetch attempt.
const DefaultFetchTimeout = 30 * time.Second

// Crawler orchestrates the crawling of a single site.
type Crawler struct {
	Fetcher   sitecrawl.Fetcher
	Extractor sitecrawl.Extractor
	Pages     sitecrawl.PageService

	// Sites, if set, receives the site record at crawl start and end.
	Sites sitecrawl.SiteService

	// RateLimiter, if set, is waited on before every fetch.
	RateLimiter sitecrawl.DomainLimiter

	// Concurrency is the number of fetch workers. Values below 1 mean 1.
	Concurrency int

	// RetryDelays are the waits between fetch attempts. Nil means
	// DefaultRetryDelays; an empty slice disables retries.
	RetryDelays []time.Duration

	// FetchTimeout bounds each fetch attempt. Zero means DefaultFetchTimeout.
	FetchTimeout time.Duration

	// IgnoredExtensions are path suffixes never admitted to the frontier.
	// Nil means sitecrawl.DefaultIgnoredExtensions.
	IgnoredExtensions []string

	// Log, if set, receives retry notices.
	Log LogFunc

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// Result holds the outcome of a crawl.
type Result struct {
	// Visited counts URLs whose processing began.
	Visited int

	// Succeeded counts pages fetched and stored, whether written or unchanged.
	Succeeded int

	// Failed counts pages that could not be fetched, extracted or stored.
	Failed int

	Written   int
	Unchanged int
	Links     int
	Files     int
	Bytes     int
}

// Outcome is the terminal state of a single URL.
type Outcome int

const (
	// OutcomeWritten means the page and its derived records were written.
	OutcomeWritten Outcome = iota
	// OutcomeUnchanged means the stored page was current and only touched.
	OutcomeUnchanged
	// OutcomeFetchFailed means the fetch failed and the error was recorded.
	OutcomeFetchFailed
	// OutcomeExtractFailed means extraction failed; partial content was recorded.
	OutcomeExtractFailed
	// OutcomeStoreFailed means the page store rejected a read or write.
	OutcomeStoreFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeWritten:
		return "written"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeFetchFailed:
		return "fetch failed"
	case OutcomeExtractFailed:
		return "extract failed"
	case OutcomeStoreFailed:
		return "store failed"
	default:
		return "unknown"
	}
}

// ProgressEvent reports progress during a crawl.
type ProgressEvent struct {
	Type ProgressType

	// Visited is the number of URLs whose processing has begun.
	Visited int

	// Limit is the crawl's page limit.
	Limit int

	URL        string
	StatusCode int
	Outcome    Outcome
	Error      error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressUnchanged
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// pageResult holds the outcome of processing a single URL.
type pageResult struct {
	url        string
	statusCode int
	outcome    Outcome
	links      []string
	files      int
	bytes      int
	err        error
}

// Crawl walks site breadth-first, visiting at most limit distinct URLs.
// Per-page failures are recorded on the page and counted in the Result;
// an error is returned only for an invalid site or a canceled context, in
// which case the partial Result is returned alongside it.
func (c *Crawler) Crawl(ctx context.Context, site sitecrawl.Site, limit int, progress ProgressFunc) (*Result, error) {
	if limit <= 0 {
		return nil, sitecrawl.Errorf(sitecrawl.EINVALID, "page limit must be positive")
	}

	ignored := c.IgnoredExtensions
	if ignored == nil {
		ignored = sitecrawl.DefaultIgnoredExtensions
	}
	scope, err := NewScope(site.BaseURL(), ignored)
	if err != nil {
		return nil, err
	}

	c.recordSite(ctx, site, nil)

	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	for _, seed := range c.seeds(ctx, site) {
		if u, ok := scope.Admit(seed); ok {
			frontier.Push(u)
		}
	}

	notify := func(e ProgressEvent) {
		if progress != nil {
			e.Limit = limit
			progress(e)
		}
	}
	notify(ProgressEvent{Type: ProgressStarted})

	result := &Result{}
	visited := NewVisitedSet()
	handle := func(r pageResult) {
		c.tally(result, r)
		event := ProgressEvent{
			Visited:    visited.Len(),
			URL:        r.url,
			StatusCode: r.statusCode,
			Outcome:    r.outcome,
			Error:      r.err,
		}
		switch r.outcome {
		case OutcomeWritten:
			event.Type = ProgressCompleted
		case OutcomeUnchanged:
			event.Type = ProgressUnchanged
		default:
			event.Type = ProgressFailed
		}
		notify(event)

		for _, link := range r.links {
			c.enqueue(site, scope, frontier, link)
		}
	}

	err = c.walk(ctx, site, limit, frontier, visited, handle)
	result.Visited = visited.Len()

	c.recordSite(ctx, site, c.now)
	notify(ProgressEvent{Type: ProgressFinished, Visited: result.Visited})

	return result, err
}

// walk dispatches frontier URLs to a worker pool until the frontier is
// exhausted or limit URLs have been visited. Only the coordinator touches
// the frontier, so dispatch order is strict first-in first-out.
func (c *Crawler) walk(
	ctx context.Context,
	site sitecrawl.Site,
	limit int,
	frontier *Frontier,
	visited *VisitedSet,
	handle func(pageResult),
) error {
	concurrency := max(c.Concurrency, 1)

	workCh := make(chan string)
	resultCh := make(chan pageResult)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			for u := range workCh {
				r := c.processURL(gctx, site, u)
				select {
				case resultCh <- r:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	pending := 0
	next := ""

coordinatorLoop:
	for {
		if ctx.Err() != nil {
			break coordinatorLoop
		}

		if next == "" && visited.Len() < limit {
			next = c.nextURL(frontier, visited)
		}

		if next == "" && pending == 0 {
			break coordinatorLoop
		}

		// A nil channel disables the dispatch case.
		var dispatch chan string
		if next != "" {
			dispatch = workCh
		}

		select {
		case <-ctx.Done():
			break coordinatorLoop
		case dispatch <- next:
			pending++
			next = ""
		case r := <-resultCh:
			pending--
			handle(r)
		}
	}

	close(workCh)
	waitErr := g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}
	return nil
}

// nextURL pops URLs until one is claimed in the visited set.
func (c *Crawler) nextURL(frontier *Frontier, visited *VisitedSet) string {
	for {
		u, ok := frontier.Pop()
		if !ok {
			return ""
		}
		if visited.MarkVisited(u) {
			return u
		}
	}
}

// enqueue applies the site's link policy and the crawl scope to a
// discovered link and queues it.
func (c *Crawler) enqueue(site sitecrawl.Site, scope *Scope, frontier *Frontier, link string) {
	u, err := url.Parse(link)
	if err != nil {
		return
	}
	if !site.FollowLink(u) {
		return
	}
	if normalized, ok := scope.Admit(link); ok {
		frontier.Push(normalized)
	}
}

// seeds returns the site's seed URLs with the base URL first. A failed
// seed lookup keeps whatever seeds were returned with the error.
func (c *Crawler) seeds(ctx context.Context, site sitecrawl.Site) []string {
	more, err := site.SeedURLs(ctx)
	if err != nil && c.Log != nil {
		c.Log("seed discovery for %s failed: %v", site.ID(), err)
	}
	return append([]string{site.BaseURL()}, more...)
}

// processURL fetches, extracts and stores a single URL.
func (c *Crawler) processURL(ctx context.Context, site sitecrawl.Site, pageURL string) pageResult {
	result := pageResult{url: pageURL}
	now := c.now()

	fetched, err := c.fetch(ctx, pageURL)
	if fetched != nil {
		result.statusCode = fetched.StatusCode
	}
	if err != nil {
		result.outcome = OutcomeFetchFailed
		result.err = sitecrawl.WrapError(err, sitecrawl.EFETCH, "fetch %s", pageURL)
		if ctx.Err() != nil {
			// Interrupted, not a property of the page.
			return result
		}
		if storeErr := c.saveFailure(ctx, site, pageURL, fetched, result.err, now); storeErr != nil {
			result.outcome = OutcomeStoreFailed
			result.err = storeErr
		}
		return result
	}
	result.bytes = len(fetched.HTML)

	ext, extractErr := c.extract(site, fetched.HTML, pageURL)
	for _, l := range ext.Links {
		result.links = append(result.links, l.URL)
	}
	result.files = len(ext.Files)

	page := &sitecrawl.Page{
		SiteID:     site.ID(),
		URL:        pageURL,
		StatusCode: fetched.StatusCode,
		HTML:       fetched.HTML,
		Text:       ext.Text,
		Title:      ext.Title,
		Meta:       ext.Meta,
		Checksum:   ext.Checksum,
		LastSeenAt: now,
	}
	if page.Text == "" {
		page.Text = fetched.Text
	}
	if extractErr != nil {
		page.Error = sitecrawl.ErrorMessage(extractErr)
	}

	detector := &ChangeDetector{Pages: c.Pages}
	change, prev, err := detector.Detect(ctx, pageURL, page.Checksum)
	if err != nil {
		result.outcome = OutcomeStoreFailed
		result.err = sitecrawl.WrapError(err, sitecrawl.ESTORE, "look up %s", pageURL)
		return result
	}

	if extractErr == nil && !change.ShouldWrite() {
		if err := c.Pages.TouchPage(ctx, prev.ID, now); err != nil {
			result.outcome = OutcomeStoreFailed
			result.err = sitecrawl.WrapError(err, sitecrawl.ESTORE, "touch %s", pageURL)
			return result
		}
		result.outcome = OutcomeUnchanged
		return result
	}

	if err := c.write(ctx, page, ext); err != nil {
		result.outcome = OutcomeStoreFailed
		result.err = sitecrawl.WrapError(err, sitecrawl.ESTORE, "store %s", pageURL)
		return result
	}

	if extractErr != nil {
		result.outcome = OutcomeExtractFailed
		result.err = extractErr
		return result
	}
	result.outcome = OutcomeWritten
	return result
}

// fetch retrieves a URL with retries, bounding each attempt by FetchTimeout.
func (c *Crawler) fetch(ctx context.Context, pageURL string) (*sitecrawl.FetchResult, error) {
	if c.RateLimiter != nil {
		if u, err := url.Parse(pageURL); err == nil {
			if err := c.RateLimiter.Wait(ctx, u.Host); err != nil {
				return nil, err
			}
		}
	}

	timeout := c.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	fetchFn := func(ctx context.Context, url string) (*sitecrawl.FetchResult, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return c.Fetcher.Fetch(ctx, url)
	}
	return FetchWithRetryDelays(ctx, pageURL, fetchFn, c.Log, delays)
}

// extract runs the extractor and the site's cleanup. The returned
// extraction is never nil.
func (c *Crawler) extract(site sitecrawl.Site, html, pageURL string) (*sitecrawl.Extraction, error) {
	ext, err := c.Extractor.Extract(html, pageURL)
	if ext == nil {
		ext = &sitecrawl.Extraction{}
	}
	if err != nil {
		return ext, sitecrawl.WrapError(err, sitecrawl.EEXTRACT, "extract %s", pageURL)
	}
	if err := site.CleanContent(ext, html); err != nil {
		return ext, sitecrawl.WrapError(err, sitecrawl.EEXTRACT, "clean %s", pageURL)
	}
	return ext, nil
}

// write stores the page and replaces its derived records. The page is
// flagged processed only when everything was written without an
// extraction error.
func (c *Crawler) write(ctx context.Context, page *sitecrawl.Page, ext *sitecrawl.Extraction) error {
	page.Processed = false
	if err := c.Pages.SavePage(ctx, page); err != nil {
		return err
	}
	if err := c.Pages.ReplaceHeadings(ctx, page.ID, ext.Headings); err != nil {
		return err
	}
	if err := c.Pages.ReplaceLinks(ctx, page.ID, ext.Links); err != nil {
		return err
	}
	if err := c.Pages.ReplaceFiles(ctx, page.ID, ext.Files); err != nil {
		return err
	}
	if page.Failed() {
		return nil
	}
	if err := c.Pages.MarkPageProcessed(ctx, page.ID); err != nil {
		return err
	}
	page.Processed = true
	return nil
}

// saveFailure records a failed fetch on the page. Existing derived records
// are left in place until the next successful fetch replaces them.
func (c *Crawler) saveFailure(ctx context.Context, site sitecrawl.Site, pageURL string, fetched *sitecrawl.FetchResult, fetchErr error, now time.Time) error {
	page := &sitecrawl.Page{
		SiteID:     site.ID(),
		URL:        pageURL,
		Error:      sitecrawl.ErrorMessage(fetchErr),
		LastSeenAt: now,
	}
	if fetched != nil {
		page.StatusCode = fetched.StatusCode
		page.HTML = fetched.HTML
	}
	if err := c.Pages.SavePage(ctx, page); err != nil {
		return sitecrawl.WrapError(err, sitecrawl.ESTORE, "store failure for %s", pageURL)
	}
	return nil
}

// recordSite upserts the site record. A nil clock leaves the last crawl
// time unset. Store errors are logged and otherwise ignored.
func (c *Crawler) recordSite(ctx context.Context, site sitecrawl.Site, clock func() time.Time) {
	if c.Sites == nil {
		return
	}
	rec := &sitecrawl.SiteRecord{
		ID:      site.ID(),
		Name:    site.Name(),
		HomeURL: site.BaseURL(),
	}
	if clock != nil {
		t := clock()
		rec.LastCrawlAt = &t
	}
	// The crawl context may already be canceled when stamping the end.
	if err := c.Sites.UpsertSite(context.WithoutCancel(ctx), rec); err != nil && c.Log != nil {
		c.Log("record site %s: %v", site.ID(), err)
	}
}

func (c *Crawler) tally(result *Result, r pageResult) {
	switch r.outcome {
	case OutcomeWritten:
		result.Succeeded++
		result.Written++
	case OutcomeUnchanged:
		result.Succeeded++
		result.Unchanged++
	default:
		result.Failed++
	}
	result.Links += len(r.links)
	result.Files += r.files
	result.Bytes += r.bytes
}

func (c *Crawler) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
