package crawl_test

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/crawl"
	"github.com/fwojciec/sitecrawl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSite serves pages from a map of URL to outbound references. The HTML
// of a page is its URL plus a version marker so tests can change content.
type fakeSite struct {
	mu       sync.Mutex
	pages    map[string][]string
	version  map[string]string
	failures map[string]int // URL -> status code
	fetched  []string
}

func newFakeSite(pages map[string][]string) *fakeSite {
	return &fakeSite{
		pages:    pages,
		version:  make(map[string]string),
		failures: make(map[string]int),
	}
}

func (s *fakeSite) fetcher() *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, u string) (*sitecrawl.FetchResult, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.fetched = append(s.fetched, u)
			if code, ok := s.failures[u]; ok {
				return &sitecrawl.FetchResult{URL: u, StatusCode: code, HTML: "error page"},
					sitecrawl.Errorf(sitecrawl.EFETCH, "HTTP %d", code)
			}
			if _, ok := s.pages[u]; !ok {
				return &sitecrawl.FetchResult{URL: u, StatusCode: 404}, sitecrawl.Errorf(sitecrawl.EFETCH, "HTTP 404")
			}
			return &sitecrawl.FetchResult{URL: u, StatusCode: 200, HTML: "<html>" + u + s.version[u] + "</html>"}, nil
		},
	}
}

func (s *fakeSite) extractor() *mock.Extractor {
	return &mock.Extractor{
		ExtractFn: func(html, pageURL string) (*sitecrawl.Extraction, error) {
			s.mu.Lock()
			refs := s.pages[pageURL]
			s.mu.Unlock()

			ext := &sitecrawl.Extraction{
				Title:    pageURL,
				Text:     "text of " + pageURL,
				Checksum: html,
				Headings: []*sitecrawl.Heading{{Level: 1, Text: pageURL}},
			}
			for i, ref := range refs {
				if strings.HasSuffix(ref, ".pdf") {
					ext.Files = append(ext.Files, &sitecrawl.File{URL: ref, Position: i})
				} else {
					ext.Links = append(ext.Links, &sitecrawl.Link{URL: ref, Position: i})
				}
			}
			return ext, nil
		},
	}
}

func (s *fakeSite) fetchedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.fetched...)
}

// memPages is an in-memory page store.
type memPages struct {
	mu       sync.Mutex
	pages    map[string]*sitecrawl.Page
	headings map[string][]*sitecrawl.Heading
	links    map[string][]*sitecrawl.Link
	files    map[string][]*sitecrawl.File
	replaces int
	touches  int
	nextID   int
}

func newMemPages() *memPages {
	return &memPages{
		pages:    make(map[string]*sitecrawl.Page),
		headings: make(map[string][]*sitecrawl.Heading),
		links:    make(map[string][]*sitecrawl.Link),
		files:    make(map[string][]*sitecrawl.File),
	}
}

func (m *memPages) byID(id string) *sitecrawl.Page {
	for _, p := range m.pages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *memPages) service() *mock.PageService {
	return &mock.PageService{
		FindPageByURLFn: func(_ context.Context, u string) (*sitecrawl.Page, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			p, ok := m.pages[u]
			if !ok {
				return nil, sitecrawl.Errorf(sitecrawl.ENOTFOUND, "page %q not found", u)
			}
			cp := *p
			return &cp, nil
		},
		SavePageFn: func(_ context.Context, page *sitecrawl.Page) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if prev, ok := m.pages[page.URL]; ok {
				page.ID = prev.ID
			} else {
				m.nextID++
				page.ID = "page-" + string(rune('0'+m.nextID))
			}
			cp := *page
			m.pages[page.URL] = &cp
			return nil
		},
		TouchPageFn: func(_ context.Context, id string, seenAt time.Time) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.touches++
			p := m.byID(id)
			if p == nil {
				return sitecrawl.Errorf(sitecrawl.ENOTFOUND, "page %q not found", id)
			}
			p.LastSeenAt = seenAt
			return nil
		},
		MarkPageProcessedFn: func(_ context.Context, id string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			p := m.byID(id)
			if p == nil {
				return sitecrawl.Errorf(sitecrawl.ENOTFOUND, "page %q not found", id)
			}
			p.Processed = true
			return nil
		},
		ReplaceHeadingsFn: func(_ context.Context, pageID string, hs []*sitecrawl.Heading) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.replaces++
			m.headings[pageID] = hs
			return nil
		},
		ReplaceLinksFn: func(_ context.Context, pageID string, ls []*sitecrawl.Link) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.replaces++
			m.links[pageID] = ls
			return nil
		},
		ReplaceFilesFn: func(_ context.Context, pageID string, fs []*sitecrawl.File) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.replaces++
			m.files[pageID] = fs
			return nil
		},
	}
}

func (m *memPages) page(u string) *sitecrawl.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[u]
}

func (m *memPages) replaceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}

func testSite(base string) *mock.Site {
	return &mock.Site{
		IDFn:           func() string { return "test" },
		NameFn:         func() string { return "Test" },
		BaseURLFn:      func() string { return base },
		SeedURLsFn:     func(_ context.Context) ([]string, error) { return nil, nil },
		CleanContentFn: func(_ *sitecrawl.Extraction, _ string) error { return nil },
		FollowLinkFn:   func(_ *url.URL) bool { return true },
	}
}

func newCrawler(site *fakeSite, pages *memPages) *crawl.Crawler {
	return &crawl.Crawler{
		Fetcher:     site.fetcher(),
		Extractor:   site.extractor(),
		Pages:       pages.service(),
		Concurrency: 1,
		RetryDelays: []time.Duration{},
	}
}

func TestCrawler_Crawl(t *testing.T) {
	t.Parallel()

	t.Run("visits in-scope links and records files without crawling them", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  {"https://x.com/a", "https://x.com/b", "https://x.com/file.pdf"},
			"https://x.com/a": nil,
			"https://x.com/b": nil,
		})
		pages := newMemPages()
		c := newCrawler(site, pages)

		result, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://x.com/", "https://x.com/a", "https://x.com/b"}, site.fetchedURLs())
		assert.Equal(t, 3, result.Visited)
		assert.Equal(t, 3, result.Succeeded)
		assert.Equal(t, 3, result.Written)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, 1, result.Files)

		root := pages.page("https://x.com/")
		require.NotNil(t, root)
		assert.True(t, root.Processed)
		assert.Equal(t, "test", root.SiteID)
		require.Len(t, pages.files[root.ID], 1)
		assert.Equal(t, "https://x.com/file.pdf", pages.files[root.ID][0].URL)
		assert.Len(t, pages.links[root.ID], 2)
		assert.Nil(t, pages.page("https://x.com/file.pdf"))
	})

	t.Run("re-crawl of unchanged site only touches pages", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  {"https://x.com/a"},
			"https://x.com/a": nil,
		})
		pages := newMemPages()
		c := newCrawler(site, pages)

		first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		c.Now = func() time.Time { return first }
		_, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)
		require.NoError(t, err)
		replacesAfterFirst := pages.replaceCount()

		second := first.Add(24 * time.Hour)
		c.Now = func() time.Time { return second }
		result, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Unchanged)
		assert.Equal(t, 0, result.Written)
		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, replacesAfterFirst, pages.replaceCount(), "no derived records rewritten")
		assert.Equal(t, second, pages.page("https://x.com/a").LastSeenAt)
	})

	t.Run("changed page is rewritten on re-crawl", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  {"https://x.com/a"},
			"https://x.com/a": nil,
		})
		pages := newMemPages()
		c := newCrawler(site, pages)

		_, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)
		require.NoError(t, err)

		site.mu.Lock()
		site.version["https://x.com/a"] = "v2"
		site.mu.Unlock()

		result, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Written)
		assert.Equal(t, 1, result.Unchanged)
		assert.Contains(t, pages.page("https://x.com/a").HTML, "v2")
	})

	t.Run("fetch failure is recorded and its links are not followed", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  {"https://x.com/a"},
			"https://x.com/a": {"https://x.com/b"},
			"https://x.com/b": nil,
		})
		site.failures["https://x.com/a"] = 500
		pages := newMemPages()
		c := newCrawler(site, pages)

		var failed []crawl.ProgressEvent
		progress := func(e crawl.ProgressEvent) {
			if e.Type == crawl.ProgressFailed {
				failed = append(failed, e)
			}
		}

		result, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, progress)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://x.com/", "https://x.com/a"}, site.fetchedURLs())
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Succeeded)

		page := pages.page("https://x.com/a")
		require.NotNil(t, page)
		assert.Equal(t, 500, page.StatusCode)
		assert.Equal(t, "fetch https://x.com/a: HTTP 500", page.Error)
		assert.False(t, page.Processed)

		require.Len(t, failed, 1)
		assert.Equal(t, crawl.OutcomeFetchFailed, failed[0].Outcome)
		assert.Equal(t, sitecrawl.EFETCH, sitecrawl.ErrorCode(failed[0].Error))
	})

	t.Run("page limit is a hard cap", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  {"https://x.com/1", "https://x.com/2", "https://x.com/3"},
			"https://x.com/1": {"https://x.com/4"},
			"https://x.com/2": nil,
			"https://x.com/3": nil,
			"https://x.com/4": nil,
		})
		c := newCrawler(site, newMemPages())
		c.Concurrency = 3

		result, err := c.Crawl(context.Background(), testSite("https://x.com/"), 2, nil)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Visited)
		assert.Len(t, site.fetchedURLs(), 2)
	})

	t.Run("each URL is fetched once with concurrent workers", func(t *testing.T) {
		t.Parallel()

		pagesMap := map[string][]string{}
		all := []string{"https://x.com/"}
		for _, p := range []string{"a", "b", "c", "d", "e", "f"} {
			all = append(all, "https://x.com/"+p)
		}
		// Every page links to every page, with fragment and query variants.
		for _, u := range all {
			var refs []string
			for _, v := range all {
				refs = append(refs, v, v+"#section", v+"?utm=1")
			}
			pagesMap[u] = refs
		}
		site := newFakeSite(pagesMap)
		c := newCrawler(site, newMemPages())
		c.Concurrency = 4

		result, err := c.Crawl(context.Background(), testSite("https://x.com/"), 100, nil)

		require.NoError(t, err)
		assert.ElementsMatch(t, all, site.fetchedURLs())
		assert.Equal(t, len(all), result.Visited)
	})

	t.Run("visits pages in breadth-first order", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":   {"https://x.com/a", "https://x.com/b"},
			"https://x.com/a":  {"https://x.com/a1"},
			"https://x.com/b":  {"https://x.com/b1"},
			"https://x.com/a1": nil,
			"https://x.com/b1": nil,
		})
		c := newCrawler(site, newMemPages())

		_, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://x.com/", "https://x.com/a", "https://x.com/b", "https://x.com/a1", "https://x.com/b1",
		}, site.fetchedURLs())
	})

	t.Run("never leaves the site", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/": {
				"https://other.com/a",
				"https://sub.x.com/a",
				"mailto:someone@x.com",
				"https://x.com/logo.png",
				"https://x.com/a",
			},
			"https://x.com/a": nil,
		})
		c := newCrawler(site, newMemPages())

		_, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://x.com/", "https://x.com/a"}, site.fetchedURLs())
	})

	t.Run("site link filter sees the query string", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":        {"https://x.com/a?action=edit", "https://x.com/Special:Random", "https://x.com/b"},
			"https://x.com/a":       nil,
			"https://x.com/b":       nil,
			"https://x.com/Special": nil,
		})
		s := testSite("https://x.com/")
		s.FollowLinkFn = func(u *url.URL) bool {
			return !strings.Contains(u.RawQuery, "action=edit") && !strings.HasPrefix(u.Path, "/Special:")
		}
		c := newCrawler(site, newMemPages())

		_, err := c.Crawl(context.Background(), s, 10, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://x.com/", "https://x.com/b"}, site.fetchedURLs())
	})

	t.Run("seeds follow the base URL and are deduplicated", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  nil,
			"https://x.com/a": nil,
		})
		s := testSite("https://x.com")
		s.SeedURLsFn = func(_ context.Context) ([]string, error) {
			return []string{"https://x.com/a", "https://x.com/", "https://other.com/"}, nil
		}
		c := newCrawler(site, newMemPages())

		_, err := c.Crawl(context.Background(), s, 10, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"https://x.com/", "https://x.com/a"}, site.fetchedURLs())
	})

	t.Run("seed failure falls back to the base URL", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{"https://x.com/": nil})
		s := testSite("https://x.com/")
		s.SeedURLsFn = func(_ context.Context) ([]string, error) {
			return nil, sitecrawl.Errorf(sitecrawl.EFETCH, "sitemap unavailable")
		}
		var logged []string
		c := newCrawler(site, newMemPages())
		c.Log = func(format string, _ ...any) { logged = append(logged, format) }

		result, err := c.Crawl(context.Background(), s, 10, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Visited)
		assert.Len(t, logged, 1)
	})

	t.Run("extraction failure keeps partial content unprocessed", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  {"https://x.com/a"},
			"https://x.com/a": nil,
		})
		pages := newMemPages()
		c := newCrawler(site, pages)
		inner := site.extractor()
		c.Extractor = &mock.Extractor{
			ExtractFn: func(html, pageURL string) (*sitecrawl.Extraction, error) {
				ext, _ := inner.ExtractFn(html, pageURL)
				if pageURL == "https://x.com/" {
					return ext, sitecrawl.Errorf(sitecrawl.EEXTRACT, "malformed table")
				}
				return ext, nil
			},
		}

		result, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Written)
		assert.Equal(t, []string{"https://x.com/", "https://x.com/a"}, site.fetchedURLs(), "partial links still followed")

		root := pages.page("https://x.com/")
		require.NotNil(t, root)
		assert.Equal(t, "extract https://x.com/: malformed table", root.Error)
		assert.False(t, root.Processed)
		assert.NotEmpty(t, root.Checksum)
	})

	t.Run("site cleanup failure is an extraction failure", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{"https://x.com/": nil})
		pages := newMemPages()
		s := testSite("https://x.com/")
		s.CleanContentFn = func(_ *sitecrawl.Extraction, _ string) error {
			return sitecrawl.Errorf(sitecrawl.EEXTRACT, "no article element")
		}
		c := newCrawler(site, pages)

		result, err := c.Crawl(context.Background(), s, 10, nil)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, "clean https://x.com/: no article element", pages.page("https://x.com/").Error)
	})

	t.Run("store failure abandons the page and continues", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  {"https://x.com/a", "https://x.com/b"},
			"https://x.com/a": nil,
			"https://x.com/b": nil,
		})
		pages := newMemPages()
		svc := pages.service()
		save := svc.SavePageFn
		svc.SavePageFn = func(ctx context.Context, page *sitecrawl.Page) error {
			if page.URL == "https://x.com/a" {
				return sitecrawl.Errorf(sitecrawl.ESTORE, "database is locked")
			}
			return save(ctx, page)
		}
		c := newCrawler(site, pages)
		c.Pages = svc

		result, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)

		require.NoError(t, err)
		assert.Equal(t, 3, result.Visited)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 2, result.Written)
		assert.Nil(t, pages.page("https://x.com/a"))
	})

	t.Run("waits on the rate limiter per host", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{"https://x.com/": nil})
		var hosts []string
		c := newCrawler(site, newMemPages())
		c.RateLimiter = &mock.DomainLimiter{
			WaitFn: func(_ context.Context, domain string) error {
				hosts = append(hosts, domain)
				return nil
			},
		}

		_, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)

		require.NoError(t, err)
		assert.Equal(t, []string{"x.com"}, hosts)
	})

	t.Run("records the site at start and end", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{"https://x.com/": nil})
		var records []sitecrawl.SiteRecord
		c := newCrawler(site, newMemPages())
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		c.Now = func() time.Time { return now }
		c.Sites = &mock.SiteService{
			UpsertSiteFn: func(_ context.Context, rec *sitecrawl.SiteRecord) error {
				records = append(records, *rec)
				return nil
			},
		}

		_, err := c.Crawl(context.Background(), testSite("https://x.com/"), 10, nil)

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Nil(t, records[0].LastCrawlAt)
		require.NotNil(t, records[1].LastCrawlAt)
		assert.Equal(t, now, *records[1].LastCrawlAt)
		assert.Equal(t, "https://x.com/", records[1].HomeURL)
	})

	t.Run("reports progress events", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  {"https://x.com/a"},
			"https://x.com/a": nil,
		})
		c := newCrawler(site, newMemPages())

		var types []crawl.ProgressType
		progress := func(e crawl.ProgressEvent) {
			assert.Equal(t, 5, e.Limit)
			types = append(types, e.Type)
		}

		_, err := c.Crawl(context.Background(), testSite("https://x.com/"), 5, progress)

		require.NoError(t, err)
		assert.Equal(t, []crawl.ProgressType{
			crawl.ProgressStarted, crawl.ProgressCompleted, crawl.ProgressCompleted, crawl.ProgressFinished,
		}, types)
	})

	t.Run("canceled context stops the crawl", func(t *testing.T) {
		t.Parallel()

		site := newFakeSite(map[string][]string{
			"https://x.com/":  {"https://x.com/a"},
			"https://x.com/a": nil,
		})
		ctx, cancel := context.WithCancel(context.Background())
		c := newCrawler(site, newMemPages())
		inner := site.fetcher()
		c.Fetcher = &mock.Fetcher{
			FetchFn: func(ctx context.Context, u string) (*sitecrawl.FetchResult, error) {
				cancel()
				return inner.FetchFn(ctx, u)
			},
		}

		result, err := c.Crawl(ctx, testSite("https://x.com/"), 10, nil)

		assert.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, result)
		assert.LessOrEqual(t, result.Visited, 1)
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		t.Parallel()

		c := newCrawler(newFakeSite(nil), newMemPages())

		_, err := c.Crawl(context.Background(), testSite("https://x.com/"), 0, nil)

		assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode(err))
	})

	t.Run("rejects invalid base URL", func(t *testing.T) {
		t.Parallel()

		c := newCrawler(newFakeSite(nil), newMemPages())

		_, err := c.Crawl(context.Background(), testSite("not a url"), 10, nil)

		assert.Equal(t, sitecrawl.EINVALID, sitecrawl.ErrorCode(err))
	})
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "written", crawl.OutcomeWritten.String())
	assert.Equal(t, "unchanged", crawl.OutcomeUnchanged.String())
	assert.Equal(t, "fetch failed", crawl.OutcomeFetchFailed.String())
	assert.Equal(t, "extract failed", crawl.OutcomeExtractFailed.String())
	assert.Equal(t, "store failed", crawl.OutcomeStoreFailed.String())
}
