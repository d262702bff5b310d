package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/crawl"
)

// urlDisplayWidth bounds URLs printed in progress lines.
const urlDisplayWidth = 70

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	site := deps.Registry.Get(c.Site)
	if site == nil {
		fmt.Fprintf(deps.Stderr, "error: unknown site %q. Use 'sitecrawl sites' to see configured sites.\n", c.Site)
		return sitecrawl.Errorf(sitecrawl.ENOTFOUND, "unknown site %q", c.Site)
	}
	if deps.Crawler == nil {
		return sitecrawl.Errorf(sitecrawl.EINTERNAL, "crawler not configured")
	}

	fmt.Fprintf(deps.Stdout, "Crawling %s (%s), limit %d\n", site.Name(), site.BaseURL(), c.Limit)

	progress := func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressCompleted:
			fmt.Fprintf(deps.Stdout, "  [%d/%d] %s\n", event.Visited, event.Limit, crawl.TruncateURL(event.URL, urlDisplayWidth))
		case crawl.ProgressUnchanged:
			fmt.Fprintf(deps.Stdout, "  [%d/%d] %s (unchanged)\n", event.Visited, event.Limit, crawl.TruncateURL(event.URL, urlDisplayWidth))
		case crawl.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  [%d/%d] %s: %s: %s\n", event.Visited, event.Limit,
				crawl.TruncateURL(event.URL, urlDisplayWidth), event.Outcome, sitecrawl.ErrorMessage(event.Error))
		}
	}

	start := time.Now()
	result, err := deps.Crawler.Crawl(deps.Ctx, site, c.Limit, progress)
	if result != nil {
		fmt.Fprintf(deps.Stdout, "Visited %d pages in %s: %d written, %d unchanged, %d failed (%d links, %d files, %s)\n",
			result.Visited,
			crawl.FormatDuration(time.Since(start)),
			result.Written,
			result.Unchanged,
			result.Failed,
			result.Links,
			result.Files,
			crawl.FormatBytes(result.Bytes),
		)
	}
	if err != nil {
		if ctxErr := deps.Ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			fmt.Fprintln(deps.Stderr, "Crawl interrupted.")
			return nil
		}
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitecrawl.ErrorMessage(err))
		return err
	}
	return nil
}
