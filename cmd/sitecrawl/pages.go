package main

import (
	"fmt"

	"github.com/fwojciec/sitecrawl"
)

// Run executes the pages command.
func (c *PagesCmd) Run(deps *Dependencies) error {
	filter := sitecrawl.PageFilter{SiteID: &c.Site, Limit: c.Limit}
	if c.Failed {
		failed := true
		filter.Failed = &failed
	}

	pages, err := deps.Pages.FindPages(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitecrawl.ErrorMessage(err))
		return err
	}

	if len(pages) == 0 {
		fmt.Fprintf(deps.Stdout, "No pages stored for %q. Use 'sitecrawl crawl --site %s' to crawl it.\n", c.Site, c.Site)
		return nil
	}

	for _, p := range pages {
		switch {
		case p.Failed():
			fmt.Fprintf(deps.Stdout, "%3d  %s\n     error: %s\n", p.StatusCode, p.URL, p.Error)
		case p.Title != "":
			fmt.Fprintf(deps.Stdout, "%3d  %s\n     %s\n", p.StatusCode, p.URL, p.Title)
		default:
			fmt.Fprintf(deps.Stdout, "%3d  %s\n", p.StatusCode, p.URL)
		}
	}
	return nil
}
