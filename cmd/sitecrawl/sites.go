package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fwojciec/sitecrawl"
)

// Run executes the sites command.
func (c *SitesCmd) Run(deps *Dependencies) error {
	sites := deps.Registry.List()
	if len(sites) == 0 {
		fmt.Fprintln(deps.Stdout, "No sites configured. Add some to the sites file.")
		return nil
	}

	records, err := deps.SiteRecords.FindSites(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitecrawl.ErrorMessage(err))
		return err
	}
	lastCrawl := make(map[string]string, len(records))
	for _, r := range records {
		if r.LastCrawlAt != nil {
			lastCrawl[r.ID] = r.LastCrawlAt.Local().Format("2006-01-02 15:04")
		}
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	for _, s := range sites {
		crawled, ok := lastCrawl[s.ID()]
		if !ok {
			crawled = "never"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID(), s.Name(), s.BaseURL(), crawled)
	}
	return w.Flush()
}
