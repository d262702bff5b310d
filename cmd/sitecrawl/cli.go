package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/crawl"
	"github.com/fwojciec/sitecrawl/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx         context.Context
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
	DB          *sqlite.DB
	Registry    sitecrawl.SiteRegistry
	Pages       sitecrawl.PageService
	SiteRecords sitecrawl.SiteService
	Crawler     *crawl.Crawler
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	DB        string `name:"db" env:"SITECRAWL_DB" default:"${db_path}" help:"SQLite database path"`
	SitesFile string `name:"sites-file" env:"SITECRAWL_SITES" default:"${sites_path}" help:"YAML file with additional site definitions"`
	LogLevel  string `name:"log-level" env:"SITECRAWL_LOG_LEVEL" default:"info" enum:"debug,info,warn,error" help:"Minimum log level"`
	LogFile   string `name:"log-file" help:"Also write JSON logs to this rotated file"`

	Crawl CrawlCmd `cmd:"" help:"Crawl a configured site"`
	Sites SitesCmd `cmd:"" help:"List configured sites"`
	Pages PagesCmd `cmd:"" help:"List stored pages for a site"`
}

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	Site        string        `required:"" help:"Site ID (see 'sitecrawl sites')"`
	Limit       int           `default:"100" help:"Maximum number of pages to visit"`
	Visible     bool          `help:"Show the browser window"`
	Concurrency int           `short:"c" default:"1" help:"Concurrent fetch workers"`
	Timeout     time.Duration `default:"30s" help:"Per-request timeout"`
	RPS         float64       `name:"rps" default:"2" help:"Requests per second per domain (0 disables)"`
	Renderer    string        `help:"Override the site's renderer (browser, http or auto)"`
}

// SitesCmd is the "sites" subcommand.
type SitesCmd struct{}

// PagesCmd is the "pages" subcommand.
type PagesCmd struct {
	Site   string `required:"" help:"Site ID"`
	Failed bool   `help:"Only show pages that failed"`
	Limit  int    `default:"50" help:"Maximum number of pages to list (0 for all)"`
}
