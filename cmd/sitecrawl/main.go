package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/sitecrawl"
	"github.com/fwojciec/sitecrawl/crawl"
	"github.com/fwojciec/sitecrawl/goquery"
	sitehttp "github.com/fwojciec/sitecrawl/http"
	"github.com/fwojciec/sitecrawl/rod"
	sitecrawlslog "github.com/fwojciec/sitecrawl/slog"
	"github.com/fwojciec/sitecrawl/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Fetcher is the crawl fetcher, closed by Close.
	Fetcher sitecrawl.Fetcher

	// NewFetcher builds the fetcher for a crawl. Tests replace it to avoid
	// launching a browser.
	NewFetcher func(ctx context.Context, cfg sitecrawl.SiteConfig, cmd *CrawlCmd, extractor sitecrawl.Extractor) (sitecrawl.Fetcher, error)

	logCloser io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{NewFetcher: newFetcher}
}

// Close gracefully stops the program. It is safe to call more than once.
func (m *Main) Close() error {
	var err error
	if m.Fetcher != nil {
		err = m.Fetcher.Close()
		m.Fetcher = nil
	}
	if m.DB != nil {
		if e := m.DB.Close(); err == nil {
			err = e
		}
		m.DB = nil
	}
	if m.logCloser != nil {
		if e := m.logCloser.Close(); err == nil {
			err = e
		}
		m.logCloser = nil
	}
	return err
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("sitecrawl"),
		kong.Description("Crawl a website and store its pages, headings, links and files."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Vars{
			"db_path":    DefaultDBPath(),
			"sites_path": DefaultSitesPath(),
		},
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'sitecrawl --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	defer m.Close()

	level, err := sitecrawlslog.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	logger, closer := sitecrawlslog.NewLogger(sitecrawlslog.Options{
		Level:   level,
		Console: stderr,
		File:    cli.LogFile,
	})
	m.logCloser = closer
	deps.Logger = logger

	cfgs, err := LoadSites(cli.SitesFile)
	if err != nil {
		return fmt.Errorf("failed to load sites: %w", err)
	}
	sitemaps := sitecrawlslog.NewLoggingSitemapService(sitehttp.NewSitemapService(nil, sitehttp.DefaultUserAgent), logger)
	registry, err := goquery.NewRegistryFromConfigs(cfgs, sitemaps)
	if err != nil {
		return fmt.Errorf("failed to build sites: %w", err)
	}
	deps.Registry = registry

	if cli.DB != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cli.DB), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	m.DB = sqlite.NewDB(cli.DB)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set SITECRAWL_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", cli.DB, err)
	}
	deps.DB = m.DB
	deps.Pages = sqlite.NewPageService(m.DB)
	deps.SiteRecords = sqlite.NewSiteService(m.DB)

	if kongCtx.Command() == "crawl" {
		crawler, err := m.newCrawler(ctx, cli.Crawl, registry, deps, logger)
		if err != nil {
			return err
		}
		deps.Crawler = crawler
	}

	return kongCtx.Run(deps)
}

// newCrawler wires the crawl engine for the selected site.
func (m *Main) newCrawler(ctx context.Context, cmd CrawlCmd, registry sitecrawl.SiteRegistry, deps *Dependencies, logger *slog.Logger) (*crawl.Crawler, error) {
	site := registry.Get(cmd.Site)
	if site == nil {
		return nil, sitecrawl.Errorf(sitecrawl.ENOTFOUND, "unknown site %q. Run 'sitecrawl sites' to see configured sites", cmd.Site)
	}
	cfg := siteConfig(site)

	extractor := goquery.NewExtractor(cfg.FileExtensions...)
	fetcher, err := m.NewFetcher(ctx, cfg, &cmd, extractor)
	if err != nil {
		return nil, err
	}
	m.Fetcher = fetcher

	var limiter sitecrawl.DomainLimiter
	if cmd.RPS > 0 {
		limiter = crawl.NewDomainLimiter(cmd.RPS)
	}

	return &crawl.Crawler{
		Fetcher:           sitecrawlslog.NewLoggingFetcher(fetcher, logger),
		Extractor:         extractor,
		Pages:             sitecrawlslog.NewLoggingPageService(deps.Pages, logger),
		Sites:             deps.SiteRecords,
		RateLimiter:       limiter,
		Concurrency:       cmd.Concurrency,
		FetchTimeout:      cmd.Timeout,
		IgnoredExtensions: cfg.IgnoredExtensionList(),
		Log: func(format string, args ...any) {
			logger.Warn(fmt.Sprintf(format, args...), "site", cmd.Site)
		},
	}, nil
}

// siteConfig recovers the configuration behind a registered site.
func siteConfig(site sitecrawl.Site) sitecrawl.SiteConfig {
	if c, ok := site.(interface{ Config() sitecrawl.SiteConfig }); ok {
		return c.Config()
	}
	return sitecrawl.SiteConfig{ID: site.ID(), Name: site.Name(), BaseURL: site.BaseURL()}
}

// newFetcher builds the fetcher selected by the command's renderer, falling
// back to the site's configured renderer.
func newFetcher(ctx context.Context, cfg sitecrawl.SiteConfig, cmd *CrawlCmd, extractor sitecrawl.Extractor) (sitecrawl.Fetcher, error) {
	renderer, err := selectRenderer(cmd.Renderer, cfg.Renderer)
	if err != nil {
		return nil, err
	}

	static := func() sitecrawl.Fetcher {
		return sitehttp.NewFetcher(sitehttp.WithTimeout(cmd.Timeout))
	}
	browser := func() (sitecrawl.Fetcher, error) {
		f, err := rod.NewFetcher(rod.WithHeadless(!cmd.Visible), rod.WithFetchTimeout(cmd.Timeout))
		if err != nil {
			return nil, fmt.Errorf("failed to start browser (Chrome or Chromium must be installed): %w", err)
		}
		return f, nil
	}

	switch renderer {
	case sitecrawl.RendererHTTP:
		return static(), nil
	case sitecrawl.RendererAuto:
		b, err := browser()
		if err != nil {
			return nil, err
		}
		chosen := crawl.ProbeFetcher(ctx, cfg.BaseURL, static(), b, extractor)
		if chosen != b {
			_ = b.Close()
		}
		return chosen, nil
	default:
		return browser()
	}
}

// selectRenderer returns the override when set, otherwise the configured
// renderer, defaulting to the browser.
func selectRenderer(override string, configured sitecrawl.Renderer) (sitecrawl.Renderer, error) {
	r := sitecrawl.Renderer(override)
	if r == "" {
		r = configured
	}
	switch r {
	case "":
		return sitecrawl.RendererBrowser, nil
	case sitecrawl.RendererBrowser, sitecrawl.RendererHTTP, sitecrawl.RendererAuto:
		return r, nil
	default:
		return "", sitecrawl.Errorf(sitecrawl.EINVALID, "unknown renderer %q", override)
	}
}
