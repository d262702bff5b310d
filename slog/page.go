package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// Ensure LoggingPageService implements sitecrawl.PageService.
var _ sitecrawl.PageService = (*LoggingPageService)(nil)

// LoggingPageService wraps a PageService and logs its writes at debug
// level. Reads are delegated without logging.
type LoggingPageService struct {
	next   sitecrawl.PageService
	logger *slog.Logger
}

// NewLoggingPageService creates a new LoggingPageService.
func NewLoggingPageService(next sitecrawl.PageService, logger *slog.Logger) *LoggingPageService {
	return &LoggingPageService{next: next, logger: logger}
}

func (s *LoggingPageService) FindPageByURL(ctx context.Context, url string) (*sitecrawl.Page, error) {
	return s.next.FindPageByURL(ctx, url)
}

func (s *LoggingPageService) FindPages(ctx context.Context, filter sitecrawl.PageFilter) ([]*sitecrawl.Page, error) {
	return s.next.FindPages(ctx, filter)
}

func (s *LoggingPageService) SavePage(ctx context.Context, page *sitecrawl.Page) (err error) {
	defer func(begin time.Time) {
		s.logger.DebugContext(ctx, "save page",
			"url", page.URL,
			"id", page.ID,
			"checksum", page.Checksum,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SavePage(ctx, page)
}

func (s *LoggingPageService) TouchPage(ctx context.Context, id string, seenAt time.Time) (err error) {
	defer func(begin time.Time) {
		s.logger.DebugContext(ctx, "touch page", "id", id, "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.TouchPage(ctx, id, seenAt)
}

func (s *LoggingPageService) MarkPageProcessed(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		s.logger.DebugContext(ctx, "mark processed", "id", id, "duration", time.Since(begin), "err", err)
	}(time.Now())
	return s.next.MarkPageProcessed(ctx, id)
}

func (s *LoggingPageService) ReplaceHeadings(ctx context.Context, pageID string, headings []*sitecrawl.Heading) (err error) {
	defer s.logReplace(ctx, "headings", pageID, len(headings), time.Now(), &err)
	return s.next.ReplaceHeadings(ctx, pageID, headings)
}

func (s *LoggingPageService) ReplaceLinks(ctx context.Context, pageID string, links []*sitecrawl.Link) (err error) {
	defer s.logReplace(ctx, "links", pageID, len(links), time.Now(), &err)
	return s.next.ReplaceLinks(ctx, pageID, links)
}

func (s *LoggingPageService) ReplaceFiles(ctx context.Context, pageID string, files []*sitecrawl.File) (err error) {
	defer s.logReplace(ctx, "files", pageID, len(files), time.Now(), &err)
	return s.next.ReplaceFiles(ctx, pageID, files)
}

func (s *LoggingPageService) FindHeadings(ctx context.Context, pageID string) ([]*sitecrawl.Heading, error) {
	return s.next.FindHeadings(ctx, pageID)
}

func (s *LoggingPageService) FindLinks(ctx context.Context, pageID string) ([]*sitecrawl.Link, error) {
	return s.next.FindLinks(ctx, pageID)
}

func (s *LoggingPageService) FindFiles(ctx context.Context, pageID string) ([]*sitecrawl.File, error) {
	return s.next.FindFiles(ctx, pageID)
}

// logReplace is deferred with a pointer to the named error so the result
// is read after the call returns.
func (s *LoggingPageService) logReplace(ctx context.Context, kind, pageID string, count int, begin time.Time, err *error) {
	s.logger.DebugContext(ctx, "replace "+kind,
		"id", pageID,
		"count", count,
		"duration", time.Since(begin),
		"err", *err,
	)
}
