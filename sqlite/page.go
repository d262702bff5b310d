package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/sitecrawl"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ sitecrawl.PageService = (*PageService)(nil)

// PageService implements sitecrawl.PageService using SQLite.
type PageService struct {
	db *DB

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// NewPageService creates a new PageService.
func NewPageService(db *DB) *PageService {
	return &PageService{db: db}
}

const pageColumns = `id, site_id, url, status_code, html, text, title, meta, checksum, error, processed, created_at, updated_at, last_seen_at`

// FindPageByURL retrieves a page by its normalized URL.
func (s *PageService) FindPageByURL(ctx context.Context, url string) (*sitecrawl.Page, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages WHERE url = ?`, url)
	page, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sitecrawl.Errorf(sitecrawl.ENOTFOUND, "page not found: %s", url)
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

// FindPages retrieves pages matching the filter ordered by URL.
func (s *PageService) FindPages(ctx context.Context, filter sitecrawl.PageFilter) ([]*sitecrawl.Page, error) {
	var query strings.Builder
	var args []any

	query.WriteString(`SELECT ` + pageColumns + ` FROM pages WHERE 1=1`)

	if filter.SiteID != nil {
		query.WriteString(" AND site_id = ?")
		args = append(args, *filter.SiteID)
	}
	if filter.Failed != nil {
		if *filter.Failed {
			query.WriteString(" AND error != ''")
		} else {
			query.WriteString(" AND error = ''")
		}
	}

	query.WriteString(" ORDER BY url ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*sitecrawl.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// SavePage inserts the page or updates the row with the same URL. The
// existing ID and creation time are kept on update.
func (s *PageService) SavePage(ctx context.Context, page *sitecrawl.Page) error {
	if err := page.Validate(); err != nil {
		return err
	}

	meta, err := json.Marshal(page.Meta)
	if err != nil {
		return fmt.Errorf("failed to encode page meta: %w", err)
	}

	now := s.now()
	if page.LastSeenAt.IsZero() {
		page.LastSeenAt = now
	}

	var id, createdAt string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO pages (`+pageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			site_id = excluded.site_id,
			status_code = excluded.status_code,
			html = excluded.html,
			text = excluded.text,
			title = excluded.title,
			meta = excluded.meta,
			checksum = excluded.checksum,
			error = excluded.error,
			processed = excluded.processed,
			updated_at = excluded.updated_at,
			last_seen_at = excluded.last_seen_at
		RETURNING id, created_at
	`, uuid.New().String(), page.SiteID, page.URL, page.StatusCode, page.HTML, page.Text, page.Title,
		string(meta), page.Checksum, page.Error, boolInt(page.Processed),
		formatTime(now), formatTime(now), formatTime(page.LastSeenAt),
	).Scan(&id, &createdAt)
	if err != nil {
		return err
	}

	page.ID = id
	page.UpdatedAt = now.UTC()
	page.LastSeenAt = page.LastSeenAt.UTC()
	if page.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return err
	}
	return nil
}

// TouchPage advances the last seen timestamp of a page.
func (s *PageService) TouchPage(ctx context.Context, id string, seenAt time.Time) error {
	return s.updatePage(ctx, id, `UPDATE pages SET last_seen_at = ? WHERE id = ?`, formatTime(seenAt), id)
}

// MarkPageProcessed flags the page's derived records as complete.
func (s *PageService) MarkPageProcessed(ctx context.Context, id string) error {
	return s.updatePage(ctx, id, `UPDATE pages SET processed = 1, updated_at = ? WHERE id = ?`, formatTime(s.now()), id)
}

func (s *PageService) updatePage(ctx context.Context, id, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sitecrawl.Errorf(sitecrawl.ENOTFOUND, "page not found: %s", id)
	}
	return nil
}

// ReplaceHeadings deletes the page's headings and inserts the new set in
// one transaction. Parents must precede their children.
func (s *PageService) ReplaceHeadings(ctx context.Context, pageID string, headings []*sitecrawl.Heading) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requirePage(ctx, tx, pageID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM headings WHERE page_id = ?`, pageID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO headings (id, page_id, parent_id, level, text, html, checksum, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, h := range headings {
			h.ID = uuid.New().String()
			h.PageID = pageID
			h.ParentID = ""
			if h.Parent != nil {
				if h.Parent.ID == "" || h.Parent.PageID != pageID {
					return sitecrawl.Errorf(sitecrawl.EINVALID, "heading %d precedes its parent", i)
				}
				h.ParentID = h.Parent.ID
			}
			if _, err := stmt.ExecContext(ctx, h.ID, pageID, nullString(h.ParentID),
				h.Level, h.Text, h.HTML, h.Checksum, h.Position); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceLinks deletes the page's links and inserts the new set in one transaction.
func (s *PageService) ReplaceLinks(ctx context.Context, pageID string, links []*sitecrawl.Link) error {
	refs := make([]reference, len(links))
	for i, l := range links {
		l.ID = uuid.New().String()
		l.PageID = pageID
		refs[i] = reference{id: l.ID, url: l.URL, href: l.Href, title: l.Title, position: l.Position}
	}
	return s.replaceReferences(ctx, "links", pageID, refs)
}

// ReplaceFiles deletes the page's file references and inserts the new set in one transaction.
func (s *PageService) ReplaceFiles(ctx context.Context, pageID string, files []*sitecrawl.File) error {
	refs := make([]reference, len(files))
	for i, f := range files {
		f.ID = uuid.New().String()
		f.PageID = pageID
		refs[i] = reference{id: f.ID, url: f.URL, href: f.Href, title: f.Title, position: f.Position}
	}
	return s.replaceReferences(ctx, "files", pageID, refs)
}

// reference is a row of the links or files table.
type reference struct {
	id       string
	url      string
	href     string
	title    string
	position int
}

// replaceReferences is shared by links and files, whose tables have the
// same shape. table is never user input.
func (s *PageService) replaceReferences(ctx context.Context, table, pageID string, refs []reference) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requirePage(ctx, tx, pageID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE page_id = ?`, pageID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO `+table+` (id, page_id, url, href, title, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range refs {
			if _, err := stmt.ExecContext(ctx, r.id, pageID, r.url, r.href, r.title, r.position); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindHeadings returns a page's headings in document order with Parent and
// Children links restored.
func (s *PageService) FindHeadings(ctx context.Context, pageID string) ([]*sitecrawl.Heading, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, COALESCE(parent_id, ''), level, text, html, checksum, position
		FROM headings
		WHERE page_id = ?
		ORDER BY position ASC
	`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var headings []*sitecrawl.Heading
	byID := make(map[string]*sitecrawl.Heading)
	for rows.Next() {
		var h sitecrawl.Heading
		if err := rows.Scan(&h.ID, &h.PageID, &h.ParentID, &h.Level, &h.Text, &h.HTML, &h.Checksum, &h.Position); err != nil {
			return nil, err
		}
		headings = append(headings, &h)
		byID[h.ID] = &h
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, h := range headings {
		if parent, ok := byID[h.ParentID]; ok {
			h.Parent = parent
			parent.Children = append(parent.Children, h)
		}
	}
	return headings, nil
}

// FindLinks returns a page's links in document order.
func (s *PageService) FindLinks(ctx context.Context, pageID string) ([]*sitecrawl.Link, error) {
	refs, err := s.findReferences(ctx, "links", pageID)
	if err != nil {
		return nil, err
	}
	links := make([]*sitecrawl.Link, len(refs))
	for i, r := range refs {
		links[i] = &sitecrawl.Link{ID: r.id, PageID: pageID, URL: r.url, Href: r.href, Title: r.title, Position: r.position}
	}
	return links, nil
}

// FindFiles returns a page's file references in document order.
func (s *PageService) FindFiles(ctx context.Context, pageID string) ([]*sitecrawl.File, error) {
	refs, err := s.findReferences(ctx, "files", pageID)
	if err != nil {
		return nil, err
	}
	files := make([]*sitecrawl.File, len(refs))
	for i, r := range refs {
		files[i] = &sitecrawl.File{ID: r.id, PageID: pageID, URL: r.url, Href: r.href, Title: r.title, Position: r.position}
	}
	return files, nil
}

func (s *PageService) findReferences(ctx context.Context, table, pageID string) ([]reference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, href, title, position FROM `+table+`
		WHERE page_id = ?
		ORDER BY position ASC
	`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []reference
	for rows.Next() {
		var r reference
		if err := rows.Scan(&r.id, &r.url, &r.href, &r.title, &r.position); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

func (s *PageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// requirePage returns ENOTFOUND if the page does not exist.
func requirePage(ctx context.Context, tx *sql.Tx, pageID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM pages WHERE id = ?`, pageID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return sitecrawl.Errorf(sitecrawl.ENOTFOUND, "page not found: %s", pageID)
	}
	return err
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPage(row scanner) (*sitecrawl.Page, error) {
	var p sitecrawl.Page
	var meta, createdAt, updatedAt, lastSeenAt string
	var processed int

	if err := row.Scan(&p.ID, &p.SiteID, &p.URL, &p.StatusCode, &p.HTML, &p.Text, &p.Title,
		&meta, &p.Checksum, &p.Error, &processed, &createdAt, &updatedAt, &lastSeenAt); err != nil {
		return nil, err
	}

	p.Processed = processed != 0
	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &p.Meta); err != nil {
			return nil, fmt.Errorf("failed to decode page meta: %w", err)
		}
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	if p.LastSeenAt, err = parseTime(lastSeenAt, "last_seen_at"); err != nil {
		return nil, err
	}
	return &p, nil
}
