package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fwojciec/sitecrawl"
)

// Compile-time interface verification.
var _ sitecrawl.SiteService = (*SiteService)(nil)

// SiteService implements sitecrawl.SiteService using SQLite.
type SiteService struct {
	db *DB
}

// NewSiteService creates a new SiteService.
func NewSiteService(db *DB) *SiteService {
	return &SiteService{db: db}
}

// UpsertSite creates the record or updates it. A nil LastCrawlAt keeps the
// stored value.
func (s *SiteService) UpsertSite(ctx context.Context, site *sitecrawl.SiteRecord) error {
	if site.ID == "" {
		return sitecrawl.Errorf(sitecrawl.EINVALID, "site ID required")
	}

	now := time.Now().UTC()
	var lastCrawl sql.NullString
	if site.LastCrawlAt != nil {
		lastCrawl = nullString(formatTime(*site.LastCrawlAt))
	}

	var createdAt string
	var storedCrawl sql.NullString
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sites (id, name, home_url, last_crawl_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			home_url = excluded.home_url,
			last_crawl_at = COALESCE(excluded.last_crawl_at, sites.last_crawl_at),
			updated_at = excluded.updated_at
		RETURNING created_at, last_crawl_at
	`, site.ID, site.Name, site.HomeURL, lastCrawl, formatTime(now), formatTime(now)).Scan(&createdAt, &storedCrawl)
	if err != nil {
		return err
	}

	site.UpdatedAt = now
	if site.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return err
	}
	if site.LastCrawlAt, err = parseNullTime(storedCrawl, "last_crawl_at"); err != nil {
		return err
	}
	return nil
}

// FindSiteByID retrieves a site record by ID.
func (s *SiteService) FindSiteByID(ctx context.Context, id string) (*sitecrawl.SiteRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, home_url, last_crawl_at, created_at, updated_at
		FROM sites
		WHERE id = ?
	`, id)
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sitecrawl.Errorf(sitecrawl.ENOTFOUND, "site not found: %s", id)
	}
	return site, err
}

// FindSites retrieves all site records ordered by ID.
func (s *SiteService) FindSites(ctx context.Context) ([]*sitecrawl.SiteRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, home_url, last_crawl_at, created_at, updated_at
		FROM sites
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []*sitecrawl.SiteRecord
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func scanSite(row scanner) (*sitecrawl.SiteRecord, error) {
	var site sitecrawl.SiteRecord
	var lastCrawl sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&site.ID, &site.Name, &site.HomeURL, &lastCrawl, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if site.LastCrawlAt, err = parseNullTime(lastCrawl, "last_crawl_at"); err != nil {
		return nil, err
	}
	if site.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if site.UpdatedAt, err = parseTime(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &site, nil
}

func parseNullTime(v sql.NullString, fieldName string) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := parseTime(v.String, fieldName)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
