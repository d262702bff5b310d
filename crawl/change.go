package crawl

import (
	"context"

	"github.com/fwojciec/sitecrawl"
)

// Change classifies a fetched page against its stored version.
type Change int

const (
	// ChangeNew means no page is stored under the URL.
	ChangeNew Change = iota
	// ChangeModified means the stored page differs or is incomplete.
	ChangeModified
	// ChangeUnchanged means the stored page has the same checksum and all
	// of its derived records.
	ChangeUnchanged
)

// String returns the change name.
func (c Change) String() string {
	switch c {
	case ChangeNew:
		return "new"
	case ChangeModified:
		return "modified"
	case ChangeUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// ShouldWrite reports whether the page and its derived records must be
// written.
func (c Change) ShouldWrite() bool {
	return c != ChangeUnchanged
}

// ChangeDetector compares fetched content with the page store.
type ChangeDetector struct {
	Pages sitecrawl.PageService
}

// Detect classifies the page at url with the new checksum and returns the
// stored page, if any. Store failures other than ENOTFOUND are returned.
func (d *ChangeDetector) Detect(ctx context.Context, url, checksum string) (Change, *sitecrawl.Page, error) {
	prev, err := d.Pages.FindPageByURL(ctx, url)
	if sitecrawl.ErrorCode(err) == sitecrawl.ENOTFOUND {
		return ChangeNew, nil, nil
	} else if err != nil {
		return ChangeNew, nil, err
	}

	if prev.Processed && prev.Checksum != "" && prev.Checksum == checksum {
		return ChangeUnchanged, prev, nil
	}
	return ChangeModified, prev, nil
}

// ShouldWrite reports whether content with the given checksum must be
// written for url.
func (d *ChangeDetector) ShouldWrite(ctx context.Context, url, checksum string) (bool, error) {
	change, _, err := d.Detect(ctx, url, checksum)
	if err != nil {
		return false, err
	}
	return change.ShouldWrite(), nil
}
