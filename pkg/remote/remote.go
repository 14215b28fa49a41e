// Package remote defines the capability every remote image backend must provide:
// paginated folder listings and per-entry fetches.
package remote

import (
	"context"
	"io"
	"time"
)

// UnknownSize marks an entry or transfer whose byte size the backend did not report.
const UnknownSize int64 = -1

// Entry is one file in a remote folder.
type Entry struct {
	// Name is the path of the entry relative to its folder.
	Name string

	// ModifiedAt is the remote last-modified time.
	// Nil means the backend only knows the entry exists (existence-only freshness).
	ModifiedAt *time.Time

	// Size in bytes, or UnknownSize.
	Size int64
}

// Page is one chunk of a folder listing.
type Page struct {
	Entries []Entry

	// Cursor continues the listing. Empty when there are no more pages.
	Cursor string
}

// Source lists and fetches remote entries.
type Source interface {
	// List returns one page of the folder's entries. An empty cursor starts a new
	// listing; callers pass back Page.Cursor until it comes back empty.
	List(ctx context.Context, folder, cursor string) (Page, error)

	// Fetch opens the entry's content. It returns an error matching ErrNotFound when the
	// entry no longer exists and one matching ErrTransientNetwork when the connection
	// dropped. The returned body may also fail with ErrTransientNetwork mid-stream.
	Fetch(ctx context.Context, folder, name string) (io.ReadCloser, error)
}

// Drain follows the folder's pagination cursor until it is exhausted and returns
// every listed entry. Any page failure is returned as a *ListingError.
func Drain(ctx context.Context, src Source, folder string) ([]Entry, error) {
	var (
		entries []Entry
		cursor  string
	)

	for {
		if err := ctx.Err(); err != nil {
			return entries, err
		}

		page, err := src.List(ctx, folder, cursor)
		if err != nil {
			return entries, &ListingError{Folder: folder, Err: err}
		}

		entries = append(entries, page.Entries...)

		if page.Cursor == "" {
			return entries, nil
		}

		cursor = page.Cursor
	}
}

// TimePtr returns a pointer to t, for building entries with a known modification time.
func TimePtr(t time.Time) *time.Time {
	return &t
}
