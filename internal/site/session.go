package site

import (
	"context"
	"time"

	"github.com/avasquez/deedscan/internal/model"
)

// Query is the deterministic records search derived from a parsed legal
// description and a fixed filing-date window ending "today". Replaying the
// same query after a session loss lands on the same listing.
type Query struct {
	Subdivision string
	Lot         string
	Block       string
	FiledFrom   time.Time
	FiledTo     time.Time
}

// BuildQuery derives the search query for a legal description. The window
// spans windowYears back from now; subdivision only narrows the search and
// is never used to post-filter results.
func BuildQuery(ld model.LegalDescription, now time.Time, windowYears int) Query {
	if windowYears <= 0 {
		windowYears = 40
	}
	return Query{
		Subdivision: ld.Subdivision,
		Lot:         ld.Lot1,
		Block:       ld.Block,
		FiledFrom:   now.AddDate(-windowYears, 0, 0),
		FiledTo:     now,
	}
}

// Handle identifies an open document viewer within one session.
type Handle struct {
	InstrumentNumber string
	URL              string
}

// Session is one continuous connection to the remote document viewer.
// Pagination state is only valid within a session; once it dies a fresh
// one must be dialed and the search replayed. Implementations wrap a
// remote browser gateway; tests use scripted fakes.
type Session interface {
	// Search issues the records search and waits, bounded by ctx, for a
	// results listing to render.
	Search(ctx context.Context, q Query) ([]model.ListingEntry, error)

	// OpenViewer opens the viewer for a document resolved by its
	// instrument number, never by transient row position.
	OpenViewer(ctx context.Context, instrumentNumber string) (*Handle, error)

	// PageCount reports the document's page count. Callers default to 1
	// when it fails.
	PageCount(ctx context.Context, h *Handle) (int, error)

	// CaptureImage captures the currently rendered page as an image.
	CaptureImage(ctx context.Context, h *Handle, page int) ([]byte, error)

	// NextPage advances the viewer one page.
	NextPage(ctx context.Context, h *Handle) error

	// GoBack navigates from the viewer back to the results listing.
	GoBack(ctx context.Context) error

	// Close releases the remote session. Safe to call on a dead session.
	Close() error
}

// Dialer mints capture sessions. The capture loop holds at most one live
// session at a time and leans on the dialer to replace a lost one.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Session, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (Session, error) { return f(ctx) }
