package store

import (
	"context"

	"github.com/avasquez/deedscan/internal/model"
)

// Store is the persistence gateway. Every run recomputes a property's
// records and replaces whatever a prior run left: Property and Owner rows
// are upserted, everything else is delete-then-insert scoped by account
// number. That scoping makes concurrent per-property writers safe.
type Store interface {
	// UpsertProperty writes the property row keyed by account number.
	UpsertProperty(ctx context.Context, p *model.Property) error

	// UpsertOwners writes owner rows keyed by raw name and returns the
	// assigned identifier per raw name. Identifiers are stable across
	// reruns.
	UpsertOwners(ctx context.Context, owners []model.Owner) (map[string]int64, error)

	// ReplaceOwnershipIntervals swaps the property's ownership timeline.
	ReplaceOwnershipIntervals(ctx context.Context, accountNumber string, intervals []model.OwnershipInterval) error

	// ReplaceExemptionIntervals swaps the property's exemption timeline.
	ReplaceExemptionIntervals(ctx context.Context, accountNumber string, intervals []model.ExemptionInterval) error

	// ReplaceValueSnapshots swaps the property's per-year valuations.
	ReplaceValueSnapshots(ctx context.Context, accountNumber string, snapshots []model.ValueSnapshot) error

	// ReplaceDocumentRecords swaps the property's captured documents.
	ReplaceDocumentRecords(ctx context.Context, accountNumber string, docs []model.DocumentRecord) error
}
