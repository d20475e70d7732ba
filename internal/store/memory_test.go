package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasquez/deedscan/internal/model"
)

func TestMemoryOwnerIDsStableAcrossUpserts(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	first, err := s.UpsertOwners(ctx, []model.Owner{
		{RawName: "SMITH JOHN & ET AL", Name: "SMITH JOHN"},
		{RawName: "DOE JANE", Name: "DOE JANE"},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := s.UpsertOwners(ctx, []model.Owner{
		{RawName: "DOE JANE", Name: "DOE JANE"},
		{RawName: "ACME HOLDINGS LLC", Name: "ACME HOLDINGS LLC"},
	})
	require.NoError(t, err)

	assert.Equal(t, first["DOE JANE"], second["DOE JANE"])
	assert.NotEqual(t, second["DOE JANE"], second["ACME HOLDINGS LLC"])
	assert.Len(t, s.Owners, 3)
}

func TestMemoryReplaceOverwritesPriorRows(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.UpsertProperty(ctx, &model.Property{AccountNumber: "0123456789"}))

	require.NoError(t, s.ReplaceDocumentRecords(ctx, "0123456789", []model.DocumentRecord{
		{AccountNumber: "0123456789", InstrumentNumber: "202200001", Summary: "old"},
		{AccountNumber: "0123456789", InstrumentNumber: "202200002", Summary: "old"},
	}))
	require.NoError(t, s.ReplaceDocumentRecords(ctx, "0123456789", []model.DocumentRecord{
		{AccountNumber: "0123456789", InstrumentNumber: "202300007", Summary: "new"},
	}))

	docs := s.DocumentRecords["0123456789"]
	require.Len(t, docs, 1)
	assert.Equal(t, "202300007", docs[0].InstrumentNumber)
}

func TestMemoryRejectsPropertyWithoutAccount(t *testing.T) {
	s := NewMemory()
	err := s.UpsertProperty(context.Background(), &model.Property{})
	assert.Error(t, err)
}
