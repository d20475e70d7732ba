package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasquez/deedscan/internal/capture"
	"github.com/avasquez/deedscan/internal/model"
	"github.com/avasquez/deedscan/internal/store"
)

type fakeAssessor struct {
	html string
	url  string
	err  error
}

func (f *fakeAssessor) FetchAssessment(_ context.Context, _ model.Target) (string, string, error) {
	return f.html, f.url, f.err
}

type fakeExtractor struct {
	assessment *model.Assessment
	err        error
}

func (f *fakeExtractor) Extract(_ context.Context, _, _ string) (*model.Assessment, error) {
	return f.assessment, f.err
}

type fakeCapturer struct {
	docs  []model.DocumentRecord
	err   error
	calls int
}

func (f *fakeCapturer) Run(_ context.Context, _ string, _ model.LegalDescription) ([]model.DocumentRecord, error) {
	f.calls++
	return f.docs, f.err
}

func testAssessment() *model.Assessment {
	return &model.Assessment{
		AccountNumber:        "0042310000170",
		SiteAddress:          "4911 TRAVIS ST",
		LandValue:            200000,
		ImprovementValue:     350000,
		TotalMarketValue:     550000,
		LegalDescriptionText: "ST AUGUSTINE HIGHLANDS\nBLK N/6757\nLT 8",
		OwnerName:            "SMITH JOHN & ET AL",
		OwnerMailingAddress:  "PO BOX 12 DALLAS TX",
		History: []model.YearObservation{
			{Year: 2024, OwnerBlock: "SMITH, JOHN\nPO BOX 12", TotalMarketValue: 550000, ExemptionCodes: []string{"HOM"}, DeedReference: ""},
			{Year: 2023, OwnerBlock: "SMITH, JOHN\nPO BOX 12", TotalMarketValue: 520000, ExemptionCodes: []string{"HOM"}},
			{Year: 2022, OwnerBlock: "SMITH, JOHN\nPO BOX 12", TotalMarketValue: 480000, DeedReference: "202200123456"},
			{Year: 2021, OwnerBlock: "DOE JANE\n99 ELM ST", TotalMarketValue: 440000},
			{Year: 2020, OwnerBlock: "DOE JANE\n99 ELM ST", TotalMarketValue: 430000, DeedReference: "202000054321"},
		},
	}
}

func TestProcessTargetFullRun(t *testing.T) {
	mem := store.NewMemory()
	cap := &fakeCapturer{docs: []model.DocumentRecord{
		{AccountNumber: "0042310000170", InstrumentNumber: "202200123456", Summary: "Warranty deed conveying Lot 8."},
	}}
	o := NewOrchestrator(
		&fakeAssessor{html: "<html></html>", url: "https://assessor.example/acct/0042310000170"},
		&fakeExtractor{assessment: testAssessment()},
		mem,
		WithCapturer(cap),
	)

	res, err := o.ProcessTarget(context.Background(), model.Target{AddressNumber: "4911", StreetName: "TRAVIS"})
	require.NoError(t, err)

	assert.Equal(t, "0042310000170", res.Property.AccountNumber)
	assert.Equal(t, "ST AUGUSTINE HIGHLANDS", res.Property.Legal.Subdivision)
	assert.Equal(t, "N", res.Property.Legal.Block)
	assert.Equal(t, "8", res.Property.Legal.Lot1)
	assert.Equal(t, 1, cap.calls)

	// Current owner and two historical identities, first-seen-wins:
	// "SMITH JOHN & ET AL" and "SMITH, JOHN" normalize to the same identity.
	require.Len(t, res.Owners, 2)
	assert.Equal(t, "SMITH JOHN & ET AL", res.Owners[0].RawName)
	assert.Equal(t, "SMITH JOHN", res.Owners[0].Name)
	assert.Equal(t, "DOE JANE", res.Owners[1].Name)

	require.Len(t, res.OwnershipIntervals, 2)
	byOwner := map[string]model.OwnershipInterval{}
	for _, iv := range res.OwnershipIntervals {
		byOwner[iv.OwnerRawName] = iv
	}
	smith := byOwner["SMITH JOHN & ET AL"]
	assert.Equal(t, 2022, smith.StartYear)
	assert.Equal(t, 2024, smith.EndYear)
	assert.Equal(t, "202200123456", smith.DeedReference)
	doe := byOwner["DOE JANE"]
	assert.Equal(t, 2020, doe.StartYear)
	assert.Equal(t, 2021, doe.EndYear)
	assert.Equal(t, "202000054321", doe.DeedReference)

	require.Len(t, res.ExemptionIntervals, 1)
	assert.Equal(t, "HOM", res.ExemptionIntervals[0].Code)
	assert.Equal(t, 2023, res.ExemptionIntervals[0].StartYear)
	assert.Equal(t, 2024, res.ExemptionIntervals[0].EndYear)

	assert.Len(t, res.ValueSnapshots, 5)
	require.Len(t, res.Documents, 1)

	// Everything landed in the store too.
	assert.Len(t, mem.OwnershipIntervals["0042310000170"], 2)
	assert.Len(t, mem.DocumentRecords["0042310000170"], 1)
	assert.NotNil(t, mem.Properties["0042310000170"])
}

func TestProcessTargetSkipsCaptureWithoutLotBlock(t *testing.T) {
	a := testAssessment()
	a.LegalDescriptionText = "ABST 123 PAGE 45 TR 6"
	cap := &fakeCapturer{}
	o := NewOrchestrator(
		&fakeAssessor{html: "<html></html>", url: "https://assessor.example"},
		&fakeExtractor{assessment: a},
		store.NewMemory(),
		WithCapturer(cap),
	)

	res, err := o.ProcessTarget(context.Background(), model.Target{AddressNumber: "4911", StreetName: "TRAVIS"})
	require.NoError(t, err)
	assert.Zero(t, cap.calls)
	assert.Empty(t, res.Documents)
	// Assessment data still persisted in full.
	assert.NotEmpty(t, res.OwnershipIntervals)
}

func TestProcessTargetToleratesListingUnavailable(t *testing.T) {
	cap := &fakeCapturer{err: capture.ErrListingUnavailable}
	o := NewOrchestrator(
		&fakeAssessor{html: "<html></html>", url: "https://assessor.example"},
		&fakeExtractor{assessment: testAssessment()},
		store.NewMemory(),
		WithCapturer(cap),
	)

	res, err := o.ProcessTarget(context.Background(), model.Target{AddressNumber: "4911", StreetName: "TRAVIS"})
	require.NoError(t, err)
	assert.Equal(t, 1, cap.calls)
	assert.Empty(t, res.Documents)
}

func TestProcessTargetWithoutCapturer(t *testing.T) {
	o := NewOrchestrator(
		&fakeAssessor{html: "<html></html>", url: "https://assessor.example"},
		&fakeExtractor{assessment: testAssessment()},
		store.NewMemory(),
	)

	res, err := o.ProcessTarget(context.Background(), model.Target{AddressNumber: "4911", StreetName: "TRAVIS"})
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
}

func TestProcessTargetFetchFailure(t *testing.T) {
	o := NewOrchestrator(
		&fakeAssessor{err: errors.New("connect: refused")},
		&fakeExtractor{assessment: testAssessment()},
		store.NewMemory(),
	)

	_, err := o.ProcessTarget(context.Background(), model.Target{AddressNumber: "4911", StreetName: "TRAVIS"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch assessment")
}

func TestProcessTargetEmptyExtraction(t *testing.T) {
	o := NewOrchestrator(
		&fakeAssessor{html: "<html></html>", url: "https://assessor.example"},
		&fakeExtractor{assessment: &model.Assessment{}},
		store.NewMemory(),
	)

	_, err := o.ProcessTarget(context.Background(), model.Target{AddressNumber: "4911", StreetName: "TRAVIS"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no usable assessment data")
}
