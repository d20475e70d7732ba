package capture

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasquez/deedscan/internal/model"
	"github.com/avasquez/deedscan/internal/site"
)

// scriptedSession is a scripted fake of one remote capture session.
type scriptedSession struct {
	listing    []model.ListingEntry
	searchErr  error
	searches   int
	opened     []string
	openErr    map[string]error
	pages      map[string]int
	pageErr    map[string]error
	captureErr map[string]error
	goBacks    int
	closed     bool
}

func (s *scriptedSession) Search(ctx context.Context, q site.Query) ([]model.ListingEntry, error) {
	s.searches++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.listing, nil
}

func (s *scriptedSession) OpenViewer(ctx context.Context, instrument string) (*site.Handle, error) {
	s.opened = append(s.opened, instrument)
	if err := s.openErr[instrument]; err != nil {
		return nil, err
	}
	return &site.Handle{InstrumentNumber: instrument, URL: "https://records.test/view/" + instrument}, nil
}

func (s *scriptedSession) PageCount(ctx context.Context, h *site.Handle) (int, error) {
	if err := s.pageErr[h.InstrumentNumber]; err != nil {
		return 0, err
	}
	if n, ok := s.pages[h.InstrumentNumber]; ok {
		return n, nil
	}
	return 1, nil
}

func (s *scriptedSession) CaptureImage(ctx context.Context, h *site.Handle, page int) ([]byte, error) {
	if err := s.captureErr[h.InstrumentNumber]; err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%s-p%d", h.InstrumentNumber, page)), nil
}

func (s *scriptedSession) NextPage(ctx context.Context, h *site.Handle) error { return nil }

func (s *scriptedSession) GoBack(ctx context.Context) error {
	s.goBacks++
	return nil
}

func (s *scriptedSession) Close() error {
	s.closed = true
	return nil
}

// queueDialer hands out pre-built sessions in order.
type queueDialer struct {
	sessions []*scriptedSession
	dialErr  []error
	dials    int
}

func (d *queueDialer) Dial(ctx context.Context) (site.Session, error) {
	i := d.dials
	d.dials++
	if i < len(d.dialErr) && d.dialErr[i] != nil {
		return nil, d.dialErr[i]
	}
	if i >= len(d.sessions) {
		panic("dialed more sessions than scripted")
	}
	return d.sessions[i], nil
}

// fakeReader counts OCR batches and scripts summarization.
type fakeReader struct {
	ocrCalls     int
	ocrBatchLens []int
	summarizeErr map[string]error // keyed by OCR text
}

func (r *fakeReader) TextFromImages(ctx context.Context, images [][]byte) string {
	r.ocrCalls++
	r.ocrBatchLens = append(r.ocrBatchLens, len(images))
	if len(images) == 0 {
		return "TEXT EXTRACTION FAILED"
	}
	return "text:" + string(images[0])
}

func (r *fakeReader) Summarize(ctx context.Context, text string) (string, error) {
	if err := r.summarizeErr[text]; err != nil {
		return "", err
	}
	return "summary of " + text, nil
}

func targetLegal() model.LegalDescription {
	return model.LegalDescription{Subdivision: "ST AUGUSTINE HIGHLANDS", Block: "N", Lot1: "8"}
}

func matchedListing() []model.ListingEntry {
	return []model.ListingEntry{
		{InstrumentNumber: "8001", DocumentType: "DEED", LegalDescription: "LT 8 BLK N ST AUGUSTINE"},
		{InstrumentNumber: "8002", DocumentType: "DEED OF TRUST", LegalDescription: "LT 8 BLK N"},
		{InstrumentNumber: "8003", DocumentType: "RELEASE", LegalDescription: "LOT 8 BLOCK N"},
	}
}

func newTestManager(d site.Dialer, r Reader) *Manager {
	cfg := model.CaptureConfig{SearchWindowYears: 40}
	return NewManager(d, r, cfg)
}

func TestRun_HappyPath(t *testing.T) {
	sess := &scriptedSession{
		listing: matchedListing(),
		pages:   map[string]int{"8001": 3},
	}
	dialer := &queueDialer{sessions: []*scriptedSession{sess}}
	reader := &fakeReader{}

	m := newTestManager(dialer, reader)
	records, err := m.Run(context.Background(), "0660640000008", targetLegal())
	require.NoError(t, err)
	require.Len(t, records, 3)

	// One batched OCR call per document, first doc with all 3 pages.
	assert.Equal(t, 3, reader.ocrCalls)
	assert.Equal(t, []int{3, 1, 1}, reader.ocrBatchLens)

	assert.Equal(t, "summary of text:8001-p1", records[0].Summary)
	assert.Equal(t, "https://records.test/view/8002", records[1].SourceURL)
	assert.Equal(t, "0660640000008", records[2].AccountNumber)

	// Back to the listing between documents, not after the last one.
	assert.Equal(t, 2, sess.goBacks)
	assert.Equal(t, StateDone, m.State())
	assert.True(t, sess.closed)
}

func TestRun_SessionLostRecoversOnce(t *testing.T) {
	first := &scriptedSession{
		listing:    matchedListing(),
		captureErr: map[string]error{"8002": errors.New("Protocol error: Target closed")},
	}
	second := &scriptedSession{listing: matchedListing()}
	dialer := &queueDialer{sessions: []*scriptedSession{first, second}}
	reader := &fakeReader{}

	m := newTestManager(dialer, reader)
	records, err := m.Run(context.Background(), "ACC1", targetLegal())
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Exactly one recovery: a second dial, one replayed search.
	assert.Equal(t, 2, dialer.dials)
	assert.Equal(t, 1, second.searches)
	assert.True(t, first.closed)

	// The retried document is re-resolved by instrument number on the
	// fresh session, then the remaining document follows there too.
	assert.Equal(t, []string{"8001", "8002"}, first.opened)
	assert.Equal(t, []string{"8002", "8003"}, second.opened)

	for _, rec := range records {
		assert.NotEqual(t, SentinelSummary, rec.Summary)
	}
}

func TestRun_RecoveryFailureYieldsSentinel(t *testing.T) {
	first := &scriptedSession{
		listing:    matchedListing(),
		captureErr: map[string]error{"8002": errors.New("session closed")},
	}
	second := &scriptedSession{
		listing:    matchedListing(),
		captureErr: map[string]error{"8002": errors.New("viewer render timeout")},
	}
	dialer := &queueDialer{sessions: []*scriptedSession{first, second}}
	reader := &fakeReader{}

	m := newTestManager(dialer, reader)
	records, err := m.Run(context.Background(), "ACC1", targetLegal())
	require.NoError(t, err)
	require.Len(t, records, 3, "failed documents are never dropped")

	assert.NotEqual(t, SentinelSummary, records[0].Summary)
	assert.Equal(t, SentinelSummary, records[1].Summary)
	assert.Equal(t, "8002", records[1].InstrumentNumber)
	assert.NotEqual(t, SentinelSummary, records[2].Summary)

	// The retry budget is one: no third dial for the same document.
	assert.Equal(t, 2, dialer.dials)
}

func TestRun_RecoveryDialFailureYieldsSentinel(t *testing.T) {
	first := &scriptedSession{
		listing:    matchedListing()[:2],
		captureErr: map[string]error{"8002": errors.New("target crashed")},
	}
	dialer := &queueDialer{
		sessions: []*scriptedSession{first},
		dialErr:  []error{nil, errors.New("gateway: no session capacity")},
	}
	reader := &fakeReader{}

	m := newTestManager(dialer, reader)
	records, err := m.Run(context.Background(), "ACC1", targetLegal())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.NotEqual(t, SentinelSummary, records[0].Summary)
	assert.Equal(t, SentinelSummary, records[1].Summary)
	assert.Equal(t, 2, dialer.dials)
}

func TestRun_ListingUnavailableFailsRun(t *testing.T) {
	sess := &scriptedSession{searchErr: errors.New("results pane never rendered")}
	dialer := &queueDialer{sessions: []*scriptedSession{sess}}

	m := newTestManager(dialer, &fakeReader{})
	records, err := m.Run(context.Background(), "ACC1", targetLegal())
	require.ErrorIs(t, err, ErrListingUnavailable)
	assert.Empty(t, records)
	assert.Equal(t, StateFailed, m.State())
}

func TestRun_EmptyListingFailsRun(t *testing.T) {
	sess := &scriptedSession{listing: nil}
	dialer := &queueDialer{sessions: []*scriptedSession{sess}}

	m := newTestManager(dialer, &fakeReader{})
	_, err := m.Run(context.Background(), "ACC1", targetLegal())
	require.ErrorIs(t, err, ErrListingUnavailable)
}

func TestRun_SummarizeFailureYieldsSentinel(t *testing.T) {
	sess := &scriptedSession{listing: matchedListing()[:1]}
	dialer := &queueDialer{sessions: []*scriptedSession{sess}}
	reader := &fakeReader{
		summarizeErr: map[string]error{"text:8001-p1": errors.New("api: connection reset")},
	}

	m := newTestManager(dialer, reader)
	records, err := m.Run(context.Background(), "ACC1", targetLegal())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, SentinelSummary, records[0].Summary)
}

func TestRun_PageCountFailureDefaultsToOnePage(t *testing.T) {
	sess := &scriptedSession{
		listing: matchedListing()[:1],
		pageErr: map[string]error{"8001": errors.New("page count control missing")},
	}
	dialer := &queueDialer{sessions: []*scriptedSession{sess}}
	reader := &fakeReader{}

	m := newTestManager(dialer, reader)
	records, err := m.Run(context.Background(), "ACC1", targetLegal())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []int{1}, reader.ocrBatchLens)
	assert.NotEqual(t, SentinelSummary, records[0].Summary)
}

func TestIsSessionLost(t *testing.T) {
	lost := []error{
		errors.New("Protocol error: Target closed"),
		errors.New("Session closed. Most likely the page has been closed"),
		errors.New("Execution context was destroyed"),
		errors.New("browser has disconnected"),
	}
	for _, err := range lost {
		if !IsSessionLost(err) {
			t.Errorf("expected session-lost for %q", err)
		}
	}

	ordinary := []error{
		nil,
		errors.New("navigation timeout of 30000ms exceeded"),
		errors.New("no such element"),
	}
	for _, err := range ordinary {
		if IsSessionLost(err) {
			t.Errorf("expected ordinary error for %v", err)
		}
	}
}
