package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/avasquez/deedscan/internal/metrics"
	"github.com/avasquez/deedscan/internal/model"
	"github.com/avasquez/deedscan/internal/site"
)

// State is the capture loop's explicit state. The per-document
// try/recover/continue flow is a state machine rather than nested error
// handling so the one-record-per-document invariant stays checkable.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateFiltering
	StateOpening
	StatePaginating
	StateExtractingText
	StateSummarizing
	StateRecorded
	StateSessionLost
	StateRecovering
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateSearching:      "searching",
	StateFiltering:      "filtering",
	StateOpening:        "opening",
	StatePaginating:     "paginating",
	StateExtractingText: "extracting_text",
	StateSummarizing:    "summarizing",
	StateRecorded:       "recorded",
	StateSessionLost:    "session_lost",
	StateRecovering:     "recovering",
	StateDone:           "done",
	StateFailed:         "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Reader supplies OCR and summarization for captured page images.
// TextFromImages never fails: on trouble it returns an explanatory
// sentinel string. Summarize surfaces transport failures to the caller.
type Reader interface {
	TextFromImages(ctx context.Context, images [][]byte) string
	Summarize(ctx context.Context, text string) (string, error)
}

// Manager runs the document capture loop for one property at a time. It
// owns at most one live session; documents are processed strictly
// sequentially within it.
type Manager struct {
	dialer  site.Dialer
	reader  Reader
	cfg     model.CaptureConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	state   State
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithMetrics wires prometheus counters.
func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mx }
}

// WithClock overrides the clock; tests pin "today" for the search window.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a capture manager.
func NewManager(dialer site.Dialer, reader Reader, cfg model.CaptureConfig, opts ...Option) *Manager {
	m := &Manager{
		dialer: dialer,
		reader: reader,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the loop's current state.
func (m *Manager) State() State { return m.state }

// Run captures every recorded document matching the target legal
// description and returns one DocumentRecord per matched listing entry.
// A missing listing is the only error that fails the run; per-document
// failures yield sentinel-summary records instead. Cancellation is
// whole-run: the loop stops after the current document.
func (m *Manager) Run(ctx context.Context, accountNumber string, ld model.LegalDescription) ([]model.DocumentRecord, error) {
	runID := uuid.NewString()
	log := m.logger.With("run_id", runID, "account", accountNumber)

	sess, err := m.dialer.Dial(ctx)
	if err != nil {
		m.transition(log, StateFailed)
		return nil, fmt.Errorf("dial capture session: %w", err)
	}
	defer func() { _ = sess.Close() }()

	query := site.BuildQuery(ld, m.now(), m.cfg.SearchWindowYears)

	m.transition(log, StateSearching)
	listing, err := m.search(ctx, sess, query)
	if err != nil {
		m.transition(log, StateFailed)
		return nil, fmt.Errorf("%w: %v", ErrListingUnavailable, err)
	}
	if len(listing) == 0 {
		m.transition(log, StateFailed)
		return nil, ErrListingUnavailable
	}

	m.transition(log, StateFiltering)
	matched := MatchDocuments(listing, ld.Lot1, ld.Block)
	log.Info("listing filtered", "total", len(listing), "matched", len(matched))

	records := make([]model.DocumentRecord, 0, len(matched))
	for i, doc := range matched {
		rec, err := m.captureDocument(ctx, log, sess, accountNumber, doc)
		if err != nil && IsSessionLost(err) {
			m.transition(log, StateSessionLost)
			log.Warn("capture session lost", "instrument", doc.InstrumentNumber, "error", err)

			// Exactly one recovery per document: fresh session, replayed
			// search, then retry from page 1. Partial page progress is
			// discarded.
			fresh, rerr := m.recover(ctx, log, sess, query)
			if rerr != nil {
				err = rerr
			} else {
				sess = fresh
				rec, err = m.captureDocument(ctx, log, sess, accountNumber, doc)
			}
		}
		if err != nil {
			// Per-document failures never abort the batch once the
			// initial listing succeeded.
			log.Warn("document capture failed", "instrument", doc.InstrumentNumber, "error", err)
			m.metrics.IncDocumentsFailed()
			rec = sentinelRecord(accountNumber, doc)
		} else {
			m.metrics.IncDocumentsCaptured()
		}
		records = append(records, rec)

		if ctx.Err() != nil {
			m.transition(log, StateFailed)
			return records, ctx.Err()
		}

		if i < len(matched)-1 {
			if err := sess.GoBack(ctx); err != nil {
				log.Warn("navigate back to listing failed", "error", err)
			}
			if err := m.interDocumentPause(ctx); err != nil {
				m.transition(log, StateFailed)
				return records, err
			}
		}
	}

	m.transition(log, StateDone)
	return records, nil
}

// search issues the deterministic query and waits, bounded by the session
// timeout, for the listing to render.
func (m *Manager) search(ctx context.Context, sess site.Session, q site.Query) ([]model.ListingEntry, error) {
	timeout := m.cfg.SessionTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return sess.Search(sctx, q)
}

// captureDocument drives one document through opening, pagination, OCR
// and summarization. The viewer is resolved by instrument number so the
// same document can be re-resolved after a session recovery.
func (m *Manager) captureDocument(ctx context.Context, log *slog.Logger, sess site.Session, accountNumber string, doc model.ListingEntry) (model.DocumentRecord, error) {
	var zero model.DocumentRecord

	m.transition(log, StateOpening)
	octx, cancel := context.WithTimeout(ctx, m.navigationTimeout())
	handle, err := sess.OpenViewer(octx, doc.InstrumentNumber)
	cancel()
	if err != nil {
		return zero, fmt.Errorf("open viewer for %s: %w", doc.InstrumentNumber, err)
	}

	m.transition(log, StatePaginating)
	pages, err := sess.PageCount(ctx, handle)
	if err != nil || pages < 1 {
		pages = 1
	}

	images := make([][]byte, 0, pages)
	for page := 1; page <= pages; page++ {
		img, err := sess.CaptureImage(ctx, handle, page)
		if err != nil {
			return zero, fmt.Errorf("capture page %d of %s: %w", page, doc.InstrumentNumber, err)
		}
		images = append(images, img)

		if page < pages {
			if err := sess.NextPage(ctx, handle); err != nil {
				return zero, fmt.Errorf("advance to page %d of %s: %w", page+1, doc.InstrumentNumber, err)
			}
			if err := sleepCtx(ctx, m.cfg.PageSettleDelay); err != nil {
				return zero, err
			}
		}
	}

	// One OCR round trip for the whole document, not one per page.
	m.transition(log, StateExtractingText)
	text := m.reader.TextFromImages(ctx, images)

	m.transition(log, StateSummarizing)
	summary, err := m.reader.Summarize(ctx, text)
	if err != nil {
		return zero, fmt.Errorf("summarize %s: %w", doc.InstrumentNumber, err)
	}

	m.transition(log, StateRecorded)
	return model.DocumentRecord{
		AccountNumber:    accountNumber,
		InstrumentNumber: doc.InstrumentNumber,
		DocumentType:     doc.DocumentType,
		Grantor:          doc.Grantor,
		Grantee:          doc.Grantee,
		FilingDate:       doc.FilingDate,
		Summary:          summary,
		SourceURL:        handle.URL,
	}, nil
}

// recover discards the stale session, dials a new one and replays the
// search so the listing is back on screen for the retried document.
func (m *Manager) recover(ctx context.Context, log *slog.Logger, stale site.Session, q site.Query) (site.Session, error) {
	m.transition(log, StateRecovering)
	m.metrics.IncSessionRecoveries()
	_ = stale.Close()

	sess, err := m.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("redial capture session: %w", err)
	}
	if _, err := m.search(ctx, sess, q); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("replay search after recovery: %w", err)
	}
	return sess, nil
}

// interDocumentPause sleeps a randomized interval between documents as
// rate-limiting backpressure against anti-automation detection.
func (m *Manager) interDocumentPause(ctx context.Context) error {
	min, max := m.cfg.InterDocDelayMin, m.cfg.InterDocDelayMax
	if min < 0 {
		min = 0
	}
	delay := min
	if max > min {
		delay = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	return sleepCtx(ctx, delay)
}

func (m *Manager) navigationTimeout() time.Duration {
	if m.cfg.NavigationTimeout > 0 {
		return m.cfg.NavigationTimeout
	}
	return 30 * time.Second
}

func (m *Manager) transition(log *slog.Logger, next State) {
	if m.state != next {
		log.Debug("state transition", "from", m.state.String(), "to", next.String())
	}
	m.state = next
}

func sentinelRecord(accountNumber string, doc model.ListingEntry) model.DocumentRecord {
	return model.DocumentRecord{
		AccountNumber:    accountNumber,
		InstrumentNumber: doc.InstrumentNumber,
		DocumentType:     doc.DocumentType,
		Grantor:          doc.Grantor,
		Grantee:          doc.Grantee,
		FilingDate:       doc.FilingDate,
		Summary:          SentinelSummary,
		SourceURL:        doc.ViewerURL,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
