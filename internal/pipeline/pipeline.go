package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avasquez/deedscan/internal/capture"
	"github.com/avasquez/deedscan/internal/identity"
	"github.com/avasquez/deedscan/internal/interval"
	"github.com/avasquez/deedscan/internal/legal"
	"github.com/avasquez/deedscan/internal/metrics"
	"github.com/avasquez/deedscan/internal/model"
	"github.com/avasquez/deedscan/internal/store"
)

// Assessor fetches the assessment page for a target and returns its HTML
// together with the final URL after redirects.
type Assessor interface {
	FetchAssessment(ctx context.Context, target model.Target) (string, string, error)
}

// Extractor turns assessment page HTML into a structured assessment.
type Extractor interface {
	Extract(ctx context.Context, pageHTML, sourceURL string) (*model.Assessment, error)
}

// DocumentCapturer runs the recorded-document capture loop for one
// property and returns a record per matched document.
type DocumentCapturer interface {
	Run(ctx context.Context, accountNumber string, ld model.LegalDescription) ([]model.DocumentRecord, error)
}

// PropertyResult is everything one target produced, as written to the
// store. The batch layer serializes it for file output when no database
// is configured.
type PropertyResult struct {
	Target             model.Target              `json:"target"`
	Property           model.Property            `json:"property"`
	Owners             []model.Owner             `json:"owners"`
	OwnershipIntervals []model.OwnershipInterval `json:"ownership_intervals"`
	ExemptionIntervals []model.ExemptionInterval `json:"exemption_intervals"`
	ValueSnapshots     []model.ValueSnapshot     `json:"value_snapshots"`
	Documents          []model.DocumentRecord    `json:"documents"`
	SourceURL          string                    `json:"source_url"`
}

// Orchestrator drives one target through the full pipeline: fetch the
// assessment page, extract structured data, parse the legal description,
// capture recorded documents, compact the year-by-year history, and
// persist the lot.
type Orchestrator struct {
	assessor  Assessor
	extractor Extractor
	capturer  DocumentCapturer // nil when document capture is disabled
	store     store.Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(mx *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = mx }
}

func WithCapturer(c DocumentCapturer) Option {
	return func(o *Orchestrator) { o.capturer = c }
}

func NewOrchestrator(assessor Assessor, extractor Extractor, st store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		assessor:  assessor,
		extractor: extractor,
		store:     st,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessTarget runs the pipeline for one target. A missing assessment
// is an error; an unavailable records listing is not, because the
// assessment data is still worth persisting on its own.
func (o *Orchestrator) ProcessTarget(ctx context.Context, target model.Target) (*PropertyResult, error) {
	log := o.logger.With("target", target.Address())

	pageHTML, sourceURL, err := o.assessor.FetchAssessment(ctx, target)
	if err != nil {
		o.metrics.IncPropertiesFailed()
		return nil, fmt.Errorf("fetch assessment for %s: %w", target.Address(), err)
	}

	assessment, err := o.extractor.Extract(ctx, pageHTML, sourceURL)
	if err != nil {
		o.metrics.IncPropertiesFailed()
		return nil, fmt.Errorf("extract assessment for %s: %w", target.Address(), err)
	}
	if assessment.Empty() {
		o.metrics.IncPropertiesFailed()
		return nil, fmt.Errorf("no usable assessment data for %s", target.Address())
	}

	ld := legal.Parse(assessment.LegalDescriptionText)
	property := model.Property{
		AccountNumber:    assessment.AccountNumber,
		SiteAddress:      assessment.SiteAddress,
		LandValue:        assessment.LandValue,
		ImprovementValue: assessment.ImprovementValue,
		TotalMarketValue: assessment.TotalMarketValue,
		Legal:            ld,
	}
	log = log.With("account", property.AccountNumber)

	docs := o.captureDocuments(ctx, log, property.AccountNumber, ld)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := o.persist(ctx, log, target, property, assessment, docs)
	if err != nil {
		o.metrics.IncPropertiesFailed()
		return nil, err
	}
	result.SourceURL = sourceURL

	o.metrics.IncPropertiesProcessed()
	log.Info("property processed",
		"owners", len(result.Owners),
		"ownership_intervals", len(result.OwnershipIntervals),
		"documents", len(result.Documents))
	return result, nil
}

// captureDocuments runs the capture loop when it applies. Capture is
// best effort at this level: any outcome short of context cancellation
// degrades to "fewer documents", never to a failed target.
func (o *Orchestrator) captureDocuments(ctx context.Context, log *slog.Logger, accountNumber string, ld model.LegalDescription) []model.DocumentRecord {
	if o.capturer == nil {
		return nil
	}
	if !ld.HasLotBlock() {
		log.Info("skipping document capture, legal description has no lot/block")
		return nil
	}

	docs, err := o.capturer.Run(ctx, accountNumber, ld)
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrListingUnavailable):
		log.Warn("records listing unavailable, continuing without documents")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Caller observes ctx.Err(); keep whatever was captured.
	default:
		log.Error("document capture failed", "error", err, "captured", len(docs))
	}
	return docs
}

// persist resolves identities, compacts the history into intervals, and
// writes everything through the store.
func (o *Orchestrator) persist(ctx context.Context, log *slog.Logger, target model.Target, property model.Property, assessment *model.Assessment, docs []model.DocumentRecord) (*PropertyResult, error) {
	resolver := identity.NewResolver()
	if assessment.OwnerName != "" {
		resolver.AddCurrent(assessment.OwnerName, assessment.OwnerMailingAddress)
	}
	for _, obs := range assessment.History {
		if strings.TrimSpace(obs.OwnerBlock) != "" {
			resolver.AddHistorical(obs.OwnerBlock)
		}
	}

	owners := make([]model.Owner, 0, len(resolver.Owners()))
	for _, rec := range resolver.Owners() {
		owners = append(owners, model.Owner{
			RawName:        rec.RawName,
			Name:           rec.Name,
			MailingAddress: rec.MailingAddress,
		})
	}

	if err := o.store.UpsertProperty(ctx, &property); err != nil {
		return nil, fmt.Errorf("persist property: %w", err)
	}
	ownerIDs, err := o.store.UpsertOwners(ctx, owners)
	if err != nil {
		return nil, fmt.Errorf("persist owners: %w", err)
	}
	for i := range owners {
		owners[i].ID = ownerIDs[owners[i].RawName]
	}

	ownership := o.ownershipIntervals(resolver, property.AccountNumber, assessment.History, owners)
	exemptions := exemptionIntervals(property.AccountNumber, assessment.History)
	snapshots := valueSnapshots(property.AccountNumber, assessment.History)

	if err := o.store.ReplaceOwnershipIntervals(ctx, property.AccountNumber, ownership); err != nil {
		return nil, fmt.Errorf("persist ownership intervals: %w", err)
	}
	if err := o.store.ReplaceExemptionIntervals(ctx, property.AccountNumber, exemptions); err != nil {
		return nil, fmt.Errorf("persist exemption intervals: %w", err)
	}
	if err := o.store.ReplaceValueSnapshots(ctx, property.AccountNumber, snapshots); err != nil {
		return nil, fmt.Errorf("persist value snapshots: %w", err)
	}
	if err := o.store.ReplaceDocumentRecords(ctx, property.AccountNumber, docs); err != nil {
		return nil, fmt.Errorf("persist document records: %w", err)
	}

	return &PropertyResult{
		Target:             target,
		Property:           property,
		Owners:             owners,
		OwnershipIntervals: ownership,
		ExemptionIntervals: exemptions,
		ValueSnapshots:     snapshots,
		Documents:          docs,
	}, nil
}

// ownershipIntervals compacts the per-year owner sightings into maximal
// contiguous ranges. The deed reference for a range comes from its start
// year: the deed recorded when that owner took the property.
func (o *Orchestrator) ownershipIntervals(resolver *identity.Resolver, accountNumber string, history []model.YearObservation, owners []model.Owner) []model.OwnershipInterval {
	var obs []interval.Observation
	deedByOwnerYear := make(map[string]map[int]string)
	for _, h := range history {
		name := strings.TrimSpace(strings.SplitN(strings.TrimSpace(h.OwnerBlock), "\n", 2)[0])
		id, ok := resolver.IdentityOf(name)
		if !ok {
			continue
		}
		obs = append(obs, interval.Observation{Key: id, Year: h.Year})
		if h.DeedReference != "" {
			if deedByOwnerYear[id] == nil {
				deedByOwnerYear[id] = make(map[int]string)
			}
			deedByOwnerYear[id][h.Year] = h.DeedReference
		}
	}

	ownerByIdentity := make(map[string]model.Owner, len(owners))
	for _, ow := range owners {
		ownerByIdentity[ow.Name] = ow
	}

	ranges := interval.Compact(obs)
	intervals := make([]model.OwnershipInterval, 0, len(ranges))
	for _, r := range ranges {
		owner := ownerByIdentity[r.Key]
		intervals = append(intervals, model.OwnershipInterval{
			AccountNumber: accountNumber,
			OwnerID:       owner.ID,
			OwnerRawName:  owner.RawName,
			StartYear:     r.StartYear,
			EndYear:       r.EndYear,
			DeedReference: deedByOwnerYear[r.Key][r.StartYear],
		})
	}
	return intervals
}

func exemptionIntervals(accountNumber string, history []model.YearObservation) []model.ExemptionInterval {
	var obs []interval.Observation
	for _, h := range history {
		for _, code := range h.ExemptionCodes {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			obs = append(obs, interval.Observation{Key: code, Year: h.Year})
		}
	}

	ranges := interval.Compact(obs)
	intervals := make([]model.ExemptionInterval, 0, len(ranges))
	for _, r := range ranges {
		intervals = append(intervals, model.ExemptionInterval{
			AccountNumber: accountNumber,
			Code:          r.Key,
			StartYear:     r.StartYear,
			EndYear:       r.EndYear,
		})
	}
	return intervals
}

// valueSnapshots keeps one snapshot per observed year, never compacted.
func valueSnapshots(accountNumber string, history []model.YearObservation) []model.ValueSnapshot {
	seen := make(map[int]bool, len(history))
	snapshots := make([]model.ValueSnapshot, 0, len(history))
	for _, h := range history {
		if seen[h.Year] {
			continue
		}
		seen[h.Year] = true
		snapshots = append(snapshots, model.ValueSnapshot{
			AccountNumber:    accountNumber,
			Year:             h.Year,
			TotalMarketValue: h.TotalMarketValue,
		})
	}
	return snapshots
}
