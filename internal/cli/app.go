package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/avasquez/deedscan/internal/cache"
	"github.com/avasquez/deedscan/internal/capture"
	"github.com/avasquez/deedscan/internal/extract"
	"github.com/avasquez/deedscan/internal/llm"
	"github.com/avasquez/deedscan/internal/metrics"
	"github.com/avasquez/deedscan/internal/model"
	"github.com/avasquez/deedscan/internal/pipeline"
	"github.com/avasquez/deedscan/internal/site"
	"github.com/avasquez/deedscan/internal/store"
	"github.com/avasquez/deedscan/internal/util"
	"github.com/avasquez/deedscan/internal/worker"
)

// app holds the wired pipeline for one invocation.
type app struct {
	orchestrator *pipeline.Orchestrator
	store        store.Store
	logger       *slog.Logger
	jsonDir      string // non-empty when results go to JSON files
	cleanup      []func()
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

// buildApp wires the full pipeline from configuration: assessor client,
// extractor, optional document capture, and store. Capture is enabled
// only when a gateway URL is configured; the database falls back to the
// in-memory store plus JSON file output when no URL is set.
func buildApp(ctx context.Context, cfg *model.Config) (*app, error) {
	logger := newLogger()
	a := &app{logger: logger}

	if cfg.Site.AssessorSearchURL == "" {
		return nil, fmt.Errorf("assessor search URL is not configured (set site.assessor_search_url or --assessor-url)")
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("an LLM provider is required for assessment extraction (set llm.provider)")
	}

	assessorOpts := []site.AssessorOption{
		site.WithAssessorLogger(logger),
		site.WithRobots(util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)),
		site.WithLimiter(worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)),
	}
	if cfg.Cache.Enabled {
		assessorOpts = append(assessorOpts,
			site.WithPageCache(cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)))
	}
	assessor := site.NewAssessorClient(cfg.Site.AssessorSearchURL, cfg.HTTP, assessorOpts...)

	extractor := extract.NewAssessmentExtractor(provider, logger)
	mx := metrics.New()

	var st store.Store
	if cfg.Database.URL != "" {
		pg, err := store.NewPostgres(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		a.cleanup = append(a.cleanup, pg.Close)
		st = pg
	} else {
		logger.Info("no database configured, writing JSON output", "dir", cfg.Output.Dir)
		st = store.NewMemory()
		a.jsonDir = cfg.Output.Dir
	}
	a.store = st

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(mx),
	}
	if cfg.Capture.GatewayURL != "" {
		dialer := site.NewRemoteDialer(cfg.Capture.GatewayURL, cfg.HTTP, cfg.Capture.SessionTimeout)
		reader := llm.NewDocumentReader(provider, logger)
		capturer := capture.NewManager(dialer, reader, cfg.Capture,
			capture.WithLogger(logger),
			capture.WithMetrics(mx))
		opts = append(opts, pipeline.WithCapturer(capturer))
	} else {
		logger.Info("no capture gateway configured, skipping document capture")
	}

	a.orchestrator = pipeline.NewOrchestrator(assessor, extractor, st, opts...)
	return a, nil
}

// writeResultJSON writes one property result as pretty JSON under dir,
// named by account number.
func writeResultJSON(dir string, res *pipeline.PropertyResult) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	path := filepath.Join(dir, res.Property.AccountNumber+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}
