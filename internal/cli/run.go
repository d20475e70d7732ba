package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avasquez/deedscan/internal/model"
)

var (
	assessorURL string
	gatewayURL  string
	databaseURL string
	outputDir   string
	runTimeout  time.Duration
	noCache     bool
	noCapture   bool
	httpProxy   string
	httpsProxy  string
	llmProvider string
	llmModel    string
	visionModel string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <number> <street name...>",
	Short: "Process a single property by street address",
	Long: `Process one property end to end:
- Fetch and extract the county assessment page
- Parse the legal description into subdivision/block/lot
- Search the records site and capture matching documents
- Compact the history into ownership and exemption timelines
- Persist to the database, or write JSON when none is configured

Example:
  deedscan run 4911 TRAVIS ST
  deedscan run 4911 TRAVIS ST --database-url postgres://localhost/deedscan
  deedscan run 4911 TRAVIS ST --no-capture --output-dir ./out`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&runTimeout, "timeout", 15*time.Minute, "total timeout for the property")
	addPipelineFlags(runCmd)
}

// addPipelineFlags registers the flags shared by run and batch.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&assessorURL, "assessor-url", "", "assessment search URL (overrides config)")
	cmd.Flags().StringVar(&gatewayURL, "gateway-url", "", "capture gateway URL (overrides config)")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres URL (empty: in-memory store + JSON output)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "output directory for JSON results (overrides config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable page cache (force fresh fetch)")
	cmd.Flags().BoolVar(&noCapture, "no-capture", false, "skip document capture")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "completion model name (overrides config)")
	cmd.Flags().StringVar(&visionModel, "vision-model", "", "vision model name for page OCR (overrides config)")
}

// buildConfig folds the config file and then flags over the defaults.
func buildConfig() *model.Config {
	cfg := model.DefaultConfig()

	// File/env values first, flags win below.
	if v := viper.GetString("site.assessor_search_url"); v != "" {
		cfg.Site.AssessorSearchURL = v
	}
	if v := viper.GetString("capture.gateway_url"); v != "" {
		cfg.Capture.GatewayURL = v
	}
	if v := viper.GetString("database.url"); v != "" {
		cfg.Database.URL = v
	}
	if v := viper.GetString("llm.model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := viper.GetString("llm.vision_model"); v != "" {
		cfg.LLM.VisionModel = v
	}
	if v := viper.GetString("output.dir"); v != "" {
		cfg.Output.Dir = v
	}

	if assessorURL != "" {
		cfg.Site.AssessorSearchURL = assessorURL
	}
	if gatewayURL != "" {
		cfg.Capture.GatewayURL = gatewayURL
	}
	if noCapture {
		cfg.Capture.GatewayURL = ""
	}
	if databaseURL != "" {
		cfg.Database.URL = databaseURL
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	cfg.Cache.Enabled = !noCache
	cfg.HTTP.HTTPProxy = httpProxy
	cfg.HTTP.HTTPSProxy = httpsProxy
	cfg.LLM.Provider = llmProvider
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if visionModel != "" {
		cfg.LLM.VisionModel = visionModel
	}
	cfg.Output.Verbose = verbose
	return cfg
}

func runRun(cmd *cobra.Command, args []string) error {
	target := model.Target{
		AddressNumber: args[0],
		StreetName:    strings.Join(args[1:], " "),
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg := buildConfig()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.orchestrator.ProcessTarget(ctx, target)
	if err != nil {
		return fmt.Errorf("process %s: %w", target.Address(), err)
	}

	if a.jsonDir != "" {
		path, err := writeResultJSON(a.jsonDir, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ %s → %s\n", target.Address(), path)
	} else {
		fmt.Fprintf(os.Stderr, "✓ %s (account %s, %d owners, %d documents)\n",
			target.Address(), res.Property.AccountNumber, len(res.Owners), len(res.Documents))
	}
	return nil
}
