package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/avasquez/deedscan/internal/worker"
)

var (
	concurrency  int
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Process multiple properties from a file in parallel",
	Long: `Batch processes multiple properties concurrently:
- Read address targets from the input file (one "<number> <street>" per line)
- Process targets in parallel with a configurable worker count
- Each worker owns its own capture session; documents within a
  property are still processed one at a time
- A failed property never fails the batch

Example:
  deedscan batch targets.txt
  deedscan batch targets.txt --concurrency 4 --database-url postgres://localhost/deedscan
  deedscan batch targets.txt --no-capture --output-dir ./out`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 2, "number of concurrent workers")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 2*time.Hour, "total timeout for batch processing")
	addPipelineFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg := buildConfig()
	cfg.Concurrency.Workers = concurrency

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	processor := worker.NewBatchProcessor(a.orchestrator, cfg.Concurrency.Workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	failureCount := 0
	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Target.Address(), result.Error)
			continue
		}
		successCount++

		if a.jsonDir != "" {
			path, err := writeResultJSON(a.jsonDir, result.Result)
			if err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Target.Address(), err)
				continue
			}
			fmt.Fprintf(os.Stderr, "✓ %s → %s\n", result.Target.Address(), path)
		} else {
			fmt.Fprintf(os.Stderr, "✓ %s (account %s, %d documents)\n",
				result.Target.Address(),
				result.Result.Property.AccountNumber,
				len(result.Result.Documents))
		}
	}

	fmt.Fprintf(os.Stderr, "\nBatch complete: %d total, %d succeeded, %d failed\n",
		len(results), successCount, failureCount)
	return nil
}
