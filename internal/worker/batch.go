package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/avasquez/deedscan/internal/model"
	"github.com/avasquez/deedscan/internal/pipeline"
)

// Runner processes one property target end to end.
type Runner interface {
	ProcessTarget(ctx context.Context, target model.Target) (*pipeline.PropertyResult, error)
}

// TargetJob is one property target scheduled on the pool.
type TargetJob struct {
	Target model.Target
	Runner Runner
}

// Execute runs the property pipeline for the target. A failed property
// never fails the batch; the error rides along in the result.
func (j *TargetJob) Execute(ctx context.Context) Result {
	result, err := j.Runner.ProcessTarget(ctx, j.Target)
	return &TargetResult{
		Target: j.Target,
		Result: result,
		Error:  err,
	}
}

// TargetResult is the outcome of one property target.
type TargetResult struct {
	Target model.Target
	Result *pipeline.PropertyResult
	Error  error
}

// GetError returns the error from the target result.
func (r *TargetResult) GetError() error {
	return r.Error
}

// BatchProcessor processes multiple property targets concurrently. Each
// job gets an isolated capture session; only the persistence gateway is
// shared, and its per-property write scoping keeps that safe.
type BatchProcessor struct {
	runner      Runner
	concurrency int
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(runner Runner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessTargets processes all targets and returns one result per target.
func (b *BatchProcessor) ProcessTargets(ctx context.Context, targets []model.Target) []*TargetResult {
	if len(targets) == 0 {
		return []*TargetResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, target := range targets {
		pool.Submit(&TargetJob{Target: target, Runner: b.runner})
	}

	results := pool.Wait()

	out := make([]*TargetResult, len(results))
	for i, result := range results {
		out[i] = result.(*TargetResult)
	}
	return out
}

// ProcessFile reads targets from a file and processes them concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*TargetResult, error) {
	targets, err := ReadTargetsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}
	return b.ProcessTargets(ctx, targets), nil
}

// ReadTargetsFromFile reads address targets, one per line, in the form
// "<number> <street name>". Blank lines and # comments are skipped and
// duplicate addresses collapse to one target.
func ReadTargetsFromFile(filePath string) ([]model.Target, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var targets []model.Target
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed target %q: want \"<number> <street>\"", line)
		}
		target := model.Target{
			AddressNumber: fields[0],
			StreetName:    strings.Join(fields[1:], " "),
		}

		if !seen[target.Address()] {
			seen[target.Address()] = true
			targets = append(targets, target)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return targets, nil
}
