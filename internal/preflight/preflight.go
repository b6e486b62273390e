package preflight

import (
	"context"
	"fmt"

	"stemsep/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks a run cannot proceed without.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryReadable("Input directory", cfg.Paths.InputDir),
		CheckDirectoryCreatable("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryCreatable("Scratch directory", cfg.Paths.TempDir),
	}
	if cfg.Paths.LogDir != "" && cfg.Logging.File {
		results = append(results, CheckDirectoryCreatable("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckProgress(ctx, cfg))

	for _, status := range CheckSystemDeps(cfg) {
		if status.Optional {
			continue
		}
		detail := status.Command
		if status.Detail != "" {
			detail = status.Detail
		}
		results = append(results, Result{Name: status.Name, Passed: status.Available, Detail: detail})
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err summarizes failed results as an error, or nil when all passed.
func Err(results []Result) error {
	failed := Failed(results)
	switch len(failed) {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("preflight %s: %s", failed[0].Name, failed[0].Detail)
	default:
		return fmt.Errorf("preflight: %d checks failed; first: %s: %s", len(failed), failed[0].Name, failed[0].Detail)
	}
}
