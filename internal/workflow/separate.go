package workflow

import (
	"context"

	"stemsep/internal/config"
)

// Separate runs the default workflow over inputDir, writing stems and progress
// under outputDir. A zero batchSize keeps the default of five; negative sizes
// are rejected.
func Separate(ctx context.Context, inputDir, outputDir string, batchSize int, opts ...ManagerOption) (Summary, error) {
	cfg := config.Default()
	cfg.Paths.InputDir = inputDir
	cfg.Paths.OutputDir = outputDir
	if batchSize != 0 {
		cfg.Separation.BatchSize = batchSize
	}
	if err := cfg.Finalize(); err != nil {
		return Summary{}, err
	}
	m, err := NewManager(&cfg, opts...)
	if err != nil {
		return Summary{}, err
	}
	return m.Run(ctx)
}
