package workflow

import (
	"time"

	"stemsep/internal/organizer"
)

// FileOrganizer merges model output for one file.
type FileOrganizer interface {
	Organize(tempDir, base string) (organizer.Result, error)
}

// FileFailure records why a file was left unprocessed.
type FileFailure struct {
	Name   string
	Batch  int
	Reason string
}

// PartialFile records a file marked processed with some stems absent.
type PartialFile struct {
	Name    string
	Missing []string
}

// BatchResult describes one batch.
type BatchResult struct {
	// Index is 1-based.
	Index     int
	Start     int
	Files     int
	Organized int
	Failed    bool
	Cancelled bool
	Err       error
}

// Summary reports what a run did.
type Summary struct {
	RunID          string
	Discovered     int
	Batches        int
	BatchesFailed  int
	FilesOrganized int
	FilesFailed    int
	// Processed is the cumulative size of the processed set after the run.
	Processed int
	Failures  []FileFailure
	Partial   []PartialFile
	Cancelled bool
	Duration  time.Duration
}
