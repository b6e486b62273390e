package workflow

import (
	"errors"

	"stemsep/internal/metrics"
	"stemsep/internal/organizer"
)

// classifyFileFailure maps an organize error to a metrics label and an
// operator hint.
func classifyFileFailure(err error) (string, string) {
	switch {
	case errors.Is(err, organizer.ErrMissingModelOutput):
		return metrics.FileMissingOutput, "a model skipped this file; check that it decodes and is not silent"
	case errors.Is(err, organizer.ErrIncomplete):
		return metrics.FileIncomplete, "too few stems were produced; lower organizer.min_stems to accept partial sets"
	default:
		return metrics.FileError, "check output directory permissions and free space"
	}
}
