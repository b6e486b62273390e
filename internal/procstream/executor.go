package procstream

import (
	"context"
	"errors"
)

// ErrLaunch indicates the command could not be started at all.
var ErrLaunch = errors.New("launch failed")

// Executor runs one external command to completion and returns its exit code.
type Executor interface {
	Run(ctx context.Context, name string, args []string) (int, error)
}
