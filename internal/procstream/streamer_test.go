//go:build unix

package procstream_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"stemsep/internal/procstream"
)

// lockedBuffer guards a buffer written from the relay and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func run(t *testing.T, ctx context.Context, script string, opts ...procstream.Option) (int, *lockedBuffer, *lockedBuffer, error) {
	t.Helper()
	stdout := &lockedBuffer{}
	stderr := &lockedBuffer{}
	opts = append([]procstream.Option{procstream.WithStdout(stdout), procstream.WithStderr(stderr)}, opts...)
	code, err := procstream.Run(ctx, "/bin/sh", []string{"-c", script}, opts...)
	return code, stdout, stderr, err
}

func TestRunRelaysBothStreams(t *testing.T) {
	code, stdout, stderr, err := run(t, context.Background(), `echo out; echo err 1>&2; echo again`)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if stdout.String() != "out\nagain\n" {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
	if stderr.String() != "err\n" {
		t.Fatalf("unexpected stderr %q", stderr.String())
	}
}

func TestRunDoesNotDeadlockOnLargeOutput(t *testing.T) {
	// Each stream carries far more than a pipe buffer while the other is also busy.
	script := `i=0; while [ $i -lt 4000 ]; do echo "stderr line $i padding padding padding" 1>&2; echo "stdout line $i padding padding padding"; i=$((i+1)); done`
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	code, stdout, stderr, err := run(t, ctx, script)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if got := strings.Count(stdout.String(), "\n"); got != 4000 {
		t.Fatalf("expected 4000 stdout lines, got %d", got)
	}
	if got := strings.Count(stderr.String(), "\n"); got != 4000 {
		t.Fatalf("expected 4000 stderr lines, got %d", got)
	}
}

func TestRunReturnsNonzeroExit(t *testing.T) {
	code, _, _, err := run(t, context.Background(), `echo failing 1>&2; exit 3`)
	if err != nil {
		t.Fatalf("nonzero exit should not be an error, got %v", err)
	}
	if code != 3 {
		t.Fatalf("expected exit 3, got %d", code)
	}
}

func TestRunLaunchFailure(t *testing.T) {
	code, err := procstream.Run(context.Background(), "/nonexistent/stemsep-binary", nil)
	if !errors.Is(err, procstream.ErrLaunch) {
		t.Fatalf("expected ErrLaunch, got %v", err)
	}
	if code != -1 {
		t.Fatalf("expected -1 exit code, got %d", code)
	}
}

func TestRunReplacesInvalidUTF8(t *testing.T) {
	code, stdout, _, err := run(t, context.Background(), `printf 'ok\377done'`)
	if err != nil || code != 0 {
		t.Fatalf("Run = %d, %v", code, err)
	}
	if stdout.String() != "ok\uFFFDdone" {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
}

func TestRunCancelTerminatesChild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	_, _, _, err := run(t, ctx, `sleep 30`)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("cancellation took too long: %v", elapsed)
	}
}

func TestRunCancelKillsChildIgnoringTerm(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	_, _, _, err := run(t, ctx, `trap '' TERM; while true; do sleep 1; done`, procstream.WithGracePeriod(500*time.Millisecond))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("kill escalation took too long: %v", elapsed)
	}
}

func TestRunRejectsAlreadyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code, err := procstream.Run(ctx, "/bin/sh", []string{"-c", "true"})
	if !errors.Is(err, context.Canceled) || code != -1 {
		t.Fatalf("Run = %d, %v", code, err)
	}
}
