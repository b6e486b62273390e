//go:build unix

package procstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"stemsep/internal/logging"
)

const (
	chunkSize          = 64 * 1024
	pollInterval       = 250 * time.Millisecond
	defaultGracePeriod = 10 * time.Second
)

// Option configures a Streamer.
type Option func(*Streamer)

// WithStdout sets the writer receiving the child's standard output.
func WithStdout(w io.Writer) Option {
	return func(s *Streamer) {
		if w != nil {
			s.stdout = w
		}
	}
}

// WithStderr sets the writer receiving the child's standard error.
func WithStderr(w io.Writer) Option {
	return func(s *Streamer) {
		if w != nil {
			s.stderr = w
		}
	}
}

// WithGracePeriod sets how long a cancelled child has between SIGTERM and SIGKILL.
func WithGracePeriod(d time.Duration) Option {
	return func(s *Streamer) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithLogger attaches a logger for lifecycle events. Child output never goes
// through it.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Streamer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Streamer is the production Executor.
type Streamer struct {
	stdout io.Writer
	stderr io.Writer
	grace  time.Duration
	logger *slog.Logger
}

// New constructs a Streamer writing to os.Stdout and os.Stderr by default.
func New(opts ...Option) *Streamer {
	s := &Streamer{
		stdout: os.Stdout,
		stderr: os.Stderr,
		grace:  defaultGracePeriod,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run is shorthand for New(opts...).Run.
func Run(ctx context.Context, name string, args []string, opts ...Option) (int, error) {
	return New(opts...).Run(ctx, name, args)
}

// Run starts name with args and relays its output until both streams close.
// A launch failure returns -1 and an error wrapping ErrLaunch. A nonzero exit
// returns the code with a nil error. When ctx is cancelled the child's process
// group receives SIGTERM, then SIGKILL after the grace period, and the context
// error is returned alongside whatever exit code was observed.
func (s *Streamer) Run(ctx context.Context, name string, args []string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return -1, fmt.Errorf("%w: empty command", ErrLaunch)
	}
	if err := ctx.Err(); err != nil {
		return -1, err
	}

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return -1, fmt.Errorf("%w: stdout pipe: %w", ErrLaunch, err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return -1, fmt.Errorf("%w: stderr pipe: %w", ErrLaunch, err)
	}
	defer stdoutR.Close()
	defer stderrR.Close()

	cmd := exec.Command(name, args...) //nolint:gosec
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	// A dedicated process group lets cancellation reach worker processes the
	// child spawns, which would otherwise keep the pipes open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	s.logger.Debug("starting external command",
		logging.String("command", name),
		logging.Strings("args", args),
	)
	startErr := cmd.Start()
	// The child holds its own copies; closing ours lets EOF arrive when it exits.
	stdoutW.Close()
	stderrW.Close()
	if startErr != nil {
		return -1, fmt.Errorf("%w: %s: %w", ErrLaunch, name, startErr)
	}

	streams := []*stream{
		newStream(stdoutR, s.stdout),
		newStream(stderrR, s.stderr),
	}
	for _, st := range streams {
		if err := unix.SetNonblock(st.fd, true); err != nil {
			s.terminate(cmd, unix.SIGKILL)
			_ = cmd.Wait()
			return -1, fmt.Errorf("set nonblocking: %w", err)
		}
	}

	relayErr := s.relay(ctx, cmd, streams)
	waitErr := cmd.Wait()

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return -1, fmt.Errorf("wait for %s: %w", name, waitErr)
		}
		code = exitErr.ExitCode()
	}
	if relayErr != nil {
		return code, relayErr
	}
	if err := ctx.Err(); err != nil {
		return code, err
	}
	return code, nil
}

// relay multiplexes both streams until each reports end of file. It also
// watches ctx and escalates signals on cancellation.
func (s *Streamer) relay(ctx context.Context, cmd *exec.Cmd, streams []*stream) error {
	var (
		termSent time.Time
		killSent time.Time
	)
	pollMillis := int(pollInterval / time.Millisecond)

	for {
		fds := make([]unix.PollFd, 0, len(streams))
		open := make([]*stream, 0, len(streams))
		for _, st := range streams {
			if st.eof {
				continue
			}
			fds = append(fds, unix.PollFd{Fd: int32(st.fd), Events: unix.POLLIN})
			open = append(open, st)
		}
		if len(open) == 0 {
			return nil
		}

		n, err := unix.Poll(fds, pollMillis)
		if err != nil && !errors.Is(err, unix.EINTR) {
			s.terminate(cmd, unix.SIGKILL)
			return fmt.Errorf("poll child output: %w", err)
		}
		if n > 0 {
			for i, pfd := range fds {
				if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
					continue
				}
				if err := open[i].drain(); err != nil {
					s.terminate(cmd, unix.SIGKILL)
					return err
				}
			}
		}

		if ctx.Err() == nil {
			continue
		}
		now := time.Now()
		switch {
		case termSent.IsZero():
			s.logger.Info("cancelling external command", logging.Int("pid", cmd.Process.Pid))
			s.terminate(cmd, unix.SIGTERM)
			termSent = now
		case killSent.IsZero() && now.Sub(termSent) >= s.grace:
			s.logger.Warn("external command ignored SIGTERM; killing",
				logging.Int("pid", cmd.Process.Pid),
				logging.String(logging.FieldEventType, "process_kill"),
			)
			s.terminate(cmd, unix.SIGKILL)
			killSent = now
		case !killSent.IsZero() && now.Sub(killSent) >= s.grace:
			// Something outside the process group still holds a pipe open.
			for _, st := range open {
				st.finish()
			}
			return nil
		}
	}
}

func (s *Streamer) terminate(cmd *exec.Cmd, sig unix.Signal) {
	if cmd.Process == nil {
		return
	}
	if err := unix.Kill(-cmd.Process.Pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		_ = cmd.Process.Signal(sig)
	}
}

// stream is one pipe read end and the decoding writer it feeds.
type stream struct {
	file *os.File
	fd   int
	out  *transform.Writer
	buf  []byte
	eof  bool
}

func newStream(file *os.File, dst io.Writer) *stream {
	return &stream{
		file: file,
		fd:   int(file.Fd()),
		out:  transform.NewWriter(dst, unicode.UTF8.NewDecoder()),
		buf:  make([]byte, chunkSize),
	}
}

// drain reads a single chunk. Reading one chunk per wake keeps both streams
// interleaved when the child writes to each continuously.
func (st *stream) drain() error {
	for {
		n, err := unix.Read(st.fd, st.buf)
		switch {
		case err == nil && n > 0:
			if _, werr := st.out.Write(st.buf[:n]); werr != nil {
				return fmt.Errorf("relay child output: %w", werr)
			}
			return nil
		case err == nil && n == 0:
			st.finish()
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil
		default:
			st.finish()
			return fmt.Errorf("read child output: %w", err)
		}
	}
}

// finish flushes any partial UTF-8 sequence and marks the stream closed.
func (st *stream) finish() {
	if st.eof {
		return
	}
	st.eof = true
	_ = st.out.Close()
}
