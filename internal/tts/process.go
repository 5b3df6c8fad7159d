package tts

import (
	"bytes"
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
)

const (
	defaultTimeout   = 30 * time.Second
	defaultKillGrace = 2 * time.Second
	stderrTail       = 512
)

// ErrTimeout is wrapped by Run when a process outlives its timeout.
var ErrTimeout = errors.New("backend process timed out")

// Command describes one backend process invocation.
type Command struct {
	Name  string
	Args  []string
	Stdin string // fed by a dedicated writer; empty means no input
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes backend processes with a per-call timeout. When the
// timeout fires the process receives SIGTERM, then SIGKILL once KillGrace
// has passed.
type Runner struct {
	Timeout   time.Duration
	KillGrace time.Duration
}

func (r Runner) timeout() time.Duration {
	if r.Timeout <= 0 {
		return defaultTimeout
	}
	return r.Timeout
}

func (r Runner) killGrace() time.Duration {
	if r.KillGrace <= 0 {
		return defaultKillGrace
	}
	return r.KillGrace
}

// Run starts c, writes c.Stdin from its own goroutine and blocks only on
// process completion. Stdout and stderr are drained concurrently, so a
// chatty process can never wedge against a full pipe. It returns stdout.
func (r Runner) Run(ctx context.Context, c Command) ([]byte, error) {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, r.timeout())
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = r.killGrace()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	var stdin io.WriteCloser
	if c.Stdin != "" {
		var err error
		if stdin, err = cmd.StdinPipe(); err != nil {
			return nil, fmt.Errorf("creating stdin pipe for %s: %w", c.Name, err)
		}
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", c.Name, err)
	}

	written := make(chan error, 1)
	if stdin != nil {
		go func() {
			_, err := io.WriteString(stdin, c.Stdin)
			if cerr := stdin.Close(); err == nil {
				err = cerr
			}
			written <- err
		}()
	} else {
		written <- nil
	}

	waitErr := cmd.Wait()
	writeErr := <-written

	slog.Debug("backend process finished",
		"command", c.String(),
		"duration", time.Since(start),
		"stdout_bytes", stdout.Len(),
		"error", waitErr)

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil:
		return nil, fmt.Errorf("%s: %w after %v", c.Name, ErrTimeout, r.timeout())
	case parent.Err() != nil:
		return nil, fmt.Errorf("%s: %w", c.Name, parent.Err())
	case waitErr != nil:
		if msg := tail(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s failed: %w: %s", c.Name, waitErr, msg)
		}
		return nil, fmt.Errorf("%s failed: %w", c.Name, waitErr)
	case writeErr != nil && !isClosedPipe(writeErr):
		return nil, fmt.Errorf("writing stdin of %s: %w", c.Name, writeErr)
	}
	return stdout.Bytes(), nil
}

// isClosedPipe reports a write that lost the race against a process that
// exited without reading all of its input.
func isClosedPipe(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, syscall.EPIPE)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}

// CheckOutput reports whether path exists and is non-empty. Several
// backends exit 0 without writing anything for text they cannot speak.
func CheckOutput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("no output file: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("empty output file %s", path)
	}
	return nil
}
