package festival

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
)

const (
	readyMarker = "Festival server started"
	bindMarker  = "bind failed"

	// drainTimeout bounds how long Stop waits for the log pipe to close.
	drainTimeout = 5 * time.Second
)

var (
	// ErrBind is returned when the server reports it could not bind its port.
	ErrBind = errors.New("festival server could not bind its port")

	// ErrExited is returned when the server exits before reporting ready.
	ErrExited = errors.New("festival server exited before becoming ready")
)

// Server manages a `festival --server` process. Start blocks until the
// server reports ready; from then on its output is drained in the
// background for as long as it runs. Stop is idempotent, and a stopped
// Server may be started again.
type Server struct {
	binary         string
	startupTimeout time.Duration

	mu      sync.Mutex
	cmd     *exec.Cmd
	drained chan struct{}
}

// NewServer creates a server handle from config. Nothing is started yet.
func NewServer(cfg config.FestivalConfig) *Server {
	timeout := cfg.StartupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Server{binary: cfg.Server, startupTimeout: timeout}
}

// Start launches the server and waits for the ready marker. A bind
// failure, early exit or startup timeout is returned as a *tts.FatalError.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return errors.New("festival server already running")
	}

	cmd := exec.Command(s.binary, "--server")
	setGroup(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fatal(fmt.Errorf("creating festival stdout pipe: %w", err))
	}
	cmd.Stderr = cmd.Stdout // the same pipe: bind errors go to stderr

	if err := cmd.Start(); err != nil {
		return fatal(fmt.Errorf("starting festival server: %w", err))
	}
	s.cmd = cmd
	s.drained = make(chan struct{})

	startup := make(chan error, 1)
	go drain(stdout, startup, s.drained)

	timer := time.NewTimer(s.startupTimeout)
	defer timer.Stop()

	select {
	case err = <-startup:
	case <-timer.C:
		err = fmt.Errorf("festival server not ready after %v", s.startupTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		_ = s.stopLocked()
		return fatal(err)
	}

	slog.Info("festival server ready", "pid", cmd.Process.Pid)
	return nil
}

// drain reads server output line by line. The first ready or bind marker
// is reported on startup; every line is logged until the pipe closes.
func drain(r io.Reader, startup chan<- error, done chan<- struct{}) {
	defer close(done)

	reported := false
	report := func(err error) {
		if !reported {
			reported = true
			startup <- err
		}
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		slog.Debug("festival server", "line", line)
		switch {
		case strings.Contains(line, readyMarker):
			report(nil)
		case strings.Contains(line, bindMarker):
			report(ErrBind)
		}
	}
	report(ErrExited)
}

// Stop terminates the server and waits for its output to be drained.
// Stopping a server that is not running is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Server) stopLocked() error {
	if s.cmd == nil {
		return nil
	}
	var err error
	if kerr := killGroup(s.cmd); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
		err = fmt.Errorf("killing festival server: %w", kerr)
	}
	// The pipe should be read to EOF before Wait closes it, but a child
	// outside the group may hold it open indefinitely.
	timer := time.NewTimer(drainTimeout)
	select {
	case <-s.drained:
	case <-timer.C:
		slog.Warn("festival server log still open after kill, closing it", "timeout", drainTimeout)
	}
	timer.Stop()
	_ = s.cmd.Wait() // reports "signal: killed"
	s.cmd = nil
	slog.Debug("festival server stopped")
	return err
}

func fatal(err error) error {
	return &tts.FatalError{Backend: tts.KindFestival, Err: err}
}
