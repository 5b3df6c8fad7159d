// Package render hands an assembled score to csound.
package render

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nadzzz/ransom/internal/config"
)

// Orchestra is the fixed instrument program every score is played with.
//
//go:embed ransom.orc
var Orchestra string

const (
	orchestraFile = "ransom.orc"
	scoreFile     = "ransom.sco"
	stderrTail    = 2048
)

// ErrNoOutput is returned when csound exits cleanly without writing audio.
var ErrNoOutput = errors.New("csound produced no output")

// Engine runs the csound command line.
type Engine struct {
	binary string
	flags  []string
}

// New creates an Engine from config.
func New(cfg config.RenderConfig) *Engine {
	return &Engine{binary: cfg.Binary, flags: append([]string(nil), cfg.Flags...)}
}

// Render writes the orchestra and score into dir and renders them to out
// as WAV. csound runs inside dir so the clip files named in the score
// resolve there. Engine failures are returned as-is, without retry.
func (e *Engine) Render(ctx context.Context, dir, score, out string) error {
	out, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, orchestraFile), []byte(Orchestra), 0o644); err != nil {
		return fmt.Errorf("writing orchestra: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, scoreFile), []byte(score), 0o644); err != nil {
		return fmt.Errorf("writing score: %w", err)
	}

	args := append([]string(nil), e.flags...)
	args = append(args, "-W", "-o", out, orchestraFile, scoreFile)

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr

	start := time.Now()
	slog.Debug("running csound", "args", args, "dir", dir)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("csound failed: %w: %s", err, tail(stderr.String()))
	}

	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w at %s: %s", ErrNoOutput, out, tail(stderr.String()))
	}

	slog.Info("render complete",
		"output", out,
		"size", humanize.Bytes(uint64(info.Size())),
		"duration", time.Since(start))
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}
