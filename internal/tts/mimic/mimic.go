// Package mimic implements the tts.Backend contract on top of mimic.
package mimic

import (
	"context"
	"fmt"
	"strings"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
)

// Backend drives the mimic command line.
type Backend struct {
	binary string
	runner tts.Runner
}

// New creates a mimic backend from config.
func New(cfg config.MimicConfig, runner tts.Runner) *Backend {
	return &Backend{binary: cfg.Binary, runner: runner}
}

// Kind returns the backend identifier.
func (b *Backend) Kind() tts.Kind { return tts.KindMimic }

// ListVoices parses the output of `mimic -lv`:
//
//	Voices available: ap slt slt_hts kal awb kal16 rms awb_time
func (b *Backend) ListVoices(ctx context.Context) ([]string, error) {
	out, err := b.runner.Run(ctx, tts.Command{Name: b.binary, Args: []string{"-lv"}})
	if err != nil {
		return nil, fmt.Errorf("listing mimic voices: %w", err)
	}
	return parseVoices(string(out))
}

func parseVoices(out string) ([]string, error) {
	_, list, ok := strings.Cut(out, ": ")
	if !ok {
		return nil, fmt.Errorf("unexpected mimic voice list: %q", strings.TrimSpace(out))
	}
	return strings.Fields(list), nil
}

// Synthesize runs `mimic -t <text> -voice <voice> -o <out>`.
func (b *Backend) Synthesize(ctx context.Context, voice, text, outPath string) error {
	_, err := b.runner.Run(ctx, tts.Command{
		Name: b.binary,
		Args: []string{"-t", text, "-voice", voice, "-o", outPath},
	})
	if err != nil {
		return fmt.Errorf("mimic voice %s: %w", voice, err)
	}
	return tts.CheckOutput(outPath)
}
