// Package rhvoice implements the tts.Backend contract on top of RHVoice-test.
package rhvoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
)

// Backend drives RHVoice-test. RHVoice cannot list its voices from the
// command line, so they come from configuration.
type Backend struct {
	binary string
	voices []string
	runner tts.Runner
}

// New creates an RHVoice backend from config.
func New(cfg config.RHVoiceConfig, runner tts.Runner) *Backend {
	return &Backend{
		binary: cfg.Binary,
		voices: append([]string(nil), cfg.Voices...),
		runner: runner,
	}
}

// Kind returns the backend identifier.
func (b *Backend) Kind() tts.Kind { return tts.KindRHVoice }

// ListVoices returns the configured voice list.
func (b *Backend) ListVoices(context.Context) ([]string, error) {
	if len(b.voices) == 0 {
		return nil, errors.New("no rhvoice voices configured")
	}
	return append([]string(nil), b.voices...), nil
}

// Synthesize runs `RHVoice-test -p <voice> -o <out>` with the text on stdin.
func (b *Backend) Synthesize(ctx context.Context, voice, text, outPath string) error {
	_, err := b.runner.Run(ctx, tts.Command{
		Name:  b.binary,
		Args:  []string{"-p", voice, "-o", outPath},
		Stdin: text,
	})
	if err != nil {
		return fmt.Errorf("rhvoice voice %s: %w", voice, err)
	}
	return tts.CheckOutput(outPath)
}
