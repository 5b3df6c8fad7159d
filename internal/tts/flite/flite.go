// Package flite implements the tts.Backend contract on top of flite.
package flite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
)

// Backend drives the flite command line. Voices are the files found in
// the configured voice directory.
type Backend struct {
	binary   string
	voiceDir string
	runner   tts.Runner
}

// New creates a flite backend from config.
func New(cfg config.FliteConfig, runner tts.Runner) *Backend {
	return &Backend{binary: cfg.Binary, voiceDir: cfg.VoiceDir, runner: runner}
}

// Kind returns the backend identifier.
func (b *Backend) Kind() tts.Kind { return tts.KindFlite }

// ListVoices returns the file stems in the voice directory, sorted.
func (b *Backend) ListVoices(context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.voiceDir)
	if err != nil {
		return nil, fmt.Errorf("reading flite voice dir: %w", err)
	}
	var voices []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		voices = append(voices, strings.TrimSuffix(name, filepath.Ext(name)))
	}
	sort.Strings(voices)
	return voices, nil
}

// Synthesize runs `flite -t <text> -voicedir <dir> -voice <voice> -o <out>`.
func (b *Backend) Synthesize(ctx context.Context, voice, text, outPath string) error {
	_, err := b.runner.Run(ctx, tts.Command{
		Name: b.binary,
		Args: []string{"-t", text, "-voicedir", b.voiceDir, "-voice", voice, "-o", outPath},
	})
	if err != nil {
		return fmt.Errorf("flite voice %s: %w", voice, err)
	}
	return tts.CheckOutput(outPath)
}
