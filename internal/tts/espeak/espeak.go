// Package espeak implements the tts.Backend contract on top of espeak-ng.
package espeak

import (
	"context"
	"fmt"
	"strings"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
)

// Backend drives the espeak-ng command line.
type Backend struct {
	binary   string
	language string
	runner   tts.Runner
}

// New creates an espeak-ng backend from config.
func New(cfg config.EspeakConfig, runner tts.Runner) *Backend {
	return &Backend{binary: cfg.Binary, language: cfg.Language, runner: runner}
}

// Kind returns the backend identifier.
func (b *Backend) Kind() tts.Kind { return tts.KindEspeak }

// ListVoices runs `espeak-ng --voices=<lang>` and returns the voice file
// column of every row.
func (b *Backend) ListVoices(ctx context.Context) ([]string, error) {
	out, err := b.runner.Run(ctx, tts.Command{
		Name: b.binary,
		Args: []string{"--voices=" + b.language},
	})
	if err != nil {
		return nil, fmt.Errorf("listing espeak voices: %w", err)
	}
	return parseVoices(string(out)), nil
}

// parseVoices reads the table printed by --voices:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
func parseVoices(out string) []string {
	lines := strings.Split(out, "\n")
	if len(lines) > 0 {
		lines = lines[1:] // header
	}
	var voices []string
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		voices = append(voices, fields[4])
	}
	return voices
}

// Synthesize writes a WAV file with `espeak-ng -v <voice> -w <out>`,
// feeding the text on stdin.
func (b *Backend) Synthesize(ctx context.Context, voice, text, outPath string) error {
	_, err := b.runner.Run(ctx, tts.Command{
		Name:  b.binary,
		Args:  []string{"-v", voice, "-w", outPath},
		Stdin: text,
	})
	if err != nil {
		return fmt.Errorf("espeak voice %s: %w", voice, err)
	}
	return tts.CheckOutput(outPath)
}
