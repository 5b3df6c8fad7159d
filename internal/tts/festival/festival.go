// Package festival implements the tts.Backend contract on top of a shared
// festival server.
//
// The server (see Server) is started once per session; every voice query
// and synthesis goes through festival_client against it. The server is not
// safe for concurrent clients, so Backend serializes its calls.
package festival

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
)

// Backend talks to a running festival server through festival_client.
type Backend struct {
	client string
	runner tts.Runner
	mu     sync.Mutex
}

// New creates a festival backend from config.
func New(cfg config.FestivalConfig, runner tts.Runner) *Backend {
	return &Backend{client: cfg.Client, runner: runner}
}

// Kind returns the backend identifier.
func (b *Backend) Kind() tts.Kind { return tts.KindFestival }

// ListVoices evaluates (voice.list) on the server.
func (b *Backend) ListVoices(ctx context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out, err := b.runner.Run(ctx, tts.Command{
		Name:  b.client,
		Args:  []string{"--withlisp"},
		Stdin: "(voice.list)\n",
	})
	if err != nil {
		return nil, fmt.Errorf("listing festival voices: %w", err)
	}
	return parseVoiceList(string(out))
}

// parseVoiceList extracts the symbols of a lisp list such as
// "(kal_diphone rab_diphone)".
func parseVoiceList(out string) ([]string, error) {
	open := strings.IndexByte(out, '(')
	end := strings.LastIndexByte(out, ')')
	if open < 0 || end < open {
		return nil, fmt.Errorf("unexpected festival voice list: %q", strings.TrimSpace(out))
	}
	return strings.Fields(out[open+1 : end]), nil
}

// Synthesize selects voice and speaks text into outPath.
func (b *Backend) Synthesize(ctx context.Context, voice, text, outPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.runner.Run(ctx, tts.Command{
		Name:  b.client,
		Args:  []string{"--output", outPath},
		Stdin: synthesisProgram(voice, text),
	})
	if err != nil {
		return fmt.Errorf("festival voice %s: %w", voice, err)
	}
	return tts.CheckOutput(outPath)
}

func synthesisProgram(voice, text string) string {
	return fmt.Sprintf("(voice_%s) (tts_textall %s nil)\n", voice, quote(text))
}

// quote renders text as a scheme string literal.
func quote(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(text) + `"`
}
