// Package voices collects the (backend, voice) pairs available to a
// session and picks one per word.
package voices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nadzzz/ransom/internal/tts"
)

// ErrEmptyRegistry is returned when no backend offered a single voice.
var ErrEmptyRegistry = errors.New("voice registry is empty: no backend offered a voice")

// Registry is the ordered list of voices of one session. Index order is
// what makes voice selection deterministic.
type Registry struct {
	voices []tts.Voice
}

// Build enumerates every backend in order. A backend that fails to
// enumerate is skipped with a warning unless the failure is fatal (see
// tts.IsFatal). An empty result is an error.
func Build(ctx context.Context, backends []tts.Backend) (*Registry, error) {
	var all []tts.Voice
	for _, b := range backends {
		ids, err := b.ListVoices(ctx)
		if err != nil {
			if tts.IsFatal(err) || ctx.Err() != nil {
				return nil, fmt.Errorf("enumerating %s voices: %w", b.Kind(), err)
			}
			slog.Warn("backend unavailable, skipping", "backend", b.Kind(), "error", err)
			continue
		}
		slog.Debug("backend voices", "backend", b.Kind(), "count", len(ids))
		for _, id := range ids {
			all = append(all, tts.Voice{Backend: b.Kind(), ID: id})
		}
	}
	return New(all)
}

// New wraps an explicit voice list.
func New(voices []tts.Voice) (*Registry, error) {
	if len(voices) == 0 {
		return nil, ErrEmptyRegistry
	}
	return &Registry{voices: append([]tts.Voice(nil), voices...)}, nil
}

// Len returns the number of voices.
func (r *Registry) Len() int { return len(r.voices) }

// Voices returns a copy of the voice list.
func (r *Registry) Voices() []tts.Voice {
	return append([]tts.Voice(nil), r.voices...)
}

// Index returns the registry slot for word: the sum of its code points
// modulo the registry size.
func (r *Registry) Index(word string) int {
	return int(CodePointSum(word) % uint64(len(r.voices)))
}

// Select returns the voice assigned to word.
func (r *Registry) Select(word string) tts.Voice {
	return r.voices[r.Index(word)]
}

// CodePointSum adds up the Unicode code points of s.
func CodePointSum(s string) uint64 {
	var sum uint64
	for _, c := range s {
		sum += uint64(c)
	}
	return sum
}
