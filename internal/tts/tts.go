// Package tts defines the contract between the word scheduler and the
// speech backends.
//
// A backend turns (voice, text) into a WAV file at a path chosen by the
// caller, and can enumerate the voice identifiers it offers. Backends are
// external programs or servers; this package only describes how ransom
// talks to them.
package tts

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies a speech backend.
type Kind string

const (
	KindFestival Kind = "festival"
	KindEspeak   Kind = "espeak"
	KindRHVoice  Kind = "rhvoice"
	KindFlite    Kind = "flite"
	KindMimic    Kind = "mimic"
	KindPiper    Kind = "piper"
)

// Voice is one (backend, voice identifier) pair. Immutable once collected.
type Voice struct {
	Backend Kind   `json:"backend" yaml:"backend"`
	ID      string `json:"id" yaml:"id"`
}

func (v Voice) String() string { return string(v.Backend) + "/" + v.ID }

// Backend is implemented by every speech backend adapter.
type Backend interface {
	// Kind returns the backend identifier.
	Kind() Kind

	// ListVoices returns the backend's voice identifiers in a stable order.
	ListVoices(ctx context.Context) ([]string, error)

	// Synthesize speaks text with voice and writes a WAV file to outPath.
	// A returned error only concerns this call; callers are expected to
	// degrade the affected word rather than abort.
	Synthesize(ctx context.Context, voice, text, outPath string) error
}

// ErrUnknownBackend is returned by a Router asked for a kind it does not hold.
var ErrUnknownBackend = errors.New("unknown backend")

// Router dispatches synthesis calls to the backend owning a voice.
type Router struct {
	backends map[Kind]Backend
	order    []Kind
}

// NewRouter indexes backends by kind, keeping their order for enumeration.
func NewRouter(backends ...Backend) *Router {
	r := &Router{backends: make(map[Kind]Backend, len(backends))}
	for _, b := range backends {
		if _, dup := r.backends[b.Kind()]; dup {
			continue
		}
		r.backends[b.Kind()] = b
		r.order = append(r.order, b.Kind())
	}
	return r
}

// Backends returns the registered backends in registration order.
func (r *Router) Backends() []Backend {
	out := make([]Backend, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.backends[k])
	}
	return out
}

// Synthesize forwards to the backend that owns voice.
func (r *Router) Synthesize(ctx context.Context, voice Voice, text, outPath string) error {
	b, ok := r.backends[voice.Backend]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBackend, voice.Backend)
	}
	return b.Synthesize(ctx, voice.ID, text, outPath)
}

// FatalError marks a backend failure that must abort the session, such
// as a shared server that could not bind its port.
type FatalError struct {
	Backend Kind
	Err     error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err (or anything it wraps) is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
