// Package session runs one text-to-collage rendering from start to end.
//
// A session owns every resource it touches: the work dir holding the
// clips, and any backend server the voices depend on. Both are released
// on every exit path. Failures that abort a session are reported as
// *PhaseError naming the phase that failed.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/render"
	"github.com/nadzzz/ransom/internal/score"
	"github.com/nadzzz/ransom/internal/tts"
	"github.com/nadzzz/ransom/internal/tts/espeak"
	"github.com/nadzzz/ransom/internal/tts/festival"
	"github.com/nadzzz/ransom/internal/tts/flite"
	"github.com/nadzzz/ransom/internal/tts/mimic"
	"github.com/nadzzz/ransom/internal/tts/piper"
	"github.com/nadzzz/ransom/internal/tts/rhvoice"
	"github.com/nadzzz/ransom/internal/voices"
)

// ErrNoWords is returned for input without any token.
var ErrNoWords = errors.New("input text has no words")

// Server is a long-lived backend process shared by voice enumeration and
// synthesis within one session.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Renderer turns a score into an audio file. *render.Engine implements it.
type Renderer interface {
	Render(ctx context.Context, dir, score, out string) error
}

// Options holds the per-session settings.
type Options struct {
	WorkDir string // parent of the ephemeral work dir
	Workers int    // concurrent synthesis calls
	Probe   score.Prober
}

// Session is the central pipeline: registry, scan, render.
type Session struct {
	opts     Options
	router   *tts.Router
	servers  []Server
	renderer Renderer
}

// New creates a Session from explicit collaborators.
func New(opts Options, router *tts.Router, servers []Server, renderer Renderer) *Session {
	return &Session{opts: opts, router: router, servers: servers, renderer: renderer}
}

// FromConfig wires the configured backends, in configured order, and the
// csound engine.
func FromConfig(cfg *config.Config) *Session {
	runner := tts.Runner{Timeout: cfg.TTS.Timeout, KillGrace: cfg.TTS.KillGrace}

	var backends []tts.Backend
	var servers []Server
	for _, name := range cfg.TTS.Backends {
		switch tts.Kind(name) {
		case tts.KindFestival:
			backends = append(backends, festival.New(cfg.TTS.Festival, runner))
			servers = append(servers, festival.NewServer(cfg.TTS.Festival))
		case tts.KindEspeak:
			backends = append(backends, espeak.New(cfg.TTS.Espeak, runner))
		case tts.KindRHVoice:
			backends = append(backends, rhvoice.New(cfg.TTS.RHVoice, runner))
		case tts.KindFlite:
			backends = append(backends, flite.New(cfg.TTS.Flite, runner))
		case tts.KindMimic:
			backends = append(backends, mimic.New(cfg.TTS.Mimic, runner))
		case tts.KindPiper:
			backends = append(backends, piper.New(cfg.TTS.Piper, cfg.TTS.Timeout))
		default:
			slog.Warn("ignoring unknown backend", "backend", name)
		}
	}

	return New(Options{
		WorkDir: cfg.Session.WorkDir,
		Workers: cfg.Scan.Workers,
	}, tts.NewRouter(backends...), servers, render.New(cfg.Render))
}

// Result summarizes a finished session.
type Result struct {
	Output      string  `json:"output,omitempty"`
	Occurrences int     `json:"occurrences"`
	Words       int     `json:"words"`
	Fallbacks   int     `json:"fallbacks"`
	Voices      int     `json:"voices"`
	Seconds     float64 `json:"seconds"`
	Score       string  `json:"-"`
}

// Run renders text into the WAV file out.
func (s *Session) Run(ctx context.Context, text, out string) (*Result, error) {
	return s.run(ctx, text, func(ctx context.Context, dir string, sc *score.Score, res *Result) error {
		if err := s.renderer.Render(ctx, dir, sc.String(), out); err != nil {
			return &PhaseError{Phase: PhaseRender, Err: err}
		}
		res.Output = out
		return nil
	})
}

// Score runs the registry and scan phases and returns the score text
// without rendering it.
func (s *Session) Score(ctx context.Context, text string) (*Result, error) {
	return s.run(ctx, text, nil)
}

type finisher func(ctx context.Context, dir string, sc *score.Score, res *Result) error

func (s *Session) run(ctx context.Context, text string, finish finisher) (res *Result, err error) {
	start := time.Now()

	words := score.Tokenize(text)
	if len(words) == 0 {
		return nil, &PhaseError{Phase: PhaseScan, Err: ErrNoWords}
	}

	// Step 1: acquire the work dir; it goes away on every exit path.
	wd, err := render.NewWorkdir(s.opts.WorkDir)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseWorkdir, Err: err}
	}
	logger := slog.With("session", filepath.Base(wd.Path))
	defer func() {
		if cerr := wd.Close(); cerr != nil {
			err = errors.Join(err, &PhaseError{Phase: PhaseWorkdir, Err: cerr})
			res = nil
		}
	}()
	logger.Info("session started", "occurrences", len(words))

	// Step 2: one server lifecycle covers enumeration and synthesis.
	stop, err := s.startServers(ctx)
	defer stop()
	if err != nil {
		return nil, err
	}

	// Step 3: collect voices.
	registry, err := voices.Build(ctx, s.router.Backends())
	if err != nil {
		return nil, registryError(err)
	}
	logger.Info("voice registry built", "voices", registry.Len())

	// Step 4: synthesize and measure every distinct word.
	builder := score.NewBuilder(s.router, registry, s.opts.Probe, wd.Path, s.opts.Workers)
	plan, err := builder.Scan(ctx, words)
	if err != nil {
		return nil, &PhaseError{Phase: PhaseScan, Err: err}
	}
	sc, err := plan.Render()
	if err != nil {
		return nil, &PhaseError{Phase: PhaseScan, Err: err}
	}
	res = &Result{
		Occurrences: len(words),
		Words:       len(plan.Words()),
		Fallbacks:   plan.Fallbacks(),
		Voices:      registry.Len(),
		Seconds:     sc.Beat,
		Score:       sc.String(),
	}
	logger.Info("scan complete", "words", res.Words, "fallbacks", res.Fallbacks, "seconds", res.Seconds)

	// Step 5: render.
	if finish != nil {
		if err := finish(ctx, wd.Path, sc, res); err != nil {
			return nil, err
		}
	}

	logger.Info("session complete", "duration", time.Since(start))
	return res, nil
}

// Voices builds the registry alone, inside its own server lifecycle.
func (s *Session) Voices(ctx context.Context) ([]tts.Voice, error) {
	stop, err := s.startServers(ctx)
	defer stop()
	if err != nil {
		return nil, err
	}
	registry, err := voices.Build(ctx, s.router.Backends())
	if err != nil {
		return nil, registryError(err)
	}
	return registry.Voices(), nil
}

// startServers starts every server in order. The returned stop function
// stops the ones that started, in reverse order, and is always safe to call.
func (s *Session) startServers(ctx context.Context) (func(), error) {
	var started []Server
	stop := func() {
		for i := len(started) - 1; i >= 0; i-- {
			if err := started[i].Stop(); err != nil {
				slog.Warn("stopping backend server", "error", err)
			}
		}
	}
	for _, srv := range s.servers {
		if err := srv.Start(ctx); err != nil {
			return stop, registryError(err)
		}
		started = append(started, srv)
	}
	return stop, nil
}

func registryError(err error) error {
	pe := &PhaseError{Phase: PhaseRegistry, Err: err}
	var fe *tts.FatalError
	if errors.As(err, &fe) {
		pe.Backend = fe.Backend
	}
	return pe
}

// Phase names a step of a session.
type Phase string

const (
	PhaseWorkdir  Phase = "workdir"
	PhaseRegistry Phase = "registry"
	PhaseScan     Phase = "scan"
	PhaseRender   Phase = "render"
)

// PhaseError is a fatal session failure.
type PhaseError struct {
	Phase   Phase
	Backend tts.Kind // set when a backend caused the failure
	Err     error
}

func (e *PhaseError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s phase (%s): %v", e.Phase, e.Backend, e.Err)
	}
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
