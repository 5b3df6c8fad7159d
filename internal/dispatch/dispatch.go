// Package dispatch serves render requests arriving over the network
// transports.
//
// Every request gets its own session, but sessions never overlap: the
// festival server binds a fixed port, so two concurrent sessions would
// fight over it. The dispatcher queues requests behind a single lock.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nadzzz/ransom/internal/message"
	"github.com/nadzzz/ransom/internal/score"
	"github.com/nadzzz/ransom/internal/session"
	"github.com/nadzzz/ransom/internal/tts"
)

// ErrNoText is returned for a request without text.
var ErrNoText = errors.New("request has no text")

// Runner is the session surface the dispatcher needs.
// *session.Session implements it.
type Runner interface {
	Run(ctx context.Context, text, out string) (*session.Result, error)
	Score(ctx context.Context, text string) (*session.Result, error)
	Voices(ctx context.Context) ([]tts.Voice, error)
}

// Dispatcher runs render requests one at a time.
type Dispatcher struct {
	newRunner func() Runner
	outDir    string

	mu  sync.Mutex
	seq atomic.Uint64
}

// New creates a Dispatcher. newRunner is called once per request; outDir
// holds the rendered file while it is read back.
func New(newRunner func() Runner, outDir string) *Dispatcher {
	return &Dispatcher{newRunner: newRunner, outDir: outDir}
}

// Handle processes a single request. Session failures are reported in the
// result; only a malformed request returns an error.
func (d *Dispatcher) Handle(ctx context.Context, req *message.RenderRequest) (*message.RenderResult, error) {
	if req.ID == "" {
		req.ID = "r" + strconv.FormatUint(d.seq.Add(1), 10)
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	if req.Text == "" {
		return nil, ErrNoText
	}
	mode := req.Mode
	if mode == "" {
		mode = message.ModeAudio
	}

	start := time.Now()
	logger := slog.With("request_id", req.ID, "source", req.Source, "mode", mode)
	result := &message.RenderResult{RequestID: req.ID}

	// Step 1: a sketch needs no backend and skips the queue.
	if mode == message.ModeSketch {
		words := score.Tokenize(req.Text)
		sc, err := score.Sketch(words).Render()
		if err != nil {
			return nil, err
		}
		result.Occurrences = len(words)
		result.Fallbacks = len(score.LastOccurrences(words))
		result.Words = result.Fallbacks
		result.Seconds = sc.Beat
		result.Score = sc.String()
		return result, nil
	}

	// Step 2: wait for the previous session to finish.
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger.Info("request started", "queued", time.Since(start))

	runner := d.newRunner()
	var (
		res *session.Result
		err error
	)
	switch mode {
	case message.ModeScore:
		res, err = runner.Score(ctx, req.Text)
	case message.ModeAudio:
		var r *rendered
		r, err = d.render(ctx, runner, req)
		if err == nil {
			res = r.Result
			result.SetAudioBytes(r.Audio)
		}
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		result.Error = err.Error()
		var pe *session.PhaseError
		if errors.As(err, &pe) {
			result.Phase = string(pe.Phase)
		}
		logger.Error("request failed", "error", err)
		return result, nil
	}

	result.Occurrences = res.Occurrences
	result.Words = res.Words
	result.Fallbacks = res.Fallbacks
	result.Voices = res.Voices
	result.Seconds = res.Seconds
	if mode == message.ModeScore {
		result.Score = res.Score
	}

	logger.Info("request complete", "duration", time.Since(start), "words", result.Words, "fallbacks", result.Fallbacks)
	return result, nil
}

type rendered struct {
	*session.Result
	Audio []byte
}

// render runs a full session into a scratch file and reads it back.
func (d *Dispatcher) render(ctx context.Context, runner Runner, req *message.RenderRequest) (*rendered, error) {
	if err := os.MkdirAll(d.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	out := filepath.Join(d.outDir, req.ID+".wav")
	defer os.Remove(out)

	res, err := runner.Run(ctx, req.Text, out)
	if err != nil {
		return nil, err
	}
	audio, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("reading rendered audio: %w", err)
	}
	return &rendered{Result: res, Audio: audio}, nil
}

// Voices lists the voice registry.
func (d *Dispatcher) Voices(ctx context.Context) (*message.VoiceList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	vs, err := d.newRunner().Voices(ctx)
	if err != nil {
		return nil, err
	}
	return VoiceList(vs), nil
}

// VoiceList converts registry voices to their wire form.
func VoiceList(vs []tts.Voice) *message.VoiceList {
	list := &message.VoiceList{Count: len(vs), Voices: make([]message.Voice, len(vs))}
	for i, v := range vs {
		list.Voices[i] = message.Voice{Backend: string(v.Backend), ID: v.ID}
	}
	return list
}
