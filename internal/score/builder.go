// Package score turns a word sequence into a csound score.
//
// Building a score has two phases. Scan synthesizes one clip per distinct
// word and measures it; Render walks the original word sequence and lays
// the clips (or fallback tones for words without a clip) end to end on a
// single timeline. A Plan moves from scanned to rendered exactly once.
package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/ransom/internal/tts"
	"github.com/nadzzz/ransom/internal/wave"
)

var (
	// ErrEmptyWord marks the empty token, which is never synthesized.
	ErrEmptyWord = errors.New("empty word")

	// ErrRendered is returned by a second Render on the same Plan.
	ErrRendered = errors.New("plan already rendered")

	// ErrDryRun marks words of a sketched plan.
	ErrDryRun = errors.New("dry run")
)

// Synthesizer writes a WAV clip of text spoken by voice to outPath.
// *tts.Router implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, voice tts.Voice, text, outPath string) error
}

// VoiceSelector assigns a voice to a word. *voices.Registry implements it.
type VoiceSelector interface {
	Select(word string) tts.Voice
}

// Prober reads the timing of a clip. wave.ReadInfo is the production prober.
type Prober func(path string) (wave.Info, error)

// Clip is a measured recording of one distinct word.
type Clip struct {
	File     string  // name inside the work dir
	Duration float64 // seconds
	wave.Info
}

// Word is the record kept for one distinct word.
type Word struct {
	Text  string
	ID    int       // FirstID + index of the last occurrence
	Voice tts.Voice // assigned voice
	Clip  *Clip     // nil when the word falls back to a tone
	Err   error     // why Clip is nil
}

// Fallback reports whether the word is rendered as a tone.
func (w *Word) Fallback() bool { return w.Clip == nil }

// Builder runs the scan phase against a set of backends.
type Builder struct {
	synth   Synthesizer
	voices  VoiceSelector
	probe   Prober
	workDir string
	workers int
}

// NewBuilder creates a Builder writing clips into workDir with at most
// workers concurrent synthesis calls. A nil probe means wave.ReadInfo.
func NewBuilder(synth Synthesizer, voices VoiceSelector, probe Prober, workDir string, workers int) *Builder {
	if probe == nil {
		probe = wave.ReadInfo
	}
	if workers < 1 {
		workers = 1
	}
	return &Builder{synth: synth, voices: voices, probe: probe, workDir: workDir, workers: workers}
}

// Scan synthesizes and measures every distinct word of words. Per-word
// failures degrade that word to a fallback tone; only cancellation of ctx
// aborts the scan.
func (b *Builder) Scan(ctx context.Context, words []string) (*Plan, error) {
	last := LastOccurrences(words)

	records := make([]*Word, 0, len(last))
	for text, i := range last {
		records = append(records, &Word{
			Text:  text,
			ID:    i + FirstID,
			Voice: b.voices.Select(text),
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	// Every goroutine owns exactly one record and one clip path.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, w := range records {
		if w.Text == "" {
			w.Err = ErrEmptyWord
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w.Clip, w.Err = b.record(gctx, w)
			if w.Err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	for _, w := range records {
		logger := slog.With("word", w.Text, "id", w.ID, "voice", w.Voice.String())
		switch {
		case errors.Is(w.Err, ErrEmptyWord):
			logger.Debug("empty token, using fallback tone")
		case w.Err != nil:
			logger.Warn("synthesis failed, using fallback tone", "error", w.Err)
		default:
			logger.Debug("clip ready", "seconds", w.Clip.Duration, "sample_rate", w.Clip.SampleRate)
		}
	}

	return newPlan(words, records), nil
}

// Sketch returns a plan without synthesizing anything: every word falls
// back to a tone. Ids are assigned exactly as Scan assigns them.
func Sketch(words []string) *Plan {
	last := LastOccurrences(words)
	records := make([]*Word, 0, len(last))
	for text, i := range last {
		records = append(records, &Word{Text: text, ID: i + FirstID, Err: ErrDryRun})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return newPlan(words, records)
}

// record synthesizes w into its clip file and measures it.
func (b *Builder) record(ctx context.Context, w *Word) (*Clip, error) {
	file := strconv.Itoa(w.ID) + ".wav"
	path := filepath.Join(b.workDir, file)

	if err := b.synth.Synthesize(ctx, w.Voice, w.Text, path); err != nil {
		return nil, err
	}
	info, err := b.probe(path)
	if err != nil {
		return nil, err
	}
	return &Clip{File: file, Duration: info.Seconds(), Info: info}, nil
}

// Plan is the result of a scan: the original word sequence and one
// record per distinct word.
type Plan struct {
	occurrences []string
	words       map[string]*Word
	order       []*Word // by ID
	rendered    bool
}

func newPlan(occurrences []string, records []*Word) *Plan {
	p := &Plan{
		occurrences: append([]string(nil), occurrences...),
		words:       make(map[string]*Word, len(records)),
		order:       records,
	}
	for _, w := range records {
		p.words[w.Text] = w
	}
	return p
}

// Words returns a copy of the distinct word records ordered by ID.
func (p *Plan) Words() []Word {
	out := make([]Word, len(p.order))
	for i, w := range p.order {
		out[i] = *w
	}
	return out
}

// Fallbacks returns the number of distinct words rendered as tones.
func (p *Plan) Fallbacks() int {
	n := 0
	for _, w := range p.order {
		if w.Fallback() {
			n++
		}
	}
	return n
}

// Render lays the occurrences out in their original order. The beat
// cursor only moves forward: by the clip duration for words with a clip,
// by ToneLength for the rest.
func (p *Plan) Render() (*Score, error) {
	if p.rendered {
		return nil, ErrRendered
	}
	p.rendered = true

	s := &Score{Tables: make([]Table, 0, len(p.order))}
	for _, w := range p.order {
		s.Tables = append(s.Tables, Table{ID: w.ID, Clip: w.Clip})
	}

	beat := 0.0
	for _, text := range p.occurrences {
		w := p.words[text]
		pitch := Pitch(text)

		if w.Clip != nil {
			s.Events = append(s.Events, Event{
				Instr:  InstrClip,
				Start:  beat,
				Length: w.Clip.Duration,
				Table:  w.ID,
				Params: []float64{pitch},
			})
			beat += w.Clip.Duration
			continue
		}

		length := ToneLength(text)
		start, mid, end := ToneControlPoints(pitch, length)
		s.Events = append(s.Events, Event{
			Instr:  InstrTone,
			Start:  beat,
			Length: length,
			Table:  w.ID,
			Params: []float64{float64(start), float64(mid), float64(end)},
		})
		beat += length
	}
	s.Beat = beat
	return s, nil
}
