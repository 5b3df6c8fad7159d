package dispatch

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nadzzz/ransom/internal/message"
	"github.com/nadzzz/ransom/internal/session"
	"github.com/nadzzz/ransom/internal/tts"
)

type fakeRunner struct {
	err    error
	active *atomic.Int32
	peak   *atomic.Int32
	outs   *[]string
	mu     *sync.Mutex
}

func (f *fakeRunner) enter() func() {
	if f.active == nil {
		return func() {}
	}
	n := f.active.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return func() { f.active.Add(-1) }
}

func (f *fakeRunner) Run(_ context.Context, text, out string) (*session.Result, error) {
	defer f.enter()()
	if f.err != nil {
		return nil, f.err
	}
	if f.outs != nil {
		f.mu.Lock()
		*f.outs = append(*f.outs, out)
		f.mu.Unlock()
	}
	if err := os.WriteFile(out, []byte("RIFF"+text), 0o644); err != nil {
		return nil, err
	}
	return &session.Result{Output: out, Occurrences: 2, Words: 2, Voices: 1, Seconds: 1.5}, nil
}

func (f *fakeRunner) Score(context.Context, string) (*session.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &session.Result{Occurrences: 1, Words: 1, Score: "; ransom score\ne\n"}, nil
}

func (f *fakeRunner) Voices(context.Context) ([]tts.Voice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []tts.Voice{{Backend: tts.KindEspeak, ID: "gmw/en"}, {Backend: tts.KindFlite, ID: "slt"}}, nil
}

func newDispatcher(t *testing.T, r *fakeRunner) *Dispatcher {
	t.Helper()
	return New(func() Runner { return r }, t.TempDir())
}

func TestHandleAudio(t *testing.T) {
	var outs []string
	r := &fakeRunner{outs: &outs, mu: &sync.Mutex{}}
	d := newDispatcher(t, r)

	res, err := d.Handle(context.Background(), &message.RenderRequest{Text: "hi there"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("unexpected failure: %s", res.Error)
	}
	if res.RequestID == "" {
		t.Error("no request id assigned")
	}
	audio, err := res.AudioBytes()
	if err != nil || string(audio) != "RIFFhi there" {
		t.Errorf("audio = %q, %v", audio, err)
	}
	if res.ContentType != "audio/wav" || res.Seconds != 1.5 || res.Words != 2 {
		t.Errorf("result = %+v", res)
	}
	if res.Score != "" {
		t.Error("audio result carries a score")
	}
	if _, err := os.Stat(outs[0]); !os.IsNotExist(err) {
		t.Errorf("rendered file not cleaned up: %v", err)
	}
}

func TestHandleScore(t *testing.T) {
	d := newDispatcher(t, &fakeRunner{})
	res, err := d.Handle(context.Background(), &message.RenderRequest{Text: "hi", Mode: message.ModeScore})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Score != "; ransom score\ne\n" || res.Audio != "" {
		t.Errorf("result = %+v", res)
	}
}

func TestHandleSketch(t *testing.T) {
	d := New(func() Runner {
		t.Fatal("sketch created a session")
		return nil
	}, t.TempDir())

	res, err := d.Handle(context.Background(), &message.RenderRequest{Text: "a a b", Mode: message.ModeSketch})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if res.Occurrences != 3 || res.Words != 2 || res.Fallbacks != 2 || res.Seconds != 3 {
		t.Errorf("result = %+v", res)
	}
	if !strings.Contains(res.Score, "i3 ") {
		t.Errorf("sketch score has no tones:\n%s", res.Score)
	}
}

func TestHandleFailures(t *testing.T) {
	t.Run("no text", func(t *testing.T) {
		_, err := newDispatcher(t, &fakeRunner{}).Handle(context.Background(), &message.RenderRequest{})
		if !errors.Is(err, ErrNoText) {
			t.Errorf("expected ErrNoText, got %v", err)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := newDispatcher(t, &fakeRunner{}).Handle(context.Background(), &message.RenderRequest{Text: "a", Mode: "video"})
		if err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("session failure", func(t *testing.T) {
		r := &fakeRunner{err: &session.PhaseError{Phase: session.PhaseRender, Err: errors.New("csound failed")}}
		res, err := newDispatcher(t, r).Handle(context.Background(), &message.RenderRequest{Text: "a"})
		if err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if res.Phase != "render" || !strings.Contains(res.Error, "csound failed") {
			t.Errorf("result = %+v", res)
		}
	})
}

func TestHandleSerializesSessions(t *testing.T) {
	r := &fakeRunner{active: &atomic.Int32{}, peak: &atomic.Int32{}}
	d := newDispatcher(t, r)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Handle(context.Background(), &message.RenderRequest{Text: "a"}); err != nil {
				t.Errorf("Handle: %v", err)
			}
		}()
	}
	wg.Wait()

	if p := r.peak.Load(); p != 1 {
		t.Errorf("%d sessions overlapped", p)
	}
}

func TestVoices(t *testing.T) {
	list, err := newDispatcher(t, &fakeRunner{}).Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if list.Count != 2 || list.Voices[1] != (message.Voice{Backend: "flite", ID: "slt"}) {
		t.Errorf("Voices() = %+v", list)
	}
}
