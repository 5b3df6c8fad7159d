package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
	"github.com/nadzzz/ransom/internal/voices"
	"github.com/nadzzz/ransom/internal/wave"
)

type fakeBackend struct {
	kind    tts.Kind
	voices  []string
	listErr error
	fail    map[string]bool

	mu    sync.Mutex
	calls int
}

func (f *fakeBackend) Kind() tts.Kind { return f.kind }

func (f *fakeBackend) ListVoices(context.Context) ([]string, error) {
	return f.voices, f.listErr
}

func (f *fakeBackend) Synthesize(_ context.Context, _, text, outPath string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail[text] {
		return errors.New("cannot say " + text)
	}
	pcm := make([]byte, 2*500)
	return os.WriteFile(outPath, wave.FromPCM(pcm, wave.Format{SampleRate: 1000, Channels: 1, BytesPerSample: 2}), 0o644)
}

type fakeServer struct {
	startErr error
	starts   int
	stops    int
}

func (s *fakeServer) Start(context.Context) error {
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	return nil
}

func (s *fakeServer) Stop() error {
	s.stops++
	return nil
}

type fakeRenderer struct {
	err   error
	dir   string
	score string
	clips []string
}

func (r *fakeRenderer) Render(_ context.Context, dir, score, out string) error {
	r.dir, r.score = dir, score
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		r.clips = append(r.clips, e.Name())
	}
	if r.err != nil {
		return r.err
	}
	return os.WriteFile(out, []byte("RIFF"), 0o644)
}

func assertEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("work dir left behind in %s: %v", dir, entries)
	}
}

func TestRun(t *testing.T) {
	base := t.TempDir()
	backend := &fakeBackend{kind: tts.KindEspeak, voices: []string{"a", "b"}, fail: map[string]bool{"b": true}}
	server := &fakeServer{}
	renderer := &fakeRenderer{}
	s := New(Options{WorkDir: base, Workers: 2}, tts.NewRouter(backend), []Server{server}, renderer)

	out := filepath.Join(t.TempDir(), "note.wav")
	res, err := s.Run(context.Background(), "a a b", out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Output != out || res.Occurrences != 3 || res.Words != 2 || res.Fallbacks != 1 || res.Voices != 2 {
		t.Errorf("result = %+v", res)
	}
	// two clips of 0.5s and one tone of 1s
	if res.Seconds != 2 {
		t.Errorf("seconds = %v, want 2", res.Seconds)
	}
	if backend.calls != 2 {
		t.Errorf("expected 2 synthesis calls, got %d", backend.calls)
	}
	if server.starts != 1 || server.stops != 1 {
		t.Errorf("server lifecycle: %d starts, %d stops", server.starts, server.stops)
	}
	if renderer.score != res.Score {
		t.Error("renderer got a different score than reported")
	}
	if !strings.Contains(strings.Join(renderer.clips, " "), "3.wav") {
		t.Errorf("clip missing from work dir at render time: %v", renderer.clips)
	}
	if _, err := os.Stat(renderer.dir); !os.IsNotExist(err) {
		t.Errorf("work dir survived the session: %v", err)
	}
	assertEmpty(t, base)
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		backend  *fakeBackend
		server   *fakeServer
		renderer *fakeRenderer
		phase    Phase
		kind     tts.Kind
		cause    error
	}{
		{
			name:    "no words",
			text:    "",
			backend: &fakeBackend{kind: tts.KindEspeak, voices: []string{"a"}},
			phase:   PhaseScan,
			cause:   ErrNoWords,
		},
		{
			name:    "empty registry",
			text:    "a b",
			backend: &fakeBackend{kind: tts.KindEspeak, listErr: errors.New("not installed")},
			phase:   PhaseRegistry,
			cause:   voices.ErrEmptyRegistry,
		},
		{
			name:    "server bind failure",
			text:    "a b",
			backend: &fakeBackend{kind: tts.KindEspeak, voices: []string{"a"}},
			server:  &fakeServer{startErr: &tts.FatalError{Backend: tts.KindFestival, Err: errors.New("bind failed")}},
			phase:   PhaseRegistry,
			kind:    tts.KindFestival,
		},
		{
			name:     "csound failure",
			text:     "a b",
			backend:  &fakeBackend{kind: tts.KindEspeak, voices: []string{"a"}},
			renderer: &fakeRenderer{err: errors.New("csound failed")},
			phase:    PhaseRender,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			var servers []Server
			if tt.server != nil {
				servers = append(servers, tt.server)
			}
			renderer := tt.renderer
			if renderer == nil {
				renderer = &fakeRenderer{}
			}
			s := New(Options{WorkDir: base, Workers: 1}, tts.NewRouter(tt.backend), servers, renderer)

			res, err := s.Run(context.Background(), tt.text, filepath.Join(t.TempDir(), "out.wav"))
			if res != nil {
				t.Errorf("failed run returned a result: %+v", res)
			}
			var pe *PhaseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected a *PhaseError, got %v", err)
			}
			if pe.Phase != tt.phase {
				t.Errorf("phase = %s, want %s", pe.Phase, tt.phase)
			}
			if pe.Backend != tt.kind {
				t.Errorf("backend = %q, want %q", pe.Backend, tt.kind)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("error %v does not wrap %v", err, tt.cause)
			}
			assertEmpty(t, base)
		})
	}
}

func TestRunStopsStartedServers(t *testing.T) {
	first := &fakeServer{}
	second := &fakeServer{startErr: &tts.FatalError{Backend: tts.KindFestival, Err: errors.New("timeout")}}
	backend := &fakeBackend{kind: tts.KindEspeak, voices: []string{"a"}}
	s := New(Options{WorkDir: t.TempDir()}, tts.NewRouter(backend), []Server{first, second}, &fakeRenderer{})

	if _, err := s.Run(context.Background(), "a", filepath.Join(t.TempDir(), "out.wav")); err == nil {
		t.Fatal("expected an error")
	}
	if first.starts != 1 || first.stops != 1 {
		t.Errorf("first server: %d starts, %d stops", first.starts, first.stops)
	}
	if second.stops != 0 {
		t.Error("server that never started was stopped")
	}
}

func TestRunBadWorkDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	backend := &fakeBackend{kind: tts.KindEspeak, voices: []string{"a"}}
	s := New(Options{WorkDir: file}, tts.NewRouter(backend), nil, &fakeRenderer{})

	_, err := s.Run(context.Background(), "a", filepath.Join(t.TempDir(), "out.wav"))
	var pe *PhaseError
	if !errors.As(err, &pe) || pe.Phase != PhaseWorkdir {
		t.Fatalf("expected a workdir phase error, got %v", err)
	}
}

func TestScore(t *testing.T) {
	renderer := &fakeRenderer{}
	backend := &fakeBackend{kind: tts.KindEspeak, voices: []string{"a"}}
	s := New(Options{WorkDir: t.TempDir()}, tts.NewRouter(backend), nil, renderer)

	res, err := s.Score(context.Background(), "ransom note")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if renderer.dir != "" {
		t.Error("Score ran the renderer")
	}
	if !strings.HasSuffix(res.Score, "e\n") || !strings.Contains(res.Score, `"2.wav"`) {
		t.Errorf("unexpected score:\n%s", res.Score)
	}
	if res.Output != "" {
		t.Errorf("Score reported output %q", res.Output)
	}
}

func TestVoices(t *testing.T) {
	server := &fakeServer{}
	s := New(Options{}, tts.NewRouter(
		&fakeBackend{kind: tts.KindFestival, voices: []string{"kal_diphone"}},
		&fakeBackend{kind: tts.KindEspeak, voices: []string{"gmw/en", "gmw/en-US"}},
	), []Server{server}, &fakeRenderer{})

	vs, err := s.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(vs) != 3 || vs[0].Backend != tts.KindFestival || vs[2].ID != "gmw/en-US" {
		t.Errorf("Voices() = %v", vs)
	}
	if server.starts != 1 || server.stops != 1 {
		t.Errorf("server lifecycle: %d starts, %d stops", server.starts, server.stops)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		Scan: config.ScanConfig{Workers: 3},
		TTS: config.TTSConfig{
			Backends: []string{"rhvoice", "festival", "piper"},
			RHVoice:  config.RHVoiceConfig{Binary: "RHVoice-test", Voices: []string{"slt"}},
			Festival: config.FestivalConfig{Server: "festival", Client: "festival_client"},
			Piper:    config.PiperConfig{Endpoint: "localhost:10200"},
		},
		Render: config.RenderConfig{Binary: "csound"},
	}
	s := FromConfig(cfg)

	var kinds []tts.Kind
	for _, b := range s.router.Backends() {
		kinds = append(kinds, b.Kind())
	}
	want := []tts.Kind{tts.KindRHVoice, tts.KindFestival, tts.KindPiper}
	if len(kinds) != len(want) {
		t.Fatalf("backends = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("backend %d = %s, want %s", i, kinds[i], want[i])
		}
	}
	if len(s.servers) != 1 {
		t.Errorf("expected one festival server, got %d", len(s.servers))
	}
	if s.opts.Workers != 3 {
		t.Errorf("workers = %d", s.opts.Workers)
	}
}

func TestPhaseErrorMessage(t *testing.T) {
	err := &PhaseError{Phase: PhaseRegistry, Backend: tts.KindFestival, Err: errors.New("bind failed")}
	if got := err.Error(); got != "registry phase (festival): bind failed" {
		t.Errorf("Error() = %q", got)
	}
	err = &PhaseError{Phase: PhaseRender, Err: errors.New("csound failed")}
	if got := err.Error(); got != "render phase: csound failed" {
		t.Errorf("Error() = %q", got)
	}
}
