package flite

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
)

func TestListVoices(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"slt.flitevox", "awb.flitevox", "kal16.flitevox"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	b := New(config.FliteConfig{Binary: "flite", VoiceDir: dir}, tts.Runner{})
	got, err := b.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if want := []string{"awb", "kal16", "slt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListVoices() = %q, want %q", got, want)
	}
}

func TestListVoicesMissingDir(t *testing.T) {
	b := New(config.FliteConfig{Binary: "flite", VoiceDir: filepath.Join(t.TempDir(), "nope")}, tts.Runner{})
	if _, err := b.ListVoices(context.Background()); err == nil {
		t.Error("expected an error for a missing voice dir")
	}
}

func TestSynthesizeNoOutput(t *testing.T) {
	// `true` exits 0 without writing the clip.
	b := New(config.FliteConfig{Binary: "true", VoiceDir: t.TempDir()}, tts.Runner{})
	err := b.Synthesize(context.Background(), "slt", "word", filepath.Join(t.TempDir(), "2.wav"))
	if err == nil {
		t.Error("expected an error when no clip is written")
	}
}
