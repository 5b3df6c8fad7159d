package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nadzzz/ransom/internal/message"
)

func TestReadText(t *testing.T) {
	file := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(file, []byte("from a file\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		file    string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "args", args: []string{"every", "word"}, want: "every word"},
		{name: "file", file: file, want: "from a file"},
		{name: "stdin", stdin: "piped in\n", want: "piped in"},
		{name: "stdin dash", file: "-", stdin: "dash\n\n", want: "dash"},
		{name: "inner newlines kept", stdin: "a\nb\n", want: "a\nb"},
		{name: "both", args: []string{"a"}, file: file, wantErr: true},
		{name: "missing file", file: filepath.Join(t.TempDir(), "nope"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readText(tt.args, tt.file, strings.NewReader(tt.stdin))
			if tt.wantErr {
				if err == nil {
					t.Errorf("readText() = %q, want an error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("readText: %v", err)
			}
			if got != tt.want {
				t.Errorf("readText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteVoices(t *testing.T) {
	list := &message.VoiceList{Count: 2, Voices: []message.Voice{
		{Backend: "festival", ID: "kal_diphone"},
		{Backend: "espeak", ID: "gmw/en"},
	}}

	tests := []struct {
		format string
		want   []string
	}{
		{format: "text", want: []string{"INDEX", "0  ", "festival", "1  ", "gmw/en"}},
		{format: "json", want: []string{`"count": 2`, `"backend": "espeak"`}},
		{format: "yaml", want: []string{"count: 2", "- backend: festival", "  id: kal_diphone"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeVoices(&buf, tt.format, list); err != nil {
				t.Fatalf("writeVoices: %v", err)
			}
			for _, s := range tt.want {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("output missing %q:\n%s", s, buf.String())
				}
			}
		})
	}

	if err := writeVoices(&bytes.Buffer{}, "xml", list); err == nil {
		t.Error("expected an error for an unknown format")
	}
}
