package festival

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
)

func TestParseVoiceList(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    []string
		wantErr bool
	}{
		{name: "two voices", out: "(kal_diphone rab_diphone)\n", want: []string{"kal_diphone", "rab_diphone"}},
		{name: "surrounding noise", out: "festival> (cmu_us_slt_arctic_hts\n kal_diphone)\nfestival> ", want: []string{"cmu_us_slt_arctic_hts", "kal_diphone"}},
		{name: "nil list", out: "()\n", want: []string{}},
		{name: "no list", out: "SIOD ERROR: unbound variable\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVoiceList(tt.out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVoiceList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) || (len(got) > 0 && !reflect.DeepEqual(got, tt.want)) {
				t.Errorf("parseVoiceList() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSynthesisProgram(t *testing.T) {
	tests := []struct {
		voice, text string
		want        string
	}{
		{"kal_diphone", "hello", `(voice_kal_diphone) (tts_textall "hello" nil)` + "\n"},
		{"rab_diphone", `say "hi"`, `(voice_rab_diphone) (tts_textall "say \"hi\"" nil)` + "\n"},
		{"kal_diphone", `back\slash`, `(voice_kal_diphone) (tts_textall "back\\slash" nil)` + "\n"},
		{"kal_diphone", "(paren)", `(voice_kal_diphone) (tts_textall "(paren)" nil)` + "\n"},
	}

	for _, tt := range tests {
		if got := synthesisProgram(tt.voice, tt.text); got != tt.want {
			t.Errorf("synthesisProgram(%q, %q) = %q, want %q", tt.voice, tt.text, got, tt.want)
		}
	}
}

// fakeClient writes a festival_client stand-in that answers (voice.list)
// and copies the synthesis program into the output file.
func fakeClient(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "festival_client")
	script := `#!/bin/sh
if [ "$1" = "--withlisp" ]; then
	cat > /dev/null
	echo "(kal_diphone rab_diphone)"
	exit 0
fi
cat > "$2"
`
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBackend(t *testing.T) {
	b := New(config.FestivalConfig{Client: fakeClient(t)}, tts.Runner{})

	voices, err := b.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if !reflect.DeepEqual(voices, []string{"kal_diphone", "rab_diphone"}) {
		t.Errorf("ListVoices() = %q", voices)
	}

	out := filepath.Join(t.TempDir(), "2.wav")
	if err := b.Synthesize(context.Background(), "rab_diphone", "word", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != synthesisProgram("rab_diphone", "word") {
		t.Errorf("client received %q", data)
	}
}
