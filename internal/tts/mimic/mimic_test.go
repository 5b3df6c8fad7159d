package mimic

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

func TestParseVoices(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    []string
		wantErr bool
	}{
		{name: "list", out: "Voices available: ap slt slt_hts kal awb kal16 rms awb_time\n", want: []string{"ap", "slt", "slt_hts", "kal", "awb", "kal16", "rms", "awb_time"}},
		{name: "single", out: "Voices available: kal\n", want: []string{"kal"}},
		{name: "none", out: "Voices available: \n", want: nil},
		{name: "garbage", out: "mimic: unknown option\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVoices(tt.out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVoices() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseVoices() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBackend(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	bin := filepath.Join(t.TempDir(), "mimic")
	script := `#!/bin/sh
if [ "$1" = "-lv" ]; then echo "Voices available: kal slt"; exit 0; fi
# -t <text> -voice <voice> -o <out>
printf '%s/%s' "$4" "$2" > "$6"
`
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	b := New(config.MimicConfig{Binary: bin}, tts.Runner{})
	voices, err := b.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if !reflect.DeepEqual(voices, []string{"kal", "slt"}) {
		t.Errorf("ListVoices() = %q", voices)
	}

	out := filepath.Join(t.TempDir(), "2.wav")
	if err := b.Synthesize(context.Background(), "slt", "it's", out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	data, _ := os.ReadFile(out)
	if string(data) != "slt/it's" {
		t.Errorf("arguments not passed through: %q", data)
	}
}
