// Package piper implements the tts.Backend contract against a Piper
// Wyoming protocol server.
//
// Piper is a fast, local neural text-to-speech system. The linuxserver/piper
// container exposes the Wyoming protocol on TCP port 10200.
//
// Wyoming protocol format (per event):
//
//	{"type": "...", "data_length": N, "payload_length": M}\n
//	<N bytes of JSON data>   (if data_length > 0)
//	<M bytes of payload>     (if payload_length > 0)
package piper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nadzzz/ransom/internal/config"
	"github.com/nadzzz/ransom/internal/tts"
	"github.com/nadzzz/ransom/internal/wave"
)

const dialTimeout = 10 * time.Second

// Backend implements tts.Backend using the Wyoming protocol. One Piper
// server synthesizes one utterance at a time, so calls are serialized.
type Backend struct {
	endpoint string
	voices   []string
	timeout  time.Duration
	mu       sync.Mutex
}

// New creates a Piper backend from config. timeout bounds every exchange
// with the server.
func New(cfg config.PiperConfig, timeout time.Duration) *Backend {
	ep := strings.TrimPrefix(cfg.Endpoint, "tcp://")
	return &Backend{
		endpoint: ep,
		voices:   append([]string(nil), cfg.Voices...),
		timeout:  timeout,
	}
}

// Kind returns the backend identifier.
func (b *Backend) Kind() tts.Kind { return tts.KindPiper }

// ListVoices asks the server to describe itself and returns the names of
// its installed voices. Configured voices take precedence.
func (b *Backend) ListVoices(ctx context.Context) ([]string, error) {
	if len(b.voices) > 0 {
		return append([]string(nil), b.voices...), nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := b.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := writeEvent(conn, event{Type: "describe"}); err != nil {
		return nil, fmt.Errorf("sending describe event: %w", err)
	}

	r := bufio.NewReader(conn)
	for {
		evt, _, err := readEvent(r)
		if err != nil {
			return nil, fmt.Errorf("reading piper event: %w", err)
		}
		if evt.Type != "info" {
			slog.Debug("piper unexpected event", "type", evt.Type)
			continue
		}
		return parseInfo(evt.Data)
	}
}

type info struct {
	TTS []struct {
		Name   string `json:"name"`
		Voices []struct {
			Name      string `json:"name"`
			Installed *bool  `json:"installed"`
		} `json:"voices"`
	} `json:"tts"`
}

func parseInfo(data json.RawMessage) ([]string, error) {
	var in info
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing piper info: %w", err)
	}
	var voices []string
	for _, program := range in.TTS {
		for _, v := range program.Voices {
			if v.Installed != nil && !*v.Installed {
				continue
			}
			voices = append(voices, v.Name)
		}
	}
	return voices, nil
}

// Synthesize sends text to the Piper server and writes the returned audio
// to outPath as WAV.
func (b *Backend) Synthesize(ctx context.Context, voice, text, outPath string) error {
	if text == "" {
		return errors.New("empty text for synthesis")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	conn, err := b.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	req, err := json.Marshal(map[string]any{
		"text":  text,
		"voice": map[string]any{"name": voice},
	})
	if err != nil {
		return fmt.Errorf("marshalling synthesize request: %w", err)
	}
	if err := writeEvent(conn, event{Type: "synthesize", Data: req}); err != nil {
		return fmt.Errorf("sending synthesize event: %w", err)
	}

	// audio-start -> audio-chunk* -> audio-stop
	format := wave.Format{SampleRate: 22050, Channels: 1, BytesPerSample: 2}
	var pcm bytes.Buffer
	r := bufio.NewReader(conn)
	for {
		evt, payload, err := readEvent(r)
		if err != nil {
			return fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			var f struct {
				Rate     int `json:"rate"`
				Width    int `json:"width"`
				Channels int `json:"channels"`
			}
			if err := json.Unmarshal(evt.Data, &f); err == nil {
				if f.Rate > 0 {
					format.SampleRate = f.Rate
				}
				if f.Width > 0 {
					format.BytesPerSample = f.Width
				}
				if f.Channels > 0 {
					format.Channels = f.Channels
				}
			}

		case "audio-chunk":
			pcm.Write(payload)

		case "audio-stop":
			if pcm.Len() == 0 {
				return errors.New("piper returned no audio")
			}
			if err := os.WriteFile(outPath, wave.FromPCM(pcm.Bytes(), format), 0o644); err != nil {
				return fmt.Errorf("writing clip: %w", err)
			}
			return nil

		case "error":
			var e struct {
				Text string `json:"text"`
			}
			_ = json.Unmarshal(evt.Data, &e)
			if e.Text == "" {
				e.Text = "unknown error"
			}
			return fmt.Errorf("piper voice %s: %s", voice, e.Text)

		default:
			slog.Debug("piper unknown event", "type", evt.Type)
		}
	}
}

func (b *Backend) dial(ctx context.Context) (net.Conn, error) {
	if b.endpoint == "" {
		return nil, errors.New("no piper endpoint configured")
	}
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", b.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}

	deadline := time.Now().Add(b.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	return conn, nil
}

// --- Wyoming protocol helpers ---

type event struct {
	Type string
	Data json.RawMessage
}

type header struct {
	Type          string          `json:"type"`
	Data          json.RawMessage `json:"data,omitempty"`
	DataLength    int             `json:"data_length,omitempty"`
	PayloadLength int             `json:"payload_length,omitempty"`
}

// writeEvent sends a Wyoming event without payload. The data travels in
// its own segment after the header line.
func writeEvent(w io.Writer, evt event) error {
	hdr, err := json.Marshal(header{Type: evt.Type, DataLength: len(evt.Data)})
	if err != nil {
		return fmt.Errorf("marshalling header: %w", err)
	}
	var buf bytes.Buffer
	buf.Write(hdr)
	buf.WriteByte('\n')
	buf.Write(evt.Data)
	_, err = w.Write(buf.Bytes())
	return err
}

// readEvent reads one Wyoming event. Inline data in the header and a
// separate data segment are both accepted; a separate segment wins.
func readEvent(r *bufio.Reader) (*event, []byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	var hdr header
	if err := json.Unmarshal(line, &hdr); err != nil {
		return nil, nil, fmt.Errorf("invalid wyoming header %q: %w", bytes.TrimSpace(line), err)
	}

	evt := &event{Type: hdr.Type, Data: hdr.Data}
	if hdr.DataLength > 0 {
		data := make([]byte, hdr.DataLength)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, nil, fmt.Errorf("reading data: %w", err)
		}
		evt.Data = data
	}

	var payload []byte
	if hdr.PayloadLength > 0 {
		payload = make([]byte, hdr.PayloadLength)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return evt, payload, nil
}
