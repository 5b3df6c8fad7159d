// Package message defines the request and result types exchanged with
// ransom over its network transports.
package message

import (
	"encoding/base64"
	"time"
)

// Mode selects what a render request produces.
type Mode string

const (
	// ModeAudio runs the full session and returns the rendered WAV.
	ModeAudio Mode = "audio"

	// ModeScore synthesizes the words but stops before csound and returns
	// the score text.
	ModeScore Mode = "score"

	// ModeSketch skips voices and synthesis entirely; every word becomes
	// a fallback tone in the returned score.
	ModeSketch Mode = "sketch"
)

// RenderRequest is one text to turn into a collage.
type RenderRequest struct {
	// ID identifies the request in logs. Assigned by the server when empty.
	ID string `json:"id,omitempty"`

	// Source identifies the sender.
	Source string `json:"source,omitempty"`

	// Text is the input. Words are separated by whitespace.
	Text string `json:"text"`

	// Mode defaults to "audio".
	Mode Mode `json:"mode,omitempty"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp"`
}

// RenderResult is the outcome of a render request.
type RenderResult struct {
	RequestID string `json:"request_id"`

	// Occurrences counts the words of the input, duplicates included.
	Occurrences int `json:"occurrences"`

	// Words counts the distinct words.
	Words int `json:"words"`

	// Fallbacks counts the distinct words rendered as tones.
	Fallbacks int `json:"fallbacks"`

	// Voices is the size of the voice registry used.
	Voices int `json:"voices"`

	// Seconds is the length of the timeline.
	Seconds float64 `json:"seconds"`

	// Score is the csound score text. Set for "score" and "sketch" modes.
	Score string `json:"score,omitempty"`

	// Audio is the rendered WAV as a base64-encoded string.
	Audio string `json:"audio,omitempty"`

	// ContentType is the MIME type of Audio.
	ContentType string `json:"content_type,omitempty"`

	// Error is set if the session failed.
	Error string `json:"error,omitempty"`

	// Phase names the failed session phase.
	Phase string `json:"phase,omitempty"`
}

// SetAudioBytes base64-encodes raw audio bytes into Audio.
func (r *RenderResult) SetAudioBytes(audio []byte) {
	if len(audio) > 0 {
		r.Audio = base64.StdEncoding.EncodeToString(audio)
		r.ContentType = "audio/wav"
	}
}

// AudioBytes decodes Audio.
func (r *RenderResult) AudioBytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Audio)
}

// Voice is one entry of the voice registry.
type Voice struct {
	Backend string `json:"backend" yaml:"backend"`
	ID      string `json:"id" yaml:"id"`
}

// VoiceList is the response of a voice listing.
type VoiceList struct {
	Count  int     `json:"count" yaml:"count"`
	Voices []Voice `json:"voices" yaml:"voices"`
}
