// Package wave reads the little that ransom needs to know about a clip
// (sample rate and sample count) and wraps raw PCM into a WAV container.
package wave

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
)

var (
	// ErrNoSamples is returned for a well-formed file without audio data.
	ErrNoSamples = errors.New("wav file has no samples")

	// ErrTruncated is returned when the data chunk runs past the end of the file.
	ErrTruncated = errors.New("wav data truncated")
)

// Info describes a clip's timing.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Samples    int // per channel
}

// Seconds returns Samples / SampleRate.
func (i Info) Seconds() float64 {
	return float64(i.Samples) / float64(i.SampleRate)
}

// Duration returns the clip length as a time.Duration.
func (i Info) Duration() time.Duration {
	return time.Duration(i.Seconds() * float64(time.Second))
}

// ReadInfo reads the header and data chunk size of the WAV file at path.
// The sample data itself is never loaded.
func ReadInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening clip: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return Info{}, fmt.Errorf("reading wav header %s: %w", path, err)
	}
	if d.SampleRate == 0 || d.NumChans == 0 || d.BitDepth < 8 {
		return Info{}, fmt.Errorf("invalid wav header %s: rate=%d channels=%d depth=%d",
			path, d.SampleRate, d.NumChans, d.BitDepth)
	}
	if err := d.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("locating wav data %s: %w", path, err)
	}

	// The data chunk size comes from the header; a truncated clip or a
	// streaming placeholder claims more bytes than the file holds.
	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return Info{}, fmt.Errorf("locating wav data %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat clip %s: %w", path, err)
	}
	// The decoder rounds odd chunk sizes up to the pad byte, which may be missing.
	if remaining := st.Size() - offset; int64(d.PCMSize) > remaining+1 {
		return Info{}, fmt.Errorf("%s: %w: header claims %d data bytes, file holds %d",
			path, ErrTruncated, d.PCMSize, remaining)
	}

	frame := int(d.NumChans) * int(d.BitDepth) / 8
	samples := d.PCMSize / frame
	if samples == 0 {
		return Info{}, fmt.Errorf("%s: %w", path, ErrNoSamples)
	}

	return Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Samples:    samples,
	}, nil
}

// Format describes interleaved little-endian PCM.
type Format struct {
	SampleRate     int
	Channels       int
	BytesPerSample int
}

// FromPCM wraps raw PCM data in a 44-byte-header WAV container.
func FromPCM(pcm []byte, f Format) []byte {
	dataLen := len(pcm)

	buf := &bytes.Buffer{}
	buf.Grow(44 + dataLen)

	// RIFF header; the size excludes the first 8 bytes.
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	// fmt subchunk
	blockAlign := f.Channels * f.BytesPerSample
	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(f.SampleRate*blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(f.BytesPerSample*8))

	// data subchunk
	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}
