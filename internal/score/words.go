package score

import (
	"math"
	"unicode"
	"unicode/utf8"

	"github.com/nadzzz/ransom/internal/voices"
)

const (
	// FirstID is the table number of the word at index 0. Tables 0 and 1
	// belong to the engine (1 is the sine table in the header).
	FirstID = 2

	// pitchReference is the code point that maps to pitch 1.0.
	pitchReference = 'm'

	toneCeiling = 2000
)

// Tokenize splits text at every whitespace rune. Consecutive separators
// yield empty tokens, which are kept: every token is one occurrence.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	var words []string
	start := 0
	for i, r := range text {
		if unicode.IsSpace(r) {
			words = append(words, text[start:i])
			start = i + utf8.RuneLen(r)
		}
	}
	return append(words, text[start:])
}

// LastOccurrences maps every distinct word to the index of its last
// occurrence.
func LastOccurrences(words []string) map[string]int {
	last := make(map[string]int, len(words))
	for i, w := range words {
		last[w] = i
	}
	return last
}

// Pitch returns the mean code point of word relative to 'm'. The empty
// word has pitch 0.
func Pitch(word string) float64 {
	n := utf8.RuneCountInString(word)
	if n == 0 {
		return 0
	}
	return float64(voices.CodePointSum(word)) / float64(n) / pitchReference
}

// ToneLength is the duration in seconds of a word's fallback tone.
func ToneLength(word string) float64 {
	return math.Sqrt(float64(utf8.RuneCountInString(word)))
}

// ToneControlPoints derives the three frequencies (Hz, below 2000) of a
// fallback tone.
func ToneControlPoints(pitch, length float64) (start, mid, end uint64) {
	start = clamp32(pitch*500*length) % toneCeiling
	mid = clamp32(pitch*2777*length) % toneCeiling
	end = clamp32(math.Sqrt(pitch)*24885*length) % toneCeiling
	return start, mid, end
}

// clamp32 truncates v to an integer saturated to the uint32 range.
func clamp32(v float64) uint64 {
	switch {
	case !(v > 0):
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint64(v)
}
