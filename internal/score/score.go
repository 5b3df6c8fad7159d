package score

import (
	"fmt"
	"strconv"
	"strings"
)

// Instrument numbers in the orchestra (see render/ransom.orc).
const (
	InstrClip = 2 // plays a sampled clip table
	InstrTone = 3 // sweeps a tone through three control points
)

// Header opens every score: table 1 is a sine wave shared by the
// orchestra.
const Header = "; ransom score\nf1 0 16384 10 1\n"

// Terminator ends every score.
const Terminator = "e\n"

// Table is the instrument definition of one distinct word.
type Table struct {
	ID   int
	Clip *Clip // nil: tone harmonics table
}

func (t Table) String() string {
	if t.Clip != nil {
		// GEN01 with deferred size: the table is as long as the file.
		return fmt.Sprintf("f%d 0 0 1 %q 0 0 0", t.ID, t.Clip.File)
	}
	return fmt.Sprintf("f%d 0 1024 10 0.3 0.7 0.8", t.ID)
}

// Event is one i-statement on the timeline.
type Event struct {
	Instr  int
	Start  float64 // beat, seconds
	Length float64 // seconds
	Table  int
	Params []float64
}

func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "i%d %s %s %d", e.Instr, num(e.Start), num(e.Length), e.Table)
	for _, p := range e.Params {
		b.WriteByte(' ')
		b.WriteString(num(p))
	}
	return b.String()
}

// Score is an assembled timeline.
type Score struct {
	Tables []Table // ordered by ID
	Events []Event // in occurrence order
	Beat   float64 // final position of the beat cursor
}

// String renders the score text handed to the engine. Identical scores
// render to identical bytes.
func (s *Score) String() string {
	var b strings.Builder
	b.WriteString(Header)
	for _, t := range s.Tables {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	for _, e := range s.Events {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	b.WriteString(Terminator)
	return b.String()
}

// num formats v with the fewest digits that round-trip.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
