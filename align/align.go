// Package align consumes forced-alignment timing traces and assigns
// [begin, end) audio intervals to fragments of the original, markup-bearing
// document text. The aligner tokenizes the reading text with its own
// dictionary, so trace entries rarely coincide with document tokens; the
// matcher walks both sides, folding punctuation, absorbing unrecognized
// tokens and resynchronizing at paragraph starts. Conforming input never
// produces errors, only units with estimated timing.
package align

import (
	"strings"
	"unicode/utf8"

	"readalong/markup"
)

// UnknownLabel is the sentinel the aligner emits for words it could not
// recognize.
const UnknownLabel = "<unk>"

// Interval is one entry of the timing trace: a recognized label with its
// begin/end time in seconds. Traces are ordered and non-overlapping.
type Interval struct {
	Label string
	Begin float64
	End   float64
}

// Unit is a highlightable fragment of the original text. Timed units carry
// an id (stable across the whole document) and an audio clip; untimed units
// are silent text emitted for coverage (unpronounced symbols, skipped
// fragments before the first match).
type Unit struct {
	ID    int
	Text  string
	Begin float64
	End   float64
	Timed bool
}

// Mode selects the grouping strategy.
type Mode int

const (
	// ModeToken emits one unit per recognized trace entry.
	ModeToken Mode = iota
	// ModeClause groups entries up to the next sentence delimiter.
	ModeClause
)

// Result of matching one paragraph.
type Result struct {
	Units     []Unit
	NextID    int
	NextIndex int
}

// punctuation folded into the preceding unit.
const punctuation = "。、．，.,!！?？"

// sentenceDelimiters close a clause-mode group.
const sentenceDelimiters = "。、，.,"

// MatchParagraph assigns trace intervals starting at traceIdx to text and
// returns the produced units together with the advanced id and trace
// cursors. The trace index should be resynchronized with Resync before
// calling when paragraphs may drift.
func MatchParagraph(text string, trace []Interval, traceIdx, nextID int, mode Mode) Result {
	c := &cursor{
		text:     text,
		reading:  normalizeLabel(text),
		trace:    trace,
		traceIdx: traceIdx,
		nextID:   nextID,
	}
	if mode == ModeClause {
		c.matchClauses()
	} else {
		c.matchTokens()
	}
	return Result{Units: c.units, NextID: c.nextID, NextIndex: c.traceIdx}
}

// cursor owns the state of one paragraph match.
type cursor struct {
	text       string
	reading    string
	trace      []Interval
	readingPos int
	traceIdx   int
	nextID     int
	units      []Unit
}

func (c *cursor) appendTimed(text string, begin, end float64) {
	c.units = append(c.units, Unit{ID: c.nextID, Text: text, Begin: begin, End: end, Timed: true})
	c.nextID++
}

func (c *cursor) appendUntimed(text string) {
	if strings.TrimSpace(text) != "" {
		c.units = append(c.units, Unit{Text: text})
	}
}

func (c *cursor) hasTimed() bool {
	for i := range c.units {
		if c.units[i].Timed {
			return true
		}
	}
	return false
}

// normalizeLabel produces the matching form of a trace label or document
// fragment: markup stripped to spoken forms, symbols expanded, lowercased.
// Both sides of every comparison go through this.
func normalizeLabel(s string) string {
	return strings.ToLower(markup.NormalizeForMatch(s))
}

// adjustStartForBracket steps back over the '[' of an underline or frame
// construct when position resolution landed just inside it.
func adjustStartForBracket(text string, origStart int) int {
	if origStart > 0 && text[origStart-1] == '[' {
		if sp, ok := markup.Match(text[origStart-1:]); ok && (sp.Kind == markup.Underline || sp.Kind == markup.Frame) {
			return origStart - 1
		}
	}
	return origStart
}

// findAhead looks up to lookahead-1 future trace entries for one whose label
// occurs in remaining, returning its reading position or -1.
func findAhead(remaining string, readingPos int, trace []Interval, traceIdx, lookahead int) int {
	limit := traceIdx + lookahead
	if limit > len(trace) {
		limit = len(trace)
	}
	for i := traceIdx + 1; i < limit; i++ {
		label := normalizeLabel(trace[i].Label)
		if pos := strings.Index(remaining, label); pos >= 0 {
			return readingPos + pos
		}
	}
	return -1
}

// hasUnclosedFormatting reports whether text cuts a markup construct in
// half: a leftover '[' that no recognized construct accounts for, or an odd
// number of strong/sub/superscript markers. Clause mode refuses to flush a
// group that would split a construct.
func hasUnclosedFormatting(text string) bool {
	// drop every complete construct; what remains are loose markers
	var b strings.Builder
	for i := 0; i < len(text); {
		if sp, ok := markup.Match(text[i:]); ok &&
			sp.Kind != markup.Subscript && sp.Kind != markup.Superscript && sp.Kind != markup.Image {
			i += sp.Len
			continue
		}
		_, sz := utf8.DecodeRuneInString(text[i:])
		b.WriteString(text[i : i+sz])
		i += sz
	}
	temp := b.String()
	if strings.Contains(temp, "[") &&
		!strings.Contains(temp, "]{.underline}") && !strings.Contains(temp, "]{.frame}") {
		return true
	}
	if strings.Count(temp, "**")%2 != 0 {
		return true
	}
	if strings.Count(temp, "~")%2 != 0 {
		return true
	}
	if strings.Count(temp, "^")%2 != 0 {
		return true
	}
	return false
}

func containsRune(set string, r rune) bool {
	return strings.ContainsRune(set, r)
}

// lastRune returns the final rune of s and its size, or utf8.RuneError for
// empty input.
func lastRune(s string) (rune, int) {
	if s == "" {
		return utf8.RuneError, 0
	}
	return utf8.DecodeLastRuneInString(s)
}
