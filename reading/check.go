// Package reading performs a pre-flight check of a source document: it runs
// morphological analysis over the paragraph text and flags kanji words whose
// pronunciation the synthesizer may get wrong, so the author can add a ruby
// gloss or a reading substitution before generating audio. Findings are
// advisory, they never fail a conversion.
package reading

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"readalong/markup"
)

// Finding is one flagged word in a document line.
type Finding struct {
	Line    int    // 1-based line in the source file
	Surface string // the word as written
	Reading string // dictionary reading, empty when unknown
	Reason  string
}

func (f Finding) String() string {
	if f.Reading == "" {
		return fmt.Sprintf("line %d: %s — %s", f.Line, f.Surface, f.Reason)
	}
	return fmt.Sprintf("line %d: %s (%s) — %s", f.Line, f.Surface, f.Reading, f.Reason)
}

// Checker holds the morphological analyzer.
type Checker struct {
	tok *tokenizer.Tokenizer
}

func NewChecker() (*Checker, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("unable to initialize tokenizer: %w", err)
	}
	return &Checker{tok: t}, nil
}

// CheckText scans a whole document, line by line.
func (c *Checker) CheckText(text string) []Finding {
	var findings []Finding
	for i, line := range strings.Split(text, "\n") {
		findings = append(findings, c.CheckLine(line, i+1)...)
	}
	return findings
}

// CheckLine flags suspicious kanji words in one line. Text inside ruby and
// reading substitution constructs already carries an explicit pronunciation
// and is skipped; other markup is checked by its displayed content.
func (c *Checker) CheckLine(line string, n int) []Finding {
	var findings []Finding
	for _, segment := range plainSegments(line) {
		findings = append(findings, c.checkSegment(segment, n)...)
	}
	return findings
}

// plainSegments splits a line into runs of text not covered by an explicit
// pronunciation.
func plainSegments(line string) []string {
	var segments []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			segments = append(segments, cur.String())
			cur.Reset()
		}
	}

	for i := 0; i < len(line); {
		span, ok := markup.Match(line[i:])
		if !ok {
			_, size := utf8.DecodeRuneInString(line[i:])
			cur.WriteString(line[i : i+size])
			i += size
			continue
		}
		switch span.Kind {
		case markup.Ruby, markup.ReadingSub, markup.Image:
			// pronunciation is explicit (or there is nothing to read)
			flush()
		case markup.Underline, markup.Frame, markup.Strong:
			flush()
			segments = append(segments, plainSegments(span.Inner)...)
		default:
			cur.WriteString(span.Inner)
		}
		i += span.Len
	}
	flush()
	return segments
}

func (c *Checker) checkSegment(segment string, line int) []Finding {
	var findings []Finding
	for _, tk := range c.tok.Tokenize(segment) {
		if !hasKanji(tk.Surface) {
			continue
		}
		rd, ok := tk.Reading()
		if !ok || rd == "" || rd == "*" {
			findings = append(findings, Finding{
				Line:    line,
				Surface: tk.Surface,
				Reason:  "not in dictionary, pronunciation will be guessed",
			})
			continue
		}
		pos := tk.POS()
		if len(pos) > 1 && pos[0] == "名詞" && pos[1] == "固有名詞" {
			findings = append(findings, Finding{
				Line:    line,
				Surface: tk.Surface,
				Reading: rd,
				Reason:  "proper noun, verify the reading",
			})
		}
	}
	return findings
}

func hasKanji(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
