// Package textgrid reads Praat TextGrid files in the long text format, the
// format Montreal Forced Aligner writes its word alignments in.
package textgrid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"readalong/align"
)

// Trace is the timing information of one aligned audio file: the word
// intervals of the first interval tier, empty labels dropped, plus the total
// audio duration. Unrecognized-word sentinels like "<unk>" are kept.
type Trace struct {
	Intervals []align.Interval
	Duration  float64
}

// ParseFile reads and parses the TextGrid at path.
func ParseFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse reads a long-format TextGrid from r and extracts the first interval
// tier.
func Parse(r io.Reader) (*Trace, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	trace := &Trace{}

	seenHeader := false
	seenItem := false
	inTier := false
	tierDone := false

	var begin, end float64
	var label string
	inInterval := false

	flush := func() {
		if inInterval && strings.TrimSpace(label) != "" {
			trace.Intervals = append(trace.Intervals, align.Interval{
				Label: strings.TrimSpace(label),
				Begin: begin,
				End:   end,
			})
		}
		inInterval = false
		label = ""
	}

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		if !seenHeader {
			if !strings.HasPrefix(line, "File type") || !strings.Contains(line, "ooTextFile") {
				return nil, fmt.Errorf("line %d: not a TextGrid file", lineNo)
			}
			seenHeader = true
			continue
		}

		switch {
		case strings.HasPrefix(line, "item ["):
			flush()
			if tierDone {
				// only the first interval tier matters
				inTier = false
				continue
			}
			seenItem = true
			inTier = false

		case strings.HasPrefix(line, "class ="):
			if !tierDone && strings.Contains(line, `"IntervalTier"`) {
				inTier = true
				tierDone = true
			}

		case strings.HasPrefix(line, "intervals ["):
			if inTier {
				flush()
				inInterval = true
			}

		case strings.HasPrefix(line, "xmin ="):
			v, err := parseNumber(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			if inInterval {
				begin = v
			}

		case strings.HasPrefix(line, "xmax ="):
			v, err := parseNumber(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			switch {
			case inInterval:
				end = v
			case !seenItem:
				trace.Duration = v
			}

		case strings.HasPrefix(line, "text ="):
			if inInterval {
				label = unquote(strings.TrimSpace(strings.TrimPrefix(line, "text =")))
			}
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !seenHeader {
		return nil, fmt.Errorf("empty input")
	}
	if !tierDone {
		return nil, fmt.Errorf("no interval tier found")
	}
	return trace, nil
}

// parseNumber extracts the value of a "key = number" line.
func parseNumber(line string) (float64, error) {
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return 0, fmt.Errorf("malformed line %q", line)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("malformed number in %q", line)
	}
	return v, nil
}

// unquote removes the surrounding quotes of a Praat string and unescapes
// doubled quote characters.
func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.ReplaceAll(s, `""`, `"`)
}
