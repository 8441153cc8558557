package align

import (
	"fmt"
	"regexp"
	"strings"
)

// The tagged dialect: paragraphs arrive as XHTML fragments whose
// highlightable stretches are pre-marked with <span data-index="N"> (plus an
// optional data-yomi reading override). Matching assigns element ids and
// groups however many trace entries each span's reading needs, splitting an
// entry proportionally when the aligner's tokenization straddles a span
// boundary.

var (
	taggedOpenRe  = regexp.MustCompile(`<span data-index="(\d+)"(?: data-yomi="([^"]*)")?>`)
	taggedRubyRe  = regexp.MustCompile(`<ruby><rb>(?s:.*?)</rb><rt>((?s:.*?))</rt></ruby>`)
	taggedYomiRe  = regexp.MustCompile(`<span\b[^>]*\bdata-yomi="([^"]*)"[^>]*>(?s:.*?)</span>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	matchingSkipRe = regexp.MustCompile(`[\s。、．，.,!！?？：:；;（）()「」『』\[\]【】｛｝{}・\-]`)
)

// ElementID formats the textual id written into XHTML and SMIL documents.
func ElementID(prefix string, n int) string {
	return fmt.Sprintf("%s%04d", prefix, n)
}

// Par is the timing assigned to one tagged span.
type Par struct {
	ElementID string
	Begin     float64
	End       float64
}

// TaggedResult is the outcome of matching one tagged paragraph.
type TaggedResult struct {
	// Paragraph is the input fragment with data-index spans rewritten to
	// id'd spans.
	Paragraph string
	Pars      []Par
	NextID    int
	NextIndex int
}

type taggedSpan struct {
	yomi    string
	content string
	openTag string
}

// TaggedReading extracts the reading text of an XHTML fragment: ruby bases
// give way to their rt reading, data-yomi overrides replace span content,
// remaining tags are stripped and brackets/digits folded.
func TaggedReading(fragment string) string {
	s := taggedRubyRe.ReplaceAllString(fragment, "$1")
	s = taggedYomiRe.ReplaceAllString(s, "$1")
	s = tagRe.ReplaceAllString(s, "")
	replacer := strings.NewReplacer(
		"（", "(", "）", ")",
		"「", "[", "」", "]",
		"『", "[", "』", "]",
		"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
		"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
	)
	return strings.ToLower(replacer.Replace(s))
}

// extractTaggedSpans pulls the data-index spans out of a fragment, tracking
// nesting so inner spans stay part of the content.
func extractTaggedSpans(fragment string) []taggedSpan {
	var spans []taggedSpan
	pos := 0
	for pos < len(fragment) {
		loc := taggedOpenRe.FindStringSubmatchIndex(fragment[pos:])
		if loc == nil {
			break
		}
		openTag := fragment[pos+loc[0] : pos+loc[1]]
		yomi := ""
		if loc[4] >= 0 {
			yomi = fragment[pos+loc[4] : pos+loc[5]]
		}
		contentStart := pos + loc[1]
		depth := 1
		i := contentStart
		for i < len(fragment) && depth > 0 {
			switch {
			case strings.HasPrefix(fragment[i:], "<span"):
				depth++
				i += 5
			case strings.HasPrefix(fragment[i:], "</span>"):
				depth--
				if depth == 0 {
					// i stays at the closing tag
				} else {
					i += 7
				}
			default:
				i++
			}
		}
		spans = append(spans, taggedSpan{
			yomi:    yomi,
			content: fragment[contentStart:i],
			openTag: openTag,
		})
		pos = i + len("</span>")
	}
	return spans
}

// MatchTagged assigns ids and trace timing to the data-index spans of an
// XHTML paragraph fragment.
func MatchTagged(fragment string, trace []Interval, traceIdx, nextID int, prefix string) TaggedResult {
	result := fragment
	var pars []Par

	// carry-over when one trace word straddles a span boundary
	var carry string
	var carryBegin, carryEnd float64

	for _, span := range extractTaggedSpans(fragment) {
		reading := span.yomi
		if reading == "" {
			reading = TaggedReading(span.content)
		}
		reading = strings.ToLower(reading)
		clean := matchingSkipRe.ReplaceAllString(reading, "")

		elID := ElementID(prefix, nextID)
		result = strings.Replace(result, span.openTag, `<span id="`+elID+`">`, 1)

		var clipBegin, clipEnd float64
		haveBegin := false
		matched := ""

		if carry != "" && clean != "" {
			switch {
			case strings.HasPrefix(clean, carry):
				// carried tail fits inside this span
				clipBegin, clipEnd = carryBegin, carryEnd
				haveBegin = true
				matched += carry
				carry = ""
				traceIdx++
			case strings.HasPrefix(carry, clean):
				// carried tail covers the whole span: split its clip
				// proportionally and keep carrying
				consumed := len(clean)
				total := len(carry)
				splitTime := carryBegin + (carryEnd-carryBegin)*float64(consumed)/float64(total)
				clipBegin, clipEnd = carryBegin, splitTime
				haveBegin = true
				carry = carry[consumed:]
				carryBegin = splitTime
				matched = clean
			default:
				carry = ""
				traceIdx++
			}
		}

		for matched != clean && traceIdx < len(trace) {
			iv := trace[traceIdx]
			norm := normalizeLabel(iv.Label)
			if norm == "" {
				traceIdx++
				continue
			}
			if iv.Label == UnknownLabel {
				if !haveBegin {
					clipBegin = iv.Begin
					haveBegin = true
				}
				clipEnd = iv.End
				traceIdx++
				matched += taggedUnknownText(clean[len(matched):], trace, traceIdx)
				continue
			}

			remaining := clean[len(matched):]
			if strings.HasPrefix(remaining, norm) {
				if !haveBegin {
					clipBegin = iv.Begin
					haveBegin = true
				}
				clipEnd = iv.End
				matched += norm
				traceIdx++
				continue
			}
			if remaining != "" && strings.HasPrefix(norm, remaining) {
				// trace word longer than the span: split proportionally
				// and carry the tail to the next span
				consumed := len(remaining)
				total := len(norm)
				splitTime := iv.Begin + (iv.End-iv.Begin)*float64(consumed)/float64(total)
				if !haveBegin {
					clipBegin = iv.Begin
					haveBegin = true
				}
				clipEnd = splitTime
				carry = norm[consumed:]
				carryBegin = splitTime
				carryEnd = iv.End
				matched = clean
				break
			}
			// current entry does not belong to this span
			break
		}

		if haveBegin {
			pars = append(pars, Par{ElementID: elID, Begin: clipBegin, End: clipEnd})
		}
		nextID++
	}

	return TaggedResult{Paragraph: result, Pars: pars, NextID: nextID, NextIndex: traceIdx}
}

// taggedUnknownText decides how much of the remaining span reading an
// unknown entry accounts for, by locating the next recognized label and
// validating the split with the one after it.
func taggedUnknownText(remaining string, trace []Interval, traceIdx int) string {
	if remaining == "" {
		return ""
	}
	var next, nextNext string
	for i := traceIdx; i < len(trace); i++ {
		label := trace[i].Label
		norm := normalizeLabel(label)
		if label == UnknownLabel || norm == "" {
			continue
		}
		next = norm
		for j := i + 1; j < len(trace); j++ {
			if trace[j].Label != UnknownLabel {
				if n := normalizeLabel(trace[j].Label); n != "" {
					nextNext = n
					break
				}
			}
		}
		break
	}
	if next == "" {
		return ""
	}

	searchStart := 0
	for {
		pos := strings.Index(remaining[searchStart:], next)
		if pos < 0 {
			return ""
		}
		pos += searchStart
		if pos == 0 {
			// unknown maps to nothing in this span
			return ""
		}
		after := remaining[pos+len(next):]
		if nextNext == "" || after == "" || strings.HasPrefix(after, nextNext) {
			return remaining[:pos]
		}
		searchStart = pos + 1
	}
}
