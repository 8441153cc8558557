package align

import (
	"strings"
	"unicode/utf8"

	"readalong/markup"
)

// matchTokens emits one timed unit per recognized trace entry. Trailing
// punctuation and spaces fold into the preceding unit; unrecognized entries
// go through the unknown resolver; whole underline constructs are consumed
// as a single unit no matter how many entries they span.
func (c *cursor) matchTokens() {
	for c.readingPos < len(c.reading) && c.traceIdx < len(c.trace) {
		if c.underlineUnit() {
			continue
		}

		iv := c.trace[c.traceIdx]
		remaining := c.reading[c.readingPos:]
		label := normalizeLabel(iv.Label)

		// empty intervals consume no text
		if label == "" {
			c.traceIdx++
			continue
		}

		if iv.Label == UnknownLabel {
			c.resolveUnknown(iv.Begin, iv.End)
			continue
		}

		idx := strings.Index(remaining, label)
		if idx < 0 {
			if !c.skipToFutureMatch(remaining, iv) {
				break
			}
			continue
		}

		// text before the match carries no timing
		if idx > 0 {
			skipStart, skipEnd := markup.OriginalRange(c.text, c.readingPos, idx)
			c.appendUntimed(c.text[skipStart:skipEnd])
		}

		wordStart := c.readingPos + idx
		origStart, origEnd := markup.OriginalRange(c.text, wordStart, len(label))

		// fold trailing punctuation and spaces into the unit
		endPos := origEnd
		for endPos < len(c.text) {
			r, sz := utf8.DecodeRuneInString(c.text[endPos:])
			if !containsRune(punctuation, r) && !containsRune(" \t　", r) {
				break
			}
			endPos += sz
		}

		c.appendTimed(c.text[origStart:endPos], iv.Begin, iv.End)
		c.readingPos = wordStart + len(label) + (endPos - origEnd)
		c.traceIdx++
	}

	c.flushTokenTail()
}

// skipToFutureMatch handles a current entry with no occurrence in the
// remaining text: when one of the next few entries does occur, the text up
// to it becomes a unit timed with the current entry. Otherwise the whole
// remainder is emitted with an estimated clip and the paragraph ends. The
// return value reports whether matching should continue.
func (c *cursor) skipToFutureMatch(remaining string, iv Interval) bool {
	next := findAhead(remaining, c.readingPos, c.trace, c.traceIdx, 10)
	if next >= 0 && next > c.readingPos {
		skipStart, skipEnd := markup.OriginalRange(c.text, c.readingPos, next-c.readingPos)
		if skipped := c.text[skipStart:skipEnd]; strings.TrimSpace(skipped) != "" {
			c.appendTimed(skipped, iv.Begin, iv.End)
		}
		c.readingPos = next
		c.traceIdx++
		return true
	}

	// nothing in this paragraph matches: time the remainder from the
	// current entry to a few entries ahead and stop
	origStart := markup.ReadingPosToOriginal(c.text, c.readingPos)
	origStart = adjustStartForBracket(c.text, origStart)
	if rest := c.text[origStart:]; strings.TrimSpace(rest) != "" {
		endIdx := c.traceIdx + 5
		if endIdx > len(c.trace)-1 {
			endIdx = len(c.trace) - 1
		}
		c.appendTimed(rest, iv.Begin, c.trace[endIdx].End)
		c.traceIdx = endIdx + 1
	}
	return false
}

// flushTokenTail emits whatever the main loop left unconsumed. Remaining
// readable text gets an estimated clip when the paragraph already produced
// timed units; silent symbols (closing brackets and the like) are appended
// without timing.
func (c *cursor) flushTokenTail() {
	if c.readingPos < len(c.reading) {
		origStart := markup.ReadingPosToOriginal(c.text, c.readingPos)
		origStart = adjustStartForBracket(c.text, origStart)
		rest := c.text[origStart:]
		if strings.TrimSpace(rest) == "" {
			return
		}
		if !c.hasTimed() {
			c.appendUntimed(rest)
			return
		}
		var begin, end float64
		if c.traceIdx < len(c.trace) {
			endIdx := c.traceIdx + 5
			if endIdx > len(c.trace)-1 {
				endIdx = len(c.trace) - 1
			}
			begin = c.trace[c.traceIdx].Begin
			end = c.trace[endIdx].End
		} else {
			last := c.trace[len(c.trace)-1]
			begin = last.Begin
			end = last.End
		}
		c.appendTimed(rest, begin, end)
		return
	}

	// reading text fully consumed; unpronounced symbols may trail in the
	// original (closing brackets vanish from the reading text)
	origStart := markup.ReadingPosToOriginal(c.text, len(c.reading))
	origStart = adjustStartForBracket(c.text, origStart)
	c.appendUntimed(c.text[origStart:])
}

// resolveUnknown absorbs a run of consecutive unrecognized entries. The run
// is bounded by searching for the next recognized label in the remaining
// reading text; when it cannot be found the remainder is emitted against a
// single entry so the rest of the run stays available for the next
// paragraph.
func (c *cursor) resolveUnknown(begin, end float64) {
	unkEnd := end
	next := c.traceIdx + 1
	for next < len(c.trace) && c.trace[next].Label == UnknownLabel {
		unkEnd = c.trace[next].End
		next++
	}

	remaining := c.reading[c.readingPos:]

	if next >= len(c.trace) {
		// the trace ends in unknowns: the rest of the text is theirs
		origStart := markup.ReadingPosToOriginal(c.text, c.readingPos)
		origStart = adjustStartForBracket(c.text, origStart)
		if rest := c.text[origStart:]; strings.TrimSpace(rest) != "" {
			c.appendTimed(rest, begin, unkEnd)
		}
		c.readingPos = len(c.reading)
		c.traceIdx = next
		return
	}

	label := normalizeLabel(c.trace[next].Label)
	pos := strings.Index(remaining, label)
	switch {
	case pos > 0:
		origStart, origEnd := markup.OriginalRange(c.text, c.readingPos, pos)
		if unkText := c.text[origStart:origEnd]; strings.TrimSpace(unkText) != "" {
			c.appendTimed(unkText, begin, unkEnd)
		}
		c.readingPos += pos
		c.traceIdx = next
	case pos < 0:
		// next recognized word is not in this paragraph: consume a single
		// unknown entry and leave the rest of the run for what follows
		origStart := markup.ReadingPosToOriginal(c.text, c.readingPos)
		origStart = adjustStartForBracket(c.text, origStart)
		if unkText := c.text[origStart:]; strings.TrimSpace(unkText) != "" {
			c.appendTimed(unkText, begin, end)
		}
		c.readingPos = len(c.reading)
		c.traceIdx++
	default:
		// the recognized word starts right here: the unknowns matched
		// nothing in this text
		c.traceIdx = next
	}
}

// underlineUnit consumes a whole [ ... ]{.underline} construct starting at
// the current position as one unit, eating as many trace entries as its
// reading text needs. Underlined phrases are never split across units.
func (c *cursor) underlineUnit() bool {
	origPos := markup.ReadingPosToOriginal(c.text, c.readingPos)
	origPos = adjustStartForBracket(c.text, origPos)
	sp, ok := markup.Match(c.text[origPos:])
	if !ok || sp.Kind != markup.Underline {
		return false
	}

	reading := normalizeLabel(sp.Inner)
	var clipBegin, clipEnd float64
	haveBegin := false
	matched := 0
	ti := c.traceIdx

	for ti < len(c.trace) && matched < len(reading) {
		iv := c.trace[ti]
		label := normalizeLabel(iv.Label)
		if label == "" || iv.Label == UnknownLabel {
			if !haveBegin {
				clipBegin = iv.Begin
				haveBegin = true
			}
			clipEnd = iv.End
			ti++
			continue
		}
		if !strings.HasPrefix(reading[matched:], label) {
			break
		}
		if !haveBegin {
			clipBegin = iv.Begin
			haveBegin = true
		}
		clipEnd = iv.End
		matched += len(label)
		ti++
	}

	if !haveBegin {
		return false
	}

	// fold trailing punctuation into the same unit
	endPos := origPos + sp.Len
	for endPos < len(c.text) {
		r, sz := utf8.DecodeRuneInString(c.text[endPos:])
		if !containsRune(punctuation, r) {
			break
		}
		endPos += sz
	}

	c.appendTimed(c.text[origPos:endPos], clipBegin, clipEnd)
	c.readingPos += len(reading) + (endPos - origPos - sp.Len)
	c.traceIdx = ti
	return true
}
