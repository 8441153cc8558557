package align

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"readalong/markup"
)

// speakableRe matches anything worth synchronizing: kana, kanji, ASCII
// letters and digits. Tail text without any of these is emitted silent.
var speakableRe = regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FFF}\x{3400}-\x{4DBF}a-zA-Z0-9]`)

// clauseGroup accumulates matched words until a sentence delimiter closes
// the clause.
type clauseGroup struct {
	origStart int
	begin     float64
	end       float64
	active    bool
}

func (g *clauseGroup) open(origStart int, begin float64) {
	if !g.active {
		g.origStart = origStart
		g.begin = begin
		g.active = true
	}
}

// matchClauses groups recognized entries into clause units closed at
// sentence delimiters. The group never flushes while a markup construct is
// cut open, and a run of two fullwidth spaces acts as a secondary delimiter
// between enumerated choices.
func (c *cursor) matchClauses() {
	var group clauseGroup

	flush := func(origEnd int) {
		if group.active && origEnd > group.origStart {
			if text := c.text[group.origStart:origEnd]; strings.TrimSpace(text) != "" {
				c.appendTimed(text, group.begin, group.end)
			}
		}
		group.active = false
	}

	for c.readingPos < len(c.reading) && c.traceIdx < len(c.trace) {
		iv := c.trace[c.traceIdx]
		remaining := c.reading[c.readingPos:]
		label := normalizeLabel(iv.Label)

		if label == "" {
			c.traceIdx++
			continue
		}

		if iv.Label == UnknownLabel {
			c.clauseUnknown(&group, flush, iv)
			continue
		}

		idx := strings.Index(remaining, label)
		if idx < 0 {
			next := findAhead(remaining, c.readingPos, c.trace, c.traceIdx, 10)
			if next >= 0 && next > c.readingPos {
				skipLen := next - c.readingPos
				skipStart, skipEnd := markup.OriginalRange(c.text, c.readingPos, skipLen)
				if !group.active {
					// group not started: skipped text stays silent
					c.appendUntimed(c.text[skipStart:skipEnd])
				}
				c.readingPos = next
				c.traceIdx++
				continue
			}
			// future entries belong to the next paragraph
			break
		}

		wordStart := c.readingPos + idx
		origWordStart, origWordEnd := markup.OriginalRange(c.text, wordStart, len(label))
		origWordStart = adjustStartForBracket(c.text, origWordStart)

		if idx > 0 && !group.active {
			c.openGroupAfterSkip(&group, idx, origWordStart, iv.Begin)
		} else {
			group.open(origWordStart, iv.Begin)
		}

		// trailing punctuation; a '.' right after '{' belongs to a
		// ]{.frame} / ]{.underline} suffix, never to the sentence
		endPos := origWordEnd
		for endPos < len(c.text) {
			r, sz := utf8.DecodeRuneInString(c.text[endPos:])
			if !containsRune(punctuation, r) {
				break
			}
			if r == '.' && endPos > 0 && c.text[endPos-1] == '{' {
				break
			}
			endPos += sz
		}

		group.end = iv.End
		c.readingPos = wordStart + len(label) + (endPos - origWordEnd)
		c.traceIdx++

		if endPos > origWordStart {
			if last, _ := lastRune(c.text[:endPos]); containsRune(sentenceDelimiters, last) &&
				!(last == '.' && endPos >= 2 && c.text[endPos-2] == '{') {
				if !hasUnclosedFormatting(c.text[group.origStart:endPos]) {
					flush(endPos)
				}
			}
		}
	}

	c.flushClauseTail(&group, flush)
}

// openGroupAfterSkip starts a group when text was skipped before the first
// matched word. Text up to the last delimiter in the skip is emitted silent;
// the group starts after it, or at the matched word when nothing remains.
func (c *cursor) openGroupAfterSkip(group *clauseGroup, idx, origWordStart int, begin float64) {
	skipStart, skipEnd := markup.OriginalRange(c.text, c.readingPos, idx)
	skipped := c.text[skipStart:skipEnd]

	lastDelim := -1
	for i, r := range skipped {
		if !containsRune(sentenceDelimiters, r) {
			continue
		}
		if r == '.' && i > 0 && skipped[i-1] == '{' {
			continue
		}
		lastDelim = i
	}

	if lastDelim < 0 {
		group.open(skipStart, begin)
		return
	}

	cut := lastDelim + 1 // delimiters in this set are single-byte or fall on rune ends
	if r, sz := utf8.DecodeRuneInString(skipped[lastDelim:]); r != utf8.RuneError {
		cut = lastDelim + sz
	}
	c.appendUntimed(skipped[:cut])
	if strings.TrimSpace(skipped[cut:]) != "" {
		group.open(skipStart+cut, begin)
	} else {
		group.open(origWordStart, begin)
	}
}

// clauseUnknown handles a run of unrecognized entries in clause mode.
func (c *cursor) clauseUnknown(group *clauseGroup, flush func(int), iv Interval) {
	unkEnd := iv.End
	next := c.traceIdx + 1
	for next < len(c.trace) && c.trace[next].Label == UnknownLabel {
		unkEnd = c.trace[next].End
		next++
	}

	remaining := c.reading[c.readingPos:]

	if next >= len(c.trace) {
		// trace ends in unknowns: close the paragraph on their timing
		origStart := markup.ReadingPosToOriginal(c.text, c.readingPos)
		origStart = adjustStartForBracket(c.text, origStart)
		group.open(origStart, iv.Begin)
		group.end = unkEnd
		flush(len(c.text))
		c.readingPos = len(c.reading)
		c.traceIdx = next
		return
	}

	label := normalizeLabel(c.trace[next].Label)
	pos := strings.Index(remaining, label)
	switch {
	case pos > 0:
		origStart, origEnd := markup.OriginalRange(c.text, c.readingPos, pos)
		unkText := c.text[origStart:origEnd]
		group.open(origStart, iv.Begin)
		group.end = unkEnd
		c.readingPos += pos

		if last, _ := lastRune(unkText); last != utf8.RuneError &&
			containsRune(sentenceDelimiters, last) &&
			!(last == '.' && len(unkText) >= 2 && unkText[len(unkText)-2] == '{') {
			if !hasUnclosedFormatting(c.text[group.origStart:origEnd]) {
				flush(origEnd)
			}
		} else if strings.Contains(unkText, "　　") {
			// double fullwidth space separates enumerated choices
			if !hasUnclosedFormatting(c.text[group.origStart:origEnd]) {
				group.end = c.trace[next].Begin
				flush(origEnd)
			}
		}
	case pos < 0:
		// the recognized word is beyond this paragraph: consume one entry
		// and close at the next word's start time so audio does not cut off
		origStart := markup.ReadingPosToOriginal(c.text, c.readingPos)
		origStart = adjustStartForBracket(c.text, origStart)
		group.open(origStart, iv.Begin)
		group.end = c.trace[next].Begin
		flush(len(c.text))
		c.readingPos = len(c.reading)
		c.traceIdx++
		return
	}

	c.traceIdx = next
}

// flushClauseTail closes out the paragraph: an open group swallows the tail,
// otherwise remaining speakable text gets an estimated clip and silent
// symbols are appended as-is.
func (c *cursor) flushClauseTail(group *clauseGroup, flush func(int)) {
	if group.active {
		flush(len(c.text))
		return
	}

	if c.readingPos < len(c.reading) {
		origStart := markup.ReadingPosToOriginal(c.text, c.readingPos)
		origStart = adjustStartForBracket(c.text, origStart)
		rest := c.text[origStart:]
		if strings.TrimSpace(rest) == "" {
			return
		}
		if !speakableRe.MatchString(normalizeLabel(rest)) {
			c.appendUntimed(rest)
			return
		}
		var begin, end float64
		switch {
		case c.traceIdx < len(c.trace):
			endIdx := c.traceIdx + 5
			if endIdx > len(c.trace)-1 {
				endIdx = len(c.trace) - 1
			}
			begin = c.trace[c.traceIdx].Begin
			end = c.trace[endIdx].End
		case len(c.trace) > 0:
			begin = c.trace[len(c.trace)-1].Begin
			end = c.trace[len(c.trace)-1].End
		}
		c.appendTimed(rest, begin, end)
		return
	}

	origStart := markup.ReadingPosToOriginal(c.text, len(c.reading))
	origStart = adjustStartForBracket(c.text, origStart)
	c.appendUntimed(c.text[origStart:])
}
