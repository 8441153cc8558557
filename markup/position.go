package markup

import (
	"strings"
	"unicode/utf8"
)

// ReadingPosToOriginal converts a byte position in the reading text of text
// into the corresponding byte position in text itself. A position landing
// inside a ruby gloss or reading substitution resolves to the start of the
// construct (the whole construct belongs to the unit); a position landing
// inside a symbol expansion resolves to the symbol. Positions past the end
// of the reading text clamp to len(text).
func ReadingPosToOriginal(text string, readingPos int) int {
	origPos, readPos := 0, 0
	for readPos <= readingPos && origPos < len(text) {
		atTarget := readPos == readingPos
		if sp, ok := Match(text[origPos:]); ok {
			switch sp.Kind {
			case Image:
				// contributes nothing to the reading text
				if atTarget {
					return origPos
				}
				origPos += sp.Len
				continue
			case Ruby, ReadingSub:
				n := foldedLen(sp.Extra)
				if readPos+n <= readingPos && !atTarget {
					readPos += n
					origPos += sp.Len
					continue
				}
				// mid-gloss: the whole construct belongs to the range
				return origPos
			default:
				n := ReadingLen(sp.Inner)
				if readPos+n <= readingPos && !atTarget {
					readPos += n
					origPos += sp.Len
					continue
				}
				open := 1 // '[', '~' or '^'
				if sp.Kind == Strong {
					open = 2
				}
				return origPos + open + ReadingPosToOriginal(sp.Inner, readingPos-readPos)
			}
		}
		r, sz := utf8.DecodeRuneInString(text[origPos:])
		contrib := foldReading(r)
		if atTarget || readPos+len(contrib) > readingPos {
			return origPos
		}
		readPos += len(contrib)
		origPos += sz
	}
	return origPos
}

// OriginalRange converts a half-open reading-text range into the enclosing
// original-text range, repairing boundaries so markup constructs are never
// split: opening markers just before the start and closing markers just
// after the end are pulled in, ranges that stop inside a construct retract
// to the construct edge, and stray closing markers with no opening partner
// inside the range are excluded.
func OriginalRange(text string, readingStart, readingLen int) (int, int) {
	origStart := ReadingPosToOriginal(text, readingStart)
	origEnd := ReadingPosToOriginal(text, readingStart+readingLen)

	// end landed just inside the '[' of a following underline/frame
	// construct (position resolution enters the construct at inner offset 0)
	if origEnd > origStart && origEnd >= 1 && text[origEnd-1] == '[' {
		if sp, ok := Match(text[origEnd-1:]); ok && (sp.Kind == Underline || sp.Kind == Frame) {
			origEnd--
		}
	}

	// end landed just past the '[' that terminates a sub/superscript,
	// e.g. ~x~[... — retract to the bracket
	if origEnd > origStart {
		pos := origEnd
		for back := 1; back <= 2 && pos > origStart; back++ {
			r, sz := utf8.DecodeLastRuneInString(text[:pos])
			pos -= sz
			if r == '[' && pos > 0 && (text[pos-1] == '~' || text[pos-1] == '^') {
				origEnd = pos
				break
			}
		}
	}

	// a closing marker with no opening '[' inside the range is a stray from
	// a construct the range only partially covers — cut before it
	if origEnd > origStart {
		rangeText := text[origStart:origEnd]
		for _, marker := range []string{"]{.underline}", "]{.frame}"} {
			if idx := strings.Index(rangeText, marker); idx >= 0 && !strings.Contains(rangeText[:idx], "[") {
				origEnd = origStart + idx
				break
			}
		}
	}

	origStart = extendStart(text, origStart)
	origEnd = extendEnd(text, origStart, origEnd)
	return origStart, origEnd
}

// extendStart pulls opening markup markers immediately before pos into the
// range. Frame constructs are entered as a whole; underline constructs are
// not (long underlined phrases highlight word by word unless the dedicated
// whole-construct path takes them).
func extendStart(text string, origStart int) int {
	// strict check: are we inside a [...]{.frame} body?
	bracketPos := -1
	pos := origStart
	for back := 1; back <= 15 && pos > 0; back++ {
		r, sz := utf8.DecodeLastRuneInString(text[:pos])
		pos -= sz
		if r == ']' {
			break // crossed another construct boundary
		}
		if r != '[' {
			continue
		}
		after := text[origStart:]
		frameIdx := strings.Index(after, "]{.frame}")
		underlineIdx := strings.Index(after, "]{.underline}")
		endIdx := -1
		if frameIdx >= 0 && (underlineIdx < 0 || frameIdx <= underlineIdx) {
			endIdx = frameIdx
		} else if underlineIdx >= 0 {
			endIdx = underlineIdx
		}
		if endIdx >= 0 && !strings.Contains(after[:endIdx], "[") &&
			strings.HasPrefix(after[endIdx:], "]{.frame}") {
			bracketPos = pos
		}
		break
	}
	if bracketPos >= 0 {
		if bracketPos >= 2 && text[bracketPos-2:bracketPos] == "**" {
			return bracketPos - 2
		}
		return bracketPos
	}

	switch {
	case origStart >= 3 && text[origStart-3:origStart] == "**[":
		if sp, ok := Match(text[origStart-1:]); ok && sp.Kind == Frame {
			return origStart - 3
		}
		return origStart - 2 // take the ** but leave the '['
	case origStart >= 2 && text[origStart-2:origStart] == "**":
		return origStart - 2
	case origStart >= 1 && text[origStart-1] == '[':
		if sp, ok := Match(text[origStart-1:]); ok && sp.Kind == Frame {
			return origStart - 1
		}
	case origStart >= 1 && (text[origStart-1] == '~' || text[origStart-1] == '^'):
		return origStart - 1
	}
	return origStart
}

// extendEnd pulls closing markup markers just after origEnd into the range.
// The ]{.frame} / ]{.underline} extensions only apply when the range holds
// an unmatched '[' — otherwise they would glue a stray closer onto a range
// that never opened the construct.
func extendEnd(text string, origStart, origEnd int) int {
	remaining := text[origEnd:]
	rangeText := text[origStart:origEnd]
	unmatched := strings.Count(rangeText, "[") > strings.Count(rangeText, "]")

	if unmatched {
		switch {
		case strings.HasPrefix(remaining, "]{.frame}**"):
			return origEnd + len("]{.frame}**")
		case strings.HasPrefix(remaining, "]{.underline}**"):
			return origEnd + len("]{.underline}**")
		case strings.HasPrefix(remaining, "]{.frame}"):
			return origEnd + len("]{.frame}")
		case strings.HasPrefix(remaining, "]{.underline}"):
			return origEnd + len("]{.underline}")
		}
		if idx := strings.Index(prefixRunes(remaining, 15), "]{.frame}"); idx >= 0 {
			return origEnd + idx + len("]{.frame}")
		}
		if idx := strings.Index(prefixRunes(remaining, 20), "]{.underline}"); idx >= 0 {
			return origEnd + idx + len("]{.underline}")
		}
		// unmatched '[' must still be closed: search without a window
		if idx := strings.Index(remaining, "]{.frame}"); idx >= 0 && !strings.Contains(remaining[:idx], "[") {
			return origEnd + idx + len("]{.frame}")
		}
		if idx := strings.Index(remaining, "]{.underline}"); idx >= 0 && !strings.Contains(remaining[:idx], "[") {
			return origEnd + idx + len("]{.underline}")
		}
	}
	switch {
	case strings.HasPrefix(remaining, "**"):
		return origEnd + 2
	case strings.HasPrefix(remaining, "~") || strings.HasPrefix(remaining, "^"):
		return origEnd + 1
	}
	return origEnd
}

// prefixRunes returns the prefix of s holding at most n runes.
func prefixRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
