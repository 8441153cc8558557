// Package markup implements the inline markup dialect used by source
// documents: ruby glosses, reading substitutions, underline and frame
// decorations, strong emphasis, sub/superscript and images. It produces
// reading text for synthesis and alignment, renders display XHTML, and maps
// positions between the reading and original coordinate spaces.
package markup

import (
	"strings"
)

// Kind identifies an inline markup construct.
type Kind int

const (
	Image      Kind = iota // ![alt](path)
	Underline              // [text]{.underline}
	Frame                  // [text]{.frame}
	Strong                 // **text**
	ReadingSub             // [display](+spoken)
	Ruby                   // [base](-gloss)
	Subscript              // ~text~
	Superscript            // ^text^
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case Underline:
		return "underline"
	case Frame:
		return "frame"
	case Strong:
		return "strong"
	case ReadingSub:
		return "reading-sub"
	case Ruby:
		return "ruby"
	case Subscript:
		return "subscript"
	case Superscript:
		return "superscript"
	}
	return "unknown"
}

// Span is a recognized construct at the start of the scanned string.
// Len is the byte length of the whole construct in the source text.
// Inner is the displayed content; for Underline and Frame it may itself
// contain nested ruby, reading substitution or frame constructs.
// Extra carries the ruby gloss, the spoken form of a reading substitution,
// or the image path, depending on Kind.
type Span struct {
	Kind  Kind
	Len   int
	Inner string
	Extra string
}

// Match recognizes a markup construct starting at the first byte of s.
// Construct precedence follows the dialect: image, underline, frame,
// strong, reading substitution, ruby, subscript, superscript.
func Match(s string) (Span, bool) {
	if s == "" {
		return Span{}, false
	}
	switch s[0] {
	case '!':
		return matchImage(s)
	case '[':
		return matchBracket(s)
	case '*':
		return matchStrong(s)
	case '~':
		return matchWrapped(s, '~', Subscript)
	case '^':
		return matchWrapped(s, '^', Superscript)
	}
	return Span{}, false
}

// matchImage recognizes ![alt](path). Alt may be empty, path may not.
func matchImage(s string) (Span, bool) {
	if !strings.HasPrefix(s, "![") {
		return Span{}, false
	}
	close := strings.IndexByte(s[2:], ']')
	if close < 0 {
		return Span{}, false
	}
	alt := s[2 : 2+close]
	rest := s[2+close+1:]
	if !strings.HasPrefix(rest, "(") {
		return Span{}, false
	}
	end := strings.IndexByte(rest, ')')
	if end < 2 { // path is at least one byte
		return Span{}, false
	}
	return Span{
		Kind:  Image,
		Len:   2 + close + 1 + end + 1,
		Inner: alt,
		Extra: rest[1:end],
	}, true
}

// matchBracket recognizes the four bracket-led constructs. The underline and
// frame bodies may nest one level of ruby, reading substitution or frame;
// ruby and reading substitution bodies may not contain brackets at all.
func matchBracket(s string) (Span, bool) {
	i := 1
	nested := false
	for i < len(s) && s[i] != ']' {
		if s[i] != '[' {
			i++
			continue
		}
		// nested [..](-..) / [..](+..) / [..]{.frame}
		j := i + 1
		for j < len(s) && s[j] != ']' {
			j++
		}
		if j >= len(s) {
			return Span{}, false
		}
		rest := s[j+1:]
		switch {
		case strings.HasPrefix(rest, "(-") || strings.HasPrefix(rest, "(+"):
			k := strings.IndexByte(rest, ')')
			if k < 0 {
				return Span{}, false
			}
			i = j + 1 + k + 1
		case strings.HasPrefix(rest, "{.frame}"):
			i = j + 1 + len("{.frame}")
		default:
			return Span{}, false
		}
		nested = true
	}
	if i >= len(s) {
		return Span{}, false
	}
	inner := s[1:i]
	rest := s[i+1:]
	switch {
	case strings.HasPrefix(rest, "{.underline}"):
		return Span{Kind: Underline, Len: i + 1 + len("{.underline}"), Inner: inner}, true
	case strings.HasPrefix(rest, "{.frame}"):
		return Span{Kind: Frame, Len: i + 1 + len("{.frame}"), Inner: inner}, true
	}
	if nested || inner == "" {
		return Span{}, false
	}
	if strings.HasPrefix(rest, "(-") || strings.HasPrefix(rest, "(+") {
		k := strings.IndexByte(rest, ')')
		if k > 2 {
			kind := Ruby
			if rest[1] == '+' {
				kind = ReadingSub
			}
			return Span{Kind: kind, Len: i + 1 + k + 1, Inner: inner, Extra: rest[2:k]}, true
		}
	}
	return Span{}, false
}

func matchStrong(s string) (Span, bool) {
	if !strings.HasPrefix(s, "**") {
		return Span{}, false
	}
	idx := strings.Index(s[2:], "**")
	if idx < 1 {
		return Span{}, false
	}
	return Span{Kind: Strong, Len: idx + 4, Inner: s[2 : 2+idx]}, true
}

func matchWrapped(s string, marker byte, kind Kind) (Span, bool) {
	idx := strings.IndexByte(s[1:], marker)
	if idx < 1 {
		return Span{}, false
	}
	return Span{Kind: kind, Len: idx + 2, Inner: s[1 : 1+idx]}, true
}
