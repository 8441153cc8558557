package markup

import (
	"strings"
	"unicode/utf8"
)

// readingTable maps symbols the aligner cannot recognize to the kana reading
// the synthesizer speaks for them. Parentheses become spaces so word
// boundaries survive; quotation brackets vanish. The reading text handed to
// the synthesizer and the text matched against the timing trace go through
// the same table, so positions stay consistent between the two.
var readingTable = map[rune]string{
	// fullwidth digits (used for item numbering)
	'１': "いち", '２': "に", '３': "さん", '４': "よん", '５': "ご",
	'６': "ろく", '７': "なな", '８': "はち", '９': "きゅう", '０': "ぜろ",
	// brackets
	'（': " ", '）': " ",
	'(': " ", ')': " ",
	'「': "", '」': "",
	'『': "", '』': "",
	// circled digits
	'①': "いち", '②': "に", '③': "さん", '④': "よん", '⑤': "ご",
	'⑥': "ろく", '⑦': "なな", '⑧': "はち", '⑨': "きゅう", '⑩': "じゅう",
	'⑪': "じゅういち", '⑫': "じゅうに", '⑬': "じゅうさん", '⑭': "じゅうよん",
	'⑮': "じゅうご", '⑯': "じゅうろく", '⑰': "じゅうなな", '⑱': "じゅうはち",
	'⑲': "じゅうきゅう", '⑳': "にじゅう", '⓪': "ぜろ",
	// roman numerals
	'Ⅰ': "いち", 'Ⅱ': "に", 'Ⅲ': "さん", 'Ⅳ': "よん", 'Ⅴ': "ご",
	'Ⅵ': "ろく", 'Ⅶ': "なな", 'Ⅷ': "はち", 'Ⅸ': "きゅう", 'Ⅹ': "じゅう",
	// circled letters
	'ⓐ': "えい", 'ⓑ': "びい", 'ⓒ': "しい", 'ⓓ': "でぃー", 'ⓔ': "いー",
	'ⓕ': "えふ", 'ⓖ': "じー", 'ⓗ': "えいち", 'ⓘ': "あい", 'ⓙ': "じぇい",
	// wave dashes read as a range marker
	'〜': "から", '～': "から",
}

// foldTable folds the width and dash variants the reading table leaves
// untouched, so matching normalization is a pure per-rune function.
var foldTable = map[rune]string{
	'－': "-", '–': "-", '—': "-", '―': "-",
	'ⓚ': "k", 'ⓛ': "l", 'ⓜ': "m", 'ⓝ': "n", 'ⓞ': "o", 'ⓟ': "p",
	'ⓠ': "q", 'ⓡ': "r", 'ⓢ': "s", 'ⓣ': "t", 'ⓤ': "u", 'ⓥ': "v",
	'ⓦ': "w", 'ⓧ': "x", 'ⓨ': "y", 'ⓩ': "z",
}

// foldReading returns the reading-text contribution of a single original
// rune: its kana reading when the symbol table covers it, the folded ASCII
// form for dash/width variants, otherwise the rune itself.
func foldReading(r rune) string {
	if exp, ok := readingTable[r]; ok {
		return exp
	}
	if f, ok := foldTable[r]; ok {
		return f
	}
	return string(r)
}

// StripFormatting removes all markup, keeping the spoken form: ruby glosses
// and reading substitutions contribute their readings, images contribute
// nothing, everything else contributes its inner text.
func StripFormatting(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if sp, ok := Match(text[i:]); ok {
			switch sp.Kind {
			case Image:
			case Ruby, ReadingSub:
				b.WriteString(sp.Extra)
			default:
				b.WriteString(StripFormatting(sp.Inner))
			}
			i += sp.Len
			continue
		}
		_, sz := utf8.DecodeRuneInString(text[i:])
		b.WriteString(text[i : i+sz])
		i += sz
	}
	return b.String()
}

// StripForDisplay removes all markup, keeping the displayed form: ruby bases
// and reading-substitution display texts survive, images are dropped.
func StripForDisplay(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if sp, ok := Match(text[i:]); ok {
			if sp.Kind != Image {
				if sp.Kind == Ruby || sp.Kind == ReadingSub {
					b.WriteString(sp.Inner)
				} else {
					b.WriteString(StripForDisplay(sp.Inner))
				}
			}
			i += sp.Len
			continue
		}
		_, sz := utf8.DecodeRuneInString(text[i:])
		b.WriteString(text[i : i+sz])
		i += sz
	}
	return b.String()
}

// ToReading expands symbol-table characters to their kana readings. Applied
// to stripped text before synthesis and alignment.
func ToReading(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if exp, ok := readingTable[r]; ok {
			b.WriteString(exp)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ReadingText produces the full reading text of a markup-bearing fragment:
// markup stripped to spoken forms, symbols expanded, dash variants folded.
// Position mapping assumes reading positions index into exactly this string.
func ReadingText(text string) string {
	stripped := StripFormatting(text)
	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		b.WriteString(foldReading(r))
	}
	return b.String()
}

// ReadingLen returns the byte length of the reading text of a fragment.
func ReadingLen(text string) int {
	n := 0
	for i := 0; i < len(text); {
		if sp, ok := Match(text[i:]); ok {
			switch sp.Kind {
			case Image:
			case Ruby, ReadingSub:
				n += foldedLen(sp.Extra)
			default:
				n += ReadingLen(sp.Inner)
			}
			i += sp.Len
			continue
		}
		r, sz := utf8.DecodeRuneInString(text[i:])
		n += len(foldReading(r))
		i += sz
	}
	return n
}

func foldedLen(s string) int {
	n := 0
	for _, r := range s {
		n += len(foldReading(r))
	}
	return n
}

// NormalizeForMatch normalizes a fragment for trace matching. Identical to
// ReadingText today; kept as its own name because trace labels run through
// it too and labels carry no markup.
func NormalizeForMatch(text string) string {
	return ReadingText(text)
}
