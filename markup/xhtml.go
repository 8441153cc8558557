package markup

import (
	"unicode/utf8"

	"github.com/beevik/etree"
)

// FrameStyle is the inline style applied to framed text. Kept in one place
// so XHTML output and tests agree.
const FrameStyle = "border: solid 2px; padding: 0.25em; margin:0em 0.2em 0em 0.2em; white-space: nowrap;"

// RenderInline renders a markup-bearing fragment as XHTML children of
// parent: ruby constructs become <ruby>base<rt>gloss</rt></ruby>, reading
// substitutions render their display text without any tag, underline
// becomes <u>, frame a styled <span>, strong/sub/sup their elements and
// images an <img/>. Plain text is appended as character data (etree handles
// escaping on serialization).
func RenderInline(parent *etree.Element, text string) {
	plain := func(s string) {
		if s != "" {
			parent.CreateText(s)
		}
	}
	start := 0
	for i := 0; i < len(text); {
		sp, ok := Match(text[i:])
		if !ok {
			_, sz := utf8.DecodeRuneInString(text[i:])
			i += sz
			continue
		}
		plain(text[start:i])
		switch sp.Kind {
		case Image:
			img := parent.CreateElement("img")
			img.CreateAttr("src", sp.Extra)
			img.CreateAttr("alt", sp.Inner)
		case Underline:
			RenderInline(parent.CreateElement("u"), sp.Inner)
		case Frame:
			frame := parent.CreateElement("span")
			frame.CreateAttr("style", FrameStyle)
			RenderInline(frame, sp.Inner)
		case Strong:
			RenderInline(parent.CreateElement("strong"), sp.Inner)
		case ReadingSub:
			RenderInline(parent, sp.Inner)
		case Ruby:
			ruby := parent.CreateElement("ruby")
			ruby.CreateText(sp.Inner)
			ruby.CreateElement("rt").SetText(sp.Extra)
		case Subscript:
			RenderInline(parent.CreateElement("sub"), sp.Inner)
		case Superscript:
			RenderInline(parent.CreateElement("sup"), sp.Inner)
		}
		i += sp.Len
		start = i
	}
	plain(text[start:])
}
