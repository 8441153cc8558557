package epub

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"readalong/align"
	"readalong/markup"
)

// Chapter accumulates one spine document and its media overlay. The XHTML
// body and SMIL sequence are built in lockstep: every timed unit becomes a
// span in the text and a par in the overlay, so a reading system can
// highlight the span while its clip plays.
type Chapter struct {
	ID       string // chapter1, file2_chapter3, ...
	Title    string
	Level    int     // heading level, drives nav nesting
	Audio    string  // base name of the narration file, e.g. audio.mp3
	Duration float64 // total clip time covered by this chapter's pars

	doc     *etree.Document
	section *etree.Element
	smil    *etree.Document
	seq     *etree.Element
	pars    int
}

// XHTMLName returns the chapter document file name under OEBPS/text.
func (c *Chapter) XHTMLName() string { return c.ID + ".xhtml" }

// SMILName returns the overlay file name under OEBPS/smil.
func (c *Chapter) SMILName() string { return c.ID + ".smil" }

// HasAudio reports whether any par was recorded for this chapter.
func (c *Chapter) HasAudio() bool { return c.pars > 0 }

// NewChapter starts an empty chapter document for the given language.
func NewChapter(id, title string, level int, lang, audio string) *Chapter {
	c := &Chapter{ID: id, Title: title, Level: level, Audio: audio}

	c.doc = etree.NewDocument()
	c.doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := c.doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	html.CreateAttr("xmlns:epub", "http://www.idpf.org/2007/ops")
	html.CreateAttr("xml:lang", lang)
	html.CreateAttr("lang", lang)

	head := html.CreateElement("head")
	meta := head.CreateElement("meta")
	meta.CreateAttr("charset", "utf-8")
	titleElem := head.CreateElement("title")
	titleElem.SetText(title)
	link := head.CreateElement("link")
	link.CreateAttr("rel", "stylesheet")
	link.CreateAttr("type", "text/css")
	link.CreateAttr("href", "../styles/style.css")

	body := html.CreateElement("body")
	c.section = body.CreateElement("section")
	c.section.CreateAttr("epub:type", "chapter")
	c.section.CreateAttr("role", "doc-chapter")
	c.section.CreateAttr("id", id)

	c.smil = etree.NewDocument()
	c.smil.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	smil := c.smil.CreateElement("smil")
	smil.CreateAttr("xmlns", "http://www.w3.org/ns/SMIL")
	smil.CreateAttr("xmlns:epub", "http://www.idpf.org/2007/ops")
	smil.CreateAttr("version", "3.0")
	smilBody := smil.CreateElement("body")
	c.seq = smilBody.CreateElement("seq")
	c.seq.CreateAttr("id", "seq_"+id)
	c.seq.CreateAttr("epub:textref", "../text/"+c.XHTMLName())
	c.seq.CreateAttr("epub:type", "bodymatter chapter")

	return c
}

// addPar records one overlay entry pointing at the element with elID.
func (c *Chapter) addPar(elID string, begin, end float64) {
	par := c.seq.CreateElement("par")
	par.CreateAttr("id", "par_"+elID)

	text := par.CreateElement("text")
	text.CreateAttr("src", fmt.Sprintf("../text/%s#%s", c.XHTMLName(), elID))

	audio := par.CreateElement("audio")
	audio.CreateAttr("src", "../audio/"+c.Audio)
	audio.CreateAttr("clipBegin", Clip(begin))
	audio.CreateAttr("clipEnd", Clip(end))

	if end > begin {
		c.Duration += end - begin
	}
	c.pars++
}

// writeUnits renders aligned units into parent. Timed units get an id span
// and an overlay par; silent units render their markup with no span.
func (c *Chapter) writeUnits(parent *etree.Element, units []align.Unit, prefix string) {
	for _, u := range units {
		if !u.Timed {
			markup.RenderInline(parent, u.Text)
			continue
		}
		elID := align.ElementID(prefix, u.ID)
		span := parent.CreateElement("span")
		span.CreateAttr("id", elID)
		markup.RenderInline(span, u.Text)
		c.addPar(elID, u.Begin, u.End)
	}
}

// AddHeading writes the chapter heading as h1..h5 built from aligned units.
func (c *Chapter) AddHeading(units []align.Unit, prefix string) {
	level := c.Level
	if level < 1 {
		level = 1
	} else if level > 5 {
		level = 5
	}
	h := c.section.CreateElement(fmt.Sprintf("h%d", level))
	c.writeUnits(h, units, prefix)
}

// AddParagraph writes one body paragraph built from aligned units.
func (c *Chapter) AddParagraph(units []align.Unit, prefix string) {
	p := c.section.CreateElement("p")
	c.writeUnits(p, units, prefix)
}

// AddImage writes an image-only paragraph. Images never join the overlay.
func (c *Chapter) AddImage(src, alt string) {
	p := c.section.CreateElement("p")
	img := p.CreateElement("img")
	img.CreateAttr("src", "../images/"+src)
	img.CreateAttr("alt", alt)
}

// AddTagged writes a paragraph produced by the tagged-span matcher: the
// fragment already carries id spans, the pars list carries their clips.
func (c *Chapter) AddTagged(fragment string, pars []align.Par) error {
	frag := strings.TrimSpace(fragment)
	if !strings.HasPrefix(frag, "<p") {
		frag = "<p>" + frag + "</p>"
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(frag); err != nil {
		return fmt.Errorf("unable to parse tagged paragraph: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("tagged paragraph has no content")
	}
	c.section.AddChild(root.Copy())

	for _, p := range pars {
		c.addPar(p.ElementID, p.Begin, p.End)
	}
	return nil
}
