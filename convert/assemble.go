package convert

import (
	"path"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"readalong/align"
	"readalong/book"
	"readalong/epub"
	"readalong/markup"
	"readalong/textgrid"
)

// imageRef is an image referenced by a paragraph: the path as written in the
// source (relative to the source directory) and its alt text.
type imageRef struct {
	Path string
	Alt  string
}

// buildChapters matches the paragraphs of one parsed source file against its
// timing trace and produces the book chapters plus the images the text
// references. The span id and trace cursors run through the whole file, so
// highlight ids stay unique and paragraphs consume the trace in order.
// filePrefix distinguishes chapters of different files in a multi-file book.
func buildChapters(f *book.File, title string, trace *textgrid.Trace, mode align.Mode, lang, filePrefix, audioName string, log *zap.Logger) ([]*epub.Chapter, []imageRef) {
	var (
		images []imageRef
		spanID int
		tgIdx  int
	)

	addParagraphs := func(c *epub.Chapter, prefix string, paragraphs []string) {
		for _, p := range paragraphs {
			if strings.TrimSpace(p) == "" {
				continue
			}

			if img, ok := imageParagraph(p); ok {
				c.AddImage(imageFileName(img.Path), img.Alt)
				images = append(images, img)
				continue
			}

			if strings.Contains(p, "data-index=") {
				res := align.MatchTagged(p, trace.Intervals, tgIdx, spanID, prefix)
				if err := c.AddTagged(res.Paragraph, res.Pars); err != nil {
					log.Warn("Unable to merge tagged paragraph", zap.String("chapter", c.ID), zap.Error(err))
				}
				spanID, tgIdx = res.NextID, res.NextIndex
				continue
			}

			tgIdx = align.Resync(p, trace.Intervals, tgIdx, align.DefaultResyncOptions())
			res := align.MatchParagraph(p, trace.Intervals, tgIdx, spanID, mode)
			c.AddParagraph(res.Units, prefix)
			spanID, tgIdx = res.NextID, res.NextIndex
		}
	}

	if len(f.Sections) == 0 {
		id := filePrefix + "chapter1"
		c := epub.NewChapter(id, title, 1, lang, audioName)
		addParagraphs(c, id+"_w", f.Lines)
		return []*epub.Chapter{c}, images
	}

	chapters := make([]*epub.Chapter, 0, len(f.Sections))
	for _, s := range f.Sections {
		id := filePrefix + s.ID
		prefix := id + "_w"
		c := epub.NewChapter(id, s.Heading.Title, s.Heading.Level, lang, audioName)

		// the heading is narrated too
		tgIdx = align.Resync(s.Heading.TitleRaw, trace.Intervals, tgIdx, align.DefaultResyncOptions())
		res := align.MatchParagraph(s.Heading.TitleRaw, trace.Intervals, tgIdx, spanID, mode)
		c.AddHeading(res.Units, prefix)
		spanID, tgIdx = res.NextID, res.NextIndex

		addParagraphs(c, prefix, s.Paragraphs)
		chapters = append(chapters, c)
	}
	return chapters, images
}

// imageFileName maps a source image path to its name inside the book: the
// base name is slugged so hrefs in the manifest stay ASCII-safe, the
// extension survives.
func imageFileName(p string) string {
	base := path.Base(p)
	ext := path.Ext(base)
	return slug.Make(strings.TrimSuffix(base, ext)) + ext
}

// imageParagraph recognizes a paragraph consisting of a single image
// construct.
func imageParagraph(p string) (imageRef, bool) {
	p = strings.TrimSpace(p)
	sp, ok := markup.Match(p)
	if !ok || sp.Kind != markup.Image || sp.Len != len(p) {
		return imageRef{}, false
	}
	return imageRef{Path: sp.Extra, Alt: sp.Inner}, true
}
