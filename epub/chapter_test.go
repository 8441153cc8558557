package epub

import (
	"strings"
	"testing"

	"readalong/align"
)

func chapterXHTML(t *testing.T, c *Chapter) string {
	t.Helper()
	s, err := c.doc.WriteToString()
	if err != nil {
		t.Fatalf("serialize xhtml: %v", err)
	}
	return s
}

func chapterSMIL(t *testing.T, c *Chapter) string {
	t.Helper()
	s, err := c.smil.WriteToString()
	if err != nil {
		t.Fatalf("serialize smil: %v", err)
	}
	return s
}

func TestChapter(t *testing.T) {
	t.Run("timed_units_become_spans_and_pars", func(t *testing.T) {
		c := NewChapter("chapter1", "第一章", 2, "ja", "audio.mp3")
		c.AddHeading([]align.Unit{
			{ID: 0, Text: "第一章", Begin: 0.0, End: 1.0, Timed: true},
		}, "chapter1_w")
		c.AddParagraph([]align.Unit{
			{ID: 1, Text: "国会は", Begin: 1.0, End: 1.8, Timed: true},
			{ID: 2, Text: "審議する。", Begin: 1.8, End: 2.9, Timed: true},
		}, "chapter1_w")

		xhtml := chapterXHTML(t, c)
		if !strings.Contains(xhtml, `<h2>`) {
			t.Errorf("heading level not honored: %s", xhtml)
		}
		for _, id := range []string{"chapter1_w0000", "chapter1_w0001", "chapter1_w0002"} {
			if !strings.Contains(xhtml, `<span id="`+id+`">`) {
				t.Errorf("missing span %s in %s", id, xhtml)
			}
		}

		smil := chapterSMIL(t, c)
		if !strings.Contains(smil, `<par id="par_chapter1_w0001">`) {
			t.Errorf("missing par: %s", smil)
		}
		if !strings.Contains(smil, `src="../text/chapter1.xhtml#chapter1_w0001"`) {
			t.Errorf("text src wrong: %s", smil)
		}
		if !strings.Contains(smil, `clipBegin="1.000s"`) || !strings.Contains(smil, `clipEnd="2.900s"`) {
			t.Errorf("clips wrong: %s", smil)
		}
		if !strings.Contains(smil, `src="../audio/audio.mp3"`) {
			t.Errorf("audio src wrong: %s", smil)
		}
	})

	t.Run("silent_units_render_without_span", func(t *testing.T) {
		c := NewChapter("chapter1", "t", 1, "ja", "audio.mp3")
		c.AddParagraph([]align.Unit{
			{Text: "――", Timed: false},
			{ID: 0, Text: "本文", Begin: 0, End: 1, Timed: true},
		}, "w")

		xhtml := chapterXHTML(t, c)
		if !strings.Contains(xhtml, "――") {
			t.Errorf("silent text lost: %s", xhtml)
		}
		if strings.Count(xhtml, "<span") != 1 {
			t.Errorf("expected exactly one span: %s", xhtml)
		}
	})

	t.Run("markup_rendered_inside_spans", func(t *testing.T) {
		c := NewChapter("chapter1", "t", 1, "ja", "audio.mp3")
		c.AddParagraph([]align.Unit{
			{ID: 0, Text: "[首都](-しゅと)", Begin: 0, End: 1, Timed: true},
		}, "w")

		xhtml := chapterXHTML(t, c)
		if !strings.Contains(xhtml, "<ruby>首都<rt>しゅと</rt></ruby>") {
			t.Errorf("ruby not rendered: %s", xhtml)
		}
	})

	t.Run("duration_accumulates", func(t *testing.T) {
		c := NewChapter("chapter1", "t", 1, "ja", "audio.mp3")
		c.AddParagraph([]align.Unit{
			{ID: 0, Text: "一", Begin: 0, End: 1.5, Timed: true},
			{ID: 1, Text: "二", Begin: 1.5, End: 2.0, Timed: true},
		}, "w")
		if c.Duration != 2.0 {
			t.Errorf("Duration = %v, want 2.0", c.Duration)
		}
		if !c.HasAudio() {
			t.Error("HasAudio should be true")
		}
	})

	t.Run("image_paragraph_has_no_par", func(t *testing.T) {
		c := NewChapter("chapter1", "t", 1, "ja", "audio.mp3")
		c.AddImage("fig1.png", "図1")

		xhtml := chapterXHTML(t, c)
		if !strings.Contains(xhtml, `src="../images/fig1.png"`) || !strings.Contains(xhtml, `alt="図1"`) {
			t.Errorf("image not rendered: %s", xhtml)
		}
		if c.HasAudio() {
			t.Error("image-only chapter should have no audio")
		}
	})

	t.Run("tagged_fragment_merged", func(t *testing.T) {
		c := NewChapter("chapter1", "t", 1, "ja", "audio.mp3")
		err := c.AddTagged(`<p><span id="s0000">今日は</span><span id="s0001">晴れ</span></p>`, []align.Par{
			{ElementID: "s0000", Begin: 0, End: 0.9},
			{ElementID: "s0001", Begin: 0.9, End: 1.5},
		})
		if err != nil {
			t.Fatalf("AddTagged: %v", err)
		}
		xhtml := chapterXHTML(t, c)
		if !strings.Contains(xhtml, `<span id="s0001">晴れ</span>`) {
			t.Errorf("tagged spans lost: %s", xhtml)
		}
		smil := chapterSMIL(t, c)
		if !strings.Contains(smil, `<par id="par_s0000">`) {
			t.Errorf("tagged pars lost: %s", smil)
		}
	})

	t.Run("names_derive_from_id", func(t *testing.T) {
		c := NewChapter("file2_chapter3", "t", 1, "ja", "file2.mp3")
		if c.XHTMLName() != "file2_chapter3.xhtml" || c.SMILName() != "file2_chapter3.smil" {
			t.Errorf("names = %q, %q", c.XHTMLName(), c.SMILName())
		}
	})
}
