package convert

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"readalong/align"
	"readalong/book"
	"readalong/textgrid"
)

func testTrace(intervals ...align.Interval) *textgrid.Trace {
	var d float64
	if len(intervals) > 0 {
		d = intervals[len(intervals)-1].End
	}
	return &textgrid.Trace{Intervals: intervals, Duration: d}
}

func TestBuildChapters(t *testing.T) {
	log := zaptest.NewLogger(t)

	t.Run("sections_become_chapters", func(t *testing.T) {
		f := book.Parse("# 見出し\n\n国は\n\n## 次\n\n今日は\n", 1)
		trace := testTrace(
			align.Interval{Label: "見出し", Begin: 0, End: 1},
			align.Interval{Label: "国", Begin: 1, End: 2},
			align.Interval{Label: "は", Begin: 2, End: 2.5},
			align.Interval{Label: "次", Begin: 2.5, End: 3},
			align.Interval{Label: "今日", Begin: 3, End: 3.8},
			align.Interval{Label: "は", Begin: 3.8, End: 4},
		)

		chapters, imgs := buildChapters(f, "本", trace, align.ModeToken, "ja", "", "audio.mp3", log)
		if len(chapters) != 2 {
			t.Fatalf("chapters = %d, want 2", len(chapters))
		}
		if chapters[0].ID != "chapter1" || chapters[1].ID != "chapter2" {
			t.Errorf("ids = %s, %s", chapters[0].ID, chapters[1].ID)
		}
		if chapters[0].Title != "見出し" || chapters[0].Level != 1 {
			t.Errorf("chapter1 = %q level %d", chapters[0].Title, chapters[0].Level)
		}
		if chapters[1].Level != 2 {
			t.Errorf("chapter2 level = %d, want 2", chapters[1].Level)
		}
		if chapters[0].Duration <= 0 || chapters[1].Duration <= 0 {
			t.Errorf("durations = %v, %v", chapters[0].Duration, chapters[1].Duration)
		}
		if len(imgs) != 0 {
			t.Errorf("unexpected images: %v", imgs)
		}
	})

	t.Run("file_prefix_applied", func(t *testing.T) {
		f := book.Parse("# 見出し\n\n国は\n", 1)
		trace := testTrace(
			align.Interval{Label: "見出し", Begin: 0, End: 1},
			align.Interval{Label: "国", Begin: 1, End: 2},
			align.Interval{Label: "は", Begin: 2, End: 2.5},
		)

		chapters, _ := buildChapters(f, "本", trace, align.ModeToken, "ja", "file2_", "file2.mp3", log)
		if chapters[0].ID != "file2_chapter1" {
			t.Errorf("id = %s, want file2_chapter1", chapters[0].ID)
		}
		if chapters[0].Audio != "file2.mp3" {
			t.Errorf("audio = %s, want file2.mp3", chapters[0].Audio)
		}
	})

	t.Run("no_headings_single_chapter", func(t *testing.T) {
		f := book.Parse("国は\n", 1)
		trace := testTrace(
			align.Interval{Label: "国", Begin: 0, End: 1},
			align.Interval{Label: "は", Begin: 1, End: 1.5},
		)

		chapters, _ := buildChapters(f, "表題", trace, align.ModeToken, "ja", "", "audio.mp3", log)
		if len(chapters) != 1 {
			t.Fatalf("chapters = %d, want 1", len(chapters))
		}
		if chapters[0].ID != "chapter1" || chapters[0].Title != "表題" {
			t.Errorf("chapter = %s %q", chapters[0].ID, chapters[0].Title)
		}
		if !chapters[0].HasAudio() {
			t.Error("chapter should carry timing")
		}
	})

	t.Run("image_paragraphs_collected", func(t *testing.T) {
		f := book.Parse("# 見出し\n\n![図](images/fig.png)\n\n国は\n", 1)
		trace := testTrace(
			align.Interval{Label: "見出し", Begin: 0, End: 1},
			align.Interval{Label: "国", Begin: 1, End: 2},
			align.Interval{Label: "は", Begin: 2, End: 2.5},
		)

		_, imgs := buildChapters(f, "本", trace, align.ModeToken, "ja", "", "audio.mp3", log)
		if len(imgs) != 1 || imgs[0].Path != "images/fig.png" || imgs[0].Alt != "図" {
			t.Fatalf("images = %v", imgs)
		}
	})
}

func TestImageFileName(t *testing.T) {
	if got := imageFileName("images/fig.png"); got != "fig.png" {
		t.Errorf("imageFileName = %q, want fig.png", got)
	}
	got := imageFileName("images/図版 1.png")
	if !strings.HasSuffix(got, ".png") {
		t.Fatalf("extension lost: %q", got)
	}
	for _, r := range strings.TrimSuffix(got, ".png") {
		if r > 127 {
			t.Fatalf("name not ASCII-safe: %q", got)
		}
	}
}

func TestImageParagraph(t *testing.T) {
	tests := []struct {
		in   string
		path string
		ok   bool
	}{
		{"![図](fig.png)", "fig.png", true},
		{"  ![](pic.jpg)  ", "pic.jpg", true},
		{"本文![図](fig.png)", "", false},
		{"![図](fig.png)の説明", "", false},
		{"ただの本文", "", false},
	}
	for _, tt := range tests {
		ref, ok := imageParagraph(tt.in)
		if ok != tt.ok || ref.Path != tt.path {
			t.Errorf("imageParagraph(%q) = %+v, %v", tt.in, ref, ok)
		}
	}
}
