package markup

import (
	"strings"
	"testing"
)

func TestReadingPosToOriginal(t *testing.T) {
	t.Run("ruby_gloss_end_maps_past_construct", func(t *testing.T) {
		text := "[首都](-しゅと)直下"
		construct := len("[首都](-しゅと)")
		got := ReadingPosToOriginal(text, len("しゅと"))
		if got != construct {
			t.Fatalf("got %d, want %d (just past the ruby construct)", got, construct)
		}
	})

	t.Run("mid_gloss_resolves_to_construct_start", func(t *testing.T) {
		text := "前[首都](-しゅと)後"
		got := ReadingPosToOriginal(text, len("前")+1)
		if got != len("前") {
			t.Fatalf("got %d, want %d", got, len("前"))
		}
	})

	t.Run("plain_text_is_identity", func(t *testing.T) {
		text := "第一条の内容"
		for i := 0; i <= len(text); i += 3 {
			if got := ReadingPosToOriginal(text, i); got != i {
				t.Fatalf("pos %d: got %d", i, got)
			}
		}
	})

	t.Run("past_end_clamps_to_len", func(t *testing.T) {
		text := "短い"
		if got := ReadingPosToOriginal(text, 1000); got != len(text) {
			t.Fatalf("got %d, want %d", got, len(text))
		}
	})

	t.Run("recurses_into_strong", func(t *testing.T) {
		text := "**重要**"
		// position of 要 in the reading text "重要"
		got := ReadingPosToOriginal(text, len("重"))
		if got != 2+len("重") {
			t.Fatalf("got %d, want %d", got, 2+len("重"))
		}
	})

	t.Run("symbol_expansion_resolves_to_symbol", func(t *testing.T) {
		text := "第①条"
		// reading "第いち条"; middle of いち points at ①
		got := ReadingPosToOriginal(text, len("第")+3)
		if got != len("第") {
			t.Fatalf("got %d, want %d", got, len("第"))
		}
	})

	t.Run("image_contributes_nothing", func(t *testing.T) {
		text := "前![図](fig.png)後"
		got := ReadingPosToOriginal(text, len("前"))
		if got != len("前") {
			t.Fatalf("got %d, want %d", got, len("前"))
		}
		// one byte into 後: resolves to the start of 後, past the image
		got = ReadingPosToOriginal(text, len("前")+1)
		if got != len(text)-len("後") {
			t.Fatalf("got %d, want %d", got, len(text)-len("後"))
		}
	})
}

func TestOriginalRange(t *testing.T) {
	t.Run("ruby_word_covers_whole_construct", func(t *testing.T) {
		text := "[首都](-しゅと)直下"
		start, end := OriginalRange(text, 0, len("しゅと"))
		if start != 0 || end != len("[首都](-しゅと)") {
			t.Fatalf("got (%d, %d), want (0, %d)", start, end, len("[首都](-しゅと)"))
		}
	})

	t.Run("plain_range", func(t *testing.T) {
		text := "第一条の内容"
		start, end := OriginalRange(text, len("第一条"), len("の内容"))
		if start != len("第一条") || end != len(text) {
			t.Fatalf("got (%d, %d)", start, end)
		}
	})

	t.Run("strong_markers_pulled_in", func(t *testing.T) {
		text := "これは**重要**です"
		start, end := OriginalRange(text, len("これは"), len("重要"))
		if got := text[start:end]; got != "**重要**" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("frame_expanded_to_whole_construct", func(t *testing.T) {
		text := "[ア]{.frame}イウ"
		start, end := OriginalRange(text, 0, len("ア"))
		if got := text[start:end]; got != "[ア]{.frame}" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("underline_not_expanded_word_by_word", func(t *testing.T) {
		// words inside a long underlined phrase highlight individually;
		// the opening bracket stays outside the first word's range
		text := "[あいう えお]{.underline}"
		start, end := OriginalRange(text, 0, len("あいう"))
		if got := text[start:end]; got != "あいう" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("stray_closing_marker_excluded", func(t *testing.T) {
		text := "[あいう えお]{.underline}"
		start, end := OriginalRange(text, len("あいう "), len("えお"))
		if got := text[start:end]; strings.Contains(got, "]{.underline}") && !strings.Contains(got, "[") {
			t.Fatalf("stray closing marker kept: %q", got)
		}
		_ = start
	})

	t.Run("subscript_markers_pulled_in", func(t *testing.T) {
		text := "H~2~O"
		start, end := OriginalRange(text, 0, len("H2O"))
		if start != 0 || end != len(text) {
			t.Fatalf("got (%d, %d)", start, end)
		}
	})
}

// Plain text tiles exactly: consecutive reading ranges translate to
// consecutive original ranges with no gaps or overlaps.
func TestOriginalRangeTilesPlainText(t *testing.T) {
	text := "第一条これはそのままの本文である"
	prevEnd := 0
	for pos := 0; pos < len(text); pos += 3 {
		start, end := OriginalRange(text, pos, 3)
		if start != prevEnd || end != prevEnd+3 {
			t.Fatalf("pos %d: got (%d, %d), want (%d, %d)", pos, start, end, prevEnd, prevEnd+3)
		}
		prevEnd = end
	}
}

// Arbitrary probe positions, including ones landing mid-gloss or
// mid-expansion, must stay inside the text and never invert.
func TestOriginalRangeBounds(t *testing.T) {
	texts := []string{
		"[首都](-しゅと)直下の**大**地震が発生した。",
		"第①条 [被害](-ひがい)[想定](-そうてい)について、H~2~O と 2^10^。",
		"[新たな[被害](-ひがい)想定]{.underline}の[ほか](+そのほか)。",
	}
	for _, text := range texts {
		reading := ReadingText(text)
		for pos := 0; pos <= len(reading); pos++ {
			for _, n := range []int{1, 3, 7} {
				start, end := OriginalRange(text, pos, n)
				if start > end {
					t.Fatalf("%q at (%d,%d): inverted range (%d, %d)", text, pos, n, start, end)
				}
				if start < 0 || end > len(text) {
					t.Fatalf("%q at (%d,%d): out of bounds (%d, %d)", text, pos, n, start, end)
				}
			}
		}
	}
}
