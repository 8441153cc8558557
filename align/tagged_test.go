package align

import (
	"math"
	"strings"
	"testing"
)

func TestTaggedReading(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     string
	}{
		{"plain_text", "これは文です", "これは文です"},
		{"ruby_uses_rt", "<ruby><rb>首都</rb><rt>しゅと</rt></ruby>直下", "しゅと直下"},
		{"data_yomi_overrides_content", `<span data-yomi="だいいち">第一</span>条`, "だいいち条"},
		{"tags_stripped", "<em>強調</em>部分", "強調部分"},
		{"brackets_normalized", "「発言」と『書名』", "[発言]と[書名]"},
		{"fullwidth_digits", "第１２条", "第12条"},
		{"ascii_lowered", "ABC", "abc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TaggedReading(tc.fragment); got != tc.want {
				t.Errorf("TaggedReading(%q) = %q, want %q", tc.fragment, got, tc.want)
			}
		})
	}
}

func TestExtractTaggedSpans(t *testing.T) {
	t.Run("nested_spans_stay_inside_content", func(t *testing.T) {
		fragment := `<p><span data-index="0">外<span class="x">内</span>側</span></p>`
		spans := extractTaggedSpans(fragment)
		if len(spans) != 1 {
			t.Fatalf("expected 1 span, got %d", len(spans))
		}
		if spans[0].content != `外<span class="x">内</span>側` {
			t.Errorf("content = %q", spans[0].content)
		}
	})

	t.Run("yomi_attribute_captured", func(t *testing.T) {
		fragment := `<span data-index="3" data-yomi="よみ">文</span>`
		spans := extractTaggedSpans(fragment)
		if len(spans) != 1 || spans[0].yomi != "よみ" {
			t.Fatalf("spans = %+v", spans)
		}
	})
}

func TestMatchTagged(t *testing.T) {
	t.Run("ids_assigned_and_timed", func(t *testing.T) {
		fragment := `<p><span data-index="0">今日は</span><span data-index="1">晴れ</span></p>`
		trace := []Interval{
			iv("今日は", 0.0, 0.9),
			iv("晴れ", 0.9, 1.5),
		}
		res := MatchTagged(fragment, trace, 0, 0, "s")
		if !strings.Contains(res.Paragraph, `<span id="s0000">`) ||
			!strings.Contains(res.Paragraph, `<span id="s0001">`) {
			t.Fatalf("ids not rewritten: %s", res.Paragraph)
		}
		if strings.Contains(res.Paragraph, "data-index") {
			t.Errorf("data-index left behind: %s", res.Paragraph)
		}
		if len(res.Pars) != 2 {
			t.Fatalf("expected 2 pars, got %+v", res.Pars)
		}
		if res.Pars[0].ElementID != "s0000" || res.Pars[0].Begin != 0.0 || res.Pars[0].End != 0.9 {
			t.Errorf("first par = %+v", res.Pars[0])
		}
		if res.Pars[1].Begin != 0.9 || res.Pars[1].End != 1.5 {
			t.Errorf("second par = %+v", res.Pars[1])
		}
		if res.NextIndex != 2 || res.NextID != 2 {
			t.Errorf("cursors = (%d, %d), want (2, 2)", res.NextIndex, res.NextID)
		}
	})

	t.Run("straddling_entry_split_proportionally", func(t *testing.T) {
		fragment := `<span data-index="0">今日は</span><span data-index="1">晴れ</span>`
		trace := []Interval{
			iv("今日は晴", 0.0, 4.0),
			iv("れ", 4.0, 5.0),
		}
		res := MatchTagged(fragment, trace, 0, 0, "s")
		if len(res.Pars) != 2 {
			t.Fatalf("expected 2 pars, got %+v", res.Pars)
		}
		// "今日は" is 9 of the entry's 12 bytes: split at 3.0
		if math.Abs(res.Pars[0].End-3.0) > 1e-9 || res.Pars[0].Begin != 0.0 {
			t.Errorf("first par = %+v", res.Pars[0])
		}
		if math.Abs(res.Pars[1].Begin-3.0) > 1e-9 || res.Pars[1].End != 5.0 {
			t.Errorf("second par = %+v", res.Pars[1])
		}
	})

	t.Run("yomi_attribute_drives_matching", func(t *testing.T) {
		fragment := `<span data-index="0" data-yomi="だいいちじょう">第一条</span>`
		trace := []Interval{iv("だいいちじょう", 0.0, 1.2)}
		res := MatchTagged(fragment, trace, 0, 0, "s")
		if len(res.Pars) != 1 || res.Pars[0].Begin != 0.0 || res.Pars[0].End != 1.2 {
			t.Fatalf("pars = %+v", res.Pars)
		}
		if strings.Contains(res.Paragraph, "data-yomi") {
			t.Errorf("yomi attribute left behind: %s", res.Paragraph)
		}
	})

	t.Run("punctuation_ignored_for_matching", func(t *testing.T) {
		fragment := `<span data-index="0">これは、文。</span>`
		trace := []Interval{
			iv("これは", 0.0, 0.5),
			iv("文", 0.5, 0.9),
		}
		res := MatchTagged(fragment, trace, 0, 0, "s")
		if len(res.Pars) != 1 {
			t.Fatalf("pars = %+v", res.Pars)
		}
		if res.Pars[0].Begin != 0.0 || res.Pars[0].End != 0.9 {
			t.Errorf("par = %+v", res.Pars[0])
		}
	})

	t.Run("unknown_entry_absorbed_by_span", func(t *testing.T) {
		fragment := `<span data-index="0">Ｘは</span><span data-index="1">続く</span>`
		trace := []Interval{
			iv(UnknownLabel, 0.0, 0.4),
			iv("は", 0.4, 0.5),
			iv("続く", 0.5, 1.0),
		}
		res := MatchTagged(fragment, trace, 0, 0, "s")
		if len(res.Pars) != 2 {
			t.Fatalf("pars = %+v", res.Pars)
		}
		if res.Pars[0].Begin != 0.0 || res.Pars[0].End != 0.5 {
			t.Errorf("first par = %+v", res.Pars[0])
		}
		if res.Pars[1].Begin != 0.5 || res.Pars[1].End != 1.0 {
			t.Errorf("second par = %+v", res.Pars[1])
		}
	})

	t.Run("span_without_audio_gets_no_par", func(t *testing.T) {
		fragment := `<span data-index="0">一致する</span><span data-index="1">見つからない</span>`
		trace := []Interval{iv("一致する", 0.0, 0.8)}
		res := MatchTagged(fragment, trace, 0, 0, "s")
		if len(res.Pars) != 1 {
			t.Fatalf("pars = %+v", res.Pars)
		}
		if !strings.Contains(res.Paragraph, `<span id="s0001">`) {
			t.Errorf("unmatched span still needs an id: %s", res.Paragraph)
		}
	})
}

func TestElementID(t *testing.T) {
	if got := ElementID("w", 7); got != "w0007" {
		t.Errorf("ElementID = %q", got)
	}
	if got := ElementID("c1_", 123); got != "c1_0123" {
		t.Errorf("ElementID = %q", got)
	}
}
