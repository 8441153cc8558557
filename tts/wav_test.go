package tts

import (
	"bytes"
	"testing"
)

func makeWAV(t *testing.T, rate uint32, channels, bits uint16, frames []byte) []byte {
	t.Helper()
	return encodeWAV(&wavData{
		Format:     1,
		Channels:   channels,
		SampleRate: rate,
		BitsDepth:  bits,
		Frames:     frames,
	})
}

func TestParseWAV(t *testing.T) {
	t.Run("round_trip", func(t *testing.T) {
		frames := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		w, err := parseWAV(makeWAV(t, 24000, 1, 16, frames))
		if err != nil {
			t.Fatalf("parseWAV: %v", err)
		}
		if w.SampleRate != 24000 || w.Channels != 1 || w.BitsDepth != 16 {
			t.Errorf("params = %d Hz, %d ch, %d bit", w.SampleRate, w.Channels, w.BitsDepth)
		}
		if !bytes.Equal(w.Frames, frames) {
			t.Errorf("frames = %v, want %v", w.Frames, frames)
		}
	})

	t.Run("rejects_non_wav", func(t *testing.T) {
		if _, err := parseWAV([]byte("ID3\x04mp3 data here...")); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("rejects_truncated_chunk", func(t *testing.T) {
		data := makeWAV(t, 24000, 1, 16, []byte{1, 2, 3, 4})
		if _, err := parseWAV(data[:len(data)-2]); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("duration", func(t *testing.T) {
		// 48000 bytes/sec at 24 kHz mono 16-bit
		w, err := parseWAV(makeWAV(t, 24000, 1, 16, make([]byte, 48000)))
		if err != nil {
			t.Fatalf("parseWAV: %v", err)
		}
		if w.Duration() != 1.0 {
			t.Errorf("Duration = %v, want 1.0", w.Duration())
		}
	})
}

func TestCombineWAV(t *testing.T) {
	t.Run("concatenates_frames", func(t *testing.T) {
		a := makeWAV(t, 24000, 1, 16, []byte{1, 2, 3, 4})
		b := makeWAV(t, 24000, 1, 16, []byte{5, 6})

		combined, err := CombineWAV([][]byte{a, b})
		if err != nil {
			t.Fatalf("CombineWAV: %v", err)
		}
		w, err := parseWAV(combined)
		if err != nil {
			t.Fatalf("parseWAV: %v", err)
		}
		if !bytes.Equal(w.Frames, []byte{1, 2, 3, 4, 5, 6}) {
			t.Errorf("frames = %v", w.Frames)
		}
		if w.SampleRate != 24000 || w.Channels != 1 {
			t.Errorf("params not preserved: %d Hz, %d ch", w.SampleRate, w.Channels)
		}
	})

	t.Run("single_segment_passthrough", func(t *testing.T) {
		a := makeWAV(t, 24000, 1, 16, []byte{9, 9})
		combined, err := CombineWAV([][]byte{a})
		if err != nil {
			t.Fatalf("CombineWAV: %v", err)
		}
		if !bytes.Equal(combined, a) {
			t.Error("single segment should be returned as is")
		}
	})

	t.Run("mismatched_rate_rejected", func(t *testing.T) {
		a := makeWAV(t, 24000, 1, 16, []byte{1, 2})
		b := makeWAV(t, 44100, 1, 16, []byte{3, 4})
		if _, err := CombineWAV([][]byte{a, b}); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("empty_input_rejected", func(t *testing.T) {
		if _, err := CombineWAV(nil); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestSplitParagraphs(t *testing.T) {
	got := splitParagraphs("一行目\n\n  \n二行目  \n")
	if len(got) != 2 || got[0] != "一行目" || got[1] != "二行目" {
		t.Errorf("splitParagraphs = %q", got)
	}
	if splitParagraphs(" \n ") != nil {
		t.Error("blank text should yield no paragraphs")
	}
}
