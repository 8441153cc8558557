package tts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// wavData is a decoded RIFF/WAVE file: format parameters plus raw PCM frames.
type wavData struct {
	Format     uint16
	Channels   uint16
	SampleRate uint32
	BitsDepth  uint16
	Frames     []byte
}

func (w *wavData) blockAlign() uint16 {
	return w.Channels * w.BitsDepth / 8
}

func (w *wavData) byteRate() uint32 {
	return w.SampleRate * uint32(w.blockAlign())
}

// Duration returns the audio length in seconds.
func (w *wavData) Duration() float64 {
	if w.byteRate() == 0 {
		return 0
	}
	return float64(len(w.Frames)) / float64(w.byteRate())
}

func parseWAV(data []byte) (*wavData, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, errors.New("not a RIFF/WAVE stream")
	}

	w := &wavData{}
	haveFmt, haveData := false, false

	// Chunks after the RIFF header, sizes padded to even offsets.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			return nil, fmt.Errorf("truncated %q chunk", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, errors.New("malformed fmt chunk")
			}
			w.Format = binary.LittleEndian.Uint16(data[body : body+2])
			w.Channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			w.SampleRate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			w.BitsDepth = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFmt = true
		case "data":
			w.Frames = data[body : body+size]
			haveData = true
		}
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt || !haveData {
		return nil, errors.New("missing fmt or data chunk")
	}
	return w, nil
}

func encodeWAV(w *wavData) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+len(w.Frames)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, w.Format)
	binary.Write(buf, binary.LittleEndian, w.Channels)
	binary.Write(buf, binary.LittleEndian, w.SampleRate)
	binary.Write(buf, binary.LittleEndian, w.byteRate())
	binary.Write(buf, binary.LittleEndian, w.blockAlign())
	binary.Write(buf, binary.LittleEndian, w.BitsDepth)

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(len(w.Frames)))
	buf.Write(w.Frames)
	return buf.Bytes()
}

// CombineWAV concatenates PCM frames of several WAV segments into a single
// file carrying the first segment's format parameters. All segments must
// share those parameters.
func CombineWAV(segments [][]byte) ([]byte, error) {
	if len(segments) == 0 {
		return nil, errors.New("no audio segments to combine")
	}
	if len(segments) == 1 {
		return segments[0], nil
	}

	first, err := parseWAV(segments[0])
	if err != nil {
		return nil, fmt.Errorf("unable to parse audio segment 1: %w", err)
	}

	frames := append([]byte(nil), first.Frames...)
	for i, seg := range segments[1:] {
		w, err := parseWAV(seg)
		if err != nil {
			return nil, fmt.Errorf("unable to parse audio segment %d: %w", i+2, err)
		}
		if w.Channels != first.Channels || w.SampleRate != first.SampleRate || w.BitsDepth != first.BitsDepth {
			return nil, fmt.Errorf("audio segment %d has mismatched format (%d Hz, %d ch, %d bit)",
				i+2, w.SampleRate, w.Channels, w.BitsDepth)
		}
		frames = append(frames, w.Frames...)
	}

	out := *first
	out.Frames = frames
	return encodeWAV(&out), nil
}
