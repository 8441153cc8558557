package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// synthesizeWithSay produces a WAV segment with the macOS say command,
// converting its AIFF output to the 24 kHz mono PCM the aligner expects.
func synthesizeWithSay(ctx context.Context, text, voice string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "readalong-say-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	aiff := filepath.Join(dir, "segment.aiff")
	wav := filepath.Join(dir, "segment.wav")

	if err := runTool(ctx, "say", "-v", voice, "-o", aiff, text); err != nil {
		return nil, err
	}
	if err := runTool(ctx, "ffmpeg", "-y", "-i", aiff, "-ar", "24000", "-ac", "1", "-acodec", "pcm_s16le", wav); err != nil {
		return nil, err
	}
	return os.ReadFile(wav)
}

func runTool(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%s is not installed or not on PATH: %w", name, err)
		}
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return fmt.Errorf("%s failed: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}
