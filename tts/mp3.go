package tts

import (
	"context"

	"go.uber.org/zap"
)

// ConvertToMP3 re-encodes narration WAV into the MP3 embedded in the book.
// Narration is speech at 24 kHz mono, 64 kbps is plenty.
func ConvertToMP3(ctx context.Context, wavPath, mp3Path string, log *zap.Logger) error {
	log.Debug("Converting narration to MP3", zap.String("from", wavPath), zap.String("to", mp3Path))
	return runTool(ctx, "ffmpeg",
		"-y",
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", "64k",
		"-ar", "24000",
		"-ac", "1",
		mp3Path)
}
