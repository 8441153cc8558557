// Package tts synthesizes narration audio for the reading text of a book,
// one WAV per source document, paragraph by paragraph.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"readalong/config"
)

// Generate synthesizes text with the engine configured for lang and writes
// a single combined WAV to wavPath. Text is the reading text, one paragraph
// per line, exactly what the aligner will later see.
func Generate(ctx context.Context, text string, lang config.Language, cfg *config.AudioConfig, wavPath string, log *zap.Logger) error {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return errors.New("nothing to synthesize")
	}

	var (
		segments [][]byte
		err      error
	)

	switch lang.Engine {
	case config.EngineVoicevox:
		segments, err = generateVoicevox(ctx, paragraphs, cfg, log)
	case config.EngineSay:
		voice := cfg.SayVoice
		if voice == "" {
			voice = lang.Voice
		}
		segments, err = generateSay(ctx, paragraphs, voice, log)
	default:
		return fmt.Errorf("unsupported TTS engine %q for language %s", lang.Engine, lang.Code)
	}
	if err != nil {
		return err
	}

	combined, err := CombineWAV(segments)
	if err != nil {
		return err
	}
	if err := os.WriteFile(wavPath, combined, 0644); err != nil {
		return fmt.Errorf("unable to save narration: %w", err)
	}

	if w, err := parseWAV(combined); err == nil {
		log.Info("Narration synthesized",
			zap.String("file", wavPath),
			zap.Int("paragraphs", len(paragraphs)),
			zap.Float64("seconds", w.Duration()))
	}
	return nil
}

func generateVoicevox(ctx context.Context, paragraphs []string, cfg *config.AudioConfig, log *zap.Logger) ([][]byte, error) {
	client := NewVoicevoxClient(cfg.VoicevoxURL)
	speed := float64(cfg.Rate) / 100.0

	log.Info("Synthesizing with VOICEVOX",
		zap.String("url", cfg.VoicevoxURL),
		zap.Int("speaker", cfg.Speaker),
		zap.Float64("speed", speed))

	segments := make([][]byte, 0, len(paragraphs))
	for i, p := range paragraphs {
		data, err := client.Synthesize(ctx, p, cfg.Speaker, speed)
		if err != nil {
			return nil, fmt.Errorf("paragraph %d of %d: %w", i+1, len(paragraphs), err)
		}
		segments = append(segments, data)
		log.Debug("Paragraph synthesized", zap.Int("index", i+1), zap.Int("of", len(paragraphs)))
	}
	return segments, nil
}

func generateSay(ctx context.Context, paragraphs []string, voice string, log *zap.Logger) ([][]byte, error) {
	log.Info("Synthesizing with say", zap.String("voice", voice))

	segments := make([][]byte, 0, len(paragraphs))
	for i, p := range paragraphs {
		data, err := synthesizeWithSay(ctx, p, voice)
		if err != nil {
			return nil, fmt.Errorf("paragraph %d of %d: %w", i+1, len(paragraphs), err)
		}
		segments = append(segments, data)
		log.Debug("Paragraph synthesized", zap.Int("index", i+1), zap.Int("of", len(paragraphs)))
	}
	return segments, nil
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return paragraphs
}
