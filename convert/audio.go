package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"readalong/book"
	"readalong/config"
	"readalong/tts"
)

// narration resolves the audio/trace pair for one source file. Pre-rendered
// narration next to the source ({name}.mp3 + {name}.TextGrid) is reused,
// otherwise the synthesis pipeline runs into workDir: reading text, TTS to
// WAV, MP3 re-encode, forced alignment.
func narration(ctx context.Context, f *book.File, srcPath, workDir string, lang config.Language, cfg *config.AudioConfig, log *zap.Logger) (mp3Path, tgPath string, err error) {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	srcDir := filepath.Dir(srcPath)

	existingMP3 := filepath.Join(srcDir, base+".mp3")
	existingTG := filepath.Join(srcDir, base+".TextGrid")
	if fileExists(existingMP3) && fileExists(existingTG) {
		log.Info("Reusing pre-rendered narration", zap.String("audio", existingMP3), zap.String("trace", existingTG))
		return existingMP3, existingTG, nil
	}

	txt := filepath.Join(workDir, base+".txt")
	wav := filepath.Join(workDir, base+".wav")
	mp3 := filepath.Join(workDir, base+".mp3")

	readingText := f.ReadingText()
	if err := os.WriteFile(txt, []byte(readingText), 0644); err != nil {
		return "", "", fmt.Errorf("unable to save reading text: %w", err)
	}

	if lang.Engine == config.EngineVoicevox {
		tts.NewVoicevoxClient(cfg.VoicevoxURL).EnsureUserDict(ctx, log)
	}
	if err := tts.Generate(ctx, readingText, lang, cfg, wav, log); err != nil {
		return "", "", fmt.Errorf("unable to synthesize narration for %s: %w", srcPath, err)
	}
	if err := tts.ConvertToMP3(ctx, wav, mp3, log); err != nil {
		return "", "", err
	}
	// trace positions must refer to the audio actually embedded in the book
	if err := tts.AlignTextGrid(ctx, txt, mp3, lang, log); err != nil {
		return "", "", err
	}
	os.Remove(wav)

	return mp3, filepath.Join(workDir, base+".TextGrid"), nil
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
