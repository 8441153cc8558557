package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"readalong/config"
	"readalong/markup"
)

const mfaEnvName = "mfa"

// AlignTextGrid runs Montreal Forced Aligner over a reading-text/audio pair
// and writes the word-level TextGrid next to the audio file. The aligner
// lives in its own conda environment, text and audio must share a base name.
func AlignTextGrid(ctx context.Context, txtPath, soundPath string, lang config.Language, log *zap.Logger) error {
	if stem(txtPath) != stem(soundPath) {
		return fmt.Errorf("text and audio base names differ: %s vs %s", txtPath, soundPath)
	}
	base := stem(txtPath)

	conda, err := condaExecutable()
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", "readalong-mfa-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	corpus := filepath.Join(tmp, "corpus")
	aligned := filepath.Join(tmp, "aligned")
	for _, dir := range []string{corpus, aligned} {
		if err := os.Mkdir(dir, 0755); err != nil {
			return err
		}
	}

	text, err := os.ReadFile(txtPath)
	if err != nil {
		return err
	}
	normalized := normalizeForAligner(string(text))
	if err := os.WriteFile(filepath.Join(corpus, filepath.Base(txtPath)), []byte(normalized), 0644); err != nil {
		return err
	}
	if err := copyIntoDir(soundPath, corpus); err != nil {
		return err
	}

	log.Info("Aligning narration",
		zap.String("dictionary", lang.MFADictionary),
		zap.String("acoustic", lang.MFAAcoustic))

	if err := runTool(ctx, conda,
		"run", "-n", mfaEnvName,
		"mfa", "align",
		corpus,
		lang.MFADictionary,
		lang.MFAAcoustic,
		aligned,
		"--clean",
		"--disable_check_version",
		"--generate_intermediate_tier",
		"--beam", "100",
		"--retry_beam", "400"); err != nil {
		return fmt.Errorf("forced alignment failed: %w", err)
	}

	produced := filepath.Join(aligned, base+".TextGrid")
	data, err := os.ReadFile(produced)
	if err != nil {
		return fmt.Errorf("aligner produced no TextGrid: %w", err)
	}

	final := strings.TrimSuffix(soundPath, filepath.Ext(soundPath)) + ".TextGrid"
	if err := os.WriteFile(final, data, 0644); err != nil {
		return err
	}
	log.Info("Alignment trace saved", zap.String("file", final))
	return nil
}

// normalizeForAligner prepares reading text for the aligner dictionary:
// markup stripped to spoken forms, symbols folded, hyphenated compounds
// split so each part is looked up on its own.
func normalizeForAligner(text string) string {
	return strings.ReplaceAll(markup.ReadingText(text), "-", " ")
}

func condaExecutable() (string, error) {
	if exe := os.Getenv("CONDA_EXE"); exe != "" {
		return exe, nil
	}
	if exe, err := exec.LookPath("conda"); err == nil {
		return exe, nil
	}
	return "", fmt.Errorf("conda was not found, set CONDA_EXE or add it to PATH (the %q environment must hold Montreal Forced Aligner)", mfaEnvName)
}

func stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func copyIntoDir(src, dir string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, filepath.Base(src)), data, 0644)
}
