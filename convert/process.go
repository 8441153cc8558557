package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"readalong/align"
	"readalong/book"
	"readalong/config"
	"readalong/epub"
	"readalong/state"
	"readalong/textgrid"
)

// processFile converts a single source document into an EPUB in dst.
func processFile(ctx context.Context, src, dst string, lang config.Language, mode align.Mode, keep bool, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	meta, err := book.LoadMetadata(book.MetadataPathForFile(src))
	if err != nil {
		return err
	}

	f, err := book.ParseFile(src, 1)
	if err != nil {
		return err
	}
	if len(f.Sections) > 0 {
		// with headings the document names itself
		meta.Title = f.Title()
	}

	workDir, cleanup, err := workDirectory(dst, keep)
	if err != nil {
		return err
	}
	defer cleanup()

	mp3Path, tgPath, err := narration(ctx, f, src, workDir, lang, &env.Cfg.Audio, log)
	if err != nil {
		return err
	}
	trace, err := textgrid.ParseFile(tgPath)
	if err != nil {
		return err
	}

	const audioName = "audio.mp3"
	chapters, imageRefs := buildChapters(f, meta.Title, trace, mode, lang.EpubLang(), "", audioName, log)
	if len(chapters) == 0 {
		return fmt.Errorf("no content found in %s", src)
	}

	audioData, err := os.ReadFile(mp3Path)
	if err != nil {
		return err
	}

	b := &epub.Book{
		Meta:     meta,
		Language: lang.EpubLang(),
		Chapters: chapters,
		Audio:    []epub.Asset{{Name: audioName, Data: audioData, MediaType: "audio/mpeg"}},
		Images:   loadImages(filepath.Dir(src), imageRefs, &env.Cfg.Document.Images, log),
	}

	outputName = filepath.Join(dst, config.CleanFileName(meta.Title)+".epub")
	return epub.Generate(ctx, b, outputName, env.Cfg.Document.FixZip, workDir, log)
}

// processFolder converts every source document of a folder into one EPUB,
// chapter ids and audio files prefixed per file.
func processFolder(ctx context.Context, src, dst string, lang config.Language, mode align.Mode, keep bool, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	meta, err := book.LoadMetadata(book.MetadataPathForFolder(src))
	if err != nil {
		return err
	}

	files, err := book.SourceFiles(src)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no source documents found in %s", src)
	}
	log.Info("Processing folder", zap.Int("files", len(files)))

	workDir, cleanup, err := workDirectory(dst, keep)
	if err != nil {
		return err
	}
	defer cleanup()

	var (
		chapters []*epub.Chapter
		audio    []epub.Asset
		images   []imageRef
	)

	for i, path := range files {
		log.Info("Processing file", zap.String("file", filepath.Base(path)))

		f, err := book.ParseFile(path, 1)
		if err != nil {
			return err
		}

		mp3Path, tgPath, err := narration(ctx, f, path, workDir, lang, &env.Cfg.Audio, log)
		if err != nil {
			return err
		}
		trace, err := textgrid.ParseFile(tgPath)
		if err != nil {
			return err
		}

		filePrefix := fmt.Sprintf("file%d_", i+1)
		audioName := fmt.Sprintf("file%d.mp3", i+1)

		cs, imgs := buildChapters(f, f.Title(), trace, mode, lang.EpubLang(), filePrefix, audioName, log)
		chapters = append(chapters, cs...)
		images = append(images, imgs...)

		audioData, err := os.ReadFile(mp3Path)
		if err != nil {
			return err
		}
		audio = append(audio, epub.Asset{Name: audioName, Data: audioData, MediaType: "audio/mpeg"})
	}

	if len(chapters) == 0 {
		return fmt.Errorf("no content found in %s", src)
	}

	b := &epub.Book{
		Meta:     meta,
		Language: lang.EpubLang(),
		Chapters: chapters,
		Audio:    audio,
		Images:   loadImages(src, images, &env.Cfg.Document.Images, log),
	}

	outputName = filepath.Join(dst, config.CleanFileName(meta.Title)+".epub")
	return epub.Generate(ctx, b, outputName, env.Cfg.Document.FixZip, workDir, log)
}

// workDirectory places intermediate files (reading text, WAV, MP3, TextGrid)
// either in a scratch directory or, when keep is set, next to the output.
func workDirectory(dst string, keep bool) (string, func(), error) {
	if keep {
		dir := filepath.Join(dst, "intermediate_products")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", nil, err
		}
		return dir, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "readalong-")
	if err != nil {
		return "", nil, err
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

// loadImages reads and prepares referenced images, deduplicated by source
// path. A missing or broken image is logged and skipped, the book is still
// produced.
func loadImages(srcDir string, refs []imageRef, cfg *config.ImagesConfig, log *zap.Logger) []epub.Asset {
	var assets []epub.Asset
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.Path] {
			continue
		}
		seen[ref.Path] = true

		data, err := os.ReadFile(filepath.Join(srcDir, filepath.FromSlash(ref.Path)))
		if err != nil {
			log.Warn("Unable to read referenced image", zap.String("image", ref.Path), zap.Error(err))
			continue
		}
		asset, err := epub.PrepareImage(imageFileName(ref.Path), data, cfg, log)
		if err != nil {
			log.Warn("Unable to prepare image", zap.String("image", ref.Path), zap.Error(err))
			continue
		}
		assets = append(assets, asset)
	}
	return assets
}
