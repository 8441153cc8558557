// Package convert drives the whole conversion: source documents are parsed,
// narration is synthesized and force-aligned (or reused when already
// present), paragraph text is matched against the timing trace, and the
// result is packaged as an EPUB3 book with media overlays.
package convert

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"readalong/align"
	"readalong/archive"
	"readalong/config"
	"readalong/state"
)

//go:embed default.css
var defaultStylesheet []byte

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	langCode := env.Cfg.Document.Language
	if cmd.String("lang") != "" {
		langCode = cmd.String("lang")
	}
	lang, err := config.GetLanguage(langCode)
	if err != nil {
		return err
	}

	modeName := env.Cfg.Document.HighlightMode
	if cmd.String("mode") != "" {
		modeName = cmd.String("mode")
	}
	mode := align.ModeClause
	switch modeName {
	case "word":
		mode = align.ModeToken
	case "clause":
	default:
		log.Warn("Unknown highlight mode requested, switching to clause", zap.String("mode", modeName))
	}

	env.DefaultStyle = defaultStylesheet
	if env.Cfg.Document.StylesheetPath != "" {
		data, err := os.ReadFile(env.Cfg.Document.StylesheetPath)
		if err != nil {
			return fmt.Errorf("unable to read style css from %q: %w", env.Cfg.Document.StylesheetPath, err)
		}
		env.DefaultStyle = data
	}

	env.Overwrite = cmd.Bool("overwrite")

	log.Info("Processing starting",
		zap.String("source", src), zap.String("destination", dst),
		zap.String("language", lang.Code), zap.String("mode", modeName))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("input source was not found (%s): %w", src, err)
	}
	keep := cmd.Bool("keep")

	if fi.Mode().IsDir() {
		return processFolder(ctx, src, dst, lang, mode, keep, log)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
	if strings.EqualFold(filepath.Ext(src), ".zip") {
		root, cleanup, err := unpackSource(src, log)
		if err != nil {
			return err
		}
		defer cleanup()
		return processFolder(ctx, root, dst, lang, mode, keep, log)
	}
	return processFile(ctx, src, dst, lang, mode, keep, log)
}

// unpackSource extracts a zipped source folder into a scratch directory and
// locates the sources inside it.
func unpackSource(src string, log *zap.Logger) (string, func(), error) {
	dir, err := os.MkdirTemp("", "readalong-src-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	log.Info("Unpacking source archive", zap.String("archive", src))
	if err := archive.Extract(src, dir); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("unable to unpack source archive %q: %w", src, err)
	}
	root, err := archive.SourceRoot(dir)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return root, cleanup, nil
}
