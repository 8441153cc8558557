// Package epub assembles EPUB3 books with media overlays: synchronized
// narration where each highlighted text fragment points at a clip of the
// audio file.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"readalong/book"
	"readalong/state"
)

const (
	mimetypeContent = "application/epub+zip"
	oebpsDir        = "OEBPS"
	textDir         = "text"
	smilDir         = "smil"
	audioDir        = "audio"
	stylesDir       = "styles"
	imagesDir       = "images"

	// class reading systems apply to the span whose par is playing
	activeClass = "-epub-media-overlay-active"
)

// Asset is a file stored under OEBPS verbatim.
type Asset struct {
	Name      string
	Data      []byte
	MediaType string
}

// Book is everything Generate needs to produce the output file.
type Book struct {
	Meta     *book.Metadata
	Language string // dc:language value
	Chapters []*Chapter
	Audio    []Asset // narration files under OEBPS/audio
	Images   []Asset // under OEBPS/images
	Style    []byte  // stylesheet, DefaultStyle when empty
}

// TotalDuration sums the overlay durations of all chapters.
func (b *Book) TotalDuration() float64 {
	var total float64
	for _, c := range b.Chapters {
		total += c.Duration
	}
	return total
}

// Generate creates the EPUB output file.
func Generate(ctx context.Context, b *Book, outputPath string, fixZip bool, workDir string, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	if _, err := os.Stat(outputPath); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputPath)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputPath))
		if err = os.Remove(outputPath); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	log.Info("Generating EPUB",
		zap.String("output", outputPath),
		zap.Int("chapters", len(b.Chapters)),
		zap.String("duration", ClockValue(b.TotalDuration())))

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	_, tmpName := filepath.Split(outputPath)
	tmpName = filepath.Join(workDir, tmpName)

	f, err := os.Create(tmpName)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	// temporary archive must not survive a failed run, --keep places workDir
	// in the user's output tree
	defer os.Remove(tmpName)
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	if err := writeMimetype(zw); err != nil {
		return fmt.Errorf("unable to write mimetype: %w", err)
	}
	if err := writeContainer(zw); err != nil {
		return fmt.Errorf("unable to write container: %w", err)
	}

	for _, chapter := range b.Chapters {
		if err := writeXMLToZip(zw, path.Join(oebpsDir, textDir, chapter.XHTMLName()), chapter.doc); err != nil {
			return fmt.Errorf("unable to write chapter %s: %w", chapter.ID, err)
		}
		if !chapter.HasAudio() {
			continue
		}
		if err := writeXMLToZip(zw, path.Join(oebpsDir, smilDir, chapter.SMILName()), chapter.smil); err != nil {
			return fmt.Errorf("unable to write overlay %s: %w", chapter.ID, err)
		}
	}

	for _, a := range b.Audio {
		if err := writeDataToZip(zw, path.Join(oebpsDir, audioDir, a.Name), a.Data); err != nil {
			return fmt.Errorf("unable to write audio %s: %w", a.Name, err)
		}
	}

	for _, img := range b.Images {
		if err := writeDataToZip(zw, path.Join(oebpsDir, imagesDir, img.Name), img.Data); err != nil {
			return fmt.Errorf("unable to write image %s: %w", img.Name, err)
		}
		log.Debug("Wrote image", zap.String("file", img.Name))
	}

	css := b.Style
	if len(css) == 0 {
		css = env.DefaultStyle
	}
	if err := writeDataToZip(zw, path.Join(oebpsDir, stylesDir, "style.css"), css); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}

	if err := writeOPF(zw, b); err != nil {
		return fmt.Errorf("unable to write OPF: %w", err)
	}
	if err := writeNav(zw, b); err != nil {
		return fmt.Errorf("unable to write NAV: %w", err)
	}

	// make sure buffers are flushed before continuing
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}

	if fixZip {
		return copyZipWithoutDataDescriptors(tmpName, outputPath)
	}
	return copyFile(tmpName, outputPath)
}

func copyZipWithoutDataDescriptors(from, to string) error {

	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {

	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destinationFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destinationFile.Close()

	if _, err = io.Copy(destinationFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	if err = destinationFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}

func writeMimetype(zw *zip.Writer) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, mimetypeContent)
	return err
}

func writeContainer(zw *zip.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", "urn:oasis:names:tc:opendocument:xmlns:container")

	rootfiles := container.CreateElement("rootfiles")
	rootfile := rootfiles.CreateElement("rootfile")
	rootfile.CreateAttr("full-path", path.Join(oebpsDir, "content.opf"))
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")

	return writeXMLToZip(zw, "META-INF/container.xml", doc)
}

func writeOPF(zw *zip.Writer, b *Book) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", "http://www.idpf.org/2007/opf")
	pkg.CreateAttr("version", "3.0")
	pkg.CreateAttr("unique-identifier", "BookId")
	pkg.CreateAttr("xml:lang", b.Language)

	metadata := pkg.CreateElement("metadata")
	metadata.CreateAttr("xmlns:dc", "http://purl.org/dc/elements/1.1/")

	dcIdentifier := metadata.CreateElement("dc:identifier")
	dcIdentifier.CreateAttr("id", "BookId")
	dcIdentifier.SetText("urn:uuid:" + uuid.NewString())

	dcTitle := metadata.CreateElement("dc:title")
	dcTitle.SetText(b.Meta.Title)

	dcLang := metadata.CreateElement("dc:language")
	dcLang.SetText(b.Language)

	if b.Meta.Creator != "" {
		dcCreator := metadata.CreateElement("dc:creator")
		dcCreator.CreateAttr("id", "creator0")
		dcCreator.SetText(b.Meta.Creator)

		roleMeta := metadata.CreateElement("meta")
		roleMeta.CreateAttr("refines", "#creator0")
		roleMeta.CreateAttr("property", "role")
		roleMeta.CreateAttr("scheme", "marc:relators")
		roleMeta.SetText("aut")
	}
	if b.Meta.Contributor != "" {
		dcContributor := metadata.CreateElement("dc:contributor")
		dcContributor.SetText(b.Meta.Contributor)
	}
	if b.Meta.Publisher != "" {
		dcPublisher := metadata.CreateElement("dc:publisher")
		dcPublisher.SetText(b.Meta.Publisher)
	}
	if b.Meta.Rights != "" {
		dcRights := metadata.CreateElement("dc:rights")
		dcRights.SetText(b.Meta.Rights)
	}
	if b.Meta.Subject != "" {
		dcSubject := metadata.CreateElement("dc:subject")
		dcSubject.SetText(b.Meta.Subject)
	}

	dcDate := metadata.CreateElement("dc:date")
	dcDate.SetText(b.Meta.Date)

	modifiedMeta := metadata.CreateElement("meta")
	modifiedMeta.CreateAttr("property", "dcterms:modified")
	modifiedMeta.SetText(time.Now().UTC().Format("2006-01-02T15:04:05Z"))

	for _, kv := range b.Meta.Accessibility {
		meta := metadata.CreateElement("meta")
		meta.CreateAttr("property", "schema:"+kv.Key)
		meta.SetText(kv.Value)
	}

	// media overlay metadata: active highlight class, per-overlay and total
	// durations
	activeMeta := metadata.CreateElement("meta")
	activeMeta.CreateAttr("property", "media:active-class")
	activeMeta.SetText(activeClass)

	for _, c := range b.Chapters {
		if !c.HasAudio() {
			continue
		}
		durMeta := metadata.CreateElement("meta")
		durMeta.CreateAttr("property", "media:duration")
		durMeta.CreateAttr("refines", "#mo_"+c.ID)
		durMeta.SetText(ClockValue(c.Duration))
	}
	totalMeta := metadata.CreateElement("meta")
	totalMeta.CreateAttr("property", "media:duration")
	totalMeta.SetText(ClockValue(b.TotalDuration()))

	manifest := pkg.CreateElement("manifest")

	nav := manifest.CreateElement("item")
	nav.CreateAttr("id", "nav")
	nav.CreateAttr("href", "nav.xhtml")
	nav.CreateAttr("media-type", "application/xhtml+xml")
	nav.CreateAttr("properties", "nav")

	cssItem := manifest.CreateElement("item")
	cssItem.CreateAttr("id", "stylesheet")
	cssItem.CreateAttr("href", stylesDir+"/style.css")
	cssItem.CreateAttr("media-type", "text/css")

	for _, c := range b.Chapters {
		item := manifest.CreateElement("item")
		item.CreateAttr("id", c.ID)
		item.CreateAttr("href", textDir+"/"+c.XHTMLName())
		item.CreateAttr("media-type", "application/xhtml+xml")
		if c.HasAudio() {
			item.CreateAttr("media-overlay", "mo_"+c.ID)

			smilItem := manifest.CreateElement("item")
			smilItem.CreateAttr("id", "mo_"+c.ID)
			smilItem.CreateAttr("href", smilDir+"/"+c.SMILName())
			smilItem.CreateAttr("media-type", "application/smil+xml")
		}
	}

	for i, a := range b.Audio {
		mt := a.MediaType
		if mt == "" {
			mt = "audio/mpeg"
		}
		item := manifest.CreateElement("item")
		item.CreateAttr("id", fmt.Sprintf("audio%d", i))
		item.CreateAttr("href", audioDir+"/"+a.Name)
		item.CreateAttr("media-type", mt)
	}

	for i, img := range b.Images {
		item := manifest.CreateElement("item")
		item.CreateAttr("id", fmt.Sprintf("img%d", i))
		item.CreateAttr("href", imagesDir+"/"+img.Name)
		item.CreateAttr("media-type", img.MediaType)
	}

	spine := pkg.CreateElement("spine")
	for _, c := range b.Chapters {
		itemref := spine.CreateElement("itemref")
		itemref.CreateAttr("idref", c.ID)
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "content.opf"), doc)
}

// writeNav emits the table of contents, nesting entries by heading level.
func writeNav(zw *zip.Writer, b *Book) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")
	html.CreateAttr("xmlns:epub", "http://www.idpf.org/2007/ops")
	html.CreateAttr("xml:lang", b.Language)
	html.CreateAttr("lang", b.Language)

	head := html.CreateElement("head")
	meta := head.CreateElement("meta")
	meta.CreateAttr("charset", "utf-8")
	title := head.CreateElement("title")
	title.SetText(b.Meta.Title)

	body := html.CreateElement("body")
	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateAttr("id", "toc")
	nav.CreateAttr("role", "doc-toc")

	h1 := nav.CreateElement("h1")
	h1.SetText(b.Meta.Title)

	root := nav.CreateElement("ol")

	// stack of open lists, one per heading level seen on the current path
	type frame struct {
		level int
		list  *etree.Element
	}
	stack := []frame{{level: 0, list: root}}

	for _, c := range b.Chapters {
		level := c.Level
		if level < 1 {
			level = 1
		}
		for len(stack) > 1 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}

		parent := stack[len(stack)-1].list
		li := parent.CreateElement("li")
		a := li.CreateElement("a")
		a.CreateAttr("href", textDir+"/"+c.XHTMLName())
		a.SetText(c.Title)

		nested := li.CreateElement("ol")
		stack = append(stack, frame{level: level, list: nested})
	}

	// drop empty nested lists left behind by leaf chapters
	for _, ol := range root.FindElements("//ol") {
		if len(ol.ChildElements()) == 0 {
			ol.Parent().RemoveChild(ol)
		}
	}

	return writeXMLToZip(zw, path.Join(oebpsDir, "nav.xhtml"), doc)
}

func writeXMLToZip(zw *zip.Writer, name string, doc *etree.Document) error {
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return err
	}
	return writeDataToZip(zw, name, buf.Bytes())
}

func writeDataToZip(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
