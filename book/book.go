// Package book loads marked-up source text and splits it into the chapter
// sections an EPUB is built from. Sources are plain text with CommonMark
// style headings; inline constructs are handled by the markup package.
package book

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"readalong/markup"
)

// headingRe matches one to five leading '#' followed by the heading text.
var headingRe = regexp.MustCompile(`^(#{1,5})\s+(.+)$`)

// Heading is one parsed heading line.
type Heading struct {
	Level    int    // 1..5
	Title    string // display text, formatting stripped
	TitleRaw string // original line without the '#' prefix

	content  []string
	children []*Heading
}

// Section is one EPUB chapter: a heading and the paragraphs under it.
type Section struct {
	ID         string // chapter1, chapter2, ...
	Heading    *Heading
	Paragraphs []string
}

// File is a parsed source file.
type File struct {
	Name     string // base name without extension
	Sections []Section
	Lines    []string
}

// ExtractHeading parses a heading line, returning level and raw title text.
// ok is false when the line is not a heading.
func ExtractHeading(line string) (level int, title string, ok bool) {
	m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(m[2]), true
}

// ParseFile reads a source file and splits it into sections. Section IDs
// start at firstChapter so several files can share one numbering.
func ParseFile(path string, firstChapter int) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read source file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	f := Parse(string(data), firstChapter)
	f.Name = name
	return f, nil
}

// Parse splits the source text into heading-rooted sections. Paragraphs
// before the first heading are dropped; a source without headings yields no
// sections and the caller falls back to line-per-paragraph handling.
func Parse(text string, firstChapter int) *File {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var headings []*Heading
	var current *Heading

	for _, line := range lines {
		if level, title, ok := ExtractHeading(line); ok {
			h := &Heading{
				Level:    level,
				Title:    markup.StripForDisplay(title),
				TitleRaw: title,
			}
			headings = append(headings, h)
			current = h
			continue
		}
		if current != nil && strings.TrimSpace(line) != "" {
			current.content = append(current.content, line)
		}
	}

	f := &File{Lines: lines}
	if len(headings) == 0 {
		return f
	}

	buildHierarchy(headings)

	num := firstChapter
	var walk func(h *Heading)
	walk = func(h *Heading) {
		f.Sections = append(f.Sections, Section{
			ID:         fmt.Sprintf("chapter%d", num),
			Heading:    h,
			Paragraphs: append([]string(nil), h.content...),
		})
		num++
		for _, child := range h.children {
			walk(child)
		}
	}
	walk(headings[0])
	return f
}

// buildHierarchy links the flat heading list into a tree: each heading
// becomes a child of the nearest preceding heading with a smaller level.
func buildHierarchy(headings []*Heading) {
	stack := []*Heading{headings[0]}
	for _, h := range headings[1:] {
		for len(stack) > 0 && stack[len(stack)-1].Level >= h.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, h)
		}
		stack = append(stack, h)
	}
}

// Title returns the book title taken from the first heading.
func (f *File) Title() string {
	if len(f.Sections) == 0 {
		return "Untitled"
	}
	return f.Sections[0].Heading.Title
}

// ReadingText produces the narration input for the whole file: headings and
// paragraphs with markup stripped and silent symbols expanded to their
// spoken form, one line each, empty results dropped.
func (f *File) ReadingText() string {
	var out []string

	appendLine := func(line string) {
		if r := markup.ReadingText(line); strings.TrimSpace(r) != "" {
			out = append(out, r)
		}
	}

	if len(f.Sections) == 0 {
		for _, line := range f.Lines {
			if strings.TrimSpace(line) != "" {
				appendLine(line)
			}
		}
		return strings.Join(out, "\n")
	}

	for _, s := range f.Sections {
		appendLine(s.Heading.TitleRaw)
		for _, p := range s.Paragraphs {
			appendLine(p)
		}
	}
	return strings.Join(out, "\n")
}

// SourceFiles lists the narratable source files of a folder in natural
// order, so file2 sorts before file10.
func SourceFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read source folder: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, "_metadata.txt") {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".txt", ".md":
			files = append(files, filepath.Join(dir, name))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no source files found in %s", dir)
	}
	sort.Sort(natural.StringSlice(files))
	return files, nil
}
