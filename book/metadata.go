package book

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Metadata holds the bibliographic record loaded from the companion
// "*_metadata.txt" file. Title is the only required field.
type Metadata struct {
	Title       string
	Contributor string
	Creator     string
	Publisher   string
	Rights      string
	Subject     string
	Date        string

	// schema.org accessibility properties, same key may repeat
	Accessibility []KV
}

// KV is an ordered key/value pair.
type KV struct {
	Key   string
	Value string
}

// field keys recognized in the metadata file; "author" maps to dc:creator.
var fieldMapping = map[string]string{
	"title":       "title",
	"contributor": "contributor",
	"author":      "creator",
	"creator":     "creator",
	"publisher":   "publisher",
	"rights":      "rights",
	"subject":     "subject",
}

var accessibilityKeys = map[string]bool{
	"accessMode":           true,
	"accessModeSufficient": true,
	"accessibilityFeature": true,
	"accessibilityHazard":  true,
	"accessibilitySummary": true,
}

// MetadataPathForFile returns the metadata file path convention for a single
// source file: /path/to/foo.txt -> /path/to/foo_metadata.txt.
func MetadataPathForFile(sourceFile string) string {
	dir := filepath.Dir(sourceFile)
	stem := strings.TrimSuffix(filepath.Base(sourceFile), filepath.Ext(sourceFile))
	return filepath.Join(dir, stem+"_metadata.txt")
}

// MetadataPathForFolder returns the metadata file path convention for a
// source folder: /path/to/bar -> /path/to/bar_metadata.txt.
func MetadataPathForFolder(sourceFolder string) string {
	clean := filepath.Clean(sourceFolder)
	return filepath.Join(filepath.Dir(clean), filepath.Base(clean)+"_metadata.txt")
}

// LoadMetadata reads and parses the metadata file at path.
func LoadMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read metadata file: %w", err)
	}
	defer f.Close()

	md := &Metadata{
		Date: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	}
	fields := make(map[string]string)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		// split on ":" with fullwidth "：" fallback
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			if key, value, ok = strings.Cut(line, "："); !ok {
				continue
			}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch {
		case accessibilityKeys[key]:
			md.Accessibility = append(md.Accessibility, KV{Key: key, Value: value})
		default:
			if name, ok := fieldMapping[key]; ok {
				fields[name] = value
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("unable to read metadata file: %w", err)
	}

	if fields["title"] == "" {
		return nil, fmt.Errorf("metadata file %s has no title", path)
	}

	md.Title = fields["title"]
	md.Contributor = fields["contributor"]
	md.Creator = fields["creator"]
	md.Publisher = fields["publisher"]
	md.Rights = fields["rights"]
	md.Subject = fields["subject"]
	return md, nil
}
