package book

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMetadataPaths(t *testing.T) {
	if got := MetadataPathForFile("/path/to/foo.txt"); got != "/path/to/foo_metadata.txt" {
		t.Errorf("MetadataPathForFile = %q", got)
	}
	if got := MetadataPathForFolder("/path/to/bar"); got != "/path/to/bar_metadata.txt" {
		t.Errorf("MetadataPathForFolder = %q", got)
	}
	if got := MetadataPathForFolder("/path/to/bar/"); got != "/path/to/bar_metadata.txt" {
		t.Errorf("MetadataPathForFolder with trailing slash = %q", got)
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()

	t.Run("full_record", func(t *testing.T) {
		path := filepath.Join(dir, "full_metadata.txt")
		content := `title: 日本国憲法
author: 憲法制定議会
publisher：国立印刷局
rights: public domain
accessMode: textual
accessMode: auditory
accessibilityFeature: synchronizedAudioText
accessibilitySummary: 音声と文字のハイライトが同期しています
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}

		md, err := LoadMetadata(path)
		if err != nil {
			t.Fatalf("LoadMetadata: %v", err)
		}
		if md.Title != "日本国憲法" {
			t.Errorf("Title = %q", md.Title)
		}
		if md.Creator != "憲法制定議会" {
			t.Errorf("author not mapped to creator: %q", md.Creator)
		}
		if md.Publisher != "国立印刷局" {
			t.Errorf("fullwidth colon not handled: %q", md.Publisher)
		}
		if len(md.Accessibility) != 4 {
			t.Fatalf("accessibility entries = %+v", md.Accessibility)
		}
		if md.Accessibility[0].Key != "accessMode" || md.Accessibility[1].Value != "auditory" {
			t.Errorf("repeated keys not preserved: %+v", md.Accessibility)
		}
		if md.Date == "" {
			t.Error("Date not defaulted")
		}
	})

	t.Run("missing_title_rejected", func(t *testing.T) {
		path := filepath.Join(dir, "notitle_metadata.txt")
		if err := os.WriteFile(path, []byte("author: 誰か\n"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadMetadata(path); err == nil {
			t.Fatal("expected an error for metadata without title")
		}
	})

	t.Run("missing_file_rejected", func(t *testing.T) {
		if _, err := LoadMetadata(filepath.Join(dir, "nope_metadata.txt")); err == nil {
			t.Fatal("expected an error for missing file")
		}
	})

	t.Run("unknown_keys_ignored", func(t *testing.T) {
		path := filepath.Join(dir, "extra_metadata.txt")
		content := "title: 題\nisbn: 978-4-00-000000-0\n\nprice: 1000\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		md, err := LoadMetadata(path)
		if err != nil {
			t.Fatalf("LoadMetadata: %v", err)
		}
		if md.Title != "題" {
			t.Errorf("Title = %q", md.Title)
		}
	})
}
