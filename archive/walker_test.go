package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "book.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	f.Close()
	return zipPath
}

func TestWalk(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"book/file1.md":      "# 見出し",
		"book/file2.md":      "本文",
		"book/metadata.txt":  "title: 本",
		"images/fig.png":     "png",
	})

	t.Run("prefix_filters_entries", func(t *testing.T) {
		var visited []string
		err := Walk(zipPath, "book/", func(archive string, file *zip.File) error {
			if archive != zipPath {
				t.Errorf("archive = %s, want %s", archive, zipPath)
			}
			visited = append(visited, file.Name)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk: %v", err)
		}
		if len(visited) != 3 {
			t.Errorf("visited = %v, want 3 entries", visited)
		}
	})

	t.Run("empty_prefix_visits_all", func(t *testing.T) {
		count := 0
		if err := Walk(zipPath, "", func(string, *zip.File) error { count++; return nil }); err != nil {
			t.Fatalf("Walk: %v", err)
		}
		if count != 4 {
			t.Errorf("count = %d, want 4", count)
		}
	})

	t.Run("walk_stops_on_error", func(t *testing.T) {
		stop := errors.New("stop")
		count := 0
		err := Walk(zipPath, "", func(string, *zip.File) error {
			count++
			return stop
		})
		if !errors.Is(err, stop) || count != 1 {
			t.Errorf("err = %v after %d entries", err, count)
		}
	})

	t.Run("missing_archive", func(t *testing.T) {
		if err := Walk(filepath.Join(t.TempDir(), "none.zip"), "", nil); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestWalk_RejectsTraversal(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"../escape.txt": "bad",
	})
	err := Walk(zipPath, "", func(string, *zip.File) error { return nil })
	if err == nil {
		t.Fatal("expected an error for path traversal entry")
	}
}

func TestExtract(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"book/file1.md":     "# 見出し",
		"book/metadata.txt": "title: 本",
	})

	dest := t.TempDir()
	if err := Extract(zipPath, dest); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "book", "file1.md"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(data) != "# 見出し" {
		t.Errorf("content = %q", data)
	}

	root, err := SourceRoot(dest)
	if err != nil {
		t.Fatalf("SourceRoot: %v", err)
	}
	if root != filepath.Join(dest, "book") {
		t.Errorf("root = %s, want the single wrapped folder", root)
	}
}

func TestSourceRoot_FlatLayout(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"file1.md", "metadata.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	root, err := SourceRoot(dir)
	if err != nil {
		t.Fatalf("SourceRoot: %v", err)
	}
	if root != dir {
		t.Errorf("root = %s, want %s", root, dir)
	}
}
