package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	snarferrors "github.com/coursekit/snarf/core/errors"
)

// writeTestZip writes a zip archive with the given name->content entries.
// Names ending in "/" become directory entries.
func writeTestZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		if name[len(name)-1] == '/' {
			if _, err := zw.Create(name); err != nil {
				t.Fatal(err)
			}
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func writeTestTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSniff(t *testing.T) {
	tmpDir := t.TempDir()

	zipPath := filepath.Join(tmpDir, "a.bin")
	writeTestZip(t, zipPath, map[string]string{"f.txt": "x"})

	tgzPath := filepath.Join(tmpDir, "b.bin")
	writeTestTarGz(t, tgzPath, map[string]string{"f.txt": "x"})

	txtPath := filepath.Join(tmpDir, "c.bin")
	if err := os.WriteFile(txtPath, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want Kind
	}{
		{zipPath, KindZip},
		{tgzPath, KindTarGz},
		{txtPath, KindUnknown},
	}
	for _, tt := range tests {
		got, err := Sniff(tt.path)
		if err != nil {
			t.Fatalf("Sniff(%s) error: %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Sniff(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestExtract_Zip(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "hw1.zip")
	writeTestZip(t, zipPath, map[string]string{
		"src/":          "",
		"src/Main.java": "public class Main {}",
		"README.md":     "read me",
	})

	destDir := filepath.Join(tmpDir, "out")
	if err := Extract(zipPath, destDir); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(destDir, "src", "Main.java"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(got) != "public class Main {}" {
		t.Errorf("extracted content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(destDir, "README.md")); err != nil {
		t.Errorf("README.md missing: %v", err)
	}
}

func TestExtract_TarGz(t *testing.T) {
	tmpDir := t.TempDir()
	tgzPath := filepath.Join(tmpDir, "hw1.tgz")
	writeTestTarGz(t, tgzPath, map[string]string{"src/Main.java": "class Main {}"})

	destDir := filepath.Join(tmpDir, "out")
	if err := Extract(tgzPath, destDir); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destDir, "src", "Main.java")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}

func TestExtract_RejectsTraversal(t *testing.T) {
	tmpDir := t.TempDir()
	zipPath := filepath.Join(tmpDir, "evil.zip")
	writeTestZip(t, zipPath, map[string]string{"../escape.txt": "gotcha"})

	destDir := filepath.Join(tmpDir, "out")
	err := Extract(zipPath, destDir)
	if !errors.Is(err, snarferrors.ErrExtraction) {
		t.Fatalf("Extract() error = %v, want ExtractionError", err)
	}
	if _, statErr := os.Stat(filepath.Join(tmpDir, "escape.txt")); !os.IsNotExist(statErr) {
		t.Error("traversal entry escaped the destination directory")
	}
}

func TestExtract_CorruptArchive(t *testing.T) {
	tmpDir := t.TempDir()
	badPath := filepath.Join(tmpDir, "bad.zip")
	// Valid zip magic followed by garbage.
	if err := os.WriteFile(badPath, []byte("PK\x03\x04 not actually a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	err := Extract(badPath, filepath.Join(tmpDir, "out"))
	if !errors.Is(err, snarferrors.ErrExtraction) {
		t.Errorf("Extract() error = %v, want ExtractionError", err)
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "plain.txt")
	if err := os.WriteFile(path, []byte("just text"), 0644); err != nil {
		t.Fatal(err)
	}

	err := Extract(path, filepath.Join(tmpDir, "out"))
	if !errors.Is(err, snarferrors.ErrExtraction) {
		t.Errorf("Extract() error = %v, want ExtractionError", err)
	}
}
