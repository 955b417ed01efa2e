// Package archive provides extraction and construction of assignment
// archives. Course sites publish zip archives; tar.gz and tar.xz are
// accepted as well, sniffed by magic bytes rather than file extension
// since download URLs rarely carry a meaningful name.
package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/internal/validation"
)

// Kind identifies a sniffed archive format.
type Kind int

const (
	// KindUnknown means the magic bytes matched no supported format.
	KindUnknown Kind = iota
	// KindZip is a ZIP archive (PK\x03\x04).
	KindZip
	// KindTarGz is a gzip-compressed tar archive.
	KindTarGz
	// KindTarXz is an xz-compressed tar archive.
	KindTarXz
)

var (
	magicZip  = []byte{0x50, 0x4b, 0x03, 0x04}
	magicGzip = []byte{0x1f, 0x8b}
	magicXz   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// Sniff reads the leading bytes of the file at path and reports its
// archive kind.
func Sniff(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	head := make([]byte, 6)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return KindUnknown, err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, magicZip):
		return KindZip, nil
	case bytes.HasPrefix(head, magicXz):
		return KindTarXz, nil
	case bytes.HasPrefix(head, magicGzip):
		return KindTarGz, nil
	default:
		return KindUnknown, nil
	}
}

// Extract unpacks the archive at archivePath into destDir, creating
// destDir if needed. Entry names are sanitized against destDir so a
// crafted archive cannot write outside it. Any failure is an
// ExtractionError; callers own cleanup of destDir.
func Extract(archivePath, destDir string) error {
	kind, err := Sniff(archivePath)
	if err != nil {
		return &snarferrors.ExtractionError{Archive: archivePath, Err: err}
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return &snarferrors.ExtractionError{Archive: archivePath, Err: err}
	}

	switch kind {
	case KindZip:
		err = extractZip(archivePath, destDir)
	case KindTarGz, KindTarXz:
		err = extractTar(archivePath, destDir, kind)
	default:
		err = &snarferrors.ExtractionError{
			Archive: archivePath,
			Err:     fmt.Errorf("unsupported archive format"),
		}
	}
	return err
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return &snarferrors.ExtractionError{Archive: archivePath, Err: err}
	}
	defer r.Close()

	for _, f := range r.File {
		rel, err := validation.SanitizePath(destDir, f.Name)
		if err != nil {
			return &snarferrors.ExtractionError{Archive: archivePath, Entry: f.Name, Err: err}
		}
		target := filepath.Join(destDir, rel)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return &snarferrors.ExtractionError{Archive: archivePath, Entry: f.Name, Err: err}
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return &snarferrors.ExtractionError{Archive: archivePath, Entry: f.Name, Err: err}
		}
		err = writeEntry(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return &snarferrors.ExtractionError{Archive: archivePath, Entry: f.Name, Err: err}
		}
	}
	return nil
}

func extractTar(archivePath, destDir string, kind Kind) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return &snarferrors.ExtractionError{Archive: archivePath, Err: err}
	}
	defer f.Close()

	var reader io.Reader
	switch kind {
	case KindTarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return &snarferrors.ExtractionError{Archive: archivePath, Err: err}
		}
		reader = xzr
	default:
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return &snarferrors.ExtractionError{Archive: archivePath, Err: err}
		}
		defer gzr.Close()
		reader = gzr
	}

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &snarferrors.ExtractionError{Archive: archivePath, Err: err}
		}

		rel, err := validation.SanitizePath(destDir, header.Name)
		if err != nil {
			return &snarferrors.ExtractionError{Archive: archivePath, Entry: header.Name, Err: err}
		}
		target := filepath.Join(destDir, rel)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return &snarferrors.ExtractionError{Archive: archivePath, Entry: header.Name, Err: err}
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, header.FileInfo().Mode()); err != nil {
				return &snarferrors.ExtractionError{Archive: archivePath, Entry: header.Name, Err: err}
			}
		default:
			// Symlinks and special files are dropped; assignment
			// archives never legitimately contain them.
		}
	}
}

func writeEntry(target string, content io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm()|0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, content); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
