package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/core/manifest"
)

// WriteZip streams the contents of the named subdirectories of rootDir
// into w as a zip archive. Entry names are slash-separated paths relative
// to rootDir. Files and directories matching any exclude pattern are
// skipped (directories are pruned whole). Returns the number of files
// written; zero files is a PackagingError since an empty submission is
// never intended.
func WriteZip(w io.Writer, rootDir string, subDirs []string, excludes []string) (int, error) {
	zw := zip.NewWriter(w)
	now := time.Now()
	count := 0

	for _, sub := range subDirs {
		srcDir := filepath.Join(rootDir, sub)
		info, err := os.Stat(srcDir)
		if err != nil || !info.IsDir() {
			continue
		}

		err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			relToRoot, err := filepath.Rel(rootDir, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(relToRoot)

			if manifest.Excluded(name, excludes) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			fi, err := d.Info()
			if err != nil {
				return err
			}
			header, err := zip.FileInfoHeader(fi)
			if err != nil {
				return err
			}
			header.Name = name
			header.Method = zip.Deflate
			// Normalize timestamps for reproducibility
			header.Modified = now

			entry, err := zw.CreateHeader(header)
			if err != nil {
				return err
			}

			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			if _, err := io.Copy(entry, file); err != nil {
				return err
			}
			count++
			return nil
		})
		if err != nil {
			zw.Close()
			return 0, &snarferrors.PackagingError{Path: srcDir, Err: err}
		}
	}

	if err := zw.Close(); err != nil {
		return 0, &snarferrors.PackagingError{Path: rootDir, Err: err}
	}
	if count == 0 {
		return 0, &snarferrors.PackagingError{
			Path: rootDir,
			Err:  fmt.Errorf("no files matched under %v", subDirs),
		}
	}
	return count, nil
}
