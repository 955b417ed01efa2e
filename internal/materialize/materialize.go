// Package materialize implements the pipeline that turns a selected
// manifest entry into a project directory on disk: destination
// derivation, conflict handling, streamed download into a scratch
// location, extraction, artifact normalization, and an atomic move into
// place. Every step is an abort point and scratch artifacts are removed
// regardless of outcome.
package materialize

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/core/manifest"
	"github.com/coursekit/snarf/internal/archive"
	"github.com/coursekit/snarf/internal/fetch"
	"github.com/coursekit/snarf/internal/flight"
	"github.com/coursekit/snarf/internal/logging"
	"github.com/coursekit/snarf/internal/scaffold"
	"github.com/coursekit/snarf/internal/ui"
)

// cruftNames are platform metadata entries removed from every extracted
// tree before it is moved into place.
var cruftNames = map[string]struct{}{
	"__MACOSX":    {},
	".DS_Store":   {},
	"Thumbs.db":   {},
	"desktop.ini": {},
}

var (
	invalidLabelChars = regexp.MustCompile(`[^A-Za-z0-9\- ]+`)
	whitespaceRuns    = regexp.MustCompile(`\s+`)
)

// SanitizeLabel derives a destination folder name from an entry label:
// characters outside [A-Za-z0-9- ] are stripped and whitespace runs
// collapse to single hyphens. The result is idempotent under a second
// sanitization.
func SanitizeLabel(label string) string {
	s := invalidLabelChars.ReplaceAllString(label, "")
	s = strings.TrimSpace(s)
	return whitespaceRuns.ReplaceAllString(s, "-")
}

// Pipeline materializes manifest entries into a workspace.
type Pipeline struct {
	Client *fetch.Client
	Host   ui.Host

	// Library populates the project lib directory after placement; nil
	// skips the step.
	Library *scaffold.Library
}

// New creates a Pipeline with the given collaborators.
func New(client *fetch.Client, host ui.Host, library *scaffold.Library) *Pipeline {
	return &Pipeline{Client: client, Host: host, Library: library}
}

// Materialize downloads, extracts, and places entry under workspaceRoot,
// returning the final project directory. On any failure the destination
// path is left exactly as it was found; scratch artifacts never survive
// the call.
func (p *Pipeline) Materialize(ctx context.Context, entry *manifest.Entry, workspaceRoot string) (string, error) {
	name := SanitizeLabel(entry.Label)
	if name == "" {
		return "", &snarferrors.FilesystemError{
			Op:   "derive",
			Path: entry.Label,
			Err:  fmt.Errorf("label sanitizes to an empty name"),
		}
	}
	dest := filepath.Join(workspaceRoot, name)

	release, err := flight.Acquire(dest)
	if err != nil {
		return "", err
	}
	defer release()

	destExisted := false
	if _, err := os.Stat(dest); err == nil {
		destExisted = true
		ok, perr := p.Host.Confirm(fmt.Sprintf("%s already exists. Overwrite?", dest))
		if perr != nil {
			return "", perr
		}
		if !ok {
			return "", &snarferrors.ConflictAbortedError{Path: dest}
		}
	}

	endpoint, err := entry.Primary()
	if err != nil {
		return "", err
	}

	// The scratch directory lives beside the destination so the final
	// rename stays on one filesystem.
	scratch := filepath.Join(workspaceRoot, ".snarf-"+uuid.NewString())
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return "", &snarferrors.FilesystemError{Op: "create", Path: scratch, Err: err}
	}
	defer os.RemoveAll(scratch)

	archivePath := filepath.Join(scratch, "download")
	if err := p.Client.Download(ctx, endpoint.URI, archivePath); err != nil {
		logging.PipelineError("materialize", "download", err, "label", entry.Label)
		return "", err
	}

	if entry.Digest != "" {
		if err := verifyDigest(archivePath, entry.Digest); err != nil {
			return "", err
		}
	}

	contentDir := filepath.Join(scratch, "content")
	if err := archive.Extract(archivePath, contentDir); err != nil {
		logging.PipelineError("materialize", "extract", err, "label", entry.Label)
		return "", err
	}

	if err := scrubCruft(contentDir); err != nil {
		return "", err
	}
	if err := collapseWrapper(contentDir, scratch); err != nil {
		return "", err
	}

	// The overwrite was confirmed above; removing the old tree waits
	// until a replacement is fully staged so a failed download or
	// extraction leaves the existing project untouched.
	if destExisted {
		if err := os.RemoveAll(dest); err != nil {
			return "", &snarferrors.FilesystemError{Op: "remove", Path: dest, Err: err}
		}
	}
	if err := os.Rename(contentDir, dest); err != nil {
		return "", &snarferrors.FilesystemError{Op: "rename", Path: dest, Err: err}
	}

	if p.Library != nil {
		if err := p.Library.Populate(dest); err != nil {
			return "", err
		}
	}

	logging.Materialized(entry.Label, dest)
	return dest, nil
}

// verifyDigest compares the BLAKE3 digest of the file at path against the
// manifest-declared hex digest. A mismatch fails before any extraction.
func verifyDigest(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return &snarferrors.ExtractionError{Archive: path, Err: err}
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return &snarferrors.ExtractionError{Archive: path, Err: err}
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, want) {
		return &snarferrors.ExtractionError{
			Archive: path,
			Err:     fmt.Errorf("blake3 digest mismatch: manifest declares %s, archive is %s", want, got),
		}
	}
	return nil
}

// scrubCruft removes platform metadata files and directories anywhere in
// the extracted tree.
func scrubCruft(root string) error {
	var doomed []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if _, ok := cruftNames[d.Name()]; ok {
			doomed = append(doomed, path)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return &snarferrors.FilesystemError{Op: "scan", Path: root, Err: err}
	}
	for _, path := range doomed {
		if err := os.RemoveAll(path); err != nil {
			return &snarferrors.FilesystemError{Op: "remove", Path: path, Err: err}
		}
	}
	return nil
}

// collapseWrapper flattens a single top-level directory wrapping all real
// content, since manifests commonly zip a named root folder that should
// not double-nest under the destination.
func collapseWrapper(contentDir, scratch string) error {
	entries, err := os.ReadDir(contentDir)
	if err != nil {
		return &snarferrors.FilesystemError{Op: "read", Path: contentDir, Err: err}
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	// Park the wrapper outside contentDir first so a child that shares
	// the wrapper's name cannot collide on the way up.
	wrapper := filepath.Join(scratch, "wrapper")
	if err := os.Rename(filepath.Join(contentDir, entries[0].Name()), wrapper); err != nil {
		return &snarferrors.FilesystemError{Op: "rename", Path: wrapper, Err: err}
	}

	children, err := os.ReadDir(wrapper)
	if err != nil {
		return &snarferrors.FilesystemError{Op: "read", Path: wrapper, Err: err}
	}
	for _, child := range children {
		from := filepath.Join(wrapper, child.Name())
		to := filepath.Join(contentDir, child.Name())
		if err := os.Rename(from, to); err != nil {
			return &snarferrors.FilesystemError{Op: "rename", Path: to, Err: err}
		}
	}
	return os.Remove(wrapper)
}
