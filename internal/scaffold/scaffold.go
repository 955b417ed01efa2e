// Package scaffold handles the local project side effects that follow a
// materialization: populating a project's lib directory from the shared
// JARS cache and writing the editor classpath file that references it.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	snarferrors "github.com/coursekit/snarf/core/errors"
	"github.com/coursekit/snarf/internal/fileutil"
)

// CacheDirName is the library cache directory under the workspace root.
const CacheDirName = "JARS"

// LibDirName is the per-project library directory.
const LibDirName = "lib"

// classpathFile is the editor configuration file written per project.
const classpathFile = ".classpath"

// Library copies jars from the workspace-level cache into projects.
type Library struct {
	// CacheDir is the JARS cache directory. Populate is a no-op when it
	// does not exist, so a workspace without a cache still materializes
	// cleanly.
	CacheDir string
}

// ForWorkspace returns the Library for a workspace root.
func ForWorkspace(workspaceRoot string) *Library {
	return &Library{CacheDir: filepath.Join(workspaceRoot, CacheDirName)}
}

// Populate copies every .jar in the cache into projectDir/lib and writes
// the project classpath file referencing them.
func (l *Library) Populate(projectDir string) error {
	jars, err := l.jars()
	if err != nil {
		return err
	}
	if len(jars) == 0 {
		return writeClasspath(projectDir, nil)
	}

	libDir := filepath.Join(projectDir, LibDirName)
	if err := os.MkdirAll(libDir, 0755); err != nil {
		return &snarferrors.FilesystemError{Op: "create", Path: libDir, Err: err}
	}
	for _, jar := range jars {
		dst := filepath.Join(libDir, jar)
		if err := fileutil.CopyFile(filepath.Join(l.CacheDir, jar), dst); err != nil {
			return &snarferrors.FilesystemError{Op: "copy", Path: dst, Err: err}
		}
	}
	return writeClasspath(projectDir, jars)
}

func (l *Library) jars() ([]string, error) {
	entries, err := os.ReadDir(l.CacheDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &snarferrors.FilesystemError{Op: "read", Path: l.CacheDir, Err: err}
	}

	var jars []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".jar") {
			jars = append(jars, e.Name())
		}
	}
	sort.Strings(jars)
	return jars, nil
}

// writeClasspath writes the Eclipse-style classpath file the editor reads
// for build-path configuration.
func writeClasspath(projectDir string, jars []string) error {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	b.WriteString("<classpath>\n")
	b.WriteString("\t<classpathentry kind=\"src\" path=\"src\"/>\n")
	b.WriteString("\t<classpathentry kind=\"con\" path=\"org.eclipse.jdt.launching.JRE_CONTAINER\"/>\n")
	for _, jar := range jars {
		fmt.Fprintf(&b, "\t<classpathentry kind=\"lib\" path=\"%s/%s\"/>\n", LibDirName, jar)
	}
	b.WriteString("\t<classpathentry kind=\"output\" path=\"bin\"/>\n")
	b.WriteString("</classpath>\n")

	path := filepath.Join(projectDir, classpathFile)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return &snarferrors.FilesystemError{Op: "write", Path: path, Err: err}
	}
	return nil
}
