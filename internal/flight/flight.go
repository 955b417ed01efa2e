// Package flight provides the per-path single-flight guard shared by the
// materialize and submit pipelines. Only one operation may target a given
// path at a time; a second invocation fails fast instead of racing on the
// same destination directory.
package flight

import (
	"path/filepath"
	"sync"

	snarferrors "github.com/coursekit/snarf/core/errors"
)

var (
	mu     sync.Mutex
	active = make(map[string]struct{})
)

// Acquire claims path for the calling operation. It returns a release
// function on success and ErrBusy when another operation already holds
// the path. Paths are compared after Clean, not after symlink resolution.
func Acquire(path string) (func(), error) {
	key := filepath.Clean(path)

	mu.Lock()
	defer mu.Unlock()

	if _, ok := active[key]; ok {
		return nil, snarferrors.ErrBusy
	}
	active[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			mu.Lock()
			delete(active, key)
			mu.Unlock()
		})
	}
	return release, nil
}
