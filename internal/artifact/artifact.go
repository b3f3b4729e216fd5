// Package artifact provides access to model artifacts (trained model,
// feature manifest, calibrator, tier table) exported by the training
// pipeline as a versioned directory of JSON and YAML files.
package artifact

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Repo reads named artifacts. Keys are relative paths within one artifact
// version; a Repo never writes.
type Repo interface {
	// Get returns the raw bytes for key. Missing keys are an error; use
	// Exists first for optional artifacts.
	Get(key string) ([]byte, error)

	// Exists reports whether key is present.
	Exists(key string) bool
}

// Dir is a Repo over a local directory.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at path. The directory must exist.
func NewDir(path string) (*Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: stat %s", path)
	}
	if !info.IsDir() {
		return nil, eris.Errorf("artifact: %s is not a directory", path)
	}
	return &Dir{root: path}, nil
}

func (d *Dir) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(d.root, key))
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", key)
	}
	return data, nil
}

func (d *Dir) Exists(key string) bool {
	info, err := os.Stat(filepath.Join(d.root, key))
	return err == nil && !info.IsDir()
}
