package logarea

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
)

// Descriptor names one collected file.
type Descriptor struct {
	// Name is the slash separated path relative to the collected directory.
	Name string
	// File is the absolute path on disk.
	File string
}

// Collect returns every regular file below root in lexical order.
// A missing root yields an empty list.
func Collect(root string) ([]Descriptor, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, rerrors.CollectFailed(root, err)
	}
	if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
		return []Descriptor{}, nil
	}

	files := []Descriptor{}
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		files = append(files, Descriptor{Name: filepath.ToSlash(rel), File: path})
		return nil
	})
	if err != nil {
		return nil, rerrors.CollectFailed(root, err)
	}
	return files, nil
}
