package workspace

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
	"git.home.luguber.info/inful/testrunner/internal/logfields"
)

// Compress archives the working tree to <top>/<name>.tar.gz with entries
// anchored at <name>/. It is available once the workspace has been exited
// (Exit calls it) and runs at most once: after a success the recorded path
// is returned and nothing is written.
func (w *Workspace) Compress() (string, error) {
	if w.compressed != "" {
		return w.compressed, nil
	}
	if w.dir == "" {
		return "", precondition(ErrWorkspaceNotCreated, "compress")
	}
	if info, err := os.Stat(w.dir); err != nil || !info.IsDir() {
		return "", precondition(ErrWorkspaceNotCreated, "compress")
	}
	if !w.exited {
		return "", precondition(ErrWorkspaceActive, "compress")
	}

	archive := filepath.Join(w.topDir, w.Name()+".tar.gz")
	w.logger.Info("Compressing workspace", logfields.File(archive))

	start := time.Now()
	size, err := writeArchive(archive, w.topDir, w.dir)
	w.recorder.ObserveCompress(time.Since(start), size, err == nil)
	if err != nil {
		return "", rerrors.WorkspaceError("compress workspace", err).WithContext("path", archive)
	}

	w.compressed = archive
	w.logger.Info("Compressed workspace", logfields.File(archive), logfields.Bytes(size))
	return archive, nil
}

// writeArchive writes a gzipped tar of root to dst, naming entries relative
// to base. It returns the archive size. A partial archive is removed.
func writeArchive(dst, base, root string) (size int64, err error) {
	// #nosec G304 - dst is derived from the workspace top directory
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return addEntry(tw, base, path, d)
	})

	errs := []error{walkErr, tw.Close(), gz.Close()}
	info, statErr := f.Stat()
	errs = append(errs, f.Close())
	for _, e := range errs {
		if e != nil {
			return 0, e
		}
	}
	if statErr != nil {
		return 0, statErr
	}
	return info.Size(), nil
}

func addEntry(tw *tar.Writer, base, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return err
	}

	var link string
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	case info.IsDir(), info.Mode().IsRegular():
	default:
		// sockets, devices and pipes have no portable representation
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	hdr.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	// #nosec G304 - path comes from walking the workspace
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()
	if _, err := io.Copy(tw, src); err != nil {
		return fmt.Errorf("%s: %w", rel, err)
	}
	return nil
}
