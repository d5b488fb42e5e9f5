package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
	"git.home.luguber.info/inful/testrunner/internal/logarea"
	"git.home.luguber.info/inful/testrunner/internal/logfields"
)

const (
	testOutputLog    = "test_output.log"
	fullExecutionLog = "full_execution.log"
)

// OnCreateFunc prepares a freshly created test directory. It runs with dir
// as the current working directory, once per identifier.
type OnCreateFunc func(ctx context.Context, dir string) error

// TestDirectory is an open test directory. Close it to upload its logs and
// artifacts and return to the working tree.
type TestDirectory struct {
	ws        *Workspace
	id        string
	path      string
	logs      string
	artifacts string
	created   bool
	closed    bool
}

func (td *TestDirectory) Identifier() string   { return td.id }
func (td *TestDirectory) Path() string         { return td.path }
func (td *TestDirectory) LogPath() string      { return td.logs }
func (td *TestDirectory) ArtifactPath() string { return td.artifacts }

// Created reports whether this open created the directory.
func (td *TestDirectory) Created() bool { return td.created }

// OpenTestDirectory makes the directory bound to id current, creating it
// and calling onCreate the first time id is seen. The binding is recorded
// before onCreate runs, so a failing callback is not retried on the next open.
//
// On any error the working tree is current again and no path variables are set.
func (w *Workspace) OpenTestDirectory(ctx context.Context, id string, onCreate OnCreateFunc) (td *TestDirectory, err error) {
	if err := w.requireDir("open test directory"); err != nil {
		return nil, err
	}
	if w.active != nil {
		return nil, precondition(ErrDirectoryActive, "open test directory").
			WithContext("open", w.active.id)
	}

	w.logger.Info("Getting test directory", logfields.Identifier(id))
	dir, known := w.identifiers[id]
	if !known {
		dir = filepath.Join(w.dir, w.newName())
		if err := os.Mkdir(dir, 0o750); err != nil {
			return nil, rerrors.WorkspaceError("create test directory", err).WithContext("identifier", id)
		}
		w.identifiers[id] = dir
		w.logger.Info("Directory not found, created", logfields.Identifier(id), logfields.Path(dir))
	}

	if err := w.push(dir); err != nil {
		return nil, rerrors.WorkspaceError("change directory", err).WithContext("path", dir)
	}

	td = &TestDirectory{
		ws:        w,
		id:        id,
		path:      dir,
		logs:      filepath.Join(dir, "logs"),
		artifacts: filepath.Join(dir, "artifacts"),
		created:   !known,
	}

	opened := false
	defer func() {
		if opened {
			return
		}
		// Also reached while a panic from onCreate unwinds.
		unsetErr := td.unsetEnv()
		popErr := w.pop()
		err = errors.Join(err, unsetErr, popErr)
		td = nil
	}()

	if td.created && onCreate != nil {
		if err := onCreate(ctx, dir); err != nil {
			return nil, rerrors.CallbackFailed(id, err)
		}
	}

	for _, p := range []string{td.logs, td.artifacts} {
		if err := os.MkdirAll(p, 0o750); err != nil {
			return nil, rerrors.WorkspaceError("create directory", err).WithContext("path", p)
		}
	}
	env := [][2]string{
		{EnvTestArtifactPath, td.artifacts},
		{EnvArtifactPath, td.artifacts},
		{EnvLogPath, td.logs},
	}
	for _, kv := range env {
		if err := w.proc.Setenv(kv[0], kv[1]); err != nil {
			return nil, rerrors.WorkspaceError("set "+kv[0], err)
		}
	}

	opened = true
	w.active = td
	w.recorder.IncTestDirectory(td.created)
	return td, nil
}

// WithTestDirectory opens the directory bound to id, runs body in it and
// always closes it, also while a panic unwinds.
func (w *Workspace) WithTestDirectory(ctx context.Context, id string, onCreate OnCreateFunc, body func(td *TestDirectory) error) (err error) {
	td, err := w.OpenTestDirectory(ctx, id, onCreate)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, td.Close(ctx))
	}()
	return body(td)
}

// Close removes the path variables, appends logs/test_output.log to the
// run-wide full_execution.log, uploads the directory's logs and artifacts
// and returns to the working tree. Only the first call has an effect.
// Uploads are not cancelled with ctx.
func (td *TestDirectory) Close(ctx context.Context) (err error) {
	if td.closed {
		return nil
	}
	td.closed = true
	w := td.ws
	ctx = context.WithoutCancel(ctx)
	defer func() {
		w.active = nil
		if popErr := w.pop(); popErr != nil {
			err = errors.Join(err, rerrors.WorkspaceError("change directory", popErr))
		}
	}()

	errs := []error{td.unsetEnv()}
	if err := w.appendFullLog(filepath.Join(td.logs, testOutputLog)); err != nil {
		w.logger.Error("Failed to append to full execution log", logfields.Identifier(td.id), logfields.Error(err))
		errs = append(errs, err)
	}
	errs = append(errs,
		w.collectAndUpload(ctx, logarea.KindLogs, td.logs),
		w.collectAndUpload(ctx, logarea.KindArtifacts, td.artifacts),
	)
	return errors.Join(errs...)
}

func (td *TestDirectory) unsetEnv() error {
	var errs []error
	for _, k := range []string{EnvTestArtifactPath, EnvArtifactPath, EnvLogPath} {
		if err := td.ws.proc.Unsetenv(k); err != nil {
			errs = append(errs, rerrors.WorkspaceError("unset "+k, err))
		}
	}
	return errors.Join(errs...)
}

// appendFullLog appends report to the run-wide full execution log. A missing
// report is not an error.
func (w *Workspace) appendFullLog(report string) error {
	// #nosec G304 - report is inside the workspace
	src, err := os.Open(report)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return rerrors.WorkspaceError("open test output", err)
	}
	defer func() { _ = src.Close() }()

	full := filepath.Join(w.globalLogs, fullExecutionLog)
	// #nosec G304 - full is the run-wide log
	dst, err := os.OpenFile(full, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return rerrors.WorkspaceError("open full execution log", err)
	}
	_, err = io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return rerrors.WorkspaceError("append full execution log", fmt.Errorf("%s: %w", report, err))
	}
	return nil
}
