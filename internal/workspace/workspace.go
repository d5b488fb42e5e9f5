package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
	"git.home.luguber.info/inful/testrunner/internal/logarea"
	"git.home.luguber.info/inful/testrunner/internal/logfields"
	"git.home.luguber.info/inful/testrunner/internal/metrics"
)

// DefaultName is the working tree directory name under the top directory.
const DefaultName = "workspace"

// LogArea collects files below a directory and uploads them to durable storage.
type LogArea interface {
	Collect(path string) ([]logarea.Descriptor, error)
	UploadLogs(ctx context.Context, files []logarea.Descriptor) error
	UploadArtifacts(ctx context.Context, files []logarea.Descriptor) error
}

// Workspace is the lifecycle manager of one test run's working area.
type Workspace struct {
	area     LogArea
	proc     Process
	recorder metrics.Recorder
	logger   *slog.Logger
	newName  func() string

	name            string
	topDir          string
	dir             string
	globalLogs      string
	globalArtifacts string
	compressed      string

	identifiers map[string]string
	frames      []string
	active      *TestDirectory
	entered     bool
	exited      bool
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithName overrides the working tree directory name (default "workspace").
// The archive is named <name>.tar.gz.
func WithName(name string) Option {
	return func(w *Workspace) { w.name = name }
}

// WithProcess replaces the real process state, mainly for tests.
func WithProcess(p Process) Option {
	return func(w *Workspace) {
		if p != nil {
			w.proc = p
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(w *Workspace) {
		if r != nil {
			w.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Workspace rooted at the current working directory and
// publishes GLOBAL_LOGS and GLOBAL_ARTIFACTS. Nothing is created on disk.
func New(area LogArea, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		area:        area,
		proc:        OSProcess{},
		recorder:    metrics.NoopRecorder{},
		logger:      slog.Default(),
		newName:     uuid.NewString,
		name:        DefaultName,
		identifiers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := validateName(w.name); err != nil {
		return nil, err
	}

	top, err := w.proc.Getwd()
	if err != nil {
		return nil, rerrors.WorkspaceError("get working directory", err)
	}
	w.topDir, err = filepath.Abs(top)
	if err != nil {
		return nil, rerrors.WorkspaceError("resolve working directory", err)
	}
	w.globalLogs = filepath.Join(w.topDir, "logs")
	w.globalArtifacts = filepath.Join(w.topDir, "artifacts")

	if err := w.proc.Setenv(EnvGlobalLogs, w.globalLogs); err != nil {
		return nil, rerrors.WorkspaceError("set "+EnvGlobalLogs, err)
	}
	if err := w.proc.Setenv(EnvGlobalArtifacts, w.globalArtifacts); err != nil {
		return nil, rerrors.WorkspaceError("set "+EnvGlobalArtifacts, err)
	}
	return w, nil
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return rerrors.ValidationFailed("workspace.name", "must be a directory name")
	case strings.ContainsAny(name, `/\`):
		return rerrors.ValidationFailed("workspace.name", "must not contain path separators")
	case name == "logs", name == "artifacts":
		return rerrors.ValidationFailed("workspace.name", "collides with the run-wide "+name+" directory")
	}
	return nil
}

// Enter creates the working tree and the run-wide directories, then makes the
// working tree the current directory. Existing directories are reused.
func (w *Workspace) Enter() error {
	if w.entered {
		return precondition(ErrAlreadyEntered, "enter")
	}

	dir := filepath.Join(w.topDir, w.name)
	w.logger.Info("Creating workspace directory", logfields.Path(w.name))
	for _, p := range []string{dir, w.globalLogs, w.globalArtifacts} {
		if err := os.MkdirAll(p, 0o750); err != nil {
			return rerrors.WorkspaceError("create directory", err).WithContext("path", p)
		}
	}

	w.logger.Info("Changing directory to workspace", logfields.Path(w.name))
	if err := w.push(dir); err != nil {
		return rerrors.WorkspaceError("change directory", err).WithContext("path", dir)
	}
	w.dir = dir
	w.entered = true
	return nil
}

// Exit closes a still open test directory, returns to the top directory,
// archives the working tree and uploads the run-wide logs, the run-wide
// artifacts and the archive. Every step is attempted; failures are joined.
func (w *Workspace) Exit(ctx context.Context) error {
	if !w.entered {
		return precondition(ErrWorkspaceNotCreated, "exit")
	}
	if w.exited {
		return precondition(ErrAlreadyExited, "exit")
	}

	var errs []error
	if w.active != nil {
		w.logger.Warn("Closing abandoned test directory", logfields.Identifier(w.active.id))
		errs = append(errs, w.active.Close(ctx))
	}

	w.logger.Info("Returning to top directory", logfields.Path(w.topDir))
	w.frames = nil
	if err := w.proc.Chdir(w.topDir); err != nil {
		errs = append(errs, rerrors.WorkspaceError("change directory", err).WithContext("path", w.topDir))
	}
	w.exited = true

	archive, compressErr := w.Compress()
	if compressErr != nil {
		w.logger.Error("Failed to compress workspace", logfields.Error(compressErr))
		errs = append(errs, compressErr)
	}

	errs = append(errs,
		w.collectAndUpload(ctx, logarea.KindLogs, w.globalLogs),
		w.collectAndUpload(ctx, logarea.KindArtifacts, w.globalArtifacts),
	)

	if compressErr == nil {
		archiveFile := []logarea.Descriptor{{Name: filepath.Base(archive), File: archive}}
		if err := w.area.UploadArtifacts(ctx, archiveFile); err != nil {
			w.logger.Error("Failed to upload workspace archive", logfields.File(archive), logfields.Error(err))
			errs = append(errs, fmt.Errorf("upload workspace archive: %w", err))
		}
	} else {
		w.logger.Warn("Skipping archive upload, no archive was produced")
	}

	return errors.Join(errs...)
}

// Run enters the workspace, calls fn and always exits, also while a panic
// unwinds. Teardown uploads run with a context that is not cancelled with ctx.
func (w *Workspace) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := w.Enter(); err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, w.Exit(context.WithoutCancel(ctx)))
	}()
	return fn(ctx)
}

// collectAndUpload hands every file below path to the LogArea.
func (w *Workspace) collectAndUpload(ctx context.Context, kind logarea.Kind, path string) error {
	files, err := w.area.Collect(path)
	if err != nil {
		w.logger.Error("Failed to collect files", logfields.Kind(string(kind)), logfields.Path(path), logfields.Error(err))
		return fmt.Errorf("collect %s from %s: %w", kind, path, err)
	}

	upload := w.area.UploadLogs
	if kind == logarea.KindArtifacts {
		upload = w.area.UploadArtifacts
	}
	if err := upload(ctx, files); err != nil {
		w.logger.Error("Failed to upload files", logfields.Kind(string(kind)), logfields.Path(path), logfields.Error(err))
		return fmt.Errorf("upload %s from %s: %w", kind, path, err)
	}
	return nil
}

// requireDir fails with ErrWorkspaceNotCreated unless the working tree exists
// and the workspace is still entered.
func (w *Workspace) requireDir(op string) error {
	if w.dir == "" || w.exited {
		return precondition(ErrWorkspaceNotCreated, op)
	}
	info, err := os.Stat(w.dir)
	if err != nil || !info.IsDir() {
		return precondition(ErrWorkspaceNotCreated, op)
	}
	return nil
}

// Identifiers returns a copy of the identifier to directory bindings.
func (w *Workspace) Identifiers() map[string]string {
	out := make(map[string]string, len(w.identifiers))
	for k, v := range w.identifiers {
		out[k] = v
	}
	return out
}

func (w *Workspace) Name() string            { return w.name }
func (w *Workspace) TopDir() string          { return w.topDir }
func (w *Workspace) GlobalLogs() string      { return w.globalLogs }
func (w *Workspace) GlobalArtifacts() string { return w.globalArtifacts }

// Dir returns the working tree path, or "" before Enter.
func (w *Workspace) Dir() string { return w.dir }

// CompressedWorkspace returns the archive path, or "" until Compress succeeds.
func (w *Workspace) CompressedWorkspace() string { return w.compressed }
