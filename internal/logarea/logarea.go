// Package logarea hands files produced by a test run to durable storage.
//
// A LogArea collects the files below a directory and uploads them, one
// request per file, through a Backend. Transient backend failures are retried
// with the configured retry.Policy; everything else is reported to the caller.
package logarea

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
	"git.home.luguber.info/inful/testrunner/internal/logfields"
	"git.home.luguber.info/inful/testrunner/internal/metrics"
	"git.home.luguber.info/inful/testrunner/internal/retry"
)

// Kind separates logs from artifacts on the storage side.
type Kind string

const (
	KindLogs      Kind = metrics.KindLogs
	KindArtifacts Kind = metrics.KindArtifacts
)

// Upload is a single file handed to a Backend.
type Upload struct {
	RunID string
	Kind  Kind
	Name  string
	Size  int64
	Body  io.Reader
}

// Backend stores uploaded files.
//
// Upload must return an error built with errors.UploadTransient for failures
// worth retrying. The body is reopened for every attempt.
type Backend interface {
	Name() string
	Upload(ctx context.Context, u Upload) error
	Close() error
}

// LogArea collects and uploads run files.
type LogArea struct {
	backend  Backend
	runID    string
	policy   retry.Policy
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures a LogArea.
type Option func(*LogArea)

// WithRunID tags every upload with the run identifier.
func WithRunID(id string) Option {
	return func(a *LogArea) { a.runID = id }
}

// WithRetryPolicy overrides the retry policy for transient upload failures.
func WithRetryPolicy(p retry.Policy) Option {
	return func(a *LogArea) { a.policy = p }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(a *LogArea) {
		if r != nil {
			a.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(a *LogArea) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates a LogArea uploading through backend.
func New(backend Backend, opts ...Option) *LogArea {
	a := &LogArea{
		backend:  backend,
		policy:   retry.DefaultPolicy(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RunID returns the run identifier attached to uploads.
func (a *LogArea) RunID() string { return a.runID }

// Collect lists the files below path. See Collect.
func (a *LogArea) Collect(path string) ([]Descriptor, error) {
	return Collect(path)
}

// UploadLogs uploads files as logs.
func (a *LogArea) UploadLogs(ctx context.Context, files []Descriptor) error {
	return a.upload(ctx, KindLogs, files)
}

// UploadArtifacts uploads files as artifacts.
func (a *LogArea) UploadArtifacts(ctx context.Context, files []Descriptor) error {
	return a.upload(ctx, KindArtifacts, files)
}

// Close releases the backend.
func (a *LogArea) Close() error {
	return a.backend.Close()
}

// upload attempts every file even when earlier ones fail.
func (a *LogArea) upload(ctx context.Context, kind Kind, files []Descriptor) error {
	if len(files) == 0 {
		return nil
	}

	start := time.Now()
	var errs []error
	for _, d := range files {
		if err := a.uploadFile(ctx, kind, d); err != nil {
			a.logger.Warn("Upload failed",
				logfields.Kind(string(kind)),
				logfields.Name(d.Name),
				logfields.Backend(a.backend.Name()),
				logfields.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", d.Name, err))
		}
	}
	elapsed := time.Since(start)
	a.recorder.ObserveUpload(string(kind), len(files), elapsed, len(errs) == 0)

	if len(errs) > 0 {
		return rerrors.UploadFailed(string(kind), errors.Join(errs...)).
			WithContext("failed", len(errs)).
			WithContext("total", len(files))
	}

	a.logger.Info("Uploaded files",
		logfields.Kind(string(kind)),
		logfields.Count(len(files)),
		logfields.Backend(a.backend.Name()),
		logfields.DurationMS(float64(elapsed.Milliseconds())))
	return nil
}

func (a *LogArea) uploadFile(ctx context.Context, kind Kind, d Descriptor) error {
	return a.policy.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			a.logger.Debug("Retrying upload",
				logfields.Name(d.Name),
				logfields.Attempt(attempt))
		}
		// #nosec G304 - descriptors come from Collect
		f, err := os.Open(d.File)
		if err != nil {
			return fmt.Errorf("open: %w", err)
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		return a.backend.Upload(ctx, Upload{
			RunID: a.runID,
			Kind:  kind,
			Name:  d.Name,
			Size:  info.Size(),
			Body:  f,
		})
	})
}
