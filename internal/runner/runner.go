package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"git.home.luguber.info/inful/testrunner/internal/config"
	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
	"git.home.luguber.info/inful/testrunner/internal/journal"
	"git.home.luguber.info/inful/testrunner/internal/logfields"
	"git.home.luguber.info/inful/testrunner/internal/metrics"
	"git.home.luguber.info/inful/testrunner/internal/workspace"
)

// Result is the outcome of one test.
type Result struct {
	Identifier string
	Name       string
	Outcome    metrics.ResultLabel
	ExitCode   int
	Duration   time.Duration
	Directory  string
	Err        error
}

// Summary aggregates the results of a suite.
type Summary struct {
	RunID   string
	Results []Result
	Passed  int
	Failed  int
	Errors  int
}

func (s *Summary) add(r Result) {
	s.Results = append(s.Results, r)
	switch r.Outcome {
	case metrics.ResultPassed:
		s.Passed++
	case metrics.ResultFailed:
		s.Failed++
	default:
		s.Errors++
	}
}

// OK reports whether every test passed.
func (s *Summary) OK() bool { return s.Failed == 0 && s.Errors == 0 }

// Runner executes suites inside an entered workspace.
type Runner struct {
	ws       *workspace.Workspace
	runID    string
	journal  journal.Journal
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

func WithRunID(id string) Option { return func(r *Runner) { r.runID = id } }

// WithJournal records run and test events.
func WithJournal(j journal.Journal) Option { return func(r *Runner) { r.journal = j } }

func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Runner for ws.
func New(ws *workspace.Workspace, opts ...Option) *Runner {
	r := &Runner{
		ws:       ws,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the tests of suite in order. Failing tests do not stop the
// suite; workspace precondition and filesystem errors do. Upload failures
// are collected and returned after the last test.
func (r *Runner) Run(ctx context.Context, suite config.Suite) (*Summary, error) {
	summary := &Summary{RunID: r.runID}
	r.record(ctx, journal.RunStarted, "", nil)
	r.logger.Info("Starting suite", logfields.Name(suite.Name), logfields.Count(len(suite.Tests)), logfields.RunID(r.runID))

	var errs []error
	for _, spec := range suite.Tests {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("suite interrupted before %s: %w", spec.ID, err))
			break
		}
		res, err := r.runTest(ctx, spec)
		summary.add(res)
		if err == nil {
			continue
		}
		errs = append(errs, err)
		if rerrors.IsCategory(err, rerrors.CategoryPrecondition) || rerrors.IsCategory(err, rerrors.CategoryFileSystem) {
			break
		}
	}

	r.record(ctx, journal.RunFinished, "", journal.RunFinishedPayload{
		Passed: summary.Passed,
		Failed: summary.Failed,
		Errors: summary.Errors,
	})
	r.logger.Info("Suite finished",
		logfields.Name(suite.Name),
		slog.Int("passed", summary.Passed),
		slog.Int("failed", summary.Failed),
		slog.Int("errors", summary.Errors))
	return summary, errors.Join(errs...)
}

// runTest returns infrastructure errors only; the test outcome is in the Result.
func (r *Runner) runTest(ctx context.Context, spec config.TestSpec) (Result, error) {
	res := Result{Identifier: spec.ID, Name: spec.DisplayName(), Outcome: metrics.ResultError, ExitCode: -1}
	start := time.Now()

	err := r.ws.WithTestDirectory(ctx, spec.ID, r.onCreate(spec), func(td *workspace.TestDirectory) error {
		res.Directory = td.Path()
		r.record(ctx, journal.TestStarted, spec.ID, journal.TestStartedPayload{
			Name:      spec.DisplayName(),
			Directory: td.Path(),
			Created:   td.Created(),
		})
		r.execute(ctx, td, spec, &res)
		return nil
	})
	res.Duration = time.Since(start)

	if err != nil && rerrors.IsCategory(err, rerrors.CategoryCallback) {
		res.Err = err
		err = nil
	}
	if err != nil && res.Err == nil && res.Directory == "" {
		res.Err = err
	}

	r.recorder.IncTestResult(res.Outcome)
	r.recorder.ObserveTestDuration(res.Duration)
	finished := journal.TestFinishedPayload{
		Result:     string(res.Outcome),
		ExitCode:   res.ExitCode,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		finished.Error = res.Err.Error()
	}
	r.record(ctx, journal.TestFinished, spec.ID, finished)

	attrs := []any{
		logfields.Identifier(spec.ID),
		slog.String("result", string(res.Outcome)),
		logfields.ExitCode(res.ExitCode),
		logfields.DurationMS(float64(res.Duration.Milliseconds())),
	}
	if res.Err != nil {
		attrs = append(attrs, logfields.Error(res.Err))
	}
	r.logger.Info("Test finished", attrs...)
	return res, err
}

// execute runs the pre-execution steps and the command of spec inside td.
func (r *Runner) execute(ctx context.Context, td *workspace.TestDirectory, spec config.TestSpec, res *Result) {
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	outPath := filepath.Join(td.LogPath(), "test_output.log")
	// #nosec G304 - outPath is inside the test directory
	out, err := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		res.Err = rerrors.WorkspaceError("open test output", err)
		return
	}
	defer func() { _ = out.Close() }()

	env := r.environment(spec, td)
	for _, step := range spec.Execute {
		cmd := r.shell(ctx, td.Path(), step, env)
		cmd.Stdout, cmd.Stderr = out, out
		if err := cmd.Run(); err != nil {
			res.Err = rerrors.ExecutionFailed(spec.ID, fmt.Errorf("execute step %q: %w", step, err))
			return
		}
	}

	cmd := r.shell(ctx, td.Path(), spec.Command, env)
	cmd.Stdout, cmd.Stderr = out, out
	r.logger.Info("Running test", logfields.Identifier(spec.ID), logfields.Name(spec.DisplayName()))
	err = cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		res.Err = rerrors.ExecutionFailed(spec.ID, fmt.Errorf("command %q: %w", spec.Command, ctx.Err())).
			WithContext("timeout", spec.Timeout.String())
	case err == nil:
		res.Outcome, res.ExitCode = metrics.ResultPassed, 0
	case errors.As(err, &exitErr):
		res.Outcome, res.ExitCode = metrics.ResultFailed, exitErr.ExitCode()
	default:
		res.Err = rerrors.ExecutionFailed(spec.ID, err)
	}
}

func (r *Runner) shell(ctx context.Context, dir, command string, env []string) *exec.Cmd {
	// #nosec G204 - running suite commands is the purpose of the runner
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = env
	cmd.WaitDelay = 5 * time.Second
	return cmd
}

// environment returns the child environment: the process environment, the
// workspace paths and the test's own variables, in that order of precedence.
func (r *Runner) environment(spec config.TestSpec, td *workspace.TestDirectory) []string {
	env := os.Environ()
	env = append(env,
		workspace.EnvGlobalLogs+"="+r.ws.GlobalLogs(),
		workspace.EnvGlobalArtifacts+"="+r.ws.GlobalArtifacts(),
	)
	if td != nil {
		env = append(env,
			workspace.EnvLogPath+"="+td.LogPath(),
			workspace.EnvArtifactPath+"="+td.ArtifactPath(),
			workspace.EnvTestArtifactPath+"="+td.ArtifactPath(),
		)
	}
	keys := make([]string, 0, len(spec.Environment))
	for k := range spec.Environment {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+spec.Environment[k])
	}
	return env
}

func (r *Runner) record(ctx context.Context, eventType journal.EventType, identifier string, payload any) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Append(context.WithoutCancel(ctx), r.runID, eventType, identifier, payload); err != nil {
		r.logger.Warn("Failed to write journal", slog.String("event", string(eventType)), logfields.Error(err))
	}
}
