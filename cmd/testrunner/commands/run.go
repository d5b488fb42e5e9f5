package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/testrunner/internal/config"
	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
	"git.home.luguber.info/inful/testrunner/internal/journal"
	"git.home.luguber.info/inful/testrunner/internal/logarea"
	"git.home.luguber.info/inful/testrunner/internal/logfields"
	"git.home.luguber.info/inful/testrunner/internal/metrics"
	"git.home.luguber.info/inful/testrunner/internal/runner"
	"git.home.luguber.info/inful/testrunner/internal/workspace"
)

const journalFile = "journal.db"

// RunCmd implements the 'run' command.
type RunCmd struct {
	RunID     string `name:"run-id" help:"Run identifier attached to uploads (default: random UUID)"`
	Workspace string `short:"w" help:"Workspace directory name, overrides workspace.name"`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if r.Workspace != "" {
		cfg.Workspace.Name = r.Workspace
	}

	logger := newLogger(os.Stderr, cfg.Logging, root.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return RunSuite(ctx, os.Stdout, cfg, r.RunID, logger)
}

// RunSuite executes cfg.Suite in a workspace under the current directory and
// writes a summary to out. Failing tests yield a SuiteFailed error.
func RunSuite(ctx context.Context, out io.Writer, cfg *config.Config, runID string, logger *slog.Logger) error {
	if runID == "" {
		runID = uuid.NewString()
	}
	logger = logger.With(logfields.RunID(runID))

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	var prom *metrics.PrometheusRecorder
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheusRecorder(nil)
		recorder = prom
	}

	top, err := os.Getwd()
	if err != nil {
		return rerrors.WorkspaceError("get working directory", err)
	}
	area, err := logarea.FromConfig(ctx, cfg.LogArea, top,
		logarea.WithRunID(runID),
		logarea.WithRecorder(recorder),
		logarea.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := area.Close(); err != nil {
			logger.Warn("Failed to close log area", logfields.Error(err))
		}
	}()

	ws, err := workspace.New(area,
		workspace.WithName(cfg.Workspace.Name),
		workspace.WithRecorder(recorder),
		workspace.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	return ws.Run(ctx, func(ctx context.Context) error {
		opts := []runner.Option{
			runner.WithRunID(runID),
			runner.WithRecorder(recorder),
			runner.WithLogger(logger),
		}
		j, err := journal.NewSQLiteStore(filepath.Join(ws.GlobalLogs(), journalFile))
		if err != nil {
			logger.Warn("Journal disabled", logfields.Error(err))
		} else {
			opts = append(opts, runner.WithJournal(j))
			defer func() {
				if err := j.Close(); err != nil {
					logger.Warn("Failed to close journal", logfields.Error(err))
				}
			}()
		}

		summary, runErr := runner.New(ws, opts...).Run(ctx, cfg.Suite)

		if prom != nil {
			path := filepath.Join(ws.GlobalArtifacts(), cfg.Metrics.Textfile)
			if err := prom.WriteTextfile(path); err != nil {
				logger.Warn("Failed to write metrics", logfields.Path(path), logfields.Error(err))
			}
		}

		printSummary(out, cfg.Suite.Name, summary)
		if runErr != nil {
			return runErr
		}
		if !summary.OK() {
			return rerrors.SuiteFailed(summary.Failed, summary.Errors)
		}
		return nil
	})
}

func printSummary(out io.Writer, name string, s *runner.Summary) {
	if name == "" {
		name = "suite"
	}
	_, _ = fmt.Fprintf(out, "%s: %d passed, %d failed, %d errors (run %s)\n", name, s.Passed, s.Failed, s.Errors, s.RunID)
	for _, r := range s.Results {
		line := fmt.Sprintf("  %-8s %s", r.Outcome, r.Name)
		if r.Outcome == metrics.ResultFailed {
			line += fmt.Sprintf(" (exit %d)", r.ExitCode)
		}
		if r.Err != nil {
			line += ": " + r.Err.Error()
		}
		_, _ = fmt.Fprintln(out, line)
	}
}
