package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/testrunner/internal/config"
	"git.home.luguber.info/inful/testrunner/internal/logfields"
	"git.home.luguber.info/inful/testrunner/internal/workspace"
)

// onCreate returns the callback preparing a new test directory, or nil when
// the test has nothing to check out.
func (r *Runner) onCreate(spec config.TestSpec) workspace.OnCreateFunc {
	c := spec.Checkout
	if c == nil || (c.Repository == "" && len(c.Commands) == 0) {
		return nil
	}
	return func(ctx context.Context, dir string) error {
		if c.Repository != "" {
			if err := clone(ctx, dir, c); err != nil {
				return err
			}
		}
		for _, command := range c.Commands {
			out, err := r.shell(ctx, dir, command, r.environment(spec, nil)).CombinedOutput()
			r.logger.Debug("Checkout command finished",
				logfields.Identifier(spec.ID),
				slog.String("command", command),
				slog.String("output", strings.TrimSpace(string(out))))
			if err != nil {
				return fmt.Errorf("checkout command %q: %w", command, err)
			}
		}
		return nil
	}
}

// clone checks out c.Repository into dir.
func clone(ctx context.Context, dir string, c *config.CheckoutSpec) error {
	opts := &git.CloneOptions{URL: c.Repository}
	if c.Ref != "" {
		opts.ReferenceName = referenceName(c.Ref)
		opts.SingleBranch = true
	}
	if c.Depth > 0 {
		opts.Depth = c.Depth
	}

	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return fmt.Errorf("clone %s: %w", c.Repository, err)
	}

	if head, err := repo.Head(); err == nil {
		slog.Info("Repository cloned",
			logfields.URL(c.Repository),
			slog.String("commit", head.Hash().String()[:8]),
			logfields.Path(dir))
	}
	return nil
}

// referenceName accepts full reference names and treats anything else as a branch.
func referenceName(ref string) plumbing.ReferenceName {
	if strings.HasPrefix(ref, "refs/") {
		return plumbing.ReferenceName(ref)
	}
	return plumbing.NewBranchReferenceName(ref)
}
