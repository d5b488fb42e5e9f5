package logarea

import (
	"context"
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/testrunner/internal/config"
	"git.home.luguber.info/inful/testrunner/internal/retry"
)

// NewBackend builds the backend selected in cfg. Relative dir backend paths
// are resolved against baseDir.
func NewBackend(ctx context.Context, cfg config.LogAreaConfig, baseDir string) (Backend, error) {
	switch cfg.Backend {
	case config.BackendDir, "":
		p := cfg.Dir.Path
		if p == "" {
			p = config.DefaultUploadDir
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		return NewDirBackend(p)
	case config.BackendHTTP:
		return NewHTTPBackend(cfg.HTTP)
	case config.BackendNATS:
		return NewNATSBackend(ctx, cfg.NATS)
	default:
		return nil, fmt.Errorf("unsupported log area backend %q", cfg.Backend)
	}
}

// FromConfig builds a LogArea with the configured backend and retry policy.
// Options are applied after the config derived ones.
func FromConfig(ctx context.Context, cfg config.LogAreaConfig, baseDir string, opts ...Option) (*LogArea, error) {
	backend, err := NewBackend(ctx, cfg, baseDir)
	if err != nil {
		return nil, err
	}
	all := append([]Option{WithRetryPolicy(retry.FromConfig(cfg.Retry))}, opts...)
	return New(backend, all...), nil
}
