package config

import (
	"net/url"
	"path/filepath"
	"strings"

	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
)

// Validate checks the configuration after defaults have been applied.
func (c *Config) Validate() error {
	if err := c.validateWorkspace(); err != nil {
		return err
	}
	if err := c.validateLogArea(); err != nil {
		return err
	}
	return c.validateSuite()
}

func (c *Config) validateWorkspace() error {
	name := c.Workspace.Name
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || filepath.Clean(name) != name {
		return rerrors.ValidationFailed("workspace.name", "must be a single directory name")
	}
	if name == "logs" || name == "artifacts" {
		return rerrors.ValidationFailed("workspace.name", "collides with the global logs/artifacts directories")
	}
	return nil
}

func (c *Config) validateLogArea() error {
	la := c.LogArea
	switch la.Backend {
	case BackendDir:
		if strings.TrimSpace(la.Dir.Path) == "" {
			return rerrors.ValidationFailed("log_area.dir.path", "required for dir backend")
		}
	case BackendHTTP:
		u, err := url.Parse(la.HTTP.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return rerrors.ValidationFailed("log_area.http.url", "must be an absolute URL")
		}
		switch strings.ToUpper(la.HTTP.Method) {
		case "POST", "PUT":
		default:
			return rerrors.ValidationFailed("log_area.http.method", "must be POST or PUT")
		}
	case BackendNATS:
		if la.NATS.URL == "" {
			return rerrors.ValidationFailed("log_area.nats.url", "required for nats backend")
		}
		if la.NATS.Bucket == "" {
			return rerrors.ValidationFailed("log_area.nats.bucket", "required for nats backend")
		}
	default:
		return rerrors.ValidationFailed("log_area.backend", "unsupported value "+string(la.Backend))
	}

	if la.Retry.MaxRetries != nil && *la.Retry.MaxRetries < 0 {
		return rerrors.ValidationFailed("log_area.retry.max_retries", "cannot be negative")
	}
	return nil
}

func (c *Config) validateSuite() error {
	for i, t := range c.Suite.Tests {
		if strings.TrimSpace(t.ID) == "" {
			return rerrors.ValidationFailed("suite.tests", "test without id").WithContext("index", i)
		}
		if strings.TrimSpace(t.Command) == "" {
			return rerrors.ValidationFailed("suite.tests.command", "required").WithContext("id", t.ID)
		}
		if t.Timeout < 0 {
			return rerrors.ValidationFailed("suite.tests.timeout", "cannot be negative").WithContext("id", t.ID)
		}
		if t.Checkout != nil && t.Checkout.Depth < 0 {
			return rerrors.ValidationFailed("suite.tests.checkout.depth", "cannot be negative").WithContext("id", t.ID)
		}
	}
	return nil
}
