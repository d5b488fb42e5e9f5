package logarea

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"git.home.luguber.info/inful/testrunner/internal/config"
	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
)

// HTTPBackend sends every file as the body of one request to
// <url>/<run id>/<kind>/<name>.
type HTTPBackend struct {
	client  *http.Client
	base    string
	method  string
	headers map[string]string
}

// NewHTTPBackend builds an HTTP backend from its config section.
func NewHTTPBackend(cfg config.HTTPBackendConfig) (*HTTPBackend, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || !u.IsAbs() {
		return nil, rerrors.ValidationFailed("log_area.http.url", "must be an absolute URL")
	}
	method := cfg.Method
	if method == "" {
		method = config.DefaultHTTPMethod
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	return &HTTPBackend{
		client:  &http.Client{Timeout: timeout},
		base:    cfg.URL,
		method:  method,
		headers: cfg.Headers,
	}, nil
}

func (b *HTTPBackend) Name() string { return "http" }

func (b *HTTPBackend) Upload(ctx context.Context, u Upload) error {
	kind := string(u.Kind)
	target, err := url.JoinPath(b.base, u.RunID, kind, u.Name)
	if err != nil {
		return rerrors.UploadFailed(kind, fmt.Errorf("build url: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, b.method, target, u.Body)
	if err != nil {
		return rerrors.UploadFailed(kind, fmt.Errorf("build request: %w", err))
	}
	req.ContentLength = u.Size
	req.Header.Set("Content-Type", "application/octet-stream")
	if u.RunID != "" {
		req.Header.Set("X-Run-ID", u.RunID)
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return rerrors.UploadFailed(kind, ctx.Err())
		}
		return rerrors.UploadTransient(kind, err).WithContext("url", target)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return rerrors.UploadTransient(kind, fmt.Errorf("unexpected status %s", resp.Status)).
			WithContext("url", target)
	default:
		return rerrors.UploadFailed(kind, fmt.Errorf("unexpected status %s", resp.Status)).
			WithContext("url", target)
	}
}

func (b *HTTPBackend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}
