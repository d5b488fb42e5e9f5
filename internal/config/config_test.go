package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
)

const sampleConfig = `
workspace:
  name: ws
logging:
  level: DEBUG
  format: json
log_area:
  backend: http
  http:
    url: ${UPLOAD_URL}
    method: put
    timeout: 5s
  retry:
    mode: Exponential
    initial: 100ms
    max: 2s
    max_retries: 4
suite:
  name: smoke
  tests:
    - id: a
      command: ./test.sh
      timeout: 1m
      checkout:
        repository: https://example.com/repo.git
        ref: main
        commands: ["chmod +x test.sh"]
    - id: b
      command: "true"
    - id: a
      command: ./test.sh --again
`

func TestParse(t *testing.T) {
	t.Setenv("UPLOAD_URL", "http://logs.example.com/upload")

	cfg, err := Parse("inline", []byte(sampleConfig))
	require.NoError(t, err)

	require.Equal(t, "ws", cfg.Workspace.Name)
	require.Equal(t, LogLevelDebug, cfg.Logging.Level)
	require.Equal(t, LogFormatJSON, cfg.Logging.Format)
	require.Equal(t, BackendHTTP, cfg.LogArea.Backend)
	require.Equal(t, "http://logs.example.com/upload", cfg.LogArea.HTTP.URL)
	require.Equal(t, 5*time.Second, cfg.LogArea.HTTP.Timeout)
	require.Equal(t, RetryBackoffExponential, cfg.LogArea.Retry.Mode)
	require.Equal(t, 100*time.Millisecond, cfg.LogArea.Retry.Initial)
	require.NotNil(t, cfg.LogArea.Retry.MaxRetries)
	require.Equal(t, 4, *cfg.LogArea.Retry.MaxRetries)

	require.Len(t, cfg.Suite.Tests, 3)
	require.Equal(t, time.Minute, cfg.Suite.Tests[0].Timeout)
	require.NotNil(t, cfg.Suite.Tests[0].Checkout)
	require.Equal(t, []string{"chmod +x test.sh"}, cfg.Suite.Tests[0].Checkout.Commands)
	require.Equal(t, "a", cfg.Suite.Tests[2].ID)
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse("inline", []byte("suite:\n  tests: []\n"))
	require.NoError(t, err)

	require.Equal(t, DefaultWorkspaceName, cfg.Workspace.Name)
	require.Equal(t, LogLevelInfo, cfg.Logging.Level)
	require.Equal(t, LogFormatText, cfg.Logging.Format)
	require.Equal(t, BackendDir, cfg.LogArea.Backend)
	require.Equal(t, DefaultUploadDir, cfg.LogArea.Dir.Path)
	require.Equal(t, RetryBackoffLinear, cfg.LogArea.Retry.Mode)
	require.Equal(t, DefaultMaxRetries, *cfg.LogArea.Retry.MaxRetries)
	require.Equal(t, DefaultMetricsTextfile, cfg.Metrics.Textfile)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		yaml  string
		field string
	}{
		{"nested workspace name", "workspace: {name: a/b}", "workspace.name"},
		{"workspace name collides", "workspace: {name: logs}", "workspace.name"},
		{"unknown backend", "log_area: {backend: s3}", "log_area.backend"},
		{"http without url", "log_area: {backend: http}", "log_area.http.url"},
		{"http bad method", "log_area: {backend: http, http: {url: 'http://x', method: GET}}", "log_area.http.method"},
		{"nats without bucket", "log_area: {backend: nats, nats: {url: 'nats://x'}}", "log_area.nats.bucket"},
		{"negative retries", "log_area: {retry: {max_retries: -1}}", "log_area.retry.max_retries"},
		{"test without id", "suite: {tests: [{command: x}]}", "suite.tests"},
		{"test without command", "suite: {tests: [{id: a}]}", "suite.tests.command"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("inline", []byte(tc.yaml))
			require.Error(t, err)
			require.True(t, rerrors.IsCategory(err, rerrors.CategoryValidation), "got %v", err)
			re, ok := rerrors.As(err)
			require.True(t, ok)
			require.Equal(t, tc.field, re.Context["field"])
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
	require.True(t, rerrors.IsCategory(err, rerrors.CategoryConfig))
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TESTRUNNER_BUCKET", "")
	require.NoError(t, os.Unsetenv("TESTRUNNER_BUCKET"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TESTRUNNER_BUCKET=from-dotenv\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "testrunner.yaml"), []byte(
		"log_area:\n  backend: nats\n  nats:\n    url: nats://localhost:4222\n    bucket: ${TESTRUNNER_BUCKET}\n"), 0o600))

	cfg, err := Load("testrunner.yaml")
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.LogArea.NATS.Bucket)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testrunner.yaml")

	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false), "existing file must not be overwritten without force")
	require.NoError(t, Init(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, err := Parse(path, data)
	require.NoError(t, err)
	require.Equal(t, BackendHTTP, cfg.LogArea.Backend)
	require.Len(t, cfg.Suite.Tests, 1)
}

func TestTestSpecDisplayName(t *testing.T) {
	require.Equal(t, "a", TestSpec{ID: "a"}.DisplayName())
	require.Equal(t, "Nice", TestSpec{ID: "a", Name: "Nice"}.DisplayName())
}
