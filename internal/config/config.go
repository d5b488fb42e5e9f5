package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
)

// Config represents the test runner configuration
type Config struct {
	Workspace WorkspaceConfig `yaml:"workspace"`
	Logging   LoggingConfig   `yaml:"logging"`
	LogArea   LogAreaConfig   `yaml:"log_area"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Suite     Suite           `yaml:"suite"`
}

// WorkspaceConfig controls the on-disk workspace layout.
type WorkspaceConfig struct {
	// Name is the workspace directory created under the start directory.
	// The archive is named after it (<name>.tar.gz).
	Name string `yaml:"name"`
}

// LoggingConfig controls log level and output format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// LogAreaConfig selects and configures the upload backend.
type LogAreaConfig struct {
	Backend LogAreaBackend    `yaml:"backend"`
	Dir     DirBackendConfig  `yaml:"dir"`
	HTTP    HTTPBackendConfig `yaml:"http"`
	NATS    NATSBackendConfig `yaml:"nats"`
	Retry   RetryConfig       `yaml:"retry"`
}

// LogAreaBackend enumerates supported upload backends.
type LogAreaBackend string

const (
	BackendDir  LogAreaBackend = "dir"
	BackendHTTP LogAreaBackend = "http"
	BackendNATS LogAreaBackend = "nats"
)

// DirBackendConfig stores uploads in a content-addressable directory.
type DirBackendConfig struct {
	Path string `yaml:"path"`
}

// HTTPBackendConfig sends each file as the body of one request.
type HTTPBackendConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout time.Duration     `yaml:"timeout"`
}

// NATSBackendConfig stores uploads in a JetStream object store bucket.
type NATSBackendConfig struct {
	URL     string        `yaml:"url"`
	Bucket  string        `yaml:"bucket"`
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig configures upload retries performed by the log area.
type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode"`
	Initial    time.Duration    `yaml:"initial"`
	Max        time.Duration    `yaml:"max"`
	MaxRetries *int             `yaml:"max_retries,omitempty"`
}

// MetricsConfig controls Prometheus metrics export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Textfile is written into the global artifacts directory before teardown.
	Textfile string `yaml:"textfile"`
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Missing .env files are fine; existing process variables always win.
	if err := loadEnvFiles(); err != nil {
		fmt.Fprintf(os.Stderr, "Note: .env file couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, rerrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- path chosen by the operator
	if err != nil {
		return nil, rerrors.ConfigInvalid(configPath, fmt.Errorf("read config file: %w", err))
	}

	return Parse(configPath, data)
}

// Parse decodes raw YAML (after environment expansion), applies defaults and validates.
func Parse(source string, data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, rerrors.ConfigInvalid(source, fmt.Errorf("unmarshal config: %w", err))
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	retries := 3
	example := Config{
		Workspace: WorkspaceConfig{Name: DefaultWorkspaceName},
		Logging:   LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		LogArea: LogAreaConfig{
			Backend: BackendHTTP,
			HTTP: HTTPBackendConfig{
				URL:     "http://localhost/logs",
				Method:  "POST",
				Timeout: 30 * time.Second,
			},
			Retry: RetryConfig{
				Mode:       RetryBackoffExponential,
				Initial:    time.Second,
				Max:        30 * time.Second,
				MaxRetries: &retries,
			},
		},
		Metrics: MetricsConfig{Enabled: true, Textfile: DefaultMetricsTextfile},
		Suite: Suite{
			Name: "Example suite",
			Tests: []TestSpec{
				{
					ID:      "unit",
					Command: "/bin/bash ./test.sh",
					Execute: []string{"echo 'this is the pre-execution step'"},
					Checkout: &CheckoutSpec{
						Repository: "https://github.com/example/project.git",
						Ref:        "main",
					},
					Environment: map[string]string{"TEST_LEVEL": "unit"},
					Timeout:     10 * time.Minute,
				},
			},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
