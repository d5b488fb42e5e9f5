package config

import "time"

const (
	DefaultWorkspaceName   = "workspace"
	DefaultUploadDir       = "uploads"
	DefaultHTTPMethod      = "POST"
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultNATSTimeout     = 10 * time.Second
	DefaultMetricsTextfile = "metrics.prom"
	DefaultMaxRetries      = 2
)

func applyDefaults(cfg *Config) {
	if cfg.Workspace.Name == "" {
		cfg.Workspace.Name = DefaultWorkspaceName
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))

	if cfg.LogArea.Backend == "" {
		cfg.LogArea.Backend = BackendDir
	}
	if cfg.LogArea.Dir.Path == "" {
		cfg.LogArea.Dir.Path = DefaultUploadDir
	}
	if cfg.LogArea.HTTP.Method == "" {
		cfg.LogArea.HTTP.Method = DefaultHTTPMethod
	}
	if cfg.LogArea.HTTP.Timeout <= 0 {
		cfg.LogArea.HTTP.Timeout = DefaultHTTPTimeout
	}
	if cfg.LogArea.NATS.Timeout <= 0 {
		cfg.LogArea.NATS.Timeout = DefaultNATSTimeout
	}

	retry := &cfg.LogArea.Retry
	retry.Mode = NormalizeRetryBackoff(string(retry.Mode))
	if retry.Mode == "" {
		retry.Mode = RetryBackoffLinear
	}
	if retry.Initial <= 0 {
		retry.Initial = time.Second
	}
	if retry.Max <= 0 {
		retry.Max = 30 * time.Second
	}
	if retry.MaxRetries == nil {
		n := DefaultMaxRetries
		retry.MaxRetries = &n
	}

	if cfg.Metrics.Textfile == "" {
		cfg.Metrics.Textfile = DefaultMetricsTextfile
	}
}
