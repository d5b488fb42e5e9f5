package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyIdentifier = "identifier"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyName       = "name"
	KeyKind       = "kind"
	KeyStage      = "stage"
	KeyCount      = "count"
	KeyBackend    = "backend"
	KeyURL        = "url"
	KeyAttempt    = "attempt"
	KeyExitCode   = "exit_code"
	KeyBytes      = "bytes"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Identifier(id string) slog.Attr     { return slog.String(KeyIdentifier, id) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func File(f string) slog.Attr            { return slog.String(KeyFile, f) }
func Name(n string) slog.Attr            { return slog.String(KeyName, n) }
func Kind(k string) slog.Attr            { return slog.String(KeyKind, k) }
func Stage(name string) slog.Attr        { return slog.String(KeyStage, name) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func Backend(b string) slog.Attr         { return slog.String(KeyBackend, b) }
func URL(u string) slog.Attr             { return slog.String(KeyURL, u) }
func Attempt(n int) slog.Attr            { return slog.Int(KeyAttempt, n) }
func ExitCode(code int) slog.Attr        { return slog.Int(KeyExitCode, code) }
func Bytes(n int64) slog.Attr            { return slog.Int64(KeyBytes, n) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
