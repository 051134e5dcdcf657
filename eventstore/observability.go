package eventstore

// Logger interface for SQL query logging, operational metrics, warnings, and error reporting.
//
// The signature is compatible with *slog.Logger, so any structured logger can
// be plugged in directly; oteladapters provides a bridge with automatic trace
// correlation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
