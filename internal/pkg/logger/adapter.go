package logger

import "portfolio_tracker/internal/app/port"

// slogAdapter implements port.Logger on top of the package-level logging functions,
// so services can take a logger dependency without knowing about slog or zap.
type slogAdapter struct {
	args []any
}

// NewSlogAdapter creates a port.Logger backed by the global logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// With returns a logger that appends args to every entry.
func With(l port.Logger, args ...any) port.Logger {
	if a, ok := l.(*slogAdapter); ok {
		return &slogAdapter{args: append(append([]any{}, a.args...), args...)}
	}
	return l
}

func (a *slogAdapter) Info(msg string, args ...any)  { Info(msg, append(args, a.args...)...) }
func (a *slogAdapter) Debug(msg string, args ...any) { Debug(msg, append(args, a.args...)...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { Warn(msg, append(args, a.args...)...) }
func (a *slogAdapter) Error(msg string, args ...any) { Error(msg, append(args, a.args...)...) }
