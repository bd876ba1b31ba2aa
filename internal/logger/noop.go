package logger

// NoopLogger discards all log output. Used in tests and as a safe default.
type NoopLogger struct{}

// NewNoop returns a logger that discards everything.
func NewNoop() Interface { return &NoopLogger{} }

// Debug does nothing.
func (n *NoopLogger) Debug(string, ...any) {}

// Info does nothing.
func (n *NoopLogger) Info(string, ...any) {}

// Warn does nothing.
func (n *NoopLogger) Warn(string, ...any) {}

// Error does nothing.
func (n *NoopLogger) Error(string, ...any) {}

// Fatal does nothing.
func (n *NoopLogger) Fatal(string, ...any) {}

// With returns the same logger.
func (n *NoopLogger) With(...any) Interface { return n }

// WithComponent returns the same logger.
func (n *NoopLogger) WithComponent(string) Interface { return n }

// WithError returns the same logger.
func (n *NoopLogger) WithError(error) Interface { return n }
