package logger

import "github.com/user/camencoder/pkg/ports"

// NoopLogger drops every message. The CLI uses it for --quiet and tests use it
// where encoder and muxer diagnostics are irrelevant.
type NoopLogger struct{}

// NewNoop returns a logger that drops every message.
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, args ...interface{}) {}
func (l *NoopLogger) Info(msg string, args ...interface{})  {}
func (l *NoopLogger) Warn(msg string, args ...interface{})  {}
func (l *NoopLogger) Error(msg string, args ...interface{}) {}

// WithComponent returns l; there is nothing to tag.
func (l *NoopLogger) WithComponent(component string) ports.Logger {
	return l
}
