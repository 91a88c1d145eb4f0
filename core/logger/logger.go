// Package logger defines the logging interface shared by the rebalancing
// pipeline, the solver adapter, the lpsolve engine and the MQTT and InfluxDB
// adapters. infra/logger provides the zerolog implementation.
package logger

// Logger exposes logging methods for common severity levels.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields, such as the branch and
	// bound summary of a solve.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
