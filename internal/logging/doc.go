// Package logging constructs the slog loggers used across the service and
// provides the attr helpers pipeline code logs with. Console and JSON
// handlers are supported; tests use NewNop.
package logging
