package logging

import "log/slog"

type Attr = slog.Attr

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// FieldSubject is the standardized key naming the component a record
// originates from.
const FieldSubject = "subject"

// WithSubject returns a logger tagged with a component subject. A nil base
// falls back to the no-op logger so callers never need a nil check.
func WithSubject(logger *slog.Logger, subject string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldSubject, subject))
}
