package log

import (
	"log/slog"
	"os"
)

// Logger is a slog.Logger bound to a component name. Every record it
// emits carries the component attribute, so call sites only pass the
// fields specific to the event.
type Logger struct {
	*slog.Logger
}

// Config controls how a Logger is built.
type Config struct {
	Level     slog.Level
	Component string
	Handler   slog.Handler
}

// New builds a Logger for the given component. When no handler is
// supplied, a text handler on stdout at the configured level is used.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.Level,
		})
	}

	return &Logger{
		Logger: slog.New(handler).With(FieldComponent, config.Component),
	}
}
