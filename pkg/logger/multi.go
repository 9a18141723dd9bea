package logger

import (
	"context"
	"errors"
	"log/slog"
)

// fanout sends each record to every sink whose level admits it. serve
// --log-file pairs the console logger with a JSON file logger this way.
type fanout []slog.Handler

// Multi returns a logger writing to the handlers of all loggers. Nil loggers
// are skipped and nested Multi loggers are flattened. A sink that fails does
// not stop the others; Handle reports the joined errors.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	var sinks fanout
	for _, l := range loggers {
		if l == nil {
			continue
		}
		if nested, ok := l.Handler().(fanout); ok {
			sinks = append(sinks, nested...)
			continue
		}
		sinks = append(sinks, l.Handler())
	}
	return slog.New(sinks)
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(derive func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = derive(h)
	}
	return out
}
