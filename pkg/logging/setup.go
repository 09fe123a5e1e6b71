package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"gitlab.com/acme/acme-auth/pkg/env"
)

const serviceName = "acme-auth"

// Setup builds the process logger for mode. Records go to stderr (text in
// local/dev, JSON in prod, nowhere in test) and to the global OTel logger provider.
func Setup(mode env.Mode) (*slog.Logger, func() error) {
	return setup(mode, os.Stderr)
}

func setup(mode env.Mode, w io.Writer) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{
		Level:     mode.SlogLevel(),
		AddSource: mode == env.Prod,
	}

	var local slog.Handler
	switch mode {
	case env.Test:
		local = slog.DiscardHandler
	case env.Prod:
		local = slog.NewJSONHandler(w, opts)
	default:
		local = slog.NewTextHandler(w, opts)
	}

	handler := Fanout(local, otelslog.NewHandler(serviceName))
	logger := slog.New(handler).With(slog.String("service", serviceName), slog.String("mode", mode.String()))

	return logger, func() error { return nil }
}

// Fanout returns a handler that forwards every record to each of handlers.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return fanout(handlers)
}

type fanout []slog.Handler

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
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
