package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"

	"gitlab.com/ucmsv2/authcode-service/pkg/env"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown log format %q, expected text or json", s)
	}
}

// Setup installs the process wide slog handler and returns it as a logger.
// Prod mode always logs JSON.
func Setup(mode env.Mode, format Format, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: mode.SlogLevel()}

	var h slog.Handler
	if format == FormatJSON || mode == env.Prod {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

// NewLogger returns a logger writing both to the OpenTelemetry logs bridge
// under the given instrumentation scope and to the process default handler.
// Never pass the result to slog.SetDefault.
func NewLogger(name string) *slog.Logger {
	return slog.New(FanOut(otelslog.NewHandler(name), DefaultHandler{})).With(slog.String("scope", name))
}

// DefaultHandler forwards to whatever slog.Default() is at call time, so
// package level loggers built before Setup still reach the configured output.
type DefaultHandler struct {
	attrs  []slog.Attr
	groups []string
}

func (h DefaultHandler) resolve() slog.Handler {
	var out slog.Handler = slog.Default().Handler()
	if len(h.attrs) > 0 {
		out = out.WithAttrs(h.attrs)
	}
	for _, g := range h.groups {
		out = out.WithGroup(g)
	}
	return out
}

func (h DefaultHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slog.Default().Handler().Enabled(ctx, level)
}

func (h DefaultHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h DefaultHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(h.groups) > 0 {
		// attrs added after a group belong to it, resolve eagerly
		return h.resolve().WithAttrs(attrs)
	}
	return DefaultHandler{attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h DefaultHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return DefaultHandler{attrs: h.attrs, groups: append(append([]string{}, h.groups...), name)}
}

type fanOut []slog.Handler

// FanOut dispatches every record to each handler that is enabled for it.
func FanOut(handlers ...slog.Handler) slog.Handler {
	return fanOut(handlers)
}

func (f fanOut) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanOut) Handle(ctx context.Context, r slog.Record) error {
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

func (f fanOut) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanOut, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanOut) WithGroup(name string) slog.Handler {
	out := make(fanOut, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
