package logging

import (
	"context"
	"log/slog"
	"strings"
)

// Filter reports whether a record should be dropped.
type Filter func(ctx context.Context, r slog.Record) bool

// WithFilter returns a logger that drops the records matched by drop and
// hands the rest to l's handler. l itself is not affected.
func WithFilter(l *slog.Logger, drop Filter) *slog.Logger {
	if drop == nil {
		return l
	}
	return slog.New(&filterHandler{next: l.Handler(), drop: drop})
}

// DropContaining matches records whose message or any attribute value
// contains one of patterns.
func DropContaining(patterns ...string) Filter {
	var pats []string
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			pats = append(pats, p)
		}
	}
	if len(pats) == 0 {
		return nil
	}
	matches := func(s string) bool {
		for _, p := range pats {
			if strings.Contains(s, p) {
				return true
			}
		}
		return false
	}
	return func(_ context.Context, r slog.Record) bool {
		if matches(r.Message) {
			return true
		}
		found := false
		r.Attrs(func(a slog.Attr) bool {
			if matches(a.Value.String()) {
				found = true
				return false
			}
			return true
		})
		return found
	}
}

type filterHandler struct {
	next slog.Handler
	drop Filter
}

func (h *filterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *filterHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.drop(ctx, r) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *filterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filterHandler{next: h.next.WithAttrs(attrs), drop: h.drop}
}

func (h *filterHandler) WithGroup(name string) slog.Handler {
	return &filterHandler{next: h.next.WithGroup(name), drop: h.drop}
}
