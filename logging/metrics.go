package logging

import (
	"context"
	"log/slog"

	gometrics "github.com/rcrowley/go-metrics"
)

var (
	totalCounter = gometrics.NewRegisteredCounter("log.total", gometrics.DefaultRegistry)
	warnCounter  = gometrics.NewRegisteredCounter("log.warns", gometrics.DefaultRegistry)
	errorCounter = gometrics.NewRegisteredCounter("log.errors", gometrics.DefaultRegistry)
)

// Counts returns the number of records written so far, by severity.
func Counts() map[string]int64 {
	return map[string]int64{
		"log.total":  totalCounter.Count(),
		"log.warns":  warnCounter.Count(),
		"log.errors": errorCounter.Count(),
	}
}

type countingHandler struct {
	next slog.Handler
}

func newCountingHandler(next slog.Handler) slog.Handler {
	return &countingHandler{next: next}
}

func (h *countingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *countingHandler) Handle(ctx context.Context, r slog.Record) error {
	totalCounter.Inc(1)
	switch {
	case r.Level >= slog.LevelError:
		errorCounter.Inc(1)
	case r.Level >= slog.LevelWarn:
		warnCounter.Inc(1)
	}
	return h.next.Handle(ctx, r)
}

func (h *countingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &countingHandler{next: h.next.WithAttrs(attrs)}
}

func (h *countingHandler) WithGroup(name string) slog.Handler {
	return &countingHandler{next: h.next.WithGroup(name)}
}
