package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Console    bool     `yaml:"console" json:"console"`
	Filename   string   `yaml:"filename" json:"filename"`
	Append     bool     `yaml:"append" json:"append"`
	MaxSize    int      `yaml:"maxSize" json:"maxSize"` // MB
	MaxBackups int      `yaml:"maxBackups" json:"maxBackups"`
	MaxAge     int      `yaml:"maxAge" json:"maxAge"` // days
	Compress   bool     `yaml:"compress" json:"compress"`
	Level      string   `yaml:"level" json:"level"`
	Format     string   `yaml:"format" json:"format"` // text | json
	Suppress   []string `yaml:"suppress" json:"suppress"`
}

var DefaultConfig = Config{
	Console:    true,
	Append:     true,
	MaxSize:    10,
	MaxBackups: 3,
	MaxAge:     7,
	Level:      "INFO",
	Format:     "text",
}

// ParseLevel accepts TRACE, DEBUG, INFO, WARN and ERROR in any case.
// TRACE maps to DEBUG. Unknown names fall back to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE", "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger from cfg. The returned closer releases the log file,
// if any.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if cfg.Filename != "" && cfg.Filename != "-" {
		lj := &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
			LocalTime:  true,
		}
		if !cfg.Append {
			if err := lj.Rotate(); err != nil {
				return nil, nil, fmt.Errorf("rotate log file: %w", err)
			}
		}
		writers = append(writers, lj)
		closer = lj
	}
	if cfg.Console || cfg.Filename == "-" || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}
	return NewWithWriter(cfg, io.MultiWriter(writers...)), closer, nil
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(newCountingHandler(h))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
