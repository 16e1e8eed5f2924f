package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("trace"))
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel(" warn "))
	require.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	require.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestWithFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	base := NewWithWriter(Config{Level: "DEBUG"}, buf)
	scoped := WithFilter(base, DropContaining("transformBufferInPlace", ""))

	scoped.Warn("transformBufferInPlace failed")
	scoped.Warn("tile missing", "error", errors.New("at transformBufferInPlace"))
	scoped.With("layer", "ortho").Info("kept")
	base.Warn("transformBufferInPlace outside the scoped path")

	out := buf.String()
	require.NotContains(t, out, "transformBufferInPlace failed")
	require.NotContains(t, out, "tile missing")
	require.Contains(t, out, "kept")
	require.Contains(t, out, "layer=ortho")
	require.Contains(t, out, "outside the scoped path")
}

func TestWithFilterNoPatterns(t *testing.T) {
	require.Nil(t, DropContaining(" ", ""))
	l := NewWithWriter(Config{}, &bytes.Buffer{})
	require.Same(t, l, WithFilter(l, DropContaining()))
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapcompare.log")
	l, closer, err := New(Config{Filename: path, Append: true, Level: "INFO", Format: "json"})
	require.NoError(t, err)
	l.Debug("hidden")
	l.Info("written", "k", 1)
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"written"`)
	require.NotContains(t, string(b), "hidden")
}

func TestCounts(t *testing.T) {
	before := Counts()
	l := NewWithWriter(Config{}, &bytes.Buffer{})
	l.Warn("w")
	l.Error("e")
	after := Counts()
	require.Equal(t, before["log.warns"]+1, after["log.warns"])
	require.Equal(t, before["log.errors"]+1, after["log.errors"])
	require.Equal(t, before["log.total"]+2, after["log.total"])
}
