package tiles

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	for y := 0; y < TileSize; y++ {
		for x := 0; x < TileSize; x++ {
			img.Set(x, y, c)
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

// tileServer answers 404 for paths containing "missing" and red tiles otherwise.
func tileServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	red := solidPNG(t, color.RGBA{R: 0xff, A: 0xff})
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(red)
	}))
	t.Cleanup(svr.Close)
	return svr
}

func TestFetcherCache(t *testing.T) {
	var hits atomic.Int32
	svr := tileServer(t, &hits)

	f, err := NewFetcher(t.TempDir(), 0, 1, 5*time.Second)
	require.NoError(t, err)

	u := svr.URL + "/3/4/2.png"
	first, err := f.GetTile(context.Background(), u, map[string]string{"Referer": "http://localhost"})
	require.NoError(t, err)
	require.Equal(t, SourceDownload, first.Source)
	require.Equal(t, "image/png", first.ContentType)

	second, err := f.GetTile(context.Background(), u, nil)
	require.NoError(t, err)
	require.Equal(t, SourceDiskCache, second.Source)
	require.Equal(t, first.Data, second.Data)
	require.Equal(t, "image/png", second.ContentType)
	require.Equal(t, int32(1), hits.Load())

	stats := f.Stats()
	require.Equal(t, int64(1), stats["tiles.cache.hits"])
	require.Equal(t, int64(1), stats["tiles.cache.misses"])
	require.Equal(t, int64(1), stats["tiles.downloads"])
}

func TestFetcherNotFound(t *testing.T) {
	var hits atomic.Int32
	svr := tileServer(t, &hits)

	f, err := NewFetcher(t.TempDir(), 0, 1, 5*time.Second)
	require.NoError(t, err)

	_, err = f.GetTile(context.Background(), svr.URL+"/missing/1/1.png", nil)
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	// client errors are not retried
	require.Equal(t, int32(1), hits.Load())
	require.Equal(t, int64(1), f.Stats()["tiles.errors"])
}

func TestCachePathExtension(t *testing.T) {
	f := &Fetcher{CacheDir: "cache"}
	require.True(t, strings.HasSuffix(f.cachePath("https://a.b/1/2/3.png?key=x"), ".png"))
	require.True(t, strings.HasSuffix(f.cachePath("https://a.b/wmts?layer=a&tileCol={x}"), ".tile"))
	require.True(t, strings.HasSuffix(f.cachePath("https://a.b/tile/3/2/1"), ".tile"))
}
