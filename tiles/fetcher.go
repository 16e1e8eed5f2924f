package tiles

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"golang.org/x/time/rate"
)

const (
	SourceDiskCache = "disk-cache"
	SourceDownload  = "download"
)

// HTTPError is a non-200 tile answer.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("tile HTTP %d for %s", e.StatusCode, e.URL)
}

// IsNotFound reports whether err is a 404 from the tile server. Sparse
// layers answer 404 outside their coverage.
func IsNotFound(err error) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound
}

type Tile struct {
	Data        []byte
	ContentType string
	Source      string
}

type Fetcher struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	CacheDir   string
	UserAgent  string
	MaxRetries int
	Logger     *slog.Logger
	Metrics    metrics.Registry
}

func NewFetcher(cacheDir string, rps float64, burst int, timeout time.Duration) (*Fetcher, error) {
	if cacheDir == "" {
		cacheDir = ".tile-cache"
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		Client: &http.Client{
			Timeout: timeout,
		},
		Limiter:    rate.NewLimiter(limit, burst),
		CacheDir:   cacheDir,
		UserAgent:  "mapcompare/1.0 (+tiles)",
		MaxRetries: 3,
		Logger:     slog.Default(),
		Metrics:    metrics.NewRegistry(),
	}, nil
}

func (f *Fetcher) count(name string) {
	if f.Metrics != nil {
		metrics.GetOrRegisterCounter(name, f.Metrics).Inc(1)
	}
}

func (f *Fetcher) cachePath(u string) string {
	sum := sha1.Sum([]byte(u))
	hexid := hex.EncodeToString(sum[:])
	ext := ".tile"
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	if j := strings.LastIndexByte(u, '.'); j >= 0 && j > len(u)-6 {
		ext = u[j:]
		if len(ext) > 5 || strings.ContainsRune(ext, '/') {
			ext = ".tile"
		}
	}
	return filepath.Join(f.CacheDir, hexid[:2], hexid[2:4], hexid+ext)
}

func (f *Fetcher) readFromCache(cp string) (Tile, error) {
	b, err := os.ReadFile(cp)
	if err != nil {
		return Tile{}, err
	}
	ct := ""
	if ctb, err2 := os.ReadFile(cp + ".ct"); err2 == nil {
		ct = string(ctb)
	}
	return Tile{Data: b, ContentType: ct, Source: SourceDiskCache}, nil
}

// GetTile returns the tile at url, from the disk cache when present.
// Transport errors and 5xx answers are retried, other statuses are not.
func (f *Fetcher) GetTile(ctx context.Context, url string, headers map[string]string) (Tile, error) {
	cp := f.cachePath(url)
	if t, err := f.readFromCache(cp); err == nil {
		f.count("tiles.cache.hits")
		return t, nil
	}
	f.count("tiles.cache.misses")
	if err := os.MkdirAll(filepath.Dir(cp), 0o755); err != nil {
		return Tile{}, err
	}

	retries := max(f.MaxRetries, 1)
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if err := f.Limiter.Wait(ctx); err != nil {
			return Tile{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return Tile{}, err
		}
		req.Header.Set("User-Agent", f.UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := f.Client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			time.Sleep(time.Duration(200+attempt*200) * time.Millisecond)
			continue
		}
		var tile Tile
		func() {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				lastErr = &HTTPError{URL: url, StatusCode: resp.StatusCode}
				return
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				lastErr = err
				return
			}
			tmp := cp + ".tmp"
			if err := os.WriteFile(tmp, body, 0o644); err != nil {
				lastErr = err
				return
			}
			ct := resp.Header.Get("Content-Type")
			_ = os.WriteFile(cp+".ct", []byte(ct), 0o644)
			lastErr = os.Rename(tmp, cp)
			tile = Tile{Data: body, ContentType: ct, Source: SourceDownload}
		}()
		if lastErr == nil {
			f.count("tiles.downloads")
			return tile, nil
		}
		var herr *HTTPError
		if errors.As(lastErr, &herr) && herr.StatusCode < 500 {
			break
		}
		time.Sleep(time.Duration(400+attempt*250) * time.Millisecond)
	}
	f.count("tiles.errors")
	f.Logger.Debug("tile fetch failed", "url", url, "error", lastErr)
	return Tile{}, lastErr
}

func (f *Fetcher) URLFor(t Template, z, x, y int) (string, map[string]string, error) {
	u, err := t.Fill(z, x, y)
	if err != nil {
		return "", nil, err
	}
	return u, t.Headers, nil
}

func ClampZoom(z int, t Template) int {
	if z < t.MinZoom {
		return t.MinZoom
	}
	if z > t.MaxZoom {
		return t.MaxZoom
	}
	return z
}

// Stats returns the counters collected so far.
func (f *Fetcher) Stats() map[string]int64 {
	out := map[string]int64{}
	if f.Metrics == nil {
		return out
	}
	f.Metrics.Each(func(name string, v any) {
		if c, ok := v.(metrics.Counter); ok {
			out[name] = c.Count()
		}
	})
	return out
}
