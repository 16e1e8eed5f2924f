package tiles

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"
	"sync"

	_ "image/gif"

	xdraw "golang.org/x/image/draw"
)

type MosaicOptions struct {
	Workers int
	// Logger receives per-tile warnings; wrap it with a filter to mute
	// noisy sources.
	Logger *slog.Logger
	// OnTile is called once per handled tile, including missing ones.
	OnTile func()
}

// PlanMosaic returns the zoom BuildMosaic will use and how many tiles it
// will request.
func PlanMosaic(t Template, bb BBox, targetW, targetH int) (z int, count int) {
	z = ClampZoom(FitZoom(bb, targetW, targetH, t), t)
	minTX, minTY, maxTX, maxTY := CoveringTiles(bb, z)
	return z, (maxTX - minTX + 1) * (maxTY - minTY + 1)
}

// BuildMosaic fetches all tiles covering bbox and assembles into an RGBA image.
// It returns the mosaic and the actual zoom used. Tiles the server does not
// have (404) are left transparent.
func BuildMosaic(ctx context.Context, f *Fetcher, t Template, bb BBox, targetW, targetH int, opts MosaicOptions) (*image.RGBA, int, error) {
	if !bb.Valid() {
		return nil, 0, fmt.Errorf("invalid bbox %+v", bb)
	}
	z, _ := PlanMosaic(t, bb, targetW, targetH)

	// world-pixel bbox at chosen zoom
	tlx, tly, brx, bry := BBoxPixels(bb, z)
	w := int(math.Ceil(brx - tlx))
	h := int(math.Ceil(bry - tly))
	if w <= 0 || h <= 0 {
		return nil, z, fmt.Errorf("invalid mosaic size %dx%d", w, h)
	}
	if w > targetW || h > targetH {
		// safety (shouldn't happen with FitZoom)
		w, h = min(w, targetW), min(h, targetH)
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	logger := opts.Logger
	if logger == nil {
		logger = f.Logger
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 4
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type job struct{ X, Y int }
	jobs := make(chan job)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := pasteTile(ctx, f, t, out, z, j.X, j.Y, tlx, tly, logger); err != nil {
					select {
					case errCh <- err:
					default:
					}
					cancel()
					return
				}
				if opts.OnTile != nil {
					opts.OnTile()
				}
			}
		}()
	}

	minTX, minTY, maxTX, maxTY := CoveringTiles(bb, z)
feed:
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			select {
			case jobs <- job{X: tx, Y: ty}:
			case <-ctx.Done():
				break feed
			}
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, z, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, z, err
	}
	return out, z, nil
}

func pasteTile(ctx context.Context, f *Fetcher, t Template, out *image.RGBA, z, tx, ty int, tlx, tly float64, logger *slog.Logger) error {
	u, hdrs, err := f.URLFor(t, z, tx, ty)
	if err != nil {
		return err
	}
	tile, err := f.GetTile(ctx, u, hdrs)
	if IsNotFound(err) {
		logger.Warn("tile missing", "z", z, "x", tx, "y", ty, "url", u)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get tile %s: %w", u, err)
	}
	img, _, err := decodeTile(tile.Data)
	if err != nil {
		return fmt.Errorf("decode tile %s: %w", u, err)
	}
	// offset of the tile's top-left world pixel inside the mosaic; flooring
	// keeps neighbouring tiles on disjoint pixel ranges
	offX := int(math.Floor(float64(tx*TileSize) - tlx))
	offY := int(math.Floor(float64(ty*TileSize) - tly))
	Paste(out, img, offX, offY)
	return nil
}

// Scale resizes src to w x h.
func Scale(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func decodeTile(b []byte) (image.Image, string, error) {
	// Fast path: check first bytes for PNG/JPEG
	if len(b) >= 8 && bytes.Equal(b[:8], []byte{137, 80, 78, 71, 13, 10, 26, 10}) {
		img, err := png.Decode(bytes.NewReader(b))
		return img, "image/png", err
	}
	if len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF {
		img, err := jpeg.Decode(bytes.NewReader(b))
		return img, "image/jpeg", err
	}
	// fallback to image.Decode (slower, but robust)
	img, format, err := image.Decode(bytes.NewReader(b))
	return img, format, err
}
