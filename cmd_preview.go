package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0ultr4d3r/mapcompare/config"
	"github.com/s0ultr4d3r/mapcompare/engine"
	"github.com/s0ultr4d3r/mapcompare/tiles"
)

func newPreviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview [flags]",
		Short: "Render a PNG mosaic of the current layer around the configured view",
		Args:  cobra.NoArgs,
		RunE:  a.doPreview,
	}
	f := cmd.Flags()
	f.StringP("out", "o", "preview.png", "output `<file>`")
	f.String("size", "512x512", "target `<WxH>` in pixels")
	f.Float64("around", 0.5, "half width in `<degrees>` of the box around the view centre")
	f.String("bbox", "", "explicit `<west,south,east,north>` box, overrides --around")
	f.String("base", "", "render base map `<preset>` instead of the WMTS layer")
	f.Int("workers", 0, "concurrent tile downloads (default from config)")
	f.Bool("exact", false, "scale the mosaic to exactly --size")
	f.String("cache-dir", "", "tile cache `<dir>`")
	return cmd
}

func (a *app) doPreview(cmd *cobra.Command, args []string) error {
	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	w, h, err := parseSize(flagString(cmd, "size"))
	if err != nil {
		return err
	}
	bb := tiles.Around(a.cfg.View.Lon, a.cfg.View.Lat, flagFloat(cmd, "around"))
	if s := flagString(cmd, "bbox"); s != "" {
		if bb, err = parseBBox(s); err != nil {
			return err
		}
	}

	var tmpl tiles.Template
	if name := flagString(cmd, "base"); name != "" {
		cfg := a.cfg
		cfg.Tiles.Base = name
		t, ok := cfg.BaseTemplate()
		if !ok {
			return fmt.Errorf("unknown preset %q", name)
		}
		if t.Unresolved() {
			return fmt.Errorf("%w: %s", config.ErrKeyRequired, name)
		}
		tmpl = t
	} else {
		v, err := a.refreshedView(ctx)
		if err != nil {
			return err
		}
		l, err := v.Layer("")
		if err != nil {
			return err
		}
		tmpl = tiles.WMTSTemplate(l.Identifier, v.TemplateFor(l), engine.TefenuaAttribution)
	}

	f, err := a.tileFetcher()
	if err != nil {
		return err
	}
	workers := flagInt(cmd, "workers")
	if workers <= 0 {
		workers = a.cfg.Tiles.Workers
	}

	z, count := tiles.PlanMosaic(tmpl, bb, w, h)
	bar := newTileBar(cmd.ErrOrStderr(), count, fmt.Sprintf("[%s z%d] tiles", tmpl.Name, z))
	img, z, err := tiles.BuildMosaic(ctx, f, tmpl, bb, w, h, tiles.MosaicOptions{
		Workers: workers,
		OnTile:  func() { _ = bar.Add(1) },
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("build mosaic: %w", err)
	}
	var out image.Image = img
	if flagBool(cmd, "exact") {
		out = tiles.Scale(img, w, h)
	}

	path := flagString(cmd, "out")
	if err := writePNG(path, out); err != nil {
		return err
	}
	st := f.Stats()
	a.logger.Info("preview written", "file", path, "zoom", z, "tiles", count,
		"size", fmt.Sprintf("%dx%d", out.Bounds().Dx(), out.Bounds().Dy()),
		"downloads", st["tiles.downloads"], "cache_hits", st["tiles.cache.hits"])
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// writePNG writes next to path first, so a failed run never leaves a
// truncated image behind.
func writePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".part"
	fd, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := png.Encode(fd, img); err != nil {
		fd.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode png: %w", err)
	}
	if err := fd.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func parseSize(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		hs = ws
	}
	if w, err = strconv.Atoi(strings.TrimSpace(ws)); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if h, err = strconv.Atoi(strings.TrimSpace(hs)); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if w < 64 || h < 64 || w > 4096 || h > 4096 {
		return 0, 0, fmt.Errorf("size %dx%d out of range 64..4096", w, h)
	}
	return w, h, nil
}

func parseBBox(s string) (tiles.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return tiles.BBox{}, fmt.Errorf("bbox %q: want west,south,east,north", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return tiles.BBox{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	bb := tiles.BBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}
	if !bb.Valid() {
		return tiles.BBox{}, fmt.Errorf("bbox %q is empty or inverted", s)
	}
	return bb, nil
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

func flagFloat(cmd *cobra.Command, name string) float64 {
	v, _ := cmd.Flags().GetFloat64(name)
	return v
}

func flagInt(cmd *cobra.Command, name string) int {
	v, _ := cmd.Flags().GetInt(name)
	return v
}

func flagBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
