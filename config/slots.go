package config

import (
	"errors"
	"fmt"

	"github.com/s0ultr4d3r/mapcompare/engine"
)

// ErrKeyRequired means the base map preset still references an API key.
var ErrKeyRequired = errors.New("base map needs an API key")

// SlotSpec returns the layer spec of a named data slot: base, terrain,
// geojson or mvt.
func (c Config) SlotSpec(name string) (engine.LayerSpec, error) {
	switch name {
	case "base":
		t, ok := c.BaseTemplate()
		if !ok {
			return engine.LayerSpec{}, fmt.Errorf("unknown base map %q", c.Tiles.Base)
		}
		if t.Unresolved() {
			return engine.LayerSpec{}, fmt.Errorf("%w: %s", ErrKeyRequired, c.Tiles.Base)
		}
		return engine.LayerSpec{
			Slot: "base", Kind: engine.KindRaster, URL: t.URL,
			Attribution: t.Attribution, MaxZoom: t.MaxZoom, TileSize: t.Size(),
		}, nil
	case "terrain":
		return engine.LayerSpec{Slot: "terrain", Kind: engine.KindTerrain, URL: c.Data.DEM}, nil
	case "geojson":
		return engine.LayerSpec{Slot: "geojson", Kind: engine.KindGeoJSON, URL: c.Data.GeoJSON}, nil
	case "mvt":
		return engine.LayerSpec{
			Slot: "mvt", Kind: engine.KindVector, URL: c.MVTTemplate(),
			SourceLayer: c.Data.MVTLayer, Attribution: "GeoServer " + c.Data.MVTIdentifier,
			MaxZoom: 21,
		}, nil
	default:
		return engine.LayerSpec{}, fmt.Errorf("unknown slot %q", name)
	}
}
