package engine

import (
	"slices"
	"strings"

	"github.com/s0ultr4d3r/mapcompare/geostyle"
)

// MapLibre emits a style specification v8 document.
type MapLibre struct{}

type Style struct {
	Version int                       `json:"version"`
	Name    string                    `json:"name,omitempty"`
	Center  [2]float64                `json:"center"`
	Zoom    float64                   `json:"zoom"`
	Pitch   float64                   `json:"pitch,omitempty"`
	Glyphs  string                    `json:"glyphs,omitempty"`
	Sources map[string]map[string]any `json:"sources"`
	Layers  []StyleLayer              `json:"layers"`
	Terrain *StyleTerrain             `json:"terrain,omitempty"`

	slots slotList
}

type StyleLayer struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	SourceLayer string         `json:"source-layer,omitempty"`
	MinZoom     int            `json:"minzoom,omitempty"`
	MaxZoom     int            `json:"maxzoom,omitempty"`
	Filter      []any          `json:"filter,omitempty"`
	Layout      map[string]any `json:"layout,omitempty"`
	Paint       map[string]any `json:"paint,omitempty"`
}

type StyleTerrain struct {
	Source       string  `json:"source"`
	Exaggeration float64 `json:"exaggeration"`
}

func (s *Style) Engine() string  { return "maplibre" }
func (s *Style) Slots() []string { return slices.Clone(s.slots) }

// Layer returns the style layer with id.
func (s *Style) Layer(id string) (StyleLayer, bool) {
	for _, l := range s.Layers {
		if l.ID == id {
			return l, true
		}
	}
	return StyleLayer{}, false
}

func (MapLibre) Name() string { return "maplibre" }

func (MapLibre) NewScene(v View) Scene {
	return &Style{
		Version: 8,
		Name:    "mapcompare",
		Center:  [2]float64{v.Lon, v.Lat},
		Zoom:    v.Zoom,
		Pitch:   v.Pitch,
		Sources: map[string]map[string]any{},
		Layers:  []StyleLayer{},
	}
}

func sourceID(slot string) string { return slot + "-source" }

func (m MapLibre) Configure(sc Scene, spec LayerSpec) error {
	s, ok := sc.(*Style)
	if !ok {
		return ErrSceneMismatch
	}
	if err := spec.validate(); err != nil {
		return err
	}
	var (
		source map[string]any
		layers []StyleLayer
	)
	src := sourceID(spec.Slot)
	switch spec.Kind {
	case KindRaster:
		source = tileSource("raster", spec)
		source["tileSize"] = spec.tileSize()
		layers = []StyleLayer{{
			ID:     spec.Slot + "-layer",
			Type:   "raster",
			Source: src,
			Layout: map[string]any{"visibility": "visible"},
		}}
	case KindVector:
		source = tileSource("vector", spec)
		layers = vectorLayers(spec.Slot, src, spec.SourceLayer)
	case KindGeoJSON:
		source = map[string]any{"type": "geojson", "data": spec.URL}
		if spec.Attribution != "" {
			source["attribution"] = spec.Attribution
		}
		layers = geojsonLayers(spec.Slot, src)
	case KindTerrain:
		source = tileSource("raster-dem", spec)
		source["tileSize"] = spec.tileSize()
		layers = []StyleLayer{{
			ID:     spec.Slot + "-hillshade",
			Type:   "hillshade",
			Source: src,
			Layout: map[string]any{"visibility": "visible"},
			Paint: map[string]any{
				"hillshade-shadow-color":           "#473B24",
				"hillshade-highlight-color":        "#FAFAFF",
				"hillshade-accent-color":           "#8B7355",
				"hillshade-illumination-direction": 315,
				"hillshade-illumination-anchor":    "viewport",
				"hillshade-exaggeration":           0.35,
			},
		}}
	default:
		return ErrUnsupportedKind
	}

	m.remove(s, spec.Slot)
	s.Sources[src] = source
	s.Layers = append(s.Layers, layers...)
	if spec.Kind == KindTerrain {
		ex := spec.Exaggeration
		if ex == 0 {
			ex = 1
		}
		s.Terrain = &StyleTerrain{Source: src, Exaggeration: ex}
	}
	s.slots.add(spec.Slot)
	return nil
}

// Remove drops the slot's layers, source and terrain reference.
func (m MapLibre) Remove(sc Scene, slot string) {
	if s, ok := sc.(*Style); ok {
		m.remove(s, slot)
	}
}

func (MapLibre) remove(s *Style, slot string) {
	src := sourceID(slot)
	if _, ok := s.Sources[src]; !ok {
		return
	}
	s.Layers = slices.DeleteFunc(s.Layers, func(l StyleLayer) bool { return l.Source == src })
	delete(s.Sources, src)
	if s.Terrain != nil && s.Terrain.Source == src {
		s.Terrain = nil
	}
	s.slots.remove(slot)
}

// tileSource uses "tiles" for templates and "url" for TileJSON documents.
func tileSource(typ string, spec LayerSpec) map[string]any {
	source := map[string]any{"type": typ}
	if strings.Contains(spec.URL, "{z}") {
		source["tiles"] = []string{spec.URL}
	} else {
		source["url"] = spec.URL
	}
	if spec.Attribution != "" {
		source["attribution"] = spec.Attribution
	}
	if spec.MinZoom > 0 {
		source["minzoom"] = spec.MinZoom
	}
	if spec.MaxZoom > 0 {
		source["maxzoom"] = spec.MaxZoom
	}
	if len(spec.Bounds) == 4 {
		source["bounds"] = spec.Bounds
	}
	return source
}

func vectorLayers(slot, src, sourceLayer string) []StyleLayer {
	st := geostyle.MVT
	return []StyleLayer{
		{
			ID: slot + "-fill", Type: "fill", Source: src, SourceLayer: sourceLayer,
			Filter: []any{"==", []any{"geometry-type"}, "Polygon"},
			Paint:  map[string]any{"fill-color": st.Fill, "fill-outline-color": st.Stroke},
		},
		{
			ID: slot + "-line", Type: "line", Source: src, SourceLayer: sourceLayer,
			Paint: map[string]any{"line-color": st.Stroke, "line-width": st.StrokeWidth},
		},
	}
}

func geojsonLayers(slot, src string) []StyleLayer {
	var out []StyleLayer
	for _, r := range geostyle.Rules() {
		color := []any{"coalesce", []any{"get", "color"}, r.Stroke}
		switch r.Class {
		case geostyle.ClassPolygon:
			out = append(out,
				StyleLayer{
					ID: slot + "-fill", Type: "fill", Source: src,
					Filter: []any{"==", []any{"geometry-type"}, "Polygon"},
					Paint:  map[string]any{"fill-color": r.Fill},
				},
				StyleLayer{
					ID: slot + "-outline", Type: "line", Source: src,
					Filter: []any{"==", []any{"geometry-type"}, "Polygon"},
					Paint:  map[string]any{"line-color": color, "line-width": r.StrokeWidth},
				})
		case geostyle.ClassLine:
			solid := []any{"all", []any{"==", []any{"geometry-type"}, "LineString"}, []any{"!", []any{"to-boolean", []any{"get", "dashed"}}}}
			dashed := []any{"all", []any{"==", []any{"geometry-type"}, "LineString"}, []any{"to-boolean", []any{"get", "dashed"}}}
			out = append(out,
				StyleLayer{
					ID: slot + "-line", Type: "line", Source: src, Filter: solid,
					Paint: map[string]any{"line-color": color, "line-width": r.StrokeWidth},
				},
				StyleLayer{
					ID: slot + "-dashed", Type: "line", Source: src, Filter: dashed,
					Paint: map[string]any{"line-color": color, "line-width": r.StrokeWidth, "line-dasharray": []float64{5, 5}},
				})
		case geostyle.ClassPoint:
			out = append(out,
				StyleLayer{
					ID: slot + "-circle", Type: "circle", Source: src,
					Filter: []any{"==", []any{"geometry-type"}, "Point"},
					Paint: map[string]any{
						"circle-radius":       r.Radius,
						"circle-color":        r.Fill,
						"circle-stroke-color": r.Stroke,
						"circle-stroke-width": r.StrokeWidth,
					},
				},
				StyleLayer{
					ID: slot + "-label", Type: "symbol", Source: src,
					Filter: []any{"==", []any{"geometry-type"}, "Point"},
					Layout: map[string]any{
						"text-field":  []any{"coalesce", []any{"get", "name"}, []any{"get", "title"}, ""},
						"text-offset": []float64{0, r.LabelOffset / 14},
						"text-size":   14,
					},
					Paint: map[string]any{"text-color": "#000", "text-halo-color": "#fff", "text-halo-width": 3},
				})
		}
	}
	return out
}
