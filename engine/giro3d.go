package engine

import (
	"math"
	"slices"
	"strings"

	"github.com/s0ultr4d3r/mapcompare/geostyle"
	"github.com/s0ultr4d3r/mapcompare/tiles"
	"github.com/s0ultr4d3r/mapcompare/wmts"
)

// WebMercatorExtent is the full EPSG:3857 square.
const WebMercatorExtent = 20037508.342789244

// Giro3D emits an instance with a map entity in EPSG:3857, its color and
// elevation layers, and the camera.
type Giro3D struct{}

type Giro3DScene struct {
	Instance struct {
		CRS             string `json:"crs"`
		BackgroundColor string `json:"backgroundColor"`
	} `json:"instance"`
	// Extent is minx, maxx, miny, maxy as Giro3D orders it.
	Extent [4]float64    `json:"extent"`
	Layers []Giro3DLayer `json:"layers"`
	Camera Giro3DCamera  `json:"camera"`

	slots slotList
}

type Giro3DLayer struct {
	Slot   string       `json:"slot"`
	Name   string       `json:"name"`
	Type   string       `json:"type"`
	Source Giro3DSource `json:"source"`
}

type Giro3DSource struct {
	Type    string         `json:"type"`
	Options map[string]any `json:"options"`
}

type Giro3DCamera struct {
	Position [3]float64 `json:"position"`
	Target   [3]float64 `json:"target"`
}

func (s *Giro3DScene) Engine() string  { return "giro3d" }
func (s *Giro3DScene) Slots() []string { return slices.Clone(s.slots) }

func (s *Giro3DScene) Layer(slot string) (Giro3DLayer, bool) {
	for _, l := range s.Layers {
		if l.Slot == slot {
			return l, true
		}
	}
	return Giro3DLayer{}, false
}

// CameraFor places the camera above lon/lat, its height halving with every
// zoom level.
func CameraFor(v View) Giro3DCamera {
	x, y := tiles.ToWebMercator(v.Lon, v.Lat)
	h := v.Height
	if h <= 0 {
		h = 40000000 / math.Exp2(v.Zoom)
	}
	return Giro3DCamera{Position: [3]float64{x, y, h}, Target: [3]float64{x, y, 0}}
}

func (Giro3D) Name() string { return "giro3d" }

func (Giro3D) NewScene(v View) Scene {
	s := &Giro3DScene{
		Extent: [4]float64{-WebMercatorExtent, WebMercatorExtent, -WebMercatorExtent, WebMercatorExtent},
		Layers: []Giro3DLayer{},
		Camera: CameraFor(v),
	}
	s.Instance.CRS = "EPSG:3857"
	s.Instance.BackgroundColor = "#0a3b59"
	return s
}

func (g Giro3D) Configure(sc Scene, spec LayerSpec) error {
	s, ok := sc.(*Giro3DScene)
	if !ok {
		return ErrSceneMismatch
	}
	if err := spec.validate(); err != nil {
		return err
	}
	layer := Giro3DLayer{Slot: spec.Slot, Name: spec.Slot, Type: "ColorLayer"}
	switch spec.Kind {
	case KindRaster:
		layer.Source = giroRasterSource(spec)
	case KindVector:
		layer.Source = Giro3DSource{
			Type: "VectorTileSource",
			Options: map[string]any{
				"url":          spec.URL,
				"format":       "MVT",
				"attributions": spec.Attribution,
				"style":        geostyle.MVT,
			},
		}
	case KindGeoJSON:
		layer.Source = Giro3DSource{
			Type: "VectorSource",
			Options: map[string]any{
				"url":            spec.URL,
				"format":         "GeoJSON",
				"dataProjection": "EPSG:4326",
				"style":          geostyle.Rules(),
			},
		}
	case KindTerrain:
		layer.Type = "ElevationLayer"
		layer.Source = Giro3DSource{
			Type: "TiledImageSource",
			Options: map[string]any{
				"url":    spec.URL,
				"format": "MapboxTerrainFormat",
			},
		}
	default:
		return ErrUnsupportedKind
	}
	g.remove(s, spec.Slot)
	s.Layers = append(s.Layers, layer)
	s.slots.add(spec.Slot)
	return nil
}

func (Giro3D) remove(s *Giro3DScene, slot string) {
	s.Layers = slices.DeleteFunc(s.Layers, func(l Giro3DLayer) bool { return l.Slot == slot })
	s.slots.remove(slot)
}

func giroRasterSource(spec LayerSpec) Giro3DSource {
	if spec.Layer != nil && spec.BaseURL != "" {
		return Giro3DSource{
			Type: "WmtsSource",
			Options: map[string]any{
				"capabilities": wmts.CapabilitiesURL(spec.BaseURL),
				"layer":        spec.Layer.Identifier,
				"matrixSet":    spec.Layer.TileMatrixSet,
				"style":        spec.Layer.StyleOrDefault(),
				"format":       spec.Layer.Format,
			},
		}
	}
	opts := map[string]any{
		"url":         spec.URL,
		"crossOrigin": "anonymous",
	}
	if spec.Attribution != "" {
		opts["attributions"] = spec.Attribution
	}
	if strings.Contains(spec.URL, "{-y}") {
		opts["tms"] = true
	}
	return Giro3DSource{Type: "TiledImageSource", Options: opts}
}
