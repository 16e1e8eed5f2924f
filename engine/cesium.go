package engine

import (
	"fmt"
	"slices"

	"github.com/s0ultr4d3r/mapcompare/geostyle"
)

const (
	cesiumMaxLevel      = 19
	cesiumDefaultHeight = 265000
)

// Cesium emits viewer options, imagery providers, data sources, a terrain
// provider and a camera.
type Cesium struct{}

type CesiumScene struct {
	Viewer        map[string]any     `json:"viewer"`
	ImageryLayers []CesiumProvider   `json:"imageryLayers"`
	DataSources   []CesiumDataSource `json:"dataSources"`
	Terrain       CesiumProvider     `json:"terrainProvider"`
	Camera        CesiumCamera       `json:"camera"`

	slots slotList
}

type CesiumProvider struct {
	Slot    string         `json:"slot,omitempty"`
	Type    string         `json:"type"`
	Options map[string]any `json:"options,omitempty"`
	Alpha   float64        `json:"alpha,omitempty"`
}

type CesiumDataSource struct {
	Slot    string         `json:"slot"`
	Type    string         `json:"type"`
	URL     string         `json:"url"`
	Options map[string]any `json:"options,omitempty"`
}

type CesiumCamera struct {
	Destination struct {
		Lon    float64 `json:"lon"`
		Lat    float64 `json:"lat"`
		Height float64 `json:"height"`
	} `json:"destination"`
	Orientation struct {
		Heading float64 `json:"heading"`
		Pitch   float64 `json:"pitch"`
		Roll    float64 `json:"roll"`
	} `json:"orientation"`
}

func (s *CesiumScene) Engine() string  { return "cesium" }
func (s *CesiumScene) Slots() []string { return slices.Clone(s.slots) }

// Imagery returns the imagery provider held by slot.
func (s *CesiumScene) Imagery(slot string) (CesiumProvider, bool) {
	for _, p := range s.ImageryLayers {
		if p.Slot == slot {
			return p, true
		}
	}
	return CesiumProvider{}, false
}

var ellipsoidTerrain = CesiumProvider{Type: "EllipsoidTerrainProvider"}

// TileMatrixLabels are the zero padded zoom levels "00" to "19".
func TileMatrixLabels() []string {
	labels := make([]string, cesiumMaxLevel+1)
	for i := range labels {
		labels[i] = fmt.Sprintf("%02d", i)
	}
	return labels
}

func (Cesium) Name() string { return "cesium" }

func (Cesium) NewScene(v View) Scene {
	s := &CesiumScene{
		Viewer: map[string]any{
			"baseLayerPicker":      false,
			"geocoder":             false,
			"homeButton":           false,
			"sceneModePicker":      true,
			"navigationHelpButton": false,
			"animation":            false,
			"timeline":             false,
			"fullscreenButton":     true,
			"vrButton":             false,
		},
		ImageryLayers: []CesiumProvider{},
		DataSources:   []CesiumDataSource{},
		Terrain:       ellipsoidTerrain,
	}
	h := v.Height
	if h <= 0 {
		h = cesiumDefaultHeight
	}
	s.Camera.Destination.Lon = v.Lon
	s.Camera.Destination.Lat = v.Lat
	s.Camera.Destination.Height = h
	s.Camera.Orientation.Pitch = -90
	return s
}

func (c Cesium) Configure(sc Scene, spec LayerSpec) error {
	s, ok := sc.(*CesiumScene)
	if !ok {
		return ErrSceneMismatch
	}
	if err := spec.validate(); err != nil {
		return err
	}
	switch spec.Kind {
	case KindRaster:
		c.remove(s, spec.Slot)
		s.ImageryLayers = append(s.ImageryLayers, rasterProvider(spec))
	case KindVector:
		c.remove(s, spec.Slot)
		s.ImageryLayers = append(s.ImageryLayers, mvtProvider(spec))
	case KindGeoJSON:
		c.remove(s, spec.Slot)
		s.DataSources = append(s.DataSources, CesiumDataSource{
			Slot: spec.Slot,
			Type: "GeoJsonDataSource",
			URL:  spec.URL,
			Options: map[string]any{
				"stroke":      "BLUE",
				"fill":        "BLUE",
				"fillAlpha":   0.5,
				"strokeWidth": 3,
			},
		})
	case KindTerrain:
		c.remove(s, spec.Slot)
		s.Terrain = CesiumProvider{
			Slot:    spec.Slot,
			Type:    "CesiumTerrainProvider",
			Options: map[string]any{"url": spec.URL, "requestVertexNormals": true},
		}
	default:
		return ErrUnsupportedKind
	}
	s.slots.add(spec.Slot)
	return nil
}

// remove only touches the given slot, other imagery stays.
func (Cesium) remove(s *CesiumScene, slot string) {
	s.ImageryLayers = slices.DeleteFunc(s.ImageryLayers, func(p CesiumProvider) bool { return p.Slot == slot })
	s.DataSources = slices.DeleteFunc(s.DataSources, func(d CesiumDataSource) bool { return d.Slot == slot })
	if s.Terrain.Slot == slot {
		s.Terrain = ellipsoidTerrain
	}
	s.slots.remove(slot)
}

func credit(spec LayerSpec) string {
	if spec.Attribution != "" {
		return spec.Attribution
	}
	return spec.Slot
}

func rasterProvider(spec LayerSpec) CesiumProvider {
	maxLevel := spec.MaxZoom
	if maxLevel <= 0 {
		maxLevel = cesiumMaxLevel
	}
	if spec.Layer != nil && spec.BaseURL != "" {
		l := spec.Layer
		return CesiumProvider{
			Slot: spec.Slot,
			Type: "WebMapTileServiceImageryProvider",
			Options: map[string]any{
				"url":              spec.BaseURL,
				"layer":            l.Identifier,
				"style":            l.StyleOrDefault(),
				"format":           l.Format,
				"tileMatrixSetID":  l.TileMatrixSet,
				"tileMatrixLabels": TileMatrixLabels(),
				"maximumLevel":     cesiumMaxLevel,
				"credit":           credit(spec),
			},
			Alpha: 1,
		}
	}
	return CesiumProvider{
		Slot: spec.Slot,
		Type: "UrlTemplateImageryProvider",
		Options: map[string]any{
			"url":          spec.URL,
			"maximumLevel": maxLevel,
			"credit":       credit(spec),
		},
		Alpha: 1,
	}
}

func mvtProvider(spec LayerSpec) CesiumProvider {
	maxLevel := spec.MaxZoom
	if maxLevel <= 0 {
		maxLevel = 21
	}
	opts := map[string]any{
		"urlTemplate":  spec.URL,
		"layerName":    spec.SourceLayer,
		"minimumLevel": spec.MinZoom,
		"maximumLevel": maxLevel,
		"credit":       credit(spec),
		"style": map[string]any{
			"fillStyle":   geostyle.MVT.Fill,
			"strokeStyle": geostyle.MVT.Stroke,
			"lineWidth":   geostyle.MVT.StrokeWidth,
		},
	}
	if len(spec.Bounds) == 4 {
		opts["rectangle"] = spec.Bounds
	}
	return CesiumProvider{Slot: spec.Slot, Type: "CesiumMVTImageryProvider", Options: opts, Alpha: 1}
}
