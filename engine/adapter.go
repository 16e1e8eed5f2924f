// Package engine turns WMTS layers and other data sources into the layer
// configuration each browser map engine expects.
package engine

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/s0ultr4d3r/mapcompare/wmts"
)

type Kind string

const (
	KindRaster  Kind = "raster"
	KindVector  Kind = "vector"
	KindGeoJSON Kind = "geojson"
	KindTerrain Kind = "terrain"
)

// WMTSSlot is the slot ConfigureTileLayer fills.
const WMTSSlot = "wmts"

const TefenuaAttribution = "© Tefenua - Polynésie française"

var (
	ErrUnsupportedKind = errors.New("unsupported layer kind")
	ErrUnknownEngine   = errors.New("unknown engine")
	ErrSceneMismatch   = errors.New("scene belongs to another engine")
)

// View is the initial camera.
type View struct {
	Lon  float64 `json:"lon" yaml:"lon"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Zoom float64 `json:"zoom" yaml:"zoom"`
	// Height in meters for engines with a free camera. 0 picks the engine default.
	Height float64 `json:"height,omitempty" yaml:"height"`
	Pitch  float64 `json:"pitch,omitempty" yaml:"pitch"`
}

var DefaultView = View{Lon: -149.43, Lat: -17.67, Zoom: 9}

// LayerSpec describes one layer to put into a slot.
type LayerSpec struct {
	Slot string
	Kind Kind
	// URL is a tile template, a TileJSON document or a data file.
	URL string
	// Layer and BaseURL are set for WMTS raster layers.
	Layer   *wmts.Layer
	BaseURL string

	Attribution  string
	TileSize     int
	MinZoom      int
	MaxZoom      int
	SourceLayer  string
	Exaggeration float64
	// Bounds is [west, south, east, north].
	Bounds []float64
}

func (s LayerSpec) tileSize() int {
	if s.TileSize > 0 {
		return s.TileSize
	}
	return 256
}

func (s LayerSpec) validate() error {
	if s.Slot == "" {
		return errors.New("layer spec without slot")
	}
	if s.URL == "" {
		return fmt.Errorf("slot %q: empty url", s.Slot)
	}
	return nil
}

// Scene is an engine document. Concrete types marshal to the JSON the
// browser side instantiates.
type Scene interface {
	Engine() string
	Slots() []string
}

type Adapter interface {
	Name() string
	NewScene(v View) Scene
	// Configure puts spec into its slot, replacing whatever the slot held.
	Configure(s Scene, spec LayerSpec) error
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Adapter{}
)

func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[a.Name()] = a
}

func Lookup(name string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return a, nil
}

func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(MapLibre{})
	Register(Cesium{})
	Register(Giro3D{})
}

// ConfigureTileLayer shows a WMTS layer in the engine's tile slot.
func ConfigureTileLayer(a Adapter, s Scene, baseURL string, layer wmts.Layer, tileURL string) error {
	return a.Configure(s, LayerSpec{
		Slot:        WMTSSlot,
		Kind:        KindRaster,
		URL:         tileURL,
		Layer:       &layer,
		BaseURL:     baseURL,
		Attribution: TefenuaAttribution,
		TileSize:    256,
		MaxZoom:     19,
	})
}

// Build creates a scene and configures specs in order.
func Build(a Adapter, v View, specs ...LayerSpec) (Scene, error) {
	s := a.NewScene(v)
	for _, spec := range specs {
		if err := a.Configure(s, spec); err != nil {
			return nil, fmt.Errorf("%s: configure %s: %w", a.Name(), spec.Slot, err)
		}
	}
	return s, nil
}

type slotList []string

func (l *slotList) add(slot string) {
	if !slices.Contains(*l, slot) {
		*l = append(*l, slot)
	}
}

func (l *slotList) remove(slot string) {
	*l = slices.DeleteFunc(*l, func(s string) bool { return s == slot })
}
