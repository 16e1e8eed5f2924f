package wmts

const (
	// DefaultStyle is used when a layer publishes no style identifier.
	DefaultStyle = "default"
	// PreferredTileMatrixSet is picked among a layer's links when present,
	// and used as the fallback when a layer has no links at all.
	PreferredTileMatrixSet = "EPSG:900913"
)

// Layer is one queryable imagery layer of a WMTS service.
type Layer struct {
	Identifier    string    `json:"identifier"`
	Title         string    `json:"title"`
	Format        string    `json:"format"`
	TileMatrixSet string    `json:"tileMatrixSet"`
	Style         string    `json:"style"`
	Bounds        []float64 `json:"bounds,omitempty"` // west, south, east, north
}

// Usable reports whether the layer can be requested from the server.
func (l Layer) Usable() bool {
	return l.Identifier != ""
}

func (l Layer) StyleOrDefault() string {
	if l.Style == "" {
		return DefaultStyle
	}
	return l.Style
}

// DisplayName is the title, or the identifier when the title is empty.
func (l Layer) DisplayName() string {
	if l.Title != "" {
		return l.Title
	}
	return l.Identifier
}

type TileMatrixSet struct {
	Identifier   string   `json:"identifier"`
	SupportedCRS string   `json:"supportedCRS,omitempty"`
	Matrices     []string `json:"matrices,omitempty"`
}

// Capabilities is the subset of a GetCapabilities document this package reads.
type Capabilities struct {
	Title          string          `json:"title,omitempty"`
	Layers         []Layer         `json:"layers"`
	TileMatrixSets []TileMatrixSet `json:"tileMatrixSets,omitempty"`
}

func (c *Capabilities) TileMatrixSet(id string) (TileMatrixSet, bool) {
	for _, tms := range c.TileMatrixSets {
		if tms.Identifier == id {
			return tms, true
		}
	}
	return TileMatrixSet{}, false
}

// FindLayer returns the first layer with the given identifier.
func FindLayer(layers []Layer, id string) (Layer, bool) {
	for _, l := range layers {
		if l.Identifier == id {
			return l, true
		}
	}
	return Layer{}, false
}
