package tiles

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Template is an XYZ-style tile source. URL carries {z}, {x} and {y}
// placeholders and may reference API keys as ${NAME}.
type Template struct {
	Name        string            `json:"name"`
	URL         string            `json:"url"`
	Attribution string            `json:"attribution,omitempty"`
	MinZoom     int               `json:"minzoom"`
	MaxZoom     int               `json:"maxzoom"`
	TileSize    int               `json:"tileSize,omitempty"`
	Headers     map[string]string `json:"-"`
}

var Presets = map[string]Template{
	"osm": {
		Name:        "OpenStreetMap",
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		MinZoom:     0, MaxZoom: 19,
	},
	"esri-satellite": {
		Name:        "ESRI World Imagery",
		URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "© Esri, Maxar, Earthstar Geographics",
		MinZoom:     0, MaxZoom: 20,
	},
	"maptiler-streets": {
		Name:        "MapTiler Streets",
		URL:         "https://api.maptiler.com/maps/streets-v2/256/{z}/{x}/{y}.png?key=${MAPTILER_KEY}",
		Attribution: "© MapTiler, © OpenStreetMap contributors",
		MinZoom:     0, MaxZoom: 20,
	},
	"maptiler-satellite": {
		Name:        "MapTiler Satellite",
		URL:         "https://api.maptiler.com/tiles/satellite/{z}/{x}/{y}.jpg?key=${MAPTILER_KEY}",
		Attribution: "© MapTiler, © OpenStreetMap contributors, © NASA",
		MinZoom:     0, MaxZoom: 20,
	},
}

// WMTSTemplate wraps a WMTS GetTile template. Matrices are addressed by
// zoom level, up to 19.
func WMTSTemplate(name, tileURL, attribution string) Template {
	return Template{
		Name:        name,
		URL:         tileURL,
		Attribution: attribution,
		MinZoom:     0,
		MaxZoom:     19,
		TileSize:    TileSize,
	}
}

// GeoServerTMS is the vector tile template of a GeoServer GWC layer.
func GeoServerTMS(host, identifier string) string {
	host = strings.TrimSuffix(host, "/")
	return fmt.Sprintf("%s/geoserver/gwc/service/tms/1.0.0/%s@WebMercatorQuad@pbf/{z}/{x}/{y}.pbf?flipy=true",
		host, url.PathEscape(identifier))
}

// FillTemplate substitutes the tile coordinates into tmpl.
func FillTemplate(tmpl string, z, x, y int) string {
	u := strings.ReplaceAll(tmpl, "{z}", strconv.Itoa(z))
	u = strings.ReplaceAll(u, "{x}", strconv.Itoa(x))
	u = strings.ReplaceAll(u, "{y}", strconv.Itoa(y))
	return u
}

func (t Template) Fill(z, x, y int) (string, error) {
	u := FillTemplate(t.URL, z, x, y)
	_, err := url.Parse(u)
	return u, err
}

// ExpandKeys replaces ${NAME} references using lookup. Unknown names are
// left untouched.
func (t Template) ExpandKeys(lookup func(string) (string, bool)) Template {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	t.URL = os.Expand(t.URL, func(name string) string {
		if v, ok := lookup(name); ok {
			return v
		}
		return "${" + name + "}"
	})
	return t
}

// Unresolved reports whether the URL still references a ${NAME} key.
func (t Template) Unresolved() bool {
	return strings.Contains(t.URL, "${")
}

func (t Template) Size() int {
	if t.TileSize > 0 {
		return t.TileSize
	}
	return TileSize
}
