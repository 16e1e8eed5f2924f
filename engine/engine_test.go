package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/s0ultr4d3r/mapcompare/wmts"
)

const baseURL = "https://www.tefenua.gov.pf/api/wmts"

var ortho = wmts.Layer{
	Identifier:    "ORTHO_2019",
	Title:         "Orthophoto 2019",
	Format:        "image/jpeg",
	TileMatrixSet: "EPSG:900913",
	Style:         "default",
}

var fond = wmts.Layer{
	Identifier:    "TEFENUA:FOND",
	Format:        "image/png",
	TileMatrixSet: "EPSG:900913",
	Style:         "default",
}

func marshal(t *testing.T, s Scene) string {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return string(b)
}

func TestRegistry(t *testing.T) {
	require.Equal(t, []string{"cesium", "giro3d", "maplibre"}, Names())
	for _, name := range Names() {
		a, err := Lookup(name)
		require.NoError(t, err)
		require.Equal(t, name, a.Name())
		require.Equal(t, name, a.NewScene(DefaultView).Engine())
	}
	_, err := Lookup("openlayers")
	require.ErrorIs(t, err, ErrUnknownEngine)
}

func TestConfigureTileLayerIdempotent(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			a, err := Lookup(name)
			require.NoError(t, err)
			s := a.NewScene(DefaultView)

			require.NoError(t, ConfigureTileLayer(a, s, baseURL, ortho, wmts.TileURL(baseURL, ortho)))
			require.NoError(t, ConfigureTileLayer(a, s, baseURL, fond, wmts.TileURL(baseURL, fond)))
			require.Equal(t, []string{WMTSSlot}, s.Slots())

			doc := marshal(t, s)
			require.NotContains(t, doc, "ORTHO_2019")
			require.Contains(t, doc, "TEFENUA:FOND")
		})
	}
}

func TestMapLibreRaster(t *testing.T) {
	a := MapLibre{}
	s := a.NewScene(DefaultView)
	tileURL := wmts.TileURL(baseURL, ortho)
	require.NoError(t, ConfigureTileLayer(a, s, baseURL, ortho, tileURL))
	require.NoError(t, ConfigureTileLayer(a, s, baseURL, ortho, tileURL))

	doc := marshal(t, s)
	require.Equal(t, int64(8), gjson.Get(doc, "version").Int())
	require.Equal(t, -149.43, gjson.Get(doc, "center.0").Float())
	require.Equal(t, 9.0, gjson.Get(doc, "zoom").Float())
	require.Len(t, gjson.Get(doc, "sources").Map(), 1)
	require.Equal(t, "raster", gjson.Get(doc, "sources.wmts-source.type").String())
	require.Equal(t, tileURL, gjson.Get(doc, "sources.wmts-source.tiles.0").String())
	require.Equal(t, int64(256), gjson.Get(doc, "sources.wmts-source.tileSize").Int())
	require.Equal(t, TefenuaAttribution, gjson.Get(doc, "sources.wmts-source.attribution").String())
	require.Equal(t, int64(1), gjson.Get(doc, "layers.#").Int())
	require.Equal(t, "wmts-layer", gjson.Get(doc, "layers.0.id").String())
	require.Equal(t, "visible", gjson.Get(doc, "layers.0.layout.visibility").String())
}

func TestMapLibreSlots(t *testing.T) {
	a := MapLibre{}
	s, err := Build(a, DefaultView,
		LayerSpec{Slot: "base", Kind: KindRaster, URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png"},
		LayerSpec{Slot: "terrain", Kind: KindTerrain, URL: "http://localhost:3000/assets/dem/tiles.json"},
		LayerSpec{Slot: "pga", Kind: KindVector, URL: "https://geoserver.example/{z}/{x}/{y}.pbf", SourceLayer: "pga_zone_urba_v", MaxZoom: 21},
		LayerSpec{Slot: "geojson", Kind: KindGeoJSON, URL: "http://localhost:3000/assets/sample.geojson"},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"base", "terrain", "pga", "geojson"}, s.Slots())

	doc := marshal(t, s)
	require.Equal(t, "raster-dem", gjson.Get(doc, "sources.terrain-source.type").String())
	require.Equal(t, "http://localhost:3000/assets/dem/tiles.json", gjson.Get(doc, "sources.terrain-source.url").String())
	require.Equal(t, "terrain-source", gjson.Get(doc, "terrain.source").String())
	require.Equal(t, 1.0, gjson.Get(doc, "terrain.exaggeration").Float())
	require.Equal(t, "pga_zone_urba_v", gjson.Get(doc, `layers.#(id=="pga-fill").source-layer`).String())
	require.Equal(t, int64(21), gjson.Get(doc, "sources.pga-source.maxzoom").Int())
	require.Equal(t, "geojson", gjson.Get(doc, "sources.geojson-source.type").String())
	require.Equal(t, 6.0, gjson.Get(doc, `layers.#(id=="geojson-circle").paint.circle-radius`).Float())
	require.Equal(t, "#ff7800", gjson.Get(doc, `layers.#(id=="geojson-circle").paint.circle-color`).String())
	require.True(t, gjson.Get(doc, `layers.#(id=="geojson-dashed").paint.line-dasharray`).IsArray())

	a.Remove(s, "terrain")
	doc = marshal(t, s)
	require.False(t, gjson.Get(doc, "terrain").Exists())
	require.False(t, gjson.Get(doc, "sources.terrain-source").Exists())
	require.False(t, gjson.Get(doc, `layers.#(id=="terrain-hillshade")`).Exists())
	require.Equal(t, []string{"base", "pga", "geojson"}, s.Slots())
}

func TestCesium(t *testing.T) {
	a := Cesium{}
	s := a.NewScene(DefaultView)
	require.NoError(t, a.Configure(s, LayerSpec{Slot: "osm", Kind: KindRaster, URL: "https://tile.openstreetmap.org/{z}/{x}/{y}.png", Attribution: "© OpenStreetMap"}))
	require.NoError(t, ConfigureTileLayer(a, s, baseURL, ortho, wmts.TileURL(baseURL, ortho)))
	require.NoError(t, ConfigureTileLayer(a, s, baseURL, fond, wmts.TileURL(baseURL, fond)))

	cs := s.(*CesiumScene)
	require.Len(t, cs.ImageryLayers, 2)
	_, ok := cs.Imagery("osm")
	require.True(t, ok)

	doc := marshal(t, s)
	wmtsLayer := gjson.Get(doc, `imageryLayers.#(slot=="wmts")`)
	require.Equal(t, "WebMapTileServiceImageryProvider", wmtsLayer.Get("type").String())
	require.Equal(t, baseURL, wmtsLayer.Get("options.url").String())
	require.Equal(t, "TEFENUA:FOND", wmtsLayer.Get("options.layer").String())
	require.Equal(t, "EPSG:900913", wmtsLayer.Get("options.tileMatrixSetID").String())
	require.Equal(t, int64(20), wmtsLayer.Get("options.tileMatrixLabels.#").Int())
	require.Equal(t, "00", wmtsLayer.Get("options.tileMatrixLabels.0").String())
	require.Equal(t, "19", wmtsLayer.Get("options.tileMatrixLabels.19").String())
	require.Equal(t, int64(19), wmtsLayer.Get("options.maximumLevel").Int())
	require.Equal(t, TefenuaAttribution, wmtsLayer.Get("options.credit").String())

	require.Equal(t, 265000.0, gjson.Get(doc, "camera.destination.height").Float())
	require.Equal(t, -90.0, gjson.Get(doc, "camera.orientation.pitch").Float())
	require.Equal(t, "EllipsoidTerrainProvider", gjson.Get(doc, "terrainProvider.type").String())
	require.True(t, gjson.Get(doc, "viewer.sceneModePicker").Bool())
}

func TestCesiumDataAndTerrain(t *testing.T) {
	a := Cesium{}
	s, err := Build(a, View{Lon: -149.43, Lat: -17.67, Height: 500000},
		LayerSpec{Slot: "geojson", Kind: KindGeoJSON, URL: "http://localhost:3000/assets/sample.geojson"},
		LayerSpec{Slot: "terrain", Kind: KindTerrain, URL: "http://localhost:3000/assets/dem"},
		LayerSpec{Slot: "pga", Kind: KindVector, URL: "https://geoserver.example/{z}/{x}/{y}.pbf", SourceLayer: "pga_zone_urba_v", Bounds: []float64{-149.7, -17.8, -149.5, -17.6}},
	)
	require.NoError(t, err)

	doc := marshal(t, s)
	require.Equal(t, 500000.0, gjson.Get(doc, "camera.destination.height").Float())
	require.Equal(t, "GeoJsonDataSource", gjson.Get(doc, "dataSources.0.type").String())
	require.Equal(t, int64(3), gjson.Get(doc, "dataSources.0.options.strokeWidth").Int())
	require.Equal(t, "CesiumTerrainProvider", gjson.Get(doc, "terrainProvider.type").String())
	require.Equal(t, "CesiumMVTImageryProvider", gjson.Get(doc, "imageryLayers.0.type").String())
	require.Equal(t, int64(21), gjson.Get(doc, "imageryLayers.0.options.maximumLevel").Int())
	require.Equal(t, -149.7, gjson.Get(doc, "imageryLayers.0.options.rectangle.0").Float())

	require.NoError(t, a.Configure(s, LayerSpec{Slot: "terrain", Kind: KindRaster, URL: "https://x/{z}/{x}/{y}.png"}))
	doc = marshal(t, s)
	require.Equal(t, "EllipsoidTerrainProvider", gjson.Get(doc, "terrainProvider.type").String())
}

func TestGiro3D(t *testing.T) {
	a := Giro3D{}
	s := a.NewScene(DefaultView)
	require.NoError(t, ConfigureTileLayer(a, s, baseURL, fond, wmts.TileURL(baseURL, fond)))
	require.NoError(t, a.Configure(s, LayerSpec{Slot: "dem", Kind: KindTerrain, URL: "http://localhost:3000/assets/dem/{z}/{x}/{y}.png"}))

	doc := marshal(t, s)
	require.Equal(t, "EPSG:3857", gjson.Get(doc, "instance.crs").String())
	require.Equal(t, WebMercatorExtent, gjson.Get(doc, "extent.1").Float())
	require.Equal(t, "WmtsSource", gjson.Get(doc, "layers.0.source.type").String())
	require.Equal(t, baseURL+"?request=GetCapabilities", gjson.Get(doc, "layers.0.source.options.capabilities").String())
	require.Equal(t, "TEFENUA:FOND", gjson.Get(doc, "layers.0.source.options.layer").String())
	require.Equal(t, "ElevationLayer", gjson.Get(doc, "layers.1.type").String())

	cam := s.(*Giro3DScene).Camera
	require.InDelta(t, 40000000/512.0, cam.Position[2], 1e-6)
	require.InDelta(t, -16634471.5, cam.Position[0], 1)
	require.InDelta(t, -1998958.5, cam.Position[1], 1)
	require.Equal(t, 0.0, cam.Target[2])
	require.Equal(t, cam.Position[0], cam.Target[0])
}

func TestConfigureErrors(t *testing.T) {
	for _, name := range Names() {
		a, err := Lookup(name)
		require.NoError(t, err)
		s := a.NewScene(DefaultView)
		require.ErrorIs(t, a.Configure(s, LayerSpec{Slot: "x", Kind: "pointcloud", URL: "http://x"}), ErrUnsupportedKind)
		require.Error(t, a.Configure(s, LayerSpec{Slot: "x", Kind: KindRaster}))
		require.Empty(t, s.Slots())
	}
	require.ErrorIs(t, MapLibre{}.Configure(Cesium{}.NewScene(DefaultView), LayerSpec{Slot: "x", Kind: KindRaster, URL: "u"}), ErrSceneMismatch)
}
