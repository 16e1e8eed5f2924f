package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const capabilitiesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Capabilities xmlns="http://www.opengis.net/wmts/1.0" xmlns:ows="http://www.opengis.net/ows/1.1" version="1.0.0">
  <ows:ServiceIdentification><ows:Title>Te Fenua WMTS</ows:Title></ows:ServiceIdentification>
  <Contents>
    <Layer>
      <ows:Title>Fond de carte</ows:Title>
      <ows:Identifier>TEFENUA:FOND</ows:Identifier>
      <Format>image/png</Format>
      <TileMatrixSetLink><TileMatrixSet>EPSG:900913</TileMatrixSet></TileMatrixSetLink>
    </Layer>
    <Layer>
      <ows:Title>Orthophotos</ows:Title>
      <ows:Identifier>TEFENUA:ORTHO</ows:Identifier>
      <Format>image/jpeg</Format>
    </Layer>
  </Contents>
</Capabilities>`

func wmtsServer(t *testing.T) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			img.Set(x, y, color.RGBA{0x0a, 0x3b, 0x59, 0xff})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	tile := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("request") {
		case "GetCapabilities":
			_, _ = w.Write([]byte(capabilitiesXML))
		case "GetTile":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(tile)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--log-level", "ERROR"))
	err := cmd.Execute()
	return out.String(), err
}

func TestLayersCmd(t *testing.T) {
	srv := wmtsServer(t)
	out, err := run(t, "layers", "--wmts-url", srv.URL, "-f", "csv")
	require.NoError(t, err)
	require.Contains(t, out, "*,1,TEFENUA:FOND,Fond de carte,image/png,EPSG:900913,default")
	require.Contains(t, out, ",2,TEFENUA:ORTHO,Orthophotos,image/jpeg,EPSG:900913,default")

	out, err = run(t, "layers", "--wmts-url", srv.URL, "--layer", "TEFENUA:ORTHO", "-f", "json")
	require.NoError(t, err)
	require.Equal(t, "TEFENUA:ORTHO", gjson.Get(out, "current").String())
	require.Equal(t, int64(2), gjson.Get(out, "layers.#").Int())

	_, err = run(t, "layers", "--wmts-url", srv.URL, "-f", "xml")
	require.ErrorContains(t, err, "unknown format")
}

func TestFlagsOverrideEnv(t *testing.T) {
	srv := wmtsServer(t)
	t.Setenv("MAPCOMPARE_WMTS_URL", "http://127.0.0.1:1/unreachable")
	out, err := run(t, "tileurl", "--wmts-url", srv.URL, "--at", "9/43/281")
	require.NoError(t, err)
	require.Equal(t,
		srv.URL+"?service=WMTS&request=GetTile&version=1.0.0&layer=TEFENUA:FOND&style=default&format=image/png&tileMatrixSet=EPSG:900913&tileMatrix=9&tileRow=281&tileCol=43\n",
		out)

	_, err = run(t, "tileurl")
	require.Error(t, err)
}

func TestTileURLCmd(t *testing.T) {
	srv := wmtsServer(t)
	out, err := run(t, "tileurl", "--wmts-url", srv.URL, "--escape", "TEFENUA:ORTHO")
	require.NoError(t, err)
	require.Contains(t, out, "layer=TEFENUA%3AORTHO&style=default&format=image%2Fjpeg")
	require.Contains(t, out, "tileMatrix={z}&tileRow={y}&tileCol={x}")

	_, err = run(t, "tileurl", "--wmts-url", srv.URL, "NOPE")
	require.ErrorContains(t, err, "unknown layer")
}

func TestSceneCmd(t *testing.T) {
	srv := wmtsServer(t)
	out, err := run(t, "scene", "--wmts-url", srv.URL, "--with", "geojson,mvt", "maplibre")
	require.NoError(t, err)
	require.Equal(t, int64(8), gjson.Get(out, "version").Int())
	require.True(t, gjson.Get(out, "sources.wmts-source").Exists())
	require.True(t, gjson.Get(out, "sources.geojson-source").Exists())
	require.Equal(t, "pga_zone_urba_v", gjson.Get(out, `layers.#(id=="mvt-fill").source-layer`).String())

	_, err = run(t, "scene", "--wmts-url", srv.URL, "leaflet")
	require.ErrorContains(t, err, "unknown engine")
}

func TestPreviewCmd(t *testing.T) {
	srv := wmtsServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "preview.png")
	_, err := run(t, "preview", "--wmts-url", srv.URL,
		"--cache-dir", filepath.Join(dir, "cache"),
		"--around", "0.05", "--size", "256x256", "--exact", "-o", path)
	require.NoError(t, err)

	fd, err := os.Open(path)
	require.NoError(t, err)
	defer fd.Close()
	img, err := png.Decode(fd)
	require.NoError(t, err)
	require.Equal(t, 256, img.Bounds().Dx())
	require.Equal(t, 256, img.Bounds().Dy())
	r, g, b, _ := img.At(128, 128).RGBA()
	require.Equal(t, [3]uint32{0x0a, 0x3b, 0x59}, [3]uint32{r >> 8, g >> 8, b >> 8})

	_, err = os.Stat(path + ".part")
	require.True(t, os.IsNotExist(err))
}

func TestParsers(t *testing.T) {
	z, x, y, err := parseZXY("9/43/281")
	require.NoError(t, err)
	require.Equal(t, [3]int{9, 43, 281}, [3]int{z, x, y})
	_, _, _, err = parseZXY("9/43")
	require.Error(t, err)

	w, h, err := parseSize("800x600")
	require.NoError(t, err)
	require.Equal(t, [2]int{800, 600}, [2]int{w, h})
	w, h, err = parseSize("300")
	require.NoError(t, err)
	require.Equal(t, [2]int{300, 300}, [2]int{w, h})
	_, _, err = parseSize("10x10")
	require.Error(t, err)

	bb, err := parseBBox("-149.7, -17.8, -149.5, -17.6")
	require.NoError(t, err)
	require.Equal(t, -149.7, bb.MinLon)
	_, err = parseBBox("1,1,0,0")
	require.Error(t, err)
}
