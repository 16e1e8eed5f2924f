package wmts

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func loadCapabilities(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/capabilities.xml")
	require.NoError(t, err)
	return data
}

func TestParseCapabilities(t *testing.T) {
	layers, err := ParseCapabilities(loadCapabilities(t))
	require.NoError(t, err)
	require.Equal(t, []Layer{
		{
			Identifier:    "TEFENUA:ORTHO_2019",
			Title:         "Orthophotos 2019",
			Format:        "image/jpeg",
			TileMatrixSet: "EPSG:900913",
			Style:         "ortho",
			Bounds:        []float64{-154.7, -27.9, -134.4, -7.8},
		},
		{
			Identifier:    "TEFENUA:FOND",
			Title:         "Fond de carte",
			Format:        "image/png",
			TileMatrixSet: "EPSG:3297",
			Style:         "default",
		},
		{
			Identifier:    "TEFENUA:CADASTRE",
			Title:         "Cadastre",
			Format:        "image/png",
			TileMatrixSet: "EPSG:900913",
			Style:         "default",
		},
	}, layers)
}

func TestParseDeterministic(t *testing.T) {
	data := loadCapabilities(t)
	first, err := DefaultParser.Parse(data)
	require.NoError(t, err)
	second, err := DefaultParser.Parse(data)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestParseDocument(t *testing.T) {
	caps, err := DefaultParser.Parse(loadCapabilities(t))
	require.NoError(t, err)
	require.Equal(t, "Te Fenua WMTS", caps.Title)
	require.Len(t, caps.TileMatrixSets, 1)

	tms, ok := caps.TileMatrixSet("EPSG:900913")
	require.True(t, ok)
	require.Equal(t, "urn:ogc:def:crs:EPSG::900913", tms.SupportedCRS)
	require.Equal(t, []string{"EPSG:900913:0", "EPSG:900913:1"}, tms.Matrices)

	_, ok = caps.TileMatrixSet("EPSG:4326")
	require.False(t, ok)
}

func TestParseLayerRules(t *testing.T) {
	tests := []struct {
		name   string
		xml    string
		expect []Layer
	}{
		{
			name:   "no_layers",
			xml:    `<Capabilities><Contents/></Capabilities>`,
			expect: []Layer{},
		},
		{
			name: "empty_layer",
			xml:  `<Capabilities><Contents><Layer/></Contents></Capabilities>`,
			expect: []Layer{
				{Style: "default", TileMatrixSet: "EPSG:900913"},
			},
		},
		{
			name: "preferred_wins_over_first_link",
			xml: `<Capabilities><Contents><Layer>
				<Identifier>a</Identifier>
				<TileMatrixSetLink><TileMatrixSet>EPSG:2154</TileMatrixSet></TileMatrixSetLink>
				<TileMatrixSetLink><TileMatrixSet>EPSG:3857</TileMatrixSet></TileMatrixSetLink>
				<TileMatrixSetLink><TileMatrixSet>EPSG:900913</TileMatrixSet></TileMatrixSetLink>
			</Layer></Contents></Capabilities>`,
			expect: []Layer{
				{Identifier: "a", Style: "default", TileMatrixSet: "EPSG:900913"},
			},
		},
		{
			name: "first_link_without_preferred",
			xml: `<Capabilities><Contents><Layer>
				<Identifier>a</Identifier>
				<TileMatrixSetLink><TileMatrixSet>GoogleMapsCompatible</TileMatrixSet></TileMatrixSetLink>
				<TileMatrixSetLink><TileMatrixSet>EPSG:4326</TileMatrixSet></TileMatrixSetLink>
			</Layer></Contents></Capabilities>`,
			expect: []Layer{
				{Identifier: "a", Style: "default", TileMatrixSet: "GoogleMapsCompatible"},
			},
		},
		{
			name: "first_style_only",
			xml: `<Capabilities><Contents><Layer>
				<Identifier>a</Identifier>
				<Style><Identifier>s1</Identifier></Style>
				<Style><Identifier>s2</Identifier></Style>
			</Layer></Contents></Capabilities>`,
			expect: []Layer{
				{Identifier: "a", Style: "s1", TileMatrixSet: "EPSG:900913"},
			},
		},
		{
			name: "duplicates_are_kept",
			xml: `<Capabilities><Contents>
				<Layer><Identifier>dup</Identifier><Title>one</Title></Layer>
				<Layer><Identifier>dup</Identifier><Title>two</Title></Layer>
			</Contents></Capabilities>`,
			expect: []Layer{
				{Identifier: "dup", Title: "one", Style: "default", TileMatrixSet: "EPSG:900913"},
				{Identifier: "dup", Title: "two", Style: "default", TileMatrixSet: "EPSG:900913"},
			},
		},
		{
			name: "nested_layers",
			xml: `<Capabilities><Contents>
				<Layer><Identifier>outer</Identifier>
					<Layer><Identifier>inner</Identifier>
						<Style><Identifier>deep</Identifier></Style>
					</Layer>
					<Format>image/png</Format>
				</Layer>
				<Layer><Identifier>last</Identifier></Layer>
			</Contents></Capabilities>`,
			expect: []Layer{
				{Identifier: "outer", Format: "image/png", Style: "default", TileMatrixSet: "EPSG:900913"},
				{Identifier: "inner", Style: "deep", TileMatrixSet: "EPSG:900913"},
				{Identifier: "last", Style: "default", TileMatrixSet: "EPSG:900913"},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			layers, err := ParseCapabilities([]byte(tc.xml))
			require.NoError(t, err)
			require.Equal(t, tc.expect, layers)
		})
	}
}

func TestParseLatin1(t *testing.T) {
	doc := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<Capabilities><ServiceIdentification><Title>Papeete \xe9t\xe9</Title></ServiceIdentification>" +
		"<Contents><Layer><Identifier>a</Identifier><Title>Fond \xe0 jour</Title></Layer></Contents></Capabilities>")
	caps, err := DefaultParser.Parse(doc)
	require.NoError(t, err)
	require.Equal(t, "Papeete été", caps.Title)
	require.Len(t, caps.Layers, 1)
	require.Equal(t, "Fond à jour", caps.Layers[0].Title)
}

func TestParseCustomPreference(t *testing.T) {
	p := Parser{PreferredTileMatrixSet: "EPSG:3857", DefaultTileMatrixSet: "WebMercatorQuad"}
	caps, err := p.Parse([]byte(`<Capabilities><Contents>
		<Layer><Identifier>a</Identifier>
			<TileMatrixSetLink><TileMatrixSet>EPSG:4326</TileMatrixSet></TileMatrixSetLink>
			<TileMatrixSetLink><TileMatrixSet>EPSG:3857</TileMatrixSet></TileMatrixSetLink>
		</Layer>
		<Layer><Identifier>b</Identifier></Layer>
	</Contents></Capabilities>`))
	require.NoError(t, err)
	require.Equal(t, "EPSG:3857", caps.Layers[0].TileMatrixSet)
	require.Equal(t, "WebMercatorQuad", caps.Layers[1].TileMatrixSet)
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{name: "empty", xml: ""},
		{name: "whitespace", xml: "   \n"},
		{name: "not_xml", xml: "Service unavailable"},
		{name: "unclosed", xml: `<Capabilities><Contents><Layer>`},
		{name: "mismatched", xml: `<Capabilities><Contents></Layer></Capabilities>`},
		{name: "two_roots", xml: `<Capabilities/><Capabilities/>`},
		{name: "trailing_text", xml: `<Capabilities/>garbage`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			layers, err := ParseCapabilities([]byte(tc.xml))
			require.Error(t, err)
			require.Nil(t, layers)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "got %T", err)
		})
	}
}
