package wmts

import (
	"net/url"
	"strings"
)

// TileURL builds the KVP GetTile template for layer. The {z}, {y} and {x}
// placeholders are left for the rendering engine; values are not escaped.
func TileURL(baseURL string, layer Layer) string {
	return tileURL(baseURL, layer.Identifier, layer.StyleOrDefault(), layer.Format, layer.TileMatrixSet)
}

// EscapedTileURL is TileURL with the layer values query-escaped, for
// identifiers holding reserved characters such as '&' or '?'.
func EscapedTileURL(baseURL string, layer Layer) string {
	return tileURL(baseURL,
		url.QueryEscape(layer.Identifier),
		url.QueryEscape(layer.StyleOrDefault()),
		url.QueryEscape(layer.Format),
		url.QueryEscape(layer.TileMatrixSet))
}

func tileURL(baseURL, identifier, style, format, tileMatrixSet string) string {
	var sb strings.Builder
	sb.WriteString(withQuery(baseURL))
	sb.WriteString("service=WMTS&request=GetTile&version=1.0.0")
	sb.WriteString("&layer=" + identifier)
	sb.WriteString("&style=" + style)
	sb.WriteString("&format=" + format)
	sb.WriteString("&tileMatrixSet=" + tileMatrixSet)
	sb.WriteString("&tileMatrix={z}&tileRow={y}&tileCol={x}")
	return sb.String()
}

// CapabilitiesURL is the GetCapabilities request for baseURL.
func CapabilitiesURL(baseURL string) string {
	return withQuery(baseURL) + "request=GetCapabilities"
}

func withQuery(baseURL string) string {
	switch {
	case strings.HasSuffix(baseURL, "?"), strings.HasSuffix(baseURL, "&"):
		return baseURL
	case strings.Contains(baseURL, "?"):
		return baseURL + "&"
	default:
		return baseURL + "?"
	}
}
