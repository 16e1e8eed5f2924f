package wmts

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

// Parser turns a GetCapabilities document into layers.
//
// Element names are matched on their local part, so `ows:Identifier` and a
// default-namespace `Identifier` are treated alike.
type Parser struct {
	// PreferredTileMatrixSet wins over any other link of a layer.
	PreferredTileMatrixSet string
	// DefaultTileMatrixSet is used for layers without any link.
	DefaultTileMatrixSet string
}

var DefaultParser = Parser{
	PreferredTileMatrixSet: PreferredTileMatrixSet,
	DefaultTileMatrixSet:   PreferredTileMatrixSet,
}

// ParseCapabilities returns the layers of data in document order.
func ParseCapabilities(data []byte) ([]Layer, error) {
	caps, err := DefaultParser.Parse(data)
	if err != nil {
		return nil, err
	}
	return caps.Layers, nil
}

type layerElement struct {
	Titles      []string            `xml:"Title"`
	Identifiers []string            `xml:"Identifier"`
	Formats     []string            `xml:"Format"`
	Styles      []styleElement      `xml:"Style"`
	Links       []linkElement       `xml:"TileMatrixSetLink"`
	BoundingBox *boundingBoxElement `xml:"WGS84BoundingBox"`
	Layers      []layerElement      `xml:"Layer"`
}

type styleElement struct {
	Identifiers []string `xml:"Identifier"`
}

type linkElement struct {
	TileMatrixSets []string `xml:"TileMatrixSet"`
}

type boundingBoxElement struct {
	LowerCorner string `xml:"LowerCorner"`
	UpperCorner string `xml:"UpperCorner"`
}

type tileMatrixSetElement struct {
	Identifiers  []string `xml:"Identifier"`
	SupportedCRS []string `xml:"SupportedCRS"`
	Matrices     []struct {
		Identifiers []string `xml:"Identifier"`
	} `xml:"TileMatrix"`
}

type serviceElement struct {
	Titles []string `xml:"Title"`
}

// Parse reads the whole document. Any syntax error, a missing root, a second
// root or text outside the root makes it fail with *ParseError.
func (p Parser) Parse(data []byte) (*Capabilities, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charset.NewReaderLabel
	caps := &Capabilities{Layers: []Layer{}}

	depth, roots := 0, 0
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					return nil, &ParseError{Err: errors.New("more than one root element")}
				}
			}
			// the decoded elements are consumed up to their end tag,
			// so depth is left untouched for them
			switch t.Name.Local {
			case "Layer":
				var el layerElement
				if err := d.DecodeElement(&el, &t); err != nil {
					return nil, &ParseError{Err: err}
				}
				caps.Layers = p.appendLayers(caps.Layers, el)
				continue
			case "TileMatrixSet":
				var el tileMatrixSetElement
				if err := d.DecodeElement(&el, &t); err != nil {
					return nil, &ParseError{Err: err}
				}
				if tms := tileMatrixSet(el); tms.Identifier != "" {
					caps.TileMatrixSets = append(caps.TileMatrixSets, tms)
				}
				continue
			case "ServiceIdentification":
				var el serviceElement
				if err := d.DecodeElement(&el, &t); err != nil {
					return nil, &ParseError{Err: err}
				}
				caps.Title = first(el.Titles)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, &ParseError{Err: errors.New("text outside the root element")}
			}
		}
	}
	if roots == 0 {
		return nil, &ParseError{Err: errors.New("no root element")}
	}
	return caps, nil
}

// appendLayers adds el and then its nested layers, in document order.
func (p Parser) appendLayers(dst []Layer, el layerElement) []Layer {
	dst = append(dst, p.layer(el))
	for _, child := range el.Layers {
		dst = p.appendLayers(dst, child)
	}
	return dst
}

func (p Parser) layer(el layerElement) Layer {
	l := Layer{
		Title:         first(el.Titles),
		Identifier:    first(el.Identifiers),
		Format:        first(el.Formats),
		Style:         DefaultStyle,
		TileMatrixSet: p.resolveTileMatrixSet(el.Links),
	}
	if len(el.Styles) > 0 {
		if s := first(el.Styles[0].Identifiers); s != "" {
			l.Style = s
		}
	}
	if el.BoundingBox != nil {
		l.Bounds = parseBounds(el.BoundingBox.LowerCorner, el.BoundingBox.UpperCorner)
	}
	return l
}

func (p Parser) resolveTileMatrixSet(links []linkElement) string {
	if len(links) == 0 {
		return p.DefaultTileMatrixSet
	}
	for _, link := range links {
		if first(link.TileMatrixSets) == p.PreferredTileMatrixSet {
			return p.PreferredTileMatrixSet
		}
	}
	return first(links[0].TileMatrixSets)
}

func tileMatrixSet(el tileMatrixSetElement) TileMatrixSet {
	tms := TileMatrixSet{
		Identifier:   first(el.Identifiers),
		SupportedCRS: first(el.SupportedCRS),
	}
	for _, m := range el.Matrices {
		if id := first(m.Identifiers); id != "" {
			tms.Matrices = append(tms.Matrices, id)
		}
	}
	return tms
}

// parseBounds reads two "lon lat" corners; nil when either is malformed.
func parseBounds(lower, upper string) []float64 {
	lo := strings.Fields(lower)
	hi := strings.Fields(upper)
	if len(lo) != 2 || len(hi) != 2 {
		return nil
	}
	out := make([]float64, 0, 4)
	for _, s := range []string{lo[0], lo[1], hi[0], hi[1]} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
