package geostyle

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type Class string

const (
	ClassPolygon Class = "polygon"
	ClassLine    Class = "line"
	ClassPoint   Class = "point"
	ClassOther   Class = "other"
)

const (
	PolygonFill   = "rgba(100, 149, 237, 0.4)"
	DefaultStroke = "#0080ff"
	PointFill     = "#ff7800"
	PointStroke   = "#ffffff"
	OtherStroke   = "#3366cc"
	LabelFont     = "14px Calibri,sans-serif"
)

// Style is the resolved look of one feature.
type Style struct {
	Class       Class     `json:"class"`
	Fill        string    `json:"fill,omitempty"`
	Stroke      string    `json:"stroke"`
	StrokeWidth float64   `json:"strokeWidth"`
	Dash        []float64 `json:"dash,omitempty"`
	Radius      float64   `json:"radius,omitempty"`
	Label       string    `json:"label,omitempty"`
	LabelFont   string    `json:"labelFont,omitempty"`
	LabelOffset float64   `json:"labelOffset,omitempty"`
}

// ClassOf groups single and multi geometries together.
func ClassOf(g orb.Geometry) Class {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon, orb.Ring:
		return ClassPolygon
	case orb.LineString, orb.MultiLineString:
		return ClassLine
	case orb.Point, orb.MultiPoint:
		return ClassPoint
	default:
		return ClassOther
	}
}

// For resolves the style of f from its geometry and the "color", "dashed",
// "name" and "title" properties.
func For(f *geojson.Feature) Style {
	if f == nil {
		return Style{Class: ClassOther, Stroke: OtherStroke, StrokeWidth: 1}
	}
	stroke := f.Properties.MustString("color", DefaultStroke)
	if stroke == "" {
		stroke = DefaultStroke
	}

	switch ClassOf(f.Geometry) {
	case ClassPolygon:
		return Style{Class: ClassPolygon, Fill: PolygonFill, Stroke: stroke, StrokeWidth: 2}
	case ClassLine:
		s := Style{Class: ClassLine, Stroke: stroke, StrokeWidth: 3}
		if f.Properties.MustBool("dashed", false) {
			s.Dash = []float64{5, 5}
		}
		return s
	case ClassPoint:
		s := Style{Class: ClassPoint, Fill: PointFill, Stroke: PointStroke, StrokeWidth: 2, Radius: 6}
		if s.Label = label(f.Properties); s.Label != "" {
			s.LabelFont = LabelFont
			s.LabelOffset = -15
		}
		return s
	default:
		return Style{Class: ClassOther, Stroke: OtherStroke, StrokeWidth: 1}
	}
}

func label(p geojson.Properties) string {
	if name := p.MustString("name", ""); name != "" {
		return name
	}
	return p.MustString("title", "")
}

// Rules lists the default style of every class. An empty Label means the
// label is read from the "name" or "title" property, and a DefaultStroke
// stroke is replaced by the "color" property when the feature has one.
func Rules() []Style {
	return []Style{
		{Class: ClassPolygon, Fill: PolygonFill, Stroke: DefaultStroke, StrokeWidth: 2},
		{Class: ClassLine, Stroke: DefaultStroke, StrokeWidth: 3},
		{Class: ClassPoint, Fill: PointFill, Stroke: PointStroke, StrokeWidth: 2, Radius: 6, LabelFont: LabelFont, LabelOffset: -15},
		{Class: ClassOther, Stroke: OtherStroke, StrokeWidth: 1},
	}
}

// MVT is the flat style used for vector tile layers.
var MVT = Style{Class: ClassPolygon, Fill: "rgba(0, 100, 200, 0.5)", Stroke: "rgba(0, 100, 200, 1)", StrokeWidth: 1}
