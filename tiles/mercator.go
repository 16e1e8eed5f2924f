package tiles

import (
	"image"
	"math"

	"github.com/wroge/wgs84"
	xdraw "golang.org/x/image/draw"
)

const TileSize = 256

// MaxLatitude is the latitude limit of the square web mercator world.
const MaxLatitude = 85.05112878

// BBox is a lon/lat box in degrees.
type BBox struct {
	MinLon float64 `json:"minLon"`
	MinLat float64 `json:"minLat"`
	MaxLon float64 `json:"maxLon"`
	MaxLat float64 `json:"maxLat"`
}

// Around returns the box of half-size d degrees centred on lon/lat.
func Around(lon, lat, d float64) BBox {
	return BBox{MinLon: lon - d, MinLat: lat - d, MaxLon: lon + d, MaxLat: lat + d}
}

func (b BBox) Valid() bool {
	return b.MinLon < b.MaxLon && b.MinLat < b.MaxLat
}

// mercX/Y: lon/lat (deg) -> normalized mercator [0..1]
func mercX(lon float64) float64 { return (lon + 180.0) / 360.0 }
func mercY(lat float64) float64 {
	lat = math.Min(MaxLatitude, math.Max(-MaxLatitude, lat))
	rad := lat * math.Pi / 180.0
	s := math.Sin(rad)
	y := 0.5 - math.Log((1+s)/(1-s))/(4*math.Pi)
	return y
}

// At zoom z, world size in pixels:
func worldSize(z int) float64 { return float64(TileSize) * math.Exp2(float64(z)) }

// LonLatToPixel returns pixel coords in "world pixels" at zoom z.
func LonLatToPixel(lon, lat float64, z int) (px, py float64) {
	ws := worldSize(z)
	px = mercX(lon) * ws
	py = mercY(lat) * ws
	return
}

// LonLatToTile returns the tile holding lon/lat at zoom z.
func LonLatToTile(lon, lat float64, z int) (x, y int) {
	px, py := LonLatToPixel(lon, lat, z)
	n := int(math.Exp2(float64(z)))
	x = min(max(int(math.Floor(px/TileSize)), 0), n-1)
	y = min(max(int(math.Floor(py/TileSize)), 0), n-1)
	return
}

// TileToLonLat returns the north-west corner of tile x/y at zoom z.
func TileToLonLat(x, y, z int) (lon, lat float64) {
	n := math.Exp2(float64(z))
	lon = float64(x)/n*360.0 - 180.0
	k := math.Pi - 2.0*math.Pi*float64(y)/n
	lat = 180.0 / math.Pi * math.Atan(0.5*(math.Exp(k)-math.Exp(-k)))
	return
}

// TileBounds returns the lon/lat box covered by tile x/y at zoom z.
func TileBounds(x, y, z int) BBox {
	west, north := TileToLonLat(x, y, z)
	east, south := TileToLonLat(x+1, y+1, z)
	return BBox{MinLon: west, MinLat: south, MaxLon: east, MaxLat: north}
}

// ToWebMercator projects lon/lat (EPSG:4326) to EPSG:3857 metres.
func ToWebMercator(lon, lat float64) (x, y float64) {
	x, y, _ = wgs84.LonLat().To(wgs84.WebMercator())(lon, lat, 0)
	return
}

// PixelToTile returns tile indices and pixel offset inside tile.
func PixelToTile(px, py float64) (tx, ty int, ox, oy int) {
	tx = int(math.Floor(px / TileSize))
	ty = int(math.Floor(py / TileSize))
	ox = int(px) - tx*TileSize
	oy = int(py) - ty*TileSize
	return
}

// BBoxPixels returns top-left & bottom-right world-pixel coords for given bbox & zoom.
func BBoxPixels(bb BBox, z int) (tlx, tly, brx, bry float64) {
	// top-left uses maxLat; bottom-right uses minLat
	tlx, tly = LonLatToPixel(bb.MinLon, bb.MaxLat, z)
	brx, bry = LonLatToPixel(bb.MaxLon, bb.MinLat, z)
	return
}

// CoveringTiles returns the inclusive tile range covering the bbox at zoom.
func CoveringTiles(bb BBox, z int) (minTX, minTY, maxTX, maxTY int) {
	tlx, tly, brx, bry := BBoxPixels(bb, z)
	minTX = int(math.Floor(tlx / TileSize))
	minTY = int(math.Floor(tly / TileSize))
	maxTX = int(math.Floor((brx - 1) / TileSize))
	maxTY = int(math.Floor((bry - 1) / TileSize))
	return
}

// FitZoom tries to find a zoom that makes bbox fit into target WxH pixels.
func FitZoom(bb BBox, targetW, targetH int, t Template) int {
	// naive search from high to low
	for z := t.MaxZoom; z >= t.MinZoom; z-- {
		tlx, tly, brx, bry := BBoxPixels(bb, z)
		w := brx - tlx
		h := bry - tly
		if int(math.Ceil(w)) <= targetW && int(math.Ceil(h)) <= targetH {
			return z
		}
	}
	return t.MinZoom
}

// Paste copies src into dst with its top-left corner at (x,y), clipping to
// the bounds of dst. Only the clipped rectangle of dst is written.
func Paste(dst *image.RGBA, src image.Image, x, y int) {
	sb := src.Bounds()
	r := image.Rect(x, y, x+sb.Dx(), y+sb.Dy()).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	sp := sb.Min.Add(r.Min.Sub(image.Pt(x, y)))
	xdraw.Draw(dst, r, src, sp, xdraw.Src)
}
