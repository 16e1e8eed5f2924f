package geostyle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Parse accepts a FeatureCollection, a single Feature or a bare geometry and
// always returns a collection.
func Parse(data []byte) (*geojson.FeatureCollection, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil && fc.Type == "FeatureCollection" {
		return fc, nil
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil && f.Type == "Feature" {
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}
	if g.Coordinates == nil && g.Geometries == nil {
		return nil, fmt.Errorf("parse geojson: unsupported document")
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(g.Geometry()))
	return fc, nil
}

// Load reads a collection from a file path or an http(s) URL.
func Load(ctx context.Context, client *http.Client, src string) (*geojson.FeatureCollection, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		data, err = fetch(ctx, client, src)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/geo+json, application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch geojson %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch geojson %s: http %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Bounds is the union of all feature bounds. ok is false for an empty
// collection.
func Bounds(fc *geojson.FeatureCollection) (b orb.Bound, ok bool) {
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if !ok {
			b, ok = f.Geometry.Bound(), true
			continue
		}
		b = b.Union(f.Geometry.Bound())
	}
	return b, ok
}

// Summary counts features per geometry class.
func Summary(fc *geojson.FeatureCollection) map[Class]int {
	out := map[Class]int{}
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		out[ClassOf(f.Geometry)]++
	}
	return out
}

type ValueCount struct {
	Value       any `json:"value"`
	Count       int `json:"count"`
	Points      int `json:"points"`
	LineStrings int `json:"linestrings"`
	Polygons    int `json:"polygons"`
}

// ValueCounts tallies the values of attribute across features. Features
// without the attribute are skipped. Only single Point, LineString and
// Polygon geometries feed the per-type columns. Sorted by count, highest
// first, ties in order of first appearance.
func ValueCounts(fc *geojson.FeatureCollection, attribute string) []ValueCount {
	index := map[string]int{}
	var out []ValueCount
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		v, ok := f.Properties[attribute]
		if !ok || v == nil {
			continue
		}
		key := fmt.Sprintf("%T:%v", v, v)
		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			out = append(out, ValueCount{Value: v})
		}
		vc := &out[i]
		vc.Count++
		switch f.Geometry.(type) {
		case orb.Point:
			vc.Points++
		case orb.LineString:
			vc.LineStrings++
		case orb.Polygon:
			vc.Polygons++
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Count > out[b].Count })
	return out
}

// Attributes lists the property keys seen across the collection, sorted.
func Attributes(fc *geojson.FeatureCollection) []string {
	seen := map[string]struct{}{}
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		for k := range f.Properties {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
