package server

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/s0ultr4d3r/mapcompare/engine"
	"github.com/s0ultr4d3r/mapcompare/geostyle"
	"github.com/s0ultr4d3r/mapcompare/logging"
	"github.com/s0ultr4d3r/mapcompare/tiles"
	"github.com/s0ultr4d3r/mapcompare/wmts"
)

func errorJSON(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleLayers(c *gin.Context) {
	refresh, ok := boolQuery(c, "refresh", false)
	if !ok {
		return
	}
	if refresh {
		if err := s.View.Refresh(c.Request.Context()); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": s.View.Selection.Snapshot()})
			return
		}
	}
	c.JSON(http.StatusOK, s.View.Selection.Snapshot())
}

func (s *Server) handleRefresh(c *gin.Context) {
	if err := s.View.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": s.View.Selection.Snapshot()})
		return
	}
	c.JSON(http.StatusOK, s.View.Selection.Snapshot())
}

type selectRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

func (s *Server) handleSelect(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if err := s.View.Selection.Select(req.Identifier); err != nil {
		if errors.Is(err, wmts.ErrUnknownLayer) {
			errorJSON(c, http.StatusNotFound, err)
			return
		}
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, s.View.Selection.Snapshot())
}

// boolQuery reads an optional boolean query parameter and answers 400 when
// it does not parse.
func boolQuery(c *gin.Context, name string, def bool) (bool, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, fmt.Errorf("%s: %w", name, err))
		return false, false
	}
	return b, true
}

func (s *Server) layerFromQuery(c *gin.Context) (wmts.Layer, bool) {
	l, err := s.View.Layer(c.Query("layer"))
	if err != nil {
		errorJSON(c, http.StatusNotFound, err)
		return wmts.Layer{}, false
	}
	return l, true
}

func (s *Server) handleTileURL(c *gin.Context) {
	l, ok := s.layerFromQuery(c)
	if !ok {
		return
	}
	escape, ok := boolQuery(c, "escape", s.View.Escape)
	if !ok {
		return
	}
	tmpl := wmts.TileURL(s.View.BaseURL, l)
	if escape {
		tmpl = wmts.EscapedTileURL(s.View.BaseURL, l)
	}
	c.JSON(http.StatusOK, gin.H{"layer": l.Identifier, "template": tmpl, "escaped": escape})
}

func (s *Server) handleEngines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"engines": engine.Names()})
}

// handleScene builds the engine document: the base map, the selected WMTS
// layer and the extra slots named in ?with= (geojson, terrain, mvt).
func (s *Server) handleScene(c *gin.Context) {
	a, err := engine.Lookup(c.Param("engine"))
	if err != nil {
		errorJSON(c, http.StatusNotFound, err)
		return
	}
	var specs []engine.LayerSpec
	if base, err := s.Config.SlotSpec("base"); err == nil {
		specs = append(specs, base)
	}
	for _, w := range strings.Split(c.Query("with"), ",") {
		w = strings.TrimSpace(w)
		if w == "" || w == "base" {
			continue
		}
		spec, err := s.Config.SlotSpec(w)
		if err != nil {
			errorJSON(c, http.StatusBadRequest, err)
			return
		}
		specs = append(specs, spec)
	}
	scene, err := engine.Build(a, s.Config.View, specs...)
	if err != nil {
		errorJSON(c, http.StatusUnprocessableEntity, err)
		return
	}
	if l, err := s.View.Layer(c.Query("layer")); err == nil {
		if err := engine.ConfigureTileLayer(a, scene, s.View.BaseURL, l, s.View.TemplateFor(l)); err != nil {
			errorJSON(c, http.StatusUnprocessableEntity, err)
			return
		}
	} else if c.Query("layer") != "" {
		errorJSON(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"engine": a.Name(), "slots": scene.Slots(), "scene": scene})
}

func tileCoords(c *gin.Context) (z, x, y int, err error) {
	if z, err = strconv.Atoi(c.Param("z")); err != nil {
		return
	}
	if x, err = strconv.Atoi(c.Param("x")); err != nil {
		return
	}
	if y, err = strconv.Atoi(strings.TrimSuffix(c.Param("y"), ".png")); err != nil {
		return
	}
	n := int(math.Exp2(float64(z)))
	if z < 0 || z > 19 || x < 0 || y < 0 || x >= n || y >= n {
		err = errors.New("tile out of range")
	}
	return
}

func (s *Server) handleTile(c *gin.Context) {
	if s.Fetcher == nil {
		errorJSON(c, http.StatusServiceUnavailable, errors.New("tile proxy disabled"))
		return
	}
	z, x, y, err := tileCoords(c)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	l, ok := s.layerFromQuery(c)
	if !ok {
		return
	}
	url := tiles.FillTemplate(s.View.TemplateFor(l), z, x, y)
	tile, err := s.Fetcher.GetTile(c.Request.Context(), url, nil)
	if err != nil {
		if tiles.IsNotFound(err) {
			s.Fetcher.Logger.Warn("tile missing", "layer", l.Identifier, "z", z, "x", x, "y", y)
			errorJSON(c, http.StatusNotFound, err)
			return
		}
		s.Fetcher.Logger.Warn("tile proxy failed", "layer", l.Identifier, "error", err)
		errorJSON(c, http.StatusBadGateway, err)
		return
	}
	ct := tile.ContentType
	if ct == "" {
		ct = l.Format
	}
	c.Header("X-Tile-Source", tile.Source)
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, ct, tile.Data)
}

func (s *Server) handleValueCounts(c *gin.Context) {
	attr := c.Query("attribute")
	fc, err := s.geoJSON(c.Request.Context())
	if err != nil {
		errorJSON(c, http.StatusBadGateway, err)
		return
	}
	if attr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attribute is required", "attributes": geostyle.Attributes(fc)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attribute": attr,
		"features":  len(fc.Features),
		"values":    geostyle.ValueCounts(fc, attr),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	out := map[string]int64{}
	if s.Fetcher != nil {
		maps.Copy(out, s.Fetcher.Stats())
	}
	maps.Copy(out, logging.Counts())
	s.metrics.Each(func(name string, m any) {
		switch v := m.(type) {
		case gometrics.Counter:
			out[name] = v.Count()
		case gometrics.Timer:
			out[name+".count"] = v.Count()
			out[name+".p95_ms"] = int64(v.Percentile(0.95) / 1e6)
		}
	})
	c.JSON(http.StatusOK, out)
}
