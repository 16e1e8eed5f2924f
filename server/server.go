// Package server exposes the WMTS view, the engine scenes, a caching tile
// proxy and the static assets over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb/geojson"
	gometrics "github.com/rcrowley/go-metrics"

	"github.com/s0ultr4d3r/mapcompare/config"
	"github.com/s0ultr4d3r/mapcompare/geostyle"
	"github.com/s0ultr4d3r/mapcompare/logging"
	"github.com/s0ultr4d3r/mapcompare/tiles"
	"github.com/s0ultr4d3r/mapcompare/wmts"
)

type Server struct {
	Config  config.Config
	View    *wmts.View
	Fetcher *tiles.Fetcher
	Logger  *slog.Logger

	router  *gin.Engine
	metrics gometrics.Registry

	geoMu sync.Mutex
	geo   *geojson.FeatureCollection
}

// New wires the routes. The fetcher's logger is replaced by one that drops
// the records matching cfg.Log.Suppress.
func New(cfg config.Config, view *wmts.View, fetcher *tiles.Fetcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if fetcher != nil {
		fetcher.Logger = logging.WithFilter(logger.With("scope", "tiles"), logging.DropContaining(cfg.Log.Suppress...))
	}
	s := &Server{
		Config:  cfg,
		View:    view,
		Fetcher: fetcher,
		Logger:  logger,
		metrics: gometrics.NewRegistry(),
	}
	if logging.ParseLevel(cfg.Log.Level) <= slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) corsHandler() gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Accept", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "X-Tile-Source"},
		MaxAge:        12 * time.Hour,
	}
	origins := s.Config.Server.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
	}
	return cors.New(conf)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		s.Logger.Error("panic in handler", "path", c.Request.URL.Path, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	r.Use(s.requestLogger())
	r.Use(s.corsHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/wmts/layers", s.handleLayers)
	api.POST("/wmts/refresh", s.handleRefresh)
	api.PUT("/wmts/current", s.handleSelect)
	api.GET("/wmts/tileurl", s.handleTileURL)
	api.GET("/engines", s.handleEngines)
	api.GET("/engines/:engine/scene", s.handleScene)
	api.GET("/tiles/:z/:x/:y", s.handleTile)
	api.GET("/geojson/values", s.handleValueCounts)
	api.GET("/stats", s.handleStats)

	if dir := s.Config.Server.AssetsDir; dir != "" {
		r.StaticFS("/assets", gin.Dir(dir, true))
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	requests := gometrics.GetOrRegisterCounter("http.requests", s.metrics)
	failures := gometrics.GetOrRegisterCounter("http.errors", s.metrics)
	latency := gometrics.GetOrRegisterTimer("http.latency", s.metrics)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		requests.Inc(1)
		latency.Update(elapsed)
		status := c.Writer.Status()
		if status >= 400 {
			failures.Inc(1)
		}
		if c.Request.URL.Path == "/health" {
			return
		}
		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelWarn
		}
		s.Logger.Log(c.Request.Context(), level, "http",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", elapsed,
		)
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Config.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("http listening", "addr", srv.Addr, "assets", s.Config.Server.AssetsDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.Logger.Info("http shutting down")
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) geoJSON(ctx context.Context) (*geojson.FeatureCollection, error) {
	s.geoMu.Lock()
	defer s.geoMu.Unlock()
	if s.geo != nil {
		return s.geo, nil
	}
	var client *http.Client
	if s.Fetcher != nil {
		client = s.Fetcher.Client
	}
	fc, err := geostyle.Load(ctx, client, s.Config.Data.GeoJSON)
	if err != nil {
		return nil, err
	}
	s.geo = fc
	return fc, nil
}
