// Package config loads mapcompare settings: built-in defaults, then an
// optional YAML file, then MAPCOMPARE_* environment variables. Command line
// flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/s0ultr4d3r/mapcompare/engine"
	"github.com/s0ultr4d3r/mapcompare/logging"
	"github.com/s0ultr4d3r/mapcompare/tiles"
)

type Config struct {
	WMTS        WMTS           `yaml:"wmts"`
	Tiles       Tiles          `yaml:"tiles"`
	Data        Data           `yaml:"data"`
	View        engine.View    `yaml:"view"`
	Server      Server         `yaml:"server"`
	Log         logging.Config `yaml:"log"`
	MapTilerKey string         `yaml:"maptiler_key"`
}

type WMTS struct {
	URL       string        `yaml:"url"`
	Layer     string        `yaml:"layer"`
	Escape    bool          `yaml:"escape"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	Timeout   time.Duration `yaml:"timeout"`
	RPS       float64       `yaml:"rps"`
	Burst     int           `yaml:"burst"`
	UserAgent string        `yaml:"user_agent"`
}

type Tiles struct {
	CacheDir string        `yaml:"cache_dir"`
	RPS      float64       `yaml:"rps"`
	Burst    int           `yaml:"burst"`
	Timeout  time.Duration `yaml:"timeout"`
	Workers  int           `yaml:"workers"`
	Base     string        `yaml:"base"`
}

type Data struct {
	DEM           string `yaml:"dem"`
	GeoJSON       string `yaml:"geojson"`
	PMTiles       string `yaml:"pmtiles"`
	MVTHost       string `yaml:"mvt_host"`
	MVTIdentifier string `yaml:"mvt_identifier"`
	MVTLayer      string `yaml:"mvt_layer"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	AssetsDir       string        `yaml:"assets_dir"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

const DefaultWMTSURL = "https://www.tefenua.gov.pf/api/wmts"

func Default() Config {
	log := logging.DefaultConfig
	log.Suppress = []string{"transformBufferInPlace"}
	return Config{
		WMTS: WMTS{
			URL:       DefaultWMTSURL,
			Timeout:   15 * time.Second,
			RPS:       2,
			Burst:     2,
			UserAgent: "mapcompare/1.0 (+wmts)",
		},
		Tiles: Tiles{
			CacheDir: ".tile-cache",
			RPS:      8,
			Burst:    8,
			Timeout:  15 * time.Second,
			Workers:  8,
			Base:     "osm",
		},
		Data: Data{
			DEM:           "http://localhost:3000/assets/dem/tiles.json",
			GeoJSON:       "http://localhost:3000/assets/geojson/sample.geojson",
			PMTiles:       "http://localhost:3000/assets/pmtiles/tahiti.pmtiles",
			MVTHost:       "https://geoserver.sigmapolynesia.com",
			MVTIdentifier: "PAEA:PGA",
			MVTLayer:      "pga_zone_urba_v",
		},
		View: engine.DefaultView,
		Server: Server{
			Addr:            ":3000",
			AssetsDir:       "./public",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Log: log,
	}
}

// Load reads path over the defaults and applies the environment. An empty
// path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error { *dst(c) = v; return nil }
}

func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func duration(dst func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

func float(dst func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

var envVars = []envVar{
	{"MAPCOMPARE_WMTS_URL", str(func(c *Config) *string { return &c.WMTS.URL })},
	{"MAPCOMPARE_WMTS_LAYER", str(func(c *Config) *string { return &c.WMTS.Layer })},
	{"MAPCOMPARE_WMTS_ESCAPE", boolean(func(c *Config) *bool { return &c.WMTS.Escape })},
	{"MAPCOMPARE_WMTS_CACHE_TTL", duration(func(c *Config) *time.Duration { return &c.WMTS.CacheTTL })},
	{"MAPCOMPARE_WMTS_TIMEOUT", duration(func(c *Config) *time.Duration { return &c.WMTS.Timeout })},
	{"MAPCOMPARE_TILES_CACHE_DIR", str(func(c *Config) *string { return &c.Tiles.CacheDir })},
	{"MAPCOMPARE_TILES_RPS", float(func(c *Config) *float64 { return &c.Tiles.RPS })},
	{"MAPCOMPARE_TILES_BASE", str(func(c *Config) *string { return &c.Tiles.Base })},
	{"MAPCOMPARE_DEM_URL", str(func(c *Config) *string { return &c.Data.DEM })},
	{"MAPCOMPARE_GEOJSON_URL", str(func(c *Config) *string { return &c.Data.GeoJSON })},
	{"MAPCOMPARE_PMTILES_URL", str(func(c *Config) *string { return &c.Data.PMTiles })},
	{"MAPCOMPARE_MVT_HOST", str(func(c *Config) *string { return &c.Data.MVTHost })},
	{"MAPCOMPARE_SERVER_ADDR", str(func(c *Config) *string { return &c.Server.Addr })},
	{"MAPCOMPARE_ASSETS_DIR", str(func(c *Config) *string { return &c.Server.AssetsDir })},
	{"MAPCOMPARE_LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"MAPCOMPARE_LOG_FILE", str(func(c *Config) *string { return &c.Log.Filename })},
	{"MAPCOMPARE_LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
	{"MAPTILER_KEY", str(func(c *Config) *string { return &c.MapTilerKey })},
}

// ApplyEnv overrides fields from non-empty environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := ev.set(c, strings.TrimSpace(v)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ev.name, err))
		}
	}
	return errors.Join(errs...)
}

func (c Config) Validate() error {
	var errs []error
	if c.WMTS.URL == "" {
		errs = append(errs, errors.New("wmts.url is empty"))
	}
	if c.WMTS.CacheTTL < 0 {
		errs = append(errs, errors.New("wmts.cache_ttl must not be negative"))
	}
	if c.View.Lat < -90 || c.View.Lat > 90 || c.View.Lon < -180 || c.View.Lon > 180 {
		errs = append(errs, fmt.Errorf("view %.4f,%.4f out of range", c.View.Lon, c.View.Lat))
	}
	if _, ok := tiles.Presets[c.Tiles.Base]; !ok && c.Tiles.Base != "" {
		errs = append(errs, fmt.Errorf("tiles.base: unknown preset %q", c.Tiles.Base))
	}
	return errors.Join(errs...)
}

// BaseTemplate returns the configured base map preset with API keys filled
// in from the config, then the environment.
func (c Config) BaseTemplate() (tiles.Template, bool) {
	t, ok := tiles.Presets[c.Tiles.Base]
	if !ok {
		return tiles.Template{}, false
	}
	return t.ExpandKeys(c.lookupKey), true
}

func (c Config) lookupKey(name string) (string, bool) {
	if name == "MAPTILER_KEY" && c.MapTilerKey != "" {
		return c.MapTilerKey, true
	}
	v, ok := os.LookupEnv(name)
	return v, ok && v != ""
}

// MVTTemplate is the vector tile template of the configured GeoServer layer.
func (c Config) MVTTemplate() string {
	return tiles.GeoServerTMS(c.Data.MVTHost, c.Data.MVTIdentifier)
}
