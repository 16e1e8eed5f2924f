package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0ultr4d3r/mapcompare/config"
	"github.com/s0ultr4d3r/mapcompare/logging"
	"github.com/s0ultr4d3r/mapcompare/tiles"
	"github.com/s0ultr4d3r/mapcompare/wmts"
)

const defaultTimeout = 10 * time.Minute

// app is the state shared by the sub commands once the root has loaded
// the configuration.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	closer io.Closer
}

// setup loads the config file and environment, then applies the flags that
// were set explicitly. Flags win over the environment, which wins over
// the file.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = os.Getenv("MAPCOMPARE_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	a.logger, a.closer = logger, closer
	slog.SetDefault(logger)

	if addr, _ := cmd.Flags().GetString("pprof"); addr != "" {
		enablePPROF(addr, logger)
	}
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("wmts-url") {
		cfg.WMTS.URL, _ = flags.GetString("wmts-url")
	}
	if flags.Changed("layer") {
		cfg.WMTS.Layer, _ = flags.GetString("layer")
	}
	if flags.Changed("escape") {
		cfg.WMTS.Escape, _ = flags.GetBool("escape")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
	if flags.Lookup("assets") != nil && flags.Changed("assets") {
		cfg.Server.AssetsDir, _ = flags.GetString("assets")
	}
	if flags.Lookup("cache-dir") != nil && flags.Changed("cache-dir") {
		cfg.Tiles.CacheDir, _ = flags.GetString("cache-dir")
	}
}

// commandContext applies --timeout to the command's context.
func (a *app) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	d, _ := cmd.Flags().GetDuration("timeout")
	if d <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return withTimeout(cmd.Context(), d)
}

func (a *app) wmtsClient() *wmts.Client {
	c := wmts.NewClient(a.cfg.WMTS.Timeout, a.cfg.WMTS.RPS, a.cfg.WMTS.Burst)
	if a.cfg.WMTS.UserAgent != "" {
		c.UserAgent = a.cfg.WMTS.UserAgent
	}
	c.Logger = a.logger
	c.EnableCache(a.cfg.WMTS.CacheTTL)
	return c
}

func (a *app) newView() *wmts.View {
	v := wmts.NewView(a.cfg.WMTS.URL, a.wmtsClient(), a.cfg.WMTS.Layer)
	v.Escape = a.cfg.WMTS.Escape
	return v
}

// refreshedView fetches the capabilities once and fails when the service
// does not answer.
func (a *app) refreshedView(ctx context.Context) (*wmts.View, error) {
	v := a.newView()
	if err := v.Refresh(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (a *app) tileFetcher() (*tiles.Fetcher, error) {
	f, err := tiles.NewFetcher(a.cfg.Tiles.CacheDir, a.cfg.Tiles.RPS, a.cfg.Tiles.Burst, a.cfg.Tiles.Timeout)
	if err != nil {
		return nil, fmt.Errorf("tile cache: %w", err)
	}
	f.Logger = logging.WithFilter(a.logger.With("scope", "tiles"), logging.DropContaining(a.cfg.Log.Suppress...))
	return f, nil
}
