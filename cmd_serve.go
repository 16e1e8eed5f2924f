package main

import (
	"github.com/spf13/cobra"

	"github.com/s0ultr4d3r/mapcompare/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [flags]",
		Short: "Start the HTTP API, tile proxy and static asset server",
		Long: `Start an HTTP server with:
  - /api/wmts/...            layers, refresh, selection and tile templates
  - /api/engines/:engine/scene  engine layer configuration
  - /api/tiles/:z/:x/:y      cached tile proxy for the selected layer
  - /api/geojson/values      attribute value counts
  - /assets/                 static files with directory listing

The capabilities are fetched once at start. A failed first fetch is logged
and retried on the next refresh request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v := a.newView()

			rctx, cancel := withTimeout(ctx, a.cfg.WMTS.Timeout)
			_ = v.Refresh(rctx)
			cancel()

			f, err := a.tileFetcher()
			if err != nil {
				return err
			}
			return server.New(a.cfg, v, f, a.logger).Run(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen `<addr>` (default from config, :3000)")
	cmd.Flags().String("assets", "", "static assets `<dir>`")
	cmd.Flags().String("cache-dir", "", "tile cache `<dir>`")
	return cmd
}
