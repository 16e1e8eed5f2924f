package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0ultr4d3r/mapcompare/engine"
)

func newSceneCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scene [flags] <engine>",
		Short: "Print the layer configuration of an engine: " + strings.Join(engine.Names(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ad, err := engine.Lookup(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			v, err := a.refreshedView(ctx)
			if err != nil {
				return err
			}
			l, err := v.Layer("")
			if err != nil {
				return err
			}

			var specs []engine.LayerSpec
			with, _ := cmd.Flags().GetStringSlice("with")
			for _, w := range with {
				spec, err := a.cfg.SlotSpec(w)
				if err != nil {
					return err
				}
				specs = append(specs, spec)
			}
			scene, err := engine.Build(ad, a.cfg.View, specs...)
			if err != nil {
				return err
			}
			if err := engine.ConfigureTileLayer(ad, scene, v.BaseURL, l, v.TemplateFor(l)); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(scene)
		},
	}
	cmd.Flags().StringSlice("with", nil, "extra `<slots>`: base, terrain, geojson, mvt")
	return cmd
}
