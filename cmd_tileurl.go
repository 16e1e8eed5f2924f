package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0ultr4d3r/mapcompare/tiles"
)

func newTileURLCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tileurl [flags] [layer]",
		Short: "Print the tile URL template of a layer (the current one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			v, err := a.refreshedView(ctx)
			if err != nil {
				return err
			}
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			tmpl, err := v.TileURL(id)
			if err != nil {
				return err
			}
			if at, _ := cmd.Flags().GetString("at"); at != "" {
				z, x, y, err := parseZXY(at)
				if err != nil {
					return err
				}
				tmpl = tiles.FillTemplate(tmpl, z, x, y)
			}
			fmt.Fprintln(cmd.OutOrStdout(), tmpl)
			return nil
		},
	}
	cmd.Flags().String("at", "", "fill the template for tile `<z/x/y>`")
	return cmd
}

func parseZXY(s string) (z, x, y int, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("tile %q: want z/x/y", s)
	}
	var v [3]int
	for i, p := range parts {
		if v[i], err = strconv.Atoi(strings.TrimSpace(p)); err != nil {
			return 0, 0, 0, fmt.Errorf("tile %q: %w", s, err)
		}
	}
	return v[0], v[1], v[2], nil
}
