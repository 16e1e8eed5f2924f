package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/s0ultr4d3r/mapcompare/wmts"
)

func newLayersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layers [flags]",
		Short: "List the layers of the WMTS service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			v, err := a.refreshedView(ctx)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("format")
			style, _ := cmd.Flags().GetString("style")
			return renderLayers(cmd, v, format, style)
		},
	}
	cmd.Flags().StringP("format", "f", "box", "`<format>` box, csv, md or json")
	cmd.Flags().String("style", "light", "`<style>` of box tables: default, bold, double, light, round")
	return cmd
}

func tableStyle(name string) table.Style {
	switch name {
	case "bold":
		return table.StyleBold
	case "double":
		return table.StyleDouble
	case "light":
		return table.StyleLight
	case "round":
		return table.StyleRounded
	default:
		return table.StyleDefault
	}
}

func renderLayers(cmd *cobra.Command, v *wmts.View, format, style string) error {
	st := v.Selection.Snapshot()
	out := cmd.OutOrStdout()

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	w := table.NewWriter()
	w.SetOutputMirror(out)
	w.SetStyle(tableStyle(style))
	if caps := v.Capabilities(); caps != nil && caps.Title != "" {
		w.SetTitle(caps.Title)
	}
	w.AppendHeader(table.Row{"", "#", "IDENTIFIER", "TITLE", "FORMAT", "TILE MATRIX SET", "STYLE"})
	for i, l := range st.Layers {
		mark := ""
		if l.Identifier == st.Current {
			mark = "*"
		}
		w.AppendRow(table.Row{mark, i + 1, l.Identifier, l.Title, l.Format, l.TileMatrixSet, l.StyleOrDefault()})
	}
	w.AppendFooter(table.Row{"", "", fmt.Sprintf("%d layers", len(st.Layers))})

	switch strings.ToLower(format) {
	case "csv":
		w.RenderCSV()
	case "md", "markdown":
		w.RenderMarkdown()
	case "box", "":
		w.Render()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}
