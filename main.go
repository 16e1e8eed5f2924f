package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.CheckErr(NewCmd().ExecuteContext(ctx))
}

func NewCmd() *cobra.Command {
	cobra.EnableCommandSorting = false
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "mapcompare [command] [flags]",
		Short:         "WMTS capabilities, tile templates and engine scenes for map library comparisons",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringP("config", "c", "", "`<path>` to a YAML config file")
	pf.String("wmts-url", "", "`<url>` of the WMTS service (default from config)")
	pf.String("layer", "", "`<identifier>` of the initial layer")
	pf.Bool("escape", false, "query-escape layer values in tile templates")
	pf.String("log-level", "", "`<level>` TRACE, DEBUG, INFO, WARN or ERROR")
	pf.String("pprof", "", "serve pprof on `<addr>`, e.g. 127.0.0.1:6060")
	pf.Duration("timeout", defaultTimeout, "hard timeout of the whole command, 0 disables")

	rootCmd.AddCommand(
		newLayersCmd(a),
		newTileURLCmd(a),
		newSceneCmd(a),
		newPreviewCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}
