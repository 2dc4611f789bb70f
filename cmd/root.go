package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "timeflow",
	Short: "TimeFlow exchange core",
	Long: `TimeFlow exchange core: a collateral vault that mints the Dust
synthetic unit, a market config registry, a market factory, and per-market
order book engines with maker/taker matching.

The serve command runs the whole stack behind an HTTP read surface and a
websocket fill feed. The demo command replays a full deployment and trading
sequence against an in-process stack.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
