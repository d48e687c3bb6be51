// Package main is the entry point for the notiwind popup daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appID = "io.github.jmylchreest.notiwind"

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var opts struct {
	verbose     bool
	monitor     bool
	configPath  string
	metricsAddr string
}

var rootCmd = &cobra.Command{
	Use:   "notiwind",
	Short: "Transient notification popup daemon",
	Long: `notiwind shows short-lived messages in a single popup window.

By default it claims org.freedesktop.Notifications on the session bus.
With --monitor it leaves the bus name to another daemon and mirrors the
notifications that daemon receives.

Messages expire after the configured ttl. Clicking the popup dismisses it.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.Flags().BoolVar(&opts.monitor, "monitor", false,
		"Mirror another notification daemon instead of owning the bus name")
	rootCmd.Flags().StringVar(&opts.configPath, "config", "",
		"Path to config file (default: ~/.config/notiwin/notiwin.toml)")
	rootCmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "notiwind:", err)
		os.Exit(1)
	}
}
