package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/notiwin/internal/adapter/input"
	"github.com/jmylchreest/notiwin/internal/dbus"
	"github.com/jmylchreest/notiwin/internal/model"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Send each line of stdin as a message",
	Long: `Read messages from stdin, one per line, and send them to the daemon.

Lines starting with "!" are errors. Lines that are JSON objects may set
"text" or "summary"/"body", and "severity" or "urgency".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sink := &busSink{ctx: cmd.Context()}
		n, err := input.NewStdinAdapter(logger).Run(cmd.Context(), sink)
		logger.Debug("feed finished", "sent", n, "failed", sink.failed)
		return err
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.Flags().StringVar(&sendOpts.appName, "app-name", "notiwin",
		"Application name reported to the daemon")
}

// busSink sends input lines over D-Bus. Failures are logged and counted so
// one unreachable moment does not end the feed.
type busSink struct {
	ctx    context.Context
	failed int
}

func (s *busSink) Add(severity model.Severity, text string) {
	ctx, cancel := context.WithTimeout(s.ctx, sendTimeout)
	defer cancel()

	if _, err := dbus.SendNotification(ctx, sendOpts.appName, text, "", urgencyFor(severity)); err != nil {
		s.failed++
		logger.Warn("failed to send line", "error", err)
	}
}
