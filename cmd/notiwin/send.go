package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/notiwin/internal/dbus"
	"github.com/jmylchreest/notiwin/internal/model"
	"github.com/jmylchreest/notiwin/internal/popup"
)

const sendTimeout = 5 * time.Second

var sendOpts struct {
	appName string
}

var sendCmd = &cobra.Command{
	Use:   "send FORMAT [ARGS...]",
	Short: "Show an informational message",
	Long: `Send a message to the running notification daemon.

FORMAT is a printf-style format applied to ARGS. Without ARGS it is sent
verbatim.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd.Context(), model.SeverityInfo, args)
	},
}

var errorCmd = &cobra.Command{
	Use:   "error FORMAT [ARGS...]",
	Short: "Show an error message",
	Long: `Send an error message to the running notification daemon. Error
messages turn the popup background to the error colour.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd.Context(), model.SeverityError, args)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd, errorCmd)

	for _, cmd := range []*cobra.Command{sendCmd, errorCmd} {
		cmd.Flags().StringVar(&sendOpts.appName, "app-name", "notiwin",
			"Application name reported to the daemon")
	}
}

// formatArgs applies args[0] as a format to the remaining args. Messages
// the popup would drop for a bad format are rejected here too.
func formatArgs(args []string) (string, error) {
	values := make([]any, len(args)-1)
	for i, a := range args[1:] {
		values[i] = a
	}
	return popup.FormatMessage(args[0], values...)
}

// urgencyFor maps a severity to a freedesktop urgency byte.
func urgencyFor(severity model.Severity) byte {
	if severity.IsError() {
		return dbus.UrgencyCritical
	}
	return dbus.UrgencyNormal
}

func send(ctx context.Context, severity model.Severity, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	text, err := formatArgs(args)
	if err != nil {
		return err
	}
	id, err := dbus.SendNotification(ctx, sendOpts.appName, text, "", urgencyFor(severity))
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	logger.Debug("notification sent", "id", id, "severity", severity)
	return nil
}
