package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/notiwin/internal/adapter/input"
	"github.com/jmylchreest/notiwin/internal/logging"
	"github.com/jmylchreest/notiwin/internal/model"
	"github.com/jmylchreest/notiwin/internal/popup"
	"github.com/jmylchreest/notiwin/internal/tui"
)

var tuiOpts struct {
	logFile string
}

var tuiCmd = &cobra.Command{
	Use:   "tui [MESSAGE...]",
	Short: "Run the popup in the terminal",
	Long: `Run the popup controller with a terminal presenter.

Each MESSAGE is shown on start. When stdin is not a terminal its lines are
shown as they arrive, using the same format as "notiwin feed".

Key bindings:
  ↑/↓         Select a message
  d, enter    Dismiss the popup
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiOpts.logFile, "log-file", "",
		"Write logs to this file (logs are discarded otherwise)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the program; stderr logging would corrupt it.
	tuiLogger := logging.New(io.Discard, globalOpts.verbose)
	if tuiOpts.logFile != "" {
		f, err := os.OpenFile(tuiOpts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		tuiLogger = logging.New(f, globalOpts.verbose)
	}

	piped := !isatty.IsTerminal(os.Stdin.Fd())

	var programOpts []tea.ProgramOption
	if piped {
		programOpts = append(programOpts, tea.WithInputTTY())
	}
	program, factory := tui.NewProgram(programOpts...)

	controller := popup.NewController(cfg, factory, tuiLogger)
	if err := controller.Start(); err != nil {
		return err
	}
	for _, msg := range args {
		controller.Add(model.SeverityInfo, msg)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		return err
	})
	if piped {
		g.Go(func() error {
			_, err := input.NewStdinAdapter(tuiLogger).Run(gctx, controller)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			program.Quit()
			return err
		})
	}

	runErr := g.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := controller.Stop(stopCtx); err != nil {
		tuiLogger.Warn("failed to stop popup controller", "error", err)
	}
	return runErr
}
