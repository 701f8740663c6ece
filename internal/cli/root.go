// Package cli implements widgetctl, a headless dashboard client: it mounts a
// dashboard's widgets against the live channel and drives gestures from the
// command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	profilePath string
	serverFlag  string
	tokenFlag   string
	verbose     bool
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "widgetctl",
		Short:         "Watch and arrange widgetboard dashboards from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&profilePath, "config", "c", DefaultProfilePath(), "Path to the profile file")
	cmd.PersistentFlags().StringVar(&serverFlag, "server", "", "Server URL (overrides the profile)")
	cmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Access token (overrides the profile)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newMoveCmd())
	cmd.AddCommand(newResizeCmd())
	cmd.AddCommand(newExpandCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newOptionsCmd())

	cmd.Version = Version()
	cmd.SetVersionTemplate(fmt.Sprintf("%s\n", Version()))
	return cmd
}

func Version() string { return "0.1.0-dev" }

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
