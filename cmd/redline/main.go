package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/redline/cmd/redline/commands"
)

var debug bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "redline",
		Short: "A safety-first bulk text editor for the terminal",
		Long: `redline previews every change as a diff and asks before writing.
Edits are dry-run by default, writes are atomic with .bak sidecars,
and every applied change lands in an undo-able change log.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(
		commands.NewReplaceCmd(),
		commands.NewBlockCmd(),
		commands.NewRenameCmd(),
		commands.NewApplyCmd(),
		commands.NewWriteCmd(),
		commands.NewNormalizeCmd(),
		commands.NewReviewCmd(),
		commands.NewBatchCmd(),
		commands.NewLogCmd(),
		commands.NewReportCmd(),
		commands.NewCleanupCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "redline: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging configures zerolog based on flags
func setupLogging() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log
}
