package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bagcheck",
		Short: "bagcheck - grade Bag of Holding submissions",
		Long: `bagcheck grades a student's Bag of Holding submission.

It inspects the submission's git repository and identity file, exercises the
submitted container, scores its code conventions and checks the commit
history, then prints an itemized score report.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newGradeCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newValidateCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
