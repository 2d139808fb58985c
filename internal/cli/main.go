// Package cli implements the videotoshorts command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:           "videotoshorts",
		Short:         "Turn a long-form video into short, high-engagement clips",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.PersistentFlags().String("config", "", "Path to config file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (auto, console, json)")

	root.AddCommand(
		newServeCmd(),
		newRankCmd(),
		newGenerateCmd(),
		newCompileCmd(),
		newListCmd(),
		newWatchCmd(),
		newConfigCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
