package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
	"io"
	"os"
)

type globalOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	global := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "smalloc",
		Short: "Drive a first-fit arena allocator from the command line",
		Long: `smalloc reserves a single arena from the operating system and serves
allocations out of it with a first-fit search over an address-ordered free list.
It is a small harness for watching splitting, coalescing and fragmentation happen.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&global.verbose, "verbose", "v", false, "Log every allocator operation to stderr")
	rootCmd.AddCommand(newRunCmd(global))

	return rootCmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newLogger writes allocator logs as text. Unreleased allocations are reported at warn level, so
// they are always shown.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
