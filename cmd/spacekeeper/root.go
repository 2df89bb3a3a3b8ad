package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vocespace/spacekeeper/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "spacekeeper",
	Short: "Keeps per-space state for real-time rooms and heals it against the live roster",
	// errors are printed once by Execute
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&config.File, "config", "", "config file (default ./config.yaml or ./configs/config.yaml)")
}
