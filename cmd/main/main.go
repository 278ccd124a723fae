package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	time.Local = time.UTC

	var configPath string
	rootCmd := &cobra.Command{
		Use:          "call-campaign-engine",
		Short:        "Call campaign execution engine",
		Long:         `Runs call lists, call logs and follow-ups for the CRM: an HTTP API, the item import consumer and the domain event publisher.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "directory containing default.yaml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(importCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
