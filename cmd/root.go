package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "payment-hub",
	Short: "Payment orchestration service",
	Long:  "A payment orchestration service for provider checkouts, inbound provider webhooks, and signed partner webhook fan-out.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
