// Package main provides the entry point for the Easy Apply automation CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "easyapply",
	Short: "LinkedIn Easy Apply session driver",
	Long:  "easyapply drives a paced, pausable LinkedIn Easy Apply session: it scans filtered listings, walks each application's form steps, and records every outcome to a CSV ledger so no job is ever attempted twice.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
