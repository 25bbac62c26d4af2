package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/usharma/easyapply/internal/ledger"
	"github.com/usharma/easyapply/internal/report"
)

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Summarize the ledger of processed jobs",
	Long:  "Reads the CSV ledger and prints totals, the success rate, and the companies applied to most often. No browser is launched.",
	RunE:  reportCmd,
}

var reportLedgerPath string

func init() {
	reportCommand.Flags().StringVar(&reportLedgerPath, "ledger", "applied.csv", "Path to the CSV ledger of processed jobs")

	rootCmd.AddCommand(reportCommand)
}

func reportCmd(_ *cobra.Command, _ []string) error {
	return writeReport(reportLedgerPath, os.Stdout)
}

func writeReport(ledgerPath string, w io.Writer) error {
	if _, err := os.Stat(ledgerPath); os.IsNotExist(err) {
		return fmt.Errorf("ledger not found: %s", ledgerPath)
	}

	led := ledger.Load(ledgerPath)
	return report.Summarize(led.Records()).Render(w)
}
