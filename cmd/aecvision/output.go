package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"aecvision/internal/report"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSummary writes the run summary as a table or as JSON. A nil summary
// means the run never started and nothing is printed.
func printSummary(cmd *cobra.Command, ctx *commandContext, summary *report.Summary) error {
	if summary == nil {
		return nil
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, summary)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), summary.Render())
	return err
}
