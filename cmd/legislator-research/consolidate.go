package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/civicdata/legislator-research/internal/consolidate"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Aggregate research results into a summary report",
	Long: `Consolidate scans the research output tree, aggregates per-state
statistics and estimated API cost, writes a JSON summary file, and prints
a report.`,
	RunE: runConsolidate,
}

func init() {
	consolidateCmd.Flags().String("output-dir", defaultOutputDir, "root of the research output tree")
	consolidateCmd.Flags().String("out", "research_summary.json", "path of the summary file to write")

	rootCmd.AddCommand(consolidateCmd)
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	outFile, _ := cmd.Flags().GetString("out")

	summary, err := consolidate.Consolidate(outputDir)
	if err != nil {
		return err
	}

	if err := summary.Save(outFile); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Summary saved to %s\n", outFile)

	summary.Print(os.Stdout)
	return nil
}
