package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/civicdata/legislator-research/internal/ledger"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past research runs from the ledger",
	Long: `Runs reads the SQLite run ledger and lists recent batch runs, newest
first. With --items, it lists the per-person outcomes of one run instead.`,
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("output-dir", defaultOutputDir, "root of the research output tree")
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.Flags().String("items", "", "list the per-person outcomes of this run ID")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output-dir")
	limit, _ := cmd.Flags().GetInt("limit")
	itemsRun, _ := cmd.Flags().GetString("items")

	store, err := ledger.Open(outputDir, "")
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)

	if itemsRun != "" {
		items, err := store.ListItems(itemsRun)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Printf("No items recorded for run %s\n", itemsRun)
			return nil
		}
		fmt.Fprintln(w, "STATE\tNAME\tSTATUS\tERROR")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.State, it.Name, it.Status, it.Error)
		}
		return w.Flush()
	}

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Fprintln(w, "RUN\tLOCALE\tSTARTED\tOK\tFAILED\tSKIPPED\tTOKENS IN/OUT")
	for _, r := range runs {
		locale := r.Locale
		if locale == "" {
			locale = "all"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d/%d\n",
			r.RunID, locale, r.Started, r.Succeeded, r.Failed, r.Skipped,
			r.Usage.InputTokens, r.Usage.OutputTokens)
	}
	return w.Flush()
}
