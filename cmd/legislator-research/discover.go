package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/civicdata/legislator-research/internal/dataset"
	"github.com/civicdata/legislator-research/internal/pipeline"
	"github.com/civicdata/legislator-research/pkg/types"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List legislators that still need research",
	Long: `Discover walks the people dataset and prints, as JSON, the active
legislators whose research output does not exist yet. No backend calls are
made; use it to preview what a research run would process.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().String("data-dir", defaultDataDir, "root of the OpenStates people dataset")
	discoverCmd.Flags().String("output-dir", defaultOutputDir, "root of the research output tree")
	discoverCmd.Flags().String("locale", "", "restrict discovery to one jurisdiction code (empty = all)")
	discoverCmd.Flags().Int("max", 0, "limit the number of candidates listed (0 = no limit)")
	discoverCmd.Flags().Bool("force", false, "list all active legislators, researched or not")
	discoverCmd.Flags().String("out", "", "also write the candidate list to this file")

	rootCmd.AddCommand(discoverCmd)
}

// candidate is one discovery entry: the person record plus where a research
// run would write its result.
type candidate struct {
	types.PersonRecord
	OutputPath string `json:"output_path"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig(cmd)

	people, err := dataset.Walk(cfg.DataDir, cfg.Locale)
	if err != nil {
		return err
	}

	candidates := []candidate{}
	for _, rec := range people {
		if cfg.MaxPeople > 0 && len(candidates) >= cfg.MaxPeople {
			break
		}
		if !cfg.Force && pipeline.Completed(cfg.OutputDir, rec.State, rec.FileStem) {
			continue
		}
		candidates = append(candidates, candidate{
			PersonRecord: rec,
			OutputPath:   pipeline.OutputPath(cfg.OutputDir, rec.State, rec.FileStem),
		})
	}

	data, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling candidates: %w", err)
	}

	if outFile, _ := cmd.Flags().GetString("out"); outFile != "" {
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return fmt.Errorf("writing candidate list: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved %d candidates to %s\n", len(candidates), outFile)
	}

	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
