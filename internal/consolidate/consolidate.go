// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package consolidate aggregates written research results into a summary
// report: per-state statistics, totals, and estimated API cost.
package consolidate

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/civicdata/legislator-research/pkg/types"
)

const researchSuffix = ".research.json"

// Cost per million tokens, in USD. Rough figures for estimation only.
const (
	inputCostPerMTok  = 3.0
	outputCostPerMTok = 15.0
)

// StateStats aggregates results for one jurisdiction.
type StateStats struct {
	Processed int `json:"processed"`
	Issues    int `json:"issues"`
	Donors    int `json:"donors"`
	Errors    int `json:"errors"`
}

// LegislatorRow is one legislator's line in the summary.
type LegislatorRow struct {
	Name        string  `json:"name"`
	State       string  `json:"state"`
	IssuesCount int     `json:"issues_count"`
	DonorsCount int     `json:"donors_count"`
	HasError    bool    `json:"has_error"`
	LastUpdated string  `json:"last_updated"`
	Cost        float64 `json:"cost"`
}

// Summary is the consolidated report over all research results.
type Summary struct {
	RunDate          string                `json:"run_date"`
	TotalProcessed   int                   `json:"total_processed"`
	Successful       int                   `json:"successful"`
	Errors           int                   `json:"errors"`
	TotalIssues      int                   `json:"total_issues"`
	TotalDonors      int                   `json:"total_donors"`
	EstimatedCostUSD float64               `json:"estimated_cost_usd"`
	ByState          map[string]StateStats `json:"by_state"`
	Legislators      []LegislatorRow       `json:"legislators"`
}

// estimateCost converts token usage to an approximate USD figure.
func estimateCost(u types.TokenUsage) float64 {
	return float64(u.InputTokens)/1e6*inputCostPerMTok +
		float64(u.OutputTokens)/1e6*outputCostPerMTok
}

// Consolidate walks root/data for research result files and aggregates
// them. Unreadable or malformed files are skipped with a warning.
func Consolidate(root string) (*Summary, error) {
	summary := &Summary{
		RunDate: time.Now().Format(time.RFC3339),
		ByState: make(map[string]StateStats),
	}

	dataDir := filepath.Join(root, "data")
	if _, err := os.Stat(dataDir); err != nil {
		if os.IsNotExist(err) {
			return summary, nil
		}
		return nil, fmt.Errorf("reading results root %s: %w", dataDir, err)
	}

	var totalCost float64
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, researchSuffix) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable result", "path", path, "error", err)
			return nil
		}
		var result types.ResearchResult
		if err := json.Unmarshal(data, &result); err != nil {
			slog.Warn("skipping malformed result", "path", path, "error", err)
			return nil
		}

		state := result.State
		if state == "" {
			state = "Unknown"
		}
		stats := summary.ByState[state]
		stats.Processed++
		stats.Issues += len(result.Issues)
		stats.Donors += result.DonorCount()
		if result.IsError() {
			stats.Errors++
		}
		summary.ByState[state] = stats

		cost := estimateCost(result.Metadata.TokensUsed)
		totalCost += cost

		summary.Legislators = append(summary.Legislators, LegislatorRow{
			Name:        result.Name,
			State:       state,
			IssuesCount: len(result.Issues),
			DonorsCount: result.DonorCount(),
			HasError:    result.IsError(),
			LastUpdated: result.LastUpdated,
			Cost:        cost,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking results: %w", err)
	}

	sort.Slice(summary.Legislators, func(i, j int) bool {
		a, b := summary.Legislators[i], summary.Legislators[j]
		if a.State != b.State {
			return a.State < b.State
		}
		return a.Name < b.Name
	})

	for _, row := range summary.Legislators {
		summary.TotalProcessed++
		summary.TotalIssues += row.IssuesCount
		summary.TotalDonors += row.DonorsCount
		if row.HasError {
			summary.Errors++
		} else {
			summary.Successful++
		}
	}
	summary.EstimatedCostUSD = math.Round(totalCost*100) / 100

	return summary, nil
}

// Save writes the summary as indented JSON.
func (s *Summary) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Print renders a human-readable report.
func (s *Summary) Print(w io.Writer) {
	line := strings.Repeat("=", 50)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "LEGISLATOR RESEARCH SUMMARY")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Processed: %d legislators\n", s.TotalProcessed)
	fmt.Fprintf(w, "Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	fmt.Fprintf(w, "Total Issues Found: %d\n", s.TotalIssues)
	fmt.Fprintf(w, "Total Donors Found: %d\n", s.TotalDonors)
	fmt.Fprintf(w, "Estimated Cost: $%.2f\n", s.EstimatedCostUSD)
	fmt.Fprintln(w, "\nBy State:")

	states := make([]string, 0, len(s.ByState))
	for state := range s.ByState {
		states = append(states, state)
	}
	sort.Strings(states)
	for _, state := range states {
		stats := s.ByState[state]
		fmt.Fprintf(w, "  %s: %d processed, %d issues, %d donors\n",
			strings.ToUpper(state), stats.Processed, stats.Issues, stats.Donors)
	}
	fmt.Fprintln(w, line)
}
