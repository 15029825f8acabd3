// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives the research batch: enumerate candidates, skip
// the already-researched, invoke the backend one person at a time, and
// write each result to the mirrored output tree.
//
// Processing is strictly sequential. The external backend's rate limits
// rule out parallel fan-out, and sequential processing is what lets the
// completion check stand in for locking: at most one result file per
// person exists, and a run aborted between items leaves only valid files.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/civicdata/legislator-research/internal/dataset"
	"github.com/civicdata/legislator-research/pkg/types"
)

const (
	legislatureDir = "legislature"
	researchSuffix = ".research.json"
)

// Invoker produces the result record for one person. Implementations never
// return an error; failures surface as the error-variant result.
type Invoker interface {
	Research(ctx context.Context, rec types.PersonRecord) *types.ResearchResult
}

// ItemStatus classifies one person's outcome within a run.
type ItemStatus string

const (
	StatusSucceeded ItemStatus = "succeeded"
	StatusFailed    ItemStatus = "failed"
	StatusSkipped   ItemStatus = "skipped"
)

// Recorder persists per-item outcomes, e.g. into the run ledger. Recording
// failures must not abort the batch; implementations report them on their
// own channel.
type Recorder interface {
	RecordItem(rec types.PersonRecord, status ItemStatus, errMsg string) error
}

// RunSummary aggregates the outcome of one batch run.
type RunSummary struct {
	// Candidates is the number of active people the walk produced.
	Candidates int `json:"candidates"`

	// Skipped counts people whose research output already existed.
	Skipped int `json:"skipped"`

	// Succeeded counts newly written success-variant results.
	Succeeded int `json:"succeeded"`

	// Failed counts error-variant results and output write failures.
	Failed int `json:"failed"`

	// Usage totals backend token consumption across the run.
	Usage types.TokenUsage `json:"tokens_used"`
}

// Processed returns the number of people that consumed the cap.
func (s RunSummary) Processed() int {
	return s.Succeeded + s.Failed
}

// HasFailures reports whether any person failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}

// OutputPath returns the result path mirroring a person's source location:
// {root}/data/{state}/legislature/{stem}.research.json.
func OutputPath(outputRoot, state, stem string) string {
	return filepath.Join(outputRoot, "data", state, legislatureDir, stem+researchSuffix)
}

// Completed reports whether research output already exists for the person.
// It stats the filesystem on every call, so work completed externally since
// run start is still seen.
func Completed(outputRoot, state, stem string) bool {
	_, err := os.Stat(OutputPath(outputRoot, state, stem))
	return err == nil
}

// WriteResult serializes one result to its mirrored output path, creating
// directories as needed. The result lands via a temp file and rename so a
// write failure leaves no partial file; an existing file is overwritten.
func WriteResult(outputRoot string, result *types.ResearchResult, stem string) error {
	destPath := OutputPath(outputRoot, result.State, stem)

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".research-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing result: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Run executes one batch: walk the dataset, skip completed people, research
// and write the rest until the cap is reached. One person's failure never
// aborts the batch; only structural problems (unreadable input root,
// unwritable output root) return an error. recorder may be nil.
func Run(ctx context.Context, cfg types.PipelineConfig, inv Invoker, recorder Recorder, w io.Writer) (RunSummary, error) {
	var summary RunSummary

	people, err := dataset.Walk(cfg.DataDir, cfg.Locale)
	if err != nil {
		return summary, err
	}
	summary.Candidates = len(people)

	// Fail on an unwritable output root before touching the backend.
	if err := os.MkdirAll(filepath.Join(cfg.OutputDir, "data"), 0o755); err != nil {
		return summary, fmt.Errorf("creating output root: %w", err)
	}

	maxPeople := cfg.MaxPeople
	if maxPeople <= 0 {
		maxPeople = 10
	}

	for _, rec := range people {
		if summary.Processed() >= maxPeople {
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if !cfg.Force && Completed(cfg.OutputDir, rec.State, rec.FileStem) {
			summary.Skipped++
			fmt.Fprintf(w, "skipped %s (%s): already researched\n", rec.Name, rec.State)
			record(recorder, w, rec, StatusSkipped, "")
			continue
		}

		// Pace consecutive backend calls.
		if summary.Processed() > 0 && cfg.RequestDelay > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(cfg.RequestDelay):
			}
		}

		fmt.Fprintf(w, "researching %s (%s)\n", rec.Name, rec.State)
		result := invokeSafely(ctx, inv, rec)
		summary.Usage.Add(result.Metadata.TokensUsed)

		writeErr := WriteResult(cfg.OutputDir, result, rec.FileStem)
		switch {
		case writeErr != nil:
			summary.Failed++
			fmt.Fprintf(w, "failed  %s: write error: %v\n", rec.Name, writeErr)
			record(recorder, w, rec, StatusFailed, writeErr.Error())
		case result.IsError():
			summary.Failed++
			fmt.Fprintf(w, "failed  %s: %s\n", rec.Name, result.Error)
			record(recorder, w, rec, StatusFailed, result.Error)
		default:
			summary.Succeeded++
			fmt.Fprintf(w, "researched %s (%d issues, %d donors)\n",
				rec.Name, len(result.Issues), result.DonorCount())
			record(recorder, w, rec, StatusSucceeded, "")
		}
	}

	fmt.Fprintf(w, "\nRun summary: %d candidates, %d skipped, %d succeeded, %d failed (tokens: %d in / %d out)\n",
		summary.Candidates, summary.Skipped, summary.Succeeded, summary.Failed,
		summary.Usage.InputTokens, summary.Usage.OutputTokens)

	return summary, nil
}

// invokeSafely shields the batch from a panicking invoker by converting the
// panic into an error-variant result.
func invokeSafely(ctx context.Context, inv Invoker, rec types.PersonRecord) (result *types.ResearchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = panicResult(rec, r)
		}
	}()
	return inv.Research(ctx, rec)
}

// panicResult builds a minimal error-variant record for a panicking invoker.
func panicResult(rec types.PersonRecord, cause any) *types.ResearchResult {
	now := time.Now().Format(time.RFC3339)
	result := &types.ResearchResult{
		LegislatorID: rec.ID,
		Name:         rec.Name,
		State:        rec.State,
		LastUpdated:  now,
		Error:        fmt.Sprintf("research panic: %v", cause),
		Donors:       types.DonorProfile{DataSource: "Error occurred"},
		Metadata: types.ProcessingMetadata{
			ProcessedDate: now,
			Error:         true,
		},
	}
	result.NormalizeLists()
	return result
}

// record forwards one outcome to the ledger, reporting rather than
// propagating recording failures.
func record(r Recorder, w io.Writer, rec types.PersonRecord, status ItemStatus, errMsg string) {
	if r == nil {
		return
	}
	if err := r.RecordItem(rec, status, errMsg); err != nil {
		fmt.Fprintf(w, "warning: recording %s: %v\n", rec.ID, err)
	}
}
