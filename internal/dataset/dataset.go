// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dataset reads legislator records from an OpenStates-style people
// tree: one directory per jurisdiction, one YAML file per person under a
// fixed legislature/ subdirectory.
package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/civicdata/legislator-research/pkg/types"
)

const legislatureDir = "legislature"

// personFile mirrors the subset of the source YAML schema the pipeline reads.
type personFile struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Party []struct {
		Name string `yaml:"name"`
	} `yaml:"party"`
	Roles []personRole `yaml:"roles"`
	Links []struct {
		URL  string `yaml:"url"`
		Note string `yaml:"note"`
	} `yaml:"links"`
}

type personRole struct {
	Type     string `yaml:"type"`
	District string `yaml:"district"`
	EndDate  string `yaml:"end_date"`
}

// legislative reports whether the role sits in a legislative chamber.
func (r personRole) legislative() bool {
	switch types.Chamber(r.Type) {
	case types.ChamberUpper, types.ChamberLower, types.ChamberLegislature:
		return true
	}
	return false
}

// active reports whether the role is current: no end date, a future end
// date, or an end date that cannot be parsed.
func (r personRole) active(now time.Time) bool {
	if !r.legislative() {
		return false
	}
	if r.EndDate == "" {
		return true
	}
	end, err := parseEndDate(r.EndDate)
	if err != nil {
		return true
	}
	return end.After(now)
}

// parseEndDate accepts the date formats that appear in the source data.
func parseEndDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// activeNow reports whether any role is a current legislative one.
func (pf *personFile) activeNow(now time.Time) bool {
	for _, role := range pf.Roles {
		if role.active(now) {
			return true
		}
	}
	return false
}

// record builds a PersonRecord from the parsed file. The state comes from
// the caller because it is encoded in the path, not the file.
func (pf *personFile) record(path, state string, now time.Time) types.PersonRecord {
	rec := types.PersonRecord{
		ID:         pf.ID,
		Name:       pf.Name,
		State:      state,
		Party:      "Unknown",
		Chamber:    types.ChamberLegislature,
		Active:     pf.activeNow(now),
		FileStem:   strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourcePath: path,
	}

	if len(pf.Party) > 0 && pf.Party[0].Name != "" {
		rec.Party = pf.Party[0].Name
	}

	// The current role is the first open-ended legislative one.
	for _, role := range pf.Roles {
		if role.legislative() && role.EndDate == "" {
			rec.District = role.District
			rec.Chamber = types.Chamber(role.Type)
			break
		}
	}

	if len(pf.Links) > 0 {
		rec.CampaignSite = pf.Links[0].URL
	}

	return rec
}

// parsePerson reads and validates one person YAML file.
func parsePerson(path string) (*personFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading person file %s: %w", path, err)
	}
	var pf personFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing person file %s: %w", path, err)
	}
	if pf.ID == "" || pf.Name == "" {
		return nil, fmt.Errorf("person file %s missing id or name", path)
	}
	return &pf, nil
}

// LoadPerson parses one person YAML file into a PersonRecord. Inactive
// people load fine; Walk applies the active filter.
func LoadPerson(path, state string) (*types.PersonRecord, error) {
	pf, err := parsePerson(path)
	if err != nil {
		return nil, err
	}
	rec := pf.record(path, state, time.Now())
	return &rec, nil
}

// Walk enumerates active people under root/data, optionally restricted to
// one jurisdiction code. The order is lexicographic by path, so repeated
// runs over an unchanged tree see the same sequence and the processing cap
// consumes the same candidates. Malformed files are skipped with a warning.
func Walk(root, locale string) ([]types.PersonRecord, error) {
	dataDir := filepath.Join(root, "data")
	if _, err := os.Stat(dataDir); err != nil {
		return nil, fmt.Errorf("reading people root %s: %w", dataDir, err)
	}

	statePattern := "*"
	if locale != "" {
		statePattern = locale
	}
	pattern := filepath.Join(dataDir, statePattern, legislatureDir, "*.yml")

	// Glob returns paths in lexical order.
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", pattern, err)
	}

	now := time.Now()
	var people []types.PersonRecord
	for _, path := range files {
		pf, err := parsePerson(path)
		if err != nil {
			slog.Warn("skipping malformed person file", "path", path, "error", err)
			continue
		}
		if !pf.activeNow(now) {
			continue
		}
		state := filepath.Base(filepath.Dir(filepath.Dir(path)))
		people = append(people, pf.record(path, state, now))
	}

	return people, nil
}
