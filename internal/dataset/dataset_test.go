// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/civicdata/legislator-research/pkg/types"
)

const samplePerson = `id: ocd-person/abc123
name: John Doe
party:
- name: Democratic
roles:
- type: upper
  district: "3"
  jurisdiction: ocd-jurisdiction/country:us/state:ak/government
links:
- url: https://johndoe.example.com
  note: Campaign website
`

const retiredPerson = `id: ocd-person/ret456
name: Jane Retired
party:
- name: Republican
roles:
- type: lower
  district: "7"
  end_date: "2019-01-02"
`

const futureEndPerson = `id: ocd-person/fut789
name: Fran Future
roles:
- type: legislature
  district: "1"
  end_date: "2199-12-31"
`

// writePerson creates root/data/{state}/legislature/{stem}.yml.
func writePerson(t *testing.T, root, state, stem, content string) string {
	t.Helper()
	dir := filepath.Join(root, "data", state, legislatureDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, stem+".yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPerson(t *testing.T) {
	root := t.TempDir()
	path := writePerson(t, root, "ak", "john-doe-abc123", samplePerson)

	rec, err := LoadPerson(path, "ak")
	if err != nil {
		t.Fatalf("LoadPerson: %v", err)
	}

	want := types.PersonRecord{
		ID:           "ocd-person/abc123",
		Name:         "John Doe",
		State:        "ak",
		Party:        "Democratic",
		District:     "3",
		Chamber:      types.ChamberUpper,
		Active:       true,
		CampaignSite: "https://johndoe.example.com",
		FileStem:     "john-doe-abc123",
		SourcePath:   path,
	}
	if *rec != want {
		t.Errorf("LoadPerson = %+v, want %+v", *rec, want)
	}
}

func TestLoadPersonDefaults(t *testing.T) {
	root := t.TempDir()
	path := writePerson(t, root, "wy", "min-1", "id: ocd-person/min\nname: Min Person\n")

	rec, err := LoadPerson(path, "wy")
	if err != nil {
		t.Fatalf("LoadPerson: %v", err)
	}
	if rec.Party != "Unknown" {
		t.Errorf("Party = %q, want Unknown", rec.Party)
	}
	if rec.Chamber != types.ChamberLegislature {
		t.Errorf("Chamber = %q, want legislature", rec.Chamber)
	}
	if rec.CampaignSite != "" {
		t.Errorf("CampaignSite = %q, want empty", rec.CampaignSite)
	}
	if rec.Active {
		t.Error("Active = true for a person with no roles")
	}
}

func TestLoadPersonInactive(t *testing.T) {
	root := t.TempDir()
	path := writePerson(t, root, "ak", "jane-retired-ret456", retiredPerson)

	rec, err := LoadPerson(path, "ak")
	if err != nil {
		t.Fatalf("LoadPerson: %v", err)
	}
	if rec.Active {
		t.Error("Active = true for a retired person")
	}
}

func TestLoadPersonMalformed(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "id: [unclosed\n"},
		{"missing id", "name: No Id\n"},
		{"missing name", "id: ocd-person/x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePerson(t, root, "tx", "bad-"+tt.name, tt.content)
			if _, err := LoadPerson(path, "tx"); err == nil {
				t.Error("LoadPerson succeeded, want error")
			}
		})
	}
}

func TestRoleActive(t *testing.T) {
	tests := []struct {
		name string
		role personRole
		want bool
	}{
		{"open ended", personRole{Type: "upper"}, true},
		{"past end date", personRole{Type: "upper", EndDate: "2019-01-02"}, false},
		{"future end date", personRole{Type: "lower", EndDate: "2199-12-31"}, true},
		{"unparseable end date", personRole{Type: "legislature", EndDate: "soon"}, true},
		{"non legislative", personRole{Type: "governor"}, false},
		{"non legislative with no end", personRole{Type: "mayor"}, false},
	}
	now := time.Now()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.active(now); got != tt.want {
				t.Errorf("active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWalk(t *testing.T) {
	root := t.TempDir()
	writePerson(t, root, "ak", "john-doe-abc123", samplePerson)
	writePerson(t, root, "ak", "jane-retired-ret456", retiredPerson)
	writePerson(t, root, "tx", "fran-future-fut789", futureEndPerson)
	writePerson(t, root, "tx", "broken-record", "id: [unclosed\n")

	people, err := Walk(root, "")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	// Retired and malformed records are excluded; order is lexicographic
	// by path so ak precedes tx.
	if len(people) != 2 {
		t.Fatalf("got %d people, want 2: %+v", len(people), people)
	}
	if people[0].ID != "ocd-person/abc123" || people[0].State != "ak" {
		t.Errorf("people[0] = %+v, want john-doe in ak", people[0])
	}
	if people[1].ID != "ocd-person/fut789" || people[1].State != "tx" {
		t.Errorf("people[1] = %+v, want fran-future in tx", people[1])
	}
}

func TestWalkDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	for _, stem := range []string{"zed-z-3", "ann-a-1", "mid-m-2"} {
		writePerson(t, root, "vt", stem, "id: ocd-person/"+stem+"\nname: P\nroles:\n- type: upper\n")
	}

	first, err := Walk(root, "")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	second, err := Walk(root, "")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(first) != 3 {
		t.Fatalf("got %d people, want 3", len(first))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("order differs at %d: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
	// Lexicographic by file stem.
	if first[0].FileStem != "ann-a-1" || first[2].FileStem != "zed-z-3" {
		t.Errorf("unexpected order: %q, %q, %q", first[0].FileStem, first[1].FileStem, first[2].FileStem)
	}
}

func TestWalkLocaleFilter(t *testing.T) {
	root := t.TempDir()
	writePerson(t, root, "ak", "john-doe-abc123", samplePerson)
	writePerson(t, root, "tx", "fran-future-fut789", futureEndPerson)

	people, err := Walk(root, "tx")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(people) != 1 {
		t.Fatalf("got %d people, want 1", len(people))
	}
	if people[0].State != "tx" {
		t.Errorf("State = %q, want tx", people[0].State)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	if _, err := Walk(filepath.Join(t.TempDir(), "nope"), ""); err == nil {
		t.Error("Walk succeeded on missing root, want error")
	}
}
