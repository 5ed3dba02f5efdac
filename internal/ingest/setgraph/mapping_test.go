package setgraph

import (
	"testing"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/match"
	"github.com/claude/liftlog/internal/models"
)

func strPtr(s string) *string { return &s }

func rowsNamed(names ...string) []models.SetgraphRow {
	rows := make([]models.SetgraphRow, len(names))
	for i, n := range names {
		rows[i] = models.SetgraphRow{ExerciseName: n, Date: "2024-01-01", Repetitions: 5}
	}
	return rows
}

// TestAliasTargetsExist guards the alias table against catalog renames.
func TestAliasTargetsExist(t *testing.T) {
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	for name, id := range aliases {
		if name != match.Normalize(name) {
			t.Errorf("alias key %q is not normalized", name)
		}
		if id == "" {
			continue
		}
		if _, ok := c.Lookup(id); !ok {
			t.Errorf("alias %q points at unknown exercise %q", name, id)
		}
	}
}

func TestProposeMappingsSources(t *testing.T) {
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	custom := models.Exercise{ID: "custom-1", Name: "Sled Push", IsCustom: true}
	exercises := append(c.All(), custom)
	saved := []models.SetgraphExerciseMapping{
		{SetgraphName: "My Press", ExerciseID: strPtr("overhead-press")},
		{SetgraphName: "Gone", ExerciseID: strPtr("deleted-exercise")},
	}

	rows := rowsNamed(
		"My Press",
		"OHP",
		"Lat Pulldown",
		"Seated Leg Curls",
		"Sled Push",
		"Running",
		"Underwater Basket Weaving",
		"Gone",
		"OHP",
	)
	got := ProposeMappings(rows, exercises, saved)

	want := []struct {
		name   string
		id     string
		source string
		needs  bool
		count  int
	}{
		{"My Press", "overhead-press", SourceSaved, false, 1},
		{"OHP", "overhead-press", SourceAlias, false, 2},
		{"Lat Pulldown", "lat-pulldown", SourceExact, false, 1},
		{"Seated Leg Curls", "seated-leg-curl", SourceFuzzy, false, 1},
		{"Sled Push", "custom-1", SourceExact, false, 1},
		{"Running", "", SourceAlias, false, 1},
		{"Underwater Basket Weaving", "", SourceNone, true, 1},
		{"Gone", "", SourceNone, true, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("proposals = %d, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		p := got[i]
		if p.SetgraphName != w.name {
			t.Errorf("[%d] name = %q, want %q", i, p.SetgraphName, w.name)
		}
		gotID := ""
		if p.ExerciseID != nil {
			gotID = *p.ExerciseID
		}
		if gotID != w.id {
			t.Errorf("%s: exercise = %q, want %q", w.name, gotID, w.id)
		}
		if p.Source != w.source {
			t.Errorf("%s: source = %q, want %q", w.name, p.Source, w.source)
		}
		if p.NeedsMapping != w.needs {
			t.Errorf("%s: needsMapping = %v, want %v", w.name, p.NeedsMapping, w.needs)
		}
		if p.SetCount != w.count {
			t.Errorf("%s: set count = %d, want %d", w.name, p.SetCount, w.count)
		}
	}
}

// TestProposeMappingsAliasCreatesNew verifies that an alias mapped to "" never
// falls through to fuzzy matching.
func TestProposeMappingsAliasCreatesNew(t *testing.T) {
	exercises := []models.Exercise{{ID: "rowing", Name: "Rowing Machine Intervals"}}
	got := ProposeMappings(rowsNamed("Rowing Machine"), exercises, nil)
	if len(got) != 1 {
		t.Fatalf("proposals = %d", len(got))
	}
	if got[0].ExerciseID != nil || got[0].NeedsMapping {
		t.Errorf("got %+v, want create-new without review", got[0])
	}
}
