// Package catalog holds the seed exercise registry shipped with LiftLog.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/claude/liftlog/internal/match"
	"github.com/claude/liftlog/internal/models"
	"github.com/pelletier/go-toml/v2"
)

//go:embed exercises.toml
var seedTOML []byte

type seedFile struct {
	Exercises []models.ExerciseRecord `toml:"exercise"`
}

// Catalog is an ordered, read-only set of exercises.
type Catalog struct {
	exercises []models.Exercise
	byID      map[string]int
}

// Load parses the embedded seed catalog.
func Load() (*Catalog, error) {
	return Parse(seedTOML)
}

// Parse builds a catalog from TOML [[exercise]] tables. Ids must be unique.
func Parse(data []byte) (*Catalog, error) {
	var f seedFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing exercise catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(f.Exercises))}
	for _, rec := range f.Exercises {
		if rec.ID == "" || rec.Name == "" {
			return nil, fmt.Errorf("catalog entry missing id or name: %+v", rec)
		}
		if _, dup := c.byID[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %q", rec.ID)
		}
		c.byID[rec.ID] = len(c.exercises)
		c.exercises = append(c.exercises, rec.Exercise())
	}
	return c, nil
}

// All returns the exercises in catalog order.
func (c *Catalog) All() []models.Exercise {
	out := make([]models.Exercise, len(c.exercises))
	copy(out, c.exercises)
	return out
}

// Len returns the number of exercises.
func (c *Catalog) Len() int { return len(c.exercises) }

// Lookup returns the exercise with the given id.
func (c *Catalog) Lookup(id string) (models.Exercise, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Exercise{}, false
	}
	return c.exercises[i], true
}

// Search filters the catalog. See Filter.
func (c *Catalog) Search(q Query) []models.Exercise {
	return Filter(c.exercises, q)
}

// Query narrows an exercise list. Empty fields match everything.
type Query struct {
	Text        string
	MuscleGroup string
	Equipment   string
}

// Filter returns the exercises matching q, preserving input order. Text
// matches when every normalized query token appears in the normalized name.
func Filter(exercises []models.Exercise, q Query) []models.Exercise {
	tokens := strings.Fields(match.Normalize(q.Text))
	out := make([]models.Exercise, 0)
	for _, ex := range exercises {
		if q.MuscleGroup != "" && !ex.HasMuscleGroup(q.MuscleGroup) {
			continue
		}
		if q.Equipment != "" && !strings.EqualFold(ex.Equipment, q.Equipment) {
			continue
		}
		if len(tokens) > 0 {
			name := match.Normalize(ex.Name)
			ok := true
			for _, tok := range tokens {
				if !strings.Contains(name, tok) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, ex)
	}
	return out
}
