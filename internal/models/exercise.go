package models

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by stores when a record lookup has no match.
var ErrNotFound = errors.New("not found")

// MuscleGroupMiscellaneous is the catch-all group for exercises created
// without muscle metadata (e.g. during a Setgraph import).
const MuscleGroupMiscellaneous = "miscellaneous"

// Exercise is a catalog entry. Seed exercises are immutable; custom ones are
// created by the user or by an import.
type Exercise struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	PrimaryMuscleGroups   []string `json:"primary_muscle_groups"`
	SecondaryMuscleGroups []string `json:"secondary_muscle_groups"`
	Equipment             string   `json:"equipment"`
	Location              string   `json:"location,omitempty"`
	IsCustom              bool     `json:"is_custom"`
}

// HasMuscleGroup reports whether group appears in the primary or secondary groups.
func (e Exercise) HasMuscleGroup(group string) bool {
	for _, g := range e.PrimaryMuscleGroups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	for _, g := range e.SecondaryMuscleGroups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// ExerciseRecord is the stored/seeded shape of an exercise. Older records carry
// a single primary_muscle_group; newer ones carry the list form. Both decode
// into this struct and Exercise() folds them into one canonical list.
type ExerciseRecord struct {
	ID                    string   `json:"id" toml:"id"`
	Name                  string   `json:"name" toml:"name"`
	PrimaryMuscleGroup    string   `json:"primary_muscle_group,omitempty" toml:"primary_muscle_group"`
	PrimaryMuscleGroups   []string `json:"primary_muscle_groups,omitempty" toml:"primary_muscle_groups"`
	SecondaryMuscleGroups []string `json:"secondary_muscle_groups,omitempty" toml:"secondary_muscle_groups"`
	Equipment             string   `json:"equipment" toml:"equipment"`
	Location              string   `json:"location,omitempty" toml:"location"`
	IsCustom              bool     `json:"is_custom,omitempty" toml:"is_custom"`
}

// Exercise converts the record to the canonical model.
func (r ExerciseRecord) Exercise() Exercise {
	return Exercise{
		ID:                    r.ID,
		Name:                  r.Name,
		PrimaryMuscleGroups:   CanonicalPrimary(MergeMuscleGroups(r.PrimaryMuscleGroup, r.PrimaryMuscleGroups)),
		SecondaryMuscleGroups: MergeMuscleGroups("", r.SecondaryMuscleGroups),
		Equipment:             r.Equipment,
		Location:              r.Location,
		IsCustom:              r.IsCustom,
	}
}

// MergeMuscleGroups combines the legacy single-value field with the list field,
// lowercasing, trimming and de-duplicating while keeping first-seen order.
func MergeMuscleGroups(legacy string, groups []string) []string {
	seen := make(map[string]bool, len(groups)+1)
	out := make([]string, 0, len(groups)+1)
	add := func(g string) {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			return
		}
		seen[g] = true
		out = append(out, g)
	}
	for _, g := range groups {
		add(g)
	}
	add(legacy)
	return out
}

// CanonicalPrimary returns groups, or the miscellaneous group when empty.
func CanonicalPrimary(groups []string) []string {
	if len(groups) == 0 {
		return []string{MuscleGroupMiscellaneous}
	}
	return groups
}
