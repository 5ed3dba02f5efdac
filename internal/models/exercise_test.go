package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

// TestExerciseRecordLegacyField verifies that a record using the old single
// primary_muscle_group field decodes to the canonical list form.
func TestExerciseRecordLegacyField(t *testing.T) {
	raw := `{"id":"squat","name":"Squat","primary_muscle_group":"Quadriceps","equipment":"barbell"}`
	var rec ExerciseRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ex := rec.Exercise()
	if !reflect.DeepEqual(ex.PrimaryMuscleGroups, []string{"quadriceps"}) {
		t.Errorf("primary = %v, want [quadriceps]", ex.PrimaryMuscleGroups)
	}
}

// TestExerciseRecordListField verifies the list form passes through unchanged
// apart from case folding and de-duplication.
func TestExerciseRecordListField(t *testing.T) {
	rec := ExerciseRecord{
		ID:                  "bench",
		Name:                "Bench Press",
		PrimaryMuscleGroups: []string{"Chest", "chest", " triceps "},
	}
	ex := rec.Exercise()
	if !reflect.DeepEqual(ex.PrimaryMuscleGroups, []string{"chest", "triceps"}) {
		t.Errorf("primary = %v, want [chest triceps]", ex.PrimaryMuscleGroups)
	}
}

// TestExerciseRecordBothFields verifies that a half-migrated record carrying
// both shapes yields one merged list.
func TestExerciseRecordBothFields(t *testing.T) {
	rec := ExerciseRecord{
		PrimaryMuscleGroup:  "back",
		PrimaryMuscleGroups: []string{"lats", "back"},
	}
	got := rec.Exercise().PrimaryMuscleGroups
	if !reflect.DeepEqual(got, []string{"lats", "back"}) {
		t.Errorf("primary = %v, want [lats back]", got)
	}
}

// TestExerciseRecordNoGroups verifies the miscellaneous fallback.
func TestExerciseRecordNoGroups(t *testing.T) {
	got := ExerciseRecord{Name: "Mystery"}.Exercise().PrimaryMuscleGroups
	if !reflect.DeepEqual(got, []string{MuscleGroupMiscellaneous}) {
		t.Errorf("primary = %v, want [%s]", got, MuscleGroupMiscellaneous)
	}
}

func TestHasMuscleGroup(t *testing.T) {
	ex := Exercise{PrimaryMuscleGroups: []string{"chest"}, SecondaryMuscleGroups: []string{"triceps"}}
	if !ex.HasMuscleGroup("Triceps") {
		t.Error("expected secondary group match")
	}
	if ex.HasMuscleGroup("legs") {
		t.Error("unexpected match for legs")
	}
}

func TestUserSettingsWithDefaults(t *testing.T) {
	got := UserSettings{WeightUnit: "stone"}.WithDefaults()
	if got.RestTimerSeconds != DefaultRestTimerSeconds {
		t.Errorf("rest = %d, want %d", got.RestTimerSeconds, DefaultRestTimerSeconds)
	}
	if got.WeightUnit != WeightUnitKg {
		t.Errorf("unit = %q, want kg", got.WeightUnit)
	}
	kept := UserSettings{RestTimerSeconds: 120, WeightUnit: WeightUnitLb}.WithDefaults()
	if kept.RestTimerSeconds != 120 || kept.WeightUnit != WeightUnitLb {
		t.Errorf("settings overwritten: %+v", kept)
	}
}
