package models

// SetgraphRow is one logged set from a Setgraph CSV export.
type SetgraphRow struct {
	ExerciseName string
	Date         string
	Repetitions  float64
	WeightLb     *float64
	WeightKg     *float64
	Note         string
	LabelName    string
}

// SetgraphExerciseMapping links a Setgraph exercise name to a catalog exercise.
// A nil ExerciseID means a custom exercise is created at import time.
type SetgraphExerciseMapping struct {
	SetgraphName string  `json:"setgraph_name"`
	ExerciseID   *string `json:"exercise_id"`
	NeedsMapping bool    `json:"needs_mapping"`
}
