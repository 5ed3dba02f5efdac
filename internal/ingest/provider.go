package ingest

// Result holds the outcome of an ingest operation.
type Result struct {
	RowsReceived     int      `json:"rows_received,omitempty"`
	WorkoutsCreated  int      `json:"workouts_created"`
	SetsCreated      int      `json:"sets_created"`
	ExercisesCreated int      `json:"exercises_created"`
	Errors           []string `json:"errors"`

	MetricsReceived       int      `json:"metrics_received,omitempty"`
	MetricsInserted       int64    `json:"metrics_inserted,omitempty"`
	MetricsSkipped        int64    `json:"metrics_skipped,omitempty"`
	MetricsRejected       int      `json:"metrics_rejected,omitempty"`
	RejectedNames         []string `json:"rejected_names,omitempty"`
	SleepSessionsInserted int      `json:"sleep_sessions_inserted,omitempty"`

	DryRun  bool   `json:"dry_run,omitempty"`
	Message string `json:"message,omitempty"`
}

// AddError records a non-fatal problem.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}
