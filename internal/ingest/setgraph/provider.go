package setgraph

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/models"
	"github.com/google/uuid"
)

const (
	kgPerLb = 0.45359237

	// DefaultBatchSize bounds the sets written per AddSets call.
	DefaultBatchSize = 500
)

// Store is the persistence the import pipeline needs.
type Store interface {
	GetExercises(ctx context.Context) ([]models.Exercise, error)
	AddExercise(ctx context.Context, ex models.Exercise) error
	AddWorkout(ctx context.Context, w models.Workout) error
	AddSets(ctx context.Context, sets []models.WorkoutSet) (int64, error)
	GetUserSettings(ctx context.Context) (models.UserSettings, error)
	GetSetgraphMappings(ctx context.Context) ([]models.SetgraphExerciseMapping, error)
	SaveSetgraphMappings(ctx context.Context, mappings []models.SetgraphExerciseMapping) error
}

// Provider runs Setgraph imports against a Store.
type Provider struct {
	store     Store
	log       *slog.Logger
	batchSize int
	unit      string
	newID     func() string
}

// NewProvider creates a Setgraph import provider. batchSize <= 0 selects
// DefaultBatchSize.
func NewProvider(store Store, log *slog.Logger, batchSize int) *Provider {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Provider{store: store, log: log, batchSize: batchSize, newID: uuid.NewString}
}

// WithWeightUnit makes plans read weights in unit instead of the stored
// user setting. The setting itself is left untouched.
func (p *Provider) WithWeightUnit(unit string) *Provider {
	p.unit = unit
	return p
}

// Propose loads the catalog and saved mappings and suggests a mapping for
// every distinct exercise name in rows.
func (p *Provider) Propose(ctx context.Context, rows []models.SetgraphRow) ([]Proposal, error) {
	exercises, err := p.store.GetExercises(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading exercises: %w", err)
	}
	saved, err := p.store.GetSetgraphMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading saved mappings: %w", err)
	}
	return ProposeMappings(rows, exercises, saved), nil
}

// Preview reports what Import would create without writing anything.
func (p *Provider) Preview(ctx context.Context, rows []models.SetgraphRow, mappings []models.SetgraphExerciseMapping) (*ingest.Result, error) {
	pl, err := p.plan(ctx, rows, mappings)
	if err != nil {
		return nil, err
	}
	res := pl.result(len(rows))
	res.DryRun = true
	return res, nil
}

// Import creates custom exercises for unmapped names, rebuilds one workout
// per calendar date, and persists the resolved mappings. Rows that cannot be
// resolved are skipped and listed in the result's errors. Importing the same
// file twice creates duplicate workouts.
func (p *Provider) Import(ctx context.Context, rows []models.SetgraphRow, mappings []models.SetgraphExerciseMapping) (*ingest.Result, error) {
	pl, err := p.plan(ctx, rows, mappings)
	if err != nil {
		return nil, err
	}

	for _, ex := range pl.newExercises {
		if err := p.store.AddExercise(ctx, ex); err != nil {
			return nil, fmt.Errorf("creating exercise %q: %w", ex.Name, err)
		}
	}

	for _, w := range pl.workouts {
		if err := p.store.AddWorkout(ctx, w.workout); err != nil {
			return nil, fmt.Errorf("creating workout for %s: %w", w.date, err)
		}
		for start := 0; start < len(w.sets); start += p.batchSize {
			end := min(start+p.batchSize, len(w.sets))
			if _, err := p.store.AddSets(ctx, w.sets[start:end]); err != nil {
				return nil, fmt.Errorf("creating sets for %s: %w", w.date, err)
			}
		}
	}

	if len(pl.mappings) > 0 {
		if err := p.store.SaveSetgraphMappings(ctx, pl.mappings); err != nil {
			return nil, fmt.Errorf("saving mappings: %w", err)
		}
	}

	res := pl.result(len(rows))
	p.log.Info("setgraph import complete",
		"rows", len(rows),
		"workouts", res.WorkoutsCreated,
		"sets", res.SetsCreated,
		"exercises", res.ExercisesCreated,
		"errors", len(res.Errors))
	return res, nil
}

type plannedWorkout struct {
	date    string
	workout models.Workout
	sets    []models.WorkoutSet
}

type importPlan struct {
	newExercises []models.Exercise
	workouts     []plannedWorkout
	mappings     []models.SetgraphExerciseMapping
	errors       []string
}

func (pl importPlan) result(rows int) *ingest.Result {
	res := &ingest.Result{
		RowsReceived:     rows,
		WorkoutsCreated:  len(pl.workouts),
		ExercisesCreated: len(pl.newExercises),
		Errors:           append([]string{}, pl.errors...),
	}
	for _, w := range pl.workouts {
		res.SetsCreated += len(w.sets)
	}
	return res
}

type datedRow struct {
	row        models.SetgraphRow
	at         time.Time
	exerciseID string
}

func (p *Provider) plan(ctx context.Context, rows []models.SetgraphRow, mappings []models.SetgraphExerciseMapping) (importPlan, error) {
	var pl importPlan

	settings, err := p.store.GetUserSettings(ctx)
	if err != nil {
		return pl, fmt.Errorf("loading settings: %w", err)
	}
	unit := settings.WithDefaults().WeightUnit
	if p.unit != "" {
		unit = p.unit
	}

	exercises, err := p.store.GetExercises(ctx)
	if err != nil {
		return pl, fmt.Errorf("loading exercises: %w", err)
	}
	known := make(map[string]bool, len(exercises))
	for _, ex := range exercises {
		known[ex.ID] = true
	}

	resolved := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if _, dup := resolved[m.SetgraphName]; dup {
			continue
		}
		var id string
		switch {
		case m.ExerciseID == nil || *m.ExerciseID == "":
			ex := models.Exercise{
				ID:                  p.newID(),
				Name:                m.SetgraphName,
				PrimaryMuscleGroups: []string{models.MuscleGroupMiscellaneous},
				IsCustom:            true,
			}
			pl.newExercises = append(pl.newExercises, ex)
			id = ex.ID
		case known[*m.ExerciseID]:
			id = *m.ExerciseID
		default:
			pl.errors = append(pl.errors, fmt.Sprintf("mapping for %q references unknown exercise %q", m.SetgraphName, *m.ExerciseID))
			continue
		}
		resolved[m.SetgraphName] = id
		idCopy := id
		pl.mappings = append(pl.mappings, models.SetgraphExerciseMapping{SetgraphName: m.SetgraphName, ExerciseID: &idCopy})
	}

	byDate := make(map[string][]datedRow)
	for i, row := range rows {
		id, ok := resolved[row.ExerciseName]
		if !ok {
			pl.errors = append(pl.errors, fmt.Sprintf("row %d: no mapping for exercise %q", i+1, row.ExerciseName))
			continue
		}
		at, err := ParseTimestamp(row.Date)
		if err != nil {
			pl.errors = append(pl.errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		date := calendarDate(at)
		byDate[date] = append(byDate[date], datedRow{row: row, at: at, exerciseID: id})
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	for _, date := range dates {
		group := byDate[date]
		sort.SliceStable(group, func(i, j int) bool { return group[i].at.Before(group[j].at) })

		completed := group[len(group)-1].at
		w := plannedWorkout{
			date: date,
			workout: models.Workout{
				ID:          p.newID(),
				StartedAt:   group[0].at,
				CompletedAt: &completed,
			},
		}
		for _, dr := range group {
			w.sets = append(w.sets, models.WorkoutSet{
				ID:         p.newID(),
				WorkoutID:  w.workout.ID,
				ExerciseID: dr.exerciseID,
				Reps:       int(math.Round(dr.row.Repetitions)),
				Weight:     rowWeight(dr.row, unit),
				LoggedAt:   dr.at,
			})
		}
		pl.workouts = append(pl.workouts, w)
	}
	return pl, nil
}

// rowWeight picks the column for the user's unit, converting from the other
// column when it is empty, rounded to one decimal.
func rowWeight(row models.SetgraphRow, unit string) float64 {
	var w float64
	switch {
	case unit == models.WeightUnitLb && row.WeightLb != nil:
		w = *row.WeightLb
	case unit == models.WeightUnitLb && row.WeightKg != nil:
		w = *row.WeightKg / kgPerLb
	case row.WeightKg != nil:
		w = *row.WeightKg
	case row.WeightLb != nil:
		w = *row.WeightLb * kgPerLb
	}
	return math.Max(0, math.Round(w*10)/10)
}
