package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/ingest/setgraph"
	"github.com/claude/liftlog/internal/localdb"
	"github.com/claude/liftlog/internal/models"
)

const benchCSV = `exerciseName,date,repetitions,weightLb,weightKg,note,labelName
Bench Press,2024-01-01 10:00:00,8,135,61.23,,
Sled Drag,2024-01-01 10:30:00,1,,,,
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadExport(t *testing.T) *setgraph.Export {
	t.Helper()
	export, err := setgraph.Scan(strings.NewReader(benchCSV))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return export
}

func TestDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "liftlog.db")
	db, err := localdb.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.SaveUserSettings(ctx, models.UserSettings{RestTimerSeconds: 90, WeightUnit: models.WeightUnitLb}); err != nil {
		t.Fatalf("SaveUserSettings: %v", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	icfg := config.ImportConfig{WeightUnit: models.WeightUnitKg, BatchSize: 500}
	opts := options{dryRun: true, createMissing: true}

	res, err := runLocal(ctx, db, cat, icfg, opts, loadExport(t), discardLogger())
	if err != nil {
		t.Fatalf("runLocal: %v", err)
	}
	if !res.DryRun || res.WorkoutsCreated != 1 || res.SetsCreated != 2 || res.ExercisesCreated != 1 {
		t.Errorf("result = %+v, want dry run with 1 workout, 2 sets, 1 exercise", res)
	}

	settings, err := db.GetUserSettings(ctx)
	if err != nil {
		t.Fatalf("GetUserSettings: %v", err)
	}
	if settings.WeightUnit != models.WeightUnitLb {
		t.Errorf("stored unit = %q, want lb", settings.WeightUnit)
	}
	exercises, err := db.GetExercises(ctx)
	if err != nil {
		t.Fatalf("GetExercises: %v", err)
	}
	if len(exercises) != 0 {
		t.Errorf("dry run stored %d exercises", len(exercises))
	}
	mappings, err := db.GetSetgraphMappings(ctx)
	if err != nil {
		t.Fatalf("GetSetgraphMappings: %v", err)
	}
	if len(mappings) != 0 {
		t.Errorf("dry run stored %d mappings", len(mappings))
	}
}

func TestImportKeepsStoredUnit(t *testing.T) {
	ctx := context.Background()
	db, err := localdb.Open(localdb.MemoryPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	if err := db.SaveUserSettings(ctx, models.UserSettings{RestTimerSeconds: 90, WeightUnit: models.WeightUnitLb}); err != nil {
		t.Fatalf("SaveUserSettings: %v", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	icfg := config.ImportConfig{WeightUnit: models.WeightUnitKg, BatchSize: 500}
	opts := options{createMissing: true}

	res, err := runLocal(ctx, db, cat, icfg, opts, loadExport(t), discardLogger())
	if err != nil {
		t.Fatalf("runLocal: %v", err)
	}
	if res.DryRun || res.WorkoutsCreated != 1 || res.SetsCreated != 2 {
		t.Errorf("result = %+v, want 1 workout, 2 sets", res)
	}

	settings, err := db.GetUserSettings(ctx)
	if err != nil {
		t.Fatalf("GetUserSettings: %v", err)
	}
	if settings.WeightUnit != models.WeightUnitLb {
		t.Errorf("stored unit = %q, want lb", settings.WeightUnit)
	}
	exercises, err := db.GetExercises(ctx)
	if err != nil {
		t.Fatalf("GetExercises: %v", err)
	}
	if len(exercises) != cat.Len()+1 {
		t.Errorf("stored %d exercises, want catalog plus one custom (%d)", len(exercises), cat.Len()+1)
	}
}
