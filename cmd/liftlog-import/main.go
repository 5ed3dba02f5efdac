package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/claude/liftlog/internal/catalog"
	"github.com/claude/liftlog/internal/config"
	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/setgraph"
	"github.com/claude/liftlog/internal/localdb"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/upload"
	"github.com/gofrs/flock"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type options struct {
	file          string
	serverURL     string
	apiKey        string
	dryRun        bool
	force         bool
	createMissing bool
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (optional)")
	var opts options
	flag.StringVar(&opts.file, "file", "", "path to a Setgraph CSV export (required)")
	flag.StringVar(&opts.serverURL, "server", "", "LiftLog server URL; imports into the local SQLite store when empty")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key for -server (defaults to auth.api_key)")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "plan the import without writing")
	flag.BoolVar(&opts.force, "force", false, "import even if this export was imported before")
	flag.BoolVar(&opts.createMissing, "create-missing", false, "create custom exercises for names without a match")
	stateDir := flag.String("state", "", "directory for import state (default ~/.liftlog-import)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftlog-import", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if opts.file == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import -file export.csv [-server URL] [-dry-run] [-create-missing]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.LoadLocal(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if opts.apiKey == "" {
		opts.apiKey = cfg.Auth.APIKey
	}
	opts.serverURL = strings.TrimRight(opts.serverURL, "/")

	if *stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(home, ".liftlog-import")
	}
	state, err := upload.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	data, err := os.ReadFile(opts.file)
	if err != nil {
		log.Error("failed to read export", "file", opts.file, "error", err)
		os.Exit(1)
	}

	export, err := setgraph.Scan(bytes.NewReader(data))
	if err != nil {
		log.Error("failed to read export", "file", opts.file, "error", err)
		os.Exit(1)
	}
	v := export.Validate()
	for _, w := range v.Warnings {
		log.Warn(w)
	}
	if !v.Valid {
		for _, e := range v.Errors {
			log.Error(e)
		}
		os.Exit(1)
	}
	log.Info("export validated", "file", opts.file, "rows", v.RowCount)

	target := opts.serverURL
	if target == "" {
		target, _ = filepath.Abs(cfg.Local.Path)
	}
	hash := upload.HashBytes(data)
	if !opts.force && !opts.dryRun {
		done, err := state.IsImported(hash, target)
		if err != nil {
			log.Error("failed to check import state", "error", err)
			os.Exit(1)
		}
		if done {
			log.Info("export already imported; use -force to import again", "target", target)
			return
		}
	}

	var res *ingest.Result
	if opts.serverURL != "" {
		res, err = importRemote(opts, data, log)
	} else {
		res, err = importLocal(cfg, opts, export, log)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(resultTable(res))
	for _, e := range res.Errors {
		log.Warn("import error", "detail", e)
	}
	if opts.dryRun {
		log.Info("dry run: nothing was written")
		return
	}
	if err := state.MarkImported(hash, target, filepath.Base(opts.file), int64(len(data)), res.WorkoutsCreated, res.SetsCreated); err != nil {
		log.Warn("failed to record import", "error", err)
	}
	log.Info("import complete")
}

// reviewed prints the proposals and returns the mappings to import with.
// Names without a match stop the import unless createMissing is set.
func reviewed(proposals []setgraph.Proposal, names map[string]string, createMissing bool) ([]string, bool) {
	fmt.Println(proposalTable(proposals, names))
	var pending []string
	for _, p := range proposals {
		if p.NeedsMapping {
			pending = append(pending, p.SetgraphName)
		}
	}
	return pending, len(pending) == 0 || createMissing
}

func importLocal(cfg *config.Config, opts options, export *setgraph.Export, log *slog.Logger) (*ingest.Result, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	if opts.dryRun {
		path := cfg.Local.Path
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = localdb.MemoryPath
		}
		db, err := localdb.Open(path)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return runLocal(context.Background(), db, cat, cfg.Import, opts, export, log)
	}

	// One writer per local store; the server never opens this file.
	lock := flock.New(cfg.Local.Path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another import is using %s", cfg.Local.Path)
	}
	defer lock.Unlock()

	db, err := localdb.Open(cfg.Local.Path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return runLocal(context.Background(), db, cat, cfg.Import, opts, export, log)
}

// runLocal imports into db. A dry run reads the catalog alongside the store
// instead of seeding it, and writes nothing.
func runLocal(ctx context.Context, db *localdb.DB, cat *catalog.Catalog, icfg config.ImportConfig, opts options, export *setgraph.Export, log *slog.Logger) (*ingest.Result, error) {
	var store setgraph.Store = db
	if opts.dryRun {
		store = catalogView{Store: db, catalog: cat.All()}
	} else if _, err := db.SeedExercises(ctx, cat.All()); err != nil {
		return nil, err
	}

	provider := setgraph.NewProvider(store, log, icfg.BatchSize).WithWeightUnit(icfg.WeightUnit)
	proposals, err := provider.Propose(ctx, export.Rows)
	if err != nil {
		return nil, err
	}

	exercises, err := store.GetExercises(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(exercises))
	for _, ex := range exercises {
		names[ex.ID] = ex.Name
	}

	pending, proceed := reviewed(proposals, names, opts.createMissing)
	if !proceed {
		return nil, fmt.Errorf("no match for %s; rerun with -create-missing to create them", strings.Join(pending, ", "))
	}

	mappings := setgraph.Confirmed(proposals)
	if opts.dryRun {
		return provider.Preview(ctx, export.Rows, mappings)
	}
	return provider.Import(ctx, export.Rows, mappings)
}

// catalogView lists the seed catalog with the stored exercises without
// seeding the store.
type catalogView struct {
	setgraph.Store
	catalog []models.Exercise
}

func (v catalogView) GetExercises(ctx context.Context) ([]models.Exercise, error) {
	stored, err := v.Store.GetExercises(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(stored))
	for _, ex := range stored {
		seen[ex.ID] = true
	}
	var out []models.Exercise
	for _, ex := range v.catalog {
		if !seen[ex.ID] {
			out = append(out, ex)
		}
	}
	return append(out, stored...), nil
}

func importRemote(opts options, data []byte, log *slog.Logger) (*ingest.Result, error) {
	client := upload.NewClient(opts.serverURL, opts.apiKey)
	proposals, err := client.Propose(data)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	if cat, err := catalog.Load(); err == nil {
		for _, ex := range cat.All() {
			names[ex.ID] = ex.Name
		}
	}
	pending, proceed := reviewed(proposals, names, opts.createMissing)
	if !proceed {
		return nil, fmt.Errorf("no match for %s; rerun with -create-missing to create them", strings.Join(pending, ", "))
	}

	log.Info("uploading export", "server", opts.serverURL, "mappings", len(proposals))
	return client.Import(filepath.Base(opts.file), data, setgraph.Confirmed(proposals), opts.dryRun)
}
