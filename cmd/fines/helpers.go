package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/config"
	"github.com/Veraticus/the-fines-must-flow/internal/engine"
	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
	"github.com/Veraticus/the-fines-must-flow/internal/model"
	"github.com/Veraticus/the-fines-must-flow/internal/notify"
	"github.com/Veraticus/the-fines-must-flow/internal/roster"
	"github.com/Veraticus/the-fines-must-flow/internal/sheets"
	"github.com/Veraticus/the-fines-must-flow/internal/storage"
	"github.com/Veraticus/the-fines-must-flow/internal/workbook"
)

// app is everything a command needs, built from the loaded config.
type app struct {
	cfg    *config.Config
	store  *storage.SQLiteStorage
	book   mirror.Workbook // nil when mirroring is off
	roster *roster.Roster
	engine *engine.Engine
	logger *slog.Logger
	close  func() error
}

// openApp builds the app each command runs against.
var openApp = newApp

// initStorage opens the database, migrates it and seeds the category
// registry on first use.
func initStorage(ctx context.Context, path string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if _, err := store.SeedDefaultCategories(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to seed categories: %w", err)
	}

	return store, nil
}

// openBook returns the configured mirror workbook, or nil for none.
func openBook(ctx context.Context, cfg *config.Config, logger *slog.Logger) (mirror.Workbook, error) {
	switch cfg.Backend {
	case config.BackendFile:
		book, err := workbook.Open(cfg.MirrorFile, logger)
		if errors.Is(err, workbook.ErrFileNotFound) {
			logger.Info("creating mirror workbook", "path", cfg.MirrorFile)
			book, err = workbook.Create(cfg.MirrorFile, logger)
		}
		if err != nil {
			return nil, err
		}
		return book, nil
	case config.BackendSheets:
		sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
		if err != nil {
			return nil, err
		}
		book, err := sheets.NewWorkbook(ctx, *sheetsConfig, logger)
		if err != nil {
			return nil, err
		}
		return book, nil
	default:
		return nil, nil
	}
}

// newApp loads the config, then opens the store and the mirror.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("check your fines configuration", err)
	}
	logger := slog.Default()

	store, err := initStorage(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	book, err := openBook(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, common.NewUserError("could not open the spreadsheet mirror",
			fmt.Errorf("%w: %v", common.ErrMirrorUnavailable, err))
	}

	var source roster.Source
	switch {
	case book != nil:
		source = roster.WorkbookSource{Book: book, Sheet: cfg.RosterSheet}
	case viper.IsSet("roster.names"):
		source = roster.StaticSource(viper.GetStringSlice("roster.names"))
	}

	a := assembleApp(cfg, store, book, source, logger)
	a.close = store.Close
	return a, nil
}

// assembleApp wires the roster, notifications and engine around an open
// store and an optional mirror.
func assembleApp(cfg *config.Config, store *storage.SQLiteStorage, book mirror.Workbook, source roster.Source, logger *slog.Logger) *app {
	names := roster.New(source, logger)

	engineConfig := engine.DefaultConfig()
	engineConfig.Location = cfg.Location
	engineConfig.Calendar = cfg.Calendar

	eng := engine.New(
		store,
		mirror.NewSynchronizer(book, logger),
		notify.NewDispatcher(store, logger, cfg.Location),
		names,
		logger,
		engineConfig,
	)

	return &app{cfg: cfg, store: store, book: book, roster: names, engine: eng, logger: logger}
}

func (a *app) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// refreshRoster loads the roster, logging rather than failing.
func (a *app) refreshRoster(ctx context.Context) {
	if err := a.roster.Refresh(ctx); err != nil {
		a.logger.Warn("roster unavailable", "error", err)
	}
}

// parseDate reads YYYY-MM-DD; empty means today.
func parseDate(s string, today time.Time) (time.Time, error) {
	if s == "" {
		return today, nil
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(model.DateLayout)
}

// warnMirror prints a warning when a mirror write did not land.
func warnMirror(res mirror.Result) string {
	if res.OK() {
		return ""
	}
	return fmt.Sprintf("Spreadsheet not updated (%s %s): %v", res.Op, res.Sheet, res.Err)
}
