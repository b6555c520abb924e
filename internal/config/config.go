package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // the default zone must resolve on hosts without zoneinfo

	"github.com/spf13/viper"

	"github.com/Veraticus/the-fines-must-flow/internal/accrual"
	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/mirror"
)

// Mirror backends.
const (
	BackendNone   = "none"
	BackendFile   = "file"
	BackendSheets = "sheets"
)

// Config is the resolved application configuration.
type Config struct {
	Location     *time.Location
	DatabasePath string
	Backend      string
	MirrorFile   string
	ServerAddr   string
	RosterSheet  string
	Calendar     accrual.Calendar
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(Dir(), "fines.db"))
	v.SetDefault("mirror.backend", BackendNone)
	v.SetDefault("mirror.file", "")
	v.SetDefault("periods.start", "2025-09-08")
	v.SetDefault("periods.breaks", []string{"2026-02-15..2026-02-28"})
	v.SetDefault("timezone", "Asia/Bangkok")
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("roster.sheet", mirror.RosterSheet)
	v.SetDefault("sheets.token_file", DefaultTokenFile())
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath: ExpandPath(v.GetString("database.path")),
		Backend:      strings.ToLower(strings.TrimSpace(v.GetString("mirror.backend"))),
		MirrorFile:   ExpandPath(v.GetString("mirror.file")),
		ServerAddr:   v.GetString("server.addr"),
		RosterSheet:  v.GetString("roster.sheet"),
	}

	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("%w: database.path", common.ErrMissingConfig)
	}

	switch cfg.Backend {
	case "", BackendNone:
		cfg.Backend = BackendNone
	case BackendFile:
		if cfg.MirrorFile == "" {
			return nil, fmt.Errorf("%w: mirror.file is required for the file backend", common.ErrMissingConfig)
		}
	case BackendSheets:
	default:
		return nil, fmt.Errorf("%w: unknown mirror.backend %q (want none, file or sheets)", common.ErrInvalidConfig, cfg.Backend)
	}

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("%w: timezone: %v", common.ErrInvalidConfig, err)
	}
	cfg.Location = loc

	cal, err := accrual.NewCalendar(v.GetString("periods.start"), v.GetStringSlice("periods.breaks"))
	if err != nil {
		return nil, err
	}
	cfg.Calendar = cal

	return cfg, nil
}
