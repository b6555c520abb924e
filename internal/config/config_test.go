package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	v := newViper(t)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, BackendNone, cfg.Backend)
	assert.Equal(t, "fines.db", filepath.Base(cfg.DatabasePath))
	assert.Equal(t, "Asia/Bangkok", cfg.Location.String())
	assert.Equal(t, "DS_LOP", cfg.RosterSheet)
	assert.Equal(t, "2025-09-08", cfg.Calendar.Start.Format("2006-01-02"))
	require.Len(t, cfg.Calendar.Breaks, 1)
	assert.Equal(t, 14, cfg.Calendar.Breaks[0].Days())

	march := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 24, cfg.Calendar.Period(march))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		set     map[string]any
		wantErr error
		name    string
	}{
		{name: "unknown backend", set: map[string]any{"mirror.backend": "ftp"}, wantErr: common.ErrInvalidConfig},
		{name: "file backend without file", set: map[string]any{"mirror.backend": "file"}, wantErr: common.ErrMissingConfig},
		{name: "bad timezone", set: map[string]any{"timezone": "Mars/Olympus"}, wantErr: common.ErrInvalidConfig},
		{name: "bad period start", set: map[string]any{"periods.start": "soon"}, wantErr: common.ErrInvalidConfig},
		{name: "bad break", set: map[string]any{"periods.breaks": []string{"2026-02-28..2026-02-15"}}, wantErr: common.ErrValidation},
		{name: "empty database", set: map[string]any{"database.path": ""}, wantErr: common.ErrMissingConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad_FileBackend(t *testing.T) {
	v := newViper(t)
	t.Setenv("FINES_TEST_DIR", "/data")
	v.Set("mirror.backend", "FILE")
	v.Set("mirror.file", "$FINES_TEST_DIR/so-theo-doi.xlsm")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.Backend)
	assert.Equal(t, "/data/so-theo-doi.xlsm", cfg.MirrorFile)
}

func TestLoadSheetsConfig(t *testing.T) {
	v := newViper(t)
	v.Set("sheets.spreadsheet_id", "abc")
	v.Set("sheets.client_id", "id")
	v.Set("sheets.client_secret", "secret")
	v.Set("sheets.retry_attempts", 5)
	v.Set("sheets.retry_delay", "2s")

	cfg, err := LoadSheetsConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.SpreadsheetID)
	assert.Equal(t, DefaultTokenFile(), cfg.TokenFile)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)

	_, err = LoadSheetsConfig(viper.New())
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("FINES_DATA", "/srv/fines")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, "/home/tester", ExpandPath("~"))
	assert.Equal(t, "/home/tester/fines.db", ExpandPath("~/fines.db"))
	assert.Equal(t, "/srv/fines/fines.db", ExpandPath("$FINES_DATA/fines.db"))
	assert.Equal(t, "relative/path", ExpandPath("relative/path"))
}

func TestDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/fines", Dir())
}
