package config

import (
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-fines-must-flow/internal/sheets"
)

// LoadSheetsConfig reads the sheets.* keys, falls back to FINES_SHEETS_*
// environment variables for anything unset, and validates the result.
func LoadSheetsConfig(v *viper.Viper) (*sheets.Config, error) {
	config := sheets.DefaultConfig()

	config.ServiceAccountPath = ExpandPath(v.GetString("sheets.service_account_path"))
	config.ClientID = v.GetString("sheets.client_id")
	config.ClientSecret = v.GetString("sheets.client_secret")
	config.RefreshToken = v.GetString("sheets.refresh_token")
	config.TokenFile = ExpandPath(v.GetString("sheets.token_file"))
	config.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	if v.IsSet("sheets.retry_attempts") {
		config.RetryAttempts = v.GetInt("sheets.retry_attempts")
	}
	if v.IsSet("sheets.retry_delay") {
		config.RetryDelay = v.GetDuration("sheets.retry_delay")
	}

	config.LoadFromEnv()
	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)
	config.TokenFile = ExpandPath(config.TokenFile)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultTokenFile is where `fines auth sheets` stores the OAuth token.
func DefaultTokenFile() string {
	return filepath.Join(Dir(), "sheets-token.json")
}
