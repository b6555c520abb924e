package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-fines-must-flow/internal/common"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		errMsg  string
		config  Config
	}{
		{
			name: "service account",
			config: Config{
				SpreadsheetID:      "sheet-id",
				ServiceAccountPath: "/path/to/key.json",
				RetryAttempts:      3,
				RetryDelay:         time.Second,
			},
		},
		{
			name: "oauth with refresh token",
			config: Config{
				SpreadsheetID: "sheet-id",
				ClientID:      "client",
				ClientSecret:  "secret",
				RefreshToken:  "refresh",
			},
		},
		{
			name: "oauth with token file",
			config: Config{
				SpreadsheetID: "sheet-id",
				ClientID:      "client",
				ClientSecret:  "secret",
				TokenFile:     "/tmp/token.json",
			},
		},
		{
			name: "missing spreadsheet id",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
			},
			wantErr: common.ErrMissingConfig,
			errMsg:  "spreadsheet id is required",
		},
		{
			name: "partial oauth credentials",
			config: Config{
				SpreadsheetID: "sheet-id",
				ClientID:      "client",
				RefreshToken:  "refresh",
			},
			wantErr: common.ErrMissingConfig,
			errMsg:  "no authentication method configured",
		},
		{
			name: "both methods",
			config: Config{
				SpreadsheetID:      "sheet-id",
				ClientID:           "client",
				ClientSecret:       "secret",
				RefreshToken:       "refresh",
				ServiceAccountPath: "/path/to/key.json",
			},
			wantErr: common.ErrInvalidConfig,
			errMsg:  "multiple authentication methods",
		},
		{
			name: "zero retries is valid",
			config: Config{
				SpreadsheetID:      "sheet-id",
				ServiceAccountPath: "/path/to/key.json",
			},
		},
		{
			name: "negative retry delay",
			config: Config{
				SpreadsheetID:      "sheet-id",
				ServiceAccountPath: "/path/to/key.json",
				RetryDelay:         -1 * time.Second,
			},
			wantErr: common.ErrInvalidConfig,
			errMsg:  "retry delay cannot be negative",
		},
		{
			name: "negative retry attempts",
			config: Config{
				SpreadsheetID:      "sheet-id",
				ServiceAccountPath: "/path/to/key.json",
				RetryAttempts:      -1,
			},
			wantErr: common.ErrInvalidConfig,
			errMsg:  "retry attempts cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FINES_SHEETS_SPREADSHEET_ID", "from-env")
	t.Setenv("FINES_SHEETS_SERVICE_ACCOUNT_PATH", "/env/key.json")
	t.Setenv("FINES_SHEETS_CLIENT_ID", "env-client")

	cfg := Config{ClientID: "explicit"}
	cfg.LoadFromEnv()

	assert.Equal(t, "from-env", cfg.SpreadsheetID)
	assert.Equal(t, "/env/key.json", cfg.ServiceAccountPath)
	assert.Equal(t, "explicit", cfg.ClientID, "explicit values win over the environment")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, time.Second, cfg.RetryDelay)
}
