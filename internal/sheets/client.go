package sheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// API is the slice of the Sheets service the workbook needs.
type API interface {
	SheetIDs(ctx context.Context, spreadsheetID string) (map[string]int64, error)
	GetValues(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]any) error
	UpdateValues(ctx context.Context, spreadsheetID string, data []*sheets.ValueRange) error
	DeleteRows(ctx context.Context, spreadsheetID string, sheetID, start, end int64) error
}

// serviceAPI implements API with the Google client library.
type serviceAPI struct {
	srv *sheets.Service
}

func (s *serviceAPI) SheetIDs(ctx context.Context, spreadsheetID string) (map[string]int64, error) {
	resp, err := s.srv.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	ids := make(map[string]int64, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		ids[sh.Properties.Title] = sh.Properties.SheetId
	}
	return ids, nil
}

func (s *serviceAPI) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *serviceAPI) AppendValues(ctx context.Context, spreadsheetID, rng string, values [][]any) error {
	_, err := s.srv.Spreadsheets.Values.Append(spreadsheetID, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}

func (s *serviceAPI) UpdateValues(ctx context.Context, spreadsheetID string, data []*sheets.ValueRange) error {
	_, err := s.srv.Spreadsheets.Values.BatchUpdate(spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	return err
}

func (s *serviceAPI) DeleteRows(ctx context.Context, spreadsheetID string, sheetID, start, end int64) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: start,
					EndIndex:   end,
					// The first sheet has id 0 and the first row index 0.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	_, err := s.srv.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		if config.RefreshToken == "" {
			saved, err := LoadToken(config.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("unable to load token from %s (run 'fines auth sheets'): %w", config.TokenFile, err)
			}
			token = saved
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}
