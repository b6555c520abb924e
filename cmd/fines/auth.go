package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-fines-must-flow/internal/cli"
	"github.com/Veraticus/the-fines-must-flow/internal/config"
	"github.com/Veraticus/the-fines-must-flow/internal/sheets"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authorize access to the Google Sheets mirror",
		Long: `Run the OAuth2 flow for Google Sheets and save the token.

Open the printed URL, approve access, and the token is stored in
sheets.token_file for later runs.`,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("client-id", "", "OAuth2 client ID (default: sheets.client_id)")
	cmd.Flags().String("client-secret", "", "OAuth2 client secret (default: sheets.client_secret)")
	cmd.Flags().String("callback", sheets.DefaultCallbackAddr, "Address to listen on for the OAuth2 redirect")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	clientID := viper.GetString("sheets.client_id")
	clientSecret := viper.GetString("sheets.client_secret")
	if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
		clientID = flagID
	}
	if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
		clientSecret = flagSecret
	}

	env := sheets.Config{ClientID: clientID, ClientSecret: clientSecret}
	env.LoadFromEnv()
	if env.ClientID == "" || env.ClientSecret == "" {
		return fmt.Errorf("OAuth2 credentials not found. Set sheets.client_id and sheets.client_secret in config or use --client-id and --client-secret")
	}

	tokenFile := config.ExpandPath(viper.GetString("sheets.token_file"))
	if tokenFile == "" {
		tokenFile = config.DefaultTokenFile()
	}
	callback, _ := cmd.Flags().GetString("callback")

	slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)

	token, err := sheets.GetOrCreateToken(ctx, sheets.OAuth2Config{
		ClientID:     env.ClientID,
		ClientSecret: env.ClientSecret,
		TokenFile:    tokenFile,
		CallbackAddr: callback,
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatSuccess("Authentication successful!"))
	fmt.Fprintf(out, "Token saved to %s (expires %s)\n", tokenFile, token.Expiry.Format("2006-01-02 15:04"))
	fmt.Fprintln(out, cli.FormatInfo("Set mirror.backend: sheets and sheets.spreadsheet_id to start mirroring."))
	return nil
}
