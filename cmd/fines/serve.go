package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-fines-must-flow/internal/api"
	"github.com/Veraticus/the-fines-must-flow/internal/certs"
	"github.com/Veraticus/the-fines-must-flow/internal/cli"
	"github.com/Veraticus/the-fines-must-flow/internal/common"
	"github.com/Veraticus/the-fines-must-flow/internal/config"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (default: server.addr)")
	cmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	cmd.Flags().Bool("tls", false, "Serve HTTPS with a self-signed certificate")
	cmd.Flags().StringSlice("tls-host", nil, "Host names or IPs the certificate covers (default: localhost)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	addr := a.cfg.ServerAddr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}

	a.refreshRoster(ctx)

	server := api.NewServer(a.engine, a.store, a.roster, a.logger)
	if enabled, _ := cmd.Flags().GetBool("metrics"); enabled {
		server.EnableMetrics()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheme := "http"
	if useTLS, _ := cmd.Flags().GetBool("tls"); useTLS {
		hosts, _ := cmd.Flags().GetStringSlice("tls-host")
		tlsConfig, err := certs.NewStore(filepath.Join(config.Dir(), "certs"), hosts, a.logger).TLSConfig()
		if err != nil {
			return fmt.Errorf("failed to prepare certificate: %w", err)
		}
		httpServer.TLSConfig = tlsConfig
		scheme = "https"
	}

	errCh := make(chan error, 1)
	go func() {
		if httpServer.TLSConfig != nil {
			errCh <- httpServer.ListenAndServeTLS("", "")
			return
		}
		errCh <- httpServer.ListenAndServe()
	}()

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Listening on "+scheme+"://"+addr))
	common.LogInfo(a.logger, "api server started", common.Fields{"addr": addr, "mirror": a.cfg.Backend, "tls": scheme == "https"})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
