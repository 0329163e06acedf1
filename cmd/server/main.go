// Package main is the entry point for the duckolap HTTP server. The server
// federates one relational source, named by SOURCE_DSN, and answers MDX
// queries against cubes synthesized from its tables.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"duck-olap/internal/api"
	"duck-olap/internal/config"
	"duck-olap/internal/middleware"
	"duck-olap/internal/pipeline"
	"duck-olap/internal/source"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	params, err := source.ParseConnectionString(cfg.SourceDSN)
	if err != nil {
		return fmt.Errorf("SOURCE_DSN: %w", err)
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	h := api.NewHandler(p, api.Defaults{
		Source: params,
		Schema: cfg.SourceSchema,
		Table:  cfg.SourceTable,
		Cube:   cfg.CubeName,
	}, logger)

	router := api.NewRouter(h, api.RouterConfig{
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		AllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		QueryTimeout:   cfg.QueryTimeout,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Writes may take as long as the slowest permitted query.
		WriteTimeout: cfg.QueryTimeout + 10*time.Second,
		IdleTimeout:  2 * time.Minute,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		tls := cfg.TLSCertFile != ""
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr, "tls", tls, "source", params.String())
		scheme := "http"
		if tls {
			scheme = "https"
		}
		logger.Info(fmt.Sprintf("Try: curl -X POST %s://%s/v1/query -d '{\"table\":\"%s\"}'",
			scheme, curlHostForListenAddr(cfg.ListenAddr), firstNonEmpty(cfg.SourceTable, "wikiticker")))

		var err error
		if tls {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// curlHostForListenAddr turns a listen address into a host:port usable in
// an example curl command. Wildcard and empty hosts become localhost.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
