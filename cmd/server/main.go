// Package main runs the RLS manager HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/pflag"

	"qs-rls-manager/internal/api"
	"qs-rls-manager/internal/app"
	"qs-rls-manager/internal/config"
	internaldb "qs-rls-manager/internal/db"
	"qs-rls-manager/internal/middleware"
)

const (
	shutdownTimeout   = 30 * time.Second
	defaultListenAddr = ":8080"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	envFile := pflag.String("env-file", ".env", "Dotenv file loaded before the environment is read")
	listen := pflag.String("listen", "", "Listen address (overrides LISTEN_ADDR)")
	pflag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := internaldb.Open(cfg.MetaDBPath, internaldb.ModeWrite, 0)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck
	if err := internaldb.Migrate(db); err != nil {
		return err
	}

	a := app.New(app.Deps{Cfg: cfg, DB: db, Logger: logger})

	router := api.NewRouter(a.Handler(logger), a.Metrics,
		middleware.RequestID,
		middleware.RequestLogger(logger),
		chimw.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.RateLimiter(ctx, middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}),
	)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Publishes wait on ingestion, so responses can take minutes.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	tls := cfg.TLSCertFile != ""
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr, "env", cfg.Env,
			"try", "curl "+healthCheckURL(cfg.ListenAddr, tls))
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
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
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

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// healthCheckURL is the /healthz URL a local client can reach for a listen
// address. Wildcard hosts become localhost.
func healthCheckURL(listenAddr string, tls bool) string {
	u := url.URL{Scheme: "http", Host: strings.TrimSpace(listenAddr), Path: "/healthz"}
	if tls {
		u.Scheme = "https"
	}
	if u.Host == "" {
		u.Host = defaultListenAddr
	}
	if host, port, err := net.SplitHostPort(u.Host); err == nil {
		switch host {
		case "", "0.0.0.0", "::":
			host = "localhost"
		}
		u.Host = net.JoinHostPort(host, port)
	}
	return u.String()
}
