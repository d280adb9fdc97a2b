package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"osm-route-server/config"
	"osm-route-server/logging"
	"osm-route-server/overpass"
	"osm-route-server/server"
)

const SHUTDOWN_TIMEOUT = 10 * time.Second

// parseArgs loads the .env files before the flags are declared, so a
// CONFIG_FILE set only in .env still becomes the -config default.
func parseArgs(args []string, envFiles ...string) (configPath string, envErr error, err error) {
	envErr = godotenv.Load(envFiles...)

	fs := flag.NewFlagSet("osm-route-server", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to a TOML config file")
	if err := fs.Parse(args); err != nil {
		return "", envErr, err
	}
	return configPath, envErr, nil
}

func main() {
	configPath, envErr, err := parseArgs(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using environment variables")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newSource(cfg config.Config, logger zerolog.Logger) overpass.Source {
	if cfg.Overpass.OfflineFile != "" {
		logger.Info().Str("file", cfg.Overpass.OfflineFile).Msg("serving map data from offline extract")
		return overpass.FileSource{Path: cfg.Overpass.OfflineFile}
	}
	logger.Info().Str("url", cfg.Overpass.URL).Msg("fetching map data from overpass")
	return overpass.NewClient(overpass.Options{
		Endpoint:    cfg.Overpass.URL,
		UserAgent:   cfg.Overpass.UserAgent,
		Timeout:     cfg.Overpass.Timeout(),
		RetryWindow: cfg.Overpass.RetryWindow(),
	}, logger)
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	store := server.NewGraphStore(
		newSource(cfg, logger),
		cfg.Graph.CacheSize,
		cfg.Graph.VerifyOnLoad,
		logging.Source(logger, "graph-store"),
	)

	api := &http.Server{
		Addr:    cfg.Port,
		Handler: server.NewRouter(server.NewHandler(store, logging.Source(logger, "http")), cfg.CORS.AllowOrigins),
	}

	servers := []*http.Server{api}
	if cfg.AdminPort != "" {
		router := mux.NewRouter()
		server.NewDiagnosticsHandler(store, logging.Source(logger, "diagnostics")).RegisterRoutes(router)
		servers = append(servers, &http.Server{Addr: cfg.AdminPort, Handler: router})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s: %w", srv.Addr, err)
			}
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("addr", srv.Addr).Msg("shutdown failed")
		}
	}
	return runErr
}
