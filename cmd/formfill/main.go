// Command formfill is the form-filling daemon: it manages browser sessions,
// fills third-party web and PDF forms from an applicant payload, learns
// mapping templates, and serves both over HTTP.
//
// Usage:
//
//	formfill -config formfill.yaml        # run with config file
//	formfill -db formfill.db -listen :8077
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/formfill/httpapi"
	"github.com/hazyhaar/formfill/mapping"
	"github.com/hazyhaar/formfill/session"
)

// Config is the daemon configuration.
type Config struct {
	Listen  string         `yaml:"listen"`
	DBPath  string         `yaml:"db_path"`
	Session session.Config `yaml:"session"`
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = ":8077"
	}
	if c.DBPath == "" {
		c.DBPath = "formfill.db"
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to formfill.yaml config file")
	dbPath := flag.String("db", "", "path to the template SQLite database")
	listen := flag.String("listen", "", "HTTP listen address")
	outDir := flag.String("out", "", "output directory for filled documents")
	headful := flag.Bool("headful", false, "run the browser with a visible window")
	manual := flag.Bool("manual", false, "keep sessions open for operator interaction")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *dbPath, *listen, *outDir, *headful, *manual); err != nil {
		logger.Error("formfill: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, dbPath, listen, outDir string, headful, manual bool) error {
	cfg, err := resolveConfig(configPath, dbPath, listen, outDir, headful, manual)
	if err != nil {
		return err
	}
	cfg.Session.Logger = logger

	store, err := mapping.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("template store: %w", err)
	}
	defer store.Close()

	reg := session.NewRegistry(cfg.Session, store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	httpapi.New(logger, reg, store).RegisterHTTP(r)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("formfill: listening", "addr", cfg.Listen, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("formfill: shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("formfill: http shutdown", "error", err)
	}
	reg.Shutdown(shutCtx)
	return nil
}

func resolveConfig(configPath, dbPath, listen, outDir string, headful, manual bool) (*Config, error) {
	cfg := &Config{}
	if configPath != "" {
		loaded, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		cfg = loaded
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if outDir != "" {
		cfg.Session.OutDir = outDir
	}
	if headful {
		cfg.Session.Headful = true
	}
	if manual {
		cfg.Session.Manual = true
	}
	cfg.defaults()
	return cfg, nil
}
