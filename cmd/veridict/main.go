// Command veridict starts the Veridict API server.
// Usage: go run ./cmd/veridict [-addr :8080]
package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dberest/veridict/internal/artifact"
	"github.com/dberest/veridict/internal/config"
	"github.com/dberest/veridict/internal/enrich"
	"github.com/dberest/veridict/internal/history"
	"github.com/dberest/veridict/internal/infer"
	"github.com/dberest/veridict/internal/logging"
	"github.com/dberest/veridict/internal/server"
)

func main() {
	addr := flag.String("addr", "", "listen address (overrides config)")
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("VERIDICT_CONFIG", *configPath)
	}
	cfg := config.Load()
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}

	logger := logging.NewStdoutLogger("Veridict")

	store, err := artifact.NewStore(cfg.Artifacts.Dir, logger)
	if err != nil {
		log.Fatalf("artifact store: %v", err)
	}
	engine := infer.NewEngine(store, logger)

	analyzer := enrich.NewGeminiAnalyzer(cfg.Analyzer)
	cache := enrich.NewCache(cfg.Analyzer.CacheCapacity)
	dispatcher := enrich.NewDispatcher(cache, analyzer, cfg.Analyzer.Workers, logger)
	defer dispatcher.Close()

	var hist *history.Store
	if cfg.History.DBPath != "" {
		db, err := sql.Open("sqlite", cfg.History.DBPath)
		if err != nil {
			log.Fatalf("opening history database: %v", err)
		}
		defer db.Close()
		hist, err = history.NewStore(db, logger)
		if err != nil {
			log.Fatalf("history store: %v", err)
		}
	}

	srv := server.NewServer(server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		Input:      cfg.Input,
		Logger:     logger,
	}, engine, store, cache, dispatcher, analyzer, hist)

	// Pre-warm so the first request does not pay the artifact load cost.
	if engine.Ready() {
		if err := engine.Warm(); err != nil {
			logger.Warn("model pre-warm failed", logging.Field{Key: "error", Value: err.Error()})
		} else {
			logger.Info("model pre-warmed and ready")
		}
	} else {
		logger.Warn("no trained model found, /api/predict will return 503 until training runs")
	}

	logger.Info("starting API server",
		logging.Field{Key: "addr", Value: cfg.Server.ListenAddr},
		logging.Field{Key: "analyzer_available", Value: analyzer.Available()})

	if err := srv.HTTPServer().ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
