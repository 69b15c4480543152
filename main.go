package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cardioml/config"
	"cardioml/db"
	"cardioml/http"
	"cardioml/logging"
	"cardioml/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
	}

	logger := logging.Init(cfg.Log.Level, cfg.Log.File)
	defer logger.Sync()
	if err != nil {
		logger.Warnw("config not loaded, using defaults", "path", *configPath, "error", err)
	}

	persist := true
	if err := db.InitDB(cfg.Database.Path); err != nil {
		logger.Warnw("database unavailable, disabling persistence", "error", err)
		persist = false
	} else {
		defer db.Close()
	}

	hub := http.NewEventHub(logger)
	go hub.Run()
	defer hub.Stop()

	collector := monitoring.NewCollector()

	modelPath := filepath.Join(cfg.Model.Dir, "model.json")
	pipelinePath := filepath.Join(cfg.Model.Dir, "pipeline.json")
	service := http.NewPredictionService(modelPath, pipelinePath, hub, collector, persist, logger)
	defer service.Close()

	if err := service.WatchArtifacts(); err != nil {
		logger.Warnw("artifact watcher disabled", "error", err)
	}

	handlers := http.NewHandlers(service, collector, hub, persist)
	server := http.NewServer(http.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, handlers, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Infow("signal received, shutting down", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Errorw("server error", "error", err)
		}
	}

	if err := server.Stop(); err != nil {
		logger.Errorw("shutdown error", "error", err)
	}
}
