package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/menta2k/carb-analyzer/internal/config"
	"github.com/menta2k/carb-analyzer/internal/server"
	"github.com/menta2k/carb-analyzer/internal/settings"
	"github.com/menta2k/carb-analyzer/internal/utils"
	"github.com/menta2k/carb-analyzer/pkg/imageprep"
)

var (
	addr       = flag.String("addr", "", "listen address (overrides config)")
	dbPath     = flag.String("db-path", "", "settings database path (overrides config)")
	configPath = flag.String("config", "", "config file path")
	version    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("carb-server version 1.0.0")
		os.Exit(0)
	}

	cfg := loadConfig()
	if *addr != "" {
		cfg.Server.ListenAddr = *addr
	}
	if *dbPath != "" {
		cfg.Storage.DBPath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := utils.EnsureDir(filepath.Dir(cfg.Storage.DBPath)); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	store, err := settings.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to open settings store: %v", err)
	}
	defer store.Close()

	prep := imageprep.NewWithBounds(cfg.Image.MaxDimension, cfg.Image.JPEGQuality)
	srv := server.New(cfg, prep, store)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting carb analyzer server on %s", cfg.Server.ListenAddr)
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-sigCh:
		log.Println("Received shutdown signal")
	case err := <-errCh:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down...")
	cancel()
	if err := srv.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

func loadConfig() *config.Config {
	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
		if !utils.FileExists(path) {
			cfg := config.Default()
			cfg.ApplyEnv()
			return cfg
		}
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.ApplyEnv()
	return cfg
}
