package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"canvas-index/internal/api"
	"canvas-index/internal/config"
	"canvas-index/internal/index"
	"canvas-index/internal/index/spatial"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("🗺️ ================================")
	log.Println("🗺️  CANVAS INDEX - SPATIAL SERVER")
	log.Println("🗺️ ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	universeCfg := appConfig.Universe
	serverCfg := appConfig.Server
	journalCfg := appConfig.Journal

	port := strconv.Itoa(serverCfg.Port)

	log.Printf("🌍 Universe: %.0fx%.0f at (%.0f, %.0f), cell size %.0f",
		universeCfg.Width, universeCfg.Height, universeCfg.OriginX, universeCfg.OriginY, universeCfg.CellSize)
	log.Printf("🛡️ Resource limits: %d items, %d per batch, %d per query",
		appConfig.Limits.MaxItems, appConfig.Limits.MaxBatchSize, appConfig.Limits.MaxQueryResults)

	// Mutation journal
	var journal *index.Journal
	if journalCfg.Enabled && journalCfg.Path != "" {
		journal = index.NewJournal()
		if err := journal.Start(journalCfg.Path); err != nil {
			log.Printf("⚠️ Journal disabled: %v", err)
			journal = nil
		} else {
			log.Printf("📝 Journal: %s", journalCfg.Path)
		}
	}

	// Build the index manager
	mgr := index.NewManager(index.Config{
		Bounds: spatial.Box{
			X:      universeCfg.OriginX,
			Y:      universeCfg.OriginY,
			Width:  universeCfg.Width,
			Height: universeCfg.Height,
		},
		CellSize: universeCfg.CellSize,
		Journal:  journal,
	})

	// Start debug server (pprof + Prometheus metrics)
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		}
	}

	server := api.NewServer(mgr, appConfig.Limits)

	go func() {
		addr := ":" + port
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	server.Stop()
	if journal != nil {
		journal.Stop()
	}
	log.Println("👋 Goodbye!")
}
