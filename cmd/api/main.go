package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"instagram-comment-scraper/internal/api"
	"instagram-comment-scraper/internal/config"
	"instagram-comment-scraper/internal/database"
	"instagram-comment-scraper/internal/monitoring"
	"instagram-comment-scraper/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		port       = flag.String("port", "", "API server port (defaults to api.port)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.API.Port = *port
	}

	logger := utils.NewLogger(cfg.Logging)

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	monitor := monitoring.NewMonitor(logger, cfg.Scraper.MetricsFile)
	server := api.NewServer(db, monitor, logger, cfg.API.Port)

	logger.Info("Available endpoints:")
	logger.Info("  GET  /api/comments?shortcode=&limit= - List stored comments")
	logger.Info("  GET  /api/stats - Get scraping statistics")
	logger.Info("  GET  /api/export/csv?shortcode= - Export comments to CSV")
	logger.Info("  GET  /api/health - Health check")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
