package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"instagram-comment-scraper/internal/bot"
	"instagram-comment-scraper/internal/config"
	"instagram-comment-scraper/internal/database"
	"instagram-comment-scraper/internal/monitoring"
	"instagram-comment-scraper/internal/scraper"
	"instagram-comment-scraper/internal/utils"
)

func main() {
	configFile := flag.String("config", "configs/config.yaml", "Configuration file path")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateBot(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
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
	igScraper := scraper.NewInstagramScraper(
		cfg.Instagram,
		scraper.NewDriverFactory(cfg.Browser, logger),
		db,
		logger,
	)

	api, err := bot.NewTelegramAPI(cfg.Telegram)
	if err != nil {
		logger.Fatalf("Failed to start bot: %v", err)
	}

	handler := bot.NewHandler(
		bot.NewTelegramSender(api),
		igScraper,
		monitor,
		cfg.Instagram.CommentsPerPost,
		cfg.Scraper,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Instagram comment bot started")
	if err := bot.NewBot(api, handler, cfg.Telegram, logger).Run(ctx); err != nil {
		logger.Fatalf("Bot stopped with error: %v", err)
	}
	logger.Info("Bot stopped")
}
