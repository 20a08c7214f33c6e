package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"instagram-comment-scraper/internal/config"
	"instagram-comment-scraper/internal/database"
	"instagram-comment-scraper/internal/monitoring"
	"instagram-comment-scraper/internal/scraper"
	"instagram-comment-scraper/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		postURL    = flag.String("url", "", "Instagram post URL to scrape")
		limit      = flag.Int("limit", 0, "Number of comments to request (defaults to instagram.comments_per_post)")
		asJSON     = flag.Bool("json", false, "Print the comment document as JSON")
	)
	flag.Parse()

	if *postURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateScraper(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.Logging)

	shortcode, err := scraper.ExtractShortcode(*postURL)
	if err != nil {
		logger.Fatalf("Invalid Instagram URL: %s", *postURL)
	}

	pageSize := cfg.Instagram.CommentsPerPost
	if *limit > 0 {
		pageSize = *limit
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := monitoring.NewMonitor(logger, cfg.Scraper.MetricsFile)
	igScraper := scraper.NewInstagramScraper(cfg.Instagram, scraper.NewDriverFactory(cfg.Browser, logger), db, logger)

	start := time.Now()
	result, err := igScraper.ScrapeComments(ctx, shortcode, pageSize)
	run := monitoring.ScrapeRun{Shortcode: shortcode, Duration: time.Since(start)}
	if err != nil {
		run.Failure = "unexpected"
		if kind, ok := scraper.KindOf(err); ok {
			run.Failure = kind.String()
		}
		monitor.RecordScrapeRun(run)
		logger.Fatalf("Failed to scrape comments: %v", err)
	}

	run.Fetched = result.Document.Len()
	run.Saved = result.Saved
	if result.PersistErr != nil {
		run.Failure = scraper.KindPersistence.String()
	}
	monitor.RecordScrapeRun(run)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result.Document); err != nil {
			logger.Fatalf("Failed to encode comments: %v", err)
		}
		return
	}

	for _, edge := range result.Document.Edges() {
		node := edge.Node
		fmt.Printf("[%s] %s: %s\n", utils.FormatTimestamp(utils.FromUnix(node.CreatedAt)), node.Owner.Username, node.Text)
	}
	logger.Infof("Scraping completed: %d comments fetched, %d saved in %v", result.Document.Len(), result.Saved, result.Duration)
}
