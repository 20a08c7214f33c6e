package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"instagram-comment-scraper/internal/config"
	"instagram-comment-scraper/internal/database"
	"instagram-comment-scraper/internal/monitoring"
	"instagram-comment-scraper/internal/utils"
)

func main() {
	var (
		configFile  = flag.String("config", "configs/config.yaml", "Configuration file path")
		metricsFile = flag.String("metrics", "", "Metrics file path (defaults to scraper.metrics_file)")
		report      = flag.Bool("report", false, "Generate and display monitoring report")
		alerts      = flag.Bool("alerts", false, "Check and display alerts")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *metricsFile != "" {
		cfg.Scraper.MetricsFile = *metricsFile
	}

	logger := utils.NewLogger(config.LoggingConfig{Level: cfg.Logging.Level})
	monitor := monitoring.NewMonitor(logger, cfg.Scraper.MetricsFile)

	if *report {
		fmt.Println(monitor.GenerateReport())

		db, err := database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Errorf("Failed to connect to database: %v", err)
			return
		}
		defer db.Close()

		stats, err := db.GetStats(context.Background())
		if err != nil {
			logger.Errorf("Failed to get database stats: %v", err)
			return
		}
		fmt.Println("\nDatabase Statistics:")
		fmt.Printf("- Total Comments: %d\n", stats.TotalComments)
		fmt.Printf("- Posts Scraped: %d\n", stats.PostsScraped)
		fmt.Printf("- Unique Users: %d\n", stats.UniqueUsers)
		fmt.Printf("- Top Post: %s\n", stats.TopShortcode)
		if stats.LastScrapedAt != nil {
			fmt.Printf("- Last Scraped: %s\n", utils.FormatTimestamp(*stats.LastScrapedAt))
		} else {
			fmt.Println("- Last Scraped: Never")
		}
		return
	}

	if *alerts {
		alertManager := monitoring.NewAlertManager(monitor, logger)
		active := alertManager.CheckAlerts()

		if len(active) == 0 {
			fmt.Println("✅ No alerts - system is healthy")
		} else {
			alertManager.SendAlerts(active)
			fmt.Println("⚠️  Active Alerts:")
			for _, alert := range active {
				fmt.Printf("  - %s\n", alert)
			}
		}
		return
	}

	health := monitor.GetHealthStatus()
	fmt.Println("Instagram Comment Scraper Status:")
	fmt.Printf("- Status: %s\n", health.Status)
	fmt.Printf("- Last Run: %s\n", health.LastRun)
	fmt.Printf("- Total Runs: %d\n", health.TotalRuns)
	fmt.Printf("- Error Rate: %s\n", health.ErrorRate)
	fmt.Printf("- Average Runtime: %s\n", health.AverageRuntime)
	if health.Warning != "" {
		fmt.Printf("- Warning: %s\n", health.Warning)
	}
}
