package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"instagram-comment-scraper/internal/config"
	"instagram-comment-scraper/internal/scraper"
	"instagram-comment-scraper/internal/utils"
)

func main() {
	var (
		configFile = flag.String("config", "configs/config.yaml", "Configuration file path")
		headful    = flag.Bool("headful", false, "Show the browser window, e.g. to complete a login challenge")
		check      = flag.Bool("check", false, "Only check that the saved cookies can be restored")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *headful {
		cfg.Browser.Headless = false
	}

	logger := utils.NewLogger(cfg.Logging)
	sessions := scraper.NewSessionManager(cfg.Instagram, scraper.NewDriverFactory(cfg.Browser, logger), logger)
	store := scraper.NewCookieStore(cfg.Instagram.Auth.CookiesFile, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := sessions.Initialize(ctx)
	if err != nil {
		logger.Fatalf("Failed to launch browser: %v", err)
	}
	defer sessions.Close(session)

	if *check {
		if !store.Exists() {
			logger.Fatalf("No saved cookies at %s; run without -check to sign in", store.Path())
		}
		if err := sessions.LoadOrAuthenticate(ctx, session); err != nil {
			logger.Fatalf("Failed to restore cookies: %v", err)
		}
		fmt.Println("✅ Saved cookies were restored into the browser")
		return
	}

	creds := scraper.Credentials{
		Username: cfg.Instagram.Auth.Username,
		Password: cfg.Instagram.Auth.Password,
	}
	if creds.Username == "" || creds.Password == "" {
		logger.Fatal("INSTAGRAM_USERNAME and INSTAGRAM_PASSWORD must be set")
	}

	fmt.Println("Signing in to Instagram...")
	if err := sessions.SignIn(ctx, session, creds); err != nil {
		if kind, ok := scraper.KindOf(err); ok && kind == scraper.KindAuthTimeout {
			logger.Fatalf("Login form did not appear; try -headful: %v", err)
		}
		logger.Fatalf("Login failed: %v", err)
	}

	fmt.Printf("✅ Logged in, cookies saved to %s\n", store.Path())
}
