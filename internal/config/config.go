package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Instagram InstagramConfig `yaml:"instagram"`
	Browser   BrowserConfig   `yaml:"browser"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Database  DatabaseConfig  `yaml:"database"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type InstagramConfig struct {
	BaseURL         string      `yaml:"base_url"`
	QueryHash       string      `yaml:"query_hash"`
	CommentsPerPost int         `yaml:"comments_per_post"`
	Auth            AuthConfig  `yaml:"auth"`
	Fetch           FetchConfig `yaml:"fetch"`
}

type AuthConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	CookiesFile  string `yaml:"cookies_file"`
	LoginTimeout int    `yaml:"login_timeout"`
	LoginSettle  int    `yaml:"login_settle"`
}

type FetchConfig struct {
	ViewSource     bool `yaml:"view_source"`
	ContentTimeout int  `yaml:"content_timeout"`
}

type BrowserConfig struct {
	Driver           string `yaml:"driver"`
	Headless         bool   `yaml:"headless"`
	ExecPath         string `yaml:"exec_path"`
	ChromeDriverPath string `yaml:"chromedriver_path"`
	UserAgent        string `yaml:"user_agent"`
	PollInterval     int    `yaml:"poll_interval_ms"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type ScraperConfig struct {
	ConcurrentWorkers int             `yaml:"concurrent_workers"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	MetricsFile       string          `yaml:"metrics_file"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

type TelegramConfig struct {
	Token          string `yaml:"token"`
	PollingTimeout int    `yaml:"polling_timeout"`
	Debug          bool   `yaml:"debug"`
}

type APIConfig struct {
	Port string `yaml:"port"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

func Load(configFile string) (*Config, error) {
	// .env file is optional
	_ = godotenv.Load()

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configFile)
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	return config, nil
}

// Default returns a configuration with every field at its built-in value.
func Default() *Config {
	config := &Config{
		Instagram: InstagramConfig{
			Fetch: FetchConfig{ViewSource: true},
		},
		Browser: BrowserConfig{Headless: true},
	}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Instagram.BaseURL == "" {
		c.Instagram.BaseURL = "https://www.instagram.com/"
	}
	if c.Instagram.CommentsPerPost <= 0 {
		c.Instagram.CommentsPerPost = 5000
	}
	if c.Instagram.Auth.CookiesFile == "" {
		c.Instagram.Auth.CookiesFile = "cookies.json"
	}
	if c.Instagram.Auth.LoginTimeout <= 0 {
		c.Instagram.Auth.LoginTimeout = 20
	}
	if c.Instagram.Auth.LoginSettle <= 0 {
		c.Instagram.Auth.LoginSettle = 10
	}
	if c.Instagram.Fetch.ContentTimeout <= 0 {
		c.Instagram.Fetch.ContentTimeout = 10
	}
	if c.Browser.Driver == "" {
		c.Browser.Driver = "chromedp"
	}
	if c.Browser.ChromeDriverPath == "" {
		c.Browser.ChromeDriverPath = "chromedriver"
	}
	if c.Browser.PollInterval <= 0 {
		c.Browser.PollInterval = 250
	}
	if c.Scraper.ConcurrentWorkers <= 0 {
		c.Scraper.ConcurrentWorkers = 1
	}
	if c.Scraper.RateLimit.RequestsPerMinute <= 0 {
		c.Scraper.RateLimit.RequestsPerMinute = 6
	}
	if c.Scraper.MetricsFile == "" {
		c.Scraper.MetricsFile = "data/metrics.json"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Telegram.PollingTimeout <= 0 {
		c.Telegram.PollingTimeout = 60
	}
	if c.API.Port == "" {
		c.API.Port = "8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Override with environment variables if they exist
func (c *Config) applyEnv() {
	setString(&c.Instagram.Auth.Username, "INSTAGRAM_USERNAME")
	setString(&c.Instagram.Auth.Password, "INSTAGRAM_PASSWORD")
	setString(&c.Instagram.QueryHash, "QUERY_HASH")
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSL_MODE")
	if port, err := strconv.Atoi(os.Getenv("DB_PORT")); err == nil {
		c.Database.Port = port
	}
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

// DSN returns the connection string for the configured driver. An explicit URL
// (DATABASE_URL) wins over the individual fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	if d.Driver == "sqlite" {
		return d.Name
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// ValidateScraper checks the settings every scrape cycle depends on.
func (c *Config) ValidateScraper() error {
	var errs []error
	if c.Instagram.QueryHash == "" {
		errs = append(errs, errors.New("instagram.query_hash (QUERY_HASH) is required"))
	}
	if c.Instagram.Auth.Username == "" || c.Instagram.Auth.Password == "" {
		errs = append(errs, errors.New("instagram credentials (INSTAGRAM_USERNAME, INSTAGRAM_PASSWORD) are required"))
	}
	switch c.Browser.Driver {
	case "chromedp", "selenium":
	default:
		errs = append(errs, fmt.Errorf("unknown browser.driver: %s (use 'chromedp' or 'selenium')", c.Browser.Driver))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver: %s (use 'postgres' or 'sqlite')", c.Database.Driver))
	}
	return errors.Join(errs...)
}

// ValidateBot additionally requires the chat platform token.
func (c *Config) ValidateBot() error {
	err := c.ValidateScraper()
	if c.Telegram.Token == "" {
		err = errors.Join(err, errors.New("telegram.token (TELEGRAM_BOT_TOKEN) is required"))
	}
	return err
}
