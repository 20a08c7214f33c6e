package scraper

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/sirupsen/logrus"

	"instagram-comment-scraper/internal/config"
)

// Driver is the browser-automation client owned by a Session.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	SetCookies(ctx context.Context, cookies []Cookie) error
	Cookies(ctx context.Context) ([]Cookie, error)
	// WaitForElement polls until selector matches or timeout elapses, in which
	// case it returns ErrElementNotFound.
	WaitForElement(ctx context.Context, selector string, timeout time.Duration) error
	// SendKeys types text into the element matched by selector, optionally
	// followed by the Enter key.
	SendKeys(ctx context.Context, selector, text string, submit bool) error
	PageSource(ctx context.Context) (string, error)
	Close() error
}

// DriverFactory launches a new browser instance.
type DriverFactory func(ctx context.Context) (Driver, error)

func NewDriverFactory(cfg config.BrowserConfig, logger *logrus.Logger) DriverFactory {
	if cfg.Driver == "selenium" {
		return func(ctx context.Context) (Driver, error) {
			return LaunchSelenium(ctx, cfg, logger)
		}
	}
	return func(ctx context.Context) (Driver, error) {
		return LaunchChrome(ctx, cfg, logger)
	}
}

type ChromeDriver struct {
	ctx          context.Context
	cancel       context.CancelFunc
	allocCancel  context.CancelFunc
	pollInterval time.Duration
	logger       *logrus.Logger
}

func LaunchChrome(ctx context.Context, cfg config.BrowserConfig, logger *logrus.Logger) (*ChromeDriver, error) {
	if cfg.ExecPath == "" && !isChromeAvailable() {
		return nil, errors.New("no suitable browser found for automation")
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	// The browser outlives individual calls; Close releases it.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Debugf),
		chromedp.WithErrorf(logger.Errorf),
	)

	d := &ChromeDriver{
		ctx:          browserCtx,
		cancel:       cancel,
		allocCancel:  allocCancel,
		pollInterval: time.Duration(cfg.PollInterval) * time.Millisecond,
		logger:       logger,
	}

	// First Run starts the browser process. It must not carry a deadline.
	if err := chromedp.Run(browserCtx); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	if err := ctx.Err(); err != nil {
		d.Close()
		return nil, err
	}

	logger.Debug("Chrome launched for browser automation")
	return d, nil
}

// run executes actions on the browser tab while honouring the caller's context.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *ChromeDriver) Reload(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

func (d *ChromeDriver) SetCookies(ctx context.Context, cookies []Cookie) error {
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, cookie := range cookies {
			params := network.SetCookie(cookie.Name, cookie.Value).
				WithDomain(cookie.Domain).
				WithPath(cookie.Path).
				WithSecure(cookie.Secure).
				WithHTTPOnly(cookie.HttpOnly)
			if expires, ok := cookie.ExpiresAt(); ok {
				t := cdp.TimeSinceEpoch(expires)
				params = params.WithExpires(&t)
			}
			if err := params.Do(ctx); err != nil {
				return fmt.Errorf("failed to set cookie %s: %w", cookie.Name, err)
			}
		}
		return nil
	}))
}

func (d *ChromeDriver) Cookies(ctx context.Context) ([]Cookie, error) {
	var cookies []Cookie
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		browserCookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range browserCookies {
			cookie := Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HttpOnly: c.HTTPOnly,
			}
			// Session cookies report -1
			if c.Expires > 0 {
				cookie.Expires = time.Unix(int64(c.Expires), 0).UTC().Format(time.RFC3339)
			}
			cookies = append(cookies, cookie)
		}
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}
	return cookies, nil
}

func (d *ChromeDriver) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if d.pollInterval > 0 {
		opts = append(opts, chromedp.RetryInterval(d.pollInterval))
	}
	err := d.run(waitCtx, chromedp.WaitReady(selector, opts...))
	if err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s after %s", ErrElementNotFound, selector, timeout)
		}
		return err
	}
	return nil
}

func (d *ChromeDriver) SendKeys(ctx context.Context, selector, text string, submit bool) error {
	if submit {
		text += kb.Enter
	}
	return d.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (d *ChromeDriver) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (d *ChromeDriver) Close() error {
	err := chromedp.Cancel(d.ctx)
	d.cancel()
	d.allocCancel()
	return err
}

func isChromeAvailable() bool {
	paths := []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"}
	for _, path := range paths {
		if _, err := exec.LookPath(path); err == nil {
			return true
		}
	}
	return false
}
