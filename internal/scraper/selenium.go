package scraper

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"

	"instagram-comment-scraper/internal/config"
)

// SeleniumDriver drives Chrome through a chromedriver child process.
type SeleniumDriver struct {
	driver       selenium.WebDriver
	service      *selenium.Service
	pollInterval time.Duration
	logger       *logrus.Logger
}

func LaunchSelenium(ctx context.Context, cfg config.BrowserConfig, logger *logrus.Logger) (*SeleniumDriver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := []string{
		"--no-sandbox",
		"--disable-gpu",
		"--disable-dev-shm-usage",
	}
	if cfg.Headless {
		args = append(args, "--headless")
	}
	if cfg.UserAgent != "" {
		args = append(args, "--user-agent="+cfg.UserAgent)
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{
		Path: cfg.ExecPath,
		Args: args,
	})

	// One chromedriver per session, so each gets its own port
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve chromedriver port: %w", err)
	}

	selenium.SetDebug(false)
	service, err := selenium.NewChromeDriverService(cfg.ChromeDriverPath, port)
	if err != nil {
		return nil, fmt.Errorf("failed to start ChromeDriver service: %w", err)
	}

	driver, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", port))
	if err != nil {
		service.Stop()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	logger.Debugf("Selenium Chrome session started on port %d", port)
	return &SeleniumDriver{
		driver:       driver,
		service:      service,
		pollInterval: time.Duration(cfg.PollInterval) * time.Millisecond,
		logger:       logger,
	}, nil
}

func (sd *SeleniumDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return sd.driver.Get(url)
}

func (sd *SeleniumDriver) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return sd.driver.Refresh()
}

func (sd *SeleniumDriver) SetCookies(ctx context.Context, cookies []Cookie) error {
	for _, cookie := range cookies {
		if err := ctx.Err(); err != nil {
			return err
		}
		seleniumCookie := &selenium.Cookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: cookie.Domain,
			Path:   cookie.Path,
			Secure: cookie.Secure,
		}
		if expires, ok := cookie.ExpiresAt(); ok {
			seleniumCookie.Expiry = uint(expires.Unix())
		}
		if err := sd.driver.AddCookie(seleniumCookie); err != nil {
			return fmt.Errorf("failed to set cookie %s: %w", cookie.Name, err)
		}
	}
	return nil
}

func (sd *SeleniumDriver) Cookies(ctx context.Context) ([]Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browserCookies, err := sd.driver.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to read browser cookies: %w", err)
	}

	cookies := make([]Cookie, 0, len(browserCookies))
	for _, c := range browserCookies {
		cookie := Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		}
		if c.Expiry > 0 {
			cookie.Expires = time.Unix(int64(c.Expiry), 0).UTC().Format(time.RFC3339)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, nil
}

func (sd *SeleniumDriver) WaitForElement(ctx context.Context, selector string, timeout time.Duration) error {
	condition := func(wd selenium.WebDriver) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		_, err := wd.FindElement(selenium.ByCSSSelector, selector)
		return err == nil, nil
	}

	if err := sd.driver.WaitWithTimeoutAndInterval(condition, timeout, sd.pollInterval); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s after %s", ErrElementNotFound, selector, timeout)
	}
	return nil
}

func (sd *SeleniumDriver) SendKeys(ctx context.Context, selector, text string, submit bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	elem, err := sd.driver.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	if submit {
		text += selenium.EnterKey
	}
	return elem.SendKeys(text)
}

func (sd *SeleniumDriver) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sd.driver.PageSource()
}

func (sd *SeleniumDriver) Close() error {
	var err error
	if sd.driver != nil {
		err = sd.driver.Quit()
	}
	if sd.service != nil {
		if stopErr := sd.service.Stop(); err == nil {
			err = stopErr
		}
	}
	return err
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
