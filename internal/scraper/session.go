package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"instagram-comment-scraper/internal/config"
)

// Session is one browser instance plus its authentication state. It is owned by
// a single scrape cycle and must be released with SessionManager.Close.
type Session struct {
	driver        Driver
	authenticated bool
	closeOnce     sync.Once
	closeErr      error
}

func (s *Session) Authenticated() bool {
	return s.authenticated
}

type Credentials struct {
	Username string
	Password string
}

type SessionManager struct {
	newDriver    DriverFactory
	cookies      *CookieStore
	credentials  Credentials
	baseURL      string
	loginTimeout time.Duration
	loginSettle  time.Duration
	logger       *logrus.Logger
}

func NewSessionManager(cfg config.InstagramConfig, newDriver DriverFactory, logger *logrus.Logger) *SessionManager {
	return &SessionManager{
		newDriver: newDriver,
		cookies:   NewCookieStore(cfg.Auth.CookiesFile, logger),
		credentials: Credentials{
			Username: cfg.Auth.Username,
			Password: cfg.Auth.Password,
		},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		loginTimeout: time.Duration(cfg.Auth.LoginTimeout) * time.Second,
		loginSettle:  time.Duration(cfg.Auth.LoginSettle) * time.Second,
		logger:       logger,
	}
}

// Initialize launches a headless browser. Launch failures are not retried.
func (sm *SessionManager) Initialize(ctx context.Context) (*Session, error) {
	driver, err := sm.newDriver(ctx)
	if err != nil {
		return nil, newScrapeError(KindLaunch, "initialize", err)
	}
	sm.logger.Info("Browser initialized in headless mode")
	return &Session{driver: driver}, nil
}

// LoadOrAuthenticate restores the persisted cookie set, or signs in when there
// is none.
func (sm *SessionManager) LoadOrAuthenticate(ctx context.Context, s *Session) error {
	if !sm.cookies.Exists() {
		sm.logger.Info("No saved cookies found, signing in")
		return sm.SignIn(ctx, s, sm.credentials)
	}

	cookies, err := sm.cookies.Load()
	if err != nil {
		return err
	}

	// Cookies can only be set for the domain currently loaded
	if err := s.driver.Navigate(ctx, sm.baseURL); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", sm.baseURL, err)
	}
	if err := s.driver.SetCookies(ctx, sm.normalizeCookies(cookies)); err != nil {
		return err
	}
	// Reload so the server re-evaluates the session with the injected cookies
	if err := s.driver.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload after setting cookies: %w", err)
	}

	s.authenticated = true
	sm.logger.Info("Cookies loaded successfully")
	return nil
}

// SignIn submits the login form and persists the resulting cookies. When the
// form never renders the session stays unauthenticated and the returned error
// has kind KindAuthTimeout.
func (sm *SessionManager) SignIn(ctx context.Context, s *Session, creds Credentials) error {
	loginURL := sm.baseURL + "accounts/login/"
	if err := s.driver.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}

	for _, field := range []struct {
		selector string
		value    string
		submit   bool
	}{
		{UsernameField, creds.Username, false},
		{PasswordField, creds.Password, true},
	} {
		if err := s.driver.WaitForElement(ctx, field.selector, sm.loginTimeout); err != nil {
			if errors.Is(err, ErrElementNotFound) {
				return newScrapeError(KindAuthTimeout, "sign in", err)
			}
			return fmt.Errorf("failed waiting for login form: %w", err)
		}
		if err := s.driver.SendKeys(ctx, field.selector, field.value, field.submit); err != nil {
			return fmt.Errorf("failed to fill login form: %w", err)
		}
	}

	// Give the login redirect time to set the session cookies
	select {
	case <-time.After(sm.loginSettle):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := sm.SaveCookies(ctx, s); err != nil {
		return err
	}
	s.authenticated = true

	sm.logger.Info("Logged in to Instagram")
	return nil
}

// SaveCookies overwrites the cookie file with the session's current cookies.
func (sm *SessionManager) SaveCookies(ctx context.Context, s *Session) error {
	cookies, err := s.driver.Cookies(ctx)
	if err != nil {
		return err
	}
	return sm.cookies.Save(cookies)
}

// Close releases the browser. Repeated calls are no-ops returning the first result.
func (sm *SessionManager) Close(s *Session) error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closeErr = s.driver.Close()
		if s.closeErr != nil {
			sm.logger.Warnf("Failed to close browser cleanly: %v", s.closeErr)
			return
		}
		sm.logger.Info("Browser closed")
	})
	return s.closeErr
}

// Cookies saved without a domain or path would be rejected by the browser.
func (sm *SessionManager) normalizeCookies(cookies []Cookie) []Cookie {
	host := "www.instagram.com"
	if u, err := url.Parse(sm.baseURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	domain := "." + strings.TrimPrefix(host, "www.")

	normalized := make([]Cookie, len(cookies))
	for i, cookie := range cookies {
		if cookie.Domain == "" {
			cookie.Domain = domain
		}
		if cookie.Path == "" {
			cookie.Path = "/"
		}
		normalized[i] = cookie
	}
	return normalized
}
