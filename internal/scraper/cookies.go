// internal/scraper/cookies.go
package scraper

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HttpOnly bool   `json:"httpOnly"`
	Expires  string `json:"expires,omitempty"`
}

// ExpiresAt parses the RFC3339 expiry. Session cookies report ok=false.
func (c Cookie) ExpiresAt() (time.Time, bool) {
	if c.Expires == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, c.Expires)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CookieStore persists the browser cookie set as a single JSON file. Reads and
// writes are wholesale; there is no partial update.
type CookieStore struct {
	path   string
	logger *logrus.Logger
}

func NewCookieStore(path string, logger *logrus.Logger) *CookieStore {
	return &CookieStore{path: path, logger: logger}
}

func (cs *CookieStore) Path() string {
	return cs.path
}

func (cs *CookieStore) Exists() bool {
	_, err := os.Stat(cs.path)
	return err == nil
}

func (cs *CookieStore) Load() ([]Cookie, error) {
	data, err := os.ReadFile(cs.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to parse cookies file: %w", err)
	}

	cs.logger.Infof("Loaded %d cookies from %s", len(cookies), cs.path)
	return cookies, nil
}

func (cs *CookieStore) Save(cookies []Cookie) error {
	data, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := os.WriteFile(cs.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write cookies file: %w", err)
	}

	cs.logger.Infof("Saved %d cookies to %s", len(cookies), cs.path)
	return nil
}
