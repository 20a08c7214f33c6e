package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Fetcher loads a comment endpoint in the session's browser and returns the
// rendered page.
type Fetcher struct {
	contentTimeout time.Duration
	logger         *logrus.Logger
}

func NewFetcher(contentTimeout time.Duration, logger *logrus.Logger) *Fetcher {
	return &Fetcher{contentTimeout: contentTimeout, logger: logger}
}

// Fetch navigates to target and polls for the content element instead of
// sleeping a fixed delay. A wait that runs out yields ErrContentTimeout, which
// is distinct from a page that rendered without the element (ErrContentMissing,
// reported later by the Extractor).
func (f *Fetcher) Fetch(ctx context.Context, s *Session, target string) (string, error) {
	if !s.Authenticated() {
		return "", errors.New("session is not authenticated")
	}

	if err := s.driver.Navigate(ctx, target); err != nil {
		return "", fmt.Errorf("failed to navigate to comment endpoint: %w", err)
	}

	selector := ContentCell
	if !strings.HasPrefix(target, viewSourcePrefix) {
		selector = RawBody
	}
	if err := s.driver.WaitForElement(ctx, selector, f.contentTimeout); err != nil {
		if errors.Is(err, ErrElementNotFound) {
			return "", newScrapeError(KindExtraction, "fetch", fmt.Errorf("%w: %v", ErrContentTimeout, err))
		}
		return "", fmt.Errorf("failed waiting for comment content: %w", err)
	}

	page, err := s.driver.PageSource(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read page source: %w", err)
	}

	f.logger.Info("Fetched page source for comments")
	return page, nil
}
