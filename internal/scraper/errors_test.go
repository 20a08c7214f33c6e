package scraper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrapeError(t *testing.T) {
	err := fmt.Errorf("request failed: %w", newScrapeError(KindExtraction, "fetch", ErrContentTimeout))

	assert.ErrorIs(t, err, ErrContentTimeout)
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindExtraction, kind)
	assert.Contains(t, err.Error(), "extraction_failure: fetch:")

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
	_, ok = KindOf(nil)
	assert.False(t, ok)
}

func TestFailureKindString(t *testing.T) {
	assert.Equal(t, "launch_failure", KindLaunch.String())
	assert.Equal(t, "auth_element_timeout", KindAuthTimeout.String())
	assert.Equal(t, "persistence_failure", KindPersistence.String())
	assert.Equal(t, "invalid_identifier", KindInvalidIdentifier.String())
	assert.Equal(t, "unknown", FailureKind(0).String())
}
