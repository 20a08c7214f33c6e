package scraper

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"instagram-comment-scraper/internal/config"
	"instagram-comment-scraper/pkg/types"
)

type contextKey string

const requestIDKey contextKey = "request_id"

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// CommentStore is the persistence side of a scrape.
type CommentStore interface {
	SaveBatch(ctx context.Context, shortcode string, doc *types.CommentDocument) (int, error)
}

// CommentsResult is a successfully extracted document. PersistErr is set when
// the document could not be stored; the comments are still usable.
type CommentsResult struct {
	Shortcode  string
	Document   *types.CommentDocument
	Saved      int
	PersistErr error
	Duration   time.Duration
}

type InstagramScraper struct {
	sessions  *SessionManager
	endpoints *EndpointBuilder
	fetcher   *Fetcher
	extractor *Extractor
	store     CommentStore
	logger    *logrus.Logger
}

func NewInstagramScraper(cfg config.InstagramConfig, newDriver DriverFactory, store CommentStore, logger *logrus.Logger) *InstagramScraper {
	return &InstagramScraper{
		sessions:  NewSessionManager(cfg, newDriver, logger),
		endpoints: NewEndpointBuilder(cfg.QueryHash, cfg.Fetch.ViewSource),
		fetcher:   NewFetcher(time.Duration(cfg.Fetch.ContentTimeout)*time.Second, logger),
		extractor: NewExtractor(logger),
		store:     store,
		logger:    logger,
	}
}

// ScrapeComments runs one complete cycle: launch, authenticate, fetch, extract,
// persist. The browser is released on every return path.
func (is *InstagramScraper) ScrapeComments(ctx context.Context, shortcode string, pageSize int) (*CommentsResult, error) {
	if RequestID(ctx) == "" {
		ctx = WithRequestID(ctx, uuid.New().String())
	}
	start := time.Now()

	session, err := is.sessions.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	defer is.sessions.Close(session)

	if err := is.sessions.LoadOrAuthenticate(ctx, session); err != nil {
		return nil, err
	}

	result, err := is.GetComments(ctx, session, shortcode, pageSize)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

// GetComments fetches and stores the comments of one post using an already
// authenticated session. It does not retry.
func (is *InstagramScraper) GetComments(ctx context.Context, s *Session, shortcode string, pageSize int) (*CommentsResult, error) {
	log := is.logger.WithFields(logrus.Fields{
		"request_id": RequestID(ctx),
		"shortcode":  shortcode,
	})
	log.Info("Fetching comments")

	target := is.endpoints.Build(shortcode, pageSize)
	page, err := is.fetcher.Fetch(ctx, s, target)
	if err != nil {
		log.Errorf("Failed to fetch comments: %v", err)
		return nil, err
	}

	doc, err := is.extractor.Extract(page)
	if err != nil {
		log.Error("Failed to extract comments")
		return nil, err
	}
	log.Infof("Successfully fetched comments (%s)", doc)

	result := &CommentsResult{Shortcode: shortcode, Document: doc}
	saved, err := is.store.SaveBatch(ctx, shortcode, doc)
	if err != nil {
		result.PersistErr = newScrapeError(KindPersistence, "save batch", err)
		log.Errorf("Error saving comments to the database: %v", err)
		return result, nil
	}

	result.Saved = saved
	log.Infof("Saved %d comments to database", saved)
	return result, nil
}
