package bot

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"instagram-comment-scraper/internal/config"
	"instagram-comment-scraper/internal/delivery"
	"instagram-comment-scraper/internal/monitoring"
	"instagram-comment-scraper/internal/scraper"
)

const (
	welcomeText = "👋 *Welcome to Instagram Comment Scraper Bot!*\n\n" +
		"Send me an Instagram post URL to get comments.\n" +
		"For a list of available commands, type /help."

	helpText = "✨ *Welcome to Instagram Comment Scraper Bot!*\n\n" +
		"Here are the commands you can use:\n\n" +
		"* /start* - Start the bot and receive a welcome message.\n" +
		"* /help* - Display this help message.\n\n" +
		"To get comments from an Instagram post, send the post URL directly to the bot.\n" +
		"I will fetch and return the comments for you!"

	invalidURLText  = "❌ Invalid Instagram URL. Please try again."
	fetchingText    = "🔄 Fetching comments, please wait..."
	noCommentsText  = "ℹ️ No comments found for this post."
	fetchFailedText = "⚠️ Failed to fetch comments. Please try again later."
	errorText       = "❌ An error occurred while fetching comments. Please try again later."
)

// Message is an incoming chat message reduced to what the handler needs.
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
	Command   string
}

// Sender delivers text to a chat. A non-zero replyTo quotes that message.
type Sender interface {
	Send(chatID int64, replyTo int, text string, markdown bool) error
}

type Scraper interface {
	ScrapeComments(ctx context.Context, shortcode string, pageSize int) (*scraper.CommentsResult, error)
}

type RunRecorder interface {
	RecordScrapeRun(run monitoring.ScrapeRun)
}

// Handler routes chat messages. Scrapes are bounded by a weighted semaphore
// (concurrent browser sessions) and paced by a token bucket.
type Handler struct {
	sender   Sender
	scraper  Scraper
	recorder RunRecorder
	pageSize int
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	logger   *logrus.Logger
}

func NewHandler(sender Sender, s Scraper, recorder RunRecorder, pageSize int, cfg config.ScraperConfig, logger *logrus.Logger) *Handler {
	workers := cfg.ConcurrentWorkers
	if workers <= 0 {
		workers = 1
	}

	limit := rate.Inf
	if rpm := cfg.RateLimit.RequestsPerMinute; rpm > 0 {
		limit = rate.Every(time.Minute / time.Duration(rpm))
	}

	return &Handler{
		sender:   sender,
		scraper:  s,
		recorder: recorder,
		pageSize: pageSize,
		sem:      semaphore.NewWeighted(int64(workers)),
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

func (h *Handler) Handle(ctx context.Context, msg Message) {
	switch msg.Command {
	case "start":
		h.reply(msg, welcomeText, true)
	case "help":
		h.reply(msg, helpText, true)
	default:
		h.handlePostURL(ctx, msg)
	}
}

func (h *Handler) handlePostURL(ctx context.Context, msg Message) {
	shortcode, err := scraper.ExtractShortcode(strings.TrimSpace(msg.Text))
	if err != nil {
		h.reply(msg, invalidURLText, false)
		return
	}

	ctx = scraper.WithRequestID(ctx, uuid.New().String())
	log := h.logger.WithFields(logrus.Fields{
		"request_id": scraper.RequestID(ctx),
		"chat_id":    msg.ChatID,
		"shortcode":  shortcode,
	})

	h.reply(msg, fetchingText, false)

	if err := h.sem.Acquire(ctx, 1); err != nil {
		log.Warnf("Scrape not admitted: %v", err)
		h.reply(msg, errorText, false)
		return
	}
	defer h.sem.Release(1)

	if err := h.limiter.Wait(ctx); err != nil {
		log.Warnf("Scrape not admitted: %v", err)
		h.reply(msg, errorText, false)
		return
	}

	start := time.Now()
	result, err := h.scraper.ScrapeComments(ctx, shortcode, h.pageSize)
	h.record(shortcode, result, err, time.Since(start))

	if err != nil {
		log.Errorf("Error in fetch comments: %v", err)
		if kind, ok := scraper.KindOf(err); ok && kind == scraper.KindExtraction {
			h.reply(msg, fetchFailedText, false)
			return
		}
		h.reply(msg, errorText, false)
		return
	}

	if result.PersistErr != nil {
		log.Warnf("Delivering comments that were not stored: %v", result.PersistErr)
	}

	chunks := delivery.Messages(result.Document)
	if len(chunks) == 0 {
		h.reply(msg, noCommentsText, false)
		return
	}
	for _, chunk := range chunks {
		if err := h.sender.Send(msg.ChatID, 0, chunk, true); err != nil {
			log.Errorf("Failed to send comments: %v", err)
			return
		}
	}
	log.Infof("Delivered %d comments in %d messages", result.Document.Len(), len(chunks))
}

func (h *Handler) record(shortcode string, result *scraper.CommentsResult, err error, elapsed time.Duration) {
	if h.recorder == nil {
		return
	}

	run := monitoring.ScrapeRun{Shortcode: shortcode, Duration: elapsed}
	switch {
	case err != nil:
		run.Failure = failureName(err)
	case result.PersistErr != nil:
		run.Fetched = result.Document.Len()
		run.Failure = scraper.KindPersistence.String()
	default:
		run.Fetched = result.Document.Len()
		run.Saved = result.Saved
	}
	h.recorder.RecordScrapeRun(run)
}

func failureName(err error) string {
	if kind, ok := scraper.KindOf(err); ok {
		return kind.String()
	}
	return "unexpected"
}

func (h *Handler) reply(msg Message, text string, markdown bool) {
	if err := h.sender.Send(msg.ChatID, msg.MessageID, text, markdown); err != nil {
		h.logger.WithField("chat_id", msg.ChatID).Errorf("Failed to send reply: %v", err)
	}
}
