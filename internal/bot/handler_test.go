package bot

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instagram-comment-scraper/internal/config"
	"instagram-comment-scraper/internal/database"
	"instagram-comment-scraper/internal/monitoring"
	"instagram-comment-scraper/internal/scraper"
	"instagram-comment-scraper/internal/scraper/scrapertest"
	"instagram-comment-scraper/pkg/types"
)

const postURL = "https://www.instagram.com/p/ABC123xyz/"

type sent struct {
	ChatID   int64
	ReplyTo  int
	Text     string
	Markdown bool
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (f *fakeSender) Send(chatID int64, replyTo int, text string, markdown bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{chatID, replyTo, text, markdown})
	return f.err
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.Text
	}
	return out
}

type stubScraper struct {
	mu     sync.Mutex
	calls  []string
	result *scraper.CommentsResult
	err    error
}

func (s *stubScraper) ScrapeComments(ctx context.Context, shortcode string, pageSize int) (*scraper.CommentsResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, shortcode)
	s.mu.Unlock()
	return s.result, s.err
}

type runLog struct {
	mu   sync.Mutex
	runs []monitoring.ScrapeRun
}

func (r *runLog) RecordScrapeRun(run monitoring.ScrapeRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newStubHandler(s Scraper) (*Handler, *fakeSender, *runLog) {
	sender := &fakeSender{}
	runs := &runLog{}
	h := NewHandler(sender, s, runs, 5000, config.ScraperConfig{ConcurrentWorkers: 1}, quietLogger())
	return h, sender, runs
}

func TestHandle_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	logger := quietLogger()

	db, err := database.NewConnection(&config.DatabaseConfig{Driver: database.DriverSQLite, Name: ":memory:"}, logger)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.RunMigrations())

	driver := scrapertest.NewDriver()
	driver.DefaultPage = scrapertest.CommentsPage(types.NewCommentDocument(
		types.NewCommentEdge("bob", "Nice!", 1700000000),
	))

	igCfg := config.InstagramConfig{
		BaseURL:   "https://www.instagram.com/",
		QueryHash: "abc123",
		Auth: config.AuthConfig{
			Username:     "scraper",
			Password:     "secret",
			CookiesFile:  filepath.Join(dir, "cookies.json"),
			LoginTimeout: 1,
		},
		Fetch: config.FetchConfig{ViewSource: true, ContentTimeout: 1},
	}
	s := scraper.NewInstagramScraper(igCfg, driver.Factory(), db, logger)
	monitor := monitoring.NewMonitor(logger, filepath.Join(dir, "metrics.json"))

	sender := &fakeSender{}
	h := NewHandler(sender, s, monitor, 5000, config.ScraperConfig{ConcurrentWorkers: 1, RateLimit: config.RateLimitConfig{RequestsPerMinute: 6}}, logger)

	h.Handle(context.Background(), Message{ChatID: 42, MessageID: 7, Text: postURL})

	require.Len(t, sender.msgs, 2)
	assert.Equal(t, sent{42, 7, fetchingText, false}, sender.msgs[0])
	assert.Equal(t, sent{42, 0, "💬 Nice!", true}, sender.msgs[1])

	comments, err := db.GetCommentsByShortcode(context.Background(), "ABC123xyz", 10)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "ABC123xyz", comments[0].Shortcode)
	assert.Equal(t, "Nice!", comments[0].CommentText)
	assert.Equal(t, "bob", comments[0].Username)
	assert.True(t, time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC).Equal(comments[0].Timestamp))

	assert.Equal(t, 1, driver.Closes)
	assert.True(t, driver.Submitted)
	require.NotEmpty(t, driver.Visited)
	assert.True(t, strings.HasPrefix(driver.Visited[len(driver.Visited)-1], "view-source:https://www.instagram.com/graphql/query/?"))

	met := monitor.GetMetrics()
	assert.Equal(t, 1, met.SuccessfulRuns)
	assert.Equal(t, 1, met.CommentsSaved)
}

func TestHandle_Start(t *testing.T) {
	h, sender, _ := newStubHandler(&stubScraper{})

	h.Handle(context.Background(), Message{ChatID: 1, MessageID: 2, Text: "/start", Command: "start"})

	require.Len(t, sender.msgs, 1)
	assert.Equal(t, sent{1, 2, welcomeText, true}, sender.msgs[0])
}

func TestHandle_Help(t *testing.T) {
	h, sender, _ := newStubHandler(&stubScraper{})

	h.Handle(context.Background(), Message{ChatID: 1, MessageID: 2, Text: "/help", Command: "help"})

	require.Len(t, sender.msgs, 1)
	assert.Equal(t, helpText, sender.msgs[0].Text)
	assert.True(t, sender.msgs[0].Markdown)
}

func TestHandle_InvalidURL(t *testing.T) {
	stub := &stubScraper{}
	h, sender, runs := newStubHandler(stub)

	for _, text := range []string{"hello", "https://www.instagram.com/p/", "/unknown"} {
		h.Handle(context.Background(), Message{ChatID: 1, Text: text})
	}

	assert.Equal(t, []string{invalidURLText, invalidURLText, invalidURLText}, sender.texts())
	assert.Empty(t, stub.calls)
	assert.Empty(t, runs.runs)
}

func TestHandle_FailureReplies(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		reply   string
		failure string
	}{
		{
			name:    "extraction",
			err:     &scraper.ScrapeError{Kind: scraper.KindExtraction, Op: "fetch", Err: scraper.ErrContentTimeout},
			reply:   fetchFailedText,
			failure: "extraction_failure",
		},
		{
			name:    "launch",
			err:     &scraper.ScrapeError{Kind: scraper.KindLaunch, Op: "initialize", Err: errors.New("no chrome")},
			reply:   errorText,
			failure: "launch_failure",
		},
		{
			name:    "auth timeout",
			err:     &scraper.ScrapeError{Kind: scraper.KindAuthTimeout, Op: "sign in", Err: scraper.ErrElementNotFound},
			reply:   errorText,
			failure: "auth_element_timeout",
		},
		{
			name:    "unexpected",
			err:     errors.New("failed to navigate: connection reset"),
			reply:   errorText,
			failure: "unexpected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, sender, runs := newStubHandler(&stubScraper{err: tt.err})

			h.Handle(context.Background(), Message{ChatID: 1, MessageID: 3, Text: postURL})

			assert.Equal(t, []string{fetchingText, tt.reply}, sender.texts())
			require.Len(t, runs.runs, 1)
			assert.Equal(t, tt.failure, runs.runs[0].Failure)
			assert.Equal(t, "ABC123xyz", runs.runs[0].Shortcode)
		})
	}
}

func TestHandle_NoComments(t *testing.T) {
	stub := &stubScraper{result: &scraper.CommentsResult{Shortcode: "ABC123xyz", Document: types.NewCommentDocument()}}
	h, sender, _ := newStubHandler(stub)

	h.Handle(context.Background(), Message{ChatID: 1, Text: postURL})

	assert.Equal(t, []string{fetchingText, noCommentsText}, sender.texts())
}

func TestHandle_PersistFailureStillDelivers(t *testing.T) {
	stub := &stubScraper{result: &scraper.CommentsResult{
		Shortcode:  "ABC123xyz",
		Document:   types.NewCommentDocument(types.NewCommentEdge("bob", "still here", 1700000000)),
		PersistErr: &scraper.ScrapeError{Kind: scraper.KindPersistence, Op: "save batch", Err: errors.New("db down")},
	}}
	h, sender, runs := newStubHandler(stub)

	h.Handle(context.Background(), Message{ChatID: 1, Text: postURL})

	assert.Equal(t, []string{fetchingText, "💬 still here"}, sender.texts())
	require.Len(t, runs.runs, 1)
	assert.Equal(t, "persistence_failure", runs.runs[0].Failure)
	assert.Equal(t, 1, runs.runs[0].Fetched)
	assert.Zero(t, runs.runs[0].Saved)
}

func TestHandle_ChunksLongOutput(t *testing.T) {
	edges := make([]types.CommentEdge, 0, 200)
	for i := 0; i < 200; i++ {
		edges = append(edges, types.NewCommentEdge("u", strings.Repeat("x", 50), int64(1700000000+i)))
	}
	stub := &stubScraper{result: &scraper.CommentsResult{Document: types.NewCommentDocument(edges...), Saved: 200}}
	h, sender, _ := newStubHandler(stub)

	h.Handle(context.Background(), Message{ChatID: 1, Text: postURL})

	texts := sender.texts()
	require.Len(t, texts, 4)
	assert.Equal(t, fetchingText, texts[0])
	for _, text := range texts[1:] {
		assert.LessOrEqual(t, len([]rune(text)), 4096)
	}
}

func TestHandle_CancelledBeforeAdmission(t *testing.T) {
	stub := &stubScraper{}
	h, sender, _ := newStubHandler(stub)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// occupy the only slot so Acquire has to wait on the cancelled context
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	h.Handle(ctx, Message{ChatID: 1, Text: postURL})

	assert.Equal(t, []string{fetchingText, errorText}, sender.texts())
	assert.Empty(t, stub.calls)
}

func TestMessageFromTelegram(t *testing.T) {
	m := &tgbotapi.Message{
		MessageID: 9,
		Chat:      &tgbotapi.Chat{ID: 1234},
		Text:      "/help",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 5}},
	}

	assert.Equal(t, Message{ChatID: 1234, MessageID: 9, Text: "/help", Command: "help"}, MessageFromTelegram(m))

	plain := &tgbotapi.Message{MessageID: 10, Chat: &tgbotapi.Chat{ID: 1}, Text: postURL}
	assert.Equal(t, "", MessageFromTelegram(plain).Command)
}
