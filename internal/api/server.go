package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"instagram-comment-scraper/internal/database"
	"instagram-comment-scraper/internal/database/models"
	"instagram-comment-scraper/internal/monitoring"
	"instagram-comment-scraper/internal/utils"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

type Server struct {
	db      *database.DB
	monitor *monitoring.Monitor
	logger  *logrus.Logger
	port    string
	mux     *http.ServeMux
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Count   int         `json:"count,omitempty"`
}

type CommentsResponse struct {
	Shortcode  string            `json:"shortcode,omitempty"`
	Comments   []*models.Comment `json:"comments"`
	TotalCount int               `json:"total_count"`
	Limit      int               `json:"limit"`
}

// NewServer serves the stored comments read-only. monitor may be nil, in
// which case health reports only the database.
func NewServer(db *database.DB, monitor *monitoring.Monitor, logger *logrus.Logger, port string) *Server {
	s := &Server{
		db:      db,
		monitor: monitor,
		logger:  logger,
		port:    port,
		mux:     http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Errorf("API server shutdown: %v", err)
		}
	}()

	s.logger.Infof("Starting API server on port %s", s.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/", s.corsMiddleware(s.handleRoot))
	s.mux.HandleFunc("/api/comments", s.corsMiddleware(s.handleComments))
	s.mux.HandleFunc("/api/stats", s.corsMiddleware(s.handleStats))
	s.mux.HandleFunc("/api/export/csv", s.corsMiddleware(s.handleExportCSV))
	s.mux.HandleFunc("/api/health", s.corsMiddleware(s.handleHealth))
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodGet {
			s.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, "Not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]string{
			"message":   "Instagram Comment Scraper API",
			"version":   "1.0.0",
			"endpoints": "/api/comments, /api/stats, /api/export/csv, /api/health",
		},
	})
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	shortcode := r.URL.Query().Get("shortcode")
	limit := parseLimit(r.URL.Query().Get("limit"))

	var (
		comments []*models.Comment
		err      error
	)
	if shortcode == "" {
		comments, err = s.db.GetRecentComments(r.Context(), limit)
	} else {
		comments, err = s.db.GetCommentsByShortcode(r.Context(), shortcode, limit)
	}
	if err != nil {
		s.logger.Errorf("Failed to fetch comments: %v", err)
		s.writeError(w, "Failed to fetch comments", http.StatusInternalServerError)
		return
	}

	total, err := s.db.CountComments(r.Context(), shortcode)
	if err != nil {
		s.logger.Errorf("Failed to get total count: %v", err)
		s.writeError(w, "Failed to get total count", http.StatusInternalServerError)
		return
	}

	if comments == nil {
		comments = []*models.Comment{}
	}
	s.writeJSON(w, APIResponse{
		Success: true,
		Data: CommentsResponse{
			Shortcode:  shortcode,
			Comments:   comments,
			TotalCount: total,
			Limit:      limit,
		},
		Count: len(comments),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		s.logger.Errorf("Failed to fetch stats: %v", err)
		s.writeError(w, "Failed to fetch stats", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, APIResponse{Success: true, Data: stats})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	shortcode := r.URL.Query().Get("shortcode")

	comments, err := s.db.GetCommentsForExport(r.Context(), shortcode)
	if err != nil {
		s.logger.Errorf("Failed to fetch comments for export: %v", err)
		s.writeError(w, "Failed to fetch comments for export", http.StatusInternalServerError)
		return
	}

	name := shortcode
	if name == "" {
		name = "all"
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=instagram_comments_%s_%s.csv", name, time.Now().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	cw.Write([]string{"Shortcode", "Username", "Comment", "Timestamp", "Scraped At"})
	for _, c := range comments {
		cw.Write([]string{
			c.Shortcode,
			c.Username,
			c.CommentText,
			utils.FormatTimestamp(c.Timestamp),
			utils.FormatTimestamp(c.ScrapedAt),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Errorf("Failed to write CSV export: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.writeError(w, "Database connection failed", http.StatusServiceUnavailable)
		return
	}

	data := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"database":  "connected",
	}
	if s.monitor != nil {
		data["scraper"] = s.monitor.GetHealthStatus()
	}

	s.writeJSON(w, APIResponse{Success: true, Data: data})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
