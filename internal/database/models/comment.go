package models

import (
	"errors"
	"fmt"
	"time"

	"instagram-comment-scraper/internal/utils"
	"instagram-comment-scraper/pkg/types"
)

type Comment struct {
	ID          int64     `json:"id" db:"id"`
	Shortcode   string    `json:"shortcode" db:"shortcode"`
	CommentText string    `json:"comment_text" db:"comment_text"`
	Username    string    `json:"username" db:"username"`
	Timestamp   time.Time `json:"timestamp" db:"timestamp"`
	ScrapedAt   time.Time `json:"scraped_at" db:"scraped_at"`
}

var ErrInvalidEdge = errors.New("invalid comment edge")

// CommentFromEdge builds the row for one comment edge, converting the epoch
// created_at into a calendar time. Empty usernames and zero timestamps are
// stored as they arrive.
func CommentFromEdge(shortcode string, edge types.CommentEdge, scrapedAt time.Time) (*Comment, error) {
	if shortcode == "" {
		return nil, fmt.Errorf("%w: empty shortcode", ErrInvalidEdge)
	}

	return &Comment{
		Shortcode:   shortcode,
		CommentText: edge.Node.Text,
		Username:    edge.Node.Owner.Username,
		Timestamp:   utils.FromUnix(edge.Node.CreatedAt),
		ScrapedAt:   scrapedAt,
	}, nil
}

type Stats struct {
	TotalComments int        `json:"total_comments"`
	PostsScraped  int        `json:"posts_scraped"`
	UniqueUsers   int        `json:"unique_users"`
	TopShortcode  string     `json:"top_shortcode"`
	LastScrapedAt *time.Time `json:"last_scraped_at,omitempty"`
}
