package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"instagram-comment-scraper/internal/database/models"
)

const commentColumns = `id, shortcode, comment_text, username, timestamp, scraped_at`

// GetCommentsByShortcode returns the stored comments of one post, oldest first.
func (db *DB) GetCommentsByShortcode(ctx context.Context, shortcode string, limit int) ([]*models.Comment, error) {
	query := db.bind(`
        SELECT ` + commentColumns + `
        FROM instagram_comments
        WHERE shortcode = $1
        ORDER BY timestamp ASC, id ASC
        LIMIT $2`)

	rows, err := db.conn.QueryContext(ctx, query, shortcode, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	return scanComments(rows)
}

// GetRecentComments returns the most recently scraped comments across all posts.
func (db *DB) GetRecentComments(ctx context.Context, limit int) ([]*models.Comment, error) {
	query := db.bind(`
        SELECT ` + commentColumns + `
        FROM instagram_comments
        ORDER BY scraped_at DESC, id DESC
        LIMIT $1`)

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	return scanComments(rows)
}

// GetCommentsForExport retrieves every stored comment of a post for CSV export.
// An empty shortcode exports all posts.
func (db *DB) GetCommentsForExport(ctx context.Context, shortcode string) ([]*models.Comment, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if shortcode == "" {
		rows, err = db.conn.QueryContext(ctx, `
            SELECT `+commentColumns+`
            FROM instagram_comments
            ORDER BY shortcode, timestamp`)
	} else {
		rows, err = db.conn.QueryContext(ctx, db.bind(`
            SELECT `+commentColumns+`
            FROM instagram_comments
            WHERE shortcode = $1
            ORDER BY timestamp`), shortcode)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query comments for export: %w", err)
	}
	defer rows.Close()

	return scanComments(rows)
}

// CountComments returns the number of stored comments for shortcode, or for
// all posts when shortcode is empty.
func (db *DB) CountComments(ctx context.Context, shortcode string) (int, error) {
	var count int
	var err error
	if shortcode == "" {
		err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM instagram_comments`).Scan(&count)
	} else {
		err = db.conn.QueryRowContext(ctx,
			db.bind(`SELECT COUNT(*) FROM instagram_comments WHERE shortcode = $1`), shortcode).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get comments count: %w", err)
	}
	return count, nil
}

// GetStats returns aggregate scraping statistics.
func (db *DB) GetStats(ctx context.Context) (*models.Stats, error) {
	stats := &models.Stats{}

	err := db.conn.QueryRowContext(ctx, `
        SELECT COUNT(*), COUNT(DISTINCT shortcode), COUNT(DISTINCT username)
        FROM instagram_comments`).Scan(&stats.TotalComments, &stats.PostsScraped, &stats.UniqueUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment totals: %w", err)
	}

	// Top post by comment count
	var top sql.NullString
	err = db.conn.QueryRowContext(ctx, `
        SELECT shortcode FROM instagram_comments
        GROUP BY shortcode
        ORDER BY COUNT(*) DESC, shortcode
        LIMIT 1`).Scan(&top)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get top post: %w", err)
	}
	if top.Valid {
		stats.TopShortcode = top.String
	}

	var last sql.NullTime
	err = db.conn.QueryRowContext(ctx, `
        SELECT scraped_at FROM instagram_comments
        ORDER BY scraped_at DESC
        LIMIT 1`).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get last scraped time: %w", err)
	}
	if last.Valid {
		t := last.Time.UTC()
		stats.LastScrapedAt = &t
	}

	return stats, nil
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func scanComments(rows *sql.Rows) ([]*models.Comment, error) {
	var comments []*models.Comment
	for rows.Next() {
		c := &models.Comment{}
		if err := rows.Scan(&c.ID, &c.Shortcode, &c.CommentText, &c.Username, &c.Timestamp, &c.ScrapedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Timestamp = c.Timestamp.UTC()
		c.ScrapedAt = c.ScrapedAt.UTC()
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read comments: %w", err)
	}
	return comments, nil
}
