package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"instagram-comment-scraper/internal/config"
	"instagram-comment-scraper/internal/database/models"
	"instagram-comment-scraper/pkg/types"
)

//go:embed migrations
var migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DB struct {
	conn   *sql.DB
	driver string
	logger *logrus.Logger

	// now is overridable in tests
	now func() time.Time
}

func NewConnection(cfg *config.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	if driver == DriverSQLite {
		logger.Infof("Connecting to database: driver=sqlite name=%s", cfg.DSN())
	} else if cfg.URL != "" {
		logger.Info("Connecting to database: driver=postgres via DATABASE_URL")
	} else {
		logger.Infof("Connecting to database: host=%s port=%d dbname=%s user=%s", cfg.Host, cfg.Port, cfg.Name, cfg.User)
	}

	conn, err := sql.Open(driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if driver == DriverSQLite {
		// an in-memory database only exists on the connection that created it
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")
	return &DB{
		conn:   conn,
		driver: driver,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (db *DB) Driver() string {
	return db.driver
}

// RunMigrations applies the schema files for the active driver in name order.
// Every statement is idempotent.
func (db *DB) RunMigrations() error {
	db.logger.Info("Running database migrations...")

	dir := path.Join("migrations", db.driver)
	files, err := fs.Glob(migrations, dir+"/*.sql")
	if err != nil {
		return fmt.Errorf("failed to find migration files: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		db.logger.Infof("Running migration: %s", file)

		content, err := migrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := db.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	db.logger.Info("Migrations completed successfully")
	return nil
}

// bind rewrites $n placeholders to SQLite's numbered ?n form.
func (db *DB) bind(query string) string {
	if db.driver == DriverSQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

// SaveBatch stores one row per comment edge of doc in a single transaction.
// Either every row is committed or none is.
func (db *DB) SaveBatch(ctx context.Context, shortcode string, doc *types.CommentDocument) (int, error) {
	if doc == nil {
		return 0, fmt.Errorf("failed to save comments: nil document")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, db.bind(`
        INSERT INTO instagram_comments (shortcode, comment_text, username, timestamp, scraped_at)
        VALUES ($1, $2, $3, $4, $5)`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	scrapedAt := db.now()
	saved := 0
	for i, edge := range doc.Edges() {
		comment, err := models.CommentFromEdge(shortcode, edge, scrapedAt)
		if err != nil {
			return 0, fmt.Errorf("failed to convert comment %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx,
			comment.Shortcode, comment.CommentText, comment.Username,
			comment.Timestamp, comment.ScrapedAt,
		); err != nil {
			return 0, fmt.Errorf("failed to insert comment %d: %w", i, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit comments: %w", err)
	}

	db.logger.WithField("shortcode", shortcode).Debugf("Committed %d comments", saved)
	return saved, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
