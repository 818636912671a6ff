package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"example.com/naborly/internal/logger"
	"example.com/naborly/internal/models"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var logg = logger.New()

//go:embed migrations/*.sql
var migrationsFS embed.FS

// --- Interface ---

type StoreInterface interface {
	// users & follows
	CreateUser(ctx context.Context, user models.User) error
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	Follow(ctx context.Context, followerID, followeeID string) error
	Unfollow(ctx context.Context, followerID, followeeID string) error
	FollowCounts(ctx context.Context, userID string) (followers, following int, err error)

	// posts & feed
	CreatePost(ctx context.Context, post models.Post) (int64, error)
	GetPost(ctx context.Context, id int64) (models.Post, error)
	DeletePost(ctx context.Context, id int64) error
	ListFeed(ctx context.Context, beforeCreated, beforeID int64, limit int) ([]models.FeedEntry, error)
	ReactionSummary(ctx context.Context, postID int64) (map[string]int, error)

	// interactions
	ToggleReaction(ctx context.Context, postID int64, userID, emoji string) (added bool, err error)
	CreateComment(ctx context.Context, comment models.Comment) (int64, error)
	ListComments(ctx context.Context, postID int64) ([]models.Comment, error)

	// notifications
	AddNotification(ctx context.Context, n models.Notification) (int64, error)
	ListNotifications(ctx context.Context, userID string, onlyUnread bool) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string) error

	Close()
}

// --- Store Implementation ---

// Store owns the database handle. It is passed explicitly to every
// consumer; there is no package-level connection.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path and applies
// pending migrations.
func New(path string) (StoreInterface, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one connection serializes all
	// mutations and makes check-then-act transactions race-free.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logg.Info("store", "Connected to SQLite database (path anonymized)")
	return &Store{db: db}, nil
}

// --- Migration runner ---

func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if err == migrate.ErrNoChange {
		logg.Info("store", "No new migrations to apply")
	} else {
		logg.Info("store", "Migrations applied successfully")
	}
	return nil
}

// Close gracefully closes the database handle.
func (s *Store) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logg.Error("store", "Error closing database", err)
			return
		}
		logg.Info("store", "Database closed")
	}
}
