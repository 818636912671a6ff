package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"example.com/naborly/internal/models"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// --- User operations ---

// CreateUser inserts a new user row. The caller supplies the id and the
// already-hashed password. Username uniqueness is enforced by the
// database, case-insensitively.
func (s *Store) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, name, avatar, bio, password_hash)
		VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Name, user.Avatar, user.Bio, user.PasswordHash,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		logg.Error("store", "Failed to create user", err)
		return fmt.Errorf("insert user: %w", err)
	}

	logg.Info("store", "User created (username anonymized)")
	return nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, `SELECT id, username, name, avatar, bio, password_hash
		FROM users WHERE username = ? COLLATE NOCASE`, username)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, `SELECT id, username, name, avatar, bio, password_hash
		FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Name, &u.Avatar, &u.Bio, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		logg.Error("store", "Failed to query user", err)
		return models.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

// --- Follow operations ---

// Follow records a follow edge. Following yourself or following twice
// is a no-op.
func (s *Store) Follow(ctx context.Context, followerID, followeeID string) error {
	if followerID == followeeID {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO follows (follower_id, followee_id) VALUES (?, ?)`,
		followerID, followeeID,
	)
	if err != nil {
		logg.Error("store", "Failed to create follow edge", err)
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

func (s *Store) Unfollow(ctx context.Context, followerID, followeeID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	)
	if err != nil {
		logg.Error("store", "Failed to delete follow edge", err)
		return fmt.Errorf("delete follow: %w", err)
	}
	return nil
}

// FollowCounts computes follower/following counters from the edge
// table. The counters are never stored, so they cannot drift.
func (s *Store) FollowCounts(ctx context.Context, userID string) (int, int, error) {
	var followers, following int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE followee_id = ?),
			(SELECT COUNT(*) FROM follows WHERE follower_id = ?)`,
		userID, userID,
	).Scan(&followers, &following)
	if err != nil {
		logg.Error("store", "Failed to count follows", err)
		return 0, 0, fmt.Errorf("count follows: %w", err)
	}
	return followers, following, nil
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique
}
