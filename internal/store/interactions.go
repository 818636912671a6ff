package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"example.com/naborly/internal/models"
)

// --- Reaction operations ---

// ToggleReaction inserts or removes the (post, user, emoji) triple in a
// single transaction. The check and the write share the transaction, so
// two concurrent toggles of the same triple cannot leave duplicates;
// the unique index backs that up at the schema level.
func (s *Store) ToggleReaction(ctx context.Context, postID int64, userID, emoji string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle tx: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, postID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrPostNotFound
		}
		return false, fmt.Errorf("check post: %w", err)
	}

	var reactionID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM reactions WHERE post_id = ? AND user_id = ? AND emoji = ?`,
		postID, userID, emoji,
	).Scan(&reactionID)

	var added bool
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `DELETE FROM reactions WHERE id = ?`, reactionID); err != nil {
			return false, fmt.Errorf("delete reaction: %w", err)
		}
		added = false
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reactions (post_id, user_id, emoji, created_at)
			VALUES (?, ?, ?, ?)`,
			postID, userID, emoji, time.Now().UTC().UnixNano(),
		); err != nil {
			return false, fmt.Errorf("insert reaction: %w", err)
		}
		added = true
	default:
		return false, fmt.Errorf("check reaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logg.Error("store", "Failed to commit reaction toggle", err)
		return false, fmt.Errorf("commit toggle: %w", err)
	}
	return added, nil
}

// --- Comment operations ---

// CreateComment inserts a comment after verifying the post still exists,
// both inside one transaction so the row never lands on a post deleted
// mid-flight.
func (s *Store) CreateComment(ctx context.Context, comment models.Comment) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin comment tx: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, comment.PostID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrPostNotFound
		}
		return 0, fmt.Errorf("check post: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO comments (post_id, user_id, text, created_at)
		VALUES (?, ?, ?, ?)`,
		comment.PostID, comment.AuthorID, comment.Text, comment.Created.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("comment insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logg.Error("store", "Failed to commit comment", err)
		return 0, fmt.Errorf("commit comment: %w", err)
	}
	return id, nil
}

// ListComments returns every comment on a post, oldest first, with the
// author columns joined in.
func (s *Store) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.user_id, c.text, c.created_at,
		       u.username, u.name, u.avatar
		FROM comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.post_id = ?
		ORDER BY c.created_at ASC, c.id ASC`, postID)
	if err != nil {
		logg.Error("store", "Failed to query comments", err)
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var (
			c        models.Comment
			created  int64
			username sql.NullString
			name     sql.NullString
			avatar   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &created,
			&username, &name, &avatar); err != nil {
			return nil, fmt.Errorf("scan comment row: %w", err)
		}
		c.Created = time.Unix(0, created)
		c.AuthorUsername = username.String
		c.AuthorName = name.String
		c.AuthorAvatar = avatar.String
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read comment rows: %w", err)
	}
	return comments, nil
}

// --- Notification operations ---

func (s *Store) AddNotification(ctx context.Context, n models.Notification) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, post_id, kind, payload, read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)`,
		n.UserID, n.PostID, string(n.Kind), n.Payload, n.Created.UnixNano(),
	)
	if err != nil {
		logg.Error("store", "Failed to insert notification", err)
		return 0, fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("notification insert id: %w", err)
	}
	return id, nil
}

func (s *Store) ListNotifications(ctx context.Context, userID string, onlyUnread bool) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, post_id, kind, payload, read, created_at
		FROM notifications WHERE user_id = ?`
	if onlyUnread {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		logg.Error("store", "Failed to query notifications", err)
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var (
			n       models.Notification
			kind    string
			read    int
			created int64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.PostID, &kind, &n.Payload, &read, &created); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		n.Kind = models.NotificationKind(kind)
		n.Read = read != 0
		n.Created = time.Unix(0, created)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read notification rows: %w", err)
	}
	return notifications, nil
}

func (s *Store) MarkNotificationsRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		logg.Error("store", "Failed to mark notifications read", err)
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
