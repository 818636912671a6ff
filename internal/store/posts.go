package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"example.com/naborly/internal/models"
)

// --- Post operations ---

func (s *Store) CreatePost(ctx context.Context, post models.Post) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (user_id, message, media_url, media_kind, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		post.AuthorID, post.Message, post.MediaURL, string(post.MediaKind), post.Created.UnixNano(),
	)
	if err != nil {
		logg.Error("store", "Failed to insert post", err)
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post insert id: %w", err)
	}

	logg.Info("store", "Post created (content anonymized)")
	return id, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (models.Post, error) {
	var (
		p       models.Post
		kind    string
		created int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, message, media_url, media_kind, created_at
		FROM posts WHERE id = ?`, id,
	).Scan(&p.ID, &p.AuthorID, &p.Message, &p.MediaURL, &kind, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Post{}, ErrPostNotFound
		}
		logg.Error("store", "Failed to query post", err)
		return models.Post{}, fmt.Errorf("query post: %w", err)
	}
	p.MediaKind = models.MediaKind(kind)
	p.Created = time.Unix(0, created)
	return p, nil
}

// DeletePost removes a post; comments, reactions and notifications go
// with it through ON DELETE CASCADE, so the whole removal is one
// atomic statement.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		logg.Error("store", "Failed to delete post", err)
		return fmt.Errorf("delete post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete post rows affected: %w", err)
	}
	if affected == 0 {
		return ErrPostNotFound
	}
	logg.Info("store", "Post deleted")
	return nil
}

// --- Feed query ---

// ListFeed returns one keyset page of posts strictly older than the
// (beforeCreated, beforeID) position, newest first. The author row is
// LEFT JOINed so a deleted account never breaks a feed read, and the
// comment count is computed live from the comment rows.
func (s *Store) ListFeed(ctx context.Context, beforeCreated, beforeID int64, limit int) ([]models.FeedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.user_id, p.message, p.media_url, p.media_kind, p.created_at,
		       u.id, u.username, u.name, u.avatar,
		       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id) AS comment_count
		FROM posts p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.created_at < ? OR (p.created_at = ? AND p.id < ?)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ?`,
		beforeCreated, beforeCreated, beforeID, limit,
	)
	if err != nil {
		logg.Error("store", "Failed to query feed page", err)
		return nil, fmt.Errorf("query feed: %w", err)
	}
	defer rows.Close()

	var entries []models.FeedEntry
	for rows.Next() {
		var (
			e        models.FeedEntry
			kind     string
			created  int64
			authorID sql.NullString
			username sql.NullString
			name     sql.NullString
			avatar   sql.NullString
		)
		if err := rows.Scan(
			&e.Post.ID, &e.Post.AuthorID, &e.Post.Message, &e.Post.MediaURL, &kind, &created,
			&authorID, &username, &name, &avatar, &e.CommentCount,
		); err != nil {
			return nil, fmt.Errorf("scan feed row: %w", err)
		}
		e.Post.MediaKind = models.MediaKind(kind)
		e.Post.Created = time.Unix(0, created)
		if authorID.Valid {
			e.Author = &models.User{
				ID:       authorID.String,
				Username: username.String,
				Name:     name.String,
				Avatar:   avatar.String,
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		logg.Error("store", "Failed to read feed rows", err)
		return nil, fmt.Errorf("read feed rows: %w", err)
	}
	return entries, nil
}

// ReactionSummary aggregates reaction counts for one post grouped by
// emoji, computed from the reaction rows on every call.
func (s *Store) ReactionSummary(ctx context.Context, postID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT emoji, COUNT(*) FROM reactions WHERE post_id = ? GROUP BY emoji`, postID)
	if err != nil {
		logg.Error("store", "Failed to query reaction summary", err)
		return nil, fmt.Errorf("query reactions: %w", err)
	}
	defer rows.Close()

	summary := make(map[string]int)
	for rows.Next() {
		var (
			emoji string
			count int
		)
		if err := rows.Scan(&emoji, &count); err != nil {
			return nil, fmt.Errorf("scan reaction row: %w", err)
		}
		summary[emoji] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read reaction rows: %w", err)
	}
	return summary, nil
}
