package feed

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"example.com/naborly/internal/logger"
	"example.com/naborly/internal/models"
	"example.com/naborly/internal/store"

	"github.com/samber/lo"
)

var logg = logger.New()

// ErrNotPostAuthor is returned when someone other than the author tries
// to delete a post.
var ErrNotPostAuthor = errors.New("feed: not the post author")

// unknownAuthor is rendered for posts whose author account no longer
// exists; feed reads never fail on a missing author.
var unknownAuthor = models.AuthorSummary{Username: "unknown", Name: "Unknown user", Avatar: "👤"}

// Service composes the feed: posts ordered newest first, author
// summaries, and counts aggregated live from the underlying rows.
type Service struct {
	store    store.StoreInterface
	pageSize int
}

func New(st store.StoreInterface, defaultPageSize int) *Service {
	if defaultPageSize <= 0 {
		defaultPageSize = 10
	}
	return &Service{store: st, pageSize: defaultPageSize}
}

// --- Cursor ---

// The cursor is an opaque keyset position: base64("createdUnixNano:id").
// Both components strictly decrease page over page, so concurrent
// inserts (which land at the head) can never duplicate or skip rows in
// an ongoing walk.
func encodeCursor(created time.Time, id int64) string {
	return base64.RawURLEncoding.EncodeToString(fmt.Appendf(nil, "%d:%d", created.UnixNano(), id))
}

func decodeCursor(cursor string) (beforeCreated, beforeID int64, err error) {
	if cursor == "" {
		return math.MaxInt64, math.MaxInt64, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: malformed cursor", models.ErrValidation)
	}
	// Exactly two integer fields; trailing garbage is rejected.
	createdPart, idPart, ok := strings.Cut(string(raw), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: malformed cursor", models.ErrValidation)
	}
	beforeCreated, err = strconv.ParseInt(createdPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: malformed cursor", models.ErrValidation)
	}
	beforeID, err = strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: malformed cursor", models.ErrValidation)
	}
	return beforeCreated, beforeID, nil
}

// --- Operations ---

// List returns one feed page and the cursor for the next one. An empty
// next cursor means the walk is done.
func (s *Service) List(ctx context.Context, cursor string, pageSize int) ([]models.PostView, string, error) {
	if pageSize <= 0 {
		pageSize = s.pageSize
	}

	beforeCreated, beforeID, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	entries, err := s.store.ListFeed(ctx, beforeCreated, beforeID, pageSize)
	if err != nil {
		logg.Error("feed", "Failed to load feed page", err)
		return nil, "", err
	}

	// Reaction counts are aggregated per post on every read; there is
	// no stored counter to drift.
	summaries := make(map[int64]map[string]int, len(entries))
	for _, entry := range entries {
		summary, err := s.store.ReactionSummary(ctx, entry.Post.ID)
		if err != nil {
			logg.Error("feed", "Failed to load reaction summary", err)
			return nil, "", err
		}
		summaries[entry.Post.ID] = summary
	}

	views := lo.Map(entries, func(entry models.FeedEntry, _ int) models.PostView {
		author := unknownAuthor
		if entry.Author != nil {
			author = models.AuthorSummary{
				ID:       entry.Author.ID,
				Username: entry.Author.Username,
				Name:     entry.Author.Name,
				Avatar:   entry.Author.Avatar,
			}
		}
		return models.PostView{
			Post:         entry.Post,
			Author:       author,
			Reactions:    summaries[entry.Post.ID],
			CommentCount: entry.CommentCount,
		}
	})

	var next string
	if len(entries) == pageSize {
		last := entries[len(entries)-1].Post
		next = encodeCursor(last.Created, last.ID)
	}
	return views, next, nil
}

// CreatePost validates and stores a new post, timestamped at
// server-observed creation time. A post needs a message, media, or both.
func (s *Service) CreatePost(ctx context.Context, authorID, message, mediaURL string, mediaKind models.MediaKind) (int64, error) {
	message = strings.TrimSpace(message)
	if mediaKind == "" {
		mediaKind = models.MediaNone
	}
	if !mediaKind.Valid() {
		return 0, fmt.Errorf("%w: unknown media kind %q", models.ErrValidation, mediaKind)
	}
	if mediaKind != models.MediaNone && mediaURL == "" {
		return 0, fmt.Errorf("%w: media kind set but no media reference", models.ErrValidation)
	}
	if mediaKind == models.MediaNone && mediaURL != "" {
		return 0, fmt.Errorf("%w: media reference without a media kind", models.ErrValidation)
	}
	if message == "" && mediaKind == models.MediaNone {
		return 0, fmt.Errorf("%w: message or media required", models.ErrValidation)
	}

	post := models.Post{
		AuthorID:  authorID,
		Message:   message,
		MediaURL:  mediaURL,
		MediaKind: mediaKind,
		Created:   time.Now().UTC(),
	}

	id, err := s.store.CreatePost(ctx, post)
	if err != nil {
		logg.Error("feed", "Failed to create post", err)
		return 0, err
	}
	logg.Info("feed", "Post created by user_id="+authorID)
	return id, nil
}

// DeletePost removes a post and everything hanging off it. Only the
// author may delete.
func (s *Service) DeletePost(ctx context.Context, postID int64, userID string) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return ErrNotPostAuthor
	}
	if err := s.store.DeletePost(ctx, postID); err != nil {
		logg.Error("feed", "Failed to delete post", err)
		return err
	}
	logg.Info("feed", "Post deleted by its author")
	return nil
}
