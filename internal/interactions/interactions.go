package interactions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"example.com/naborly/internal/logger"
	"example.com/naborly/internal/models"
	"example.com/naborly/internal/store"
)

var logg = logger.New()

// ReactionState reports what a toggle did.
type ReactionState string

const (
	ReactionAdded   ReactionState = "added"
	ReactionRemoved ReactionState = "removed"
)

// Service applies reactions and comments to posts and maintains the
// notification queue and follow edges.
type Service struct {
	store store.StoreInterface
}

func New(st store.StoreInterface) *Service {
	return &Service{store: st}
}

// React toggles the (post, user, emoji) triple. Adding a reaction to
// someone else's post queues a notification for the author.
func (s *Service) React(ctx context.Context, postID int64, userID, emoji string) (ReactionState, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return "", fmt.Errorf("%w: emoji required", models.ErrValidation)
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return "", err
	}

	added, err := s.store.ToggleReaction(ctx, postID, userID, emoji)
	if err != nil {
		logg.Error("interactions", "Failed to toggle reaction", err)
		return "", err
	}

	if added {
		s.notify(ctx, post, userID, models.NotifyReaction, map[string]string{
			"actor_id": userID,
			"emoji":    emoji,
		})
		return ReactionAdded, nil
	}
	return ReactionRemoved, nil
}

// Comment adds a comment to a post and notifies the post author.
func (s *Service) Comment(ctx context.Context, postID int64, userID, text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: comment text required", models.ErrValidation)
	}

	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return 0, err
	}

	id, err := s.store.CreateComment(ctx, models.Comment{
		PostID:   postID,
		AuthorID: userID,
		Text:     text,
		Created:  time.Now().UTC(),
	})
	if err != nil {
		logg.Error("interactions", "Failed to create comment", err)
		return 0, err
	}

	s.notify(ctx, post, userID, models.NotifyComment, map[string]string{
		"actor_id": userID,
	})

	logg.Info("interactions", "Comment created by user_id="+userID)
	return id, nil
}

// ListComments returns the whole comment thread, oldest first.
func (s *Service) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	return s.store.ListComments(ctx, postID)
}

// --- Follows ---

// Follow records that followerID now follows followeeID. The followee
// must exist; following yourself is ignored by the store.
func (s *Service) Follow(ctx context.Context, followerID, followeeID string) error {
	if _, err := s.store.GetUserByID(ctx, followeeID); err != nil {
		return err
	}
	return s.store.Follow(ctx, followerID, followeeID)
}

func (s *Service) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return s.store.Unfollow(ctx, followerID, followeeID)
}

// --- Notifications ---

func (s *Service) Notifications(ctx context.Context, userID string, onlyUnread bool) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, userID, onlyUnread)
}

func (s *Service) MarkNotificationsRead(ctx context.Context, userID string) error {
	return s.store.MarkNotificationsRead(ctx, userID)
}

// notify queues a notification for the post author. Self-interactions
// are skipped, and a failed insert only logs: the interaction itself
// already committed and must not be rolled back for a lost ping.
func (s *Service) notify(ctx context.Context, post models.Post, actorID string, kind models.NotificationKind, payload map[string]string) {
	if post.AuthorID == actorID {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logg.Error("interactions", "Failed to marshal notification payload", err)
		return
	}
	_, err = s.store.AddNotification(ctx, models.Notification{
		UserID:  post.AuthorID,
		PostID:  post.ID,
		Kind:    kind,
		Payload: string(data),
		Created: time.Now().UTC(),
	})
	if err != nil {
		logg.Error("interactions", "Failed to queue notification", err)
	}
}
