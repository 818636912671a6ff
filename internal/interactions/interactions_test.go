package interactions

import (
	"context"
	"errors"
	"testing"
	"time"

	"example.com/naborly/internal/models"
	"example.com/naborly/internal/store"
)

func setup(t *testing.T) (*Service, *store.MockStore, int64) {
	t.Helper()
	m := store.NewMock()
	ctx := context.Background()
	m.CreateUser(ctx, models.User{ID: "author", Username: "alice", Name: "Alice"})
	m.CreateUser(ctx, models.User{ID: "viewer", Username: "bob", Name: "Bob"})
	postID, _ := m.CreatePost(ctx, models.Post{
		AuthorID:  "author",
		Message:   "hello ward 12",
		MediaKind: models.MediaNone,
		Created:   time.Now().UTC(),
	})
	return New(m), m, postID
}

func TestReact_ToggleIsIdempotentOverPairs(t *testing.T) {
	svc, m, postID := setup(t)
	ctx := context.Background()

	state, err := svc.React(ctx, postID, "viewer", "👍")
	if err != nil {
		t.Fatalf("first react failed: %v", err)
	}
	if state != ReactionAdded {
		t.Fatalf("expected added, got %s", state)
	}

	summary, _ := m.ReactionSummary(ctx, postID)
	if summary["👍"] != 1 {
		t.Fatalf("expected count 1, got %d", summary["👍"])
	}

	state, err = svc.React(ctx, postID, "viewer", "👍")
	if err != nil {
		t.Fatalf("second react failed: %v", err)
	}
	if state != ReactionRemoved {
		t.Fatalf("expected removed, got %s", state)
	}

	summary, _ = m.ReactionSummary(ctx, postID)
	if summary["👍"] != 0 {
		t.Fatalf("toggle pair must return count to 0, got %d", summary["👍"])
	}
}

func TestReact_DistinctEmojiCoexist(t *testing.T) {
	svc, m, postID := setup(t)
	ctx := context.Background()

	svc.React(ctx, postID, "viewer", "👍")
	svc.React(ctx, postID, "viewer", "❤️")

	summary, _ := m.ReactionSummary(ctx, postID)
	if summary["👍"] != 1 || summary["❤️"] != 1 {
		t.Fatalf("distinct emoji from one user must coexist: %v", summary)
	}
}

func TestReact_PostNotFound(t *testing.T) {
	svc, _, _ := setup(t)

	if _, err := svc.React(context.Background(), 9999, "viewer", "👍"); !errors.Is(err, store.ErrPostNotFound) {
		t.Fatalf("expected post not found, got: %v", err)
	}
}

func TestReact_EmptyEmoji(t *testing.T) {
	svc, _, postID := setup(t)

	if _, err := svc.React(context.Background(), postID, "viewer", "  "); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}
}

func TestComment_Validation(t *testing.T) {
	svc, _, postID := setup(t)
	ctx := context.Background()

	if _, err := svc.Comment(ctx, postID, "viewer", "   "); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected validation error for blank text, got: %v", err)
	}
	if _, err := svc.Comment(ctx, 9999, "viewer", "anyone home?"); !errors.Is(err, store.ErrPostNotFound) {
		t.Fatalf("expected post not found, got: %v", err)
	}
}

func TestComment_ThreadAscending(t *testing.T) {
	svc, _, postID := setup(t)
	ctx := context.Background()

	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		if _, err := svc.Comment(ctx, postID, "viewer", text); err != nil {
			t.Fatalf("comment failed: %v", err)
		}
	}

	comments, err := svc.ListComments(ctx, postID)
	if err != nil {
		t.Fatalf("list comments failed: %v", err)
	}
	if len(comments) != len(texts) {
		t.Fatalf("expected %d comments, got %d", len(texts), len(comments))
	}
	for i, c := range comments {
		if c.Text != texts[i] {
			t.Fatalf("comments out of order: got %q at %d", c.Text, i)
		}
	}
}

func TestNotifications_QueuedForPostAuthor(t *testing.T) {
	svc, _, postID := setup(t)
	ctx := context.Background()

	svc.React(ctx, postID, "viewer", "👍")
	svc.Comment(ctx, postID, "viewer", "nice one")

	notifications, err := svc.Notifications(ctx, "author", true)
	if err != nil {
		t.Fatalf("list notifications failed: %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("expected 2 unread notifications, got %d", len(notifications))
	}

	// Removing the reaction does not notify again.
	svc.React(ctx, postID, "viewer", "👍")
	notifications, _ = svc.Notifications(ctx, "author", true)
	if len(notifications) != 2 {
		t.Fatalf("toggle-off must not notify, got %d", len(notifications))
	}

	if err := svc.MarkNotificationsRead(ctx, "author"); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	notifications, _ = svc.Notifications(ctx, "author", true)
	if len(notifications) != 0 {
		t.Fatalf("expected no unread notifications, got %d", len(notifications))
	}
	notifications, _ = svc.Notifications(ctx, "author", false)
	if len(notifications) != 2 {
		t.Fatalf("read notifications must still list with all=true, got %d", len(notifications))
	}
}

func TestNotifications_NoSelfNotify(t *testing.T) {
	svc, _, postID := setup(t)
	ctx := context.Background()

	svc.React(ctx, postID, "author", "👍")
	svc.Comment(ctx, postID, "author", "bumping my own post")

	notifications, _ := svc.Notifications(ctx, "author", true)
	if len(notifications) != 0 {
		t.Fatalf("self-interactions must not notify, got %d", len(notifications))
	}
}

func TestFollow(t *testing.T) {
	svc, m, _ := setup(t)
	ctx := context.Background()

	if err := svc.Follow(ctx, "viewer", "author"); err != nil {
		t.Fatalf("follow failed: %v", err)
	}
	if err := svc.Follow(ctx, "viewer", "missing-user"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for unknown followee, got: %v", err)
	}

	followers, _, err := m.FollowCounts(ctx, "author")
	if err != nil {
		t.Fatalf("follow counts failed: %v", err)
	}
	if followers != 1 {
		t.Fatalf("expected 1 follower, got %d", followers)
	}

	if err := svc.Unfollow(ctx, "viewer", "author"); err != nil {
		t.Fatalf("unfollow failed: %v", err)
	}
	followers, _, _ = m.FollowCounts(ctx, "author")
	if followers != 0 {
		t.Fatalf("expected 0 followers after unfollow, got %d", followers)
	}
}

func TestStorageFailurePropagates(t *testing.T) {
	svc := New(&store.MockStoreFail{})
	ctx := context.Background()

	if _, err := svc.React(ctx, 1, "viewer", "👍"); err == nil {
		t.Fatal("expected storage failure from react")
	}
	if _, err := svc.Comment(ctx, 1, "viewer", "text"); err == nil {
		t.Fatal("expected storage failure from comment")
	}
}
