package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"example.com/naborly/internal/models"
)

// MockStore simulates the SQLite store in memory for testing. It keeps
// the same ordering and toggle semantics as the real queries.
type MockStore struct {
	mu sync.Mutex

	Users         map[string]models.User
	Follows       map[[2]string]bool // [follower, followee]
	Posts         map[int64]models.Post
	Comments      map[int64]models.Comment
	Reactions     map[int64]models.Reaction
	Notifications map[int64]models.Notification

	nextPostID         int64
	nextCommentID      int64
	nextReactionID     int64
	nextNotificationID int64

	ShouldFail bool // flag to simulate storage failures
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Users:         make(map[string]models.User),
		Follows:       make(map[[2]string]bool),
		Posts:         make(map[int64]models.Post),
		Comments:      make(map[int64]models.Comment),
		Reactions:     make(map[int64]models.Reaction),
		Notifications: make(map[int64]models.Notification),
	}
}

func (m *MockStore) Close() {}

func (m *MockStore) fail() error {
	if m.ShouldFail {
		return errors.New("mock: storage failure")
	}
	return nil
}

// --- users & follows ---

func (m *MockStore) CreateUser(ctx context.Context, user models.User) error {
	if err := m.fail(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Username == user.Username {
			return ErrDuplicateUsername
		}
	}
	m.Users[user.ID] = user
	return nil
}

func (m *MockStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	if err := m.fail(); err != nil {
		return models.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m *MockStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	if err := m.fail(); err != nil {
		return models.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MockStore) Follow(ctx context.Context, followerID, followeeID string) error {
	if err := m.fail(); err != nil {
		return err
	}
	if followerID == followeeID {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Follows[[2]string{followerID, followeeID}] = true
	return nil
}

func (m *MockStore) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if err := m.fail(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Follows, [2]string{followerID, followeeID})
	return nil
}

func (m *MockStore) FollowCounts(ctx context.Context, userID string) (int, int, error) {
	if err := m.fail(); err != nil {
		return 0, 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var followers, following int
	for edge := range m.Follows {
		if edge[1] == userID {
			followers++
		}
		if edge[0] == userID {
			following++
		}
	}
	return followers, following, nil
}

// --- posts & feed ---

func (m *MockStore) CreatePost(ctx context.Context, post models.Post) (int64, error) {
	if err := m.fail(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPostID++
	post.ID = m.nextPostID
	m.Posts[post.ID] = post
	return post.ID, nil
}

func (m *MockStore) GetPost(ctx context.Context, id int64) (models.Post, error) {
	if err := m.fail(); err != nil {
		return models.Post{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Posts[id]
	if !ok {
		return models.Post{}, ErrPostNotFound
	}
	return p, nil
}

func (m *MockStore) DeletePost(ctx context.Context, id int64) error {
	if err := m.fail(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Posts[id]; !ok {
		return ErrPostNotFound
	}
	delete(m.Posts, id)
	for cid, c := range m.Comments {
		if c.PostID == id {
			delete(m.Comments, cid)
		}
	}
	for rid, r := range m.Reactions {
		if r.PostID == id {
			delete(m.Reactions, rid)
		}
	}
	for nid, n := range m.Notifications {
		if n.PostID == id {
			delete(m.Notifications, nid)
		}
	}
	return nil
}

func (m *MockStore) ListFeed(ctx context.Context, beforeCreated, beforeID int64, limit int) ([]models.FeedEntry, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var posts []models.Post
	for _, p := range m.Posts {
		created := p.Created.UnixNano()
		if created < beforeCreated || (created == beforeCreated && p.ID < beforeID) {
			posts = append(posts, p)
		}
	}
	sort.Slice(posts, func(i, j int) bool {
		ci, cj := posts[i].Created.UnixNano(), posts[j].Created.UnixNano()
		if ci != cj {
			return ci > cj
		}
		return posts[i].ID > posts[j].ID
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}

	entries := make([]models.FeedEntry, 0, len(posts))
	for _, p := range posts {
		e := models.FeedEntry{Post: p}
		if u, ok := m.Users[p.AuthorID]; ok {
			author := u
			e.Author = &author
		}
		for _, c := range m.Comments {
			if c.PostID == p.ID {
				e.CommentCount++
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (m *MockStore) ReactionSummary(ctx context.Context, postID int64) (map[string]int, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	summary := make(map[string]int)
	for _, r := range m.Reactions {
		if r.PostID == postID {
			summary[r.Emoji]++
		}
	}
	return summary, nil
}

// --- interactions ---

func (m *MockStore) ToggleReaction(ctx context.Context, postID int64, userID, emoji string) (bool, error) {
	if err := m.fail(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Posts[postID]; !ok {
		return false, ErrPostNotFound
	}
	for id, r := range m.Reactions {
		if r.PostID == postID && r.UserID == userID && r.Emoji == emoji {
			delete(m.Reactions, id)
			return false, nil
		}
	}
	m.nextReactionID++
	m.Reactions[m.nextReactionID] = models.Reaction{PostID: postID, UserID: userID, Emoji: emoji}
	return true, nil
}

func (m *MockStore) CreateComment(ctx context.Context, comment models.Comment) (int64, error) {
	if err := m.fail(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Posts[comment.PostID]; !ok {
		return 0, ErrPostNotFound
	}
	m.nextCommentID++
	comment.ID = m.nextCommentID
	if u, ok := m.Users[comment.AuthorID]; ok {
		comment.AuthorUsername = u.Username
		comment.AuthorName = u.Name
		comment.AuthorAvatar = u.Avatar
	}
	m.Comments[comment.ID] = comment
	return comment.ID, nil
}

func (m *MockStore) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var comments []models.Comment
	for _, c := range m.Comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].Created.Equal(comments[j].Created) {
			return comments[i].Created.Before(comments[j].Created)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

// --- notifications ---

func (m *MockStore) AddNotification(ctx context.Context, n models.Notification) (int64, error) {
	if err := m.fail(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextNotificationID++
	n.ID = m.nextNotificationID
	m.Notifications[n.ID] = n
	return n.ID, nil
}

func (m *MockStore) ListNotifications(ctx context.Context, userID string, onlyUnread bool) ([]models.Notification, error) {
	if err := m.fail(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var notifications []models.Notification
	for _, n := range m.Notifications {
		if n.UserID != userID {
			continue
		}
		if onlyUnread && n.Read {
			continue
		}
		notifications = append(notifications, n)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].ID > notifications[j].ID
	})
	return notifications, nil
}

func (m *MockStore) MarkNotificationsRead(ctx context.Context, userID string) error {
	if err := m.fail(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range m.Notifications {
		if n.UserID == userID {
			n.Read = true
			m.Notifications[id] = n
		}
	}
	return nil
}

// ---------------------------------------------
// MockStoreFail always returns errors for negative tests
type MockStoreFail struct{}

var errMockFail = errors.New("mock store failure")

func (m *MockStoreFail) Close() {}

func (m *MockStoreFail) CreateUser(ctx context.Context, user models.User) error { return errMockFail }

func (m *MockStoreFail) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return models.User{}, errMockFail
}

func (m *MockStoreFail) GetUserByID(ctx context.Context, id string) (models.User, error) {
	return models.User{}, errMockFail
}

func (m *MockStoreFail) Follow(ctx context.Context, followerID, followeeID string) error {
	return errMockFail
}

func (m *MockStoreFail) Unfollow(ctx context.Context, followerID, followeeID string) error {
	return errMockFail
}

func (m *MockStoreFail) FollowCounts(ctx context.Context, userID string) (int, int, error) {
	return 0, 0, errMockFail
}

func (m *MockStoreFail) CreatePost(ctx context.Context, post models.Post) (int64, error) {
	return 0, errMockFail
}

func (m *MockStoreFail) GetPost(ctx context.Context, id int64) (models.Post, error) {
	return models.Post{}, errMockFail
}

func (m *MockStoreFail) DeletePost(ctx context.Context, id int64) error { return errMockFail }

func (m *MockStoreFail) ListFeed(ctx context.Context, beforeCreated, beforeID int64, limit int) ([]models.FeedEntry, error) {
	return nil, errMockFail
}

func (m *MockStoreFail) ReactionSummary(ctx context.Context, postID int64) (map[string]int, error) {
	return nil, errMockFail
}

func (m *MockStoreFail) ToggleReaction(ctx context.Context, postID int64, userID, emoji string) (bool, error) {
	return false, errMockFail
}

func (m *MockStoreFail) CreateComment(ctx context.Context, comment models.Comment) (int64, error) {
	return 0, errMockFail
}

func (m *MockStoreFail) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	return nil, errMockFail
}

func (m *MockStoreFail) AddNotification(ctx context.Context, n models.Notification) (int64, error) {
	return 0, errMockFail
}

func (m *MockStoreFail) ListNotifications(ctx context.Context, userID string, onlyUnread bool) ([]models.Notification, error) {
	return nil, errMockFail
}

func (m *MockStoreFail) MarkNotificationsRead(ctx context.Context, userID string) error {
	return errMockFail
}
