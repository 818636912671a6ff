package models

import "time"

// MediaKind tells the UI how to render an attached media reference.
// Byte storage lives with an external collaborator; posts only carry
// an opaque reference.
type MediaKind string

const (
	MediaNone  MediaKind = "none"
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaNone, MediaImage, MediaVideo:
		return true
	}
	return false
}

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar"`
	Bio          string `json:"bio"`
	PasswordHash string `json:"-"`
}

// Profile is a User together with counters derived from follow edges.
// The counters are computed on read, never stored.
type Profile struct {
	User
	Followers int `json:"followers"`
	Following int `json:"following"`
}

type Post struct {
	ID        int64     `json:"id"`
	AuthorID  string    `json:"author_id"`
	Message   string    `json:"message"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaKind MediaKind `json:"media_kind"`
	Created   time.Time `json:"created"`
}

type Comment struct {
	ID       int64     `json:"id"`
	PostID   int64     `json:"post_id"`
	AuthorID string    `json:"author_id"`
	Text     string    `json:"text"`
	Created  time.Time `json:"created"`

	// Author fields are joined in by the store; empty when the
	// author account no longer exists.
	AuthorUsername string `json:"author_username,omitempty"`
	AuthorName     string `json:"author_name,omitempty"`
	AuthorAvatar   string `json:"author_avatar,omitempty"`
}

type Reaction struct {
	PostID  int64     `json:"post_id"`
	UserID  string    `json:"user_id"`
	Emoji   string    `json:"emoji"`
	Created time.Time `json:"created"`
}

// AuthorSummary is the slice of a user profile embedded in feed views.
type AuthorSummary struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

// FeedEntry is what the store hands the feed service for one post:
// the post row, its author row when it still exists, and the live
// comment count. Reaction counts are fetched separately per post.
type FeedEntry struct {
	Post         Post
	Author       *User // nil when the author account was removed
	CommentCount int
}

// PostView is a fully composed feed item. Counts are aggregated from
// the underlying rows on every read.
type PostView struct {
	Post         Post           `json:"post"`
	Author       AuthorSummary  `json:"author"`
	Reactions    map[string]int `json:"reactions"`
	CommentCount int            `json:"comment_count"`
}

type NotificationKind string

const (
	NotifyReaction NotificationKind = "reaction"
	NotifyComment  NotificationKind = "comment"
)

// Notification is a row in the per-user notification queue. Payload is
// an opaque JSON blob assembled by the interaction service.
type Notification struct {
	ID      int64            `json:"id"`
	UserID  string           `json:"user_id"`
	PostID  int64            `json:"post_id"`
	Kind    NotificationKind `json:"kind"`
	Payload string           `json:"payload"`
	Read    bool             `json:"read"`
	Created time.Time        `json:"created"`
}

// Session maps an opaque token to a user for its lifetime. Sessions are
// held in memory only and die with the process.
type Session struct {
	Token   string
	UserID  string
	Expires time.Time
}
