package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"example.com/naborly/internal/auth"
	"example.com/naborly/internal/feed"
	"example.com/naborly/internal/metrics"
	"example.com/naborly/internal/middleware"
	"example.com/naborly/internal/models"
	"example.com/naborly/internal/store"
)

// --- Error mapping ---

// writeError maps the typed failure taxonomy onto HTTP status codes.
// Storage failures fall through to a generic 500; their detail stays in
// the logs, not the response.
func writeError(w http.ResponseWriter, module string, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionExpired):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, store.ErrDuplicateUsername):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, store.ErrPostNotFound), errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, feed.ErrNotPostAuthor):
		http.Error(w, err.Error(), http.StatusForbidden)
	default:
		logg.Error(module, "Request failed", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	r.Body.Close()
	return true
}

// --- Auth handlers ---

// registerHandler handles POST requests to create a new account.
// Expects JSON body: {"username": ..., "name": ..., "password": ...}
func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	userID, err := s.auth.Register(r.Context(), body.Username, body.Name, body.Password)
	if err != nil {
		writeError(w, "http/register", err)
		return
	}

	logg.Info("http/register", "User registered with user_id="+userID)
	writeJSON(w, http.StatusCreated, map[string]string{"user_id": userID})
}

// loginHandler exchanges credentials for a session token.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	token, err := s.auth.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, "http/login", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// logoutHandler invalidates the presented session token. Idempotent.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if token, ok := middleware.BearerToken(r); ok {
		s.auth.Logout(token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Feed handlers ---

// maxFeedLimit caps the page size a client may request; larger values
// are clamped, not rejected.
const maxFeedLimit = 50

// feedHandler returns one feed page.
// Query parameters: ?cursor=<opaque>&limit=10
func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	posts, next, err := s.feed.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeError(w, "http/feed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"posts":       posts,
		"next_cursor": next,
	})
}

// postsHandler creates a post (POST) or deletes one (DELETE ?id=).
func (s *Server) postsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var body struct {
			Message   string `json:"message"`
			MediaURL  string `json:"media_url"`
			MediaKind string `json:"media_kind"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		postID, err := s.feed.CreatePost(r.Context(), userID, body.Message, body.MediaURL, models.MediaKind(body.MediaKind))
		if err != nil {
			writeError(w, "http/posts", err)
			return
		}

		metrics.PostsCreated.Inc()
		logg.Info("http/posts", "Post created by user_id="+userID)
		writeJSON(w, http.StatusCreated, map[string]int64{"post_id": postID})

	case http.MethodDelete:
		postID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid post id", http.StatusBadRequest)
			return
		}
		if err := s.feed.DeletePost(r.Context(), postID, userID); err != nil {
			writeError(w, "http/posts", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// --- Interaction handlers ---

// reactHandler toggles a reaction.
// Expects JSON body: {"post_id": 1, "emoji": "👍"}
func (s *Server) reactHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body struct {
		PostID int64  `json:"post_id"`
		Emoji  string `json:"emoji"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	state, err := s.interactions.React(r.Context(), body.PostID, userID, body.Emoji)
	if err != nil {
		writeError(w, "http/react", err)
		return
	}

	metrics.ReactionsToggled.WithLabelValues(string(state)).Inc()
	writeJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}

// commentsHandler adds a comment (POST) or lists a thread (GET ?post_id=).
func (s *Server) commentsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var body struct {
			PostID int64  `json:"post_id"`
			Text   string `json:"text"`
		}
		if !decodeBody(w, r, &body) {
			return
		}

		commentID, err := s.interactions.Comment(r.Context(), body.PostID, userID, body.Text)
		if err != nil {
			writeError(w, "http/comments", err)
			return
		}

		metrics.CommentsCreated.Inc()
		writeJSON(w, http.StatusCreated, map[string]int64{"comment_id": commentID})

	case http.MethodGet:
		postID, err := strconv.ParseInt(r.URL.Query().Get("post_id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid post id", http.StatusBadRequest)
			return
		}

		comments, err := s.interactions.ListComments(r.Context(), postID)
		if err != nil {
			writeError(w, "http/comments", err)
			return
		}
		if comments == nil {
			comments = []models.Comment{}
		}
		writeJSON(w, http.StatusOK, comments)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// followHandler creates (POST) or removes (DELETE) a follow edge.
// Expects JSON body: {"followee_id": "..."}
func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var body struct {
		FolloweeID string `json:"followee_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	var err error
	switch r.Method {
	case http.MethodPost:
		err = s.interactions.Follow(r.Context(), userID, body.FolloweeID)
	case http.MethodDelete:
		err = s.interactions.Unfollow(r.Context(), userID, body.FolloweeID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		writeError(w, "http/follow", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// profileHandler returns a profile with derived follow counters.
// Query parameters: ?username=
func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		http.Error(w, "username required", http.StatusBadRequest)
		return
	}

	profile, err := s.auth.Profile(r.Context(), username)
	if err != nil {
		writeError(w, "http/profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// --- Notification handlers ---

// notificationsHandler lists the caller's notifications, unread only by
// default; ?all=true includes read ones.
func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	onlyUnread := r.URL.Query().Get("all") != "true"
	notifications, err := s.interactions.Notifications(r.Context(), userID, onlyUnread)
	if err != nil {
		writeError(w, "http/notifications", err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) notificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.interactions.MarkNotificationsRead(r.Context(), userID); err != nil {
		writeError(w, "http/notifications", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
