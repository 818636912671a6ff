package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/naborly/internal/auth"
	"example.com/naborly/internal/feed"
	"example.com/naborly/internal/interactions"
	"example.com/naborly/internal/models"
	"example.com/naborly/internal/store"

	"golang.org/x/crypto/bcrypt"
)

//
// --- Helpers ---
//

// create HTTP request with session token and assert the status code
func sendJSONRequest(t *testing.T, method, url string, body any, token string, expectedStatus int) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json.Marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != expectedStatus {
		b, _ := io.ReadAll(resp.Body)
		defer resp.Body.Close()
		t.Fatalf("expected %d, got %d: %s", expectedStatus, resp.StatusCode, string(b))
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
}

//
// --- Setup test server ---
//

func setupTestServer(t *testing.T) (*store.MockStore, *httptest.Server) {
	t.Helper()
	mockStore := store.NewMock()
	s := &Server{
		auth:         auth.New(mockStore, time.Hour, bcrypt.MinCost),
		feed:         feed.New(mockStore, 10),
		interactions: interactions.New(mockStore),
	}
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return mockStore, srv
}

// register a user and log them in, returning their id and session token
func registerAndLogin(t *testing.T, baseURL, username string) (string, string) {
	t.Helper()

	resp := sendJSONRequest(t, http.MethodPost, baseURL+"/register", map[string]string{
		"username": username,
		"name":     username,
		"password": "pw123456",
	}, "", http.StatusCreated)
	var reg struct {
		UserID string `json:"user_id"`
	}
	decodeResponse(t, resp, &reg)

	resp = sendJSONRequest(t, http.MethodPost, baseURL+"/login", map[string]string{
		"username": username,
		"password": "pw123456",
	}, "", http.StatusOK)
	var login struct {
		Token string `json:"token"`
	}
	decodeResponse(t, resp, &login)

	return reg.UserID, login.Token
}

//
// --- Tests ---
//

// TestFullFlow walks the complete boundary: register, login, post,
// react, comment, then read the feed back with the aggregates in place.
func TestFullFlow(t *testing.T) {
	_, srv := setupTestServer(t)

	_, aliceToken := registerAndLogin(t, srv.URL, "alice")
	_, bobToken := registerAndLogin(t, srv.URL, "bob")

	// Alice posts.
	resp := sendJSONRequest(t, http.MethodPost, srv.URL+"/posts", map[string]string{
		"message": "hello ward 12",
	}, aliceToken, http.StatusCreated)
	var created struct {
		PostID int64 `json:"post_id"`
	}
	decodeResponse(t, resp, &created)
	if created.PostID == 0 {
		t.Fatal("expected a post id")
	}

	// Bob reacts and comments.
	resp = sendJSONRequest(t, http.MethodPost, srv.URL+"/react", map[string]any{
		"post_id": created.PostID,
		"emoji":   "👍",
	}, bobToken, http.StatusOK)
	var react struct {
		State string `json:"state"`
	}
	decodeResponse(t, resp, &react)
	if react.State != "added" {
		t.Fatalf("expected added, got %q", react.State)
	}

	resp = sendJSONRequest(t, http.MethodPost, srv.URL+"/comments", map[string]any{
		"post_id": created.PostID,
		"text":    "welcome!",
	}, bobToken, http.StatusCreated)
	resp.Body.Close()

	// The feed shows the post with its aggregates.
	resp = sendJSONRequest(t, http.MethodGet, srv.URL+"/feed", nil, bobToken, http.StatusOK)
	var page struct {
		Posts      []models.PostView `json:"posts"`
		NextCursor string            `json:"next_cursor"`
	}
	decodeResponse(t, resp, &page)
	if len(page.Posts) != 1 {
		t.Fatalf("expected 1 post in feed, got %d", len(page.Posts))
	}
	v := page.Posts[0]
	if v.Post.Message != "hello ward 12" {
		t.Fatalf("unexpected post: %+v", v.Post)
	}
	if v.Author.Username != "alice" {
		t.Fatalf("unexpected author: %+v", v.Author)
	}
	if v.Reactions["👍"] != 1 || v.CommentCount != 1 {
		t.Fatalf("unexpected aggregates: reactions=%v comments=%d", v.Reactions, v.CommentCount)
	}

	// Alice has one unread notification per interaction.
	resp = sendJSONRequest(t, http.MethodGet, srv.URL+"/notifications", nil, aliceToken, http.StatusOK)
	var notifications []models.Notification
	decodeResponse(t, resp, &notifications)
	if len(notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifications))
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	_, srv := setupTestServer(t)

	for _, route := range []string{"/feed", "/posts", "/react", "/comments", "/notifications"} {
		resp, err := http.Get(srv.URL + route)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s without token: expected 401, got %d", route, resp.StatusCode)
		}
	}
}

func TestRegister_DuplicateUsernameConflict(t *testing.T) {
	_, srv := setupTestServer(t)

	registerAndLogin(t, srv.URL, "alice")

	resp := sendJSONRequest(t, http.MethodPost, srv.URL+"/register", map[string]string{
		"username": "alice",
		"name":     "Alice Again",
		"password": "pw123456",
	}, "", http.StatusConflict)
	resp.Body.Close()
}

func TestRegister_InvalidBody(t *testing.T) {
	_, srv := setupTestServer(t)

	resp, err := http.Post(srv.URL+"/register", "application/json",
		bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	_, srv := setupTestServer(t)

	registerAndLogin(t, srv.URL, "alice")

	resp := sendJSONRequest(t, http.MethodPost, srv.URL+"/login", map[string]string{
		"username": "alice",
		"password": "not-it",
	}, "", http.StatusUnauthorized)
	resp.Body.Close()
}

func TestLogout_InvalidatesSession(t *testing.T) {
	_, srv := setupTestServer(t)

	_, token := registerAndLogin(t, srv.URL, "alice")

	resp := sendJSONRequest(t, http.MethodGet, srv.URL+"/feed", nil, token, http.StatusOK)
	resp.Body.Close()

	resp = sendJSONRequest(t, http.MethodPost, srv.URL+"/logout", nil, token, http.StatusNoContent)
	resp.Body.Close()

	resp = sendJSONRequest(t, http.MethodGet, srv.URL+"/feed", nil, token, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestCreatePost_ValidationMapsTo400(t *testing.T) {
	_, srv := setupTestServer(t)

	_, token := registerAndLogin(t, srv.URL, "alice")

	resp := sendJSONRequest(t, http.MethodPost, srv.URL+"/posts", map[string]string{
		"message": "   ",
	}, token, http.StatusBadRequest)
	resp.Body.Close()
}

func TestDeletePost_AuthorOnly(t *testing.T) {
	_, srv := setupTestServer(t)

	_, aliceToken := registerAndLogin(t, srv.URL, "alice")
	_, bobToken := registerAndLogin(t, srv.URL, "bob")

	resp := sendJSONRequest(t, http.MethodPost, srv.URL+"/posts", map[string]string{
		"message": "mine",
	}, aliceToken, http.StatusCreated)
	var created struct {
		PostID int64 `json:"post_id"`
	}
	decodeResponse(t, resp, &created)

	url := srv.URL + "/posts?id=" + jsonInt(created.PostID)

	resp = sendJSONRequest(t, http.MethodDelete, url, nil, bobToken, http.StatusForbidden)
	resp.Body.Close()
	resp = sendJSONRequest(t, http.MethodDelete, url, nil, aliceToken, http.StatusNoContent)
	resp.Body.Close()
	resp = sendJSONRequest(t, http.MethodDelete, url, nil, aliceToken, http.StatusNotFound)
	resp.Body.Close()
}

func TestReact_MissingPostMapsTo404(t *testing.T) {
	_, srv := setupTestServer(t)

	_, token := registerAndLogin(t, srv.URL, "alice")

	resp := sendJSONRequest(t, http.MethodPost, srv.URL+"/react", map[string]any{
		"post_id": 9999,
		"emoji":   "👍",
	}, token, http.StatusNotFound)
	resp.Body.Close()
}

func TestComments_EmptyThreadReturnsArray(t *testing.T) {
	_, srv := setupTestServer(t)

	_, token := registerAndLogin(t, srv.URL, "alice")

	resp := sendJSONRequest(t, http.MethodPost, srv.URL+"/posts", map[string]string{
		"message": "quiet post",
	}, token, http.StatusCreated)
	var created struct {
		PostID int64 `json:"post_id"`
	}
	decodeResponse(t, resp, &created)

	resp = sendJSONRequest(t, http.MethodGet, srv.URL+"/comments?post_id="+jsonInt(created.PostID), nil, token, http.StatusOK)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if string(bytes.TrimSpace(b)) != "[]" {
		t.Fatalf("expected empty JSON array, got %s", b)
	}
}

func TestFollowAndProfile(t *testing.T) {
	_, srv := setupTestServer(t)

	aliceID, _ := registerAndLogin(t, srv.URL, "alice")
	_, bobToken := registerAndLogin(t, srv.URL, "bob")

	resp := sendJSONRequest(t, http.MethodPost, srv.URL+"/follow", map[string]string{
		"followee_id": aliceID,
	}, bobToken, http.StatusOK)
	resp.Body.Close()

	resp = sendJSONRequest(t, http.MethodGet, srv.URL+"/profile?username=alice", nil, bobToken, http.StatusOK)
	var profile models.Profile
	decodeResponse(t, resp, &profile)
	if profile.Followers != 1 {
		t.Fatalf("expected 1 follower, got %d", profile.Followers)
	}

	resp = sendJSONRequest(t, http.MethodGet, srv.URL+"/profile?username=nobody", nil, bobToken, http.StatusNotFound)
	resp.Body.Close()
}

func TestFeed_OversizedLimitIsClamped(t *testing.T) {
	mockStore, srv := setupTestServer(t)

	_, token := registerAndLogin(t, srv.URL, "alice")

	base := time.Now().UTC()
	for i := 0; i < maxFeedLimit+10; i++ {
		_, err := mockStore.CreatePost(context.Background(), models.Post{
			AuthorID:  "someone",
			Message:   "post",
			MediaKind: models.MediaNone,
			Created:   base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("seed post failed: %v", err)
		}
	}

	resp := sendJSONRequest(t, http.MethodGet, srv.URL+"/feed?limit=9999", nil, token, http.StatusOK)
	var page struct {
		Posts      []models.PostView `json:"posts"`
		NextCursor string            `json:"next_cursor"`
	}
	decodeResponse(t, resp, &page)
	if len(page.Posts) != maxFeedLimit {
		t.Fatalf("expected page clamped to %d posts, got %d", maxFeedLimit, len(page.Posts))
	}
	if page.NextCursor == "" {
		t.Fatal("expected a next cursor for the remaining posts")
	}
}

func TestFeed_MalformedCursorMapsTo400(t *testing.T) {
	_, srv := setupTestServer(t)

	_, token := registerAndLogin(t, srv.URL, "alice")

	resp := sendJSONRequest(t, http.MethodGet, srv.URL+"/feed?cursor=%21%21not-a-cursor", nil, token, http.StatusBadRequest)
	resp.Body.Close()
}

func TestStoreFailureMapsTo500(t *testing.T) {
	mockStore, srv := setupTestServer(t)

	_, token := registerAndLogin(t, srv.URL, "alice")

	mockStore.ShouldFail = true
	resp := sendJSONRequest(t, http.MethodGet, srv.URL+"/feed", nil, token, http.StatusInternalServerError)
	resp.Body.Close()
}

// jsonInt formats an id for a query string.
func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
