package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anonto42/picshare/backend/internal/auth/authtest"
	"github.com/anonto42/picshare/backend/internal/handlers"
	"github.com/anonto42/picshare/backend/internal/repositories"
	"github.com/anonto42/picshare/backend/internal/service"
	"github.com/anonto42/picshare/backend/internal/storage"
	"github.com/anonto42/picshare/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	t *testing.T
	e *echo.Echo
}

func newServer(t *testing.T) *server {
	t.Helper()
	store := repositories.NewMemoryStore()
	blobs, err := storage.NewLocal(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)
	svc := service.New(service.Dependencies{
		Users:    store,
		Posts:    store,
		Comments: store,
		Auth:     authtest.NewFake(),
		Blobs:    blobs,
	}, service.Config{UsernameGuard: true})

	e := echo.New()
	e.Validator = validators.NewValidator()
	sessions := SetupRoutes(e, svc)
	t.Cleanup(sessions.Close)
	return &server{t: t, e: e}
}

func (s *server) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, handlers.StateResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.send(req, token)
}

func (s *server) send(req *http.Request, token string) (*httptest.ResponseRecorder, handlers.StateResponse) {
	s.t.Helper()
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var res handlers.StateResponse
	if rec.Code < 300 {
		_ = json.Unmarshal(rec.Body.Bytes(), &res)
	}
	return rec, res
}

func (s *server) signUp(username string) handlers.StateResponse {
	s.t.Helper()
	rec, res := s.do(http.MethodPost, "/api/v1/auth/signup", "", echo.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(s.t, res.Token)
	return res
}

func (s *server) newPost(token, description string) (*httptest.ResponseRecorder, handlers.StateResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(s.t, w.WriteField("description", description))
	part, err := w.CreateFormFile("image", "photo.jpg")
	require.NoError(s.t, err)
	_, err = part.Write([]byte("jpeg"))
	require.NoError(s.t, err)
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return s.send(req, token)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)

	alice := s.signUp("alice")
	assert.True(t, alice.SignedIn)
	require.NotNil(t, alice.Profile)
	assert.Equal(t, "alice", alice.Profile.Username)

	rec, _ := s.do(http.MethodPost, "/api/v1/auth/signup", "", echo.Map{
		"username": "alice", "email": "other@example.com", "password": "secret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already exists")

	rec, _ = s.do(http.MethodPost, "/api/v1/auth/login", "", echo.Map{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login failed")

	rec, login := s.do(http.MethodPost, "/api/v1/auth/login", "", echo.Map{"email": "alice@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, alice.UserID, login.UserID)

	rec, res := s.do(http.MethodPost, "/api/v1/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, res.SignedIn)
	assert.Equal(t, "Logged out", res.Message)

	rec, _ = s.do(http.MethodGet, "/api/v1/profile", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked tokens are rejected")

	rec, _ = s.do(http.MethodGet, "/api/v1/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileRoutes(t *testing.T) {
	s := newServer(t)
	alice := s.signUp("alice")
	s.signUp("bob")

	rec, res := s.do(http.MethodPut, "/api/v1/profile", alice.Token, echo.Map{
		"name": "Alice", "username": "alice", "bio": "hello",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", res.Profile.Name)
	assert.Empty(t, res.Message)

	rec, res = s.do(http.MethodPut, "/api/v1/profile", alice.Token, echo.Map{
		"name": "Alice", "username": "bob", "bio": "hello",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Username already exists", res.Message)
	assert.Equal(t, "alice", res.Profile.Username)

	rec, _ = s.do(http.MethodPut, "/api/v1/profile", alice.Token, echo.Map{"name": "Alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "username is required")
}

func TestPostsFeedAndLikes(t *testing.T) {
	s := newServer(t)
	alice := s.signUp("alice")
	bob := s.signUp("bob")

	rec, res := s.newPost(alice.Token, "Morning coffee #sunrise")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Post created", res.Message)
	require.Len(t, res.Posts, 1)
	postID := res.Posts[0].PostID

	rec, res = s.do(http.MethodGet, "/api/v1/posts/search?q=SUNRISE", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, res.SearchResults, 1)

	rec, res = s.do(http.MethodPost, "/api/v1/users/"+alice.UserID+"/follow", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{alice.UserID}, res.Profile.Following)
	require.Len(t, res.Feed, 1)

	rec, res = s.do(http.MethodPost, "/api/v1/posts/"+postID+"/like", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{bob.UserID}, res.Feed[0].Likes)

	rec, _ = s.do(http.MethodGet, "/api/v1/posts/"+postID, bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), bob.UserID)

	rec, _ = s.do(http.MethodGet, "/api/v1/posts/missing", bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/v1/users/"+alice.UserID+"/followers", bob.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"followers":1`)

	rec, res = s.do(http.MethodGet, "/api/v1/users/"+alice.UserID+"/followers", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, res.Followers)

	rec, _ = s.do(http.MethodPost, "/api/v1/users/"+bob.UserID+"/follow", bob.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComments(t *testing.T) {
	s := newServer(t)
	alice := s.signUp("alice")

	rec, res := s.do(http.MethodPost, "/api/v1/posts/p1/comments", alice.Token, echo.Map{"text": "first!"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, res.Comments, 1)
	assert.Equal(t, "alice", res.Comments[0].Username)

	rec, _ = s.do(http.MethodPost, "/api/v1/posts/p1/comments", alice.Token, echo.Map{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, res = s.do(http.MethodGet, "/api/v1/posts/p1/comments", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, res.Comments, 1)
}

func TestProfileImage(t *testing.T) {
	s := newServer(t)
	alice := s.signUp("alice")
	_, _ = s.newPost(alice.Token, "before")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "me.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("png"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/image", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

	rec, res := s.send(req, alice.Token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, res.Profile.ImageURL)
	assert.True(t, strings.HasPrefix(*res.Profile.ImageURL, "http://localhost/uploads/images/"))
	require.Len(t, res.Posts, 1)
	assert.Equal(t, *res.Profile.ImageURL, *res.Posts[0].UserImage)
}
