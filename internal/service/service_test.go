package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/picshare/backend/internal/apperr"
	"github.com/anonto42/picshare/backend/internal/auth"
	"github.com/anonto42/picshare/backend/internal/auth/authtest"
	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/repositories"
	"github.com/anonto42/picshare/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc   *Service
	store *repositories.MemoryStore
	auth  *authtest.Fake
	clock *clock
}

func newFixture(t *testing.T, guard bool) *fixture {
	t.Helper()
	blobs, err := storage.NewLocal(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)
	f := &fixture{
		store: repositories.NewMemoryStore(),
		auth:  authtest.NewFake(),
		clock: &clock{now: time.UnixMilli(1_700_000_000_000)},
	}
	f.svc = New(Dependencies{
		Users:    f.store,
		Posts:    f.store,
		Comments: f.store,
		Auth:     f.auth,
		Blobs:    blobs,
	}, Config{UsernameGuard: guard, Now: f.clock.Now})
	return f
}

func (f *fixture) signUp(t *testing.T, username string) string {
	t.Helper()
	id, err := f.svc.SignUp(context.Background(), username, username+"@example.com", "secret")
	require.NoError(t, err)
	return id.UserID
}

func strPtr(s string) *string { return &s }

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	for _, tc := range []struct {
		name, username, email, password string
	}{
		{"no username", "", "a@example.com", "pw"},
		{"no email", "alice", "", "pw"},
		{"no password", "alice", "a@example.com", ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SignUp(ctx, tc.username, tc.email, tc.password)
			require.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
	require.Zero(t, f.auth.Accounts())

	id, err := f.svc.SignUp(ctx, "alice", " alice@example.com ", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, id.Token)

	user, err := f.svc.GetProfile(ctx, id.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, []string{}, user.Following)

	_, err = f.svc.SignUp(ctx, "alice", "other@example.com", "secret")
	require.ErrorIs(t, err, apperr.ErrUsernameTaken)

	_, err = f.svc.SignUp(ctx, "bob", "alice@example.com", "secret")
	require.ErrorIs(t, err, apperr.ErrAuth)
	require.ErrorIs(t, err, auth.ErrEmailExists)
	assert.Equal(t, 1, f.auth.Accounts())
}

func TestSignUp_TooLong(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.SignUp(context.Background(), strings.Repeat("a", 31), "a@example.com", "secret")
	require.ErrorIs(t, err, apperr.ErrValidation)

	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "Username must be at most 30 characters", ae.Message)
	assert.Zero(t, f.auth.Accounts())
}

type flakyUsers struct {
	mock.Mock
	repositories.UserRepository
}

func (m *flakyUsers) UpsertUser(ctx context.Context, userID string, update models.ProfileUpdate) error {
	if err := m.Called(ctx, userID, update).Error(0); err != nil {
		return err
	}
	return m.UserRepository.UpsertUser(ctx, userID, update)
}

func TestSignUp_ProfileWriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	users := &flakyUsers{UserRepository: store}
	users.On("UpsertUser", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("unavailable")).Once()
	users.On("UpsertUser", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	fake := authtest.NewFake()
	svc := New(Dependencies{Users: users, Posts: store, Comments: store, Auth: fake}, Config{UsernameGuard: true})

	_, err := svc.SignUp(ctx, "alice", "alice@example.com", "secret")
	require.ErrorIs(t, err, apperr.ErrBackendRequest)
	assert.Zero(t, fake.Accounts(), "credential is deleted")

	// neither the email nor the username is left claimed
	id, err := svc.SignUp(ctx, "alice", "alice@example.com", "secret")
	require.NoError(t, err)

	user, err := svc.GetProfile(ctx, id.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	users.AssertExpectations(t)
}

func TestSignUp_Race(t *testing.T) {
	for _, tc := range []struct {
		name     string
		guard    bool
		profiles int
	}{
		{"guarded", true, 1},
		{"unguarded", false, 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.guard)

			// both signups pass the username pre-check before either writes a profile
			var arrived sync.WaitGroup
			arrived.Add(2)
			f.auth.BeforeCreate = func() {
				arrived.Done()
				arrived.Wait()
			}

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for i, email := range []string{"one@example.com", "two@example.com"} {
				wg.Add(1)
				go func(i int, email string) {
					defer wg.Done()
					_, errs[i] = f.svc.SignUp(context.Background(), "dup", email, "secret")
				}(i, email)
			}
			wg.Wait()

			users, err := f.store.GetUsersByUsername(context.Background(), "dup")
			require.NoError(t, err)
			assert.Len(t, users, tc.profiles)
			assert.Equal(t, tc.profiles, f.auth.Accounts())

			failed := 0
			for _, err := range errs {
				if err != nil {
					require.ErrorIs(t, err, apperr.ErrUsernameTaken)
					failed++
				}
			}
			assert.Equal(t, 2-tc.profiles, failed)
		})
	}
}

func TestLogIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	uid := f.signUp(t, "alice")

	_, err := f.svc.LogIn(ctx, "", "secret")
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.LogIn(ctx, "alice@example.com", "wrong")
	require.ErrorIs(t, err, apperr.ErrAuth)

	id, err := f.svc.LogIn(ctx, "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, uid, id.UserID)

	got, err := f.svc.VerifySession(ctx, id.Token)
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	require.NoError(t, f.svc.LogOut(ctx, uid))
	_, err = f.svc.VerifySession(ctx, id.Token)
	require.ErrorIs(t, err, apperr.ErrSessionExpired)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	alice := f.signUp(t, "alice")
	f.signUp(t, "bob")

	user, err := f.svc.UpdateProfile(ctx, alice, models.ProfileUpdate{Name: strPtr("Alice"), Bio: strPtr("hello")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "alice", user.Username, "fields not supplied are preserved")
	assert.Equal(t, "hello", user.Bio)

	_, err = f.svc.UpdateProfile(ctx, alice, models.ProfileUpdate{Username: strPtr("bob")})
	require.ErrorIs(t, err, apperr.ErrUsernameTaken)

	user, err = f.svc.UpdateProfile(ctx, alice, models.ProfileUpdate{Username: strPtr("alicia")})
	require.NoError(t, err)
	assert.Equal(t, "alicia", user.Username)
	assert.Equal(t, "Alice", user.Name)

	// the old username is free again
	_, err = f.svc.SignUp(ctx, "alice", "second@example.com", "secret")
	require.NoError(t, err)

	user, err = f.svc.UpdateProfile(ctx, alice, models.ProfileUpdate{Username: strPtr("alicia")})
	require.NoError(t, err, "keeping the own username is not a conflict")
	assert.Equal(t, "alicia", user.Username)

	_, err = f.svc.UpdateProfile(ctx, "", models.ProfileUpdate{Name: strPtr("x")})
	require.ErrorIs(t, err, apperr.ErrSessionExpired)
}

func TestToggleFollow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	alice := f.signUp(t, "alice")
	bob := f.signUp(t, "bob")

	following, err := f.svc.ToggleFollow(ctx, alice, []string{}, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{bob}, following)

	n, err := f.svc.CountFollowers(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	following, err = f.svc.ToggleFollow(ctx, alice, following, bob)
	require.NoError(t, err)
	assert.Empty(t, following)

	user, err := f.svc.GetProfile(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, user.Following)

	n, err = f.svc.CountFollowers(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreatePost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	alice := f.signUp(t, "alice")
	profile, err := f.svc.UpdateProfile(ctx, alice, models.ProfileUpdate{ImageURL: strPtr("http://img/alice")})
	require.NoError(t, err)

	post, err := f.svc.CreatePost(ctx, alice, profile, "http://img/post", "The Quick Brown Fox is Great!")
	require.NoError(t, err)
	assert.NotEmpty(t, post.PostID)
	assert.Equal(t, "alice", post.Username)
	assert.Equal(t, "http://img/alice", *post.UserImage)
	assert.Equal(t, []string{"quick", "brown", "fox", "great"}, post.SearchTerms)
	assert.Equal(t, []string{}, post.Likes)
	assert.Equal(t, f.clock.Now().UnixMilli(), post.Time)

	stored, err := f.svc.GetPost(ctx, post.PostID)
	require.NoError(t, err)
	assert.Equal(t, post, stored)

	_, err = f.svc.CreatePost(ctx, "", profile, "http://img/post", "nope")
	require.ErrorIs(t, err, apperr.ErrSessionExpired)

	_, err = f.svc.GetPost(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListUserPosts_Sorted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	alice := f.signUp(t, "alice")

	var ids []string
	for _, d := range []string{"first", "second", "third"} {
		p, err := f.svc.CreatePost(ctx, alice, nil, "img", d)
		require.NoError(t, err)
		ids = append(ids, p.PostID)
		f.clock.Advance(time.Second)
	}

	posts, err := f.svc.ListUserPosts(ctx, alice)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{posts[0].PostID, posts[1].PostID, posts[2].PostID})
}

func TestSearchPosts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	alice := f.signUp(t, "alice")
	_, err := f.svc.CreatePost(ctx, alice, nil, "img", "Sunset at the #beach")
	require.NoError(t, err)

	posts, err := f.svc.SearchPosts(ctx, "  BEACH ")
	require.NoError(t, err)
	assert.Len(t, posts, 1)

	posts, err = f.svc.SearchPosts(ctx, "the")
	require.NoError(t, err)
	assert.Empty(t, posts, "stop words are never indexed")

	posts, err = f.svc.SearchPosts(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, posts)
}

func TestPersonalizedFeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	alice := f.signUp(t, "alice")
	bob := f.signUp(t, "bob")
	carol := f.signUp(t, "carol")

	old, err := f.svc.CreatePost(ctx, bob, nil, "img", "old")
	require.NoError(t, err)
	f.clock.Advance(25 * time.Hour)
	recent, err := f.svc.CreatePost(ctx, alice, nil, "img", "recent")
	require.NoError(t, err)

	t.Run("nothing followed falls back to the general feed", func(t *testing.T) {
		posts, err := f.svc.PersonalizedFeed(ctx, nil)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, recent.PostID, posts[0].PostID)
	})

	t.Run("followed users without posts fall back", func(t *testing.T) {
		posts, err := f.svc.PersonalizedFeed(ctx, []string{carol})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, recent.PostID, posts[0].PostID)
	})

	t.Run("followed posts ignore the window", func(t *testing.T) {
		posts, err := f.svc.PersonalizedFeed(ctx, []string{bob})
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, old.PostID, posts[0].PostID)
	})
}

func TestGeneralFeed_Window(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	now := f.clock.Now().UnixMilli()
	day := DefaultFeedWindow.Milliseconds()

	require.NoError(t, f.store.CreatePost(ctx, &models.Post{PostID: "edge", Time: now - day}))
	require.NoError(t, f.store.CreatePost(ctx, &models.Post{PostID: "inside", Time: now - day + 1}))

	posts, err := f.svc.GeneralFeed(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "inside", posts[0].PostID)
}

func TestPropagateUserImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	alice := f.signUp(t, "alice")
	bob := f.signUp(t, "bob")

	n, err := f.svc.PropagateUserImage(ctx, alice, strPtr("new"))
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreatePost(ctx, alice, nil, "img", "mine")
		require.NoError(t, err)
	}
	other, err := f.svc.CreatePost(ctx, bob, nil, "img", "theirs")
	require.NoError(t, err)

	n, err = f.svc.PropagateUserImage(ctx, alice, strPtr("new"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	posts, err := f.svc.ListUserPosts(ctx, alice)
	require.NoError(t, err)
	for _, p := range posts {
		require.NotNil(t, p.UserImage)
		assert.Equal(t, "new", *p.UserImage)
	}

	untouched, err := f.svc.GetPost(ctx, other.PostID)
	require.NoError(t, err)
	assert.Nil(t, untouched.UserImage)
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	alice := f.signUp(t, "alice")
	post, err := f.svc.CreatePost(ctx, alice, nil, "img", "like me")
	require.NoError(t, err)

	likes, err := f.svc.ToggleLike(ctx, alice, post)
	require.NoError(t, err)
	assert.Equal(t, []string{alice}, likes)
	assert.Empty(t, post.Likes, "the input post is not modified")

	post.Likes = likes
	likes, err = f.svc.ToggleLike(ctx, alice, post)
	require.NoError(t, err)
	assert.Empty(t, likes)

	stored, err := f.svc.GetPost(ctx, post.PostID)
	require.NoError(t, err)
	assert.Empty(t, stored.Likes)

	_, err = f.svc.ToggleLike(ctx, "", post)
	require.ErrorIs(t, err, apperr.ErrSessionExpired)
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	_, err := f.svc.CreateComment(ctx, "", "p1", "hi")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.svc.CreateComment(ctx, "alice", "p1", "  ")
	require.ErrorIs(t, err, apperr.ErrValidation)

	first, err := f.svc.CreateComment(ctx, "alice", "p1", "first")
	require.NoError(t, err)
	f.clock.Advance(time.Millisecond)
	second, err := f.svc.CreateComment(ctx, "bob", "p1", "second")
	require.NoError(t, err)
	_, err = f.svc.CreateComment(ctx, "bob", "p2", "elsewhere")
	require.NoError(t, err)

	comments, err := f.svc.ListComments(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.CommentID, comments[0].CommentID)
	assert.Equal(t, first.CommentID, comments[1].CommentID)
	assert.Equal(t, "alice", comments[1].Username)
}

type failingPosts struct {
	mock.Mock
	repositories.PostRepository
}

func (m *failingPosts) GetPostsByUserIDs(ctx context.Context, userIDs []string) ([]models.Post, error) {
	args := m.Called(ctx, userIDs)
	return nil, args.Error(1)
}

func TestPersonalizedFeed_BackendFailure(t *testing.T) {
	store := repositories.NewMemoryStore()
	posts := &failingPosts{PostRepository: store}
	posts.On("GetPostsByUserIDs", mock.Anything, []string{"bob"}).Return(nil, errors.New("unavailable"))

	svc := New(Dependencies{Users: store, Posts: posts, Comments: store, Auth: authtest.NewFake()}, Config{})
	_, err := svc.PersonalizedFeed(context.Background(), []string{"bob"})
	require.ErrorIs(t, err, apperr.ErrBackendRequest)
	assert.Equal(t, "unavailable", err.Error())
	posts.AssertExpectations(t)
}

func TestUploadImage(t *testing.T) {
	f := newFixture(t, true)
	url, err := f.svc.UploadImage(context.Background(), strings.NewReader("png"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost/uploads/images/"), url)
}
