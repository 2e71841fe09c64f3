package repositories

import (
	"context"
	"testing"

	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMemoryStore_UpsertUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.UpsertUser(ctx, "u1", models.ProfileUpdate{Username: strPtr("alice")}))

	u, err := m.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, "alice", u.Username)
	assert.Empty(t, u.Following)
	assert.Nil(t, u.ImageURL)

	require.NoError(t, m.UpdateFollowing(ctx, "u1", []string{"u2"}))
	require.NoError(t, m.UpsertUser(ctx, "u1", models.ProfileUpdate{Bio: strPtr("hi"), ImageURL: strPtr("img")}))

	u, err = m.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username, "fields not supplied are preserved")
	assert.Equal(t, "hi", u.Bio)
	assert.Equal(t, "img", *u.ImageURL)
	assert.Equal(t, []string{"u2"}, u.Following)

	_, err = m.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Queries(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	for _, p := range []models.Post{
		{PostID: "p1", UserID: "a", Time: 100, SearchTerms: []string{"fox"}},
		{PostID: "p2", UserID: "b", Time: 200, SearchTerms: []string{"dog"}},
		{PostID: "p3", UserID: "c", Time: 300, SearchTerms: []string{"fox", "dog"}},
	} {
		p := p
		require.NoError(t, m.CreatePost(ctx, &p))
	}

	posts, err := m.GetPostsByUserIDs(ctx, []string{"a", "c"})
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	posts, err = m.GetPostsBySearchTerm(ctx, "fox")
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	posts, err = m.GetPostsSince(ctx, 200)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "p3", posts[0].PostID)
}

func TestMemoryStore_UpdateUserImageIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.CreatePost(ctx, &models.Post{PostID: "p1", UserID: "a"}))

	err := m.UpdateUserImage(ctx, []string{"p1", "gone"}, strPtr("new"))
	require.ErrorIs(t, err, ErrNotFound)

	p, err := m.GetPostByID(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, p.UserImage)

	require.NoError(t, m.UpdateUserImage(ctx, []string{"p1"}, strPtr("new")))
	p, err = m.GetPostByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "new", *p.UserImage)
}

func TestMemoryStore_ReserveUsername(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.ReserveUsername(ctx, "alice", "u1"))
	require.NoError(t, m.ReserveUsername(ctx, "alice", "u1"))
	require.ErrorIs(t, m.ReserveUsername(ctx, "alice", "u2"), ErrUsernameReserved)

	require.NoError(t, m.ReleaseUsername(ctx, "alice", "u2"))
	require.ErrorIs(t, m.ReserveUsername(ctx, "alice", "u2"), ErrUsernameReserved)

	require.NoError(t, m.ReleaseUsername(ctx, "alice", "u1"))
	require.NoError(t, m.ReserveUsername(ctx, "alice", "u2"))
}

func TestMemoryStore_CountFollowers(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, m.UpsertUser(ctx, id, models.ProfileUpdate{}))
	}
	require.NoError(t, m.UpdateFollowing(ctx, "a", []string{"c"}))
	require.NoError(t, m.UpdateFollowing(ctx, "b", []string{"c", "a"}))

	n, err := m.CountFollowers(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = m.CountFollowers(ctx, "b")
	require.NoError(t, err)
	assert.Zero(t, n)
}
