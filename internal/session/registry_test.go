package session

import (
	"context"
	"testing"

	"github.com/anonto42/picshare/backend/internal/auth/authtest"
	"github.com/anonto42/picshare/backend/internal/repositories"
	"github.com/anonto42/picshare/backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	store := repositories.NewMemoryStore()
	svc := service.New(service.Dependencies{
		Users:    store,
		Posts:    store,
		Comments: store,
		Auth:     authtest.NewFake(),
	}, service.Config{UsernameGuard: true})
	r := NewRegistry(svc)
	t.Cleanup(r.Close)
	return r
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	vm := r.New()
	vm.SignUp(ctx, "alice", "alice@example.com", "secret")
	vm.Wait()
	require.True(t, vm.SignedIn.Get())

	r.Put(vm)
	assert.Equal(t, 1, r.Len())
	assert.Same(t, vm, r.Get(ctx, vm.Identity()))

	id := vm.Identity()
	vm.LogOut(ctx)
	restored := r.Get(ctx, id)
	restored.Wait()
	assert.Same(t, vm, restored, "a signed-out view-model is restored in place")
	assert.True(t, restored.SignedIn.Get())
	require.NotNil(t, restored.Profile.Get())
	assert.Equal(t, "alice", restored.Profile.Get().Username)

	r.Remove(id.UserID)
	assert.Zero(t, r.Len())
}

func TestRegistry_GetUnknown(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)

	seed := r.New()
	seed.SignUp(ctx, "bob", "bob@example.com", "secret")
	seed.Wait()
	require.True(t, seed.SignedIn.Get())

	vm := r.Get(ctx, seed.Identity())
	vm.Wait()
	assert.NotSame(t, seed, vm)
	assert.Equal(t, seed.UserID(), vm.UserID())
	assert.Equal(t, 1, r.Len())

	r.Put(seed)
	assert.Same(t, seed, r.Get(ctx, seed.Identity()), "put replaces the previous view-model")
}
