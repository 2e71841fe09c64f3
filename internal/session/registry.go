// Package session keeps one view-model per signed-in user for the HTTP host.
package session

import (
	"context"
	"sync"

	"github.com/anonto42/picshare/backend/internal/auth"
	"github.com/anonto42/picshare/backend/internal/keylock"
	"github.com/anonto42/picshare/backend/internal/viewmodel"
	"github.com/sirupsen/logrus"
)

// Registry maps user IDs to their view-models. All view-models share one set
// of per-entity locks.
type Registry struct {
	backend viewmodel.Backend
	locks   *keylock.Locker

	mu     sync.Mutex
	models map[string]*viewmodel.ViewModel
}

// NewRegistry creates an empty Registry
func NewRegistry(backend viewmodel.Backend) *Registry {
	return &Registry{
		backend: backend,
		locks:   keylock.New(),
		models:  make(map[string]*viewmodel.ViewModel),
	}
}

// New creates a signed-out view-model that is not yet registered
func (r *Registry) New() *viewmodel.ViewModel {
	return viewmodel.New(r.backend, viewmodel.WithLocker(r.locks))
}

// Put registers a signed-in view-model, replacing any previous one of the same user
func (r *Registry) Put(vm *viewmodel.ViewModel) {
	uid := vm.UserID()
	if uid == "" {
		return
	}
	r.mu.Lock()
	old := r.models[uid]
	r.models[uid] = vm
	r.mu.Unlock()

	if old != nil && old != vm {
		go old.Close()
	}
}

// Get returns the view-model of id.UserID. A missing or signed-out view-model
// is restored from id.
func (r *Registry) Get(ctx context.Context, id *auth.Identity) *viewmodel.ViewModel {
	r.mu.Lock()
	vm, ok := r.models[id.UserID]
	if !ok {
		vm = r.New()
		r.models[id.UserID] = vm
	}
	r.mu.Unlock()

	if !vm.SignedIn.Get() {
		logrus.WithField("userId", id.UserID).Debug("restoring session")
		vm.Restore(ctx, id)
	}
	return vm
}

// Remove closes and forgets the view-model of userID
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	vm, ok := r.models[userID]
	delete(r.models, userID)
	r.mu.Unlock()

	if ok {
		vm.Close()
	}
}

// Locks returns the per-entity locks shared by the registered view-models
func (r *Registry) Locks() *keylock.Locker {
	return r.locks
}

// Len returns the number of registered view-models
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.models)
}

// Close closes every registered view-model
func (r *Registry) Close() {
	r.mu.Lock()
	models := r.models
	r.models = make(map[string]*viewmodel.ViewModel)
	r.mu.Unlock()

	for _, vm := range models {
		vm.Close()
	}
}
