// Package viewmodel is the mediation layer between the UI collaborator and the
// core operations. It republishes results into observable slots, owns the
// loading flags and turns every failure into a one-shot notification. No
// operation returns an error.
package viewmodel

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/anonto42/picshare/backend/internal/apperr"
	"github.com/anonto42/picshare/backend/internal/auth"
	"github.com/anonto42/picshare/backend/internal/event"
	"github.com/anonto42/picshare/backend/internal/keylock"
	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/state"
	"github.com/sirupsen/logrus"
)

// Backend holds the core operations mediated by the view-model.
// *service.Service implements it.
type Backend interface {
	SignUp(ctx context.Context, username, email, password string) (*auth.Identity, error)
	LogIn(ctx context.Context, email, password string) (*auth.Identity, error)
	LogOut(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.User, error)
	PropagateUserImage(ctx context.Context, userID string, imageURL *string) (int, error)
	CountFollowers(ctx context.Context, userID string) (int, error)
	ToggleFollow(ctx context.Context, userID string, following []string, target string) ([]string, error)
	UploadImage(ctx context.Context, r io.Reader, contentType string) (string, error)
	CreatePost(ctx context.Context, userID string, profile *models.User, imageURL, description string) (*models.Post, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	ListUserPosts(ctx context.Context, userID string) ([]models.Post, error)
	SearchPosts(ctx context.Context, term string) ([]models.Post, error)
	PersonalizedFeed(ctx context.Context, following []string) ([]models.Post, error)
	ToggleLike(ctx context.Context, userID string, post *models.Post) ([]string, error)
	CreateComment(ctx context.Context, username, postID, text string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]models.Comment, error)
}

// ViewModel holds the observable state of one signed-in user
type ViewModel struct {
	SignedIn        *state.Slot[bool]
	InProgress      *state.Slot[bool]
	Profile         *state.Slot[*models.User]
	Posts           *state.Slot[[]models.Post]
	PostsLoading    *state.Slot[bool]
	SearchResults   *state.Slot[[]models.Post]
	SearchLoading   *state.Slot[bool]
	Feed            *state.Slot[[]models.Post]
	FeedLoading     *state.Slot[bool]
	Comments        *state.Slot[[]models.Comment]
	CommentsLoading *state.Slot[bool]
	Followers       *state.Slot[int]
	Notifications   *state.Slot[[]*event.Event[string]]

	inProgress, postsLoading, searchLoading, feedLoading, commentsLoading *flag

	backend Backend
	locks   *keylock.Locker

	// lifetime of background work
	ctx    context.Context
	cancel context.CancelFunc
	bg     *inflight

	mu       sync.RWMutex
	identity *auth.Identity
	// generation changes on every sign-in and sign-out; results of operations
	// started under an older generation are dropped
	generation uint64
}

// Option configures a ViewModel
type Option func(*ViewModel)

// WithLocker shares per-entity locks between view-models of one process
func WithLocker(l *keylock.Locker) Option {
	return func(vm *ViewModel) {
		vm.locks = l
	}
}

// New creates a signed-out ViewModel
func New(backend Backend, opts ...Option) *ViewModel {
	ctx, cancel := context.WithCancel(context.Background())
	vm := &ViewModel{
		SignedIn:        state.NewSlot(false),
		InProgress:      state.NewSlot(false),
		Profile:         state.NewSlot[*models.User](nil),
		Posts:           state.NewSlot([]models.Post{}),
		PostsLoading:    state.NewSlot(false),
		SearchResults:   state.NewSlot([]models.Post{}),
		SearchLoading:   state.NewSlot(false),
		Feed:            state.NewSlot([]models.Post{}),
		FeedLoading:     state.NewSlot(false),
		Comments:        state.NewSlot([]models.Comment{}),
		CommentsLoading: state.NewSlot(false),
		Followers:       state.NewSlot(0),
		Notifications:   state.NewSlot[[]*event.Event[string]](nil),
		backend:         backend,
		locks:           keylock.New(),
		ctx:             ctx,
		cancel:          cancel,
		bg:              newInflight(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.inProgress = newFlag(vm.InProgress)
	vm.postsLoading = newFlag(vm.PostsLoading)
	vm.searchLoading = newFlag(vm.SearchLoading)
	vm.feedLoading = newFlag(vm.FeedLoading)
	vm.commentsLoading = newFlag(vm.CommentsLoading)
	return vm
}

// Wait blocks until all background work started so far has finished
func (vm *ViewModel) Wait() {
	<-vm.bg.idle()
}

// Settle is Wait bounded by ctx
func (vm *ViewModel) Settle(ctx context.Context) error {
	select {
	case <-vm.bg.idle():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close abandons background work and waits for it to return
func (vm *ViewModel) Close() {
	vm.cancel()
	vm.Wait()
}

// Identity returns the signed-in identity, nil when signed out
func (vm *ViewModel) Identity() *auth.Identity {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.identity == nil {
		return nil
	}
	id := *vm.identity
	return &id
}

// UserID returns the signed-in user ID, "" when signed out
func (vm *ViewModel) UserID() string {
	_, uid := vm.session()
	return uid
}

func (vm *ViewModel) session() (uint64, string) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.identity == nil {
		return vm.generation, ""
	}
	return vm.generation, vm.identity.UserID
}

func (vm *ViewModel) startSession(id *auth.Identity) uint64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.identity = id
	vm.generation++
	vm.SignedIn.Set(true)
	return vm.generation
}

// clearSession resets every cached slot to its signed-out default
func (vm *ViewModel) clearSession() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.identity = nil
	vm.generation++
	vm.SignedIn.Set(false)
	vm.Profile.Set(nil)
	vm.Posts.Set([]models.Post{})
	vm.SearchResults.Set([]models.Post{})
	vm.Feed.Set([]models.Post{})
	vm.Comments.Set([]models.Comment{})
	vm.Followers.Set(0)
}

// publish runs set unless the session changed since gen was taken
func (vm *ViewModel) publish(gen uint64, set func()) bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if gen != vm.generation {
		return false
	}
	set()
	return true
}

// background runs f detached from the caller's context
func (vm *ViewModel) background(f func(ctx context.Context)) {
	vm.bg.add()
	go func() {
		defer vm.bg.done()
		f(vm.ctx)
	}()
}

// inflight counts running background work. Unlike a WaitGroup it may be
// waited on while work is being added from other goroutines.
type inflight struct {
	mu sync.Mutex
	n  int
	// closed while n is 0
	ch chan struct{}
}

func newInflight() *inflight {
	ch := make(chan struct{})
	close(ch)
	return &inflight{ch: ch}
}

func (b *inflight) add() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.n == 0 {
		b.ch = make(chan struct{})
	}
	b.n++
}

func (b *inflight) done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n--
	if b.n == 0 {
		close(b.ch)
	}
}

// idle returns a channel closed once the work running at the time of the call,
// and any added before it finishes, is done
func (b *inflight) idle() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ch
}

func (vm *ViewModel) notify(msg string) {
	vm.Notifications.Update(func(pending []*event.Event[string]) []*event.Event[string] {
		out := make([]*event.Event[string], 0, len(pending)+1)
		for _, e := range pending {
			if !e.Consumed() {
				out = append(out, e)
			}
		}
		return append(out, event.New(msg))
	})
}

// TakeNotification consumes the oldest unread notification
func (vm *ViewModel) TakeNotification() (string, bool) {
	for _, e := range vm.Notifications.Get() {
		if msg, ok := e.Take(); ok {
			return msg, true
		}
	}
	return "", false
}

// fail reports err through the notification channel. A session error also
// signs the user out.
func (vm *ViewModel) fail(gen uint64, err error, custom string) {
	log := logrus.WithError(err).WithField("code", apperr.CodeOf(err))
	if errors.Is(err, context.Canceled) {
		log.Debug("operation abandoned")
		return
	}

	vm.mu.RLock()
	stale := gen != vm.generation
	vm.mu.RUnlock()
	if stale {
		log.Debug("dropping failure of a previous session")
		return
	}

	log.Warn(custom)
	if errors.Is(err, apperr.ErrSessionExpired) {
		vm.clearSession()
	}
	vm.notify(message(err, custom))
}

func message(err error, custom string) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		switch ae.Code {
		case apperr.CodeValidation, apperr.CodeUsernameTaken, apperr.CodeSessionExpired:
			return ae.Message
		}
	}
	if custom == "" {
		return err.Error()
	}
	return custom + ": " + err.Error()
}

// flag is a loading flag that stays set while any operation holds it
type flag struct {
	mu   sync.Mutex
	n    int
	slot *state.Slot[bool]
}

func newFlag(slot *state.Slot[bool]) *flag {
	return &flag{slot: slot}
}

// begin sets the flag; the returned func clears it once
func (f *flag) begin() func() {
	f.mu.Lock()
	f.n++
	f.slot.Set(true)
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.n--
			if f.n == 0 {
				f.slot.Set(false)
			}
		})
	}
}

// Snapshot is a point-in-time copy of the observable slots
type Snapshot struct {
	SignedIn        bool             `json:"signedIn"`
	InProgress      bool             `json:"inProgress"`
	Profile         *models.User     `json:"profile"`
	Posts           []models.Post    `json:"posts"`
	PostsLoading    bool             `json:"postsLoading"`
	SearchResults   []models.Post    `json:"searchResults"`
	SearchLoading   bool             `json:"searchLoading"`
	Feed            []models.Post    `json:"feed"`
	FeedLoading     bool             `json:"feedLoading"`
	Comments        []models.Comment `json:"comments"`
	CommentsLoading bool             `json:"commentsLoading"`
	Followers       int              `json:"followers"`
}

// Snapshot reads every slot
func (vm *ViewModel) Snapshot() Snapshot {
	return Snapshot{
		SignedIn:        vm.SignedIn.Get(),
		InProgress:      vm.InProgress.Get(),
		Profile:         vm.Profile.Get(),
		Posts:           vm.Posts.Get(),
		PostsLoading:    vm.PostsLoading.Get(),
		SearchResults:   vm.SearchResults.Get(),
		SearchLoading:   vm.SearchLoading.Get(),
		Feed:            vm.Feed.Get(),
		FeedLoading:     vm.FeedLoading.Get(),
		Comments:        vm.Comments.Get(),
		CommentsLoading: vm.CommentsLoading.Get(),
		Followers:       vm.Followers.Get(),
	}
}
