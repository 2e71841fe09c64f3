package viewmodel

import (
	"context"
	"io"

	"github.com/anonto42/picshare/backend/internal/auth"
	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func userKey(userID string) string { return "users/" + userID }

// SignUp creates an account, signs it in and loads its profile
func (vm *ViewModel) SignUp(ctx context.Context, username, email, password string) {
	gen, _ := vm.session()
	end := vm.inProgress.begin()
	defer end()

	id, err := vm.backend.SignUp(ctx, username, email, password)
	if err != nil {
		vm.fail(gen, err, msgSignUpFailed)
		return
	}
	vm.LoadProfileFor(ctx, vm.startSession(id), id.UserID)
}

// LogIn signs in and loads the profile
func (vm *ViewModel) LogIn(ctx context.Context, email, password string) {
	gen, _ := vm.session()
	end := vm.inProgress.begin()
	defer end()

	id, err := vm.backend.LogIn(ctx, email, password)
	if err != nil {
		vm.fail(gen, err, msgLogInFailed)
		return
	}
	vm.LoadProfileFor(ctx, vm.startSession(id), id.UserID)
}

// Restore resumes an existing session, as on start-up with a remembered identity
func (vm *ViewModel) Restore(ctx context.Context, id *auth.Identity) {
	if id == nil || id.UserID == "" {
		return
	}
	vm.LoadProfileFor(ctx, vm.startSession(id), id.UserID)
}

// LoadProfile fetches the profile of userID into Profile, then refreshes the
// own posts, the feed and the follower count in the background.
func (vm *ViewModel) LoadProfile(ctx context.Context, userID string) {
	gen, _ := vm.session()
	vm.LoadProfileFor(ctx, gen, userID)
}

// LoadProfileFor is LoadProfile bound to session generation gen
func (vm *ViewModel) LoadProfileFor(ctx context.Context, gen uint64, userID string) {
	end := vm.inProgress.begin()
	user, err := vm.backend.GetProfile(ctx, userID)
	end()
	if err != nil {
		vm.fail(gen, err, msgProfileFailed)
		return
	}
	if !vm.publish(gen, func() { vm.Profile.Set(user) }) {
		return
	}

	vm.background(func(ctx context.Context) {
		var g errgroup.Group
		g.Go(func() error {
			vm.refreshPosts(ctx, gen)
			return nil
		})
		g.Go(func() error {
			vm.refreshFeed(ctx, gen, user.Following)
			return nil
		})
		g.Go(func() error {
			vm.refreshFollowers(ctx, gen, user.UserID)
			return nil
		})
		_ = g.Wait()
	})
}

// UpdateProfile merges name, username and bio into the own profile
func (vm *ViewModel) UpdateProfile(ctx context.Context, name, username, bio string) {
	vm.updateProfile(ctx, models.ProfileUpdate{Name: &name, Username: &username, Bio: &bio}, msgUpdateFailed)
}

// UpdateProfileImage sets the profile image and rewrites the author image
// snapshot on every own post.
func (vm *ViewModel) UpdateProfileImage(ctx context.Context, imageURL string) {
	gen, uid := vm.session()
	unlock, err := vm.locks.Lock(ctx, userKey(uid))
	if err != nil {
		vm.fail(gen, err, msgUpdateFailed)
		return
	}
	defer unlock()

	if !vm.applyProfileUpdate(ctx, gen, uid, models.ProfileUpdate{ImageURL: &imageURL}, msgUpdateFailed) {
		return
	}

	n, err := vm.backend.PropagateUserImage(ctx, uid, &imageURL)
	if err != nil {
		vm.fail(gen, err, msgImageSyncFailed)
		return
	}
	if n > 0 {
		vm.refreshPosts(ctx, gen)
	}
}

// UploadProfileImage uploads an image and makes it the profile image
func (vm *ViewModel) UploadProfileImage(ctx context.Context, r io.Reader, contentType string) {
	url, ok := vm.upload(ctx, r, contentType)
	if !ok {
		return
	}
	vm.UpdateProfileImage(ctx, url)
}

func (vm *ViewModel) upload(ctx context.Context, r io.Reader, contentType string) (string, bool) {
	gen, _ := vm.session()
	end := vm.inProgress.begin()
	defer end()

	url, err := vm.backend.UploadImage(ctx, r, contentType)
	if err != nil {
		vm.fail(gen, err, msgImageUploadFailed)
		return "", false
	}
	return url, true
}

func (vm *ViewModel) updateProfile(ctx context.Context, update models.ProfileUpdate, custom string) {
	gen, uid := vm.session()
	unlock, err := vm.locks.Lock(ctx, userKey(uid))
	if err != nil {
		vm.fail(gen, err, custom)
		return
	}
	defer unlock()

	vm.applyProfileUpdate(ctx, gen, uid, update, custom)
}

func (vm *ViewModel) applyProfileUpdate(ctx context.Context, gen uint64, uid string, update models.ProfileUpdate, custom string) bool {
	end := vm.inProgress.begin()
	defer end()

	user, err := vm.backend.UpdateProfile(ctx, uid, update)
	if err != nil {
		vm.fail(gen, err, custom)
		return false
	}
	return vm.publish(gen, func() { vm.Profile.Set(user) })
}

// LogOut ends the session and clears every cached slot. Backend data is kept.
func (vm *ViewModel) LogOut(ctx context.Context) {
	_, uid := vm.session()
	if err := vm.backend.LogOut(ctx, uid); err != nil {
		logrus.WithError(err).WithField("userId", uid).Warn("failed to revoke session")
	}
	vm.clearSession()
	vm.notify(MsgLoggedOut)
}

// ToggleFollow follows targetUserID, or unfollows it when already followed,
// then reloads the profile.
func (vm *ViewModel) ToggleFollow(ctx context.Context, targetUserID string) {
	gen, uid := vm.session()
	unlock, err := vm.locks.Lock(ctx, userKey(uid))
	if err != nil {
		vm.fail(gen, err, msgFollowFailed)
		return
	}
	defer unlock()

	var following []string
	if p := vm.Profile.Get(); p != nil && p.UserID == uid {
		following = p.Following
	} else if uid != "" {
		p, err := vm.backend.GetProfile(ctx, uid)
		if err != nil {
			vm.fail(gen, err, msgFollowFailed)
			return
		}
		following = p.Following
	}

	if _, err := vm.backend.ToggleFollow(ctx, uid, following, targetUserID); err != nil {
		vm.fail(gen, err, msgFollowFailed)
		return
	}
	vm.LoadProfileFor(ctx, gen, uid)
}

// RefreshFollowers recounts the followers of the signed-in user
func (vm *ViewModel) RefreshFollowers(ctx context.Context) {
	gen, uid := vm.session()
	vm.refreshFollowers(ctx, gen, uid)
}

func (vm *ViewModel) refreshFollowers(ctx context.Context, gen uint64, uid string) {
	n, err := vm.backend.CountFollowers(ctx, uid)
	if err != nil {
		vm.fail(gen, err, msgFollowersFailed)
		return
	}
	vm.publish(gen, func() { vm.Followers.Set(n) })
}
