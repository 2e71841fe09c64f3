package viewmodel

import (
	"context"
	"io"

	"github.com/anonto42/picshare/backend/internal/models"
	"github.com/anonto42/picshare/backend/internal/search"
	"github.com/anonto42/picshare/backend/internal/state"
)

func postKey(postID string) string { return "posts/" + postID }

// CreatePost publishes a post with an already uploaded image. On success the
// own posts are refreshed and onSuccess, if set, is called.
func (vm *ViewModel) CreatePost(ctx context.Context, imageURL, description string, onSuccess func()) {
	gen, uid := vm.session()
	end := vm.inProgress.begin()
	_, err := vm.backend.CreatePost(ctx, uid, vm.Profile.Get(), imageURL, description)
	end()
	if err != nil {
		vm.fail(gen, err, msgPostCreateFailed)
		return
	}

	vm.notify(MsgPostCreated)
	vm.refreshPosts(ctx, gen)
	if onSuccess != nil {
		onSuccess()
	}
}

// NewPost uploads an image and publishes it as a post
func (vm *ViewModel) NewPost(ctx context.Context, r io.Reader, contentType, description string, onSuccess func()) {
	url, ok := vm.upload(ctx, r, contentType)
	if !ok {
		return
	}
	vm.CreatePost(ctx, url, description, onSuccess)
}

// RefreshPosts reloads the own posts
func (vm *ViewModel) RefreshPosts(ctx context.Context) {
	gen, _ := vm.session()
	vm.refreshPosts(ctx, gen)
}

func (vm *ViewModel) refreshPosts(ctx context.Context, gen uint64) {
	_, uid := vm.session()
	end := vm.postsLoading.begin()
	defer end()

	posts, err := vm.backend.ListUserPosts(ctx, uid)
	if err != nil {
		vm.fail(gen, err, msgPostsFailed)
		return
	}
	vm.publish(gen, func() { vm.Posts.Set(posts) })
}

// SearchPosts looks up posts by a single term. A blank term does nothing.
func (vm *ViewModel) SearchPosts(ctx context.Context, term string) {
	if search.Normalize(term) == "" {
		return
	}
	gen, _ := vm.session()
	end := vm.searchLoading.begin()
	defer end()

	posts, err := vm.backend.SearchPosts(ctx, term)
	if err != nil {
		vm.fail(gen, err, msgSearchFailed)
		return
	}
	vm.publish(gen, func() { vm.SearchResults.Set(posts) })
}

// RefreshFeed reloads the feed from the followed users of the current
// profile, falling back to the general feed.
func (vm *ViewModel) RefreshFeed(ctx context.Context) {
	gen, _ := vm.session()
	var following []string
	if p := vm.Profile.Get(); p != nil {
		following = p.Following
	}
	vm.refreshFeed(ctx, gen, following)
}

func (vm *ViewModel) refreshFeed(ctx context.Context, gen uint64, following []string) {
	end := vm.feedLoading.begin()
	defer end()

	posts, err := vm.backend.PersonalizedFeed(ctx, following)
	if err != nil {
		vm.fail(gen, err, msgFeedFailed)
		return
	}
	vm.publish(gen, func() { vm.Feed.Set(posts) })
}

// ToggleLike likes postID, or unlikes it when already liked, and updates the
// post wherever it is displayed.
func (vm *ViewModel) ToggleLike(ctx context.Context, postID string) {
	gen, uid := vm.session()
	unlock, err := vm.locks.Lock(ctx, postKey(postID))
	if err != nil {
		vm.fail(gen, err, msgLikeFailed)
		return
	}
	defer unlock()

	// displayed copies may be stale when other users like the same post
	post, err := vm.backend.GetPost(ctx, postID)
	if err != nil {
		vm.fail(gen, err, msgLikeFailed)
		return
	}

	likes, err := vm.backend.ToggleLike(ctx, uid, post)
	if err != nil {
		vm.fail(gen, err, msgLikeFailed)
		return
	}
	vm.publish(gen, func() {
		for _, slot := range vm.postSlots() {
			slot.Update(func(posts []models.Post) []models.Post {
				return withLikes(posts, postID, likes)
			})
		}
	})
}

func (vm *ViewModel) postSlots() []*state.Slot[[]models.Post] {
	return []*state.Slot[[]models.Post]{vm.Posts, vm.Feed, vm.SearchResults}
}

// withLikes returns posts with the likes of postID replaced. posts is not modified.
func withLikes(posts []models.Post, postID string, likes []string) []models.Post {
	out := make([]models.Post, len(posts))
	copy(out, posts)
	for i := range out {
		if out[i].PostID == postID {
			out[i].Likes = append([]string{}, likes...)
		}
	}
	return out
}
