package viewmodel

import "context"

// CreateComment comments on postID as the current profile's username and
// reloads the comments of the post.
func (vm *ViewModel) CreateComment(ctx context.Context, postID, text string) {
	gen, _ := vm.session()
	end := vm.commentsLoading.begin()
	defer end()

	var username string
	if p := vm.Profile.Get(); p != nil {
		username = p.Username
	}
	if _, err := vm.backend.CreateComment(ctx, username, postID, text); err != nil {
		vm.fail(gen, err, msgCommentFailed)
		return
	}
	vm.LoadComments(ctx, postID)
}

// LoadComments loads the comments of postID, newest first
func (vm *ViewModel) LoadComments(ctx context.Context, postID string) {
	gen, _ := vm.session()
	end := vm.commentsLoading.begin()
	defer end()

	comments, err := vm.backend.ListComments(ctx, postID)
	if err != nil {
		vm.fail(gen, err, msgCommentsLoadFailed)
		return
	}
	vm.publish(gen, func() { vm.Comments.Set(comments) })
}
