package viewmodel

// Notification texts. Failure texts are followed by ": <reason>".
const (
	MsgLoggedOut   = "Logged out"
	MsgPostCreated = "Post created"

	msgSignUpFailed       = "Signup failed"
	msgLogInFailed        = "Login failed"
	msgProfileFailed      = "Cannot retrieve user data"
	msgUpdateFailed       = "Cannot update user"
	msgImageUploadFailed  = "Image upload failed"
	msgImageSyncFailed    = "Cannot update post images"
	msgPostCreateFailed   = "Post creation failed"
	msgPostsFailed        = "Cannot fetch posts"
	msgSearchFailed       = "Cannot search posts"
	msgFeedFailed         = "Cannot fetch feed"
	msgFollowFailed       = "Cannot update following"
	msgFollowersFailed    = "Cannot fetch followers"
	msgLikeFailed         = "Unable to like post"
	msgCommentFailed      = "Cannot create comment"
	msgCommentsLoadFailed = "Cannot retrieve comments"
)
