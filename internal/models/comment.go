package models

// Comment is the document stored at comments/{commentId}
type Comment struct {
	CommentID string `json:"commentId" firestore:"commentId" bson:"commentId"`
	PostID    string `json:"postId" firestore:"postId" bson:"postId"`
	Username  string `json:"username" firestore:"username" bson:"username"` // captured at comment time
	Text      string `json:"text" firestore:"text" bson:"text"`
	Timestamp int64  `json:"timestamp" firestore:"timestamp" bson:"timestamp"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Text string `json:"text" validate:"required,min=1,max=500"`
}
