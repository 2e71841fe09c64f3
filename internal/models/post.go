package models

// Post is the document stored at posts/{postId}. Username and UserImage are a
// snapshot of the owner's profile and are only refreshed by image fan-out.
type Post struct {
	PostID          string   `json:"postId" firestore:"postId" bson:"postId"`
	UserID          string   `json:"userId" firestore:"userId" bson:"userId"`
	Username        string   `json:"username" firestore:"username" bson:"username"`
	UserImage       *string  `json:"userImage" firestore:"userImage" bson:"userImage"`
	PostImage       string   `json:"postImage" firestore:"postImage" bson:"postImage"`
	PostDescription string   `json:"postDescription" firestore:"postDescription" bson:"postDescription"`
	Time            int64    `json:"time" firestore:"time" bson:"time"` // epoch millis
	Likes           []string `json:"likes" firestore:"likes" bson:"likes"`
	SearchTerms     []string `json:"searchTerms" firestore:"searchTerms" bson:"searchTerms"`
}

// CreatePostRequest defines the form fields for a new post
type CreatePostRequest struct {
	Description string `form:"description" validate:"max=2200"`
}
