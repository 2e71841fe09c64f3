package repositories

import (
	"context"
	"sync"

	"github.com/anonto42/picshare/backend/internal/models"
)

// MemoryStore keeps users, posts and comments in process memory. It implements
// UserRepository, PostRepository and CommentRepository and backs the "memory"
// store driver.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]models.User
	posts     map[string]models.Post
	comments  map[string]models.Comment
	usernames map[string]string
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]models.User),
		posts:     make(map[string]models.Post),
		comments:  make(map[string]models.Comment),
		usernames: make(map[string]string),
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUser(u models.User) models.User {
	u.ImageURL = cloneStringPtr(u.ImageURL)
	u.Following = cloneStrings(u.Following)
	return u
}

func clonePost(p models.Post) models.Post {
	p.UserImage = cloneStringPtr(p.UserImage)
	p.Likes = cloneStrings(p.Likes)
	p.SearchTerms = cloneStrings(p.SearchTerms)
	return p
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// GetUserByID retrieves a profile by user ID
func (m *MemoryStore) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

// GetUsersByUsername retrieves every profile with the given username
func (m *MemoryStore) GetUsersByUsername(_ context.Context, username string) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := []models.User{}
	for _, u := range m.users {
		if u.Username == username {
			users = append(users, cloneUser(u))
		}
	}
	return users, nil
}

// UpsertUser creates or merges a profile
func (m *MemoryStore) UpsertUser(_ context.Context, userID string, update models.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		u = models.User{UserID: userID, Following: []string{}}
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Username != nil {
		u.Username = *update.Username
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.ImageURL != nil {
		u.ImageURL = cloneStringPtr(update.ImageURL)
	}
	m.users[userID] = u
	return nil
}

// UpdateFollowing replaces the following set of a profile
func (m *MemoryStore) UpdateFollowing(_ context.Context, userID string, following []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Following = cloneStrings(following)
	if u.Following == nil {
		u.Following = []string{}
	}
	m.users[userID] = u
	return nil
}

// CountFollowers counts profiles following userID
func (m *MemoryStore) CountFollowers(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, u := range m.users {
		if contains(u.Following, userID) {
			n++
		}
	}
	return n, nil
}

// ReserveUsername claims username for userID
func (m *MemoryStore) ReserveUsername(_ context.Context, username, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if holder, ok := m.usernames[username]; ok && holder != userID {
		return ErrUsernameReserved
	}
	m.usernames[username] = userID
	return nil
}

// ReleaseUsername drops the reservation if userID holds it
func (m *MemoryStore) ReleaseUsername(_ context.Context, username, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usernames[username] == userID {
		delete(m.usernames, username)
	}
	return nil
}

// CreatePost stores a post
func (m *MemoryStore) CreatePost(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.PostID] = clonePost(*post)
	return nil
}

// GetPostByID retrieves a post by ID
func (m *MemoryStore) GetPostByID(_ context.Context, postID string) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[postID]
	if !ok {
		return nil, ErrNotFound
	}
	p = clonePost(p)
	return &p, nil
}

func (m *MemoryStore) filterPosts(match func(p *models.Post) bool) []models.Post {
	m.mu.RLock()
	defer m.mu.RUnlock()
	posts := []models.Post{}
	for _, p := range m.posts {
		if match(&p) {
			posts = append(posts, clonePost(p))
		}
	}
	return posts
}

// GetPostsByUserID retrieves posts owned by userID
func (m *MemoryStore) GetPostsByUserID(_ context.Context, userID string) ([]models.Post, error) {
	return m.filterPosts(func(p *models.Post) bool { return p.UserID == userID }), nil
}

// GetPostsByUserIDs retrieves posts owned by any of userIDs
func (m *MemoryStore) GetPostsByUserIDs(_ context.Context, userIDs []string) ([]models.Post, error) {
	return m.filterPosts(func(p *models.Post) bool { return contains(userIDs, p.UserID) }), nil
}

// GetPostsBySearchTerm retrieves posts whose searchTerms contain term
func (m *MemoryStore) GetPostsBySearchTerm(_ context.Context, term string) ([]models.Post, error) {
	return m.filterPosts(func(p *models.Post) bool { return contains(p.SearchTerms, term) }), nil
}

// GetPostsSince retrieves posts newer than since
func (m *MemoryStore) GetPostsSince(_ context.Context, since int64) ([]models.Post, error) {
	return m.filterPosts(func(p *models.Post) bool { return p.Time > since }), nil
}

// UpdateLikes replaces the like set of a post
func (m *MemoryStore) UpdateLikes(_ context.Context, postID string, likes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok {
		return ErrNotFound
	}
	p.Likes = cloneStrings(likes)
	if p.Likes == nil {
		p.Likes = []string{}
	}
	m.posts[postID] = p
	return nil
}

// UpdateUserImage sets userImage on every listed post; a missing post aborts the whole batch
func (m *MemoryStore) UpdateUserImage(_ context.Context, postIDs []string, imageURL *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range postIDs {
		if _, ok := m.posts[id]; !ok {
			return ErrNotFound
		}
	}
	for _, id := range postIDs {
		p := m.posts[id]
		p.UserImage = cloneStringPtr(imageURL)
		m.posts[id] = p
	}
	return nil
}

// CreateComment stores a comment
func (m *MemoryStore) CreateComment(_ context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments[comment.CommentID] = *comment
	return nil
}

// GetCommentsByPostID retrieves all comments of a post
func (m *MemoryStore) GetCommentsByPostID(_ context.Context, postID string) ([]models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	comments := []models.Comment{}
	for _, c := range m.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

var (
	_ UserRepository    = (*MemoryStore)(nil)
	_ PostRepository    = (*MemoryStore)(nil)
	_ CommentRepository = (*MemoryStore)(nil)
)
