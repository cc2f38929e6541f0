package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
)

var (
	ErrConnectDB       = fmt.Errorf("unable to establish DB connection")
	ErrDBNotResponding = fmt.Errorf("DB not responding")

	ErrUserNotFound  = fmt.Errorf("user not found")
	ErrUserExists    = fmt.Errorf("username already taken")
	ErrGroupNotFound = fmt.Errorf("group not found")
	ErrGroupExists   = fmt.Errorf("group slug already taken")
	ErrPostNotFound  = fmt.Errorf("post not found")
	ErrEmptyText     = fmt.Errorf("text must not be empty")

	ErrSelfFollow   = fmt.Errorf("user cannot follow themselves")
	ErrFollowExists = fmt.Errorf("follow relation already exists")
)

// User is an author identity. PassHash holds a bcrypt hash, never the
// plain password.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	PassHash []byte    `json:"-"`
	Joined   time.Time `json:"joined"`
}

// Group is a named category posts may belong to. Slug is unique and is
// the group's URL segment.
type Group struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
}

// Post is a user-authored text entry. GroupID is uuid.Nil for ungrouped
// posts and Image is empty when there is no attachment. PubDate is set
// once on creation and never updated. Author is the author's username,
// filled on reads for convenience.
type Post struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
	AuthorID uuid.UUID `json:"author_id"`
	Author   string    `json:"author"`
	GroupID  uuid.UUID `json:"group_id"`
	Image    string    `json:"image"`
}

// Comment belongs to exactly one post and one author; both references
// are required and a comment goes away with either of them.
type Comment struct {
	ID       uuid.UUID `json:"id"`
	PostID   uuid.UUID `json:"post_id"`
	AuthorID uuid.UUID `json:"author_id"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Created  time.Time `json:"created"`
}

// Follow is a directed relation: UserID wants AuthorID's posts in their
// feed. The (user, author) pair is unique and user != author.
type Follow struct {
	UserID   uuid.UUID `json:"user_id"`
	AuthorID uuid.UUID `json:"author_id"`
}

// Storage is the persistence contract shared by the postgres and memdb
// implementations. All post listings are ordered newest first by
// PubDate; pagination happens above this layer.
type Storage interface {
	Ping(ctx context.Context) error
	Close()

	AddUser(ctx context.Context, user User) (uuid.UUID, error)
	UserByName(ctx context.Context, username string) (User, error)
	UserByID(ctx context.Context, id uuid.UUID) (User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	AddGroup(ctx context.Context, group Group) (uuid.UUID, error)
	GroupBySlug(ctx context.Context, slug string) (Group, error)
	GroupByID(ctx context.Context, id uuid.UUID) (Group, error)
	Groups(ctx context.Context) ([]Group, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	AddPost(ctx context.Context, post Post) (uuid.UUID, error)
	Post(ctx context.Context, id uuid.UUID) (Post, error)
	UpdatePost(ctx context.Context, post Post) error
	DeletePost(ctx context.Context, id uuid.UUID) error
	Posts(ctx context.Context) ([]Post, error)
	PostsByGroup(ctx context.Context, groupID uuid.UUID) ([]Post, error)
	PostsByAuthor(ctx context.Context, authorID uuid.UUID) ([]Post, error)
	FeedPosts(ctx context.Context, userID uuid.UUID) ([]Post, error)

	AddComment(ctx context.Context, comment Comment) (uuid.UUID, error)
	Comments(ctx context.Context, postID uuid.UUID) ([]Comment, error)

	FollowAuthor(ctx context.Context, userID, authorID uuid.UUID) error
	UnfollowAuthor(ctx context.Context, userID, authorID uuid.UUID) error
	IsFollowing(ctx context.Context, userID, authorID uuid.UUID) (bool, error)
	Following(ctx context.Context, userID uuid.UUID) ([]User, error)
}

// ValidateText rejects blank and whitespace-only text. Both storage
// implementations route every post and comment write through it.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidatePost checks the model-level requirements shared by both
// storage implementations.
func ValidatePost(post Post) error {
	if err := ValidateText(post.Text); err != nil {
		return err
	}
	if post.AuthorID == uuid.Nil {
		return ErrUserNotFound
	}
	return nil
}

// ValidateComment rejects blank comments and comments detached from a
// post or an author.
func ValidateComment(comment Comment) error {
	if err := ValidateText(comment.Text); err != nil {
		return err
	}
	if comment.PostID == uuid.Nil {
		return ErrPostNotFound
	}
	if comment.AuthorID == uuid.Nil {
		return ErrUserNotFound
	}
	return nil
}
