// Package memdb is an in-memory Storage implementation used in
// development mode and in handler tests. It enforces the same
// constraints as the postgres implementation: unique usernames and
// slugs, the unique (user, author) follow pair, the self-follow
// rejection and the delete cascades.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"yatube/pkg/storage"
)

type followKey struct {
	userID   uuid.UUID
	authorID uuid.UUID
}

type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]storage.User
	groups   map[uuid.UUID]storage.Group
	posts    map[uuid.UUID]storage.Post
	comments map[uuid.UUID]storage.Comment
	follows  map[followKey]struct{}

	// seq breaks PubDate ties so listings stay newest first even when
	// posts are created within the same clock tick.
	seq     map[uuid.UUID]uint64
	nextSeq uint64
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]storage.User),
		groups:   make(map[uuid.UUID]storage.Group),
		posts:    make(map[uuid.UUID]storage.Post),
		comments: make(map[uuid.UUID]storage.Comment),
		follows:  make(map[followKey]struct{}),
		seq:      make(map[uuid.UUID]uint64),
	}
}

func (db *Store) Ping(ctx context.Context) error { return nil }

func (db *Store) Close() {}

// --- Users ---

func (db *Store) AddUser(ctx context.Context, user storage.User) (uuid.UUID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if strings.TrimSpace(user.Username) == "" {
		return uuid.Nil, storage.ErrUserNotFound
	}
	for _, u := range db.users {
		if u.Username == user.Username {
			return uuid.Nil, storage.ErrUserExists
		}
	}

	if user.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
		user.ID = id
	}
	if user.Joined.IsZero() {
		user.Joined = time.Now().UTC()
	}

	db.users[user.ID] = user
	return user.ID, nil
}

func (db *Store) UserByName(ctx context.Context, username string) (storage.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return storage.User{}, storage.ErrUserNotFound
}

func (db *Store) UserByID(ctx context.Context, id uuid.UUID) (storage.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return storage.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

// DeleteUser removes the user together with their posts, comments and
// follow relations in both directions. Comments under the deleted
// user's posts go away with the posts.
func (db *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[id]; !ok {
		return storage.ErrUserNotFound
	}
	delete(db.users, id)

	for postID, p := range db.posts {
		if p.AuthorID == id {
			db.deletePostLocked(postID)
		}
	}
	for commentID, c := range db.comments {
		if c.AuthorID == id {
			delete(db.comments, commentID)
		}
	}
	for key := range db.follows {
		if key.userID == id || key.authorID == id {
			delete(db.follows, key)
		}
	}

	return nil
}

// --- Groups ---

func (db *Store) AddGroup(ctx context.Context, group storage.Group) (uuid.UUID, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, g := range db.groups {
		if g.Slug == group.Slug {
			return uuid.Nil, storage.ErrGroupExists
		}
	}

	if group.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
		group.ID = id
	}

	db.groups[group.ID] = group
	return group.ID, nil
}

func (db *Store) GroupBySlug(ctx context.Context, slug string) (storage.Group, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, g := range db.groups {
		if g.Slug == slug {
			return g, nil
		}
	}
	return storage.Group{}, storage.ErrGroupNotFound
}

func (db *Store) GroupByID(ctx context.Context, id uuid.UUID) (storage.Group, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	g, ok := db.groups[id]
	if !ok {
		return storage.Group{}, storage.ErrGroupNotFound
	}
	return g, nil
}

func (db *Store) Groups(ctx context.Context) ([]storage.Group, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	groups := make([]storage.Group, 0, len(db.groups))
	for _, g := range db.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Title < groups[j].Title
	})

	return groups, nil
}

// DeleteGroup clears the group reference on dependent posts instead of
// deleting them.
func (db *Store) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.groups[id]; !ok {
		return storage.ErrGroupNotFound
	}
	delete(db.groups, id)

	for postID, p := range db.posts {
		if p.GroupID == id {
			p.GroupID = uuid.Nil
			db.posts[postID] = p
		}
	}

	return nil
}

// --- Posts ---

func (db *Store) AddPost(ctx context.Context, post storage.Post) (uuid.UUID, error) {
	if err := storage.ValidatePost(post); err != nil {
		return uuid.Nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	author, ok := db.users[post.AuthorID]
	if !ok {
		return uuid.Nil, storage.ErrUserNotFound
	}
	if post.GroupID != uuid.Nil {
		if _, ok := db.groups[post.GroupID]; !ok {
			return uuid.Nil, storage.ErrGroupNotFound
		}
	}

	if post.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
		post.ID = id
	}
	if post.PubDate.IsZero() {
		post.PubDate = time.Now().UTC()
	}
	post.Author = author.Username

	db.posts[post.ID] = post
	db.nextSeq++
	db.seq[post.ID] = db.nextSeq

	return post.ID, nil
}

func (db *Store) Post(ctx context.Context, id uuid.UUID) (storage.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.posts[id]
	if !ok {
		return storage.Post{}, storage.ErrPostNotFound
	}
	return p, nil
}

// UpdatePost replaces the text, group and image of an existing post.
// PubDate and author are immutable.
func (db *Store) UpdatePost(ctx context.Context, post storage.Post) error {
	if err := storage.ValidateText(post.Text); err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	current, ok := db.posts[post.ID]
	if !ok {
		return storage.ErrPostNotFound
	}
	if post.GroupID != uuid.Nil {
		if _, ok := db.groups[post.GroupID]; !ok {
			return storage.ErrGroupNotFound
		}
	}

	current.Text = post.Text
	current.GroupID = post.GroupID
	if post.Image != "" {
		current.Image = post.Image
	}
	db.posts[current.ID] = current

	return nil
}

func (db *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.posts[id]; !ok {
		return storage.ErrPostNotFound
	}
	db.deletePostLocked(id)

	return nil
}

func (db *Store) deletePostLocked(id uuid.UUID) {
	delete(db.posts, id)
	delete(db.seq, id)
	for commentID, c := range db.comments {
		if c.PostID == id {
			delete(db.comments, commentID)
		}
	}
}

func (db *Store) Posts(ctx context.Context) ([]storage.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.collectLocked(func(p storage.Post) bool { return true }), nil
}

func (db *Store) PostsByGroup(ctx context.Context, groupID uuid.UUID) ([]storage.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.collectLocked(func(p storage.Post) bool { return p.GroupID == groupID }), nil
}

func (db *Store) PostsByAuthor(ctx context.Context, authorID uuid.UUID) ([]storage.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.collectLocked(func(p storage.Post) bool { return p.AuthorID == authorID }), nil
}

// FeedPosts re-derives the follow timeline on every call: posts by any
// author the user follows, newest first.
func (db *Store) FeedPosts(ctx context.Context, userID uuid.UUID) ([]storage.Post, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	followed := make(map[uuid.UUID]struct{})
	for key := range db.follows {
		if key.userID == userID {
			followed[key.authorID] = struct{}{}
		}
	}

	return db.collectLocked(func(p storage.Post) bool {
		_, ok := followed[p.AuthorID]
		return ok
	}), nil
}

func (db *Store) collectLocked(keep func(storage.Post) bool) []storage.Post {
	posts := make([]storage.Post, 0)
	for _, p := range db.posts {
		if keep(p) {
			posts = append(posts, p)
		}
	}

	sort.Slice(posts, func(i, j int) bool {
		if posts[i].PubDate.Equal(posts[j].PubDate) {
			return db.seq[posts[i].ID] > db.seq[posts[j].ID]
		}
		return posts[i].PubDate.After(posts[j].PubDate)
	})

	return posts
}

// --- Comments ---

func (db *Store) AddComment(ctx context.Context, comment storage.Comment) (uuid.UUID, error) {
	if err := storage.ValidateComment(comment); err != nil {
		return uuid.Nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.posts[comment.PostID]; !ok {
		return uuid.Nil, storage.ErrPostNotFound
	}
	author, ok := db.users[comment.AuthorID]
	if !ok {
		return uuid.Nil, storage.ErrUserNotFound
	}

	if comment.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
		comment.ID = id
	}
	if comment.Created.IsZero() {
		comment.Created = time.Now().UTC()
	}
	comment.Author = author.Username

	db.comments[comment.ID] = comment
	return comment.ID, nil
}

func (db *Store) Comments(ctx context.Context, postID uuid.UUID) ([]storage.Comment, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	comments := make([]storage.Comment, 0)
	for _, c := range db.comments {
		if c.PostID == postID {
			comments = append(comments, c)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].Created.Before(comments[j].Created)
	})

	return comments, nil
}

// --- Follows ---

func (db *Store) FollowAuthor(ctx context.Context, userID, authorID uuid.UUID) error {
	if userID == authorID {
		return storage.ErrSelfFollow
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.users[userID]; !ok {
		return storage.ErrUserNotFound
	}
	if _, ok := db.users[authorID]; !ok {
		return storage.ErrUserNotFound
	}

	key := followKey{userID: userID, authorID: authorID}
	if _, ok := db.follows[key]; ok {
		return storage.ErrFollowExists
	}
	db.follows[key] = struct{}{}

	return nil
}

// UnfollowAuthor deletes the relation if present; unfollowing an
// author the user does not follow is a no-op.
func (db *Store) UnfollowAuthor(ctx context.Context, userID, authorID uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.follows, followKey{userID: userID, authorID: authorID})
	return nil
}

func (db *Store) IsFollowing(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, ok := db.follows[followKey{userID: userID, authorID: authorID}]
	return ok, nil
}

func (db *Store) Following(ctx context.Context, userID uuid.UUID) ([]storage.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	authors := make([]storage.User, 0)
	for key := range db.follows {
		if key.userID == userID {
			if author, ok := db.users[key.authorID]; ok {
				authors = append(authors, author)
			}
		}
	}
	sort.Slice(authors, func(i, j int) bool {
		return authors[i].Username < authors[j].Username
	})

	return authors, nil
}
