// Package postgres is the durable Storage implementation. Referential
// and uniqueness constraints live in the schema; constraint violations
// are translated into the sentinel errors of pkg/storage so the layer
// above never sees a raw pg error for an expected rejection.
package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"yatube/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	pass_hash BYTEA NOT NULL,
	joined TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT unique_username UNIQUE (username)
);
CREATE TABLE IF NOT EXISTS groups (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL,
	CONSTRAINT unique_slug UNIQUE (slug)
);
CREATE TABLE IF NOT EXISTS posts (
	id UUID PRIMARY KEY,
	text TEXT NOT NULL,
	pub_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	group_id UUID REFERENCES groups(id) ON DELETE SET NULL,
	image TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS comments (
	id UUID PRIMARY KEY,
	post_id UUID NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	created TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS follows (
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	CONSTRAINT unique_follower_following UNIQUE (user_id, author_id),
	CONSTRAINT check_not_self_follow CHECK (user_id <> author_id)
);
CREATE INDEX IF NOT EXISTS idx_posts_pub_date ON posts (pub_date DESC);
CREATE INDEX IF NOT EXISTS idx_posts_author ON posts (author_id);
CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id);
`

const postColumns = `
	p.id, p.text, p.pub_date, p.author_id, u.username,
	COALESCE(p.group_id, '00000000-0000-0000-0000-000000000000'::uuid), p.image
`

type Store struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, conStr string) (*Store, error) {
	db, err := pgxpool.Connect(ctx, conStr)
	if err != nil {
		return nil, err
	}
	s := Store{
		db: db,
	}

	return &s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

// CreateTables applies the schema. Safe to call on every start.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schema)
	return err
}

// translateErr maps constraint violations onto the storage sentinel
// errors. Anything unexpected passes through unchanged.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.ConstraintName {
	case "unique_follower_following":
		return storage.ErrFollowExists
	case "check_not_self_follow":
		return storage.ErrSelfFollow
	case "unique_username":
		return storage.ErrUserExists
	case "unique_slug":
		return storage.ErrGroupExists
	}

	return err
}

// --- Users ---

func (s *Store) AddUser(ctx context.Context, user storage.User) (id uuid.UUID, err error) {
	if user.ID == uuid.Nil {
		user.ID, err = uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO users (id, username, email, pass_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		user.ID,
		user.Username,
		user.Email,
		user.PassHash,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, translateErr(err)
	}

	return id, nil
}

func (s *Store) UserByName(ctx context.Context, username string) (user storage.User, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT id, username, email, pass_hash, joined
		FROM users
		WHERE username = $1
	`,
		username,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PassHash, &user.Joined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = storage.ErrUserNotFound
		}
		return storage.User{}, err
	}

	user.Joined = user.Joined.UTC()
	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (user storage.User, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT id, username, email, pass_hash, joined
		FROM users
		WHERE id = $1
	`,
		id,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PassHash, &user.Joined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = storage.ErrUserNotFound
		}
		return storage.User{}, err
	}

	user.Joined = user.Joined.UTC()
	return user, nil
}

// DeleteUser relies on the ON DELETE CASCADE rules: the user's posts,
// comments and follow relations in both directions go away with them.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// --- Groups ---

func (s *Store) AddGroup(ctx context.Context, group storage.Group) (id uuid.UUID, err error) {
	if group.ID == uuid.Nil {
		group.ID, err = uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO groups (id, title, description, slug)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		group.ID,
		group.Title,
		group.Description,
		group.Slug,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, translateErr(err)
	}

	return id, nil
}

func (s *Store) GroupBySlug(ctx context.Context, slug string) (group storage.Group, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT id, title, description, slug
		FROM groups
		WHERE slug = $1
	`,
		slug,
	).Scan(&group.ID, &group.Title, &group.Description, &group.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = storage.ErrGroupNotFound
		}
		return storage.Group{}, err
	}

	return group, nil
}

func (s *Store) GroupByID(ctx context.Context, id uuid.UUID) (group storage.Group, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT id, title, description, slug
		FROM groups
		WHERE id = $1
	`,
		id,
	).Scan(&group.ID, &group.Title, &group.Description, &group.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = storage.ErrGroupNotFound
		}
		return storage.Group{}, err
	}

	return group, nil
}

func (s *Store) Groups(ctx context.Context) ([]storage.Group, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, title, description, slug
		FROM groups
		ORDER BY title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []storage.Group
	for rows.Next() {
		var g storage.Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.Slug); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}

	return groups, rows.Err()
}

// DeleteGroup nulls the group reference on dependent posts via the
// ON DELETE SET NULL rule; the posts themselves survive.
func (s *Store) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrGroupNotFound
	}

	return nil
}

// --- Posts ---

func (s *Store) AddPost(ctx context.Context, post storage.Post) (id uuid.UUID, err error) {
	if err := storage.ValidatePost(post); err != nil {
		return uuid.Nil, err
	}

	if post.ID == uuid.Nil {
		post.ID, err = uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
	}

	var groupID interface{}
	if post.GroupID != uuid.Nil {
		groupID = post.GroupID
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO posts (id, text, author_id, group_id, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		post.ID,
		post.Text,
		post.AuthorID,
		groupID,
		post.Image,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, translateErr(err)
	}

	return id, nil
}

func (s *Store) Post(ctx context.Context, id uuid.UUID) (post storage.Post, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.id = $1
	`,
		id,
	).Scan(
		&post.ID,
		&post.Text,
		&post.PubDate,
		&post.AuthorID,
		&post.Author,
		&post.GroupID,
		&post.Image,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = storage.ErrPostNotFound
		}
		return storage.Post{}, err
	}

	post.PubDate = post.PubDate.UTC()
	return post, nil
}

// UpdatePost replaces text, group and image. pub_date and author_id
// are deliberately left out of the SET list.
func (s *Store) UpdatePost(ctx context.Context, post storage.Post) error {
	if err := storage.ValidateText(post.Text); err != nil {
		return err
	}

	var groupID interface{}
	if post.GroupID != uuid.Nil {
		groupID = post.GroupID
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE posts
		SET text = $2,
			group_id = $3,
			image = CASE WHEN $4 = '' THEN image ELSE $4 END
		WHERE id = $1
	`,
		post.ID,
		post.Text,
		groupID,
		post.Image,
	)
	if err != nil {
		return translateErr(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrPostNotFound
	}

	return nil
}

// DeletePost cascades to the post's comments.
func (s *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrPostNotFound
	}

	return nil
}

func (s *Store) Posts(ctx context.Context) ([]storage.Post, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		ORDER BY p.pub_date DESC, p.id
	`)
}

func (s *Store) PostsByGroup(ctx context.Context, groupID uuid.UUID) ([]storage.Post, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.group_id = $1
		ORDER BY p.pub_date DESC, p.id
	`, groupID)
}

func (s *Store) PostsByAuthor(ctx context.Context, authorID uuid.UUID) ([]storage.Post, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		WHERE p.author_id = $1
		ORDER BY p.pub_date DESC, p.id
	`, authorID)
}

// FeedPosts joins the follow relations to posts: the timeline is
// re-derived on every request, nothing is materialized.
func (s *Store) FeedPosts(ctx context.Context, userID uuid.UUID) ([]storage.Post, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN users u ON u.id = p.author_id
		JOIN follows f ON f.author_id = p.author_id
		WHERE f.user_id = $1
		ORDER BY p.pub_date DESC, p.id
	`, userID)
}

func (s *Store) queryPosts(ctx context.Context, query string, args ...interface{}) ([]storage.Post, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]storage.Post, 0)
	for rows.Next() {
		var p storage.Post
		err := rows.Scan(
			&p.ID,
			&p.Text,
			&p.PubDate,
			&p.AuthorID,
			&p.Author,
			&p.GroupID,
			&p.Image,
		)
		if err != nil {
			return nil, err
		}
		p.PubDate = p.PubDate.UTC()
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}

// --- Comments ---

func (s *Store) AddComment(ctx context.Context, comment storage.Comment) (id uuid.UUID, err error) {
	if err := storage.ValidateComment(comment); err != nil {
		return uuid.Nil, err
	}

	if comment.ID == uuid.Nil {
		comment.ID, err = uuid.NewV4()
		if err != nil {
			return uuid.Nil, err
		}
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO comments (id, post_id, author_id, text)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`,
		comment.ID,
		comment.PostID,
		comment.AuthorID,
		comment.Text,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, translateErr(err)
	}

	return id, nil
}

func (s *Store) Comments(ctx context.Context, postID uuid.UUID) ([]storage.Comment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT c.id, c.post_id, c.author_id, u.username, c.text, c.created
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.post_id = $1
		ORDER BY c.created, c.id
	`,
		postID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]storage.Comment, 0)
	for rows.Next() {
		var c storage.Comment
		err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Author, &c.Text, &c.Created)
		if err != nil {
			return nil, err
		}
		c.Created = c.Created.UTC()
		comments = append(comments, c)
	}

	return comments, rows.Err()
}

// --- Follows ---

// FollowAuthor inserts the relation; the unique and check constraints
// reject duplicates and self-follows atomically on insert.
func (s *Store) FollowAuthor(ctx context.Context, userID, authorID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO follows (user_id, author_id)
		VALUES ($1, $2)
	`,
		userID,
		authorID,
	)
	if err != nil {
		return translateErr(err)
	}

	return nil
}

// UnfollowAuthor deletes the relation. Deleting zero rows is fine:
// unfollowing an author the user does not follow is a no-op.
func (s *Store) UnfollowAuthor(ctx context.Context, userID, authorID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM follows
		WHERE user_id = $1 AND author_id = $2
	`,
		userID,
		authorID,
	)

	return err
}

func (s *Store) IsFollowing(ctx context.Context, userID, authorID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM follows
			WHERE user_id = $1 AND author_id = $2
		)
	`,
		userID,
		authorID,
	).Scan(&exists)

	return exists, err
}

func (s *Store) Following(ctx context.Context, userID uuid.UUID) ([]storage.User, error) {
	rows, err := s.db.Query(ctx, `
		SELECT u.id, u.username, u.email, u.pass_hash, u.joined
		FROM users u
		JOIN follows f ON f.author_id = u.id
		WHERE f.user_id = $1
		ORDER BY u.username
	`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authors := make([]storage.User, 0)
	for rows.Next() {
		var u storage.User
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PassHash, &u.Joined)
		if err != nil {
			return nil, err
		}
		authors = append(authors, u)
	}

	return authors, rows.Err()
}
