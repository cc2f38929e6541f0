package memdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"

	"yatube/pkg/storage"
)

func addUser(t *testing.T, db *Store, username string) storage.User {
	t.Helper()

	id, err := db.AddUser(context.Background(), storage.User{
		Username: username,
		Email:    username + "@example.com",
		PassHash: []byte("hash"),
	})
	if err != nil {
		t.Fatalf("unexpected error while adding user %s: %v", username, err)
	}

	user, err := db.UserByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error while reading user back: %v", err)
	}
	return user
}

func addGroup(t *testing.T, db *Store, title, slug string) storage.Group {
	t.Helper()

	id, err := db.AddGroup(context.Background(), storage.Group{Title: title, Slug: slug})
	if err != nil {
		t.Fatalf("unexpected error while adding group %s: %v", slug, err)
	}

	group, err := db.GroupByID(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error while reading group back: %v", err)
	}
	return group
}

func addPost(t *testing.T, db *Store, author storage.User, groupID uuid.UUID, text string, pubDate time.Time) storage.Post {
	t.Helper()

	id, err := db.AddPost(context.Background(), storage.Post{
		Text:     text,
		AuthorID: author.ID,
		GroupID:  groupID,
		PubDate:  pubDate,
	})
	if err != nil {
		t.Fatalf("unexpected error while adding post: %v", err)
	}

	post, err := db.Post(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error while reading post back: %v", err)
	}
	return post
}

func TestStore_AddUserDuplicate(t *testing.T) {
	db := New()
	addUser(t, db, "leo")

	_, err := db.AddUser(context.Background(), storage.User{Username: "leo"})
	if !errors.Is(err, storage.ErrUserExists) {
		t.Errorf("want %v, got %v", storage.ErrUserExists, err)
	}
}

func TestStore_AddGroupDuplicateSlug(t *testing.T) {
	db := New()
	addGroup(t, db, "First", "dup")

	_, err := db.AddGroup(context.Background(), storage.Group{Title: "Second", Slug: "dup"})
	if !errors.Is(err, storage.ErrGroupExists) {
		t.Errorf("want %v, got %v", storage.ErrGroupExists, err)
	}
}

func TestStore_AddPostEmptyText(t *testing.T) {
	db := New()
	author := addUser(t, db, "leo")

	_, err := db.AddPost(context.Background(), storage.Post{Text: "   ", AuthorID: author.ID})
	if !errors.Is(err, storage.ErrEmptyText) {
		t.Errorf("want %v, got %v", storage.ErrEmptyText, err)
	}

	posts, err := db.Posts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 0 {
		t.Errorf("want 0 posts after rejected write, got %d", len(posts))
	}
}

func TestStore_PostsNewestFirst(t *testing.T) {
	db := New()
	author := addUser(t, db, "leo")

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	addPost(t, db, author, uuid.Nil, "oldest", base)
	addPost(t, db, author, uuid.Nil, "middle", base.Add(time.Hour))
	addPost(t, db, author, uuid.Nil, "newest", base.Add(2*time.Hour))

	posts, err := db.Posts(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"newest", "middle", "oldest"}
	if len(posts) != len(want) {
		t.Fatalf("want %d posts, got %d", len(want), len(posts))
	}
	for i, text := range want {
		if posts[i].Text != text {
			t.Errorf("position %d: want %q, got %q", i, text, posts[i].Text)
		}
	}
}

func TestStore_PostsByGroup(t *testing.T) {
	db := New()
	author := addUser(t, db, "leo")
	cats := addGroup(t, db, "Cats", "cats")
	dogs := addGroup(t, db, "Dogs", "dogs")

	post := addPost(t, db, author, cats.ID, "a cat post", time.Now().UTC())

	inCats, err := db.PostsByGroup(context.Background(), cats.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(inCats) != 1 || inCats[0].ID != post.ID {
		t.Errorf("want the post in its own group listing, got %v", inCats)
	}

	inDogs, err := db.PostsByGroup(context.Background(), dogs.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(inDogs) != 0 {
		t.Errorf("want no posts in the other group, got %d", len(inDogs))
	}
}

func TestStore_FeedPosts(t *testing.T) {
	db := New()
	reader := addUser(t, db, "reader")
	followed := addUser(t, db, "followed")
	other := addUser(t, db, "other")

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	addPost(t, db, followed, uuid.Nil, "followed early", base)
	addPost(t, db, followed, uuid.Nil, "followed late", base.Add(time.Hour))
	addPost(t, db, other, uuid.Nil, "unfollowed", base.Add(2*time.Hour))

	if err := db.FollowAuthor(context.Background(), reader.ID, followed.ID); err != nil {
		t.Fatalf("unexpected error while following: %v", err)
	}

	feed, err := db.FeedPosts(context.Background(), reader.ID)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"followed late", "followed early"}
	if len(feed) != len(want) {
		t.Fatalf("want %d feed posts, got %d", len(want), len(feed))
	}
	for i, text := range want {
		if feed[i].Text != text {
			t.Errorf("feed position %d: want %q, got %q", i, text, feed[i].Text)
		}
	}
}

func TestStore_FeedPostsNoFollows(t *testing.T) {
	db := New()
	reader := addUser(t, db, "reader")
	author := addUser(t, db, "author")
	addPost(t, db, author, uuid.Nil, "someone else's post", time.Now().UTC())

	feed, err := db.FeedPosts(context.Background(), reader.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 0 {
		t.Errorf("want empty feed for user following nobody, got %d posts", len(feed))
	}
}

func TestStore_SelfFollow(t *testing.T) {
	db := New()
	user := addUser(t, db, "narcissus")

	err := db.FollowAuthor(context.Background(), user.ID, user.ID)
	if !errors.Is(err, storage.ErrSelfFollow) {
		t.Errorf("want %v, got %v", storage.ErrSelfFollow, err)
	}
}

func TestStore_DuplicateFollow(t *testing.T) {
	db := New()
	user := addUser(t, db, "reader")
	author := addUser(t, db, "author")

	if err := db.FollowAuthor(context.Background(), user.ID, author.ID); err != nil {
		t.Fatalf("unexpected error on first follow: %v", err)
	}

	err := db.FollowAuthor(context.Background(), user.ID, author.ID)
	if !errors.Is(err, storage.ErrFollowExists) {
		t.Errorf("want %v, got %v", storage.ErrFollowExists, err)
	}
}

func TestStore_UnfollowNotFollowing(t *testing.T) {
	db := New()
	user := addUser(t, db, "reader")
	author := addUser(t, db, "author")

	if err := db.UnfollowAuthor(context.Background(), user.ID, author.ID); err != nil {
		t.Errorf("unfollow of a missing relation must be a no-op, got %v", err)
	}
}

func TestStore_DeleteGroupClearsPostReferences(t *testing.T) {
	db := New()
	author := addUser(t, db, "leo")
	group := addGroup(t, db, "Cats", "cats")
	post := addPost(t, db, author, group.ID, "a cat post", time.Now().UTC())

	if err := db.DeleteGroup(context.Background(), group.ID); err != nil {
		t.Fatalf("unexpected error while deleting group: %v", err)
	}

	got, err := db.Post(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("post must survive group deletion, got %v", err)
	}
	if got.GroupID != uuid.Nil {
		t.Errorf("want cleared group reference, got %v", got.GroupID)
	}
}

func TestStore_DeletePostCascadesComments(t *testing.T) {
	db := New()
	author := addUser(t, db, "leo")
	post := addPost(t, db, author, uuid.Nil, "soon gone", time.Now().UTC())

	_, err := db.AddComment(context.Background(), storage.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Text:     "nice",
	})
	if err != nil {
		t.Fatalf("unexpected error while adding comment: %v", err)
	}

	if err := db.DeletePost(context.Background(), post.ID); err != nil {
		t.Fatalf("unexpected error while deleting post: %v", err)
	}

	comments, err := db.Comments(context.Background(), post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 0 {
		t.Errorf("want comments gone with their post, got %d", len(comments))
	}
}

func TestStore_DeleteUserCascades(t *testing.T) {
	db := New()
	author := addUser(t, db, "leaving")
	reader := addUser(t, db, "staying")
	post := addPost(t, db, author, uuid.Nil, "authored", time.Now().UTC())

	_, err := db.AddComment(context.Background(), storage.Comment{
		PostID:   post.ID,
		AuthorID: reader.ID,
		Text:     "bye",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.FollowAuthor(context.Background(), reader.ID, author.ID); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteUser(context.Background(), author.ID); err != nil {
		t.Fatalf("unexpected error while deleting user: %v", err)
	}

	if _, err := db.Post(context.Background(), post.ID); !errors.Is(err, storage.ErrPostNotFound) {
		t.Errorf("want post gone with its author, got %v", err)
	}

	comments, err := db.Comments(context.Background(), post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 0 {
		t.Errorf("want comments gone with the post, got %d", len(comments))
	}

	following, err := db.IsFollowing(context.Background(), reader.ID, author.ID)
	if err != nil {
		t.Fatal(err)
	}
	if following {
		t.Error("want follow relation gone with the followed user")
	}
}

func TestStore_UpdatePostWhitespaceText(t *testing.T) {
	db := New()
	author := addUser(t, db, "leo")
	post := addPost(t, db, author, uuid.Nil, "original", time.Now().UTC())

	err := db.UpdatePost(context.Background(), storage.Post{ID: post.ID, Text: " \t "})
	if !errors.Is(err, storage.ErrEmptyText) {
		t.Errorf("want %v, got %v", storage.ErrEmptyText, err)
	}

	got, err := db.Post(context.Background(), post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "original" {
		t.Errorf("rejected update altered the post: %q", got.Text)
	}
}

func TestStore_UpdatePostKeepsPubDateAndAuthor(t *testing.T) {
	db := New()
	author := addUser(t, db, "leo")
	pubDate := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	post := addPost(t, db, author, uuid.Nil, "before", pubDate)

	err := db.UpdatePost(context.Background(), storage.Post{
		ID:   post.ID,
		Text: "after",
	})
	if err != nil {
		t.Fatalf("unexpected error while updating post: %v", err)
	}

	got, err := db.Post(context.Background(), post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "after" {
		t.Errorf("want updated text %q, got %q", "after", got.Text)
	}
	if !got.PubDate.Equal(pubDate) {
		t.Errorf("pub date must be immutable: want %v, got %v", pubDate, got.PubDate)
	}
	if got.AuthorID != author.ID {
		t.Errorf("author must be immutable: want %v, got %v", author.ID, got.AuthorID)
	}
}
