package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
)

func TestFollowAndUnfollow(t *testing.T) {
	srv, db := newTestServer(t)
	client := newClient(t)
	seedUser(t, db, "leo")
	signup(t, srv, client, "mia")

	mia, err := db.UserByName(context.Background(), "mia")
	if err != nil {
		t.Fatal(err)
	}
	leo, err := db.UserByName(context.Background(), "leo")
	if err != nil {
		t.Fatal(err)
	}

	status, _ := getBody(t, client, srv.URL+"/profile/leo/follow/")
	if status != http.StatusOK {
		t.Fatalf("want status %d after following the redirect, got %d", http.StatusOK, status)
	}

	following, err := db.IsFollowing(context.Background(), mia.ID, leo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !following {
		t.Error("want mia following leo after the follow request")
	}

	status, _ = getBody(t, client, srv.URL+"/profile/leo/unfollow/")
	if status != http.StatusOK {
		t.Fatalf("want status %d after following the redirect, got %d", http.StatusOK, status)
	}

	following, err = db.IsFollowing(context.Background(), mia.ID, leo.ID)
	if err != nil {
		t.Fatal(err)
	}
	if following {
		t.Error("want the follow gone after the unfollow request")
	}
}

func TestFollowIsIdempotent(t *testing.T) {
	srv, db := newTestServer(t)
	client := newClient(t)
	seedUser(t, db, "leo")
	signup(t, srv, client, "mia")

	for i := 0; i < 2; i++ {
		status, _ := getBody(t, client, srv.URL+"/profile/leo/follow/")
		if status != http.StatusOK {
			t.Fatalf("follow attempt %d: want status %d, got %d", i+1, http.StatusOK, status)
		}
	}

	mia, err := db.UserByName(context.Background(), "mia")
	if err != nil {
		t.Fatal(err)
	}
	following, err := db.Following(context.Background(), mia.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(following) != 1 {
		t.Errorf("want a single follow after repeated requests, got %d", len(following))
	}
}

func TestSelfFollowIsRefused(t *testing.T) {
	srv, db := newTestServer(t)
	client := newClient(t)
	signup(t, srv, client, "mia")

	status, _ := getBody(t, client, srv.URL+"/profile/mia/follow/")
	if status != http.StatusOK {
		t.Fatalf("want status %d after following the redirect, got %d", http.StatusOK, status)
	}

	mia, err := db.UserByName(context.Background(), "mia")
	if err != nil {
		t.Fatal(err)
	}
	following, err := db.Following(context.Background(), mia.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(following) != 0 {
		t.Errorf("want no follows after a self follow attempt, got %d", len(following))
	}
}

func TestUnfollowWithoutFollowing(t *testing.T) {
	srv, db := newTestServer(t)
	client := newClient(t)
	seedUser(t, db, "leo")
	signup(t, srv, client, "mia")

	status, _ := getBody(t, client, srv.URL+"/profile/leo/unfollow/")
	if status != http.StatusOK {
		t.Errorf("want status %d for an unfollow without a follow, got %d", http.StatusOK, status)
	}
}

func TestFollowRequiresLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := noRedirects(newClient(t)).Get(srv.URL + "/profile/leo/follow/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("want status %d, got %d", http.StatusFound, resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "/auth/login/") {
		t.Errorf("want redirect to login, got %s", loc)
	}
}

func TestFeedShowsOnlyFollowedAuthors(t *testing.T) {
	srv, db := newTestServer(t)
	client := newClient(t)
	leo := seedUser(t, db, "leo")
	noah := seedUser(t, db, "noah")
	signup(t, srv, client, "mia")

	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	seedPost(t, db, leo, uuid.Nil, "older from leo", base)
	seedPost(t, db, leo, uuid.Nil, "newer from leo", base.Add(time.Hour))
	seedPost(t, db, noah, uuid.Nil, "noise from noah", base.Add(2*time.Hour))

	if _, body := getBody(t, client, srv.URL+"/follow/"); countArticles(body) != 0 {
		t.Error("want an empty feed before following anyone")
	}

	if status, _ := getBody(t, client, srv.URL+"/profile/leo/follow/"); status != http.StatusOK {
		t.Fatalf("want status %d after following the redirect, got %d", http.StatusOK, status)
	}

	_, body := getBody(t, client, srv.URL+"/follow/")
	if got := countArticles(body); got != 2 {
		t.Fatalf("want 2 posts in the feed, got %d", got)
	}
	if strings.Contains(body, "noise from noah") {
		t.Error("unfollowed author's post leaked into the feed")
	}
	if strings.Index(body, "newer from leo") > strings.Index(body, "older from leo") {
		t.Error("want the feed ordered newest first")
	}

	if status, _ := getBody(t, client, srv.URL+"/profile/leo/unfollow/"); status != http.StatusOK {
		t.Fatalf("want status %d after following the redirect, got %d", http.StatusOK, status)
	}

	if _, body := getBody(t, client, srv.URL+"/follow/"); countArticles(body) != 0 {
		t.Error("want an empty feed after unfollowing")
	}
}
