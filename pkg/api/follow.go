package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"yatube/pkg/monitoring"
	"yatube/pkg/paginator"
	"yatube/pkg/storage"
)

// profileFollowHandler creates the follow relation. Following yourself
// or an author you already follow is a user-facing no-op: the storage
// layer still rejects both, the handler just swallows the sentinel
// errors and redirects back to the profile.
func (api *API) profileFollowHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	author, viewer, ok := api.lookupFollowTarget(w, r)
	if !ok {
		return
	}

	err := api.DB.FollowAuthor(r.Context(), viewer.ID, author.ID)
	switch {
	case err == nil:
		monitoring.FollowsCreated.Inc()
	case errors.Is(err, storage.ErrSelfFollow), errors.Is(err, storage.ErrFollowExists):
		// Rejected by the storage constraints, nothing to do.
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[profileFollowHandler][%s] FollowAuthor() returned error: %v", sID, err)
		return
	}

	http.Redirect(w, r, "/profile/"+author.Username+"/", http.StatusFound)
}

// profileUnfollowHandler deletes the follow relation; unfollowing an
// author the user does not follow is a no-op.
func (api *API) profileUnfollowHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	author, viewer, ok := api.lookupFollowTarget(w, r)
	if !ok {
		return
	}

	if err := api.DB.UnfollowAuthor(r.Context(), viewer.ID, author.ID); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[profileUnfollowHandler][%s] UnfollowAuthor() returned error: %v", sID, err)
		return
	}

	http.Redirect(w, r, "/profile/"+author.Username+"/", http.StatusFound)
}

// followIndexHandler serves the personalized feed: posts by followed
// authors, newest first, re-derived on every request.
func (api *API) followIndexHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	viewer, ok := api.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/auth/login/?next=%2Ffollow%2F", http.StatusFound)
		return
	}

	posts, err := api.DB.FeedPosts(r.Context(), viewer.ID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[followIndexHandler][%s] FeedPosts() returned error: %v", sID, err)
		return
	}

	api.render(w, "follow", feedData{
		Viewer: &viewer,
		List: postListData{
			Path: "/follow/",
			Page: paginator.Paginate(posts, r.URL.Query().Get("page")),
		},
	})
}

func (api *API) lookupFollowTarget(w http.ResponseWriter, r *http.Request) (author, viewer storage.User, ok bool) {
	sID := shorten(GetRequestID(r.Context()))
	username := mux.Vars(r)["username"]

	author, err := api.DB.UserByName(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			http.NotFound(w, r)
			return storage.User{}, storage.User{}, false
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[lookupFollowTarget][%s] UserByName(%s) returned error: %v", sID, username, err)
		return storage.User{}, storage.User{}, false
	}

	viewer, vOK := api.currentUser(r)
	if !vOK {
		http.Redirect(w, r, "/auth/login/", http.StatusFound)
		return storage.User{}, storage.User{}, false
	}

	return author, viewer, true
}
