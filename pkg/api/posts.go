package api

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"yatube/pkg/monitoring"
	"yatube/pkg/paginator"
	"yatube/pkg/storage"
)

// indexHandler serves the paginated list of all posts. The rendered
// post-list fragment is cached per page number for the configured TTL,
// so repeated requests inside the window return identical content even
// if posts change in the interim.
func (api *API) indexHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	pageParam := r.URL.Query().Get("page")
	key := "index:" + strconv.Itoa(paginator.ParsePage(pageParam))

	fragment, ok := api.Cache.Get(key)
	if !ok {
		posts, err := api.DB.Posts(r.Context())
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Errorf("[indexHandler][%s] Posts() returned error: %v", sID, err)
			return
		}

		fragment, err = api.renderFragment("post_list", postListData{
			Path: "/",
			Page: paginator.Paginate(posts, pageParam),
		})
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Errorf("[indexHandler][%s] failed to render post list: %v", sID, err)
			return
		}
		api.Cache.Set(key, fragment)
	}

	api.render(w, "index", indexData{
		Viewer: api.viewer(r),
		Posts:  template.HTML(fragment),
	})
}

func (api *API) groupPostsHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))
	slug := mux.Vars(r)["slug"]

	group, err := api.DB.GroupBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrGroupNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[groupPostsHandler][%s] GroupBySlug(%s) returned error: %v", sID, slug, err)
		return
	}

	posts, err := api.DB.PostsByGroup(r.Context(), group.ID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[groupPostsHandler][%s] PostsByGroup() returned error: %v", sID, err)
		return
	}

	api.render(w, "group_list", groupData{
		Viewer: api.viewer(r),
		Group:  group,
		List: postListData{
			Path: "/group/" + group.Slug + "/",
			Page: paginator.Paginate(posts, r.URL.Query().Get("page")),
		},
	})
}

func (api *API) profileHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))
	username := mux.Vars(r)["username"]

	profile, err := api.DB.UserByName(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[profileHandler][%s] UserByName(%s) returned error: %v", sID, username, err)
		return
	}

	posts, err := api.DB.PostsByAuthor(r.Context(), profile.ID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[profileHandler][%s] PostsByAuthor() returned error: %v", sID, err)
		return
	}

	data := profileData{
		Viewer:    api.viewer(r),
		Profile:   profile,
		PostCount: len(posts),
		List: postListData{
			Path: "/profile/" + profile.Username + "/",
			Page: paginator.Paginate(posts, r.URL.Query().Get("page")),
		},
	}
	if data.Viewer != nil {
		data.IsSelf = data.Viewer.ID == profile.ID
		if !data.IsSelf {
			following, err := api.DB.IsFollowing(r.Context(), data.Viewer.ID, profile.ID)
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				log.Errorf("[profileHandler][%s] IsFollowing() returned error: %v", sID, err)
				return
			}
			data.Following = following
		}
	}

	api.render(w, "profile", data)
}

func (api *API) postDetailHandler(w http.ResponseWriter, r *http.Request) {
	post, ok := api.lookupPost(w, r)
	if !ok {
		return
	}

	api.renderDetail(w, r, post, "")
}

func (api *API) renderDetail(w http.ResponseWriter, r *http.Request, post storage.Post, commentError string) {
	sID := shorten(GetRequestID(r.Context()))

	comments, err := api.DB.Comments(r.Context(), post.ID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[postDetailHandler][%s] Comments() returned error: %v", sID, err)
		return
	}

	data := detailData{
		Viewer:       api.viewer(r),
		Post:         post,
		Comments:     comments,
		CommentError: commentError,
	}
	if post.GroupID != uuid.Nil {
		group, err := api.DB.GroupByID(r.Context(), post.GroupID)
		if err == nil {
			data.Group = &group
		}
	}
	data.CanEdit = data.Viewer != nil && data.Viewer.ID == post.AuthorID

	api.render(w, "post_detail", data)
}

// postCreateHandler shows the creation form and handles its submission.
// Validation failures re-render the form with field errors; nothing is
// persisted. Success redirects to the author's profile.
func (api *API) postCreateHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	viewer, ok := api.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/auth/login/?next=%2Fcreate%2F", http.StatusFound)
		return
	}

	if r.Method == http.MethodGet {
		api.renderPostForm(w, r, postForm{Errors: make(map[string]string)}, false, "")
		return
	}

	form := api.parsePostForm(r)
	if form.HasErrors() {
		api.renderPostForm(w, r, form, false, "")
		return
	}

	_, err := api.DB.AddPost(r.Context(), storage.Post{
		Text:     form.Text,
		AuthorID: viewer.ID,
		GroupID:  form.GroupID,
		Image:    form.Image,
	})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[postCreateHandler][%s] AddPost() returned error: %v", sID, err)
		return
	}

	monitoring.PostsCreated.Inc()
	http.Redirect(w, r, "/profile/"+viewer.Username+"/", http.StatusFound)
}

// postEditHandler lets the author change a post's text, group and
// image. Non-authors are bounced to the detail page. pub_date never
// changes.
func (api *API) postEditHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	post, ok := api.lookupPost(w, r)
	if !ok {
		return
	}

	viewer, ok := api.currentUser(r)
	if !ok || viewer.ID != post.AuthorID {
		http.Redirect(w, r, "/posts/"+post.ID.String()+"/", http.StatusFound)
		return
	}

	if r.Method == http.MethodGet {
		api.renderPostForm(w, r, formFromPost(post), true, post.ID.String())
		return
	}

	form := api.parsePostForm(r)
	if form.HasErrors() {
		api.renderPostForm(w, r, form, true, post.ID.String())
		return
	}

	err := api.DB.UpdatePost(r.Context(), storage.Post{
		ID:      post.ID,
		Text:    form.Text,
		GroupID: form.GroupID,
		Image:   form.Image,
	})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[postEditHandler][%s] UpdatePost() returned error: %v", sID, err)
		return
	}

	http.Redirect(w, r, "/posts/"+post.ID.String()+"/", http.StatusFound)
}

// addCommentHandler appends a comment to a post. A blank comment
// re-renders the detail page with a field error and persists nothing.
func (api *API) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	post, ok := api.lookupPost(w, r)
	if !ok {
		return
	}

	viewer, ok := api.currentUser(r)
	if !ok {
		http.Redirect(w, r, "/auth/login/", http.StatusFound)
		return
	}

	_, err := api.DB.AddComment(r.Context(), storage.Comment{
		PostID:   post.ID,
		AuthorID: viewer.ID,
		Text:     r.FormValue("text"),
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmptyText) {
			api.renderDetail(w, r, post, "Comment text must not be empty.")
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[addCommentHandler][%s] AddComment() returned error: %v", sID, err)
		return
	}

	monitoring.CommentsCreated.Inc()
	http.Redirect(w, r, "/posts/"+post.ID.String()+"/", http.StatusFound)
}

func (api *API) renderPostForm(w http.ResponseWriter, r *http.Request, form postForm, editing bool, postID string) {
	sID := shorten(GetRequestID(r.Context()))

	groups, err := api.DB.Groups(r.Context())
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[renderPostForm][%s] Groups() returned error: %v", sID, err)
		return
	}

	api.render(w, "create_post", postFormData{
		Viewer:  api.viewer(r),
		Form:    form,
		Groups:  groups,
		Editing: editing,
		PostID:  postID,
	})
}

// lookupPost resolves the {id} route variable. A malformed or unknown
// ID answers 404 and reports resolution as failed.
func (api *API) lookupPost(w http.ResponseWriter, r *http.Request) (storage.Post, bool) {
	sID := shorten(GetRequestID(r.Context()))

	id, err := uuid.FromString(mux.Vars(r)["id"])
	if err != nil {
		http.NotFound(w, r)
		return storage.Post{}, false
	}

	post, err := api.DB.Post(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			http.NotFound(w, r)
			return storage.Post{}, false
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[lookupPost][%s] Post() returned error: %v", sID, err)
		return storage.Post{}, false
	}

	return post, true
}
