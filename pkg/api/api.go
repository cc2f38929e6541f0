// Package api is the HTTP-facing layer: routing, handlers, form
// validation and template rendering. Persistence is behind
// storage.Storage, the index cache behind cache.Cache, sessions behind
// scs; the package wires them together but owns none of them.
package api

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/alexedwards/scs/v2"
	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"yatube/pkg/cache"
	"yatube/pkg/monitoring"
	"yatube/pkg/storage"
)

const sessionUserKey = "userID"

type API struct {
	ServiceName string
	DB          storage.Storage
	Router      *mux.Router
	Sessions    *scs.SessionManager
	Cache       cache.Cache
	MediaRoot   string
	StaticRoot  string

	templates *template.Template
	kw        *kafka.Writer
}

type Config struct {
	ServiceName string
	DB          storage.Storage
	Sessions    *scs.SessionManager
	Cache       cache.Cache
	TemplateDir string
	MediaRoot   string
	StaticRoot  string
	KafkaWriter *kafka.Writer
}

func New(conf Config) (*API, error) {
	tpl, err := template.ParseGlob(filepath.Join(conf.TemplateDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("unable to parse templates: %w", err)
	}

	api := API{
		ServiceName: conf.ServiceName,
		DB:          conf.DB,
		Router:      mux.NewRouter(),
		Sessions:    conf.Sessions,
		Cache:       conf.Cache,
		MediaRoot:   conf.MediaRoot,
		StaticRoot:  conf.StaticRoot,
		templates:   tpl,
		kw:          conf.KafkaWriter,
	}
	api.endpoints()

	return &api, nil
}

// Handler wraps the router with session management. This is what the
// server actually serves.
func (api *API) Handler() http.Handler {
	return api.Sessions.LoadAndSave(api.Router)
}

func (api *API) endpoints() {
	api.Router.StrictSlash(true)
	api.Router.Use(api.requestIDMiddleware)
	api.Router.Use(monitoring.InstrumentHandler)

	if api.kw != nil {
		api.Router.Use(api.loggingMiddleware(api.kw))
	}

	api.Router.HandleFunc("/", api.indexHandler).Methods(http.MethodGet)
	api.Router.HandleFunc("/group/{slug}/", api.groupPostsHandler).Methods(http.MethodGet)
	api.Router.HandleFunc("/profile/{username}/", api.profileHandler).Methods(http.MethodGet)
	api.Router.HandleFunc("/profile/{username}/follow/", api.requireLogin(api.profileFollowHandler)).Methods(http.MethodGet)
	api.Router.HandleFunc("/profile/{username}/unfollow/", api.requireLogin(api.profileUnfollowHandler)).Methods(http.MethodGet)
	api.Router.HandleFunc("/posts/{id}/", api.postDetailHandler).Methods(http.MethodGet)
	api.Router.HandleFunc("/posts/{id}/edit/", api.requireLogin(api.postEditHandler)).Methods(http.MethodGet, http.MethodPost)
	api.Router.HandleFunc("/posts/{id}/comment/", api.requireLogin(api.addCommentHandler)).Methods(http.MethodPost)
	api.Router.HandleFunc("/create/", api.requireLogin(api.postCreateHandler)).Methods(http.MethodGet, http.MethodPost)
	api.Router.HandleFunc("/follow/", api.requireLogin(api.followIndexHandler)).Methods(http.MethodGet)

	api.Router.HandleFunc("/auth/signup/", api.signupHandler).Methods(http.MethodGet, http.MethodPost)
	api.Router.HandleFunc("/auth/login/", api.loginHandler).Methods(http.MethodGet, http.MethodPost)
	api.Router.HandleFunc("/auth/logout/", api.logoutHandler).Methods(http.MethodGet)

	api.Router.HandleFunc("/internal/cache/clear", api.cacheClearHandler).Methods(http.MethodPost)
	api.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api.Router.PathPrefix("/media/").Handler(
		http.StripPrefix("/media/", http.FileServer(http.Dir(api.MediaRoot))))
	if api.StaticRoot != "" {
		api.Router.PathPrefix("/static/").Handler(
			http.StripPrefix("/static/", http.FileServer(http.Dir(api.StaticRoot))))
	}
}

// render executes a page template into a buffer first so a template
// error never produces a half-written response.
func (api *API) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := api.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Errorf("[render] template %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// renderFragment executes a named template to bytes, for the cached
// index fragment.
func (api *API) renderFragment(name string, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// currentUser resolves the logged-in user from the session, if any.
func (api *API) currentUser(r *http.Request) (storage.User, bool) {
	idStr := api.Sessions.GetString(r.Context(), sessionUserKey)
	if idStr == "" {
		return storage.User{}, false
	}

	id, err := uuid.FromString(idStr)
	if err != nil {
		return storage.User{}, false
	}

	user, err := api.DB.UserByID(r.Context(), id)
	if err != nil {
		return storage.User{}, false
	}

	return user, true
}

func (api *API) viewer(r *http.Request) *storage.User {
	user, ok := api.currentUser(r)
	if !ok {
		return nil
	}
	return &user
}

func (api *API) cacheClearHandler(w http.ResponseWriter, r *http.Request) {
	api.Cache.Clear()
	w.WriteHeader(http.StatusNoContent)
}
