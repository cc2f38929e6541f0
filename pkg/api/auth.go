package api

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"yatube/pkg/monitoring"
	"yatube/pkg/storage"
)

func (api *API) signupHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	if r.Method == http.MethodGet {
		api.render(w, "signup", authData{Viewer: api.viewer(r), Errors: map[string]string{}})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	data := authData{
		Viewer:   api.viewer(r),
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Errors:   make(map[string]string),
	}
	password := r.FormValue("password")

	if data.Username == "" {
		data.Errors["username"] = "Username must not be empty."
	}
	if password == "" {
		data.Errors["password"] = "Password must not be empty."
	}
	if len(data.Errors) > 0 {
		api.render(w, "signup", data)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[signupHandler][%s] failed to hash password: %v", sID, err)
		return
	}

	id, err := api.DB.AddUser(r.Context(), storage.User{
		Username: data.Username,
		Email:    data.Email,
		PassHash: hash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			data.Errors["username"] = "This username is already taken."
			api.render(w, "signup", data)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[signupHandler][%s] AddUser() returned error: %v", sID, err)
		return
	}

	if err := api.Sessions.RenewToken(r.Context()); err != nil {
		log.Errorf("[signupHandler][%s] failed to renew session token: %v", sID, err)
	}
	api.Sessions.Put(r.Context(), sessionUserKey, id.String())

	http.Redirect(w, r, "/", http.StatusFound)
}

func (api *API) loginHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	if r.Method == http.MethodGet {
		api.render(w, "login", authData{
			Viewer: api.viewer(r),
			Next:   r.URL.Query().Get("next"),
			Errors: map[string]string{},
		})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	data := authData{
		Viewer:   api.viewer(r),
		Username: strings.TrimSpace(r.FormValue("username")),
		Next:     r.FormValue("next"),
		Errors:   make(map[string]string),
	}

	user, err := api.DB.UserByName(r.Context(), data.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			monitoring.LoginFailure.WithLabelValues("unknown_user").Inc()
			data.Errors["login"] = "Wrong username or password."
			api.render(w, "login", data)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[loginHandler][%s] UserByName() returned error: %v", sID, err)
		return
	}

	if bcrypt.CompareHashAndPassword(user.PassHash, []byte(r.FormValue("password"))) != nil {
		monitoring.LoginFailure.WithLabelValues("bad_password").Inc()
		data.Errors["login"] = "Wrong username or password."
		api.render(w, "login", data)
		return
	}

	if err := api.Sessions.RenewToken(r.Context()); err != nil {
		log.Errorf("[loginHandler][%s] failed to renew session token: %v", sID, err)
	}
	api.Sessions.Put(r.Context(), sessionUserKey, user.ID.String())
	monitoring.LoginSuccess.Inc()

	http.Redirect(w, r, safeNext(data.Next), http.StatusFound)
}

func (api *API) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := api.Sessions.Destroy(r.Context()); err != nil {
		log.Errorf("[logoutHandler] failed to destroy session: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// safeNext keeps the post-login redirect on this site: only local
// paths are honored, anything else falls back to the index.
func safeNext(next string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	return "/"
}
