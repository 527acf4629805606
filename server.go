package microblog

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ironstar-io/chizerolog"
	"github.com/rs/zerolog"
)

const (
	sessionKey         = "account_id"
	sessionUsernameKey = "username"
	flashKey           = "flash"
)

// Server

type Server struct {
	handler *Handler
	port    int
}

func NewServer(cfg *Config, handler *Handler) (*Server, error) {
	return &Server{
		handler: handler,
		port:    cfg.Port,
	}, nil
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	return http.ListenAndServe(addr, s.handler)
}

// handler

type Handler struct {
	log       *zerolog.Logger
	sess      Session
	processor *Processor
	router    chi.Router
}

func NewHandler(log *zerolog.Logger, sess Session, processor *Processor) *Handler {
	h := &Handler{
		log:       log,
		sess:      sess,
		processor: processor,
	}

	router := chi.NewRouter()
	router.Use(sess.Middleware, chizerolog.LoggerMiddleware(log), h.recoverer, h.touchLastSeen)
	router.Get("/", h.requireLogin(h.handleIndexGet))
	router.Post("/", h.requireLogin(h.handleIndexPost))
	router.Get("/login", h.handleLoginGet)
	router.Post("/login", h.handleLoginPost)
	router.Post("/logout", h.handleLogoutPost)
	router.Get("/signup", h.handleSignupGet)
	router.Post("/signup", h.handleSignupPost)
	router.Get("/profile/edit", h.requireLogin(h.handleEditProfileGet))
	router.Post("/profile/edit", h.requireLogin(h.handleEditProfilePost))
	router.Get("/@{username}", h.handleUserGet)
	router.Post("/@{username}/follow", h.requireLogin(h.handleUserFollowPost))
	router.Post("/@{username}/unfollow", h.requireLogin(h.handleUserUnfollowPost))
	router.NotFound(h.handleNotFound)

	h.router = router
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// middleware

// recoverer turns a handler panic into a logged fault and the generic
// failure page instead of a dropped connection.
func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("panic while handling request")
				h.render(w, r, http.StatusInternalServerError, "500", map[string]any{})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) touchLastSeen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := h.currentAccountID(r); id != "" {
			if err := h.processor.Touch(r.Context(), id); err != nil {
				h.log.Warn().Err(err).Msg("failed to update last seen")
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.currentAccountID(r) == "" {
			http.Redirect(w, r, "/login?next="+r.URL.Path, http.StatusFound)
			return
		}
		next(w, r)
	}
}

func (h *Handler) currentAccountID(r *http.Request) string {
	id, _ := h.sess.Get(r.Context(), sessionKey).(string)
	return id
}

func (h *Handler) currentUsername(r *http.Request) string {
	name, _ := h.sess.Get(r.Context(), sessionUsernameKey).(string)
	return name
}

// GET /
func (h *Handler) handleIndexGet(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	timeline, err := h.processor.Feed(c, h.currentAccountID(r), pageParam(r))
	if err != nil {
		h.catchError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "index", map[string]any{
		"Title":    "Home",
		"Timeline": timeline,
	})
}

// POST /
func (h *Handler) handleIndexPost(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	_, err := h.processor.CreatePost(c, h.currentAccountID(r), r.FormValue("post"))
	switch {
	case errors.Is(err, ErrEmptyPost), errors.Is(err, ErrPostTooLong):
		h.flash(r, err.Error())
	case err != nil:
		h.catchError(w, r, err)
		return
	default:
		h.flash(r, "Your post is now live!")
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// GET /login
func (h *Handler) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	if h.currentAccountID(r) != "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.render(w, r, http.StatusOK, "login", map[string]any{
		"Title":    "Sign In",
		"Username": "",
	})
}

// POST /login
func (h *Handler) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	username := r.FormValue("username")
	id, err := h.processor.Login(c, username, r.FormValue("password"))
	if err != nil {
		if errors.Is(err, ErrInvalidLogin) {
			h.flash(r, "Invalid username or password")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h.catchError(w, r, err)
		return
	}

	h.sess.Set(c, sessionKey, id)
	h.sess.Set(c, sessionUsernameKey, username)
	http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusFound)
}

// safeNext only honors relative redirect targets so a crafted login link
// cannot bounce the user to another site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}
	return next
}

// POST /logout
func (h *Handler) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	h.sess.Clear(r.Context())
	http.Redirect(w, r, "/", http.StatusFound)
}

// GET /signup
func (h *Handler) handleSignupGet(w http.ResponseWriter, r *http.Request) {
	if h.currentAccountID(r) != "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h.render(w, r, http.StatusOK, "signup", map[string]any{
		"Title":    "Register",
		"Username": "",
		"Email":    "",
		"Errors":   map[string]string{},
	})
}

// POST /signup
func (h *Handler) handleSignupPost(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	email := r.FormValue("email")
	username := r.FormValue("username")
	password := r.FormValue("password")

	fieldErrs := map[string]string{}
	if password != r.FormValue("password2") {
		fieldErrs["password2"] = "Passwords do not match"
	}

	if len(fieldErrs) == 0 {
		_, err := h.processor.Signup(c, email, username, password)
		switch {
		case errors.Is(err, ErrUsernameTaken):
			fieldErrs["username"] = "Please use a different username"
		case errors.Is(err, ErrEmailTaken):
			fieldErrs["email"] = "Please use a different email address"
		case errors.Is(err, ErrInvalidEmail):
			fieldErrs["email"] = "Please enter a valid email address"
		case errors.Is(err, ErrInvalidSignup):
			fieldErrs["password"] = "All fields are required"
		case err != nil:
			h.catchError(w, r, err)
			return
		}
	}

	if len(fieldErrs) > 0 {
		h.render(w, r, http.StatusOK, "signup", map[string]any{
			"Title":    "Register",
			"Username": username,
			"Email":    email,
			"Errors":   fieldErrs,
		})
		return
	}

	h.flash(r, "Congratulations, you are now a registered user!")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// GET /profile/edit
func (h *Handler) handleEditProfileGet(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	account, err := h.processor.GetAccount(c, h.currentAccountID(r))
	if err != nil {
		h.catchError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "edit", map[string]any{
		"Title": "Edit Profile",
		"Bio":   account.Bio,
	})
}

// POST /profile/edit
func (h *Handler) handleEditProfilePost(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	err := h.processor.UpdateBio(c, h.currentAccountID(r), r.FormValue("bio"))
	switch {
	case errors.Is(err, ErrBioTooLong):
		h.flash(r, err.Error())
		http.Redirect(w, r, "/profile/edit", http.StatusFound)
		return
	case err != nil:
		h.catchError(w, r, err)
		return
	}

	h.flash(r, "Your changes have been saved.")
	http.Redirect(w, r, "/@"+h.currentUsername(r), http.StatusFound)
}

// GET /@{username}
func (h *Handler) handleUserGet(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	username := chi.URLParam(r, "username")
	view, err := h.processor.Profile(c, h.currentAccountID(r), username, pageParam(r))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.handleNotFound(w, r)
			return
		}
		h.catchError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "profile", map[string]any{
		"Title":    view.Account.Username,
		"Profile":  view,
		"Timeline": view.Timeline,
	})
}

// POST /@{username}/follow
func (h *Handler) handleUserFollowPost(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	username := chi.URLParam(r, "username")
	err := h.processor.Follow(c, h.currentAccountID(r), username)
	switch {
	case errors.Is(err, ErrNotFound):
		h.flash(r, fmt.Sprintf("User %s not found.", username))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	case errors.Is(err, ErrSelfFollow):
		h.flash(r, "You cannot follow yourself!")
	case err != nil:
		h.catchError(w, r, err)
		return
	default:
		h.flash(r, fmt.Sprintf("You are now following %s!", username))
	}

	http.Redirect(w, r, "/@"+username, http.StatusFound)
}

// POST /@{username}/unfollow
func (h *Handler) handleUserUnfollowPost(w http.ResponseWriter, r *http.Request) {
	c := r.Context()
	username := chi.URLParam(r, "username")
	err := h.processor.Unfollow(c, h.currentAccountID(r), username)
	switch {
	case errors.Is(err, ErrNotFound):
		h.flash(r, fmt.Sprintf("User %s not found.", username))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	case errors.Is(err, ErrSelfFollow):
		h.flash(r, "You cannot unfollow yourself!")
	case err != nil:
		h.catchError(w, r, err)
		return
	default:
		h.flash(r, fmt.Sprintf("You are no longer following %s.", username))
	}

	http.Redirect(w, r, "/@"+username, http.StatusFound)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "404", map[string]any{
		"Title": "Not Found",
	})
}

// helpers

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func (h *Handler) flash(r *http.Request, message string) {
	h.sess.Set(r.Context(), flashKey, message)
}

// render executes the named page into a buffer first so a template fault
// still produces a well-formed error response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data map[string]any) {
	tmpl, ok := pageTemplates[page]
	if !ok {
		h.log.Error().Str("page", page).Msg("unknown template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if _, ok := data["CurrentUsername"]; !ok {
		data["CurrentUsername"] = h.currentUsername(r)
	}
	if _, ok := data["Flash"]; !ok {
		flash, _ := h.sess.Pop(r.Context(), flashKey).(string)
		data["Flash"] = flash
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.log.Error().Err(err).Str("page", page).Msg("failed to render template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func (h *Handler) catchError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error().Err(err).Str("path", r.URL.Path).Send()
	h.render(w, r, http.StatusInternalServerError, "500", map[string]any{})
}
