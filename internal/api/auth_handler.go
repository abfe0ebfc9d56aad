package api

import (
	"html/template"
	"net/http"

	"github.com/gorilla/sessions"

	"pgdash/internal/service"
)

const sessionName = "pgdash-session"

type AuthHandler struct {
	authSvc   *service.AuthService
	store     *sessions.CookieStore
	templates *template.Template
}

func NewAuthHandler(authSvc *service.AuthService, sessionKey string, templates *template.Template) *AuthHandler {
	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   false, // Set to true if HTTPS
	}

	return &AuthHandler{
		authSvc:   authSvc,
		store:     store,
		templates: templates,
	}
}

// Store exposes the session store so other handlers can resolve the
// requesting user.
func (h *AuthHandler) Store() *sessions.CookieStore {
	return h.store
}

func (h *AuthHandler) SetupPage(w http.ResponseWriter, r *http.Request) {
	hasUsers, _ := h.authSvc.HasUsers()
	if hasUsers {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.render(w, "setup", nil)
}

func (h *AuthHandler) DoSetup(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	err := h.authSvc.SetupAdmin(username, password)
	if err != nil {
		h.render(w, "setup", map[string]interface{}{"Error": err.Error()})
		return
	}

	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	hasUsers, _ := h.authSvc.HasUsers()
	if !hasUsers {
		http.Redirect(w, r, "/setup", http.StatusFound)
		return
	}
	h.render(w, "login", nil)
}

func (h *AuthHandler) DoLogin(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.authSvc.Authenticate(username, password)
	if err != nil {
		h.render(w, "login", map[string]interface{}{"Error": "Invalid username or password"})
		return
	}

	session, _ := h.store.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Save(r, w)

	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.store.Get(r, sessionName)
	session.Options.MaxAge = -1
	session.Save(r, w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *AuthHandler) render(w http.ResponseWriter, tmplName string, data interface{}) {
	w.Header().Set("Cache-Control", "private")
	if err := h.templates.ExecuteTemplate(w, tmplName, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
