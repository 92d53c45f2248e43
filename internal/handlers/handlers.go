package handlers

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/RayanGhomsi/Prestige/internal/drafts"
	"github.com/RayanGhomsi/Prestige/internal/events"
	"github.com/RayanGhomsi/Prestige/internal/identity"
	"github.com/RayanGhomsi/Prestige/internal/logging"
	"github.com/RayanGhomsi/Prestige/internal/services"
	"github.com/RayanGhomsi/Prestige/templates"
)

// Handlers holds what every page needs. Tmpl carries the layouts and partials;
// each page clones it and adds its own file.
type Handlers struct {
	Tmpl       *template.Template
	Enrollment *services.Enrollment
	Drafts     drafts.Store
	Verifier   *identity.Verifier
	Bus        *events.Bus
	Log        *logging.Logger

	LoginURL   string // identity provider sign-in page
	SignupURL  string
	SessionTTL time.Duration
	DraftTTL   time.Duration // lifetime of the draft cookie

	errView  *template.Template
	editView *template.Template
}

func New(h Handlers) *Handlers {
	if h.Log == nil {
		h.Log = logging.Nop()
	}
	if h.SessionTTL == 0 {
		h.SessionTTL = 24 * time.Hour
	}
	if h.DraftTTL == 0 {
		h.DraftTTL = 7 * 24 * time.Hour
	}
	h.errView = h.page("error.tmpl")
	h.editView = h.page("edit.tmpl")
	return &h
}

func (h *Handlers) page(name string) *template.Template {
	view := template.Must(h.Tmpl.Clone())
	return template.Must(view.ParseFS(templates.FS, "pages/"+name))
}

// render executes into a buffer first so a template error never leaves a half-written page.
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, view *template.Template, name string, status int, data map[string]any) {
	if _, ok := data["User"]; !ok {
		if u, ok := identity.FromContext(r.Context()); ok {
			data["User"] = u
		}
	}
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = MakeFlash(r, "", "")
	}
	var buf bytes.Buffer
	if err := view.ExecuteTemplate(&buf, name, data); err != nil {
		h.Log.Err(r.Context(), "template render failed", "template", name, "err", err)
		http.Error(w, "Erreur interne", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, status int, title, msg string) {
	h.render(w, r, h.errView, "error.tmpl", status, map[string]any{
		"Title":   title,
		"Message": msg,
		"Flash":   (*Flash)(nil),
	})
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, http.StatusNotFound, "Introuvable", "Cette demande n'existe pas ou ne vous appartient pas.")
}

func (h *Handlers) internal(w http.ResponseWriter, r *http.Request, what string, err error) {
	h.Log.Err(r.Context(), what, "err", err)
	h.fail(w, r, http.StatusInternalServerError, "Erreur", "Une erreur est survenue. Veuillez réessayer plus tard.")
}

func (h *Handlers) user(r *http.Request) identity.User {
	u, _ := identity.FromContext(r.Context())
	return u
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}
