package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/RayanGhomsi/Prestige/internal/events"
	"github.com/RayanGhomsi/Prestige/internal/identity"
)

// safeNext only allows local absolute paths as post-login targets.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard"
	}
	return next
}

func callbackURL(r *http.Request, next string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	q := url.Values{}
	q.Set("next", safeNext(next))
	return scheme + "://" + r.Host + "/auth/callback?" + q.Encode()
}

func providerURL(base string, r *http.Request) string {
	if base == "" {
		return ""
	}
	u, err := url.Parse(base)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("redirect_to", callbackURL(r, r.URL.Query().Get("next")))
	u.RawQuery = q.Encode()
	return u.String()
}

// GET /login
func (h *Handlers) LoginPage() http.HandlerFunc {
	view := h.page("login.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, view, "login.tmpl", http.StatusOK, map[string]any{
			"Title":       "Connexion",
			"Signup":      false,
			"ProviderURL": providerURL(h.LoginURL, r),
		})
	}
}

// GET /signup
func (h *Handlers) SignupPage() http.HandlerFunc {
	view := h.page("login.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, view, "login.tmpl", http.StatusOK, map[string]any{
			"Title":       "Créer un compte",
			"Signup":      true,
			"ProviderURL": providerURL(h.SignupURL, r),
		})
	}
}

// GET /auth/callback?token=...&next=...
// The identity provider sends the browser back here with a signed access token.
func (h *Handlers) AuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tok := q.Get("token")
	if tok == "" {
		tok = q.Get("access_token")
	}
	u, err := h.Verifier.Verify(tok)
	if err != nil {
		h.Log.Warn(r.Context(), "sign-in rejected", "err", err)
		redirect(w, r, "/login?error=invalid_token")
		return
	}
	identity.SetSessionCookie(w, tok, h.SessionTTL)
	h.Bus.Publish(r.Context(), events.SessionEvent{Kind: events.SignedIn, User: u, DraftID: draftIDFrom(r)})
	h.Log.Info(r.Context(), "parent signed in", "user_id", u.ID)
	redirect(w, r, safeNext(q.Get("next")))
}

// POST /logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	u, ok := identity.FromContext(r.Context())
	identity.ClearSessionCookie(w)
	if ok {
		h.Bus.Publish(r.Context(), events.SessionEvent{Kind: events.SignedOut, User: u, DraftID: draftIDFrom(r)})
	}
	clearDraftCookie(w)
	redirect(w, r, "/?ok=signed_out")
}

// DiscardDraftOnSignOut drops the browser's wizard draft when its owner signs out,
// so the next person on a shared machine starts clean.
func (h *Handlers) DiscardDraftOnSignOut() events.Handler {
	return func(ctx context.Context, ev events.SessionEvent) {
		if ev.Kind != events.SignedOut || ev.DraftID == "" {
			return
		}
		if err := h.Drafts.Delete(ctx, ev.DraftID); err != nil {
			h.Log.Warn(ctx, "draft discard failed", "draft_id", ev.DraftID, "err", err)
		}
	}
}
