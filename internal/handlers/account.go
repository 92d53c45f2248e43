package handlers

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/RayanGhomsi/Prestige/internal/services"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

// GET /profil
func (h *Handlers) ProfileForm() http.HandlerFunc {
	view := h.page("profile.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		u := h.user(r)
		p, err := h.Enrollment.Profile(r.Context(), u)
		if err != nil {
			h.internal(w, r, "profile load failed", err)
			return
		}
		h.render(w, r, view, "profile.tmpl", http.StatusOK, map[string]any{
			"Title":  "Mon profil",
			"Form":   services.ProfileForm{Nom: p.Nom, Prenom: p.Prenom, Telephone: p.Telephone},
			"Errors": wizard.FieldErrors{},
			"Email":  p.Email,
		})
	}
}

// POST /profil
func (h *Handlers) ProfileSubmit() http.HandlerFunc {
	view := h.page("profile.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseForm(w, r); err != nil {
			redirect(w, r, "/profil?error=bad_form")
			return
		}
		u := h.user(r)
		f := services.ProfileForm{
			Nom:       field(r, "nom"),
			Prenom:    field(r, "prenom"),
			Telephone: field(r, "telephone"),
		}
		_, err := h.Enrollment.UpdateProfile(r.Context(), u, f)
		var fe wizard.FieldErrors
		if errors.As(err, &fe) {
			h.render(w, r, view, "profile.tmpl", http.StatusUnprocessableEntity, map[string]any{
				"Title":  "Mon profil",
				"Form":   f,
				"Errors": fe,
				"Email":  u.Email,
			})
			return
		}
		if err != nil {
			h.internal(w, r, "profile update failed", err)
			return
		}
		redirect(w, r, "/profil?ok=profile_saved")
	}
}
