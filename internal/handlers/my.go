package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/services"
)

const recentOnDashboard = 5

// GET /dashboard
func (h *Handlers) Dashboard() http.HandlerFunc {
	view := h.page("dashboard.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		u := h.user(r)

		profile, err := h.Enrollment.Profile(ctx, u)
		if err != nil {
			// the page still works without a greeting
			h.Log.Warn(ctx, "profile load failed", "user_id", u.ID, "err", err)
		}
		stats, err := h.Enrollment.Stats(ctx, u)
		if err != nil {
			h.internal(w, r, "stats failed", err)
			return
		}
		list, err := h.Enrollment.List(ctx, u)
		if err != nil {
			h.internal(w, r, "list applications failed", err)
			return
		}
		if len(list) > recentOnDashboard {
			list = list[:recentOnDashboard]
		}

		draftStep := 0
		if id := draftIDFrom(r); id != "" {
			if d, err := h.Drafts.Load(ctx, id); err == nil && d.ApplicationID == "" && d.Child != nil {
				draftStep = d.Step
			}
		}

		h.render(w, r, view, "dashboard.tmpl", http.StatusOK, map[string]any{
			"Title":     "Tableau de bord",
			"Profile":   profile,
			"Stats":     stats,
			"Statuses":  models.AllStatuses,
			"DraftStep": draftStep,
			"Recent":    list,
		})
	}
}

// GET /demandes
func (h *Handlers) ApplicationsList() http.HandlerFunc {
	view := h.page("applications.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.Enrollment.List(r.Context(), h.user(r))
		if err != nil {
			h.internal(w, r, "list applications failed", err)
			return
		}
		h.render(w, r, view, "applications.tmpl", http.StatusOK, map[string]any{
			"Title":        "Mes demandes",
			"Applications": list,
		})
	}
}

// GET /demandes/{id}
func (h *Handlers) ApplicationDetail() http.HandlerFunc {
	view := h.page("application.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := h.Enrollment.Get(r.Context(), h.user(r), chi.URLParam(r, "id"))
		if errors.Is(err, services.ErrNotFound) {
			h.notFound(w, r)
			return
		}
		if err != nil {
			h.internal(w, r, "load application failed", err)
			return
		}
		h.render(w, r, view, "application.tmpl", http.StatusOK, map[string]any{
			"Title": "Demande " + d.Reference,
			"App":   d,
		})
	}
}
