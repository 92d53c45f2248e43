package handlers

import "net/http"

// GET /
func (h *Handlers) Home() http.HandlerFunc {
	view := h.page("home.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, view, "home.tmpl", http.StatusOK, map[string]any{"Title": "Accueil"})
	}
}

// GET /healthz
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
