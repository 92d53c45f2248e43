package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/RayanGhomsi/Prestige/internal/services"
)

// GET /inscription/confirmation/{ref}.png
func (h *Handlers) ConfirmationQR(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimSuffix(chi.URLParam(r, "ref"), ".png")
	if !reReference.MatchString(ref) {
		http.NotFound(w, r)
		return
	}
	s, err := h.Enrollment.FindByReference(r.Context(), h.user(r), ref)
	if errors.Is(err, services.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.Log.Err(r.Context(), "qr lookup failed", "reference", ref, "err", err)
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}

	// Scanning opens the application detail page.
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	url := scheme + "://" + r.Host + "/demandes/" + s.ID

	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
