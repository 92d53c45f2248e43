package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// The wizard draft is keyed by a random id kept in its own cookie, apart from the session.
const draftCookie = "draft_id"

func draftIDFrom(r *http.Request) string {
	c, err := r.Cookie(draftCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

func ensureDraftID(w http.ResponseWriter, r *http.Request, ttl time.Duration) string {
	if id := draftIDFrom(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     draftCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
	})
	return id
}

func clearDraftCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    draftCookie,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	})
}
