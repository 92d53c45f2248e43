package handlers

import (
	"net/http"
	"strings"
)

type Flash struct {
	Kind string // "ok" or "error"
	Text string
}

var okText = map[string]string{
	"saved":          "Modifications enregistrées.",
	"profile_saved":  "Profil mis à jour.",
	"doc_deleted":    "Document supprimé.",
	"signed_out":     "Vous êtes déconnecté.",
	"draft_restored": "Votre inscription en cours a été restaurée.",
}

var errText = map[string]string{
	"wrong_step":        "Cette étape n'est pas l'étape en cours.",
	"invalid_step":      "Étape invalide.",
	"upload_too_large":  "Les fichiers envoyés sont trop volumineux.",
	"bad_form":          "Formulaire illisible. Veuillez réessayer.",
	"not_editable":      "Cette demande ne peut plus être modifiée.",
	"invalid_token":     "Session invalide ou expirée. Veuillez vous reconnecter.",
	"already_submitted": "Cette inscription a déjà été soumise.",
	"upload_failed":     "Le document n'a pas pu être enregistré. Veuillez réessayer.",
}

// MakeFlash reads ?ok= / ?error= and falls back to handler-provided messages.
// Unknown keys are ignored so the query string cannot inject text.
func MakeFlash(r *http.Request, errStr, msgStr string) *Flash {
	q := r.URL.Query()
	if key := strings.ToLower(strings.TrimSpace(q.Get("error"))); key != "" {
		if t, ok := errText[key]; ok {
			return &Flash{Kind: "error", Text: t}
		}
	}
	if key := strings.ToLower(strings.TrimSpace(q.Get("ok"))); key != "" {
		if t, ok := okText[key]; ok {
			return &Flash{Kind: "ok", Text: t}
		}
	}
	if errStr != "" {
		return &Flash{Kind: "error", Text: errStr}
	}
	if msgStr != "" {
		return &Flash{Kind: "ok", Text: msgStr}
	}
	return nil
}
