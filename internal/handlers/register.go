package handlers

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/RayanGhomsi/Prestige/internal/drafts"
	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/services"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

const wizardPath = "/inscription/nouvelle"

var reReference = regexp.MustCompile(`^[A-Z]+-[0-9]{4}-[0-9]{4}$`)

type stepLabel struct {
	N     int
	Label string
}

var wizardSteps = []stepLabel{
	{1, "Enfant"},
	{2, "Parents"},
	{3, "Médical"},
	{4, "Documents"},
	{5, "Récapitulatif"},
}

type docSlot struct {
	Kind     models.DocumentKind
	Label    string
	Required bool
	LimitMB  int64
	Current  *wizard.Attachment
}

func slotsFor(d *wizard.Draft) []docSlot {
	var docs wizard.DocumentsStep
	if d.Documents != nil {
		docs = *d.Documents
	}
	var out []docSlot
	for _, kind := range []models.DocumentKind{
		models.DocBirthCertificate,
		models.DocVaccinationCertificate,
		models.DocProofOfResidence,
		models.DocReportCards,
	} {
		limit := wizard.LimitFor(kind)
		out = append(out, docSlot{
			Kind:     kind,
			Label:    kind.Label(),
			Required: limit == wizard.MaxRequiredDocSize,
			LimitMB:  limit >> 20,
			Current:  docs.Get(kind),
		})
	}
	return out
}

// savedForm is what the current step shows when nothing was just posted.
func savedForm(d *wizard.Draft) any {
	switch d.Step {
	case 1:
		if d.Child != nil {
			return *d.Child
		}
		return wizard.ChildStep{}
	case 2:
		if d.Parents != nil {
			return *d.Parents
		}
		return wizard.ParentsStep{}
	case 3:
		if d.Medical != nil {
			return *d.Medical
		}
		return wizard.MedicalStep{}
	}
	return nil
}

func (h *Handlers) loadDraft(ctx context.Context, id string) (*wizard.Draft, error) {
	if id == "" {
		return wizard.NewDraft(), nil
	}
	d, err := h.Drafts.Load(ctx, id)
	if errors.Is(err, drafts.ErrNotFound) {
		return wizard.NewDraft(), nil
	}
	return d, err
}

func (h *Handlers) renderWizard(w http.ResponseWriter, r *http.Request, view *template.Template, status int, d *wizard.Draft, form any, errs wizard.FieldErrors, flash *Flash) {
	if form == nil {
		form = savedForm(d)
	}
	if errs == nil {
		errs = wizard.FieldErrors{}
	}
	data := map[string]any{
		"Title":  "Nouvelle inscription",
		"Steps":  wizardSteps,
		"Step":   d.Step,
		"Draft":  d,
		"Form":   form,
		"Errors": errs,
		"Slots":  slotsFor(d),
	}
	if flash != nil {
		data["Flash"] = flash
	}
	h.render(w, r, view, "wizard.tmpl", status, data)
}

// GET /inscription/nouvelle
func (h *Handlers) WizardForm() http.HandlerFunc {
	view := h.page("wizard.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		id := ensureDraftID(w, r, h.DraftTTL)
		d, err := h.loadDraft(r.Context(), id)
		if err != nil {
			h.internal(w, r, "load draft failed", err)
			return
		}
		if d.ApplicationID != "" {
			// submitted earlier but the draft could not be dropped then
			if err := h.Drafts.Delete(r.Context(), id); err != nil {
				h.Log.Warn(r.Context(), "stale draft delete failed", "draft_id", id, "err", err)
			}
			clearDraftCookie(w)
			redirect(w, r, "/demandes/"+d.ApplicationID+"?error=already_submitted")
			return
		}
		h.renderWizard(w, r, view, http.StatusOK, d, nil, nil, nil)
	}
}

func (h *Handlers) stepPayload(r *http.Request, n int, d *wizard.Draft) (wizard.StepPayload, error) {
	switch n {
	case 1:
		s := childForm(r)
		photo, err := readAttachment(r, "photo")
		if err != nil {
			return nil, err
		}
		if photo == nil && d.Child != nil {
			photo = d.Child.Photo
		}
		s.Photo = photo
		return s, nil
	case 2:
		return parentsForm(r), nil
	case 3:
		return medicalForm(r), nil
	case 4:
		var s wizard.DocumentsStep
		if d.Documents != nil {
			s = *d.Documents
		}
		for _, slot := range slotsFor(d) {
			a, err := readAttachment(r, string(slot.Kind))
			if err != nil {
				return nil, err
			}
			if a != nil {
				s.Set(slot.Kind, a)
			}
		}
		return s, nil
	}
	return nil, errors.Wrapf(wizard.ErrStepOutOfRange, "step %d", n)
}

// POST /inscription/nouvelle/etape/{n}
func (h *Handlers) WizardStep() http.HandlerFunc {
	view := h.page("wizard.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		n, err := strconv.Atoi(chi.URLParam(r, "n"))
		if err != nil || n < wizard.FirstStep || n >= wizard.LastStep {
			redirect(w, r, wizardPath+"?error=invalid_step")
			return
		}
		id := ensureDraftID(w, r, h.DraftTTL)
		d, err := h.loadDraft(ctx, id)
		if err != nil {
			h.internal(w, r, "load draft failed", err)
			return
		}
		if d.Step != n {
			redirect(w, r, wizardPath+"?error=wrong_step")
			return
		}
		if err := parseForm(w, r); err != nil {
			if tooLarge(err) {
				redirect(w, r, wizardPath+"?error=upload_too_large")
				return
			}
			redirect(w, r, wizardPath+"?error=bad_form")
			return
		}
		payload, err := h.stepPayload(r, n, d)
		if err != nil {
			h.Log.Warn(ctx, "step payload unreadable", "step", n, "err", err)
			redirect(w, r, wizardPath+"?error=bad_form")
			return
		}

		c := wizard.NewController(d)
		if err := c.Next(payload); err != nil {
			var fe wizard.FieldErrors
			if errors.As(err, &fe) {
				h.renderWizard(w, r, view, http.StatusUnprocessableEntity, d, payload, fe, nil)
				return
			}
			redirect(w, r, wizardPath+"?error=wrong_step")
			return
		}
		if err := h.Drafts.Save(ctx, id, c.Draft()); err != nil {
			h.internal(w, r, "save draft failed", err)
			return
		}
		redirect(w, r, wizardPath)
	}
}

// POST /inscription/nouvelle/precedent
func (h *Handlers) WizardPrevious(w http.ResponseWriter, r *http.Request) {
	id := draftIDFrom(r)
	if id == "" {
		redirect(w, r, wizardPath)
		return
	}
	d, err := h.loadDraft(r.Context(), id)
	if err != nil {
		h.internal(w, r, "load draft failed", err)
		return
	}
	c := wizard.NewController(d)
	c.Previous()
	if err := h.Drafts.Save(r.Context(), id, c.Draft()); err != nil {
		h.internal(w, r, "save draft failed", err)
		return
	}
	redirect(w, r, wizardPath)
}

// POST /inscription/nouvelle/modifier/{n}
func (h *Handlers) WizardEditStep(w http.ResponseWriter, r *http.Request) {
	id := draftIDFrom(r)
	if id == "" {
		redirect(w, r, wizardPath)
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		redirect(w, r, wizardPath+"?error=invalid_step")
		return
	}
	d, err := h.loadDraft(r.Context(), id)
	if err != nil {
		h.internal(w, r, "load draft failed", err)
		return
	}
	c := wizard.NewController(d)
	if err := c.EditStep(n); err != nil {
		redirect(w, r, wizardPath+"?error=invalid_step")
		return
	}
	if err := h.Drafts.Save(r.Context(), id, c.Draft()); err != nil {
		h.internal(w, r, "save draft failed", err)
		return
	}
	redirect(w, r, wizardPath)
}

// POST /inscription/nouvelle/soumettre
func (h *Handlers) WizardSubmit() http.HandlerFunc {
	view := h.page("wizard.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := draftIDFrom(r)
		if id == "" {
			redirect(w, r, wizardPath)
			return
		}
		d, err := h.loadDraft(ctx, id)
		if err != nil {
			h.internal(w, r, "load draft failed", err)
			return
		}
		if err := parseForm(w, r); err != nil {
			redirect(w, r, wizardPath+"?error=bad_form")
			return
		}

		c := wizard.NewController(d)
		if err := c.ConfirmReview(wizard.ReviewStep{Attestation: field(r, "attestation") != ""}); err != nil {
			var fe wizard.FieldErrors
			if errors.As(err, &fe) {
				h.renderWizard(w, r, view, http.StatusUnprocessableEntity, d, nil, fe, nil)
				return
			}
			redirect(w, r, wizardPath+"?error=wrong_step")
			return
		}

		rcpt, err := h.Enrollment.Submit(ctx, h.user(r), d)
		if err != nil {
			h.submitFailed(w, r, view, d, err)
			return
		}
		for _, o := range rcpt.Failed() {
			h.Log.Warn(ctx, "document upload failed", "application_id", rcpt.ApplicationID, "slot", o.Slot, "err", o.Err)
		}

		// Submit stamped d with the application id; keep it if the delete fails so a retry is refused.
		if err := h.Drafts.Delete(ctx, id); err != nil {
			h.Log.Warn(ctx, "draft delete after submit failed", "draft_id", id, "err", err)
			if err := h.Drafts.Save(ctx, id, d); err != nil {
				h.Log.Err(ctx, "draft stamp after submit failed", "draft_id", id, "err", err)
			}
		}
		clearDraftCookie(w)

		q := url.Values{}
		q.Set("numero", rcpt.Reference)
		q.Set("id", rcpt.ApplicationID)
		var failed []string
		for _, o := range rcpt.Failed() {
			failed = append(failed, o.Slot)
		}
		if len(failed) > 0 {
			q.Set("echecs", strings.Join(failed, ","))
		}
		redirect(w, r, "/inscription/confirmation?"+q.Encode())
	}
}

func (h *Handlers) submitFailed(w http.ResponseWriter, r *http.Request, view *template.Template, d *wizard.Draft, err error) {
	ctx := r.Context()
	var se *services.StageError
	switch {
	case errors.Is(err, services.ErrAlreadySubmitted):
		redirect(w, r, "/demandes?error=already_submitted")
	case errors.Is(err, services.ErrIncompleteDraft):
		h.renderWizard(w, r, view, http.StatusUnprocessableEntity, d, nil, wizard.ValidateDraft(d),
			&Flash{Kind: "error", Text: "Le dossier est incomplet. Vérifiez chaque étape avant de soumettre."})
	case errors.Is(err, services.ErrProfileResolution):
		h.Log.Err(ctx, "submit failed", "stage", "profile", "err", err)
		h.renderWizard(w, r, view, http.StatusInternalServerError, d, nil, nil,
			&Flash{Kind: "error", Text: "Votre profil parent n'a pas pu être chargé. Veuillez réessayer."})
	case errors.As(err, &se):
		h.Log.Err(ctx, "submit failed", "stage", string(se.Stage), "err", se.Err)
		h.renderWizard(w, r, view, http.StatusInternalServerError, d, nil, nil,
			&Flash{Kind: "error", Text: fmt.Sprintf("Échec de l'enregistrement (%s). Aucune donnée n'a été conservée, veuillez réessayer.", se.Stage.Label())})
	default:
		h.Log.Err(ctx, "submit failed", "err", err)
		h.renderWizard(w, r, view, http.StatusInternalServerError, d, nil, nil,
			&Flash{Kind: "error", Text: "Une erreur est survenue lors de la soumission. Veuillez réessayer."})
	}
}

// GET /inscription/confirmation?numero=...&id=...&echecs=...
func (h *Handlers) Confirmation() http.HandlerFunc {
	view := h.page("confirmation.tmpl")
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ref := q.Get("numero")
		if !reReference.MatchString(ref) {
			redirect(w, r, "/dashboard")
			return
		}
		var failed []string
		for _, slot := range strings.Split(q.Get("echecs"), ",") {
			if slot = strings.TrimSpace(slot); slot != "" {
				failed = append(failed, services.UploadOutcome{Slot: slot}.Label())
			}
		}
		h.render(w, r, view, "confirmation.tmpl", http.StatusOK, map[string]any{
			"Title":     "Demande envoyée",
			"Reference": ref,
			"ID":        q.Get("id"),
			"Failed":    failed,
		})
	}
}
