package wizard

import (
	"github.com/pkg/errors"
)

var (
	ErrStepOutOfRange = errors.New("step out of range")
	ErrWrongStep      = errors.New("payload does not match the current step")
)

// Controller sequences the five wizard steps over an injected draft.
type Controller struct {
	draft *Draft
}

func NewController(d *Draft) *Controller {
	if d == nil {
		d = NewDraft()
	}
	return &Controller{draft: d}
}

func (c *Controller) Draft() *Draft { return c.draft }

func (c *Controller) Step() int { return c.draft.Step }

// Next validates p, merges it into the draft and moves forward. On validation
// failure it returns FieldErrors and the step is unchanged.
func (c *Controller) Next(p StepPayload) error {
	if p.Step() != c.draft.Step {
		return errors.Wrapf(ErrWrongStep, "got step %d, at step %d", p.Step(), c.draft.Step)
	}
	if fe := p.Validate(); len(fe) > 0 {
		return fe
	}

	switch v := p.(type) {
	case ChildStep:
		c.draft.SetChild(v)
	case ParentsStep:
		c.draft.SetParents(v)
	case MedicalStep:
		c.draft.SetMedical(v)
	case DocumentsStep:
		c.draft.SetDocuments(v)
	}

	if c.draft.Step < LastStep {
		c.draft.Step++
	}
	return nil
}

// Previous steps back without validating. Entered data is kept.
func (c *Controller) Previous() {
	if c.draft.Step > FirstStep {
		c.draft.Step--
	}
}

// EditStep jumps straight to step n, typically from the review screen.
func (c *Controller) EditStep(n int) error {
	if n < FirstStep || n > LastStep {
		return errors.Wrapf(ErrStepOutOfRange, "step %d", n)
	}
	c.draft.Step = n
	return nil
}

// ConfirmReview gates the final submit on the attestation.
func (c *Controller) ConfirmReview(r ReviewStep) error {
	if c.draft.Step != LastStep {
		return errors.Wrapf(ErrWrongStep, "review requested at step %d", c.draft.Step)
	}
	if fe := r.Validate(); len(fe) > 0 {
		return fe
	}
	return nil
}
