package wizard

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const (
	FirstStep = 1
	LastStep  = 5
)

// Attachment is a file held in the draft until submission. Data is base64 in JSON.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"data"`
}

// Draft is the not-yet-submitted state of one enrollment wizard.
type Draft struct {
	Step          int            `json:"etape_actuelle"`
	Child         *ChildStep     `json:"etape1,omitempty"`
	Parents       *ParentsStep   `json:"etape2,omitempty"`
	Medical       *MedicalStep   `json:"etape3,omitempty"`
	Documents     *DocumentsStep `json:"etape4,omitempty"`
	ApplicationID string         `json:"demande_id,omitempty"`
	LastAutosave  *time.Time     `json:"derniere_sauvegarde,omitempty"`
}

func NewDraft() *Draft {
	return &Draft{Step: FirstStep}
}

func (d *Draft) SetChild(s ChildStep) {
	d.Child = &s
}

func (d *Draft) SetParents(s ParentsStep) {
	d.Parents = &s
}

func (d *Draft) SetMedical(s MedicalStep) {
	d.Medical = &s
}

func (d *Draft) SetDocuments(s DocumentsStep) {
	d.Documents = &s
}

func (d *Draft) SetApplicationID(id string) {
	d.ApplicationID = id
}

// Touch records an autosave tick.
func (d *Draft) Touch(now time.Time) {
	d.LastAutosave = &now
}

// Complete reports whether all four data steps have been filled in.
func (d *Draft) Complete() bool {
	return d.Child != nil && d.Parents != nil && d.Medical != nil && d.Documents != nil
}

func (d *Draft) Marshal() ([]byte, error) {
	b, err := json.Marshal(d)
	return b, errors.Wrap(err, "marshal draft")
}

// UnmarshalDraft restores a draft written by Marshal. A missing step defaults to 1.
func UnmarshalDraft(b []byte) (*Draft, error) {
	d := &Draft{}
	if err := json.Unmarshal(b, d); err != nil {
		return nil, errors.Wrap(err, "unmarshal draft")
	}
	if d.Step == 0 {
		d.Step = FirstStep
	}
	if d.Step < FirstStep || d.Step > LastStep {
		return nil, errors.Errorf("draft step %d out of range", d.Step)
	}
	return d, nil
}
