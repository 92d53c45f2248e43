package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/services"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

func TestMakeFlash(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?error=wrong_step", nil)
	assert.Equal(t, &Flash{Kind: "error", Text: errText["wrong_step"]}, MakeFlash(r, "", ""))

	r = httptest.NewRequest(http.MethodGet, "/?ok=SAVED", nil)
	assert.Equal(t, &Flash{Kind: "ok", Text: okText["saved"]}, MakeFlash(r, "", ""))

	// free text in the query is never echoed
	r = httptest.NewRequest(http.MethodGet, "/?error=%3Cscript%3E", nil)
	assert.Nil(t, MakeFlash(r, "", ""))
	assert.Equal(t, &Flash{Kind: "ok", Text: "fait"}, MakeFlash(r, "", "fait"))
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                   "/dashboard",
		"/demandes/42":       "/demandes/42",
		"//evil.example":     "/dashboard",
		"/\\evil.example":    "/dashboard",
		"https://evil.test/": "/dashboard",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeNext(in), in)
	}
}

func multipartRequest(t *testing.T, name, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="`+name+`"; filename="`+filename+`"`)
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, parseForm(httptest.NewRecorder(), r))
	return r
}

func TestReadAttachment(t *testing.T) {
	r := multipartRequest(t, "acte_naissance", "../../acte.pdf", "application/pdf", []byte("%PDF-1.4"))

	a, err := readAttachment(r, "acte_naissance")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "acte.pdf", a.Filename)
	assert.Equal(t, "application/pdf", a.ContentType)
	assert.EqualValues(t, 8, a.Size)
	assert.Equal(t, []byte("%PDF-1.4"), a.Data)

	missing, err := readAttachment(r, "bulletins")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReadAttachment_SniffsMissingContentType(t *testing.T) {
	r := multipartRequest(t, "photo", "photo", "", []byte("%PDF-1.4 body"))
	a, err := readAttachment(r, "photo")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", a.ContentType)
}

func TestSlotsFor(t *testing.T) {
	d := wizard.NewDraft()
	d.SetDocuments(wizard.DocumentsStep{Bulletins: &wizard.Attachment{Filename: "b.pdf"}})

	slots := slotsFor(d)
	require.Len(t, slots, 4)
	assert.Equal(t, models.DocBirthCertificate, slots[0].Kind)
	assert.True(t, slots[0].Required)
	assert.EqualValues(t, 2, slots[0].LimitMB)
	assert.Nil(t, slots[0].Current)

	assert.Equal(t, models.DocReportCards, slots[3].Kind)
	assert.False(t, slots[3].Required)
	assert.EqualValues(t, 5, slots[3].LimitMB)
	assert.Equal(t, "b.pdf", slots[3].Current.Filename)
}

func TestFormFromDetail_Validates(t *testing.T) {
	d := &services.Detail{Application: models.Application{
		DesiredClass: "CE1",
		Child: &models.Child{
			Nom: "Diallo", Prenom: "Awa", Birthplace: "Douala", Sex: "F",
			BirthDate: time.Date(2017, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		ParentInfo: &models.ParentInfo{
			MotherNom: "Diallo", MotherPrenom: "Fatou", MotherTelephone: "699123456",
			EmergencyNom: "Ndiaye", EmergencyTelephone: "677000111", EmergencyRelation: "Oncle",
		},
		MedicalInfo: &models.MedicalInfo{BloodType: "O+"},
	}}

	f := formFromDetail(d)
	assert.Equal(t, "2017-03-02", f.Child.DateNaissance)
	assert.Equal(t, "CE1", f.Child.ClasseSouhaitee)
	assert.Empty(t, f.Validate())
}

func TestFuncs(t *testing.T) {
	fm := Funcs()
	kb := fm["kb"].(func(int64) int64)
	assert.EqualValues(t, 0, kb(0))
	assert.EqualValues(t, 1, kb(1))
	assert.EqualValues(t, 2, kb(1025))

	// 23:30 UTC is already the next day in Douala
	assert.Equal(t, "02/03/2025", fmtDate(time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)))
}
