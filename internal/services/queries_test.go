package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RayanGhomsi/Prestige/internal/events"
	"github.com/RayanGhomsi/Prestige/internal/identity"
	"github.com/RayanGhomsi/Prestige/internal/models"
	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

func TestList_NewestFirstWithChildName(t *testing.T) {
	e, conn, bucket := newTestEnrollment(t)
	bucketOK(bucket)
	ctx := context.Background()

	first := submitted(t, e)
	e.now = func() time.Time { return time.Date(2025, 9, 3, 8, 0, 0, 0, time.UTC) }
	d := completeDraft()
	c := *d.Child
	c.Prenom = "Ibrahim"
	c.Sexe = "M"
	d.SetChild(c)
	second, err := e.Submit(ctx, fatou, d)
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Application{}).Where("id = ?", first.ApplicationID).
		Update("created_at", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).Error)

	list, err := e.List(ctx, fatou)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ApplicationID, list[0].ID)
	assert.Equal(t, "Ibrahim Diallo", list[0].ChildName)
	assert.Equal(t, "Awa Diallo", list[1].ChildName)
	assert.True(t, list[1].Editable())

	other, err := e.List(ctx, identity.User{ID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestGet_DetailAndOwnership(t *testing.T) {
	e, conn, bucket := newTestEnrollment(t)
	bucketOK(bucket)
	ctx := context.Background()
	rcpt := submitted(t, e)

	require.NoError(t, conn.Where("application_id = ? AND kind = ?", rcpt.ApplicationID, models.DocProofOfResidence).
		Delete(&models.Document{}).Error)

	d, err := e.Get(ctx, fatou, rcpt.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, rcpt.Reference, d.Reference)
	require.NotNil(t, d.Child)
	require.NotNil(t, d.ParentInfo)
	require.NotNil(t, d.MedicalInfo)
	assert.Len(t, d.Documents, 2)
	assert.Equal(t, []models.DocumentKind{models.DocProofOfResidence}, d.Missing)

	_, err = e.Get(ctx, identity.User{ID: "intruder"}, rcpt.ApplicationID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStats(t *testing.T) {
	e, conn, bucket := newTestEnrollment(t)
	bucketOK(bucket)
	ctx := context.Background()

	empty, err := e.Stats(ctx, fatou)
	require.NoError(t, err)
	assert.EqualValues(t, 0, empty.Total)

	a := submitted(t, e)
	submitted(t, e)
	setStatus(t, conn, a.ApplicationID, models.StatusAccepted)

	st, err := e.Stats(ctx, fatou)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Total)
	assert.EqualValues(t, 1, st.Count(models.StatusPending))
	assert.EqualValues(t, 1, st.Count(models.StatusAccepted))
	assert.EqualValues(t, 0, st.Count(models.StatusRejected))
}

func TestUpdateProfile(t *testing.T) {
	e, conn, _ := newTestEnrollment(t)
	ctx := context.Background()

	_, err := e.UpdateProfile(ctx, fatou, ProfileForm{Nom: "D", Prenom: "Fatou", Telephone: "0699"})
	var fe wizard.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Contains(t, fe, "nom")
	assert.Contains(t, fe, "telephone")

	p, err := e.UpdateProfile(ctx, fatou, ProfileForm{Nom: "Diallo-Sow", Prenom: "Fatou", Telephone: "677889900"})
	require.NoError(t, err)

	var stored models.ParentProfile
	require.NoError(t, conn.First(&stored, "id = ?", p.ID).Error)
	assert.Equal(t, "Diallo-Sow", stored.Nom)
	assert.Equal(t, "677889900", stored.Telephone)
	assert.Equal(t, fatou.Email, stored.Email)
}

func TestWarmProfile(t *testing.T) {
	e, conn, _ := newTestEnrollment(t)
	bus := events.NewBus()
	bus.Subscribe(e.WarmProfile())

	bus.Publish(context.Background(), events.SessionEvent{Kind: events.SignedOut, User: fatou})
	assert.EqualValues(t, 0, count(t, conn, &models.ParentProfile{}))

	bus.Publish(context.Background(), events.SessionEvent{Kind: events.SignedIn, User: fatou})
	assert.EqualValues(t, 1, count(t, conn, &models.ParentProfile{}))
}

func TestFindByReference(t *testing.T) {
	e, _, bucket := newTestEnrollment(t)
	bucketOK(bucket)
	rcpt := submitted(t, e)

	s, err := e.FindByReference(context.Background(), fatou, rcpt.Reference)
	require.NoError(t, err)
	assert.Equal(t, rcpt.ApplicationID, s.ID)

	_, err = e.FindByReference(context.Background(), identity.User{ID: "other"}, rcpt.Reference)
	assert.True(t, errors.Is(err, ErrNotFound))
}
