package appointment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func book(t *testing.T, svc *Service, user, doctor, date, tm string) *Appointment {
	t.Helper()
	in := validInput()
	in.UserID, in.DoctorID, in.Date, in.Time = user, doctor, date, tm
	appt, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	return appt
}

func TestGetByUser_OrderedBySchedule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	late := book(t, svc, "u1", "d1", "2025-03-12", "09:00")
	early := book(t, svc, "u1", "d1", "2025-03-10", "11:00")
	earliest := book(t, svc, "u1", "d2", "2025-03-10", "10:00")
	book(t, svc, "u2", "d3", "2025-03-01", "10:00")

	got, err := svc.GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{earliest.ID, early.ID, late.ID}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestGetByUser_IncludesCancelled(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt := book(t, svc, "u1", "d1", "2025-03-10", "10:00")
	_, err := svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)

	got, err := svc.GetByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, StatusCancelled, got[0].Status)
}

func TestGetByUser_UnknownUserIsEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.GetByUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetByUser_BlankID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByUser(context.Background(), " ")

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"userId"}, missing.Fields)
}

func TestGetAll_TiesKeepInsertionOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := book(t, svc, "u1", "d1", "2025-03-10", "10:00")
	_, err := svc.Cancel(ctx, first.ID)
	require.NoError(t, err)
	second := book(t, svc, "u2", "d1", "2025-03-10", "10:00")

	got, err := svc.GetAll(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
}

func TestGetAll_Filters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := book(t, svc, "u1", "d1", "2025-03-10", "10:00")
	b := book(t, svc, "u2", "d2", "2025-03-11", "10:00")
	_, err := svc.Confirm(ctx, b.ID)
	require.NoError(t, err)

	confirmed, err := svc.GetAll(ctx, Filter{Status: StatusConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, b.ID, confirmed[0].ID)

	byDoctor, err := svc.GetAll(ctx, Filter{DoctorID: "d1", Date: "2025-03-10"})
	require.NoError(t, err)
	require.Len(t, byDoctor, 1)
	assert.Equal(t, a.ID, byDoctor[0].ID)

	none, err := svc.GetAll(ctx, Filter{HospitalID: "99"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetAll_InvalidStatus(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetAll(context.Background(), Filter{Status: "done"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
