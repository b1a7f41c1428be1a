package appointment

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// storeFactories lists every Repository implementation. Each call returns an
// empty store.
func storeFactories() map[string]func(t *testing.T) Repository {
	return map[string]func(t *testing.T) Repository{
		"memory":   func(t *testing.T) Repository { return NewMemoryRepository() },
		"postgres": func(t *testing.T) Repository { return newPgStore(t) },
		"mongo":    func(t *testing.T) Repository { return newMongoStore(t) },
	}
}

func slotAppt(user, doctor, date, tm string) Appointment {
	return Appointment{
		UserID:       user,
		HospitalID:   "1",
		HospitalName: "Salmaniya",
		CategoryID:   "101",
		CategoryName: "Cardiology",
		DoctorID:     doctor,
		DoctorName:   "Dr. Ahmed Khalil",
		Date:         date,
		Time:         tm,
	}
}

func TestRepositoryContract(t *testing.T) {
	for name, newStore := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			t.Run("insert assigns id and pending", func(t *testing.T) { testInsert(t, newStore(t)) })
			t.Run("active slot is unique", func(t *testing.T) { testSlotUnique(t, newStore(t)) })
			t.Run("concurrent inserts admit one", func(t *testing.T) { testConcurrentInsert(t, newStore(t)) })
			t.Run("cancel frees slot", func(t *testing.T) { testCancelThenRebook(t, newStore(t)) })
			t.Run("update status guard", func(t *testing.T) { testUpdateStatusGuard(t, newStore(t)) })
			t.Run("reactivating a taken slot", func(t *testing.T) { testReactivateTakenSlot(t, newStore(t)) })
			t.Run("ordering and filters", func(t *testing.T) { testOrderingAndFilters(t, newStore(t)) })
			t.Run("delete", func(t *testing.T) { testDelete(t, newStore(t)) })
		})
	}
}

func testInsert(t *testing.T, repo Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Ping(ctx))

	created, err := repo.Insert(ctx, slotAppt("u1", "d101", "2025-03-10", "09:00"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, StatusPending, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Dr. Ahmed Khalil", got.DoctorName)
	assert.Equal(t, "09:00", got.Time)

	_, err = repo.Insert(ctx, Appointment{UserID: "u1"})
	var missing *MissingFieldError
	assert.ErrorAs(t, err, &missing)
}

func testSlotUnique(t *testing.T, repo Repository) {
	ctx := context.Background()

	first, err := repo.Insert(ctx, slotAppt("u1", "d101", "2025-03-10", "09:00"))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, slotAppt("u2", "d101", "2025-03-10", "09:00"))
	assert.ErrorIs(t, err, ErrSlotTaken)

	held, err := repo.FindConflict(ctx, first.Slot())
	require.NoError(t, err)
	assert.Equal(t, first.ID, held.ID)

	_, err = repo.FindConflict(ctx, Slot{DoctorID: "d101", Date: "2025-03-10", Time: "10:00"})
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	// a cancelled record may share the slot with an active one
	cancelled := slotAppt("u3", "d102", "2025-03-10", "09:00")
	cancelled.Status = StatusCancelled
	_, err = repo.Insert(ctx, cancelled)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, slotAppt("u4", "d102", "2025-03-10", "09:00"))
	assert.NoError(t, err)
}

func testConcurrentInsert(t *testing.T, repo Repository) {
	ctx := context.Background()

	const n = 10
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		won  int
		errs []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Insert(ctx, slotAppt("u1", "d101", "2025-03-10", "09:00"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrSlotTaken)
	}
}

func testCancelThenRebook(t *testing.T, repo Repository) {
	ctx := context.Background()

	first, err := repo.Insert(ctx, slotAppt("u1", "d101", "2025-03-10", "09:00"))
	require.NoError(t, err)

	cancelled, err := repo.UpdateStatus(ctx, first.ID, cancellableFrom, StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = repo.FindConflict(ctx, first.Slot())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	second, err := repo.Insert(ctx, slotAppt("u2", "d101", "2025-03-10", "09:00"))
	require.NoError(t, err)

	held, err := repo.FindConflict(ctx, first.Slot())
	require.NoError(t, err)
	assert.Equal(t, second.ID, held.ID)

	all, err := repo.FindAll(ctx, Filter{DoctorID: "d101", Date: "2025-03-10"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, StatusCancelled, all[0].Status)
	assert.Equal(t, second.ID, all[1].ID)
}

func testUpdateStatusGuard(t *testing.T, repo Repository) {
	ctx := context.Background()

	appt, err := repo.Insert(ctx, slotAppt("u1", "d101", "2025-03-10", "09:00"))
	require.NoError(t, err)

	confirmed, err := repo.UpdateStatus(ctx, appt.ID, confirmableFrom, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, appt.ID, confirmed.ID)

	_, err = repo.UpdateStatus(ctx, appt.ID, cancellableFrom, StatusCancelled)
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, appt.ID, confirmableFrom, StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	got, err := repo.FindByID(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	for _, id := range []string{"not-an-id", missingID(repo)} {
		_, err = repo.UpdateStatus(ctx, id, confirmableFrom, StatusConfirmed)
		assert.ErrorIs(t, err, ErrAppointmentNotFound, id)
		_, err = repo.FindByID(ctx, id)
		assert.ErrorIs(t, err, ErrAppointmentNotFound, id)
	}
}

func testReactivateTakenSlot(t *testing.T, repo Repository) {
	ctx := context.Background()

	first, err := repo.Insert(ctx, slotAppt("u1", "d101", "2025-03-10", "09:00"))
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, first.ID, cancellableFrom, StatusCancelled)
	require.NoError(t, err)
	_, err = repo.Insert(ctx, slotAppt("u2", "d101", "2025-03-10", "09:00"))
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, first.ID, []AppointmentStatus{StatusCancelled}, StatusPending)
	assert.ErrorIs(t, err, ErrSlotTaken)

	got, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func testOrderingAndFilters(t *testing.T, repo Repository) {
	ctx := context.Background()

	insert := func(user, doctor, date, tm string) *Appointment {
		t.Helper()
		a, err := repo.Insert(ctx, slotAppt(user, doctor, date, tm))
		require.NoError(t, err)
		return a
	}
	late := insert("u1", "d101", "2025-03-12", "08:00")
	afternoon := insert("u1", "d101", "2025-03-10", "14:00")
	morning := insert("u1", "d102", "2025-03-10", "09:00")
	tieFirst := insert("u2", "d103", "2025-03-10", "09:00")
	other := insert("u2", "d104", "2025-03-11", "10:00")

	_, err := repo.UpdateStatus(ctx, other.ID, confirmableFrom, StatusConfirmed)
	require.NoError(t, err)

	mine, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{morning.ID, afternoon.ID, late.ID}, ids(mine))

	all, err := repo.FindAll(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{morning.ID, tieFirst.ID, afternoon.ID, other.ID, late.ID}, ids(all))

	confirmed, err := repo.FindAll(ctx, Filter{Status: StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, ids(confirmed))

	byDay, err := repo.FindAll(ctx, Filter{HospitalID: "1", Date: "2025-03-10"})
	require.NoError(t, err)
	assert.Equal(t, []string{morning.ID, tieFirst.ID, afternoon.ID}, ids(byDay))

	none, err := repo.FindByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDelete(t *testing.T, repo Repository) {
	ctx := context.Background()

	appt, err := repo.Insert(ctx, slotAppt("u1", "d101", "2025-03-10", "09:00"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, appt.ID))
	_, err = repo.FindByID(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, appt.ID), ErrAppointmentNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "not-an-id"), ErrAppointmentNotFound)

	_, err = repo.Insert(ctx, slotAppt("u2", "d101", "2025-03-10", "09:00"))
	assert.NoError(t, err)
}

// missingID returns a well-formed id that the store never issued.
func missingID(repo Repository) string {
	switch repo.(type) {
	case *MongoRepository:
		return primitive.NewObjectID().Hex()
	default:
		return "00000000-0000-4000-8000-000000000000"
	}
}

func ids(appts []Appointment) []string {
	out := make([]string, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.ID)
	}
	return out
}

func TestMongoRepository_ActiveSlotField(t *testing.T) {
	repo := newMongoStore(t)
	ctx := context.Background()

	appt, err := repo.Insert(ctx, slotAppt("u1", "d101", "2025-03-10", "09:00"))
	require.NoError(t, err)
	oid, err := primitive.ObjectIDFromHex(appt.ID)
	require.NoError(t, err)

	raw := func() bson.M {
		t.Helper()
		var doc bson.M
		require.NoError(t, repo.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc))
		return doc
	}

	assert.Equal(t, "d101|2025-03-10|09:00", raw()["activeSlot"])

	_, err = repo.UpdateStatus(ctx, appt.ID, cancellableFrom, StatusCancelled)
	require.NoError(t, err)
	_, present := raw()["activeSlot"]
	assert.False(t, present)

	_, err = repo.UpdateStatus(ctx, appt.ID, []AppointmentStatus{StatusCancelled}, StatusPending)
	require.NoError(t, err)
	assert.Equal(t, "d101|2025-03-10|09:00", raw()["activeSlot"])
}
