package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/hackgods/hospital-booking/internal/redis"
)

func validInput() CreateInput {
	return CreateInput{
		UserID:       "user-1",
		HospitalID:   "1",
		HospitalName: "City General Hospital",
		CategoryID:   "cardio",
		CategoryName: "Cardiology",
		DoctorID:     "d1",
		DoctorName:   "Dr. John Smith",
		Date:         "2025-03-10",
		Time:         "10:00",
	}
}

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	repo := NewMemoryRepository()
	return NewService(repo, nil, nil), repo
}

type busyLocker struct{}

func (busyLocker) WithSlotLock(context.Context, string, func(context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

func TestCreate_AssignsIDAndPending(t *testing.T) {
	svc, _ := newTestService(t)

	appt, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, StatusPending, appt.Status)
	assert.False(t, appt.CreatedAt.IsZero())
	assert.Equal(t, "Dr. John Smith", appt.DoctorName)
}

func TestCreate_MissingFields(t *testing.T) {
	svc, _ := newTestService(t)

	in := validInput()
	in.UserID = "  "
	in.Time = ""

	_, err := svc.Create(context.Background(), in)

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"userId", "time"}, missing.Fields)
}

func TestCreate_NamesAreOptional(t *testing.T) {
	svc, _ := newTestService(t)

	in := validInput()
	in.HospitalName, in.CategoryName, in.DoctorName = "", "", ""

	_, err := svc.Create(context.Background(), in)
	assert.NoError(t, err)
}

func TestCreate_RejectsNonPendingStatus(t *testing.T) {
	svc, _ := newTestService(t)

	in := validInput()
	in.Status = StatusConfirmed

	_, err := svc.Create(context.Background(), in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestCreate_SlotTaken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	other := validInput()
	other.UserID = "user-2"
	_, err = svc.Create(ctx, other)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCreate_TrimmedFieldsShareSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	padded := validInput()
	padded.DoctorID = " d1 "
	padded.Time = "10:00 "
	_, err = svc.Create(ctx, padded)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCreate_DifferentSlotsDoNotConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	otherTime := validInput()
	otherTime.Time = "11:00"
	_, err = svc.Create(ctx, otherTime)
	require.NoError(t, err)

	otherDoctor := validInput()
	otherDoctor.DoctorID = "d2"
	_, err = svc.Create(ctx, otherDoctor)
	require.NoError(t, err)
}

func TestCreate_SlotReusableAfterCancel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreate_LockBusyStillBooksFreeSlot(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, busyLocker{}, nil)

	appt, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, StatusPending, appt.Status)
}

func TestCreate_LockBusyOccupiedSlotIsTaken(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	_, err := NewService(repo, nil, nil).Create(ctx, validInput())
	require.NoError(t, err)

	other := validInput()
	other.UserID = "user-2"
	_, err = NewService(repo, busyLocker{}, nil).Create(ctx, other)
	assert.ErrorIs(t, err, ErrSlotTaken)

	all, err := repo.FindAll(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	const n = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		taken     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, validInput())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotTaken):
				taken++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, taken)

	active, err := repo.FindAll(ctx, Filter{DoctorID: "d1"})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

// Without any lock the store's own constraint still admits one booking.
func TestMemoryRepository_ConcurrentInsertsWithoutLock(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	appt := Appointment{
		UserID: "u", HospitalID: "1", CategoryID: "cardio",
		DoctorID: "d1", Date: "2025-03-10", Time: "10:00",
	}

	const n = 25
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Insert(ctx, appt); err == nil {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
}
