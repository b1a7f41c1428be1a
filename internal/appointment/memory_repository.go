package appointment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRecord struct {
	appt Appointment
	seq  uint64
}

// MemoryRepository keeps appointments in process memory. Every operation runs
// under one mutex, so the slot uniqueness check in Insert is atomic.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
	active  map[string]string // slot key -> appointment id
	seq     uint64
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*memoryRecord),
		active:  make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Insert(ctx context.Context, appt Appointment) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	if err := validateForInsert(appt); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := appt.Slot().Key()
	if appt.Status.Active() {
		if _, taken := r.active[key]; taken {
			return nil, ErrSlotTaken
		}
	}

	appt.ID = uuid.NewString()
	appt.CreatedAt = r.now().UTC()
	r.seq++
	r.records[appt.ID] = &memoryRecord{appt: appt, seq: r.seq}
	if appt.Status.Active() {
		r.active[key] = appt.ID
	}

	out := appt
	return &out, nil
}

func (r *MemoryRepository) FindConflict(ctx context.Context, slot Slot) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.active[slot.Key()]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := r.records[id].appt
	return &out, nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := rec.appt
	return &out, nil
}

func (r *MemoryRepository) FindByUser(ctx context.Context, userID string) ([]Appointment, error) {
	return r.list(ctx, func(a Appointment) bool { return a.UserID == userID })
}

func (r *MemoryRepository) FindAll(ctx context.Context, filter Filter) ([]Appointment, error) {
	return r.list(ctx, filter.Matches)
}

func (r *MemoryRepository) list(ctx context.Context, keep func(Appointment) bool) ([]Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	matched := make([]memoryRecord, 0, len(r.records))
	for _, rec := range r.records {
		if keep(rec.appt) {
			matched = append(matched, *rec)
		}
	}
	r.mu.RUnlock()

	// map iteration is random; restore insertion order before the stable sort
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })
	out := make([]Appointment, 0, len(matched))
	for _, rec := range matched {
		out = append(out, rec.appt)
	}
	SortBySchedule(out)
	return out, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if !containsStatus(from, rec.appt.Status) {
		return nil, ErrInvalidStatusTransition
	}

	key := rec.appt.Slot().Key()
	if to.Active() && !rec.appt.Status.Active() {
		if holder, taken := r.active[key]; taken && holder != id {
			return nil, ErrSlotTaken
		}
		r.active[key] = id
	}
	if !to.Active() && r.active[key] == id {
		delete(r.active, key)
	}

	rec.appt.Status = to
	out := rec.appt
	return &out, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	key := rec.appt.Slot().Key()
	if r.active[key] == id {
		delete(r.active, key)
	}
	delete(r.records, id)
	return nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
