package appointment

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Statuses from which a transition is accepted. Cancelled is terminal for
// confirmation because its slot may already belong to a newer booking.
var (
	confirmableFrom = []AppointmentStatus{StatusPending, StatusConfirmed}
	cancellableFrom = []AppointmentStatus{StatusPending, StatusConfirmed, StatusCancelled}
)

// Lifecycle moves appointments between statuses and removes them.
type Lifecycle struct {
	repo Repository
	log  *zap.Logger
}

func NewLifecycle(repo Repository, log *zap.Logger) *Lifecycle {
	return &Lifecycle{repo: repo, log: log}
}

// Confirm marks a pending appointment confirmed. Confirming twice is a no-op.
func (l *Lifecycle) Confirm(ctx context.Context, id string) (*Appointment, error) {
	updated, err := l.repo.UpdateStatus(ctx, id, confirmableFrom, StatusConfirmed)
	if err != nil {
		return nil, wrapLifecycleErr("confirm appointment", err)
	}
	l.log.Info("appointment confirmed", zap.String("appointment_id", id))
	return updated, nil
}

// Cancel frees the appointment's slot. Cancelling twice is harmless.
func (l *Lifecycle) Cancel(ctx context.Context, id string) (*Appointment, error) {
	updated, err := l.repo.UpdateStatus(ctx, id, cancellableFrom, StatusCancelled)
	if err != nil {
		return nil, wrapLifecycleErr("cancel appointment", err)
	}
	l.log.Info("appointment cancelled", zap.String("appointment_id", id))
	return updated, nil
}

func (l *Lifecycle) Delete(ctx context.Context, id string) error {
	if err := l.repo.Delete(ctx, id); err != nil {
		return wrapLifecycleErr("delete appointment", err)
	}
	l.log.Info("appointment deleted", zap.String("appointment_id", id))
	return nil
}

func wrapLifecycleErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
