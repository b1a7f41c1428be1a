package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAppointmentNotFound     = errors.New("appointment not found")
	ErrSlotTaken               = errors.New("this appointment has already been booked")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// MissingFieldError lists required fields that were absent or blank.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// ValidationError reports a present but unacceptable value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Repository is the appointment store. Implementations must reject an Insert
// that would give a slot a second active appointment with ErrSlotTaken, and
// must return lists ordered by date, time and then insertion.
type Repository interface {
	Insert(ctx context.Context, appt Appointment) (*Appointment, error)

	// For conflict checks
	FindConflict(ctx context.Context, slot Slot) (*Appointment, error)

	FindByID(ctx context.Context, id string) (*Appointment, error)
	FindByUser(ctx context.Context, userID string) ([]Appointment, error)
	FindAll(ctx context.Context, filter Filter) ([]Appointment, error)

	// UpdateStatus moves the record to status `to` when its current status is
	// one of `from`; otherwise it returns ErrInvalidStatusTransition.
	UpdateStatus(ctx context.Context, id string, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error)
	Delete(ctx context.Context, id string) error

	Ping(ctx context.Context) error
}

// requiredFields returns the names of the booking fields that are empty.
func requiredFields(a Appointment) []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("userId", a.UserID)
	check("hospitalId", a.HospitalID)
	check("categoryId", a.CategoryID)
	check("doctorId", a.DoctorID)
	check("date", a.Date)
	check("time", a.Time)
	return missing
}

// validateForInsert is shared by the store implementations.
func validateForInsert(a Appointment) error {
	if missing := requiredFields(a); len(missing) > 0 {
		return &MissingFieldError{Fields: missing}
	}
	if !a.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "must be one of pending, confirmed, cancelled"}
	}
	return nil
}

func containsStatus(list []AppointmentStatus, s AppointmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
