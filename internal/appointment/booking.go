package appointment

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	redisclient "github.com/hackgods/hospital-booking/internal/redis"
)

// CreateInput carries a booking request. Names are optional labels; the ids,
// date and time are required.
type CreateInput struct {
	UserID       string            `json:"userId" validate:"required"`
	HospitalID   string            `json:"hospitalId" validate:"required"`
	HospitalName string            `json:"hospitalName"`
	CategoryID   string            `json:"categoryId" validate:"required"`
	CategoryName string            `json:"categoryName"`
	DoctorID     string            `json:"doctorId" validate:"required"`
	DoctorName   string            `json:"doctorName"`
	Date         string            `json:"date" validate:"required"`
	Time         string            `json:"time" validate:"required"`
	Status       AppointmentStatus `json:"status,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json field names so errors match what the client sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (in *CreateInput) normalize() {
	for _, f := range []*string{
		&in.UserID, &in.HospitalID, &in.HospitalName, &in.CategoryID, &in.CategoryName,
		&in.DoctorID, &in.DoctorName, &in.Date, &in.Time,
	} {
		*f = strings.TrimSpace(*f)
	}
	in.Status = AppointmentStatus(strings.TrimSpace(string(in.Status)))
}

// Validate checks required fields and the optional status.
func (in CreateInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			missing = append(missing, fe.Field())
		}
		return &MissingFieldError{Fields: missing}
	}
	if in.Status != "" && in.Status != StatusPending {
		return &ValidationError{Field: "status", Reason: "must be pending for a new appointment"}
	}
	return nil
}

// Booking creates appointments and enforces one active booking per slot.
type Booking struct {
	repo   Repository
	locker redisclient.Locker
	log    *zap.Logger
}

func NewBooking(repo Repository, locker redisclient.Locker, log *zap.Logger) *Booking {
	return &Booking{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

// Create books a slot for a patient.
// The conflict check and insert normally run under a per slot lock. When
// another request holds that lock the same steps run without it, and the
// store's uniqueness constraint decides: the caller gets the new record or
// ErrSlotTaken, never a lock error.
func (b *Booking) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	appt := Appointment{
		UserID:       in.UserID,
		HospitalID:   in.HospitalID,
		HospitalName: in.HospitalName,
		CategoryID:   in.CategoryID,
		CategoryName: in.CategoryName,
		DoctorID:     in.DoctorID,
		DoctorName:   in.DoctorName,
		Date:         in.Date,
		Time:         in.Time,
		Status:       StatusPending,
	}
	slot := appt.Slot()

	var created *Appointment

	err := b.locker.WithSlotLock(ctx, slot.Key(), func(lockCtx context.Context) error {
		var err error
		created, err = b.checkAndInsert(lockCtx, appt)
		return err
	})
	if errors.Is(err, redisclient.ErrLockNotAcquired) {
		b.log.Debug("slot lock busy, relying on store constraint", zap.String("slot", slot.Key()))
		created, err = b.checkAndInsert(ctx, appt)
	}

	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			b.log.Info("slot already booked",
				zap.String("doctor_id", slot.DoctorID),
				zap.String("date", slot.Date),
				zap.String("time", slot.Time),
			)
		}
		return nil, err
	}

	b.log.Info("appointment created",
		zap.String("appointment_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.String("slot", slot.Key()),
	)
	return created, nil
}

func (b *Booking) checkAndInsert(ctx context.Context, appt Appointment) (*Appointment, error) {
	existing, err := b.repo.FindConflict(ctx, appt.Slot())
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return nil, fmt.Errorf("check slot conflict: %w", err)
	}
	if existing != nil {
		return nil, ErrSlotTaken
	}

	inserted, err := b.repo.Insert(ctx, appt)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	return inserted, nil
}
