package appointment

import (
	"sort"
	"strings"
	"time"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Active reports whether an appointment in this status still occupies its slot.
func (s AppointmentStatus) Active() bool {
	return s != StatusCancelled
}

// Appointment is a booked visit. Hospital, category and doctor fields are
// denormalized copies of catalog data supplied by the client at booking time.
type Appointment struct {
	ID           string            `json:"_id" bson:"-"`
	UserID       string            `json:"userId" bson:"userId"`
	HospitalID   string            `json:"hospitalId" bson:"hospitalId"`
	HospitalName string            `json:"hospitalName" bson:"hospitalName"`
	CategoryID   string            `json:"categoryId" bson:"categoryId"`
	CategoryName string            `json:"categoryName" bson:"categoryName"`
	DoctorID     string            `json:"doctorId" bson:"doctorId"`
	DoctorName   string            `json:"doctorName" bson:"doctorName"`
	Date         string            `json:"date" bson:"date"`
	Time         string            `json:"time" bson:"time"`
	Status       AppointmentStatus `json:"status" bson:"status"`
	CreatedAt    time.Time         `json:"createdAt" bson:"createdAt"`
}

// Slot identifies a doctor's bookable time. At most one active appointment may
// hold a given slot.
type Slot struct {
	DoctorID string
	Date     string
	Time     string
}

func (s Slot) Key() string {
	return strings.Join([]string{s.DoctorID, s.Date, s.Time}, "|")
}

func (a Appointment) Slot() Slot {
	return Slot{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
}

// Filter narrows FindAll. Empty fields are ignored; set fields must match exactly.
type Filter struct {
	Status     AppointmentStatus
	HospitalID string
	DoctorID   string
	Date       string
}

func (f Filter) Matches(a Appointment) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.HospitalID != "" && a.HospitalID != f.HospitalID {
		return false
	}
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.Date != "" && a.Date != f.Date {
		return false
	}
	return true
}

// SortBySchedule orders appointments by date then time. The sort is stable so
// callers that pass records in insertion order keep it for equal slots.
func SortBySchedule(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})
}
