package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/hackgods/hospital-booking/internal/appointment"
)

// CreateAppointmentRequest is the POST /appointments body. Field names follow
// what the mobile client sends.
type CreateAppointmentRequest struct {
	UserID       string `json:"userId"`
	HospitalID   string `json:"hospitalId"`
	HospitalName string `json:"hospitalName"`
	CategoryID   string `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	DoctorID     string `json:"doctorId"`
	DoctorName   string `json:"doctorName"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Status       string `json:"status,omitempty"`
}

func (r CreateAppointmentRequest) toInput() appointment.CreateInput {
	return appointment.CreateInput{
		UserID:       r.UserID,
		HospitalID:   r.HospitalID,
		HospitalName: r.HospitalName,
		CategoryID:   r.CategoryID,
		CategoryName: r.CategoryName,
		DoctorID:     r.DoctorID,
		DoctorName:   r.DoctorName,
		Date:         r.Date,
		Time:         r.Time,
		Status:       appointment.AppointmentStatus(r.Status),
	}
}

// Response is the envelope every appointment endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// listResponse always carries data, even when nothing matched.
type listResponse[T any] struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Data    []T  `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Success: true, Data: data})
}

func writeList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, listResponse[T]{Success: true, Count: len(items), Data: items})
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, Response{Success: false, Message: message, Error: detail})
}
