package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hackgods/hospital-booking/internal/appointment"
)

// AppointmentService is what the HTTP layer needs from the appointment package.
type AppointmentService interface {
	Create(ctx context.Context, in appointment.CreateInput) (*appointment.Appointment, error)
	Confirm(ctx context.Context, id string) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id string) (*appointment.Appointment, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*appointment.Appointment, error)
	GetByUser(ctx context.Context, userID string) ([]appointment.Appointment, error)
	GetAll(ctx context.Context, filter appointment.Filter) ([]appointment.Appointment, error)
}

type appointmentHandlers struct {
	svc          AppointmentService
	log          *zap.Logger
	exposeErrors bool
}

func (h *appointmentHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "could not parse JSON")
		return
	}

	appt, err := h.svc.Create(r.Context(), req.toInput())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeData(w, http.StatusCreated, appt)
}

func (h *appointmentHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := appointment.Filter{
		Status:     appointment.AppointmentStatus(strings.TrimSpace(q.Get("status"))),
		HospitalID: strings.TrimSpace(q.Get("hospitalId")),
		DoctorID:   strings.TrimSpace(q.Get("doctorId")),
		Date:       strings.TrimSpace(q.Get("date")),
	}

	h.log.Debug("listing all appointments",
		zap.String("subject", GetSubject(r.Context())),
		zap.String("request_id", GetRequestID(r.Context())),
	)

	appts, err := h.svc.GetAll(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeList(w, appts)
}

func (h *appointmentHandlers) listByUser(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.GetByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		var missing *appointment.MissingFieldError
		if errors.As(err, &missing) {
			writeError(w, http.StatusBadRequest, "User ID is required", missing.Error())
			return
		}
		h.handleError(w, r, err)
		return
	}

	writeList(w, appts)
}

func (h *appointmentHandlers) get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, appt)
}

func (h *appointmentHandlers) confirm(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, appt)
}

func (h *appointmentHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	appt, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, appt)
}

func (h *appointmentHandlers) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Appointment deleted successfully"})
}

func (h *appointmentHandlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		missing    *appointment.MissingFieldError
		validation *appointment.ValidationError
	)

	switch {
	case errors.As(err, &missing):
		writeError(w, http.StatusBadRequest, "Please provide all required fields", missing.Error())
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "Invalid request", validation.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusBadRequest, "This appointment has already been booked!", "")
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "Appointment not found", "")
	case errors.Is(err, appointment.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "A cancelled appointment cannot be confirmed", "")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "Request timed out", "")
	default:
		h.log.Error("appointment request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		detail := ""
		if h.exposeErrors {
			detail = err.Error()
		}
		writeError(w, http.StatusInternalServerError, "Server error", detail)
	}
}
