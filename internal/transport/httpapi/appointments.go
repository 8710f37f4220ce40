package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"salon/backend/internal/domain"
	"salon/backend/internal/service/appointments"
	"salon/backend/internal/store"
)

const maxBodyBytes = 1 << 20

const dateLayout = "2006-01-02"

type AppointmentsService interface {
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, in appointments.UpdateInput) (*domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListAll(ctx context.Context) ([]domain.Appointment, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Appointment, error)
	ListByStaff(ctx context.Context, staffID uuid.UUID) ([]domain.Appointment, error)
	ListByService(ctx context.Context, serviceID uuid.UUID) ([]domain.Appointment, error)
	ListByStatus(ctx context.Context, status domain.AppointmentStatus) ([]domain.Appointment, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
	ListByDate(ctx context.Context, day time.Time) ([]domain.Appointment, error)
	ListByDateAndStaff(ctx context.Context, day time.Time, staffID uuid.UUID) ([]domain.Appointment, error)
	ListUpcoming(ctx context.Context) ([]domain.Appointment, error)
	ListToday(ctx context.Context) ([]domain.Appointment, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status domain.AppointmentStatus) (int, error)
	ClearCache(ctx context.Context)
}

type AppointmentsHandler struct {
	svc AppointmentsService
	loc *time.Location
	log *slog.Logger
}

// NewAppointmentsHandler serves the appointment API. Calendar dates in query
// strings are read in loc.
func NewAppointmentsHandler(svc AppointmentsService, loc *time.Location, log *slog.Logger) *AppointmentsHandler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsHandler{svc: svc, loc: loc, log: log.With(slog.String("component", "http.appointments"))}
}

func (h *AppointmentsHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/appointments", h.create)
	mux.HandleFunc("GET /api/appointments", h.list)
	mux.HandleFunc("GET /api/appointments/upcoming", h.upcoming)
	mux.HandleFunc("GET /api/appointments/today", h.today)
	mux.HandleFunc("GET /api/appointments/count", h.count)
	mux.HandleFunc("DELETE /api/appointments/cache", h.clearCache)
	mux.HandleFunc("GET /api/appointments/{id}", h.get)
	mux.HandleFunc("GET /api/appointments/{id}/exists", h.exists)
	mux.HandleFunc("PUT /api/appointments/{id}", h.update)
	mux.HandleFunc("DELETE /api/appointments/{id}", h.delete)
}

type createRequest struct {
	CustomerID uuid.UUID                `json:"customer_id"`
	StaffID    uuid.UUID                `json:"staff_id"`
	ServiceID  uuid.UUID                `json:"service_id"`
	StartTime  time.Time                `json:"start_time"`
	Status     domain.AppointmentStatus `json:"status"`
	Notes      string                   `json:"notes"`
}

type updateRequest struct {
	CustomerID *uuid.UUID                `json:"customer_id"`
	StaffID    *uuid.UUID                `json:"staff_id"`
	ServiceID  *uuid.UUID                `json:"service_id"`
	StartTime  *time.Time                `json:"start_time"`
	Status     *domain.AppointmentStatus `json:"status"`
	Notes      *string                   `json:"notes"`
}

type countResponse struct {
	Count  int                      `json:"count"`
	Status domain.AppointmentStatus `json:"status,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *AppointmentsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID == uuid.Nil || req.StaffID == uuid.Nil || req.ServiceID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "customer_id, staff_id and service_id are required")
		return
	}
	if req.StartTime.IsZero() {
		writeError(w, http.StatusBadRequest, "start_time is required")
		return
	}

	appt, err := h.svc.Create(r.Context(), appointments.CreateInput{
		CustomerID: req.CustomerID,
		StaffID:    req.StaffID,
		ServiceID:  req.ServiceID,
		StartTime:  req.StartTime,
		Status:     req.Status,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, r, "appointment create failed", err, slog.String("staff_id", req.StaffID.String()))
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *AppointmentsHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	appt, err := h.svc.Update(r.Context(), id, appointments.UpdateInput{
		CustomerID: req.CustomerID,
		StaffID:    req.StaffID,
		ServiceID:  req.ServiceID,
		StartTime:  req.StartTime,
		Status:     req.Status,
		Notes:      req.Notes,
	})
	if err != nil {
		h.fail(w, r, "appointment update failed", err, slog.String("appointment_id", id.String()))
		return
	}
	if appt == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentsHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.svc.Delete(r.Context(), id)
	if err != nil {
		h.fail(w, r, "appointment delete failed", err, slog.String("appointment_id", id.String()))
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AppointmentsHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, "appointment get failed", err, slog.String("appointment_id", id.String()))
		return
	}
	if appt == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentsHandler) exists(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	found, err := h.svc.Exists(r.Context(), id)
	if err != nil {
		h.fail(w, r, "appointment exists failed", err, slog.String("appointment_id", id.String()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": found})
}

// list picks one filter, checked in this order: date (optionally with
// staff_id), start and end, staff_id, customer_id, service_id, status.
// Without filters every appointment is returned.
func (h *AppointmentsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	var (
		rows []domain.Appointment
		err  error
	)
	switch {
	case q.Has("date"):
		day, perr := time.ParseInLocation(dateLayout, q.Get("date"), h.loc)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		if q.Has("staff_id") {
			staffID, ok := queryID(w, q.Get("staff_id"), "staff_id")
			if !ok {
				return
			}
			rows, err = h.svc.ListByDateAndStaff(ctx, day, staffID)
		} else {
			rows, err = h.svc.ListByDate(ctx, day)
		}
	case q.Has("start") || q.Has("end"):
		from, perr := h.parseInstant(q.Get("start"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC 3339 or YYYY-MM-DD")
			return
		}
		to, perr := h.parseInstant(q.Get("end"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC 3339 or YYYY-MM-DD")
			return
		}
		rows, err = h.svc.ListByDateRange(ctx, from, to)
	case q.Has("staff_id"):
		id, ok := queryID(w, q.Get("staff_id"), "staff_id")
		if !ok {
			return
		}
		rows, err = h.svc.ListByStaff(ctx, id)
	case q.Has("customer_id"):
		id, ok := queryID(w, q.Get("customer_id"), "customer_id")
		if !ok {
			return
		}
		rows, err = h.svc.ListByCustomer(ctx, id)
	case q.Has("service_id"):
		id, ok := queryID(w, q.Get("service_id"), "service_id")
		if !ok {
			return
		}
		rows, err = h.svc.ListByService(ctx, id)
	case q.Has("status"):
		rows, err = h.svc.ListByStatus(ctx, domain.AppointmentStatus(q.Get("status")))
	default:
		rows, err = h.svc.ListAll(ctx)
	}
	h.writeList(w, r, "appointments list failed", rows, err)
}

func (h *AppointmentsHandler) upcoming(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.ListUpcoming(r.Context())
	h.writeList(w, r, "upcoming appointments failed", rows, err)
}

func (h *AppointmentsHandler) today(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.ListToday(r.Context())
	h.writeList(w, r, "today appointments failed", rows, err)
}

func (h *AppointmentsHandler) count(w http.ResponseWriter, r *http.Request) {
	var (
		resp countResponse
		err  error
	)
	if s := r.URL.Query().Get("status"); s != "" {
		resp.Status = domain.AppointmentStatus(s)
		resp.Count, err = h.svc.CountByStatus(r.Context(), resp.Status)
	} else {
		resp.Count, err = h.svc.Count(r.Context())
	}
	if err != nil {
		h.fail(w, r, "appointment count failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AppointmentsHandler) clearCache(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *AppointmentsHandler) writeList(w http.ResponseWriter, r *http.Request, msg string, rows []domain.Appointment, err error) {
	if err != nil {
		h.fail(w, r, msg, err)
		return
	}
	if rows == nil {
		rows = []domain.Appointment{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// parseInstant accepts an RFC 3339 timestamp or a calendar date, which means
// midnight in the handler location.
func (h *AppointmentsHandler) parseInstant(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, v, h.loc)
}

func (h *AppointmentsHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error, attrs ...any) {
	code := statusFor(err)
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		writeError(w, code, err.Error())
	case http.StatusConflict:
		h.log.InfoContext(r.Context(), "appointment conflict", attrs...)
		writeError(w, code, "That staff member already has an appointment during that time. Pick a different slot.")
	case http.StatusServiceUnavailable:
		h.log.WarnContext(r.Context(), msg, append([]any{slog.Any("err", err)}, attrs...)...)
		writeError(w, code, "service temporarily unavailable")
	default:
		h.log.ErrorContext(r.Context(), msg, append([]any{slog.Any("err", err)}, attrs...)...)
		writeError(w, code, "internal error")
	}
}

func statusFor(err error) int {
	var vErr *appointments.ValidationError
	var refErr *appointments.ReferenceNotFoundError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.As(err, &refErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, appointments.ErrSchedulingConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryID(w http.ResponseWriter, v, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
