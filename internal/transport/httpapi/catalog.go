package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

type CatalogService interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	SaveCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID) error

	GetStaff(ctx context.Context, id uuid.UUID) (*domain.Staff, error)
	SaveStaff(ctx context.Context, s domain.Staff) (domain.Staff, error)
	DeleteStaff(ctx context.Context, id uuid.UUID) error

	GetService(ctx context.Context, id uuid.UUID) (*domain.Service, error)
	SaveService(ctx context.Context, s domain.Service) (domain.Service, error)
	DeleteService(ctx context.Context, id uuid.UUID) error
}

type CatalogHandler struct {
	svc CatalogService
	log *slog.Logger
}

func NewCatalogHandler(svc CatalogService, log *slog.Logger) *CatalogHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CatalogHandler{svc: svc, log: log.With(slog.String("component", "http.catalog"))}
}

func (h *CatalogHandler) Register(mux *http.ServeMux) {
	registerEntity(mux, h.log, "customers", entityOps[domain.Customer]{
		get:  h.svc.GetCustomer,
		save: h.svc.SaveCustomer,
		del:  h.svc.DeleteCustomer,
		prepare: func(c *domain.Customer, id uuid.UUID) error {
			c.ID = id
			if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" {
				return errors.New("name and email are required")
			}
			return nil
		},
	})
	registerEntity(mux, h.log, "staff", entityOps[domain.Staff]{
		get:  h.svc.GetStaff,
		save: h.svc.SaveStaff,
		del:  h.svc.DeleteStaff,
		prepare: func(s *domain.Staff, id uuid.UUID) error {
			s.ID = id
			if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.Email) == "" {
				return errors.New("name and email are required")
			}
			return nil
		},
	})
	registerEntity(mux, h.log, "services", entityOps[domain.Service]{
		get:  h.svc.GetService,
		save: h.svc.SaveService,
		del:  h.svc.DeleteService,
		prepare: func(s *domain.Service, id uuid.UUID) error {
			s.ID = id
			switch {
			case strings.TrimSpace(s.Name) == "":
				return errors.New("name is required")
			case s.DurationMinutes < 1:
				return errors.New("duration_minutes must be at least 1")
			case s.Price < 0:
				return errors.New("price must not be negative")
			}
			return nil
		},
	})
}

type entityOps[T any] struct {
	get  func(context.Context, uuid.UUID) (*T, error)
	save func(context.Context, T) (T, error)
	del  func(context.Context, uuid.UUID) error
	// prepare sets the id (uuid.Nil on create) and checks required fields.
	prepare func(*T, uuid.UUID) error
}

// registerEntity mounts POST /api/{name} and GET, PUT and DELETE on
// /api/{name}/{id}. PUT creates the entity when the id is unknown.
func registerEntity[T any](mux *http.ServeMux, log *slog.Logger, name string, ops entityOps[T]) {
	base := "/api/" + name
	log = log.With(slog.String("entity", name))

	save := func(w http.ResponseWriter, r *http.Request, id uuid.UUID, code int) {
		var v T
		if err := decodeJSON(r, &v); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := ops.prepare(&v, id); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved, err := ops.save(r.Context(), v)
		if err != nil {
			catalogFail(w, r, log, "catalog save failed", err)
			return
		}
		writeJSON(w, code, saved)
	}

	mux.HandleFunc("POST "+base, func(w http.ResponseWriter, r *http.Request) {
		save(w, r, uuid.Nil, http.StatusCreated)
	})
	mux.HandleFunc("PUT "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		save(w, r, id, http.StatusOK)
	})
	mux.HandleFunc("GET "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		v, err := ops.get(r.Context(), id)
		if err != nil {
			catalogFail(w, r, log, "catalog get failed", err)
			return
		}
		if v == nil {
			writeError(w, http.StatusNotFound, strings.TrimSuffix(name, "s")+" not found")
			return
		}
		writeJSON(w, http.StatusOK, v)
	})
	mux.HandleFunc("DELETE "+base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := ops.del(r.Context(), id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, strings.TrimSuffix(name, "s")+" not found")
				return
			}
			catalogFail(w, r, log, "catalog delete failed", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func catalogFail(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	switch {
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, store.ErrUnavailable):
		log.WarnContext(r.Context(), msg, slog.Any("err", err))
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		log.ErrorContext(r.Context(), msg, slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
