package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/database/repository"
	"github.com/hytech-racing/listings-dashboard/internal/database/usecase"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/logging"
)

const defaultSnapshotsLimit = 20

// This handles exporting the charts of a dashboard state to S3
type snapshotsHandler struct {
	store     *dataset.Store
	snapshots *usecase.SnapshotUseCase
	options   dashboard.Options
	logger    *logging.Logger
}

// NewSnapshotsHandler registers the snapshot routes. snapshots is nil when
// S3 is not configured and every route answers 503.
func NewSnapshotsHandler(
	r chi.Router,
	store *dataset.Store,
	snapshots *usecase.SnapshotUseCase,
	options dashboard.Options,
	rateLimit func(http.Handler) http.Handler,
	logger *logging.Logger,
) {
	handler := &snapshotsHandler{
		store:     store,
		snapshots: snapshots,
		options:   options,
		logger:    logger,
	}

	r.Route("/snapshots", func(r chi.Router) {
		r.Use(handler.requireStorage)
		r.Get("/", HandlerFunc(handler.GetSnapshots).ServeHTTP)
		r.With(rateLimit).Post("/", HandlerFunc(handler.CreateSnapshot).ServeHTTP)
		r.Get("/{snapshot_id}", HandlerFunc(handler.GetSnapshot).ServeHTTP)
	})
}

func (h *snapshotsHandler) requireStorage(next http.Handler) http.Handler {
	return HandlerFunc(func(w http.ResponseWriter, r *http.Request) *HandlerError {
		if h.snapshots == nil {
			return NewHandlerError("snapshots need S3, which is not configured", http.StatusServiceUnavailable)
		}
		next.ServeHTTP(w, r)
		return nil
	})
}

// CreateSnapshot renders the charts for the widget values in the query and
// uploads them
func (h *snapshotsHandler) CreateSnapshot(w http.ResponseWriter, r *http.Request) *HandlerError {
	view := dashboard.Build(h.store.Current(), dashboard.ParseState(r.URL.Query()), h.options)

	snapshot, err := h.snapshots.CreateSnapshot(r.Context(), view, h.store.Info().Source)
	if err != nil {
		h.logger.Errorf("could not create snapshot: %v", err)
		return NewHandlerError("could not create snapshot: "+err.Error(), http.StatusBadGateway)
	}

	h.logger.Infof("created snapshot %s with %d charts", snapshot.SnapshotID, len(snapshot.Files))
	respond(w, r, http.StatusCreated, snapshot, "snapshot created")
	return nil
}

func (h *snapshotsHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) *HandlerError {
	limit, err := intParam(r, "limit", defaultSnapshotsLimit)
	if err != nil || limit <= 0 {
		return NewHandlerError("limit must be a positive integer", http.StatusBadRequest)
	}

	snapshots, err := h.snapshots.GetRecentSnapshots(r.Context(), int64(limit))
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusInternalServerError)
	}

	respond(w, r, http.StatusOK, snapshots, "returned recent snapshots")
	return nil
}

func (h *snapshotsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) *HandlerError {
	snapshot, err := h.snapshots.GetSnapshot(r.Context(), chi.URLParam(r, "snapshot_id"))
	if errors.Is(err, repository.ErrNotFound) {
		return NewHandlerError("snapshot not found", http.StatusNotFound)
	}
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusInternalServerError)
	}

	respond(w, r, http.StatusOK, snapshot, "")
	return nil
}
