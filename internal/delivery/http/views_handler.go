package http

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/database/repository"
	"github.com/hytech-racing/listings-dashboard/internal/database/usecase"
	"github.com/hytech-racing/listings-dashboard/internal/models"
)

const defaultViewsLimit = 50

// This handles saved dashboard views
type viewsHandler struct {
	views *usecase.DashboardViewUseCase
}

type createViewRequest struct {
	Name string `json:"name"`
	// Query is a dashboard query string, e.g. "manufacturer=ford&normalize=1"
	Query string `json:"query"`
}

type viewResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	State     map[string]string `json:"state"`
	URL       string            `json:"url"`
	CreatedAt string            `json:"created_at"`
}

func NewViewsHandler(r chi.Router, views *usecase.DashboardViewUseCase) {
	handler := &viewsHandler{
		views: views,
	}

	r.Route("/views", func(r chi.Router) {
		r.Get("/", HandlerFunc(handler.GetViews).ServeHTTP)
		r.Post("/", HandlerFunc(handler.CreateView).ServeHTTP)
		r.Get("/{id}", HandlerFunc(handler.GetView).ServeHTTP)
		r.Delete("/{id}", HandlerFunc(handler.DeleteView).ServeHTTP)
	})
}

func (h *viewsHandler) GetViews(w http.ResponseWriter, r *http.Request) *HandlerError {
	limit, err := intParam(r, "limit", defaultViewsLimit)
	if err != nil || limit <= 0 {
		return NewHandlerError("limit must be a positive integer", http.StatusBadRequest)
	}

	views, err := h.views.GetViews(r.Context(), int64(limit))
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusInternalServerError)
	}

	data := make([]viewResponse, 0, len(views))
	for _, v := range views {
		data = append(data, toViewResponse(v))
	}

	respond(w, r, http.StatusOK, data, "returned saved views")
	return nil
}

func (h *viewsHandler) CreateView(w http.ResponseWriter, r *http.Request) *HandlerError {
	var req createViewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return NewHandlerError("invalid request body: "+err.Error(), http.StatusBadRequest)
	}

	values, err := url.ParseQuery(req.Query)
	if err != nil {
		return NewHandlerError("invalid query: "+err.Error(), http.StatusBadRequest)
	}

	view, err := h.views.CreateView(r.Context(), req.Name, dashboard.ParseState(values))
	if err != nil {
		return viewError(err)
	}

	respond(w, r, http.StatusCreated, toViewResponse(*view), "view saved")
	return nil
}

func (h *viewsHandler) GetView(w http.ResponseWriter, r *http.Request) *HandlerError {
	view, err := h.views.GetViewById(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return viewError(err)
	}

	respond(w, r, http.StatusOK, toViewResponse(*view), "")
	return nil
}

func (h *viewsHandler) DeleteView(w http.ResponseWriter, r *http.Request) *HandlerError {
	if err := h.views.DeleteViewById(r.Context(), chi.URLParam(r, "id")); err != nil {
		return viewError(err)
	}

	respond(w, r, http.StatusOK, nil, "view deleted")
	return nil
}

func toViewResponse(view models.DashboardViewModel) viewResponse {
	state := view.State
	if state == nil {
		state = make(map[string]string)
	}
	return viewResponse{
		ID:        view.Id.Hex(),
		Name:      view.Name,
		State:     state,
		URL:       "/?" + dashboard.StateFromMap(state).Encode().Encode(),
		CreatedAt: view.CreatedAt.Format(time.RFC3339),
	}
}

func viewError(err error) *HandlerError {
	switch {
	case errors.Is(err, usecase.ErrInvalidID), errors.Is(err, usecase.ErrInvalidName):
		return NewHandlerError(err.Error(), http.StatusBadRequest)
	case errors.Is(err, repository.ErrNotFound):
		return NewHandlerError("view not found", http.StatusNotFound)
	default:
		return NewHandlerError(err.Error(), http.StatusInternalServerError)
	}
}
