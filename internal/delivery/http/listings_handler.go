package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/models"
)

const (
	defaultListingsLimit = 50
	maxListingsLimit     = 1000
)

type listingsHandler struct {
	store *dataset.Store
}

type listingsPage struct {
	Total    int                   `json:"total"`
	Offset   int                   `json:"offset"`
	Limit    int                   `json:"limit"`
	Listings []models.ListingModel `json:"listings"`
}

func NewListingsHandler(r chi.Router, store *dataset.Store) {
	handler := &listingsHandler{
		store: store,
	}

	r.Route("/listings", func(r chi.Router) {
		r.Get("/", HandlerFunc(handler.GetListings).ServeHTTP)
		r.Get("/counts/{column}", HandlerFunc(handler.GetValueCounts).ServeHTTP)
		r.Get("/summary/{column}", HandlerFunc(handler.GetSummary).ServeHTTP)
	})
}

// GetListings returns a page of the listings matching the query filters
func (h *listingsHandler) GetListings(w http.ResponseWriter, r *http.Request) *HandlerError {
	filters, err := listingFiltersFromQuery(r)
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusBadRequest)
	}

	limit, err := intParam(r, "limit", defaultListingsLimit)
	if err != nil || limit <= 0 {
		return NewHandlerError("limit must be a positive integer", http.StatusBadRequest)
	}
	if limit > maxListingsLimit {
		limit = maxListingsLimit
	}

	offset, err := intParam(r, "offset", 0)
	if err != nil || offset < 0 {
		return NewHandlerError("offset must be a non-negative integer", http.StatusBadRequest)
	}

	filtered := h.store.Current().ApplyFilters(filters)
	page := listingsPage{
		Total:    filtered.Len(),
		Offset:   offset,
		Limit:    limit,
		Listings: filtered.Slice(offset, limit),
	}

	respond(w, r, http.StatusOK, page, fmt.Sprintf("returned %d of %d listings", len(page.Listings), page.Total))
	return nil
}

// GetValueCounts counts listings per distinct value of a column
func (h *listingsHandler) GetValueCounts(w http.ResponseWriter, r *http.Request) *HandlerError {
	col, err := dataset.ParseColumn(chi.URLParam(r, "column"))
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusBadRequest)
	}

	filters, err := listingFiltersFromQuery(r)
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusBadRequest)
	}

	counts := h.store.Current().ApplyFilters(filters).ValueCounts(col)
	respond(w, r, http.StatusOK, counts, "")
	return nil
}

// GetSummary describes a numeric column
func (h *listingsHandler) GetSummary(w http.ResponseWriter, r *http.Request) *HandlerError {
	col, err := dataset.ParseColumn(chi.URLParam(r, "column"))
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusBadRequest)
	}
	if !col.IsNumeric() {
		return NewHandlerError(fmt.Sprintf("column %s is not numeric", col), http.StatusBadRequest)
	}

	filters, err := listingFiltersFromQuery(r)
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusBadRequest)
	}

	summary, ok := h.store.Current().ApplyFilters(filters).Describe(col)
	if !ok {
		return NewHandlerError(fmt.Sprintf("no values for column %s", col), http.StatusNotFound)
	}

	respond(w, r, http.StatusOK, summary, "")
	return nil
}

func listingFiltersFromQuery(r *http.Request) (models.ListingFilters, error) {
	query := r.URL.Query()
	var filters models.ListingFilters

	stringParam := func(key string) *string {
		value := strings.TrimSpace(query.Get(key))
		if value == "" {
			return nil
		}
		return &value
	}
	filters.Manufacturer = stringParam("manufacturer")
	filters.Type = stringParam("type")
	filters.Condition = stringParam("condition")
	filters.Fuel = stringParam("fuel")
	filters.SearchText = stringParam("q")

	for key, dst := range map[string]**float64{
		"min_price": &filters.MinPrice,
		"max_price": &filters.MaxPrice,
	} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filters, fmt.Errorf("%s must be a number", key)
		}
		*dst = &v
	}

	for key, dst := range map[string]**int{
		"min_model_year": &filters.MinModelYear,
		"max_model_year": &filters.MaxModelYear,
	} {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filters, fmt.Errorf("%s must be an integer", key)
		}
		*dst = &v
	}

	return filters, nil
}

func intParam(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}
