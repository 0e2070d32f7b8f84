package http

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hytech-racing/listings-dashboard/internal/charts"
	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/database/usecase"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/logging"
	"github.com/hytech-racing/listings-dashboard/internal/models"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

const recentViewsOnPage = 10

var dashboardTemplate = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"join": strings.Join,
	"cell": func(row models.ListingModel, col dataset.Column) string {
		value, _ := dataset.StringValue(&row, col)
		return value
	},
	"contains": func(values []string, v string) bool {
		for _, s := range values {
			if s == v {
				return true
			}
		}
		return false
	},
}).ParseFS(templateFS, "templates/dashboard.html"))

// This handles the dashboard page and everything it links to
type dashboardHandler struct {
	store        *dataset.Store
	views        *usecase.DashboardViewUseCase
	options      dashboard.Options
	chartOptions charts.Options
	logger       *logging.Logger
}

type dashboardPage struct {
	View     *dashboard.View
	Info     dataset.Info
	Columns  []dataset.Column
	Charts   map[string]string
	Query    string
	PrevPage string
	NextPage string
	Views    []models.DashboardViewModel
}

func NewDashboardHandler(
	r chi.Router,
	store *dataset.Store,
	views *usecase.DashboardViewUseCase,
	options dashboard.Options,
	chartOptions charts.Options,
	logger *logging.Logger,
) {
	handler := &dashboardHandler{
		store:        store,
		views:        views,
		options:      options,
		chartOptions: chartOptions,
		logger:       logger,
	}

	r.Get("/", HandlerFunc(handler.GetDashboard).ServeHTTP)
	r.Get("/charts/{chart}", HandlerFunc(handler.GetChart).ServeHTTP)
	r.Post("/views", HandlerFunc(handler.SaveView).ServeHTTP)
	r.Get("/views/{id}", HandlerFunc(handler.OpenView).ServeHTTP)
}

// GetDashboard renders the whole page from the widget values in the query
func (h *dashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) *HandlerError {
	view := dashboard.Build(h.store.Current(), dashboard.ParseState(r.URL.Query()), h.options)

	page := dashboardPage{
		View:    view,
		Info:    h.store.Info(),
		Columns: dataset.Columns,
		Charts:  make(map[string]string, len(dashboard.ChartNames)),
		Query:   view.State.Encode().Encode(),
	}

	for _, name := range dashboard.ChartNames {
		page.Charts[name] = chartURL(name, h.chartOptions.Format, view.State)
	}
	page.PrevPage = pageURL(view.State, view.Page-1)
	page.NextPage = pageURL(view.State, view.Page+1)

	if h.views != nil {
		views, err := h.views.GetViews(r.Context(), recentViewsOnPage)
		if err != nil {
			h.logger.Warnf("could not list saved views: %v", err)
		}
		page.Views = views
	}

	var buf bytes.Buffer
	if err := dashboardTemplate.Execute(&buf, page); err != nil {
		h.logger.Errorf("could not render dashboard: %v", err)
		return NewHandlerError("could not render dashboard", http.StatusInternalServerError)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
	return nil
}

// GetChart renders one chart for the widget values in the query. The route
// parameter is the chart name with an optional image extension.
func (h *dashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) *HandlerError {
	name, ext, _ := strings.Cut(chi.URLParam(r, "chart"), ".")
	if !dashboard.IsChart(name) {
		return NewHandlerError("unknown chart "+name, http.StatusNotFound)
	}

	format, contentType, err := charts.ParseFormat(ext)
	if err != nil {
		return NewHandlerError(err.Error(), http.StatusBadRequest)
	}

	view := dashboard.Build(h.store.Current(), dashboard.ParseState(r.URL.Query()), h.options)

	opts := h.chartOptions
	opts.Format = format
	writer, err := view.Chart(name, opts)
	if err != nil {
		h.logger.Errorf("could not render chart %s: %v", name, err)
		return NewHandlerError("could not render chart", http.StatusInternalServerError)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	if _, err := writer.WriteTo(w); err != nil {
		h.logger.Warnf("could not write chart %s: %v", name, err)
	}
	return nil
}

// SaveView stores the widget values submitted from the page and sends the
// browser back to them
func (h *dashboardHandler) SaveView(w http.ResponseWriter, r *http.Request) *HandlerError {
	if h.views == nil {
		return NewHandlerError("saved views are not available", http.StatusServiceUnavailable)
	}
	if err := r.ParseForm(); err != nil {
		return NewHandlerError("invalid form", http.StatusBadRequest)
	}

	values, err := url.ParseQuery(r.PostForm.Get("query"))
	if err != nil {
		return NewHandlerError("invalid query", http.StatusBadRequest)
	}

	view, err := h.views.CreateView(r.Context(), r.PostForm.Get("name"), dashboard.ParseState(values))
	if err != nil {
		return viewError(err)
	}

	h.logger.Infof("saved view %s (%s)", view.Name, view.Id.Hex())
	http.Redirect(w, r, "/views/"+view.Id.Hex(), http.StatusSeeOther)
	return nil
}

// OpenView redirects to the page with a saved view's widget values
func (h *dashboardHandler) OpenView(w http.ResponseWriter, r *http.Request) *HandlerError {
	if h.views == nil {
		return NewHandlerError("saved views are not available", http.StatusServiceUnavailable)
	}

	state, err := h.views.GetViewState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return viewError(err)
	}

	http.Redirect(w, r, "/?"+state.Encode().Encode(), http.StatusFound)
	return nil
}

func chartURL(name string, format string, state dashboard.State) string {
	if format == "" {
		format = "png"
	}
	u := "/charts/" + name + "." + format
	if query := state.Encode().Encode(); query != "" {
		u += "?" + query
	}
	return u
}

func pageURL(state dashboard.State, page int) string {
	values := state.Encode()
	values.Del("page")
	if page > 1 {
		values.Set("page", strconv.Itoa(page))
	}
	// the odometer button only applies to the interaction that pressed it
	values.Del("odometer")
	return "/?" + values.Encode()
}
