package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hytech-racing/listings-dashboard/internal/background"
	"github.com/hytech-racing/listings-dashboard/internal/charts"
	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/database"
	"github.com/hytech-racing/listings-dashboard/internal/database/usecase"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/logging"
	listings_middleware "github.com/hytech-racing/listings-dashboard/internal/middleware"
	"golang.org/x/time/rate"
)

// Services is everything the routes are served from
type Services struct {
	Store         *dataset.Store
	Source        dataset.Source
	Database      *database.DatabaseClient
	Snapshots     *usecase.SnapshotUseCase
	FileProcessor *background.FileProcessor
	JobProcessor  background.FileJobProcessor
	Logger        *logging.Logger

	DashboardOptions   dashboard.Options
	ChartOptions       charts.Options
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration

	// HeavyRouteLimiter throttles snapshot creation and dataset reloads, nil
	// disables it
	HeavyRouteLimiter *rate.Limiter
}

func NewRouter(services Services) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: services.Logger, NoColor: true}))
	router.Use(middleware.Heartbeat("/ping"))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(listings_middleware.CrashReport(services.Logger))

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	if services.RequestTimeout > 0 {
		router.Use(middleware.Timeout(services.RequestTimeout))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: services.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Content-Length"},
		MaxAge:         300,
	}))

	var views *usecase.DashboardViewUseCase
	if services.Database != nil {
		views = services.Database.DashboardViewUseCase()
	}

	uploadLimit := &listings_middleware.FileUploadMiddleware{
		FileProcessor: services.FileProcessor,
		Logger:        services.Logger,
	}

	heavyRoutes := listings_middleware.RateLimit(services.HeavyRouteLimiter)

	NewDashboardHandler(router, services.Store, views, services.DashboardOptions, services.ChartOptions, services.Logger)

	router.Route("/api/v1", func(r chi.Router) {
		NewListingsHandler(r, services.Store)
		NewDatasetHandler(r, services.Store, services.Source, services.FileProcessor, services.JobProcessor, uploadLimit.FileUploadSizeLimitMiddleware, heavyRoutes, services.Logger)
		NewUploadHandler(r, services.FileProcessor)
		NewSnapshotsHandler(r, services.Store, services.Snapshots, services.DashboardOptions, heavyRoutes, services.Logger)
		if views != nil {
			NewViewsHandler(r, views)
		}
	})

	return router
}
