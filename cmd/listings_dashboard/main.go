package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hytech-racing/listings-dashboard/internal/background"
	"github.com/hytech-racing/listings-dashboard/internal/charts"
	"github.com/hytech-racing/listings-dashboard/internal/config"
	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/database"
	"github.com/hytech-racing/listings-dashboard/internal/database/usecase"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	handler "github.com/hytech-racing/listings-dashboard/internal/delivery/http"
	"github.com/hytech-racing/listings-dashboard/internal/logging"
	"github.com/hytech-racing/listings-dashboard/internal/s3"
	"golang.org/x/time/rate"
)

const (
	requestTimeout  = 2 * time.Minute
	shutdownTimeout = 30 * time.Second
	startupTimeout  = 30 * time.Second
)

func main() {
	// load .env file if there is one
	cfg, err := config.Load(".env")
	if err != nil {
		// the logger needs the crash directory from the config
		logging.InitLogger(logging.DefaultCrashDir)
		logging.GetLogger().Errorf("could not load configuration: %v", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.CrashLogDir)
	logger := logging.GetLogger()
	defer logger.RecoverAndLogPanic()

	if err := run(cfg, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	// Setup our database connection, saved views live in memory without one
	db := database.NewMemoryDatabaseClient()
	if cfg.MongoEnabled() {
		mongoClient, err := database.NewDatabaseClient(startupCtx, cfg.MongoURI)
		if err != nil {
			return err
		}
		db = mongoClient
	}
	if !db.Persistent() {
		logger.Warn("MONGODB_URI is not set, saved views and snapshots are kept in memory")
	}

	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			logger.Errorf("%v", err)
		}
	}()

	chartOptions := charts.DefaultOptions()

	// We are creating one connection to AWS S3 and passing that around to all the methods to save resources
	var objects dataset.ObjectReader
	var archive background.ObjectWriter
	var snapshots *usecase.SnapshotUseCase
	if cfg.S3Enabled() {
		s3Repository, err := s3.NewS3Session(startupCtx, cfg.AWSAccessKey, cfg.AWSSecretKey, cfg.AWSRegion, cfg.AWSBucket)
		if err != nil {
			return err
		}
		objects = s3Repository
		archive = s3Repository
		snapshots = usecase.NewSnapshotUseCase(db.SnapshotRepository(), s3Repository, chartOptions)
	} else {
		logger.Warn("AWS settings are incomplete, snapshots and s3:// datasets are disabled")
	}

	source, err := dataset.ParseSource(cfg.ListingsPath, objects)
	if err != nil {
		return err
	}

	store := dataset.NewStore()
	report, err := store.LoadFrom(startupCtx, source)
	if err != nil {
		// serve an empty dashboard, a dataset can still be uploaded or reloaded
		logger.Errorf("could not load initial dataset: %v", err)
	} else {
		logger.Infof("loaded %d listings from %s, skipped %d rows", report.Rows, source, report.Skipped)
		for _, reason := range report.SkipReasons {
			logger.Debug(reason)
		}
	}

	fileProcessor, err := background.NewFileProcessor(cfg.UploadDir, cfg.MaxUploadBytes, logger)
	if err != nil {
		return err
	}
	fileProcessor.Start(ctx)
	defer fileProcessor.Stop()

	router := handler.NewRouter(handler.Services{
		Store:         store,
		Source:        source,
		Database:      db,
		Snapshots:     snapshots,
		FileProcessor: fileProcessor,
		JobProcessor:  background.NewDatasetJobProcessor(store, archive),
		Logger:        logger,
		DashboardOptions: dashboard.Options{
			SmallManufacturerThreshold: cfg.SmallManufacturerThreshold,
			PageSize:                   cfg.PageSize,
			PriceBins:                  cfg.PriceBins,
		},
		ChartOptions:       chartOptions,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout:     requestTimeout,
		HeavyRouteLimiter:  rate.NewLimiter(rate.Every(10*time.Second), 3),
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}
