package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hytech-racing/listings-dashboard/internal/background"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/logging"
)

// Uploaded files are spooled to disk past this size while parsing the form
const multipartMemory = 32 << 20

// This handles inspecting and replacing the dataset being served
type datasetHandler struct {
	store         *dataset.Store
	source        dataset.Source
	fileProcessor *background.FileProcessor
	processor     background.FileJobProcessor
	logger        *logging.Logger
}

type datasetInfoResponse struct {
	dataset.Info
	Listings   int  `json:"listings"`
	Processing bool `json:"processing"`
}

func NewDatasetHandler(
	r chi.Router,
	store *dataset.Store,
	source dataset.Source,
	fileProcessor *background.FileProcessor,
	processor background.FileJobProcessor,
	uploadLimit func(http.Handler) http.Handler,
	rateLimit func(http.Handler) http.Handler,
	logger *logging.Logger,
) {
	handler := &datasetHandler{
		store:         store,
		source:        source,
		fileProcessor: fileProcessor,
		processor:     processor,
		logger:        logger,
	}

	r.Route("/dataset", func(r chi.Router) {
		r.Get("/", HandlerFunc(handler.GetDataset).ServeHTTP)
		r.With(rateLimit).Post("/reload", HandlerFunc(handler.ReloadDataset).ServeHTTP)
		r.With(uploadLimit).Post("/upload", HandlerFunc(handler.UploadDataset).ServeHTTP)
		r.Get("/jobs/{job_id}", HandlerFunc(handler.GetJob).ServeHTTP)
	})
}

func (h *datasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) *HandlerError {
	respond(w, r, http.StatusOK, datasetInfoResponse{
		Info:       h.store.Info(),
		Listings:   h.store.Current().Len(),
		Processing: h.fileProcessor.ActivelyProcessing(),
	}, "")
	return nil
}

// ReloadDataset re-reads the configured source. The dataset being served
// is kept when the source cannot be read.
func (h *datasetHandler) ReloadDataset(w http.ResponseWriter, r *http.Request) *HandlerError {
	if h.source == nil {
		return NewHandlerError("no dataset source is configured", http.StatusServiceUnavailable)
	}

	report, err := h.store.LoadFrom(r.Context(), h.source)
	if err != nil {
		h.logger.Errorf("reload failed: %v", err)
		return NewHandlerError(err.Error(), http.StatusBadGateway)
	}

	h.logger.Infof("reloaded %s: %d rows, %d skipped", h.source, report.Rows, report.Skipped)
	respond(w, r, http.StatusOK, h.store.Info(), "dataset reloaded")
	return nil
}

// UploadDataset queues an uploaded CSV to replace the dataset
func (h *datasetHandler) UploadDataset(w http.ResponseWriter, r *http.Request) *HandlerError {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return NewHandlerError("could not parse multipart form: "+err.Error(), http.StatusBadRequest)
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		return NewHandlerError("no file uploaded, expected form field \"file\"", http.StatusBadRequest)
	}

	job, err := h.fileProcessor.EnqueueFile(files[0], h.processor)
	if errors.Is(err, background.ErrQueueFull) {
		return NewHandlerError(err.Error(), http.StatusServiceUnavailable)
	}
	if err != nil {
		h.logger.Errorf("could not queue upload %s: %v", files[0].Filename, err)
		return NewHandlerError("could not queue upload", http.StatusInternalServerError)
	}

	respond(w, r, http.StatusAccepted, job, "dataset queued for processing")
	return nil
}

func (h *datasetHandler) GetJob(w http.ResponseWriter, r *http.Request) *HandlerError {
	job, ok := h.fileProcessor.Job(chi.URLParam(r, "job_id"))
	if !ok {
		return NewHandlerError("job not found", http.StatusNotFound)
	}

	respond(w, r, http.StatusOK, job, "")
	return nil
}
