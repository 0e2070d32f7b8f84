package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hytech-racing/listings-dashboard/internal/background"
)

// This reports how much room is left for dataset uploads
type uploadHandler struct {
	fileProcessor *background.FileProcessor
}

type uploadLimitsResponse struct {
	CurrentFileSize   int64 `json:"current_file_size"`
	ReservedFileSize  int64 `json:"reserved_file_size"`
	MaxFileSize       int64 `json:"max_file_size"`
	AvailableFileSize int64 `json:"available_file_size"`
}

func NewUploadHandler(r chi.Router, fileProcessor *background.FileProcessor) {
	handler := &uploadHandler{
		fileProcessor: fileProcessor,
	}

	r.Route("/uploads", func(r chi.Router) {
		r.Get("/limits", HandlerFunc(handler.GetUploadLimits).ServeHTTP)
	})
}

// GetUploadLimits reports the bytes held by queued uploads. The reserved size
// also counts requests the size limit middleware has let through but that
// have not been queued yet.
func (handler *uploadHandler) GetUploadLimits(w http.ResponseWriter, r *http.Request) *HandlerError {
	current := handler.fileProcessor.TotalSize.Load()
	reserved := handler.fileProcessor.MiddlewareEstimatedSize.Load()
	maxSize := handler.fileProcessor.MaxTotalSize()

	available := maxSize - reserved
	if available < 0 {
		available = 0
	}

	respond(w, r, http.StatusOK, uploadLimitsResponse{
		CurrentFileSize:   current,
		ReservedFileSize:  reserved,
		MaxFileSize:       maxSize,
		AvailableFileSize: available,
	}, "")
	return nil
}
