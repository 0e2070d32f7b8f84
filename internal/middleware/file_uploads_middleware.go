package listings_middleware

import (
	"fmt"
	"net/http"

	"github.com/hytech-racing/listings-dashboard/internal/background"
	"github.com/hytech-racing/listings-dashboard/internal/logging"
)

type FileUploadMiddleware struct {
	FileProcessor *background.FileProcessor
	Logger        *logging.Logger
}

// FileUploadSizeLimitMiddleware rejects uploads that would push the upload
// directory past the processor's size limit. The body is capped at the
// declared Content-Length.
func (fm *FileUploadMiddleware) FileUploadSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentLength := r.ContentLength
		if contentLength <= 0 {
			http.Error(w, "Content-Length required", http.StatusBadRequest)
			return
		}

		currentSize := fm.FileProcessor.MiddlewareEstimatedSize.Load()
		maxTotalSize := fm.FileProcessor.MaxTotalSize()
		if currentSize+contentLength > maxTotalSize {
			if fm.Logger != nil {
				fm.Logger.Warnf("rejected upload of %d bytes, %d of %d bytes in use", contentLength, currentSize, maxTotalSize)
			}
			w.Header().Set("Retry-After", "60")
			http.Error(w, fmt.Sprintf(
				"Upload would exceed size limit. Current: %d bytes, Max: %d bytes",
				currentSize,
				maxTotalSize,
			), http.StatusServiceUnavailable)
			return
		}

		fm.FileProcessor.MiddlewareEstimatedSize.Add(contentLength)
		r.Body = http.MaxBytesReader(w, r.Body, contentLength)
		next.ServeHTTP(w, r)
	})
}
