package listings_middleware

import (
	"net/http"

	"github.com/hytech-racing/listings-dashboard/internal/logging"
)

// CrashReport writes a crash file with the most recent log lines when a
// handler panics. The panic is re-raised for chi's Recoverer to answer.
func CrashReport(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				if rec != http.ErrAbortHandler {
					logger.Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
					if path, err := logger.WriteCrashFile(rec); err != nil {
						logger.Errorf("failed to write crash file: %v", err)
					} else {
						logger.Infof("crash report written to %s", path)
					}
				}
				panic(rec)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
