package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

type HandlerFunc func(w http.ResponseWriter, r *http.Request) *HandlerError

type HandlerError struct {
	Message    string
	StatusCode int
}

func NewHandlerError(message string, code int) *HandlerError {
	return &HandlerError{
		Message:    message,
		StatusCode: code,
	}
}

// ServeHTTP lets panics through to the router's CrashReport and Recoverer
// middleware, which write the crash file and answer 500.
func (fn HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handlerError := fn(w, r); handlerError != nil {
		handleHTTPError(w, *handlerError)
	}
}

func handleHTTPError(w http.ResponseWriter, err HandlerError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":    make([]interface{}, 0),
		"message": err.Message,
	})
}

// respond writes the {"data", "message"} envelope used by every JSON route
func respond(w http.ResponseWriter, r *http.Request, status int, data interface{}, message string) {
	response := make(map[string]interface{})
	response["data"] = data
	if message == "" {
		response["message"] = nil
	} else {
		response["message"] = message
	}

	render.Status(r, status)
	render.JSON(w, r, response)
}
