package listings_middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/hytech-racing/listings-dashboard/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrashReport_WritesCrashFile(t *testing.T) {
	crashDir := t.TempDir()
	var out bytes.Buffer
	logger := logging.NewLogger(&out, 5, crashDir)
	logger.Info("before the panic")

	handler := middleware.Recoverer(CrashReport(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest("GET", "/charts/types.png", nil))

	assert.Equal(t, http.StatusInternalServerError, resp.Code)

	entries, err := os.ReadDir(crashDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(crashDir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(content), "Panic: boom")
	assert.Contains(t, string(content), "before the panic")
}

func TestCrashReport_PassesThrough(t *testing.T) {
	crashDir := t.TempDir()
	logger := logging.NewLogger(&bytes.Buffer{}, 5, crashDir)

	handler := CrashReport(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusTeapot, resp.Code)
	entries, err := os.ReadDir(crashDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
