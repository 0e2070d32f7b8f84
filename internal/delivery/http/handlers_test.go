package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hytech-racing/listings-dashboard/internal/background"
	"github.com/hytech-racing/listings-dashboard/internal/charts"
	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/database"
	"github.com/hytech-racing/listings-dashboard/internal/database/usecase"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const listingsCSV = "price,model_year,model,condition,cylinders,fuel,odometer,transmission,type,paint_color,is_4wd,date_posted,days_listed\n" +
	"9400,2011,bmw x5,good,6,gas,145000,automatic,SUV,,1,2018-06-23,19\n" +
	"25500,,ford f-150,good,6,gas,88705,automatic,pickup,white,1,2018-10-19,50\n" +
	"5500,2013,ford focus,like new,4,gas,110000,automatic,sedan,red,,2019-02-07,79\n" +
	"1500,2003,ford f-150,fair,8,gas,,automatic,pickup,,,2019-03-22,9\n" +
	"14900,2017,chevrolet malibu,excellent,4,gas,80903,automatic,sedan,black,,2019-04-02,28\n" +
	"12990,2015,chevrolet silverado,excellent,8,gas,79212,automatic,truck,white,1,2018-06-20,15\n"

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeObjectStore) WriteObjectWriterTo(ctx context.Context, writer io.WriterTo, objectName string) error {
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return err
	}
	f.mu.Lock()
	f.objects[objectName] = buf.Bytes()
	f.mu.Unlock()
	return nil
}

func (f *fakeObjectStore) GetSignedUrl(ctx context.Context, bucket string, objectPath string) (string, error) {
	return "https://example.com/" + objectPath, nil
}

func (f *fakeObjectStore) DeleteObject(ctx context.Context, bucket string, objectPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectPath)
	return nil
}

func (f *fakeObjectStore) Bucket() string {
	return "test-bucket"
}

type testServer struct {
	router        *chi.Mux
	crashDir      string
	store         *dataset.Store
	datasetPath   string
	fileProcessor *background.FileProcessor
	objects       *fakeObjectStore
}

func newTestServer(t *testing.T, withSnapshots bool, configure ...func(*Services)) *testServer {
	t.Helper()

	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "vehicles_us.csv")
	require.NoError(t, os.WriteFile(datasetPath, []byte(listingsCSV), 0o644))

	store := dataset.NewStore()
	source := dataset.FileSource{Path: datasetPath}
	_, err := store.LoadFrom(context.Background(), source)
	require.NoError(t, err)

	crashDir := filepath.Join(dir, "crash")
	logger := logging.NewLogger(io.Discard, 5, crashDir)

	fp, err := background.NewFileProcessor(filepath.Join(dir, "uploads"), 1024*1024, logger)
	require.NoError(t, err)

	db := database.NewMemoryDatabaseClient()
	objects := &fakeObjectStore{objects: make(map[string][]byte)}

	var snapshots *usecase.SnapshotUseCase
	if withSnapshots {
		snapshots = usecase.NewSnapshotUseCase(db.SnapshotRepository(), objects, charts.DefaultOptions())
	}

	services := Services{
		Store:         store,
		Source:        source,
		Database:      db,
		Snapshots:     snapshots,
		FileProcessor: fp,
		JobProcessor:  background.NewDatasetJobProcessor(store, nil),
		Logger:        logger,
		DashboardOptions: dashboard.Options{
			SmallManufacturerThreshold: 2,
			PageSize:                   2,
		},
		ChartOptions: charts.Options{Width: 300, Height: 200, Format: "png"},
	}
	for _, fn := range configure {
		fn(&services)
	}
	router := NewRouter(services)

	return &testServer{
		router:        router,
		crashDir:      crashDir,
		store:         store,
		datasetPath:   datasetPath,
		fileProcessor: fp,
		objects:       objects,
	}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	return resp
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message *string         `json:"message"`
}

func decode(t *testing.T, resp *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestDashboardPage(t *testing.T) {
	s := newTestServer(t, false)

	resp := s.do(t, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header().Get("Content-Type"))

	body := resp.Body.String()
	assert.Contains(t, body, "Vehicle types by manufacturer")
	// bmw has a single listing and is hidden below the threshold
	assert.Contains(t, body, "hiding bmw")
	assert.Contains(t, body, `<option value="ford" selected>ford</option>`)
	assert.Contains(t, body, `src="/charts/types.png?`)
	assert.Contains(t, body, "page 1 of 3")
	assert.NotContains(t, body, "Building a histogram of the odometer column")
}

func TestDashboardPage_WidgetValues(t *testing.T) {
	s := newTestServer(t, false)

	query := url.Values{}
	query.Set("small", "1")
	query.Set("manufacturer", "chevrolet")
	query.Set("odometer", "1")
	resp := s.do(t, httptest.NewRequest("GET", "/?"+query.Encode(), nil))
	require.Equal(t, http.StatusOK, resp.Code)

	body := resp.Body.String()
	assert.Contains(t, body, `<option value="chevrolet" selected>chevrolet</option>`)
	assert.Contains(t, body, `<option value="bmw" >bmw</option>`)
	assert.Contains(t, body, "Building a histogram of the odometer column")
	assert.Contains(t, body, "/charts/odometer.png?")
	assert.NotContains(t, body, "hiding")
}

func TestCharts(t *testing.T) {
	s := newTestServer(t, false)

	for _, name := range dashboard.ChartNames {
		t.Run(name, func(t *testing.T) {
			resp := s.do(t, httptest.NewRequest("GET", "/charts/"+name+".png?normalize=1", nil))
			require.Equal(t, http.StatusOK, resp.Code)
			assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
			assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("\x89PNG")))
		})
	}

	resp := s.do(t, httptest.NewRequest("GET", "/charts/types.svg", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/svg+xml", resp.Header().Get("Content-Type"))

	resp = s.do(t, httptest.NewRequest("GET", "/charts/types", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = s.do(t, httptest.NewRequest("GET", "/charts/nope.png", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = s.do(t, httptest.NewRequest("GET", "/charts/types.gif", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	env := decode(t, resp, nil)
	require.NotNil(t, env.Message)
	assert.Contains(t, *env.Message, "gif")
}

func TestListings(t *testing.T) {
	s := newTestServer(t, false)

	resp := s.do(t, httptest.NewRequest("GET", "/api/v1/listings?manufacturer=FORD&limit=2", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var page listingsPage
	decode(t, resp, &page)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Listings, 2)
	for _, l := range page.Listings {
		assert.Equal(t, "ford", l.Manufacturer)
	}

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/listings?min_price=10000&min_model_year=2015", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	decode(t, resp, &page)
	assert.Equal(t, 2, page.Total)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/listings?q=f-150&offset=1", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	decode(t, resp, &page)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Listings, 1)

	for _, bad := range []string{"min_price=cheap", "max_model_year=1.5", "limit=0", "offset=-1"} {
		resp = s.do(t, httptest.NewRequest("GET", "/api/v1/listings?"+bad, nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code, bad)
	}
}

func TestListingCountsAndSummary(t *testing.T) {
	s := newTestServer(t, false)

	resp := s.do(t, httptest.NewRequest("GET", "/api/v1/listings/counts/manufacturer", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var counts []dataset.ValueCount
	decode(t, resp, &counts)
	require.Len(t, counts, 3)
	assert.Equal(t, dataset.ValueCount{Value: "ford", Count: 3}, counts[0])

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/listings/counts/mileage", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/listings/summary/price?manufacturer=chevrolet", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var summary dataset.Summary
	decode(t, resp, &summary)
	assert.Equal(t, 2, summary.Count)
	assert.InDelta(t, 12990, summary.Min, 1e-9)
	assert.InDelta(t, 14900, summary.Max, 1e-9)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/listings/summary/model", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/listings/summary/price?manufacturer=kia", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDatasetInfoAndReload(t *testing.T) {
	s := newTestServer(t, false)

	resp := s.do(t, httptest.NewRequest("GET", "/api/v1/dataset", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var info datasetInfoResponse
	decode(t, resp, &info)
	assert.Equal(t, 6, info.Listings)
	assert.Equal(t, s.datasetPath, info.Source)

	extra := "3000,2008,kia rio,good,4,gas,120000,manual,sedan,blue,,2019-01-01,10\n"
	require.NoError(t, os.WriteFile(s.datasetPath, []byte(listingsCSV+extra), 0o644))

	resp = s.do(t, httptest.NewRequest("POST", "/api/v1/dataset/reload", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 7, s.store.Current().Len())

	// a broken source keeps serving the last good dataset
	require.NoError(t, os.Remove(s.datasetPath))
	resp = s.do(t, httptest.NewRequest("POST", "/api/v1/dataset/reload", nil))
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Equal(t, 7, s.store.Current().Len())
}

func uploadRequest(t *testing.T, field string, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "listings.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/v1/dataset/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestDatasetUpload(t *testing.T) {
	s := newTestServer(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.fileProcessor.Start(ctx)
	defer s.fileProcessor.Stop()

	upload := "price,model,type\n100,kia soul,hatchback\n200,kia rio,sedan\n"
	resp := s.do(t, uploadRequest(t, "file", upload))
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())

	var job background.FileJob
	decode(t, resp, &job)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, "listings.csv", job.Filename)

	require.Eventually(t, func() bool {
		resp := s.do(t, httptest.NewRequest("GET", "/api/v1/dataset/jobs/"+job.ID, nil))
		if resp.Code != http.StatusOK {
			return false
		}
		var current background.FileJob
		decode(t, resp, &current)
		return current.Status == background.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, s.store.Current().Len())
	assert.Equal(t, "upload:listings.csv", s.store.Info().Source)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/dataset/jobs/unknown", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDatasetUpload_Rejected(t *testing.T) {
	s := newTestServer(t, false)

	resp := s.do(t, uploadRequest(t, "other", "price,model\n1,kia rio\n"))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	s.fileProcessor.MiddlewareEstimatedSize.Store(s.fileProcessor.MaxTotalSize())
	resp = s.do(t, uploadRequest(t, "file", "price,model\n1,kia rio\n"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestUploadLimits(t *testing.T) {
	s := newTestServer(t, false)
	s.fileProcessor.MiddlewareEstimatedSize.Store(1024)

	resp := s.do(t, httptest.NewRequest("GET", "/api/v1/uploads/limits", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var limits uploadLimitsResponse
	decode(t, resp, &limits)
	assert.Equal(t, int64(1024*1024), limits.MaxFileSize)
	assert.Equal(t, int64(1024), limits.ReservedFileSize)
	assert.Equal(t, int64(1024*1024-1024), limits.AvailableFileSize)
}

func TestViews(t *testing.T) {
	s := newTestServer(t, false)

	body := strings.NewReader(`{"name": "chevy prices", "query": "manufacturer=chevrolet&normalize=1"}`)
	req := httptest.NewRequest("POST", "/api/v1/views", body)
	req.Header.Set("Content-Type", "application/json")
	resp := s.do(t, req)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created viewResponse
	decode(t, resp, &created)
	assert.Equal(t, "chevy prices", created.Name)
	assert.Equal(t, "chevrolet", created.State["manufacturer"])
	assert.Contains(t, created.URL, "manufacturer=chevrolet")

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/views", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var views []viewResponse
	decode(t, resp, &views)
	require.Len(t, views, 1)

	resp = s.do(t, httptest.NewRequest("GET", "/views/"+created.ID, nil))
	require.Equal(t, http.StatusFound, resp.Code)
	location := resp.Header().Get("Location")
	assert.Contains(t, location, "manufacturer=chevrolet")
	assert.Contains(t, location, "normalize=1")

	resp = s.do(t, httptest.NewRequest("DELETE", "/api/v1/views/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/views/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/views/not-an-id", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = httptest.NewRequest("POST", "/api/v1/views", strings.NewReader(`{"name": " "}`))
	req.Header.Set("Content-Type", "application/json")
	resp = s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSaveViewFromPage(t *testing.T) {
	s := newTestServer(t, false)

	form := url.Values{}
	form.Set("name", "fair condition")
	form.Set("query", "condition=fair&small=1")
	req := httptest.NewRequest("POST", "/views", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp := s.do(t, req)
	require.Equal(t, http.StatusSeeOther, resp.Code)
	location := resp.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/views/"))

	resp = s.do(t, httptest.NewRequest("GET", location, nil))
	require.Equal(t, http.StatusFound, resp.Code)
	assert.Contains(t, resp.Header().Get("Location"), "condition=fair")

	resp = s.do(t, httptest.NewRequest("GET", "/", nil))
	assert.Contains(t, resp.Body.String(), "fair condition")
}

func TestSnapshots(t *testing.T) {
	s := newTestServer(t, true)

	resp := s.do(t, httptest.NewRequest("POST", "/api/v1/snapshots?manufacturer=chevrolet&odometer=1", nil))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var snapshot struct {
		SnapshotID string            `json:"snapshot_id"`
		State      map[string]string `json:"state"`
		Files      []struct {
			FilePath  string `json:"file_path"`
			SignedURL string `json:"signed_url"`
		} `json:"files"`
	}
	decode(t, resp, &snapshot)
	require.NotEmpty(t, snapshot.SnapshotID)
	assert.Len(t, snapshot.Files, len(dashboard.ChartNames))
	assert.Len(t, s.objects.objects, len(dashboard.ChartNames))
	assert.Equal(t, "chevrolet", snapshot.State["manufacturer"])

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/snapshots", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/snapshots/"+snapshot.SnapshotID, nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/snapshots/missing", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSnapshots_WithoutStorage(t *testing.T) {
	s := newTestServer(t, false)

	resp := s.do(t, httptest.NewRequest("POST", "/api/v1/snapshots", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/snapshots", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestHeavyRoutesAreRateLimited(t *testing.T) {
	s := newTestServer(t, true, func(services *Services) {
		services.HeavyRouteLimiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	})

	resp := s.do(t, httptest.NewRequest("POST", "/api/v1/dataset/reload", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = s.do(t, httptest.NewRequest("POST", "/api/v1/snapshots", nil))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)

	// reads are not limited
	resp = s.do(t, httptest.NewRequest("GET", "/api/v1/snapshots", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestPing(t *testing.T) {
	s := newTestServer(t, false)

	resp := s.do(t, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestHandlerFunc_Error(t *testing.T) {
	handler := HandlerFunc(func(w http.ResponseWriter, r *http.Request) *HandlerError {
		return NewHandlerError("nope", http.StatusTeapot)
	})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusTeapot, resp.Code)
	env := decode(t, resp, nil)
	require.NotNil(t, env.Message)
	assert.Equal(t, "nope", *env.Message)
	assert.JSONEq(t, "[]", string(env.Data))
}

func TestHandlerFunc_PanicWritesCrashFile(t *testing.T) {
	s := newTestServer(t, false)
	s.router.Get("/boom", HandlerFunc(func(w http.ResponseWriter, r *http.Request) *HandlerError {
		panic(errors.New("boom"))
	}).ServeHTTP)

	resp := s.do(t, httptest.NewRequest("GET", "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)

	entries, err := os.ReadDir(s.crashDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(filepath.Join(s.crashDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Panic: boom")
	assert.Contains(t, string(content), "/boom")
}
