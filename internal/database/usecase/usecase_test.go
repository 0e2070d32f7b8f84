package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/hytech-racing/listings-dashboard/internal/charts"
	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/dataset"
	"github.com/hytech-racing/listings-dashboard/internal/database/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) WriteObjectWriterTo(ctx context.Context, writer io.WriterTo, objectName string) error {
	if f.failOn != "" && strings.Contains(objectName, f.failOn) {
		return errors.New("upload failed")
	}
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
	return "https://" + bucket + ".example/" + objectPath + "?signed", nil
}

func (f *fakeObjectStore) DeleteObject(ctx context.Context, bucket string, objectPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, objectPath)
	return nil
}

func (f *fakeObjectStore) Bucket() string {
	return "snapshots-bucket"
}

func testView(t *testing.T, state dashboard.State) *dashboard.View {
	t.Helper()
	frame, _, err := dataset.Load(strings.NewReader("price,model,odometer,condition,model_year,type\n" +
		"100,ford focus,1000,good,2010,sedan\n" +
		"200,kia soul,2000,fair,2012,hatchback\n"))
	require.NoError(t, err)
	return dashboard.Build(frame, state, dashboard.Options{SmallManufacturerThreshold: 1})
}

func TestDashboardViewUseCase_Lifecycle(t *testing.T) {
	ctx := context.Background()
	uc := NewDashboardViewUseCase(repository.NewMemoryDashboardViewRepository())

	state := dashboard.State{Manufacturer: "kia", Normalize: true, Page: 1}
	saved, err := uc.CreateView(ctx, "  kia prices ", state)
	require.NoError(t, err)
	assert.Equal(t, "kia prices", saved.Name)
	assert.False(t, saved.Id.IsZero())

	views, err := uc.GetViews(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	got, err := uc.GetViewState(ctx, saved.Id.Hex())
	require.NoError(t, err)
	assert.Equal(t, state, got)

	require.NoError(t, uc.DeleteViewById(ctx, saved.Id.Hex()))
	_, err = uc.GetViewById(ctx, saved.Id.Hex())
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, uc.DeleteViewById(ctx, saved.Id.Hex()), repository.ErrNotFound)
}

func TestDashboardViewUseCase_Validation(t *testing.T) {
	ctx := context.Background()
	uc := NewDashboardViewUseCase(repository.NewMemoryDashboardViewRepository())

	_, err := uc.CreateView(ctx, "   ", dashboard.State{})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = uc.CreateView(ctx, strings.Repeat("x", 500), dashboard.State{})
	assert.ErrorIs(t, err, ErrInvalidName)

	// the limit is in characters, not bytes
	accented, err := uc.CreateView(ctx, strings.Repeat("é", maxViewNameLength), dashboard.State{})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("é", maxViewNameLength), accented.Name)

	_, err = uc.CreateView(ctx, strings.Repeat("é", maxViewNameLength+1), dashboard.State{})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = uc.GetViewById(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.ErrorIs(t, uc.DeleteViewById(ctx, "not-an-id"), ErrInvalidID)
}

func TestSnapshotUseCase_CreateSnapshot(t *testing.T) {
	ctx := context.Background()
	store := newFakeObjectStore()
	uc := NewSnapshotUseCase(repository.NewMemorySnapshotRepository(), store, charts.Options{})

	snapshot, err := uc.CreateSnapshot(ctx, testView(t, dashboard.State{}), "vehicles_us.csv")
	require.NoError(t, err)

	// the odometer histogram is only exported when it was requested
	assert.Len(t, snapshot.Files, len(dashboard.ChartNames)-1)
	assert.Len(t, store.objects, len(dashboard.ChartNames)-1)
	for _, file := range snapshot.Files {
		assert.Equal(t, "snapshots-bucket", file.AwsBucket)
		assert.Contains(t, file.FilePath, snapshot.SnapshotID)
		assert.True(t, strings.HasSuffix(file.FileName, ".png"))
		assert.Contains(t, file.SignedURL, "?signed")
	}
	assert.Equal(t, "vehicles_us.csv", snapshot.DatasetSource)

	withOdometer, err := uc.CreateSnapshot(ctx, testView(t, dashboard.State{ShowOdometerHistogram: true}), "vehicles_us.csv")
	require.NoError(t, err)
	require.Len(t, withOdometer.Files, len(dashboard.ChartNames))

	// files keep the chart order even though they are uploaded concurrently
	for i, name := range dashboard.ChartNames {
		assert.Equal(t, name+".png", withOdometer.Files[i].FileName)
	}

	recent, err := uc.GetRecentSnapshots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, withOdometer.SnapshotID, recent[0].SnapshotID)
	assert.NotEmpty(t, recent[0].Files[0].SignedURL)

	got, err := uc.GetSnapshot(ctx, snapshot.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.SnapshotID, got.SnapshotID)

	_, err = uc.GetSnapshot(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSnapshotUseCase_UploadFailure(t *testing.T) {
	store := newFakeObjectStore()
	store.failOn = dashboard.ChartPriceCompare
	repo := repository.NewMemorySnapshotRepository()
	uc := NewSnapshotUseCase(repo, store, charts.DefaultOptions())

	_, err := uc.CreateSnapshot(context.Background(), testView(t, dashboard.State{}), "vehicles_us.csv")
	assert.Error(t, err)

	// charts uploaded before the failure are removed again
	assert.Empty(t, store.objects)

	recent, err := repo.GetRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
