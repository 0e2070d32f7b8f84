package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hytech-racing/listings-dashboard/internal/charts"
	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/database/repository"
	"github.com/hytech-racing/listings-dashboard/internal/models"
	"golang.org/x/sync/errgroup"
)

// ObjectStore is the part of the S3 repository snapshots need
type ObjectStore interface {
	WriteObjectWriterTo(ctx context.Context, writer io.WriterTo, objectName string) error
	GetSignedUrl(ctx context.Context, bucket string, objectPath string) (string, error)
	DeleteObject(ctx context.Context, bucket string, objectPath string) error
	Bucket() string
}

const maxConcurrentUploads = 3

type SnapshotUseCase struct {
	snapshotRepo repository.SnapshotRepository
	objectStore  ObjectStore
	chartOptions charts.Options
}

func NewSnapshotUseCase(snapshotRepo repository.SnapshotRepository, objectStore ObjectStore, chartOptions charts.Options) *SnapshotUseCase {
	if chartOptions.Format == "" {
		chartOptions.Format = charts.DefaultOptions().Format
	}
	return &SnapshotUseCase{
		snapshotRepo: snapshotRepo,
		objectStore:  objectStore,
		chartOptions: chartOptions,
	}
}

// CreateSnapshot renders every chart of view, uploads them to S3 and records
// where they were put
func (uc *SnapshotUseCase) CreateSnapshot(ctx context.Context, view *dashboard.View, datasetSource string) (*models.SnapshotModel, error) {
	snapshotID := uuid.NewString()
	now := time.Now().UTC()
	prefix := fmt.Sprintf("snapshots/%s/%s", now.Format("2006-01-02"), snapshotID)

	names := make([]string, 0, len(dashboard.ChartNames))
	for _, name := range dashboard.ChartNames {
		if name == dashboard.ChartOdometer && !view.State.ShowOdometerHistogram {
			continue
		}
		names = append(names, name)
	}

	// charts are rendered and uploaded concurrently, each into its own slot
	files := make([]models.FileModel, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			writer, err := view.Chart(name, uc.chartOptions)
			if err != nil {
				return fmt.Errorf("could not render chart %s: %w", name, err)
			}

			fileName := fmt.Sprintf("%s.%s", name, uc.chartOptions.Format)
			objectPath := fmt.Sprintf("%s/%s", prefix, fileName)
			if err := uc.objectStore.WriteObjectWriterTo(gctx, writer, objectPath); err != nil {
				return err
			}

			files[i] = models.FileModel{
				AwsBucket: uc.objectStore.Bucket(),
				FilePath:  objectPath,
				FileName:  fileName,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		uc.deleteFiles(ctx, files)
		return nil, err
	}

	snapshot := &models.SnapshotModel{
		SnapshotID:    snapshotID,
		CreatedAt:     now,
		State:         view.State.Map(),
		DatasetSource: datasetSource,
		Files:         files,
	}

	snapshot, err := uc.snapshotRepo.Save(ctx, snapshot)
	if err != nil {
		uc.deleteFiles(ctx, files)
		return nil, err
	}

	return snapshot, uc.signFiles(ctx, snapshot)
}

func (uc *SnapshotUseCase) GetRecentSnapshots(ctx context.Context, limit int64) ([]models.SnapshotModel, error) {
	snapshots, err := uc.snapshotRepo.GetRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i := range snapshots {
		if err := uc.signFiles(ctx, &snapshots[i]); err != nil {
			return nil, err
		}
	}
	return snapshots, nil
}

func (uc *SnapshotUseCase) GetSnapshot(ctx context.Context, snapshotID string) (*models.SnapshotModel, error) {
	snapshot, err := uc.snapshotRepo.GetFromSnapshotId(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	return snapshot, uc.signFiles(ctx, snapshot)
}

// deleteFiles removes the charts of a snapshot that could not be completed.
// Files that were never uploaded have no path and are skipped.
func (uc *SnapshotUseCase) deleteFiles(ctx context.Context, files []models.FileModel) {
	for _, file := range files {
		if file.FilePath == "" {
			continue
		}
		// best effort, the upload error is the one returned
		_ = uc.objectStore.DeleteObject(ctx, file.AwsBucket, file.FilePath)
	}
}

func (uc *SnapshotUseCase) signFiles(ctx context.Context, snapshot *models.SnapshotModel) error {
	for i, file := range snapshot.Files {
		signed, err := uc.objectStore.GetSignedUrl(ctx, file.AwsBucket, file.FilePath)
		if err != nil {
			return err
		}
		snapshot.Files[i].SignedURL = signed
	}
	return nil
}
