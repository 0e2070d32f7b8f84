package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/hytech-racing/listings-dashboard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryDashboardViewRepository keeps views in process memory. It is used
// when no MongoDB is configured, views are lost on restart.
type MemoryDashboardViewRepository struct {
	mu    sync.RWMutex
	views map[primitive.ObjectID]models.DashboardViewModel
}

func NewMemoryDashboardViewRepository() *MemoryDashboardViewRepository {
	return &MemoryDashboardViewRepository{
		views: make(map[primitive.ObjectID]models.DashboardViewModel),
	}
}

func (repo *MemoryDashboardViewRepository) Save(ctx context.Context, view *models.DashboardViewModel) (*models.DashboardViewModel, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	view.Id = primitive.NewObjectID()
	repo.views[view.Id] = *view
	return view, nil
}

func (repo *MemoryDashboardViewRepository) GetAll(ctx context.Context, limit int64) ([]models.DashboardViewModel, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	views := make([]models.DashboardViewModel, 0, len(repo.views))
	for _, v := range repo.views {
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].Id.Hex() > views[j].Id.Hex()
		}
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	if limit > 0 && int64(len(views)) > limit {
		views = views[:limit]
	}
	return views, nil
}

func (repo *MemoryDashboardViewRepository) GetFromId(ctx context.Context, id primitive.ObjectID) (*models.DashboardViewModel, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	view, ok := repo.views[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &view, nil
}

func (repo *MemoryDashboardViewRepository) DeleteFromId(ctx context.Context, id primitive.ObjectID) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.views[id]; !ok {
		return ErrNotFound
	}
	delete(repo.views, id)
	return nil
}

// MemorySnapshotRepository keeps snapshot records in process memory
type MemorySnapshotRepository struct {
	mu        sync.RWMutex
	snapshots []models.SnapshotModel
}

func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{}
}

func (repo *MemorySnapshotRepository) Save(ctx context.Context, snapshot *models.SnapshotModel) (*models.SnapshotModel, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	snapshot.Id = primitive.NewObjectID()
	stored := *snapshot
	stored.Files = append([]models.FileModel(nil), snapshot.Files...)
	repo.snapshots = append(repo.snapshots, stored)
	return snapshot, nil
}

func (repo *MemorySnapshotRepository) GetRecent(ctx context.Context, limit int64) ([]models.SnapshotModel, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	out := make([]models.SnapshotModel, 0, len(repo.snapshots))
	for i := len(repo.snapshots) - 1; i >= 0; i-- {
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
		s := repo.snapshots[i]
		s.Files = append([]models.FileModel(nil), s.Files...)
		out = append(out, s)
	}
	return out, nil
}

func (repo *MemorySnapshotRepository) GetFromSnapshotId(ctx context.Context, snapshotID string) (*models.SnapshotModel, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	for _, s := range repo.snapshots {
		if s.SnapshotID == snapshotID {
			s.Files = append([]models.FileModel(nil), s.Files...)
			return &s, nil
		}
	}
	return nil, ErrNotFound
}
