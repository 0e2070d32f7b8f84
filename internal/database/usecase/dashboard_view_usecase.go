package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hytech-racing/listings-dashboard/internal/dashboard"
	"github.com/hytech-racing/listings-dashboard/internal/database/repository"
	"github.com/hytech-racing/listings-dashboard/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidID   = errors.New("invalid id")
	ErrInvalidName = errors.New("invalid view name")
)

const maxViewNameLength = 120

type DashboardViewUseCase struct {
	dashboardViewRepo repository.DashboardViewRepository
}

func NewDashboardViewUseCase(dashboardViewRepo repository.DashboardViewRepository) *DashboardViewUseCase {
	return &DashboardViewUseCase{
		dashboardViewRepo: dashboardViewRepo,
	}
}

// CreateView saves the widget values under a name
func (uc *DashboardViewUseCase) CreateView(ctx context.Context, name string, state dashboard.State) (*models.DashboardViewModel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: must not be empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > maxViewNameLength {
		return nil, fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxViewNameLength)
	}

	model := &models.DashboardViewModel{
		Name:      name,
		State:     state.Map(),
		CreatedAt: time.Now().UTC(),
	}
	return uc.dashboardViewRepo.Save(ctx, model)
}

func (uc *DashboardViewUseCase) GetViews(ctx context.Context, limit int64) ([]models.DashboardViewModel, error) {
	return uc.dashboardViewRepo.GetAll(ctx, limit)
}

func (uc *DashboardViewUseCase) GetViewById(ctx context.Context, idHex string) (*models.DashboardViewModel, error) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, idHex)
	}
	return uc.dashboardViewRepo.GetFromId(ctx, id)
}

// GetViewState returns the widget values stored in a view
func (uc *DashboardViewUseCase) GetViewState(ctx context.Context, idHex string) (dashboard.State, error) {
	view, err := uc.GetViewById(ctx, idHex)
	if err != nil {
		return dashboard.State{}, err
	}
	return dashboard.StateFromMap(view.State), nil
}

func (uc *DashboardViewUseCase) DeleteViewById(ctx context.Context, idHex string) error {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, idHex)
	}
	return uc.dashboardViewRepo.DeleteFromId(ctx, id)
}
