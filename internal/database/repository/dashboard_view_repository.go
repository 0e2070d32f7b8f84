package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/hytech-racing/listings-dashboard/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DashboardViewCollection string = "dashboard_views"

// ErrNotFound is returned when no document matches an id
var ErrNotFound = errors.New("document not found")

// DashboardViewRepository contains the methods any db implementation needs to implement to store saved dashboard views
type DashboardViewRepository interface {
	Save(ctx context.Context, view *models.DashboardViewModel) (*models.DashboardViewModel, error)
	GetAll(ctx context.Context, limit int64) ([]models.DashboardViewModel, error)
	GetFromId(ctx context.Context, id primitive.ObjectID) (*models.DashboardViewModel, error)
	DeleteFromId(ctx context.Context, id primitive.ObjectID) error
}

type MongoDashboardViewRepository struct {
	dbClient   *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMongoDashboardViewRepository(dbClient *mongo.Client, database *mongo.Database) (*MongoDashboardViewRepository, error) {
	collection := database.Collection(DashboardViewCollection)
	if collection == nil {
		return nil, fmt.Errorf("could not get collection %s", DashboardViewCollection)
	}

	return &MongoDashboardViewRepository{
		dbClient:   dbClient,
		db:         database,
		collection: collection,
	}, nil
}

// Inserts a DashboardViewModel into the MongoDB database
func (repo *MongoDashboardViewRepository) Save(ctx context.Context, view *models.DashboardViewModel) (*models.DashboardViewModel, error) {
	res, err := repo.collection.InsertOne(ctx, view)
	if err != nil {
		return nil, fmt.Errorf("could not insert dashboard view %q, received error: %w", view.Name, err)
	}

	view.Id = res.InsertedID.(primitive.ObjectID)
	return view, nil
}

// GetAll returns saved views, newest first
func (repo *MongoDashboardViewRepository) GetAll(ctx context.Context, limit int64) ([]models.DashboardViewModel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := repo.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("could not find dashboard views, received error: %w", err)
	}

	var views []models.DashboardViewModel
	if err = cursor.All(ctx, &views); err != nil {
		return nil, err
	}

	if views == nil {
		views = make([]models.DashboardViewModel, 0)
	}

	return views, nil
}

// Get a DashboardViewModel from the MongoDB database from its ID
func (repo *MongoDashboardViewRepository) GetFromId(ctx context.Context, id primitive.ObjectID) (*models.DashboardViewModel, error) {
	filter := bson.M{"_id": id}
	result := repo.collection.FindOne(ctx, filter)
	if errors.Is(result.Err(), mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if result.Err() != nil {
		return nil, result.Err()
	}

	var model models.DashboardViewModel
	err := result.Decode(&model)
	if err != nil {
		return nil, fmt.Errorf("could not decode result into model: %w", err)
	}

	return &model, nil
}

// Delete a DashboardViewModel from the MongoDB database from its ID
func (repo *MongoDashboardViewRepository) DeleteFromId(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{"_id": id}
	res, err := repo.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}
