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

const SnapshotCollection string = "snapshots"

type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *models.SnapshotModel) (*models.SnapshotModel, error)
	GetRecent(ctx context.Context, limit int64) ([]models.SnapshotModel, error)
	GetFromSnapshotId(ctx context.Context, snapshotID string) (*models.SnapshotModel, error)
}

type MongoSnapshotRepository struct {
	dbClient   *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMongoSnapshotRepository(dbClient *mongo.Client, database *mongo.Database) (*MongoSnapshotRepository, error) {
	collection := database.Collection(SnapshotCollection)
	if collection == nil {
		return nil, fmt.Errorf("could not get collection %s", SnapshotCollection)
	}

	return &MongoSnapshotRepository{
		dbClient:   dbClient,
		db:         database,
		collection: collection,
	}, nil
}

func (repo *MongoSnapshotRepository) Save(ctx context.Context, snapshot *models.SnapshotModel) (*models.SnapshotModel, error) {
	res, err := repo.collection.InsertOne(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("could not insert snapshot %s, received error: %w", snapshot.SnapshotID, err)
	}

	snapshot.Id = res.InsertedID.(primitive.ObjectID)
	return snapshot, nil
}

// GetRecent returns the latest snapshots, newest first
func (repo *MongoSnapshotRepository) GetRecent(ctx context.Context, limit int64) ([]models.SnapshotModel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := repo.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("could not find snapshots, received error: %w", err)
	}

	var snapshots []models.SnapshotModel
	if err = cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}

	if snapshots == nil {
		snapshots = make([]models.SnapshotModel, 0)
	}

	return snapshots, nil
}

func (repo *MongoSnapshotRepository) GetFromSnapshotId(ctx context.Context, snapshotID string) (*models.SnapshotModel, error) {
	result := repo.collection.FindOne(ctx, bson.M{"snapshot_id": snapshotID})
	if errors.Is(result.Err(), mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if result.Err() != nil {
		return nil, result.Err()
	}

	var model models.SnapshotModel
	if err := result.Decode(&model); err != nil {
		return nil, fmt.Errorf("could not decode result into model: %w", err)
	}

	return &model, nil
}
