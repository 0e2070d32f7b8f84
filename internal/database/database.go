package database

import (
	"context"
	"fmt"

	"github.com/hytech-racing/listings-dashboard/internal/database/repository"
	"github.com/hytech-racing/listings-dashboard/internal/database/usecase"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// A DatabaseClient establishes a connection to the MongoDB database and allows
// for interfacing through the different collections through it.
// Whoever uses this struct to establish a connection to the database is responsible
// for calling the Disconnect() method to gracefully disconnect from the database
type DatabaseClient struct {
	databaseClient          *mongo.Client
	dashboardViewRepository repository.DashboardViewRepository
	snapshotRepository      repository.SnapshotRepository
}

const ListingsDashboardDatabase = "listings_dashboard_db"

func NewDatabaseClient(ctx context.Context, uri string) (*DatabaseClient, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	listingsDatabase := client.Database(ListingsDashboardDatabase)
	if listingsDatabase == nil {
		return nil, fmt.Errorf("could not connect to database: %v", ListingsDashboardDatabase)
	}

	dashboardViewRepository, err := repository.NewMongoDashboardViewRepository(client, listingsDatabase)
	if err != nil {
		return nil, fmt.Errorf("could not create dashboardViewRepository: %w", err)
	}

	snapshotRepository, err := repository.NewMongoSnapshotRepository(client, listingsDatabase)
	if err != nil {
		return nil, fmt.Errorf("could not create snapshotRepository: %w", err)
	}

	return &DatabaseClient{
		databaseClient:          client,
		dashboardViewRepository: dashboardViewRepository,
		snapshotRepository:      snapshotRepository,
	}, nil
}

// NewMemoryDatabaseClient keeps everything in process memory for running
// without MongoDB
func NewMemoryDatabaseClient() *DatabaseClient {
	return &DatabaseClient{
		dashboardViewRepository: repository.NewMemoryDashboardViewRepository(),
		snapshotRepository:      repository.NewMemorySnapshotRepository(),
	}
}

func (client *DatabaseClient) DashboardViewUseCase() *usecase.DashboardViewUseCase {
	return usecase.NewDashboardViewUseCase(client.dashboardViewRepository)
}

func (client *DatabaseClient) SnapshotRepository() repository.SnapshotRepository {
	return client.snapshotRepository
}

// Persistent reports whether the client is backed by MongoDB
func (client *DatabaseClient) Persistent() bool {
	return client.databaseClient != nil
}

func (client *DatabaseClient) Disconnect(ctx context.Context) error {
	if client.databaseClient == nil {
		return nil
	}
	err := client.databaseClient.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("failed to disconnect MongoDB client: %w", err)
	}
	return nil
}
