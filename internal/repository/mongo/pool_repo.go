package mongo

import (
	"context"
	"errors"
	"time"

	"sweatpoints/fitness-app/internal/domain"
	"sweatpoints/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	poolCollectionName       = "workout_pools"
	membershipCollectionName = "workout_pool_workouts"
)

// mongoPoolRepository implements repository.PoolRepository
type mongoPoolRepository struct {
	pools       *mongo.Collection
	memberships *mongo.Collection
}

// NewMongoPoolRepository creates a new WorkoutPool repository backed by MongoDB.
func NewMongoPoolRepository(db *mongo.Database) repository.PoolRepository {
	return &mongoPoolRepository{
		pools:       db.Collection(poolCollectionName),
		memberships: db.Collection(membershipCollectionName),
	}
}

// Create inserts a new pool.
func (r *mongoPoolRepository) Create(ctx context.Context, pool *domain.WorkoutPool) (primitive.ObjectID, error) {
	if pool.Name == "" {
		return primitive.NilObjectID, errors.New("pool name is required")
	}

	if pool.ID == primitive.NilObjectID {
		pool.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if pool.CreatedAt.IsZero() {
		pool.CreatedAt = now
	}
	pool.UpdatedAt = now

	result, err := r.pools.InsertOne(ctx, pool)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves a pool by its ID.
func (r *mongoPoolRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPool, error) {
	var pool domain.WorkoutPool
	err := r.pools.FindOne(ctx, bson.M{"_id": id}).Decode(&pool)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &pool, nil
}

// List retrieves every pool.
func (r *mongoPoolRepository) List(ctx context.Context) ([]domain.WorkoutPool, error) {
	var pools []domain.WorkoutPool

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.pools.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &pools); err != nil {
		return nil, err
	}
	return pools, nil
}

// Delete removes a pool and its memberships.
func (r *mongoPoolRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.pools.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	_, err = r.memberships.DeleteMany(ctx, bson.M{"poolId": id})
	return err
}

// DeleteAll clears the pools collection. Import-with-overwrite only.
func (r *mongoPoolRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pools.DeleteMany(ctx, bson.M{})
	return err
}

// AddMembership links a workout into a pool. The compound unique index on
// (poolId, workoutId) rejects duplicates.
func (r *mongoPoolRepository) AddMembership(ctx context.Context, m *domain.PoolMembership) (primitive.ObjectID, error) {
	if m.ID == primitive.NilObjectID {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	result, err := r.memberships.InsertOne(ctx, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// RemoveMembership unlinks a workout from a pool.
func (r *mongoPoolRepository) RemoveMembership(ctx context.Context, poolID, workoutID primitive.ObjectID) error {
	result, err := r.memberships.DeleteOne(ctx, bson.M{"poolId": poolID, "workoutId": workoutID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListMemberships retrieves every pool membership record.
func (r *mongoPoolRepository) ListMemberships(ctx context.Context) ([]domain.PoolMembership, error) {
	var memberships []domain.PoolMembership

	cursor, err := r.memberships.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListMembershipsByPool retrieves the membership records for one pool.
func (r *mongoPoolRepository) ListMembershipsByPool(ctx context.Context, poolID primitive.ObjectID) ([]domain.PoolMembership, error) {
	var memberships []domain.PoolMembership

	cursor, err := r.memberships.Find(ctx, bson.M{"poolId": poolID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// DeleteAllMemberships clears the membership collection. Import-with-overwrite only.
func (r *mongoPoolRepository) DeleteAllMemberships(ctx context.Context) error {
	_, err := r.memberships.DeleteMany(ctx, bson.M{})
	return err
}

// EnsurePoolIndexes creates necessary indexes for the pool collections.
func EnsurePoolIndexes(ctx context.Context, db *mongo.Database) {
	memberships := db.Collection(membershipCollectionName)
	indexes := []mongo.IndexModel{
		{
			// One membership row per (pool, workout) pair.
			Keys:    bson.D{{Key: "poolId", Value: 1}, {Key: "workoutId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := memberships.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", memberships.Name(), err)
	}
}
