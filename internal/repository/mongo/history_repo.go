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
	completionCollectionName = "action_completions"
	receivedCollectionName   = "workouts_received"
)

// mongoCompletionRepository implements repository.CompletionRepository.
// Completions are append-only; there is deliberately no Update or single
// Delete here.
type mongoCompletionRepository struct {
	collection *mongo.Collection
}

// NewMongoCompletionRepository creates a new ActionCompletion repository backed by MongoDB.
func NewMongoCompletionRepository(db *mongo.Database) repository.CompletionRepository {
	return &mongoCompletionRepository{
		collection: db.Collection(completionCollectionName),
	}
}

// Create inserts a completion record.
func (r *mongoCompletionRepository) Create(ctx context.Context, completion *domain.ActionCompletion) (primitive.ObjectID, error) {
	if completion.SessionID == primitive.NilObjectID || completion.ActionID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("completion session and action IDs are required")
	}

	if completion.ID == primitive.NilObjectID {
		completion.ID = primitive.NewObjectID()
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, completion)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// ListBySession retrieves a session's completions, oldest first.
func (r *mongoCompletionRepository) ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.ActionCompletion, error) {
	return r.find(ctx, bson.M{"sessionId": sessionID})
}

// ListByAction retrieves every completion referencing one action.
func (r *mongoCompletionRepository) ListByAction(ctx context.Context, actionID primitive.ObjectID) ([]domain.ActionCompletion, error) {
	return r.find(ctx, bson.M{"actionId": actionID})
}

// List retrieves every completion record.
func (r *mongoCompletionRepository) List(ctx context.Context) ([]domain.ActionCompletion, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoCompletionRepository) find(ctx context.Context, filter bson.M) ([]domain.ActionCompletion, error) {
	var completions []domain.ActionCompletion

	findOptions := options.Find().SetSort(bson.D{{Key: "completedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &completions); err != nil {
		return nil, err
	}
	return completions, nil
}

// DeleteAll clears the collection. Import-with-overwrite only.
func (r *mongoCompletionRepository) DeleteAll(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}

// mongoReceivedRepository implements repository.ReceivedRepository.
type mongoReceivedRepository struct {
	collection *mongo.Collection
}

// NewMongoReceivedRepository creates a new WorkoutReceived repository backed by MongoDB.
func NewMongoReceivedRepository(db *mongo.Database) repository.ReceivedRepository {
	return &mongoReceivedRepository{
		collection: db.Collection(receivedCollectionName),
	}
}

// Create inserts a redemption record.
func (r *mongoReceivedRepository) Create(ctx context.Context, received *domain.WorkoutReceived) (primitive.ObjectID, error) {
	if received.SessionID == primitive.NilObjectID || received.WorkoutID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("received session and workout IDs are required")
	}

	if received.ID == primitive.NilObjectID {
		received.ID = primitive.NewObjectID()
	}
	if received.ReceivedAt.IsZero() {
		received.ReceivedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, received)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// ListBySession retrieves a session's redemptions, oldest first.
func (r *mongoReceivedRepository) ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.WorkoutReceived, error) {
	return r.find(ctx, bson.M{"sessionId": sessionID})
}

// ListByWorkout retrieves every redemption referencing one workout.
func (r *mongoReceivedRepository) ListByWorkout(ctx context.Context, workoutID primitive.ObjectID) ([]domain.WorkoutReceived, error) {
	return r.find(ctx, bson.M{"workoutId": workoutID})
}

// List retrieves every redemption record.
func (r *mongoReceivedRepository) List(ctx context.Context) ([]domain.WorkoutReceived, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoReceivedRepository) find(ctx context.Context, filter bson.M) ([]domain.WorkoutReceived, error) {
	var received []domain.WorkoutReceived

	findOptions := options.Find().SetSort(bson.D{{Key: "receivedAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &received); err != nil {
		return nil, err
	}
	return received, nil
}

// DeleteAll clears the collection. Import-with-overwrite only.
func (r *mongoReceivedRepository) DeleteAll(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}

// EnsureHistoryIndexes creates necessary indexes for the history collections.
func EnsureHistoryIndexes(ctx context.Context, db *mongo.Database) {
	completionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "completedAt", Value: 1}}},
		{Keys: bson.D{{Key: "actionId", Value: 1}}},
	}
	receivedIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}, {Key: "receivedAt", Value: 1}}},
		{Keys: bson.D{{Key: "workoutId", Value: 1}}},
	}

	if _, err := db.Collection(completionCollectionName).Indexes().CreateMany(ctx, completionIndexes); err != nil {
		// log.Printf("WARN: Failed to create completion indexes: %v", err)
	}
	if _, err := db.Collection(receivedCollectionName).Indexes().CreateMany(ctx, receivedIndexes); err != nil {
		// log.Printf("WARN: Failed to create received indexes: %v", err)
	}
}
