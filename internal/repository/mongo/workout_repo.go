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

const workoutCollectionName = "workouts"

// mongoWorkoutRepository implements repository.WorkoutRepository
type mongoWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutRepository creates a new Workout repository backed by MongoDB.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		collection: db.Collection(workoutCollectionName),
	}
}

// Create inserts a new workout into the catalog.
func (r *mongoWorkoutRepository) Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error) {
	if workout.Name == "" {
		return primitive.NilObjectID, errors.New("workout name is required")
	}

	if workout.ID == primitive.NilObjectID {
		workout.ID = primitive.NewObjectID()
	}
	if workout.State == "" {
		workout.State = domain.WorkoutVisible
	}
	now := time.Now().UTC()
	if workout.CreatedAt.IsZero() {
		workout.CreatedAt = now
	}
	workout.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, workout)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a workout by its ID, regardless of lifecycle state.
// History records must resolve hidden and deleted workouts too.
func (r *mongoWorkoutRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	var workout domain.Workout
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&workout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// List retrieves every workout in the catalog.
func (r *mongoWorkoutRepository) List(ctx context.Context) ([]domain.Workout, error) {
	var workouts []domain.Workout

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// Update modifies a workout's editable fields.
func (r *mongoWorkoutRepository) Update(ctx context.Context, workout *domain.Workout) error {
	if workout.ID == primitive.NilObjectID {
		return errors.New("workout ID is required for update")
	}
	if workout.Name == "" {
		return errors.New("workout name cannot be empty")
	}

	filter := bson.M{"_id": workout.ID}
	// Preloaded is set at seed time and never flips on update.
	update := bson.M{
		"$set": bson.M{
			"name":            workout.Name,
			"durationMinutes": workout.DurationMinutes,
			"difficulty":      workout.Difficulty,
			"updatedAt":       time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetState transitions the workout's lifecycle state.
func (r *mongoWorkoutRepository) SetState(ctx context.Context, id primitive.ObjectID, state domain.WorkoutState) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"state":     state,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteAllNonPreloaded removes every workout except the system-seeded ones.
// Only the import-with-overwrite path calls this.
func (r *mongoWorkoutRepository) DeleteAllNonPreloaded(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"preloaded": false})
	return err
}

// EnsureWorkoutIndexes creates necessary indexes for the workouts collection.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "state", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
