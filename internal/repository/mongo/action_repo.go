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

const actionCollectionName = "actions"

// mongoActionRepository implements repository.ActionRepository
type mongoActionRepository struct {
	collection *mongo.Collection
}

// NewMongoActionRepository creates a new Action repository backed by MongoDB.
func NewMongoActionRepository(db *mongo.Database) repository.ActionRepository {
	return &mongoActionRepository{
		collection: db.Collection(actionCollectionName),
	}
}

// Create inserts a new action.
func (r *mongoActionRepository) Create(ctx context.Context, action *domain.Action) (primitive.ObjectID, error) {
	if action.Description == "" {
		return primitive.NilObjectID, errors.New("action description is required")
	}
	if action.Points <= 0 {
		return primitive.NilObjectID, errors.New("action point value must be positive")
	}

	if action.ID == primitive.NilObjectID {
		action.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = now
	}
	action.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, action)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}
	return insertedID, nil
}

// GetByID retrieves an action by its ID.
func (r *mongoActionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Action, error) {
	var action domain.Action
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&action)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &action, nil
}

// List retrieves all actions.
func (r *mongoActionRepository) List(ctx context.Context) ([]domain.Action, error) {
	var actions []domain.Action

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &actions); err != nil {
		return nil, err
	}
	return actions, nil
}

// Update modifies an action's description and point value. Existing
// completions keep their snapshotted points.
func (r *mongoActionRepository) Update(ctx context.Context, action *domain.Action) error {
	if action.ID == primitive.NilObjectID {
		return errors.New("action ID is required for update")
	}
	if action.Description == "" {
		return errors.New("action description cannot be empty")
	}

	update := bson.M{
		"$set": bson.M{
			"description": action.Description,
			"points":      action.Points,
			"updatedAt":   time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": action.ID}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes an action. The service layer guards against deleting
// actions with completions in an active session.
func (r *mongoActionRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteAll clears the collection. Import-with-overwrite only.
func (r *mongoActionRepository) DeleteAll(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}
