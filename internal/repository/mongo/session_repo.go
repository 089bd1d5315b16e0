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

const sessionCollectionName = "sessions"

// mongoSessionRepository implements repository.SessionRepository
type mongoSessionRepository struct {
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new Session repository backed by MongoDB.
func NewMongoSessionRepository(db *mongo.Database) repository.SessionRepository {
	return &mongoSessionRepository{
		collection: db.Collection(sessionCollectionName),
	}
}

// Create inserts a new session. The partial unique index on ownerId (filtered
// to status=active) is the backstop for the single-active-session invariant:
// even if two starts race past the service-level check, the second insert
// fails here with ErrDuplicate.
func (r *mongoSessionRepository) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	if session.OwnerID == primitive.NilObjectID || session.PoolID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("session owner and pool IDs are required")
	}

	if session.ID == primitive.NilObjectID {
		session.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, session)
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

// GetByID retrieves a session by its ID.
func (r *mongoSessionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetActiveByOwner retrieves the owner's active session, if any.
func (r *mongoSessionRepository) GetActiveByOwner(ctx context.Context, ownerID primitive.ObjectID) (*domain.Session, error) {
	var session domain.Session
	filter := bson.M{"ownerId": ownerID, "status": domain.SessionActive}

	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// ListByOwner retrieves the owner's sessions, newest-started first.
func (r *mongoSessionRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Session, error) {
	var sessions []domain.Session

	findOptions := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"ownerId": ownerID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// List retrieves every session, newest-started first.
func (r *mongoSessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session

	findOptions := options.Find().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// AddPoints increments pointsEarned. The status guard sits in the filter, so
// a session that was completed or cancelled between the caller's read and
// this write matches nothing and the ledger stays untouched.
func (r *mongoSessionRepository) AddPoints(ctx context.Context, id primitive.ObjectID, points int) error {
	if points <= 0 {
		return errors.New("points to add must be positive")
	}

	filter := bson.M{"_id": id, "status": domain.SessionActive}
	update := bson.M{
		"$inc": bson.M{"pointsEarned": points},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrPreconditionFailed
	}
	return nil
}

// SpendPoints increments pointsSpent. Balance check and spend are one
// document-level atomic update: the filter only matches while
// pointsEarned - pointsSpent >= cost, so concurrent redemptions can never
// jointly drive the balance negative.
func (r *mongoSessionRepository) SpendPoints(ctx context.Context, id primitive.ObjectID, cost int) error {
	if cost <= 0 {
		return errors.New("point cost must be positive")
	}

	filter := bson.M{
		"_id":    id,
		"status": domain.SessionActive,
		"$expr": bson.M{
			"$gte": bson.A{
				bson.M{"$subtract": bson.A{"$pointsEarned", "$pointsSpent"}},
				cost,
			},
		},
	}
	update := bson.M{
		"$inc": bson.M{"pointsSpent": cost},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrPreconditionFailed
	}
	return nil
}

// Finish moves an active session to a terminal status and stamps the end
// time. Matching on status=active makes terminal states sticky.
func (r *mongoSessionRepository) Finish(ctx context.Context, id primitive.ObjectID, status domain.SessionStatus) (*domain.Session, error) {
	if status != domain.SessionCompleted && status != domain.SessionCancelled {
		return nil, errors.New("finish status must be terminal")
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": id, "status": domain.SessionActive}
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"endedAt":   now,
			"updatedAt": now,
		},
	}

	var session domain.Session
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrPreconditionFailed
		}
		return nil, err
	}
	return &session, nil
}

// DeleteAll clears the sessions collection. Import-with-overwrite only.
func (r *mongoSessionRepository) DeleteAll(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}

// EnsureSessionIndexes creates necessary indexes for the sessions collection.
func EnsureSessionIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// At most one active session per owner, enforced by the database
			// even when service-level checks race.
			Keys: bson.D{{Key: "ownerId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(domain.SessionActive)}),
		},
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "startedAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
