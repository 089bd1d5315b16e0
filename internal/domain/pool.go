package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutPool is a named, curated set of workouts that sessions redeem from.
type WorkoutPool struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PoolMembership links one workout into one pool. The (pool, workout) pair
// is unique; the mongo repository backs this with a compound unique index.
type PoolMembership struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PoolID    primitive.ObjectID `bson:"poolId" json:"poolId"`
	WorkoutID primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
