package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActionCompletion records one completed action inside a session.
// PointsAwarded is a snapshot of the action's value at completion time.
// Completion records are append-only: never updated, never deleted.
type ActionCompletion struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID     primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	ActionID      primitive.ObjectID `bson:"actionId" json:"actionId"`
	PointsAwarded int                `bson:"pointsAwarded" json:"pointsAwarded"`
	CompletedAt   time.Time          `bson:"completedAt" json:"completedAt"`
}

// WorkoutReceived records one redemption: points spent for one randomly
// selected workout. Append-only, like ActionCompletion.
type WorkoutReceived struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID   primitive.ObjectID `bson:"sessionId" json:"sessionId"`
	WorkoutID   primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	PointsSpent int                `bson:"pointsSpent" json:"pointsSpent"`
	ReceivedAt  time.Time          `bson:"receivedAt" json:"receivedAt"`
}
