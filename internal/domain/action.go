package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Action is a predefined activity a user completes to earn points.
// The point value is snapshotted into each completion, so editing an
// action later never rewrites history.
type Action struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Description string             `bson:"description" json:"description"`
	Points      int                `bson:"points" json:"points"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
