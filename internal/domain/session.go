package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionStatus is the session state machine. Active is the only mutable
// state; Completed and Cancelled are terminal.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// Session is one workout session: a point ledger bound to a single pool.
// PointsEarned and PointsSpent only ever grow; Balance never goes negative.
// The pool reference is fixed at creation.
type Session struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID      primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	PoolID       primitive.ObjectID `bson:"poolId" json:"poolId"`
	Name         string             `bson:"name" json:"name"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty"`
	Status       SessionStatus      `bson:"status" json:"status"`
	PointsEarned int                `bson:"pointsEarned" json:"pointsEarned"`
	PointsSpent  int                `bson:"pointsSpent" json:"pointsSpent"`
	StartedAt    time.Time          `bson:"startedAt" json:"startedAt"`
	EndedAt      *time.Time         `bson:"endedAt,omitempty" json:"endedAt,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Balance is the session's redeemable points.
func (s *Session) Balance() int {
	return s.PointsEarned - s.PointsSpent
}

// IsActive reports whether point-affecting operations are permitted.
func (s *Session) IsActive() bool {
	return s.Status == SessionActive
}

// IsTerminal reports whether the session can never change again.
func (s *Session) IsTerminal() bool {
	return s.Status == SessionCompleted || s.Status == SessionCancelled
}
