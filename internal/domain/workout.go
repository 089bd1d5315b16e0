package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Difficulty classifies how demanding a workout is.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// ValidDifficulty reports whether d is one of the known difficulty levels.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert:
		return true
	}
	return false
}

// WorkoutState is the lifecycle of a catalog workout. A hidden workout is
// excluded from selection pools but still resolvable by id; a deleted workout
// only exists so that historical redemptions keep resolving.
type WorkoutState string

const (
	WorkoutVisible WorkoutState = "visible"
	WorkoutHidden  WorkoutState = "hidden"
	WorkoutDeleted WorkoutState = "deleted"
)

// Workout is a single redeemable workout in the catalog.
type Workout struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"`
	Difficulty      Difficulty         `bson:"difficulty" json:"difficulty"`
	Preloaded       bool               `bson:"preloaded" json:"preloaded"` // system-seeded, never hard-deleted
	State           WorkoutState       `bson:"state" json:"state"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Visible reports whether the workout is eligible for random selection.
func (w *Workout) Visible() bool {
	return w.State == WorkoutVisible
}
