package service

import (
	"testing"
	"time"

	"sweatpoints/fitness-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// consistentSnapshot builds a small snapshot where every reference resolves
// and every ledger matches its history.
func consistentSnapshot() *Snapshot {
	workoutID := primitive.NewObjectID()
	actionID := primitive.NewObjectID()
	poolID := primitive.NewObjectID()
	sessionID := primitive.NewObjectID()

	return &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
		Workouts: []domain.Workout{
			{ID: workoutID, Name: "Run 5k", DurationMinutes: 30, Difficulty: domain.DifficultyBeginner, State: domain.WorkoutVisible},
		},
		Actions: []domain.Action{
			{ID: actionID, Description: "pushups", Points: 10},
		},
		Pools: []domain.WorkoutPool{
			{ID: poolID, Name: "Cardio"},
		},
		Memberships: []domain.PoolMembership{
			{ID: primitive.NewObjectID(), PoolID: poolID, WorkoutID: workoutID},
		},
		Sessions: []domain.Session{
			{ID: sessionID, OwnerID: primitive.NewObjectID(), PoolID: poolID, Name: "Week one",
				Status: domain.SessionCompleted, PointsEarned: 10, PointsSpent: 7},
		},
		Completions: []domain.ActionCompletion{
			{ID: primitive.NewObjectID(), SessionID: sessionID, ActionID: actionID, PointsAwarded: 10},
		},
		Received: []domain.WorkoutReceived{
			{ID: primitive.NewObjectID(), SessionID: sessionID, WorkoutID: workoutID, PointsSpent: 7},
		},
	}
}

func TestValidateSnapshot_Consistent(t *testing.T) {
	report := ValidateSnapshot(consistentSnapshot())
	assert.False(t, report.HasErrors())
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestValidateSnapshot_Nil(t *testing.T) {
	report := ValidateSnapshot(nil)
	assert.True(t, report.HasErrors())
}

func TestValidateSnapshot_MissingCollection(t *testing.T) {
	snap := consistentSnapshot()
	snap.Workouts = nil

	report := ValidateSnapshot(snap)
	require.True(t, report.HasErrors())
	assert.Contains(t, report.Errors, "missing collection: workouts")
}

func TestValidateSnapshot_DanglingRedemptionWorkout(t *testing.T) {
	snap := consistentSnapshot()
	missingID := primitive.NewObjectID()
	snap.Received[0].WorkoutID = missingID

	report := ValidateSnapshot(snap)
	require.True(t, report.HasErrors())
	require.Len(t, report.Errors, 1)
	// The violation names both the offending record and the missing target.
	assert.Contains(t, report.Errors[0], snap.Received[0].ID.Hex())
	assert.Contains(t, report.Errors[0], missingID.Hex())
}

func TestValidateSnapshot_DanglingCompletionSession(t *testing.T) {
	snap := consistentSnapshot()
	missingID := primitive.NewObjectID()
	snap.Completions[0].SessionID = missingID

	report := ValidateSnapshot(snap)
	require.True(t, report.HasErrors())
	assert.Contains(t, report.Errors[0], missingID.Hex())
}

func TestValidateSnapshot_DanglingSessionPool(t *testing.T) {
	snap := consistentSnapshot()
	snap.Sessions[0].PoolID = primitive.NewObjectID()

	report := ValidateSnapshot(snap)
	assert.True(t, report.HasErrors())
}

func TestValidateSnapshot_DanglingMembership(t *testing.T) {
	snap := consistentSnapshot()
	snap.Memberships[0].WorkoutID = primitive.NewObjectID()

	report := ValidateSnapshot(snap)
	assert.True(t, report.HasErrors())
}

func TestValidateSnapshot_CollectsEveryViolation(t *testing.T) {
	snap := consistentSnapshot()
	snap.Completions[0].ActionID = primitive.NewObjectID()
	snap.Received[0].WorkoutID = primitive.NewObjectID()

	report := ValidateSnapshot(snap)
	require.True(t, report.HasErrors())
	assert.Len(t, report.Errors, 2)
}

func TestValidateSnapshot_LedgerMismatchWarns(t *testing.T) {
	snap := consistentSnapshot()
	snap.Sessions[0].PointsEarned = 25 // completions only sum to 10

	report := ValidateSnapshot(snap)
	assert.False(t, report.HasErrors())
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "pointsEarned=25")
}

func TestValidateSnapshot_EmptyPoolWarns(t *testing.T) {
	snap := consistentSnapshot()
	emptyPool := domain.WorkoutPool{ID: primitive.NewObjectID(), Name: "Empty"}
	snap.Pools = append(snap.Pools, emptyPool)

	report := ValidateSnapshot(snap)
	assert.False(t, report.HasErrors())
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], emptyPool.ID.Hex())
}

func TestValidateSnapshot_MissingMetadataWarns(t *testing.T) {
	snap := consistentSnapshot()
	snap.Version = ""
	snap.ExportedAt = time.Time{}

	report := ValidateSnapshot(snap)
	assert.False(t, report.HasErrors())
	assert.Len(t, report.Warnings, 2)
}

func TestIntegrityError_MessageNamesFirstViolation(t *testing.T) {
	snap := consistentSnapshot()
	snap.Completions[0].ActionID = primitive.NewObjectID()
	snap.Received[0].WorkoutID = primitive.NewObjectID()

	report := ValidateSnapshot(snap)
	err := &IntegrityError{Report: report}
	assert.Contains(t, err.Error(), report.Errors[0])
	assert.Contains(t, err.Error(), "1 more")
}
