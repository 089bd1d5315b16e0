package service

import (
	"context"
	"testing"

	"sweatpoints/fitness-app/internal/domain"
	"sweatpoints/fitness-app/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestCatalogService(store *memory.Store) CatalogService {
	return NewCatalogService(
		store.Workouts(), store.Actions(), store.Pools(),
		store.Sessions(), store.Completions(), store.Received(),
		testPolicy(),
	)
}

func TestCreateWorkout_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	_, err := svc.CreateWorkout(ctx, "", 30, domain.DifficultyBeginner, false)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.CreateWorkout(ctx, "Run", 0, domain.DifficultyBeginner, false)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.CreateWorkout(ctx, "Run", 481, domain.DifficultyBeginner, false)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.CreateWorkout(ctx, "Run", 30, "nightmare", false)
	assert.ErrorIs(t, err, ErrValidationFailed)

	workout, err := svc.CreateWorkout(ctx, "Run", 480, domain.DifficultyBeginner, false)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkoutVisible, workout.State)
	assert.False(t, workout.Preloaded)
}

func TestCreateAction_PointBounds(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	_, err := svc.CreateAction(ctx, "pushups", 0)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.CreateAction(ctx, "pushups", 1001)
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.CreateAction(ctx, "", 10)
	assert.ErrorIs(t, err, ErrValidationFailed)

	action, err := svc.CreateAction(ctx, "pushups", 1000)
	require.NoError(t, err)
	assert.Equal(t, 1000, action.Points)
}

func TestHideAndUnhideWorkout(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	workout, err := svc.CreateWorkout(ctx, "Run", 30, domain.DifficultyBeginner, false)
	require.NoError(t, err)

	require.NoError(t, svc.HideWorkout(ctx, workout.ID))
	hidden, err := svc.GetWorkout(ctx, workout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkoutHidden, hidden.State)

	require.NoError(t, svc.UnhideWorkout(ctx, workout.ID))
	visible, err := svc.GetWorkout(ctx, workout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkoutVisible, visible.State)
}

func TestUnhideWorkout_DeletedStaysDeleted(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	workout, err := svc.CreateWorkout(ctx, "Run", 30, domain.DifficultyBeginner, false)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteWorkout(ctx, workout.ID))

	err = svc.UnhideWorkout(ctx, workout.ID)
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
}

func TestDeleteWorkout_PreloadedRefused(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	workout, err := svc.CreateWorkout(ctx, "Built-in", 30, domain.DifficultyBeginner, true)
	require.NoError(t, err)

	err = svc.DeleteWorkout(ctx, workout.ID)
	assert.ErrorIs(t, err, ErrWorkoutPreloaded)

	// Hiding it is the supported way out.
	assert.NoError(t, svc.HideWorkout(ctx, workout.ID))
}

func TestDeleteWorkout_InPoolRefused(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	workout, err := svc.CreateWorkout(ctx, "Run", 30, domain.DifficultyBeginner, false)
	require.NoError(t, err)
	pool, err := svc.CreatePool(ctx, "Cardio", "")
	require.NoError(t, err)
	require.NoError(t, svc.AddWorkoutToPool(ctx, pool.ID, workout.ID))

	err = svc.DeleteWorkout(ctx, workout.ID)
	assert.ErrorIs(t, err, ErrWorkoutInUse)

	// After removal from the pool the delete goes through.
	require.NoError(t, svc.RemoveWorkoutFromPool(ctx, pool.ID, workout.ID))
	assert.NoError(t, svc.DeleteWorkout(ctx, workout.ID))
}

func TestDeleteWorkout_WithRedemptionsRefused(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestCatalogService(store)

	workout, err := svc.CreateWorkout(ctx, "Run", 30, domain.DifficultyBeginner, false)
	require.NoError(t, err)

	_, err = store.Received().Create(ctx, &domain.WorkoutReceived{
		SessionID:   primitive.NewObjectID(),
		WorkoutID:   workout.ID,
		PointsSpent: 5,
	})
	require.NoError(t, err)

	err = svc.DeleteWorkout(ctx, workout.ID)
	assert.ErrorIs(t, err, ErrWorkoutInUse)
}

func TestDeleteWorkout_IsSoftDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	workout, err := svc.CreateWorkout(ctx, "Run", 30, domain.DifficultyBeginner, false)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteWorkout(ctx, workout.ID))

	// Still resolvable by id so history keeps rendering.
	deleted, err := svc.GetWorkout(ctx, workout.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.WorkoutDeleted, deleted.State)
}

func TestDeleteAction_ActiveCompletionsRefused(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestCatalogService(store)
	sessions := newTestSessionService(store, 1)

	action, err := svc.CreateAction(ctx, "pushups", 10)
	require.NoError(t, err)
	ownerID := primitive.NewObjectID()
	poolID, _ := seedPool(t, store, visibleWorkout("Run 5k"))

	session, err := sessions.StartSession(ctx, ownerID, poolID, "Busy", "")
	require.NoError(t, err)
	_, err = sessions.CompleteAction(ctx, ownerID, session.ID, action.ID)
	require.NoError(t, err)

	err = svc.DeleteAction(ctx, action.ID)
	assert.ErrorIs(t, err, ErrActionInUse)

	// Once the session ends, history no longer blocks the delete.
	_, err = sessions.EndSession(ctx, ownerID, session.ID)
	require.NoError(t, err)
	assert.NoError(t, svc.DeleteAction(ctx, action.ID))
}

func TestDeletePool_ReferencedBySessionRefused(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestCatalogService(store)
	sessions := newTestSessionService(store, 1)

	ownerID := primitive.NewObjectID()
	poolID, _ := seedPool(t, store, visibleWorkout("Run 5k"))

	session, err := sessions.StartSession(ctx, ownerID, poolID, "Holder", "")
	require.NoError(t, err)

	err = svc.DeletePool(ctx, poolID)
	assert.ErrorIs(t, err, ErrPoolInUse)

	// Ended sessions still pin the pool; their history resolves through it.
	_, err = sessions.EndSession(ctx, ownerID, session.ID)
	require.NoError(t, err)
	err = svc.DeletePool(ctx, poolID)
	assert.ErrorIs(t, err, ErrPoolInUse)
}

func TestDeletePool_Unreferenced(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	pool, err := svc.CreatePool(ctx, "Cardio", "")
	require.NoError(t, err)
	workout, err := svc.CreateWorkout(ctx, "Run", 30, domain.DifficultyBeginner, false)
	require.NoError(t, err)
	require.NoError(t, svc.AddWorkoutToPool(ctx, pool.ID, workout.ID))

	require.NoError(t, svc.DeletePool(ctx, pool.ID))

	_, err = svc.GetPool(ctx, pool.ID)
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestAddWorkoutToPool_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	pool, err := svc.CreatePool(ctx, "Cardio", "")
	require.NoError(t, err)
	workout, err := svc.CreateWorkout(ctx, "Run", 30, domain.DifficultyBeginner, false)
	require.NoError(t, err)

	require.NoError(t, svc.AddWorkoutToPool(ctx, pool.ID, workout.ID))
	err = svc.AddWorkoutToPool(ctx, pool.ID, workout.ID)
	assert.ErrorIs(t, err, ErrAlreadyInPool)
}

func TestAddWorkoutToPool_DeletedWorkoutRefused(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	pool, err := svc.CreatePool(ctx, "Cardio", "")
	require.NoError(t, err)
	workout, err := svc.CreateWorkout(ctx, "Run", 30, domain.DifficultyBeginner, false)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteWorkout(ctx, workout.ID))

	err = svc.AddWorkoutToPool(ctx, pool.ID, workout.ID)
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
}

func TestGetVisibleWorkoutsInPool_FiltersState(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(memory.NewStore())

	pool, err := svc.CreatePool(ctx, "Mixed", "")
	require.NoError(t, err)

	visibleOne, err := svc.CreateWorkout(ctx, "Run", 30, domain.DifficultyBeginner, false)
	require.NoError(t, err)
	hiddenOne, err := svc.CreateWorkout(ctx, "Swim", 45, domain.DifficultyIntermediate, false)
	require.NoError(t, err)
	require.NoError(t, svc.AddWorkoutToPool(ctx, pool.ID, visibleOne.ID))
	require.NoError(t, svc.AddWorkoutToPool(ctx, pool.ID, hiddenOne.ID))
	require.NoError(t, svc.HideWorkout(ctx, hiddenOne.ID))

	workouts, err := svc.GetVisibleWorkoutsInPool(ctx, pool.ID)
	require.NoError(t, err)
	require.Len(t, workouts, 1)
	assert.Equal(t, visibleOne.ID, workouts[0].ID)
}

func TestUpdateAction_KeepsHistoryIntact(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := newTestCatalogService(store)

	action, err := svc.CreateAction(ctx, "pushups", 10)
	require.NoError(t, err)

	completionID, err := store.Completions().Create(ctx, &domain.ActionCompletion{
		SessionID:     primitive.NewObjectID(),
		ActionID:      action.ID,
		PointsAwarded: 10,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateAction(ctx, action.ID, "diamond pushups", 25)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.Points)

	completions, err := store.Completions().ListByAction(ctx, action.ID)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, completionID, completions[0].ID)
	assert.Equal(t, 10, completions[0].PointsAwarded)
}
