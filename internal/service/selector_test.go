package service

import (
	"math/rand"
	"testing"

	"sweatpoints/fitness-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRandomSelector_NoCandidates(t *testing.T) {
	selector := NewRandomSelector(rand.New(rand.NewSource(1)))

	_, ok := selector.SelectRandomWorkout(nil)
	assert.False(t, ok)

	_, ok = selector.SelectRandomWorkout([]domain.Workout{})
	assert.False(t, ok)
}

func TestRandomSelector_OnlyIneligibleCandidates(t *testing.T) {
	selector := NewRandomSelector(rand.New(rand.NewSource(1)))

	candidates := []domain.Workout{
		{ID: primitive.NewObjectID(), Name: "Hidden", State: domain.WorkoutHidden},
		{ID: primitive.NewObjectID(), Name: "Deleted", State: domain.WorkoutDeleted},
	}

	_, ok := selector.SelectRandomWorkout(candidates)
	assert.False(t, ok)
}

func TestRandomSelector_HiddenNeverChosen(t *testing.T) {
	selector := NewRandomSelector(rand.New(rand.NewSource(99)))

	visible := domain.Workout{ID: primitive.NewObjectID(), Name: "Visible", State: domain.WorkoutVisible}
	candidates := []domain.Workout{
		visible,
		{ID: primitive.NewObjectID(), Name: "Hidden", State: domain.WorkoutHidden},
		{ID: primitive.NewObjectID(), Name: "Deleted", State: domain.WorkoutDeleted},
	}

	for i := 0; i < 1000; i++ {
		chosen, ok := selector.SelectRandomWorkout(candidates)
		require.True(t, ok)
		assert.Equal(t, visible.ID, chosen.ID)
	}
}

func TestRandomSelector_RoughlyUniform(t *testing.T) {
	selector := NewRandomSelector(rand.New(rand.NewSource(42)))

	candidates := []domain.Workout{
		{ID: primitive.NewObjectID(), Name: "A", State: domain.WorkoutVisible},
		{ID: primitive.NewObjectID(), Name: "B", State: domain.WorkoutVisible},
		{ID: primitive.NewObjectID(), Name: "C", State: domain.WorkoutVisible},
	}

	const draws = 3000
	counts := make(map[primitive.ObjectID]int, len(candidates))
	for i := 0; i < draws; i++ {
		chosen, ok := selector.SelectRandomWorkout(candidates)
		require.True(t, ok)
		counts[chosen.ID]++
	}

	require.Len(t, counts, 3)
	// Expected 1000 each; a wide tolerance keeps the test seed-stable
	// while still catching a broken (constant or heavily skewed) draw.
	for _, w := range candidates {
		assert.Greater(t, counts[w.ID], 800, "workout %s drawn too rarely", w.Name)
		assert.Less(t, counts[w.ID], 1200, "workout %s drawn too often", w.Name)
	}
}

func TestRandomSelector_DeterministicWithSameSeed(t *testing.T) {
	candidates := []domain.Workout{
		{ID: primitive.NewObjectID(), Name: "A", State: domain.WorkoutVisible},
		{ID: primitive.NewObjectID(), Name: "B", State: domain.WorkoutVisible},
		{ID: primitive.NewObjectID(), Name: "C", State: domain.WorkoutVisible},
	}

	first := NewRandomSelector(rand.New(rand.NewSource(7)))
	second := NewRandomSelector(rand.New(rand.NewSource(7)))

	for i := 0; i < 100; i++ {
		a, okA := first.SelectRandomWorkout(candidates)
		b, okB := second.SelectRandomWorkout(candidates)
		require.True(t, okA)
		require.True(t, okB)
		assert.Equal(t, a.ID, b.ID)
	}
}

func TestRandomSelector_ByDifficulty(t *testing.T) {
	selector := NewRandomSelector(rand.New(rand.NewSource(5)))

	beginner := domain.Workout{ID: primitive.NewObjectID(), Name: "Walk", State: domain.WorkoutVisible, Difficulty: domain.DifficultyBeginner}
	candidates := []domain.Workout{
		beginner,
		{ID: primitive.NewObjectID(), Name: "Sprint", State: domain.WorkoutVisible, Difficulty: domain.DifficultyExpert},
		{ID: primitive.NewObjectID(), Name: "Hidden walk", State: domain.WorkoutHidden, Difficulty: domain.DifficultyBeginner},
	}

	for i := 0; i < 100; i++ {
		chosen, ok := selector.SelectRandomWorkoutByDifficulty(candidates, domain.DifficultyBeginner)
		require.True(t, ok)
		assert.Equal(t, beginner.ID, chosen.ID)
	}

	_, ok := selector.SelectRandomWorkoutByDifficulty(candidates, domain.DifficultyAdvanced)
	assert.False(t, ok)
}
