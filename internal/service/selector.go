package service

import (
	"math/rand"
	"sync"
	"time"

	"sweatpoints/fitness-app/internal/domain"
)

// RandomSelector draws one workout uniformly at random from a candidate set.
// The random source is injected so selection is deterministic under test;
// this is the only nondeterminism in the engine.
type RandomSelector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSelector creates a selector around the given source. A nil rng
// gets a time-seeded one.
func NewRandomSelector(rng *rand.Rand) *RandomSelector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomSelector{rng: rng}
}

// SelectRandomWorkout picks one visible workout from candidates. The second
// return value is false when no visible workout is available; callers
// surface that as an empty-pool error.
func (s *RandomSelector) SelectRandomWorkout(candidates []domain.Workout) (*domain.Workout, bool) {
	return s.pick(filterVisible(candidates, ""))
}

// SelectRandomWorkoutByDifficulty restricts the candidate set to one
// difficulty level before drawing.
func (s *RandomSelector) SelectRandomWorkoutByDifficulty(candidates []domain.Workout, difficulty domain.Difficulty) (*domain.Workout, bool) {
	return s.pick(filterVisible(candidates, difficulty))
}

func (s *RandomSelector) pick(eligible []domain.Workout) (*domain.Workout, bool) {
	if len(eligible) == 0 {
		return nil, false
	}

	// rand.Rand is not safe for concurrent use.
	s.mu.Lock()
	idx := s.rng.Intn(len(eligible))
	s.mu.Unlock()

	chosen := eligible[idx]
	return &chosen, true
}

func filterVisible(candidates []domain.Workout, difficulty domain.Difficulty) []domain.Workout {
	eligible := make([]domain.Workout, 0, len(candidates))
	for _, w := range candidates {
		if !w.Visible() {
			continue
		}
		if difficulty != "" && w.Difficulty != difficulty {
			continue
		}
		eligible = append(eligible, w)
	}
	return eligible
}
