package service

import (
	"context"
	"errors"
	"fmt"

	"sweatpoints/fitness-app/internal/config"
	"sweatpoints/fitness-app/internal/domain"
	"sweatpoints/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrWorkoutNotFound  = errors.New("workout not found")
	ErrWorkoutPreloaded = errors.New("preloaded workouts cannot be deleted, only hidden")
	ErrWorkoutInUse     = errors.New("workout is referenced by a pool or a redemption")
	ErrActionInUse      = errors.New("action has completions in an active session")
	ErrPoolInUse        = errors.New("pool is referenced by a session")
	ErrAlreadyInPool    = errors.New("workout is already a member of this pool")
	ErrValidationFailed = errors.New("catalog validation failed")
)

// --- Service Interface ---
type CatalogService interface {
	// Workouts
	CreateWorkout(ctx context.Context, name string, durationMinutes int, difficulty domain.Difficulty, preloaded bool) (*domain.Workout, error)
	GetWorkout(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	ListWorkouts(ctx context.Context) ([]domain.Workout, error)
	UpdateWorkout(ctx context.Context, id primitive.ObjectID, name string, durationMinutes int, difficulty domain.Difficulty) (*domain.Workout, error)
	HideWorkout(ctx context.Context, id primitive.ObjectID) error
	UnhideWorkout(ctx context.Context, id primitive.ObjectID) error
	DeleteWorkout(ctx context.Context, id primitive.ObjectID) error

	// Actions
	CreateAction(ctx context.Context, description string, points int) (*domain.Action, error)
	GetAction(ctx context.Context, id primitive.ObjectID) (*domain.Action, error)
	ListActions(ctx context.Context) ([]domain.Action, error)
	UpdateAction(ctx context.Context, id primitive.ObjectID, description string, points int) (*domain.Action, error)
	DeleteAction(ctx context.Context, id primitive.ObjectID) error

	// Pools
	CreatePool(ctx context.Context, name, description string) (*domain.WorkoutPool, error)
	GetPool(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPool, error)
	ListPools(ctx context.Context) ([]domain.WorkoutPool, error)
	DeletePool(ctx context.Context, id primitive.ObjectID) error
	AddWorkoutToPool(ctx context.Context, poolID, workoutID primitive.ObjectID) error
	RemoveWorkoutFromPool(ctx context.Context, poolID, workoutID primitive.ObjectID) error
	GetVisibleWorkoutsInPool(ctx context.Context, poolID primitive.ObjectID) ([]domain.Workout, error)
}

// --- Service Implementation ---

// catalogService implements the CatalogService interface. The policy bounds
// (duration and point limits) come from configuration, not hard-coded
// constants.
type catalogService struct {
	workoutRepo  repository.WorkoutRepository
	actionRepo   repository.ActionRepository
	poolRepo     repository.PoolRepository
	sessionRepo  repository.SessionRepository
	completions  repository.CompletionRepository
	receivedRepo repository.ReceivedRepository
	policy       config.PolicyConfig
}

// NewCatalogService creates a new instance of catalogService.
func NewCatalogService(
	workoutRepo repository.WorkoutRepository,
	actionRepo repository.ActionRepository,
	poolRepo repository.PoolRepository,
	sessionRepo repository.SessionRepository,
	completions repository.CompletionRepository,
	receivedRepo repository.ReceivedRepository,
	policy config.PolicyConfig,
) CatalogService {
	if policy.MaxWorkoutDurationMinutes <= 0 {
		policy.MaxWorkoutDurationMinutes = 480
	}
	if policy.MinActionPoints <= 0 {
		policy.MinActionPoints = 1
	}
	if policy.MaxActionPoints <= 0 {
		policy.MaxActionPoints = 1000
	}
	return &catalogService{
		workoutRepo:  workoutRepo,
		actionRepo:   actionRepo,
		poolRepo:     poolRepo,
		sessionRepo:  sessionRepo,
		completions:  completions,
		receivedRepo: receivedRepo,
		policy:       policy,
	}
}

// === Workouts ===

// CreateWorkout adds a workout to the catalog in the visible state.
func (s *catalogService) CreateWorkout(ctx context.Context, name string, durationMinutes int, difficulty domain.Difficulty, preloaded bool) (*domain.Workout, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: workout name is required", ErrValidationFailed)
	}
	if durationMinutes < 1 || durationMinutes > s.policy.MaxWorkoutDurationMinutes {
		return nil, fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrValidationFailed, s.policy.MaxWorkoutDurationMinutes)
	}
	if !domain.ValidDifficulty(difficulty) {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrValidationFailed, difficulty)
	}

	workout := &domain.Workout{
		Name:            name,
		DurationMinutes: durationMinutes,
		Difficulty:      difficulty,
		Preloaded:       preloaded,
		State:           domain.WorkoutVisible,
	}

	workoutID, err := s.workoutRepo.Create(ctx, workout)
	if err != nil {
		return nil, err
	}
	return s.workoutRepo.GetByID(ctx, workoutID)
}

// GetWorkout retrieves a workout by id, any lifecycle state.
func (s *catalogService) GetWorkout(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	workout, err := s.workoutRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return workout, nil
}

// ListWorkouts retrieves the whole catalog, deleted entries included.
func (s *catalogService) ListWorkouts(ctx context.Context) ([]domain.Workout, error) {
	return s.workoutRepo.List(ctx)
}

// UpdateWorkout edits a workout's name, duration and difficulty.
func (s *catalogService) UpdateWorkout(ctx context.Context, id primitive.ObjectID, name string, durationMinutes int, difficulty domain.Difficulty) (*domain.Workout, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: workout name is required", ErrValidationFailed)
	}
	if durationMinutes < 1 || durationMinutes > s.policy.MaxWorkoutDurationMinutes {
		return nil, fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrValidationFailed, s.policy.MaxWorkoutDurationMinutes)
	}
	if !domain.ValidDifficulty(difficulty) {
		return nil, fmt.Errorf("%w: unknown difficulty %q", ErrValidationFailed, difficulty)
	}

	workout, err := s.GetWorkout(ctx, id)
	if err != nil {
		return nil, err
	}

	workout.Name = name
	workout.DurationMinutes = durationMinutes
	workout.Difficulty = difficulty

	if err := s.workoutRepo.Update(ctx, workout); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return s.workoutRepo.GetByID(ctx, id)
}

// HideWorkout soft-removes a workout from selection pools.
func (s *catalogService) HideWorkout(ctx context.Context, id primitive.ObjectID) error {
	return s.setWorkoutState(ctx, id, domain.WorkoutHidden)
}

// UnhideWorkout makes a hidden workout selectable again.
func (s *catalogService) UnhideWorkout(ctx context.Context, id primitive.ObjectID) error {
	workout, err := s.GetWorkout(ctx, id)
	if err != nil {
		return err
	}
	if workout.State == domain.WorkoutDeleted {
		return ErrWorkoutNotFound
	}
	return s.setWorkoutState(ctx, id, domain.WorkoutVisible)
}

func (s *catalogService) setWorkoutState(ctx context.Context, id primitive.ObjectID, state domain.WorkoutState) error {
	err := s.workoutRepo.SetState(ctx, id, state)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWorkoutNotFound
	}
	return err
}

// DeleteWorkout moves a workout to the deleted state. Preloaded workouts
// can only be hidden, and a workout still referenced by a pool or a
// historical redemption is refused; history must keep resolving it.
func (s *catalogService) DeleteWorkout(ctx context.Context, id primitive.ObjectID) error {
	workout, err := s.GetWorkout(ctx, id)
	if err != nil {
		return err
	}
	if workout.Preloaded {
		return ErrWorkoutPreloaded
	}

	memberships, err := s.poolRepo.ListMemberships(ctx)
	if err != nil {
		return err
	}
	for _, m := range memberships {
		if m.WorkoutID == id {
			return ErrWorkoutInUse
		}
	}

	redemptions, err := s.receivedRepo.ListByWorkout(ctx, id)
	if err != nil {
		return err
	}
	if len(redemptions) > 0 {
		return ErrWorkoutInUse
	}

	return s.setWorkoutState(ctx, id, domain.WorkoutDeleted)
}

// === Actions ===

// CreateAction adds a point-earning action.
func (s *catalogService) CreateAction(ctx context.Context, description string, points int) (*domain.Action, error) {
	if description == "" {
		return nil, fmt.Errorf("%w: action description is required", ErrValidationFailed)
	}
	if points < s.policy.MinActionPoints || points > s.policy.MaxActionPoints {
		return nil, fmt.Errorf("%w: point value must be between %d and %d", ErrValidationFailed, s.policy.MinActionPoints, s.policy.MaxActionPoints)
	}

	action := &domain.Action{
		Description: description,
		Points:      points,
	}

	actionID, err := s.actionRepo.Create(ctx, action)
	if err != nil {
		return nil, err
	}
	return s.actionRepo.GetByID(ctx, actionID)
}

// GetAction retrieves an action by id.
func (s *catalogService) GetAction(ctx context.Context, id primitive.ObjectID) (*domain.Action, error) {
	action, err := s.actionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}
	return action, nil
}

// ListActions retrieves all actions.
func (s *catalogService) ListActions(ctx context.Context) ([]domain.Action, error) {
	return s.actionRepo.List(ctx)
}

// UpdateAction edits an action. Existing completions keep the point value
// they snapshotted.
func (s *catalogService) UpdateAction(ctx context.Context, id primitive.ObjectID, description string, points int) (*domain.Action, error) {
	if description == "" {
		return nil, fmt.Errorf("%w: action description is required", ErrValidationFailed)
	}
	if points < s.policy.MinActionPoints || points > s.policy.MaxActionPoints {
		return nil, fmt.Errorf("%w: point value must be between %d and %d", ErrValidationFailed, s.policy.MinActionPoints, s.policy.MaxActionPoints)
	}

	action, err := s.GetAction(ctx, id)
	if err != nil {
		return nil, err
	}

	action.Description = description
	action.Points = points

	if err := s.actionRepo.Update(ctx, action); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}
	return s.actionRepo.GetByID(ctx, id)
}

// DeleteAction removes an action unless one of its completions belongs to a
// session that is still active.
func (s *catalogService) DeleteAction(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetAction(ctx, id); err != nil {
		return err
	}

	completions, err := s.completions.ListByAction(ctx, id)
	if err != nil {
		return err
	}
	for _, c := range completions {
		session, err := s.sessionRepo.GetByID(ctx, c.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return err
		}
		if session.IsActive() {
			return ErrActionInUse
		}
	}

	err = s.actionRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrActionNotFound
	}
	return err
}

// === Pools ===

// CreatePool adds an empty workout pool.
func (s *catalogService) CreatePool(ctx context.Context, name, description string) (*domain.WorkoutPool, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: pool name is required", ErrValidationFailed)
	}

	pool := &domain.WorkoutPool{
		Name:        name,
		Description: description,
	}

	poolID, err := s.poolRepo.Create(ctx, pool)
	if err != nil {
		return nil, err
	}
	return s.poolRepo.GetByID(ctx, poolID)
}

// GetPool retrieves a pool by id.
func (s *catalogService) GetPool(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPool, error) {
	pool, err := s.poolRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}
	return pool, nil
}

// ListPools retrieves every pool.
func (s *catalogService) ListPools(ctx context.Context) ([]domain.WorkoutPool, error) {
	return s.poolRepo.List(ctx)
}

// DeletePool removes a pool and its memberships, unless a session
// references it.
func (s *catalogService) DeletePool(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.GetPool(ctx, id); err != nil {
		return err
	}

	sessions, err := s.sessionRepo.List(ctx)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.PoolID == id {
			return ErrPoolInUse
		}
	}

	err = s.poolRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPoolNotFound
	}
	return err
}

// AddWorkoutToPool links a workout into a pool. Deleted workouts cannot
// join pools; hidden ones can, they just don't get selected.
func (s *catalogService) AddWorkoutToPool(ctx context.Context, poolID, workoutID primitive.ObjectID) error {
	if _, err := s.GetPool(ctx, poolID); err != nil {
		return err
	}
	workout, err := s.GetWorkout(ctx, workoutID)
	if err != nil {
		return err
	}
	if workout.State == domain.WorkoutDeleted {
		return ErrWorkoutNotFound
	}

	_, err = s.poolRepo.AddMembership(ctx, &domain.PoolMembership{
		PoolID:    poolID,
		WorkoutID: workoutID,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrAlreadyInPool
	}
	return err
}

// RemoveWorkoutFromPool unlinks a workout from a pool.
func (s *catalogService) RemoveWorkoutFromPool(ctx context.Context, poolID, workoutID primitive.ObjectID) error {
	err := s.poolRepo.RemoveMembership(ctx, poolID, workoutID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWorkoutNotFound
	}
	return err
}

// GetVisibleWorkoutsInPool resolves a pool's membership to the workouts
// currently eligible for selection.
func (s *catalogService) GetVisibleWorkoutsInPool(ctx context.Context, poolID primitive.ObjectID) ([]domain.Workout, error) {
	if _, err := s.GetPool(ctx, poolID); err != nil {
		return nil, err
	}

	memberships, err := s.poolRepo.ListMembershipsByPool(ctx, poolID)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Workout, 0, len(memberships))
	for _, m := range memberships {
		workout, err := s.workoutRepo.GetByID(ctx, m.WorkoutID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if workout.Visible() {
			visible = append(visible, *workout)
		}
	}
	return visible, nil
}
