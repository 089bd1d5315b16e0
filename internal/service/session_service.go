package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"sweatpoints/fitness-app/internal/config"
	"sweatpoints/fitness-app/internal/domain"
	"sweatpoints/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrNoActiveSession     = errors.New("no active session")
	ErrSessionNotActive    = errors.New("session is not active")
	ErrActiveSessionExists = errors.New("another session is already active")
	ErrSessionAccessDenied = errors.New("access denied to this session")
	ErrEmptyPool           = errors.New("pool has no visible workouts")
	ErrInvalidSessionName  = errors.New("session name is empty or too long")
	ErrInvalidPointCost    = errors.New("point cost must be positive")
	ErrActionNotFound      = errors.New("action not found")
	ErrPoolNotFound        = errors.New("workout pool not found")
)

// --- Service Interface ---
type SessionService interface {
	StartSession(ctx context.Context, ownerID, poolID primitive.ObjectID, name, description string) (*domain.Session, error)
	GetActiveSession(ctx context.Context, ownerID primitive.ObjectID) (*domain.Session, error)
	GetSessionByID(ctx context.Context, ownerID, sessionID primitive.ObjectID) (*domain.Session, error)
	GetAllSessions(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Session, error)
	EndSession(ctx context.Context, ownerID, sessionID primitive.ObjectID) (*domain.Session, error)
	CancelSession(ctx context.Context, ownerID, sessionID primitive.ObjectID) (*domain.Session, error)
	CompleteAction(ctx context.Context, ownerID, sessionID, actionID primitive.ObjectID) (*domain.ActionCompletion, error)
	RedeemWorkout(ctx context.Context, ownerID, sessionID primitive.ObjectID, pointCost int) (*domain.WorkoutReceived, *domain.Workout, error)
	GetSessionCompletions(ctx context.Context, ownerID, sessionID primitive.ObjectID) ([]domain.ActionCompletion, error)
	GetSessionWorkouts(ctx context.Context, ownerID, sessionID primitive.ObjectID) ([]domain.WorkoutReceived, error)
}

// --- Service Implementation ---

// sessionService implements the SessionService interface. It owns the
// session state machine and the point ledger: every point-affecting write
// goes through a transaction plus a conditional repository update, so the
// ledger and its history records always move together.
type sessionService struct {
	sessionRepo    repository.SessionRepository
	poolRepo       repository.PoolRepository
	workoutRepo    repository.WorkoutRepository
	actionRepo     repository.ActionRepository
	completionRepo repository.CompletionRepository
	receivedRepo   repository.ReceivedRepository
	tx             repository.TxRunner
	selector       *RandomSelector
	policy         config.PolicyConfig

	// startMu serializes the check-then-act in StartSession. The partial
	// unique index on active sessions is the storage-level backstop.
	startMu sync.Mutex
}

// NewSessionService creates a new instance of sessionService.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	poolRepo repository.PoolRepository,
	workoutRepo repository.WorkoutRepository,
	actionRepo repository.ActionRepository,
	completionRepo repository.CompletionRepository,
	receivedRepo repository.ReceivedRepository,
	tx repository.TxRunner,
	selector *RandomSelector,
	policy config.PolicyConfig,
) SessionService {
	if policy.MaxSessionNameLength <= 0 {
		policy.MaxSessionNameLength = 100
	}
	return &sessionService{
		sessionRepo:    sessionRepo,
		poolRepo:       poolRepo,
		workoutRepo:    workoutRepo,
		actionRepo:     actionRepo,
		completionRepo: completionRepo,
		receivedRepo:   receivedRepo,
		tx:             tx,
		selector:       selector,
		policy:         policy,
	}
}

// StartSession opens a new active session on a pool. A session cannot start
// on a pool with no visible workouts, and an owner can hold at most one
// active session.
func (s *sessionService) StartSession(ctx context.Context, ownerID, poolID primitive.ObjectID, name, description string) (*domain.Session, error) {
	if ownerID == primitive.NilObjectID {
		return nil, errors.New("owner ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > s.policy.MaxSessionNameLength {
		return nil, ErrInvalidSessionName
	}

	if _, err := s.poolRepo.GetByID(ctx, poolID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}

	visible, err := s.visibleWorkouts(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if len(visible) == 0 {
		return nil, ErrEmptyPool
	}

	// Check-then-create must not interleave with a concurrent start for the
	// same owner.
	s.startMu.Lock()
	defer s.startMu.Unlock()

	_, err = s.sessionRepo.GetActiveByOwner(ctx, ownerID)
	if err == nil {
		return nil, ErrActiveSessionExists
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	session := &domain.Session{
		OwnerID:     ownerID,
		PoolID:      poolID,
		Name:        name,
		Description: description,
		Status:      domain.SessionActive,
		StartedAt:   time.Now().UTC(),
	}

	sessionID, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrActiveSessionExists
		}
		return nil, err
	}
	return s.sessionRepo.GetByID(ctx, sessionID)
}

// GetActiveSession returns the owner's active session, or ErrNoActiveSession.
func (s *sessionService) GetActiveSession(ctx context.Context, ownerID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.sessionRepo.GetActiveByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	return session, nil
}

// GetSessionByID returns one of the owner's sessions.
func (s *sessionService) GetSessionByID(ctx context.Context, ownerID, sessionID primitive.ObjectID) (*domain.Session, error) {
	return s.ownedSession(ctx, ownerID, sessionID)
}

// GetAllSessions returns the owner's sessions, newest-started first.
func (s *sessionService) GetAllSessions(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Session, error) {
	return s.sessionRepo.ListByOwner(ctx, ownerID)
}

// EndSession completes an active session. Irreversible.
func (s *sessionService) EndSession(ctx context.Context, ownerID, sessionID primitive.ObjectID) (*domain.Session, error) {
	return s.finish(ctx, ownerID, sessionID, domain.SessionCompleted)
}

// CancelSession abandons an active session. Irreversible.
func (s *sessionService) CancelSession(ctx context.Context, ownerID, sessionID primitive.ObjectID) (*domain.Session, error) {
	return s.finish(ctx, ownerID, sessionID, domain.SessionCancelled)
}

func (s *sessionService) finish(ctx context.Context, ownerID, sessionID primitive.ObjectID, status domain.SessionStatus) (*domain.Session, error) {
	session, err := s.ownedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}

	finished, err := s.sessionRepo.Finish(ctx, sessionID, status)
	if err != nil {
		if errors.Is(err, repository.ErrPreconditionFailed) {
			// Lost a race against another finish.
			return nil, ErrSessionNotActive
		}
		return nil, err
	}
	return finished, nil
}

// CompleteAction records a completed action and credits its point value to
// the session ledger. The history record and the ledger increment commit
// together or not at all.
func (s *sessionService) CompleteAction(ctx context.Context, ownerID, sessionID, actionID primitive.ObjectID) (*domain.ActionCompletion, error) {
	session, err := s.ownedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, ErrSessionNotActive
	}

	action, err := s.actionRepo.GetByID(ctx, actionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}

	completion := &domain.ActionCompletion{
		SessionID:     sessionID,
		ActionID:      actionID,
		PointsAwarded: action.Points, // snapshot; later edits to the action don't rewrite history
		CompletedAt:   time.Now().UTC(),
	}

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := s.completionRepo.Create(txCtx, completion); err != nil {
			return err
		}
		if err := s.sessionRepo.AddPoints(txCtx, sessionID, action.Points); err != nil {
			if errors.Is(err, repository.ErrPreconditionFailed) {
				return ErrSessionNotActive
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// RedeemWorkout spends points for one randomly selected workout from the
// session's pool. The balance check and the spend are one conditional update
// in the repository, so concurrent redemptions cannot jointly overspend.
func (s *sessionService) RedeemWorkout(ctx context.Context, ownerID, sessionID primitive.ObjectID, pointCost int) (*domain.WorkoutReceived, *domain.Workout, error) {
	if pointCost <= 0 {
		return nil, nil, ErrInvalidPointCost
	}

	session, err := s.ownedSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !session.IsActive() {
		return nil, nil, ErrSessionNotActive
	}
	if session.Balance() < pointCost {
		return nil, nil, &domain.InsufficientPointsError{Balance: session.Balance(), Required: pointCost}
	}

	visible, err := s.visibleWorkouts(ctx, session.PoolID)
	if err != nil {
		return nil, nil, err
	}
	workout, ok := s.selector.SelectRandomWorkout(visible)
	if !ok {
		return nil, nil, ErrEmptyPool
	}

	received := &domain.WorkoutReceived{
		SessionID:   sessionID,
		WorkoutID:   workout.ID,
		PointsSpent: pointCost,
		ReceivedAt:  time.Now().UTC(),
	}

	err = s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.sessionRepo.SpendPoints(txCtx, sessionID, pointCost); err != nil {
			if errors.Is(err, repository.ErrPreconditionFailed) {
				return s.classifySpendFailure(txCtx, sessionID, pointCost)
			}
			return err
		}
		if _, err := s.receivedRepo.Create(txCtx, received); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return received, workout, nil
}

// classifySpendFailure turns a failed conditional spend into the precise
// business error: the session vanished, went terminal, or (most likely) a
// concurrent operation drained the balance first.
func (s *sessionService) classifySpendFailure(ctx context.Context, sessionID primitive.ObjectID, pointCost int) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if !session.IsActive() {
		return ErrSessionNotActive
	}
	return &domain.InsufficientPointsError{Balance: session.Balance(), Required: pointCost}
}

// GetSessionCompletions returns a session's completion history, oldest first.
func (s *sessionService) GetSessionCompletions(ctx context.Context, ownerID, sessionID primitive.ObjectID) ([]domain.ActionCompletion, error) {
	if _, err := s.ownedSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	return s.completionRepo.ListBySession(ctx, sessionID)
}

// GetSessionWorkouts returns a session's redemption history, oldest first.
func (s *sessionService) GetSessionWorkouts(ctx context.Context, ownerID, sessionID primitive.ObjectID) ([]domain.WorkoutReceived, error) {
	if _, err := s.ownedSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	return s.receivedRepo.ListBySession(ctx, sessionID)
}

func (s *sessionService) ownedSession(ctx context.Context, ownerID, sessionID primitive.ObjectID) (*domain.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, ErrSessionAccessDenied
	}
	return session, nil
}

// visibleWorkouts resolves a pool's membership to its visible workouts.
func (s *sessionService) visibleWorkouts(ctx context.Context, poolID primitive.ObjectID) ([]domain.Workout, error) {
	memberships, err := s.poolRepo.ListMembershipsByPool(ctx, poolID)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Workout, 0, len(memberships))
	for _, m := range memberships {
		workout, err := s.workoutRepo.GetByID(ctx, m.WorkoutID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Dangling membership; skip rather than fail the whole pool.
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
