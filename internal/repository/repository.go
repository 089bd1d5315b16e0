package repository

import (
	"context"

	"sweatpoints/fitness-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound = RepositoryError("not found")
	// ErrDuplicate signals a uniqueness violation (duplicate email,
	// duplicate pool membership, second active session for one owner).
	ErrDuplicate = RepositoryError("duplicate")
	// ErrPreconditionFailed signals that a conditional update matched no
	// document: the row was gone, no longer active, or the balance guard
	// rejected the spend. The service layer classifies which.
	ErrPreconditionFailed = RepositoryError("precondition failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TxRunner executes fn atomically: either every write inside fn commits, or
// none do. Implementations pass a derived context carrying the transaction.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository holds account data for session owners.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// WorkoutRepository manages the workout catalog. Workouts are never removed
// individually; their lifecycle state changes instead. DeleteAllNonPreloaded
// exists solely for the import-with-overwrite path.
type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	List(ctx context.Context) ([]domain.Workout, error)
	Update(ctx context.Context, workout *domain.Workout) error
	SetState(ctx context.Context, id primitive.ObjectID, state domain.WorkoutState) error
	DeleteAllNonPreloaded(ctx context.Context) error
}

// ActionRepository manages the point-earning action catalog.
type ActionRepository interface {
	Create(ctx context.Context, action *domain.Action) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Action, error)
	List(ctx context.Context) ([]domain.Action, error)
	Update(ctx context.Context, action *domain.Action) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAll(ctx context.Context) error
}

// PoolRepository manages workout pools and their memberships.
type PoolRepository interface {
	Create(ctx context.Context, pool *domain.WorkoutPool) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPool, error)
	List(ctx context.Context) ([]domain.WorkoutPool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteAll(ctx context.Context) error

	// AddMembership returns ErrDuplicate when the (pool, workout) pair
	// already exists.
	AddMembership(ctx context.Context, m *domain.PoolMembership) (primitive.ObjectID, error)
	RemoveMembership(ctx context.Context, poolID, workoutID primitive.ObjectID) error
	ListMemberships(ctx context.Context) ([]domain.PoolMembership, error)
	ListMembershipsByPool(ctx context.Context, poolID primitive.ObjectID) ([]domain.PoolMembership, error)
	DeleteAllMemberships(ctx context.Context) error
}

// SessionRepository manages sessions and their embedded point ledger.
// AddPoints and SpendPoints are single conditional read-modify-writes: the
// status (and, for SpendPoints, the balance) guard lives in the update filter
// so a stale in-memory snapshot can never overspend or mutate a closed
// session.
type SessionRepository interface {
	// Create returns ErrDuplicate if the owner already has an active session.
	Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error)
	GetActiveByOwner(ctx context.Context, ownerID primitive.ObjectID) (*domain.Session, error)
	// ListByOwner returns the owner's sessions newest-started first.
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Session, error)
	List(ctx context.Context) ([]domain.Session, error)

	// AddPoints increments pointsEarned iff the session is still active.
	AddPoints(ctx context.Context, id primitive.ObjectID, points int) error
	// SpendPoints increments pointsSpent iff the session is still active
	// and pointsEarned-pointsSpent >= cost.
	SpendPoints(ctx context.Context, id primitive.ObjectID, cost int) error
	// Finish moves an active session to a terminal status.
	Finish(ctx context.Context, id primitive.ObjectID, status domain.SessionStatus) (*domain.Session, error)

	DeleteAll(ctx context.Context) error
}

// CompletionRepository stores the append-only action-completion history.
type CompletionRepository interface {
	Create(ctx context.Context, completion *domain.ActionCompletion) (primitive.ObjectID, error)
	ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.ActionCompletion, error)
	ListByAction(ctx context.Context, actionID primitive.ObjectID) ([]domain.ActionCompletion, error)
	List(ctx context.Context) ([]domain.ActionCompletion, error)
	DeleteAll(ctx context.Context) error
}

// ReceivedRepository stores the append-only workout-redemption history.
type ReceivedRepository interface {
	Create(ctx context.Context, received *domain.WorkoutReceived) (primitive.ObjectID, error)
	ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.WorkoutReceived, error)
	ListByWorkout(ctx context.Context, workoutID primitive.ObjectID) ([]domain.WorkoutReceived, error)
	List(ctx context.Context) ([]domain.WorkoutReceived, error)
	DeleteAll(ctx context.Context) error
}
