// Package memory provides in-process implementations of the repository
// interfaces. They back the service tests and honor the same conditional
// update semantics as the mongo repositories, so the concurrency invariants
// are exercised for real.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"sweatpoints/fitness-app/internal/domain"
	"sweatpoints/fitness-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection behind one mutex. Individual repository views
// are obtained from it.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users       map[primitive.ObjectID]domain.User
	workouts    map[primitive.ObjectID]domain.Workout
	actions     map[primitive.ObjectID]domain.Action
	pools       map[primitive.ObjectID]domain.WorkoutPool
	memberships map[primitive.ObjectID]domain.PoolMembership
	sessions    map[primitive.ObjectID]domain.Session
	completions map[primitive.ObjectID]domain.ActionCompletion
	received    map[primitive.ObjectID]domain.WorkoutReceived
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:       make(map[primitive.ObjectID]domain.User),
		workouts:    make(map[primitive.ObjectID]domain.Workout),
		actions:     make(map[primitive.ObjectID]domain.Action),
		pools:       make(map[primitive.ObjectID]domain.WorkoutPool),
		memberships: make(map[primitive.ObjectID]domain.PoolMembership),
		sessions:    make(map[primitive.ObjectID]domain.Session),
		completions: make(map[primitive.ObjectID]domain.ActionCompletion),
		received:    make(map[primitive.ObjectID]domain.WorkoutReceived),
	}
}

// Repository views.

func (s *Store) Users() repository.UserRepository             { return &userRepo{s} }
func (s *Store) Workouts() repository.WorkoutRepository       { return &workoutRepo{s} }
func (s *Store) Actions() repository.ActionRepository         { return &actionRepo{s} }
func (s *Store) Pools() repository.PoolRepository             { return &poolRepo{s} }
func (s *Store) Sessions() repository.SessionRepository       { return &sessionRepo{s} }
func (s *Store) Completions() repository.CompletionRepository { return &completionRepo{s} }
func (s *Store) Received() repository.ReceivedRepository      { return &receivedRepo{s} }

// WithinTransaction implements repository.TxRunner by snapshotting every
// collection and restoring the snapshot if fn fails. Transactions are
// serialized; individual operations outside a transaction still interleave.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(ctx); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	users       map[primitive.ObjectID]domain.User
	workouts    map[primitive.ObjectID]domain.Workout
	actions     map[primitive.ObjectID]domain.Action
	pools       map[primitive.ObjectID]domain.WorkoutPool
	memberships map[primitive.ObjectID]domain.PoolMembership
	sessions    map[primitive.ObjectID]domain.Session
	completions map[primitive.ObjectID]domain.ActionCompletion
	received    map[primitive.ObjectID]domain.WorkoutReceived
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeSnapshot{
		users:       copyMap(s.users),
		workouts:    copyMap(s.workouts),
		actions:     copyMap(s.actions),
		pools:       copyMap(s.pools),
		memberships: copyMap(s.memberships),
		sessions:    copyMap(s.sessions),
		completions: copyMap(s.completions),
		received:    copyMap(s.received),
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.workouts = snap.workouts
	s.actions = snap.actions
	s.pools = snap.pools
	s.memberships = snap.memberships
	s.sessions = snap.sessions
	s.completions = snap.completions
	s.received = snap.received
}

func copyMap[V any](m map[primitive.ObjectID]V) map[primitive.ObjectID]V {
	out := make(map[primitive.ObjectID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- users ---

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = *user
	return user.ID, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := u
	return &out, nil
}

// --- workouts ---

type workoutRepo struct{ s *Store }

func (r *workoutRepo) Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if workout.ID == primitive.NilObjectID {
		workout.ID = primitive.NewObjectID()
	}
	if workout.State == "" {
		workout.State = domain.WorkoutVisible
	}
	now := time.Now().UTC()
	if workout.CreatedAt.IsZero() {
		workout.CreatedAt = now
	}
	workout.UpdatedAt = now
	r.s.workouts[workout.ID] = *workout
	return workout.ID, nil
}

func (r *workoutRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := w
	return &out, nil
}

func (r *workoutRepo) List(ctx context.Context) ([]domain.Workout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Workout, 0, len(r.s.workouts))
	for _, w := range r.s.workouts {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *workoutRepo) Update(ctx context.Context, workout *domain.Workout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.workouts[workout.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Name = workout.Name
	existing.DurationMinutes = workout.DurationMinutes
	existing.Difficulty = workout.Difficulty
	existing.UpdatedAt = time.Now().UTC()
	r.s.workouts[workout.ID] = existing
	return nil
}

func (r *workoutRepo) SetState(ctx context.Context, id primitive.ObjectID, state domain.WorkoutState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.workouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	w.State = state
	w.UpdatedAt = time.Now().UTC()
	r.s.workouts[id] = w
	return nil
}

func (r *workoutRepo) DeleteAllNonPreloaded(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, w := range r.s.workouts {
		if !w.Preloaded {
			delete(r.s.workouts, id)
		}
	}
	return nil
}

// --- actions ---

type actionRepo struct{ s *Store }

func (r *actionRepo) Create(ctx context.Context, action *domain.Action) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if action.ID == primitive.NilObjectID {
		action.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if action.CreatedAt.IsZero() {
		action.CreatedAt = now
	}
	action.UpdatedAt = now
	r.s.actions[action.ID] = *action
	return action.ID, nil
}

func (r *actionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Action, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.actions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := a
	return &out, nil
}

func (r *actionRepo) List(ctx context.Context) ([]domain.Action, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Action, 0, len(r.s.actions))
	for _, a := range r.s.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *actionRepo) Update(ctx context.Context, action *domain.Action) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.actions[action.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Description = action.Description
	existing.Points = action.Points
	existing.UpdatedAt = time.Now().UTC()
	r.s.actions[action.ID] = existing
	return nil
}

func (r *actionRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.actions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.actions, id)
	return nil
}

func (r *actionRepo) DeleteAll(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.actions = make(map[primitive.ObjectID]domain.Action)
	return nil
}

// --- pools ---

type poolRepo struct{ s *Store }

func (r *poolRepo) Create(ctx context.Context, pool *domain.WorkoutPool) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if pool.ID == primitive.NilObjectID {
		pool.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if pool.CreatedAt.IsZero() {
		pool.CreatedAt = now
	}
	pool.UpdatedAt = now
	r.s.pools[pool.ID] = *pool
	return pool.ID, nil
}

func (r *poolRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.WorkoutPool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.pools[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := p
	return &out, nil
}

func (r *poolRepo) List(ctx context.Context) ([]domain.WorkoutPool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.WorkoutPool, 0, len(r.s.pools))
	for _, p := range r.s.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *poolRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.pools[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.pools, id)
	for mid, m := range r.s.memberships {
		if m.PoolID == id {
			delete(r.s.memberships, mid)
		}
	}
	return nil
}

func (r *poolRepo) DeleteAll(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.pools = make(map[primitive.ObjectID]domain.WorkoutPool)
	return nil
}

func (r *poolRepo) AddMembership(ctx context.Context, m *domain.PoolMembership) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.memberships {
		if existing.PoolID == m.PoolID && existing.WorkoutID == m.WorkoutID {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	if m.ID == primitive.NilObjectID {
		m.ID = primitive.NewObjectID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	r.s.memberships[m.ID] = *m
	return m.ID, nil
}

func (r *poolRepo) RemoveMembership(ctx context.Context, poolID, workoutID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, m := range r.s.memberships {
		if m.PoolID == poolID && m.WorkoutID == workoutID {
			delete(r.s.memberships, id)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *poolRepo) ListMemberships(ctx context.Context) ([]domain.PoolMembership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.PoolMembership, 0, len(r.s.memberships))
	for _, m := range r.s.memberships {
		out = append(out, m)
	}
	return out, nil
}

func (r *poolRepo) ListMembershipsByPool(ctx context.Context, poolID primitive.ObjectID) ([]domain.PoolMembership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.PoolMembership
	for _, m := range r.s.memberships {
		if m.PoolID == poolID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *poolRepo) DeleteAllMemberships(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.memberships = make(map[primitive.ObjectID]domain.PoolMembership)
	return nil
}

// --- sessions ---

type sessionRepo struct{ s *Store }

func (r *sessionRepo) Create(ctx context.Context, session *domain.Session) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if session.Status == domain.SessionActive {
		for _, existing := range r.s.sessions {
			if existing.OwnerID == session.OwnerID && existing.Status == domain.SessionActive {
				return primitive.NilObjectID, repository.ErrDuplicate
			}
		}
	}
	if session.ID == primitive.NilObjectID {
		session.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	r.s.sessions[session.ID] = *session
	return session.ID, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := sess
	return &out, nil
}

func (r *sessionRepo) GetActiveByOwner(ctx context.Context, ownerID primitive.ObjectID) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, sess := range r.s.sessions {
		if sess.OwnerID == ownerID && sess.Status == domain.SessionActive {
			out := sess
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *sessionRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Session
	for _, sess := range r.s.sessions {
		if sess.OwnerID == ownerID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (r *sessionRepo) List(ctx context.Context) ([]domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Session, 0, len(r.s.sessions))
	for _, sess := range r.s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (r *sessionRepo) AddPoints(ctx context.Context, id primitive.ObjectID, points int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok || sess.Status != domain.SessionActive {
		return repository.ErrPreconditionFailed
	}
	sess.PointsEarned += points
	sess.UpdatedAt = time.Now().UTC()
	r.s.sessions[id] = sess
	return nil
}

func (r *sessionRepo) SpendPoints(ctx context.Context, id primitive.ObjectID, cost int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok || sess.Status != domain.SessionActive || sess.Balance() < cost {
		return repository.ErrPreconditionFailed
	}
	sess.PointsSpent += cost
	sess.UpdatedAt = time.Now().UTC()
	r.s.sessions[id] = sess
	return nil
}

func (r *sessionRepo) Finish(ctx context.Context, id primitive.ObjectID, status domain.SessionStatus) (*domain.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sess, ok := r.s.sessions[id]
	if !ok || sess.Status != domain.SessionActive {
		return nil, repository.ErrPreconditionFailed
	}
	now := time.Now().UTC()
	sess.Status = status
	sess.EndedAt = &now
	sess.UpdatedAt = now
	r.s.sessions[id] = sess
	out := sess
	return &out, nil
}

func (r *sessionRepo) DeleteAll(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sessions = make(map[primitive.ObjectID]domain.Session)
	return nil
}

// --- completions ---

type completionRepo struct{ s *Store }

func (r *completionRepo) Create(ctx context.Context, completion *domain.ActionCompletion) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if completion.ID == primitive.NilObjectID {
		completion.ID = primitive.NewObjectID()
	}
	if completion.CompletedAt.IsZero() {
		completion.CompletedAt = time.Now().UTC()
	}
	r.s.completions[completion.ID] = *completion
	return completion.ID, nil
}

func (r *completionRepo) ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.ActionCompletion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.ActionCompletion
	for _, c := range r.s.completions {
		if c.SessionID == sessionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

func (r *completionRepo) ListByAction(ctx context.Context, actionID primitive.ObjectID) ([]domain.ActionCompletion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.ActionCompletion
	for _, c := range r.s.completions {
		if c.ActionID == actionID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *completionRepo) List(ctx context.Context) ([]domain.ActionCompletion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.ActionCompletion, 0, len(r.s.completions))
	for _, c := range r.s.completions {
		out = append(out, c)
	}
	return out, nil
}

func (r *completionRepo) DeleteAll(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.completions = make(map[primitive.ObjectID]domain.ActionCompletion)
	return nil
}

// --- received ---

type receivedRepo struct{ s *Store }

func (r *receivedRepo) Create(ctx context.Context, received *domain.WorkoutReceived) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if received.ID == primitive.NilObjectID {
		received.ID = primitive.NewObjectID()
	}
	if received.ReceivedAt.IsZero() {
		received.ReceivedAt = time.Now().UTC()
	}
	r.s.received[received.ID] = *received
	return received.ID, nil
}

func (r *receivedRepo) ListBySession(ctx context.Context, sessionID primitive.ObjectID) ([]domain.WorkoutReceived, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.WorkoutReceived
	for _, rec := range r.s.received {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.Before(out[j].ReceivedAt) })
	return out, nil
}

func (r *receivedRepo) ListByWorkout(ctx context.Context, workoutID primitive.ObjectID) ([]domain.WorkoutReceived, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.WorkoutReceived
	for _, rec := range r.s.received {
		if rec.WorkoutID == workoutID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *receivedRepo) List(ctx context.Context) ([]domain.WorkoutReceived, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.WorkoutReceived, 0, len(r.s.received))
	for _, rec := range r.s.received {
		out = append(out, rec)
	}
	return out, nil
}

func (r *receivedRepo) DeleteAll(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.received = make(map[primitive.ObjectID]domain.WorkoutReceived)
	return nil
}
