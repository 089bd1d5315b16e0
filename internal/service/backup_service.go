package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sweatpoints/fitness-app/internal/domain"
	"sweatpoints/fitness-app/internal/repository"
	"sweatpoints/fitness-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SnapshotVersion tags exports so future schema changes stay importable.
const SnapshotVersion = "1.0"

// Snapshot is the full-database backup format. Field names are stable: an
// export must import back byte-for-byte compatible across versions of this
// service.
type Snapshot struct {
	Version     string                    `json:"version"`
	ExportedAt  time.Time                 `json:"exportedAt"`
	Workouts    []domain.Workout          `json:"workouts"`
	Actions     []domain.Action           `json:"actions"`
	Pools       []domain.WorkoutPool      `json:"workoutPools"`
	Memberships []domain.PoolMembership   `json:"workoutPoolWorkouts"`
	Sessions    []domain.Session          `json:"sessions"`
	Completions []domain.ActionCompletion `json:"actionCompletions"`
	Received    []domain.WorkoutReceived  `json:"workoutsReceived"`
}

// --- Service Interface ---
type BackupService interface {
	// Export produces a snapshot of all seven collections.
	Export(ctx context.Context) (*Snapshot, error)
	// Import validates a snapshot and loads it. Overwrite mode clears
	// existing data first and restores the snapshot verbatim; merge mode
	// inserts only top-level entities under fresh identities and skips
	// relationship and history records, whose foreign keys would dangle
	// against the newly assigned ids. The returned report carries any
	// warnings even when the import succeeds.
	Import(ctx context.Context, snap *Snapshot, overwrite bool) (*ValidationReport, error)
	// PushToArchive uploads a snapshot to object storage and returns the
	// object key plus a presigned download URL.
	PushToArchive(ctx context.Context, snap *Snapshot) (objectKey, downloadURL string, err error)
}

// --- Service Implementation ---

type backupService struct {
	workoutRepo    repository.WorkoutRepository
	actionRepo     repository.ActionRepository
	poolRepo       repository.PoolRepository
	sessionRepo    repository.SessionRepository
	completionRepo repository.CompletionRepository
	receivedRepo   repository.ReceivedRepository
	tx             repository.TxRunner
	archive        storage.ArchiveStorage
}

// NewBackupService creates a new instance of backupService. archive may be
// nil when no object storage is configured; PushToArchive then fails.
func NewBackupService(
	workoutRepo repository.WorkoutRepository,
	actionRepo repository.ActionRepository,
	poolRepo repository.PoolRepository,
	sessionRepo repository.SessionRepository,
	completionRepo repository.CompletionRepository,
	receivedRepo repository.ReceivedRepository,
	tx repository.TxRunner,
	archive storage.ArchiveStorage,
) BackupService {
	return &backupService{
		workoutRepo:    workoutRepo,
		actionRepo:     actionRepo,
		poolRepo:       poolRepo,
		sessionRepo:    sessionRepo,
		completionRepo: completionRepo,
		receivedRepo:   receivedRepo,
		tx:             tx,
		archive:        archive,
	}
}

// Export reads every collection into a snapshot. Collections come back
// non-nil even when empty so the structural validation pass on re-import
// sees them as present.
func (s *backupService) Export(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: time.Now().UTC(),
	}

	var err error
	if snap.Workouts, err = s.workoutRepo.List(ctx); err != nil {
		return nil, err
	}
	if snap.Actions, err = s.actionRepo.List(ctx); err != nil {
		return nil, err
	}
	if snap.Pools, err = s.poolRepo.List(ctx); err != nil {
		return nil, err
	}
	if snap.Memberships, err = s.poolRepo.ListMemberships(ctx); err != nil {
		return nil, err
	}
	if snap.Sessions, err = s.sessionRepo.List(ctx); err != nil {
		return nil, err
	}
	if snap.Completions, err = s.completionRepo.List(ctx); err != nil {
		return nil, err
	}
	if snap.Received, err = s.receivedRepo.List(ctx); err != nil {
		return nil, err
	}

	ensureNonNil(snap)
	return snap, nil
}

// Import validates, then loads. Validation always runs before any mutation;
// a snapshot with errors is rejected untouched. The mutation itself runs
// inside a transaction where the storage layer supports one.
func (s *backupService) Import(ctx context.Context, snap *Snapshot, overwrite bool) (*ValidationReport, error) {
	report := ValidateSnapshot(snap)
	if report.HasErrors() {
		return report, &IntegrityError{Report: report}
	}

	err := s.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if overwrite {
			return s.importOverwrite(txCtx, snap)
		}
		return s.importMerge(txCtx, snap)
	})
	if err != nil {
		return report, err
	}
	return report, nil
}

// importOverwrite clears existing non-preloaded data in strict reverse
// dependency order, then restores the snapshot in forward dependency order,
// so a foreign key is always satisfiable at insert time.
func (s *backupService) importOverwrite(ctx context.Context, snap *Snapshot) error {
	if err := s.receivedRepo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.completionRepo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.sessionRepo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.poolRepo.DeleteAllMemberships(ctx); err != nil {
		return err
	}
	if err := s.poolRepo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.actionRepo.DeleteAll(ctx); err != nil {
		return err
	}
	if err := s.workoutRepo.DeleteAllNonPreloaded(ctx); err != nil {
		return err
	}

	for i := range snap.Workouts {
		w := snap.Workouts[i]
		// Preloaded workouts survived the clear; skip rows that are
		// already present.
		if _, err := s.workoutRepo.GetByID(ctx, w.ID); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if _, err := s.workoutRepo.Create(ctx, &w); err != nil {
			return err
		}
	}
	for i := range snap.Actions {
		a := snap.Actions[i]
		if _, err := s.actionRepo.Create(ctx, &a); err != nil {
			return err
		}
	}
	for i := range snap.Pools {
		p := snap.Pools[i]
		if _, err := s.poolRepo.Create(ctx, &p); err != nil {
			return err
		}
	}
	for i := range snap.Memberships {
		m := snap.Memberships[i]
		if _, err := s.poolRepo.AddMembership(ctx, &m); err != nil {
			return err
		}
	}
	for i := range snap.Sessions {
		sess := snap.Sessions[i]
		if _, err := s.sessionRepo.Create(ctx, &sess); err != nil {
			return err
		}
	}
	for i := range snap.Completions {
		c := snap.Completions[i]
		if _, err := s.completionRepo.Create(ctx, &c); err != nil {
			return err
		}
	}
	for i := range snap.Received {
		r := snap.Received[i]
		if _, err := s.receivedRepo.Create(ctx, &r); err != nil {
			return err
		}
	}
	return nil
}

// importMerge inserts top-level entities under freshly assigned identities
// with zeroed audit timestamps. Memberships, completions and redemptions are
// deliberately skipped: their foreign keys point at the snapshot's ids, not
// the new ones. A documented limitation, not an oversight.
func (s *backupService) importMerge(ctx context.Context, snap *Snapshot) error {
	for i := range snap.Workouts {
		w := snap.Workouts[i]
		w.ID = primitive.NilObjectID
		w.CreatedAt = time.Time{}
		if _, err := s.workoutRepo.Create(ctx, &w); err != nil {
			return err
		}
	}
	for i := range snap.Actions {
		a := snap.Actions[i]
		a.ID = primitive.NilObjectID
		a.CreatedAt = time.Time{}
		if _, err := s.actionRepo.Create(ctx, &a); err != nil {
			return err
		}
	}
	for i := range snap.Pools {
		p := snap.Pools[i]
		p.ID = primitive.NilObjectID
		p.CreatedAt = time.Time{}
		if _, err := s.poolRepo.Create(ctx, &p); err != nil {
			return err
		}
	}
	for i := range snap.Sessions {
		sess := snap.Sessions[i]
		sess.ID = primitive.NilObjectID
		sess.CreatedAt = time.Time{}
		if _, err := s.sessionRepo.Create(ctx, &sess); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return fmt.Errorf("merge import: session %q is active and its owner already has an active session", sess.Name)
			}
			return err
		}
	}
	return nil
}

// PushToArchive serializes the snapshot to JSON and uploads it under a
// fresh uuid key.
func (s *backupService) PushToArchive(ctx context.Context, snap *Snapshot) (string, string, error) {
	if s.archive == nil {
		return "", "", errors.New("no archive storage configured")
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", "", err
	}

	objectKey := fmt.Sprintf("backups/%s/%s.json", snap.ExportedAt.Format("2006-01-02"), uuid.New().String())
	if err := s.archive.Upload(ctx, objectKey, "application/json", body); err != nil {
		return "", "", err
	}

	url, err := s.archive.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", "", err
	}
	return objectKey, url, nil
}

func ensureNonNil(snap *Snapshot) {
	if snap.Workouts == nil {
		snap.Workouts = []domain.Workout{}
	}
	if snap.Actions == nil {
		snap.Actions = []domain.Action{}
	}
	if snap.Pools == nil {
		snap.Pools = []domain.WorkoutPool{}
	}
	if snap.Memberships == nil {
		snap.Memberships = []domain.PoolMembership{}
	}
	if snap.Sessions == nil {
		snap.Sessions = []domain.Session{}
	}
	if snap.Completions == nil {
		snap.Completions = []domain.ActionCompletion{}
	}
	if snap.Received == nil {
		snap.Received = []domain.WorkoutReceived{}
	}
}
