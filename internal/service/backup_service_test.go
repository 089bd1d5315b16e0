package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"sweatpoints/fitness-app/internal/domain"
	"sweatpoints/fitness-app/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestBackupService(store *memory.Store) BackupService {
	return NewBackupService(
		store.Workouts(), store.Actions(), store.Pools(),
		store.Sessions(), store.Completions(), store.Received(),
		store, nil,
	)
}

// seedEngine populates a store with one of everything through the service
// layer, so the seeded data obeys the same invariants production data would.
func seedEngine(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()

	sessions := newTestSessionService(store, 3)
	ownerID := primitive.NewObjectID()
	poolID, _ := seedPool(t, store, visibleWorkout("Run 5k"), visibleWorkout("Swim"))
	actionID := seedAction(t, store, 10)

	session, err := sessions.StartSession(ctx, ownerID, poolID, "Seeded", "")
	require.NoError(t, err)
	_, err = sessions.CompleteAction(ctx, ownerID, session.ID, actionID)
	require.NoError(t, err)
	_, _, err = sessions.RedeemWorkout(ctx, ownerID, session.ID, 7)
	require.NoError(t, err)
	_, err = sessions.EndSession(ctx, ownerID, session.ID)
	require.NoError(t, err)
}

func TestExport_EmptyDatabase(t *testing.T) {
	store := memory.NewStore()
	svc := newTestBackupService(store)

	snap, err := svc.Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.False(t, snap.ExportedAt.IsZero())

	// Empty collections serialize as [], not null, so the snapshot
	// re-imports cleanly.
	assert.NotNil(t, snap.Workouts)
	assert.NotNil(t, snap.Actions)
	assert.NotNil(t, snap.Pools)
	assert.NotNil(t, snap.Memberships)
	assert.NotNil(t, snap.Sessions)
	assert.NotNil(t, snap.Completions)
	assert.NotNil(t, snap.Received)

	body, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "null")
}

func TestExport_IsSelfConsistent(t *testing.T) {
	store := memory.NewStore()
	seedEngine(t, store)
	svc := newTestBackupService(store)

	snap, err := svc.Export(context.Background())
	require.NoError(t, err)

	report := ValidateSnapshot(snap)
	assert.False(t, report.HasErrors())
	assert.Empty(t, report.Warnings)
}

func TestImport_RejectsInvalidSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedEngine(t, store)
	svc := newTestBackupService(store)

	before, err := svc.Export(ctx)
	require.NoError(t, err)

	bad := consistentSnapshot()
	bad.Received[0].WorkoutID = primitive.NewObjectID()

	report, err := svc.Import(ctx, bad, true)
	require.Error(t, err)
	var integrity *IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.True(t, report.HasErrors())

	// A rejected snapshot must not have touched the database.
	after, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, after.Workouts, len(before.Workouts))
	assert.Len(t, after.Sessions, len(before.Sessions))
	assert.Len(t, after.Received, len(before.Received))
}

func TestImport_OverwriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := memory.NewStore()
	seedEngine(t, source)

	snap, err := newTestBackupService(source).Export(ctx)
	require.NoError(t, err)

	// Target already holds unrelated data that overwrite must clear.
	target := memory.NewStore()
	_, err = target.Workouts().Create(ctx, &domain.Workout{Name: "Stale", DurationMinutes: 10, Difficulty: domain.DifficultyBeginner})
	require.NoError(t, err)
	_, err = target.Actions().Create(ctx, &domain.Action{Description: "stale", Points: 1})
	require.NoError(t, err)

	targetSvc := newTestBackupService(target)
	report, err := targetSvc.Import(ctx, snap, true)
	require.NoError(t, err)
	assert.False(t, report.HasErrors())

	restored, err := targetSvc.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, restored.Workouts, len(snap.Workouts))
	assert.Len(t, restored.Actions, len(snap.Actions))
	assert.Len(t, restored.Pools, len(snap.Pools))
	assert.Len(t, restored.Memberships, len(snap.Memberships))
	assert.Len(t, restored.Sessions, len(snap.Sessions))
	assert.Len(t, restored.Completions, len(snap.Completions))
	assert.Len(t, restored.Received, len(snap.Received))

	// Per-session ledger totals survive the round trip intact.
	require.Len(t, restored.Sessions, 1)
	assert.Equal(t, snap.Sessions[0].ID, restored.Sessions[0].ID)
	assert.Equal(t, snap.Sessions[0].PointsEarned, restored.Sessions[0].PointsEarned)
	assert.Equal(t, snap.Sessions[0].PointsSpent, restored.Sessions[0].PointsSpent)
	assert.Equal(t, snap.Sessions[0].Status, restored.Sessions[0].Status)
}

func TestImport_OverwritePreservesPreloadedWorkouts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	preloadedID, err := store.Workouts().Create(ctx, &domain.Workout{
		Name: "Built-in burpees", DurationMinutes: 15,
		Difficulty: domain.DifficultyIntermediate, Preloaded: true,
	})
	require.NoError(t, err)

	svc := newTestBackupService(store)
	snap, err := svc.Export(ctx)
	require.NoError(t, err)

	report, err := svc.Import(ctx, snap, true)
	require.NoError(t, err)
	assert.False(t, report.HasErrors())

	// The preloaded workout survived the clear and was not duplicated by
	// the reinsert.
	restored, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, restored.Workouts, 1)
	assert.Equal(t, preloadedID, restored.Workouts[0].ID)
}

func TestImport_MergeAssignsFreshIdentities(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedEngine(t, store)
	svc := newTestBackupService(store)

	snap, err := svc.Export(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Workouts, 2)

	// End-state sessions merge in fine; only a second active session for
	// the same owner would conflict.
	_, err = svc.Import(ctx, snap, false)
	require.NoError(t, err)

	after, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, after.Workouts, 4)
	assert.Len(t, after.Actions, 2)
	assert.Len(t, after.Pools, 2)
	assert.Len(t, after.Sessions, 2)

	// None of the merged rows reuse a snapshot id.
	originals := make(map[primitive.ObjectID]bool)
	for _, w := range snap.Workouts {
		originals[w.ID] = true
	}
	var fresh int
	for _, w := range after.Workouts {
		if !originals[w.ID] {
			fresh++
		}
	}
	assert.Equal(t, 2, fresh)
}

func TestImport_MergeSkipsHistoryAndMemberships(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedEngine(t, store)
	svc := newTestBackupService(store)

	snap, err := svc.Export(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, snap.Completions)
	require.NotEmpty(t, snap.Received)
	require.NotEmpty(t, snap.Memberships)

	_, err = svc.Import(ctx, snap, false)
	require.NoError(t, err)

	// History and relationship rows reference the snapshot's ids, which no
	// longer exist after re-identification, so merge leaves them out.
	after, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, after.Completions, len(snap.Completions))
	assert.Len(t, after.Received, len(snap.Received))
	assert.Len(t, after.Memberships, len(snap.Memberships))
}

func TestImport_JSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedEngine(t, store)
	svc := newTestBackupService(store)

	snap, err := svc.Export(ctx)
	require.NoError(t, err)

	body, err := json.Marshal(snap)
	require.NoError(t, err)

	// Stable wire field names.
	for _, field := range []string{
		"version", "exportedAt", "workouts", "actions", "workoutPools",
		"workoutPoolWorkouts", "sessions", "actionCompletions", "workoutsReceived",
	} {
		assert.Contains(t, string(body), `"`+field+`"`)
	}

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(body, &decoded))

	report := ValidateSnapshot(&decoded)
	assert.False(t, report.HasErrors())
	assert.Empty(t, report.Warnings)
}

// fakeArchive records uploads in memory.
type fakeArchive struct {
	objectKey   string
	contentType string
	body        []byte
}

func (a *fakeArchive) Upload(ctx context.Context, objectKey, contentType string, body []byte) error {
	a.objectKey = objectKey
	a.contentType = contentType
	a.body = body
	return nil
}

func (a *fakeArchive) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://archive.example.com/" + objectKey + "?signed", nil
}

func (a *fakeArchive) DeleteObject(ctx context.Context, objectKey string) error {
	return nil
}

func TestPushToArchive_UploadsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedEngine(t, store)

	archive := &fakeArchive{}
	svc := NewBackupService(
		store.Workouts(), store.Actions(), store.Pools(),
		store.Sessions(), store.Completions(), store.Received(),
		store, archive,
	)

	snap, err := svc.Export(ctx)
	require.NoError(t, err)

	objectKey, downloadURL, err := svc.PushToArchive(ctx, snap)
	require.NoError(t, err)

	assert.Equal(t, archive.objectKey, objectKey)
	assert.True(t, strings.HasPrefix(objectKey, "backups/"), "key %q should live under backups/", objectKey)
	assert.True(t, strings.HasSuffix(objectKey, ".json"))
	assert.Equal(t, "application/json", archive.contentType)
	assert.Contains(t, downloadURL, objectKey)

	var uploaded Snapshot
	require.NoError(t, json.Unmarshal(archive.body, &uploaded))
	assert.Equal(t, snap.Version, uploaded.Version)
	assert.Len(t, uploaded.Sessions, len(snap.Sessions))
}

func TestPushToArchive_NoStorageConfigured(t *testing.T) {
	store := memory.NewStore()
	svc := newTestBackupService(store)

	snap, err := svc.Export(context.Background())
	require.NoError(t, err)

	_, _, err = svc.PushToArchive(context.Background(), snap)
	assert.Error(t, err)
}
