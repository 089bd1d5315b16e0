package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sweatpoints/fitness-app/internal/config"
	"sweatpoints/fitness-app/internal/repository/memory"
	"sweatpoints/fitness-app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testJWTSecret = "test-secret"

// testServer wires the full HTTP stack over the in-memory store.
type testServer struct {
	router *gin.Engine
	store  *memory.Store
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	policy := config.PolicyConfig{
		MaxWorkoutDurationMinutes: 480,
		MinActionPoints:           1,
		MaxActionPoints:           1000,
		MaxSessionNameLength:      100,
	}

	authService := service.NewAuthService(store.Users(), testJWTSecret, time.Hour)
	sessionService := service.NewSessionService(
		store.Sessions(), store.Pools(), store.Workouts(), store.Actions(),
		store.Completions(), store.Received(), store,
		service.NewRandomSelector(rand.New(rand.NewSource(1))), policy)
	catalogService := service.NewCatalogService(
		store.Workouts(), store.Actions(), store.Pools(),
		store.Sessions(), store.Completions(), store.Received(), policy)
	backupService := service.NewBackupService(
		store.Workouts(), store.Actions(), store.Pools(),
		store.Sessions(), store.Completions(), store.Received(),
		store, nil)

	router := gin.New()
	SetupRoutes(router, testJWTSecret, authService, sessionService, catalogService, backupService)

	srv := &testServer{router: router, store: store}
	srv.register(t, "tester@example.com")
	return srv
}

func (s *testServer) register(t *testing.T, email string) {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Tester","email":%q,"password":"hunter22"}`, email)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	login := fmt.Sprintf(`{"email":%q,"password":"hunter22"}`, email)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(login))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	s.token = resp.Token
}

func (s *testServer) do(t *testing.T, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// seedPoolWithWorkout creates a workout, a pool, and links them.
func (s *testServer) seedPoolWithWorkout(t *testing.T) (poolID, workoutID string) {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/workouts", CreateWorkoutRequest{
		Name: "Run 5k", DurationMinutes: 30, Difficulty: "beginner",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var workout WorkoutResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &workout))

	w = s.do(t, http.MethodPost, "/api/v1/pools", CreatePoolRequest{Name: "Cardio"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pool PoolResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pool))

	w = s.do(t, http.MethodPost, "/api/v1/pools/"+pool.ID+"/workouts", PoolMemberRequest{WorkoutID: workout.ID})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	return pool.ID, workout.ID
}

func (s *testServer) startSession(t *testing.T, poolID string) SessionResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/sessions", StartSessionRequest{
		Name: "Morning grind", PoolID: poolID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var session SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	return session
}

func TestSessionEndpoints_Lifecycle(t *testing.T) {
	srv := newTestServer(t)
	poolID, _ := srv.seedPoolWithWorkout(t)

	session := srv.startSession(t, poolID)
	assert.Equal(t, "active", session.Status)
	assert.Equal(t, 0, session.Balance)

	// The active session is discoverable.
	w := srv.do(t, http.MethodGet, "/api/v1/sessions/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &active))
	assert.Equal(t, session.ID, active.ID)

	// A second start conflicts.
	w = srv.do(t, http.MethodPost, "/api/v1/sessions", StartSessionRequest{Name: "Second", PoolID: poolID})
	assert.Equal(t, http.StatusConflict, w.Code)

	// End it; ending again conflicts.
	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/end", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ended SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ended))
	assert.Equal(t, "completed", ended.Status)
	require.NotNil(t, ended.EndedAt)

	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/end", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// No active session left.
	w = srv.do(t, http.MethodGet, "/api/v1/sessions/active", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionEndpoints_EarnAndRedeem(t *testing.T) {
	srv := newTestServer(t)
	poolID, workoutID := srv.seedPoolWithWorkout(t)

	w := srv.do(t, http.MethodPost, "/api/v1/actions", CreateActionRequest{Description: "pushups", Points: 10})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var action ActionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &action))

	session := srv.startSession(t, poolID)

	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/completions", CompleteActionRequest{ActionID: action.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var completion CompletionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &completion))
	assert.Equal(t, 10, completion.PointsAwarded)

	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/redemptions", RedeemWorkoutRequest{PointCost: 7})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var redemption RedemptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &redemption))
	assert.Equal(t, workoutID, redemption.WorkoutID)
	require.NotNil(t, redemption.Workout)
	assert.Equal(t, "Run 5k", redemption.Workout.Name)

	// Balance is down to 3; asking for 5 returns 409 with both numbers.
	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/redemptions", RedeemWorkoutRequest{PointCost: 5})
	require.Equal(t, http.StatusConflict, w.Code)
	var conflict struct {
		Error    string `json:"error"`
		Balance  int    `json:"balance"`
		Required int    `json:"required"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conflict))
	assert.Equal(t, 3, conflict.Balance)
	assert.Equal(t, 5, conflict.Required)

	// Ledger state is reflected on the session resource.
	w = srv.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var current SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &current))
	assert.Equal(t, 10, current.PointsEarned)
	assert.Equal(t, 7, current.PointsSpent)
	assert.Equal(t, 3, current.Balance)
}

func TestSessionEndpoints_EmptyPool(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/pools", CreatePoolRequest{Name: "Empty"})
	require.Equal(t, http.StatusCreated, w.Code)
	var pool PoolResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pool))

	w = srv.do(t, http.MethodPost, "/api/v1/sessions", StartSessionRequest{Name: "Doomed", PoolID: pool.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSessionEndpoints_Unauthorized(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionEndpoints_OtherOwnersSessionForbidden(t *testing.T) {
	srv := newTestServer(t)
	poolID, _ := srv.seedPoolWithWorkout(t)
	session := srv.startSession(t, poolID)

	// Switch identity; the first owner's session becomes off limits.
	srv.register(t, "intruder@example.com")

	w := srv.do(t, http.MethodGet, "/api/v1/sessions/"+session.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/sessions/"+session.ID+"/end", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBackupEndpoints_ExportImport(t *testing.T) {
	srv := newTestServer(t)
	srv.seedPoolWithWorkout(t)

	w := srv.do(t, http.MethodGet, "/api/v1/backup/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap service.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Len(t, snap.Workouts, 1)
	assert.Len(t, snap.Pools, 1)

	w = srv.do(t, http.MethodPost, "/api/v1/backup/import", ImportRequest{Overwrite: true, Snapshot: &snap})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Imported)
	assert.Empty(t, resp.Errors)
}

func TestBackupEndpoints_ImportRejectsDanglingReference(t *testing.T) {
	srv := newTestServer(t)
	srv.seedPoolWithWorkout(t)

	w := srv.do(t, http.MethodGet, "/api/v1/backup/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap service.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Len(t, snap.Memberships, 1)

	// Point the membership at a workout that does not exist.
	snap.Memberships[0].WorkoutID = primitive.NewObjectID()

	w = srv.do(t, http.MethodPost, "/api/v1/backup/import", ImportRequest{Overwrite: true, Snapshot: &snap})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp ImportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Imported)
	assert.NotEmpty(t, resp.Errors)
}
