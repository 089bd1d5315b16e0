package api

import (
	"errors"
	"net/http"
	"time"

	"sweatpoints/fitness-app/internal/domain"
	"sweatpoints/fitness-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionHandler holds the session service dependency.
type SessionHandler struct {
	sessionService service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// --- DTOs for API (Data Transfer Objects) ---

// StartSessionRequest defines the expected JSON for starting a session.
type StartSessionRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	PoolID      string `json:"poolId" binding:"required"`
	Description string `json:"description"`
}

// CompleteActionRequest names the action being completed.
type CompleteActionRequest struct {
	ActionID string `json:"actionId" binding:"required"`
}

// RedeemWorkoutRequest carries the point cost the caller is spending.
type RedeemWorkoutRequest struct {
	PointCost int `json:"pointCost" binding:"required,gt=0"`
}

// SessionResponse is the DTO for returning session details.
type SessionResponse struct {
	ID           string     `json:"id"`
	PoolID       string     `json:"poolId"`
	Name         string     `json:"name"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	PointsEarned int        `json:"pointsEarned"`
	PointsSpent  int        `json:"pointsSpent"`
	Balance      int        `json:"balance"`
	StartedAt    time.Time  `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt,omitempty"`
}

// CompletionResponse is the DTO for a recorded action completion.
type CompletionResponse struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	ActionID      string    `json:"actionId"`
	PointsAwarded int       `json:"pointsAwarded"`
	CompletedAt   time.Time `json:"completedAt"`
}

// RedemptionResponse is the DTO for a recorded redemption, including the
// workout the selector chose.
type RedemptionResponse struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"sessionId"`
	WorkoutID   string           `json:"workoutId"`
	PointsSpent int              `json:"pointsSpent"`
	ReceivedAt  time.Time        `json:"receivedAt"`
	Workout     *WorkoutResponse `json:"workout,omitempty"`
}

// MapSessionToResponse converts a domain.Session to SessionResponse DTO.
func MapSessionToResponse(s *domain.Session) SessionResponse {
	if s == nil {
		return SessionResponse{}
	}
	return SessionResponse{
		ID:           s.ID.Hex(),
		PoolID:       s.PoolID.Hex(),
		Name:         s.Name,
		Description:  s.Description,
		Status:       string(s.Status),
		PointsEarned: s.PointsEarned,
		PointsSpent:  s.PointsSpent,
		Balance:      s.Balance(),
		StartedAt:    s.StartedAt,
		EndedAt:      s.EndedAt,
	}
}

// MapSessionsToResponse converts a slice of domain.Session to DTOs.
func MapSessionsToResponse(sessions []domain.Session) []SessionResponse {
	responses := make([]SessionResponse, len(sessions))
	for i, s := range sessions {
		responses[i] = MapSessionToResponse(&s)
	}
	return responses
}

func mapCompletionToResponse(c *domain.ActionCompletion) CompletionResponse {
	return CompletionResponse{
		ID:            c.ID.Hex(),
		SessionID:     c.SessionID.Hex(),
		ActionID:      c.ActionID.Hex(),
		PointsAwarded: c.PointsAwarded,
		CompletedAt:   c.CompletedAt,
	}
}

func mapRedemptionToResponse(r *domain.WorkoutReceived, workout *domain.Workout) RedemptionResponse {
	resp := RedemptionResponse{
		ID:          r.ID.Hex(),
		SessionID:   r.SessionID.Hex(),
		WorkoutID:   r.WorkoutID.Hex(),
		PointsSpent: r.PointsSpent,
		ReceivedAt:  r.ReceivedAt,
	}
	if workout != nil {
		w := MapWorkoutToResponse(workout)
		resp.Workout = &w
	}
	return resp
}

// --- Handler Methods ---

// StartSession starts a new session on a pool.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	ownerID, err := ownerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	poolID, err := primitive.ObjectIDFromHex(req.PoolID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid pool ID format.")
		return
	}

	session, err := h.sessionService.StartSession(c.Request.Context(), ownerID, poolID, req.Name, req.Description)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapSessionToResponse(session))
}

// GetActiveSession returns the caller's active session, 404 when none.
func (h *SessionHandler) GetActiveSession(c *gin.Context) {
	ownerID, err := ownerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	session, err := h.sessionService.GetActiveSession(c.Request.Context(), ownerID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// GetSession returns one session by id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	ownerID, sessionID, ok := h.ownerAndSession(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetSessionByID(c.Request.Context(), ownerID, sessionID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// ListSessions returns the caller's sessions, newest-started first.
func (h *SessionHandler) ListSessions(c *gin.Context) {
	ownerID, err := ownerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	sessions, err := h.sessionService.GetAllSessions(c.Request.Context(), ownerID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionsToResponse(sessions))
}

// EndSession completes the session.
func (h *SessionHandler) EndSession(c *gin.Context) {
	ownerID, sessionID, ok := h.ownerAndSession(c)
	if !ok {
		return
	}

	session, err := h.sessionService.EndSession(c.Request.Context(), ownerID, sessionID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// CancelSession abandons the session.
func (h *SessionHandler) CancelSession(c *gin.Context) {
	ownerID, sessionID, ok := h.ownerAndSession(c)
	if !ok {
		return
	}

	session, err := h.sessionService.CancelSession(c.Request.Context(), ownerID, sessionID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSessionToResponse(session))
}

// CompleteAction awards an action's points to the session.
func (h *SessionHandler) CompleteAction(c *gin.Context) {
	ownerID, sessionID, ok := h.ownerAndSession(c)
	if !ok {
		return
	}

	var req CompleteActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	actionID, err := primitive.ObjectIDFromHex(req.ActionID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid action ID format.")
		return
	}

	completion, err := h.sessionService.CompleteAction(c.Request.Context(), ownerID, sessionID, actionID)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapCompletionToResponse(completion))
}

// RedeemWorkout spends points for one randomly selected workout.
func (h *SessionHandler) RedeemWorkout(c *gin.Context) {
	ownerID, sessionID, ok := h.ownerAndSession(c)
	if !ok {
		return
	}

	var req RedeemWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	received, workout, err := h.sessionService.RedeemWorkout(c.Request.Context(), ownerID, sessionID, req.PointCost)
	if err != nil {
		respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapRedemptionToResponse(received, workout))
}

// ListCompletions returns the session's completion history.
func (h *SessionHandler) ListCompletions(c *gin.Context) {
	ownerID, sessionID, ok := h.ownerAndSession(c)
	if !ok {
		return
	}

	completions, err := h.sessionService.GetSessionCompletions(c.Request.Context(), ownerID, sessionID)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	responses := make([]CompletionResponse, len(completions))
	for i := range completions {
		responses[i] = mapCompletionToResponse(&completions[i])
	}
	c.JSON(http.StatusOK, responses)
}

// ListRedemptions returns the session's redemption history.
func (h *SessionHandler) ListRedemptions(c *gin.Context) {
	ownerID, sessionID, ok := h.ownerAndSession(c)
	if !ok {
		return
	}

	received, err := h.sessionService.GetSessionWorkouts(c.Request.Context(), ownerID, sessionID)
	if err != nil {
		respondSessionError(c, err)
		return
	}

	responses := make([]RedemptionResponse, len(received))
	for i := range received {
		responses[i] = mapRedemptionToResponse(&received[i], nil)
	}
	c.JSON(http.StatusOK, responses)
}

func (h *SessionHandler) ownerAndSession(c *gin.Context) (primitive.ObjectID, primitive.ObjectID, bool) {
	ownerID, err := ownerIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	sessionID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid session ID format.")
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return ownerID, sessionID, true
}

// respondSessionError maps session service errors to HTTP responses.
func respondSessionError(c *gin.Context, err error) {
	var insufficient *domain.InsufficientPointsError
	switch {
	case errors.As(err, &insufficient):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{
			"error":    insufficient.Error(),
			"balance":  insufficient.Balance,
			"required": insufficient.Required,
		})
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrNoActiveSession),
		errors.Is(err, service.ErrActionNotFound),
		errors.Is(err, service.ErrPoolNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionNotActive),
		errors.Is(err, service.ErrActiveSessionExists):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrEmptyPool):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidSessionName),
		errors.Is(err, service.ErrInvalidPointCost):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Internal server error.")
	}
}
