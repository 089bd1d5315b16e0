package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sweatpoints/fitness-app/internal/domain"
	"sweatpoints/fitness-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CatalogHandler holds the catalog service dependency.
type CatalogHandler struct {
	catalogService service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalogService service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService}
}

// --- DTOs for API (Data Transfer Objects) ---

// CreateWorkoutRequest defines the expected JSON for creating a workout.
type CreateWorkoutRequest struct {
	Name            string `json:"name" binding:"required"`
	DurationMinutes int    `json:"durationMinutes" binding:"required,gt=0"`
	Difficulty      string `json:"difficulty" binding:"required,oneof=beginner intermediate advanced expert"`
}

// WorkoutResponse is the DTO for returning workout details.
type WorkoutResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"durationMinutes"`
	Difficulty      string    `json:"difficulty"`
	Preloaded       bool      `json:"preloaded"`
	State           string    `json:"state"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CreateActionRequest defines the expected JSON for creating an action.
type CreateActionRequest struct {
	Description string `json:"description" binding:"required"`
	Points      int    `json:"points" binding:"required,gt=0"`
}

// ActionResponse is the DTO for returning action details.
type ActionResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Points      int       `json:"points"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreatePoolRequest defines the expected JSON for creating a pool.
type CreatePoolRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// PoolResponse is the DTO for returning pool details.
type PoolResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PoolMemberRequest names the workout joining or leaving a pool.
type PoolMemberRequest struct {
	WorkoutID string `json:"workoutId" binding:"required"`
}

// MapWorkoutToResponse converts a domain.Workout to WorkoutResponse DTO.
func MapWorkoutToResponse(w *domain.Workout) WorkoutResponse {
	if w == nil {
		return WorkoutResponse{}
	}
	return WorkoutResponse{
		ID:              w.ID.Hex(),
		Name:            w.Name,
		DurationMinutes: w.DurationMinutes,
		Difficulty:      string(w.Difficulty),
		Preloaded:       w.Preloaded,
		State:           string(w.State),
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
	}
}

// MapWorkoutsToResponse converts a slice of domain.Workout to DTOs.
func MapWorkoutsToResponse(workouts []domain.Workout) []WorkoutResponse {
	responses := make([]WorkoutResponse, len(workouts))
	for i, w := range workouts {
		responses[i] = MapWorkoutToResponse(&w)
	}
	return responses
}

func mapActionToResponse(a *domain.Action) ActionResponse {
	return ActionResponse{
		ID:          a.ID.Hex(),
		Description: a.Description,
		Points:      a.Points,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func mapPoolToResponse(p *domain.WorkoutPool) PoolResponse {
	return PoolResponse{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// --- Workout Handlers ---

// CreateWorkout adds a workout to the catalog.
func (h *CatalogHandler) CreateWorkout(c *gin.Context) {
	var req CreateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	workout, err := h.catalogService.CreateWorkout(
		c.Request.Context(), req.Name, req.DurationMinutes, domain.Difficulty(req.Difficulty), false)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapWorkoutToResponse(workout))
}

// GetWorkout returns one workout by id.
func (h *CatalogHandler) GetWorkout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	workout, err := h.catalogService.GetWorkout(c.Request.Context(), id)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapWorkoutToResponse(workout))
}

// ListWorkouts returns the whole workout catalog.
func (h *CatalogHandler) ListWorkouts(c *gin.Context) {
	workouts, err := h.catalogService.ListWorkouts(c.Request.Context())
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapWorkoutsToResponse(workouts))
}

// UpdateWorkout edits a workout.
func (h *CatalogHandler) UpdateWorkout(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req CreateWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	workout, err := h.catalogService.UpdateWorkout(
		c.Request.Context(), id, req.Name, req.DurationMinutes, domain.Difficulty(req.Difficulty))
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapWorkoutToResponse(workout))
}

// HideWorkout soft-removes a workout from selection.
func (h *CatalogHandler) HideWorkout(c *gin.Context) {
	h.workoutStateOp(c, h.catalogService.HideWorkout)
}

// UnhideWorkout makes a hidden workout selectable again.
func (h *CatalogHandler) UnhideWorkout(c *gin.Context) {
	h.workoutStateOp(c, h.catalogService.UnhideWorkout)
}

// DeleteWorkout marks a workout deleted.
func (h *CatalogHandler) DeleteWorkout(c *gin.Context) {
	h.workoutStateOp(c, h.catalogService.DeleteWorkout)
}

func (h *CatalogHandler) workoutStateOp(c *gin.Context, op func(ctx context.Context, id primitive.ObjectID) error) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := op(c.Request.Context(), id); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Action Handlers ---

// CreateAction adds a point-earning action.
func (h *CatalogHandler) CreateAction(c *gin.Context) {
	var req CreateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	action, err := h.catalogService.CreateAction(c.Request.Context(), req.Description, req.Points)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapActionToResponse(action))
}

// ListActions returns every action.
func (h *CatalogHandler) ListActions(c *gin.Context) {
	actions, err := h.catalogService.ListActions(c.Request.Context())
	if err != nil {
		respondCatalogError(c, err)
		return
	}

	responses := make([]ActionResponse, len(actions))
	for i := range actions {
		responses[i] = mapActionToResponse(&actions[i])
	}
	c.JSON(http.StatusOK, responses)
}

// UpdateAction edits an action.
func (h *CatalogHandler) UpdateAction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req CreateActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	action, err := h.catalogService.UpdateAction(c.Request.Context(), id, req.Description, req.Points)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapActionToResponse(action))
}

// DeleteAction removes an action.
func (h *CatalogHandler) DeleteAction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.catalogService.DeleteAction(c.Request.Context(), id); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Pool Handlers ---

// CreatePool adds an empty pool.
func (h *CatalogHandler) CreatePool(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	pool, err := h.catalogService.CreatePool(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mapPoolToResponse(pool))
}

// ListPools returns every pool.
func (h *CatalogHandler) ListPools(c *gin.Context) {
	pools, err := h.catalogService.ListPools(c.Request.Context())
	if err != nil {
		respondCatalogError(c, err)
		return
	}

	responses := make([]PoolResponse, len(pools))
	for i := range pools {
		responses[i] = mapPoolToResponse(&pools[i])
	}
	c.JSON(http.StatusOK, responses)
}

// DeletePool removes a pool.
func (h *CatalogHandler) DeletePool(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.catalogService.DeletePool(c.Request.Context(), id); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddWorkoutToPool links a workout into a pool.
func (h *CatalogHandler) AddWorkoutToPool(c *gin.Context) {
	poolID, ok := pathID(c)
	if !ok {
		return
	}

	var req PoolMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	workoutID, err := primitive.ObjectIDFromHex(req.WorkoutID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout ID format.")
		return
	}

	if err := h.catalogService.AddWorkoutToPool(c.Request.Context(), poolID, workoutID); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveWorkoutFromPool unlinks a workout from a pool.
func (h *CatalogHandler) RemoveWorkoutFromPool(c *gin.Context) {
	poolID, ok := pathID(c)
	if !ok {
		return
	}
	workoutID, err := primitive.ObjectIDFromHex(c.Param("workoutId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid workout ID format.")
		return
	}

	if err := h.catalogService.RemoveWorkoutFromPool(c.Request.Context(), poolID, workoutID); err != nil {
		respondCatalogError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListVisibleWorkoutsInPool returns the pool's currently selectable workouts.
func (h *CatalogHandler) ListVisibleWorkoutsInPool(c *gin.Context) {
	poolID, ok := pathID(c)
	if !ok {
		return
	}

	workouts, err := h.catalogService.GetVisibleWorkoutsInPool(c.Request.Context(), poolID)
	if err != nil {
		respondCatalogError(c, err)
		return
	}
	c.JSON(http.StatusOK, MapWorkoutsToResponse(workouts))
}

// --- Helpers ---

func pathID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid ID format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondCatalogError maps catalog service errors to HTTP responses.
func respondCatalogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkoutNotFound),
		errors.Is(err, service.ErrActionNotFound),
		errors.Is(err, service.ErrPoolNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrWorkoutPreloaded),
		errors.Is(err, service.ErrWorkoutInUse),
		errors.Is(err, service.ErrActionInUse),
		errors.Is(err, service.ErrPoolInUse),
		errors.Is(err, service.ErrAlreadyInPool):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Internal server error.")
	}
}
