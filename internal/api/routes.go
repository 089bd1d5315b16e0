package api

import (
	"net/http"

	"sweatpoints/fitness-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	sessionService service.SessionService,
	catalogService service.CatalogService,
	backupService service.BackupService,
) {
	authHandler := NewAuthHandler(authService)
	sessionHandler := NewSessionHandler(sessionService)
	catalogHandler := NewCatalogHandler(catalogService)
	backupHandler := NewBackupHandler(backupService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		// --- Session Routes ---
		sessionGroup := protected.Group("/sessions")
		{
			sessionGroup.POST("", sessionHandler.StartSession)
			sessionGroup.GET("", sessionHandler.ListSessions)
			sessionGroup.GET("/active", sessionHandler.GetActiveSession)
			sessionGroup.GET("/:id", sessionHandler.GetSession)
			sessionGroup.POST("/:id/end", sessionHandler.EndSession)
			sessionGroup.POST("/:id/cancel", sessionHandler.CancelSession)
			sessionGroup.POST("/:id/completions", sessionHandler.CompleteAction)
			sessionGroup.GET("/:id/completions", sessionHandler.ListCompletions)
			sessionGroup.POST("/:id/redemptions", sessionHandler.RedeemWorkout)
			sessionGroup.GET("/:id/redemptions", sessionHandler.ListRedemptions)
		}

		// --- Catalog Routes ---
		workoutGroup := protected.Group("/workouts")
		{
			workoutGroup.POST("", catalogHandler.CreateWorkout)
			workoutGroup.GET("", catalogHandler.ListWorkouts)
			workoutGroup.GET("/:id", catalogHandler.GetWorkout)
			workoutGroup.PUT("/:id", catalogHandler.UpdateWorkout)
			workoutGroup.POST("/:id/hide", catalogHandler.HideWorkout)
			workoutGroup.POST("/:id/unhide", catalogHandler.UnhideWorkout)
			workoutGroup.DELETE("/:id", catalogHandler.DeleteWorkout)
		}

		actionGroup := protected.Group("/actions")
		{
			actionGroup.POST("", catalogHandler.CreateAction)
			actionGroup.GET("", catalogHandler.ListActions)
			actionGroup.PUT("/:id", catalogHandler.UpdateAction)
			actionGroup.DELETE("/:id", catalogHandler.DeleteAction)
		}

		poolGroup := protected.Group("/pools")
		{
			poolGroup.POST("", catalogHandler.CreatePool)
			poolGroup.GET("", catalogHandler.ListPools)
			poolGroup.DELETE("/:id", catalogHandler.DeletePool)
			poolGroup.POST("/:id/workouts", catalogHandler.AddWorkoutToPool)
			poolGroup.DELETE("/:id/workouts/:workoutId", catalogHandler.RemoveWorkoutFromPool)
			poolGroup.GET("/:id/workouts", catalogHandler.ListVisibleWorkoutsInPool)
		}

		// --- Backup Routes ---
		backupGroup := protected.Group("/backup")
		{
			backupGroup.GET("/export", backupHandler.Export)
			backupGroup.POST("/export/archive", backupHandler.ExportToArchive)
			backupGroup.POST("/import", backupHandler.Import)
		}
	}
}
