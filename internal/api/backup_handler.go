package api

import (
	"errors"
	"net/http"

	"sweatpoints/fitness-app/internal/service"

	"github.com/gin-gonic/gin"
)

// BackupHandler holds the backup service dependency.
type BackupHandler struct {
	backupService service.BackupService
}

// NewBackupHandler creates a new BackupHandler.
func NewBackupHandler(backupService service.BackupService) *BackupHandler {
	return &BackupHandler{backupService: backupService}
}

// --- DTOs ---

// ImportRequest wraps a snapshot plus the import mode.
type ImportRequest struct {
	Overwrite bool              `json:"overwrite"`
	Snapshot  *service.Snapshot `json:"snapshot" binding:"required"`
}

// ImportResponse reports the validation outcome of an import.
type ImportResponse struct {
	Imported bool     `json:"imported"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ArchiveResponse points at an uploaded snapshot archive.
type ArchiveResponse struct {
	ObjectKey   string `json:"objectKey"`
	DownloadURL string `json:"downloadUrl"`
}

// --- Handler Methods ---

// Export returns a full snapshot of all collections.
func (h *BackupHandler) Export(c *gin.Context) {
	snap, err := h.backupService.Export(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Export failed.")
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Import validates and loads a snapshot. Validation errors reject the whole
// import with 422 and nothing is persisted.
func (h *BackupHandler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	report, err := h.backupService.Import(c.Request.Context(), req.Snapshot, req.Overwrite)
	if err != nil {
		var integrityErr *service.IntegrityError
		if errors.As(err, &integrityErr) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ImportResponse{
				Imported: false,
				Errors:   report.Errors,
				Warnings: report.Warnings,
			})
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Import failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, ImportResponse{
		Imported: true,
		Errors:   report.Errors,
		Warnings: report.Warnings,
	})
}

// ExportToArchive exports a snapshot and pushes it to object storage.
func (h *BackupHandler) ExportToArchive(c *gin.Context) {
	snap, err := h.backupService.Export(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Export failed.")
		return
	}

	objectKey, url, err := h.backupService.PushToArchive(c.Request.Context(), snap)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Archive upload failed: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, ArchiveResponse{
		ObjectKey:   objectKey,
		DownloadURL: url,
	})
}
