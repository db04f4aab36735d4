package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/service"
)

type BackupHandler struct {
	svc     *service.ConfigService
	backups *service.BackupService
}

func NewBackupHandler(svc *service.ConfigService, backups *service.BackupService) *BackupHandler {
	return &BackupHandler{svc: svc, backups: backups}
}

// Create takes a manual snapshot
// POST /api/v1/config/backup
func (h *BackupHandler) Create(c echo.Context) error {
	var req model.CreateBackupRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequestError(c, ErrMsgBadRequest)
		}
	}
	backup, err := h.svc.CreateBackup(c.Request().Context(), currentActor(c), req.Description)
	if err != nil {
		return respondError(c, "create backup", err)
	}
	setQuotaHeaders(c, h.svc.Quota(currentActor(c)))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   fmt.Sprintf("Backup '%s' created", backup.ID),
		"backup_id": backup.ID,
		"data":      backup,
	})
}

// List returns snapshots newest first
// GET /api/v1/backups
func (h *BackupHandler) List(c echo.Context) error {
	backups, err := h.svc.ListBackups()
	if err != nil {
		return respondError(c, "list backups", err)
	}
	return listResponse(c, backups, len(backups))
}

// Export streams a snapshot as tar.gz
// GET /api/v1/backups/:id/export
func (h *BackupHandler) Export(c echo.Context) error {
	id := c.Param("id")
	if _, err := h.backups.Get(id); err != nil {
		return respondError(c, "export backup", err)
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/gzip")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", id+".tar.gz"))
	c.Response().WriteHeader(http.StatusOK)
	if err := h.backups.Export(id, c.Response()); err != nil {
		// Headers are already sent, the truncated archive fails to decompress
		log.Printf("[ERROR] export backup %s: %v", id, err)
	}
	return nil
}

// Restore replaces the live tree with a snapshot
// POST /api/v1/config/restore/:id
func (h *BackupHandler) Restore(c echo.Context) error {
	id := c.Param("id")
	result, res, err := h.svc.Restore(c.Request().Context(), currentActor(c), id)
	if err != nil {
		return mutationFailed(c, h.svc, "restore backup", err)
	}
	return mutationSucceeded(c, res, fmt.Sprintf("Backup '%s' restored", id), result)
}
