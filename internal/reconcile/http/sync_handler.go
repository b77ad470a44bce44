// Package http exposes the manual reconciliation trigger and the operator attempt reset.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/herbaltrace/ledgersync/internal/httputil"
	reconcileUseCase "github.com/herbaltrace/ledgersync/internal/reconcile/usecase"
	recordDomain "github.com/herbaltrace/ledgersync/internal/record/domain"
)

// SyncHandler handles HTTP requests that drive reconciliation.
type SyncHandler struct {
	syncUseCase reconcileUseCase.SyncUseCase
	logger      *slog.Logger
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(syncUseCase reconcileUseCase.SyncUseCase, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		syncUseCase: syncUseCase,
		logger:      logger,
	}
}

// TriggerHandler runs one reconciliation pass and returns its counts.
// POST /v1/sync?kind=batch - Without kind every kind is reconciled in dependency order.
func (h *SyncHandler) TriggerHandler(c *gin.Context) {
	var kind *recordDomain.Kind
	if value := c.Query("kind"); value != "" {
		parsed, err := recordDomain.ParseKind(value)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		kind = &parsed
	}

	result, err := h.syncUseCase.RunOnce(c.Request.Context(), kind)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ResetAttemptsHandler returns a stranded record to pending.
// POST /v1/records/:kind/:id/reset - Returns 204 No Content.
func (h *SyncHandler) ResetAttemptsHandler(c *gin.Context) {
	kind, err := recordDomain.ParseKind(c.Param("kind"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid record id format"), h.logger)
		return
	}

	if err := h.syncUseCase.ResetAttempts(c.Request.Context(), kind, id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.Data(http.StatusNoContent, "application/json", nil)
}
