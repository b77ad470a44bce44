// Package http provides HTTP handlers for enqueueing records and reading their
// synchronization state.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/herbaltrace/ledgersync/internal/httputil"
	"github.com/herbaltrace/ledgersync/internal/record/domain"
	"github.com/herbaltrace/ledgersync/internal/record/http/dto"
	recordUseCase "github.com/herbaltrace/ledgersync/internal/record/usecase"
	customValidation "github.com/herbaltrace/ledgersync/internal/validation"
)

// RecordHandler handles HTTP requests for records.
type RecordHandler struct {
	recordUseCase recordUseCase.RecordUseCase
	logger        *slog.Logger
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(recordUseCase recordUseCase.RecordUseCase, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{
		recordUseCase: recordUseCase,
		logger:        logger,
	}
}

// EnqueueHandler stores a new pending record.
// POST /v1/records - Returns 201 Created with the record. The ledger is not contacted.
func (h *RecordHandler) EnqueueHandler(c *gin.Context) {
	var req dto.EnqueueRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	kind, payload, err := req.DecodePayload()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	record, err := h.recordUseCase.Enqueue(c.Request.Context(), kind, payload)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.respond(c, http.StatusCreated, record)
}

// GetHandler returns one record.
// GET /v1/records/:kind/:id
func (h *RecordHandler) GetHandler(c *gin.Context) {
	kind, ok := h.parseKind(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid record id format"), h.logger)
		return
	}

	record, err := h.recordUseCase.Get(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if record.Kind != kind {
		httputil.HandleErrorGin(c, domain.ErrRecordNotFound, h.logger)
		return
	}

	h.respond(c, http.StatusOK, record)
}

// ListHandler lists records of a kind, newest first.
// GET /v1/records/:kind?offset=0&limit=50
func (h *RecordHandler) ListHandler(c *gin.Context) {
	kind, ok := h.parseKind(c)
	if !ok {
		return
	}
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	records, err := h.recordUseCase.List(c.Request.Context(), kind, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	h.respondList(c, records)
}

// ListStrandedHandler lists failed records that are no longer retried automatically.
// GET /v1/stranded/:kind?limit=50
func (h *RecordHandler) ListStrandedHandler(c *gin.Context) {
	kind, ok := h.parseKind(c)
	if !ok {
		return
	}
	limit, err := httputil.ParseLimit(c, 50)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	records, err := h.recordUseCase.ListStranded(c.Request.Context(), kind, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	h.respondList(c, records)
}

// SummaryHandler returns record counts per kind and sync state.
// GET /v1/summary
func (h *RecordHandler) SummaryHandler(c *gin.Context) {
	counts, err := h.recordUseCase.Summary(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapStateCountsToSummaryResponse(counts))
}

func (h *RecordHandler) parseKind(c *gin.Context) (domain.Kind, bool) {
	kind, err := domain.ParseKind(c.Param("kind"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return "", false
	}
	return kind, true
}

func (h *RecordHandler) respond(c *gin.Context, status int, record *domain.Record) {
	response, err := dto.MapRecordToResponse(record)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(status, response)
}

func (h *RecordHandler) respondList(c *gin.Context, records []*domain.Record) {
	response, err := dto.MapRecordsToListResponse(records)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, response)
}
