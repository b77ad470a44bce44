// Package http exposes provenance views over HTTP.
package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/herbaltrace/ledgersync/internal/httputil"
	provenanceDomain "github.com/herbaltrace/ledgersync/internal/provenance/domain"
	provenanceUseCase "github.com/herbaltrace/ledgersync/internal/provenance/usecase"
)

// ProvenanceHandler handles provenance queries.
type ProvenanceHandler struct {
	provenanceUseCase provenanceUseCase.ProvenanceUseCase
	logger            *slog.Logger
}

// NewProvenanceHandler creates a new provenance handler.
func NewProvenanceHandler(
	provenanceUseCase provenanceUseCase.ProvenanceUseCase,
	logger *slog.Logger,
) *ProvenanceHandler {
	return &ProvenanceHandler{
		provenanceUseCase: provenanceUseCase,
		logger:            logger,
	}
}

// GetHandler returns the provenance view of a record.
// GET /v1/provenance/:id?live=true - live cross-checks synced records against the ledger.
func (h *ProvenanceHandler) GetHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid record id format"), h.logger)
		return
	}

	live, err := strconv.ParseBool(c.DefaultQuery("live", "false"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid live parameter: must be a boolean"), h.logger)
		return
	}

	view, err := h.provenanceUseCase.GetProvenance(
		c.Request.Context(),
		id,
		provenanceDomain.Options{Live: live},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, view)
}
