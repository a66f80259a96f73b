package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmachain/trustscore/internal/application/service"
	"github.com/pharmachain/trustscore/internal/domain/entity"
	"github.com/pharmachain/trustscore/internal/infrastructure/worker"
	"github.com/pharmachain/trustscore/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	version  string
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, version string, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		version:  version,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Version   string          `json:"version"`
	Workers   []worker.Status `json:"workers,omitempty"`
}

// HistoryRequest represents query parameters for score history
type HistoryRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// RankingRequest represents query parameters for ranking listings
type RankingRequest struct {
	Limit  int    `form:"limit"`
	Role   string `form:"role"`
	Search string `form:"search"`
}

// AdjustmentRequest is the body of POST /adjustments
type AdjustmentRequest struct {
	Type          string     `json:"type"`
	Amount        int        `json:"amount"`
	Reason        string     `json:"reason"`
	HistoryReason string     `json:"history_reason,omitempty"`
	AppliedBy     string     `json:"applied_by,omitempty"`
	RelatedID     string     `json:"related_id,omitempty"`
	RelatedType   string     `json:"related_type,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// EnqueueResponse acknowledges an accepted asynchronous recalculation
type EnqueueResponse struct {
	SupplierID string `json:"supplier_id"`
	Status     string `json:"status"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}
	if h.services.Workers != nil {
		response.Workers = h.services.Workers.Statuses()
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// GetTrustScore handles GET /api/v1/suppliers/:id/trust-score
func (h *Handlers) GetTrustScore(c *gin.Context) {
	supplierID, ok := h.pathID(c, "supplier")
	if !ok {
		return
	}
	score, err := h.services.Trust.GetOrCreateTrustScore(c.Request.Context(), supplierID)
	if err != nil {
		h.fail(c, "Failed to get trust score", err, "supplier_id", supplierID)
		return
	}
	h.ok(c, http.StatusOK, score)
}

// RecalculateTrustScore handles POST /api/v1/suppliers/:id/trust-score/recalculate
func (h *Handlers) RecalculateTrustScore(c *gin.Context) {
	supplierID, ok := h.pathID(c, "supplier")
	if !ok {
		return
	}
	h.logger.Info("Recalculating trust score", "supplier_id", supplierID)

	score, err := h.services.Trust.RecalculateTrustScore(c.Request.Context(), supplierID)
	if err != nil {
		h.fail(c, "Recalculation failed", err, "supplier_id", supplierID)
		return
	}
	h.ok(c, http.StatusOK, score)
}

// EnqueueRecalculation handles POST /api/v1/suppliers/:id/trust-score/recalculate-async
func (h *Handlers) EnqueueRecalculation(c *gin.Context) {
	supplierID, ok := h.pathID(c, "supplier")
	if !ok {
		return
	}
	if h.services.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "recalculation queue disabled"})
		return
	}
	if err := h.services.Jobs.Enqueue(supplierID); err != nil {
		h.fail(c, "Failed to enqueue recalculation", err, "supplier_id", supplierID)
		return
	}
	h.ok(c, http.StatusAccepted, EnqueueResponse{SupplierID: supplierID, Status: "queued"})
}

// PreviewTrustScore handles GET /api/v1/suppliers/:id/trust-score/preview
func (h *Handlers) PreviewTrustScore(c *gin.Context) {
	supplierID, ok := h.pathID(c, "supplier")
	if !ok {
		return
	}
	preview, err := h.services.Trust.PreviewTrustScore(c.Request.Context(), supplierID)
	if err != nil {
		h.fail(c, "Preview failed", err, "supplier_id", supplierID)
		return
	}
	h.ok(c, http.StatusOK, preview)
}

// GetScoreHistory handles GET /api/v1/suppliers/:id/trust-score/history
func (h *Handlers) GetScoreHistory(c *gin.Context) {
	var req HistoryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return
	}

	supplierID, ok := h.pathID(c, "supplier")
	if !ok {
		return
	}
	page, err := h.services.Trust.GetScoreHistory(c.Request.Context(), supplierID, req.Page, req.Limit)
	if err != nil {
		h.fail(c, "Failed to get score history", err, "supplier_id", supplierID)
		return
	}
	h.ok(c, http.StatusOK, page)
}

// ApplyAdjustment handles POST /api/v1/suppliers/:id/adjustments
func (h *Handlers) ApplyAdjustment(c *gin.Context) {
	var body AdjustmentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	supplierID, ok := h.pathID(c, "supplier")
	if !ok {
		return
	}
	req := service.AdjustmentRequest{
		Type:   entity.AdjustmentType(strings.ToLower(body.Type)),
		Amount: body.Amount,
		Reason: body.Reason,
		Metadata: service.AdjustmentMetadata{
			HistoryReason: entity.HistoryReason(body.HistoryReason),
			AppliedBy:     body.AppliedBy,
			RelatedID:     body.RelatedID,
			RelatedType:   body.RelatedType,
			ExpiresAt:     body.ExpiresAt,
		},
	}

	score, err := h.services.Trust.ApplyRewardOrPenalty(c.Request.Context(), supplierID, req)
	if err != nil {
		h.fail(c, "Adjustment failed", err, "supplier_id", supplierID, "type", body.Type)
		return
	}
	h.ok(c, http.StatusOK, score)
}

// GetRanking handles GET /api/v1/rankings
func (h *Handlers) GetRanking(c *gin.Context) {
	query, ok := h.bindRankingQuery(c)
	if !ok {
		return
	}

	summaries, err := h.services.Trust.GetRanking(c.Request.Context(), query)
	if err != nil {
		h.fail(c, "Failed to list ranking", err)
		return
	}
	h.ok(c, http.StatusOK, summaries)
}

// ExportRanking handles GET /api/v1/rankings/export
func (h *Handlers) ExportRanking(c *gin.Context) {
	if h.services.Export == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "export disabled"})
		return
	}
	query, ok := h.bindRankingQuery(c)
	if !ok {
		return
	}

	result, err := h.services.Export.ExportRanking(c.Request.Context(), query)
	if err != nil {
		h.fail(c, "Ranking export failed", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// AssessDrugRisk handles GET /api/v1/drug-batches/:id/risk
func (h *Handlers) AssessDrugRisk(c *gin.Context) {
	batchID, ok := h.pathID(c, "batch")
	if !ok {
		return
	}
	assessment, err := h.services.Risk.AssessDrugRisk(c.Request.Context(), batchID)
	if err != nil {
		h.fail(c, "Drug risk assessment failed", err, "batch_id", batchID)
		return
	}
	h.ok(c, http.StatusOK, assessment)
}

// AssessManufacturerBatches handles GET /api/v1/manufacturers/:id/batch-risks
func (h *Handlers) AssessManufacturerBatches(c *gin.Context) {
	manufacturerID, ok := h.pathID(c, "manufacturer")
	if !ok {
		return
	}
	assessments, err := h.services.Risk.AssessManufacturerBatches(c.Request.Context(), manufacturerID)
	if err != nil {
		h.fail(c, "Batch risk assessment failed", err, "manufacturer_id", manufacturerID)
		return
	}
	h.ok(c, http.StatusOK, assessments)
}

// GetRecalcJobs handles GET /api/v1/jobs/recalculate
func (h *Handlers) GetRecalcJobs(c *gin.Context) {
	if h.services.Jobs == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "recalculation queue disabled"})
		return
	}
	h.ok(c, http.StatusOK, h.services.Jobs.Stats())
}

func (h *Handlers) bindRankingQuery(c *gin.Context) (service.RankingQuery, bool) {
	var req RankingRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, "invalid query parameters", err)
		return service.RankingQuery{}, false
	}

	role := entity.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role != "" && !role.IsEligible() {
		h.badRequest(c, "invalid role", errors.New(req.Role))
		return service.RankingQuery{}, false
	}
	return service.RankingQuery{Limit: req.Limit, Role: role, Search: utils.SanitizeString(req.Search)}, true
}

// pathID reads and validates the :id path parameter, answering 400 when it is malformed
func (h *Handlers) pathID(c *gin.Context, kind string) (string, bool) {
	id := c.Param("id")
	if err := utils.ValidateID(kind, id); err != nil {
		h.badRequest(c, err.Error(), err)
		return "", false
	}
	return id, true
}

func (h *Handlers) ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error("Bad request", "path", c.Request.URL.Path, "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}

// fail logs err and writes the status that matches its sentinel
func (h *Handlers) fail(c *gin.Context, msg string, err error, keysAndValues ...interface{}) {
	h.logger.Error(msg, append(keysAndValues, "error", err)...)
	c.JSON(statusFor(err), Response{
		Success: false,
		Error:   err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrInvalidSupplier),
		errors.Is(err, entity.ErrDrugBatchNotFound),
		errors.Is(err, entity.ErrScoreNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrMissingRequiredField),
		errors.Is(err, entity.ErrInvalidAdjustmentType),
		errors.Is(err, entity.ErrInvalidAdjustment):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, worker.ErrQueueFull),
		errors.Is(err, worker.ErrQueueStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
