package risk

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/txrisk/internal/pagination"
	"github.com/mbd888/txrisk/internal/validation"
)

const (
	defaultHistoryPage = 20
	maxHistoryPage     = 200
)

// BatchRequest is the body of POST /risk/batch.
type BatchRequest struct {
	AccountIDs []string `json:"accountIds"`
}

// BatchResponse carries assessments in request order.
type BatchResponse struct {
	Assessments []*RiskAssessment `json:"assessments"`
	Count       int               `json:"count"`
}

// Handler provides HTTP endpoints for risk assessment
type Handler struct {
	engine *Engine
}

// NewHandler creates a new risk handler
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes sets up risk endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	accounts := validation.AccountParamMiddleware()
	r.GET("/risk/:account", accounts, h.GetRisk)
	r.GET("/risk/:account/history", accounts, h.GetRiskHistory)
	r.POST("/risk/batch", h.BatchRisk)
	r.GET("/model/metrics", h.GetModelMetrics)
}

// GetRisk assesses a single account.
// GET /v1/risk/:account
func (h *Handler) GetRisk(c *gin.Context) {
	account := validation.SanitizeAccountID(c.Param("account"))
	assessment := h.engine.PredictFraudRisk(c.Request.Context(), account)
	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

// BatchRisk assesses up to 100 accounts.
// POST /v1/risk/batch
func (h *Handler) BatchRisk(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain 'accountIds' array",
		})
		return
	}

	ids := make([]string, len(req.AccountIDs))
	for i, id := range req.AccountIDs {
		ids[i] = validation.SanitizeAccountID(id)
	}
	if errs := validation.Validate(validation.ValidAccountIDs("accountIds", ids)); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": errs.Error(),
			"details": errs,
		})
		return
	}

	assessments := h.engine.BatchPredict(c.Request.Context(), ids)
	c.JSON(http.StatusOK, BatchResponse{Assessments: assessments, Count: len(assessments)})
}

// GetRiskHistory returns recorded assessments, most recent first.
// GET /v1/risk/:account/history?limit=&cursor=
func (h *Handler) GetRiskHistory(c *gin.Context) {
	account := validation.SanitizeAccountID(c.Param("account"))

	if !h.engine.HasStore() {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error":   "not_available",
			"message": "Assessment history is not recorded",
		})
		return
	}

	limit := defaultHistoryPage
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = min(parsed, maxHistoryPage)
		}
	}

	before, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "Cursor is malformed; pass the nextCursor from a previous page",
		})
		return
	}

	entries, err := h.engine.History(c.Request.Context(), account, limit+1, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "query_failed",
			"message": "Failed to query assessment history",
		})
		return
	}

	entries, nextCursor, hasMore := pagination.ComputePage(entries, limit, func(e *AuditEntry) (time.Time, string) {
		return e.RecordedAt, e.ID
	})
	if entries == nil {
		entries = []*AuditEntry{}
	}

	resp := gin.H{
		"accountId": account,
		"entries":   entries,
		"count":     len(entries),
		"hasMore":   hasMore,
	}
	if hasMore {
		resp["nextCursor"] = nextCursor
	}
	c.JSON(http.StatusOK, resp)
}

// GetModelMetrics returns the configured model performance snapshot.
// GET /v1/model/metrics
func (h *Handler) GetModelMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"metrics": h.engine.ModelMetrics()})
}
