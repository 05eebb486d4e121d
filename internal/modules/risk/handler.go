package risk

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"santiye/internal/pkg/response"
)

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/risk-analysis", h.Analyze)
}

func (h *Handler) Analyze(c *gin.Context) {
	var req AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.client.Analyze(c.Request.Context(), req)
	if err == ErrNotConfigured {
		response.Error(c, http.StatusServiceUnavailable, "NOT_CONFIGURED", "risk analysis is not available")
		return
	}
	if err != nil {
		response.Error(c, http.StatusBadGateway, "ANALYSIS_FAILED", "risk analysis failed")
		return
	}
	response.Success(c, http.StatusOK, result)
}
