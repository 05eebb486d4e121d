package report

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"santiye/internal/middleware"
	"santiye/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/projects/:projectId/reports/monthly-totals", h.MonthlyTotals)
}

func (h *Handler) MonthlyTotals(c *gin.Context) {
	auth := middleware.AuthContext(c)
	totals, err := h.service.MonthlyTotals(c.Request.Context(), auth.UserID, c.Param("projectId"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong")
		return
	}
	response.Success(c, http.StatusOK, totals)
}
