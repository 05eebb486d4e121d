package tender

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"santiye/internal/docstore"
	"santiye/internal/middleware"
	"santiye/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/projects/:projectId/tenders", h.ListTenders)
	rg.POST("/projects/:projectId/tenders", h.CreateTender)
	rg.PATCH("/tenders/:id", h.UpdateTender)
	rg.DELETE("/tenders/:id", h.DeleteTender)
}

func (h *Handler) ListTenders(c *gin.Context) {
	tenders, err := h.service.List(c.Request.Context(), middleware.AuthContext(c), c.Param("projectId"))
	if err != nil {
		writeError(c, err, "Failed to list tenders")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tenders": tenders})
}

func (h *Handler) CreateTender(c *gin.Context) {
	var req CreateTenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	t, err := h.service.Create(c.Request.Context(), middleware.AuthContext(c), c.Param("projectId"), req)
	if err != nil {
		writeError(c, err, "Failed to create tender")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"tender": t})
}

func (h *Handler) UpdateTender(c *gin.Context) {
	var req UpdateTenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.Update(c.Request.Context(), middleware.AuthContext(c), c.Param("id"), req); err != nil {
		writeError(c, err, "Failed to update tender")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

func (h *Handler) DeleteTender(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.AuthContext(c), c.Param("id")); err != nil {
		writeError(c, err, "Failed to delete tender")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case err == ErrTenderNotFound || err == docstore.ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	case err == ErrInvalidStage:
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid tender stage")
	case docstore.IsPermissionDenied(err):
		response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "You do not have access to this resource")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}
