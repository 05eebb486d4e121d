package deduction

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

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/projects/:projectId/deductions", h.List)
	r.POST("/projects/:projectId/deductions", h.Create)
	r.PATCH("/deductions/:id", h.Update)
	r.DELETE("/deductions/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	auth := middleware.AuthContext(c)
	deductions, err := h.service.List(c.Request.Context(), auth, c.Param("projectId"), c.Query("contractId"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, deductions)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	auth := middleware.AuthContext(c)
	d, err := h.service.Create(c.Request.Context(), auth, c.Param("projectId"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, d)
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	auth := middleware.AuthContext(c)
	if err := h.service.Update(c.Request.Context(), auth, c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

func (h *Handler) Delete(c *gin.Context) {
	auth := middleware.AuthContext(c)
	if err := h.service.Delete(c.Request.Context(), auth, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

func writeError(c *gin.Context, err error) {
	switch {
	case err == ErrDeductionNotFound || err == docstore.ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "deduction not found")
	case err == ErrDeductionApplied:
		response.Error(c, http.StatusConflict, "DEDUCTION_APPLIED", err.Error())
	case err == ErrInvalidType || err == ErrInvalidAmount:
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case docstore.IsPermissionDenied(err):
		response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "access denied")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "something went wrong")
	}
}
