package payment

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
	rg.GET("/contracts/:id/payments", h.ListPayments)
	rg.POST("/contracts/:id/payments", h.CreatePayment)
	rg.GET("/projects/:projectId/payment-statuses", h.ListStatuses)
	rg.PUT("/projects/:projectId/payment-statuses", h.SetStatus)
}

func (h *Handler) ListPayments(c *gin.Context) {
	payments, err := h.service.ListByContract(c.Request.Context(), middleware.AuthContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to list progress payments")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"payments": payments})
}

func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	p, err := h.service.Create(c.Request.Context(), middleware.AuthContext(c), c.Param("id"), req)
	if err != nil {
		writeError(c, err, "Failed to create progress payment")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"payment": p})
}

func (h *Handler) ListStatuses(c *gin.Context) {
	cells, err := h.service.ListStatuses(
		c.Request.Context(),
		middleware.AuthContext(c),
		c.Param("projectId"),
		c.Query("month"),
	)
	if err != nil {
		writeError(c, err, "Failed to list payment statuses")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"statuses": cells})
}

func (h *Handler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	cell, err := h.service.SetStatus(c.Request.Context(), middleware.AuthContext(c), c.Param("projectId"), req)
	if err != nil {
		writeError(c, err, "Failed to set payment status")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": cell})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case err == ErrPaymentNotFound || err == ErrContractNotFound || err == ErrDeductionNotFound || err == docstore.ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	case err == ErrContractDraft:
		response.Error(c, http.StatusConflict, "CONTRACT_DRAFT", "Contract must be approved before progress payments")
	case err == ErrBadNumber:
		response.Error(c, http.StatusConflict, "BAD_NUMBER", "Progress payment number is out of sequence")
	case err == ErrDeductionApplied:
		response.Error(c, http.StatusConflict, "DEDUCTION_APPLIED", "Deduction is already applied in another payment")
	case err == ErrDeductionMismatch:
		response.Error(c, http.StatusBadRequest, "DEDUCTION_MISMATCH", "Deduction belongs to another contract")
	case err == ErrBadMonth || err == ErrBadStatus:
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case docstore.IsPermissionDenied(err):
		response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "You do not have access to this resource")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}
