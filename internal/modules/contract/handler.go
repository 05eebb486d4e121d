package contract

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"santiye/internal/docstore"
	"santiye/internal/domain"
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
	rg.GET("/projects/:projectId/contracts", h.ListContracts)
	rg.POST("/projects/:projectId/contracts", h.CreateContract)
	rg.GET("/contracts/:id", h.GetContract)
	rg.PATCH("/contracts/:id", h.UpdateContract)
	rg.POST("/contracts/:id/approve", h.ApproveContract)
	rg.DELETE("/contracts/:id", h.DeleteContract)
}

func (h *Handler) ListContracts(c *gin.Context) {
	contracts, err := h.service.List(c.Request.Context(), middleware.AuthContext(c), c.Param("projectId"))
	if err != nil {
		writeError(c, err, "Failed to list contracts")
		return
	}

	out := make([]ContractResponse, 0, len(contracts))
	for _, contract := range contracts {
		out = append(out, toResponse(contract))
	}
	response.Success(c, http.StatusOK, gin.H{"contracts": out})
}

func (h *Handler) GetContract(c *gin.Context) {
	contract, err := h.service.Get(c.Request.Context(), middleware.AuthContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "Failed to load contract")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"contract": toResponse(*contract)})
}

func (h *Handler) CreateContract(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	contract, err := h.service.Create(c.Request.Context(), middleware.AuthContext(c), c.Param("projectId"), req)
	if err != nil {
		writeError(c, err, "Failed to create contract")
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"contract": toResponse(*contract)})
}

func (h *Handler) UpdateContract(c *gin.Context) {
	var req UpdateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.Update(c.Request.Context(), middleware.AuthContext(c), c.Param("id"), req); err != nil {
		writeError(c, err, "Failed to update contract")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

func (h *Handler) ApproveContract(c *gin.Context) {
	if err := h.service.Approve(c.Request.Context(), middleware.AuthContext(c), c.Param("id")); err != nil {
		writeError(c, err, "Failed to approve contract")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id"), "status": domain.ContractApproved})
}

func (h *Handler) DeleteContract(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), middleware.AuthContext(c), c.Param("id")); err != nil {
		writeError(c, err, "Failed to delete contract")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case err == ErrContractNotFound || err == docstore.ErrNotFound:
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	case err == ErrNotDraft:
		response.Error(c, http.StatusConflict, "NOT_DRAFT", "Approved contracts cannot change their items")
	case err == ErrAlreadyApproved:
		response.Error(c, http.StatusConflict, "ALREADY_APPROVED", "Contract is already approved")
	case err == ErrHasPayments:
		response.Error(c, http.StatusConflict, "HAS_PAYMENTS", "Contract has progress payments and cannot be deleted")
	case err == ErrNoItems:
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Contract needs at least one item")
	case docstore.IsPermissionDenied(err):
		response.Error(c, http.StatusForbidden, "PERMISSION_DENIED", "You do not have access to this resource")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
	}
}
