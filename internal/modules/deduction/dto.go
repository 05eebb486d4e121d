package deduction

import "santiye/internal/domain"

type CreateDeductionRequest struct {
	ContractID  string               `json:"contractId" binding:"required"`
	Type        domain.DeductionType `json:"type" binding:"required"`
	Date        string               `json:"date" binding:"required"`
	Amount      float64              `json:"amount" binding:"required"`
	Description string               `json:"description"`
}

type UpdateDeductionRequest struct {
	Type        *domain.DeductionType `json:"type"`
	Date        *string               `json:"date"`
	Amount      *float64              `json:"amount"`
	Description *string               `json:"description"`
}
