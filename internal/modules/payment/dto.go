package payment

import "santiye/internal/domain"

type CreatePaymentRequest struct {
	Number              int                  `json:"progressPaymentNumber" binding:"required,min=1"`
	Date                string               `json:"date" binding:"required"`
	Items               []domain.PaymentItem `json:"items" binding:"required,min=1,dive"`
	AppliedDeductionIDs []string             `json:"appliedDeductionIds"`
}

type SetStatusRequest struct {
	ContractID string                    `json:"contractId" binding:"required"`
	Month      string                    `json:"month" binding:"required"`
	Status     domain.PaymentStatusValue `json:"status" binding:"required"`
}
