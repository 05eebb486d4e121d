package contract

import "santiye/internal/domain"

type CreateContractRequest struct {
	Name     string                `json:"name" binding:"required"`
	Group    string                `json:"group"`
	SubGroup string                `json:"subGroup"`
	Date     string                `json:"date"`
	Items    []domain.ContractItem `json:"items" binding:"required,min=1,dive"`
}

type UpdateContractRequest struct {
	Name     *string                `json:"name"`
	Group    *string                `json:"group"`
	SubGroup *string                `json:"subGroup"`
	Date     *string                `json:"date"`
	Items    *[]domain.ContractItem `json:"items"`
}

type ContractResponse struct {
	domain.Contract
	Total float64 `json:"total"`
}

func toResponse(c domain.Contract) ContractResponse {
	return ContractResponse{Contract: c, Total: c.Total()}
}
