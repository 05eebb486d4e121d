package tender

import "santiye/internal/domain"

type CreateTenderRequest struct {
	Name          string             `json:"name" binding:"required"`
	Authority     string             `json:"authority"`
	Stage         domain.TenderStage `json:"stage"`
	Deadline      string             `json:"deadline"`
	EstimatedCost float64            `json:"estimatedCost"`
	Notes         string             `json:"notes"`
}

type UpdateTenderRequest struct {
	Name          *string             `json:"name"`
	Authority     *string             `json:"authority"`
	Stage         *domain.TenderStage `json:"stage"`
	Deadline      *string             `json:"deadline"`
	EstimatedCost *float64            `json:"estimatedCost"`
	Notes         *string             `json:"notes"`
}
