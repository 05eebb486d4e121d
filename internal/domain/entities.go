package domain

import (
	"fmt"

	"santiye/internal/docstore"
)

// Collection names in the document store.
const (
	CollectionProjects         = "projects"
	CollectionTenders          = "tenders"
	CollectionContracts        = "contracts"
	CollectionProgressPayments = "progress_payments"
	CollectionPaymentStatuses  = "payment_statuses"
	CollectionDeductions       = "deductions"
	CollectionUsers            = "users"
	CollectionUsersByEmail     = "users_by_email"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Rules is the access policy for every collection: project-scoped data is
// owner-scoped through the ownerId field stamped on each document; the
// user allowlist is admin-only.
func Rules() docstore.Rules {
	ownerScoped := docstore.Rule{OwnerField: "ownerId"}
	return docstore.Rules{
		CollectionProjects:         ownerScoped,
		CollectionTenders:          ownerScoped,
		CollectionContracts:        ownerScoped,
		CollectionProgressPayments: ownerScoped,
		CollectionPaymentStatuses:  ownerScoped,
		CollectionDeductions:       ownerScoped,
		CollectionUsers:            {AdminOnly: true},
		CollectionUsersByEmail:     {AdminOnly: true},
	}
}

// Project is the root entity everything else hangs off.
type Project struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
}

// TenderStage tracks how far a tender has progressed.
type TenderStage string

const (
	TenderAnnounced  TenderStage = "announced"
	TenderBid        TenderStage = "bid_submitted"
	TenderEvaluation TenderStage = "under_evaluation"
	TenderAwarded    TenderStage = "awarded"
	TenderLost       TenderStage = "lost"
)

type Tender struct {
	ID            string      `json:"id"`
	ProjectID     string      `json:"projectId"`
	OwnerID       string      `json:"ownerId"`
	Name          string      `json:"name"`
	Authority     string      `json:"authority"`
	Stage         TenderStage `json:"stage"`
	Deadline      string      `json:"deadline,omitempty"`
	EstimatedCost float64     `json:"estimatedCost,omitempty"`
	Notes         string      `json:"notes,omitempty"`
}

// ContractItem is one priced line of work (poz).
type ContractItem struct {
	Poz         string  `json:"poz"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type ContractStatus string

const (
	ContractDraft    ContractStatus = "draft"
	ContractApproved ContractStatus = "approved"
)

type Contract struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"projectId"`
	OwnerID   string         `json:"ownerId"`
	Name      string         `json:"name"`
	Group     string         `json:"group,omitempty"`
	SubGroup  string         `json:"subGroup,omitempty"`
	Status    ContractStatus `json:"status"`
	Date      string         `json:"date,omitempty"`
	Items     []ContractItem `json:"items"`
}

func (c *Contract) IsDraft() bool { return c.Status != ContractApproved }

// Total is the contract value summed over its items.
func (c *Contract) Total() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.Quantity * it.UnitPrice
	}
	return total
}

// PaymentItem is completed work claimed in a progress payment.
type PaymentItem struct {
	Poz               string  `json:"poz"`
	Description       string  `json:"description"`
	Unit              string  `json:"unit"`
	CompletedQuantity float64 `json:"completedQuantity"`
	UnitPrice         float64 `json:"unitPrice"`
}

// ProgressPayment is a hakediş: a periodic billing claim against an
// approved contract.
type ProgressPayment struct {
	ID                  string        `json:"id"`
	ProjectID           string        `json:"projectId"`
	ContractID          string        `json:"contractId"`
	OwnerID             string        `json:"ownerId"`
	Number              int           `json:"progressPaymentNumber"`
	Date                string        `json:"date"`
	TotalAmount         float64       `json:"totalAmount"`
	Items               []PaymentItem `json:"items"`
	AppliedDeductionIDs []string      `json:"appliedDeductionIds,omitempty"`
}

// GrossAmount is the claimed work value before deductions.
func (p *ProgressPayment) GrossAmount() float64 {
	var total float64
	for _, it := range p.Items {
		total += it.CompletedQuantity * it.UnitPrice
	}
	return total
}

type DeductionType string

const (
	DeductionMuhasebe  DeductionType = "muhasebe"
	DeductionTutanakli DeductionType = "tutanakli"
)

type Deduction struct {
	ID                     string        `json:"id"`
	ProjectID              string        `json:"projectId"`
	ContractID             string        `json:"contractId"`
	OwnerID                string        `json:"ownerId"`
	Type                   DeductionType `json:"type"`
	Date                   string        `json:"date"`
	Amount                 float64       `json:"amount"`
	Description            string        `json:"description,omitempty"`
	AppliedInPaymentNumber *int          `json:"appliedInPaymentNumber,omitempty"`
}

// Applied deductions are frozen: they may not be edited or deleted.
func (d *Deduction) Applied() bool { return d.AppliedInPaymentNumber != nil }

// PaymentStatusValue is the monthly workflow stage of a contract's
// progress payment.
type PaymentStatusValue string

const (
	StatusYok    PaymentStatusValue = "yok"     // nothing prepared
	StatusSahada PaymentStatusValue = "sahada"  // on site
	StatusImzada PaymentStatusValue = "imzada"  // out for signature
	StatusOnayda PaymentStatusValue = "onayda"  // pending approval
	StatusOdendi PaymentStatusValue = "odendi"  // paid
	StatusPasGec PaymentStatusValue = "pas_gec" // skipped
)

// ValidStatus reports whether v is one of the workflow stages.
func ValidStatus(v PaymentStatusValue) bool {
	switch v {
	case StatusYok, StatusSahada, StatusImzada, StatusOnayda, StatusOdendi, StatusPasGec:
		return true
	}
	return false
}

// PaymentStatusCell is one (project, month, contract) workflow entry.
type PaymentStatusCell struct {
	ID         string             `json:"id"`
	ProjectID  string             `json:"projectId"`
	ContractID string             `json:"contractId"`
	OwnerID    string             `json:"ownerId"`
	Month      string             `json:"month"` // yyyy-MM
	Status     PaymentStatusValue `json:"status"`
}

// StatusCellID is the natural key of a status cell.
func StatusCellID(projectID, month, contractID string) string {
	return fmt.Sprintf("%s:%s:%s", projectID, month, contractID)
}

// AppUser is an allowlisted account.
type AppUser struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name,omitempty"`
	Role         string `json:"role"`
	PasswordHash string `json:"passwordHash,omitempty"`
}

// EmailEntry pre-authorizes an email before the user record exists. Its
// document key is the email itself.
type EmailEntry struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
