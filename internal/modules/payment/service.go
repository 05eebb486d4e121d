package payment

import (
	"context"
	"sort"
	"time"

	"santiye/internal/docstore"
	"santiye/internal/domain"
)

// Service handles progress payments (hakediş) and their monthly workflow
// status. Creating a payment and freezing the deductions it applies is
// one atomic batch.
type Service struct {
	store *docstore.Store
}

func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

func (s *Service) contract(ctx context.Context, auth docstore.AuthContext, id string) (*domain.Contract, error) {
	doc, err := s.store.Get(ctx, auth, domain.CollectionContracts, id)
	if err == docstore.ErrNotFound {
		return nil, ErrContractNotFound
	}
	if err != nil {
		return nil, err
	}
	var c domain.Contract
	if err := docstore.Decode(doc, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByContract returns a contract's payments ordered by number.
func (s *Service) ListByContract(ctx context.Context, auth docstore.AuthContext, contractID string) ([]domain.ProgressPayment, error) {
	if _, err := s.contract(ctx, auth, contractID); err != nil {
		return nil, err
	}

	docs, err := s.store.RunQuery(ctx, auth, docstore.Query{
		Collection: domain.CollectionProgressPayments,
		Filters: []docstore.Filter{
			docstore.Eq("ownerId", auth.UserID),
			docstore.Eq("contractId", contractID),
		},
	})
	if err != nil {
		return nil, err
	}

	payments := make([]domain.ProgressPayment, 0, len(docs))
	for _, doc := range docs {
		var p domain.ProgressPayment
		if err := docstore.Decode(doc, &p); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].Number < payments[j].Number })
	return payments, nil
}

// Create records a new progress payment against an approved contract.
// The caller supplies the number, but it must be the next one in the
// contract's sequence. Applied deductions are marked with the payment
// number in the same batch, so a failed write leaves nothing half
// applied.
func (s *Service) Create(ctx context.Context, auth docstore.AuthContext, contractID string, req CreatePaymentRequest) (*domain.ProgressPayment, error) {
	contract, err := s.contract(ctx, auth, contractID)
	if err != nil {
		return nil, err
	}
	if contract.IsDraft() {
		return nil, ErrContractDraft
	}

	existing, err := s.ListByContract(ctx, auth, contractID)
	if err != nil {
		return nil, err
	}
	next := 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Number + 1
	}
	if req.Number != next {
		return nil, ErrBadNumber
	}

	p := domain.ProgressPayment{
		ProjectID:           contract.ProjectID,
		ContractID:          contractID,
		OwnerID:             auth.UserID,
		Number:              req.Number,
		Date:                req.Date,
		Items:               req.Items,
		AppliedDeductionIDs: req.AppliedDeductionIDs,
	}
	total := p.GrossAmount()

	deductions := make([]domain.Deduction, 0, len(req.AppliedDeductionIDs))
	for _, id := range req.AppliedDeductionIDs {
		doc, err := s.store.Get(ctx, auth, domain.CollectionDeductions, id)
		if err == docstore.ErrNotFound {
			return nil, ErrDeductionNotFound
		}
		if err != nil {
			return nil, err
		}
		var d domain.Deduction
		if err := docstore.Decode(doc, &d); err != nil {
			return nil, err
		}
		if d.ContractID != contractID {
			return nil, ErrDeductionMismatch
		}
		if d.Applied() {
			return nil, ErrDeductionApplied
		}
		deductions = append(deductions, d)
		total -= d.Amount
	}
	p.TotalAmount = total

	fields, err := docstore.Encode(&p)
	if err != nil {
		return nil, err
	}

	batch := s.store.NewBatch(auth)
	p.ID = batch.Create(domain.CollectionProgressPayments, fields)
	for _, d := range deductions {
		batch.Update(domain.CollectionDeductions, d.ID, docstore.Document{
			"appliedInPaymentNumber": req.Number,
		})
	}
	if err := batch.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetStatus upserts the monthly workflow cell for a contract.
func (s *Service) SetStatus(ctx context.Context, auth docstore.AuthContext, projectID string, req SetStatusRequest) (*domain.PaymentStatusCell, error) {
	if _, err := time.Parse("2006-01", req.Month); err != nil {
		return nil, ErrBadMonth
	}
	if !domain.ValidStatus(req.Status) {
		return nil, ErrBadStatus
	}
	contract, err := s.contract(ctx, auth, req.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.ProjectID != projectID {
		return nil, ErrContractNotFound
	}

	cell := domain.PaymentStatusCell{
		ProjectID:  projectID,
		ContractID: req.ContractID,
		OwnerID:    auth.UserID,
		Month:      req.Month,
		Status:     req.Status,
	}
	fields, err := docstore.Encode(&cell)
	if err != nil {
		return nil, err
	}
	cell.ID = domain.StatusCellID(projectID, req.Month, req.ContractID)
	if err := s.store.Set(ctx, auth, domain.CollectionPaymentStatuses, cell.ID, fields); err != nil {
		return nil, err
	}
	return &cell, nil
}

// ListStatuses returns a project's workflow cells, optionally narrowed to
// one month.
func (s *Service) ListStatuses(ctx context.Context, auth docstore.AuthContext, projectID, month string) ([]domain.PaymentStatusCell, error) {
	if _, err := s.store.Get(ctx, auth, domain.CollectionProjects, projectID); err != nil {
		return nil, err
	}

	filters := []docstore.Filter{
		docstore.Eq("ownerId", auth.UserID),
		docstore.Eq("projectId", projectID),
	}
	if month != "" {
		if _, err := time.Parse("2006-01", month); err != nil {
			return nil, ErrBadMonth
		}
		filters = append(filters, docstore.Eq("month", month))
	}

	docs, err := s.store.RunQuery(ctx, auth, docstore.Query{
		Collection: domain.CollectionPaymentStatuses,
		Filters:    filters,
	})
	if err != nil {
		return nil, err
	}

	cells := make([]domain.PaymentStatusCell, 0, len(docs))
	for _, doc := range docs {
		var cell domain.PaymentStatusCell
		if err := docstore.Decode(doc, &cell); err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}
	return cells, nil
}
