package deduction

import (
	"context"

	"santiye/internal/docstore"
	"santiye/internal/domain"
)

// Service manages deductions. A deduction that has been applied in a
// progress payment is frozen: update and delete short-circuit before any
// store call.
type Service struct {
	store *docstore.Store
}

func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

func validType(t domain.DeductionType) bool {
	return t == domain.DeductionMuhasebe || t == domain.DeductionTutanakli
}

func (s *Service) get(ctx context.Context, auth docstore.AuthContext, id string) (*domain.Deduction, error) {
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
	return &d, nil
}

// List returns a project's deductions, optionally narrowed to one
// contract.
func (s *Service) List(ctx context.Context, auth docstore.AuthContext, projectID, contractID string) ([]domain.Deduction, error) {
	if _, err := s.store.Get(ctx, auth, domain.CollectionProjects, projectID); err != nil {
		return nil, err
	}

	filters := []docstore.Filter{
		docstore.Eq("ownerId", auth.UserID),
		docstore.Eq("projectId", projectID),
	}
	if contractID != "" {
		filters = append(filters, docstore.Eq("contractId", contractID))
	}

	docs, err := s.store.RunQuery(ctx, auth, docstore.Query{
		Collection: domain.CollectionDeductions,
		Filters:    filters,
	})
	if err != nil {
		return nil, err
	}

	deductions := make([]domain.Deduction, 0, len(docs))
	for _, doc := range docs {
		var d domain.Deduction
		if err := docstore.Decode(doc, &d); err != nil {
			return nil, err
		}
		deductions = append(deductions, d)
	}
	return deductions, nil
}

func (s *Service) Create(ctx context.Context, auth docstore.AuthContext, projectID string, req CreateDeductionRequest) (*domain.Deduction, error) {
	if !validType(req.Type) {
		return nil, ErrInvalidType
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	contractDoc, err := s.store.Get(ctx, auth, domain.CollectionContracts, req.ContractID)
	if err != nil {
		return nil, err
	}
	var contract domain.Contract
	if err := docstore.Decode(contractDoc, &contract); err != nil {
		return nil, err
	}
	if contract.ProjectID != projectID {
		return nil, docstore.ErrNotFound
	}

	d := domain.Deduction{
		ProjectID:   projectID,
		ContractID:  req.ContractID,
		OwnerID:     auth.UserID,
		Type:        req.Type,
		Date:        req.Date,
		Amount:      req.Amount,
		Description: req.Description,
	}
	fields, err := docstore.Encode(&d)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Create(ctx, auth, domain.CollectionDeductions, fields)
	if err != nil {
		return nil, err
	}
	d.ID = doc.ID()
	return &d, nil
}

func (s *Service) Update(ctx context.Context, auth docstore.AuthContext, id string, req UpdateDeductionRequest) error {
	existing, err := s.get(ctx, auth, id)
	if err != nil {
		return err
	}
	if existing.Applied() {
		return ErrDeductionApplied
	}

	fields := docstore.Document{}
	if req.Type != nil {
		if !validType(*req.Type) {
			return ErrInvalidType
		}
		fields["type"] = *req.Type
	}
	if req.Date != nil {
		fields["date"] = *req.Date
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return ErrInvalidAmount
		}
		fields["amount"] = *req.Amount
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if len(fields) == 0 {
		return nil
	}

	return s.store.Update(ctx, auth, domain.CollectionDeductions, id, fields)
}

// Delete removes an unapplied deduction. Applied deductions are rejected
// without touching the store.
func (s *Service) Delete(ctx context.Context, auth docstore.AuthContext, id string) error {
	existing, err := s.get(ctx, auth, id)
	if err != nil {
		return err
	}
	if existing.Applied() {
		return ErrDeductionApplied
	}

	return s.store.Delete(ctx, auth, domain.CollectionDeductions, id)
}
