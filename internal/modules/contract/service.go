package contract

import (
	"context"

	"santiye/internal/docstore"
	"santiye/internal/domain"
)

// Service manages contracts: created as drafts, edited while draft, then
// approved. Approval makes a contract eligible for progress payments and
// freezes its items.
type Service struct {
	store *docstore.Store
}

func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

func (s *Service) requireProject(ctx context.Context, auth docstore.AuthContext, projectID string) error {
	_, err := s.store.Get(ctx, auth, domain.CollectionProjects, projectID)
	return err
}

func (s *Service) get(ctx context.Context, auth docstore.AuthContext, id string) (*domain.Contract, error) {
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

func (s *Service) List(ctx context.Context, auth docstore.AuthContext, projectID string) ([]domain.Contract, error) {
	if err := s.requireProject(ctx, auth, projectID); err != nil {
		return nil, err
	}

	docs, err := s.store.RunQuery(ctx, auth, docstore.Query{
		Collection: domain.CollectionContracts,
		Filters: []docstore.Filter{
			docstore.Eq("ownerId", auth.UserID),
			docstore.Eq("projectId", projectID),
		},
	})
	if err != nil {
		return nil, err
	}

	contracts := make([]domain.Contract, 0, len(docs))
	for _, doc := range docs {
		var c domain.Contract
		if err := docstore.Decode(doc, &c); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

func (s *Service) Get(ctx context.Context, auth docstore.AuthContext, id string) (*domain.Contract, error) {
	return s.get(ctx, auth, id)
}

func (s *Service) Create(ctx context.Context, auth docstore.AuthContext, projectID string, req CreateContractRequest) (*domain.Contract, error) {
	if err := s.requireProject(ctx, auth, projectID); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	c := domain.Contract{
		ProjectID: projectID,
		OwnerID:   auth.UserID,
		Name:      req.Name,
		Group:     req.Group,
		SubGroup:  req.SubGroup,
		Status:    domain.ContractDraft,
		Date:      req.Date,
		Items:     req.Items,
	}
	fields, err := docstore.Encode(&c)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Create(ctx, auth, domain.CollectionContracts, fields)
	if err != nil {
		return nil, err
	}
	c.ID = doc.ID()
	return &c, nil
}

// Update edits contract metadata; item changes are only allowed while the
// contract is still a draft.
func (s *Service) Update(ctx context.Context, auth docstore.AuthContext, id string, req UpdateContractRequest) error {
	existing, err := s.get(ctx, auth, id)
	if err != nil {
		return err
	}

	fields := docstore.Document{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Group != nil {
		fields["group"] = *req.Group
	}
	if req.SubGroup != nil {
		fields["subGroup"] = *req.SubGroup
	}
	if req.Date != nil {
		fields["date"] = *req.Date
	}
	if req.Items != nil {
		if !existing.IsDraft() {
			return ErrNotDraft
		}
		if len(*req.Items) == 0 {
			return ErrNoItems
		}
		fields["items"] = *req.Items
	}
	if len(fields) == 0 {
		return nil
	}

	err = s.store.Update(ctx, auth, domain.CollectionContracts, id, fields)
	if err == docstore.ErrNotFound {
		return ErrContractNotFound
	}
	return err
}

// Approve finalizes a draft, making it eligible for progress payments.
func (s *Service) Approve(ctx context.Context, auth docstore.AuthContext, id string) error {
	existing, err := s.get(ctx, auth, id)
	if err != nil {
		return err
	}
	if !existing.IsDraft() {
		return ErrAlreadyApproved
	}

	return s.store.Update(ctx, auth, domain.CollectionContracts, id, docstore.Document{
		"status": domain.ContractApproved,
	})
}

// Delete removes a contract. Contracts with progress payments are kept:
// payment history may not silently lose its anchor.
func (s *Service) Delete(ctx context.Context, auth docstore.AuthContext, id string) error {
	existing, err := s.get(ctx, auth, id)
	if err != nil {
		return err
	}

	payments, err := s.store.RunQuery(ctx, auth, docstore.Query{
		Collection: domain.CollectionProgressPayments,
		Filters: []docstore.Filter{
			docstore.Eq("ownerId", auth.UserID),
			docstore.Eq("contractId", existing.ID),
		},
	})
	if err != nil {
		return err
	}
	if len(payments) > 0 {
		return ErrHasPayments
	}

	err = s.store.Delete(ctx, auth, domain.CollectionContracts, id)
	if err == docstore.ErrNotFound {
		return ErrContractNotFound
	}
	return err
}
