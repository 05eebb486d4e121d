package tender

import (
	"context"

	"santiye/internal/docstore"
	"santiye/internal/domain"
)

// Service is the tender-tracking CRUD over the document store. Every
// operation runs against a project the caller must own; the store's
// access rules enforce that through the project read and the stamped
// ownerId field.
type Service struct {
	store *docstore.Store
}

func NewService(store *docstore.Store) *Service {
	return &Service{store: store}
}

// requireProject loads the project with the caller's credentials; a
// missing or foreign project surfaces as ErrNotFound or a permission
// error.
func (s *Service) requireProject(ctx context.Context, auth docstore.AuthContext, projectID string) error {
	_, err := s.store.Get(ctx, auth, domain.CollectionProjects, projectID)
	return err
}

func validStage(stage domain.TenderStage) bool {
	switch stage {
	case domain.TenderAnnounced, domain.TenderBid, domain.TenderEvaluation, domain.TenderAwarded, domain.TenderLost:
		return true
	}
	return false
}

func (s *Service) List(ctx context.Context, auth docstore.AuthContext, projectID string) ([]domain.Tender, error) {
	if err := s.requireProject(ctx, auth, projectID); err != nil {
		return nil, err
	}

	docs, err := s.store.RunQuery(ctx, auth, docstore.Query{
		Collection: domain.CollectionTenders,
		Filters: []docstore.Filter{
			docstore.Eq("ownerId", auth.UserID),
			docstore.Eq("projectId", projectID),
		},
	})
	if err != nil {
		return nil, err
	}

	tenders := make([]domain.Tender, 0, len(docs))
	for _, doc := range docs {
		var t domain.Tender
		if err := docstore.Decode(doc, &t); err != nil {
			return nil, err
		}
		tenders = append(tenders, t)
	}
	return tenders, nil
}

func (s *Service) Create(ctx context.Context, auth docstore.AuthContext, projectID string, req CreateTenderRequest) (*domain.Tender, error) {
	if err := s.requireProject(ctx, auth, projectID); err != nil {
		return nil, err
	}

	stage := req.Stage
	if stage == "" {
		stage = domain.TenderAnnounced
	}
	if !validStage(stage) {
		return nil, ErrInvalidStage
	}

	t := domain.Tender{
		ProjectID:     projectID,
		OwnerID:       auth.UserID,
		Name:          req.Name,
		Authority:     req.Authority,
		Stage:         stage,
		Deadline:      req.Deadline,
		EstimatedCost: req.EstimatedCost,
		Notes:         req.Notes,
	}
	fields, err := docstore.Encode(&t)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Create(ctx, auth, domain.CollectionTenders, fields)
	if err != nil {
		return nil, err
	}
	t.ID = doc.ID()
	return &t, nil
}

func (s *Service) Update(ctx context.Context, auth docstore.AuthContext, id string, req UpdateTenderRequest) error {
	fields := docstore.Document{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Authority != nil {
		fields["authority"] = *req.Authority
	}
	if req.Stage != nil {
		if !validStage(*req.Stage) {
			return ErrInvalidStage
		}
		fields["stage"] = *req.Stage
	}
	if req.Deadline != nil {
		fields["deadline"] = *req.Deadline
	}
	if req.EstimatedCost != nil {
		fields["estimatedCost"] = *req.EstimatedCost
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if len(fields) == 0 {
		return nil
	}

	err := s.store.Update(ctx, auth, domain.CollectionTenders, id, fields)
	if err == docstore.ErrNotFound {
		return ErrTenderNotFound
	}
	return err
}

func (s *Service) Delete(ctx context.Context, auth docstore.AuthContext, id string) error {
	err := s.store.Delete(ctx, auth, domain.CollectionTenders, id)
	if err == docstore.ErrNotFound {
		return ErrTenderNotFound
	}
	return err
}
