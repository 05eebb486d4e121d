package selection

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"santiye/internal/docstore"
	"santiye/internal/domain"
	"santiye/internal/events"
)

const storageKeyPrefix = "selectedProjectId"

var (
	ErrNotAuthenticated = errors.New("selection: not authenticated")
	ErrStoreUnavailable = errors.New("selection: document store unavailable")
	ErrEmptyName        = errors.New("selection: project name is empty")
	ErrProjectNotFound  = errors.New("selection: project not found")
)

// Store tracks which project is active for one user, persists that choice
// and mediates project CRUD. It holds a live mirror of the user's
// projects and re-resolves the selection whenever the mirror or the
// selected id changes.
type Store struct {
	userID  string
	store   *docstore.Store
	bus     *events.Bus
	storage Storage

	adapter *docstore.CollectionAdapter

	mu         sync.Mutex
	projects   []domain.Project
	firstSnap  bool
	restored   bool
	selectedID string
}

// New builds the selection store for one user: the persisted selection is
// restored first (storage failure degrades silently to in-memory-only),
// then a live project subscription scoped to the owner is opened.
func New(userID string, store *docstore.Store, bus *events.Bus, storage Storage) *Store {
	s := &Store{
		userID:  userID,
		store:   store,
		bus:     bus,
		storage: storage,
	}

	if storage != nil {
		if v, err := storage.Get(context.Background(), s.storageKey()); err == nil {
			s.selectedID = v
		} else if err != ErrNotPersisted {
			log.Printf("selection storage unavailable, keeping selection in memory: %v", err)
		}
	}
	s.restored = true

	if store != nil {
		s.adapter = docstore.NewCollectionAdapter(store, s.auth(), s.onProjects)
		s.adapter.SetQuery(docstore.NewQuery(
			domain.CollectionProjects,
			docstore.Eq("ownerId", userID),
		))
	}
	return s
}

func (s *Store) auth() docstore.AuthContext {
	return docstore.AuthContext{UserID: s.userID, Role: domain.RoleUser}
}

func (s *Store) storageKey() string {
	return storageKeyPrefix + ":" + s.userID
}

func (s *Store) onProjects(state docstore.CollectionState) {
	if state.Loading {
		return
	}
	if state.Err != nil {
		log.Printf("project subscription error user=%s: %v", s.userID, state.Err)
		return
	}

	projects := make([]domain.Project, 0, len(state.Docs))
	for _, doc := range state.Docs {
		var p domain.Project
		if err := docstore.Decode(doc, &p); err != nil {
			log.Printf("bad project document %s: %v", doc.ID(), err)
			continue
		}
		projects = append(projects, p)
	}

	s.mu.Lock()
	s.projects = projects
	s.firstSnap = true
	s.resolveLocked()
	s.mu.Unlock()
}

// resolveSelection picks the active project:
//  1. no list yet: nothing selected;
//  2. the remembered id, when it is still present;
//  3. otherwise the first project in store order;
//  4. empty list clears the selection.
func resolveSelection(projects []domain.Project, selectedID string) string {
	if len(projects) == 0 {
		return ""
	}
	if selectedID != "" {
		for _, p := range projects {
			if p.ID == selectedID {
				return selectedID
			}
		}
	}
	return projects[0].ID
}

// resolveLocked re-runs selection resolution and mirrors the result into
// persisted storage. Persistence errors never surface.
func (s *Store) resolveLocked() {
	if !s.restored || !s.firstSnap {
		return
	}
	resolved := resolveSelection(s.projects, s.selectedID)
	if resolved == s.selectedID {
		return
	}
	s.selectedID = resolved
	s.persistLocked()
}

func (s *Store) persistLocked() {
	if s.storage == nil {
		return
	}
	var err error
	if s.selectedID == "" {
		err = s.storage.Delete(context.Background(), s.storageKey())
	} else {
		err = s.storage.Set(context.Background(), s.storageKey(), s.selectedID)
	}
	if err != nil {
		log.Printf("selection persist failed user=%s: %v", s.userID, err)
	}
}

// Loading is true until the persisted selection has been read and the
// project list's first snapshot has arrived.
func (s *Store) Loading() bool {
	if s.store == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.restored || !s.firstSnap
}

// Projects returns the live project mirror in store order.
func (s *Store) Projects() []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// Selected returns the resolved active project.
func (s *Store) Selected() (domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.ID == s.selectedID {
			return p, true
		}
	}
	return domain.Project{}, false
}

func (s *Store) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Select makes the given project active and persists the choice.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, p := range s.projects {
		if p.ID == id {
			found = true
			break
		}
	}
	if !found {
		return ErrProjectNotFound
	}
	s.selectedID = id
	s.persistLocked()
	return nil
}

// AddProject creates a project owned by the current user and selects it
// immediately. Missing auth or store fails loudly; a denied write is
// reported through the event bus and nothing gets selected.
func (s *Store) AddProject(ctx context.Context, name string) (domain.Project, error) {
	if s.userID == "" {
		return domain.Project{}, ErrNotAuthenticated
	}
	if s.store == nil {
		return domain.Project{}, ErrStoreUnavailable
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, ErrEmptyName
	}

	doc, err := s.store.Create(ctx, s.auth(), domain.CollectionProjects, docstore.Document{
		"name":    name,
		"ownerId": s.userID,
	})
	if err != nil {
		return domain.Project{}, err
	}

	p := domain.Project{ID: doc.ID(), Name: name, OwnerID: s.userID}

	s.mu.Lock()
	s.selectedID = p.ID
	s.persistLocked()
	s.mu.Unlock()

	return p, nil
}

// UpdateProjectName renames a project.
func (s *Store) UpdateProjectName(ctx context.Context, id, newName string) error {
	if s.userID == "" {
		return ErrNotAuthenticated
	}
	if s.store == nil {
		return ErrStoreUnavailable
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}

	err := s.store.Update(ctx, s.auth(), domain.CollectionProjects, id, docstore.Document{
		"name": newName,
	})
	if err == docstore.ErrNotFound {
		return ErrProjectNotFound
	}
	return err
}

// DeleteProject removes the project and everything under it in one atomic
// batch. When the active project is deleted the selection clears and the
// next snapshot re-resolves it against the remaining list.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if s.userID == "" {
		return ErrNotAuthenticated
	}
	if s.store == nil {
		return ErrStoreUnavailable
	}

	auth := s.auth()
	batch := s.store.NewBatch(auth)

	dependents := []string{
		domain.CollectionTenders,
		domain.CollectionContracts,
		domain.CollectionProgressPayments,
		domain.CollectionPaymentStatuses,
		domain.CollectionDeductions,
	}
	for _, collection := range dependents {
		docs, err := s.store.RunQuery(ctx, auth, docstore.Query{
			Collection: collection,
			Filters: []docstore.Filter{
				docstore.Eq("ownerId", s.userID),
				docstore.Eq("projectId", id),
			},
		})
		if err != nil {
			return err
		}
		for _, doc := range docs {
			batch.Delete(collection, doc.ID())
		}
	}
	batch.Delete(domain.CollectionProjects, id)

	if err := batch.Commit(ctx); err != nil {
		if err == docstore.ErrNotFound {
			return ErrProjectNotFound
		}
		return err
	}

	s.mu.Lock()
	if s.selectedID == id {
		s.selectedID = ""
		s.persistLocked()
	}
	s.mu.Unlock()
	return nil
}

// Close tears down the project subscription.
func (s *Store) Close() {
	if s.adapter != nil {
		s.adapter.Close()
	}
}
