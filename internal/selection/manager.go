package selection

import (
	"sync"

	"santiye/internal/docstore"
	"santiye/internal/events"
)

// Manager hands out one selection store per user, created lazily on first
// use and kept for the process lifetime.
type Manager struct {
	store   *docstore.Store
	bus     *events.Bus
	storage Storage

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(store *docstore.Store, bus *events.Bus, storage Storage) *Manager {
	return &Manager{
		store:   store,
		bus:     bus,
		storage: storage,
		stores:  make(map[string]*Store),
	}
}

// ForUser returns the user's selection store, creating it on first call.
func (m *Manager) ForUser(userID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[userID]; ok {
		return s
	}
	s := New(userID, m.store, m.bus, m.storage)
	m.stores[userID] = s
	return s
}

// Close tears down every user's subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.stores {
		s.Close()
	}
	m.stores = make(map[string]*Store)
}
