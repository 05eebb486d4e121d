package docstore

import (
	"context"
	"sync"

	"santiye/internal/events"
)

// ListenHandle owns one live listener. Close is idempotent and tears the
// listener down exactly once.
type ListenHandle struct {
	once sync.Once
	stop func()
}

func (h *ListenHandle) Close() {
	h.once.Do(h.stop)
}

// Listen opens a live listener on q. onSnapshot receives the full current
// result set immediately and again after every committed write to the
// collection; snapshots for one listener are delivered in order. An
// authorization failure is published on the bus, delivered to onError and
// terminates the listener.
func (s *Store) Listen(auth AuthContext, q Query, onSnapshot func([]Document), onError func(error)) *ListenHandle {
	id, entry := s.notifier.register(q.Collection)

	go func() {
		for {
			select {
			case <-entry.done:
				return
			case <-entry.trigger:
			}

			if !s.rules.allow(events.OpList, auth, q.Collection, nil, &q) {
				onError(s.denied(events.OpList, q.Path(), nil, auth))
				s.notifier.unregister(q.Collection, id)
				return
			}
			docs, err := s.runQueryUnchecked(context.Background(), q)
			if err != nil {
				onError(err)
				continue
			}
			onSnapshot(docs)
		}
	}()

	return &ListenHandle{stop: func() {
		s.notifier.unregister(q.Collection, id)
	}}
}

// ListenDoc opens a live listener on a single document. onSnapshot
// receives the current value, or nil when the document does not exist.
func (s *Store) ListenDoc(auth AuthContext, collection, docID string, onSnapshot func(Document), onError func(error)) *ListenHandle {
	id, entry := s.notifier.register(collection)
	path := collection + "/" + docID

	go func() {
		for {
			select {
			case <-entry.done:
				return
			case <-entry.trigger:
			}

			doc, err := s.Get(context.Background(), System(), collection, docID)
			if err == ErrNotFound {
				onSnapshot(nil)
				continue
			}
			if err != nil {
				onError(err)
				continue
			}
			if !s.rules.allow(events.OpGet, auth, collection, doc, nil) {
				onError(s.denied(events.OpGet, path, nil, auth))
				s.notifier.unregister(collection, id)
				return
			}
			onSnapshot(doc)
		}
	}()

	return &ListenHandle{stop: func() {
		s.notifier.unregister(collection, id)
	}}
}
