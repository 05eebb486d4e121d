package docstore

import "sync"

// CollectionState is the adapter's live view of a query: the current
// mirror, whether a first snapshot (or error) is still pending, and the
// last subscribe error if any.
type CollectionState struct {
	Docs    []Document
	Loading bool
	Err     error
}

// CollectionAdapter maintains a live local mirror of one query's result
// set. It opens exactly one listener per distinct query identity
// (Query.Key) and closes the previous listener when the identity changes,
// so callers can re-submit queries freely without leaking listeners.
type CollectionAdapter struct {
	store    *Store
	auth     AuthContext
	onChange func(CollectionState)

	mu        sync.Mutex
	adopted   bool
	key       string
	gen       int
	handle    *ListenHandle
	state     CollectionState
	closed    bool
	pending   []CollectionState
	notifying bool
}

// NewCollectionAdapter builds an adapter with no query adopted yet.
// onChange, when non-nil, is invoked after every state transition.
func NewCollectionAdapter(store *Store, auth AuthContext, onChange func(CollectionState)) *CollectionAdapter {
	return &CollectionAdapter{store: store, auth: auth, onChange: onChange}
}

// SetQuery adopts a query, or nil for "no subscription". Adopting the
// same identity again is a no-op. A nil query clears the mirror and sets
// loading false without opening a listener; a new identity synchronously
// flips loading true, then updates the mirror on every snapshot.
func (a *CollectionAdapter) SetQuery(q *Query) {
	a.mu.Lock()

	if a.closed {
		a.mu.Unlock()
		return
	}

	newKey := ""
	if q != nil {
		newKey = q.Key()
	}
	if a.adopted && newKey == a.key {
		a.mu.Unlock()
		return
	}

	if a.handle != nil {
		a.handle.Close()
		a.handle = nil
	}
	a.adopted = true
	a.key = newKey
	a.gen++
	gen := a.gen

	if q == nil {
		a.state = CollectionState{Loading: false}
		a.notifyLocked()
		return
	}

	a.state = CollectionState{Loading: true}
	a.handle = a.store.Listen(a.auth, *q,
		func(docs []Document) { a.deliver(gen, docs, nil) },
		func(err error) { a.deliver(gen, nil, err) },
	)
	a.notifyLocked()
}

// deliver applies a snapshot or error from the listener opened at gen;
// late deliveries from a replaced listener are dropped.
func (a *CollectionAdapter) deliver(gen int, docs []Document, err error) {
	a.mu.Lock()
	if a.closed || gen != a.gen {
		a.mu.Unlock()
		return
	}
	if err != nil {
		a.state.Err = err
		a.state.Loading = false
	} else {
		a.state.Docs = docs
		a.state.Loading = false
		a.state.Err = nil
	}
	a.notifyLocked()
}

// notifyLocked queues the current state and drains the queue outside the
// lock. Queueing under the lock and draining from one goroutine at a time
// keeps callbacks ordered and non-overlapping even when a synchronous
// SetQuery notification races a listener delivery.
func (a *CollectionAdapter) notifyLocked() {
	if a.onChange == nil {
		a.mu.Unlock()
		return
	}
	a.pending = append(a.pending, a.state)
	if a.notifying {
		a.mu.Unlock()
		return
	}
	a.notifying = true
	for !a.closed && len(a.pending) > 0 {
		state := a.pending[0]
		a.pending = a.pending[1:]
		a.mu.Unlock()
		a.onChange(state)
		a.mu.Lock()
	}
	a.pending = nil
	a.notifying = false
	a.mu.Unlock()
}

// State returns the current mirror, loading flag and error.
func (a *CollectionAdapter) State() CollectionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Close tears down the open listener, if any, exactly once.
func (a *CollectionAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	if a.handle != nil {
		a.handle.Close()
		a.handle = nil
	}
}

// DocumentState is the adapter's live view of a single document. Doc is
// nil when the document does not exist.
type DocumentState struct {
	Doc     Document
	Loading bool
	Err     error
}

// DocumentAdapter is the single-document variant of CollectionAdapter.
type DocumentAdapter struct {
	store    *Store
	auth     AuthContext
	onChange func(DocumentState)

	mu        sync.Mutex
	adopted   bool
	key       string
	gen       int
	handle    *ListenHandle
	state     DocumentState
	closed    bool
	pending   []DocumentState
	notifying bool
}

func NewDocumentAdapter(store *Store, auth AuthContext, onChange func(DocumentState)) *DocumentAdapter {
	return &DocumentAdapter{store: store, auth: auth, onChange: onChange}
}

// SetRef adopts a document reference; empty collection means "no
// subscription".
func (a *DocumentAdapter) SetRef(collection, id string) {
	a.mu.Lock()

	if a.closed {
		a.mu.Unlock()
		return
	}

	newKey := ""
	if collection != "" {
		newKey = collection + "/" + id
	}
	if a.adopted && newKey == a.key {
		a.mu.Unlock()
		return
	}

	if a.handle != nil {
		a.handle.Close()
		a.handle = nil
	}
	a.adopted = true
	a.key = newKey
	a.gen++
	gen := a.gen

	if collection == "" {
		a.state = DocumentState{Loading: false}
		a.notifyLocked()
		return
	}

	a.state = DocumentState{Loading: true}
	a.handle = a.store.ListenDoc(a.auth, collection, id,
		func(doc Document) { a.deliver(gen, doc, nil) },
		func(err error) { a.deliver(gen, nil, err) },
	)
	a.notifyLocked()
}

func (a *DocumentAdapter) deliver(gen int, doc Document, err error) {
	a.mu.Lock()
	if a.closed || gen != a.gen {
		a.mu.Unlock()
		return
	}
	if err != nil {
		a.state.Err = err
		a.state.Loading = false
	} else {
		a.state.Doc = doc
		a.state.Loading = false
		a.state.Err = nil
	}
	a.notifyLocked()
}

func (a *DocumentAdapter) notifyLocked() {
	if a.onChange == nil {
		a.mu.Unlock()
		return
	}
	a.pending = append(a.pending, a.state)
	if a.notifying {
		a.mu.Unlock()
		return
	}
	a.notifying = true
	for !a.closed && len(a.pending) > 0 {
		state := a.pending[0]
		a.pending = a.pending[1:]
		a.mu.Unlock()
		a.onChange(state)
		a.mu.Lock()
	}
	a.pending = nil
	a.notifying = false
	a.mu.Unlock()
}

func (a *DocumentAdapter) State() DocumentState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *DocumentAdapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.closed = true
	if a.handle != nil {
		a.handle.Close()
		a.handle = nil
	}
}
