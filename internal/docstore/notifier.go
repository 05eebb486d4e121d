package docstore

import "sync"

type listenerEntry struct {
	trigger chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (e *listenerEntry) stop() {
	e.once.Do(func() { close(e.done) })
}

// notifier fans collection-change signals out to open listeners. Each
// listener owns a capacity-one trigger channel, so bursts of writes
// coalesce into a single re-evaluation while one is still guaranteed to
// run after the last write.
type notifier struct {
	mu   sync.Mutex
	subs map[string]map[int64]*listenerEntry
	next int64
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string]map[int64]*listenerEntry)}
}

// register adds a listener for collection, pre-fired so it delivers its
// initial snapshot.
func (n *notifier) register(collection string) (int64, *listenerEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.next++
	entry := &listenerEntry{
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	entry.trigger <- struct{}{}

	if n.subs[collection] == nil {
		n.subs[collection] = make(map[int64]*listenerEntry)
	}
	n.subs[collection][n.next] = entry
	return n.next, entry
}

func (n *notifier) unregister(collection string, id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if entry, ok := n.subs[collection][id]; ok {
		entry.stop()
		delete(n.subs[collection], id)
	}
}

func (n *notifier) changed(collection string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, entry := range n.subs[collection] {
		select {
		case entry.trigger <- struct{}{}:
		default:
		}
	}
}

func (n *notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, col := range n.subs {
		for _, entry := range col {
			entry.stop()
		}
	}
	n.subs = make(map[string]map[int64]*listenerEntry)
}
