package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"santiye/internal/database"
	"santiye/internal/docstore"
	"santiye/internal/domain"
	"santiye/internal/events"
)

func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()

	db, err := database.ConnectTest(strings.ReplaceAll(t.Name(), "/", "_"))
	require.NoError(t, err)

	store, err := docstore.Open(db, events.NewBus(), domain.Rules())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func newTestClient(userID string) *client {
	return &client{
		auth: docstore.AuthContext{UserID: userID, Role: domain.RoleUser},
		send: make(chan []byte, 16),
		done: make(chan struct{}),
		subs: make(map[string]*docstore.CollectionAdapter),
	}
}

func readMessage(t *testing.T, c *client) *serverMessage {
	t.Helper()
	select {
	case raw := <-c.send:
		var msg serverMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message pushed")
		return nil
	}
}

func TestPushAfterDisconnectDoesNotPanic(t *testing.T) {
	g := NewGateway(newTestStore(t))
	c := newTestClient("u1")

	g.register(c)
	g.unregister(c)

	for i := 0; i < 10; i++ {
		c.push("s1", docstore.CollectionState{Docs: []docstore.Document{{"id": "d1"}}})
	}
	g.unregister(c)
}

func TestSnapshotRacingDisconnect(t *testing.T) {
	store := newTestStore(t)
	g := NewGateway(store)
	ctx := context.Background()

	// A snapshot delivered by a listener goroutine while the connection
	// tears down must never land on a closed channel.
	for i := 0; i < 50; i++ {
		c := newTestClient("u1")
		g.register(c)
		g.subscribe(c, clientMessage{Type: "subscribe", ID: "s1", Collection: domain.CollectionTenders})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Create(ctx, docstore.System(), domain.CollectionTenders, docstore.Document{
				"ownerId": "u1", "name": "İhale",
			})
		}()

		c.closeSubs()
		g.unregister(c)
		wg.Wait()
	}
}

func TestSubscribeStampsOwnerFilter(t *testing.T) {
	store := newTestStore(t)
	g := NewGateway(store)
	ctx := context.Background()

	_, err := store.Create(ctx, docstore.System(), domain.CollectionTenders, docstore.Document{
		"ownerId": "u1", "name": "Benim ihalem",
	})
	require.NoError(t, err)
	_, err = store.Create(ctx, docstore.System(), domain.CollectionTenders, docstore.Document{
		"ownerId": "u2", "name": "Başkasının ihalesi",
	})
	require.NoError(t, err)

	c := newTestClient("u1")
	g.register(c)
	defer g.unregister(c)
	defer c.closeSubs()

	// A client-supplied ownerId filter is ignored and replaced with the
	// authenticated user's.
	g.subscribe(c, clientMessage{
		Type:       "subscribe",
		ID:         "s1",
		Collection: domain.CollectionTenders,
		Filters:    map[string]string{"ownerId": "u2"},
	})

	first := readMessage(t, c)
	assert.Equal(t, "snapshot", first.Type)
	assert.True(t, first.Loading)

	snapshot := readMessage(t, c)
	require.Equal(t, "snapshot", snapshot.Type)
	require.Len(t, snapshot.Docs, 1)
	assert.Equal(t, "Benim ihalem", snapshot.Docs[0]["name"])
}

func TestUnsubscribeStopsSnapshots(t *testing.T) {
	store := newTestStore(t)
	g := NewGateway(store)
	ctx := context.Background()

	c := newTestClient("u1")
	g.register(c)
	defer g.unregister(c)

	g.subscribe(c, clientMessage{Type: "subscribe", ID: "s1", Collection: domain.CollectionTenders})
	for readMessage(t, c).Loading {
	}

	c.unsubscribe("s1")
	for len(c.send) > 0 {
		<-c.send
	}

	_, err := store.Create(ctx, docstore.System(), domain.CollectionTenders, docstore.Document{
		"ownerId": "u1", "name": "İhale",
	})
	require.NoError(t, err)

	select {
	case raw := <-c.send:
		t.Fatalf("snapshot after unsubscribe: %s", raw)
	case <-time.After(200 * time.Millisecond):
	}
}
