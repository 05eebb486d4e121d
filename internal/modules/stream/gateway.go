package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"santiye/internal/docstore"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientMessage is what the browser sends: open or close a live query.
type clientMessage struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Collection string            `json:"collection"`
	Filters    map[string]string `json:"filters,omitempty"`
}

// serverMessage pushes a snapshot (or a subscription error) back down.
type serverMessage struct {
	Type    string               `json:"type"`
	ID      string               `json:"id"`
	Docs    []docstore.Document  `json:"docs,omitempty"`
	Loading bool                 `json:"loading"`
	Error   string               `json:"error,omitempty"`
}

// client is one WebSocket connection with its open live queries. send is
// never closed: adapter callbacks push from listener goroutines, so
// shutdown is signalled through done instead and stragglers write into
// the buffer harmlessly.
type client struct {
	auth docstore.AuthContext
	conn *websocket.Conn
	send chan []byte
	done chan struct{}

	mu   sync.Mutex
	subs map[string]*docstore.CollectionAdapter
}

// Gateway exposes the store's live queries over WebSocket. Each
// connection can hold any number of subscriptions, each backed by a
// collection adapter; all of them close when the socket drops.
type Gateway struct {
	store *docstore.Store

	mu      sync.RWMutex
	clients map[*client]bool
}

func NewGateway(store *docstore.Store) *Gateway {
	return &Gateway{
		store:   store,
		clients: make(map[*client]bool),
	}
}

func (g *Gateway) register(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[c] = true
}

func (g *Gateway) unregister(c *client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.clients[c] {
		delete(g.clients, c)
		close(c.done)
	}
}

// ServeWS takes ownership of an upgraded connection and blocks until it
// disconnects.
func (g *Gateway) ServeWS(conn *websocket.Conn, auth docstore.AuthContext) {
	c := &client{
		auth: auth,
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
		subs: make(map[string]*docstore.CollectionAdapter),
	}

	g.register(c)

	go g.writePump(c)
	g.readPump(c)
}

func (g *Gateway) readPump(c *client) {
	defer func() {
		c.closeSubs()
		g.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var req clientMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}

		switch req.Type {
		case "subscribe":
			g.subscribe(c, req)
		case "unsubscribe":
			c.unsubscribe(req.ID)
		}
	}
}

func (g *Gateway) subscribe(c *client, req clientMessage) {
	if req.ID == "" || req.Collection == "" {
		return
	}

	filters := []docstore.Filter{docstore.Eq("ownerId", c.auth.UserID)}
	for field, value := range req.Filters {
		if field == "ownerId" {
			continue
		}
		filters = append(filters, docstore.Eq(field, value))
	}
	q := &docstore.Query{Collection: req.Collection, Filters: filters}

	subID := req.ID
	adapter := docstore.NewCollectionAdapter(g.store, c.auth, func(state docstore.CollectionState) {
		c.push(subID, state)
	})

	c.mu.Lock()
	if old, ok := c.subs[subID]; ok {
		old.Close()
	}
	c.subs[subID] = adapter
	c.mu.Unlock()

	adapter.SetQuery(q)
}

func (c *client) unsubscribe(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if adapter, ok := c.subs[id]; ok {
		adapter.Close()
		delete(c.subs, id)
	}
}

func (c *client) closeSubs() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, adapter := range c.subs {
		adapter.Close()
		delete(c.subs, id)
	}
}

func (c *client) push(subID string, state docstore.CollectionState) {
	out := serverMessage{
		Type:    "snapshot",
		ID:      subID,
		Docs:    state.Docs,
		Loading: state.Loading,
	}
	if state.Err != nil {
		out.Type = "error"
		out.Error = state.Err.Error()
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	select {
	case <-c.done:
		// Connection already torn down, nobody will read it.
	case c.send <- data:
	default:
		// Client too slow, drop this snapshot; the next one supersedes it.
	}
}

func (g *Gateway) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close drops every active connection.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for c := range g.clients {
		c.closeSubs()
		close(c.done)
		_ = c.conn.Close()
		delete(g.clients, c)
	}
}

func logUpgradeError(err error) {
	log.Printf("websocket upgrade failed: %v", err)
}
