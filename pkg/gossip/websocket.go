package gossip

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wireFrame is the WebSocket wire envelope for a single gossip message.
type wireFrame struct {
	Topic string `json:"topic"`
	Data  []byte `json:"data"`
}

// WebSocketTransport is a Transport over direct peer-to-peer WebSocket
// connections: Dial opens an outbound connection to a peer's Accept
// endpoint, Accept upgrades an inbound HTTP request to one. Broadcast
// writes to every connected peer; SendToPeer writes to one. Each peer
// connection runs its own read loop delivering frames to the registered
// handler.
type WebSocketTransport struct {
	selfID       string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	upgrader     websocket.Upgrader

	mu      sync.RWMutex
	peers   map[string]*websocket.Conn
	handler func(topic string, data []byte)
}

// NewWebSocketTransport constructs a WebSocketTransport identifying
// itself to peers as selfID (typically the node's agent id).
func NewWebSocketTransport(selfID string) *WebSocketTransport {
	return &WebSocketTransport{
		selfID:       selfID,
		dialTimeout:  10 * time.Second,
		writeTimeout: 10 * time.Second,
		upgrader:     websocket.Upgrader{},
		peers:        make(map[string]*websocket.Conn),
	}
}

// Dial opens an outbound connection to a peer and begins reading frames
// from it. peerID identifies the peer in Peers() and SendToPeer.
func (t *WebSocketTransport) Dial(ctx context.Context, peerID, url string) error {
	dialer := &websocket.Dialer{HandshakeTimeout: t.dialTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("gossip: dial %s (HTTP %d): %w", peerID, resp.StatusCode, err)
		}
		return fmt.Errorf("gossip: dial %s: %w", peerID, err)
	}
	t.addPeer(peerID, conn)
	return nil
}

// Accept upgrades an inbound HTTP request to a WebSocket connection for
// peerID, suitable for use as an http.HandlerFunc body.
func (t *WebSocketTransport) Accept(peerID string, w http.ResponseWriter, r *http.Request) error {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("gossip: accept %s: %w", peerID, err)
	}
	t.addPeer(peerID, conn)
	return nil
}

func (t *WebSocketTransport) addPeer(peerID string, conn *websocket.Conn) {
	t.mu.Lock()
	t.peers[peerID] = conn
	t.mu.Unlock()
	go t.readLoop(peerID, conn)
}

func (t *WebSocketTransport) readLoop(peerID string, conn *websocket.Conn) {
	defer t.dropPeer(peerID, conn)
	for {
		var frame wireFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		t.mu.RLock()
		h := t.handler
		t.mu.RUnlock()
		if h != nil {
			h(frame.Topic, frame.Data)
		}
	}
}

func (t *WebSocketTransport) dropPeer(peerID string, conn *websocket.Conn) {
	t.mu.Lock()
	if t.peers[peerID] == conn {
		delete(t.peers, peerID)
	}
	t.mu.Unlock()
	conn.Close()
}

func (t *WebSocketTransport) Broadcast(topic string, data []byte) error {
	t.mu.RLock()
	conns := make(map[string]*websocket.Conn, len(t.peers))
	for id, c := range t.peers {
		conns[id] = c
	}
	t.mu.RUnlock()

	var firstErr error
	for id, conn := range conns {
		if err := t.writeFrame(conn, topic, data); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gossip: broadcast to %s: %w", id, err)
		}
	}
	return firstErr
}

func (t *WebSocketTransport) SendToPeer(peerID string, data []byte) error {
	t.mu.RLock()
	conn, ok := t.peers[peerID]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("gossip: unknown peer %s", peerID)
	}
	return t.writeFrame(conn, "", data)
}

func (t *WebSocketTransport) writeFrame(conn *websocket.Conn, topic string, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(wireFrame{Topic: topic, Data: data})
}

func (t *WebSocketTransport) OnMessage(handler func(topic string, data []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *WebSocketTransport) Peers() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.peers))
	for id := range t.peers {
		out = append(out, id)
	}
	return out
}
