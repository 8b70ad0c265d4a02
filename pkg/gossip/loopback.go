package gossip

import "sync"

// LoopbackTransport is the in-process Transport double named by the
// protocol's non-goals (no real P2P implementation ships here): messages
// broadcast on it are delivered back to its own registered handler,
// useful for a single-node dev-mode run and for tests that don't need a
// real network.
type LoopbackTransport struct {
	mu      sync.Mutex
	handler func(topic string, data []byte)
}

// NewLoopbackTransport constructs an empty LoopbackTransport.
func NewLoopbackTransport() *LoopbackTransport {
	return &LoopbackTransport{}
}

func (t *LoopbackTransport) Broadcast(topic string, data []byte) error {
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h != nil {
		h(topic, data)
	}
	return nil
}

func (t *LoopbackTransport) OnMessage(handler func(topic string, data []byte)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *LoopbackTransport) Peers() []string { return nil }

func (t *LoopbackTransport) SendToPeer(string, []byte) error { return nil }
