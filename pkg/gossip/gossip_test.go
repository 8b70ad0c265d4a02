package gossip

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rird-project/rird/pkg/identity"
	"github.com/rird-project/rird/pkg/record"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Now()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTransport struct {
	mu        sync.Mutex
	handler   func(topic string, data []byte)
	broadcast []struct {
		topic string
		data  []byte
	}
	failBroadcast bool
}

func (t *fakeTransport) Broadcast(topic string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failBroadcast {
		return assert.AnError
	}
	t.broadcast = append(t.broadcast, struct {
		topic string
		data  []byte
	}{topic, data})
	return nil
}

func (t *fakeTransport) OnMessage(handler func(topic string, data []byte)) {
	t.handler = handler
}

func (t *fakeTransport) Peers() []string { return nil }

func (t *fakeTransport) SendToPeer(peerID string, data []byte) error { return nil }

func (t *fakeTransport) deliver(topic string, data []byte) {
	t.handler(topic, data)
}

type fakeIngress struct {
	mu       sync.Mutex
	received []*record.Record
}

func (fi *fakeIngress) Ingest(r *record.Record) error {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.received = append(fi.received, r)
	return nil
}

func (fi *fakeIngress) count() int {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return len(fi.received)
}

func mustRecord(t *testing.T) *record.Record {
	t.Helper()
	kp, err := identity.Generate()
	require.NoError(t, err)
	r, err := record.Create(kp.PublicHex(), kp, record.TypeAgentOnline, map[string]interface{}{}, nil)
	require.NoError(t, err)
	return r
}

func TestAdapterForwardsNewRecordToIngress(t *testing.T) {
	transport := &fakeTransport{}
	ingress := &fakeIngress{}
	NewAdapter(transport, ingress, DefaultTopic, nil)

	r := mustRecord(t)
	data, err := record.Serialize(r)
	require.NoError(t, err)

	transport.deliver(DefaultTopic, data)
	assert.Equal(t, 1, ingress.count())
}

func TestAdapterDropsDuplicateByID(t *testing.T) {
	transport := &fakeTransport{}
	ingress := &fakeIngress{}
	adapter := NewAdapter(transport, ingress, DefaultTopic, nil)

	r := mustRecord(t)
	data, err := record.Serialize(r)
	require.NoError(t, err)

	transport.deliver(DefaultTopic, data)
	transport.deliver(DefaultTopic, data)
	assert.Equal(t, 1, ingress.count())
	assert.Equal(t, 1, adapter.SeenCount())
}

func TestAdapterIgnoresOtherTopics(t *testing.T) {
	transport := &fakeTransport{}
	ingress := &fakeIngress{}
	NewAdapter(transport, ingress, DefaultTopic, nil)

	r := mustRecord(t)
	data, err := record.Serialize(r)
	require.NoError(t, err)

	transport.deliver("/some/other/topic", data)
	assert.Equal(t, 0, ingress.count())
}

func TestAdapterDropsUndeserializableBytes(t *testing.T) {
	transport := &fakeTransport{}
	ingress := &fakeIngress{}
	NewAdapter(transport, ingress, DefaultTopic, nil)

	transport.deliver(DefaultTopic, []byte("not json"))
	assert.Equal(t, 0, ingress.count())
}

func TestAdapterPublishBroadcastsSerializedRecord(t *testing.T) {
	transport := &fakeTransport{}
	ingress := &fakeIngress{}
	adapter := NewAdapter(transport, ingress, DefaultTopic, nil)

	r := mustRecord(t)
	require.NoError(t, adapter.Publish(r))
	require.Len(t, transport.broadcast, 1)
	assert.Equal(t, DefaultTopic, transport.broadcast[0].topic)

	// the adapter's own publish marks the id as seen, so a later echo back
	// over gossip is dropped as a duplicate rather than re-ingested
	data, err := record.Serialize(r)
	require.NoError(t, err)
	transport.deliver(DefaultTopic, data)
	assert.Equal(t, 0, ingress.count())
}

func TestSeenCacheExpiresAfterWindow(t *testing.T) {
	clock := newFakeClock()
	transport := &fakeTransport{}
	ingress := &fakeIngress{}
	adapter := NewAdapterWithClock(clock, transport, ingress, DefaultTopic, nil)

	r := mustRecord(t)
	data, err := record.Serialize(r)
	require.NoError(t, err)

	transport.deliver(DefaultTopic, data)
	assert.Equal(t, 1, ingress.count())

	clock.Advance(seenCacheExpiry + time.Second)
	transport.deliver(DefaultTopic, data)
	assert.Equal(t, 2, ingress.count())
}

func TestSeenCacheEvictsOldestPastBound(t *testing.T) {
	clock := newFakeClock()
	cache := newSeenCache(clock)

	for i := 0; i < seenCacheBound+10; i++ {
		cache.observe(string(rune(i)))
	}
	assert.Equal(t, seenCacheBound, cache.len())
}
