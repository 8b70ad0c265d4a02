package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rird-project/rird/pkg/identity"
	"github.com/rird-project/rird/pkg/record"
)

func TestMemoryStoreInsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	kp, err := identity.Generate()
	require.NoError(t, err)
	r, err := record.Create(kp.PublicHex(), kp, record.TypeAgentOnline, nil, nil)
	require.NoError(t, err)

	inserted, err := s.Insert(ctx, r)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.Insert(ctx, r)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStoreQueryByTypeOrdersByTimeDescending(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	kp, err := identity.Generate()
	require.NoError(t, err)

	older, err := record.Create(kp.PublicHex(), kp, record.TypeTaskPosted, nil, nil)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	newer, err := record.Create(kp.PublicHex(), kp, record.TypeTaskPosted, map[string]interface{}{"x": 1}, nil)
	require.NoError(t, err)
	newer.TS = older.TS + 10

	_, err = s.Insert(ctx, older)
	require.NoError(t, err)
	_, err = s.Insert(ctx, newer)
	require.NoError(t, err)

	got, err := s.QueryByType(ctx, record.TypeTaskPosted, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)
}

func TestMemoryStoreGetMissingReturnsNil(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	r, err := s.Get(ctx, "blake3:doesnotexist")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestMemoryStoreQueryByTypeAndAgent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	kpA, _ := identity.Generate()
	kpB, _ := identity.Generate()

	rA, _ := record.Create(kpA.PublicHex(), kpA, record.TypeTaskBid, nil, nil)
	rB, _ := record.Create(kpB.PublicHex(), kpB, record.TypeTaskBid, nil, nil)
	_, _ = s.Insert(ctx, rA)
	_, _ = s.Insert(ctx, rB)

	got, err := s.QueryByTypeAndAgent(ctx, record.TypeTaskBid, kpA.PublicHex(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rA.ID, got[0].ID)
}
