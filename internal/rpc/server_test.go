// rird - gossip-protocol activity-record node
// Copyright (C) 2026 rird-project
//
// This file is part of rird.
//
// rird is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// rird is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with rird. If not, see <https://www.gnu.org/licenses/>.

package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rird-project/rird/internal/logger"
	"github.com/rird-project/rird/pkg/governance"
	"github.com/rird-project/rird/pkg/identity"
	"github.com/rird-project/rird/pkg/ingress"
	"github.com/rird-project/rird/pkg/lifecycle"
	"github.com/rird-project/rird/pkg/record"
	"github.com/rird-project/rird/pkg/store"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, socketPath string) *testClient {
	t.Helper()
	var conn net.Conn
	var err error
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("unix", socketPath)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)
	return &testClient{conn: conn, r: bufio.NewReader(conn)}
}

func (c *testClient) call(t *testing.T, id int, method string, params interface{}) Response {
	t.Helper()
	raw, err := json.Marshal(params)
	require.NoError(t, err)

	idBytes, err := json.Marshal(id)
	require.NoError(t, err)

	req := Request{JSONRPC: "2.0", ID: idBytes, Method: method, Params: raw}
	line, err := json.Marshal(req)
	require.NoError(t, err)

	_, err = c.conn.Write(append(line, '\n'))
	require.NoError(t, err)

	respLine, err := c.r.ReadBytes('\n')
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}

	var resp Response
	require.NoError(t, json.Unmarshal(respLine, &resp))
	return resp
}

func newTestServer(t *testing.T) (*Server, string, *identity.KeyPair) {
	s, socketPath, kp, _ := newTestServerWithPublisher(t)
	return s, socketPath, kp
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*record.Record
}

func (p *fakePublisher) Publish(r *record.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, r)
	return nil
}

func (p *fakePublisher) records() []*record.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*record.Record, len(p.published))
	copy(out, p.published)
	return out
}

func newTestServerWithPublisher(t *testing.T) (*Server, string, *identity.KeyPair, *fakePublisher) {
	t.Helper()
	kp, err := identity.Generate()
	require.NoError(t, err)

	st := store.NewMemoryStore()
	pipeline := ingress.New(st, allowAllLimiter{}, noopBlocklist{})
	engine := lifecycle.NewEngine(kp.PublicHex(), noopBlocklist{}, nil)
	pipeline.OnAny(func(r *record.Record) { engine.HandleRecord(r) })

	ks := governance.NewKillswitch(kp.PublicHex(), nil)
	log := logger.NewDefaultLogger()
	pub := &fakePublisher{}

	socketPath := filepath.Join(t.TempDir(), fmt.Sprintf("rird-%d.sock", time.Now().UnixNano()))
	shutdownCalled := make(chan string, 1)
	s := NewServer(socketPath, kp, st, pipeline, engine, ks, log, func(reason string) {
		shutdownCalled <- reason
	}, pub)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Serve(ctx)
	t.Cleanup(func() {
		cancel()
		s.Close()
		os.Remove(socketPath)
	})

	return s, socketPath, kp, pub
}

type allowAllLimiter struct{}

func (allowAllLimiter) CheckMessage(agent string, typ record.Type) (bool, time.Duration) {
	return true, 0
}

type noopBlocklist struct{}

func (noopBlocklist) IsBlocked(agent string) bool { return false }

func TestStatusReportsAgentAndCounts(t *testing.T) {
	_, socketPath, kp := newTestServer(t)
	c := dial(t, socketPath)

	resp := c.call(t, 1, "status", nil)
	require.Nil(t, resp.Error)

	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, kp.PublicHex(), result["agent"])
	require.Equal(t, false, result["killswitch_fired"])
}

func TestPostThenBrowseThenBid(t *testing.T) {
	_, socketPath, _ := newTestServer(t)
	c := dial(t, socketPath)

	postResp := c.call(t, 1, "marketplace.post", postParams{
		Description: "Summarize the top 10 posts on Hacker News into a digest.",
		BudgetXMR:   0.1,
		Category:    "research",
	})
	require.Nil(t, postResp.Error)
	postResult, ok := postResp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "accepted", postResult["outcome"])
	taskID, _ := postResult["recordId"].(string)
	require.NotEmpty(t, taskID)

	browseResp := c.call(t, 2, "marketplace.browse", browseFilter{Category: "research"})
	require.Nil(t, browseResp.Error)
	rows, ok := browseResp.Result.([]interface{})
	require.True(t, ok)
	require.Len(t, rows, 1)

	bidResp := c.call(t, 3, "marketplace.bid", bidParams{TaskID: taskID, PriceXMR: 0.05})
	require.Nil(t, bidResp.Error)
	bidResult, ok := bidResp.Result.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "accepted", bidResult["outcome"])
}

func TestAcceptedPostAndBidArePublishedToGossip(t *testing.T) {
	_, socketPath, _, pub := newTestServerWithPublisher(t)
	c := dial(t, socketPath)

	postResp := c.call(t, 1, "marketplace.post", postParams{
		Description: "Summarize the top 10 posts on Hacker News into a digest.",
		BudgetXMR:   0.1,
		Category:    "research",
	})
	require.Nil(t, postResp.Error)
	postResult, ok := postResp.Result.(map[string]interface{})
	require.True(t, ok)
	taskID, _ := postResult["recordId"].(string)

	bidResp := c.call(t, 2, "marketplace.bid", bidParams{TaskID: taskID, PriceXMR: 0.05})
	require.Nil(t, bidResp.Error)

	published := pub.records()
	require.Len(t, published, 2)
	require.Equal(t, taskID, published[0].ID)
}

func TestUnknownMethodReturnsMethodNotFound(t *testing.T) {
	_, socketPath, _ := newTestServer(t)
	c := dial(t, socketPath)

	resp := c.call(t, 1, "marketplace.frobnicate", nil)
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestBidRejectsMissingParams(t *testing.T) {
	_, socketPath, _ := newTestServer(t)
	c := dial(t, socketPath)

	resp := c.call(t, 1, "marketplace.bid", bidParams{})
	require.NotNil(t, resp.Error)
	require.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestShutdownInvokesHandler(t *testing.T) {
	kp, err := identity.Generate()
	require.NoError(t, err)

	st := store.NewMemoryStore()
	pipeline := ingress.New(st, allowAllLimiter{}, noopBlocklist{})
	engine := lifecycle.NewEngine(kp.PublicHex(), noopBlocklist{}, nil)
	ks := governance.NewKillswitch(kp.PublicHex(), nil)
	log := logger.NewDefaultLogger()

	socketPath := filepath.Join(t.TempDir(), "shutdown.sock")
	called := make(chan string, 1)
	s := NewServer(socketPath, kp, st, pipeline, engine, ks, log, func(reason string) {
		called <- reason
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Serve(ctx)
	t.Cleanup(func() { s.Close() })

	c := dial(t, socketPath)
	resp := c.call(t, 1, "shutdown", nil)
	require.Nil(t, resp.Error)

	select {
	case reason := <-called:
		require.NotEmpty(t, reason)
	case <-time.After(time.Second):
		t.Fatal("shutdown handler was not invoked")
	}
}
