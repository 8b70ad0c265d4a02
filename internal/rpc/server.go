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
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rird-project/rird/internal/logger"
	"github.com/rird-project/rird/pkg/governance"
	"github.com/rird-project/rird/pkg/identity"
	"github.com/rird-project/rird/pkg/ingress"
	"github.com/rird-project/rird/pkg/lifecycle"
	"github.com/rird-project/rird/pkg/record"
	"github.com/rird-project/rird/pkg/store"
)

// Publisher is the capability the gossip adapter exposes for broadcasting
// a locally originated record (gossip.Adapter satisfies this). Nil is a
// valid Server.publisher: a node with no transport configured just skips
// the broadcast step.
type Publisher interface {
	Publish(r *record.Record) error
}

// methodHandler services one JSON-RPC method against raw params, returning
// either a JSON-marshalable result or a structured Error.
type methodHandler func(ctx context.Context, params json.RawMessage) (interface{}, *Error)

// Server is the node's local control-plane JSON-RPC server, listening on
// a Unix domain socket.
type Server struct {
	socketPath string
	self       *identity.KeyPair
	store      store.Store
	pipeline   *ingress.Pipeline
	engine     *lifecycle.Engine
	killswitch *governance.Killswitch
	logger     logger.Logger
	startedAt  time.Time
	shutdown   func(reason string)
	authSecret string
	publisher  Publisher

	mu       sync.Mutex
	listener net.Listener
	methods  map[string]methodHandler
}

// SetAuthSecret requires every connection to authenticate with an "auth"
// method call (params: {"token": "<jwt>"}) before any other method is
// serviced. Passing an empty secret disables the requirement, the
// server's default.
func (s *Server) SetAuthSecret(secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authSecret = secret
}

// NewServer constructs a control-plane Server. shutdown is invoked
// (exactly once, by convention) when a client calls the "shutdown"
// method.
func NewServer(
	socketPath string,
	self *identity.KeyPair,
	st store.Store,
	pipeline *ingress.Pipeline,
	engine *lifecycle.Engine,
	killswitch *governance.Killswitch,
	log logger.Logger,
	shutdown func(reason string),
	publisher Publisher,
) *Server {
	s := &Server{
		socketPath: socketPath,
		self:       self,
		store:      st,
		pipeline:   pipeline,
		engine:     engine,
		killswitch: killswitch,
		logger:     log,
		startedAt:  time.Now(),
		shutdown:   shutdown,
		publisher:  publisher,
	}
	s.methods = map[string]methodHandler{
		"status":            s.handleStatus,
		"marketplace.browse": s.handleBrowse,
		"marketplace.bid":    s.handleBid,
		"marketplace.post":   s.handlePost,
		"shutdown":           s.handleShutdown,
	}
	return s
}

// Serve removes any stale socket file at socketPath, binds a new Unix
// listener, and accepts connections until ctx is canceled or Close is
// called. Each connection is handled on its own goroutine; requests on
// one connection are serviced sequentially, preserving request order for
// that client.
func (s *Server) Serve(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	s.logger.Info("rpc: listening on " + s.socketPath)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Error("rpc: accept failed: " + err.Error())
				return err
			}
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections and removes the socket file.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	_ = os.Remove(s.socketPath)
	s.listener = nil
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	reqID := uuid.NewString()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(conn)

	s.mu.Lock()
	requireAuth := s.authSecret != ""
	s.mu.Unlock()
	authenticated := !requireAuth

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.dispatch(context.Background(), line, &authenticated)
		if err := enc.Encode(resp); err != nil {
			s.logger.Error("rpc[" + reqID + "]: write failed: " + err.Error())
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, line []byte, authenticated *bool) Response {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nil, CodeParseError, "parse error: "+err.Error())
	}
	if req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "invalid request: missing method")
	}

	if req.Method == "auth" {
		if rpcErr := s.handleAuth(req.Params); rpcErr != nil {
			return errorResponse(req.ID, rpcErr.Code, rpcErr.Message)
		}
		*authenticated = true
		return resultResponse(req.ID, map[string]bool{"authenticated": true})
	}

	if !*authenticated {
		return errorResponse(req.ID, CodeInvalidRequest, "not authenticated: call \"auth\" first")
	}

	handler, ok := s.methods[req.Method]
	if !ok {
		return errorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method)
	}

	result, rpcErr := handler(ctx, req.Params)
	if rpcErr != nil {
		return errorResponse(req.ID, rpcErr.Code, rpcErr.Message)
	}
	return resultResponse(req.ID, result)
}

func internalError(message string) *Error {
	return &Error{Code: CodeInternalError, Message: message}
}

func invalidParams(message string) *Error {
	return &Error{Code: CodeInvalidParams, Message: message}
}

// statusResult is the result of the "status" method.
type statusResult struct {
	Agent          string `json:"agent"`
	UptimeSeconds  int64  `json:"uptime_seconds"`
	RecordCount    int64  `json:"record_count"`
	KillswitchFired bool  `json:"killswitch_fired"`
	Pipeline       ingress.Counters `json:"pipeline"`
}

func (s *Server) handleStatus(ctx context.Context, _ json.RawMessage) (interface{}, *Error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, internalError("store count: " + err.Error())
	}
	fired := false
	if s.killswitch != nil {
		fired = s.killswitch.Fired()
	}
	return statusResult{
		Agent:           s.self.PublicHex(),
		UptimeSeconds:   int64(time.Since(s.startedAt).Seconds()),
		RecordCount:     count,
		KillswitchFired: fired,
		Pipeline:        s.pipeline.Counters(),
	}, nil
}

// browseFilter is the optional filter for "marketplace.browse".
type browseFilter struct {
	Category     string  `json:"category"`
	MaxBudgetXMR float64 `json:"maxBudgetXmr"`
}

// taskSummary is one row of a "marketplace.browse" result.
type taskSummary struct {
	TaskID      string  `json:"taskId"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	BudgetXMR   float64 `json:"budgetXmr"`
	TrustTier   int     `json:"trustTier"`
	Bids        int     `json:"bids"`
}

func (s *Server) handleBrowse(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var filter browseFilter
	if len(params) > 0 {
		if err := json.Unmarshal(params, &filter); err != nil {
			return nil, invalidParams("browse: " + err.Error())
		}
	}

	open := s.engine.OpenTasks()
	out := make([]taskSummary, 0, len(open))
	for _, t := range open {
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if filter.MaxBudgetXMR > 0 && t.BudgetXMR > filter.MaxBudgetXMR {
			continue
		}
		out = append(out, taskSummary{
			TaskID:      t.ID,
			Description: t.Description,
			Category:    t.Category,
			BudgetXMR:   t.BudgetXMR,
			TrustTier:   t.TrustTier,
			Bids:        len(t.Bids),
		})
	}
	return out, nil
}

// bidParams is the params for "marketplace.bid".
type bidParams struct {
	TaskID   string  `json:"taskId"`
	PriceXMR float64 `json:"priceXmr"`
}

type submitResult struct {
	RecordID string `json:"recordId"`
	Outcome  string `json:"outcome"`
}

func (s *Server) handleBid(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p bidParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams("bid: " + err.Error())
	}
	if p.TaskID == "" || p.PriceXMR <= 0 {
		return nil, invalidParams("bid: taskId and a positive priceXmr are required")
	}

	r, err := record.Create(s.self.PublicHex(), s.self, record.TypeTaskBid, map[string]interface{}{
		"task_id":   p.TaskID,
		"price_xmr": p.PriceXMR,
	}, []string{p.TaskID})
	if err != nil {
		return nil, internalError("bid: " + err.Error())
	}

	result := s.pipeline.IngestContext(ctx, r)
	s.publishIfAccepted(r, result)
	return submitResult{RecordID: r.ID, Outcome: string(result.Outcome)}, nil
}

// postParams is the params for "marketplace.post".
type postParams struct {
	Description  string   `json:"description"`
	BudgetXMR    float64  `json:"budgetXmr"`
	Category     string   `json:"category"`
	Requirements []string `json:"requirements"`
	TrustTier    int      `json:"trustTier"`
	DeadlineUnix int64    `json:"deadlineUnix"`
}

func (s *Server) handlePost(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p postParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, invalidParams("post: " + err.Error())
	}
	if p.Description == "" || p.BudgetXMR <= 0 {
		return nil, invalidParams("post: description and a positive budgetXmr are required")
	}

	data := map[string]interface{}{
		"description": p.Description,
		"budget_xmr":  p.BudgetXMR,
		"category":    p.Category,
		"trust_tier":  p.TrustTier,
	}
	if len(p.Requirements) > 0 {
		reqs := make([]interface{}, len(p.Requirements))
		for i, v := range p.Requirements {
			reqs[i] = v
		}
		data["requirements"] = reqs
	}
	if p.DeadlineUnix > 0 {
		data["deadline"] = p.DeadlineUnix
	}

	r, err := record.Create(s.self.PublicHex(), s.self, record.TypeTaskPosted, data, nil)
	if err != nil {
		return nil, internalError("post: " + err.Error())
	}

	result := s.pipeline.IngestContext(ctx, r)
	s.publishIfAccepted(r, result)
	return submitResult{RecordID: r.ID, Outcome: string(result.Outcome)}, nil
}

// publishIfAccepted broadcasts a locally originated record onto the
// gossip topic once it has cleared the ingress pipeline, per spec §2's
// data flow: "Outbound records produced by any component are stored
// locally, marked self-seen, and submitted to C13 for broadcast." A
// broadcast failure is logged but not retried; the record is already
// durably stored either way.
func (s *Server) publishIfAccepted(r *record.Record, result ingress.Result) {
	if s.publisher == nil || result.Outcome != ingress.OutcomeAccepted {
		return
	}
	if err := s.publisher.Publish(r); err != nil {
		s.logger.Error("rpc: gossip publish failed: " + err.Error())
	}
}

func (s *Server) handleShutdown(ctx context.Context, _ json.RawMessage) (interface{}, *Error) {
	if s.shutdown != nil {
		go s.shutdown("rpc: shutdown requested")
	}
	return map[string]bool{"shutting_down": true}, nil
}
