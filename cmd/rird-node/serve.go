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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rird-project/rird/config"
	"github.com/rird-project/rird/internal/logger"
	"github.com/rird-project/rird/internal/metrics"
	"github.com/rird-project/rird/internal/rpc"
	"github.com/rird-project/rird/pkg/flagging"
	"github.com/rird-project/rird/pkg/gossip"
	"github.com/rird-project/rird/pkg/governance"
	"github.com/rird-project/rird/pkg/health"
	"github.com/rird-project/rird/pkg/identity"
	"github.com/rird-project/rird/pkg/ingress"
	"github.com/rird-project/rird/pkg/lifecycle"
	"github.com/rird-project/rird/pkg/record"
	"github.com/rird-project/rird/pkg/reputation"
	"github.com/rird-project/rird/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the node daemon",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func loadNodeConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	env, _ := cmd.Flags().GetString("env")
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load(config.LoaderOptions{Environment: env})
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadNodeConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg)
	log.Info("rird-node starting", logger.String("environment", cfg.Environment))

	if err := ensureParentDir(cfg.Identity.KeyPath); err != nil {
		return fmt.Errorf("identity key dir: %w", err)
	}
	if err := ensureParentDir(cfg.RPC.SocketPath); err != nil {
		return fmt.Errorf("rpc socket dir: %w", err)
	}

	kp, err := loadIdentity(cfg)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	log.Info("node identity ready", logger.String("agent", kp.PublicHex()))

	st, err := openStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	registry, err := loadRegistry(cfg)
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ks := governance.NewKillswitch(cfg.Genesis.KillswitchRootHex, func(reason string) {
		log.Error("killswitch fired, shutting down", logger.String("reason", reason))
		cancel()
	})

	flagger := flagging.NewFlagger(reputationLookup(st))
	rateLimiter := flagging.NewRateLimiter(func(agent string) {
		log.Warn("agent auto-flagged for repeated rate-limit violations", logger.String("agent", agent))
	})

	pipeline := ingress.New(st, rateLimiter, registry)
	engine := lifecycle.NewEngine(kp.PublicHex(), registry, flagger)

	transport := gossip.NewLoopbackTransport()
	adapter := gossip.NewAdapter(transport, pipelineIngress{pipeline}, cfg.Gossip.Topic, metrics.GossipMetrics{})
	orch := newOrchestrator(kp, pipeline, engine, adapter, log)

	pipeline.OnAny(func(r *record.Record) {
		orch.onRecord(r)
		metrics.IngressProcessed.WithLabelValues(string(ingress.OutcomeAccepted), string(r.Type)).Inc()
	})
	pipeline.On(record.TypeTaskFlag, func(r *record.Record) {
		target, _ := r.Data["target"].(string)
		reason, _ := r.Data["reason"].(string)
		if target != "" {
			flagger.Submit(target, r.Agent, reason)
		}
	})

	var healthSrv *health.Server
	if cfg.Health.Enabled {
		healthSrv = health.NewNodeServer(st, ks, log, cfg.Health.Port)
		go func() {
			if err := healthSrv.Start(); err != nil {
				log.Error("health server stopped", logger.Error(err))
			}
		}()
	}

	if cfg.Metrics.Enabled {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			log.Info("metrics server listening", logger.String("addr", addr))
			if err := metrics.StartServer(addr); err != nil {
				log.Error("metrics server stopped", logger.Error(err))
			}
		}()
	}

	rpcSrv := rpc.NewServer(cfg.RPC.SocketPath, kp, st, pipeline, engine, ks, log, func(reason string) {
		log.Info("rpc requested shutdown", logger.String("reason", reason))
		cancel()
	}, adapter)
	if cfg.RPC.AuthTokenEnv != "" {
		if secret, ok := os.LookupEnv(cfg.RPC.AuthTokenEnv); ok && secret != "" {
			rpcSrv.SetAuthSecret(secret)
			log.Info("rpc control plane requires bearer auth")
		}
	}
	go func() {
		if err := rpcSrv.Serve(ctx); err != nil {
			log.Error("rpc server stopped", logger.Error(err))
		}
	}()
	defer rpcSrv.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("received signal, shutting down", logger.String("signal", sig.String()))
	case <-ctx.Done():
	}

	log.Info("rird-node stopped")
	return nil
}

// loadIdentity loads the node's signing keypair, sealing it at rest under
// a passphrase when cfg.Identity.PassphraseEnv names a set environment
// variable.
func loadIdentity(cfg *config.Config) (*identity.KeyPair, error) {
	if cfg.Identity.PassphraseEnv != "" {
		if passphrase, ok := os.LookupEnv(cfg.Identity.PassphraseEnv); ok {
			return identity.LoadOrGenerateEncrypted(cfg.Identity.KeyPath, passphrase)
		}
	}
	return identity.LoadOrGenerate(cfg.Identity.KeyPath)
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o700)
}

func newLogger(cfg *config.Config) logger.Logger {
	out := os.Stdout
	lvl := logger.InfoLevel
	switch cfg.Logging.Level {
	case "debug":
		lvl = logger.DebugLevel
	case "warn":
		lvl = logger.WarnLevel
	case "error":
		lvl = logger.ErrorLevel
	}
	return logger.NewLogger(out, lvl)
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return store.NewPostgresStoreFromDSN(ctx, cfg.Store.DSN)
	default:
		return store.NewMemoryStore(), nil
	}
}

func loadRegistry(cfg *config.Config) (*governance.Registry, error) {
	genesis, err := governance.LoadGenesis(cfg.Genesis.Path)
	if err != nil {
		return nil, err
	}
	return governance.NewRegistry(genesis)
}

// reputationLookup adapts the persistent log into a flagging.ReputationLookup
// by replaying an agent's received attestations through pkg/reputation.
func reputationLookup(st store.Store) flagging.ReputationLookup {
	return func(agent string) float64 {
		recs, err := st.QueryByType(context.Background(), record.TypeReputationAttestation, 500)
		if err != nil {
			return 0
		}
		var attestations []reputation.Attestation
		for _, r := range recs {
			target, _ := r.Data["target"].(string)
			if target != agent {
				continue
			}
			quality, _ := r.Data["quality"].(float64)
			speed, _ := r.Data["speed"].(float64)
			comm, _ := r.Data["communication"].(float64)
			attestations = append(attestations, reputation.Attestation{
				Self:          r.Agent == target,
				At:            time.Unix(r.TS, 0),
				Quality:       quality,
				Speed:         speed,
				Communication: comm,
			})
		}
		return reputation.Compute(attestations, nil, time.Now(), false).Overall
	}
}

type pipelineIngress struct {
	p *ingress.Pipeline
}

func (pi pipelineIngress) Ingest(r *record.Record) error {
	pi.p.Ingest(r)
	return nil
}
