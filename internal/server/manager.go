// Copyright 2026 Luis Neves
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/api/serde"
	"github.com/lcneves/wake/internal/jetstreamx"
	"github.com/lcneves/wake/queue"
	"github.com/lcneves/wake/suspend"
	"github.com/lcneves/wake/world"
	"github.com/lcneves/wake/world/natsworld"
)

// Manager owns the NATS connection and the suspension service components.
type Manager struct {
	conn    *jetstreamx.Connection
	handler *Handler
	logger  *slog.Logger
}

func NewManager(ctx context.Context, cfg jetstreamx.Config, conv serde.BinarySerde, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := jetstreamx.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if !conn.IsConnected() {
		return nil, fmt.Errorf("cannot connect to NATS instance")
	}

	m := &Manager{
		conn:   conn,
		logger: logger,
	}

	if err := m.ensureStreams(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure NATS streams: %w", err)
	}

	if err := m.ensureKV(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure NATS KV buckets: %w", err)
	}

	w := world.WithRetry(
		natsworld.New(conn, conv, logger),
		world.DefaultRetryPolicy(),
		logger,
	)
	q := queue.NewNATSQueue(conn, logger)
	rewaker := NewRewaker(ctx, conn, logger)

	m.handler = NewHandler(conv, w, q, rewaker, logger)

	return m, nil
}

func (m *Manager) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m.logger.Info("starting suspend request processor")
		return RunProcessor(gCtx, m.conn, m.handler)
	})

	m.logger.Info("suspension service is running")

	err := g.Wait()

	m.logger.Info("initiating graceful shutdown")
	m.Shutdown()

	if err != nil && err != context.Canceled {
		m.logger.Error("suspension service stopped with error", "error", err)
		return err
	}

	m.logger.Info("suspension service shutdown complete")
	return nil
}

// Shutdown drains and closes the NATS connection, which tears down all
// subscriptions.
func (m *Manager) Shutdown() {
	if m.conn != nil {
		m.logger.Info("closing NATS connection")
		m.conn.Close()
	}
}

// Handle applies one suspension snapshot directly, bypassing the NATS
// request path. Used by embedding processes that already hold the snapshot.
func (m *Manager) Handle(ctx context.Context, p suspend.Params) (api.SuspensionResult, error) {
	if p.World == nil {
		p.World = m.handler.world
	}
	if p.Queue == nil {
		p.Queue = m.handler.queue
	}
	if p.Logger == nil {
		p.Logger = m.logger
	}
	return suspend.Handle(ctx, p)
}

func (m *Manager) ensureStreams(ctx context.Context) error {
	// Run event log. Limits retention: events are the source of truth and
	// must survive consumption.
	_, err := m.conn.EnsureStream(ctx, jetstream.StreamConfig{
		Name:      api.RunEventsStream,
		Subjects:  []string{api.RunEventFilterSubjectPattern},
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure run events stream: %w", err)
	}

	_, err = m.conn.EnsureStream(ctx, jetstream.StreamConfig{
		Name:      api.StepTasksStream,
		Subjects:  []string{api.StepTaskFilterSubjectPattern},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure step tasks stream: %w", err)
	}

	_, err = m.conn.EnsureStream(ctx, jetstream.StreamConfig{
		Name:      api.WorkflowTasksStream,
		Subjects:  []string{api.WorkflowWakeFilterPattern},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure workflow tasks stream: %w", err)
	}

	return nil
}

func (m *Manager) ensureKV(ctx context.Context) error {
	if _, err := m.conn.EnsureKV(ctx, jetstream.KeyValueConfig{
		Bucket: api.RunStatusBucket,
	}); err != nil {
		return err
	}

	if _, err := m.conn.EnsureKV(ctx, jetstream.KeyValueConfig{
		Bucket: api.HookClaimsBucket,
	}); err != nil {
		return err
	}

	return nil
}
