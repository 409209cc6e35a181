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

// Package suspend implements the suspension coordinator: it takes the
// snapshot of a workflow's pending operations, durably projects them into
// run events and queue messages, and computes when (if ever) the workflow
// should next be re-invoked.
//
// Every side effect is keyed by correlation id and creation filters out
// items whose event already exists, so re-running Handle for the same
// snapshot after a partial failure converges to the same durable state.
package suspend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/api/serde"
	"github.com/lcneves/wake/queue"
	"github.com/lcneves/wake/world"
)

// Params carries everything one suspension handling needs. World and Queue
// are required; Serde defaults to msgpack and Logger to slog.Default.
type Params struct {
	Suspension api.WorkflowSuspension
	World      world.World
	Queue      queue.Queue
	Serde      serde.BinarySerde
	Logger     *slog.Logger

	RunID             api.RunID
	WorkflowName      string
	WorkflowStartedAt time.Time
}

type handler struct {
	world      world.World
	queue      queue.Queue
	serder     serde.BinarySerde
	dehydrator *serde.Dehydrator
	logger     *slog.Logger

	runID             api.RunID
	workflowName      string
	workflowStartedAt time.Time
}

// Handle orchestrates one workflow suspension:
//
//  1. classify pending items,
//  2. register all hooks and wait for every registration to settle,
//  3. dispatch steps and schedule waits concurrently,
//  4. emit telemetry counts,
//  5. decide the re-invocation directive.
//
// A hook conflict forces TimeoutSeconds=1 regardless of any computed wait
// timeout, so the next execution replays the log, observes the conflict
// event and can reject the hook deterministically instead of hanging.
func Handle(ctx context.Context, p Params) (api.SuspensionResult, error) {
	if p.World == nil || p.Queue == nil {
		return api.SuspensionResult{}, fmt.Errorf("suspend: world and queue are required")
	}
	serder := p.Serde
	if serder == nil {
		serder = &serde.MsgpackSerde{}
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{
		world:             p.World,
		queue:             p.Queue,
		serder:            serder,
		dehydrator:        serde.NewDehydrator(serder, p.Suspension.Globals),
		logger:            logger,
		runID:             p.RunID,
		workflowName:      p.WorkflowName,
		workflowStartedAt: p.WorkflowStartedAt,
	}

	parts := classify(p.Suspension.Items)

	// Hooks first, to completion. A webhook targeting one of these hooks
	// must never find the run without its registration recorded.
	hasHookConflict, err := h.registerHooks(ctx, parts.hooks)
	if err != nil {
		return api.SuspensionResult{}, err
	}

	var (
		stepsCreated int
		waitsCreated int
		minWait      *int64
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stepsCreated, err = h.dispatchSteps(gCtx, parts.steps)
		return err
	})
	g.Go(func() error {
		var err error
		minWait, waitsCreated, err = h.scheduleWaits(gCtx, parts.waits)
		return err
	})
	if err := g.Wait(); err != nil {
		return api.SuspensionResult{}, err
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int("wake.steps_created", stepsCreated),
		attribute.Int("wake.hooks_created", len(parts.hooks)),
		attribute.Int("wake.waits_created", waitsCreated),
		attribute.String("wake.run_status", "workflow_suspended"),
	)
	logger.Debug("workflow suspended",
		"run_id", p.RunID,
		"workflow", p.WorkflowName,
		"steps", len(parts.steps),
		"hooks", len(parts.hooks),
		"waits", len(parts.waits),
		"hook_conflict", hasHookConflict,
	)

	if hasHookConflict {
		// Evaluated only after steps and waits are durably recorded, so
		// the forced re-invocation replays a consistent log.
		return api.SuspensionResult{TimeoutSeconds: 1}, nil
	}
	if minWait != nil {
		return api.SuspensionResult{TimeoutSeconds: *minWait}, nil
	}
	return api.SuspensionResult{}, nil
}
