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

// Package server hosts the suspension service: a NATS request/reply
// handler that applies workflow suspension snapshots and a scheduler
// that re-invokes suspended workflows when their timeout elapses.
package server

import (
	"context"
	"log/slog"

	"github.com/gofrs/uuid/v5"
	"github.com/nats-io/nats.go"

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/api/serde"
	"github.com/lcneves/wake/internal/jetstreamx"
	"github.com/lcneves/wake/queue"
	"github.com/lcneves/wake/suspend"
	"github.com/lcneves/wake/world"
)

type Handler struct {
	conv    serde.BinarySerde
	world   world.World
	queue   queue.Queue
	rewaker *Rewaker
	logger  *slog.Logger
}

func NewHandler(conv serde.BinarySerde, w world.World, q queue.Queue, rewaker *Rewaker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		conv:    conv,
		world:   w,
		queue:   q,
		rewaker: rewaker,
		logger:  logger,
	}
}

func (h *Handler) HandleRequest(msg *nats.Msg) {
	handleID, _ := uuid.NewV7()
	logger := h.logger.With("handle_id", handleID.String())

	logger.Debug("suspend request received", "subject", msg.Subject, "reply", msg.Reply)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic in suspend request handler", "error", r)
			if err := msg.Term(); err != nil {
				logger.Error("failed to terminate message after panic", "error", err)
			}
		}
	}()

	var req api.SuspendRequest
	if err := h.conv.DeserializeBinary(msg.Data, &req); err != nil {
		logger.Error("failed to decode suspend request", "error", err)
		msg.Term()
		return
	}

	items := make([]api.QueueItem, 0, len(req.Items))
	for _, w := range req.Items {
		item, err := w.Item()
		if err != nil {
			h.respond(msg, api.SuspendReply{Error: "invalid suspension item: " + err.Error()})
			return
		}
		items = append(items, item)
	}

	result, err := suspend.Handle(context.Background(), suspend.Params{
		Suspension:        api.WorkflowSuspension{Items: items},
		World:             h.world,
		Queue:             h.queue,
		Serde:             h.conv,
		Logger:            logger,
		RunID:             api.RunID(req.RunID),
		WorkflowName:      req.WorkflowName,
		WorkflowStartedAt: req.WorkflowStartedAt,
	})
	if err != nil {
		logger.Error("suspension handling failed", "run_id", req.RunID, "error", err)
		h.respond(msg, api.SuspendReply{Error: err.Error()})
		return
	}

	if result.TimeoutSeconds > 0 && h.rewaker != nil {
		h.rewaker.Schedule(api.RunID(req.RunID), result.TimeoutSeconds)
	}

	h.respond(msg, api.SuspendReply{Result: result})
}

func (h *Handler) respond(msg *nats.Msg, reply api.SuspendReply) {
	data, err := h.conv.SerializeBinary(reply)
	if err != nil {
		h.logger.Error("failed to serialize suspend reply", "error", err)
		msg.Term()
		return
	}
	if err := msg.Respond(data); err != nil {
		h.logger.Error("failed to send suspend reply", "error", err)
	}
}

// RunProcessor serves suspend requests until ctx is done.
func RunProcessor(ctx context.Context, conn *jetstreamx.Connection, handler *Handler) error {
	sub, err := conn.QueueSubscribe(
		api.SuspendRequestSubject,
		api.SuspendProcessorsConsumer,
		handler.HandleRequest,
	)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return nil
}
