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
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/lcneves/wake/api"
)

// Rewaker turns a suspension timeout into a delayed workflow re-invocation
// task. Each delay runs on its own goroutine; the publish is deduplicated
// by a msg id derived from the run and the target wake time, so replayed
// suspensions scheduling the same wake collapse into one task.
type Rewaker struct {
	conn   publisher
	logger *slog.Logger
	ctx    context.Context
}

type publisher interface {
	PublishJS(ctx context.Context, subj string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

func NewRewaker(ctx context.Context, conn publisher, logger *slog.Logger) *Rewaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewaker{conn: conn, logger: logger, ctx: ctx}
}

// Schedule publishes a wake task for runID after timeoutSeconds. It returns
// immediately; cancellation of the Rewaker's context abandons pending wakes.
func (r *Rewaker) Schedule(runID api.RunID, timeoutSeconds int64) {
	wakeAt := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)

	r.logger.Debug("scheduling workflow wake",
		"run_id", runID,
		"timeout_seconds", timeoutSeconds,
	)

	go func() {
		select {
		case <-time.After(time.Until(wakeAt)):
		case <-r.ctx.Done():
			return
		}

		subject := fmt.Sprintf(api.WorkflowWakeSubjectPattern, runID)
		msgID := fmt.Sprintf("wake-%s-%d", runID, wakeAt.Unix())

		if _, err := r.conn.PublishJS(r.ctx, subject, []byte(runID),
			jetstream.WithMsgID(msgID),
		); err != nil {
			r.logger.Error("failed to publish workflow wake task",
				"run_id", runID,
				"error", err,
			)
			return
		}

		r.logger.Debug("workflow wake task published", "run_id", runID, "subject", subject)
	}()
}
