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

package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/internal/jetstreamx"
)

// NATSQueue dispatches messages onto the STEP_TASKS JetStream stream. The
// idempotency key is mapped to the Nats-Msg-Id header, so redelivered
// dispatch attempts within the dedupe window collapse into one stored
// message.
type NATSQueue struct {
	conn   *jetstreamx.Connection
	logger *slog.Logger
}

var _ Queue = (*NATSQueue)(nil)

func NewNATSQueue(conn *jetstreamx.Connection, logger *slog.Logger) *NATSQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSQueue{conn: conn, logger: logger}
}

func (q *NATSQueue) Enqueue(ctx context.Context, queueName string, payload []byte, idempotencyKey string) error {
	subject := fmt.Sprintf(api.StepTaskPublishSubjectPattern, queueName)

	ack, err := q.conn.PublishJS(ctx, subject, payload, jetstream.WithMsgID(idempotencyKey))
	if err != nil {
		return fmt.Errorf("enqueue to %s: %w", queueName, err)
	}
	if ack.Duplicate {
		q.logger.Debug("enqueue deduplicated", "queue", queueName, "idempotency_key", idempotencyKey)
	}
	return nil
}
