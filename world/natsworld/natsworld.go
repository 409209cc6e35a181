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

// Package natsworld implements the world event log on NATS JetStream.
//
// Events are appended to per-run subjects on the RUN_EVENTS stream. The
// (runID, correlationID, eventType) key is mapped to the Nats-Msg-Id
// header, so a replayed append is acknowledged as a duplicate instead of
// storing a second copy; duplicates surface to callers as 409 APIErrors.
// Hook registrations additionally claim their token in a KeyValue bucket
// with create-if-absent semantics, which is what turns a duplicate-token
// race into a stored hook/conflict event.
package natsworld

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/api/serde"
	"github.com/lcneves/wake/internal/jetstreamx"
	"github.com/lcneves/wake/world"
)

const (
	headerEventType     = "Wake-Event-Type"
	headerCorrelationID = "Wake-Correlation-Id"
)

type World struct {
	conn   *jetstreamx.Connection
	serder serde.BinarySerde
	logger *slog.Logger
}

var _ world.World = (*World)(nil)

func New(conn *jetstreamx.Connection, serder serde.BinarySerde, logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	return &World{conn: conn, serder: serder, logger: logger}
}

func (w *World) CreateEvent(ctx context.Context, runID api.RunID, ev api.Event) (*api.Event, error) {
	if err := w.checkRunAlive(ctx, runID); err != nil {
		return nil, err
	}

	if ev.Type == api.EventHookCreated {
		return w.createHookEvent(ctx, runID, ev)
	}

	if err := w.append(ctx, runID, ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (w *World) CreateEventBatch(ctx context.Context, runID api.RunID, evs []api.Event) error {
	if err := w.checkRunAlive(ctx, runID); err != nil {
		return err
	}

	duplicates := 0
	for _, ev := range evs {
		err := w.append(ctx, runID, ev)
		switch {
		case world.IsConflict(err):
			duplicates++
		case err != nil:
			return fmt.Errorf("batch append %s/%s: %w", ev.Type, ev.CorrelationID, err)
		}
	}

	if duplicates > 0 {
		return &world.APIError{
			Status:  409,
			Code:    "already_exists",
			Message: fmt.Sprintf("%d of %d batch events already existed", duplicates, len(evs)),
		}
	}
	return nil
}

// createHookEvent claims the hook token before appending. The first
// registration for a token wins; a different correlation id arriving later
// gets a hook/conflict event stored and returned instead.
func (w *World) createHookEvent(ctx context.Context, runID api.RunID, ev api.Event) (*api.Event, error) {
	var data api.HookCreatedData
	if err := w.serder.DeserializeBinary(ev.Data, &data); err != nil {
		return nil, fmt.Errorf("decode hook payload: %w", err)
	}

	kv, err := w.conn.KV(ctx, api.HookClaimsBucket)
	if err != nil {
		return nil, err
	}

	claimKey := fmt.Sprintf("%s.%s", runID, data.Token)
	_, err = kv.Create(ctx, claimKey, []byte(ev.CorrelationID))
	if err != nil && errors.Is(err, jetstream.ErrKeyExists) {
		entry, getErr := kv.Get(ctx, claimKey)
		if getErr != nil {
			return nil, fmt.Errorf("read hook claim %s: %w", claimKey, getErr)
		}
		if string(entry.Value()) != ev.CorrelationID {
			return w.storeHookConflict(ctx, runID, ev.CorrelationID, data.Token)
		}
		// Our own prior claim; fall through and let the msg-id dedupe
		// surface the replay as a 409.
	} else if err != nil {
		return nil, fmt.Errorf("claim hook token: %w", err)
	}

	if err := w.append(ctx, runID, ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (w *World) storeHookConflict(ctx context.Context, runID api.RunID, correlationID, token string) (*api.Event, error) {
	payload, err := w.serder.SerializeBinary(api.HookConflictData{Token: token})
	if err != nil {
		return nil, fmt.Errorf("encode hook conflict payload: %w", err)
	}

	conflict := api.Event{
		Type:          api.EventHookConflict,
		CorrelationID: correlationID,
		Data:          payload,
	}
	err = w.append(ctx, runID, conflict)
	if err != nil && !world.IsConflict(err) {
		return nil, err
	}
	w.logger.Warn("hook token already claimed, recorded conflict",
		"run_id", runID, "correlation_id", correlationID)
	return &conflict, nil
}

// append publishes one event to the run's subject. Idempotence comes from
// the msg-id: a duplicate ack maps to a 409 APIError.
func (w *World) append(ctx context.Context, runID api.RunID, ev api.Event) error {
	payload, err := w.serder.SerializeBinary(ev)
	if err != nil {
		return fmt.Errorf("encode event %s/%s: %w", ev.Type, ev.CorrelationID, err)
	}

	msg := &nats.Msg{
		Subject: fmt.Sprintf(api.RunEventPublishSubjectPattern, runID),
		Data:    payload,
		Header: nats.Header{
			headerEventType:     []string{string(ev.Type)},
			headerCorrelationID: []string{ev.CorrelationID},
		},
	}

	ack, err := w.conn.PublishMsgJS(ctx, msg, jetstream.WithMsgID(eventKey(runID, ev)))
	if err != nil {
		return err
	}
	if ack.Duplicate {
		return &world.APIError{
			Status:  409,
			Code:    "already_exists",
			Message: fmt.Sprintf("event %s/%s already recorded", ev.Type, ev.CorrelationID),
		}
	}
	return nil
}

func (w *World) checkRunAlive(ctx context.Context, runID api.RunID) error {
	kv, err := w.conn.KV(ctx, api.RunStatusBucket)
	if err != nil {
		return err
	}

	entry, err := kv.Get(ctx, runID.String())
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read run status: %w", err)
	}

	if status := string(entry.Value()); status != api.RunStatusRunning {
		return &world.APIError{
			Status:  410,
			Code:    "run_gone",
			Message: fmt.Sprintf("run %s already %s", runID, status),
		}
	}
	return nil
}

// SetRunStatus records the run's lifecycle state; the out-of-band executor
// marks runs completed or failed, which makes subsequent appends 410.
func (w *World) SetRunStatus(ctx context.Context, runID api.RunID, status string) error {
	kv, err := w.conn.KV(ctx, api.RunStatusBucket)
	if err != nil {
		return err
	}
	if _, err := kv.Put(ctx, runID.String(), []byte(status)); err != nil {
		return fmt.Errorf("set run status: %w", err)
	}
	return nil
}

func eventKey(runID api.RunID, ev api.Event) string {
	return fmt.Sprintf("%s.%s.%s", runID, ev.CorrelationID, ev.Type)
}
