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

package suspend

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/world"
)

// registerHooks durably records each hook registration, one create call
// per hook, all hooks in parallel. Every registration must settle before
// step/wait processing begins, so that an inbound webhook delivery can
// never race ahead of the workflow's own record of the hook existing.
//
// The returned flag reports whether at least one registration came back as
// a hook/conflict.
func (h *handler) registerHooks(ctx context.Context, hooks []*api.HookItem) (bool, error) {
	if len(hooks) == 0 {
		return false, nil
	}

	var conflict atomic.Bool
	g, gCtx := errgroup.WithContext(ctx)

	for _, hook := range hooks {
		g.Go(func() error {
			var metadata *api.EncodedValue
			if hook.Metadata != nil {
				ev, err := h.dehydrator.DehydrateValue(hook.Metadata)
				if err != nil {
					return fmt.Errorf("dehydrate metadata for hook %s: %w", hook.CorrelationID, err)
				}
				metadata = &ev
			}

			payload, err := h.serder.SerializeBinary(api.HookCreatedData{
				Token:    hook.Token,
				Metadata: metadata,
			})
			if err != nil {
				return fmt.Errorf("encode hook %s: %w", hook.CorrelationID, err)
			}

			stored, err := h.world.CreateEvent(gCtx, h.runID, api.Event{
				Type:          api.EventHookCreated,
				CorrelationID: hook.CorrelationID,
				Data:          payload,
			})
			switch {
			case world.IsGone(err):
				// Benign race with run completion; nothing left to wake.
				h.logger.Warn("run already finished, skipping hook registration",
					"run_id", h.runID, "correlation_id", hook.CorrelationID)
				return nil
			case world.IsConflict(err):
				// Same registration already applied on a prior attempt.
				h.logger.Debug("hook registration already recorded",
					"run_id", h.runID, "correlation_id", hook.CorrelationID)
				return nil
			case err != nil:
				return fmt.Errorf("register hook %s: %w", hook.CorrelationID, err)
			}

			if stored.Type == api.EventHookConflict {
				conflict.Store(true)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return false, err
	}
	return conflict.Load(), nil
}
