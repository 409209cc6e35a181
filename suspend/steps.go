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
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/world"
)

// dispatchSteps records not-yet-recorded step creations as a single batch,
// then enqueues one execution message per step item. The enqueue covers
// every step, not just the newly recorded ones, so a crash between
// creation and enqueue on a prior attempt still gets its messages out; the
// correlation-id idempotency key keeps redispatch from double-scheduling.
//
// Returns the number of creation events submitted.
func (h *handler) dispatchSteps(ctx context.Context, steps []*api.StepItem) (int, error) {
	if len(steps) == 0 {
		return 0, nil
	}

	var needCreation []*api.StepItem
	for _, step := range steps {
		if !step.HasCreatedEvent {
			needCreation = append(needCreation, step)
		}
	}

	if len(needCreation) > 0 {
		events := make([]api.Event, 0, len(needCreation))
		for _, step := range needCreation {
			input, err := h.dehydrator.DehydrateStep(step.Args, step.ClosureVars, step.ThisVal)
			if err != nil {
				return 0, fmt.Errorf("dehydrate step %s: %w", step.CorrelationID, err)
			}

			payload, err := h.serder.SerializeBinary(api.StepCreatedData{
				StepName: step.StepName,
				Input:    input,
			})
			if err != nil {
				return 0, fmt.Errorf("encode step %s: %w", step.CorrelationID, err)
			}

			events = append(events, api.Event{
				Type:          api.EventStepCreated,
				CorrelationID: step.CorrelationID,
				Data:          payload,
			})
		}

		err := h.world.CreateEventBatch(ctx, h.runID, events)
		if world.IsConflict(err) {
			// A concurrent attempt already created some of these steps;
			// creation is idempotent per correlation id, so keep going.
			h.logger.Warn("some step creation events already existed",
				"run_id", h.runID, "count", len(events))
		} else if err != nil {
			return 0, fmt.Errorf("create step events: %w", err)
		}
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	requestedAt := time.Now()

	g, gCtx := errgroup.WithContext(ctx)
	for _, step := range steps {
		g.Go(func() error {
			task := api.StepTask{
				WorkflowName:  h.workflowName,
				RunID:         h.runID.String(),
				RunStartedAt:  h.workflowStartedAt,
				CorrelationID: step.CorrelationID,
				StepName:      step.StepName,
				TraceCarrier:  carrier,
				RequestedAt:   requestedAt,
			}
			payload, err := h.serder.SerializeBinary(task)
			if err != nil {
				return fmt.Errorf("encode step task %s: %w", step.CorrelationID, err)
			}

			if err := h.queue.Enqueue(gCtx, api.StepQueueName(step.StepName), payload, step.CorrelationID); err != nil {
				return fmt.Errorf("enqueue step %s: %w", step.CorrelationID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	return len(needCreation), nil
}
