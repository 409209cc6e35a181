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

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/world"
)

// scheduleWaits records not-yet-recorded wait creations and computes the
// single minimum delay until the workflow must be woken. Returns (nil,
// created, nil) when the suspension has no waits.
func (h *handler) scheduleWaits(ctx context.Context, waits []*api.WaitItem) (*int64, int, error) {
	if len(waits) == 0 {
		return nil, 0, nil
	}

	var needCreation []*api.WaitItem
	for _, wait := range waits {
		if !wait.HasCreatedEvent {
			needCreation = append(needCreation, wait)
		}
	}

	if len(needCreation) > 0 {
		events := make([]api.Event, 0, len(needCreation))
		for _, wait := range needCreation {
			payload, err := h.serder.SerializeBinary(api.WaitCreatedData{ResumeAt: wait.ResumeAt})
			if err != nil {
				return nil, 0, fmt.Errorf("encode wait %s: %w", wait.CorrelationID, err)
			}
			events = append(events, api.Event{
				Type:          api.EventWaitCreated,
				CorrelationID: wait.CorrelationID,
				Data:          payload,
			})
		}

		err := h.world.CreateEventBatch(ctx, h.runID, events)
		if world.IsConflict(err) {
			h.logger.Warn("some wait creation events already existed",
				"run_id", h.runID, "count", len(events))
		} else if err != nil {
			return nil, 0, fmt.Errorf("create wait events: %w", err)
		}
	}

	// Every wait participates in the minimum, not just the newly created
	// ones: a replayed suspension must still wake at the earliest wait.
	now := time.Now()
	min := delaySeconds(waits[0].ResumeAt, now)
	for _, wait := range waits[1:] {
		if d := delaySeconds(wait.ResumeAt, now); d < min {
			min = d
		}
	}
	return &min, len(needCreation), nil
}

// delaySeconds computes how long until a wait should fire, in whole
// seconds rounded up. The one-second floor keeps a wait at or before now
// from producing a zero timeout and busy-looping the re-invocation.
func delaySeconds(resumeAt, now time.Time) int64 {
	ms := resumeAt.Sub(now).Milliseconds()
	if ms < 1000 {
		ms = 1000
	}
	return (ms + 999) / 1000
}
