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

package api

import (
	"fmt"
	"time"
)

// WireItem is the transport form of a QueueItem. The union is flattened
// into a kind tag plus one populated pointer so it survives binary
// serialization without type registries.
type WireItem struct {
	Kind string    `json:"kind"           msgpack:"kind"` // step|hook|wait
	Step *StepItem `json:"step,omitempty" msgpack:"step,omitempty"`
	Hook *HookItem `json:"hook,omitempty" msgpack:"hook,omitempty"`
	Wait *WaitItem `json:"wait,omitempty" msgpack:"wait,omitempty"`
}

const (
	WireKindStep = "step"
	WireKindHook = "hook"
	WireKindWait = "wait"
)

// WrapItem converts a QueueItem into its wire form.
func WrapItem(item QueueItem) WireItem {
	switch it := item.(type) {
	case *StepItem:
		return WireItem{Kind: WireKindStep, Step: it}
	case *HookItem:
		return WireItem{Kind: WireKindHook, Hook: it}
	case *WaitItem:
		return WireItem{Kind: WireKindWait, Wait: it}
	default:
		// The union is closed; reaching this means a new variant was added
		// without updating the wire mapping.
		panic(fmt.Sprintf("unknown queue item type %T", item))
	}
}

// Item converts the wire form back into a QueueItem.
func (w WireItem) Item() (QueueItem, error) {
	switch w.Kind {
	case WireKindStep:
		if w.Step == nil {
			return nil, fmt.Errorf("wire item of kind %q has no step payload", w.Kind)
		}
		return w.Step, nil
	case WireKindHook:
		if w.Hook == nil {
			return nil, fmt.Errorf("wire item of kind %q has no hook payload", w.Kind)
		}
		return w.Hook, nil
	case WireKindWait:
		if w.Wait == nil {
			return nil, fmt.Errorf("wire item of kind %q has no wait payload", w.Kind)
		}
		return w.Wait, nil
	default:
		return nil, fmt.Errorf("unknown wire item kind %q", w.Kind)
	}
}

// SuspendRequest asks the suspension service to handle one workflow
// suspension snapshot.
type SuspendRequest struct {
	RunID             string     `json:"run_id"         msgpack:"run_id"`
	WorkflowName      string     `json:"wf_name"        msgpack:"wf_name"`
	WorkflowStartedAt time.Time  `json:"wf_started_at"  msgpack:"wf_started_at"`
	Items             []WireItem `json:"items"          msgpack:"items"`
}

// SuspendReply carries the suspension directive, or the error that aborted
// handling.
type SuspendReply struct {
	Error  string           `json:"error,omitempty" msgpack:"error,omitempty"`
	Result SuspensionResult `json:"result"          msgpack:"result"`
}
