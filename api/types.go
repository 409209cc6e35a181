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

import "time"

type RunID string

func (r RunID) String() string { return string(r) }

// QueueItem is one pending asynchronous operation captured when a workflow
// yields. It is a closed tagged union: exactly StepItem, HookItem and
// WaitItem implement it.
type (
	QueueItem interface {
		Correlation() string

		isQueueItem()
	}

	// StepItem is a pending step invocation.
	StepItem struct {
		CorrelationID   string         `json:"correlation_id"    msgpack:"correlation_id"`
		StepName        string         `json:"step_name"         msgpack:"step_name"`
		Args            []any          `json:"args"              msgpack:"args"`
		ClosureVars     map[string]any `json:"closure_vars"      msgpack:"closure_vars"`
		ThisVal         any            `json:"this_val"          msgpack:"this_val"`
		HasCreatedEvent bool           `json:"has_created_event" msgpack:"has_created_event"`
	}

	// HookItem is a pending webhook registration.
	HookItem struct {
		CorrelationID string `json:"correlation_id" msgpack:"correlation_id"`
		Token         string `json:"token"          msgpack:"token"`
		Metadata      any    `json:"metadata"       msgpack:"metadata"`
	}

	// WaitItem is a pending timed sleep.
	WaitItem struct {
		CorrelationID   string    `json:"correlation_id"    msgpack:"correlation_id"`
		ResumeAt        time.Time `json:"resume_at"         msgpack:"resume_at"`
		HasCreatedEvent bool      `json:"has_created_event" msgpack:"has_created_event"`
	}
)

func (s *StepItem) Correlation() string { return s.CorrelationID }
func (h *HookItem) Correlation() string { return h.CorrelationID }
func (w *WaitItem) Correlation() string { return w.CorrelationID }

func (s *StepItem) isQueueItem() {}
func (h *HookItem) isQueueItem() {}
func (w *WaitItem) isQueueItem() {}

// WorkflowSuspension is the snapshot of a workflow's pending operations at
// the moment it yields control. It is consumed once and never persisted
// directly; its contents are projected into run events.
type WorkflowSuspension struct {
	// Items is ordered as the workflow produced them.
	Items []QueueItem

	// Globals is the workflow's global scope, keyed by name. Values that
	// cannot be serialized directly (functions, connections) are encoded as
	// references into this map.
	Globals map[string]any
}

// SuspensionResult tells the runtime whether to schedule a bounded
// re-invocation of the workflow. TimeoutSeconds of zero means no
// re-invocation is scheduled; the engine never produces a valid timeout
// below one second.
type SuspensionResult struct {
	TimeoutSeconds int64 `json:"timeout_seconds,omitempty" msgpack:"timeout_seconds,omitempty"`
}

// StepTask is the queue message that triggers out-of-band execution of a
// single step.
type StepTask struct {
	WorkflowName  string            `json:"wf_name"        msgpack:"wf_name"`
	RunID         string            `json:"run_id"         msgpack:"run_id"`
	RunStartedAt  time.Time         `json:"run_started_at" msgpack:"run_started_at"`
	CorrelationID string            `json:"correlation_id" msgpack:"correlation_id"`
	StepName      string            `json:"step_name"      msgpack:"step_name"`
	TraceCarrier  map[string]string `json:"trace_carrier"  msgpack:"trace_carrier"`
	RequestedAt   time.Time         `json:"requested_at"   msgpack:"requested_at"`
}
