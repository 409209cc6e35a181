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

// EventType identifies a run event. An event is immutable and keyed by
// (runID, correlationID, type); the first successfully appended creation
// event for a correlation id is authoritative.
type EventType string

const (
	EventStepCreated       EventType = "step/created"
	EventHookCreated       EventType = "hook/created"
	EventHookConflict      EventType = "hook/conflict"
	EventWaitCreated       EventType = "wait/created"
	EventWorkflowSuspended EventType = "workflow/suspended"
)

// Event is one append-only record in a run's event log. Data carries the
// serde-encoded payload for the event type.
type Event struct {
	Type          EventType `json:"type"           msgpack:"type"`
	CorrelationID string    `json:"correlation_id" msgpack:"correlation_id"`
	Data          []byte    `json:"data"           msgpack:"data"`
}

// -- step/created payload --
type StepCreatedData struct {
	StepName string    `json:"step_name" msgpack:"step_name"`
	Input    StepInput `json:"input"     msgpack:"input"`
}

// StepInput is the dehydrated form of a step invocation's inputs: the
// positional arguments, named closure variables and optional call receiver,
// each encoded so that replay reconstructs them deterministically.
type StepInput struct {
	Args    []EncodedValue            `json:"args"              msgpack:"args"`
	Closure map[string]EncodedValue   `json:"closure,omitempty" msgpack:"closure,omitempty"`
	This    *EncodedValue             `json:"this,omitempty"    msgpack:"this,omitempty"`
}

// EncodedValue is one dehydrated value. Kind "value" carries a serde
// payload in Data; kind "global" names an entry in the workflow's global
// scope instead of carrying bytes.
type EncodedValue struct {
	Kind string `json:"kind"           msgpack:"kind"`
	Name string `json:"name,omitempty" msgpack:"name,omitempty"`
	Data []byte `json:"data,omitempty" msgpack:"data,omitempty"`
}

const (
	EncodedKindValue  = "value"
	EncodedKindGlobal = "global"
)

// -- hook/created and hook/conflict payloads --
type HookCreatedData struct {
	Token    string        `json:"token"              msgpack:"token"`
	Metadata *EncodedValue `json:"metadata,omitempty" msgpack:"metadata,omitempty"`
}

type HookConflictData struct {
	Token string `json:"token" msgpack:"token"`
}

// -- wait/created payload --
type WaitCreatedData struct {
	ResumeAt time.Time `json:"resume_at" msgpack:"resume_at"`
}
