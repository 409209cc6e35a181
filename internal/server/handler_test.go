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
	"testing"
	"time"

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/api/serde"
)

func TestNewHandler(t *testing.T) {
	// Test with nil values to ensure NewHandler doesn't panic
	handler := NewHandler(nil, nil, nil, nil, nil)

	if handler == nil {
		t.Fatal("NewHandler returned nil")
	}
}

func TestSuspendReplySerialization(t *testing.T) {
	serde := &serde.MsgpackSerde{}

	tests := []struct {
		name           string
		errorMsg       string
		timeoutSeconds int64
	}{
		{
			name:           "timeout directive",
			timeoutSeconds: 30,
		},
		{
			name: "no directive",
		},
		{
			name:     "error reply",
			errorMsg: "something went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := api.SuspendReply{
				Error:  tt.errorMsg,
				Result: api.SuspensionResult{TimeoutSeconds: tt.timeoutSeconds},
			}

			data, err := serde.SerializeBinary(reply)
			if err != nil {
				t.Fatalf("SerializeBinary failed: %v", err)
			}

			var decoded api.SuspendReply
			if err := serde.DeserializeBinary(data, &decoded); err != nil {
				t.Fatalf("DeserializeBinary failed: %v", err)
			}

			if decoded.Error != tt.errorMsg {
				t.Errorf("Error = %v, want %v", decoded.Error, tt.errorMsg)
			}

			if decoded.Result.TimeoutSeconds != tt.timeoutSeconds {
				t.Errorf("TimeoutSeconds = %v, want %v", decoded.Result.TimeoutSeconds, tt.timeoutSeconds)
			}
		})
	}
}

func TestSuspendRequestWireRoundTrip(t *testing.T) {
	serde := &serde.MsgpackSerde{}
	resumeAt := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	req := api.SuspendRequest{
		RunID:             "run-123",
		WorkflowName:      "order-fulfillment",
		WorkflowStartedAt: resumeAt.Add(-time.Minute),
		Items: []api.WireItem{
			api.WrapItem(&api.StepItem{CorrelationID: "s1", StepName: "charge"}),
			api.WrapItem(&api.HookItem{CorrelationID: "h1", Token: "tok-1"}),
			api.WrapItem(&api.WaitItem{CorrelationID: "w1", ResumeAt: resumeAt}),
		},
	}

	data, err := serde.SerializeBinary(req)
	if err != nil {
		t.Fatalf("SerializeBinary failed: %v", err)
	}

	var decoded api.SuspendRequest
	if err := serde.DeserializeBinary(data, &decoded); err != nil {
		t.Fatalf("DeserializeBinary failed: %v", err)
	}

	if decoded.RunID != req.RunID {
		t.Errorf("RunID = %v, want %v", decoded.RunID, req.RunID)
	}
	if decoded.WorkflowName != req.WorkflowName {
		t.Errorf("WorkflowName = %v, want %v", decoded.WorkflowName, req.WorkflowName)
	}
	if len(decoded.Items) != len(req.Items) {
		t.Fatalf("Items length = %d, want %d", len(decoded.Items), len(req.Items))
	}

	step, err := decoded.Items[0].Item()
	if err != nil {
		t.Fatalf("Item() failed for step: %v", err)
	}
	if s, ok := step.(*api.StepItem); !ok || s.StepName != "charge" {
		t.Errorf("step item = %#v, want charge step", step)
	}

	hook, err := decoded.Items[1].Item()
	if err != nil {
		t.Fatalf("Item() failed for hook: %v", err)
	}
	if h, ok := hook.(*api.HookItem); !ok || h.Token != "tok-1" {
		t.Errorf("hook item = %#v, want tok-1 hook", hook)
	}

	wait, err := decoded.Items[2].Item()
	if err != nil {
		t.Fatalf("Item() failed for wait: %v", err)
	}
	if w, ok := wait.(*api.WaitItem); !ok || !w.ResumeAt.Equal(resumeAt) {
		t.Errorf("wait item = %#v, want resume at %v", wait, resumeAt)
	}
}

func TestWireItemInvalid(t *testing.T) {
	tests := []struct {
		name string
		item api.WireItem
	}{
		{name: "unknown kind", item: api.WireItem{Kind: "timer"}},
		{name: "step kind without payload", item: api.WireItem{Kind: api.WireKindStep}},
		{name: "hook kind without payload", item: api.WireItem{Kind: api.WireKindHook}},
		{name: "wait kind without payload", item: api.WireItem{Kind: api.WireKindWait}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.item.Item(); err == nil {
				t.Error("Item() = nil error, want error")
			}
		})
	}
}
