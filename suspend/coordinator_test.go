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
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lcneves/wake/api"
	"github.com/lcneves/wake/world"
)

// fakeWorld is an in-memory, call-order-instrumented event log. Events are
// keyed by (runID, correlationID, type); re-creating an existing key
// returns 409 like the real world does.
type fakeWorld struct {
	mu            sync.Mutex
	calls         []string
	events        map[string]api.Event
	conflictCorrs map[string]bool
	goneRuns      map[api.RunID]bool
	createErr     error
	batchErr      error
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		events:        make(map[string]api.Event),
		conflictCorrs: make(map[string]bool),
		goneRuns:      make(map[api.RunID]bool),
	}
}

func eventKey(runID api.RunID, corr string, typ api.EventType) string {
	return fmt.Sprintf("%s|%s|%s", runID, corr, typ)
}

func (f *fakeWorld) CreateEvent(ctx context.Context, runID api.RunID, ev api.Event) (*api.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("create:%s:%s", ev.Type, ev.CorrelationID))

	if f.goneRuns[runID] {
		return nil, &world.APIError{Status: 410, Message: "run gone"}
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.conflictCorrs[ev.CorrelationID] {
		conflict := api.Event{Type: api.EventHookConflict, CorrelationID: ev.CorrelationID}
		f.events[eventKey(runID, ev.CorrelationID, api.EventHookConflict)] = conflict
		return &conflict, nil
	}

	key := eventKey(runID, ev.CorrelationID, ev.Type)
	if _, ok := f.events[key]; ok {
		return nil, &world.APIError{Status: 409, Message: "already exists"}
	}
	f.events[key] = ev
	return &ev, nil
}

func (f *fakeWorld) CreateEventBatch(ctx context.Context, runID api.RunID, evs []api.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(evs) > 0 {
		f.calls = append(f.calls, fmt.Sprintf("batch:%s", evs[0].Type))
	}

	if f.goneRuns[runID] {
		return &world.APIError{Status: 410, Message: "run gone"}
	}
	if f.batchErr != nil {
		return f.batchErr
	}

	duplicate := false
	for _, ev := range evs {
		key := eventKey(runID, ev.CorrelationID, ev.Type)
		if _, ok := f.events[key]; ok {
			duplicate = true
			continue
		}
		f.events[key] = ev
	}
	if duplicate {
		return &world.APIError{Status: 409, Message: "some events already existed"}
	}
	return nil
}

// fakeQueue records enqueues and deduplicates by idempotency key the way
// the transport would.
type fakeQueue struct {
	mu       sync.Mutex
	calls    []string
	enqueued map[string]int
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{enqueued: make(map[string]int)}
}

func (f *fakeQueue) Enqueue(ctx context.Context, queueName string, payload []byte, idempotencyKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("enqueue:%s:%s", queueName, idempotencyKey))
	f.enqueued[idempotencyKey]++
	return nil
}

func stepItem(corr, name string, created bool) *api.StepItem {
	return &api.StepItem{CorrelationID: corr, StepName: name, Args: []any{"a"}, HasCreatedEvent: created}
}

func hookItem(corr, token string) *api.HookItem {
	return &api.HookItem{CorrelationID: corr, Token: token}
}

func waitItem(corr string, resumeAt time.Time, created bool) *api.WaitItem {
	return &api.WaitItem{CorrelationID: corr, ResumeAt: resumeAt, HasCreatedEvent: created}
}

func testParams(w *fakeWorld, q *fakeQueue, items ...api.QueueItem) Params {
	return Params{
		Suspension:        api.WorkflowSuspension{Items: items},
		World:             w,
		Queue:             q,
		RunID:             "run-1",
		WorkflowName:      "order",
		WorkflowStartedAt: time.Now().Add(-time.Minute),
	}
}

func TestHandleNoPendingOperations(t *testing.T) {
	w, q := newFakeWorld(), newFakeQueue()

	res, err := Handle(context.Background(), testParams(w, q))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if res.TimeoutSeconds != 0 {
		t.Errorf("TimeoutSeconds = %d, want 0 (no directive)", res.TimeoutSeconds)
	}
	if len(w.calls) != 0 || len(q.calls) != 0 {
		t.Errorf("expected no world/queue calls, got %v / %v", w.calls, q.calls)
	}
}

func TestHandleHookBeforeStepsAndWaits(t *testing.T) {
	w, q := newFakeWorld(), newFakeQueue()
	items := []api.QueueItem{
		stepItem("s1", "charge", false),
		hookItem("h1", "tok-1"),
		waitItem("w1", time.Now().Add(10*time.Second), false),
		hookItem("h2", "tok-2"),
	}

	if _, err := Handle(context.Background(), testParams(w, q, items...)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	lastHook, firstOther := -1, -1
	for i, call := range w.calls {
		if strings.HasPrefix(call, "create:"+string(api.EventHookCreated)) {
			lastHook = i
		} else if firstOther == -1 {
			firstOther = i
		}
	}
	if lastHook == -1 || firstOther == -1 {
		t.Fatalf("missing expected calls: %v", w.calls)
	}
	if lastHook > firstOther {
		t.Errorf("hook registration did not complete before step/wait processing: %v", w.calls)
	}
}

func TestHandleHookConflictForcesFastReinvocation(t *testing.T) {
	w, q := newFakeWorld(), newFakeQueue()
	w.conflictCorrs["h1"] = true

	items := []api.QueueItem{
		hookItem("h1", "tok-dup"),
		// A wait an hour out must not override the conflict timeout.
		waitItem("w1", time.Now().Add(time.Hour), false),
	}

	res, err := Handle(context.Background(), testParams(w, q, items...))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if res.TimeoutSeconds != 1 {
		t.Errorf("TimeoutSeconds = %d, want 1", res.TimeoutSeconds)
	}

	// The wait was still durably recorded before the decision.
	if _, ok := w.events[eventKey("run-1", "w1", api.EventWaitCreated)]; !ok {
		t.Error("wait creation event missing; conflict decision must not skip durable writes")
	}
}

func TestHandleMinimumWaitAggregation(t *testing.T) {
	w, q := newFakeWorld(), newFakeQueue()
	now := time.Now()
	items := []api.QueueItem{
		waitItem("w1", now.Add(5*time.Second), false),
		waitItem("w2", now.Add(30*time.Second), false),
		waitItem("w3", now.Add(2*time.Second), false),
	}

	res, err := Handle(context.Background(), testParams(w, q, items...))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if res.TimeoutSeconds != 2 {
		t.Errorf("TimeoutSeconds = %d, want 2 (earliest wait)", res.TimeoutSeconds)
	}
}

func TestHandleWaitFloor(t *testing.T) {
	w, q := newFakeWorld(), newFakeQueue()
	items := []api.QueueItem{
		waitItem("w1", time.Now().Add(-time.Minute), false),
	}

	res, err := Handle(context.Background(), testParams(w, q, items...))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if res.TimeoutSeconds != 1 {
		t.Errorf("TimeoutSeconds = %d, want 1 (floor)", res.TimeoutSeconds)
	}
}

func TestHandleBatchConflictStillEnqueues(t *testing.T) {
	w, q := newFakeWorld(), newFakeQueue()
	w.batchErr = &world.APIError{Status: 409, Message: "already exists"}

	items := []api.QueueItem{
		stepItem("s1", "charge", false),
		stepItem("s2", "refund", false),
	}

	res, err := Handle(context.Background(), testParams(w, q, items...))
	if err != nil {
		t.Fatalf("Handle failed despite tolerated 409: %v", err)
	}
	if res.TimeoutSeconds != 0 {
		t.Errorf("TimeoutSeconds = %d, want 0", res.TimeoutSeconds)
	}
	if len(q.enqueued) != 2 {
		t.Errorf("enqueued %d distinct steps, want 2: %v", len(q.enqueued), q.calls)
	}
}

func TestHandleIdempotentReplay(t *testing.T) {
	w, q := newFakeWorld(), newFakeQueue()
	resume := time.Now().Add(20 * time.Second)

	first := []api.QueueItem{
		stepItem("s1", "charge", false),
		stepItem("s2", "refund", false),
		hookItem("h1", "tok-1"),
		waitItem("w1", resume, false),
	}
	res1, err := Handle(context.Background(), testParams(w, q, first...))
	if err != nil {
		t.Fatalf("first Handle failed: %v", err)
	}

	eventsAfterFirst := len(w.events)

	// Second call simulates resumption: creation events already exist.
	second := []api.QueueItem{
		stepItem("s1", "charge", true),
		stepItem("s2", "refund", true),
		hookItem("h1", "tok-1"),
		waitItem("w1", resume, true),
	}
	res2, err := Handle(context.Background(), testParams(w, q, second...))
	if err != nil {
		t.Fatalf("second Handle failed: %v", err)
	}

	if len(w.events) != eventsAfterFirst {
		t.Errorf("replay wrote %d new events", len(w.events)-eventsAfterFirst)
	}
	if len(q.enqueued) != 2 {
		t.Errorf("replay produced %d distinct enqueue keys, want 2", len(q.enqueued))
	}
	if res1.TimeoutSeconds != res2.TimeoutSeconds {
		t.Errorf("replay diverged: first=%d second=%d", res1.TimeoutSeconds, res2.TimeoutSeconds)
	}
}

func TestHandleRunGoneDuringHookIsBenign(t *testing.T) {
	w, q := newFakeWorld(), newFakeQueue()
	w.goneRuns["run-1"] = true

	items := []api.QueueItem{hookItem("h1", "tok-1")}

	res, err := Handle(context.Background(), testParams(w, q, items...))
	if err != nil {
		t.Fatalf("Handle failed on benign run-gone race: %v", err)
	}
	if res.TimeoutSeconds != 0 {
		t.Errorf("TimeoutSeconds = %d, want 0", res.TimeoutSeconds)
	}
}

func TestHandleUnexpectedWorldErrorPropagates(t *testing.T) {
	t.Run("hook create", func(t *testing.T) {
		w, q := newFakeWorld(), newFakeQueue()
		w.createErr = &world.APIError{Status: 500, Message: "boom"}

		_, err := Handle(context.Background(), testParams(w, q, hookItem("h1", "tok-1")))
		if err == nil {
			t.Fatal("expected error to propagate")
		}
	})

	t.Run("step batch", func(t *testing.T) {
		w, q := newFakeWorld(), newFakeQueue()
		w.batchErr = &world.APIError{Status: 500, Message: "boom"}

		_, err := Handle(context.Background(), testParams(w, q, stepItem("s1", "charge", false)))
		if err == nil {
			t.Fatal("expected error to propagate")
		}
	})
}

func TestHandleStepTaskEnqueuedPerStep(t *testing.T) {
	w, q := newFakeWorld(), newFakeQueue()
	items := []api.QueueItem{
		stepItem("s1", "charge", false),
		stepItem("s2", "charge", false),
	}

	if _, err := Handle(context.Background(), testParams(w, q, items...)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	for _, corr := range []string{"s1", "s2"} {
		if q.enqueued[corr] != 1 {
			t.Errorf("enqueued[%s] = %d, want 1", corr, q.enqueued[corr])
		}
	}
	for _, call := range q.calls {
		if !strings.HasPrefix(call, "enqueue:"+api.StepQueueName("charge")) {
			t.Errorf("unexpected queue name in %q", call)
		}
	}
}
