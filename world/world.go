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

// Package world defines the durable event-log client consumed by the
// suspension engine. Appending an event is atomic and may create the
// corresponding entity (step, hook) as a side effect; the stored event
// returned by a create call may differ from the requested one (a hook
// create can come back as a hook/conflict).
package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/lcneves/wake/api"
)

type World interface {
	// CreateEvent appends a single event and returns the event that was
	// actually stored. Fails with an APIError of status 409 when an event
	// with the same (runID, correlationID, type) key already exists, and
	// 410 when the run has already terminated.
	CreateEvent(ctx context.Context, runID api.RunID, ev api.Event) (*api.Event, error)

	// CreateEventBatch appends several events. A batch-level 409 means at
	// least one member already existed; the remaining members are still
	// applied.
	CreateEventBatch(ctx context.Context, runID api.RunID, evs []api.Event) error
}

// APIError is a business-level failure from the world, carrying an
// HTTP-like status code.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("world: %s (status %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("world: %s (status %d)", e.Message, e.Status)
}

// IsConflict reports whether err is an already-exists (409) condition.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 409
}

// IsGone reports whether err is a run-already-terminated (410) condition.
func IsGone(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 410
}

// Retryable classifies an error for the retry decorator. Transient
// infrastructure failures (network-level errors, 5xx, 408, 429) are worth
// retrying; everything else, including all other 4xx, bails immediately.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == 408 || apiErr.Status == 429 || apiErr.Status >= 500
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	// Transport-level failures from the NATS client.
	if errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrNoResponders) {
		return true
	}

	return false
}
