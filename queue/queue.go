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

// Package queue defines the at-least-once, idempotency-keyed message
// dispatch surface consumed by the suspension engine.
package queue

import "context"

type Queue interface {
	// Enqueue durably dispatches a message to the named queue. Redelivery
	// is at-least-once; messages sharing an idempotency key are deduplicated
	// by the transport so re-running a dispatch never double-schedules the
	// same logical work.
	Enqueue(ctx context.Context, queueName string, payload []byte, idempotencyKey string) error
}
