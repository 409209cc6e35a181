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

package world

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/lcneves/wake/api"
)

// RetryPolicy bounds the transparent retries applied to every World call.
type RetryPolicy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 250 * time.Millisecond,
		Multiplier:      2,
		MaxInterval:     5 * time.Second,
		MaxRetries:      3,
	}
}

// WithRetry wraps a World so that every method retries transient failures
// with randomized exponential backoff. Non-retryable errors bail on the
// first attempt without consuming retry budget.
func WithRetry(inner World, policy RetryPolicy, logger *slog.Logger) World {
	if logger == nil {
		logger = slog.Default()
	}
	return &retryingWorld{inner: inner, policy: policy, logger: logger}
}

type retryingWorld struct {
	inner  World
	policy RetryPolicy
	logger *slog.Logger
}

var _ World = (*retryingWorld)(nil)

func (r *retryingWorld) CreateEvent(ctx context.Context, runID api.RunID, ev api.Event) (*api.Event, error) {
	return withRetry(ctx, r.policy, r.logger, func() (*api.Event, error) {
		return r.inner.CreateEvent(ctx, runID, ev)
	})
}

func (r *retryingWorld) CreateEventBatch(ctx context.Context, runID api.RunID, evs []api.Event) error {
	_, err := withRetry(ctx, r.policy, r.logger, func() (struct{}, error) {
		return struct{}{}, r.inner.CreateEventBatch(ctx, runID, evs)
	})
	return err
}

// withRetry is the shared retry executor behind every forwarded method.
func withRetry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.Multiplier = policy.Multiplier
	b.MaxInterval = policy.MaxInterval

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !Retryable(err) {
			return v, backoff.Permanent(err)
		}
		if err != nil {
			logger.Warn("retryable world error", "error", err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(policy.MaxRetries+1))
}
