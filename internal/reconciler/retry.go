/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package reconciler

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryOptions configures the retry behavior
type RetryOptions struct {
	MaxAttempts       int           // Maximum number of attempts
	InitialBackoff    time.Duration // Initial backoff duration
	MaxBackoff        time.Duration // Maximum backoff duration
	BackoffMultiplier float64       // Multiplier for exponential backoff
}

// DefaultRetryOptions provides sensible default retry settings
var DefaultRetryOptions = RetryOptions{
	MaxAttempts:       3,
	InitialBackoff:    100 * time.Millisecond,
	MaxBackoff:        2 * time.Second,
	BackoffMultiplier: 2.0,
}

// isRetryableError reports whether an introspection error is worth another attempt.
// Only lost connections are; a rejected query fails the same way every time.
func isRetryableError(err error) bool {
	switch err.(type) {
	case *ErrDatabaseConnection:
		return true
	default:
		return false
	}
}

// withRetry executes a catalog read with retry logic. DDL statements never go through it.
func withRetry[T any](ctx context.Context, opts RetryOptions, logger *zap.Logger, op func(context.Context) (T, error)) (T, error) {
	var lastErr error
	var result T

	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr == nil {
				lastErr = &ErrCancelled{Msg: "operation cancelled by context", Err: ctx.Err()}
			}
			return result, lastErr
		default:
		}

		result, lastErr = op(ctx)
		if lastErr == nil {
			return result, nil
		}
		if !isRetryableError(lastErr) || attempt == attempts-1 {
			return result, lastErr
		}

		backoff := time.Duration(float64(opts.InitialBackoff) * math.Pow(opts.BackoffMultiplier, float64(attempt)))
		if backoff > opts.MaxBackoff {
			backoff = opts.MaxBackoff
		}
		logger.Warn("catalog read failed, retrying",
			zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff), zap.Error(lastErr))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, &ErrCancelled{Msg: "operation cancelled during backoff", Err: ctx.Err()}
		case <-timer.C:
		}
	}

	return result, lastErr
}
