// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package delivery

import (
	"context"
	"time"
)

// DefaultBackoffMultiplier grows the retry delay between attempts
const DefaultBackoffMultiplier = 2.0

// Backoff is a capped exponential retry delay.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// Delay returns the wait before retry number n (n >= 1).
func (b Backoff) Delay(n int) time.Duration {
	multiplier := b.Multiplier
	if multiplier < 1 {
		multiplier = DefaultBackoffMultiplier
	}

	delay := b.Initial
	for i := 1; i < n; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if delay >= b.Max {
			return b.Max
		}
	}
	if delay > b.Max {
		return b.Max
	}
	return delay
}

// Wait sleeps for the delay of retry n or until ctx is done.
func (b Backoff) Wait(ctx context.Context, n int) error {
	timer := time.NewTimer(b.Delay(n))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
