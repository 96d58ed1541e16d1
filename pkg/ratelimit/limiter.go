/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ratelimit implements a sliding-window limiter: at most k executions
// in any window of length w. Judges ban on bursts, so the strict window
// property matters more than throughput here.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Limiter keeps the timestamps of the most recent allowed executions. A caller
// past the cap suspends until the oldest recorded execution leaves the window.
// Safe for concurrent use; suspension does not hold the lock.
type Limiter struct {
	mu     sync.Mutex
	calls  int
	window time.Duration
	clock  clock.Clock
	recent []time.Time
}

func New(clk clock.Clock, calls int, window time.Duration) *Limiter {
	return &Limiter{
		calls:  calls,
		window: window,
		clock:  clk,
		recent: make([]time.Time, 0, calls),
	}
}

// Wait blocks until an execution is permitted, records it, and returns.
// Context cancellation unblocks the wait and surfaces ctx.Err().
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()
		if len(l.recent) < l.calls {
			l.recent = append(l.recent, now)
			l.mu.Unlock()
			return nil
		}
		wakeAt := l.recent[0].Add(l.window)
		if !now.Before(wakeAt) {
			l.recent = append(l.recent[1:], now)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		// Sleep until the head of the queue ages out, then re-check: another
		// waiter may have taken the freed slot first.
		timer := l.clock.NewTimer(wakeAt.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C():
		}
	}
}
