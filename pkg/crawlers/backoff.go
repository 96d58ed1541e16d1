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

package crawlers

import "time"

// Backoff is a wall-clock-capped exponential retry schedule: waits of
// Base·Factor^n, truncated where the cumulative wait would exceed Cap. On
// exhaustion the original failure surfaces to the caller.
type Backoff struct {
	Base   time.Duration
	Factor int
	Cap    time.Duration
}

// DefaultBackoff doubles from one second and gives up after two minutes of
// cumulative waiting.
var DefaultBackoff = Backoff{Base: time.Second, Factor: 2, Cap: 120 * time.Second}

// Delays expands the schedule into the concrete wait sequence.
func (b Backoff) Delays() []time.Duration {
	if b.Base <= 0 || b.Factor < 1 {
		return nil
	}
	var delays []time.Duration
	var total time.Duration
	next := b.Base
	for total+next <= b.Cap {
		delays = append(delays, next)
		total += next
		next *= time.Duration(b.Factor)
	}
	return delays
}
