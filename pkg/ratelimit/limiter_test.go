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

package ratelimit_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/utils/clock"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/RealA10N/cccrawl/pkg/ratelimit"
)

var _ = Describe("Limiter", func() {
	var ctx context.Context
	var fakeClock *clocktesting.FakeClock

	BeforeEach(func() {
		ctx = context.Background()
		fakeClock = clocktesting.NewFakeClock(time.Now())
	})

	It("should admit calls below the cap without waiting", func() {
		limiter := ratelimit.New(fakeClock, 3, 10*time.Second)
		for range 3 {
			Expect(limiter.Wait(ctx)).To(Succeed())
		}
	})

	It("should suspend the caller past the cap until the head leaves the window", func() {
		limiter := ratelimit.New(fakeClock, 3, 10*time.Second)
		for range 3 {
			Expect(limiter.Wait(ctx)).To(Succeed())
		}

		done := make(chan error, 1)
		go func() {
			done <- limiter.Wait(ctx)
		}()

		Consistently(done).ShouldNot(Receive())
		fakeClock.Step(9 * time.Second)
		Consistently(done).ShouldNot(Receive())
		fakeClock.Step(time.Second)
		Eventually(done).Should(Receive(BeNil()))
	})

	It("should never admit more than the cap within one window", func() {
		limiter := ratelimit.New(fakeClock, 3, 5*time.Second)
		var admitted atomic.Int32
		for range 10 {
			go func() {
				defer GinkgoRecover()
				Expect(limiter.Wait(ctx)).To(Succeed())
				admitted.Add(1)
			}()
		}

		Eventually(admitted.Load).Should(BeEquivalentTo(3))
		Consistently(admitted.Load).Should(BeEquivalentTo(3))

		fakeClock.Step(5 * time.Second)
		Eventually(admitted.Load).Should(BeEquivalentTo(6))
		Consistently(admitted.Load).Should(BeEquivalentTo(6))

		fakeClock.Step(5 * time.Second)
		Eventually(admitted.Load).Should(BeEquivalentTo(9))

		fakeClock.Step(5 * time.Second)
		Eventually(admitted.Load).Should(BeEquivalentTo(10))
	})

	It("should unblock with the context error on cancellation", func() {
		limiter := ratelimit.New(fakeClock, 1, time.Hour)
		Expect(limiter.Wait(ctx)).To(Succeed())

		cancelable, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- limiter.Wait(cancelable)
		}()

		Consistently(done).ShouldNot(Receive())
		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})

	It("should throttle sequential callers on a real clock", func() {
		limiter := ratelimit.New(clock.RealClock{}, 2, 30*time.Millisecond)
		start := time.Now()
		for range 6 {
			Expect(limiter.Wait(ctx)).To(Succeed())
		}
		// Six calls at two per 30ms need at least two full windows.
		Expect(time.Since(start)).To(BeNumerically(">=", 60*time.Millisecond))
	})
})
