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

package crawl_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gocache "github.com/patrickmn/go-cache"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/RealA10N/cccrawl/pkg/cache"
	"github.com/RealA10N/cccrawl/pkg/controllers/crawl"
	"github.com/RealA10N/cccrawl/pkg/crawlers"
	"github.com/RealA10N/cccrawl/pkg/fake"
	"github.com/RealA10N/cccrawl/pkg/models"
	"github.com/RealA10N/cccrawl/pkg/test"
)

var _ = Describe("Controller", func() {
	var ctx context.Context
	var fakeClock *clocktesting.FakeClock
	var submissionStore *fake.Store
	var codeforcesCrawler *fake.Crawler
	var csesCrawler *fake.Crawler
	var collected *cache.CollectedSubmissions
	var controller *crawl.Controller
	var integration models.AnyIntegration

	BeforeEach(func() {
		ctx = test.ContextWithLogger()
		fakeClock = clocktesting.NewFakeClock(time.Now())
		submissionStore = fake.NewStore()
		codeforcesCrawler = fake.NewCrawler()
		csesCrawler = fake.NewCrawler()
		collected = cache.NewCollectedSubmissions(gocache.New(cache.CollectedSubmissionsTTL, cache.DefaultCleanupInterval))
		controller = crawl.NewController(fakeClock, submissionStore, collected, map[models.Platform]crawlers.Crawler{
			models.PlatformCodeforces: codeforcesCrawler,
			models.PlatformCses:       csesCrawler,
		})
		integration = test.CodeforcesIntegration()
	})

	Describe("Reconcile", func() {
		It("should finalize and upsert every newly discovered submission", func() {
			first := test.CrawledSubmission(integration)
			second := test.CrawledSubmission(integration)
			codeforcesCrawler.SeedDiscovered(integration, first, second)

			Expect(controller.Reconcile(ctx, integration)).To(Succeed())

			var ids []models.ID
			submissionStore.UpsertedSubmissions.ForEach(func(submission *models.Submission) {
				ids = append(ids, submission.ID())
			})
			Expect(ids).To(ConsistOf(first.ID(), second.ID()))
		})

		It("should stamp and upsert the integration after a successful pass", func() {
			codeforcesCrawler.SeedDiscovered(integration, test.CrawledSubmission(integration))

			Expect(controller.Reconcile(ctx, integration)).To(Succeed())

			Expect(submissionStore.UpsertedIntegrations.Len()).To(Equal(1))
			stamped := submissionStore.UpsertedIntegrations.Pop()
			Expect(stamped.GetLastFetch()).To(HaveValue(BeTemporally("==", fakeClock.Now().UTC())))
		})

		It("should skip submissions the store already collected", func() {
			first := test.CrawledSubmission(integration)
			second := test.CrawledSubmission(integration)
			codeforcesCrawler.SeedDiscovered(integration, first, second)
			submissionStore.SeedCollectedIDs(integration.ID(), first.ID())

			Expect(controller.Reconcile(ctx, integration)).To(Succeed())

			Expect(codeforcesCrawler.FinalizeBehavior.Calls()).To(Equal(1))
			Expect(submissionStore.UpsertedSubmissions.Len()).To(Equal(1))
			Expect(submissionStore.UpsertedSubmissions.Pop().ID()).To(Equal(second.ID()))
		})

		It("should skip submissions finalized in recent passes", func() {
			first := test.CrawledSubmission(integration)
			second := test.CrawledSubmission(integration)
			codeforcesCrawler.SeedDiscovered(integration, first, second)
			collected.Add(integration.ID(), first.ID())

			Expect(controller.Reconcile(ctx, integration)).To(Succeed())

			Expect(codeforcesCrawler.FinalizeBehavior.Calls()).To(Equal(1))
			Expect(submissionStore.UpsertedSubmissions.Pop().ID()).To(Equal(second.ID()))
		})

		It("should not finalize the same submission twice across passes", func() {
			codeforcesCrawler.SeedDiscovered(integration, test.CrawledSubmission(integration))

			Expect(controller.Reconcile(ctx, integration)).To(Succeed())
			Expect(controller.Reconcile(ctx, integration)).To(Succeed())

			Expect(codeforcesCrawler.FinalizeBehavior.Calls()).To(Equal(1))
			Expect(submissionStore.UpsertedSubmissions.Len()).To(Equal(1))
			// Both passes succeeded, so both stamped the integration.
			Expect(submissionStore.UpsertedIntegrations.Len()).To(Equal(2))
		})

		It("should keep partial progress and retry only the failed finalization", func() {
			first := test.CrawledSubmission(integration)
			second := test.CrawledSubmission(integration)
			codeforcesCrawler.SeedDiscovered(integration, first, second)
			codeforcesCrawler.FinalizeBehavior.Error.Set(errors.New("submission page unavailable"))

			Expect(controller.Reconcile(ctx, integration)).ToNot(Succeed())
			Expect(submissionStore.UpsertedSubmissions.Len()).To(Equal(1))
			Expect(submissionStore.UpsertedIntegrations.Len()).To(Equal(0))

			Expect(controller.Reconcile(ctx, integration)).To(Succeed())
			Expect(codeforcesCrawler.FinalizeBehavior.SuccessfulCalls()).To(Equal(2))
			Expect(submissionStore.UpsertedSubmissions.Len()).To(Equal(2))
			Expect(submissionStore.UpsertedIntegrations.Len()).To(Equal(1))
		})

		It("should fail the pass when discovery fails", func() {
			codeforcesCrawler.DiscoverBehavior.Error.Set(crawlers.NewCrawlerErrorf("handle %q is not recognized", "ghost"))

			Expect(controller.Reconcile(ctx, integration)).ToNot(Succeed())
			Expect(codeforcesCrawler.FinalizeBehavior.Calls()).To(Equal(0))
			Expect(submissionStore.UpsertedIntegrations.Len()).To(Equal(0))
		})

		It("should fail the pass when the collected id query fails", func() {
			submissionStore.CollectedSubmissionIDsError.Set(errors.New("rate limited"))

			Expect(controller.Reconcile(ctx, integration)).ToNot(Succeed())
			Expect(codeforcesCrawler.DiscoverBehavior.Calls()).To(Equal(0))
		})

		It("should fail the pass when stamping the integration fails", func() {
			codeforcesCrawler.SeedDiscovered(integration, test.CrawledSubmission(integration))
			submissionStore.UpsertIntegrationError.Set(errors.New("rate limited"))

			Expect(controller.Reconcile(ctx, integration)).ToNot(Succeed())
			Expect(submissionStore.UpsertedSubmissions.Len()).To(Equal(1))
		})

		It("should fail the pass for a platform without a crawler", func() {
			orphan := crawl.NewController(fakeClock, submissionStore, collected, nil)

			Expect(orphan.Reconcile(ctx, integration)).ToNot(Succeed())
			Expect(submissionStore.UpsertedIntegrations.Len()).To(Equal(0))
		})
	})

	Describe("Run", func() {
		It("should give every integration a turn in every cycle", func() {
			csesIntegration := test.CsesIntegration()
			submissionStore.SetIntegrations(integration, csesIntegration)
			submissionStore.MaxCycles = 2
			codeforcesCrawler.SeedDiscovered(integration, test.CrawledSubmission(integration))
			csesCrawler.SeedDiscovered(csesIntegration, test.CrawledSubmission(csesIntegration))

			Expect(controller.Run(ctx)).To(Succeed())

			Expect(codeforcesCrawler.DiscoverBehavior.Calls()).To(Equal(2))
			Expect(csesCrawler.DiscoverBehavior.Calls()).To(Equal(2))
			// Submissions are collected once, integrations stamped every pass.
			Expect(submissionStore.UpsertedSubmissions.Len()).To(Equal(2))
			Expect(submissionStore.UpsertedIntegrations.Len()).To(Equal(4))
		})

		It("should keep crawling after a failed pass", func() {
			csesIntegration := test.CsesIntegration()
			submissionStore.SetIntegrations(integration, csesIntegration)
			submissionStore.MaxCycles = 2
			codeforcesCrawler.DiscoverBehavior.Error.Set(crawlers.NewCrawlerErrorf("handle gone"), fake.MaxCalls(0))
			csesCrawler.SeedDiscovered(csesIntegration, test.CrawledSubmission(csesIntegration))

			Expect(controller.Run(ctx)).To(Succeed())

			Expect(csesCrawler.DiscoverBehavior.Calls()).To(Equal(2))
			Expect(submissionStore.UpsertedSubmissions.Len()).To(Equal(1))
			submissionStore.UpsertedIntegrations.ForEach(func(stamped *models.AnyIntegration) {
				Expect(stamped.GetPlatform()).To(Equal(models.PlatformCses))
			})
		})

		It("should stop when the context is canceled", func() {
			submissionStore.SetIntegrations(integration)
			submissionStore.MaxCycles = 1_000_000

			runCtx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() {
				done <- controller.Run(runCtx)
			}()
			cancel()

			Eventually(done).Should(Receive(MatchError(context.Canceled)))
		})
	})
})
