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

// Package crawl drives the crawl loop: an endless, fair iteration over all
// stored integrations where each pass discovers the integration's
// submissions, finalizes the ones never collected before, and stamps the
// integration once the whole pass succeeded.
package crawl

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/RealA10N/cccrawl/pkg/cache"
	"github.com/RealA10N/cccrawl/pkg/crawlers"
	"github.com/RealA10N/cccrawl/pkg/models"
	"github.com/RealA10N/cccrawl/pkg/operator/logging"
	"github.com/RealA10N/cccrawl/pkg/store"
)

// maxConcurrentFinalizations bounds the finalization fan-out of a single
// pass. Requests are still paced by the endpoint rate limiters, so the bound
// only caps in-flight work, not request rates.
const maxConcurrentFinalizations = 10

type Controller struct {
	clock    clock.Clock
	store    store.Store
	cache    *cache.CollectedSubmissions
	crawlers map[models.Platform]crawlers.Crawler
}

func NewController(clk clock.Clock, store store.Store, collected *cache.CollectedSubmissions,
	platformCrawlers map[models.Platform]crawlers.Crawler) *Controller {

	return &Controller{
		clock:    clk,
		store:    store,
		cache:    collected,
		crawlers: platformCrawlers,
	}
}

// Run reconciles every integration the store yields until the context is
// canceled. A failed pass is logged and never stops the loop: the next cycle
// retries the integration after all others had their turn.
func (c *Controller) Run(ctx context.Context) error {
	for integration := range c.store.CycleIntegrations(ctx) {
		if err := c.Reconcile(ctx, integration); err != nil {
			logging.FromContext(ctx).
				With("platform", integration.GetPlatform(), "integration", integration.ID()).
				Errorf("failed to crawl integration, %v", err)
		}
	}
	return ctx.Err()
}

// Reconcile runs one crawl pass over a single integration. The integration's
// last fetch time is stamped and upserted only after every new submission of
// the pass was finalized and upserted, so a failed pass leaves the
// integration due for a full retry.
func (c *Controller) Reconcile(ctx context.Context, integration models.AnyIntegration) (err error) {
	platform := integration.GetPlatform()
	ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With(
		"pass_id", uuid.NewString(),
		"platform", platform,
		"integration", integration.ID(),
	))
	start := c.clock.Now()
	defer func() {
		passesTotal.WithLabelValues(string(platform), lo.Ternary(err == nil, "success", "error")).Inc()
		passDurationSeconds.WithLabelValues(string(platform)).Observe(c.clock.Since(start).Seconds())
	}()

	crawler, ok := c.crawlers[platform]
	if !ok {
		return fmt.Errorf("no crawler registered for platform %q", platform)
	}
	seen, err := c.seenSubmissionIDs(ctx, integration)
	if err != nil {
		return fmt.Errorf("collecting known submission ids, %w", err)
	}
	discovered, err := crawler.Discover(ctx, integration)
	if err != nil {
		return fmt.Errorf("discovering submissions, %w", err)
	}
	submissionsDiscoveredTotal.WithLabelValues(string(platform)).Add(float64(len(discovered)))

	unseen := lo.Filter(discovered, func(crawled models.CrawledSubmission, _ int) bool {
		_, collected := seen[crawled.ID()]
		return !collected
	})
	if len(unseen) > 0 {
		logging.FromContext(ctx).With("count", len(unseen)).Infof("finalizing new submissions")
	}

	// Every finalization runs to completion before the pass settles, even
	// when a sibling already failed: upserts are idempotent, so partial
	// progress is kept and retried work is harmless.
	group := errgroup.Group{}
	group.SetLimit(maxConcurrentFinalizations)
	for _, crawled := range unseen {
		group.Go(func() error {
			return c.finalize(ctx, crawler, crawled)
		})
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("finalizing submissions, %w", err)
	}

	integration.SetLastFetch(c.clock.Now())
	if err := c.store.UpsertIntegration(ctx, integration); err != nil {
		return fmt.Errorf("upserting integration, %w", err)
	}
	return nil
}

// seenSubmissionIDs unions the store's query with the recently collected
// cache. The cache covers the window between an upsert and the store's
// eventually consistent reads, so a submission never finalizes twice.
func (c *Controller) seenSubmissionIDs(ctx context.Context, integration models.AnyIntegration) (map[models.ID]struct{}, error) {
	stored, err := c.store.CollectedSubmissionIDs(ctx, integration.ID())
	if err != nil {
		return nil, err
	}
	return lo.SliceToMap(append(stored, c.cache.Get(integration.ID())...), func(id models.ID) (models.ID, struct{}) {
		return id, struct{}{}
	}), nil
}

func (c *Controller) finalize(ctx context.Context, crawler crawlers.Crawler, crawled models.CrawledSubmission) error {
	submission, err := crawler.Finalize(ctx, crawled)
	if err != nil {
		return fmt.Errorf("finalizing submission %s, %w", crawled.ID(), err)
	}
	if err := c.store.UpsertSubmission(ctx, submission); err != nil {
		return fmt.Errorf("upserting submission %s, %w", submission.ID(), err)
	}
	c.cache.Add(crawled.Integration.ID(), submission.ID())
	submissionsFinalizedTotal.WithLabelValues(string(crawled.Integration.GetPlatform())).Inc()
	return nil
}
