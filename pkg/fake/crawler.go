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

package fake

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/samber/lo"

	"github.com/RealA10N/cccrawl/pkg/models"
)

// CrawlerBehavior must be reset between tests otherwise tests will
// pollute each other.
type CrawlerBehavior struct {
	LoadError        AtomicError
	DiscoverBehavior MockedFunction[models.AnyIntegration, []models.CrawledSubmission]
	FinalizeBehavior MockedFunction[models.CrawledSubmission, models.Submission]
}

// Crawler implements crawlers.Crawler against seeded state: tests seed the
// submissions each integration's discovery yields, and finalization defaults
// to stamping the crawled submission with a random paste URL.
type Crawler struct {
	CrawlerBehavior

	mu         sync.Mutex
	discovered map[models.ID][]models.CrawledSubmission
	loadCalls  atomic.Int32
}

func NewCrawler() *Crawler {
	crawler := &Crawler{}
	crawler.Reset()
	return crawler
}

func (c *Crawler) Reset() {
	c.LoadError.Reset()
	c.DiscoverBehavior.Reset()
	c.FinalizeBehavior.Reset()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.discovered = map[models.ID][]models.CrawledSubmission{}
	c.loadCalls.Store(0)
}

// SeedDiscovered pins the submissions Discover yields for the integration.
func (c *Crawler) SeedDiscovered(integration models.AnyIntegration, submissions ...models.CrawledSubmission) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discovered[integration.ID()] = append(c.discovered[integration.ID()], submissions...)
}

func (c *Crawler) Load(context.Context) error {
	c.loadCalls.Add(1)
	return c.LoadError.Get()
}

func (c *Crawler) LoadCalls() int {
	return int(c.loadCalls.Load())
}

func (c *Crawler) Discover(_ context.Context, integration models.AnyIntegration) ([]models.CrawledSubmission, error) {
	submissions, err := c.DiscoverBehavior.Invoke(&integration, func(integration *models.AnyIntegration) (*[]models.CrawledSubmission, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return lo.ToPtr(append([]models.CrawledSubmission{}, c.discovered[integration.ID()]...)), nil
	})
	if err != nil {
		return nil, err
	}
	return *submissions, nil
}

func (c *Crawler) Finalize(_ context.Context, crawled models.CrawledSubmission) (*models.Submission, error) {
	return c.FinalizeBehavior.Invoke(&crawled, func(crawled *models.CrawledSubmission) (*models.Submission, error) {
		submission := models.NewSubmission(*crawled, time.Now().UTC())
		submission.RawCodeURL = lo.ToPtr(fmt.Sprintf("https://ity.sh/%s", randomdata.Alphanumeric(16)))
		return submission, nil
	})
}
