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

// Package crawlers defines the two-phase crawl contract shared by every judge
// and the rate-limited, retried HTTP plumbing the implementations are built
// on.
package crawlers

import (
	"context"

	"github.com/RealA10N/cccrawl/pkg/models"
	"github.com/RealA10N/cccrawl/pkg/uploaders"
)

// Crawler is the per-platform capability set driven by the crawl loop.
//
// Discover is the cheap phase: every submission that currently exists and has
// not been reported yet must appear in some future call, duplicates are fine
// (dedup is the loop's job), and only conditions implying a misconfigured
// integration may surface as a CrawlerError. Finalize is the expensive phase
// and runs at most once per submission id; on partial failure it returns a
// valid submission with the unobtainable fields left empty.
type Crawler interface {
	// Load performs one-shot initialization before the crawl loop starts.
	Load(ctx context.Context) error
	Discover(ctx context.Context, integration models.AnyIntegration) ([]models.CrawledSubmission, error)
	Finalize(ctx context.Context, crawled models.CrawledSubmission) (*models.Submission, error)
}

// Toolkit bundles the collaborators every crawler shares: the process-wide
// HTTP client (one cookie jar for all judges) and the paste uploader.
type Toolkit struct {
	Client   HTTPDoer
	Uploader uploaders.Uploader
}
