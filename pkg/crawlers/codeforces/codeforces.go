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

// Package codeforces crawls submissions through the Codeforces JSON status
// API and scrapes source code from public submission pages.
package codeforces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"k8s.io/utils/clock"

	"github.com/RealA10N/cccrawl/pkg/crawlers"
	"github.com/RealA10N/cccrawl/pkg/models"
	"github.com/RealA10N/cccrawl/pkg/operator/logging"
	"github.com/RealA10N/cccrawl/pkg/uploaders"
)

const (
	baseURL = "https://codeforces.com"

	acceptedVerdict = "OK"

	// Contests above this id live under /gym/ instead of /contest/.
	gymContestThreshold = 100_000
)

// Settings carries the per-endpoint budgets. The submission pages get a far
// more conservative schedule than the API: the judge blocks bursty scrapers
// for minutes at a time.
type Settings struct {
	API  crawlers.EndpointSettings
	Page crawlers.EndpointSettings
}

func DefaultSettings() Settings {
	return Settings{
		API: crawlers.EndpointSettings{
			Name:    "codeforces-api",
			Calls:   3,
			Window:  3 * time.Second,
			Backoff: crawlers.DefaultBackoff,
		},
		Page: crawlers.EndpointSettings{
			Name:    "codeforces-page",
			Calls:   1,
			Window:  10 * time.Second,
			Backoff: crawlers.Backoff{Base: 15 * time.Second, Factor: 3, Cap: 600 * time.Second},
		},
	}
}

type Crawler struct {
	clock    clock.Clock
	uploader uploaders.Uploader
	api      *crawlers.Endpoint
	pages    *crawlers.Endpoint
}

func NewCrawler(clk clock.Clock, toolkit crawlers.Toolkit, settings Settings) *Crawler {
	return &Crawler{
		clock:    clk,
		uploader: toolkit.Uploader,
		api:      crawlers.NewEndpoint(clk, toolkit.Client, settings.API),
		pages:    crawlers.NewEndpoint(clk, toolkit.Client, settings.Page),
	}
}

// Load is a no-op, the Codeforces endpoints need no session.
func (c *Crawler) Load(context.Context) error {
	return nil
}

func (c *Crawler) Discover(ctx context.Context, integration models.AnyIntegration) ([]models.CrawledSubmission, error) {
	codeforcesIntegration, ok := integration.Integration.(*models.CodeforcesIntegration)
	if !ok {
		return nil, fmt.Errorf("expected a codeforces integration, got %q", integration.GetPlatform())
	}
	statusURL := fmt.Sprintf("%s/api/user.status?handle=%s&from=1", baseURL, url.QueryEscape(codeforcesIntegration.Handle))
	// A 400 is the API's answer for an unknown handle, not a transient
	// failure, so it must come back unretried.
	resp, err := c.api.Get(ctx, statusURL, crawlers.AcceptStatus(http.StatusBadRequest))
	if err != nil {
		return nil, fmt.Errorf("fetching submission status, %w", err)
	}
	if resp.StatusCode == http.StatusBadRequest {
		return nil, crawlers.NewCrawlerErrorf("handle %q is not recognized by codeforces", codeforcesIntegration.Handle)
	}
	status := apiStatus{}
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return nil, crawlers.NewCrawlerError(fmt.Errorf("decoding submission status, %w", err))
	}
	return lo.Map(status.Result, func(element apiSubmission, _ int) models.CrawledSubmission {
		return crawledSubmission(integration, element)
	}), nil
}

func (c *Crawler) Finalize(ctx context.Context, crawled models.CrawledSubmission) (*models.Submission, error) {
	submission := models.NewSubmission(crawled, c.clock.Now())
	resp, err := c.pages.Get(ctx, lo.FromPtr(crawled.SubmissionURL), crawlers.AcceptStatus(http.StatusFound))
	if err != nil {
		return nil, fmt.Errorf("fetching submission page, %w", err)
	}
	if resp.StatusCode == http.StatusFound {
		// The judge redirects for non-public submissions (running contests,
		// gyms). Record the submission without its source.
		return submission, nil
	}
	document, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, crawlers.NewCrawlerError(fmt.Errorf("parsing submission page, %w", err))
	}
	source := document.Find("pre#program-source-text")
	if source.Length() == 0 {
		return nil, crawlers.NewCrawlerErrorf("submission page %s carries no source block", lo.FromPtr(crawled.SubmissionURL))
	}
	submission.RawCodeURL = upload(ctx, c.uploader, source.Text())
	return submission, nil
}

type apiStatus struct {
	Result []apiSubmission `json:"result"`
}

type apiSubmission struct {
	ID                  int64      `json:"id"`
	CreationTimeSeconds int64      `json:"creationTimeSeconds"`
	Verdict             string     `json:"verdict"`
	Problem             apiProblem `json:"problem"`
}

type apiProblem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
}

func crawledSubmission(integration models.AnyIntegration, element apiSubmission) models.CrawledSubmission {
	contestType := lo.Ternary(element.Problem.ContestID > gymContestThreshold, "gym", "contest")
	return models.CrawledSubmission{
		Integration: integration,
		Problem: models.NewProblem(fmt.Sprintf("%s/%s/%d/problem/%s",
			baseURL, contestType, element.Problem.ContestID, element.Problem.Index)),
		Verdict:     models.VerdictFromAccepted(element.Verdict == acceptedVerdict),
		SubmittedAt: lo.ToPtr(time.Unix(element.CreationTimeSeconds, 0).UTC()),
		SubmissionURL: lo.ToPtr(fmt.Sprintf("%s/%s/%d/submission/%d",
			baseURL, contestType, element.Problem.ContestID, element.ID)),
	}
}

// upload pushes source text to the paste service. Upload failures are
// recoverable: the submission is recorded without a raw code URL.
func upload(ctx context.Context, uploader uploaders.Uploader, source string) *string {
	pasteURL, err := uploader.Upload(ctx, strings.NewReader(source))
	if err != nil {
		logging.FromContext(ctx).With("error", err).Warnf("uploading source code failed, recording submission without it")
		return nil
	}
	return lo.ToPtr(pasteURL)
}
