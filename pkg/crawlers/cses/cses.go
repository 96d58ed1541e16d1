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

// Package cses crawls submissions from cses.fi. There is no API: discovery
// scrapes the public user page, and collecting source code requires an
// authenticated session and the per-problem hack list, which is the only
// place the judge links a user's own accepted submission.
package cses

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"regexp"
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
	baseURL  = "https://cses.fi"
	loginURL = baseURL + "/login"

	// submittedAtLayout is the timestamp format on hack view pages, rendered
	// in the judge's local timezone.
	submittedAtLayout = "2006-01-02 15:04:05"
)

var submittedAtPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

// Credentials authenticate the shared CSES session. The zero value runs the
// crawler anonymously: discovery still works, finalization records
// submissions without source code.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) Anonymous() bool {
	return c.Username == ""
}

// Settings carries the one budget every CSES endpoint shares.
type Settings struct {
	Endpoint crawlers.EndpointSettings
}

func DefaultSettings() Settings {
	return Settings{
		Endpoint: crawlers.EndpointSettings{
			Name:    "cses",
			Calls:   3,
			Window:  5 * time.Second,
			Backoff: crawlers.DefaultBackoff,
		},
	}
}

type Crawler struct {
	clock       clock.Clock
	uploader    uploaders.Uploader
	endpoint    *crawlers.Endpoint
	credentials Credentials

	// authenticated is written once by Load before the crawl loop starts.
	authenticated bool
}

func NewCrawler(clk clock.Clock, toolkit crawlers.Toolkit, credentials Credentials, settings Settings) *Crawler {
	return &Crawler{
		clock:       clk,
		uploader:    toolkit.Uploader,
		endpoint:    crawlers.NewEndpoint(clk, toolkit.Client, settings.Endpoint),
		credentials: credentials,
	}
}

// Load logs in to CSES, leaving the session cookie in the shared client's
// jar. Without credentials the crawler stays anonymous and Load only logs
// that source code collection is disabled.
func (c *Crawler) Load(ctx context.Context) error {
	if c.credentials.Anonymous() {
		logging.FromContext(ctx).Infof("no cses credentials provided, crawling anonymously without source code collection")
		return nil
	}
	csrfToken, err := c.fetchCsrfToken(ctx)
	if err != nil {
		return fmt.Errorf("fetching login form, %w", err)
	}
	// The login endpoint answers success with a redirect, so the client must
	// not follow it: a 302 is the signal, a 200 is the form served again.
	resp, err := c.endpoint.PostForm(ctx, loginURL, url.Values{
		"csrf_token": []string{csrfToken},
		"nick":       []string{c.credentials.Username},
		"pass":       []string{c.credentials.Password},
	}, crawlers.AcceptStatus(http.StatusFound))
	if err != nil {
		return fmt.Errorf("submitting login form, %w", err)
	}
	if resp.StatusCode != http.StatusFound {
		return crawlers.NewCrawlerErrorf("cses rejected the login of %q", c.credentials.Username)
	}
	c.authenticated = true
	logging.FromContext(ctx).With("user", c.credentials.Username).Infof("logged in to cses")
	return nil
}

func (c *Crawler) fetchCsrfToken(ctx context.Context) (string, error) {
	resp, err := c.endpoint.Get(ctx, loginURL)
	if err != nil {
		return "", err
	}
	document, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("parsing login page, %w", err)
	}
	token, ok := document.Find(`input[name="csrf_token"]`).Attr("value")
	if !ok {
		return "", crawlers.NewCrawlerErrorf("login page carries no csrf token")
	}
	return token, nil
}

// Discover scrapes the public user page. The page lists at most two states
// per problem, solved and attempted, so a discovered submission carries no
// timestamp and no submission URL; those stay for finalization to find.
func (c *Crawler) Discover(ctx context.Context, integration models.AnyIntegration) ([]models.CrawledSubmission, error) {
	csesIntegration, ok := integration.Integration.(*models.CsesIntegration)
	if !ok {
		return nil, fmt.Errorf("expected a cses integration, got %q", integration.GetPlatform())
	}
	resp, err := c.endpoint.Get(ctx, fmt.Sprintf("%s/problemset/user/%d/", baseURL, csesIntegration.UserNumber))
	if err != nil {
		return nil, fmt.Errorf("fetching user page, %w", err)
	}
	document, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, crawlers.NewCrawlerError(fmt.Errorf("parsing user page, %w", err))
	}
	table := document.Find("table").First()
	if table.Length() == 0 {
		return nil, crawlers.NewCrawlerErrorf("cses user %d does not exist", csesIntegration.UserNumber)
	}
	var submissions []models.CrawledSubmission
	table.Find("a.full, a.zero").Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		submissions = append(submissions, models.CrawledSubmission{
			Integration: integration,
			Problem:     models.NewProblem(baseURL + strings.TrimSuffix(href, "/")),
			Verdict:     models.VerdictFromAccepted(anchor.HasClass("full")),
		})
	})
	return submissions, nil
}

// Finalize locates the user's own entry on the problem's hack list and
// enriches the submission with the page, timestamp and source it links to.
// Rejected submissions never appear there and anonymous sessions cannot see
// the list, so both pass through unenriched.
func (c *Crawler) Finalize(ctx context.Context, crawled models.CrawledSubmission) (*models.Submission, error) {
	submission := models.NewSubmission(crawled, c.clock.Now())
	if crawled.Verdict != models.VerdictAccepted || !c.authenticated {
		return submission, nil
	}
	entry, err := c.findHackListEntry(ctx, crawled)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return submission, nil
	}

	resp, err := c.endpoint.Get(ctx, entry.submissionURL)
	if err != nil {
		return nil, fmt.Errorf("fetching hack view page, %w", err)
	}
	document, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, crawlers.NewCrawlerError(fmt.Errorf("parsing hack view page, %w", err))
	}
	content := document.Find("div.content")

	submission.SubmissionURL = lo.ToPtr(entry.submissionURL)
	if submittedAt, ok := findSubmittedAt(content); ok {
		submission.SubmittedAt = lo.ToPtr(submittedAt)
	} else {
		logging.FromContext(ctx).With("submission-url", entry.submissionURL).
			Warnf("hack view page carries no submission timestamp")
	}
	source := content.Find("pre.prettyprint").First()
	if source.Length() == 0 {
		return nil, crawlers.NewCrawlerErrorf("hack view page %s carries no source block", entry.submissionURL)
	}
	submission.RawCodeURL = upload(ctx, c.uploader, source.Text())
	return submission, nil
}

type hackListEntry struct {
	username      string
	submissionURL string
}

// findHackListEntry scans the problem's hack list for a row whose username
// matches the integration's handle. A nil entry with a nil error means the
// submission cannot be located right now: the list shows no table (expired
// session, page layout change) or the user's entry rotated off it.
func (c *Crawler) findHackListEntry(ctx context.Context, crawled models.CrawledSubmission) (*hackListEntry, error) {
	taskID := path.Base(crawled.Problem.ProblemURL)
	resp, err := c.endpoint.Get(ctx, fmt.Sprintf("%s/problemset/hack/%s/list/", baseURL, taskID))
	if err != nil {
		return nil, fmt.Errorf("fetching hack list, %w", err)
	}
	document, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, crawlers.NewCrawlerError(fmt.Errorf("parsing hack list, %w", err))
	}
	table := document.Find("div.content").Find("table").First()
	if table.Length() == 0 {
		if document.Find(`a[href="/logout"]`).Length() == 0 {
			logging.FromContext(ctx).Warnf("cses session expired, finalizing without source code")
		}
		return nil, nil
	}

	handle := strings.TrimSpace(c.integrationHandle(crawled))
	var matched *hackListEntry
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		columns := row.Find("td")
		if columns.Length() == 0 {
			// Header row.
			return true
		}
		username := strings.TrimSpace(columns.Eq(1).Text())
		href, ok := columns.Last().Find("a").First().Attr("href")
		if !ok {
			return true
		}
		if strings.EqualFold(username, handle) {
			matched = &hackListEntry{username: username, submissionURL: baseURL + href}
			return false
		}
		return true
	})
	if matched == nil {
		logging.FromContext(ctx).With("task", taskID).
			Debugf("no hack list entry matches the handle, submission rotated off the list")
	}
	return matched, nil
}

func (c *Crawler) integrationHandle(crawled models.CrawledSubmission) string {
	if csesIntegration, ok := crawled.Integration.Integration.(*models.CsesIntegration); ok {
		return csesIntegration.Handle
	}
	return ""
}

// findSubmittedAt locates the first metadata cell shaped like a timestamp.
// The judge renders it in its local timezone, so the parsed value converts to
// UTC before storage.
func findSubmittedAt(content *goquery.Selection) (time.Time, bool) {
	var submittedAt time.Time
	found := false
	content.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := strings.TrimSpace(cell.Text())
		if !submittedAtPattern.MatchString(text) {
			return true
		}
		parsed, err := time.ParseInLocation(submittedAtLayout, text, time.Local)
		if err != nil {
			return true
		}
		submittedAt = parsed.UTC()
		found = true
		return false
	})
	return submittedAt, found
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
