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

package cses_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/RealA10N/cccrawl/pkg/crawlers"
	"github.com/RealA10N/cccrawl/pkg/crawlers/cses"
	"github.com/RealA10N/cccrawl/pkg/fake"
	"github.com/RealA10N/cccrawl/pkg/models"
	"github.com/RealA10N/cccrawl/pkg/test"
)

const (
	loginURL    = "https://cses.fi/login"
	userPageURL = "https://cses.fi/problemset/user/89310/"
	hackListURL = "https://cses.fi/problemset/hack/1068/list/"
	hackViewURL = "https://cses.fi/problemset/hack/view/42"

	loginPage = `<html><body><form>
		<input type="hidden" name="csrf_token" value="tok123">
		<input type="text" name="nick">
	</form></body></html>`

	userPage = `<html><body><table>
		<tr><td><a class="full" href="/problemset/task/1068/">1068</a></td></tr>
		<tr><td><a class="zero" href="/problemset/task/1083/">1083</a></td></tr>
	</table></body></html>`

	hackListPage = `<html><body>
		<a href="/logout">Logout</a>
		<div class="content"><table>
			<tr><th>Time</th><th>User</th><th>Language</th><th></th></tr>
			<tr><td>2024-03-02 08:00:00</td><td>bob</td><td>Python3</td><td><a href="/problemset/hack/view/7">view</a></td></tr>
			<tr><td>2024-03-01 12:34:56</td><td>Alice</td><td>Python3</td><td><a href="/problemset/hack/view/42">view</a></td></tr>
		</table></div>
	</body></html>`

	hackViewPage = `<html><body><div class="content">
		<table>
			<tr><td>Submitter</td><td>Alice</td></tr>
			<tr><td>Time</td><td>2024-03-01 12:34:56</td></tr>
		</table>
		<pre class="prettyprint">print(1)</pre>
	</div></body></html>`
)

func testSettings() cses.Settings {
	return cses.Settings{
		Endpoint: crawlers.EndpointSettings{
			Name:    "cses",
			Calls:   100,
			Window:  time.Second,
			Backoff: crawlers.Backoff{Base: time.Millisecond, Factor: 2, Cap: 3 * time.Millisecond},
		},
	}
}

var _ = Describe("Crawler", func() {
	var ctx context.Context
	var fakeClock *clocktesting.FakeClock
	var client *fake.HTTPClient
	var uploader *fake.Uploader
	var crawler *cses.Crawler
	var integration models.AnyIntegration

	credentials := cses.Credentials{Username: "alice", Password: "secret"}

	BeforeEach(func() {
		ctx = test.ContextWithLogger()
		fakeClock = clocktesting.NewFakeClock(time.Now())
		client = fake.NewHTTPClient()
		uploader = fake.NewUploader()
		crawler = cses.NewCrawler(fakeClock, crawlers.Toolkit{Client: client, Uploader: uploader}, credentials, testSettings())
		integration = models.NewAnyIntegration(models.NewCsesIntegration(89310, "alice"))
	})

	Describe("Load", func() {
		It("should log in with the csrf token of the login form", func() {
			client.RouteResponse(http.MethodGet, loginURL, fake.RoutedResponse{StatusCode: 200, Body: loginPage})
			client.RouteResponse(http.MethodPost, loginURL, fake.RoutedResponse{
				StatusCode: 302,
				Header:     http.Header{"Location": []string{"/"}},
			})

			Expect(crawler.Load(ctx)).To(Succeed())

			posts := client.RequestsFor(http.MethodPost, loginURL)
			Expect(posts).To(HaveLen(1))
			Expect(string(posts[0].Body)).To(Equal("csrf_token=tok123&nick=alice&pass=secret"))
			Expect(posts[0].Header.Get("Content-Type")).To(Equal("application/x-www-form-urlencoded"))
		})

		It("should fail the pass when the form is served again", func() {
			client.RouteResponse(http.MethodGet, loginURL, fake.RoutedResponse{StatusCode: 200, Body: loginPage})
			client.RouteResponse(http.MethodPost, loginURL, fake.RoutedResponse{StatusCode: 200, Body: loginPage})

			err := crawler.Load(ctx)
			Expect(crawlers.IsCrawlerError(err)).To(BeTrue())
		})

		It("should fail the pass when the form carries no csrf token", func() {
			client.RouteResponse(http.MethodGet, loginURL, fake.RoutedResponse{StatusCode: 200, Body: `<html><body></body></html>`})

			err := crawler.Load(ctx)
			Expect(crawlers.IsCrawlerError(err)).To(BeTrue())
			Expect(client.RequestsFor(http.MethodPost, loginURL)).To(BeEmpty())
		})

		It("should stay anonymous without credentials", func() {
			anonymous := cses.NewCrawler(fakeClock, crawlers.Toolkit{Client: client, Uploader: uploader}, cses.Credentials{}, testSettings())
			Expect(anonymous.Load(ctx)).To(Succeed())
			Expect(client.Requests.Len()).To(Equal(0))
		})
	})

	Describe("Discover", func() {
		It("should map solved and attempted problems onto crawled submissions", func() {
			client.RouteResponse(http.MethodGet, userPageURL, fake.RoutedResponse{StatusCode: 200, Body: userPage})

			discovered, err := crawler.Discover(ctx, integration)
			Expect(err).ToNot(HaveOccurred())
			Expect(discovered).To(HaveLen(2))

			Expect(discovered[0].Problem.ProblemURL).To(Equal("https://cses.fi/problemset/task/1068"))
			Expect(discovered[0].Verdict).To(Equal(models.VerdictAccepted))
			Expect(discovered[1].Problem.ProblemURL).To(Equal("https://cses.fi/problemset/task/1083"))
			Expect(discovered[1].Verdict).To(Equal(models.VerdictRejected))
			for _, crawled := range discovered {
				Expect(crawled.SubmittedAt).To(BeNil())
				Expect(crawled.SubmissionURL).To(BeNil())
				Expect(crawled.Integration.ID()).To(Equal(integration.ID()))
			}
		})

		It("should treat a page without the results table as an unknown user", func() {
			client.RouteResponse(http.MethodGet, userPageURL, fake.RoutedResponse{StatusCode: 200, Body: `<html><body>not found</body></html>`})

			_, err := crawler.Discover(ctx, integration)
			Expect(crawlers.IsCrawlerError(err)).To(BeTrue())
		})

		It("should reject integrations of another platform", func() {
			_, err := crawler.Discover(ctx, test.CodeforcesIntegration())
			Expect(err).To(HaveOccurred())
			Expect(client.Requests.Len()).To(Equal(0))
		})
	})

	Describe("Finalize", func() {
		var crawled models.CrawledSubmission

		BeforeEach(func() {
			client.RouteResponse(http.MethodGet, loginURL, fake.RoutedResponse{StatusCode: 200, Body: loginPage})
			client.RouteResponse(http.MethodPost, loginURL, fake.RoutedResponse{StatusCode: 302})
			Expect(crawler.Load(ctx)).To(Succeed())
			client.Reset()

			crawled = models.CrawledSubmission{
				Integration: integration,
				Problem:     models.NewProblem("https://cses.fi/problemset/task/1068"),
				Verdict:     models.VerdictAccepted,
			}
		})

		It("should enrich the submission from the hack list", func() {
			client.RouteResponse(http.MethodGet, hackListURL, fake.RoutedResponse{StatusCode: 200, Body: hackListPage})
			client.RouteResponse(http.MethodGet, hackViewURL, fake.RoutedResponse{StatusCode: 200, Body: hackViewPage})
			uploader.UploadBehavior.Output.Set(lo.ToPtr("https://ity.sh/XYZ"))

			submission, err := crawler.Finalize(ctx, crawled)
			Expect(err).ToNot(HaveOccurred())
			Expect(submission.SubmissionURL).To(HaveValue(Equal(hackViewURL)))

			expectedAt := lo.Must(time.ParseInLocation("2006-01-02 15:04:05", "2024-03-01 12:34:56", time.Local)).UTC()
			Expect(submission.SubmittedAt).To(HaveValue(BeTemporally("==", expectedAt)))
			Expect(submission.RawCodeURL).To(HaveValue(Equal("https://ity.sh/XYZ")))
			Expect(submission.FirstSeenAt).To(BeTemporally("==", fakeClock.Now()))
			Expect(uploader.UploadBehavior.CalledWithInput.Pop()).To(HaveValue(Equal("print(1)")))

			// Enrichment must not fork the identity established at discovery.
			Expect(submission.ID()).To(Equal(crawled.ID()))
		})

		It("should pass through rejected submissions without any requests", func() {
			crawled.Verdict = models.VerdictRejected

			submission, err := crawler.Finalize(ctx, crawled)
			Expect(err).ToNot(HaveOccurred())
			Expect(submission.SubmissionURL).To(BeNil())
			Expect(submission.RawCodeURL).To(BeNil())
			Expect(client.Requests.Len()).To(Equal(0))
		})

		It("should pass through on anonymous sessions without any requests", func() {
			anonymous := cses.NewCrawler(fakeClock, crawlers.Toolkit{Client: client, Uploader: uploader}, cses.Credentials{}, testSettings())
			Expect(anonymous.Load(ctx)).To(Succeed())

			submission, err := anonymous.Finalize(ctx, crawled)
			Expect(err).ToNot(HaveOccurred())
			Expect(submission.RawCodeURL).To(BeNil())
			Expect(client.Requests.Len()).To(Equal(0))
		})

		It("should pass through when the hack list shows no table", func() {
			client.RouteResponse(http.MethodGet, hackListURL, fake.RoutedResponse{
				StatusCode: 200,
				Body:       `<html><body><div class="content">login required</div></body></html>`,
			})

			submission, err := crawler.Finalize(ctx, crawled)
			Expect(err).ToNot(HaveOccurred())
			Expect(submission.SubmissionURL).To(BeNil())
			Expect(submission.RawCodeURL).To(BeNil())
		})

		It("should pass through when the entry rotated off the hack list", func() {
			rotated := models.CrawledSubmission{
				Integration: models.NewAnyIntegration(models.NewCsesIntegration(777, "carol")),
				Problem:     crawled.Problem,
				Verdict:     models.VerdictAccepted,
			}
			client.RouteResponse(http.MethodGet, hackListURL, fake.RoutedResponse{StatusCode: 200, Body: hackListPage})

			submission, err := crawler.Finalize(ctx, rotated)
			Expect(err).ToNot(HaveOccurred())
			Expect(submission.SubmissionURL).To(BeNil())
			Expect(submission.RawCodeURL).To(BeNil())
			Expect(client.RequestsFor(http.MethodGet, hackViewURL)).To(BeEmpty())
		})

		It("should treat a hack view page without the source block as a broken schema", func() {
			client.RouteResponse(http.MethodGet, hackListURL, fake.RoutedResponse{StatusCode: 200, Body: hackListPage})
			client.RouteResponse(http.MethodGet, hackViewURL, fake.RoutedResponse{
				StatusCode: 200,
				Body:       `<html><body><div class="content">redesigned</div></body></html>`,
			})

			_, err := crawler.Finalize(ctx, crawled)
			Expect(crawlers.IsCrawlerError(err)).To(BeTrue())
		})

		It("should tolerate a failed upload but keep the enrichment", func() {
			client.RouteResponse(http.MethodGet, hackListURL, fake.RoutedResponse{StatusCode: 200, Body: hackListPage})
			client.RouteResponse(http.MethodGet, hackViewURL, fake.RoutedResponse{StatusCode: 200, Body: hackViewPage})
			uploader.UploadBehavior.Error.Set(errors.New("paste service down"))

			submission, err := crawler.Finalize(ctx, crawled)
			Expect(err).ToNot(HaveOccurred())
			Expect(submission.SubmissionURL).To(HaveValue(Equal(hackViewURL)))
			Expect(submission.SubmittedAt).ToNot(BeNil())
			Expect(submission.RawCodeURL).To(BeNil())
		})
	})
})
