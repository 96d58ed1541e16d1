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

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/samber/lo"
	"k8s.io/utils/clock"

	"github.com/RealA10N/cccrawl/pkg/operator/logging"
	"github.com/RealA10N/cccrawl/pkg/ratelimit"
)

// HTTPDoer is the slice of *http.Client the crawl plumbing relies on.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// EndpointSettings describes one remote endpoint family: at most Calls
// requests may start within any Window-long interval, and failed requests
// back off per Backoff.
type EndpointSettings struct {
	// Name labels log lines and metrics for this endpoint.
	Name    string
	Calls   int
	Window  time.Duration
	Backoff Backoff
}

// Endpoint issues rate-limited HTTP requests against one remote endpoint
// family, retrying failures within the backoff budget. Every request that
// shares a rate limit must go through the same Endpoint value.
type Endpoint struct {
	name    string
	client  HTTPDoer
	limiter *ratelimit.Limiter
	delays  []time.Duration
}

func NewEndpoint(clk clock.Clock, client HTTPDoer, settings EndpointSettings) *Endpoint {
	return &Endpoint{
		name:    settings.Name,
		client:  client,
		limiter: ratelimit.New(clk, settings.Calls, settings.Window),
		delays:  settings.Backoff.Delays(),
	}
}

// Response is a fully drained HTTP response. Bodies on the crawled judges are
// small, so reading them eagerly keeps connection reuse simple.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type requestOptions struct {
	acceptStatuses []int
}

// RequestOption adjusts how a single request is judged.
type RequestOption func(*requestOptions)

// AcceptStatus marks non-2xx status codes that are meaningful answers for the
// caller, returned as regular responses instead of retried.
func AcceptStatus(statuses ...int) RequestOption {
	return func(o *requestOptions) {
		o.acceptStatuses = append(o.acceptStatuses, statuses...)
	}
}

// Get issues a rate-limited GET against the endpoint.
func (e *Endpoint) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return e.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}, opts...)
}

// PostForm issues a rate-limited form POST against the endpoint.
func (e *Endpoint) PostForm(ctx context.Context, url string, form url.Values, opts ...RequestOption) (*Response, error) {
	return e.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, opts...)
}

// do runs one logical request as a series of attempts. Each attempt acquires
// a fresh rate limit slot and builds a fresh *http.Request, since a request
// body cannot be replayed once sent.
func (e *Endpoint) do(ctx context.Context, build func() (*http.Request, error), opts ...RequestOption) (*Response, error) {
	options := &requestOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := logging.FromContext(ctx).With("endpoint", e.name)

	var response *Response
	err := retry.Do(func() error {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := build()
		if err != nil {
			return fmt.Errorf("building request, %w", err)
		}
		resp, err := e.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending request, %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("reading response body, %w", err)
		}
		requestsTotal.WithLabelValues(e.name, strconv.Itoa(resp.StatusCode)).Inc()
		if !e.accepted(resp.StatusCode, options.acceptStatuses) {
			return &HTTPStatusError{StatusCode: resp.StatusCode, URL: req.URL.String()}
		}
		response = &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(uint(len(e.delays)+1)),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return e.delays[n]
		}),
		retry.OnRetry(func(n uint, err error) {
			requestFailuresTotal.WithLabelValues(e.name).Inc()
			logger.Debugw("request attempt failed", "attempt", n+1, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("requesting %s endpoint, %w", e.name, err)
	}
	return response, nil
}

func (e *Endpoint) accepted(status int, extra []int) bool {
	return (status >= 200 && status < 300) || lo.Contains(extra, status)
}
