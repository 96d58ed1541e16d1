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
	"errors"
	"fmt"
)

// CrawlerError marks a condition fatal for the integration's current pass:
// the integration is misconfigured (unknown handle or user) or the judge's
// page schema changed. Transport hiccups are never CrawlerErrors and stay
// retryable.
type CrawlerError struct {
	error
}

func NewCrawlerError(err error) error {
	if err == nil {
		return nil
	}
	return &CrawlerError{error: err}
}

func NewCrawlerErrorf(format string, args ...any) error {
	return &CrawlerError{error: fmt.Errorf(format, args...)}
}

func (e *CrawlerError) Unwrap() error { return e.error }

func IsCrawlerError(err error) bool {
	if err == nil {
		return false
	}
	crawlerError := &CrawlerError{}
	return errors.As(err, &crawlerError)
}

// HTTPStatusError reports a response status outside the endpoint's accepted
// set. The endpoint treats it as transient and retries within the backoff
// budget before surfacing it.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %q", e.StatusCode, e.URL)
}

func IsHTTPStatusError(err error) bool {
	if err == nil {
		return false
	}
	statusError := &HTTPStatusError{}
	return errors.As(err, &statusError)
}
