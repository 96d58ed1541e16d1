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
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// RoutedResponse is one canned answer for a routed URL.
type RoutedResponse struct {
	StatusCode int
	Body       string
	Header     http.Header
}

// RecordedRequest captures a request a fake client served, with the body
// fully drained.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// HTTPClient is a fake http.Client that serves canned responses from a route
// table keyed by method and URL. Responses routed to the same URL are served
// in order, and the final one keeps being served, so cycle tests can route a
// single response and crawl repeatedly. Requests to unrouted URLs fail.
type HTTPClient struct {
	mu     sync.Mutex
	routes map[string][]RoutedResponse

	Error    AtomicError
	Requests AtomicPtrSlice[RecordedRequest]
}

func NewHTTPClient() *HTTPClient {
	return &HTTPClient{routes: map[string][]RoutedResponse{}}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (c *HTTPClient) Reset() {
	c.mu.Lock()
	c.routes = map[string][]RoutedResponse{}
	c.mu.Unlock()
	c.Error.Reset()
	c.Requests.Reset()
}

func (c *HTTPClient) RouteResponse(method string, url string, responses ...RoutedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := routeKey(method, url)
	c.routes[key] = append(c.routes[key], responses...)
}

func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.Error.Get(); err != nil {
		return nil, err
	}
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
	}
	c.Requests.Add(&RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	c.mu.Lock()
	key := routeKey(req.Method, req.URL.String())
	queue, ok := c.routes[key]
	if !ok || len(queue) == 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("no response routed for %s", key)
	}
	routed := queue[0]
	if len(queue) > 1 {
		c.routes[key] = queue[1:]
	}
	c.mu.Unlock()

	header := routed.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", routed.StatusCode, http.StatusText(routed.StatusCode)),
		StatusCode:    routed.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader([]byte(routed.Body))),
		ContentLength: int64(len(routed.Body)),
		Request:       req,
	}, nil
}

// RequestsFor returns the recorded requests that hit the given method and
// URL, in arrival order.
func (c *HTTPClient) RequestsFor(method string, url string) []*RecordedRequest {
	var matched []*RecordedRequest
	c.Requests.ForEach(func(r *RecordedRequest) {
		if r.Method == method && r.URL == url {
			matched = append(matched, r)
		}
	})
	return matched
}

func routeKey(method string, url string) string {
	return fmt.Sprintf("%s %s", method, url)
}
