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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/RealA10N/cccrawl/pkg/metrics"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP responses received, labeled by endpoint and status code.",
		},
		[]string{"endpoint", "status"},
	)
	requestFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "http",
			Name:      "request_failures_total",
			Help:      "Total failed request attempts, including attempts that were retried.",
		},
		[]string{"endpoint"},
	)
)

func init() {
	metrics.Registry.MustRegister(requestsTotal, requestFailuresTotal)
}
