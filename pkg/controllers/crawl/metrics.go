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

package crawl

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/RealA10N/cccrawl/pkg/metrics"
)

var (
	passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "crawl",
			Name:      "passes_total",
			Help:      "Total crawl passes, partitioned by platform and result.",
		},
		[]string{"platform", "result"},
	)
	passDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "crawl",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a single crawl pass over one integration.",
			Buckets:   metrics.DurationBuckets(),
		},
		[]string{"platform"},
	)
	submissionsDiscoveredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "crawl",
			Name:      "submissions_discovered_total",
			Help:      "Total submissions reported by discovery, including already collected ones.",
		},
		[]string{"platform"},
	)
	submissionsFinalizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "crawl",
			Name:      "submissions_finalized_total",
			Help:      "Total new submissions finalized and upserted.",
		},
		[]string{"platform"},
	)
)

func init() {
	metrics.Registry.MustRegister(passesTotal, passDurationSeconds, submissionsDiscoveredTotal, submissionsFinalizedTotal)
}
