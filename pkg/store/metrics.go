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

package store

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/RealA10N/cccrawl/pkg/metrics"
)

var (
	upsertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "store",
			Name:      "upserts_total",
			Help:      "Total documents upserted, labeled by container.",
		},
		[]string{"container"},
	)
	cyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "store",
			Name:      "integration_cycles_total",
			Help:      "Total integration listing cycles started.",
		},
	)
)

func init() {
	metrics.Registry.MustRegister(upsertsTotal, cyclesTotal)
}
