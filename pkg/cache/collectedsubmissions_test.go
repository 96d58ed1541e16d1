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

package cache_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	gocache "github.com/patrickmn/go-cache"

	"github.com/RealA10N/cccrawl/pkg/cache"
	"github.com/RealA10N/cccrawl/pkg/models"
)

var _ = Describe("CollectedSubmissions", func() {
	var collected *cache.CollectedSubmissions

	BeforeEach(func() {
		collected = cache.NewCollectedSubmissions(gocache.New(time.Minute, time.Minute))
	})

	It("should return nothing for an unknown integration", func() {
		Expect(collected.Get("unknown")).To(BeEmpty())
	})

	It("should remember the ids it was given", func() {
		collected.Set("integration-a", []models.ID{"s1", "s2"})
		Expect(collected.Get("integration-a")).To(ConsistOf(models.ID("s1"), models.ID("s2")))
		Expect(collected.Get("integration-b")).To(BeEmpty())
	})

	It("should extend an entry one id at a time", func() {
		collected.Set("integration-a", []models.ID{"s1"})
		collected.Add("integration-a", "s2")
		collected.Add("integration-a", "s2")
		Expect(collected.Get("integration-a")).To(ConsistOf(models.ID("s1"), models.ID("s2")))
	})

	It("should start a fresh entry when adding to an unknown integration", func() {
		collected.Add("integration-a", "s1")
		Expect(collected.Get("integration-a")).To(ConsistOf(models.ID("s1")))
	})

	It("should keep ids added concurrently", func() {
		ids := []models.ID{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8"}
		var wg sync.WaitGroup
		for _, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				collected.Add("integration-a", id)
			}()
		}
		wg.Wait()
		Expect(collected.Get("integration-a")).To(HaveLen(len(ids)))
	})

	It("should forget entries once their TTL passes", func() {
		collected = cache.NewCollectedSubmissions(gocache.New(10*time.Millisecond, time.Minute))
		collected.Set("integration-a", []models.ID{"s1"})
		Eventually(func() []models.ID {
			return collected.Get("integration-a")
		}).Should(BeEmpty())
	})
})
