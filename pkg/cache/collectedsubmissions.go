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

package cache

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"

	"github.com/RealA10N/cccrawl/pkg/models"
)

const (
	// CollectedSubmissionsTTL bounds how long a remembered id set may serve
	// passes before it is dropped and rebuilt from the store.
	CollectedSubmissionsTTL = 15 * time.Minute

	DefaultCleanupInterval = 5 * time.Minute
)

// CollectedSubmissions remembers, per integration, the submission ids that
// have already been finalized and upserted. Passes union it with the store's
// id query, so entries may be partial without affecting correctness; a hit
// only spares redundant finalizations.
type CollectedSubmissions struct {
	mu sync.Mutex
	// key: integration id, value: map[models.ID]struct{} of submission ids
	cache *cache.Cache
}

func NewCollectedSubmissions(c *cache.Cache) *CollectedSubmissions {
	return &CollectedSubmissions{cache: c}
}

// Get returns the remembered submission ids for the integration, nil when
// nothing is remembered.
func (c *CollectedSubmissions) Get(integrationID models.ID) []models.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, found := c.cache.Get(string(integrationID))
	if !found {
		return nil
	}
	return lo.Keys(entry.(map[models.ID]struct{}))
}

// Set replaces the remembered ids for the integration and refreshes its TTL.
func (c *CollectedSubmissions) Set(integrationID models.ID, submissionIDs []models.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make(map[models.ID]struct{}, len(submissionIDs))
	for _, id := range submissionIDs {
		ids[id] = struct{}{}
	}
	c.cache.SetDefault(string(integrationID), ids)
}

// Add remembers one more submission id for the integration. Safe for the
// concurrent finalizations of a single pass.
func (c *CollectedSubmissions) Add(integrationID models.ID, submissionID models.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := map[models.ID]struct{}{}
	if entry, found := c.cache.Get(string(integrationID)); found {
		ids = entry.(map[models.ID]struct{})
	}
	ids[submissionID] = struct{}{}
	// Set again even when the key exists to extend the entry's TTL.
	c.cache.SetDefault(string(integrationID), ids)
}
