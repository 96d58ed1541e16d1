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
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

type UpsertItemInput struct {
	Item []byte
}

// CosmosContainerBehavior must be reset between tests otherwise tests will
// pollute each other.
type CosmosContainerBehavior struct {
	UpsertItemBehavior MockedFunction[UpsertItemInput, azcosmos.ItemResponse]
	QueryItemsError    AtomicError
}

// CosmosContainer fakes one Cosmos container: upserted documents land in an
// in-memory map keyed by their id field, and the two query shapes the store
// issues are answered from that map.
type CosmosContainer struct {
	CosmosContainerBehavior

	mu   sync.Mutex
	docs map[string]json.RawMessage
}

func NewCosmosContainer() *CosmosContainer {
	return &CosmosContainer{docs: map[string]json.RawMessage{}}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (c *CosmosContainer) Reset() {
	c.UpsertItemBehavior.Reset()
	c.QueryItemsError.Reset()
	c.mu.Lock()
	c.docs = map[string]json.RawMessage{}
	c.mu.Unlock()
}

// SeedItem stores a document without counting as an upsert call.
func (c *CosmosContainer) SeedItem(item []byte) error {
	return c.storeItem(item)
}

// Document returns the stored document with the given id.
func (c *CosmosContainer) Document(id string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	return doc, ok
}

func (c *CosmosContainer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

func (c *CosmosContainer) UpsertItem(_ context.Context, _ azcosmos.PartitionKey, item []byte, _ *azcosmos.ItemOptions) (azcosmos.ItemResponse, error) {
	out, err := c.UpsertItemBehavior.Invoke(&UpsertItemInput{Item: item}, func(input *UpsertItemInput) (*azcosmos.ItemResponse, error) {
		if err := c.storeItem(input.Item); err != nil {
			return nil, err
		}
		return &azcosmos.ItemResponse{}, nil
	})
	if err != nil {
		return azcosmos.ItemResponse{}, err
	}
	return *out, nil
}

func (c *CosmosContainer) NewQueryItemsPager(query string, _ azcosmos.PartitionKey, o *azcosmos.QueryOptions) *runtime.Pager[azcosmos.QueryItemsResponse] {
	fetched := false
	return runtime.NewPager(runtime.PagingHandler[azcosmos.QueryItemsResponse]{
		More: func(azcosmos.QueryItemsResponse) bool {
			return !fetched
		},
		Fetcher: func(context.Context, *azcosmos.QueryItemsResponse) (azcosmos.QueryItemsResponse, error) {
			fetched = true
			if err := c.QueryItemsError.Get(); err != nil {
				return azcosmos.QueryItemsResponse{}, err
			}
			items, err := c.queryItems(query, o)
			if err != nil {
				return azcosmos.QueryItemsResponse{}, err
			}
			return azcosmos.QueryItemsResponse{Items: items}, nil
		},
	})
}

func (c *CosmosContainer) storeItem(item []byte) error {
	doc := struct {
		ID string `json:"id"`
	}{}
	if err := json.Unmarshal(item, &doc); err != nil {
		return fmt.Errorf("decoding item, %w", err)
	}
	if doc.ID == "" {
		return fmt.Errorf("item has no id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[doc.ID] = append(json.RawMessage{}, item...)
	return nil
}

// queryItems answers the two query shapes the store issues: listing every
// document, and projecting the ids of submissions owned by one integration.
func (c *CosmosContainer) queryItems(query string, o *azcosmos.QueryOptions) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if !strings.Contains(query, "WHERE") {
		var items [][]byte
		for _, id := range ids {
			items = append(items, c.docs[id])
		}
		return items, nil
	}

	integrationID, err := queryParameter(o, "@integrationId")
	if err != nil {
		return nil, err
	}
	var items [][]byte
	for _, id := range ids {
		doc := struct {
			Integration struct {
				ID string `json:"id"`
			} `json:"integration"`
		}{}
		if err := json.Unmarshal(c.docs[id], &doc); err != nil {
			return nil, fmt.Errorf("decoding document %s, %w", id, err)
		}
		if doc.Integration.ID != integrationID {
			continue
		}
		projected, err := json.Marshal(map[string]string{"id": id})
		if err != nil {
			return nil, err
		}
		items = append(items, projected)
	}
	return items, nil
}

func queryParameter(o *azcosmos.QueryOptions, name string) (string, error) {
	if o == nil {
		return "", fmt.Errorf("query options carry no parameters")
	}
	for _, parameter := range o.QueryParameters {
		if parameter.Name == name {
			if value, ok := parameter.Value.(string); ok {
				return value, nil
			}
			return "", fmt.Errorf("parameter %s is not a string", name)
		}
	}
	return "", fmt.Errorf("parameter %s is not set", name)
}
