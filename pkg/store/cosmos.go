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
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"k8s.io/utils/clock"

	"github.com/RealA10N/cccrawl/pkg/models"
	"github.com/RealA10N/cccrawl/pkg/operator/logging"
	"github.com/RealA10N/cccrawl/pkg/utils/pretty"
)

const (
	configsContainer      = "configs"
	integrationsContainer = "integrations"
	submissionsContainer  = "submissions"

	// cycleRetryDelay paces integration listing retries after a failed query
	// and idle cycles over an empty store.
	cycleRetryDelay = 10 * time.Second

	collectedIDsQuery = "SELECT c.id FROM c WHERE c.integration.id = @integrationId"
)

// CosmosContainerAPI is the slice of *azcosmos.ContainerClient the store
// uses.
type CosmosContainerAPI interface {
	UpsertItem(ctx context.Context, partitionKey azcosmos.PartitionKey, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	NewQueryItemsPager(query string, partitionKey azcosmos.PartitionKey, o *azcosmos.QueryOptions) *runtime.Pager[azcosmos.QueryItemsResponse]
}

// CosmosStore keeps every document in the container matching its model kind,
// partitioned by the model's content-addressed id. Upserting a document with
// an unchanged id is a no-op rewrite, which is what makes the crawl loop's
// re-finalizations harmless.
type CosmosStore struct {
	clock clock.Clock
	cm    *pretty.ChangeMonitor

	configs      CosmosContainerAPI
	integrations CosmosContainerAPI
	submissions  CosmosContainerAPI
}

func NewCosmosStore(clk clock.Clock, configs CosmosContainerAPI, integrations CosmosContainerAPI, submissions CosmosContainerAPI) *CosmosStore {
	return &CosmosStore{
		clock:        clk,
		cm:           pretty.NewChangeMonitor(),
		configs:      configs,
		integrations: integrations,
		submissions:  submissions,
	}
}

func (s *CosmosStore) CycleIntegrations(ctx context.Context) <-chan models.AnyIntegration {
	out := make(chan models.AnyIntegration)
	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			logging.FromContext(ctx).Infof("fetching all integrations (new cycle started)")
			cyclesTotal.Inc()
			integrations, err := s.listIntegrations(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logging.FromContext(ctx).With("error", err).Errorf("listing integrations")
				if !s.sleep(ctx, cycleRetryDelay) {
					return
				}
				continue
			}
			if s.cm.HasChanged("integrations", integrations) {
				logging.FromContext(ctx).With("count", len(integrations)).Infof("discovered integrations")
			}
			for _, integration := range integrations {
				select {
				case out <- integration:
				case <-ctx.Done():
					return
				}
			}
			// An empty store would otherwise spin on back-to-back queries.
			if len(integrations) == 0 && !s.sleep(ctx, cycleRetryDelay) {
				return
			}
		}
	}()
	return out
}

func (s *CosmosStore) listIntegrations(ctx context.Context) ([]models.AnyIntegration, error) {
	// The integration documents span partitions, so the query runs
	// cross-partition with an unset partition key.
	pager := s.integrations.NewQueryItemsPager("SELECT * FROM c", azcosmos.PartitionKey{}, nil)
	var integrations []models.AnyIntegration
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying integrations, %w", err)
		}
		for _, item := range page.Items {
			integration := models.AnyIntegration{}
			if err := json.Unmarshal(item, &integration); err != nil {
				return nil, fmt.Errorf("decoding integration, %w", err)
			}
			integrations = append(integrations, integration)
		}
	}
	return integrations, nil
}

func (s *CosmosStore) CollectedSubmissionIDs(ctx context.Context, integrationID models.ID) ([]models.ID, error) {
	pager := s.submissions.NewQueryItemsPager(collectedIDsQuery, azcosmos.PartitionKey{}, &azcosmos.QueryOptions{
		QueryParameters: []azcosmos.QueryParameter{{Name: "@integrationId", Value: string(integrationID)}},
	})
	var ids []models.ID
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying collected submission ids, %w", err)
		}
		for _, item := range page.Items {
			row := struct {
				ID models.ID `json:"id"`
			}{}
			if err := json.Unmarshal(item, &row); err != nil {
				return nil, fmt.Errorf("decoding submission id, %w", err)
			}
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

func (s *CosmosStore) UpsertSubmission(ctx context.Context, submission *models.Submission) error {
	logging.FromContext(ctx).With("submission-id", submission.ID()).Infof("upserting submission")
	return s.upsert(ctx, s.submissions, submissionsContainer, submission.ID(), submission)
}

func (s *CosmosStore) UpsertIntegration(ctx context.Context, integration models.AnyIntegration) error {
	return s.upsert(ctx, s.integrations, integrationsContainer, integration.ID(), integration)
}

func (s *CosmosStore) UpsertConfig(ctx context.Context, config *models.UserConfig) error {
	return s.upsert(ctx, s.configs, configsContainer, config.ID(), config)
}

func (s *CosmosStore) upsert(ctx context.Context, container CosmosContainerAPI, containerName string, id models.ID, item any) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding item %s, %w", id, err)
	}
	if _, err := container.UpsertItem(ctx, azcosmos.NewPartitionKeyString(string(id)), payload, nil); err != nil {
		return fmt.Errorf("upserting item %s, %w", id, err)
	}
	upsertsTotal.WithLabelValues(containerName).Inc()
	return nil
}

// sleep waits for the delay on the injected clock, returning false when the
// context ends first.
func (s *CosmosStore) sleep(ctx context.Context, delay time.Duration) bool {
	timer := s.clock.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C():
		return true
	}
}
