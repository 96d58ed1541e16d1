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

// Package store persists users, integrations and submissions in Azure Cosmos
// DB and feeds the crawl loop its endless round-robin of integrations.
package store

import (
	"context"

	"github.com/RealA10N/cccrawl/pkg/models"
)

// Store is the persistence surface the crawl loop runs against.
type Store interface {
	// CycleIntegrations returns a channel that yields every stored
	// integration, over and over, for as long as the context lives. Each
	// cycle re-reads the store, so integrations added or removed between
	// cycles take effect on the next one. The channel closes when the
	// context is done.
	CycleIntegrations(ctx context.Context) <-chan models.AnyIntegration

	// CollectedSubmissionIDs returns the ids of all submissions already
	// stored for the integration.
	CollectedSubmissionIDs(ctx context.Context, integrationID models.ID) ([]models.ID, error)

	UpsertSubmission(ctx context.Context, submission *models.Submission) error
	UpsertIntegration(ctx context.Context, integration models.AnyIntegration) error
	UpsertConfig(ctx context.Context, config *models.UserConfig) error
}
