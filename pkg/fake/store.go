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
	"sync"

	"github.com/RealA10N/cccrawl/pkg/models"
)

// StoreBehavior must be reset between tests otherwise tests will
// pollute each other.
type StoreBehavior struct {
	CollectedSubmissionIDsError AtomicError
	UpsertSubmissionError       AtomicError
	UpsertIntegrationError      AtomicError
	UpsertConfigError           AtomicError

	UpsertedSubmissions  AtomicPtrSlice[models.Submission]
	UpsertedIntegrations AtomicPtrSlice[models.AnyIntegration]
	UpsertedConfigs      AtomicPtrSlice[models.UserConfig]
}

// Store is an in-memory stand-in for the Cosmos store. Integrations set by
// the test are cycled a bounded number of times so crawl loops driven by the
// fake terminate, and collected submission ids reflect the seeded ids plus
// everything upserted through the fake.
type Store struct {
	StoreBehavior

	// MaxCycles bounds CycleIntegrations. Zero means a single cycle.
	MaxCycles int

	mu           sync.Mutex
	integrations []models.AnyIntegration
	collectedIDs map[models.ID][]models.ID
}

func NewStore() *Store {
	return &Store{collectedIDs: map[models.ID][]models.ID{}}
}

// Reset must be called between tests otherwise tests will pollute
// each other.
func (s *Store) Reset() {
	s.CollectedSubmissionIDsError.Reset()
	s.UpsertSubmissionError.Reset()
	s.UpsertIntegrationError.Reset()
	s.UpsertConfigError.Reset()
	s.UpsertedSubmissions.Reset()
	s.UpsertedIntegrations.Reset()
	s.UpsertedConfigs.Reset()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.MaxCycles = 0
	s.integrations = nil
	s.collectedIDs = map[models.ID][]models.ID{}
}

func (s *Store) SetIntegrations(integrations ...models.AnyIntegration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.integrations = append([]models.AnyIntegration{}, integrations...)
}

// SeedCollectedIDs marks submission ids as already stored for the
// integration.
func (s *Store) SeedCollectedIDs(integrationID models.ID, submissionIDs ...models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectedIDs[integrationID] = append(s.collectedIDs[integrationID], submissionIDs...)
}

func (s *Store) CycleIntegrations(ctx context.Context) <-chan models.AnyIntegration {
	out := make(chan models.AnyIntegration)
	go func() {
		defer close(out)
		for range max(s.MaxCycles, 1) {
			for _, integration := range s.snapshotIntegrations() {
				select {
				case out <- integration:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (s *Store) CollectedSubmissionIDs(_ context.Context, integrationID models.ID) ([]models.ID, error) {
	if err := s.CollectedSubmissionIDsError.Get(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	ids := append([]models.ID{}, s.collectedIDs[integrationID]...)
	s.mu.Unlock()
	s.UpsertedSubmissions.ForEach(func(submission *models.Submission) {
		if submission.Integration.ID() == integrationID {
			ids = append(ids, submission.ID())
		}
	})
	return ids, nil
}

func (s *Store) UpsertSubmission(_ context.Context, submission *models.Submission) error {
	if err := s.UpsertSubmissionError.Get(); err != nil {
		return err
	}
	s.UpsertedSubmissions.Add(submission)
	return nil
}

func (s *Store) UpsertIntegration(_ context.Context, integration models.AnyIntegration) error {
	if err := s.UpsertIntegrationError.Get(); err != nil {
		return err
	}
	s.UpsertedIntegrations.Add(&integration)
	return nil
}

func (s *Store) UpsertConfig(_ context.Context, config *models.UserConfig) error {
	if err := s.UpsertConfigError.Get(); err != nil {
		return err
	}
	s.UpsertedConfigs.Add(config)
	return nil
}

func (s *Store) snapshotIntegrations() []models.AnyIntegration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AnyIntegration{}, s.integrations...)
}
