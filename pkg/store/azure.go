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
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
)

// Containers holds the three container clients backing a CosmosStore.
type Containers struct {
	Configs      *azcosmos.ContainerClient
	Integrations *azcosmos.ContainerClient
	Submissions  *azcosmos.ContainerClient
}

// EnsureDatabase creates the environment's database and its containers when
// missing and returns clients for them. Every container is partitioned by the
// document id. Safe to run against an already provisioned account.
func EnsureDatabase(ctx context.Context, client *azcosmos.Client, databaseName string) (*Containers, error) {
	if _, err := client.CreateDatabase(ctx, azcosmos.DatabaseProperties{ID: databaseName}, nil); err != nil && !isConflict(err) {
		return nil, fmt.Errorf("creating database %q, %w", databaseName, err)
	}
	database, err := client.NewDatabase(databaseName)
	if err != nil {
		return nil, fmt.Errorf("resolving database %q, %w", databaseName, err)
	}

	containers := map[string]*azcosmos.ContainerClient{}
	for _, containerName := range []string{configsContainer, integrationsContainer, submissionsContainer} {
		if _, err := database.CreateContainer(ctx, azcosmos.ContainerProperties{
			ID: containerName,
			PartitionKeyDefinition: azcosmos.PartitionKeyDefinition{
				Paths: []string{"/id"},
			},
		}, nil); err != nil && !isConflict(err) {
			return nil, fmt.Errorf("creating container %q, %w", containerName, err)
		}
		container, err := database.NewContainer(containerName)
		if err != nil {
			return nil, fmt.Errorf("resolving container %q, %w", containerName, err)
		}
		containers[containerName] = container
	}
	return &Containers{
		Configs:      containers[configsContainer],
		Integrations: containers[integrationsContainer],
		Submissions:  containers[submissionsContainer],
	}, nil
}

func isConflict(err error) bool {
	responseError := &azcore.ResponseError{}
	return errors.As(err, &responseError) && responseError.StatusCode == http.StatusConflict
}
