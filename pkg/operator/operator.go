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

// Package operator wires the crawler's collaborators at startup and owns the
// process surface: the operational HTTP endpoints and the crawl loop's
// lifecycle.
package operator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/RealA10N/cccrawl/pkg/cache"
	"github.com/RealA10N/cccrawl/pkg/controllers/crawl"
	"github.com/RealA10N/cccrawl/pkg/crawlers"
	"github.com/RealA10N/cccrawl/pkg/crawlers/codeforces"
	"github.com/RealA10N/cccrawl/pkg/crawlers/cses"
	"github.com/RealA10N/cccrawl/pkg/metrics"
	"github.com/RealA10N/cccrawl/pkg/models"
	"github.com/RealA10N/cccrawl/pkg/operator/logging"
	"github.com/RealA10N/cccrawl/pkg/operator/options"
	"github.com/RealA10N/cccrawl/pkg/store"
	"github.com/RealA10N/cccrawl/pkg/uploaders"
)

// requestTimeout caps any single request to a judge or the paste service.
// Retries and rate limit waits live above this timeout, not inside it.
const requestTimeout = 30 * time.Second

// Operator exposes the shared components initialized at startup.
type Operator struct {
	Clock    clock.Clock
	Store    store.Store
	Cache    *cache.CollectedSubmissions
	Crawlers map[models.Platform]crawlers.Crawler

	MetricsPort int
}

// NewOperator builds every collaborator of the crawl loop: the shared HTTP
// client with one cookie jar for all judges, the Cosmos store with its
// database and containers ensured, the paste uploader and the per-platform
// crawlers.
func NewOperator(ctx context.Context, opts *options.Options) (*Operator, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("building cookie jar, %w", err)
	}
	client := &http.Client{
		Timeout: requestTimeout,
		Jar:     jar,
		// Judges signal state with redirects (CSES login, non-public
		// Codeforces submissions), so responses are inspected, never
		// followed.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	credential, err := azcosmos.NewKeyCredential(opts.CosmosKey)
	if err != nil {
		return nil, fmt.Errorf("building cosmos credential, %w", err)
	}
	cosmosClient, err := azcosmos.NewClientWithKey(opts.CosmosEndpoint, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("building cosmos client, %w", err)
	}
	containers, err := store.EnsureDatabase(ctx, cosmosClient, opts.EnvName)
	if err != nil {
		return nil, fmt.Errorf("ensuring database %q, %w", opts.EnvName, err)
	}

	clk := clock.RealClock{}
	toolkit := crawlers.Toolkit{
		Client:   client,
		Uploader: uploaders.NewIttyUploader(client, uploaders.DefaultKeyLength, uploaders.DefaultTTL),
	}
	return &Operator{
		Clock: clk,
		Store: store.NewCosmosStore(clk, containers.Configs, containers.Integrations, containers.Submissions),
		Cache: cache.NewCollectedSubmissions(gocache.New(cache.CollectedSubmissionsTTL, cache.DefaultCleanupInterval)),
		Crawlers: map[models.Platform]crawlers.Crawler{
			models.PlatformCodeforces: codeforces.NewCrawler(clk, toolkit, codeforces.DefaultSettings()),
			models.PlatformCses: cses.NewCrawler(clk, toolkit, cses.Credentials{
				Username: opts.CsesUsername,
				Password: opts.CsesPassword,
			}, cses.DefaultSettings()),
		},
		MetricsPort: opts.MetricsPort,
	}, nil
}

// Start serves the operational endpoints, loads every crawler and hands the
// process to the crawl loop until the context ends. A failed load aborts
// startup: a crawler that cannot initialize would fail every single pass.
func (o *Operator) Start(ctx context.Context, controller *crawl.Controller) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: fmt.Sprintf(":%d", o.MetricsPort), Handler: mux}
	group.Go(func() error {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving operational endpoints, %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		return server.Shutdown(context.Background())
	})

	group.Go(func() error {
		// The loop ending for any reason takes the endpoints down with it.
		defer cancel()
		if err := o.loadCrawlers(ctx); err != nil {
			return err
		}
		logging.FromContext(ctx).Infof("starting the crawl loop")
		return controller.Run(ctx)
	})
	return group.Wait()
}

func (o *Operator) loadCrawlers(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for platform, crawler := range o.Crawlers {
		group.Go(func() error {
			if err := crawler.Load(ctx); err != nil {
				return fmt.Errorf("loading %s crawler, %w", platform, err)
			}
			return nil
		})
	}
	return group.Wait()
}
