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

package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/RealA10N/cccrawl/pkg/controllers/crawl"
	"github.com/RealA10N/cccrawl/pkg/operator"
	"github.com/RealA10N/cccrawl/pkg/operator/logging"
	"github.com/RealA10N/cccrawl/pkg/operator/options"
)

func main() {
	opts := options.New().MustParse()
	logger := logging.NewLogger(opts.LogLevel)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	op, err := operator.NewOperator(ctx, opts)
	if err != nil {
		logger.Fatalf("initializing, %v", err)
	}
	controller := crawl.NewController(op.Clock, op.Store, op.Cache, op.Crawlers)

	logger.With("env", opts.EnvName).Infof("starting the submission crawler")
	if err := op.Start(ctx, controller); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("running, %v", err)
	}
	logger.Infof("shut down")
}
