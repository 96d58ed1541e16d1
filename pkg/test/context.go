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

// Package test provides builders and context helpers shared by the suite
// tests.
package test

import (
	"context"

	"github.com/onsi/ginkgo/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/RealA10N/cccrawl/pkg/operator/logging"
)

// ContextWithLogger returns a context whose logger writes to the Ginkgo
// writer, so crawl logs surface only for failing specs.
func ContextWithLogger() context.Context {
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(ginkgo.GinkgoWriter), zapcore.DebugLevel)
	return logging.WithLogger(context.Background(), zap.New(core).Sugar())
}
