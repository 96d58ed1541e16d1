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

package options

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"

	"go.uber.org/multierr"

	"github.com/RealA10N/cccrawl/pkg/utils/env"
)

// Options for running this binary
type Options struct {
	*flag.FlagSet
	// Cosmos
	CosmosEndpoint string
	CosmosKey      string
	EnvName        string
	// CSES session
	CsesUsername string
	CsesPassword string
	// Operational
	MetricsPort int
	LogLevel    string
}

// New creates an Options struct and registers CLI flags and environment
// variables to fill-in the Options struct fields
func New() *Options {
	opts := &Options{}
	f := flag.NewFlagSet("cccrawl", flag.ContinueOnError)
	opts.FlagSet = f

	f.StringVar(&opts.CosmosEndpoint, "cosmos-endpoint", env.WithDefaultString("COSMOS_ENDPOINT", ""), "The endpoint of the Cosmos DB account the crawler stores documents in")
	f.StringVar(&opts.CosmosKey, "cosmos-key", env.WithDefaultString("COSMOS_KEY", ""), "The key of the Cosmos DB account")
	f.StringVar(&opts.EnvName, "env-name", env.WithDefaultString("ENV_NAME", "dev"), "The environment name, used as the database name so environments never share state")
	f.StringVar(&opts.CsesUsername, "cses-username", env.WithDefaultString("CSES_USERNAME", ""), "The CSES account used to collect source code. Leave empty to crawl CSES anonymously")
	f.StringVar(&opts.CsesPassword, "cses-password", env.WithDefaultString("CSES_PASSWORD", ""), "The password of the CSES account")
	f.IntVar(&opts.MetricsPort, "metrics-port", env.WithDefaultInt("METRICS_PORT", 8080), "The port the metric and health endpoints bind to")
	f.StringVar(&opts.LogLevel, "log-level", env.WithDefaultString("LOG_LEVEL", "info"), "The minimum log level, one of debug, info, warn and error")
	return opts
}

// MustParse reads the user passed flags, environment variables, and default values.
// Options are validated and panics if an error is returned
func (o *Options) MustParse() *Options {
	err := o.Parse(os.Args[1:])

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		panic(err)
	}
	if err := o.Validate(); err != nil {
		panic(err)
	}
	return o
}

func (o Options) Validate() (err error) {
	err = multierr.Append(err, o.validateEndpoint())
	if o.CosmosKey == "" {
		err = multierr.Append(err, errors.New("COSMOS_KEY is required"))
	}
	if o.EnvName == "" {
		err = multierr.Append(err, errors.New("ENV_NAME may not be empty"))
	}
	if (o.CsesUsername == "") != (o.CsesPassword == "") {
		err = multierr.Append(err, errors.New("CSES_USERNAME and CSES_PASSWORD must be set together"))
	}
	if o.MetricsPort < 1 || o.MetricsPort > 65535 {
		err = multierr.Append(err, fmt.Errorf("metrics-port %d is not a valid port", o.MetricsPort))
	}
	return err
}

func (o Options) validateEndpoint() error {
	endpoint, err := url.Parse(o.CosmosEndpoint)
	// url.Parse() will accept a lot of input without error; make
	// sure it's a real URL
	if err != nil || !endpoint.IsAbs() || endpoint.Hostname() == "" {
		return fmt.Errorf("%q is not a valid COSMOS_ENDPOINT URL", o.CosmosEndpoint)
	}
	return nil
}
