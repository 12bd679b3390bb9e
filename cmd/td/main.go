// Copyright 2024 The testtargeting Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command td ranks a corpus of candidate test files by merging the
// opinions of the configured relevance heuristics.
package main

import (
	"context"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/flag/fixflagpos"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/gologger"
)

var logCfg = gologger.LoggerConfig{Out: os.Stderr}

func application() *cli.Application {
	return &cli.Application{
		Name:  "td",
		Title: "Target determination for pytest-style test corpora.",
		Context: func(ctx context.Context) context.Context {
			return logging.SetLevel(logCfg.Use(ctx), logging.Info)
		},
		Commands: []*subcommands.Command{
			cmdPrioritize(),
			cmdStats(),

			{}, // a separator
			subcommands.CmdHelp,
		},
	}
}

func main() {
	os.Exit(subcommands.Run(application(), fixflagpos.FixSubcommands(os.Args[1:])))
}
