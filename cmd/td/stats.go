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

package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"

	"github.com/vener91/testtargeting/priority"
)

func cmdStats() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: `stats -tests-file FILE [flags] TEST [TEST...]`,
		ShortDesc: "emit per-test prioritization metrics",
		LongDesc: text.Doc(`
			Emit the cross-heuristic metrics record for the named tests.

			Runs the configured heuristics over the candidate test list
			and prints one JSON record per requested test, suitable for
			an observability sink: baseline placement, per-heuristic
			placement, how many heuristics prioritized the test, and the
			heuristic that ranked it best.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &statsRun{}
			r.Flags.StringVar(&r.testsFile, "tests-file", "", "Path to the candidate test list, one test file per line.")
			r.heuristicFlags.register(&r.Flags)
			return r
		},
	}
}

type statsRun struct {
	baseCommandRun
	heuristicFlags
	testsFile string
}

func (r *statsRun) validate(args []string) error {
	switch {
	case r.testsFile == "":
		return errors.New("-tests-file is required")
	case len(args) == 0:
		return errors.New("at least one test name is required")
	}
	return nil
}

func (r *statsRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, r, env)
	if err := r.validate(args); err != nil {
		return r.done(ctx, err)
	}
	return r.done(ctx, r.run(ctx, args))
}

func (r *statsRun) run(ctx context.Context, testNames []string) error {
	tests, err := readLines(r.testsFile)
	if err != nil {
		return err
	}
	hs, err := r.heuristics()
	if err != nil {
		return err
	}

	aggregator, err := priority.Gather(ctx, tests, hs)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, name := range testNames {
		stats, err := aggregator.TestStats(ctx, name)
		if err != nil {
			return err
		}
		if err := enc.Encode(stats); err != nil {
			return err
		}
	}
	return nil
}
