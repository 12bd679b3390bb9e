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
	"fmt"
	"os"

	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/data/text"
	"go.chromium.org/luci/common/errors"

	"github.com/vener91/testtargeting/priority"
	"github.com/vener91/testtargeting/selection"
)

func cmdPrioritize() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: `prioritize -tests-file FILE [flags]`,
		ShortDesc: "rank the candidate tests",
		LongDesc: text.Doc(`
			Rank the candidate tests using the configured heuristics.

			Reads the candidate test files (one per line) and prints them
			most relevant first, one "file<TAB>pytest-filter" pair per
			line, or as JSON with -json. The filter is empty for tests
			running their whole file.
		`),
		CommandRun: func() subcommands.CommandRun {
			r := &prioritizeRun{}
			r.Flags.StringVar(&r.testsFile, "tests-file", "", "Path to the candidate test list, one test file per line.")
			r.Flags.BoolVar(&r.jsonOutput, "json", false, "Emit the ranked tests as JSON.")
			r.heuristicFlags.register(&r.Flags)
			return r
		},
	}
}

type prioritizeRun struct {
	baseCommandRun
	heuristicFlags
	testsFile  string
	jsonOutput bool
}

func (r *prioritizeRun) validate() error {
	if r.testsFile == "" {
		return errors.New("-tests-file is required")
	}
	return nil
}

func (r *prioritizeRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, r, env)
	if err := r.validate(); err != nil {
		return r.done(ctx, err)
	}
	return r.done(ctx, r.run(ctx))
}

// rankedTest is one line of the JSON output.
type rankedTest struct {
	Test      string `json:"test"`
	Filter    string `json:"filter"`
	Relevance string `json:"relevance"`
}

func (r *prioritizeRun) run(ctx context.Context) error {
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
	merged, err := aggregator.AggregatedPriorities(ctx)
	if err != nil {
		return err
	}
	merged.LogSummary(ctx)

	ranked := make([]rankedTest, 0, len(tests))
	collect := func(tier []selection.Selection, relevance priority.Relevance) {
		for _, test := range tier {
			ranked = append(ranked, rankedTest{
				Test:      test.File(),
				Filter:    test.PytestFilter(),
				Relevance: relevance.String(),
			})
		}
	}
	collect(merged.HighRelevanceTests(), priority.High)
	collect(merged.ProbableRelevanceTests(), priority.Probable)
	collect(merged.UnrankedRelevanceTests(), priority.Unranked)

	if r.jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ranked)
	}
	for _, t := range ranked {
		fmt.Printf("%s\t%s\n", t.Test, t.Filter)
	}
	return nil
}
