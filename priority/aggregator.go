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

package priority

import (
	"context"
	"math"
	"slices"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
)

// Aggregator collects the Prioritizations produced by the individual
// heuristics and folds them into one.
//
// Registration order is preserved. It does not change the merged tiers
// (integration only raises, so the result is the per-test supremum of
// all opinions), but it does decide which heuristic gets credited on a
// stats tie.
//
// An Aggregator is built once per run, registered into incrementally,
// queried, and discarded.
type Aggregator struct {
	unrankedTests []string
	names         []string
	results       map[string]*Prioritization
}

// NewAggregator creates an Aggregator over the given candidate test
// files.
func NewAggregator(tests []string) *Aggregator {
	return &Aggregator{
		unrankedTests: slices.Clone(tests),
		results:       map[string]*Prioritization{},
	}
}

// AddHeuristicResults registers one heuristic's Prioritization.
//
// The heuristic contract requires the result to rank exactly the tests
// the Aggregator was created with; that is validated here rather than
// trusted. Registering the same heuristic name twice is an error.
func (a *Aggregator) AddHeuristicResults(name string, results *Prioritization) error {
	if _, ok := a.results[name]; ok {
		return errors.Fmt("already have results for heuristic %q", name)
	}
	if !setsEqual(results.originalTests, stringset.NewFromSlice(a.unrankedTests...)) {
		return errors.Fmt("heuristic %q ranked a different set of tests than it was given", name)
	}
	a.names = append(a.names, name)
	a.results[name] = results
	return nil
}

// AggregatedPriorities folds all registered results into a single
// Prioritization by integrating them, in registration order, into a
// fresh all-Unranked partition.
func (a *Aggregator) AggregatedPriorities(ctx context.Context) (*Prioritization, error) {
	aggregated, err := NewPrioritization(ctx, a.unrankedTests, Ranks{})
	if err != nil {
		return nil, err
	}
	for _, name := range a.names {
		if err := aggregated.IntegratePriorities(ctx, a.results[name]); err != nil {
			return nil, errors.Fmt("integrating results of heuristic %q: %w", name, err)
		}
	}
	return aggregated, nil
}

// TestStats is the per-test cross-heuristic metrics record handed to
// the observability sink.
type TestStats struct {
	TestName string `json:"test_name"`

	// WithoutHeuristics is the baseline placement of the test assuming
	// no heuristic ran at all.
	WithoutHeuristics *PriorityInfo `json:"without_heuristics"`

	// Heuristics holds one placement per registered heuristic, in
	// registration order.
	Heuristics []*PriorityInfo `json:"heuristics"`

	// NumHeuristicsPrioritizedBy counts the heuristics that placed the
	// test at High or Probable relevance.
	NumHeuristicsPrioritizedBy int `json:"num_heuristics_prioritized_by"`

	// Aggregated is the test's placement in the merged Prioritization.
	Aggregated *PriorityInfo `json:"aggregated"`

	// HighestRankingHeuristic is the heuristic that gave the test the
	// best overall rank among those that prioritized it, ties broken by
	// registration order. Empty if no heuristic prioritized the test.
	HighestRankingHeuristic string `json:"highest_ranking_heuristic,omitempty"`
}

// TestStats computes the aggregated statistics for the given test.
func (a *Aggregator) TestStats(ctx context.Context, test string) (*TestStats, error) {
	stats := &TestStats{TestName: test}

	// Baseline: where the test would sit if no heuristics ran.
	baseline, err := NewPrioritization(ctx, a.unrankedTests, Ranks{})
	if err != nil {
		return nil, err
	}
	if stats.WithoutHeuristics, err = baseline.PriorityInfoForTest(test); err != nil {
		return nil, err
	}
	stats.WithoutHeuristics.HeuristicName = "baseline"

	// An unranked heuristic can report a better overall rank than a
	// prioritizing one just because of the test's position in the input
	// list, so only heuristics that actually prioritized the test
	// compete for HighestRankingHeuristic.
	bestRank := math.MaxInt
	for _, name := range a.names {
		results := a.results[name]
		level, info, err := results.priorityInfo(test)
		if err != nil {
			return nil, err
		}
		info.HeuristicName = name
		stats.Heuristics = append(stats.Heuristics, info)

		if level == High || level == Probable {
			stats.NumHeuristicsPrioritizedBy++
			if info.OrderOverall < bestRank {
				bestRank = info.OrderOverall
				stats.HighestRankingHeuristic = name
			}
		}
	}

	aggregated, err := a.AggregatedPriorities(ctx)
	if err != nil {
		return nil, err
	}
	if stats.Aggregated, err = aggregated.PriorityInfoForTest(test); err != nil {
		return nil, err
	}
	return stats, nil
}
