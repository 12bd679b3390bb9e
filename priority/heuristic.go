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

	"golang.org/x/sync/errgroup"

	"go.chromium.org/luci/common/errors"
)

// Heuristic is one independent relevance signal.
//
// A heuristic ranks the candidate tests without knowing about any other
// heuristic; the Aggregator reconciles the opinions. Implementations
// may read files, history caches or version control, hence the context.
type Heuristic interface {
	// Name identifies the heuristic in the aggregation registry and in
	// metrics. Must be unique within one run.
	Name() string

	// PrioritiesFor ranks the given candidate test files. The returned
	// Prioritization must rank exactly that set of tests; the caller
	// validates this rather than trusting it.
	PrioritiesFor(ctx context.Context, tests []string) (*Prioritization, error)
}

// Gather runs every heuristic over the candidate tests and returns an
// Aggregator with all results registered.
//
// Heuristics run concurrently since they may do I/O, but results are
// registered in the order heuristics were given, keeping the stats
// tie-break deterministic.
func Gather(ctx context.Context, tests []string, heuristics []Heuristic) (*Aggregator, error) {
	results := make([]*Prioritization, len(heuristics))
	eg, ectx := errgroup.WithContext(ctx)
	for i, h := range heuristics {
		eg.Go(func() error {
			res, err := h.PrioritiesFor(ectx, tests)
			if err != nil {
				return errors.Fmt("heuristic %q: %w", h.Name(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	aggregator := NewAggregator(tests)
	for i, h := range heuristics {
		if err := aggregator.AddHeuristicResults(h.Name(), results[i]); err != nil {
			return nil, err
		}
	}
	return aggregator, nil
}
