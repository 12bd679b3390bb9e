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

package heuristics

import (
	"context"
	"encoding/json"
	"os"
	"sort"

	"go.chromium.org/luci/common/data/sortby"
	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"

	"github.com/vener91/testtargeting/priority"
)

// HistoricalCorrelation ranks tests whose past failures correlated with
// changes like this one as probably relevant.
type HistoricalCorrelation struct {
	// RatingsPath points at a JSON object mapping test file names to
	// failure-correlation ratings (higher means more correlated). The
	// ratings are produced offline by an external pipeline.
	RatingsPath string
}

// Name implements priority.Heuristic.
func (h *HistoricalCorrelation) Name() string { return "historical_correlation" }

// PrioritiesFor implements priority.Heuristic.
func (h *HistoricalCorrelation) PrioritiesFor(ctx context.Context, tests []string) (*priority.Prioritization, error) {
	blob, err := os.ReadFile(h.RatingsPath)
	if err != nil {
		return nil, errors.Fmt("reading failure ratings: %w", err)
	}
	var ratings map[string]float64
	if err := json.Unmarshal(blob, &ratings); err != nil {
		return nil, errors.Fmt("parsing failure ratings %s: %w", h.RatingsPath, err)
	}

	known := stringset.NewFromSlice(tests...)
	rated := make([]string, 0, len(ratings))
	for test := range ratings {
		if known.Has(test) {
			rated = append(rated, test)
		}
	}
	// Best-correlated first; alphabetical within equal ratings so the
	// resulting tier order is reproducible.
	sort.Slice(rated, sortby.Chain{
		func(i, j int) bool { return ratings[rated[i]] > ratings[rated[j]] },
		func(i, j int) bool { return rated[i] < rated[j] },
	}.Use)

	return priority.NewPrioritization(ctx, tests, priority.Ranks{Probable: rated})
}
