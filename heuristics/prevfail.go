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

// Package heuristics implements the built-in relevance heuristics.
//
// Each heuristic is an independent signal source satisfying
// priority.Heuristic. They own whatever I/O their signal needs; the
// prioritization core stays pure.
package heuristics

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/vener91/testtargeting/priority"
)

// PreviouslyFailed ranks tests that failed on the previous run of this
// change as highly relevant.
type PreviouslyFailed struct {
	// CachePath points at the pytest lastfailed cache: a JSON object
	// whose keys are selector strings of the form
	// "path/test_file.py::Class::test[params]" and whose values record
	// whether the selector failed.
	CachePath string
}

// Name implements priority.Heuristic.
func (h *PreviouslyFailed) Name() string { return "previously_failed" }

// PrioritiesFor implements priority.Heuristic.
func (h *PreviouslyFailed) PrioritiesFor(ctx context.Context, tests []string) (*priority.Prioritization, error) {
	failing, err := h.previouslyFailingTests(ctx)
	if err != nil {
		return nil, err
	}
	high := failing.Intersect(stringset.NewFromSlice(tests...)).ToSortedSlice()
	return priority.NewPrioritization(ctx, tests, priority.Ranks{High: high})
}

// previouslyFailingTests reads the cache and reduces its selectors to
// the set of failing test files. A missing cache simply means nothing
// failed before.
func (h *PreviouslyFailed) previouslyFailingTests(ctx context.Context) (stringset.Set, error) {
	blob, err := os.ReadFile(h.CachePath)
	switch {
	case os.IsNotExist(err):
		logging.Debugf(ctx, "no previous failure cache at %s", h.CachePath)
		return stringset.New(0), nil
	case err != nil:
		return nil, errors.Fmt("reading previous failure cache: %w", err)
	}

	var lastFailed map[string]bool
	if err := json.Unmarshal(blob, &lastFailed); err != nil {
		return nil, errors.Fmt("parsing previous failure cache %s: %w", h.CachePath, err)
	}

	failing := stringset.New(len(lastFailed))
	for selector, failed := range lastFailed {
		if !failed {
			continue
		}
		if stem := testFileStem(selector); stem != "" {
			failing.Add(stem)
		}
	}
	return failing, nil
}

// testFileStem reduces a selector or path like
// "test/test_car.py::TestCar::test_num[17]" to the test file name it
// belongs to, "test_car". Returns "" if there is no file component.
func testFileStem(selector string) string {
	path := selector
	if i := strings.Index(path, "::"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(path), ".py")
	if base == "." || base == "/" {
		return ""
	}
	return base
}
