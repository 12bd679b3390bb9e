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

	"go.chromium.org/luci/common/data/stringset"

	"github.com/vener91/testtargeting/priority"
)

// EditedTests ranks test files touched by the change itself as highly
// relevant: an edited test is the most direct statement of intent a
// change can make.
type EditedTests struct {
	// ChangedFiles lists the paths touched by the change, as reported by
	// the version control system (e.g. `git diff --name-only`). The
	// caller owns the VCS invocation.
	ChangedFiles []string
}

// Name implements priority.Heuristic.
func (h *EditedTests) Name() string { return "edited_tests" }

// PrioritiesFor implements priority.Heuristic.
func (h *EditedTests) PrioritiesFor(ctx context.Context, tests []string) (*priority.Prioritization, error) {
	changed := stringset.New(len(h.ChangedFiles))
	for _, path := range h.ChangedFiles {
		if stem := testFileStem(path); stem != "" {
			changed.Add(stem)
		}
	}
	// Only changed files that are candidate tests matter.
	high := changed.Intersect(stringset.NewFromSlice(tests...)).ToSortedSlice()
	return priority.NewPrioritization(ctx, tests, priority.Ranks{High: high})
}
