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
	"slices"

	"go.chromium.org/luci/common/data/stringset"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"

	"github.com/vener91/testtargeting/selection"
)

// Prioritization partitions a fixed universe of test files into
// relevance tiers.
//
// The partition is exhaustive and non-overlapping down to qualifier
// granularity: every file of the universe is accounted for exactly once
// across the tiers, and a qualifier pulled into one tier is reciprocally
// excluded from whatever remains of its file in another tier.
//
// Entries keep their append order within a tier, and that order is what
// the accessors return. Downstream sharding relies on it: two runs over
// identical inputs must produce identical test ordering.
//
// A Prioritization is a single-owner value. It is mutated only through
// its own methods and provides no internal locking.
type Prioritization struct {
	originalTests stringset.Set
	buckets       [numRelevance][]selection.Selection
}

// Ranks lists tests to move out of the Unranked tier at construction
// time. Entries may be qualified ("file::Class").
type Ranks struct {
	High     []string
	Probable []string
	Unranked []string
	Unlikely []string
	None     []string
}

// NewPrioritization creates a Prioritization over the given test files.
// Every file starts in the Unranked tier, in input order; the tests
// named in ranks are then reassigned to their tier through the regular
// reassignment protocol.
func NewPrioritization(ctx context.Context, tests []string, ranks Ranks) (*Prioritization, error) {
	p := &Prioritization{originalTests: stringset.NewFromSlice(tests...)}
	unranked := make([]selection.Selection, len(tests))
	for i, name := range tests {
		unranked[i] = selection.New(name)
	}
	p.buckets[Unranked] = unranked

	for _, group := range []struct {
		level Relevance
		tests []string
	}{
		{High, ranks.High},
		{Probable, ranks.Probable},
		{Unranked, ranks.Unranked},
		{Unlikely, ranks.Unlikely},
		{None, ranks.None},
	} {
		for _, name := range group.tests {
			if err := p.SetRelevance(ctx, selection.New(name), group.level); err != nil {
				return nil, err
			}
		}
	}

	p.validate()
	return p, nil
}

// bucketRef points at one entry of one tier.
type bucketRef struct {
	level Relevance
	idx   int
}

// pointerToTest locates every entry related to the given selection, in
// tier traversal order. An entry matches if it contains the selection or
// the selection contains it: an earlier heuristic may already have split
// the selection's tests across tiers at finer-than-file granularity.
func (p *Prioritization) pointerToTest(test selection.Selection) ([]bucketRef, error) {
	var matches []bucketRef
	for _, level := range byPriority {
		for idx, existing := range p.buckets[level] {
			if existing.Contains(test) || test.Contains(existing) {
				matches = append(matches, bucketRef{level, idx})
			}
		}
	}
	if len(matches) == 0 {
		return nil, errors.Fmt("test %s not found in any relevance group", test)
	}
	return matches, nil
}

// updateRelevance moves the tests covered by test into the given tier.
// Entries whose current tier already satisfies acceptable are left
// alone. Every other matching entry is split: the portion covered by
// test is removed (dropping the entry if nothing remains) and all such
// portions are unioned into one new entry appended to the destination
// tier.
func (p *Prioritization) updateRelevance(ctx context.Context, test selection.Selection, level Relevance, acceptable func(current Relevance) bool) error {
	logging.Debugf(ctx, "setting relevance of %s to %s", test, level)
	if !p.originalTests.Has(test.File()) {
		// Not part of this universe, nothing to rank.
		return nil
	}

	matches, err := p.pointerToTest(test)
	if err != nil {
		return err
	}

	moved := selection.Empty()
	var remove [numRelevance][]int
	for _, m := range matches {
		if acceptable(m.level) {
			// Already at an acceptable tier.
			continue
		}
		existing := p.buckets[m.level][m.idx]
		remaining := existing.Difference(test)
		moved = moved.Union(existing.Intersect(test))
		if !remaining.IsEmpty() {
			p.buckets[m.level][m.idx] = remaining
		} else {
			remove[m.level] = append(remove[m.level], m.idx)
		}
	}

	// Indices were collected in ascending order; delete back to front so
	// the pending ones stay valid.
	for _, lvl := range byPriority {
		idxs := remove[lvl]
		for i := len(idxs) - 1; i >= 0; i-- {
			p.buckets[lvl] = slices.Delete(p.buckets[lvl], idxs[i], idxs[i]+1)
		}
	}

	if !moved.IsEmpty() {
		logging.Debugf(ctx, "moving %s to relevance group %s", moved, level)
		p.buckets[level] = append(p.buckets[level], moved)
	}
	return nil
}

// SetRelevance moves the tests covered by test into the given tier,
// whether that raises or lowers them.
func (p *Prioritization) SetRelevance(ctx context.Context, test selection.Selection, level Relevance) error {
	if err := p.updateRelevance(ctx, test, level, func(current Relevance) bool {
		return current == level
	}); err != nil {
		return err
	}
	p.validate()
	return nil
}

// RaiseRelevance moves the tests covered by test into the given tier,
// but never downgrades: tests already at or above the tier stay where
// they are.
func (p *Prioritization) RaiseRelevance(ctx context.Context, test selection.Selection, level Relevance) error {
	if err := p.updateRelevance(ctx, test, level, func(current Relevance) bool {
		return current >= level
	}); err != nil {
		return err
	}
	p.validate()
	return nil
}

// IntegratePriorities merges another Prioritization into this one by
// raising every test the other ranks above Unranked. Tiers are never
// lowered, so integrating the same opinions in any order converges to
// the same partition.
//
// Both prioritizations must rank the same universe.
func (p *Prioritization) IntegratePriorities(ctx context.Context, other *Prioritization) error {
	if !setsEqual(p.originalTests, other.originalTests) {
		return errors.New("both prioritizations must stem from the same original test list")
	}
	for _, level := range byPriority {
		if level <= Unranked {
			continue
		}
		for _, test := range other.buckets[level] {
			if err := p.RaiseRelevance(ctx, test, level); err != nil {
				return err
			}
		}
	}
	p.validate()
	return nil
}

// validate enforces the partition invariants. A violation means a bug in
// the reassignment protocol, not bad input, so it is fatal.
func (p *Prioritization) validate() {
	files := stringset.New(p.originalTests.Len())
	includes := stringset.New(0)
	excludes := stringset.New(0)
	for _, level := range byPriority {
		for _, test := range p.buckets[level] {
			files.Add(test.File())
			for _, q := range test.Included() {
				includes.Add(q)
			}
			for _, q := range test.Excluded() {
				excludes.Add(q)
			}
		}
	}
	if !setsEqual(includes, excludes) {
		panic("corrupt prioritization: every included qualifier must be excluded elsewhere, and vice versa")
	}
	if !setsEqual(files, p.originalTests) {
		panic("corrupt prioritization: the ranked tests must be identical to the original test list")
	}
}

func setsEqual(a, b stringset.Set) bool {
	return a.Len() == b.Len() && a.Contains(b)
}

// AllTests returns every entry of the partition in tier traversal
// order.
func (p *Prioritization) AllTests() []selection.Selection {
	var ret []selection.Selection
	for _, level := range byPriority {
		ret = append(ret, p.buckets[level]...)
	}
	return ret
}

// PrioritizedTests returns the High tier followed by the Probable tier.
func (p *Prioritization) PrioritizedTests() []selection.Selection {
	return append(p.HighRelevanceTests(), p.ProbableRelevanceTests()...)
}

// HighRelevanceTests returns the High tier entries in append order.
func (p *Prioritization) HighRelevanceTests() []selection.Selection {
	return slices.Clone(p.buckets[High])
}

// ProbableRelevanceTests returns the Probable tier entries in append
// order.
func (p *Prioritization) ProbableRelevanceTests() []selection.Selection {
	return slices.Clone(p.buckets[Probable])
}

// UnrankedRelevanceTests returns the Unranked tier entries in append
// order.
func (p *Prioritization) UnrankedRelevanceTests() []selection.Selection {
	return slices.Clone(p.buckets[Unranked])
}

// PriorityInfo describes where one test landed in a Prioritization. It
// is emitted to the metrics sink and plays no part in selection logic.
type PriorityInfo struct {
	HeuristicName             string `json:"heuristic_name,omitempty"`
	RelevanceGroup            string `json:"relevance_group"`
	OrderWithinRelevanceGroup int    `json:"order_within_relevance_group"`
	NumTestsInRelevanceGroup  int    `json:"num_tests_in_relevance_group"`
	OrderOverall              int    `json:"order_overall"`
}

// PriorityInfoForTest reports the tier of the given test, its position
// within the tier, the tier size, and its flattened rank across all
// tiers in traversal order.
func (p *Prioritization) PriorityInfoForTest(testName string) (*PriorityInfo, error) {
	_, info, err := p.priorityInfo(testName)
	return info, err
}

func (p *Prioritization) priorityInfo(testName string) (Relevance, *PriorityInfo, error) {
	query := selection.New(testName)
	rankBase := 0
	for _, level := range byPriority {
		for idx, test := range p.buckets[level] {
			if test.Contains(query) {
				return level, &PriorityInfo{
					RelevanceGroup:            level.String(),
					OrderWithinRelevanceGroup: idx,
					NumTestsInRelevanceGroup:  len(p.buckets[level]),
					OrderOverall:              rankBase + idx,
				}, nil
			}
		}
		rankBase += len(p.buckets[level])
	}
	return 0, nil, errors.Fmt("test %s not found in any relevance group", testName)
}

// LogSummary logs the non-empty tiers and their entries.
func (p *Prioritization) LogSummary(ctx context.Context) {
	for _, level := range byPriority {
		tests := p.buckets[level]
		if len(tests) == 0 {
			continue
		}
		logging.Infof(ctx, "%s relevance tests (%d):", level, len(tests))
		for _, test := range tests {
			logging.Infof(ctx, "  %s", test)
		}
	}
}
