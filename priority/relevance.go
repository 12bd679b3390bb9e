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

// Package priority ranks a corpus of candidate tests by merging the
// opinions of independent heuristics.
//
// Each heuristic partitions the full universe of candidate test files
// into relevance tiers, possibly at finer-than-file granularity (see
// package selection). The Aggregator folds those partitions into one,
// only ever raising a test's tier, so the merged result is the supremum
// of all heuristic opinions and is independent of registration order.
package priority

import "fmt"

// Relevance is how relevant a heuristic considers a test to be to the
// change under evaluation. Higher values run earlier.
type Relevance int

// The relevance tiers, lowest first. Unlikely and None are reserved:
// nothing populates them yet, but the partition machinery treats them
// like any other tier.
const (
	None Relevance = iota
	Unlikely
	Unranked
	Probable
	High
)

const numRelevance = int(High) + 1

// byPriority is the tier traversal order used by accessors and metrics:
// most relevant first.
var byPriority = [...]Relevance{High, Probable, Unranked, Unlikely, None}

func (r Relevance) String() string {
	switch r {
	case None:
		return "NONE"
	case Unlikely:
		return "UNLIKELY"
	case Unranked:
		return "UNRANKED"
	case Probable:
		return "PROBABLE"
	case High:
		return "HIGH"
	default:
		return fmt.Sprintf("Relevance(%d)", int(r))
	}
}
