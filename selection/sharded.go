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

package selection

import (
	"fmt"
	"sort"

	"go.chromium.org/luci/common/data/sortby"
)

// ShardedTest is a Selection assigned to one of the parallel execution
// shards. It is created by the shard-assignment process and read-only
// thereafter.
type ShardedTest struct {
	Test      Selection
	Shard     int
	NumShards int

	// Time is the recorded duration of this shard in seconds, or nil if
	// no duration was recorded.
	Time *float64
}

// Name returns the test file of the underlying selection.
func (t ShardedTest) Name() string {
	return t.Test.File()
}

// Seconds returns the recorded duration, or 0 if none was recorded.
func (t ShardedTest) Seconds() float64 {
	if t.Time == nil {
		return 0
	}
	return *t.Time
}

// Equal reports whether both sharded tests cover the same selection,
// shard assignment and recorded duration.
func (t ShardedTest) Equal(other ShardedTest) bool {
	switch {
	case !t.Test.Equal(other.Test):
		return false
	case t.Shard != other.Shard || t.NumShards != other.NumShards:
		return false
	case (t.Time == nil) != (other.Time == nil):
		return false
	case t.Time != nil && *t.Time != *other.Time:
		return false
	}
	return true
}

// Less defines the total order used for shard scheduling: by test file
// name, then shard index, then shard count, then recorded duration. An
// unknown duration sorts before any known one.
func (t ShardedTest) Less(other ShardedTest) bool {
	switch {
	case t.Name() != other.Name():
		return t.Name() < other.Name()
	case t.Shard != other.Shard:
		return t.Shard < other.Shard
	case t.NumShards != other.NumShards:
		return t.NumShards < other.NumShards
	case t.Time == nil:
		return other.Time != nil
	case other.Time == nil:
		return false
	default:
		return *t.Time < *other.Time
	}
}

// PytestArgs renders the pytest filter arguments selecting exactly the
// tests of the underlying selection.
func (t ShardedTest) PytestArgs() []string {
	return []string{"-k", t.Test.PytestFilter()}
}

func (t ShardedTest) String() string {
	return fmt.Sprintf("%s %d/%d", t.Name(), t.Shard, t.NumShards)
}

// SortShardedTests sorts tests into the scheduling order defined by
// ShardedTest.Less. Given identical inputs the resulting order is always
// the same.
func SortShardedTests(tests []ShardedTest) {
	sort.SliceStable(tests, sortby.Chain{
		func(i, j int) bool { return tests[i].Name() < tests[j].Name() },
		func(i, j int) bool { return tests[i].Shard < tests[j].Shard },
		func(i, j int) bool { return tests[i].NumShards < tests[j].NumShards },
		func(i, j int) bool {
			if tests[i].Time == nil {
				return tests[j].Time != nil
			}
			return tests[j].Time != nil && *tests[i].Time < *tests[j].Time
		},
	}.Use)
}
