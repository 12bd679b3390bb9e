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

// Package selection implements an algebra over partial selections of one
// test file's tests.
//
// A Selection names the tests to run from a single test file, either as
// an explicit set of included qualifiers (test classes or parametrized
// nodes) or as an exclusion set applied to the rest of the file. The
// union and difference operations preserve pytest filter semantics, so a
// Selection can always be rendered back into a -k expression.
package selection

import (
	"fmt"
	"strings"

	"go.chromium.org/luci/common/data/stringset"
)

// Selection is the set of tests that should run together from a single
// test file.
//
// Exactly one of the included/excluded qualifier sets may be non-empty.
// A Selection with no test file is the empty selection, the additive
// identity of the algebra. A non-empty test file with both sets empty
// means "run the whole file".
//
// Selections are immutable values: all operations return new Selections
// and never modify their operands. Use the constructors; the zero value
// is the empty selection.
type Selection struct {
	file     string
	included stringset.Set
	excluded stringset.Set
}

// New returns a Selection covering the whole given test file, or, for a
// qualified "file::Qualifier" name, only that qualifier within the file.
//
// Panics if the name has more than one "::" separator.
func New(name string) Selection {
	parts := strings.Split(name, "::")
	switch len(parts) {
	case 1:
		return Selection{file: name}
	case 2:
		return Selection{file: parts[0], included: stringset.NewFromSlice(parts[1])}
	default:
		panic(fmt.Sprintf("invalid test name %q: at most one qualifier is allowed", name))
	}
}

// NewIncluding returns a Selection running only the given qualifiers of
// the test file. With no qualifiers it covers the whole file.
//
// Panics if file itself carries a "::" qualifier.
func NewIncluding(file string, qualifiers ...string) Selection {
	checkUnqualified(file)
	if len(qualifiers) == 0 {
		return Selection{file: file}
	}
	return Selection{file: file, included: stringset.NewFromSlice(qualifiers...)}
}

// NewExcluding returns a Selection running everything in the test file
// except the given qualifiers. With no qualifiers it covers the whole
// file.
//
// Panics if file itself carries a "::" qualifier.
func NewExcluding(file string, qualifiers ...string) Selection {
	checkUnqualified(file)
	if len(qualifiers) == 0 {
		return Selection{file: file}
	}
	return Selection{file: file, excluded: stringset.NewFromSlice(qualifiers...)}
}

// Empty returns the empty selection: nothing to run.
func Empty() Selection {
	return Selection{}
}

func checkUnqualified(file string) {
	if strings.Contains(file, "::") {
		panic(fmt.Sprintf("invalid test file %q: qualified names cannot be combined with explicit qualifier sets", file))
	}
}

// IsEmpty reports whether the selection runs nothing at all.
func (s Selection) IsEmpty() bool {
	return s.file == ""
}

// File returns the test file this selection belongs to, or "" for the
// empty selection.
func (s Selection) File() string {
	return s.file
}

// Included returns the included qualifiers in alphabetical order.
func (s Selection) Included() []string {
	return s.included.ToSortedSlice()
}

// Excluded returns the excluded qualifiers in alphabetical order.
func (s Selection) Excluded() []string {
	return s.excluded.ToSortedSlice()
}

// isFullFile reports whether the selection runs the entire file.
func (s Selection) isFullFile() bool {
	return !s.IsEmpty() && s.included.Len() == 0 && s.excluded.Len() == 0
}

// Equal reports whether both selections run exactly the same tests.
func (s Selection) Equal(other Selection) bool {
	return s.file == other.file &&
		setsEqual(s.included, other.included) &&
		setsEqual(s.excluded, other.excluded)
}

func setsEqual(a, b stringset.Set) bool {
	return a.Len() == b.Len() && a.Contains(b)
}

// Union returns the selection running every test that either operand
// runs.
//
// The empty selection is the identity. If either side runs the full
// file, so does the union. Two inclusion sets unite; two exclusion sets
// intersect (a test is skipped only if both sides skip it). In the mixed
// case anything explicitly included by either side is removed from the
// combined exclusions.
//
// Panics if the operands reference different test files.
func (s Selection) Union(other Selection) Selection {
	if s.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return s
	}
	if s.file != other.file {
		panic(fmt.Sprintf("cannot union %s and %s: different test files", s, other))
	}

	switch {
	case s.isFullFile() || other.isFullFile():
		return Selection{file: s.file}
	case s.included.Len() > 0 && other.included.Len() > 0:
		return Selection{file: s.file, included: s.included.Union(other.included)}
	case s.excluded.Len() > 0 && other.excluded.Len() > 0:
		return Selection{file: s.file, excluded: s.excluded.Intersect(other.excluded)}
	}

	// One side includes, the other excludes. Keep excluding whatever is
	// not explicitly wanted by either side.
	included := s.included.Union(other.included)
	excluded := s.excluded.Union(other.excluded)
	return Selection{file: s.file, excluded: excluded.Difference(included)}
}

// Difference returns the selection running every test s runs except
// those other runs.
//
// Subtracting from the empty selection yields the empty selection;
// subtracting the empty selection changes nothing. Subtracting a
// full-file selection always yields the empty selection: there is
// nothing left to run, by policy rather than as an error.
//
// Panics if the operands reference different test files.
func (s Selection) Difference(other Selection) Selection {
	if s.IsEmpty() {
		return Empty()
	}
	if other.IsEmpty() {
		return s
	}
	if s.file != other.file {
		panic(fmt.Sprintf("cannot subtract %s from %s: different test files", other, s))
	}
	if other.isFullFile() {
		return Empty()
	}

	inclusionsOrEmpty := func(inclusions stringset.Set) Selection {
		if inclusions.Len() > 0 {
			return Selection{file: s.file, included: inclusions}
		}
		return Empty()
	}

	if other.included.Len() > 0 {
		if s.included.Len() > 0 {
			return inclusionsOrEmpty(s.included.Difference(other.included))
		}
		return Selection{file: s.file, excluded: s.excluded.Union(other.included)}
	}
	if s.included.Len() > 0 {
		return inclusionsOrEmpty(s.included.Intersect(other.excluded))
	}
	return inclusionsOrEmpty(other.excluded.Difference(s.excluded))
}

// Intersect returns the selection running only the tests both operands
// run. It is derived from Union and Difference.
func (s Selection) Intersect(other Selection) Selection {
	return s.Union(other).Difference(s.Difference(other)).Difference(other.Difference(s))
}

// Contains reports whether s runs every test that other runs.
func (s Selection) Contains(other Selection) bool {
	if s.file != other.file {
		return false
	}
	if s.isFullFile() {
		return true
	}
	if other.isFullFile() {
		return false
	}
	// Other runs at least as much as s iff it excludes no more than s.
	if other.excluded.Len() > 0 {
		return s.excluded.Contains(other.excluded)
	}
	if s.included.Len() > 0 {
		return s.included.Contains(other.included)
	}
	// s excludes and other includes: fine as long as s excludes nothing
	// other wants.
	return s.excluded.Intersect(other.included).Len() == 0
}

// PytestFilter renders the selection as a pytest -k filter expression.
// Qualifiers are sorted so that identical selections always render to
// identical expressions. A full-file selection renders to "".
func (s Selection) PytestFilter() string {
	switch {
	case s.included.Len() > 0:
		return strings.Join(s.included.ToSortedSlice(), " or ")
	case s.excluded.Len() > 0:
		return fmt.Sprintf("not (%s)", strings.Join(s.excluded.ToSortedSlice(), " and "))
	default:
		return ""
	}
}

func (s Selection) String() string {
	if s.IsEmpty() {
		return "Empty"
	}
	if filter := s.PytestFilter(); filter != "" {
		return s.file + ", " + filter
	}
	return s.file
}
