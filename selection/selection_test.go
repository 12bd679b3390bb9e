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
	"testing"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/registry"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
)

func init() {
	registry.RegisterCmpOption(cmp.Comparer(func(a, b Selection) bool {
		return a.Equal(b)
	}))
}

func TestUnion(t *testing.T) {
	t.Parallel()

	ftt.Run(`Union`, t, func(t *ftt.Test) {
		t.Run(`empty is the identity`, func(t *ftt.Test) {
			run := New("foo")
			assert.That(t, run.Union(Empty()), should.Match(run))
			assert.That(t, Empty().Union(run), should.Match(run))
		})

		t.Run(`full file absorbs`, func(t *ftt.Test) {
			full := New("foo")
			partial := New("foo::bar")
			assert.That(t, full.Union(partial), should.Match(full))
			assert.That(t, partial.Union(full), should.Match(full))
		})

		t.Run(`inclusions unite`, func(t *ftt.Test) {
			run1 := New("foo::bar")
			run2 := New("foo::baz")
			expected := NewIncluding("foo", "bar", "baz")
			assert.That(t, run1.Union(run2), should.Match(expected))
			assert.That(t, run2.Union(run1), should.Match(expected))
		})

		t.Run(`non-overlapping exclusions cancel out`, func(t *ftt.Test) {
			run1 := NewExcluding("foo", "bar")
			run2 := NewExcluding("foo", "baz")
			// Either side runs what the other skips, so nothing stays
			// skipped.
			expected := New("foo")
			assert.That(t, run1.Union(run2), should.Match(expected))
			assert.That(t, run2.Union(run1), should.Match(expected))
		})

		t.Run(`overlapping exclusions intersect`, func(t *ftt.Test) {
			run1 := NewExcluding("foo", "bar", "car")
			run2 := NewExcluding("foo", "bar", "caz")
			expected := NewExcluding("foo", "bar")
			assert.That(t, run1.Union(run2), should.Match(expected))
			assert.That(t, run2.Union(run1), should.Match(expected))
		})

		t.Run(`mixed inclusion and exclusion`, func(t *ftt.Test) {
			run1 := NewExcluding("foo", "baz", "car")
			run2 := NewIncluding("foo", "baz")
			expected := NewExcluding("foo", "car")
			assert.That(t, run1.Union(run2), should.Match(expected))
			assert.That(t, run2.Union(run1), should.Match(expected))
		})

		t.Run(`different files panic`, func(t *ftt.Test) {
			assert.Loosely(t, func() { New("foo").Union(New("bar")) },
				should.PanicLikeString("different test files"))
		})
	})
}

func TestDifference(t *testing.T) {
	t.Parallel()

	ftt.Run(`Difference`, t, func(t *ftt.Test) {
		t.Run(`empty operands`, func(t *ftt.Test) {
			run := New("foo")
			assert.That(t, run.Difference(Empty()), should.Match(run))
			assert.That(t, Empty().Difference(run), should.Match(Empty()))
		})

		t.Run(`subtracting a full run leaves nothing`, func(t *ftt.Test) {
			assert.That(t, New("foo::bar").Difference(New("foo")), should.Match(Empty()))
		})

		t.Run(`inclusion from a full run`, func(t *ftt.Test) {
			got := New("foo").Difference(New("foo::bar"))
			assert.That(t, got, should.Match(NewExcluding("foo", "bar")))
		})

		t.Run(`inclusion from an overlapping inclusion`, func(t *ftt.Test) {
			run1 := NewIncluding("foo", "bar", "baz")
			run2 := New("foo::baz")
			assert.That(t, run1.Difference(run2), should.Match(NewIncluding("foo", "bar")))
		})

		t.Run(`inclusion from a non-overlapping inclusion`, func(t *ftt.Test) {
			run1 := NewIncluding("foo", "bar", "baz")
			run2 := NewIncluding("foo", "car")
			assert.That(t, run1.Difference(run2), should.Match(run1))
		})

		t.Run(`inclusion from an inclusion collapses to empty`, func(t *ftt.Test) {
			run1 := NewIncluding("foo", "bar")
			run2 := NewIncluding("foo", "bar")
			assert.That(t, run1.Difference(run2), should.Match(Empty()))
		})

		t.Run(`exclusion from a full run`, func(t *ftt.Test) {
			got := New("foo").Difference(NewExcluding("foo", "bar"))
			assert.That(t, got, should.Match(NewIncluding("foo", "bar")))
		})

		t.Run(`exclusion from a superset exclusion`, func(t *ftt.Test) {
			run1 := NewExcluding("foo", "bar", "baz")
			run2 := NewExcluding("foo", "baz")
			assert.That(t, run1.Difference(run2), should.Match(Empty()))
			assert.That(t, run2.Difference(run1), should.Match(NewIncluding("foo", "bar")))
		})

		t.Run(`exclusion from a non-overlapping exclusion`, func(t *ftt.Test) {
			run1 := NewExcluding("foo", "bar", "baz")
			run2 := NewExcluding("foo", "car")
			assert.That(t, run1.Difference(run2), should.Match(NewIncluding("foo", "car")))
			assert.That(t, run2.Difference(run1), should.Match(NewIncluding("foo", "bar", "baz")))
		})

		t.Run(`inclusion from an exclusion without overlap`, func(t *ftt.Test) {
			run1 := NewExcluding("foo", "bar", "baz")
			run2 := NewIncluding("foo", "bar")
			assert.That(t, run1.Difference(run2), should.Match(run1))
			assert.That(t, run2.Difference(run1), should.Match(run2))
		})

		t.Run(`inclusion from an exclusion with overlap`, func(t *ftt.Test) {
			run1 := NewExcluding("foo", "bar", "baz")
			run2 := NewIncluding("foo", "bar", "car")
			assert.That(t, run1.Difference(run2), should.Match(NewExcluding("foo", "bar", "baz", "car")))
			assert.That(t, run2.Difference(run1), should.Match(NewIncluding("foo", "bar")))
		})

		t.Run(`different files panic`, func(t *ftt.Test) {
			assert.Loosely(t, func() { New("foo").Difference(New("bar")) },
				should.PanicLikeString("different test files"))
		})
	})
}

func TestIntersect(t *testing.T) {
	t.Parallel()

	ftt.Run(`Intersect`, t, func(t *ftt.Test) {
		t.Run(`inclusions`, func(t *ftt.Test) {
			run1 := NewIncluding("foo", "bar", "baz")
			run2 := NewIncluding("foo", "bar", "car")
			assert.That(t, run1.Intersect(run2), should.Match(NewIncluding("foo", "bar")))
		})

		t.Run(`exclusions`, func(t *ftt.Test) {
			run1 := NewExcluding("foo", "bar", "baz")
			run2 := NewExcluding("foo", "bar", "car")
			assert.That(t, run1.Intersect(run2), should.Match(NewExcluding("foo", "bar", "baz", "car")))
		})

		t.Run(`mixed`, func(t *ftt.Test) {
			run1 := NewExcluding("foo", "bar")
			run2 := NewIncluding("foo", "bar", "car")
			assert.That(t, run1.Intersect(run2), should.Match(NewIncluding("foo", "car")))
		})

		t.Run(`matches the union/difference identity`, func(t *ftt.Test) {
			cases := []struct{ a, b Selection }{
				{NewIncluding("foo", "bar", "baz"), NewIncluding("foo", "bar", "car")},
				{NewExcluding("foo", "bar", "baz"), NewExcluding("foo", "bar", "car")},
				{NewExcluding("foo", "bar", "baz"), NewIncluding("foo", "bar", "car")},
				{New("foo"), NewIncluding("foo", "bar")},
				{NewIncluding("foo", "bar"), New("foo")},
			}
			for _, c := range cases {
				derived := c.a.Union(c.b).
					Difference(c.a.Difference(c.b)).
					Difference(c.b.Difference(c.a))
				assert.That(t, c.a.Intersect(c.b), should.Match(derived))
			}
		})
	})
}

func TestContains(t *testing.T) {
	t.Parallel()

	ftt.Run(`Contains`, t, func(t *ftt.Test) {
		t.Run(`different files`, func(t *ftt.Test) {
			assert.Loosely(t, New("foo").Contains(New("bar")), should.BeFalse)
		})

		t.Run(`full file contains everything`, func(t *ftt.Test) {
			assert.Loosely(t, New("foo").Contains(New("foo::bar")), should.BeTrue)
			assert.Loosely(t, New("foo").Contains(NewExcluding("foo", "bar")), should.BeTrue)
		})

		t.Run(`partial never contains the full file`, func(t *ftt.Test) {
			assert.Loosely(t, New("foo::bar").Contains(New("foo")), should.BeFalse)
			assert.Loosely(t, NewExcluding("foo", "bar").Contains(New("foo")), should.BeFalse)
		})

		t.Run(`exclusion containment`, func(t *ftt.Test) {
			// An operand excluding more runs less.
			assert.Loosely(t, NewExcluding("foo", "bar").Contains(NewExcluding("foo", "bar", "baz")), should.BeTrue)
			assert.Loosely(t, NewExcluding("foo", "bar", "baz").Contains(NewExcluding("foo", "bar")), should.BeFalse)
		})

		t.Run(`inclusion containment`, func(t *ftt.Test) {
			assert.Loosely(t, NewIncluding("foo", "bar", "baz").Contains(New("foo::bar")), should.BeTrue)
			assert.Loosely(t, NewIncluding("foo", "bar").Contains(NewIncluding("foo", "bar", "baz")), should.BeFalse)
		})

		t.Run(`exclusion vs inclusion`, func(t *ftt.Test) {
			assert.Loosely(t, NewExcluding("foo", "bar").Contains(New("foo::baz")), should.BeTrue)
			assert.Loosely(t, NewExcluding("foo", "bar").Contains(New("foo::bar")), should.BeFalse)
		})
	})
}

func TestSelectionBasics(t *testing.T) {
	t.Parallel()

	ftt.Run(`Selection`, t, func(t *ftt.Test) {
		t.Run(`empty is empty`, func(t *ftt.Test) {
			assert.Loosely(t, Empty().IsEmpty(), should.BeTrue)
			assert.Loosely(t, New("foo").IsEmpty(), should.BeFalse)
			assert.Loosely(t, New("foo::bar").IsEmpty(), should.BeFalse)
		})

		t.Run(`qualified name construction`, func(t *ftt.Test) {
			run := New("foo::bar")
			assert.That(t, run.File(), should.Equal("foo"))
			assert.That(t, run.Included(), should.Match([]string{"bar"}))
			assert.Loosely(t, run.Excluded(), should.BeEmpty)
		})

		t.Run(`over-qualified name panics`, func(t *ftt.Test) {
			assert.Loosely(t, func() { New("foo::bar::baz") },
				should.PanicLikeString("at most one qualifier"))
		})

		t.Run(`qualified file with explicit sets panics`, func(t *ftt.Test) {
			assert.Loosely(t, func() { NewIncluding("foo::bar", "baz") },
				should.PanicLikeString("cannot be combined"))
			assert.Loosely(t, func() { NewExcluding("foo::bar", "baz") },
				should.PanicLikeString("cannot be combined"))
		})

		t.Run(`pytest filter`, func(t *ftt.Test) {
			assert.That(t, New("foo").PytestFilter(), should.Equal(""))
			assert.That(t, NewIncluding("foo", "baz", "bar").PytestFilter(), should.Equal("bar or baz"))
			assert.That(t, NewExcluding("foo", "baz", "bar").PytestFilter(), should.Equal("not (bar and baz)"))
		})

		t.Run(`string rendering`, func(t *ftt.Test) {
			assert.That(t, Empty().String(), should.Equal("Empty"))
			assert.That(t, New("foo").String(), should.Equal("foo"))
			assert.That(t, New("foo::bar").String(), should.Equal("foo, bar"))
			assert.That(t, NewExcluding("foo", "bar").String(), should.Equal("foo, not (bar)"))
		})
	})
}
