// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package intset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackedCanonicalOrder(t *testing.T) {
	perms := [][3]int{
		{1, 2, 3}, {1, 3, 2}, {2, 1, 3}, {2, 3, 1}, {3, 1, 2}, {3, 2, 1},
	}
	var want Packed
	for i, p := range perms {
		got := New3(p[0], p[1], p[2])
		if i == 0 {
			want = got
		}
		require.Equal(t, want.Word(), got.Word())
		require.Equal(t, 1, got.First())
		require.Equal(t, 2, got.Second())
		require.Equal(t, 3, got.Third())
	}
}

func TestArrayCanonicalOrder(t *testing.T) {
	perms := [][3]int{
		{5, 9, 1}, {1, 5, 9}, {9, 5, 1},
	}
	for _, p := range perms {
		a := NewArray3(p[0], p[1], p[2])
		require.Equal(t, 1, a.First())
		require.Equal(t, 5, a.Second())
		require.Equal(t, 9, a.Third())
	}
}

func TestPackedArrayAgree(t *testing.T) {
	cases := [][3]int{{7, 0, 0}, {7, 12, 0}, {7, 12, 99}}
	for _, c := range cases {
		var p Packed
		var a Array
		switch {
		case c[1] == 0 && c[2] == 0:
			p, a = New1(c[0]), NewArray1(c[0])
		case c[2] == 0:
			p, a = New2(c[0], c[1]), NewArray2(c[0], c[1])
		default:
			p, a = New3(c[0], c[1], c[2]), NewArray3(c[0], c[1], c[2])
		}
		require.Equal(t, p.Hash(), a.Hash(), "hash must agree across representations")
		require.True(t, p.Equal(a))
		require.True(t, a.Equal(p))
		require.Equal(t, p.Hash(), p.ToArray().Hash())
	}
}

func TestLowerAritySentinels(t *testing.T) {
	one := New1(4)
	require.Equal(t, Absent, one.Second())
	require.Equal(t, Absent, one.Third())

	two := New2(4, 9)
	require.Equal(t, Absent, two.Third())
}

func TestSubsets2(t *testing.T) {
	tri := NewArray3(1, 2, 3)
	subs := tri.Subsets2()
	want := map[[2]int]bool{{1, 2}: true, {1, 3}: true, {2, 3}: true}
	for _, s := range subs {
		require.True(t, want[[2]int{s.First(), s.Second()}])
	}
}

func TestUseArray(t *testing.T) {
	require.False(t, UseArray(1000))
	require.True(t, UseArray(MaxPackedCardinality))
	require.True(t, UseArray(3_000_000))
}
