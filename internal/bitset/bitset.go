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

// Package bitset implements Set, a dense fixed-size membership bitmap over
// [0, K) used as the order-1 "next" frontier (singleNextArray in spec
// terms): an O(1) filter the row-shard aggregator consults for every
// attribute code at order >= 2. Dense storage is the right tradeoff while K
// is small to moderate; the explain package switches to a compressed
// roaring bitmap once K grows into the millions (see explain's
// newFrontierBuilder).
package bitset

const wordBits = 64

// Set is a fixed-size membership bitmap over [0, n).
type Set struct {
	words []uint64
	n     int
}

// New allocates a Set covering codes [0, n).
func New(n int) *Set {
	return &Set{words: make([]uint64, (n+wordBits-1)/wordBits), n: n}
}

// Test reports whether code k is a member.
func (s *Set) Test(k int) bool {
	return s.words[k/wordBits]&(uint64(1)<<(uint(k)%wordBits)) != 0
}

// Set marks code k as a member.
func (s *Set) Set(k int) {
	s.words[k/wordBits] |= uint64(1) << (uint(k) % wordBits)
}

// Len returns the addressable range n passed to New.
func (s *Set) Len() int { return s.n }
