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

// Package intset implements the order-independent, 1-to-3-member integer
// set used as a candidate key throughout the explanation engine. It has two
// interchangeable representations: Packed, a single 64-bit word with three
// 21-bit fields, and Array, a tiny sorted array; both hash and compare
// equal for the same underlying set of members.
package intset

import (
	"encoding/binary"

	"github.com/dchest/siphash"
)

// Absent is returned by Second/Third when the set's cardinality is below 2
// or 3 respectively.
const Absent = -1

// MaxPackedCardinality is the attribute cardinality K at or above which
// Packed can no longer address every code in its 21-bit fields; callers
// must fall back to Array. 2^21-1, tied to the three-slot 21-bit layout.
const MaxPackedCardinality = 1<<21 - 1

const slotBits = 21
const slotMask = uint64(1)<<slotBits - 1

// UseArray reports whether cardinality k forces the array representation.
func UseArray(k int) bool {
	return k >= MaxPackedCardinality
}

// fixed hash seed; only needs to be stable within a process, not secret.
const seed0, seed1 = 0x9ae16a3b2f90404f, 0xc2b2ae3d27d4eb4f

// IntSet is implemented by both Packed and Array. Hash and Equal agree
// across representations for any two constructions over the same members.
type IntSet interface {
	First() int
	Second() int
	Third() int
	Len() int
	Hash() uint64
	Equal(other IntSet) bool
}

func hashOf(s IntSet) uint64 {
	var buf [12]byte
	n := s.Len()
	binary.LittleEndian.PutUint32(buf[0:4], uint32(s.First()))
	if n >= 2 {
		binary.LittleEndian.PutUint32(buf[4:8], uint32(s.Second()))
	}
	if n >= 3 {
		binary.LittleEndian.PutUint32(buf[8:12], uint32(s.Third()))
	}
	return siphash.Hash(seed0, seed1, buf[:n*4])
}

func equalOf(x, y IntSet) bool {
	return x.Len() == y.Len() &&
		x.First() == y.First() &&
		x.Second() == y.Second() &&
		x.Third() == y.Third()
}

// Packed is a 64-bit-word IntSet: three ascending-sorted 21-bit fields.
// Valid only while the attribute cardinality is below MaxPackedCardinality.
type Packed struct {
	word uint64
	n    uint8
}

// New1 builds a singleton packed set.
func New1(a int) Packed {
	return Packed{word: uint64(a), n: 1}
}

// New2 builds a packed pair, sorted ascending.
func New2(a, b int) Packed {
	return Packed{word: TwoIntToLong(a, b), n: 2}
}

// New3 builds a packed triple, sorted ascending.
func New3(a, b, c int) Packed {
	return Packed{word: ThreeIntToLong(a, b, c), n: 3}
}

// TwoIntToLong sorts a and b ascending and packs them into the low two
// 21-bit slots of a word. Exposed standalone so the row-shard aggregator
// can build a hash-table key without allocating a Packed value.
func TwoIntToLong(a, b int) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a) | uint64(b)<<slotBits
}

// ThreeIntToLong sorts a, b, c ascending and packs them into a word.
func ThreeIntToLong(a, b, c int) uint64 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return uint64(a) | uint64(b)<<slotBits | uint64(c)<<(2*slotBits)
}

// FromWord reconstructs a Packed set of arity n from a raw word produced by
// TwoIntToLong/ThreeIntToLong or Packed.Word. Callers that only carry the
// word plus the order it came from (e.g. the controller's merge step) use
// this instead of re-sorting the original members.
func FromWord(word uint64, n int) Packed {
	return Packed{word: word, n: uint8(n)}
}

// Word returns the raw packed word, for use as a FastFixedHashTable key.
func (p Packed) Word() uint64 { return p.word }

func (p Packed) Len() int { return int(p.n) }

func (p Packed) First() int { return int(p.word & slotMask) }

func (p Packed) Second() int {
	if p.n < 2 {
		return Absent
	}
	return int((p.word >> slotBits) & slotMask)
}

func (p Packed) Third() int {
	if p.n < 3 {
		return Absent
	}
	return int((p.word >> (2 * slotBits)) & slotMask)
}

func (p Packed) Hash() uint64 { return hashOf(p) }

func (p Packed) Equal(other IntSet) bool { return equalOf(p, other) }

// ToArray converts a packed set to the array representation, used by the
// controller when merging per-thread tables into the canonical keyspace.
func (p Packed) ToArray() Array {
	switch p.n {
	case 1:
		return NewArray1(p.First())
	case 2:
		return NewArray2(p.First(), p.Second())
	default:
		return NewArray3(p.First(), p.Second(), p.Third())
	}
}

// Array is a tiny sorted-array IntSet, used once K is too large for Packed
// or whenever a stable, allocation-tolerant key is needed (the controller's
// merged map).
type Array struct {
	members [3]int32
	n       uint8
}

// NewArray1 builds a singleton array set.
func NewArray1(a int) Array {
	return Array{members: [3]int32{int32(a), 0, 0}, n: 1}
}

// NewArray2 builds a sorted array pair.
func NewArray2(a, b int) Array {
	if a > b {
		a, b = b, a
	}
	return Array{members: [3]int32{int32(a), int32(b), 0}, n: 2}
}

// NewArray3 builds a sorted array triple.
func NewArray3(a, b, c int) Array {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return Array{members: [3]int32{int32(a), int32(b), int32(c)}, n: 3}
}

func (a Array) Len() int { return int(a.n) }

func (a Array) First() int { return int(a.members[0]) }

func (a Array) Second() int {
	if a.n < 2 {
		return Absent
	}
	return int(a.members[1])
}

func (a Array) Third() int {
	if a.n < 3 {
		return Absent
	}
	return int(a.members[2])
}

func (a Array) Hash() uint64 { return hashOf(a) }

func (a Array) Equal(other IntSet) bool { return equalOf(a, other) }

// Subsets2 returns the three order-2 subsets of a order-3 array set, used
// by the controller's order-3 subset-containment check.
func (a Array) Subsets2() [3]Array {
	if a.n != 3 {
		panic("intset: Subsets2 requires an order-3 set")
	}
	return [3]Array{
		NewArray2(a.First(), a.Second()),
		NewArray2(a.First(), a.Third()),
		NewArray2(a.Second(), a.Third()),
	}
}
