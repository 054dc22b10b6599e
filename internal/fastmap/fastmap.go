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

// Package fastmap implements FastFixedHashTable: a fixed-capacity,
// open-addressed map from an IntSet-shaped key to a fixed-width []float64
// value, tuned for the candidate-enumeration hot path. Unlike a general
// purpose map it never rehashes; callers size it up front (see CapacityFor)
// and a Put beyond capacity is a programmer error, reported as ErrFull
// rather than handled internally.
//
// Two key modes mirror the two IntSet representations: word mode stores the
// raw 64-bit packed word, array mode stores an intset.Array. Both carry an
// explicit occupied bit alongside the key rather than reserving a sentinel
// key value for "empty" — a packed word of exactly 0 is a legal key (the
// singleton attribute code 0), so there is no value left over to repurpose
// as the empty marker.
package fastmap

import (
	"errors"

	"github.com/mylinyuzhi/macrobase/internal/intset"
)

// ErrFull is returned by Put when the table has no empty slot left for a
// new key. The table never resizes; this means the caller under-sized it.
var ErrFull = errors.New("fastmap: table at capacity, no free slot")

// CapacityFor returns the next power of two at least 4*k (k = the number of
// distinct keys the table must hold), so linear probing stays cheap under a
// load factor of at most 25%. A floor of 16 keeps tiny inputs (e.g. k=1)
// from allocating a degenerate table.
func CapacityFor(k int) int {
	want := 4 * k
	if want < 16 {
		want = 16
	}
	return nextPow2(want)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Table is a fixed-capacity open-addressed hash table keyed by a packed
// word (word mode) or an intset.Array (array mode).
type Table struct {
	capacity   int
	mask       uint64
	valueWidth int
	useArray   bool

	wkeys    []uint64       // word mode
	akeys    []intset.Array // array mode
	occupied []bool         // both modes: occupied[i] marks a live slot
	values   []float64      // capacity * valueWidth, contiguous
	used     int
}

// New allocates a table with the given fixed capacity (rounded up to a
// power of two), value width (M aggregate columns), and key mode.
func New(capacity, valueWidth int, useArrayKeys bool) *Table {
	capacity = nextPow2(capacity)
	t := &Table{
		capacity:   capacity,
		mask:       uint64(capacity - 1),
		valueWidth: valueWidth,
		useArray:   useArrayKeys,
		occupied:   make([]bool, capacity),
		values:     make([]float64, capacity*valueWidth),
	}
	if useArrayKeys {
		t.akeys = make([]intset.Array, capacity)
	} else {
		t.wkeys = make([]uint64, capacity)
	}
	return t
}

// Len reports how many keys are currently stored.
func (t *Table) Len() int { return t.used }

// Cap reports the table's fixed capacity.
func (t *Table) Cap() int { return t.capacity }

func wordHash(word uint64) uint64 {
	// xor-shift / multiply / xor-shift mix (the murmur3 finalizer's first
	// round); cheap and good enough to spread packed keys, which are
	// already dense/sorted inputs.
	h := word
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return h
}

// GetWord looks up a word-mode key, returning (nil, false) if absent.
// The returned slice aliases table storage; callers must not retain it
// across a subsequent Put.
func (t *Table) GetWord(word uint64) ([]float64, bool) {
	idx, ok := t.findWord(word)
	if !ok {
		return nil, false
	}
	return t.values[idx*t.valueWidth : (idx+1)*t.valueWidth], true
}

// PutWord inserts or overwrites a word-mode key, copying value in.
func (t *Table) PutWord(word uint64, value []float64) error {
	idx, ok := t.findWord(word)
	if ok {
		copy(t.values[idx*t.valueWidth:(idx+1)*t.valueWidth], value)
		return nil
	}
	slot, ok := t.freeSlotWord(word)
	if !ok {
		return ErrFull
	}
	t.wkeys[slot] = word
	t.occupied[slot] = true
	copy(t.values[slot*t.valueWidth:(slot+1)*t.valueWidth], value)
	t.used++
	return nil
}

func (t *Table) findWord(word uint64) (int, bool) {
	start := wordHash(word) & t.mask
	for i := uint64(0); i < t.mask+1; i++ {
		idx := (start + i) & t.mask
		if !t.occupied[idx] {
			return 0, false
		}
		if t.wkeys[idx] == word {
			return int(idx), true
		}
	}
	return 0, false
}

func (t *Table) freeSlotWord(word uint64) (int, bool) {
	start := wordHash(word) & t.mask
	for i := uint64(0); i < t.mask+1; i++ {
		idx := (start + i) & t.mask
		if !t.occupied[idx] {
			return int(idx), true
		}
	}
	return 0, false
}

// EachWord visits every occupied word-mode slot in unspecified order.
func (t *Table) EachWord(fn func(word uint64, value []float64)) {
	for i := 0; i < t.capacity; i++ {
		if t.occupied[i] {
			fn(t.wkeys[i], t.values[i*t.valueWidth:(i+1)*t.valueWidth])
		}
	}
}

// GetArray looks up an array-mode key.
func (t *Table) GetArray(key intset.Array) ([]float64, bool) {
	idx, ok := t.findArray(key)
	if !ok {
		return nil, false
	}
	return t.values[idx*t.valueWidth : (idx+1)*t.valueWidth], true
}

// PutArray inserts or overwrites an array-mode key, copying value in.
func (t *Table) PutArray(key intset.Array, value []float64) error {
	idx, ok := t.findArray(key)
	if ok {
		copy(t.values[idx*t.valueWidth:(idx+1)*t.valueWidth], value)
		return nil
	}
	slot, ok := t.freeSlotArray(key)
	if !ok {
		return ErrFull
	}
	t.akeys[slot] = key
	t.occupied[slot] = true
	copy(t.values[slot*t.valueWidth:(slot+1)*t.valueWidth], value)
	t.used++
	return nil
}

func (t *Table) findArray(key intset.Array) (int, bool) {
	start := key.Hash() & t.mask
	for i := uint64(0); i < t.mask+1; i++ {
		idx := (start + i) & t.mask
		if !t.occupied[idx] {
			return 0, false
		}
		if t.akeys[idx].Equal(key) {
			return int(idx), true
		}
	}
	return 0, false
}

func (t *Table) freeSlotArray(key intset.Array) (int, bool) {
	start := key.Hash() & t.mask
	for i := uint64(0); i < t.mask+1; i++ {
		idx := (start + i) & t.mask
		if !t.occupied[idx] {
			return int(idx), true
		}
	}
	return 0, false
}

// EachArray visits every occupied array-mode slot in unspecified order.
func (t *Table) EachArray(fn func(key intset.Array, value []float64)) {
	for i := 0; i < t.capacity; i++ {
		if t.occupied[i] {
			fn(t.akeys[i], t.values[i*t.valueWidth:(i+1)*t.valueWidth])
		}
	}
}
