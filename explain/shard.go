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

package explain

import (
	"github.com/mylinyuzhi/macrobase/internal/fastmap"
	"github.com/mylinyuzhi/macrobase/internal/intset"
)

// frontier is the read-only, thread-shared membership test every thread
// consults while enumerating order k>=2: a code survives into a
// higher-order candidate only if its singleton was NEXT or KEEP at order 1
// (setNext[1] in spec terms). Satisfied by both internal/bitset.Set (dense,
// for small/medium K) and a roaring-bitmap adapter (sparse, for large K).
type frontier interface {
	Test(code int) bool
}

// columnCombinations enumerates every ascending k-subset of [0, numCols),
// i.e. every way to pick k of the C attribute columns to form an order-k
// candidate.
func columnCombinations(numCols, k int) [][]int {
	var out [][]int
	cur := make([]int, 0, k)
	var rec func(start int)
	rec = func(start int) {
		if len(cur) == k {
			combo := make([]int, k)
			copy(combo, cur)
			out = append(out, combo)
			return
		}
		for i := start; i < numCols; i++ {
			cur = append(cur, i)
			rec(i + 1)
			cur = cur[:len(cur)-1]
		}
	}
	rec(0)
	return out
}

// runShard enumerates every order-k candidate produced by rows [lo, hi) of
// attrs against every column combination in combos, accumulating into a
// freshly allocated, thread-exclusive table. It is the only place in the
// engine that runs concurrently with its siblings; everything it reads
// (attrs, aRows, next, ops) is immutable for the duration of the order, and
// everything it writes (tbl) is private to this goroutine.
func runShard(
	attrs [][]int,
	aRows [][]float64,
	ops []AggregationOp,
	combos [][]int,
	next frontier,
	noSupport int,
	k int,
	useArrayKeys bool,
	capacity int,
	lo, hi int,
) (*fastmap.Table, error) {
	tbl := fastmap.New(capacity, len(ops), useArrayKeys)

	// member is a per-goroutine local; on Go's stack this already gets the
	// "one reusable mutable key per thread" allocation avoidance the spec
	// calls for in languages where that requires an explicit object.
	var member [3]int

	for row := lo; row < hi; row++ {
		rowAttrs := attrs[row]
		rowAgg := aRows[row]

		for _, combo := range combos {
			skip := false
			for i, col := range combo {
				v := rowAttrs[col]
				if v == noSupport {
					skip = true
					break
				}
				member[i] = v
			}
			if skip {
				continue
			}
			if k >= 2 {
				ok := true
				for i := 0; i < k; i++ {
					if !next.Test(member[i]) {
						ok = false
						break
					}
				}
				if !ok {
					continue
				}
			}
			if err := accumulate(tbl, useArrayKeys, k, member, rowAgg, ops); err != nil {
				return nil, err
			}
		}
	}
	return tbl, nil
}

// accumulate folds one row's aggregate vector into tbl under the candidate
// key formed from member[:k], inserting a copy on first sight and
// pointwise-combining on every subsequent sighting.
func accumulate(tbl *fastmap.Table, useArrayKeys bool, k int, member [3]int, rowAgg []float64, ops []AggregationOp) error {
	if useArrayKeys {
		var key intset.Array
		switch k {
		case 1:
			key = intset.NewArray1(member[0])
		case 2:
			key = intset.NewArray2(member[0], member[1])
		default:
			key = intset.NewArray3(member[0], member[1], member[2])
		}
		if cur, ok := tbl.GetArray(key); ok {
			combineVector(ops, cur, rowAgg)
			return nil
		}
		return tbl.PutArray(key, rowAgg)
	}

	var word uint64
	switch k {
	case 1:
		word = intset.New1(member[0]).Word()
	case 2:
		word = intset.TwoIntToLong(member[0], member[1])
	default:
		word = intset.ThreeIntToLong(member[0], member[1], member[2])
	}
	if cur, ok := tbl.GetWord(word); ok {
		combineVector(ops, cur, rowAgg)
		return nil
	}
	return tbl.PutWord(word, rowAgg)
}
