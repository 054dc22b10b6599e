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
	"context"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/mylinyuzhi/macrobase/internal/barrier"
	"github.com/mylinyuzhi/macrobase/internal/bitset"
	"github.com/mylinyuzhi/macrobase/internal/fastmap"
	"github.com/mylinyuzhi/macrobase/internal/intset"
)

// Options carries everything about an Explain call that isn't part of the
// data/operator/threshold contract itself. There is no config file and no
// environment parsing here (§6: "no wire format, no CLI, no persisted
// state") — every field is a plain value the host process sets directly.
type Options struct {
	// Logger receives the one CardinalityOverflow warning (if any) and the
	// first WorkerFailure before it is returned to the caller. A nil
	// Logger is treated as zap.NewNop().
	Logger *zap.Logger
	// Deterministic, when true, sorts the emitted records into a canonical
	// IntSet ordering so that repeated runs over the same data and thread
	// count are byte-for-byte reproducible (§5's "Open question —
	// determinism"). Frontiers are not sorted; the merge always folds the
	// per-shard tables in shard order, with or without this flag.
	Deterministic bool
}

// Record is one reported subgroup: its attribute combination, the merged
// aggregate vector backing it, and the per-metric values computed from that
// vector.
type Record struct {
	Set        intset.Array
	Aggregates []float64
	Metrics    []float64
}

func (r Record) String() string {
	switch r.Set.Len() {
	case 1:
		return fmt.Sprintf("{%d}: agg=%v metrics=%v", r.Set.First(), r.Aggregates, r.Metrics)
	case 2:
		return fmt.Sprintf("{%d,%d}: agg=%v metrics=%v", r.Set.First(), r.Set.Second(), r.Aggregates, r.Metrics)
	default:
		return fmt.Sprintf("{%d,%d,%d}: agg=%v metrics=%v", r.Set.First(), r.Set.Second(), r.Set.Third(), r.Aggregates, r.Metrics)
	}
}

// Stats reports diagnostic counters alongside the explanation — how many
// candidates were considered, kept, or pruned at each order, and which key
// representation was used. It is not part of the explanation lattice
// itself; it exists for the same reason the teacher's plan.ExecParams
// carries a Stats observer (plan/exec.go's e.ep.Stats.observe call): so an
// operator can tell a slow, low-yield run from a healthy one.
type Stats struct {
	Considered [4]int // indexed by order 1..3; index 0 unused
	Kept       [4]int
	Pruned     [4]int
	ArrayKeys  bool
}

// Explain runs the level-wise APriori enumeration described in spec.md §4.6
// over attrs (row-major, R x C, codes in [0, cardinality)), aggregates
// (column-major, M x R), combined per-column with ops, against metrics
// (each paired with the threshold at the same index), for orders 1 through
// maxOrder using numThreads goroutines per order.
func Explain(
	attrs [][]int,
	aggregates [][]float64,
	ops []AggregationOp,
	cardinality int,
	maxOrder int,
	numThreads int,
	metrics []QualityMetric,
	thresholds []float64,
	noSupport int,
	opts Options,
) ([]Record, Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxOrder < 1 || maxOrder > 3 {
		return nil, Stats{}, newError(UnsupportedOrder, fmt.Errorf("maxOrder must be in [1,3], got %d", maxOrder))
	}
	if numThreads < 1 {
		numThreads = 1
	}

	useArrayKeys := intset.UseArray(cardinality)
	if useArrayKeys {
		logger.Warn("cardinality at or above packed-key limit, switching to array-keyed mode",
			zap.Int("cardinality", cardinality),
			zap.Int("limit", intset.MaxPackedCardinality))
	}

	stats := Stats{ArrayKeys: useArrayKeys}

	rows := len(attrs)
	if rows == 0 {
		return nil, stats, nil
	}
	numCols := len(attrs[0])
	numAggs := len(ops)

	aRows := transposeAggregates(aggregates, rows, numAggs)

	global := make([]float64, numAggs)
	for j, op := range ops {
		global[j] = globalAggregate(op, aggregates[j])
	}
	for _, m := range metrics {
		m.Initialize(global)
	}

	c := &controller{
		attrs:           attrs,
		aRows:           aRows,
		ops:             ops,
		cardinality:     cardinality,
		numThreads:      numThreads,
		numCols:         numCols,
		metrics:         metrics,
		thresholds:      thresholds,
		noSupport:       noSupport,
		useArrayKeys:    useArrayKeys,
		logger:          logger,
		deterministic:   opts.Deterministic,
		savedAggregates: make(map[int]map[intset.Array][]float64),
		setNext:         make(map[int]map[intset.Array]struct{}),
	}

	for k := 1; k <= maxOrder; k++ {
		if err := c.runOrder(k, &stats); err != nil {
			logger.Error("worker failure", zap.Int("order", k), zap.Error(err))
			if errors.Is(err, fastmap.ErrFull) {
				return nil, stats, newError(CapacityExceeded, err)
			}
			return nil, stats, newError(WorkerFailure, err)
		}
	}

	return c.emit(), stats, nil
}

func transposeAggregates(aggregates [][]float64, rows, numAggs int) [][]float64 {
	aRows := make([][]float64, rows)
	flat := make([]float64, rows*numAggs)
	for r := 0; r < rows; r++ {
		row := flat[r*numAggs : (r+1)*numAggs]
		for j := 0; j < numAggs; j++ {
			row[j] = aggregates[j][r]
		}
		aRows[r] = row
	}
	return aRows
}

// controller owns all per-invocation state (§3's "Per-order state"); it is
// created fresh by Explain and discarded on return.
type controller struct {
	attrs       [][]int
	aRows       [][]float64
	ops         []AggregationOp
	cardinality int
	numThreads  int
	numCols     int
	metrics     []QualityMetric
	thresholds  []float64
	noSupport   int

	useArrayKeys  bool
	deterministic bool
	logger        *zap.Logger

	singleNext frontier // order-1 NEXT/KEEP membership, built after k==1

	// savedAggregates[k] / setNext[k] hold order-k state; both are
	// rebuilt fresh each order and never mutated concurrently (they're
	// only touched by runOrder's single-threaded merge/prune phase).
	savedAggregates map[int]map[intset.Array][]float64
	setNext         map[int]map[intset.Array]struct{}
}

// runOrder drives one ENUMERATE -> MERGE -> PRUNE step of the state machine
// in spec.md §4.6.
func (c *controller) runOrder(k int, stats *Stats) error {
	combos := columnCombinations(c.numCols, k)
	capacity := capacityForOrder(c.cardinality, k, len(c.attrs), len(combos))

	tables := make([]*fastmap.Table, len(barrier.Split(len(c.attrs), c.numThreads)))
	err := barrier.Run(context.Background(), len(c.attrs), c.numThreads,
		func(ctx context.Context, shardIndex int, s barrier.Shard) error {
			tbl, err := runShard(c.attrs, c.aRows, c.ops, combos, c.singleNext, c.noSupport, k, c.useArrayKeys, capacity, s.Lo, s.Hi)
			if err != nil {
				return err
			}
			tables[shardIndex] = tbl
			return nil
		})
	if err != nil {
		return err
	}

	merged := c.mergeTables(tables, k)

	setNext := make(map[intset.Array]struct{})
	saved := make(map[intset.Array][]float64)

	for key, v := range merged {
		stats.Considered[k]++

		if k == 1 && key.First() == c.noSupport {
			stats.Pruned[k]++
			continue
		}

		action := combinedAction(c.metrics, c.thresholds, v)

		if action == Keep && k == 3 {
			if !c.subsetsSurvived(key) {
				// subset-containment check failed: not reported, but
				// also not a NEXT candidate (there is no order 4).
				stats.Pruned[k]++
				continue
			}
		}

		switch action {
		case Keep:
			saved[key] = v
			stats.Kept[k]++
		case Next:
			setNext[key] = struct{}{}
		case Prune:
			stats.Pruned[k]++
		}
	}

	c.setNext[k] = setNext
	c.savedAggregates[k] = saved

	if k == 1 {
		c.singleNext = c.buildSingleNext(setNext, saved)
	}
	return nil
}

// subsetsSurvived implements the order-3 subset-containment check (spec.md
// §4.6.2.d): an order-3 KEEP candidate is only reportable if all three of
// its order-2 subsets themselves survived order 2, i.e. were not PRUNEd —
// whether they were carried forward as NEXT or reported outright as KEEP.
// A metric set made entirely of anti-monotone metrics (CountMetric alone)
// never produces a NEXT verdict, so checking setNext[2] in isolation would
// reject every order-3 candidate; saved[2] must be consulted too.
func (c *controller) subsetsSurvived(key intset.Array) bool {
	setNext2 := c.setNext[2]
	saved2 := c.savedAggregates[2]
	if setNext2 == nil && saved2 == nil {
		return false
	}
	for _, sub := range key.Subsets2() {
		_, inNext := setNext2[sub]
		_, inSaved := saved2[sub]
		if !inNext && !inSaved {
			return false
		}
	}
	return true
}

// buildSingleNext materializes singleNextArray from order-1's NEXT and KEEP
// candidates (both survive into order >= 2 enumeration; only PRUNE does
// not). It picks a dense bitset.Set while the packed-key regime is in play
// and a compressed roaring bitmap once array-key mode means K may be in the
// millions (scenario S5).
func (c *controller) buildSingleNext(setNext map[intset.Array]struct{}, saved map[intset.Array][]float64) frontier {
	f := c.newFrontierBuilder()
	for key := range setNext {
		f.Set(key.First())
	}
	for key := range saved {
		f.Set(key.First())
	}
	return f
}

type settableFrontier interface {
	frontier
	Set(code int)
}

func (c *controller) newFrontierBuilder() settableFrontier {
	if c.useArrayKeys {
		return &roaringFrontier{bm: roaring.New()}
	}
	return bitset.New(c.cardinality)
}

type roaringFrontier struct {
	bm *roaring.Bitmap
}

func (r *roaringFrontier) Test(code int) bool { return r.bm.Contains(uint32(code)) }
func (r *roaringFrontier) Set(code int)       { r.bm.Add(uint32(code)) }

// mergeTables folds every thread's local table for order k into one
// canonical map keyed by the array-variant IntSet, regardless of whether
// word or array mode produced the entries — this is the single point in
// the engine where results from independently-ordered threads are combined
// into one deterministic-up-to-float-summation-order value per candidate
// (§5).
func (c *controller) mergeTables(tables []*fastmap.Table, k int) map[intset.Array][]float64 {
	merged := make(map[intset.Array][]float64)
	absorb := func(key intset.Array, value []float64) {
		if cur, ok := merged[key]; ok {
			combineVector(c.ops, cur, value)
			return
		}
		cp := make([]float64, len(value))
		copy(cp, value)
		merged[key] = cp
	}
	for _, tbl := range tables {
		if tbl == nil {
			continue
		}
		if c.useArrayKeys {
			tbl.EachArray(func(key intset.Array, value []float64) { absorb(key, value) })
		} else {
			tbl.EachWord(func(word uint64, value []float64) {
				absorb(intset.FromWord(word, k).ToArray(), value)
			})
		}
	}
	return merged
}

// combinationUnbounded is returned by combinationCount once the true
// combinatorial count would be large enough to risk overflowing (or simply
// dwarfing) any real row-shard bound; capacityForOrder's min() with
// rows*numCombos then does the actual sizing work in that regime.
const combinationUnbounded = 1 << 62

// combinationCount returns C(n, k), the number of distinct order-k
// candidates that k-subsets of an n-value attribute dictionary can produce
// (spec.md §4.2's "configured ceiling", following §5's O(K^k) worst-case
// note). maxOrder is fixed to [1,3] (checked in Explain), so this only ever
// needs to handle k in that range; it's unrolled per k rather than written
// as a general multiplicative loop so the overflow guard for each case can
// be reasoned about directly instead of through a loop invariant.
func combinationCount(n, k int) int {
	switch k {
	case 1:
		return n
	case 2:
		if n > 1<<31 {
			return combinationUnbounded
		}
		return n * (n - 1) / 2
	case 3:
		if n > 1<<20 {
			return combinationUnbounded
		}
		return n * (n - 1) * (n - 2) / 6
	default:
		panic("explain: combinationCount only supports order 1-3")
	}
}

// capacityForOrder sizes the per-thread hash table to the true combinatorial
// ceiling C(cardinality, k), not a shard's possibly much smaller actual
// yield — but no table ever needs more slots than the shard could possibly
// produce distinct keys for either: each (row, column-combination) pair
// yields at most one candidate, so rows*numCombos is always a valid, and
// often much tighter, second bound.
func capacityForOrder(cardinality, k, rows, numCombos int) int {
	n := combinationCount(cardinality, k)
	if bound := rows * numCombos; bound > 0 && bound < n {
		n = bound
	}
	return fastmap.CapacityFor(n)
}

// emit flattens every order's saved (KEEP) candidates into the final
// unordered-by-default result list, computing each metric's reportable
// value. When Options.Deterministic was set, results are sorted into
// canonical IntSet order first.
func (c *controller) emit() []Record {
	var out []Record
	for k := 1; k <= 3; k++ {
		saved, ok := c.savedAggregates[k]
		if !ok {
			continue
		}
		for key, agg := range saved {
			values := make([]float64, len(c.metrics))
			for i, m := range c.metrics {
				values[i] = m.Value(agg)
			}
			out = append(out, Record{Set: key, Aggregates: agg, Metrics: values})
		}
	}
	if c.deterministic {
		slices.SortFunc(out, func(a, b Record) bool {
			return lessIntSet(a.Set, b.Set)
		})
	}
	return out
}

func lessIntSet(a, b intset.Array) bool {
	if a.Len() != b.Len() {
		return a.Len() < b.Len()
	}
	if a.First() != b.First() {
		return a.First() < b.First()
	}
	if a.Second() != b.Second() {
		return a.Second() < b.Second()
	}
	return a.Third() < b.Third()
}
