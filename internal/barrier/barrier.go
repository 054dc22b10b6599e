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

// Package barrier partitions a row range across a fixed thread count and
// joins the resulting workers at a single barrier, propagating the first
// worker error. It is the concurrency primitive behind each APriori order:
// one barrier per order, no cooperative suspension inside a shard's work.
//
// This generalizes the teacher's two fan-out idioms (sorting.ThreadPool's
// persistent condvar-driven worker pool; plan.executor.run's per-task
// WaitGroup plus collected []error) into a single one-shot primitive built
// on golang.org/x/sync/errgroup, which is the right fit here because every
// order launches a fresh, short-lived set of workers rather than feeding a
// long-lived queue.
package barrier

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Shard is a contiguous, half-open row range [Lo, Hi) assigned to one
// worker.
type Shard struct {
	Lo, Hi int
}

// Split divides [0, rows) into at most numThreads contiguous shards. When
// rows < numThreads, fewer, larger shards are returned rather than empty
// ones.
func Split(rows, numThreads int) []Shard {
	if numThreads < 1 {
		numThreads = 1
	}
	if rows <= 0 {
		return nil
	}
	if numThreads > rows {
		numThreads = rows
	}
	shards := make([]Shard, 0, numThreads)
	base := rows / numThreads
	rem := rows % numThreads
	lo := 0
	for i := 0; i < numThreads; i++ {
		size := base
		if i < rem {
			size++
		}
		hi := lo + size
		shards = append(shards, Shard{Lo: lo, Hi: hi})
		lo = hi
	}
	return shards
}

// Run launches one goroutine per shard of [0, rows) across numThreads
// workers, blocks until every worker returns, and propagates the first
// non-nil error (the rest are discarded, matching the spec's "report the
// first such exception" worker-failure semantics).
func Run(ctx context.Context, rows, numThreads int, fn func(ctx context.Context, shardIndex int, s Shard) error) error {
	shards := Split(rows, numThreads)
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range shards {
		i, s := i, s
		g.Go(func() error {
			return fn(ctx, i, s)
		})
	}
	return g.Wait()
}
