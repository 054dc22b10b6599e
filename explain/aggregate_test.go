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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregationOpIdentity(t *testing.T) {
	require.Equal(t, 0.0, Sum.Identity())
	require.Equal(t, Sum.Combine(Sum.Identity(), 5), 5.0)
	require.Equal(t, Max.Combine(Max.Identity(), 5), 5.0)
	require.Equal(t, Min.Combine(Min.Identity(), 5), 5.0)
}

func TestAggregationOpCombine(t *testing.T) {
	require.Equal(t, 7.0, Sum.Combine(3, 4))
	require.Equal(t, 4.0, Max.Combine(3, 4))
	require.Equal(t, 3.0, Min.Combine(3, 4))
}

func TestAggregationOpAssociativeCommutative(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	for _, op := range []AggregationOp{Sum, Max, Min} {
		forward := op.Identity()
		for _, v := range vals {
			forward = op.Combine(forward, v)
		}
		backward := op.Identity()
		for i := len(vals) - 1; i >= 0; i-- {
			backward = op.Combine(backward, vals[i])
		}
		require.Equal(t, forward, backward)
	}
}

func TestCombineVectorPointwise(t *testing.T) {
	ops := []AggregationOp{Sum, Max}
	dst := []float64{1, 1}
	combineVector(ops, dst, []float64{2, 5})
	require.Equal(t, []float64{3, 5}, dst)
}

func TestGlobalAggregate(t *testing.T) {
	require.Equal(t, 10.0, globalAggregate(Sum, []float64{1, 2, 3, 4}))
	require.Equal(t, 4.0, globalAggregate(Max, []float64{1, 2, 3, 4}))
	require.Equal(t, 1.0, globalAggregate(Min, []float64{1, 2, 3, 4}))
}
