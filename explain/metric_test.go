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
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActionLatticeJoin(t *testing.T) {
	require.Equal(t, Keep, join([]Action{Keep, Keep}))
	require.Equal(t, Next, join([]Action{Keep, Next}))
	require.Equal(t, Prune, join([]Action{Keep, Next, Prune}))
	require.Equal(t, Prune, join([]Action{Prune}))
	require.Equal(t, Keep, join(nil))
}

func TestCountMetricAntiMonotone(t *testing.T) {
	m := CountMetric{Column: 0}
	require.Equal(t, Keep, m.Action([]float64{10}, 5))
	require.Equal(t, Prune, m.Action([]float64{3}, 5))
}

func TestSupportMetricRatio(t *testing.T) {
	m := &SupportMetric{Column: 0}
	m.Initialize([]float64{100})
	require.Equal(t, Keep, m.Action([]float64{10}, 0.05))
	require.Equal(t, Next, m.Action([]float64{1}, 0.05))
	require.InDelta(t, 0.1, m.Value([]float64{10}), 1e-9)
}

func TestSupportMetricZeroGlobalIsSafe(t *testing.T) {
	m := &SupportMetric{Column: 0}
	m.Initialize([]float64{0})
	require.Equal(t, 0.0, m.ratio([]float64{0}))
	require.Equal(t, Next, m.Action([]float64{0}, 0.05))
}

func TestRiskRatioMetricUnremarkableIsOne(t *testing.T) {
	m := &RiskRatioMetric{CountColumn: 0, OutlierColumn: 1}
	m.Initialize([]float64{100, 10})
	// Subgroup's outlier rate matches the remainder's exactly: ratio 1.
	require.InDelta(t, 1.0, m.ratio([]float64{50, 5}), 1e-9)
}

func TestRiskRatioMetricDisproportionate(t *testing.T) {
	m := &RiskRatioMetric{CountColumn: 0, OutlierColumn: 1}
	m.Initialize([]float64{100, 10})
	// All outliers concentrated in a 10-row subgroup: far higher inside rate.
	ratio := m.ratio([]float64{10, 10})
	require.True(t, ratio > 1)
	require.Equal(t, Keep, m.Action([]float64{10, 10}, 2))
}

func TestRiskRatioMetricOutsideRateZero(t *testing.T) {
	m := &RiskRatioMetric{CountColumn: 0, OutlierColumn: 1}
	m.Initialize([]float64{100, 10})
	require.True(t, math.IsInf(m.ratio([]float64{90, 10}), 1))
}

func TestCombinedActionJoinsAcrossMetrics(t *testing.T) {
	count := CountMetric{Column: 0}
	support := &SupportMetric{Column: 0}
	support.Initialize([]float64{100})
	metrics := []QualityMetric{count, support}
	require.Equal(t, Prune, combinedAction(metrics, []float64{5, 0.5}, []float64{1}))
}
