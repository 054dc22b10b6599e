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

import "math"

// Action is the three-valued verdict a QualityMetric returns for a
// candidate's aggregate vector.
type Action int

const (
	// Keep means the candidate is reportable.
	Keep Action = iota
	// Next means the candidate itself doesn't qualify but a superset
	// might; it survives into the next order's enumeration.
	Next
	// Prune means neither this candidate nor any superset can qualify.
	Prune
)

func (a Action) String() string {
	switch a {
	case Keep:
		return "KEEP"
	case Next:
		return "NEXT"
	case Prune:
		return "PRUNE"
	default:
		return "UNKNOWN"
	}
}

// join computes the combined action across metrics per the lattice PRUNE >
// NEXT > KEEP: any PRUNE dominates, else any NEXT dominates, else KEEP.
func join(actions []Action) Action {
	result := Keep
	for _, a := range actions {
		if a == Prune {
			return Prune
		}
		if a == Next {
			result = Next
		}
	}
	return result
}

// QualityMetric is a threshold predicate over an aggregate vector. It is
// initialized once per Explain call with the dataset-wide aggregate, then
// consulted for every merged candidate at every order.
type QualityMetric interface {
	// Initialize is called once with the global aggregate vector Γ,
	// enabling metrics defined relative to the whole dataset (e.g. a
	// ratio against the global count).
	Initialize(global []float64)
	// Action classifies v against threshold.
	Action(v []float64, threshold float64) Action
	// Value computes the metric's reportable numeric value for v.
	Value(v []float64) float64
}

// combinedAction evaluates every metric against its parallel threshold and
// joins the results per the Action lattice.
func combinedAction(metrics []QualityMetric, thresholds []float64, v []float64) Action {
	actions := make([]Action, len(metrics))
	for i, m := range metrics {
		actions[i] = m.Action(v, thresholds[i])
	}
	return join(actions)
}

// CountMetric requires an aggregate column (conventionally row count) to be
// at least a threshold. It is anti-monotone — a superset's count can only
// be less than or equal to its subsets' — so a failing candidate is PRUNEd
// outright rather than carried to the next order; this is the metric that
// actually drives APriori-style pruning.
type CountMetric struct {
	Column int
}

func (m CountMetric) Initialize(global []float64) {}

func (m CountMetric) Action(v []float64, threshold float64) Action {
	if v[m.Column] >= threshold {
		return Keep
	}
	return Prune
}

func (m CountMetric) Value(v []float64) float64 { return v[m.Column] }

// SupportMetric requires the ratio of an aggregate column to its global sum
// to be at least a threshold (e.g. "this subgroup accounts for at least 5%
// of all outliers"). The ratio is not anti-monotone — a smaller subgroup
// can have a higher local ratio than one of its subsets — so a failing
// candidate gets NEXT, not PRUNE: a refinement of it may yet qualify.
type SupportMetric struct {
	Column int

	global float64
}

func (m *SupportMetric) Initialize(global []float64) { m.global = global[m.Column] }

func (m *SupportMetric) ratio(v []float64) float64 {
	if m.global == 0 {
		return 0
	}
	return v[m.Column] / m.global
}

func (m *SupportMetric) Action(v []float64, threshold float64) Action {
	if m.ratio(v) >= threshold {
		return Keep
	}
	return Next
}

func (m *SupportMetric) Value(v []float64) float64 { return m.ratio(v) }

// RiskRatioMetric computes macrobase's headline interestingness measure:
// the ratio between the outlier rate inside a subgroup and the outlier
// rate outside it. A ratio of 1 means the subgroup is unremarkable; higher
// means it is disproportionately represented among outliers. Like
// SupportMetric, the ratio is not anti-monotone, so a failing candidate
// gets NEXT rather than PRUNE.
type RiskRatioMetric struct {
	CountColumn   int
	OutlierColumn int

	globalCount   float64
	globalOutlier float64
}

func (m *RiskRatioMetric) Initialize(global []float64) {
	m.globalCount = global[m.CountColumn]
	m.globalOutlier = global[m.OutlierColumn]
}

func (m *RiskRatioMetric) ratio(v []float64) float64 {
	insideCount := v[m.CountColumn]
	insideOutlier := v[m.OutlierColumn]
	outsideCount := m.globalCount - insideCount
	outsideOutlier := m.globalOutlier - insideOutlier

	if insideCount == 0 || outsideCount == 0 {
		return 0
	}
	insideRate := insideOutlier / insideCount
	outsideRate := outsideOutlier / outsideCount
	if outsideRate == 0 {
		if insideRate == 0 {
			return 1
		}
		return math.Inf(1)
	}
	return insideRate / outsideRate
}

func (m *RiskRatioMetric) Action(v []float64, threshold float64) Action {
	if m.ratio(v) >= threshold {
		return Keep
	}
	return Next
}

func (m *RiskRatioMetric) Value(v []float64) float64 { return m.ratio(v) }
