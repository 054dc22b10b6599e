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

// Package explain implements the multi-threaded, level-wise APriori
// candidate-enumeration engine: given a row-major attribute matrix of
// pre-encoded small-integer codes plus one or more additive aggregate
// columns, it finds every attribute combination ("subgroup") of arity 1-3
// whose aggregates satisfy a conjunction of QualityMetric thresholds.
//
// Explain is the only entry point. Everything else in this package (the
// AggregationOp enum, the QualityMetric contract and its three reference
// implementations, the row-shard aggregator, and the level-wise controller
// state machine) exists to make that one call correct and fast.
package explain
