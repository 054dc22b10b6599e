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
	"fmt"

	"github.com/pkg/errors"
)

// Kind distinguishes the four error conditions the core can surface. Only
// UnsupportedOrder, CapacityExceeded, and WorkerFailure are ever wrapped in
// an *Error; CardinalityOverflow is logged as a warning and handled
// transparently (see Options.Logger), never returned.
type Kind int

const (
	UnsupportedOrder Kind = iota
	CardinalityOverflow
	CapacityExceeded
	WorkerFailure
)

func (k Kind) String() string {
	switch k {
	case UnsupportedOrder:
		return "UnsupportedOrder"
	case CardinalityOverflow:
		return "CardinalityOverflow"
	case CapacityExceeded:
		return "CapacityExceeded"
	case WorkerFailure:
		return "WorkerFailure"
	default:
		return "Unknown"
	}
}

// Error is the fatal-error shape returned by Explain. None of its kinds are
// recovered inside the core; there are no retries and no partial results.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("explain: %s", e.Kind)
	}
	return fmt.Sprintf("explain: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error) error {
	return errors.WithStack(&Error{Kind: kind, Err: err})
}
