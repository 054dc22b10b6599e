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

package bitset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAndTest(t *testing.T) {
	s := New(130)
	require.False(t, s.Test(0))
	require.False(t, s.Test(64))
	require.False(t, s.Test(129))

	s.Set(0)
	s.Set(64)
	s.Set(129)

	require.True(t, s.Test(0))
	require.True(t, s.Test(64))
	require.True(t, s.Test(129))
	require.False(t, s.Test(63))
	require.Equal(t, 130, s.Len())
}
