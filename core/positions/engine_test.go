// Copyright (C) 2023 Gobalsky Labs Limited
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package positions_test

import (
	"testing"

	"github.com/arcex-labs/arcex/core/positions"
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestEngine(t *testing.T) *positions.Engine {
	t.Helper()
	return positions.New(logging.NewTestLogger(), positions.NewDefaultConfig(), 1)
}

func d(s string) num.Decimal {
	return num.MustDecimalFromString(s)
}

func TestOpenNewPosition(t *testing.T) {
	e := getTestEngine(t)

	ups := e.ApplyFill(1, types.SideBuy, d("1"), d("50000"), d("5000"), num.DecimalZero(), 1)
	require.Len(t, ups, 1)
	assert.Equal(t, positions.UpdateOpened, ups[0].Kind)
	assert.True(t, ups[0].Size.Equal(d("1")))
	assert.True(t, ups[0].EntryPrice.Equal(d("50000")))
	assert.True(t, ups[0].CollateralPosted.Equal(d("5000")))

	pos, ok := e.GetPositionByAccount(1)
	require.True(t, ok)
	assert.True(t, pos.Size().Equal(d("1")))
	assert.True(t, pos.Collateral().Equal(d("5000")))
}

func TestIncreaseAveragesEntry(t *testing.T) {
	e := getTestEngine(t)

	e.ApplyFill(1, types.SideBuy, d("1"), d("50000"), d("5000"), num.DecimalZero(), 1)
	ups := e.ApplyFill(1, types.SideBuy, d("1"), d("52000"), d("5200"), num.DecimalZero(), 2)
	require.Len(t, ups, 1)
	assert.Equal(t, positions.UpdateIncreased, ups[0].Kind)

	pos, _ := e.GetPositionByAccount(1)
	// (1*50000 + 1*52000) / 2 = 51000
	assert.True(t, pos.EntryPrice().Equal(d("51000")))
	assert.True(t, pos.Size().Equal(d("2")))
	assert.True(t, pos.Collateral().Equal(d("10200")))
	assert.True(t, ups[0].RealisedPnL.IsZero())
}

func TestReduceKeepsEntryRealisesPnL(t *testing.T) {
	e := getTestEngine(t)

	e.ApplyFill(1, types.SideBuy, d("2"), d("50000"), d("10000"), num.DecimalZero(), 1)
	ups := e.ApplyFill(1, types.SideSell, d("1"), d("55000"), num.DecimalZero(), num.DecimalZero(), 2)
	require.Len(t, ups, 1)
	assert.Equal(t, positions.UpdateReduced, ups[0].Kind)
	// 1 * (55000 - 50000) = 5000
	assert.True(t, ups[0].RealisedPnL.Equal(d("5000")))
	// half the position closed, half the collateral returned
	assert.True(t, ups[0].CollateralReturned.Equal(d("5000")))

	pos, _ := e.GetPositionByAccount(1)
	assert.True(t, pos.EntryPrice().Equal(d("50000")), "entry must not change on reduce")
	assert.True(t, pos.Size().Equal(d("1")))
	assert.True(t, pos.Collateral().Equal(d("5000")))
}

func TestShortReduceRealisesPnL(t *testing.T) {
	e := getTestEngine(t)

	e.ApplyFill(1, types.SideSell, d("1"), d("50000"), d("2500"), num.DecimalZero(), 1)
	ups := e.ApplyFill(1, types.SideBuy, d("1"), d("48000"), num.DecimalZero(), num.DecimalZero(), 2)
	require.Len(t, ups, 1)
	assert.Equal(t, positions.UpdateClosed, ups[0].Kind)
	// short profits when price falls: -1 * (48000 - 50000) = 2000
	assert.True(t, ups[0].RealisedPnL.Equal(d("2000")))
	assert.True(t, ups[0].CollateralReturned.Equal(d("2500")))

	_, ok := e.GetPositionByAccount(1)
	assert.False(t, ok, "closed position record must be removed")
}

func TestFlipProducesCloseThenOpen(t *testing.T) {
	e := getTestEngine(t)

	e.ApplyFill(1, types.SideBuy, d("1"), d("50000"), d("5000"), num.DecimalZero(), 1)
	ups := e.ApplyFill(1, types.SideSell, d("3"), d("51000"), d("10200"), num.DecimalZero(), 2)
	require.Len(t, ups, 2)

	assert.Equal(t, positions.UpdateClosed, ups[0].Kind)
	assert.True(t, ups[0].RealisedPnL.Equal(d("1000")))
	assert.True(t, ups[0].CollateralReturned.Equal(d("5000")))

	assert.Equal(t, positions.UpdateOpened, ups[1].Kind)
	assert.True(t, ups[1].Size.Equal(d("-2")))
	assert.True(t, ups[1].EntryPrice.Equal(d("51000")))
	assert.True(t, ups[1].CollateralPosted.Equal(d("10200")))

	pos, ok := e.GetPositionByAccount(1)
	require.True(t, ok)
	assert.True(t, pos.Size().Equal(d("-2")))
}

func TestWeightedEntryOverManyFills(t *testing.T) {
	e := getTestEngine(t)

	fills := []struct{ size, price string }{
		{"1", "50000"},
		{"2", "51000"},
		{"0.5", "49000"},
	}
	totalNotional := num.DecimalZero()
	totalSize := num.DecimalZero()
	for i, f := range fills {
		e.ApplyFill(1, types.SideBuy, d(f.size), d(f.price), num.DecimalZero(), num.DecimalZero(), int64(i))
		totalNotional = totalNotional.Add(d(f.size).Mul(d(f.price)))
		totalSize = totalSize.Add(d(f.size))
	}

	pos, _ := e.GetPositionByAccount(1)
	assert.True(t, pos.EntryPrice().Equal(totalNotional.Div(totalSize)))
}

func TestUnrealisedPnLAtEntryIsZero(t *testing.T) {
	e := getTestEngine(t)
	e.ApplyFill(1, types.SideBuy, d("3"), d("50000"), d("15000"), num.DecimalZero(), 1)
	pos, _ := e.GetPositionByAccount(1)
	assert.True(t, pos.UnrealisedPnL(pos.EntryPrice()).IsZero())
}

func TestOpenInterestSymmetry(t *testing.T) {
	e := getTestEngine(t)

	// every trade touches a buyer and a seller
	apply := func(buyer, seller types.AccountID, size, price string) {
		e.ApplyFill(buyer, types.SideBuy, d(size), d(price), num.DecimalZero(), num.DecimalZero(), 1)
		e.ApplyFill(seller, types.SideSell, d(size), d(price), num.DecimalZero(), num.DecimalZero(), 1)
	}

	apply(1, 2, "1", "50000")
	apply(3, 1, "0.4", "50500")
	apply(2, 4, "2", "49900")

	long, short := e.OpenInterest()
	assert.True(t, long.Equal(short), "long %s != short %s", long, short)
}

func TestPositionsSortedByAccount(t *testing.T) {
	e := getTestEngine(t)
	for _, acc := range []types.AccountID{42, 7, 19} {
		e.ApplyFill(acc, types.SideBuy, d("1"), d("50000"), num.DecimalZero(), num.DecimalZero(), 1)
	}
	all := e.Positions()
	require.Len(t, all, 3)
	assert.Equal(t, types.AccountID(7), all[0].Account())
	assert.Equal(t, types.AccountID(19), all[1].Account())
	assert.Equal(t, types.AccountID(42), all[2].Account())
}
