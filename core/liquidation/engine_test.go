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

package liquidation_test

import (
	"testing"

	"github.com/arcex-labs/arcex/core/collateral"
	"github.com/arcex-labs/arcex/core/liquidation"
	"github.com/arcex-labs/arcex/core/positions"
	"github.com/arcex-labs/arcex/core/risk"
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) num.Decimal {
	return num.MustDecimalFromString(s)
}

type tstEngine struct {
	*liquidation.Engine
	pos *positions.Engine
	col *collateral.Engine
}

func getTestEngine(t *testing.T, cfg liquidation.Config) *tstEngine {
	t.Helper()
	log := logging.NewTestLogger()
	pos := positions.New(log, positions.NewDefaultConfig(), 1)
	col := collateral.New(log, collateral.NewDefaultConfig())
	calc := risk.NewMarginCalculator(risk.NewDefaultConfig())
	return &tstEngine{
		Engine: liquidation.New(log, cfg, 1, pos, col, calc),
		pos:    pos,
		col:    col,
	}
}

// openPosition deposits, reserves the margin and books the fill, the way the
// execution layer does it.
func (e *tstEngine) openPosition(t *testing.T, acc types.AccountID, side types.Side, size, price, collateral, deposit num.Decimal) {
	t.Helper()
	_, err := e.col.Deposit(acc, deposit)
	require.NoError(t, err)
	require.NoError(t, e.col.Reserve(acc, collateral))
	e.pos.ApplyFill(acc, side, size, price, collateral, num.DecimalZero(), 0)
}

func TestHealthyPositionsUntouched(t *testing.T) {
	e := getTestEngine(t, liquidation.NewDefaultConfig())
	e.openPosition(t, 1, types.SideBuy, d("1"), d("50000"), d("2500"), d("5000"))
	e.openPosition(t, 2, types.SideSell, d("1"), d("50000"), d("2500"), d("5000"))

	results, calls := e.Sweep(d("50000"), num.DecimalZero(), 0)
	assert.Empty(t, results)
	assert.Empty(t, calls)
}

func TestLiquidationBoundary(t *testing.T) {
	e := getTestEngine(t, liquidation.NewDefaultConfig())
	e.openPosition(t, 1, types.SideBuy, d("1"), d("50000"), d("2500"), d("60000"))
	e.openPosition(t, 2, types.SideSell, d("1"), d("50000"), d("2500"), d("5000"))

	// short at 20x liquidates above 50000 * (1 + 0.5/20) = 51250; at the
	// boundary equity equals the maintenance margin and the position
	// survives with a margin call
	results, calls := e.Sweep(d("51250"), num.DecimalZero(), 0)
	assert.Empty(t, results)
	require.Equal(t, []types.AccountID{2}, calls)

	results, _ = e.Sweep(d("51251"), num.DecimalZero(), 0)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, types.AccountID(2), r.Account)
	assert.Equal(t, types.SideSell, r.Side)
	assert.True(t, r.ClosedSize.Equal(d("1")))
	assert.True(t, r.RealisedPnL.Equal(d("-1251")))
	assert.True(t, r.CollateralReturned.Equal(d("2500")))
	// penalty is 1% of the closed notional, all to insurance without a
	// registered liquidator
	assert.True(t, r.Penalty.Equal(d("512.51")), "got %s", r.Penalty)
	assert.True(t, r.LiquidatorCut.IsZero())
	assert.True(t, r.InsuranceCut.Equal(d("512.51")))
	assert.True(t, r.ResidualEquity.Equal(d("736.49")))
	assert.True(t, r.BadDebt.IsZero())
	assert.True(t, r.Closed)

	// deposit 5000, loss 1251, penalty 512.51
	a, _ := e.col.GetAccount(2)
	assert.True(t, a.Balance().Equal(d("3236.49")), "got %s", a.Balance())
	assert.True(t, a.Reserved().IsZero())
	assert.True(t, e.col.Insurance().Balance().Equal(d("512.51")))

	// the insurance fund assumed the short, open interest stays matched
	ins, ok := e.pos.GetPositionByAccount(types.InsuranceAccountID)
	require.True(t, ok)
	assert.True(t, ins.Size().Equal(d("-1")))
	assert.True(t, ins.EntryPrice().Equal(d("51251")))
	long, short := e.pos.OpenInterest()
	assert.True(t, long.Equal(short))
	assert.True(t, long.Equal(d("1")))
}

func TestPenaltySplitWithLiquidator(t *testing.T) {
	e := getTestEngine(t, liquidation.NewDefaultConfig())
	e.col.Deposit(9, d("1"))
	e.SetLiquidator(9)

	e.openPosition(t, 1, types.SideBuy, d("1"), d("50000"), d("2500"), d("60000"))
	e.openPosition(t, 2, types.SideSell, d("1"), d("50000"), d("2500"), d("5000"))

	results, _ := e.Sweep(d("51251"), num.DecimalZero(), 0)
	require.Len(t, results, 1)
	assert.True(t, results[0].LiquidatorCut.Equal(d("256.255")))
	assert.True(t, results[0].InsuranceCut.Equal(d("256.255")))

	liq, _ := e.col.GetAccount(9)
	assert.True(t, liq.Balance().Equal(d("257.255")))
	assert.True(t, e.col.Insurance().Balance().Equal(d("256.255")))
}

func TestPendingFundingTriggersLiquidation(t *testing.T) {
	e := getTestEngine(t, liquidation.NewDefaultConfig())
	e.openPosition(t, 1, types.SideBuy, d("1"), d("50000"), d("2500"), d("2500"))
	e.openPosition(t, 2, types.SideSell, d("1"), d("50000"), d("25000"), d("25000"))

	// price unchanged but 1300 of funding accrued against the long:
	// equity 2500 - 1300 = 1200 < 1250
	results, _ := e.Sweep(d("50000"), d("0.026"), 0)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, types.AccountID(1), r.Account)
	assert.True(t, r.FundingPaid.Equal(d("1300")))
	assert.True(t, r.RealisedPnL.IsZero())
	assert.True(t, r.Penalty.Equal(d("500")))

	a, _ := e.col.GetAccount(1)
	assert.True(t, a.Balance().Equal(d("700")))
	// accrued funding and the penalty both land on insurance
	assert.True(t, e.col.Insurance().Balance().Equal(d("1800")))
}

func TestBadDebtTriggersDeleveraging(t *testing.T) {
	e := getTestEngine(t, liquidation.NewDefaultConfig())
	// long at 50x with exactly the initial margin deposited
	e.openPosition(t, 1, types.SideBuy, d("1"), d("50000"), d("1000"), d("1000"))
	e.openPosition(t, 2, types.SideSell, d("1"), d("50000"), d("25000"), d("25000"))

	// mark gaps through the bankruptcy price: loss 2000 against 1000 of
	// collateral, the empty insurance fund cannot cover the gap
	results, _ := e.Sweep(d("48000"), num.DecimalZero(), 0)
	require.Len(t, results, 1)
	r := results[0]
	assert.True(t, r.BadDebt.Equal(d("1000")))
	assert.True(t, r.Penalty.IsZero(), "nothing left to take the penalty from")
	assert.True(t, r.Shortfall.IsZero(), "deleveraging covered the gap")

	// the short's profit is 2000 per contract: closing 0.5 absorbs the
	// 1000 shortfall
	require.Len(t, r.Deleveraged, 1)
	adl := r.Deleveraged[0]
	assert.Equal(t, types.AccountID(2), adl.Account)
	assert.True(t, adl.ClosedSize.Equal(d("0.5")))
	assert.True(t, adl.RealisedPnL.Equal(d("1000")))
	assert.True(t, adl.Absorbed.Equal(d("1000")))
	assert.True(t, adl.CollateralReturned.Equal(d("12500")))
	assert.False(t, adl.Closed)

	// the absorbed gain never reaches the account
	a, _ := e.col.GetAccount(2)
	assert.True(t, a.Balance().Equal(d("12500")))
	assert.True(t, a.Reserved().Equal(d("12500")))
	assert.True(t, a.RealisedPnL().IsZero())

	// half the assumed long remains with insurance, OI stays matched
	ins, ok := e.pos.GetPositionByAccount(types.InsuranceAccountID)
	require.True(t, ok)
	assert.True(t, ins.Size().Equal(d("0.5")))
	long, short := e.pos.OpenInterest()
	assert.True(t, long.Equal(short))
}

func TestPreFundedInsuranceLimitsDeleveraging(t *testing.T) {
	e := getTestEngine(t, liquidation.NewDefaultConfig())
	e.col.Deposit(types.InsuranceAccountID, d("400"))

	e.openPosition(t, 1, types.SideBuy, d("1"), d("50000"), d("1000"), d("1000"))
	e.openPosition(t, 2, types.SideSell, d("1"), d("50000"), d("25000"), d("25000"))

	results, _ := e.Sweep(d("48000"), num.DecimalZero(), 0)
	require.Len(t, results, 1)
	r := results[0]
	assert.True(t, r.BadDebt.Equal(d("1000")))

	// fund covers 400 of the 1000, deleveraging recovers the remaining 600
	require.Len(t, r.Deleveraged, 1)
	assert.True(t, r.Deleveraged[0].ClosedSize.Equal(d("0.3")))
	assert.True(t, r.Deleveraged[0].Absorbed.Equal(d("600")))
	assert.True(t, e.col.Insurance().Balance().IsZero())
}

func TestMaxSingleNotionalChunksTheClose(t *testing.T) {
	cfg := liquidation.NewDefaultConfig()
	cfg.MaxSingleNotional = 50_000
	e := getTestEngine(t, cfg)
	e.col.Deposit(types.InsuranceAccountID, d("20000"))

	e.openPosition(t, 1, types.SideBuy, d("2"), d("50000"), d("10000"), d("10000"))
	e.openPosition(t, 2, types.SideSell, d("2"), d("50000"), d("50000"), d("50000"))

	// deep under water: the whole position goes, but in notional-capped
	// steps of 50000 / 40000 = 1.25 contracts
	results, _ := e.Sweep(d("40000"), num.DecimalZero(), 0)
	require.Len(t, results, 2)
	assert.True(t, results[0].ClosedSize.Equal(d("1.25")))
	assert.False(t, results[0].Closed)
	assert.True(t, results[1].ClosedSize.Equal(d("0.75")))
	assert.True(t, results[1].Closed)

	// losses beyond collateral draw on the pre-funded insurance pool
	assert.True(t, results[0].BadDebt.Equal(d("6250")))
	assert.True(t, results[1].BadDebt.Equal(d("3750")))
	assert.True(t, e.col.Insurance().Balance().Equal(d("10000")))

	_, ok := e.pos.GetPositionByAccount(1)
	assert.False(t, ok)
}
