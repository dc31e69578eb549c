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

package execution_test

import (
	"testing"

	"github.com/arcex-labs/arcex/core/conditional"
	"github.com/arcex-labs/arcex/core/events"
	"github.com/arcex-labs/arcex/core/execution"
	"github.com/arcex-labs/arcex/core/risk"
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	mkt      = types.MarketID(1)
	t0       = int64(1_000_000)
	second   = int64(1000)
	periodMs = 8 * 60 * 60 * 1000
)

func d(s string) num.Decimal {
	return num.MustDecimalFromString(s)
}

func getTestEngine(t *testing.T) *execution.Engine {
	t.Helper()
	e := execution.New(logging.NewTestLogger(), execution.NewDefaultConfig())
	require.NoError(t, e.NewMarket(types.MarketConfig{
		ID:           mkt,
		Name:         "BTC-PERP",
		TickSize:     d("1"),
		LotSize:      d("0.1"),
		MinOrderSize: d("0.1"),
		MaxLeverage:  50,
	}, t0))
	return e
}

func limit(acc types.AccountID, side types.Side, price, size string, leverage uint32) types.OrderSubmission {
	return types.OrderSubmission{
		Market:   mkt,
		Account:  acc,
		Side:     side,
		Type:     types.OrderTypeLimit,
		Price:    d(price),
		Size:     d(size),
		Leverage: leverage,
	}
}

func market(acc types.AccountID, side types.Side, size string, leverage uint32, reduceOnly bool) types.OrderSubmission {
	return types.OrderSubmission{
		Market:     mkt,
		Account:    acc,
		Side:       side,
		Type:       types.OrderTypeMarket,
		Size:       d(size),
		Leverage:   leverage,
		ReduceOnly: reduceOnly,
	}
}

func countEvents(e *execution.Engine, t events.Type) int {
	return len(e.Events().OfType(t))
}

func TestOpenAndCloseRoundTrip(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))

	e.Deposit(1, d("10000"), t0)
	e.Deposit(2, d("20000"), t0)

	// account 2 quotes, account 1 lifts at 10x
	_, err := e.SubmitOrder(limit(2, types.SideSell, "50000", "1", 10), t0+second)
	require.NoError(t, err)
	conf, err := e.SubmitOrder(market(1, types.SideBuy, "1", 10, false), t0+2*second)
	require.NoError(t, err)
	require.Len(t, conf.Trades, 1)

	p, err := e.GetPosition(mkt, 1)
	require.NoError(t, err)
	assert.True(t, p.Size().Equal(d("1")))
	assert.True(t, p.Collateral().Equal(d("5000")))

	s, _ := e.GetAccountSummary(1)
	assert.True(t, s.Balance.Equal(d("5000")))
	assert.True(t, s.Reserved.Equal(d("5000")))

	// mark rises to 55000, the long closes reduce-only into a fresh bid
	require.NoError(t, e.OracleTick(mkt, d("55000"), t0+3*second))
	s, _ = e.GetAccountSummary(1)
	assert.True(t, s.UnrealisedPnL.Equal(d("5000")))

	_, err = e.SubmitOrder(limit(2, types.SideBuy, "55000", "1", 10), t0+4*second)
	require.NoError(t, err)
	_, err = e.SubmitOrder(market(1, types.SideSell, "1", 10, true), t0+5*second)
	require.NoError(t, err)

	_, err = e.GetPosition(mkt, 1)
	require.ErrorIs(t, err, types.ErrPositionNotFound)
	s, _ = e.GetAccountSummary(1)
	assert.True(t, s.Balance.Equal(d("15000")))
	assert.True(t, s.RealisedPnL.Equal(d("5000")))

	// both sides flat: every deposit is back in free balances
	assert.True(t, e.Collateral().TotalBalance().Equal(d("30000")))
	assert.Equal(t, 2, countEvents(e, events.PositionClosedEvent))
}

func TestAdmissionRejections(t *testing.T) {
	e := getTestEngine(t)

	// no oracle tick yet: everything is stale
	e.Deposit(1, d("10000"), t0)
	_, err := e.SubmitOrder(limit(1, types.SideBuy, "50000", "1", 10), t0)
	require.ErrorIs(t, err, types.ErrOraclePriceStale)

	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))

	_, err = e.SubmitOrder(limit(3, types.SideBuy, "50000", "1", 10), t0)
	require.ErrorIs(t, err, types.ErrAccountNotFound)

	// 12% above mark breaches the deviation band
	_, err = e.SubmitOrder(limit(1, types.SideBuy, "56000", "1", 10), t0)
	require.ErrorIs(t, err, types.ErrPriceDeviationTooLarge)

	// notional 500k lands in the 10x tier
	_, err = e.SubmitOrder(limit(1, types.SideBuy, "50000", "10", 20), t0)
	require.ErrorIs(t, err, types.ErrLeverageExceedsTier)

	// 50000/10 = 5000 margin needed but only 4000 free
	e.Withdraw(1, d("6000"), t0)
	_, err = e.SubmitOrder(limit(1, types.SideBuy, "50000", "1", 10), t0)
	require.ErrorIs(t, err, types.ErrInsufficientFreeBalance)

	_, err = e.SubmitOrder(market(1, types.SideSell, "1", 10, true), t0)
	require.ErrorIs(t, err, types.ErrReduceOnlyWouldIncrease)

	// rejected commands leave no trace beyond their epoch
	assert.Equal(t, 0, countEvents(e, events.OrderPlacedEvent))
}

func TestLiquidationOnOracleTick(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))

	e.Deposit(1, d("60000"), t0)
	e.Deposit(2, d("5000"), t0)

	// account 2 shorts 1 at 20x against account 1
	_, err := e.SubmitOrder(limit(1, types.SideBuy, "50000", "1", 20), t0+second)
	require.NoError(t, err)
	_, err = e.SubmitOrder(market(2, types.SideSell, "1", 20, false), t0+2*second)
	require.NoError(t, err)

	// at the boundary the short survives with a margin call
	require.NoError(t, e.OracleTick(mkt, d("51250"), t0+3*second))
	assert.Equal(t, 0, countEvents(e, events.LiquidatedEvent))
	assert.Equal(t, 1, countEvents(e, events.MarginCallEvent))

	require.NoError(t, e.OracleTick(mkt, d("51251"), t0+4*second))
	require.Equal(t, 1, countEvents(e, events.LiquidatedEvent))

	_, err = e.GetPosition(mkt, 2)
	require.ErrorIs(t, err, types.ErrPositionNotFound)
	s, _ := e.GetAccountSummary(2)
	assert.True(t, s.Balance.Equal(d("3236.49")), "got %s", s.Balance)
	assert.True(t, e.Collateral().Insurance().Balance().Equal(d("512.51")))

	// the insurance fund holds the assumed short, OI stays matched
	ins, err := e.GetPosition(mkt, types.InsuranceAccountID)
	require.NoError(t, err)
	assert.True(t, ins.Size().Equal(d("-1")))
	md, _ := e.GetMarketData(mkt)
	assert.True(t, md.OpenInterestLong.Equal(md.OpenInterestShort))
}

func TestFundingZeroSumOnTick(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))

	e.Deposit(1, d("10000"), t0)
	e.Deposit(2, d("10000"), t0)
	_, err := e.SubmitOrder(limit(1, types.SideBuy, "50000", "1", 10), t0+second)
	require.NoError(t, err)
	_, err = e.SubmitOrder(market(2, types.SideSell, "1", 10, false), t0+2*second)
	require.NoError(t, err)

	total := e.Collateral().TotalBalance()

	// a full period later the base interest accrues: the long pays
	// 1 * 50000 * 0.0001 = 5 to the short
	e.OnTick(t0 + periodMs)
	require.Equal(t, 1, countEvents(e, events.FundingSettledEvent))

	s1, _ := e.GetAccountSummary(1)
	s2, _ := e.GetAccountSummary(2)
	assert.True(t, s1.Balance.Equal(d("4995")))
	assert.True(t, s2.Balance.Equal(d("5005")))
	assert.True(t, s1.PendingFunding.IsZero())
	assert.True(t, s2.PendingFunding.IsZero())

	// settlement moves value between accounts only
	assert.True(t, e.Collateral().TotalBalance().Equal(total))
	md, _ := e.GetMarketData(mkt)
	assert.True(t, md.FundingIndex.Equal(d("0.0001")))
}

func TestStopLossTriggersAndCloses(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))

	e.Deposit(1, d("10000"), t0)
	e.Deposit(2, d("10000"), t0)
	e.Deposit(3, d("10000"), t0)

	_, err := e.SubmitOrder(limit(2, types.SideSell, "50000", "1", 10), t0+second)
	require.NoError(t, err)
	_, err = e.SubmitOrder(market(1, types.SideBuy, "1", 10, false), t0+2*second)
	require.NoError(t, err)

	id, err := e.SubmitConditional(&conditional.Order{
		Market:       mkt,
		Account:      1,
		Kind:         conditional.KindStopLoss,
		Side:         types.SideSell,
		Size:         d("1"),
		Leverage:     10,
		ReduceOnly:   true,
		TriggerPrice: d("47000"),
	}, t0+3*second)
	require.NoError(t, err)
	assert.NotZero(t, id)

	// the way down; account 3 quotes the bid the stop will hit
	require.NoError(t, e.OracleTick(mkt, d("49000"), t0+10*second))
	require.NoError(t, e.OracleTick(mkt, d("48000"), t0+20*second))
	assert.Equal(t, 0, countEvents(e, events.ConditionalTriggeredEvent))

	_, err = e.SubmitOrder(limit(3, types.SideBuy, "46900", "1", 10), t0+21*second)
	require.NoError(t, err)

	require.NoError(t, e.OracleTick(mkt, d("46900"), t0+30*second))
	require.Equal(t, 1, countEvents(e, events.ConditionalTriggeredEvent))

	// the long is gone, closed at the resting bid
	_, err = e.GetPosition(mkt, 1)
	require.ErrorIs(t, err, types.ErrPositionNotFound)
	s, _ := e.GetAccountSummary(1)
	assert.True(t, s.Balance.Equal(d("6900")))
	assert.True(t, s.RealisedPnL.Equal(d("-3100")))

	// account 3 took the other side, the short stays covered
	p3, err := e.GetPosition(mkt, 3)
	require.NoError(t, err)
	assert.True(t, p3.Size().Equal(d("1")))
	md, _ := e.GetMarketData(mkt)
	assert.True(t, md.OpenInterestLong.Equal(md.OpenInterestShort))
}

func TestBadDebtCascade(t *testing.T) {
	// a single unbounded tier so the 500k notional long can run at 50x
	cfg := execution.NewDefaultConfig()
	cfg.Risk.Tiers = []risk.TierConfig{{MaxNotional: 0, MaxLeverage: 50}}
	e := execution.New(logging.NewTestLogger(), cfg)
	require.NoError(t, e.NewMarket(types.MarketConfig{
		ID:           mkt,
		Name:         "BTC-PERP",
		TickSize:     d("1"),
		LotSize:      d("0.1"),
		MinOrderSize: d("0.1"),
		MaxLeverage:  50,
	}, t0))
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))

	e.Deposit(types.InsuranceAccountID, d("5000"), t0)
	e.Deposit(1, d("10000"), t0)
	e.Deposit(2, d("100000"), t0)

	// 10 BTC long at 50x against a 5x short
	_, err := e.SubmitOrder(limit(2, types.SideSell, "50000", "10", 5), t0+second)
	require.NoError(t, err)
	_, err = e.SubmitOrder(market(1, types.SideBuy, "10", 50, false), t0+2*second)
	require.NoError(t, err)

	// -4% gaps far beyond the 50x maintenance band
	require.NoError(t, e.OracleTick(mkt, d("48000"), t0+3*second))

	require.Equal(t, 1, countEvents(e, events.LiquidatedEvent))
	require.Equal(t, 1, countEvents(e, events.AutoDeleveragedEvent))
	require.Equal(t, 1, countEvents(e, events.InsurancePaidEvent))

	// the fund absorbed its 5000 and deleveraging recovered the rest
	assert.True(t, e.Collateral().Insurance().Balance().IsZero())

	// the short was reduced by 2.5: 5000 shortfall / 2000 profit per unit
	p2, err := e.GetPosition(mkt, 2)
	require.NoError(t, err)
	assert.True(t, p2.Size().Equal(d("-7.5")))

	ins, err := e.GetPosition(mkt, types.InsuranceAccountID)
	require.NoError(t, err)
	assert.True(t, ins.Size().Equal(d("7.5")))
	md, _ := e.GetMarketData(mkt)
	assert.True(t, md.OpenInterestLong.Equal(md.OpenInterestShort))
	assert.True(t, md.OpenInterestLong.Equal(d("7.5")))

	s1, _ := e.GetAccountSummary(1)
	assert.True(t, s1.Balance.IsZero())
}

func TestCircuitBreakerHaltsAdmission(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))
	e.Deposit(1, d("100000"), t0)

	_, err := e.SubmitOrder(limit(1, types.SideBuy, "49000", "1", 10), t0+second)
	require.NoError(t, err)

	// 16% gap inside the window trips the breaker
	require.NoError(t, e.OracleTick(mkt, d("42000"), t0+2*second))
	require.Equal(t, 1, countEvents(e, events.CircuitBreakerTrippedEvent))

	_, err = e.SubmitOrder(limit(1, types.SideBuy, "42000", "1", 10), t0+3*second)
	require.ErrorIs(t, err, types.ErrMarketHalted)

	// cancels stay allowed during the halt
	resting := e.Events().OfType(events.OrderPlacedEvent)
	require.Len(t, resting, 1)
	placed := resting[0].(*events.OrderPlaced)
	_, err = e.CancelOrder(mkt, placed.Order.ID, t0+4*second)
	require.NoError(t, err)

	// after the cooloff the market reopens
	require.NoError(t, e.OracleTick(mkt, d("42000"), t0+70*second))
	_, err = e.SubmitOrder(limit(1, types.SideBuy, "42000", "1", 10), t0+70*second)
	require.NoError(t, err)
}

func TestPauseFlushesBook(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))
	e.Deposit(1, d("100000"), t0)

	_, err := e.SubmitOrder(limit(1, types.SideBuy, "49000", "1", 10), t0+second)
	require.NoError(t, err)
	_, err = e.SubmitOrder(limit(1, types.SideSell, "51000", "1", 10), t0+second)
	require.NoError(t, err)

	require.NoError(t, e.PauseMarket(mkt, t0+2*second))
	assert.Equal(t, 1, countEvents(e, events.MarketPausedEvent))
	assert.Equal(t, 2, countEvents(e, events.OrderCancelledEvent))

	_, err = e.SubmitOrder(limit(1, types.SideBuy, "49000", "1", 10), t0+3*second)
	require.ErrorIs(t, err, types.ErrMarketPaused)

	require.NoError(t, e.ResumeMarket(mkt, t0+4*second))
	_, err = e.SubmitOrder(limit(1, types.SideBuy, "49000", "1", 10), t0+5*second)
	require.NoError(t, err)
}

func TestMarkPriceUsesBookPremium(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))
	e.Deposit(1, d("100000"), t0)
	e.Deposit(2, d("100000"), t0)

	_, err := e.SubmitOrder(limit(1, types.SideBuy, "50400", "1", 10), t0+second)
	require.NoError(t, err)
	_, err = e.SubmitOrder(limit(2, types.SideSell, "50500", "1", 10), t0+second)
	require.NoError(t, err)

	// mid 50450 over index 50000 is a 0.9% premium, EMA-weighted by 0.1
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0+2*second))
	md, _ := e.GetMarketData(mkt)
	assert.True(t, md.SmoothedPremium.Equal(d("0.0009")))
	assert.True(t, md.MarkPrice.Equal(d("50045")), "got %s", md.MarkPrice)
}

func TestWithdrawalRejectedLeavesMarginIntact(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))
	e.Deposit(1, d("10000"), t0)
	e.Deposit(2, d("10000"), t0)

	_, err := e.SubmitOrder(limit(1, types.SideBuy, "50000", "1", 10), t0+second)
	require.NoError(t, err)
	_, err = e.SubmitOrder(market(2, types.SideSell, "1", 10, false), t0+2*second)
	require.NoError(t, err)

	// 5000 is reserved as margin, only the free 5000 can leave
	_, err = e.Withdraw(1, d("6000"), t0+3*second)
	require.ErrorIs(t, err, types.ErrInsufficientFreeBalance)
	assert.Equal(t, 1, countEvents(e, events.WithdrawalRejectedEvent))

	balance, err := e.Withdraw(1, d("5000"), t0+4*second)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestRestingOrderMarginLocked(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))
	e.Deposit(1, d("10000"), t0)
	e.Deposit(2, d("10000"), t0)

	// the resting bid locks 1 * 50000 / 10 = 5000 up front
	_, err := e.SubmitOrder(limit(1, types.SideBuy, "50000", "1", 10), t0+second)
	require.NoError(t, err)
	s, _ := e.GetAccountSummary(1)
	assert.True(t, s.Balance.Equal(d("5000")))
	assert.True(t, s.Reserved.Equal(d("5000")))

	// the margin behind the order cannot be withdrawn out from under it
	_, err = e.Withdraw(1, d("10000"), t0+2*second)
	require.ErrorIs(t, err, types.ErrInsufficientFreeBalance)
	_, err = e.Withdraw(1, d("5000"), t0+3*second)
	require.NoError(t, err)

	// the fill converts the order margin into position margin
	_, err = e.SubmitOrder(market(2, types.SideSell, "1", 10, false), t0+4*second)
	require.NoError(t, err)
	p, err := e.GetPosition(mkt, 1)
	require.NoError(t, err)
	assert.True(t, p.Collateral().Equal(d("5000")))
	s, _ = e.GetAccountSummary(1)
	assert.True(t, s.Balance.IsZero())
	assert.True(t, s.Reserved.Equal(d("5000")))
}

func TestCancelReleasesOrderMargin(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))
	e.Deposit(1, d("10000"), t0)

	conf, err := e.SubmitOrder(limit(1, types.SideBuy, "49000", "2", 10), t0+second)
	require.NoError(t, err)
	s, _ := e.GetAccountSummary(1)
	assert.True(t, s.Reserved.Equal(d("9800")))

	_, err = e.CancelOrder(mkt, conf.Order.ID, t0+2*second)
	require.NoError(t, err)
	balance, err := e.Withdraw(1, d("10000"), t0+3*second)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestReduceOnlyMustNotRest(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))
	e.Deposit(1, d("10000"), t0)
	e.Deposit(2, d("20000"), t0)

	_, err := e.SubmitOrder(limit(2, types.SideSell, "50000", "1", 10), t0+second)
	require.NoError(t, err)
	_, err = e.SubmitOrder(market(1, types.SideBuy, "1", 10, false), t0+2*second)
	require.NoError(t, err)

	// a reduce-only limit that could rest would go stale on the book
	ro := limit(1, types.SideSell, "50000", "1", 10)
	ro.ReduceOnly = true
	_, err = e.SubmitOrder(ro, t0+3*second)
	require.ErrorIs(t, err, types.ErrReduceOnlyWouldRest)

	// as IOC it passes admission and closes into the resting bid
	_, err = e.SubmitOrder(limit(2, types.SideBuy, "50000", "1", 10), t0+4*second)
	require.NoError(t, err)
	ro.TimeInForce = types.TimeInForceIOC
	_, err = e.SubmitOrder(ro, t0+5*second)
	require.NoError(t, err)
	_, err = e.GetPosition(mkt, 1)
	require.ErrorIs(t, err, types.ErrPositionNotFound)
}

func TestMarketOrderExhaustsBook(t *testing.T) {
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))
	e.Deposit(1, d("10000"), t0)
	e.Deposit(2, d("20000"), t0)

	_, err := e.SubmitOrder(limit(2, types.SideSell, "50000", "0.5", 10), t0+second)
	require.NoError(t, err)

	// the book covers 0.5 of the 1: the fill stands, the residual errors
	conf, err := e.SubmitOrder(market(1, types.SideBuy, "1", 10, false), t0+2*second)
	require.ErrorIs(t, err, types.ErrBookExhausted)
	require.NotNil(t, conf)
	require.Len(t, conf.Trades, 1)
	assert.True(t, conf.Trades[0].Size.Equal(d("0.5")))

	p, err := e.GetPosition(mkt, 1)
	require.NoError(t, err)
	assert.True(t, p.Size().Equal(d("0.5")))

	cancels := e.Events().OfType(events.OrderCancelledEvent)
	require.Len(t, cancels, 1)
	assert.Equal(t, types.CancelReasonBookExhausted, cancels[0].(*events.OrderCancelled).Reason)

	// an empty book rejects the whole order with no fills
	conf, err = e.SubmitOrder(market(1, types.SideBuy, "1", 10, false), t0+3*second)
	require.ErrorIs(t, err, types.ErrBookExhausted)
	assert.Empty(t, conf.Trades)
}

// runScript drives a fixed command sequence covering deposits, trades,
// conditionals, funding and a liquidation cascade.
func runScript(t *testing.T) *execution.Engine {
	t.Helper()
	e := getTestEngine(t)
	require.NoError(t, e.OracleTick(mkt, d("50000"), t0))

	e.Deposit(types.InsuranceAccountID, d("2000"), t0)
	e.Deposit(1, d("10000"), t0)
	e.Deposit(2, d("50000"), t0)
	e.Deposit(3, d("20000"), t0)

	e.SubmitOrder(limit(2, types.SideSell, "50000", "2", 10), t0+second)
	e.SubmitOrder(market(1, types.SideBuy, "1.5", 10, false), t0+2*second)
	e.SubmitOrder(limit(3, types.SideBuy, "49900", "1", 10), t0+3*second)
	e.SubmitConditional(&conditional.Order{
		Market: mkt, Account: 1, Kind: conditional.KindStopLoss,
		Side: types.SideSell, Size: d("1.5"), Leverage: 10,
		ReduceOnly: true, TriggerPrice: d("48000"),
	}, t0+4*second)

	e.OracleTick(mkt, d("49500"), t0+10*second)
	e.OracleTick(mkt, d("47900"), t0+20*second)
	e.OnTick(t0 + periodMs)
	e.Withdraw(3, d("1000"), t0+periodMs+second)
	return e
}

func TestDeterministicReplay(t *testing.T) {
	a := runScript(t)
	b := runScript(t)

	require.Equal(t, a.Events().Len(), b.Events().Len())
	ea, eb := a.Events().All(), b.Events().All()
	for i := range ea {
		assert.Equal(t, ea[i], eb[i], "event %d diverged", i)
	}
}

func TestOpenInterestSymmetryThroughout(t *testing.T) {
	e := runScript(t)
	md, err := e.GetMarketData(mkt)
	require.NoError(t, err)
	assert.True(t, md.OpenInterestLong.Equal(md.OpenInterestShort),
		"long %s short %s", md.OpenInterestLong, md.OpenInterestShort)
}
