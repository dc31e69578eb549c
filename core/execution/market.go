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

package execution

import (
	"github.com/arcex-labs/arcex/core/collateral"
	"github.com/arcex-labs/arcex/core/conditional"
	"github.com/arcex-labs/arcex/core/events"
	"github.com/arcex-labs/arcex/core/funding"
	"github.com/arcex-labs/arcex/core/liquidation"
	"github.com/arcex-labs/arcex/core/matching"
	"github.com/arcex-labs/arcex/core/positions"
	"github.com/arcex-labs/arcex/core/pricing"
	"github.com/arcex-labs/arcex/core/risk"
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"
)

// Market bundles the per-market engines: the book, positions, pricing,
// funding, the risk guard, resting conditionals and liquidation. The
// collateral engine and the event log are shared across markets.
type Market struct {
	log    *logging.Logger
	config types.MarketConfig
	status types.MarketStatus

	book        *matching.OrderBook
	positions   *positions.Engine
	pricing     *pricing.Engine
	funding     *funding.Engine
	risk        *risk.Engine
	conditional *conditional.Engine
	liquidation *liquidation.Engine

	collateral *collateral.Engine
	events     *events.Log

	// margin locked against the resting residual of each open limit order
	orderMargin map[types.OrderID]num.Decimal
}

func newMarket(log *logging.Logger, cfg Config, mkt types.MarketConfig, col *collateral.Engine, evts *events.Log, tradeID func() types.TradeID, now int64) *Market {
	pos := positions.New(log, cfg.Positions, mkt.ID)
	rsk := risk.New(log, cfg.Risk, mkt.ID)
	return &Market{
		log:         log,
		config:      mkt,
		status:      types.MarketStatusActive,
		book:        matching.NewOrderBook(log, cfg.Matching, mkt.ID, tradeID),
		positions:   pos,
		pricing:     pricing.New(log, cfg.Pricing, mkt.ID),
		funding:     funding.New(log, cfg.Funding, mkt.ID, now),
		risk:        rsk,
		conditional: conditional.New(log, cfg.Conditional, mkt.ID),
		liquidation: liquidation.New(log, cfg.Liquidation, mkt.ID, pos, col, rsk.MarginCalculator()),
		collateral:  col,
		events:      evts,
		orderMargin: map[types.OrderID]num.Decimal{},
	}
}

// MarketData is the queryable snapshot of one market's derived state.
type MarketData struct {
	Market            types.MarketID
	Status            types.MarketStatus
	MarkPrice         num.Decimal
	IndexPrice        num.Decimal
	SmoothedPremium   num.Decimal
	FundingIndex      num.Decimal
	LastFundingTime   int64
	OpenInterestLong  num.Decimal
	OpenInterestShort num.Decimal
}

func (m *Market) data() MarketData {
	long, short := m.positions.OpenInterest()
	return MarketData{
		Market:            m.config.ID,
		Status:            m.status,
		MarkPrice:         m.pricing.MarkPrice(),
		IndexPrice:        m.pricing.IndexPrice(),
		SmoothedPremium:   m.pricing.SmoothedPremium(),
		FundingIndex:      m.funding.FundingIndex(),
		LastFundingTime:   m.funding.LastSettlement(),
		OpenInterestLong:  long,
		OpenInterestShort: short,
	}
}

// SubmitOrder runs the admission checks, matches the order and applies the
// resulting fills. Rejections happen before any state is touched.
func (m *Market) SubmitOrder(sub types.OrderSubmission, id types.OrderID, now int64) (*types.OrderConfirmation, error) {
	switch m.status {
	case types.MarketStatusPaused:
		return nil, types.ErrMarketPaused
	case types.MarketStatusClosed:
		return nil, types.ErrMarketClosed
	}
	if sub.Account == types.InsuranceAccountID {
		return nil, types.ErrReservedAccount
	}
	if err := m.config.ValidateSize(sub.Size); err != nil {
		return nil, err
	}
	if sub.Type == types.OrderTypeLimit {
		if err := m.config.ValidatePrice(sub.Price); err != nil {
			return nil, err
		}
	}
	if sub.Leverage < 1 || sub.Leverage > m.config.MaxLeverage {
		return nil, types.ErrInvalidLeverage
	}
	acct, ok := m.collateral.GetAccount(sub.Account)
	if !ok {
		return nil, types.ErrAccountNotFound
	}

	o := sub.IntoOrder(id, now)
	mark := m.pricing.MarkPrice()
	pos, hasPos := m.positions.GetPositionByAccount(sub.Account)

	// the guard sees the worst case: the order trades in full and extends
	// the position
	sizeAfter := sub.Size
	if hasPos {
		sizeAfter = sizeAfter.Add(pos.Size().Abs())
	}
	long, _ := m.positions.OpenInterest()
	if err := m.risk.CheckOrder(o, mark, sizeAfter.Mul(mark), long.Add(sub.Size), now); err != nil {
		return nil, err
	}
	calc := m.risk.MarginCalculator()
	if err := calc.CheckLeverage(sizeAfter.Mul(mark), sub.Leverage); err != nil {
		return nil, err
	}

	if sub.ReduceOnly {
		// a reduce-only order must execute against the position it was
		// admitted for; one that could rest would go stale
		if sub.Type == types.OrderTypeLimit &&
			sub.TimeInForce != types.TimeInForceIOC && sub.TimeInForce != types.TimeInForceFOK {
			return nil, types.ErrReduceOnlyWouldRest
		}
		if !hasPos || pos.Side() == sub.Side || sub.Size.GreaterThan(pos.Size().Abs()) {
			return nil, types.ErrReduceOnlyWouldIncrease
		}
	} else {
		// worst case margin: the cost of crossing the book plus any residual
		// resting at the limit. No credit is given for the part that would
		// reduce an existing position.
		required, fillable := m.book.FillCost(o)
		if o.Type == types.OrderTypeLimit {
			required = required.Add(o.Size.Sub(fillable).Mul(o.Price))
		}
		required = required.Div(num.DecimalFromInt64(int64(sub.Leverage)))
		if acct.Balance().LessThan(required) {
			return nil, types.ErrInsufficientFreeBalance
		}
	}

	conf, err := m.book.SubmitOrder(o, now)
	if err != nil {
		return nil, err
	}

	m.events.Append(events.NewOrderPlaced(now, o))
	m.applyTrades(conf, o, now)
	m.reserveOrderMargin(o)

	if o.Status == types.OrderStatusPartiallyFilled || o.Status == types.OrderStatusCancelled {
		reason := types.CancelReasonIOC
		if o.Type == types.OrderTypeMarket {
			reason = types.CancelReasonBookExhausted
		}
		m.events.Append(events.NewOrderCancelled(now, o, reason))
	}
	if o.Type == types.OrderTypeMarket && o.Remaining.IsPositive() {
		// fills stand, the unfillable residual is the caller's problem
		return conf, types.ErrBookExhausted
	}
	return conf, nil
}

// reserveOrderMargin locks the margin backing the residual of a limit order
// left resting on the book, so neither a withdrawal nor another order can
// spend it before the residual trades. Admission already checked the free
// balance against the full worst case, so the reservation cannot fail.
func (m *Market) reserveOrderMargin(o *types.Order) {
	if o.Type != types.OrderTypeLimit || o.IsFinished() || !o.Remaining.IsPositive() {
		return
	}
	margin := o.Remaining.Mul(o.Price).Div(num.DecimalFromInt64(int64(o.Leverage)))
	if err := m.collateral.Reserve(o.Account, margin); err != nil {
		m.log.Panic("margin reservation failed on accepted resting order",
			logging.String("order-id", o.ID.String()),
			logging.Error(err))
	}
	m.orderMargin[o.ID] = margin
}

// releaseOrderMargin frees the margin held for qty of a resting order's
// residual, or everything still held once the order is finished.
func (m *Market) releaseOrderMargin(o *types.Order, qty num.Decimal) {
	held, ok := m.orderMargin[o.ID]
	if !ok {
		return
	}
	release := qty.Mul(o.Price).Div(num.DecimalFromInt64(int64(o.Leverage)))
	if o.IsFinished() || release.GreaterThan(held) {
		release = held
	}
	m.collateral.Release(o.Account, release)
	if held = held.Sub(release); held.IsPositive() {
		m.orderMargin[o.ID] = held
	} else {
		delete(m.orderMargin, o.ID)
	}
}

// applyTrades books both sides of every trade against positions and
// collateral, in trade order, buyer first.
func (m *Market) applyTrades(conf *types.OrderConfirmation, aggressive *types.Order, now int64) {
	leverages := map[types.OrderID]uint32{aggressive.ID: aggressive.Leverage}
	passives := make(map[types.OrderID]*types.Order, len(conf.PassiveOrdersAffected))
	for _, po := range conf.PassiveOrdersAffected {
		leverages[po.ID] = po.Leverage
		passives[po.ID] = po
	}
	for _, tr := range conf.Trades {
		m.events.Append(events.NewOrderMatched(now, tr))
		passiveID := tr.BuyOrder
		if passiveID == aggressive.ID {
			passiveID = tr.SellOrder
		}
		// the passive side's order margin turns into position margin (or
		// realised PnL) through the fill below
		if po, ok := passives[passiveID]; ok {
			m.releaseOrderMargin(po, tr.Size)
		}
		m.applyFill(tr.Buyer, types.SideBuy, tr.Size, tr.Price, leverages[tr.BuyOrder], now)
		m.applyFill(tr.Seller, types.SideSell, tr.Size, tr.Price, leverages[tr.SellOrder], now)
	}
}

// applyFill books one party's side of a fill. Collateral is posted for the
// exposure-increasing part only; the reducing part releases margin and
// realises PnL.
func (m *Market) applyFill(acc types.AccountID, side types.Side, qty, price num.Decimal, leverage uint32, now int64) {
	increase := qty
	if pos, ok := m.positions.GetPositionByAccount(acc); ok && pos.Side() != side {
		increase = num.MaxD(qty.Sub(pos.Size().Abs()), num.DecimalZero())
	}
	posted := num.DecimalZero()
	if increase.IsPositive() {
		posted = increase.Mul(price).Div(num.DecimalFromInt64(int64(leverage)))
	}

	for _, u := range m.positions.ApplyFill(acc, side, qty, price, posted, m.funding.FundingIndex(), now) {
		m.applyUpdate(u, now)
	}
}

func (m *Market) applyUpdate(u *positions.Update, now int64) {
	mkt := m.config.ID
	switch u.Kind {
	case positions.UpdateOpened:
		if err := m.collateral.Reserve(u.Account, u.CollateralPosted); err != nil {
			m.log.Panic("margin reservation failed on accepted order",
				logging.String("account", u.Account.String()),
				logging.Error(err))
		}
		m.events.Append(events.NewPositionOpened(now, mkt, u.Account, u.Size, u.EntryPrice, u.CollateralPosted))
	case positions.UpdateIncreased:
		if err := m.collateral.Reserve(u.Account, u.CollateralPosted); err != nil {
			m.log.Panic("margin reservation failed on accepted order",
				logging.String("account", u.Account.String()),
				logging.Error(err))
		}
		m.events.Append(events.NewPositionIncreased(now, mkt, u.Account, u.Size, u.EntryPrice, u.CollateralPosted))
	case positions.UpdateReduced:
		m.collateral.Release(u.Account, u.CollateralReturned)
		m.settlePnL(u.Account, u.RealisedPnL, u.CollateralReturned, now)
		m.events.Append(events.NewPositionReduced(now, mkt, u.Account, u.Size, u.EntryPrice, u.RealisedPnL, u.CollateralReturned))
	case positions.UpdateClosed:
		m.collateral.Release(u.Account, u.CollateralReturned)
		m.settlePnL(u.Account, u.RealisedPnL, u.CollateralReturned, now)
		m.events.Append(events.NewPositionClosed(now, mkt, u.Account, u.RealisedPnL, u.CollateralReturned, types.CloseReasonTrade))
	}
}

// settlePnL realises a trading gain or loss. Losses are isolated to the
// margin the close returned; anything beyond it is bad debt covered by the
// insurance fund.
func (m *Market) settlePnL(acc types.AccountID, realised, returned num.Decimal, now int64) {
	if !realised.IsNegative() {
		m.collateral.RealisePnL(acc, realised)
		return
	}
	loss := realised.Neg()
	covered := num.MinD(loss, returned)
	if a, ok := m.collateral.GetAccount(acc); ok {
		covered = num.MinD(covered, a.Balance())
	}
	m.collateral.RealisePnL(acc, covered.Neg())

	if badDebt := loss.Sub(covered); badDebt.IsPositive() {
		shortfall := m.collateral.Insurance().Pay(badDebt)
		m.events.Append(events.NewInsurancePaid(now, m.config.ID, badDebt.Sub(shortfall), m.collateral.Insurance().Balance()))
		if shortfall.IsPositive() {
			m.log.Warn("trading bad debt exceeds insurance fund",
				logging.String("market-id", m.config.ID.String()),
				logging.Decimal("shortfall", shortfall))
		}
	}
}

// CancelOrder removes a resting order. Allowed while paused or halted.
func (m *Market) CancelOrder(id types.OrderID, now int64) (*types.Order, error) {
	if m.status == types.MarketStatusClosed {
		return nil, types.ErrMarketClosed
	}
	o, err := m.book.CancelOrder(id)
	if err != nil {
		return nil, err
	}
	m.releaseOrderMargin(o, num.DecimalZero())
	m.events.Append(events.NewOrderCancelled(now, o, types.CancelReasonUser))
	return o, nil
}

// OnOracleTick updates the mark price off the new index and feeds the
// circuit breaker.
func (m *Market) OnOracleTick(index num.Decimal, now int64) {
	m.risk.OnIndexPrice(now)

	mid, hasMid := num.DecimalZero(), false
	if m.book.HasTwoSidedQuotes() {
		if mp, err := m.book.MidPrice(); err == nil {
			mid, hasMid = mp, true
		}
	}
	mark, premium := m.pricing.OnIndexPrice(index, mid, hasMid, now)
	m.events.Append(events.NewIndexPriceUpdated(now, m.config.ID, index))
	m.events.Append(events.NewMarkPriceUpdated(now, m.config.ID, mark, premium))

	if tripped, move, until := m.risk.OnMarkPrice(mark, now); tripped {
		m.events.Append(events.NewCircuitBreakerTripped(now, m.config.ID, move, until))
	}
}

// settleFunding applies a funding settlement, pro-rated to now. With force
// unset it only runs when the full period has elapsed.
func (m *Market) settleFunding(now int64, force bool) {
	if !m.pricing.HasPrice() {
		return
	}
	if !force && !m.funding.Due(now) {
		return
	}
	mark := m.pricing.MarkPrice()
	res := m.funding.Settle(now, m.pricing.SmoothedPremium(), mark, m.positions.Positions())
	if res == nil {
		return
	}

	// every payment flows through the free balances; the net of what was
	// actually collected (rounding residual, payers that came up short)
	// settles against the insurance fund so the total stays conserved
	net := num.DecimalZero()
	for _, p := range res.Payments {
		net = net.Add(m.collateral.Debit(p.Account, p.Amount))
	}
	m.collateral.Debit(types.InsuranceAccountID, net.Neg())
	m.positions.SyncFundingIndex(res.FundingIndex)

	m.events.Append(events.NewFundingSettled(now, m.config.ID, res.EffectiveRate, res.FundingIndex, mark, res.Residual))
}

// triggerConditionals fires the triggers the current mark crosses and
// submits them as market orders through the normal admission path.
func (m *Market) triggerConditionals(now int64, nextID func() types.OrderID) {
	if !m.pricing.HasPrice() {
		return
	}
	mark := m.pricing.MarkPrice()
	for _, co := range m.conditional.OnMarkPrice(mark) {
		m.events.Append(events.NewConditionalTriggered(now, m.config.ID, co.Account, co.ID, co.CurrentTrigger(), mark))
		sub := types.OrderSubmission{
			Market:      m.config.ID,
			Account:     co.Account,
			Side:        co.Side,
			Type:        types.OrderTypeMarket,
			TimeInForce: types.TimeInForceIOC,
			Size:        co.Size,
			Leverage:    co.Leverage,
			ReduceOnly:  co.ReduceOnly,
		}
		if _, err := m.SubmitOrder(sub, nextID(), now); err != nil {
			m.log.Warn("triggered conditional order rejected",
				logging.String("market-id", m.config.ID.String()),
				logging.String("conditional-id", co.ID.String()),
				logging.Error(err))
		}
	}
}

// sweepLiquidations closes every under-margined position and emits the
// resulting events.
func (m *Market) sweepLiquidations(now int64) {
	if !m.pricing.HasPrice() {
		return
	}
	mark := m.pricing.MarkPrice()
	index := m.funding.FundingIndex()
	mkt := m.config.ID

	results, calls := m.liquidation.Sweep(mark, index, now)
	for _, r := range results {
		signed := r.ClosedSize.Mul(r.Side.Sign())
		m.events.Append(events.NewLiquidated(now, mkt, r.Account, signed, r.Mark,
			r.Penalty, r.LiquidatorCut, r.InsuranceCut, r.ResidualEquity, r.BadDebt))
		if r.Closed {
			m.events.Append(events.NewPositionClosed(now, mkt, r.Account, r.RealisedPnL, r.CollateralReturned, types.CloseReasonLiquidation))
		}
		if r.InsurancePaid.IsPositive() {
			m.events.Append(events.NewInsurancePaid(now, mkt, r.InsurancePaid, m.collateral.Insurance().Balance()))
		}
		for _, a := range r.Deleveraged {
			signed := a.ClosedSize.Mul(r.Side.Opposite().Sign())
			m.events.Append(events.NewAutoDeleveraged(now, mkt, a.Account, signed, a.Price, a.Absorbed))
			if a.Closed {
				m.events.Append(events.NewPositionClosed(now, mkt, a.Account,
					a.RealisedPnL.Sub(a.Absorbed), a.CollateralReturned, types.CloseReasonAutoDeleverage))
			}
		}
	}

	calc := m.risk.MarginCalculator()
	for _, acc := range calls {
		p, ok := m.positions.GetPositionByAccount(acc)
		if !ok {
			continue
		}
		m.events.Append(events.NewMarginCall(now, mkt, acc,
			p.Equity(mark, index), calc.MaintenanceMarginForPosition(p.Collateral())))
	}
}

// Pause rejects new orders and flushes the book; resting conditionals
// survive.
func (m *Market) Pause(now int64) error {
	if m.status == types.MarketStatusClosed {
		return types.ErrMarketClosed
	}
	if m.status == types.MarketStatusPaused {
		return nil
	}
	m.status = types.MarketStatusPaused
	m.events.Append(events.NewMarketPaused(now, m.config.ID))
	for _, o := range m.book.Orders() {
		cancelled, err := m.book.CancelOrder(o.ID)
		if err != nil {
			m.log.Panic("failed to flush resting order on pause",
				logging.String("order-id", o.ID.String()),
				logging.Error(err))
		}
		m.releaseOrderMargin(cancelled, num.DecimalZero())
		m.events.Append(events.NewOrderCancelled(now, cancelled, types.CancelReasonMarketPaused))
	}
	return nil
}

// Resume reopens a paused market.
func (m *Market) Resume(now int64) error {
	if m.status == types.MarketStatusClosed {
		return types.ErrMarketClosed
	}
	if m.status == types.MarketStatusActive {
		return nil
	}
	m.status = types.MarketStatusActive
	m.events.Append(events.NewMarketResumed(now, m.config.ID))
	return nil
}
