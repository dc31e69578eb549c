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

// Package execution is the single-threaded command dispatcher on top of the
// domain engines. Each command runs to completion, appends its events under
// one epoch, and then drives the downstream pipeline: funding settlement,
// conditional triggers and the liquidation sweep. Replaying the same command
// sequence reproduces the event log exactly.
package execution

import (
	"github.com/arcex-labs/arcex/core/collateral"
	"github.com/arcex-labs/arcex/core/conditional"
	"github.com/arcex-labs/arcex/core/events"
	"github.com/arcex-labs/arcex/core/positions"
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Engine owns all markets, the shared collateral engine and the event log.
// It is not safe for concurrent use; callers serialize commands externally.
type Engine struct {
	log *logging.Logger
	Config

	collateral *collateral.Engine
	markets    map[types.MarketID]*Market
	marketIDs  []types.MarketID
	events     *events.Log

	lastOrderID uint64
	lastTradeID uint64
	liquidator  types.AccountID
}

// New instantiates the execution engine.
func New(log *logging.Logger, config Config) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:        log,
		Config:     config,
		collateral: collateral.New(log, config.Collateral),
		markets:    map[types.MarketID]*Market{},
		events:     events.NewLog(),
	}
}

// ReloadConf updates the configuration of the engine and all markets.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.SetLevel(cfg.Level.Get())
	}
	e.Config = cfg
	e.collateral.ReloadConf(cfg.Collateral)
	for _, id := range e.marketIDs {
		m := e.markets[id]
		m.book.ReloadConf(cfg.Matching)
		m.positions.ReloadConf(cfg.Positions)
		m.liquidation.ReloadConf(cfg.Liquidation)
		m.conditional.ReloadConf(cfg.Conditional)
	}
}

// SetLiquidator registers the account receiving the liquidator's penalty
// share on every market.
func (e *Engine) SetLiquidator(acc types.AccountID) {
	e.liquidator = acc
	for _, m := range e.markets {
		m.liquidation.SetLiquidator(acc)
	}
}

func (e *Engine) nextOrderID() types.OrderID {
	e.lastOrderID++
	return types.OrderID(e.lastOrderID)
}

func (e *Engine) nextTradeID() types.TradeID {
	e.lastTradeID++
	return types.TradeID(e.lastTradeID)
}

// NewMarket creates a market from its static configuration.
func (e *Engine) NewMarket(cfg types.MarketConfig, now int64) error {
	if _, ok := e.markets[cfg.ID]; ok {
		return types.ErrMarketAlreadyExists
	}
	if cfg.MaxLeverage < 1 {
		return types.ErrInvalidLeverage
	}
	e.events.BeginEpoch()

	m := newMarket(e.log, e.Config, cfg, e.collateral, e.events, e.nextTradeID, now)
	if e.liquidator != types.InsuranceAccountID {
		m.liquidation.SetLiquidator(e.liquidator)
	}
	e.markets[cfg.ID] = m
	e.marketIDs = maps.Keys(e.markets)
	slices.Sort(e.marketIDs)

	e.events.Append(events.NewMarketCreated(now, cfg))
	e.log.Info("market created",
		logging.String("market-id", cfg.ID.String()),
		logging.String("name", cfg.Name))
	return nil
}

// Deposit credits an account, creating it on first use.
func (e *Engine) Deposit(acc types.AccountID, amount num.Decimal, now int64) (num.Decimal, error) {
	e.events.BeginEpoch()
	balance, err := e.collateral.Deposit(acc, amount)
	if err != nil {
		return num.DecimalZero(), err
	}
	e.events.Append(events.NewDeposited(now, acc, amount, balance))
	return balance, nil
}

// Withdraw debits an account's free balance.
func (e *Engine) Withdraw(acc types.AccountID, amount num.Decimal, now int64) (num.Decimal, error) {
	e.events.BeginEpoch()
	balance, err := e.collateral.Withdraw(acc, amount)
	if err != nil {
		e.events.Append(events.NewWithdrawalRejected(now, acc, amount, err.Error()))
		return num.DecimalZero(), err
	}
	e.events.Append(events.NewWithdrawn(now, acc, amount, balance))
	return balance, nil
}

// SubmitOrder admits, matches and settles one order, then sweeps for
// liquidations the fills may have caused.
func (e *Engine) SubmitOrder(sub types.OrderSubmission, now int64) (*types.OrderConfirmation, error) {
	m, ok := e.markets[sub.Market]
	if !ok {
		return nil, types.ErrMarketNotFound
	}
	e.events.BeginEpoch()
	conf, err := m.SubmitOrder(sub, e.nextOrderID(), now)
	if err != nil && conf == nil {
		return nil, err
	}
	// a market order that exhausted the book keeps its fills and reports
	// the error alongside them
	m.sweepLiquidations(now)
	return conf, err
}

// CancelOrder removes a resting order from its book.
func (e *Engine) CancelOrder(mkt types.MarketID, id types.OrderID, now int64) (*types.Order, error) {
	m, ok := e.markets[mkt]
	if !ok {
		return nil, types.ErrMarketNotFound
	}
	e.events.BeginEpoch()
	return m.CancelOrder(id, now)
}

// SubmitConditional rests a stop-loss, take-profit or trailing stop trigger.
// The engine assigns the id.
func (e *Engine) SubmitConditional(co *conditional.Order, now int64) (types.OrderID, error) {
	m, ok := e.markets[co.Market]
	if !ok {
		return 0, types.ErrMarketNotFound
	}
	switch m.status {
	case types.MarketStatusPaused:
		return 0, types.ErrMarketPaused
	case types.MarketStatusClosed:
		return 0, types.ErrMarketClosed
	}
	if co.Account == types.InsuranceAccountID {
		return 0, types.ErrReservedAccount
	}
	if _, ok := e.collateral.GetAccount(co.Account); !ok {
		return 0, types.ErrAccountNotFound
	}
	if co.Kind == conditional.KindTrailingStop && !m.pricing.HasPrice() {
		return 0, types.ErrNoIndexPrice
	}

	e.events.BeginEpoch()
	co.ID = e.nextOrderID()
	co.CreatedAt = now
	if err := m.conditional.Submit(co, m.pricing.MarkPrice()); err != nil {
		return 0, err
	}
	e.events.Append(events.NewConditionalPlaced(now, co.Market, co.Account, co.ID, co.CurrentTrigger()))
	return co.ID, nil
}

// CancelConditional removes a resting trigger.
func (e *Engine) CancelConditional(mkt types.MarketID, id types.OrderID, now int64) error {
	m, ok := e.markets[mkt]
	if !ok {
		return types.ErrMarketNotFound
	}
	e.events.BeginEpoch()
	co, err := m.conditional.Cancel(id)
	if err != nil {
		return err
	}
	e.events.Append(events.NewConditionalCancelled(now, mkt, co.Account, co.ID))
	return nil
}

// OracleTick feeds a fresh index price into a market and runs the full
// downstream pipeline: mark update, funding cadence, conditional triggers,
// liquidation sweep.
func (e *Engine) OracleTick(mkt types.MarketID, index num.Decimal, now int64) error {
	m, ok := e.markets[mkt]
	if !ok {
		return types.ErrMarketNotFound
	}
	if !index.IsPositive() {
		return types.ErrInvalidPrice
	}
	e.events.BeginEpoch()
	m.OnOracleTick(index, now)
	m.settleFunding(now, false)
	m.triggerConditionals(now, e.nextOrderID)
	m.sweepLiquidations(now)
	return nil
}

// SettleFunding forces a pro-rated funding settlement on one market.
func (e *Engine) SettleFunding(mkt types.MarketID, now int64) error {
	m, ok := e.markets[mkt]
	if !ok {
		return types.ErrMarketNotFound
	}
	e.events.BeginEpoch()
	m.settleFunding(now, true)
	m.sweepLiquidations(now)
	return nil
}

// OnTick drives time-based behavior: funding settlements that have come due
// and the liquidation sweep, on every market in id order.
func (e *Engine) OnTick(now int64) {
	e.events.BeginEpoch()
	for _, id := range e.marketIDs {
		m := e.markets[id]
		if m.status == types.MarketStatusClosed {
			continue
		}
		m.settleFunding(now, false)
		m.sweepLiquidations(now)
	}
}

// PauseMarket halts order placement and flushes the book.
func (e *Engine) PauseMarket(mkt types.MarketID, now int64) error {
	m, ok := e.markets[mkt]
	if !ok {
		return types.ErrMarketNotFound
	}
	e.events.BeginEpoch()
	return m.Pause(now)
}

// ResumeMarket reopens a paused market.
func (e *Engine) ResumeMarket(mkt types.MarketID, now int64) error {
	m, ok := e.markets[mkt]
	if !ok {
		return types.ErrMarketNotFound
	}
	e.events.BeginEpoch()
	return m.Resume(now)
}

// Events returns the append-only event log.
func (e *Engine) Events() *events.Log {
	return e.events
}

// Collateral exposes the shared collateral engine for queries.
func (e *Engine) Collateral() *collateral.Engine {
	return e.collateral
}

// GetMarketData returns a market's derived state snapshot.
func (e *Engine) GetMarketData(mkt types.MarketID) (MarketData, error) {
	m, ok := e.markets[mkt]
	if !ok {
		return MarketData{}, types.ErrMarketNotFound
	}
	return m.data(), nil
}

// GetPosition returns an account's open position in a market.
func (e *Engine) GetPosition(mkt types.MarketID, acc types.AccountID) (*positions.MarketPosition, error) {
	m, ok := e.markets[mkt]
	if !ok {
		return nil, types.ErrMarketNotFound
	}
	p, ok := m.positions.GetPositionByAccount(acc)
	if !ok {
		return nil, types.ErrPositionNotFound
	}
	return p, nil
}

// GetOrder looks up a resting order.
func (e *Engine) GetOrder(mkt types.MarketID, id types.OrderID) (*types.Order, error) {
	m, ok := e.markets[mkt]
	if !ok {
		return nil, types.ErrMarketNotFound
	}
	return m.book.GetOrderByID(id)
}

// BestBid returns the top of a market's buy side.
func (e *Engine) BestBid(mkt types.MarketID) (num.Decimal, num.Decimal, error) {
	m, ok := e.markets[mkt]
	if !ok {
		return num.DecimalZero(), num.DecimalZero(), types.ErrMarketNotFound
	}
	return m.book.BestBidPriceAndVolume()
}

// BestAsk returns the top of a market's sell side.
func (e *Engine) BestAsk(mkt types.MarketID) (num.Decimal, num.Decimal, error) {
	m, ok := e.markets[mkt]
	if !ok {
		return num.DecimalZero(), num.DecimalZero(), types.ErrMarketNotFound
	}
	return m.book.BestAskPriceAndVolume()
}

// AccountSummary aggregates one account's standing across all markets.
type AccountSummary struct {
	Account        types.AccountID
	Balance        num.Decimal
	Reserved       num.Decimal
	RealisedPnL    num.Decimal
	UnrealisedPnL  num.Decimal
	PendingFunding num.Decimal
	Equity         num.Decimal
}

// GetAccountSummary computes an account's balances and marked-to-market
// equity across every market it holds a position in.
func (e *Engine) GetAccountSummary(acc types.AccountID) (AccountSummary, error) {
	a, ok := e.collateral.GetAccount(acc)
	if !ok {
		return AccountSummary{}, types.ErrAccountNotFound
	}
	s := AccountSummary{
		Account:        acc,
		Balance:        a.Balance(),
		Reserved:       a.Reserved(),
		RealisedPnL:    a.RealisedPnL(),
		UnrealisedPnL:  num.DecimalZero(),
		PendingFunding: num.DecimalZero(),
	}
	for _, id := range e.marketIDs {
		m := e.markets[id]
		p, ok := m.positions.GetPositionByAccount(acc)
		if !ok || !m.pricing.HasPrice() {
			continue
		}
		mark := m.pricing.MarkPrice()
		s.UnrealisedPnL = s.UnrealisedPnL.Add(p.UnrealisedPnL(mark))
		s.PendingFunding = s.PendingFunding.Add(p.PendingFunding(mark, m.funding.FundingIndex()))
	}
	s.Equity = s.Balance.Add(s.Reserved).Add(s.UnrealisedPnL).Sub(s.PendingFunding)
	return s, nil
}
