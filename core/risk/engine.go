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

// Package risk holds the margin model and the pre-trade risk guard: oracle
// freshness, circuit breaker, price deviation and exposure caps. The guard
// gates order admission and mutates nothing outside its own breaker state.
package risk

import (
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"
)

type pricePoint struct {
	price num.Decimal
	ts    int64
}

// Engine is the per-market risk guard.
type Engine struct {
	log *logging.Logger
	Config

	marketID types.MarketID
	calc     *MarginCalculator

	priceDeviation      num.Decimal
	circuitDrop         num.Decimal
	maxPositionNotional num.Decimal
	oiCap               num.Decimal

	history     []pricePoint
	haltedUntil int64
	lastIndexTS int64
	sawIndex    bool
}

// New instantiates the risk guard for one market.
func New(log *logging.Logger, config Config, marketID types.MarketID) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:                 log,
		Config:              config,
		marketID:            marketID,
		calc:                NewMarginCalculator(config),
		priceDeviation:      num.DecimalFromFloat(config.PriceDeviation),
		circuitDrop:         num.DecimalFromFloat(config.CircuitDrop),
		maxPositionNotional: num.DecimalFromFloat(config.MaxPositionNotional),
		oiCap:               num.DecimalFromFloat(config.OpenInterestCap),
	}
}

// MarginCalculator exposes the margin model to the execution engine.
func (e *Engine) MarginCalculator() *MarginCalculator {
	return e.calc
}

// OnIndexPrice records the oracle tick time for the staleness check.
func (e *Engine) OnIndexPrice(ts int64) {
	e.lastIndexTS = ts
	e.sawIndex = true
}

// OnMarkPrice feeds a new mark into the circuit breaker. It returns whether
// the breaker tripped on this update, with the relative move and the halt
// deadline.
func (e *Engine) OnMarkPrice(mark num.Decimal, ts int64) (bool, num.Decimal, int64) {
	windowStart := ts - e.CircuitWindow.Get().Milliseconds()
	i := 0
	for ; i < len(e.history) && e.history[i].ts < windowStart; i++ {
	}
	e.history = e.history[i:]

	tripped := false
	move := num.DecimalZero()
	for _, p := range e.history {
		delta := mark.Sub(p.price).Abs().Div(p.price)
		if delta.GreaterThan(move) {
			move = delta
		}
	}
	if move.GreaterThan(e.circuitDrop) && !e.isHalted(ts) {
		tripped = true
		e.haltedUntil = ts + e.CircuitCooloff.Get().Milliseconds()
		// the window restarts from the halt, otherwise the stale extreme
		// re-trips the breaker on the first post-cooloff update
		e.history = e.history[:0]
		e.log.Warn("circuit breaker tripped",
			logging.String("market-id", e.marketID.String()),
			logging.Decimal("move", move),
			logging.Int64("halted-until", e.haltedUntil))
	}

	e.history = append(e.history, pricePoint{price: mark, ts: ts})
	return tripped, move, e.haltedUntil
}

func (e *Engine) isHalted(now int64) bool {
	return now < e.haltedUntil
}

// IsHalted reports whether the market is inside a circuit breaker cooloff.
func (e *Engine) IsHalted(now int64) bool {
	return e.isHalted(now)
}

// CheckOrder runs the pre-admission checks in their fixed order: oracle
// freshness, circuit breaker, price deviation, position cap, open interest
// cap. The caller supplies the worst-case position notional and market open
// interest as if the order traded in full.
func (e *Engine) CheckOrder(o *types.Order, mark num.Decimal, positionNotionalAfter, oiAfter num.Decimal, now int64) error {
	if !e.sawIndex || now-e.lastIndexTS > e.OracleStaleness.Get().Milliseconds() {
		return types.ErrOraclePriceStale
	}
	if e.isHalted(now) {
		return types.ErrMarketHalted
	}
	if o.Type == types.OrderTypeLimit && mark.IsPositive() {
		deviation := o.Price.Sub(mark).Abs().Div(mark)
		if deviation.GreaterThan(e.priceDeviation) {
			return types.ErrPriceDeviationTooLarge
		}
	}
	if e.maxPositionNotional.IsPositive() && positionNotionalAfter.GreaterThan(e.maxPositionNotional) {
		return types.ErrPositionCapExceeded
	}
	if e.oiCap.IsPositive() && oiAfter.GreaterThan(e.oiCap) {
		return types.ErrOpenInterestCapReached
	}
	return nil
}
