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

// Package pricing derives the mark price from the oracle index and the
// book mid: the premium of mid over index is clamped, EMA smoothed, and
// applied on top of the index.
package pricing

import (
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"
)

// Engine maintains the mark price state for one market.
type Engine struct {
	log *logging.Logger
	Config

	marketID   types.MarketID
	maxPremium num.Decimal
	emaAlpha   num.Decimal

	indexPrice      num.Decimal
	indexTS         int64
	smoothedPremium num.Decimal
	markPrice       num.Decimal
	hasIndex        bool
}

// New instantiates a pricing engine for the given market.
func New(log *logging.Logger, config Config, marketID types.MarketID) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:             log,
		Config:          config,
		marketID:        marketID,
		maxPremium:      num.DecimalFromFloat(config.MaxPremium),
		emaAlpha:        num.DecimalFromFloat(config.EmaAlpha),
		smoothedPremium: num.DecimalZero(),
	}
}

// OnIndexPrice processes an oracle tick. The caller passes the current book
// mid when the book is two sided; a one sided book contributes a zero raw
// premium. Returns the new mark price and smoothed premium.
func (e *Engine) OnIndexPrice(index num.Decimal, mid num.Decimal, hasMid bool, ts int64) (num.Decimal, num.Decimal) {
	if !index.IsPositive() {
		e.log.Panic("non-positive index price",
			logging.String("market-id", e.marketID.String()),
			logging.Decimal("index", index))
	}

	raw := num.DecimalZero()
	if hasMid {
		raw = mid.Sub(index).Div(index)
	}
	clamped := num.ClampD(raw, e.maxPremium.Neg(), e.maxPremium)

	e.smoothedPremium = e.emaAlpha.Mul(clamped).
		Add(num.DecimalOne().Sub(e.emaAlpha).Mul(e.smoothedPremium))
	e.indexPrice = index
	e.indexTS = ts
	e.markPrice = index.Mul(num.DecimalOne().Add(e.smoothedPremium))
	e.hasIndex = true

	if e.log.IsDebug() {
		e.log.Debug("mark price updated",
			logging.String("market-id", e.marketID.String()),
			logging.Decimal("index", index),
			logging.Decimal("premium", e.smoothedPremium),
			logging.Decimal("mark", e.markPrice))
	}

	return e.markPrice, e.smoothedPremium
}

// HasPrice reports whether at least one oracle tick has been processed.
func (e *Engine) HasPrice() bool {
	return e.hasIndex
}

// MarkPrice returns the current mark price, zero before the first tick.
func (e *Engine) MarkPrice() num.Decimal {
	return e.markPrice
}

func (e *Engine) IndexPrice() num.Decimal {
	return e.indexPrice
}

func (e *Engine) SmoothedPremium() num.Decimal {
	return e.smoothedPremium
}

// LastIndexTime returns the timestamp of the last oracle tick.
func (e *Engine) LastIndexTime() int64 {
	return e.indexTS
}
