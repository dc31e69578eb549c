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

// Package positions tracks every account's position in a market: signed
// size, weighted average entry, posted collateral and the funding index
// snapshot. Fills flow through ApplyFill which classifies them as open,
// increase, reduce or flip.
package positions

import (
	"sort"

	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"
)

// UpdateKind classifies a single position transition.
type UpdateKind int8

const (
	UpdateOpened UpdateKind = iota
	UpdateIncreased
	UpdateReduced
	UpdateClosed
)

func (k UpdateKind) String() string {
	switch k {
	case UpdateOpened:
		return "opened"
	case UpdateIncreased:
		return "increased"
	case UpdateReduced:
		return "reduced"
	case UpdateClosed:
		return "closed"
	}
	return "unspecified"
}

// Update describes one position transition produced by a fill. A flip
// produces two: a close followed by an open.
type Update struct {
	Account            types.AccountID
	Kind               UpdateKind
	Size               num.Decimal
	EntryPrice         num.Decimal
	RealisedPnL        num.Decimal
	CollateralPosted   num.Decimal
	CollateralReturned num.Decimal
}

// Engine tracks the positions for one market.
type Engine struct {
	log *logging.Logger
	Config

	marketID  types.MarketID
	positions map[types.AccountID]*MarketPosition
	oiLong    num.Decimal
	oiShort   num.Decimal
}

// New instantiates a new positions engine for the given market.
func New(log *logging.Logger, config Config, marketID types.MarketID) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:       log,
		Config:    config,
		marketID:  marketID,
		positions: map[types.AccountID]*MarketPosition{},
		oiLong:    num.DecimalZero(),
		oiShort:   num.DecimalZero(),
	}
}

// ReloadConf updates the internal configuration.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.SetLevel(cfg.Level.Get())
	}
	e.Config = cfg
}

// GetPositionByAccount returns the account's open position, if any.
func (e *Engine) GetPositionByAccount(acc types.AccountID) (*MarketPosition, bool) {
	p, ok := e.positions[acc]
	return p, ok
}

// Positions returns all open positions ordered by account id, so iteration
// is deterministic.
func (e *Engine) Positions() []*MarketPosition {
	out := make([]*MarketPosition, 0, len(e.positions))
	for _, p := range e.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].account < out[j].account })
	return out
}

// OpenInterest returns the long and short open interest. The two are equal
// whenever the engine is between commands.
func (e *Engine) OpenInterest() (num.Decimal, num.Decimal) {
	return e.oiLong, e.oiShort
}

// ApplyFill applies one fill to the account's position. collateralPosted is
// the margin reserved by the caller for any exposure-increasing part of the
// fill; fundingIndex seeds the snapshot of newly opened positions.
func (e *Engine) ApplyFill(acc types.AccountID, side types.Side, size, price, collateralPosted, fundingIndex num.Decimal, now int64) []*Update {
	if !size.IsPositive() {
		e.log.Panic("fill with non-positive size",
			logging.String("account", acc.String()),
			logging.Decimal("size", size))
	}
	signed := size.Mul(side.Sign())

	pos, ok := e.positions[acc]
	if !ok {
		return []*Update{e.open(acc, signed, price, collateralPosted, fundingIndex, now)}
	}

	// same sign extends the position
	if pos.size.Sign() == signed.Sign() {
		return []*Update{e.increase(pos, signed, price, collateralPosted)}
	}

	if size.LessThanOrEqual(pos.size.Abs()) {
		return []*Update{e.reduce(pos, size, price)}
	}

	// flip: close the whole position, open the remainder on the other side
	remainder := size.Sub(pos.size.Abs())
	closed := e.reduce(pos, pos.size.Abs(), price)
	opened := e.open(acc, remainder.Mul(side.Sign()), price, collateralPosted, fundingIndex, now)
	return []*Update{closed, opened}
}

func (e *Engine) open(acc types.AccountID, signed, price, collateral, fundingIndex num.Decimal, now int64) *Update {
	pos := &MarketPosition{
		account:          acc,
		size:             signed,
		entryPrice:       price,
		collateral:       collateral,
		lastFundingIndex: fundingIndex,
		openedAt:         now,
	}
	e.positions[acc] = pos
	e.updateOI(num.DecimalZero(), signed)

	return &Update{
		Account:          acc,
		Kind:             UpdateOpened,
		Size:             signed,
		EntryPrice:       price,
		CollateralPosted: collateral,
		RealisedPnL:      num.DecimalZero(),
	}
}

func (e *Engine) increase(pos *MarketPosition, signed, price, collateral num.Decimal) *Update {
	oldSize := pos.size
	oldAbs := oldSize.Abs()
	fillAbs := signed.Abs()

	// weighted average entry over the combined size
	pos.entryPrice = oldAbs.Mul(pos.entryPrice).Add(fillAbs.Mul(price)).Div(oldAbs.Add(fillAbs))
	pos.size = oldSize.Add(signed)
	pos.collateral = pos.collateral.Add(collateral)
	e.updateOI(oldSize, pos.size)

	return &Update{
		Account:          pos.account,
		Kind:             UpdateIncreased,
		Size:             pos.size,
		EntryPrice:       pos.entryPrice,
		CollateralPosted: collateral,
		RealisedPnL:      num.DecimalZero(),
	}
}

func (e *Engine) reduce(pos *MarketPosition, closeQty, price num.Decimal) *Update {
	oldSize := pos.size
	oldAbs := oldSize.Abs()

	// realised PnL carries the sign of the closed exposure, entry is
	// untouched
	sign := num.DecimalOne()
	if oldSize.IsNegative() {
		sign = num.DecimalMinusOne()
	}
	realised := closeQty.Mul(sign).Mul(price.Sub(pos.entryPrice))
	returned := pos.collateral.Mul(closeQty).Div(oldAbs)

	pos.size = oldSize.Sub(closeQty.Mul(sign))
	pos.collateral = pos.collateral.Sub(returned)
	e.updateOI(oldSize, pos.size)

	kind := UpdateReduced
	if pos.size.IsZero() {
		kind = UpdateClosed
		delete(e.positions, pos.account)
	}

	return &Update{
		Account:            pos.account,
		Kind:               kind,
		Size:               pos.size,
		EntryPrice:         pos.entryPrice,
		RealisedPnL:        realised,
		CollateralReturned: returned,
	}
}

// SyncFundingIndex advances every position's funding snapshot to the given
// index. Called by the execution engine right after funding payments are
// applied.
func (e *Engine) SyncFundingIndex(index num.Decimal) {
	for _, p := range e.positions {
		p.lastFundingIndex = index
	}
}

func (e *Engine) updateOI(oldSize, newSize num.Decimal) {
	zero := num.DecimalZero()
	e.oiLong = e.oiLong.Add(num.MaxD(newSize, zero)).Sub(num.MaxD(oldSize, zero))
	e.oiShort = e.oiShort.Add(num.MaxD(newSize.Neg(), zero)).Sub(num.MaxD(oldSize.Neg(), zero))

	if e.oiLong.IsNegative() || e.oiShort.IsNegative() {
		e.log.Panic("negative open interest",
			logging.String("market-id", e.marketID.String()),
			logging.Decimal("oi-long", e.oiLong),
			logging.Decimal("oi-short", e.oiShort))
	}
}
