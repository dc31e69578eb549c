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

package types

import "github.com/arcex-labs/arcex/libs/num"

type MarketStatus int8

const (
	// MarketStatusActive accepts all commands.
	MarketStatusActive MarketStatus = iota
	// MarketStatusPaused rejects order placement, cancels are still allowed.
	MarketStatusPaused
	// MarketStatusClosed rejects everything.
	MarketStatusClosed
)

func (s MarketStatus) String() string {
	switch s {
	case MarketStatusActive:
		return "active"
	case MarketStatusPaused:
		return "paused"
	case MarketStatusClosed:
		return "closed"
	}
	return "unspecified"
}

// MarketConfig is the static definition of a market. Risk and pricing
// parameters live in the respective engine configurations; this carries the
// per-market instrument constraints only.
type MarketConfig struct {
	ID           MarketID
	Name         string
	TickSize     num.Decimal
	LotSize      num.Decimal
	MinOrderSize num.Decimal
	MaxLeverage  uint32
}

// ValidatePrice checks a limit price against the tick size. Prices must be
// strictly positive and tick aligned.
func (m *MarketConfig) ValidatePrice(price num.Decimal) error {
	if !price.IsPositive() {
		return ErrInvalidPrice
	}
	if !m.TickSize.IsPositive() {
		return nil
	}
	if !price.Mod(m.TickSize).IsZero() {
		return ErrPriceNotTickAligned
	}
	return nil
}

// ValidateSize checks an order size against the lot size and minimum.
func (m *MarketConfig) ValidateSize(size num.Decimal) error {
	if !size.IsPositive() {
		return ErrInvalidSize
	}
	if size.LessThan(m.MinOrderSize) {
		return ErrOrderBelowMinimum
	}
	if m.LotSize.IsPositive() && !size.Mod(m.LotSize).IsZero() {
		return ErrSizeNotLotAligned
	}
	return nil
}
