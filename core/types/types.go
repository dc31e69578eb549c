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

// Package types holds the domain values shared between the engines: ids,
// sides, orders, trades and market definitions.
package types

import (
	"strconv"

	"github.com/arcex-labs/arcex/libs/num"
)

type (
	// MarketID identifies a market. Markets are created through the
	// execution engine and never removed.
	MarketID uint32
	// AccountID identifies an account. Accounts are created on first
	// deposit.
	AccountID uint64
	// OrderID is engine assigned, strictly increasing across all markets.
	OrderID uint64
	// TradeID is engine assigned, strictly increasing across all markets.
	TradeID uint64
)

// InsuranceAccountID is reserved for the insurance fund. Positions assumed
// through liquidation are booked under it; deposits and orders for it are
// rejected.
const InsuranceAccountID AccountID = 0

func (m MarketID) String() string {
	return strconv.FormatUint(uint64(m), 10)
}

func (a AccountID) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

func (o OrderID) String() string {
	return strconv.FormatUint(uint64(o), 10)
}

func (t TradeID) String() string {
	return strconv.FormatUint(uint64(t), 10)
}

// Side is the side of an order or trade.
type Side int8

const (
	SideUnspecified Side = iota
	SideBuy
	SideSell
)

// Sign returns +1 for buys and -1 for sells as a decimal, so signed size
// arithmetic needs no branching.
func (s Side) Sign() num.Decimal {
	if s == SideBuy {
		return num.DecimalOne()
	}
	return num.DecimalMinusOne()
}

func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	}
	return SideUnspecified
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	}
	return "unspecified"
}
