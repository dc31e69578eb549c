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

package conditional

import (
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
)

// Kind is the conditional order trigger semantics.
type Kind int8

const (
	KindUnspecified Kind = iota
	KindStopLoss
	KindTakeProfit
	KindTrailingStop
)

func (k Kind) String() string {
	switch k {
	case KindStopLoss:
		return "stop-loss"
	case KindTakeProfit:
		return "take-profit"
	case KindTrailingStop:
		return "trailing-stop"
	}
	return "unspecified"
}

// Order is a resting trigger. When the mark price crosses its trigger it is
// removed and fired exactly once; the execution layer converts it into a
// market order through the normal admission path.
type Order struct {
	ID         types.OrderID
	Market     types.MarketID
	Account    types.AccountID
	Kind       Kind
	Side       types.Side
	Size       num.Decimal
	Leverage   uint32
	ReduceOnly bool

	// TriggerPrice is the fixed trigger for stop-loss and take-profit.
	TriggerPrice num.Decimal
	// TrailDistance is the absolute distance a trailing stop keeps behind
	// its watermark.
	TrailDistance num.Decimal

	CreatedAt int64

	// watermark of the most favorable mark seen since submission, trailing
	// stops only
	bestSeen num.Decimal
}

// BestSeen returns the trailing watermark.
func (o *Order) BestSeen() num.Decimal {
	return o.bestSeen
}

// CurrentTrigger is the price the order fires at right now. For trailing
// stops it follows the watermark, for the fixed kinds it is TriggerPrice.
func (o *Order) CurrentTrigger() num.Decimal {
	if o.Kind != KindTrailingStop {
		return o.TriggerPrice
	}
	if o.Side == types.SideSell {
		return o.bestSeen.Sub(o.TrailDistance)
	}
	return o.bestSeen.Add(o.TrailDistance)
}

// firesBelow reports whether the order fires when mark <= trigger, as
// opposed to mark >= trigger. A sell stop protects a long and fires on the
// way down, a buy stop mirrors it; take-profits invert their stop.
func (o *Order) firesBelow() bool {
	switch o.Kind {
	case KindStopLoss, KindTrailingStop:
		return o.Side == types.SideSell
	case KindTakeProfit:
		return o.Side == types.SideBuy
	}
	return false
}
