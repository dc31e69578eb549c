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

package matching

import (
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
)

// PriceLevel holds the orders resting at one price, in strict FIFO order.
type PriceLevel struct {
	price  num.Decimal
	orders []*types.Order
	volume num.Decimal
}

func NewPriceLevel(price num.Decimal) *PriceLevel {
	return &PriceLevel{
		price:  price,
		orders: []*types.Order{},
		volume: num.DecimalZero(),
	}
}

func (l *PriceLevel) addOrder(o *types.Order) {
	// new orders are added at the back of the queue
	l.orders = append(l.orders, o)
	l.volume = l.volume.Add(o.Remaining)
}

func (l *PriceLevel) removeOrder(index int) {
	l.volume = l.volume.Sub(l.orders[index].Remaining)
	copy(l.orders[index:], l.orders[index+1:])
	l.orders = l.orders[:len(l.orders)-1]
}

func (l *PriceLevel) reduceVolume(reduceBy num.Decimal) {
	l.volume = l.volume.Sub(reduceBy)
}

// uncross matches the aggressive order against this level front to back,
// mutating the remaining quantities on both sides. It returns the trades
// generated and the passive orders impacted.
func (l *PriceLevel) uncross(agg *types.Order, idGen func() types.TradeID, now int64) ([]*types.Trade, []*types.Order) {
	var (
		trades   []*types.Trade
		impacted []*types.Order
		toRemove int
	)

	for _, order := range l.orders {
		if !agg.Remaining.IsPositive() {
			break
		}
		size := num.MinD(agg.Remaining, order.Remaining)

		trade := newTrade(agg, order, size, now)
		trade.ID = idGen()

		agg.Remaining = agg.Remaining.Sub(size)
		order.Remaining = order.Remaining.Sub(size)
		l.volume = l.volume.Sub(size)

		if order.Remaining.IsZero() {
			order.Status = types.OrderStatusFilled
			toRemove++
		}

		trades = append(trades, trade)
		impacted = append(impacted, order)
	}

	// fully filled orders are always at the front of the queue
	if toRemove > 0 {
		copy(l.orders, l.orders[toRemove:])
		l.orders = l.orders[:len(l.orders)-toRemove]
	}

	return trades, impacted
}

// newTrade builds a trade between the aggressor and a resting order. The
// trade always executes at the resting order's price.
func newTrade(agg, passive *types.Order, size num.Decimal, now int64) *types.Trade {
	trade := &types.Trade{
		Market:    agg.Market,
		Price:     passive.Price,
		Size:      size,
		Aggressor: agg.Side,
		Timestamp: now,
	}
	if agg.Side == types.SideBuy {
		trade.Buyer = agg.Account
		trade.Seller = passive.Account
		trade.BuyOrder = agg.ID
		trade.SellOrder = passive.ID
	} else {
		trade.Buyer = passive.Account
		trade.Seller = agg.Account
		trade.BuyOrder = passive.ID
		trade.SellOrder = agg.ID
	}
	return trade
}
