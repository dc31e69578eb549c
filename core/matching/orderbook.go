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

// Package matching implements the central limit order book: two
// price-ordered ladders of FIFO queues matched with price-time priority.
package matching

import (
	"sort"

	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"
)

// OrderBook is the market's central limit order book. It is not safe for
// concurrent use; the execution engine serializes access.
type OrderBook struct {
	log *logging.Logger
	Config

	marketID        types.MarketID
	buy             *OrderBookSide
	sell            *OrderBookSide
	ordersByID      map[types.OrderID]*types.Order
	lastTradedPrice num.Decimal
	tradeID         func() types.TradeID

	LogPriceLevelsDebug   bool
	LogRemovedOrdersDebug bool
}

// NewOrderBook returns an empty book for the given market. The trade id
// generator is shared across markets so trade ids are globally increasing.
func NewOrderBook(log *logging.Logger, config Config, marketID types.MarketID, tradeID func() types.TradeID) *OrderBook {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &OrderBook{
		log:                   log,
		Config:                config,
		marketID:              marketID,
		buy:                   &OrderBookSide{log: log, side: types.SideBuy},
		sell:                  &OrderBookSide{log: log, side: types.SideSell},
		ordersByID:            map[types.OrderID]*types.Order{},
		tradeID:               tradeID,
		LogPriceLevelsDebug:   config.LogPriceLevelsDebug,
		LogRemovedOrdersDebug: config.LogRemovedOrdersDebug,
	}
}

// ReloadConf updates the internal configuration of the order book.
func (b *OrderBook) ReloadConf(cfg Config) {
	b.log.Info("reloading configuration")
	if b.log.GetLevel() != cfg.Level.Get() {
		b.log.Info("updating log level",
			logging.String("old", b.log.GetLevel().String()),
			logging.String("new", cfg.Level.String()))
		b.log.SetLevel(cfg.Level.Get())
	}
	b.Config = cfg
}

func (b *OrderBook) oppositeSide(side types.Side) *OrderBookSide {
	if side == types.SideBuy {
		return b.sell
	}
	return b.buy
}

func (b *OrderBook) sameSide(side types.Side) *OrderBookSide {
	if side == types.SideBuy {
		return b.buy
	}
	return b.sell
}

// SubmitOrder matches the order against the opposite side of the book, then
// handles the residual according to the order's time in force. The order's
// Remaining and Status fields are updated in place.
func (b *OrderBook) SubmitOrder(o *types.Order, now int64) (*types.OrderConfirmation, error) {
	if err := b.validateOrder(o); err != nil {
		o.Status = types.OrderStatusRejected
		return nil, err
	}

	opposite := b.oppositeSide(o.Side)

	switch o.TimeInForce {
	case types.TimeInForceFOK:
		if opposite.volumeWithinLimit(o, o.Size).LessThan(o.Size) {
			o.Status = types.OrderStatusRejected
			return nil, types.ErrFOKNotFilled
		}
	case types.TimeInForcePostOnly:
		if opposite.crossedWith(o) {
			o.Status = types.OrderStatusRejected
			return nil, types.ErrPostOnlyWouldCross
		}
	}

	trades, impacted := opposite.uncross(o, b.tradeID, now)
	if len(trades) > 0 {
		b.lastTradedPrice = trades[len(trades)-1].Price
	}
	for _, po := range impacted {
		if po.Status == types.OrderStatusFilled {
			delete(b.ordersByID, po.ID)
			if b.LogRemovedOrdersDebug {
				b.log.Debug("removed fully filled passive order",
					logging.String("order-id", po.ID.String()))
			}
		}
	}

	b.finalizeAggressive(o, len(trades) > 0)

	if b.LogPriceLevelsDebug {
		b.log.Debug("order book state after submission",
			logging.String("market-id", b.marketID.String()),
			logging.Int("buy-levels", len(b.buy.levels)),
			logging.Int("sell-levels", len(b.sell.levels)))
	}

	return &types.OrderConfirmation{
		Order:                 o,
		Trades:                trades,
		PassiveOrdersAffected: impacted,
	}, nil
}

// finalizeAggressive settles the post-matching state of the aggressive
// order: fully filled, rested on the book, or cancelled residual.
func (b *OrderBook) finalizeAggressive(o *types.Order, traded bool) {
	if o.Remaining.IsZero() {
		o.Status = types.OrderStatusFilled
		return
	}

	// market orders and IOC limit orders never rest
	if o.Type == types.OrderTypeMarket || o.TimeInForce == types.TimeInForceIOC {
		if traded {
			o.Status = types.OrderStatusPartiallyFilled
		} else {
			o.Status = types.OrderStatusCancelled
		}
		return
	}

	b.sameSide(o.Side).addOrder(o)
	b.ordersByID[o.ID] = o
}

// CancelOrder removes a resting order from the book.
func (b *OrderBook) CancelOrder(id types.OrderID) (*types.Order, error) {
	o, ok := b.ordersByID[id]
	if !ok {
		return nil, types.ErrOrderNotFound
	}
	order, err := b.sameSide(o.Side).RemoveOrder(o)
	if err != nil {
		b.log.Panic("order in lookup table but not on the book",
			logging.String("order-id", id.String()),
			logging.Error(err))
	}
	delete(b.ordersByID, id)
	order.Status = types.OrderStatusCancelled
	return order, nil
}

// GetOrderByID looks up a resting order.
func (b *OrderBook) GetOrderByID(id types.OrderID) (*types.Order, error) {
	o, ok := b.ordersByID[id]
	if !ok {
		return nil, types.ErrOrderNotFound
	}
	return o, nil
}

// BestBidPriceAndVolume returns the top of the buy side.
func (b *OrderBook) BestBidPriceAndVolume() (num.Decimal, num.Decimal, error) {
	return b.buy.BestPriceAndVolume()
}

// BestAskPriceAndVolume returns the top of the sell side.
func (b *OrderBook) BestAskPriceAndVolume() (num.Decimal, num.Decimal, error) {
	return b.sell.BestPriceAndVolume()
}

// MidPrice returns the middle of the best bid and best ask. When the book
// is one-sided or empty it falls back to the last traded price; the error
// is returned when no price at all is available.
func (b *OrderBook) MidPrice() (num.Decimal, error) {
	bid, _, berr := b.buy.BestPriceAndVolume()
	ask, _, aerr := b.sell.BestPriceAndVolume()
	if berr == nil && aerr == nil {
		return bid.Add(ask).Div(num.DecimalFromInt64(2)), nil
	}
	if !b.lastTradedPrice.IsZero() {
		return b.lastTradedPrice, nil
	}
	return num.DecimalZero(), ErrNoOrdersOnSide
}

// HasTwoSidedQuotes reports whether both sides of the book are populated.
func (b *OrderBook) HasTwoSidedQuotes() bool {
	return len(b.buy.levels) > 0 && len(b.sell.levels) > 0
}

// LastTradedPrice returns the price of the last trade on this book, zero if
// the book never traded.
func (b *OrderBook) LastTradedPrice() num.Decimal {
	return b.lastTradedPrice
}

// FillCost returns the quote cost of crossing the order against the book
// in its current state and the quantity fillable within the order's limit.
// The risk guard uses it to bound the margin an order can require.
func (b *OrderBook) FillCost(o *types.Order) (num.Decimal, num.Decimal) {
	return b.oppositeSide(o.Side).costToFill(o, o.Remaining)
}

// Orders returns all resting orders sorted by id.
func (b *OrderBook) Orders() []*types.Order {
	out := make([]*types.Order, 0, len(b.ordersByID))
	for _, o := range b.ordersByID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetVolumeAtPrice returns the resting volume at the given price.
func (b *OrderBook) GetVolumeAtPrice(price num.Decimal, side types.Side) num.Decimal {
	vol, err := b.sameSide(side).GetVolume(price)
	if err != nil {
		return num.DecimalZero()
	}
	return vol
}

func (b *OrderBook) validateOrder(o *types.Order) error {
	if o.Market != b.marketID {
		b.log.Error("market id mismatch",
			logging.String("order-market", o.Market.String()),
			logging.String("book-market", b.marketID.String()))
		return types.ErrMarketNotFound
	}
	if !o.Size.IsPositive() || !o.Remaining.IsPositive() {
		return types.ErrInvalidSize
	}
	if o.Type == types.OrderTypeLimit && !o.Price.IsPositive() {
		return types.ErrInvalidPrice
	}
	if o.Type == types.OrderTypeMarket && o.TimeInForce == types.TimeInForcePostOnly {
		return types.ErrPostOnlyWouldCross
	}
	return nil
}
