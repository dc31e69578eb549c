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
	"sort"

	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"

	"github.com/pkg/errors"
)

// ErrPriceNotFound signals that a price was not found on the book side.
var ErrPriceNotFound = errors.New("price-volume pair not found")

// ErrNoOrdersOnSide signals an empty side of the book.
var ErrNoOrdersOnSide = errors.New("no orders on the book side")

// OrderBookSide represents a side of the book, either Sell or Buy.
// Buy levels are kept in ascending price order, sell levels descending, so
// the best price is always at the back of the slice.
type OrderBookSide struct {
	side   types.Side
	log    *logging.Logger
	levels []*PriceLevel
}

func (s *OrderBookSide) addOrder(o *types.Order) {
	s.getPriceLevel(o.Price).addOrder(o)
}

// BestPriceAndVolume returns the top of book price and volume.
// It returns an error if the book side is empty.
func (s *OrderBookSide) BestPriceAndVolume() (num.Decimal, num.Decimal, error) {
	if len(s.levels) <= 0 {
		return num.DecimalZero(), num.DecimalZero(), ErrNoOrdersOnSide
	}
	last := len(s.levels) - 1
	return s.levels[last].price, s.levels[last].volume, nil
}

// RemoveOrder will remove an order from the book side.
func (s *OrderBookSide) RemoveOrder(o *types.Order) (*types.Order, error) {
	i := s.levelIndex(o.Price)
	if i >= len(s.levels) || !s.levels[i].price.Equal(o.Price) {
		return nil, types.ErrOrderNotFound
	}

	oidx := -1
	for index, order := range s.levels[i].orders {
		if order.ID == o.ID {
			oidx = index
			break
		}
	}
	if oidx == -1 {
		return nil, types.ErrOrderNotFound
	}

	order := s.levels[i].orders[oidx]
	s.levels[i].removeOrder(oidx)

	if len(s.levels[i].orders) <= 0 {
		s.levels = s.levels[:i+copy(s.levels[i:], s.levels[i+1:])]
	}

	return order, nil
}

func (s *OrderBookSide) levelIndex(price num.Decimal) int {
	if s.side == types.SideBuy {
		// buy side levels are ordered in ascending
		return sort.Search(len(s.levels), func(i int) bool { return s.levels[i].price.GreaterThanOrEqual(price) })
	}
	// sell side levels are ordered in descending
	return sort.Search(len(s.levels), func(i int) bool { return s.levels[i].price.LessThanOrEqual(price) })
}

func (s *OrderBookSide) getPriceLevelIfExists(price num.Decimal) *PriceLevel {
	i := s.levelIndex(price)
	if i < len(s.levels) && s.levels[i].price.Equal(price) {
		return s.levels[i]
	}
	return nil
}

func (s *OrderBookSide) getPriceLevel(price num.Decimal) *PriceLevel {
	i := s.levelIndex(price)
	if i < len(s.levels) && s.levels[i].price.Equal(price) {
		return s.levels[i]
	}

	// not found, insert a new level at the search position to keep the
	// slice ordered
	level := NewPriceLevel(price)
	s.levels = append(s.levels, nil)
	copy(s.levels[i+1:], s.levels[i:])
	s.levels[i] = level
	return level
}

func (s *OrderBookSide) getLevels() []*PriceLevel {
	return s.levels
}

// GetVolume returns the volume at the given price level.
func (s *OrderBookSide) GetVolume(price num.Decimal) (num.Decimal, error) {
	priceLevel := s.getPriceLevelIfExists(price)
	if priceLevel == nil {
		return num.DecimalZero(), ErrPriceNotFound
	}
	return priceLevel.volume, nil
}

// crossedWith reports whether an aggressive order at the given price would
// trade against the best level of this side. Market orders cross anything.
func (s *OrderBookSide) crossedWith(agg *types.Order) bool {
	if len(s.levels) == 0 {
		return false
	}
	if agg.Type == types.OrderTypeMarket {
		return true
	}
	best := s.levels[len(s.levels)-1].price
	if agg.Side == types.SideBuy {
		return best.LessThanOrEqual(agg.Price)
	}
	return best.GreaterThanOrEqual(agg.Price)
}

// volumeWithinLimit accumulates the volume this side could fill for the
// aggressive order, stopping once target is reached.
func (s *OrderBookSide) volumeWithinLimit(agg *types.Order, target num.Decimal) num.Decimal {
	total := num.DecimalZero()
	for i := len(s.levels) - 1; i >= 0; i-- {
		level := s.levels[i]
		if agg.Type != types.OrderTypeMarket && !s.levelMatches(agg, level.price) {
			break
		}
		total = total.Add(level.volume)
		if total.GreaterThanOrEqual(target) {
			break
		}
	}
	return num.MinD(total, target)
}

func (s *OrderBookSide) levelMatches(agg *types.Order, levelPrice num.Decimal) bool {
	if agg.Side == types.SideBuy {
		// aggressive buy uncrosses the sell side
		return levelPrice.LessThanOrEqual(agg.Price)
	}
	return levelPrice.GreaterThanOrEqual(agg.Price)
}

// costToFill accumulates the quote cost of filling the aggressive order
// against this side, best level first, and the quantity fillable within the
// order's limit.
func (s *OrderBookSide) costToFill(agg *types.Order, target num.Decimal) (num.Decimal, num.Decimal) {
	cost, filled := num.DecimalZero(), num.DecimalZero()
	for i := len(s.levels) - 1; i >= 0; i-- {
		level := s.levels[i]
		if agg.Type != types.OrderTypeMarket && !s.levelMatches(agg, level.price) {
			break
		}
		qty := num.MinD(level.volume, target.Sub(filled))
		cost = cost.Add(qty.Mul(level.price))
		filled = filled.Add(qty)
		if filled.GreaterThanOrEqual(target) {
			break
		}
	}
	return cost, filled
}

// uncross matches the aggressive order against this side, best level first,
// until the order is exhausted or prices stop matching.
func (s *OrderBookSide) uncross(agg *types.Order, idGen func() types.TradeID, now int64) ([]*types.Trade, []*types.Order) {
	var (
		trades   []*types.Trade
		impacted []*types.Order
	)

	for i := len(s.levels) - 1; i >= 0; i-- {
		if !agg.Remaining.IsPositive() {
			break
		}
		level := s.levels[i]
		if agg.Type != types.OrderTypeMarket && !s.levelMatches(agg, level.price) {
			break
		}

		lvlTrades, lvlImpacted := level.uncross(agg, idGen, now)
		trades = append(trades, lvlTrades...)
		impacted = append(impacted, lvlImpacted...)

		// an emptied level is always the one at the back of the slice
		if len(level.orders) == 0 {
			s.levels[i] = nil
			s.levels = s.levels[:i]
		}
	}

	if s.log.IsDebug() && len(trades) > 0 {
		s.log.Debug("uncrossed aggressive order",
			logging.String("order-id", agg.ID.String()),
			logging.Int("trades", len(trades)))
	}

	return trades, impacted
}
