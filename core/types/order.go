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

type OrderType int8

const (
	OrderTypeUnspecified OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "limit"
	case OrderTypeMarket:
		return "market"
	}
	return "unspecified"
}

type TimeInForce int8

const (
	// TimeInForceGTC rests any residual on the book.
	TimeInForceGTC TimeInForce = iota
	// TimeInForceIOC cancels any residual after matching.
	TimeInForceIOC
	// TimeInForceFOK fills the full size immediately or not at all.
	TimeInForceFOK
	// TimeInForcePostOnly rejects the order if it would cross.
	TimeInForcePostOnly
)

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceGTC:
		return "GTC"
	case TimeInForceIOC:
		return "IOC"
	case TimeInForceFOK:
		return "FOK"
	case TimeInForcePostOnly:
		return "post-only"
	}
	return "unspecified"
}

type OrderStatus int8

const (
	OrderStatusActive OrderStatus = iota
	OrderStatusFilled
	OrderStatusPartiallyFilled
	OrderStatusCancelled
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusActive:
		return "active"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusPartiallyFilled:
		return "partially-filled"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusRejected:
		return "rejected"
	}
	return "unspecified"
}

// CancelReason records why an order left the book without filling in full.
type CancelReason int8

const (
	CancelReasonUnspecified CancelReason = iota
	// CancelReasonUser is an explicit cancel command.
	CancelReasonUser
	// CancelReasonIOC is the residual of an immediate-or-cancel order.
	CancelReasonIOC
	// CancelReasonBookExhausted is the residual of a market order that ran
	// the opposite side of the book dry.
	CancelReasonBookExhausted
	// CancelReasonMarketPaused covers book flushes on market pause.
	CancelReasonMarketPaused
)

func (r CancelReason) String() string {
	switch r {
	case CancelReasonUser:
		return "user-requested"
	case CancelReasonIOC:
		return "ioc-residual"
	case CancelReasonBookExhausted:
		return "book-exhausted"
	case CancelReasonMarketPaused:
		return "market-paused"
	}
	return "unspecified"
}

// CloseReason records what closed a position.
type CloseReason int8

const (
	CloseReasonTrade CloseReason = iota
	CloseReasonLiquidation
	CloseReasonAutoDeleverage
)

func (r CloseReason) String() string {
	switch r {
	case CloseReasonTrade:
		return "trade"
	case CloseReasonLiquidation:
		return "liquidation"
	case CloseReasonAutoDeleverage:
		return "auto-deleverage"
	}
	return "unspecified"
}

// Order is a live or historical order. Price is zero for market orders.
// Remaining tracks the unmatched quantity and is always <= Size.
type Order struct {
	ID          OrderID
	Market      MarketID
	Account     AccountID
	Side        Side
	Type        OrderType
	TimeInForce TimeInForce
	Price       num.Decimal
	Size        num.Decimal
	Remaining   num.Decimal
	Leverage    uint32
	ReduceOnly  bool
	Status      OrderStatus
	CreatedAt   int64
}

// IsFinished reports whether the order can no longer trade.
func (o *Order) IsFinished() bool {
	return o.Status != OrderStatusActive
}

func (o *Order) Clone() *Order {
	cpy := *o
	return &cpy
}

// OrderSubmission is the caller-facing order specification; the engine
// assigns the id and timestamps on acceptance.
type OrderSubmission struct {
	Market      MarketID
	Account     AccountID
	Side        Side
	Type        OrderType
	TimeInForce TimeInForce
	Price       num.Decimal
	Size        num.Decimal
	Leverage    uint32
	ReduceOnly  bool
}

// IntoOrder builds the live order for an accepted submission.
func (s OrderSubmission) IntoOrder(id OrderID, now int64) *Order {
	return &Order{
		ID:          id,
		Market:      s.Market,
		Account:     s.Account,
		Side:        s.Side,
		Type:        s.Type,
		TimeInForce: s.TimeInForce,
		Price:       s.Price,
		Size:        s.Size,
		Remaining:   s.Size,
		Leverage:    s.Leverage,
		ReduceOnly:  s.ReduceOnly,
		Status:      OrderStatusActive,
		CreatedAt:   now,
	}
}

// Trade is a single match between two orders. Price is always the resting
// order's price.
type Trade struct {
	ID        TradeID
	Market    MarketID
	Price     num.Decimal
	Size      num.Decimal
	Buyer     AccountID
	Seller    AccountID
	BuyOrder  OrderID
	SellOrder OrderID
	Aggressor Side
	Timestamp int64
}

// OrderConfirmation is returned on order acceptance: the submitted order in
// its post-matching state, the trades it produced, and the resting orders
// it traded against.
type OrderConfirmation struct {
	Order                 *Order
	Trades                []*Trade
	PassiveOrdersAffected []*Order
}
