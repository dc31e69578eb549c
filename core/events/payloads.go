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

package events

import (
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
)

type MarketCreated struct {
	Base
	Market types.MarketConfig
}

func NewMarketCreated(ts int64, mkt types.MarketConfig) *MarketCreated {
	return &MarketCreated{Base: newBase(MarketCreatedEvent, ts), Market: mkt}
}

type MarketPaused struct {
	Base
	Market types.MarketID
}

func NewMarketPaused(ts int64, mkt types.MarketID) *MarketPaused {
	return &MarketPaused{Base: newBase(MarketPausedEvent, ts), Market: mkt}
}

type MarketResumed struct {
	Base
	Market types.MarketID
}

func NewMarketResumed(ts int64, mkt types.MarketID) *MarketResumed {
	return &MarketResumed{Base: newBase(MarketResumedEvent, ts), Market: mkt}
}

type Deposited struct {
	Base
	Account types.AccountID
	Amount  num.Decimal
	Balance num.Decimal
}

func NewDeposited(ts int64, acc types.AccountID, amount, balance num.Decimal) *Deposited {
	return &Deposited{Base: newBase(DepositedEvent, ts), Account: acc, Amount: amount, Balance: balance}
}

type Withdrawn struct {
	Base
	Account types.AccountID
	Amount  num.Decimal
	Balance num.Decimal
}

func NewWithdrawn(ts int64, acc types.AccountID, amount, balance num.Decimal) *Withdrawn {
	return &Withdrawn{Base: newBase(WithdrawnEvent, ts), Account: acc, Amount: amount, Balance: balance}
}

type WithdrawalRejected struct {
	Base
	Account types.AccountID
	Amount  num.Decimal
	Reason  string
}

func NewWithdrawalRejected(ts int64, acc types.AccountID, amount num.Decimal, reason string) *WithdrawalRejected {
	return &WithdrawalRejected{Base: newBase(WithdrawalRejectedEvent, ts), Account: acc, Amount: amount, Reason: reason}
}

type OrderPlaced struct {
	Base
	Order types.Order
}

func NewOrderPlaced(ts int64, o *types.Order) *OrderPlaced {
	return &OrderPlaced{Base: newBase(OrderPlacedEvent, ts), Order: *o}
}

type OrderMatched struct {
	Base
	Trade types.Trade
}

func NewOrderMatched(ts int64, t *types.Trade) *OrderMatched {
	return &OrderMatched{Base: newBase(OrderMatchedEvent, ts), Trade: *t}
}

type OrderCancelled struct {
	Base
	Order  types.Order
	Reason types.CancelReason
}

func NewOrderCancelled(ts int64, o *types.Order, reason types.CancelReason) *OrderCancelled {
	return &OrderCancelled{Base: newBase(OrderCancelledEvent, ts), Order: *o, Reason: reason}
}

type PositionOpened struct {
	Base
	Market     types.MarketID
	Account    types.AccountID
	Size       num.Decimal
	EntryPrice num.Decimal
	Collateral num.Decimal
}

func NewPositionOpened(ts int64, mkt types.MarketID, acc types.AccountID, size, entry, collateral num.Decimal) *PositionOpened {
	return &PositionOpened{Base: newBase(PositionOpenedEvent, ts), Market: mkt, Account: acc, Size: size, EntryPrice: entry, Collateral: collateral}
}

type PositionIncreased struct {
	Base
	Market     types.MarketID
	Account    types.AccountID
	Size       num.Decimal
	EntryPrice num.Decimal
	Collateral num.Decimal
}

func NewPositionIncreased(ts int64, mkt types.MarketID, acc types.AccountID, size, entry, collateral num.Decimal) *PositionIncreased {
	return &PositionIncreased{Base: newBase(PositionIncreasedEvent, ts), Market: mkt, Account: acc, Size: size, EntryPrice: entry, Collateral: collateral}
}

type PositionReduced struct {
	Base
	Market             types.MarketID
	Account            types.AccountID
	Size               num.Decimal
	EntryPrice         num.Decimal
	RealisedPnL        num.Decimal
	CollateralReturned num.Decimal
}

func NewPositionReduced(ts int64, mkt types.MarketID, acc types.AccountID, size, entry, realised, returned num.Decimal) *PositionReduced {
	return &PositionReduced{
		Base: newBase(PositionReducedEvent, ts), Market: mkt, Account: acc,
		Size: size, EntryPrice: entry, RealisedPnL: realised, CollateralReturned: returned,
	}
}

type PositionClosed struct {
	Base
	Market             types.MarketID
	Account            types.AccountID
	RealisedPnL        num.Decimal
	CollateralReturned num.Decimal
	Reason             types.CloseReason
}

func NewPositionClosed(ts int64, mkt types.MarketID, acc types.AccountID, realised, returned num.Decimal, reason types.CloseReason) *PositionClosed {
	return &PositionClosed{
		Base: newBase(PositionClosedEvent, ts), Market: mkt, Account: acc,
		RealisedPnL: realised, CollateralReturned: returned, Reason: reason,
	}
}

type IndexPriceUpdated struct {
	Base
	Market types.MarketID
	Price  num.Decimal
}

func NewIndexPriceUpdated(ts int64, mkt types.MarketID, price num.Decimal) *IndexPriceUpdated {
	return &IndexPriceUpdated{Base: newBase(IndexPriceUpdatedEvent, ts), Market: mkt, Price: price}
}

type MarkPriceUpdated struct {
	Base
	Market          types.MarketID
	MarkPrice       num.Decimal
	SmoothedPremium num.Decimal
}

func NewMarkPriceUpdated(ts int64, mkt types.MarketID, mark, premium num.Decimal) *MarkPriceUpdated {
	return &MarkPriceUpdated{Base: newBase(MarkPriceUpdatedEvent, ts), Market: mkt, MarkPrice: mark, SmoothedPremium: premium}
}

type FundingSettled struct {
	Base
	Market        types.MarketID
	EffectiveRate num.Decimal
	FundingIndex  num.Decimal
	MarkPrice     num.Decimal
	Residual      num.Decimal
}

func NewFundingSettled(ts int64, mkt types.MarketID, rate, index, mark, residual num.Decimal) *FundingSettled {
	return &FundingSettled{
		Base: newBase(FundingSettledEvent, ts), Market: mkt,
		EffectiveRate: rate, FundingIndex: index, MarkPrice: mark, Residual: residual,
	}
}

type MarginCall struct {
	Base
	Market            types.MarketID
	Account           types.AccountID
	Equity            num.Decimal
	MaintenanceMargin num.Decimal
}

func NewMarginCall(ts int64, mkt types.MarketID, acc types.AccountID, equity, maintenance num.Decimal) *MarginCall {
	return &MarginCall{Base: newBase(MarginCallEvent, ts), Market: mkt, Account: acc, Equity: equity, MaintenanceMargin: maintenance}
}

type Liquidated struct {
	Base
	Market         types.MarketID
	Account        types.AccountID
	Size           num.Decimal
	MarkPrice      num.Decimal
	Penalty        num.Decimal
	LiquidatorCut  num.Decimal
	InsuranceCut   num.Decimal
	ResidualEquity num.Decimal
	BadDebt        num.Decimal
}

func NewLiquidated(ts int64, mkt types.MarketID, acc types.AccountID, size, mark, penalty, liquidatorCut, insuranceCut, residual, badDebt num.Decimal) *Liquidated {
	return &Liquidated{
		Base: newBase(LiquidatedEvent, ts), Market: mkt, Account: acc,
		Size: size, MarkPrice: mark, Penalty: penalty,
		LiquidatorCut: liquidatorCut, InsuranceCut: insuranceCut,
		ResidualEquity: residual, BadDebt: badDebt,
	}
}

type InsurancePaid struct {
	Base
	Market  types.MarketID
	Amount  num.Decimal
	Balance num.Decimal
}

func NewInsurancePaid(ts int64, mkt types.MarketID, amount, balance num.Decimal) *InsurancePaid {
	return &InsurancePaid{Base: newBase(InsurancePaidEvent, ts), Market: mkt, Amount: amount, Balance: balance}
}

type AutoDeleveraged struct {
	Base
	Market   types.MarketID
	Account  types.AccountID
	Size     num.Decimal
	Price    num.Decimal
	Absorbed num.Decimal
}

func NewAutoDeleveraged(ts int64, mkt types.MarketID, acc types.AccountID, size, price, absorbed num.Decimal) *AutoDeleveraged {
	return &AutoDeleveraged{Base: newBase(AutoDeleveragedEvent, ts), Market: mkt, Account: acc, Size: size, Price: price, Absorbed: absorbed}
}

type CircuitBreakerTripped struct {
	Base
	Market      types.MarketID
	Drop        num.Decimal
	HaltedUntil int64
}

func NewCircuitBreakerTripped(ts int64, mkt types.MarketID, drop num.Decimal, haltedUntil int64) *CircuitBreakerTripped {
	return &CircuitBreakerTripped{Base: newBase(CircuitBreakerTrippedEvent, ts), Market: mkt, Drop: drop, HaltedUntil: haltedUntil}
}

type ConditionalPlaced struct {
	Base
	Market       types.MarketID
	Account      types.AccountID
	Conditional  types.OrderID
	TriggerPrice num.Decimal
}

func NewConditionalPlaced(ts int64, mkt types.MarketID, acc types.AccountID, id types.OrderID, trigger num.Decimal) *ConditionalPlaced {
	return &ConditionalPlaced{Base: newBase(ConditionalPlacedEvent, ts), Market: mkt, Account: acc, Conditional: id, TriggerPrice: trigger}
}

type ConditionalCancelled struct {
	Base
	Market      types.MarketID
	Account     types.AccountID
	Conditional types.OrderID
}

func NewConditionalCancelled(ts int64, mkt types.MarketID, acc types.AccountID, id types.OrderID) *ConditionalCancelled {
	return &ConditionalCancelled{Base: newBase(ConditionalCancelledEvent, ts), Market: mkt, Account: acc, Conditional: id}
}

type ConditionalTriggered struct {
	Base
	Market       types.MarketID
	Account      types.AccountID
	Conditional  types.OrderID
	TriggerPrice num.Decimal
	MarkPrice    num.Decimal
}

func NewConditionalTriggered(ts int64, mkt types.MarketID, acc types.AccountID, id types.OrderID, trigger, mark num.Decimal) *ConditionalTriggered {
	return &ConditionalTriggered{
		Base: newBase(ConditionalTriggeredEvent, ts), Market: mkt, Account: acc,
		Conditional: id, TriggerPrice: trigger, MarkPrice: mark,
	}
}
