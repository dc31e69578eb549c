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

import "github.com/pkg/errors"

// Domain rejections. These are returned synchronously and never leave state
// mutated behind them.
var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientFreeBalance = errors.New("insufficient free balance")
	ErrLeverageExceedsTier     = errors.New("leverage exceeds tier maximum")
	ErrInvalidLeverage         = errors.New("invalid leverage")
	ErrPositionCapExceeded     = errors.New("order exceeds position cap")
	ErrOpenInterestCapReached  = errors.New("market open interest cap reached")
	ErrOraclePriceStale        = errors.New("oracle price is stale")
	ErrMarketHalted            = errors.New("market is halted")
	ErrMarketPaused            = errors.New("market is paused")
	ErrMarketClosed            = errors.New("market is closed")
	ErrPriceDeviationTooLarge  = errors.New("price deviates too far from mark")
	ErrBookExhausted           = errors.New("order book exhausted")
	ErrOrderNotFound           = errors.New("order not found")
	ErrMarketNotFound          = errors.New("market not found")
	ErrMarketAlreadyExists     = errors.New("market already exists")
	ErrAccountNotFound         = errors.New("account not found")
	ErrPositionNotFound        = errors.New("position not found")
	ErrInvalidPrice            = errors.New("invalid price")
	ErrInvalidSize             = errors.New("invalid size")
	ErrPriceNotTickAligned     = errors.New("price not aligned to tick size")
	ErrSizeNotLotAligned       = errors.New("size not aligned to lot size")
	ErrOrderBelowMinimum       = errors.New("order size below market minimum")
	ErrPostOnlyWouldCross      = errors.New("post-only order would cross")
	ErrFOKNotFilled            = errors.New("FOK order cannot be fully filled")
	ErrReduceOnlyWouldIncrease = errors.New("reduce-only order would increase position")
	ErrReduceOnlyWouldRest     = errors.New("reduce-only order cannot rest on the book")
	ErrReservedAccount         = errors.New("account id is reserved")
	ErrNoIndexPrice            = errors.New("no index price received yet")
	ErrInvalidConditionalKind  = errors.New("invalid conditional order kind")
)
