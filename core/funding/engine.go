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

// Package funding maintains the per-market cumulative funding index and
// computes settlement payments. The index advances by the period rate
// pro-rated over elapsed time; each position owes size * mark * delta of
// the index since its snapshot. Settlement is zero-sum up to the per
// position rounding, whose residual goes to the insurance fund.
package funding

import (
	"github.com/arcex-labs/arcex/core/positions"
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"
)

// Payment is one account's funding obligation: positive pays, negative
// receives.
type Payment struct {
	Account types.AccountID
	Amount  num.Decimal
}

// Result describes one funding settlement.
type Result struct {
	EffectiveRate num.Decimal
	FundingIndex  num.Decimal
	Payments      []Payment
	// Residual is the net cash left over by per-position rounding; it is
	// deposited into (or drawn from) the insurance fund.
	Residual num.Decimal
}

// Engine holds the funding state for one market.
type Engine struct {
	log *logging.Logger
	Config

	marketID     types.MarketID
	maxRate      num.Decimal
	baseInterest num.Decimal
	periodMs     int64

	fundingIndex    num.Decimal
	lastFundingTime int64
}

// New instantiates the funding engine for one market. now anchors the first
// settlement period.
func New(log *logging.Logger, config Config, marketID types.MarketID, now int64) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:             log,
		Config:          config,
		marketID:        marketID,
		maxRate:         num.DecimalFromFloat(config.MaxRate),
		baseInterest:    num.DecimalFromFloat(config.BaseInterest),
		periodMs:        config.Period.Get().Milliseconds(),
		fundingIndex:    num.DecimalZero(),
		lastFundingTime: now,
	}
}

// FundingIndex returns the cumulative funding index.
func (e *Engine) FundingIndex() num.Decimal {
	return e.fundingIndex
}

// LastSettlement returns the time of the last settlement.
func (e *Engine) LastSettlement() int64 {
	return e.lastFundingTime
}

// Due reports whether a full period has elapsed since the last settlement.
func (e *Engine) Due(now int64) bool {
	return now-e.lastFundingTime >= e.periodMs
}

// Rate computes the period funding rate for the given smoothed premium:
// clamp(premium + interest, -max, +max).
func (e *Engine) Rate(smoothedPremium num.Decimal) num.Decimal {
	return num.ClampD(smoothedPremium.Add(e.baseInterest), e.maxRate.Neg(), e.maxRate)
}

// Settle advances the funding index pro-rated over the elapsed time and
// computes the payment each open position owes. The caller applies the
// payments and then syncs the position snapshots to the returned index.
func (e *Engine) Settle(now int64, smoothedPremium, mark num.Decimal, open []*positions.MarketPosition) *Result {
	elapsed := now - e.lastFundingTime
	if elapsed <= 0 {
		return nil
	}

	rate := e.Rate(smoothedPremium)
	effective := rate.Mul(num.DecimalFromInt64(elapsed)).Div(num.DecimalFromInt64(e.periodMs))
	e.fundingIndex = e.fundingIndex.Add(effective)
	e.lastFundingTime = now

	res := &Result{
		EffectiveRate: effective,
		FundingIndex:  e.fundingIndex,
		Residual:      num.DecimalZero(),
	}

	for _, p := range open {
		raw := p.PendingFunding(mark, e.fundingIndex)
		amount := raw.RoundBank(e.PaymentPrecision)
		if amount.IsZero() {
			continue
		}
		res.Payments = append(res.Payments, Payment{Account: p.Account(), Amount: amount})
		res.Residual = res.Residual.Add(amount)
	}

	if e.log.IsDebug() {
		e.log.Debug("funding settled",
			logging.String("market-id", e.marketID.String()),
			logging.Decimal("rate", effective),
			logging.Decimal("index", e.fundingIndex),
			logging.Int("payments", len(res.Payments)))
	}

	return res
}
