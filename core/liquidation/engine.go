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

// Package liquidation closes under-margined positions. Closes happen at the
// mark price with the insurance fund assuming the position, so the book is
// never touched. Penalties are split between the liquidator and the
// insurance fund; bad debt draws on the fund, and when the fund runs dry
// the shortfall is recovered by auto-deleveraging profitable positions on
// the opposite side.
package liquidation

import (
	"sort"

	"github.com/arcex-labs/arcex/core/collateral"
	"github.com/arcex-labs/arcex/core/positions"
	"github.com/arcex-labs/arcex/core/risk"
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"
)

// Deleverage records one auto-deleveraging close. The account's position is
// reduced at the mark price and Absorbed is withheld from its realised gain
// to cover the insurance shortfall.
type Deleverage struct {
	Account            types.AccountID
	ClosedSize         num.Decimal
	Price              num.Decimal
	RealisedPnL        num.Decimal
	Absorbed           num.Decimal
	CollateralReturned num.Decimal
	Closed             bool
}

// Result records one liquidation step.
type Result struct {
	Account            types.AccountID
	Side               types.Side
	ClosedSize         num.Decimal
	Mark               num.Decimal
	RealisedPnL        num.Decimal
	CollateralReturned num.Decimal
	FundingPaid        num.Decimal
	Penalty            num.Decimal
	LiquidatorCut      num.Decimal
	InsuranceCut       num.Decimal
	// ResidualEquity is what the account kept from the close after losses,
	// funding and the penalty.
	ResidualEquity num.Decimal
	BadDebt        num.Decimal
	// InsurancePaid is the part of the bad debt the fund covered; Shortfall
	// is what remained uncovered after deleveraging.
	InsurancePaid num.Decimal
	Shortfall     num.Decimal
	Closed        bool
	Deleveraged   []*Deleverage
}

// Engine detects and closes under-margined positions for one market.
type Engine struct {
	log *logging.Logger
	Config

	marketID   types.MarketID
	positions  *positions.Engine
	collateral *collateral.Engine
	calc       *risk.MarginCalculator

	penaltyRate     num.Decimal
	liquidatorCut   num.Decimal
	maxSingle       num.Decimal
	marginCallRatio num.Decimal

	// liquidator receives its cut of penalties; the zero id means none is
	// registered and the whole penalty accrues to insurance.
	liquidator types.AccountID
}

// New instantiates a liquidation engine for the given market.
func New(log *logging.Logger, config Config, marketID types.MarketID, pos *positions.Engine, col *collateral.Engine, calc *risk.MarginCalculator) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:             log,
		Config:          config,
		marketID:        marketID,
		positions:       pos,
		collateral:      col,
		calc:            calc,
		penaltyRate:     num.DecimalFromFloat(config.PenaltyRate),
		liquidatorCut:   num.DecimalFromFloat(config.LiquidatorCut),
		maxSingle:       num.DecimalFromFloat(config.MaxSingleNotional),
		marginCallRatio: num.DecimalFromFloat(config.MarginCallRatio),
	}
}

// ReloadConf updates the internal configuration.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.SetLevel(cfg.Level.Get())
	}
	e.Config = cfg
	e.penaltyRate = num.DecimalFromFloat(cfg.PenaltyRate)
	e.liquidatorCut = num.DecimalFromFloat(cfg.LiquidatorCut)
	e.maxSingle = num.DecimalFromFloat(cfg.MaxSingleNotional)
	e.marginCallRatio = num.DecimalFromFloat(cfg.MarginCallRatio)
}

// SetLiquidator registers the account receiving the liquidator's share of
// penalties.
func (e *Engine) SetLiquidator(acc types.AccountID) {
	e.liquidator = acc
}

// Liquidatable reports whether the position's equity has fallen below its
// maintenance margin at the given mark and funding index.
func (e *Engine) Liquidatable(p *positions.MarketPosition, mark, fundingIndex num.Decimal) bool {
	mm := e.calc.MaintenanceMarginForPosition(p.Collateral())
	return p.Equity(mark, fundingIndex).LessThan(mm)
}

// Sweep closes every under-margined position and returns the liquidation
// steps taken plus the accounts now in the margin call band. Each step may
// mutate the position set, so the scan restarts after every close until a
// full pass finds nothing to do.
func (e *Engine) Sweep(mark, fundingIndex num.Decimal, now int64) ([]*Result, []types.AccountID) {
	var results []*Result
	for {
		acted := false
		for _, p := range e.positions.Positions() {
			if p.Account() == types.InsuranceAccountID {
				continue
			}
			if !e.Liquidatable(p, mark, fundingIndex) {
				continue
			}
			results = append(results, e.liquidate(p, mark, fundingIndex, now))
			acted = true
			break
		}
		if !acted {
			break
		}
	}

	var calls []types.AccountID
	for _, p := range e.positions.Positions() {
		if p.Account() == types.InsuranceAccountID {
			continue
		}
		warn := e.calc.MaintenanceMarginForPosition(p.Collateral()).Mul(e.marginCallRatio)
		if p.Equity(mark, fundingIndex).LessThan(warn) {
			calls = append(calls, p.Account())
		}
	}
	return results, calls
}

// liquidate closes one step of the position at mark, settles the account's
// share of pending funding, assesses the penalty and hands the position to
// the insurance fund.
func (e *Engine) liquidate(p *positions.MarketPosition, mark, fundingIndex num.Decimal, now int64) *Result {
	acc := p.Account()
	side := p.Side()
	absSize := p.Size().Abs()

	qty := absSize
	if e.maxSingle.IsPositive() {
		qty = num.MinD(qty, e.maxSingle.Div(mark))
	}
	notional := qty.Mul(mark)
	zero := num.DecimalZero()

	// funding accrued on the closed quantity settles now, the remainder
	// keeps accruing against the surviving position
	fundingShare := p.PendingFunding(mark, fundingIndex).Mul(qty).Div(absSize)

	u := e.positions.ApplyFill(acc, side.Opposite(), qty, mark, zero, fundingIndex, now)[0]
	e.collateral.Release(acc, u.CollateralReturned)
	fundingPaid := e.collateral.Debit(acc, fundingShare)
	e.collateral.Debit(types.InsuranceAccountID, fundingPaid.Neg())

	// realise the PnL, capping losses at the collateral backing the close
	badDebt := zero
	netted := u.CollateralReturned.Sub(fundingPaid)
	if u.RealisedPnL.IsNegative() {
		loss := u.RealisedPnL.Neg()
		covered := num.MinD(loss, u.CollateralReturned)
		if a, ok := e.collateral.GetAccount(acc); ok {
			covered = num.MinD(covered, a.Balance())
		}
		e.collateral.RealisePnL(acc, covered.Neg())
		badDebt = loss.Sub(covered)
		netted = netted.Sub(covered)
	} else {
		e.collateral.RealisePnL(acc, u.RealisedPnL)
		netted = netted.Add(u.RealisedPnL)
	}

	penalty := num.MinD(notional.Mul(e.penaltyRate), num.MaxD(netted, zero))
	penalty = e.collateral.Debit(acc, penalty)
	residual := num.MaxD(netted.Sub(penalty), zero)
	liqCut, insCut := zero, penalty
	if e.liquidator != types.InsuranceAccountID {
		liqCut = penalty.Mul(e.liquidatorCut)
		insCut = penalty.Sub(liqCut)
		e.collateral.RealisePnL(e.liquidator, liqCut)
	}
	e.collateral.Debit(types.InsuranceAccountID, insCut.Neg())

	// the insurance fund assumes the closed exposure at mark, keeping the
	// open interest matched
	for _, iu := range e.positions.ApplyFill(types.InsuranceAccountID, side, qty, mark, zero, fundingIndex, now) {
		e.collateral.RealisePnL(types.InsuranceAccountID, iu.RealisedPnL)
	}

	shortfall := e.collateral.Insurance().Pay(badDebt)
	insurancePaid := badDebt.Sub(shortfall)
	var deleveraged []*Deleverage
	if shortfall.IsPositive() {
		deleveraged, shortfall = e.deleverage(side, shortfall, mark, fundingIndex, now)
	}

	if e.log.IsDebug() {
		e.log.Debug("position liquidated",
			logging.String("market-id", e.marketID.String()),
			logging.String("account", acc.String()),
			logging.Decimal("size", qty),
			logging.Decimal("mark", mark),
			logging.Decimal("penalty", penalty),
			logging.Decimal("bad-debt", badDebt))
	}

	return &Result{
		Account:            acc,
		Side:               side,
		ClosedSize:         qty,
		Mark:               mark,
		RealisedPnL:        u.RealisedPnL,
		CollateralReturned: u.CollateralReturned,
		FundingPaid:        fundingPaid,
		Penalty:            penalty,
		LiquidatorCut:      liqCut,
		InsuranceCut:       insCut,
		ResidualEquity:     residual,
		BadDebt:            badDebt,
		InsurancePaid:      insurancePaid,
		Shortfall:          shortfall,
		Closed:             u.Kind == positions.UpdateClosed,
		Deleveraged:        deleveraged,
	}
}

// deleverage recovers an insurance shortfall by closing profitable positions
// on the side opposite the bankrupt one, best ranked first, withholding
// realised gains until the shortfall is covered. The insurance fund's
// assumed position unwinds against each close.
func (e *Engine) deleverage(bankruptSide types.Side, shortfall, mark, fundingIndex num.Decimal, now int64) ([]*Deleverage, num.Decimal) {
	counterSide := bankruptSide.Opposite()

	var candidates []*positions.MarketPosition
	for _, p := range e.positions.Positions() {
		if p.Account() == types.InsuranceAccountID || p.Side() != counterSide {
			continue
		}
		if p.UnrealisedPnL(mark).IsPositive() {
			candidates = append(candidates, p)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := candidates[i].UnrealisedPnLRatio(mark), candidates[j].UnrealisedPnLRatio(mark)
		if !ri.Equal(rj) {
			return ri.GreaterThan(rj)
		}
		si, sj := candidates[i].Size().Abs(), candidates[j].Size().Abs()
		if !si.Equal(sj) {
			return si.GreaterThan(sj)
		}
		return candidates[i].Account() < candidates[j].Account()
	})

	zero := num.DecimalZero()
	var out []*Deleverage
	for _, p := range candidates {
		if !shortfall.IsPositive() {
			break
		}
		ins, ok := e.positions.GetPositionByAccount(types.InsuranceAccountID)
		if !ok || ins.Side() != bankruptSide {
			break
		}

		absSize := p.Size().Abs()
		perUnit := p.UnrealisedPnL(mark).Div(absSize)
		qty := num.MinD(num.MinD(shortfall.Div(perUnit), absSize), ins.Size().Abs())
		if !qty.IsPositive() {
			break
		}

		fundingShare := p.PendingFunding(mark, fundingIndex).Mul(qty).Div(absSize)
		u := e.positions.ApplyFill(p.Account(), counterSide.Opposite(), qty, mark, zero, fundingIndex, now)[0]
		e.collateral.Release(p.Account(), u.CollateralReturned)
		fundingPaid := e.collateral.Debit(p.Account(), fundingShare)
		e.collateral.Debit(types.InsuranceAccountID, fundingPaid.Neg())

		absorbed := num.MinD(u.RealisedPnL, shortfall)
		e.collateral.RealisePnL(p.Account(), u.RealisedPnL.Sub(absorbed))
		shortfall = shortfall.Sub(absorbed)

		for _, iu := range e.positions.ApplyFill(types.InsuranceAccountID, bankruptSide.Opposite(), qty, mark, zero, fundingIndex, now) {
			e.collateral.RealisePnL(types.InsuranceAccountID, iu.RealisedPnL)
		}

		out = append(out, &Deleverage{
			Account:            p.Account(),
			ClosedSize:         qty,
			Price:              mark,
			RealisedPnL:        u.RealisedPnL,
			Absorbed:           absorbed,
			CollateralReturned: u.CollateralReturned,
			Closed:             u.Kind == positions.UpdateClosed,
		})
	}

	if shortfall.IsPositive() {
		e.log.Warn("insurance shortfall not fully recovered by deleveraging",
			logging.String("market-id", e.marketID.String()),
			logging.Decimal("shortfall", shortfall))
	}
	return out, shortfall
}
