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

package positions

import (
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
)

// MarketPosition is one account's position in one market. Size is signed:
// positive long, negative short; the record only exists while size is
// nonzero.
type MarketPosition struct {
	account          types.AccountID
	size             num.Decimal
	entryPrice       num.Decimal
	collateral       num.Decimal
	lastFundingIndex num.Decimal
	openedAt         int64
}

func (p *MarketPosition) Account() types.AccountID {
	return p.account
}

// Size returns the signed position size.
func (p *MarketPosition) Size() num.Decimal {
	return p.size
}

func (p *MarketPosition) EntryPrice() num.Decimal {
	return p.entryPrice
}

// Collateral is the margin posted against this position.
func (p *MarketPosition) Collateral() num.Decimal {
	return p.collateral
}

func (p *MarketPosition) LastFundingIndex() num.Decimal {
	return p.lastFundingIndex
}

func (p *MarketPosition) OpenedAt() int64 {
	return p.openedAt
}

func (p *MarketPosition) Side() types.Side {
	if p.size.IsNegative() {
		return types.SideSell
	}
	return types.SideBuy
}

// UnrealisedPnL returns size * (mark - entry); the sign of size makes the
// result correct for both sides.
func (p *MarketPosition) UnrealisedPnL(mark num.Decimal) num.Decimal {
	return p.size.Mul(mark.Sub(p.entryPrice))
}

// Notional returns |size| * price.
func (p *MarketPosition) Notional(price num.Decimal) num.Decimal {
	return p.size.Abs().Mul(price)
}

// PendingFunding is the funding accrued against this position since its
// funding index snapshot: size * mark * (index - snapshot). Positive means
// the position owes.
func (p *MarketPosition) PendingFunding(mark, fundingIndex num.Decimal) num.Decimal {
	return p.size.Mul(mark).Mul(fundingIndex.Sub(p.lastFundingIndex))
}

// Equity is collateral plus unrealised PnL minus pending funding, the value
// compared against the maintenance margin.
func (p *MarketPosition) Equity(mark, fundingIndex num.Decimal) num.Decimal {
	return p.collateral.Add(p.UnrealisedPnL(mark)).Sub(p.PendingFunding(mark, fundingIndex))
}

// UnrealisedPnLRatio is unrealised PnL over posted collateral, the primary
// auto-deleveraging ranking key. Insurance-held positions have no
// collateral; they rank by raw PnL sign.
func (p *MarketPosition) UnrealisedPnLRatio(mark num.Decimal) num.Decimal {
	pnl := p.UnrealisedPnL(mark)
	if !p.collateral.IsPositive() {
		return pnl
	}
	return pnl.Div(p.collateral)
}

func (p *MarketPosition) Clone() *MarketPosition {
	cpy := *p
	return &cpy
}
