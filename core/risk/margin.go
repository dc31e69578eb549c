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

package risk

import (
	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
)

// Tier is one leverage tier with its bounds as exact decimals.
type Tier struct {
	// MaxNotional is exclusive; zero marks the unbounded top tier.
	MaxNotional num.Decimal
	MaxLeverage uint32
}

// MarginCalculator maps position notionals to margin requirements through
// the tier schedule. It is a pure calculator, all methods are read only.
type MarginCalculator struct {
	tiers            []Tier
	maintenanceRatio num.Decimal
}

// NewMarginCalculator converts the configured schedule into decimals. Tiers
// must be ordered by ascending MaxNotional with the unbounded tier last.
func NewMarginCalculator(cfg Config) *MarginCalculator {
	tiers := make([]Tier, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		tiers = append(tiers, Tier{
			MaxNotional: num.DecimalFromFloat(t.MaxNotional),
			MaxLeverage: t.MaxLeverage,
		})
	}
	return &MarginCalculator{
		tiers:            tiers,
		maintenanceRatio: num.DecimalFromFloat(cfg.MaintenanceRatio),
	}
}

// TierFor returns the smallest tier containing the notional.
func (c *MarginCalculator) TierFor(notional num.Decimal) Tier {
	for _, t := range c.tiers {
		if t.MaxNotional.IsZero() || notional.LessThan(t.MaxNotional) {
			return t
		}
	}
	// schedule always ends with an unbounded tier; reaching here means the
	// configuration is broken
	return c.tiers[len(c.tiers)-1]
}

// CheckLeverage validates the requested leverage against the notional's
// tier.
func (c *MarginCalculator) CheckLeverage(notional num.Decimal, leverage uint32) error {
	if leverage < 1 {
		return types.ErrInvalidLeverage
	}
	if leverage > c.TierFor(notional).MaxLeverage {
		return types.ErrLeverageExceedsTier
	}
	return nil
}

// InitialMargin is notional / leverage.
func (c *MarginCalculator) InitialMargin(notional num.Decimal, leverage uint32) num.Decimal {
	return notional.Div(num.DecimalFromInt64(int64(leverage)))
}

// MaintenanceMargin is the initial margin scaled by the maintenance ratio.
func (c *MarginCalculator) MaintenanceMargin(notional num.Decimal, leverage uint32) num.Decimal {
	return c.InitialMargin(notional, leverage).Mul(c.maintenanceRatio)
}

// MaintenanceMarginForPosition derives the maintenance requirement from the
// position's posted collateral: collateral * ratio. With collateral posted
// at notional/leverage this equals the schedule's requirement while staying
// correct for positions opened at any effective leverage.
func (c *MarginCalculator) MaintenanceMarginForPosition(collateral num.Decimal) num.Decimal {
	return collateral.Mul(c.maintenanceRatio)
}

// LiquidationPrice is the mark price at which a position posted at the
// given leverage reaches its maintenance margin:
// entry * (1 - ratio/leverage) for longs, entry * (1 + ratio/leverage) for
// shorts.
func (c *MarginCalculator) LiquidationPrice(entry num.Decimal, leverage uint32, side types.Side) num.Decimal {
	offset := c.maintenanceRatio.Div(num.DecimalFromInt64(int64(leverage)))
	if side == types.SideBuy {
		return entry.Mul(num.DecimalOne().Sub(offset))
	}
	return entry.Mul(num.DecimalOne().Add(offset))
}
