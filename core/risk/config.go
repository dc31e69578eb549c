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
	"time"

	"github.com/arcex-labs/arcex/config/encoding"
)

const namedLogger = "risk"

// TierConfig is one leverage tier: positions whose notional is strictly
// below MaxNotional may use up to MaxLeverage. A zero MaxNotional marks the
// unbounded top tier.
type TierConfig struct {
	MaxNotional float64 `long:"max-notional"`
	MaxLeverage uint32  `long:"max-leverage"`
}

// Config represents the configuration of the risk engine: the margin model
// parameters and the pre-trade guard thresholds. Numeric parameters are
// converted to exact decimals once at engine construction.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	MaintenanceRatio    float64           `long:"maintenance-ratio" description:"Maintenance margin as a fraction of initial margin"`
	Tiers               []TierConfig      `group:"Tiers" namespace:"tiers"`
	PriceDeviation      float64           `long:"price-deviation" description:"Max relative distance between a limit price and mark"`
	CircuitDrop         float64           `long:"circuit-drop" description:"Relative mark move within the window that trips the breaker"`
	CircuitWindow       encoding.Duration `long:"circuit-window"`
	CircuitCooloff      encoding.Duration `long:"circuit-cooloff"`
	OracleStaleness     encoding.Duration `long:"oracle-staleness"`
	MaxPositionNotional float64           `long:"max-position-notional" description:"Per-account position notional cap, 0 for unbounded"`
	OpenInterestCap     float64           `long:"open-interest-cap" description:"Per-market open interest cap in contracts, 0 for unbounded"`
}

// NewDefaultConfig creates an instance of the package-specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:            encoding.LogLevel{},
		MaintenanceRatio: 0.5,
		Tiers: []TierConfig{
			{MaxNotional: 100_000, MaxLeverage: 50},
			{MaxNotional: 500_000, MaxLeverage: 20},
			{MaxNotional: 2_000_000, MaxLeverage: 10},
			{MaxNotional: 10_000_000, MaxLeverage: 5},
			{MaxNotional: 0, MaxLeverage: 5},
		},
		PriceDeviation:      0.10,
		CircuitDrop:         0.15,
		CircuitWindow:       encoding.Duration{Duration: 60 * time.Second},
		CircuitCooloff:      encoding.Duration{Duration: 60 * time.Second},
		OracleStaleness:     encoding.Duration{Duration: 30 * time.Second},
		MaxPositionNotional: 0,
		OpenInterestCap:     0,
	}
}
