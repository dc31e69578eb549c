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

package liquidation

import "github.com/arcex-labs/arcex/config/encoding"

const namedLogger = "liquidation"

// Config represents the configuration of the liquidation engine.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	// PenaltyRate is the fraction of closed notional charged on liquidation.
	PenaltyRate float64 `long:"penalty-rate"`
	// LiquidatorCut is the liquidator's share of the penalty, the rest
	// accrues to the insurance fund. Without a liquidator account the whole
	// penalty goes to insurance.
	LiquidatorCut float64 `long:"liquidator-cut"`
	// MaxSingleNotional caps the notional closed in one liquidation step,
	// zero disables the cap.
	MaxSingleNotional float64 `long:"max-single-notional"`
	// MarginCallRatio scales the maintenance margin into the early warning
	// threshold.
	MarginCallRatio float64 `long:"margin-call-ratio"`
}

// NewDefaultConfig creates an instance of the package-specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:             encoding.LogLevel{},
		PenaltyRate:       0.01,
		LiquidatorCut:     0.5,
		MaxSingleNotional: 1_000_000,
		MarginCallRatio:   1.1,
	}
}
