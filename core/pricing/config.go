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

package pricing

import "github.com/arcex-labs/arcex/config/encoding"

const namedLogger = "pricing"

// Config represents the configuration of the pricing engine.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	MaxPremium float64 `long:"max-premium" description:"Clamp on the raw premium of mid over index"`
	EmaAlpha   float64 `long:"ema-alpha" description:"Smoothing factor for the premium EMA"`
}

// NewDefaultConfig creates an instance of the package-specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:      encoding.LogLevel{},
		MaxPremium: 0.05,
		EmaAlpha:   0.1,
	}
}
