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

package funding

import (
	"time"

	"github.com/arcex-labs/arcex/config/encoding"
)

const namedLogger = "funding"

// Config represents the configuration of the funding engine.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	MaxRate          float64           `long:"max-rate" description:"Clamp on the per-period funding rate"`
	BaseInterest     float64           `long:"base-interest" description:"Interest component added to the premium"`
	Period           encoding.Duration `long:"period"`
	PaymentPrecision int32             `long:"payment-precision" description:"Decimal places funding payments are rounded to, half-even"`
}

// NewDefaultConfig creates an instance of the package-specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:            encoding.LogLevel{},
		MaxRate:          0.01,
		BaseInterest:     0.0001,
		Period:           encoding.Duration{Duration: 8 * time.Hour},
		PaymentPrecision: 8,
	}
}
