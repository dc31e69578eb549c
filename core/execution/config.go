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

package execution

import (
	"github.com/arcex-labs/arcex/config/encoding"
	"github.com/arcex-labs/arcex/core/collateral"
	"github.com/arcex-labs/arcex/core/conditional"
	"github.com/arcex-labs/arcex/core/funding"
	"github.com/arcex-labs/arcex/core/liquidation"
	"github.com/arcex-labs/arcex/core/matching"
	"github.com/arcex-labs/arcex/core/positions"
	"github.com/arcex-labs/arcex/core/pricing"
	"github.com/arcex-labs/arcex/core/risk"
)

const namedLogger = "execution"

// Config is the root configuration of the execution engine; every market is
// instantiated from the nested engine configurations.
type Config struct {
	Level encoding.LogLevel `long:"log-level"`

	Matching    matching.Config    `group:"Matching"    namespace:"matching"`
	Positions   positions.Config   `group:"Positions"   namespace:"positions"`
	Collateral  collateral.Config  `group:"Collateral"  namespace:"collateral"`
	Risk        risk.Config        `group:"Risk"        namespace:"risk"`
	Pricing     pricing.Config     `group:"Pricing"     namespace:"pricing"`
	Funding     funding.Config     `group:"Funding"     namespace:"funding"`
	Liquidation liquidation.Config `group:"Liquidation" namespace:"liquidation"`
	Conditional conditional.Config `group:"Conditional" namespace:"conditional"`
}

// NewDefaultConfig creates an instance of the package-specific configuration.
func NewDefaultConfig() Config {
	return Config{
		Level:       encoding.LogLevel{},
		Matching:    matching.NewDefaultConfig(),
		Positions:   positions.NewDefaultConfig(),
		Collateral:  collateral.NewDefaultConfig(),
		Risk:        risk.NewDefaultConfig(),
		Pricing:     pricing.NewDefaultConfig(),
		Funding:     funding.NewDefaultConfig(),
		Liquidation: liquidation.NewDefaultConfig(),
		Conditional: conditional.NewDefaultConfig(),
	}
}
