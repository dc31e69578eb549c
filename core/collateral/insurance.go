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

package collateral

import "github.com/arcex-labs/arcex/libs/num"

// InsuranceFund is the process-wide solvency backstop. It collects
// liquidation penalties and funding residuals and pays out bad debt.
type InsuranceFund struct {
	balance            num.Decimal
	totalContributions num.Decimal
	totalPayouts       num.Decimal
}

func NewInsuranceFund() *InsuranceFund {
	return &InsuranceFund{
		balance:            num.DecimalZero(),
		totalContributions: num.DecimalZero(),
		totalPayouts:       num.DecimalZero(),
	}
}

func (f *InsuranceFund) Balance() num.Decimal {
	return f.balance
}

func (f *InsuranceFund) TotalContributions() num.Decimal {
	return f.totalContributions
}

func (f *InsuranceFund) TotalPayouts() num.Decimal {
	return f.totalPayouts
}

// Add credits the fund.
func (f *InsuranceFund) Add(amount num.Decimal) {
	if !amount.IsPositive() {
		return
	}
	f.balance = f.balance.Add(amount)
	f.totalContributions = f.totalContributions.Add(amount)
}

// Settle applies a signed adjustment: gains of insurance-held positions
// and funding credits come in positive, losses negative.
func (f *InsuranceFund) Settle(amount num.Decimal) {
	if amount.IsPositive() {
		f.Add(amount)
		return
	}
	f.Pay(amount.Neg())
}

// Pay draws up to amount from the fund and returns the shortfall that
// could not be covered.
func (f *InsuranceFund) Pay(amount num.Decimal) num.Decimal {
	if !amount.IsPositive() {
		return num.DecimalZero()
	}
	covered := num.MinD(amount, f.balance)
	f.balance = f.balance.Sub(covered)
	f.totalPayouts = f.totalPayouts.Add(covered)
	return amount.Sub(covered)
}
