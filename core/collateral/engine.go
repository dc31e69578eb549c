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

// Package collateral owns the quote-asset accounting: free balances,
// margin reservations, realised PnL and the insurance fund. Every value
// movement in the engine goes through here.
package collateral

import (
	"sort"

	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"
)

// Account is one participant's quote-asset account. The free balance and
// the reserved margin are disjoint; reserved always equals the sum of the
// collateral posted on the account's open positions.
type Account struct {
	id             types.AccountID
	balance        num.Decimal
	reserved       num.Decimal
	realisedPnL    num.Decimal
	totalDeposited num.Decimal
	totalWithdrawn num.Decimal
}

func (a *Account) ID() types.AccountID {
	return a.id
}

// Balance is the free, withdrawable balance.
func (a *Account) Balance() num.Decimal {
	return a.balance
}

// Reserved is the margin posted across the account's open positions.
func (a *Account) Reserved() num.Decimal {
	return a.reserved
}

// RealisedPnL is the account's cumulative realised profit and loss.
func (a *Account) RealisedPnL() num.Decimal {
	return a.realisedPnL
}

func (a *Account) TotalDeposited() num.Decimal {
	return a.totalDeposited
}

func (a *Account) TotalWithdrawn() num.Decimal {
	return a.totalWithdrawn
}

// Engine manages all accounts and the insurance fund.
type Engine struct {
	log *logging.Logger
	Config

	accounts  map[types.AccountID]*Account
	insurance *InsuranceFund
}

// New instantiates the collateral engine.
func New(log *logging.Logger, config Config) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:       log,
		Config:    config,
		accounts:  map[types.AccountID]*Account{},
		insurance: NewInsuranceFund(),
	}
}

// ReloadConf updates the configuration of the engine.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.SetLevel(cfg.Level.Get())
	}
	e.Config = cfg
}

// Insurance returns the process-wide insurance fund.
func (e *Engine) Insurance() *InsuranceFund {
	return e.insurance
}

// GetAccount looks up an account.
func (e *Engine) GetAccount(id types.AccountID) (*Account, bool) {
	a, ok := e.accounts[id]
	return a, ok
}

// Accounts returns all accounts ordered by id.
func (e *Engine) Accounts() []*Account {
	out := make([]*Account, 0, len(e.accounts))
	for _, a := range e.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Deposit credits an account, creating it on first use. Deposits to the
// reserved insurance account id fund the insurance pool instead.
func (e *Engine) Deposit(id types.AccountID, amount num.Decimal) (num.Decimal, error) {
	if !amount.IsPositive() {
		return num.DecimalZero(), types.ErrInvalidAmount
	}
	if id == types.InsuranceAccountID {
		e.insurance.Add(amount)
		return e.insurance.Balance(), nil
	}

	a, ok := e.accounts[id]
	if !ok {
		a = &Account{
			id:             id,
			balance:        num.DecimalZero(),
			reserved:       num.DecimalZero(),
			realisedPnL:    num.DecimalZero(),
			totalDeposited: num.DecimalZero(),
			totalWithdrawn: num.DecimalZero(),
		}
		e.accounts[id] = a
	}
	a.balance = a.balance.Add(amount)
	a.totalDeposited = a.totalDeposited.Add(amount)
	return a.balance, nil
}

// Withdraw debits the free balance. Margin posted on open positions is
// already out of the free balance, so checking it is the whole margin
// safety argument.
func (e *Engine) Withdraw(id types.AccountID, amount num.Decimal) (num.Decimal, error) {
	if !amount.IsPositive() {
		return num.DecimalZero(), types.ErrInvalidAmount
	}
	if id == types.InsuranceAccountID {
		return num.DecimalZero(), types.ErrReservedAccount
	}
	a, ok := e.accounts[id]
	if !ok {
		return num.DecimalZero(), types.ErrAccountNotFound
	}
	if a.balance.LessThan(amount) {
		return num.DecimalZero(), types.ErrInsufficientFreeBalance
	}
	a.balance = a.balance.Sub(amount)
	a.totalWithdrawn = a.totalWithdrawn.Add(amount)
	return a.balance, nil
}

// Reserve moves free balance into the margin bucket.
func (e *Engine) Reserve(id types.AccountID, amount num.Decimal) error {
	if id == types.InsuranceAccountID || amount.IsZero() {
		return nil
	}
	a, ok := e.accounts[id]
	if !ok {
		return types.ErrAccountNotFound
	}
	if a.balance.LessThan(amount) {
		return types.ErrInsufficientFreeBalance
	}
	a.balance = a.balance.Sub(amount)
	a.reserved = a.reserved.Add(amount)
	return nil
}

// Release returns margin to the free balance.
func (e *Engine) Release(id types.AccountID, amount num.Decimal) {
	if id == types.InsuranceAccountID || amount.IsZero() {
		return
	}
	a, ok := e.accounts[id]
	if !ok {
		e.log.Panic("release on unknown account", logging.String("account", id.String()))
	}
	if a.reserved.LessThan(amount) {
		e.log.Panic("release exceeds reserved margin",
			logging.String("account", id.String()),
			logging.Decimal("reserved", a.reserved),
			logging.Decimal("amount", amount))
	}
	a.reserved = a.reserved.Sub(amount)
	a.balance = a.balance.Add(amount)
}

// RealisePnL settles a profit or loss against the free balance. Realised
// gains credited to the insurance account accrue to the insurance fund.
func (e *Engine) RealisePnL(id types.AccountID, amount num.Decimal) {
	if amount.IsZero() {
		return
	}
	if id == types.InsuranceAccountID {
		e.insurance.Settle(amount)
		return
	}
	a, ok := e.accounts[id]
	if !ok {
		e.log.Panic("pnl on unknown account", logging.String("account", id.String()))
	}
	a.balance = a.balance.Add(amount)
	a.realisedPnL = a.realisedPnL.Add(amount)
}

// Debit moves cash out of (amount > 0) or into (amount < 0) the free
// balance, capped at what the account holds. Funding payments and
// liquidation penalties flow through here; a payer whose free balance
// cannot cover the amount pays what remains, and the caller settles the
// difference through the insurance fund.
func (e *Engine) Debit(id types.AccountID, amount num.Decimal) num.Decimal {
	if id == types.InsuranceAccountID {
		e.insurance.Settle(amount.Neg())
		return amount
	}
	a, ok := e.accounts[id]
	if !ok {
		e.log.Panic("debit on unknown account", logging.String("account", id.String()))
	}
	paid := amount
	if amount.IsPositive() && a.balance.LessThan(amount) {
		paid = a.balance
	}
	a.balance = a.balance.Sub(paid)
	return paid
}

// TotalBalance is the sum of all free balances, reserved margin and the
// insurance fund. Constant under everything except deposits, withdrawals
// and PnL realisation.
func (e *Engine) TotalBalance() num.Decimal {
	total := e.insurance.Balance()
	for _, a := range e.accounts {
		total = total.Add(a.balance).Add(a.reserved)
	}
	return total
}
