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

// Package conditional holds the resting stop-loss, take-profit and trailing
// stop triggers for one market. Triggers are indexed by price in two btrees,
// one per firing direction, so evaluating a mark update touches only the
// triggers it can fire.
package conditional

import (
	"sort"

	"github.com/arcex-labs/arcex/core/types"
	"github.com/arcex-labs/arcex/libs/num"
	"github.com/arcex-labs/arcex/logging"

	"github.com/google/btree"
)

type entry struct {
	trigger num.Decimal
	id      types.OrderID
	order   *Order
}

func lessEntry(a, b *entry) bool {
	if !a.trigger.Equal(b.trigger) {
		return a.trigger.LessThan(b.trigger)
	}
	return a.id < b.id
}

// Engine indexes the conditional orders of one market.
type Engine struct {
	log *logging.Logger
	Config

	marketID types.MarketID

	// firesBelow fires when mark <= trigger, firesAbove when mark >= trigger
	firesBelow *btree.BTreeG[*entry]
	firesAbove *btree.BTreeG[*entry]
	byID       map[types.OrderID]*entry
}

// New instantiates a conditional order engine for the given market.
func New(log *logging.Logger, config Config, marketID types.MarketID) *Engine {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Engine{
		log:        log,
		Config:     config,
		marketID:   marketID,
		firesBelow: btree.NewG(btreeDegree, lessEntry),
		firesAbove: btree.NewG(btreeDegree, lessEntry),
		byID:       map[types.OrderID]*entry{},
	}
}

// ReloadConf updates the internal configuration.
func (e *Engine) ReloadConf(cfg Config) {
	e.log.Info("reloading configuration")
	if e.log.GetLevel() != cfg.Level.Get() {
		e.log.SetLevel(cfg.Level.Get())
	}
	e.Config = cfg
}

// Submit rests a conditional order. mark seeds the trailing watermark.
func (e *Engine) Submit(o *Order, mark num.Decimal) error {
	if !o.Size.IsPositive() {
		return types.ErrInvalidSize
	}
	switch o.Kind {
	case KindStopLoss, KindTakeProfit:
		if !o.TriggerPrice.IsPositive() {
			return types.ErrInvalidPrice
		}
	case KindTrailingStop:
		if !o.TrailDistance.IsPositive() {
			return types.ErrInvalidPrice
		}
		o.bestSeen = mark
	default:
		return types.ErrInvalidConditionalKind
	}

	en := &entry{trigger: o.CurrentTrigger(), id: o.ID, order: o}
	e.tree(o).ReplaceOrInsert(en)
	e.byID[o.ID] = en
	return nil
}

// Cancel removes a resting conditional order.
func (e *Engine) Cancel(id types.OrderID) (*Order, error) {
	en, ok := e.byID[id]
	if !ok {
		return nil, types.ErrOrderNotFound
	}
	e.remove(en)
	return en.order, nil
}

// GetByID looks up a resting conditional order.
func (e *Engine) GetByID(id types.OrderID) (*Order, bool) {
	en, ok := e.byID[id]
	if !ok {
		return nil, false
	}
	return en.order, true
}

// GetByAccount returns the account's resting conditional orders ordered by
// id.
func (e *Engine) GetByAccount(acc types.AccountID) []*Order {
	var out []*Order
	for _, en := range e.byID {
		if en.order.Account == acc {
			out = append(out, en.order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of resting triggers.
func (e *Engine) Len() int {
	return len(e.byID)
}

// OnMarkPrice ratchets the trailing watermarks, then removes and returns
// every trigger the new mark fires, ordered by id.
func (e *Engine) OnMarkPrice(mark num.Decimal) []*Order {
	e.ratchetTrailing(mark)

	var fired []*entry
	e.firesBelow.AscendGreaterOrEqual(&entry{trigger: mark}, func(en *entry) bool {
		fired = append(fired, en)
		return true
	})
	e.firesAbove.Ascend(func(en *entry) bool {
		if en.trigger.GreaterThan(mark) {
			return false
		}
		fired = append(fired, en)
		return true
	})

	out := make([]*Order, 0, len(fired))
	for _, en := range fired {
		e.remove(en)
		out = append(out, en.order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if len(out) > 0 && e.log.IsDebug() {
		e.log.Debug("conditional orders triggered",
			logging.String("market-id", e.marketID.String()),
			logging.Decimal("mark", mark),
			logging.Int("triggered", len(out)))
	}
	return out
}

// ratchetTrailing advances trailing watermarks in the favorable direction
// and re-keys the moved triggers.
func (e *Engine) ratchetTrailing(mark num.Decimal) {
	for _, en := range e.byID {
		o := en.order
		if o.Kind != KindTrailingStop {
			continue
		}
		if o.Side == types.SideSell {
			if !mark.GreaterThan(o.bestSeen) {
				continue
			}
		} else if !mark.LessThan(o.bestSeen) {
			continue
		}
		tree := e.tree(o)
		tree.Delete(en)
		o.bestSeen = mark
		en.trigger = o.CurrentTrigger()
		tree.ReplaceOrInsert(en)
	}
}

func (e *Engine) tree(o *Order) *btree.BTreeG[*entry] {
	if o.firesBelow() {
		return e.firesBelow
	}
	return e.firesAbove
}

func (e *Engine) remove(en *entry) {
	e.tree(en.order).Delete(en)
	delete(e.byID, en.id)
}
