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

// Package events defines the append-only event log, the canonical record of
// every state transition in the engine. Events are keyed by (epoch, seq):
// the epoch increments once per command, seq orders events within it.
package events

// Type is the enumeration of all event kinds.
type Type int

const (
	UnspecifiedEvent Type = iota
	MarketCreatedEvent
	MarketPausedEvent
	MarketResumedEvent
	DepositedEvent
	WithdrawnEvent
	WithdrawalRejectedEvent
	OrderPlacedEvent
	OrderMatchedEvent
	OrderCancelledEvent
	PositionOpenedEvent
	PositionIncreasedEvent
	PositionReducedEvent
	PositionClosedEvent
	IndexPriceUpdatedEvent
	MarkPriceUpdatedEvent
	FundingSettledEvent
	MarginCallEvent
	LiquidatedEvent
	InsurancePaidEvent
	AutoDeleveragedEvent
	CircuitBreakerTrippedEvent
	ConditionalPlacedEvent
	ConditionalCancelledEvent
	ConditionalTriggeredEvent
)

var eventNames = map[Type]string{
	UnspecifiedEvent:           "UNSPECIFIED",
	MarketCreatedEvent:         "MarketCreated",
	MarketPausedEvent:          "MarketPaused",
	MarketResumedEvent:         "MarketResumed",
	DepositedEvent:             "Deposited",
	WithdrawnEvent:             "Withdrawn",
	WithdrawalRejectedEvent:    "WithdrawalRejected",
	OrderPlacedEvent:           "OrderPlaced",
	OrderMatchedEvent:          "OrderMatched",
	OrderCancelledEvent:        "OrderCancelled",
	PositionOpenedEvent:        "PositionOpened",
	PositionIncreasedEvent:     "PositionIncreased",
	PositionReducedEvent:       "PositionReduced",
	PositionClosedEvent:        "PositionClosed",
	IndexPriceUpdatedEvent:     "IndexPriceUpdated",
	MarkPriceUpdatedEvent:      "MarkPriceUpdated",
	FundingSettledEvent:        "FundingSettled",
	MarginCallEvent:            "MarginCall",
	LiquidatedEvent:            "Liquidated",
	InsurancePaidEvent:         "InsurancePaid",
	AutoDeleveragedEvent:       "AutoDeleveraged",
	CircuitBreakerTrippedEvent: "CircuitBreakerTripped",
	ConditionalPlacedEvent:     "ConditionalPlaced",
	ConditionalCancelledEvent:  "ConditionalCancelled",
	ConditionalTriggeredEvent:  "ConditionalTriggered",
}

func (t Type) String() string {
	if n, ok := eventNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// Event is a single state transition record.
type Event interface {
	Type() Type
	Epoch() uint64
	Sequence() uint64
	Timestamp() int64
}

// Base implements the Event plumbing; every concrete event embeds it.
type Base struct {
	t     Type
	epoch uint64
	seq   uint64
	ts    int64
}

func newBase(t Type, ts int64) Base {
	return Base{t: t, ts: ts}
}

func (b *Base) Type() Type {
	return b.t
}

func (b *Base) Epoch() uint64 {
	return b.epoch
}

func (b *Base) Sequence() uint64 {
	return b.seq
}

func (b *Base) Timestamp() int64 {
	return b.ts
}

func (b *Base) setKeys(epoch, seq uint64) {
	b.epoch = epoch
	b.seq = seq
}

type keyed interface {
	setKeys(epoch, seq uint64)
}

// Log is the append-only event log. It is single-writer, driven by the
// execution engine; the stored slice is the source of truth for replay.
type Log struct {
	events []Event
	epoch  uint64
	seq    uint64
}

func NewLog() *Log {
	return &Log{}
}

// BeginEpoch opens the next command epoch; all events appended until the
// next call share it.
func (l *Log) BeginEpoch() uint64 {
	l.epoch++
	l.seq = 0
	return l.epoch
}

// Append stamps the events with the current (epoch, seq) keys and stores
// them in generation order.
func (l *Log) Append(evts ...Event) {
	for _, e := range evts {
		e.(keyed).setKeys(l.epoch, l.seq)
		l.seq++
		l.events = append(l.events, e)
	}
}

// All returns the full log in append order. The returned slice must not be
// mutated.
func (l *Log) All() []Event {
	return l.events
}

func (l *Log) Len() int {
	return len(l.events)
}

// OfType filters the log down to one event kind, preserving order.
func (l *Log) OfType(t Type) []Event {
	var out []Event
	for _, e := range l.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}
