package engine

import (
	"sort"

	"empire_bot/internal/domain"
)

// Ledger maps in-flight deposits to the value (cents) they were listed at.
// It is owned by a single session goroutine and is not safe for concurrent use.
type Ledger struct {
	values map[domain.DepositID]int64
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{values: make(map[domain.DepositID]int64)}
}

// Get returns the recorded value for id.
func (l *Ledger) Get(id domain.DepositID) (int64, bool) {
	v, ok := l.values[id]
	return v, ok
}

// Record sets the value for id, overwriting any previous entry.
func (l *Ledger) Record(id domain.DepositID, value int64) {
	l.values[id] = value
}

// Seed records every deposit's total value and returns how many were applied.
func (l *Ledger) Seed(deposits []domain.Deposit) int {
	for _, d := range deposits {
		l.values[d.ID] = d.TotalValue
	}
	return len(deposits)
}

// Remove deletes id and reports whether it was present.
func (l *Ledger) Remove(id domain.DepositID) bool {
	if _, ok := l.values[id]; !ok {
		return false
	}
	delete(l.values, id)
	return true
}

// Len returns the number of tracked deposits.
func (l *Ledger) Len() int {
	return len(l.values)
}

// IDs returns the tracked deposit ids in ascending order.
func (l *Ledger) IDs() []domain.DepositID {
	ids := make([]domain.DepositID, 0, len(l.values))
	for id := range l.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot returns a copy of all entries.
func (l *Ledger) Snapshot() map[domain.DepositID]int64 {
	out := make(map[domain.DepositID]int64, len(l.values))
	for id, v := range l.values {
		out[id] = v
	}
	return out
}

// OfferGuard remembers which deposits already had an offer initiated and
// which reached a terminal state during this session.
// Same ownership rules as Ledger.
type OfferGuard struct {
	sent    map[domain.DepositID]struct{}
	settled map[domain.DepositID]struct{}
}

// NewOfferGuard creates an empty guard.
func NewOfferGuard() *OfferGuard {
	return &OfferGuard{
		sent:    make(map[domain.DepositID]struct{}),
		settled: make(map[domain.DepositID]struct{}),
	}
}

// MarkSent records an offer for id. It returns false if one was already recorded.
func (g *OfferGuard) MarkSent(id domain.DepositID) bool {
	if _, ok := g.sent[id]; ok {
		return false
	}
	g.sent[id] = struct{}{}
	return true
}

// Sent reports whether an offer was already initiated for id.
func (g *OfferGuard) Sent(id domain.DepositID) bool {
	_, ok := g.sent[id]
	return ok
}

// Unmark forgets a sent offer so a redelivered Sending event can retry it.
func (g *OfferGuard) Unmark(id domain.DepositID) {
	delete(g.sent, id)
}

// Settle forgets the sent marker and records id as terminal.
func (g *OfferGuard) Settle(id domain.DepositID) {
	delete(g.sent, id)
	g.settled[id] = struct{}{}
}

// Settled reports whether id already reached a terminal state.
func (g *OfferGuard) Settled(id domain.DepositID) bool {
	_, ok := g.settled[id]
	return ok
}
