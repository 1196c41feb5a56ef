package registry

import (
	"github.com/ethereum/go-ethereum/common"
)

// FixedRateBinding records one fixed-rate mechanism instance bound to
// this token.
type FixedRateBinding struct {
	Exchange common.Address
	ID       common.Hash
}

// Bindings is the append-only registry of dependent sale and dispense
// mechanisms. Order is creation order and entries are never removed
// individually; mechanisms are never unbound, so full O(n) scans by
// the reconciliation sweep are intentional.
type Bindings struct {
	fixedRates []FixedRateBinding
	dispensers []common.Address
}

func NewBindings() *Bindings {
	return &Bindings{}
}

func (b *Bindings) AppendFixedRate(exchange common.Address, id common.Hash) {
	b.fixedRates = append(b.fixedRates, FixedRateBinding{Exchange: exchange, ID: id})
}

func (b *Bindings) AppendDispenser(addr common.Address) {
	b.dispensers = append(b.dispensers, addr)
}

// FixedRates returns the bound fixed-rate mechanisms in creation order.
func (b *Bindings) FixedRates() []FixedRateBinding {
	out := make([]FixedRateBinding, len(b.fixedRates))
	copy(out, b.fixedRates)
	return out
}

// Dispensers returns the bound dispensers in creation order.
func (b *Bindings) Dispensers() []common.Address {
	out := make([]common.Address, len(b.dispensers))
	copy(out, b.dispensers)
	return out
}

// Snapshot captures the binding lists for all-or-nothing rollback.
func (b *Bindings) Snapshot() any {
	return &Bindings{
		fixedRates: b.FixedRates(),
		dispensers: b.Dispensers(),
	}
}

// Restore replaces the binding lists with a prior Snapshot result.
func (b *Bindings) Restore(snap any) {
	s := snap.(*Bindings)
	b.fixedRates = s.FixedRates()
	b.dispensers = s.Dispensers()
}
