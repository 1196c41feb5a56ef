package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrRoleExists  = errors.New("role already granted")
	ErrRoleMissing = errors.New("role not granted")
)

// Permissions holds the token's role sets and the resolved payment
// collector. The zero collector means "fall back to the ultimate
// owner"; resolution happens in the core, lazily on every read, so
// an ownership change redirects fees without any local mutation here.
type Permissions struct {
	minters         map[common.Address]bool
	paymentManagers map[common.Address]bool
	collector       common.Address
}

func NewPermissions() *Permissions {
	return &Permissions{
		minters:         make(map[common.Address]bool),
		paymentManagers: make(map[common.Address]bool),
	}
}

func (p *Permissions) IsMinter(addr common.Address) bool         { return p.minters[addr] }
func (p *Permissions) IsPaymentManager(addr common.Address) bool { return p.paymentManagers[addr] }

// Collector returns the raw stored collector; zero means unset.
func (p *Permissions) Collector() common.Address { return p.collector }

func (p *Permissions) SetCollector(addr common.Address) { p.collector = addr }

func (p *Permissions) AddMinter(addr common.Address) error {
	if p.minters[addr] {
		return fmt.Errorf("minter %s: %w", addr.Hex(), ErrRoleExists)
	}
	p.minters[addr] = true
	return nil
}

func (p *Permissions) RemoveMinter(addr common.Address) error {
	if !p.minters[addr] {
		return fmt.Errorf("minter %s: %w", addr.Hex(), ErrRoleMissing)
	}
	delete(p.minters, addr)
	return nil
}

func (p *Permissions) AddPaymentManager(addr common.Address) error {
	if p.paymentManagers[addr] {
		return fmt.Errorf("payment manager %s: %w", addr.Hex(), ErrRoleExists)
	}
	p.paymentManagers[addr] = true
	return nil
}

func (p *Permissions) RemovePaymentManager(addr common.Address) error {
	if !p.paymentManagers[addr] {
		return fmt.Errorf("payment manager %s: %w", addr.Hex(), ErrRoleMissing)
	}
	delete(p.paymentManagers, addr)
	return nil
}

// ResetAll clears every role set and unsets the collector. Destructive
// primitive of the reconciliation sweep; never exposed to untrusted
// callers directly.
func (p *Permissions) ResetAll() {
	p.minters = make(map[common.Address]bool)
	p.paymentManagers = make(map[common.Address]bool)
	p.collector = common.Address{}
}

// Snapshot captures the role state for all-or-nothing rollback.
func (p *Permissions) Snapshot() any {
	return &Permissions{
		minters:         copySet(p.minters),
		paymentManagers: copySet(p.paymentManagers),
		collector:       p.collector,
	}
}

// Restore replaces the role state with a prior Snapshot result.
func (p *Permissions) Restore(snap any) {
	s := snap.(*Permissions)
	p.minters = copySet(s.minters)
	p.paymentManagers = copySet(s.paymentManagers)
	p.collector = s.collector
}

func copySet(src map[common.Address]bool) map[common.Address]bool {
	dst := make(map[common.Address]bool, len(src))
	for k := range src {
		dst[k] = true
	}
	return dst
}
