package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MantisClone/df-py/internal/event"
)

// Role management. Capability checks consult the owning registry fresh
// on every call; nothing is cached across calls.

const (
	roleMinter         = "minter"
	rolePaymentManager = "payment_manager"
)

func (t *Token) canManageRoles(caller common.Address) bool {
	return t.oracle.HasDeployerRole(caller) || caller == t.oracle.UltimateOwner()
}

// AddMinter grants the minter role. Deployer-role callers or the
// ultimate owner only.
func (t *Token) AddMinter(caller, addr common.Address) error {
	return t.mutateRole(caller, addr, roleMinter, true)
}

// RemoveMinter revokes the minter role.
func (t *Token) RemoveMinter(caller, addr common.Address) error {
	return t.mutateRole(caller, addr, roleMinter, false)
}

// AddPaymentManager grants the payment-manager role.
func (t *Token) AddPaymentManager(caller, addr common.Address) error {
	return t.mutateRole(caller, addr, rolePaymentManager, true)
}

// RemovePaymentManager revokes the payment-manager role.
func (t *Token) RemovePaymentManager(caller, addr common.Address) error {
	return t.mutateRole(caller, addr, rolePaymentManager, false)
}

func (t *Token) mutateRole(caller, addr common.Address, role string, grant bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	if !t.canManageRoles(caller) {
		return fmt.Errorf("role change by %s: %w", caller.Hex(), ErrUnauthorized)
	}

	op := "revokeRole"
	if grant {
		op = "grantRole"
	}
	return t.run(op, func(callID string) error {
		var err error
		switch {
		case role == roleMinter && grant:
			err = t.perms.AddMinter(addr)
		case role == roleMinter && !grant:
			err = t.perms.RemoveMinter(addr)
		case role == rolePaymentManager && grant:
			err = t.perms.AddPaymentManager(addr)
		default:
			err = t.perms.RemovePaymentManager(addr)
		}
		if err != nil {
			return err
		}

		t.emit(callID, func(b event.BaseEvent) event.Event {
			if grant {
				return event.RoleGranted{BaseEvent: b, Role: role, Subject: addr, Caller: caller}
			}
			return event.RoleRevoked{BaseEvent: b, Role: role, Subject: addr, Caller: caller}
		})
		return nil
	})
}

// SetPaymentCollector points moved value at a new collector. The zero
// address means "fall back to the ultimate owner". Payment managers,
// deployer-role holders and the ultimate owner may call.
func (t *Token) SetPaymentCollector(caller, collector common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	if !t.perms.IsPaymentManager(caller) && !t.canManageRoles(caller) {
		return fmt.Errorf("collector change by %s: %w", caller.Hex(), ErrUnauthorized)
	}

	return t.run("setPaymentCollector", func(callID string) error {
		t.perms.SetCollector(collector)
		t.emit(callID, func(b event.BaseEvent) event.Event {
			return event.PaymentCollectorChanged{BaseEvent: b, Collector: collector, Caller: caller}
		})
		return nil
	})
}
