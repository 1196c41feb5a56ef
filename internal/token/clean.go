package token

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MantisClone/df-py/internal/event"
)

// Reconciliation sweep on ownership reset: sweep funds out of every
// bound mechanism, capture which mechanisms legitimately hold the
// minter role, wipe every role, then re-grant the captured minters.
// Capture must happen before the reset because resetAll destroys the
// very membership bit being inspected.

// CleanPermissions runs the sweep. Ultimate-owner callers only.
func (t *Token) CleanPermissions(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	if caller != t.oracle.UltimateOwner() {
		return fmt.Errorf("clean by %s: %w", caller.Hex(), ErrUnauthorized)
	}
	return t.run("cleanPermissions", func(callID string) error {
		return t.reconcile(callID, caller)
	})
}

// CleanFrom721 runs the sweep on behalf of the owning registry when it
// detects a transfer of the parent ownership token. No role check
// beyond the caller being exactly that registry.
func (t *Token) CleanFrom721(caller common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	if caller != t.oracle.Address() {
		return fmt.Errorf("cleanFrom721 by %s: %w", caller.Hex(), ErrUnauthorized)
	}
	return t.run("cleanFrom721", func(callID string) error {
		return t.reconcile(callID, caller)
	})
}

func (t *Token) reconcile(callID string, caller common.Address) error {
	var preserve []common.Address

	for _, b := range t.bindings.FixedRates() {
		ex, ok := t.exchanges[b.Exchange]
		if !ok {
			slog.Warn("BINDING_WITHOUT_HANDLE", slog.String("exchange", b.Exchange.Hex()))
			continue
		}
		st, err := ex.ExchangeState(b.ID)
		if err != nil {
			return fmt.Errorf("exchange %s state: %w", b.Exchange.Hex(), err)
		}

		if st.HeldBaseBalance != nil && st.HeldBaseBalance.Sign() > 0 {
			if err := ex.CollectBase(b.ID, st.HeldBaseBalance); err != nil {
				return fmt.Errorf("sweep base from %s: %w", b.Exchange.Hex(), err)
			}
		}
		if st.HeldOutputBalance != nil && st.HeldOutputBalance.Sign() > 0 {
			if err := ex.CollectOutput(b.ID, st.HeldOutputBalance); err != nil {
				return fmt.Errorf("sweep output from %s: %w", b.Exchange.Hex(), err)
			}
		}

		// Preserve only rights that were both granted and configured
		// at creation time.
		if t.perms.IsMinter(b.Exchange) && st.MintEnabled {
			preserve = append(preserve, b.Exchange)
		}
	}

	for _, addr := range t.bindings.Dispensers() {
		if d, ok := t.dispensers[addr]; ok {
			if err := d.WithdrawAll(t.addr); err != nil {
				return fmt.Errorf("withdraw from dispenser %s: %w", addr.Hex(), err)
			}
		} else {
			slog.Warn("BINDING_WITHOUT_HANDLE", slog.String("dispenser", addr.Hex()))
		}
		if t.perms.IsMinter(addr) {
			preserve = append(preserve, addr)
		}
	}

	t.perms.ResetAll()
	for _, addr := range preserve {
		if err := t.perms.AddMinter(addr); err != nil {
			return err
		}
	}

	t.emit(callID, func(b event.BaseEvent) event.Event {
		return event.CleanedPermissions{BaseEvent: b, Caller: caller, Preserved: preserve}
	})
	return nil
}
