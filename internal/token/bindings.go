package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MantisClone/df-py/internal/collab"
	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/internal/event"
)

// Binding creation registers a dependent sale/dispense mechanism with
// the router, appends it to the binding lists, and optionally grants
// it the minter role. Deployer-role callers only. Both entry points
// call into the router mid-operation and therefore hold the
// re-entrancy flag.

// CreateFixedRateBinding binds a fixed-rate mechanism to this token
// and returns the router-assigned exchange id.
func (t *Token) CreateFixedRateBinding(caller common.Address, ex collab.FixedRateExchange, cfg domain.FixedRateConfig) (common.Hash, error) {
	if err := t.enterGuarded(); err != nil {
		return common.Hash{}, err
	}
	defer t.exitGuarded()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return common.Hash{}, ErrNotInitialized
	}
	if !t.oracle.HasDeployerRole(caller) {
		return common.Hash{}, fmt.Errorf("binding by %s: %w", caller.Hex(), ErrUnauthorized)
	}

	var id common.Hash
	err := t.run("createFixedRateBinding", func(callID string) error {
		var err error
		id, err = t.router.RegisterFixedRate(ex.Address(), t.addr, cfg)
		if err != nil {
			return fmt.Errorf("router: %w", err)
		}

		t.bindings.AppendFixedRate(ex.Address(), id)
		t.exchanges[ex.Address()] = ex
		t.addStateful(ex)

		if cfg.WithMint && !t.perms.IsMinter(ex.Address()) {
			if err := t.perms.AddMinter(ex.Address()); err != nil {
				return err
			}
		}

		t.emit(callID, func(b event.BaseEvent) event.Event {
			return event.FixedRateCreated{
				BaseEvent:  b,
				Exchange:   ex.Address(),
				ExchangeID: id,
				WithMint:   cfg.WithMint,
			}
		})
		return nil
	})
	return id, err
}

// CreateDispenserBinding binds a dispenser to this token.
func (t *Token) CreateDispenserBinding(caller common.Address, d collab.Dispenser, cfg domain.DispenserConfig) error {
	if err := t.enterGuarded(); err != nil {
		return err
	}
	defer t.exitGuarded()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	if !t.oracle.HasDeployerRole(caller) {
		return fmt.Errorf("binding by %s: %w", caller.Hex(), ErrUnauthorized)
	}

	return t.run("createDispenserBinding", func(callID string) error {
		if err := t.router.RegisterDispenser(d.Address()); err != nil {
			return fmt.Errorf("router: %w", err)
		}

		t.bindings.AppendDispenser(d.Address())
		t.dispensers[d.Address()] = d
		t.addStateful(d)

		if cfg.WithMint && !t.perms.IsMinter(d.Address()) {
			if err := t.perms.AddMinter(d.Address()); err != nil {
				return err
			}
		}

		t.emit(callID, func(b event.BaseEvent) event.Event {
			return event.DispenserCreated{
				BaseEvent: b,
				Dispenser: d.Address(),
				WithMint:  cfg.WithMint,
			}
		})
		return nil
	})
}
