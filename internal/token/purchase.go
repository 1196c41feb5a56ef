package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/pkg/units"
)

// Composite acquire-then-consume orchestration. Both entry points call
// into non-trusted mechanisms mid-operation, so they hold the
// re-entrancy flag for their duration. The flag is checked-and-set
// BEFORE the state mutex: a mechanism calling back into a guarded
// entry point mid-call must get ErrReentrancy, not block forever on
// the lock its own caller already holds.

func (t *Token) enterGuarded() error {
	if !t.busy.CompareAndSwap(false, true) {
		return ErrReentrancy
	}
	return nil
}

func (t *Token) exitGuarded() { t.busy.Store(false) }

// BuyFromFixedRate acquires exactly one unit from a bound fixed-rate
// mechanism at the caller's expense and immediately consumes it via
// the order protocol, all in one atomic call.
func (t *Token) BuyFromFixedRate(caller common.Address, order domain.OrderParams, p domain.FixedRatePurchase) error {
	if err := t.enterGuarded(); err != nil {
		return err
	}
	defer t.exitGuarded()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}

	return t.run("buyFromFixedRate", func(callID string) error {
		return t.buyFromFixedRate(callID, caller, order, p)
	})
}

func (t *Token) buyFromFixedRate(callID string, caller common.Address, order domain.OrderParams, p domain.FixedRatePurchase) error {
	ex, ok := t.exchanges[p.Exchange]
	if !ok {
		return fmt.Errorf("exchange %s not registered: %w", p.Exchange.Hex(), ErrContractMismatch)
	}
	st, err := ex.ExchangeState(p.ExchangeID)
	if err != nil {
		return fmt.Errorf("exchange state: %w", err)
	}
	if st.OutputToken != t.addr {
		return fmt.Errorf("exchange sells %s, not this token: %w",
			st.OutputToken.Hex(), ErrContractMismatch)
	}

	one := units.One()
	quote, err := ex.QuoteInputForExactOutput(p.ExchangeID, one, p.SwapMarketFee)
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}
	if p.MaxBaseAmount == nil || quote.Cmp(p.MaxBaseAmount) > 0 {
		return fmt.Errorf("quote %s over limit %s: %w", quote, bigStr(p.MaxBaseAmount), ErrSlippage)
	}

	baseAsset, err := t.resolveAsset(st.BaseToken)
	if err != nil {
		return err
	}
	if err := t.pullFunds(baseAsset, caller, t.addr, quote); err != nil {
		return err
	}
	if err := baseAsset.Approve(t.addr, ex.Address(), quote); err != nil {
		return fmt.Errorf("approve exchange: %w", err)
	}

	before := t.ledger.BalanceOf(t.addr)
	if err := ex.ExecutePurchase(p.ExchangeID, t.addr, one, quote, p.MarketFeeAddress, p.SwapMarketFee); err != nil {
		return fmt.Errorf("purchase: %w", err)
	}
	delta := new(big.Int).Sub(t.ledger.BalanceOf(t.addr), before)
	if delta.Cmp(one) < 0 {
		return fmt.Errorf("purchase delivered %s of 1 unit: %w", delta, ErrTransferIntegrity)
	}

	if err := t.ledger.Transfer(t.addr, caller, one); err != nil {
		return fmt.Errorf("forward unit: %w", err)
	}
	if err := t.startOrder(callID, caller, order); err != nil {
		return err
	}

	// Sweep sale proceeds left inside the mechanism.
	st, err = ex.ExchangeState(p.ExchangeID)
	if err != nil {
		return fmt.Errorf("exchange state after purchase: %w", err)
	}
	if st.HeldBaseBalance != nil && st.HeldBaseBalance.Sign() > 0 {
		if err := ex.CollectBase(p.ExchangeID, st.HeldBaseBalance); err != nil {
			return fmt.Errorf("collect proceeds: %w", err)
		}
	}
	return nil
}

// BuyFromDispenser requests one free unit from a bound dispenser for
// the caller and immediately consumes it. Atomic, all-or-nothing.
func (t *Token) BuyFromDispenser(caller common.Address, order domain.OrderParams, dispenser common.Address) error {
	if err := t.enterGuarded(); err != nil {
		return err
	}
	defer t.exitGuarded()
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}

	return t.run("buyFromDispenser", func(callID string) error {
		d, ok := t.dispensers[dispenser]
		if !ok {
			return fmt.Errorf("dispenser %s not registered: %w", dispenser.Hex(), ErrContractMismatch)
		}

		one := units.One()
		before := t.ledger.BalanceOf(caller)
		if err := d.Dispense(caller, one, caller); err != nil {
			return fmt.Errorf("dispense: %w", err)
		}
		delta := new(big.Int).Sub(t.ledger.BalanceOf(caller), before)
		if delta.Cmp(one) < 0 {
			return fmt.Errorf("dispenser delivered %s of 1 unit: %w", delta, ErrTransferIntegrity)
		}

		return t.startOrder(callID, caller, order)
	})
}
