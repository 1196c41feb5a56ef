package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/internal/event"
	"github.com/MantisClone/df-py/internal/ledger"
	"github.com/MantisClone/df-py/pkg/sig"
	"github.com/MantisClone/df-py/pkg/units"
)

// The order protocol. No per-order state is persisted: each call
// produces audit events only.

// StartOrder consumes exactly one unit of the token: audit event,
// publish fee, consume fee, provider fee, burn, in that fixed order.
// A failure at any step unwinds the whole call.
func (t *Token) StartOrder(caller common.Address, p domain.OrderParams) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	return t.run("startOrder", func(callID string) error {
		return t.startOrder(callID, caller, p)
	})
}

func (t *Token) startOrder(callID string, caller common.Address, p domain.OrderParams) error {
	one := units.One()
	if t.ledger.BalanceOf(caller).Cmp(one) < 0 {
		return fmt.Errorf("order requires 1 unit, caller holds %s: %w",
			t.ledger.BalanceOf(caller), ledger.ErrInsufficientBalance)
	}

	// The audit event precedes fund movement; downstream observers
	// rely on event order matching fee precedence.
	t.emit(callID, func(b event.BaseEvent) event.Event {
		return event.OrderStarted{
			BaseEvent:    b,
			Consumer:     p.Consumer,
			Payer:        caller,
			Amount:       one.String(),
			ServiceIndex: p.ServiceIndex,
		}
	})

	if err := t.settlePublishFee(callID, caller); err != nil {
		return err
	}
	if err := t.settleConsumeFee(callID, caller, p.ConsumeFee); err != nil {
		return err
	}
	if err := t.settleProviderFee(callID, caller, p.ProviderFee); err != nil {
		return err
	}

	return t.ledger.Burn(caller, one)
}

// ReuseOrder pays the provider again for renewed access against a
// prior order reference, without a balance check or burn. The
// reference is not validated against any real prior order; it exists
// for audit-trail linkage only.
func (t *Token) ReuseOrder(caller common.Address, orderRef common.Hash, fee domain.ProviderFee) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	return t.run("reuseOrder", func(callID string) error {
		t.emit(callID, func(b event.BaseEvent) event.Event {
			return event.OrderReused{
				BaseEvent: b,
				OrderRef:  orderRef,
				Caller:    caller,
			}
		})
		return t.settleProviderFee(callID, caller, fee)
	})
}

// OrderExecuted records a dual-signed proof of service delivery. No
// funds move. The caller is the provider and must not be the consumer;
// both parties' signatures are verified against their respective data
// blobs.
func (t *Token) OrderExecuted(caller common.Address, proof domain.ExecutionProof) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	if caller == proof.Consumer {
		return fmt.Errorf("provider and consumer must differ: %w", ErrUnauthorized)
	}

	return t.run("orderExecuted", func(callID string) error {
		provDigest := sig.EthSignedMessageHash(
			sig.ExecutionProofDigest(proof.OrderRef, proof.ProviderData))
		if got := sig.Recover(provDigest, proof.ProviderSig); got != caller {
			return fmt.Errorf("provider proof recovered %s, want caller %s: %w",
				got.Hex(), caller.Hex(), ErrSignature)
		}

		consDigest := sig.EthSignedMessageHash(
			sig.ConsumerProofDigest(proof.ConsumerData))
		if got := sig.Recover(consDigest, proof.ConsumerSig); got != proof.Consumer {
			return fmt.Errorf("consumer proof recovered %s, want %s: %w",
				got.Hex(), proof.Consumer.Hex(), ErrSignature)
		}

		t.emit(callID, func(b event.BaseEvent) event.Event {
			return event.OrderExecuted{
				BaseEvent:    b,
				OrderRef:     proof.OrderRef,
				Provider:     caller,
				Consumer:     proof.Consumer,
				ProviderData: proof.ProviderData,
				ProviderSig:  proof.ProviderSig,
				ConsumerData: proof.ConsumerData,
				ConsumerSig:  proof.ConsumerSig,
			}
		})
		return nil
	})
}
