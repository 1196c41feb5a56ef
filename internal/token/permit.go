package token

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MantisClone/df-py/internal/event"
	"github.com/MantisClone/df-py/pkg/sig"
)

// Permit sets a spending allowance from an off-chain signature instead
// of a direct call by the owner. Replay is prevented by the per-owner
// nonce folded into the digest; the deadline is enforced against
// current time, unlike the provider fee's validUntil.
func (t *Token) Permit(owner, spender common.Address, value, deadline *big.Int, v uint8, r, s [32]byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}

	return t.run("permit", func(callID string) error {
		if deadline == nil || deadline.Cmp(big.NewInt(time.Now().Unix())) < 0 {
			return fmt.Errorf("permit deadline %s: %w", bigStr(deadline), ErrExpired)
		}

		digest := sig.PermitDigest(t.domainSep, owner, spender, value, t.ledger.Nonce(owner), deadline)
		signer := sig.RecoverVRS(digest, v, r, s)
		if signer == (common.Address{}) || signer != owner {
			return fmt.Errorf("permit recovered %s, want %s: %w",
				signer.Hex(), owner.Hex(), ErrSignature)
		}

		t.ledger.BumpNonce(owner)
		if err := t.ledger.Approve(owner, spender, value); err != nil {
			return err
		}

		t.emit(callID, func(b event.BaseEvent) event.Event {
			return event.Approval{BaseEvent: b, Owner: owner, Spender: spender, Amount: bigStr(value)}
		})
		return nil
	})
}

// DomainSeparator exposes the permit domain hash for off-chain signers.
func (t *Token) DomainSeparator() common.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.domainSep
}
