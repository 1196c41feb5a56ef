package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MantisClone/df-py/internal/collab"
	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/internal/event"
	"github.com/MantisClone/df-py/pkg/sig"
	"github.com/MantisClone/df-py/pkg/units"
)

// Fee settlement. Three legs, settled in publish -> consume -> provider
// order by startOrder. Every transfer-in is verified by a balance-delta
// check on the recipient; external tokens are never trusted at face
// value.

func (t *Token) resolveAsset(addr common.Address) (collab.ERC20, error) {
	if a, ok := t.assets[addr]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("asset %s not registered: %w", addr.Hex(), ErrContractMismatch)
}

// pullFunds moves amount from payer to recipient with the core as
// spender, then verifies the recipient's balance grew by at least
// amount. Guards against fee-on-transfer or otherwise non-conforming
// tokens silently shorting the protocol.
func (t *Token) pullFunds(asset collab.ERC20, payer, recipient common.Address, amount *big.Int) error {
	before := asset.BalanceOf(recipient)
	if err := asset.TransferFrom(t.addr, payer, recipient, amount); err != nil {
		return fmt.Errorf("pull %s from %s: %w", amount, payer.Hex(), err)
	}
	delta := new(big.Int).Sub(asset.BalanceOf(recipient), before)
	if delta.Cmp(amount) < 0 {
		return fmt.Errorf("recipient %s grew by %s, expected %s: %w",
			recipient.Hex(), delta, amount, ErrTransferIntegrity)
	}
	return nil
}

// settlePublishFee settles the persistent publish-market fee against
// payer. No-op when the amount is zero or either address is unset.
func (t *Token) settlePublishFee(callID string, payer common.Address) error {
	fee := t.publishFee
	if fee.Amount == nil || fee.Amount.Sign() == 0 ||
		fee.Address == (common.Address{}) || fee.Token == (common.Address{}) {
		return nil
	}

	asset, err := t.resolveAsset(fee.Token)
	if err != nil {
		return fmt.Errorf("publish fee: %w", err)
	}
	if err := t.pullFunds(asset, payer, fee.Address, fee.Amount); err != nil {
		return fmt.Errorf("publish fee: %w", err)
	}

	t.emit(callID, func(b event.BaseEvent) event.Event {
		return event.PublishMarketFee{
			BaseEvent: b,
			Recipient: fee.Address,
			Token:     fee.Token,
			Amount:    fee.Amount.String(),
		}
	})
	return nil
}

// settleConsumeFee settles the caller-declared consume-market fee.
// Same shape as the publish fee, parameterized per call; no signature
// is involved.
func (t *Token) settleConsumeFee(callID string, payer common.Address, fee domain.ConsumeMarketFee) error {
	if fee.Amount == nil || fee.Amount.Sign() == 0 ||
		fee.Address == (common.Address{}) || fee.Token == (common.Address{}) {
		return nil
	}

	asset, err := t.resolveAsset(fee.Token)
	if err != nil {
		return fmt.Errorf("consume fee: %w", err)
	}
	if err := t.pullFunds(asset, payer, fee.Address, fee.Amount); err != nil {
		return fmt.Errorf("consume fee: %w", err)
	}

	t.emit(callID, func(b event.BaseEvent) event.Event {
		return event.ConsumeMarketFee{
			BaseEvent: b,
			Recipient: fee.Address,
			Token:     fee.Token,
			Amount:    fee.Amount.String(),
		}
	})
	return nil
}

// checkProviderFee verifies the provider's off-chain authorization:
// the signature over (providerData, feeAddress, feeToken, feeAmount,
// validUntil) must recover to feeAddress itself.
func (t *Token) checkProviderFee(fee domain.ProviderFee) error {
	digest := sig.EthSignedMessageHash(
		sig.ProviderFeeDigest(fee.ProviderData, fee.Address, fee.Token, fee.Amount, fee.ValidUntil))
	signer := sig.RecoverVRS(digest, fee.V, fee.R, fee.S)
	if signer == (common.Address{}) || signer != fee.Address {
		return fmt.Errorf("provider fee recovered %s, want %s: %w",
			signer.Hex(), fee.Address.Hex(), ErrSignature)
	}
	return nil
}

// settleProviderFee validates and pays the signed provider fee. The
// protocol cut is skimmed at the router's rate and forwarded to the
// community collector; the remainder goes to the provider. The audit
// event fires even when no funds move. validUntil is carried and
// emitted but not compared against current time here.
func (t *Token) settleProviderFee(callID string, payer common.Address, fee domain.ProviderFee) error {
	if err := t.checkProviderFee(fee); err != nil {
		return err
	}

	cut := big.NewInt(0)
	moves := fee.Amount != nil && fee.Amount.Sign() > 0 &&
		fee.Token != (common.Address{}) && fee.Address != (common.Address{})

	if moves {
		asset, err := t.resolveAsset(fee.Token)
		if err != nil {
			return fmt.Errorf("provider fee: %w", err)
		}
		if err := t.pullFunds(asset, payer, t.addr, fee.Amount); err != nil {
			return fmt.Errorf("provider fee: %w", err)
		}

		if t.router != nil {
			cut = units.ApplyRate(fee.Amount, t.router.ProtocolFeeRate())
		}
		net := new(big.Int).Sub(fee.Amount, cut)
		if net.Sign() > 0 {
			if err := asset.Transfer(t.addr, fee.Address, net); err != nil {
				return fmt.Errorf("provider fee payout: %w", err)
			}
		}
		if cut.Sign() > 0 {
			if err := asset.Transfer(t.addr, t.router.CommunityCollector(), cut); err != nil {
				return fmt.Errorf("protocol cut payout: %w", err)
			}
		}
	}

	t.emit(callID, func(b event.BaseEvent) event.Event {
		return event.ProviderFee{
			BaseEvent:    b,
			Recipient:    fee.Address,
			Token:        fee.Token,
			Amount:       bigStr(fee.Amount),
			ProtocolCut:  cut.String(),
			ValidUntil:   bigStr(fee.ValidUntil),
			ProviderData: fee.ProviderData,
		}
	})
	return nil
}

// SetPublishMarketFee replaces the persistent publish fee. Only the
// current fee address holder may hand control (and the fee) over.
func (t *Token) SetPublishMarketFee(caller common.Address, fee domain.PublishMarketFee) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	if caller != t.publishFee.Address {
		return fmt.Errorf("publish fee held by %s: %w", t.publishFee.Address.Hex(), ErrUnauthorized)
	}

	return t.run("setPublishMarketFee", func(callID string) error {
		t.publishFee = copyFee(fee)
		t.emit(callID, func(b event.BaseEvent) event.Event {
			return event.PublishFeeChanged{
				BaseEvent: b,
				Recipient: fee.Address,
				Token:     fee.Token,
				Amount:    bigStr(fee.Amount),
			}
		})
		return nil
	})
}
