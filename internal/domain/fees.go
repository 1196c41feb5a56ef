package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Fee descriptors for the three independently-configured settlement
// legs. All amounts are base-18 minor units (*big.Int).

// ProviderFee is the signed, per-call fee authorization constructed
// off-chain by the service provider. It is validated and consumed
// within a single call, never persisted.
type ProviderFee struct {
	Address      common.Address // fee recipient, must equal the signer
	Token        common.Address // payment asset
	Amount       *big.Int
	V            uint8
	R            [32]byte
	S            [32]byte
	ValidUntil   *big.Int // carried and emitted; not enforced as an expiry here
	ProviderData []byte   // opaque provider blob folded into the signed digest
}

// ConsumeMarketFee is the unsigned, caller-declared marketplace fee
// paid at consumption time. Trust derives purely from the caller having
// authorized the transfer beforehand.
type ConsumeMarketFee struct {
	Address common.Address
	Token   common.Address
	Amount  *big.Int
}

// PublishMarketFee is the persistent per-token fee paid to the
// marketplace that facilitated the token's creation, on every
// consumption. Mutable only by the current fee address holder.
type PublishMarketFee struct {
	Address common.Address
	Token   common.Address
	Amount  *big.Int
}
