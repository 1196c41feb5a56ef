package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// OrderParams carries everything a caller supplies to start a
// consumption order. The consumed amount is always exactly one unit
// and is not part of the parameters.
type OrderParams struct {
	Consumer     common.Address // who gains service access (may differ from payer)
	ServiceIndex uint64
	ProviderFee  ProviderFee
	ConsumeFee   ConsumeMarketFee
}

// FixedRatePurchase parameterizes an acquire-from-fixed-rate call.
type FixedRatePurchase struct {
	Exchange         common.Address
	ExchangeID       common.Hash
	MaxBaseAmount    *big.Int // slippage ceiling for 1 output unit
	SwapMarketFee    *big.Int // base-18 rate passed through to the mechanism
	MarketFeeAddress common.Address
}

// FixedRateConfig is handed to the router when binding a new
// fixed-rate mechanism to this token.
type FixedRateConfig struct {
	BaseToken          common.Address
	Owner              common.Address
	FixedRate          *big.Int // base tokens per output token, base-18
	MarketFee          *big.Int
	MarketFeeCollector common.Address
	WithMint           bool // mechanism mints output instead of holding inventory
}

// DispenserConfig is handed to the router when binding a dispenser.
type DispenserConfig struct {
	MaxTokens  *big.Int
	MaxBalance *big.Int
	WithMint   bool
}

// ExecutionProof is the dual-signature proof-of-delivery record for
// orderExecuted. It moves no funds.
type ExecutionProof struct {
	OrderRef     common.Hash
	ProviderData []byte
	ProviderSig  []byte
	ConsumerData []byte
	ConsumerSig  []byte
	Consumer     common.Address
}
