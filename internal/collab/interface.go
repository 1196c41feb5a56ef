package collab

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MantisClone/df-py/internal/domain"
)

// Narrow interfaces for the external collaborators this core consumes.
// The core never embeds their logic; the embedding host injects
// implementations, and tests substitute the in-memory mocks below.

// Snapshotter is implemented by every piece of mutable state the core
// must roll back when a call aborts. The opaque snapshot value is only
// ever handed back to the same instance.
type Snapshotter interface {
	Snapshot() any
	Restore(snap any)
}

// ERC20 is the payment-asset surface the settlement paths use. The
// spender on TransferFrom is explicit because there is no ambient
// message sender in this host.
type ERC20 interface {
	Address() common.Address
	BalanceOf(addr common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
	Approve(owner, spender common.Address, amount *big.Int) error
	Allowance(owner, spender common.Address) *big.Int
}

// Minter is the gate a bound mechanism uses to mint the datatoken
// while executing inside one of the core's own calls. The core
// enforces the minter role on caller.
type Minter interface {
	Mint(caller, to common.Address, amount *big.Int) error
}

// OwnershipOracle is the owning identity registry: the authoritative
// source for the ultimate owner and the deployer capability, plus a
// key-value metadata sink. Read-mostly; never mutated by this core
// beyond StoreMetadata.
type OwnershipOracle interface {
	Address() common.Address
	UltimateOwner() common.Address
	HasDeployerRole(addr common.Address) bool
	StoreMetadata(key, value string) error
}

// ExchangeState is the observable configuration and holdings of one
// fixed-rate exchange instance.
type ExchangeState struct {
	OutputToken       common.Address
	BaseToken         common.Address
	HeldOutputBalance *big.Int
	HeldBaseBalance   *big.Int
	MintEnabled       bool
}

// FixedRateExchange sells the datatoken at a fixed base-token rate.
type FixedRateExchange interface {
	Address() common.Address
	ExchangeState(id common.Hash) (ExchangeState, error)
	// QuoteInputForExactOutput prices outputAmount of the datatoken,
	// inclusive of the given market-fee rate.
	QuoteInputForExactOutput(id common.Hash, outputAmount, marketFeeRate *big.Int) (*big.Int, error)
	// ExecutePurchase swaps at most maxBaseAmount of base for exactly
	// outputAmount of the datatoken, delivered to buyer.
	ExecutePurchase(id common.Hash, buyer common.Address, outputAmount, maxBaseAmount *big.Int, feeRecipient common.Address, marketFeeRate *big.Int) error
	// CollectBase / CollectOutput sweep held balances out of the
	// exchange via its own collect path.
	CollectBase(id common.Hash, amount *big.Int) error
	CollectOutput(id common.Hash, amount *big.Int) error
}

// Dispenser hands out the datatoken at zero cost.
type Dispenser interface {
	Address() common.Address
	Dispense(to common.Address, amount *big.Int, payer common.Address) error
	// WithdrawAll returns the dispenser's held datatoken balance to
	// the given custody address.
	WithdrawAll(to common.Address) error
}

// Router deploys/registers exchange mechanisms and reports the
// protocol fee configuration.
type Router interface {
	RegisterFixedRate(exchange common.Address, datatoken common.Address, cfg domain.FixedRateConfig) (common.Hash, error)
	RegisterDispenser(dispenser common.Address) error
	// ProtocolFeeRate is the base-18 cut skimmed from provider fees.
	ProtocolFeeRate() *big.Int
	// CommunityCollector receives the skimmed protocol cut.
	CommunityCollector() common.Address
}
