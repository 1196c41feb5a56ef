package collab

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/pkg/units"
)

// In-memory collaborator implementations. Used by the demo wiring and
// by tests; real deployments inject their own adapters.

// MockOracle is a minimal owning-registry stand-in.
type MockOracle struct {
	Addr      common.Address
	Owner     common.Address
	Deployers map[common.Address]bool
	Metadata  map[string]string
}

func NewMockOracle(addr, owner common.Address) *MockOracle {
	return &MockOracle{
		Addr:      addr,
		Owner:     owner,
		Deployers: make(map[common.Address]bool),
		Metadata:  make(map[string]string),
	}
}

func (o *MockOracle) Address() common.Address               { return o.Addr }
func (o *MockOracle) UltimateOwner() common.Address         { return o.Owner }
func (o *MockOracle) HasDeployerRole(a common.Address) bool { return o.Deployers[a] }
func (o *MockOracle) StoreMetadata(key, value string) error {
	o.Metadata[key] = value
	return nil
}

// MockRouter reports a fixed protocol fee configuration and records
// registrations.
type MockRouter struct {
	FeeRate    *big.Int
	Collector  common.Address
	FixedRates []common.Hash
	Dispensers []common.Address
}

func NewMockRouter(feeRate *big.Int, collector common.Address) *MockRouter {
	return &MockRouter{FeeRate: feeRate, Collector: collector}
}

func (r *MockRouter) RegisterFixedRate(exchange, datatoken common.Address, cfg domain.FixedRateConfig) (common.Hash, error) {
	id := crypto.Keccak256Hash(
		exchange.Bytes(), datatoken.Bytes(), cfg.BaseToken.Bytes(),
		big.NewInt(int64(len(r.FixedRates))).Bytes(),
	)
	r.FixedRates = append(r.FixedRates, id)
	return id, nil
}

func (r *MockRouter) RegisterDispenser(d common.Address) error {
	r.Dispensers = append(r.Dispensers, d)
	return nil
}

func (r *MockRouter) ProtocolFeeRate() *big.Int {
	if r.FeeRate == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(r.FeeRate)
}

func (r *MockRouter) CommunityCollector() common.Address { return r.Collector }

type mockExchangeEntry struct {
	cfg         domain.FixedRateConfig
	outputToken common.Address
}

// MockExchange is a fixed-rate sale mechanism. Held balances live on
// the underlying ledgers under the exchange's own address, so the
// core's balance-delta checks see real movements.
type MockExchange struct {
	Addr      common.Address
	Base      ERC20
	Datatoken ERC20
	MintGate  Minter // used when an exchange entry has minting enabled
	Collector common.Address

	entries map[common.Hash]*mockExchangeEntry
}

func NewMockExchange(addr common.Address, base, datatoken ERC20, mintGate Minter, collector common.Address) *MockExchange {
	return &MockExchange{
		Addr:      addr,
		Base:      base,
		Datatoken: datatoken,
		MintGate:  mintGate,
		Collector: collector,
		entries:   make(map[common.Hash]*mockExchangeEntry),
	}
}

func (m *MockExchange) Address() common.Address { return m.Addr }

// Register installs an exchange entry under the router-assigned id.
func (m *MockExchange) Register(id common.Hash, outputToken common.Address, cfg domain.FixedRateConfig) {
	m.entries[id] = &mockExchangeEntry{cfg: cfg, outputToken: outputToken}
}

func (m *MockExchange) ExchangeState(id common.Hash) (ExchangeState, error) {
	e, ok := m.entries[id]
	if !ok {
		return ExchangeState{}, fmt.Errorf("unknown exchange id %s", id.Hex())
	}
	return ExchangeState{
		OutputToken:       e.outputToken,
		BaseToken:         e.cfg.BaseToken,
		HeldOutputBalance: m.Datatoken.BalanceOf(m.Addr),
		HeldBaseBalance:   m.Base.BalanceOf(m.Addr),
		MintEnabled:       e.cfg.WithMint,
	}, nil
}

func (m *MockExchange) QuoteInputForExactOutput(id common.Hash, outputAmount, marketFeeRate *big.Int) (*big.Int, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("unknown exchange id %s", id.Hex())
	}
	base := units.ApplyRate(outputAmount, e.cfg.FixedRate)
	fee := units.ApplyRate(base, marketFeeRate)
	return base.Add(base, fee), nil
}

func (m *MockExchange) ExecutePurchase(id common.Hash, buyer common.Address, outputAmount, maxBaseAmount *big.Int, feeRecipient common.Address, marketFeeRate *big.Int) error {
	e, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("unknown exchange id %s", id.Hex())
	}
	quote, err := m.QuoteInputForExactOutput(id, outputAmount, marketFeeRate)
	if err != nil {
		return err
	}
	if quote.Cmp(maxBaseAmount) > 0 {
		return fmt.Errorf("quote %s above limit %s", quote, maxBaseAmount)
	}

	if err := m.Base.TransferFrom(m.Addr, buyer, m.Addr, quote); err != nil {
		return fmt.Errorf("pull base: %w", err)
	}
	if feeRecipient != (common.Address{}) {
		fee := units.ApplyRate(units.ApplyRate(outputAmount, e.cfg.FixedRate), marketFeeRate)
		if fee.Sign() > 0 {
			if err := m.Base.Transfer(m.Addr, feeRecipient, fee); err != nil {
				return fmt.Errorf("market fee: %w", err)
			}
		}
	}

	if e.cfg.WithMint {
		if err := m.MintGate.Mint(m.Addr, buyer, outputAmount); err != nil {
			return fmt.Errorf("mint output: %w", err)
		}
		return nil
	}
	if err := m.Datatoken.Transfer(m.Addr, buyer, outputAmount); err != nil {
		return fmt.Errorf("deliver output: %w", err)
	}
	return nil
}

func (m *MockExchange) CollectBase(id common.Hash, amount *big.Int) error {
	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("unknown exchange id %s", id.Hex())
	}
	return m.Base.Transfer(m.Addr, m.Collector, amount)
}

func (m *MockExchange) CollectOutput(id common.Hash, amount *big.Int) error {
	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("unknown exchange id %s", id.Hex())
	}
	return m.Datatoken.Transfer(m.Addr, m.Collector, amount)
}

// MockDispenser hands out datatokens for free, minting when wired with
// a mint gate and serving from its held balance otherwise.
type MockDispenser struct {
	Addr      common.Address
	Datatoken ERC20
	MintGate  Minter
}

func NewMockDispenser(addr common.Address, datatoken ERC20, mintGate Minter) *MockDispenser {
	return &MockDispenser{Addr: addr, Datatoken: datatoken, MintGate: mintGate}
}

func (d *MockDispenser) Address() common.Address { return d.Addr }

func (d *MockDispenser) Dispense(to common.Address, amount *big.Int, payer common.Address) error {
	if d.MintGate != nil {
		return d.MintGate.Mint(d.Addr, to, amount)
	}
	return d.Datatoken.Transfer(d.Addr, to, amount)
}

func (d *MockDispenser) WithdrawAll(to common.Address) error {
	held := d.Datatoken.BalanceOf(d.Addr)
	if held.Sign() == 0 {
		return nil
	}
	return d.Datatoken.Transfer(d.Addr, to, held)
}
