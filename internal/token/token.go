package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/MantisClone/df-py/internal/collab"
	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/internal/event"
	"github.com/MantisClone/df-py/internal/ledger"
	"github.com/MantisClone/df-py/internal/registry"
	"github.com/MantisClone/df-py/internal/storage"
	"github.com/MantisClone/df-py/pkg/sig"
)

// Token is the order-settlement and fee-distribution core of one
// datatoken. Every public entry point takes the authenticated caller
// address explicitly (the host supplies it), runs to completion under
// a single mutex, and either commits fully or rolls back the whole
// world state.
type Token struct {
	mu sync.Mutex
	// busy is taken BEFORE mu by the entry points that call into
	// non-trusted collaborators mid-operation, so a re-entrant call
	// from such a collaborator fails fast with ErrReentrancy instead
	// of blocking on the non-reentrant mutex.
	busy atomic.Bool

	initialized bool
	addr        common.Address
	chainID     *big.Int

	ledger   *ledger.Ledger
	perms    *registry.Permissions
	bindings *registry.Bindings

	oracle collab.OwnershipOracle
	router collab.Router
	store  *storage.AuditStore // optional audit persistence

	// Handle resolution for external contracts referenced by address.
	assets     map[common.Address]collab.ERC20
	exchanges  map[common.Address]collab.FixedRateExchange
	dispensers map[common.Address]collab.Dispenser
	stateful   []collab.Snapshotter // collaborator state covered by rollback

	publishFee domain.PublishMarketFee
	domainSep  common.Hash

	seq     uint64
	pending []event.Event
}

// InitParams configures the one-time initialization.
type InitParams struct {
	Address common.Address
	ChainID *big.Int
	Name    string
	Symbol  string
	Cap     *big.Int
	Minter  common.Address // initial minter
	Fee     domain.PublishMarketFee
}

// New wires a core against its external collaborators. The token is
// unusable until Initialize succeeds; store may be nil.
func New(oracle collab.OwnershipOracle, router collab.Router, store *storage.AuditStore) *Token {
	return &Token{
		oracle:     oracle,
		router:     router,
		store:      store,
		assets:     make(map[common.Address]collab.ERC20),
		exchanges:  make(map[common.Address]collab.FixedRateExchange),
		dispensers: make(map[common.Address]collab.Dispenser),
	}
}

// Initialize sets the immutable identity, cap, initial minter, publish
// fee and permit domain separator. Callable exactly once.
func (t *Token) Initialize(p InitParams) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.initialized {
		return ErrAlreadyInitialized
	}
	if p.Cap == nil || p.Cap.Sign() <= 0 {
		return fmt.Errorf("cap must be positive")
	}

	t.addr = p.Address
	t.chainID = new(big.Int).Set(p.ChainID)
	t.ledger = ledger.New(p.Address, p.Name, p.Symbol, p.Cap)
	t.perms = registry.NewPermissions()
	t.bindings = registry.NewBindings()
	t.domainSep = sig.DomainSeparator(p.Name, "1", p.ChainID, p.Address)
	t.publishFee = copyFee(p.Fee)

	if p.Minter != (common.Address{}) {
		t.perms.AddMinter(p.Minter)
	}

	// The datatoken is itself a payment asset candidate for fees.
	t.assets[p.Address] = t.ledger
	t.initialized = true
	return nil
}

func (t *Token) Address() common.Address { return t.addr }

// RegisterAsset installs the handle for an external payment asset so
// fee descriptors can reference it by address. Assets carrying
// rollback-able state are folded into the world snapshot.
func (t *Token) RegisterAsset(a collab.ERC20) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assets[a.Address()] = a
	t.addStateful(a)
}

// RegisterExchange installs a fixed-rate mechanism handle.
func (t *Token) RegisterExchange(ex collab.FixedRateExchange) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exchanges[ex.Address()] = ex
	t.addStateful(ex)
}

// RegisterDispenser installs a dispenser handle.
func (t *Token) RegisterDispenser(d collab.Dispenser) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispensers[d.Address()] = d
	t.addStateful(d)
}

func (t *Token) addStateful(v any) {
	if s, ok := v.(collab.Snapshotter); ok {
		t.stateful = append(t.stateful, s)
	}
}

// Mint increases supply toward the cap. Caller must hold the minter
// role.
func (t *Token) Mint(caller, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	if !t.perms.IsMinter(caller) {
		return fmt.Errorf("mint by %s: %w", caller.Hex(), ErrUnauthorized)
	}
	return t.ledger.Mint(to, amount)
}

// Transfer moves caller's own balance.
func (t *Token) Transfer(caller, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	return t.ledger.Transfer(caller, to, amount)
}

// TransferFrom moves from's balance on caller's allowance. A caller
// pulling its own balance bypasses the allowance check.
func (t *Token) TransferFrom(caller, from, to common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	return t.ledger.TransferFrom(caller, from, to, amount)
}

// Approve sets spender's allowance over caller's balance.
func (t *Token) Approve(caller, spender common.Address, amount *big.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	return t.ledger.Approve(caller, spender, amount)
}

func (t *Token) BalanceOf(addr common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.BalanceOf(addr)
}

func (t *Token) TotalSupply() *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.TotalSupply()
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Allowance(owner, spender)
}

func (t *Token) Nonce(owner common.Address) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Nonce(owner)
}

// Ledger exposes the underlying balance ledger as a payment-asset
// surface for collaborators (mock mechanisms hold/transfer it).
func (t *Token) Ledger() collab.ERC20 { return t.ledger }

// MinterGate returns the role-checked mint surface handed to bound
// mechanisms. Only valid while the goroutine is already executing
// inside one of this token's entry points.
func (t *Token) MinterGate() collab.Minter { return minterGate{t} }

type minterGate struct{ t *Token }

func (g minterGate) Mint(caller, to common.Address, amount *big.Int) error {
	if !g.t.perms.IsMinter(caller) {
		return fmt.Errorf("mechanism mint by %s: %w", caller.Hex(), ErrUnauthorized)
	}
	return g.t.ledger.Mint(to, amount)
}

// PaymentCollector resolves the fee destination. An unset collector
// falls back to the owning registry's current ultimate owner, read
// fresh on every call so an ownership change redirects fees at once.
func (t *Token) PaymentCollector() common.Address {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paymentCollector()
}

func (t *Token) paymentCollector() common.Address {
	if c := t.perms.Collector(); c != (common.Address{}) {
		return c
	}
	return t.oracle.UltimateOwner()
}

// PublishFee returns the current persistent publish-market fee.
func (t *Token) PublishFee() domain.PublishMarketFee {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyFee(t.publishFee)
}

// IsMinter reports minter-role membership.
func (t *Token) IsMinter(addr common.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perms.IsMinter(addr)
}

// IsPaymentManager reports payment-manager-role membership.
func (t *Token) IsPaymentManager(addr common.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perms.IsPaymentManager(addr)
}

// SetData writes a key-value pair through the owning registry's
// metadata store and mirrors it into the local audit database.
// Deployer-role callers only.
func (t *Token) SetData(caller common.Address, key, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return ErrNotInitialized
	}
	if !t.oracle.HasDeployerRole(caller) {
		return fmt.Errorf("setData by %s: %w", caller.Hex(), ErrUnauthorized)
	}
	if err := t.oracle.StoreMetadata(key, value); err != nil {
		return fmt.Errorf("store metadata: %w", err)
	}
	if t.store != nil {
		return t.store.UpsertMetadata(context.Background(), key, value, time.Now().UnixMicro())
	}
	return nil
}

func copyFee(f domain.PublishMarketFee) domain.PublishMarketFee {
	out := domain.PublishMarketFee{Address: f.Address, Token: f.Token}
	if f.Amount != nil {
		out.Amount = new(big.Int).Set(f.Amount)
	} else {
		out.Amount = big.NewInt(0)
	}
	return out
}

func bigStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
