package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrCapExceeded           = errors.New("mint exceeds cap")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Ledger tracks capped mint/burn/transfer balances for a single
// base-18 asset, plus spending allowances and per-signer permit
// nonces. It holds no role logic; callers gate mutation by capability.
//
// Not safe for concurrent use on its own: the owning core serializes
// every entry point.
type Ledger struct {
	addr   common.Address
	name   string
	symbol string

	cap         *big.Int
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
	nonces      map[common.Address]*big.Int
}

// New creates an empty ledger. cap is copied; a nil cap means uncapped.
func New(addr common.Address, name, symbol string, cap *big.Int) *Ledger {
	l := &Ledger{
		addr:        addr,
		name:        name,
		symbol:      symbol,
		totalSupply: big.NewInt(0),
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
		nonces:      make(map[common.Address]*big.Int),
	}
	if cap != nil {
		l.cap = new(big.Int).Set(cap)
	}
	return l
}

func (l *Ledger) Address() common.Address { return l.addr }
func (l *Ledger) Name() string            { return l.name }
func (l *Ledger) Symbol() string          { return l.symbol }

// Cap returns a copy of the supply cap, or nil if uncapped.
func (l *Ledger) Cap() *big.Int {
	if l.cap == nil {
		return nil
	}
	return new(big.Int).Set(l.cap)
}

func (l *Ledger) TotalSupply() *big.Int {
	return new(big.Int).Set(l.totalSupply)
}

// BalanceOf returns a copy of the account balance (zero if unknown).
func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

// Mint increases to's balance and total supply. The attempt fails
// outright, with state unchanged, if it would push supply past the cap.
func (l *Ledger) Mint(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("mint amount must be positive")
	}
	next := new(big.Int).Add(l.totalSupply, amount)
	if l.cap != nil && next.Cmp(l.cap) > 0 {
		return fmt.Errorf("supply %s + %s over cap %s: %w",
			l.totalSupply, amount, l.cap, ErrCapExceeded)
	}
	l.totalSupply = next
	l.credit(to, amount)
	return nil
}

// Burn destroys amount from from's own balance.
func (l *Ledger) Burn(from common.Address, amount *big.Int) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.totalSupply = new(big.Int).Sub(l.totalSupply, amount)
	return nil
}

// Transfer moves amount from -> to.
func (l *Ledger) Transfer(from, to common.Address, amount *big.Int) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// TransferFrom moves amount from -> to, spending spender's allowance.
// A self-pull (spender == from) needs no allowance.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	if spender != from {
		allowed := l.Allowance(from, spender)
		if allowed.Cmp(amount) < 0 {
			return fmt.Errorf("spender %s allowed %s, needs %s: %w",
				spender.Hex(), allowed, amount, ErrInsufficientAllowance)
		}
		l.setAllowance(from, spender, new(big.Int).Sub(allowed, amount))
	}
	return l.Transfer(from, to, amount)
}

// Approve sets spender's allowance over owner's balance.
func (l *Ledger) Approve(owner, spender common.Address, amount *big.Int) error {
	l.setAllowance(owner, spender, new(big.Int).Set(amount))
	return nil
}

func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return big.NewInt(0)
}

// Nonce returns the current permit nonce for owner.
func (l *Ledger) Nonce(owner common.Address) *big.Int {
	if n, ok := l.nonces[owner]; ok {
		return new(big.Int).Set(n)
	}
	return big.NewInt(0)
}

// BumpNonce advances owner's permit nonce after a consumed signature.
func (l *Ledger) BumpNonce(owner common.Address) {
	l.nonces[owner] = new(big.Int).Add(l.Nonce(owner), big.NewInt(1))
}

func (l *Ledger) setAllowance(owner, spender common.Address, amount *big.Int) {
	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		l.allowances[owner] = m
	}
	m[spender] = amount
}

func (l *Ledger) credit(addr common.Address, amount *big.Int) {
	l.balances[addr] = new(big.Int).Add(l.BalanceOf(addr), amount)
}

func (l *Ledger) debit(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("debit amount must be non-negative")
	}
	have := l.BalanceOf(addr)
	if have.Cmp(amount) < 0 {
		return fmt.Errorf("account %s holds %s, needs %s: %w",
			addr.Hex(), have, amount, ErrInsufficientBalance)
	}
	l.balances[addr] = have.Sub(have, amount)
	return nil
}
