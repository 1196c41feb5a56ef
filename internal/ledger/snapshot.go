package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Point-in-time capture of ledger state, used by the core's
// all-or-nothing rollback. Deep copies throughout; big.Int values are
// mutable and must never be shared across a snapshot boundary.

type state struct {
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
	nonces      map[common.Address]*big.Int
}

// Snapshot captures the full mutable state of the ledger.
func (l *Ledger) Snapshot() any {
	s := &state{
		totalSupply: new(big.Int).Set(l.totalSupply),
		balances:    copyBalances(l.balances),
		allowances:  make(map[common.Address]map[common.Address]*big.Int, len(l.allowances)),
		nonces:      copyBalances(l.nonces),
	}
	for owner, m := range l.allowances {
		s.allowances[owner] = copyBalances(m)
	}
	return s
}

// Restore replaces the ledger's state with a prior Snapshot result.
func (l *Ledger) Restore(snap any) {
	s := snap.(*state)
	l.totalSupply = new(big.Int).Set(s.totalSupply)
	l.balances = copyBalances(s.balances)
	l.allowances = make(map[common.Address]map[common.Address]*big.Int, len(s.allowances))
	for owner, m := range s.allowances {
		l.allowances[owner] = copyBalances(m)
	}
	l.nonces = copyBalances(s.nonces)
}

func copyBalances(src map[common.Address]*big.Int) map[common.Address]*big.Int {
	dst := make(map[common.Address]*big.Int, len(src))
	for k, v := range src {
		dst[k] = new(big.Int).Set(v)
	}
	return dst
}
