package token

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/MantisClone/df-py/pkg/sig"
)

func signPermit(t *testing.T, f *fixture, key *ecdsa.PrivateKey, owner, spender common.Address, value, deadline *big.Int) (uint8, [32]byte, [32]byte) {
	t.Helper()
	digest := sig.PermitDigest(f.core.DomainSeparator(), owner, spender, value, f.core.Nonce(owner), deadline)
	raw, err := crypto.Sign(digest[:], key)
	if err != nil {
		t.Fatalf("sign permit: %v", err)
	}
	var r, s [32]byte
	copy(r[:], raw[:32])
	copy(s[:], raw[32:64])
	return raw[64], r, s
}

func TestPermitSetsAllowance(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	ownerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)
	spender := addr(0x40)
	value := u(7)
	deadline := big.NewInt(time.Now().Add(time.Hour).Unix())

	v, r, s := signPermit(t, f, ownerKey, owner, spender, value, deadline)
	if err := f.core.Permit(owner, spender, value, deadline, v, r, s); err != nil {
		t.Fatalf("Permit: %v", err)
	}

	if got := f.core.Allowance(owner, spender); got.Cmp(value) != 0 {
		t.Errorf("allowance = %s, want %s", got, value)
	}
	if got := f.core.Nonce(owner); got.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("nonce = %s, want 1", got)
	}

	// The granted allowance is spendable through transferFrom.
	if err := f.core.Mint(deployerAddr, owner, value); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.core.TransferFrom(spender, owner, spender, value); err != nil {
		t.Fatalf("TransferFrom on permit allowance: %v", err)
	}
	if got := f.core.BalanceOf(spender); got.Cmp(value) != 0 {
		t.Errorf("spender balance = %s, want %s", got, value)
	}

	// Replaying the same signature fails: the nonce it was signed over
	// has been consumed.
	if err := f.core.Permit(owner, spender, value, deadline, v, r, s); !errors.Is(err, ErrSignature) {
		t.Fatalf("replay err = %v, want ErrSignature", err)
	}
}

func TestPermitExpiredDeadline(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	ownerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)
	spender := addr(0x40)
	deadline := big.NewInt(time.Now().Add(-time.Minute).Unix())

	v, r, s := signPermit(t, f, ownerKey, owner, spender, u(1), deadline)
	err = f.core.Permit(owner, spender, u(1), deadline, v, r, s)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	if err := f.core.Permit(owner, spender, u(1), nil, v, r, s); !errors.Is(err, ErrExpired) {
		t.Fatalf("nil deadline err = %v, want ErrExpired", err)
	}
	if got := f.core.Allowance(owner, spender); got.Sign() != 0 {
		t.Errorf("allowance = %s after rejected permit", got)
	}
}

func TestPermitWrongSigner(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	ownerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	otherKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)
	spender := addr(0x40)
	deadline := big.NewInt(time.Now().Add(time.Hour).Unix())

	v, r, s := signPermit(t, f, otherKey, owner, spender, u(1), deadline)
	if err := f.core.Permit(owner, spender, u(1), deadline, v, r, s); !errors.Is(err, ErrSignature) {
		t.Fatalf("err = %v, want ErrSignature", err)
	}
}
