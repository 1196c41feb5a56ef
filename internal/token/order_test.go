package token

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/MantisClone/df-py/internal/domain"
	"github.com/MantisClone/df-py/internal/event"
	"github.com/MantisClone/df-py/internal/ledger"
	"github.com/MantisClone/df-py/pkg/sig"
	"github.com/MantisClone/df-py/pkg/units"
)

func TestStartOrderSettlesAndBurns(t *testing.T) {
	f := newFixture(t, fixtureOpts{publishFee: u(2)})

	if err := f.core.Mint(deployerAddr, consumerAddr, u(1)); err != nil {
		t.Fatalf("mint datatoken: %v", err)
	}
	// publish 2 + consume 3 + provider 100
	f.fundBase(t, consumerAddr, u(105))

	params := domain.OrderParams{
		Consumer:     consumerAddr,
		ServiceIndex: 1,
		ProviderFee:  f.signedProviderFee(t, u(100), big.NewInt(0), []byte("svc-1")),
		ConsumeFee:   domain.ConsumeMarketFee{Address: consumeAddr, Token: baseAddr, Amount: u(3)},
	}
	if err := f.core.StartOrder(consumerAddr, params); err != nil {
		t.Fatalf("StartOrder: %v", err)
	}

	if got := f.core.BalanceOf(consumerAddr); got.Sign() != 0 {
		t.Errorf("consumer datatoken balance = %s, want 0 (whole unit burned)", got)
	}
	if got := f.core.TotalSupply(); got.Sign() != 0 {
		t.Errorf("total supply = %s, want 0 after burn", got)
	}

	// 1% protocol cut skimmed off the 100-unit provider fee.
	checks := []struct {
		name string
		who  string
		got  *big.Int
		want *big.Int
	}{
		{"publish recipient", publishAddr.Hex(), f.base.BalanceOf(publishAddr), u(2)},
		{"consume recipient", consumeAddr.Hex(), f.base.BalanceOf(consumeAddr), u(3)},
		{"provider net", f.providerAddr.Hex(), f.base.BalanceOf(f.providerAddr), u(99)},
		{"community cut", communityAddr.Hex(), f.base.BalanceOf(communityAddr), u(1)},
		{"payer remainder", consumerAddr.Hex(), f.base.BalanceOf(consumerAddr), u(0)},
	}
	for _, c := range checks {
		if c.got.Cmp(c.want) != 0 {
			t.Errorf("%s (%s) holds %s, want %s", c.name, c.who, c.got, c.want)
		}
	}
}

func TestStartOrderRequiresWholeUnit(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	// Just under one unit.
	almost := new(big.Int).Sub(units.One(), big.NewInt(1))
	if err := f.core.Mint(deployerAddr, consumerAddr, almost); err != nil {
		t.Fatalf("mint: %v", err)
	}

	err := f.core.StartOrder(consumerAddr, f.zeroFeeOrder(t))
	if !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if got := f.core.BalanceOf(consumerAddr); got.Cmp(almost) != 0 {
		t.Errorf("balance changed on rejected order: %s", got)
	}
}

func TestStartOrderRollsBackOnFeeFailure(t *testing.T) {
	f := newFixture(t, fixtureOpts{publishFee: u(2)})

	if err := f.core.Mint(deployerAddr, consumerAddr, u(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// Enough for the publish fee but short of the provider fee, so the
	// call fails after the publish leg already moved funds.
	f.fundBase(t, consumerAddr, u(10))

	params := domain.OrderParams{
		Consumer:    consumerAddr,
		ProviderFee: f.signedProviderFee(t, u(100), big.NewInt(0), []byte("svc-1")),
	}
	err := f.core.StartOrder(consumerAddr, params)
	if !errors.Is(err, ledger.ErrInsufficientAllowance) && !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want a funds error", err)
	}

	// Everything unwound, including the already-settled publish leg.
	if got := f.base.BalanceOf(publishAddr); got.Sign() != 0 {
		t.Errorf("publish recipient kept %s from aborted call", got)
	}
	if got := f.base.BalanceOf(consumerAddr); got.Cmp(u(10)) != 0 {
		t.Errorf("payer base = %s, want 10 units restored", got)
	}
	if got := f.core.BalanceOf(consumerAddr); got.Cmp(u(1)) != 0 {
		t.Errorf("payer datatoken = %s, want 1 unit intact", got)
	}
}

func TestStartOrderRejectsTamperedProviderFee(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	if err := f.core.Mint(deployerAddr, consumerAddr, u(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Any field of the signed tuple mutated after signing must break
	// the recovery match.
	cases := []struct {
		name   string
		tamper func(fee *domain.ProviderFee)
	}{
		{"amount", func(fee *domain.ProviderFee) { fee.Amount = u(0) }},
		{"recipient", func(fee *domain.ProviderFee) { fee.Address = addr(0x70) }},
		{"token", func(fee *domain.ProviderFee) { fee.Token = addr(0x71) }},
		{"valid until", func(fee *domain.ProviderFee) { fee.ValidUntil = big.NewInt(9999) }},
		{"provider data", func(fee *domain.ProviderFee) { fee.ProviderData = []byte("svc-2") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee := f.signedProviderFee(t, u(1), big.NewInt(0), []byte("svc-1"))
			tc.tamper(&fee)

			err := f.core.StartOrder(consumerAddr, domain.OrderParams{Consumer: consumerAddr, ProviderFee: fee})
			if !errors.Is(err, ErrSignature) {
				t.Fatalf("err = %v, want ErrSignature", err)
			}
		})
	}
}

func TestStartOrderZeroFeesStillAudited(t *testing.T) {
	f := newFixture(t, fixtureOpts{withStore: true})

	if err := f.core.Mint(deployerAddr, consumerAddr, u(1)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := f.core.StartOrder(consumerAddr, f.zeroFeeOrder(t)); err != nil {
		t.Fatalf("StartOrder: %v", err)
	}

	evs, err := f.store.LoadEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	var types []event.Type
	for _, ev := range evs {
		types = append(types, ev.Type)
	}
	// The provider-fee record fires even when no funds move; the
	// zero-amount publish and consume legs stay silent.
	want := []event.Type{event.EvOrderStarted, event.EvProviderFee}
	if len(types) != len(want) {
		t.Fatalf("event types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("event types = %v, want %v", types, want)
		}
	}
	if evs[0].CallID == "" || evs[0].CallID != evs[1].CallID {
		t.Errorf("events not correlated: %q vs %q", evs[0].CallID, evs[1].CallID)
	}
}

func TestAbortedCallLeavesNoAuditTrail(t *testing.T) {
	f := newFixture(t, fixtureOpts{withStore: true})

	// No datatoken balance: the order aborts after its first event
	// would have been emitted.
	err := f.core.StartOrder(consumerAddr, f.zeroFeeOrder(t))
	if err == nil {
		t.Fatal("expected order failure")
	}

	evs, err := f.store.LoadEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(evs) != 0 {
		t.Errorf("aborted call persisted %d events", len(evs))
	}
}

func TestReuseOrderPaysProviderWithoutBurn(t *testing.T) {
	f := newFixture(t, fixtureOpts{withStore: true})

	// Reuse needs neither a datatoken balance nor a valid prior order
	// reference; the ref is audit linkage only.
	f.fundBase(t, consumerAddr, u(50))
	fee := f.signedProviderFee(t, u(50), big.NewInt(0), []byte("svc-1"))

	orderRef := crypto.Keccak256Hash([]byte("some-prior-order"))
	if err := f.core.ReuseOrder(consumerAddr, orderRef, fee); err != nil {
		t.Fatalf("ReuseOrder: %v", err)
	}

	if got := f.core.TotalSupply(); got.Sign() != 0 {
		t.Errorf("supply = %s, reuse must not burn", got)
	}
	// 1% cut of 50.
	if got := f.base.BalanceOf(f.providerAddr); got.Cmp(units.MustToBase18("49.5")) != 0 {
		t.Errorf("provider net = %s, want 49.5", units.FromBase18(got))
	}

	evs, err := f.store.LoadEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("LoadEvents: %v", err)
	}
	if len(evs) != 2 || evs[0].Type != event.EvOrderReused || evs[1].Type != event.EvProviderFee {
		t.Fatalf("unexpected audit trail: %+v", evs)
	}
}

func TestOrderExecuted(t *testing.T) {
	f := newFixture(t, fixtureOpts{})

	consumerKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	consumer := crypto.PubkeyToAddress(consumerKey.PublicKey)

	orderRef := crypto.Keccak256Hash([]byte("order-1"))
	providerData := []byte("delivery-metadata")
	consumerData := []byte("receipt-ack")

	provDigest := sig.EthSignedMessageHash(sig.ExecutionProofDigest(orderRef, providerData))
	provSig, err := crypto.Sign(provDigest[:], f.providerKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	consDigest := sig.EthSignedMessageHash(sig.ConsumerProofDigest(consumerData))
	consSig, err := crypto.Sign(consDigest[:], consumerKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	proof := domain.ExecutionProof{
		OrderRef:     orderRef,
		ProviderData: providerData,
		ProviderSig:  provSig,
		ConsumerData: consumerData,
		ConsumerSig:  consSig,
		Consumer:     consumer,
	}

	if err := f.core.OrderExecuted(consumer, proof); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("self-attestation err = %v, want ErrUnauthorized", err)
	}
	if err := f.core.OrderExecuted(f.providerAddr, proof); err != nil {
		t.Fatalf("OrderExecuted: %v", err)
	}

	// Provider signature must recover to the caller specifically.
	if err := f.core.OrderExecuted(deployerAddr, proof); !errors.Is(err, ErrSignature) {
		t.Fatalf("wrong caller err = %v, want ErrSignature", err)
	}

	bad := proof
	bad.ConsumerData = []byte("tampered")
	if err := f.core.OrderExecuted(f.providerAddr, bad); !errors.Is(err, ErrSignature) {
		t.Fatalf("tampered consumer data err = %v, want ErrSignature", err)
	}
}
