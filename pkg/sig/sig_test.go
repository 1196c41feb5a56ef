package sig

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestRecover_RoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}
	signer := crypto.PubkeyToAddress(key.PublicKey)

	digest := EthSignedMessageHash(crypto.Keccak256Hash([]byte("payload")))
	sigBytes, err := crypto.Sign(digest[:], key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if got := Recover(digest, sigBytes); got != signer {
		t.Errorf("recovered %s, want %s", got.Hex(), signer.Hex())
	}

	// Legacy V encoding (27/28) must recover identically.
	legacy := make([]byte, SigLen)
	copy(legacy, sigBytes)
	legacy[64] += 27
	if got := Recover(digest, legacy); got != signer {
		t.Errorf("legacy V: recovered %s, want %s", got.Hex(), signer.Hex())
	}
}

func TestRecover_MalformedYieldsZero(t *testing.T) {
	digest := crypto.Keccak256Hash([]byte("x"))

	cases := []struct {
		name string
		sig  []byte
	}{
		{"empty", nil},
		{"short", make([]byte, 64)},
		{"long", make([]byte, 66)},
		{"bad recovery id", append(make([]byte, 64), 9)},
	}

	for _, c := range cases {
		if got := Recover(digest, c.sig); got != (common.Address{}) {
			t.Errorf("%s: got %s, want zero address", c.name, got.Hex())
		}
	}
}

func TestRecoverVRS(t *testing.T) {
	key, _ := crypto.GenerateKey()
	signer := crypto.PubkeyToAddress(key.PublicKey)

	digest := crypto.Keccak256Hash([]byte("vrs"))
	raw, err := crypto.Sign(digest[:], key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	var r, s [32]byte
	copy(r[:], raw[0:32])
	copy(s[:], raw[32:64])
	v := raw[64] + 27

	if got := RecoverVRS(digest, v, r, s); got != signer {
		t.Errorf("recovered %s, want %s", got.Hex(), signer.Hex())
	}
}

func TestProviderFeeDigest_BitFlipChangesDigest(t *testing.T) {
	feeAddr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	feeToken := common.HexToAddress("0x2222222222222222222222222222222222222222")
	amount := big.NewInt(1000)
	until := big.NewInt(99999)
	data := []byte{0xde, 0xad}

	base := ProviderFeeDigest(data, feeAddr, feeToken, amount, until)

	mutations := []common.Hash{
		ProviderFeeDigest([]byte{0xde, 0xac}, feeAddr, feeToken, amount, until),
		ProviderFeeDigest(data, common.HexToAddress("0x3333333333333333333333333333333333333333"), feeToken, amount, until),
		ProviderFeeDigest(data, feeAddr, feeAddr, amount, until),
		ProviderFeeDigest(data, feeAddr, feeToken, big.NewInt(1001), until),
		ProviderFeeDigest(data, feeAddr, feeToken, amount, big.NewInt(100000)),
	}

	for i, m := range mutations {
		if m == base {
			t.Errorf("mutation %d did not change the digest", i)
		}
	}
}

func TestPermitDigest_NonceAndDomainSensitivity(t *testing.T) {
	owner := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	spender := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	contract := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	dom := DomainSeparator("DT1", "1", big.NewInt(1), contract)
	value := big.NewInt(500)
	deadline := big.NewInt(1234567)

	d0 := PermitDigest(dom, owner, spender, value, big.NewInt(0), deadline)
	d1 := PermitDigest(dom, owner, spender, value, big.NewInt(1), deadline)
	if d0 == d1 {
		t.Error("nonce advance did not change permit digest")
	}

	dom2 := DomainSeparator("DT1", "1", big.NewInt(2), contract)
	if PermitDigest(dom2, owner, spender, value, big.NewInt(0), deadline) == d0 {
		t.Error("chain id change did not change permit digest")
	}
}

func TestPermitDigest_SignAndRecover(t *testing.T) {
	key, _ := crypto.GenerateKey()
	owner := crypto.PubkeyToAddress(key.PublicKey)
	spender := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	contract := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	dom := DomainSeparator("DT1", "1", big.NewInt(1), contract)
	digest := PermitDigest(dom, owner, spender, big.NewInt(10), big.NewInt(0), big.NewInt(9999999999))

	raw, err := crypto.Sign(digest[:], key)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if got := Recover(digest, raw); got != owner {
		t.Errorf("recovered %s, want %s", got.Hex(), owner.Hex())
	}
}
