package sig

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Recovery of secp256k1 signatures over the fixed message-hashing
// schemes used by the settlement core. All recovery is non-throwing:
// malformed input yields the zero address, which is never a valid
// signer. Callers MUST compare the result against the expected signer
// and treat a mismatch (or the zero address) as authorization failure.

// SigLen is the packed signature length: 32-byte R, 32-byte S, 1-byte V.
const SigLen = 65

// Recover returns the address whose key produced sig over hash.
// It accepts V as 0/1 or 27/28 and returns the zero address on any
// malformed input (wrong length, non-canonical V, recovery failure).
func Recover(hash common.Hash, sigBytes []byte) common.Address {
	if len(sigBytes) != SigLen {
		return common.Address{}
	}

	// Normalize V to 0/1 for crypto.Ecrecover.
	norm := make([]byte, SigLen)
	copy(norm, sigBytes)
	if norm[64] >= 27 {
		norm[64] -= 27
	}
	if norm[64] != 0 && norm[64] != 1 {
		return common.Address{}
	}

	pub, err := crypto.Ecrecover(hash[:], norm)
	if err != nil {
		return common.Address{}
	}

	ecdsaPub, err := crypto.UnmarshalPubkey(pub)
	if err != nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(*ecdsaPub)
}

// RecoverVRS recovers from an unpacked (v, r, s) triple.
func RecoverVRS(hash common.Hash, v uint8, r, s [32]byte) common.Address {
	packed := make([]byte, SigLen)
	copy(packed[0:32], r[:])
	copy(packed[32:64], s[:])
	packed[64] = v
	return Recover(hash, packed)
}

// EthSignedMessageHash applies the conventional
// "\x19Ethereum Signed Message:\n32" prefix wrapping to a digest.
func EthSignedMessageHash(h common.Hash) common.Hash {
	return common.BytesToHash(crypto.Keccak256(
		[]byte("\x19Ethereum Signed Message:\n32"), h[:],
	))
}

// ProviderFeeDigest computes the unwrapped digest a service provider
// signs to authorize its fee: keccak256 over the ABI-encoded tuple
// (providerData, feeAddress, feeToken, feeAmount, validUntil).
// Callers wrap it with EthSignedMessageHash before recovery.
func ProviderFeeDigest(providerData []byte, feeAddress, feeToken common.Address, feeAmount, validUntil *big.Int) common.Hash {
	enc := mustPack(providerData, feeAddress, feeToken, u256(feeAmount), u256(validUntil))
	return common.BytesToHash(crypto.Keccak256(enc))
}

// ExecutionProofDigest binds a prior order reference to the provider's
// delivery data blob.
func ExecutionProofDigest(orderRef common.Hash, providerData []byte) common.Hash {
	enc := mustPack([32]byte(orderRef), providerData)
	return common.BytesToHash(crypto.Keccak256(enc))
}

// ConsumerProofDigest hashes the consumer's half of the execution proof.
func ConsumerProofDigest(consumerData []byte) common.Hash {
	enc := mustPack(consumerData)
	return common.BytesToHash(crypto.Keccak256(enc))
}

func u256(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
