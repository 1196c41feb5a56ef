package sig

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EIP-712 typed-data hashing for the delegated-approval (permit) scheme.

var (
	domainTypeHash = crypto.Keccak256Hash(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypeHash = crypto.Keccak256Hash(
		[]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))
)

// DomainSeparator derives the per-token EIP-712 domain hash. Computed
// once at initialization and reused for every permit digest.
func DomainSeparator(name, version string, chainID *big.Int, contract common.Address) common.Hash {
	enc := mustPack(
		[32]byte(domainTypeHash),
		[32]byte(crypto.Keccak256Hash([]byte(name))),
		[32]byte(crypto.Keccak256Hash([]byte(version))),
		u256(chainID),
		contract,
	)
	return common.BytesToHash(crypto.Keccak256(enc))
}

// PermitDigest computes the final "\x19\x01"-prefixed digest the token
// owner signs to delegate a spending allowance. Replay protection comes
// from the per-owner nonce folded into the struct hash.
func PermitDigest(domainSep common.Hash, owner, spender common.Address, value, nonce, deadline *big.Int) common.Hash {
	structEnc := mustPack(
		[32]byte(permitTypeHash),
		owner,
		spender,
		u256(value),
		u256(nonce),
		u256(deadline),
	)
	structHash := crypto.Keccak256(structEnc)

	return common.BytesToHash(crypto.Keccak256(
		[]byte("\x19\x01"), domainSep[:], structHash,
	))
}

// mustPack ABI-encodes a heterogeneous value list. The supported types
// are fixed at compile time, so encoding failures are programmer errors
// and panic rather than propagate.
func mustPack(values ...interface{}) []byte {
	var args abi.Arguments
	for _, v := range values {
		t, err := abiTypeFor(v)
		if err != nil {
			panic(fmt.Sprintf("sig: %v", err))
		}
		args = append(args, abi.Argument{Type: t})
	}

	enc, err := args.Pack(values...)
	if err != nil {
		panic(fmt.Sprintf("sig: abi pack: %v", err))
	}
	return enc
}

func abiTypeFor(v interface{}) (abi.Type, error) {
	switch v.(type) {
	case []byte:
		return abi.NewType("bytes", "", nil)
	case [32]byte:
		return abi.NewType("bytes32", "", nil)
	case common.Address:
		return abi.NewType("address", "", nil)
	case *big.Int:
		return abi.NewType("uint256", "", nil)
	case string:
		return abi.NewType("string", "", nil)
	default:
		return abi.Type{}, fmt.Errorf("unsupported abi value type %T", v)
	}
}
