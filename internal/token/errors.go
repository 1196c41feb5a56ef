package token

import (
	"errors"
	"fmt"
)

// Failure taxonomy of the settlement core. Every error aborts the
// whole triggering call with no partial effect; callers resubmit a
// corrected call. State-class failures (cap, balance, allowance,
// role conflicts) surface as the ledger/registry package sentinels.
var (
	ErrUnauthorized       = errors.New("caller not authorized")
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")

	// ErrSignature: a recovered identity does not match the expected
	// signer. ErrExpired is the deadline case of the same class.
	ErrSignature = errors.New("signature does not match expected signer")
	ErrExpired   = fmt.Errorf("deadline passed: %w", ErrSignature)

	// ErrTransferIntegrity: an external transfer-in did not increase
	// the recipient's balance by the expected amount.
	ErrTransferIntegrity = errors.New("transfer integrity check failed")

	// ErrContractMismatch: a referenced external contract is not
	// registered with, or not configured for, this token.
	ErrContractMismatch = errors.New("external contract mismatch")

	ErrSlippage   = errors.New("required input exceeds caller maximum")
	ErrReentrancy = errors.New("re-entrant call rejected")
)
