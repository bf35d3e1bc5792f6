// internal/state/errors.go
package state

import "errors"

// Every instruction fails with exactly one of these; the first violated
// precondition aborts the whole instruction with no partial state change.
var (
	ErrAccountMismatch          = errors.New("derived address disagrees with supplied account")
	ErrAlreadyInitialized       = errors.New("global registry already initialized")
	ErrAlreadyExists            = errors.New("account already exists")
	ErrUnauthorized             = errors.New("signer is not the required authority")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrInsufficientLiquidity    = errors.New("not enough depth in the pool reserves")
	ErrOverflow                 = errors.New("arithmetic overflow")
	ErrUnderflow                = errors.New("arithmetic underflow")
	ErrPoolMigrated             = errors.New("pool has migrated, trading is disabled")
	ErrPoolNotMigrated          = errors.New("pool has not migrated yet")
	ErrAlreadyMigratedLiquidity = errors.New("pool liquidity already seeded")
	ErrInvalidAmount            = errors.New("invalid amount")

	// Runtime-level failures surfaced by the ledger rather than a handler.
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountNotDeclared = errors.New("account not declared in the instruction's account set")
	ErrAccountInUse       = errors.New("account in use by another instruction")
)
