// internal/ledger/txcontext.go
package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/state"
)

// TxContext is the view one executing instruction has of the ledger. Every
// access is checked against the declared account set, and all loads return
// staged clones: nothing reaches the live ledger until commit.
type TxContext struct {
	ledger *Ledger
	metas  map[solana.PublicKey]AccountMeta
	staged map[solana.PublicKey]*Account
}

func (tc *TxContext) meta(addr solana.PublicKey) (AccountMeta, error) {
	m, ok := tc.metas[addr]
	if !ok {
		return AccountMeta{}, fmt.Errorf("%s: %w", addr.String(), state.ErrAccountNotDeclared)
	}
	return m, nil
}

// IsSigner reports whether addr was declared as a transaction signer.
func (tc *TxContext) IsSigner(addr solana.PublicKey) bool {
	m, ok := tc.metas[addr]
	return ok && m.Signer
}

// Exists reports whether the account exists, staged creations included.
func (tc *TxContext) Exists(addr solana.PublicKey) bool {
	if _, ok := tc.staged[addr]; ok {
		return true
	}
	tc.ledger.mu.Lock()
	defer tc.ledger.mu.Unlock()
	_, ok := tc.ledger.accounts[addr]
	return ok
}

// Account returns the staged clone for addr, loading it from the ledger on
// first access. Fails for undeclared or missing accounts.
func (tc *TxContext) Account(addr solana.PublicKey) (*Account, error) {
	if _, err := tc.meta(addr); err != nil {
		return nil, err
	}
	if acct, ok := tc.staged[addr]; ok {
		return acct, nil
	}
	tc.ledger.mu.Lock()
	live, ok := tc.ledger.accounts[addr]
	tc.ledger.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", addr.String(), state.ErrAccountNotFound)
	}
	acct := live.Clone()
	tc.staged[addr] = acct
	return acct, nil
}

// Create stages a new empty account at addr owned by owner. The address must
// be declared writable and must not exist yet.
func (tc *TxContext) Create(addr, owner solana.PublicKey) (*Account, error) {
	m, err := tc.meta(addr)
	if err != nil {
		return nil, err
	}
	if !m.Writable {
		return nil, fmt.Errorf("create %s: %w", addr.String(), state.ErrAccountNotDeclared)
	}
	if tc.Exists(addr) {
		return nil, fmt.Errorf("%s: %w", addr.String(), state.ErrAlreadyExists)
	}
	acct := &Account{Address: addr, Owner: owner}
	tc.staged[addr] = acct
	return acct, nil
}

// Transfer moves lamports between two declared writable accounts.
func (tc *TxContext) Transfer(from, to solana.PublicKey, lamports uint64) error {
	src, err := tc.writable(from)
	if err != nil {
		return err
	}
	dst, err := tc.writable(to)
	if err != nil {
		return err
	}
	if src.Lamports < lamports {
		return fmt.Errorf("transfer %d from %s: %w", lamports, from.String(), state.ErrInsufficientFunds)
	}
	sum := dst.Lamports + lamports
	if sum < dst.Lamports {
		return state.ErrOverflow
	}
	src.Lamports -= lamports
	dst.Lamports = sum
	return nil
}

func (tc *TxContext) writable(addr solana.PublicKey) (*Account, error) {
	m, err := tc.meta(addr)
	if err != nil {
		return nil, err
	}
	if !m.Writable {
		return nil, fmt.Errorf("%s is read-only: %w", addr.String(), state.ErrAccountNotDeclared)
	}
	return tc.Account(addr)
}

// commit swaps every staged writable account into the live ledger. Runs only
// after the handler succeeded; the write locks held by Execute make the swap
// race-free.
func (tc *TxContext) commit() {
	tc.ledger.mu.Lock()
	defer tc.ledger.mu.Unlock()
	for addr, acct := range tc.staged {
		if tc.metas[addr].Writable {
			tc.ledger.accounts[addr] = acct
		}
	}
}
