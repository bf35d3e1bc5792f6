// internal/program/query.go
package program

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/state"
)

// GlobalInfo reads the registry state outside any instruction.
func (p *Program) GlobalInfo() (*state.GlobalInfo, error) {
	addr, _, err := p.pda.GlobalInfo()
	if err != nil {
		return nil, fmt.Errorf("derive global info: %w", err)
	}
	acct, ok := p.ledger.Account(addr)
	if !ok {
		return nil, fmt.Errorf("global info %s: %w", addr.String(), state.ErrAccountNotFound)
	}
	return state.DecodeGlobalInfo(acct.Data)
}

// Pool reads the bonding-curve state for mint.
func (p *Program) Pool(mint solana.PublicKey) (*state.TokenPool, error) {
	addr, _, err := p.pda.TokenPool(mint)
	if err != nil {
		return nil, fmt.Errorf("derive token pool: %w", err)
	}
	acct, ok := p.ledger.Account(addr)
	if !ok {
		return nil, fmt.Errorf("token pool %s: %w", addr.String(), state.ErrAccountNotFound)
	}
	return state.DecodeTokenPool(acct.Data)
}

// Metadata reads the metadata record for mint.
func (p *Program) Metadata(mint solana.PublicKey) (*state.TokenMetadata, error) {
	addr, _, err := p.pda.Metadata(p.metadataProgram, mint)
	if err != nil {
		return nil, fmt.Errorf("derive metadata: %w", err)
	}
	acct, ok := p.ledger.Account(addr)
	if !ok {
		return nil, fmt.Errorf("metadata %s: %w", addr.String(), state.ErrAccountNotFound)
	}
	return state.DecodeTokenMetadata(acct.Data)
}

// MintAddress derives the mint a symbol maps to.
func (p *Program) MintAddress(symbol string) (solana.PublicKey, error) {
	addr, _, err := p.pda.Mint(symbol)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive mint: %w", err)
	}
	return addr, nil
}

// TokenBalance reads owner's balance of mint, zero if the associated account
// does not exist yet.
func (p *Program) TokenBalance(owner, mint solana.PublicKey) (uint64, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, fmt.Errorf("derive associated token account: %w", err)
	}
	acct, ok := p.ledger.Account(addr)
	if !ok {
		return 0, nil
	}
	t, err := state.DecodeTokenAccount(acct.Data)
	if err != nil {
		return 0, err
	}
	return t.Amount, nil
}

// Balance reads the lamport balance at addr.
func (p *Program) Balance(addr solana.PublicKey) uint64 {
	return p.ledger.Balance(addr)
}
