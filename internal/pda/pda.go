// internal/pda/pda.go
package pda

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/launchpad/internal/state"
)

// Seed labels; the exact byte strings are part of the on-ledger contract and
// must never change once pools exist.
const (
	MintSeed       = "mint"
	TokenPoolSeed  = "token_pool"
	SolEscrowSeed  = "sol_escrow_seed"
	GlobalInfoSeed = "global_info"
	MetadataSeed   = "metadata"
)

// Deriver computes every program-derived address from its seeds and the
// owning program's identity. Pure and total: identical seeds always yield the
// identical address and bump.
type Deriver struct {
	program solana.PublicKey
}

func NewDeriver(program solana.PublicKey) *Deriver {
	return &Deriver{program: program}
}

func (d *Deriver) Program() solana.PublicKey {
	return d.program
}

// Mint derives the mint address for a token symbol.
func (d *Deriver) Mint(symbol string) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(MintSeed), []byte(symbol)},
		d.program,
	)
}

// TokenVault derives the vault holding the sellable supply. The vault address
// doubles as its own authority, so the mint's raw bytes are the only seed.
func (d *Deriver) TokenVault(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{mint.Bytes()},
		d.program,
	)
}

// Escrow derives the SOL vault backing a pool.
func (d *Deriver) Escrow(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(SolEscrowSeed), mint.Bytes()},
		d.program,
	)
}

// GlobalInfo derives the protocol-wide registry singleton.
func (d *Deriver) GlobalInfo() (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(GlobalInfoSeed)},
		d.program,
	)
}

// TokenPool derives the bonding-curve state account for a mint.
func (d *Deriver) TokenPool(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(TokenPoolSeed), mint.Bytes()},
		d.program,
	)
}

// Metadata derives the external metadata account. It lives under the metadata
// program, not under ours.
func (d *Deriver) Metadata(metadataProgram, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{[]byte(MetadataSeed), metadataProgram.Bytes(), mint.Bytes()},
		metadataProgram,
	)
}

// Verify rejects a supplied account whose address disagrees with the derived
// one. Callers must do this before trusting any account they did not derive.
func Verify(role string, supplied, derived solana.PublicKey) error {
	if !supplied.Equals(derived) {
		return fmt.Errorf("%s: expected %s, got %s: %w",
			role, derived.String(), supplied.String(), state.ErrAccountMismatch)
	}
	return nil
}
